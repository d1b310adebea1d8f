package driver

import (
	"fmt"
	"log/slog"

	"github.com/funvibe/tyinfer/internal/analyzer"
	"github.com/funvibe/tyinfer/internal/diagnostics"
	"github.com/funvibe/tyinfer/internal/flow"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/telemetry"
	"github.com/funvibe/tyinfer/internal/typesystem"
	"github.com/funvibe/tyinfer/internal/validation"
)

// Result is the finalized environment handed to the code generator plus
// everything needed to report on it.
type Result struct {
	RunID   string
	State   State
	Outcome Outcome
	Passes  int

	// Env holds every binding. Live bindings have either a concrete type
	// or Unknown confidence with at least one warning.
	Env          *symbols.Environment
	Declarations *analyzer.Declarations
	// Solution is the last complete solve.
	Solution   *analyzer.TypeSolution
	Flow       *flow.Report
	Validation *validation.ValidationReport

	// Warnings are the T003/T004 diagnostics of the final state.
	Warnings []*diagnostics.DiagnosticError

	unknown []unknownBinding
}

type unknownBinding struct {
	binding *symbols.Binding
	reason  string
}

// UnsolvedConstraints returns the constraints that conflicted or stayed
// underdetermined in the last pass.
func (r *Result) UnsolvedConstraints() []*analyzer.Constraint {
	if r.Solution == nil {
		return nil
	}
	return r.Solution.Unsolved
}

// Conflicts returns declaration conflicts followed by unification conflicts.
func (r *Result) Conflicts() []*analyzer.Conflict {
	var out []*analyzer.Conflict
	if r.Declarations != nil {
		out = append(out, r.Declarations.Conflicts...)
	}
	if r.Solution != nil {
		out = append(out, r.Solution.Conflicts...)
	}
	return out
}

// ValidationConflicts returns observations that contradicted a declaration.
func (r *Result) ValidationConflicts() []*validation.ValidationConflict {
	if r.Validation == nil {
		return nil
	}
	return r.Validation.Conflicts
}

// Unknown returns the live bindings left without a type, in ID order.
func (r *Result) Unknown() []*symbols.Binding {
	out := make([]*symbols.Binding, len(r.unknown))
	for i, u := range r.unknown {
		out[i] = u.binding
	}
	return out
}

// TypeOf returns the final type of every live binding called name, in ID
// order. Unknown bindings contribute nil.
func (r *Result) TypeOf(name string) []typesystem.Type {
	var out []typesystem.Type
	for _, b := range r.Env.Find(name) {
		out = append(out, b.Info.Type())
	}
	return out
}

// Diagnostics renders conflicts, validation conflicts and warnings.
func (r *Result) Diagnostics() []*diagnostics.DiagnosticError {
	var out []*diagnostics.DiagnosticError
	for _, cf := range r.Conflicts() {
		out = append(out, cf.Diagnostic())
	}
	for _, vc := range r.ValidationConflicts() {
		out = append(out, vc.Diagnostic())
	}
	return append(out, r.Warnings...)
}

// UnknownEvents builds one telemetry event per Unknown binding.
func (r *Result) UnknownEvents() []telemetry.UnknownTypeEvent {
	events := make([]telemetry.UnknownTypeEvent, 0, len(r.unknown))
	for _, u := range r.unknown {
		e := telemetry.UnknownTypeEvent{
			RunID:    r.RunID,
			Name:     u.binding.Name,
			Function: u.binding.Unit(),
			Location: u.binding.Location,
			Reason:   u.reason,
		}
		if r.Solution != nil {
			if t := r.Solution.Resolve(u.binding.Var()); t != nil {
				if _, isVar := t.(typesystem.TVar); !isVar {
					e.ExpectedType = t.String()
				}
			}
		}
		events = append(events, e)
	}
	return events
}

// finalize turns the halted run into a Result. Every live binding lacking a
// concrete type is made Unknown with a warning.
func (r *run) finalize() *Result {
	res := &Result{
		RunID:        r.id,
		State:        r.state,
		Passes:       r.pass,
		Env:          r.env,
		Declarations: r.decls,
		Solution:     r.sol,
		Flow:         r.flow,
		Validation:   r.validation,
	}

	conflicts := r.conflictsByBinding()
	for _, b := range r.env.LiveBindings() {
		if b.IsDeclared() {
			continue
		}
		if cf, ok := conflicts[b.ID]; ok {
			res.unknown = append(res.unknown, unknownBinding{b, "conflict: " + cf.Kind.String()})
			continue
		}
		if b.Info.Confidence != symbols.Unknown {
			continue
		}
		reason, msg := "underdetermined", fmt.Sprintf("type of %s could not be determined", b.Name)
		if r.state == Exhausted {
			reason = "exhausted"
			msg += fmt.Sprintf(" within %d passes", r.pass)
		}
		r.env.MarkUnknown(b.ID, msg)
		res.unknown = append(res.unknown, unknownBinding{b, reason})
		res.Warnings = append(res.Warnings, diagnostics.NewWarning(diagnostics.ErrT003, b.Location, msg))
		r.d.log.Warn("underdetermined type",
			slog.String("run_id", r.id),
			slog.String("name", b.String()),
			slog.String("location", b.Location.String()),
		)
	}

	if r.state == Exhausted {
		msg := fmt.Sprintf("no fixed point after %d passes", r.pass)
		res.Warnings = append(res.Warnings, diagnostics.NewWarning(diagnostics.ErrT004, r.program.Loc(), msg))
		r.d.log.Warn("convergence exhausted", "run_id", r.id, "passes", r.pass)
	}

	switch {
	case len(res.Conflicts()) > 0 || len(res.ValidationConflicts()) > 0:
		res.Outcome = OutcomeFailed
	case len(res.unknown) > 0:
		res.Outcome = OutcomePartial
	default:
		res.Outcome = OutcomeSolved
	}
	return res
}
