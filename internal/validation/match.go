package validation

import (
	"fmt"

	"github.com/funvibe/tyinfer/internal/analyzer"
	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/diagnostics"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

// Applied is an observation accepted as a validated constraint.
type Applied struct {
	Binding symbols.BindingID
	Type    typesystem.Type
}

// ValidationConflict is an observation contradicting an explicit annotation.
// The annotation wins; the conflict is reported, never resolved.
type ValidationConflict struct {
	Observation ObservedBinding
	Binding     symbols.BindingID
	Declared    typesystem.Type
	Observed    typesystem.Type
	Location    ast.Location
}

func (c *ValidationConflict) Error() string {
	return fmt.Sprintf("%s declared %s but observed %s at runtime", c.Observation.Name, c.Declared, c.Observed)
}

// Diagnostic renders the conflict at the declaration, with the observation
// line as related location when known.
func (c *ValidationConflict) Diagnostic() *diagnostics.DiagnosticError {
	d := diagnostics.NewError(diagnostics.ErrT005, c.Location, c.Error())
	if c.Observation.Line > 0 {
		d.WithRelated(ast.Location{File: c.Location.File, Line: c.Observation.Line}, "observed "+c.Observed.String())
	}
	return d
}

// Unmatched is an observation that names nothing in the environment.
type Unmatched struct {
	Observation ObservedBinding
	Reason      string
}

type ValidationReport struct {
	Applied   []Applied
	Conflicts []*ValidationConflict
	Unmatched []Unmatched
}

// Match resolves each observation to a binding and returns the report plus
// one Equal constraint of the validated tier per applied observation.
// Observations are processed in order.
func Match(env *symbols.Environment, observations []ObservedBinding) (*ValidationReport, []*analyzer.Constraint) {
	rep := &ValidationReport{}
	var out []*analyzer.Constraint
	for _, o := range observations {
		observed, err := typesystem.Parse(o.Type)
		if err != nil {
			rep.Unmatched = append(rep.Unmatched, Unmatched{Observation: o, Reason: err.Error()})
			continue
		}
		b, reason := locate(env, o)
		if b == nil {
			rep.Unmatched = append(rep.Unmatched, Unmatched{Observation: o, Reason: reason})
			continue
		}
		if root := env.Binding(b.Base); root.IsDeclared() && !typesystem.Equal(root.Info.Declared, observed) {
			rep.Conflicts = append(rep.Conflicts, &ValidationConflict{
				Observation: o,
				Binding:     b.ID,
				Declared:    root.Info.Declared,
				Observed:    observed,
				Location:    root.Location,
			})
			continue
		}

		loc := b.Location
		if o.Line > 0 {
			loc = ast.Location{File: loc.File, Line: o.Line}
		}
		rep.Applied = append(rep.Applied, Applied{Binding: b.ID, Type: observed})
		out = append(out, &analyzer.Constraint{
			Kind:       analyzer.Equal,
			Left:       b.Var(),
			Right:      observed,
			Reason:     analyzer.ReasonObservation,
			Tier:       analyzer.TierValidated,
			Location:   loc,
			Node:       b.Node,
			Unit:       b.Unit(),
			Binding:    b.ID,
			TupleIndex: -1,
		})
	}
	return rep, out
}

// locate finds the binding an observation refers to.
func locate(env *symbols.Environment, o ObservedBinding) (*symbols.Binding, string) {
	scope := env.Module()
	if o.Function != "" {
		sig, ok := env.Signature(o.Function)
		if !ok {
			return nil, fmt.Sprintf("unknown function %q", o.Function)
		}
		fs, ok := env.ScopeOf(sig.Node)
		if !ok {
			return nil, fmt.Sprintf("function %q has no scope", o.Function)
		}
		scope = fs
	}
	base, ok := env.Lookup(scope, o.Name)
	if !ok {
		return nil, fmt.Sprintf("unknown name %q", o.Name)
	}
	if o.Line <= 0 {
		return base, ""
	}
	return versionAt(env, base, o.Line), ""
}

// versionAt picks the live version introduced last at or before line.
func versionAt(env *symbols.Environment, base *symbols.Binding, line int) *symbols.Binding {
	best := env.Binding(base.Base)
	for _, v := range env.Versions(base.ID) {
		if v.Retired || v.Location.Line > line {
			continue
		}
		if v.Location.Line > best.Location.Line || (v.Location.Line == best.Location.Line && v.Version > best.Version) {
			best = v
		}
	}
	return best
}
