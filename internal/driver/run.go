package driver

import (
	"context"
	"fmt"
	"strings"

	"github.com/funvibe/tyinfer/internal/analyzer"
	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/flow"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
	"github.com/funvibe/tyinfer/internal/validation"
)

// run is the context threaded through the pipeline stages of one inference.
type run struct {
	ctx context.Context
	d   *Driver
	id  string

	program *ast.Program
	env     *symbols.Environment
	decls   *analyzer.Declarations

	state     State
	pass      int
	maxPasses int
	prev      passStats

	collector *analyzer.Collector
	rebinder  *flow.Rebinder
	store     *analyzer.Store
	collected *analyzer.CollectResult
	sol       *analyzer.TypeSolution
	flow      *flow.Report

	observations []validation.ObservedBinding
	validation   *validation.ValidationReport
	validated    []*analyzer.Constraint

	err error
}

// passStats is what the convergence predicate compares between passes.
type passStats struct {
	constraints   int
	substitutions int
	validation    string
}

type annotationsProcessor struct{}

// Process is Pass 1. It runs once and never solves.
func (annotationsProcessor) Process(r *run) *run {
	r.state = CollectAnnotations
	r.decls = analyzer.CollectAnnotations(r.program, r.env)
	r.collector = analyzer.NewCollector(r.env, r.d.collectorOptions()...)
	r.rebinder = flow.New(r.env)
	r.matchObservations()
	r.d.log.Debug("annotations collected",
		"run_id", r.id,
		"bindings", r.env.Len(),
		"units", len(r.decls.Units),
		"conflicts", len(r.decls.Conflicts),
	)
	return r
}

type inferLocalProcessor struct{}

// Process collects a fresh constraint store, solves it and writes inferred
// types back to the environment.
func (inferLocalProcessor) Process(r *run) *run {
	r.state = InferLocal
	res, err := r.collector.Collect(r.ctx, r.decls)
	if err != nil {
		r.err = fmt.Errorf("pass %d: %w", r.pass, err)
		return r
	}
	r.collected = res
	r.store.Reset()
	r.store.AddAll(res.Constraints)
	r.store.AddAll(r.validated)
	r.sol = analyzer.Solve(r.store, r.env, r.decls.Graph)
	r.update()
	return r
}

type flowProcessor struct{}

func (flowProcessor) Process(r *run) *run {
	r.state = FlowSensitize
	r.flow = r.rebinder.Run(r.decls, r.collected.TypeMap, r.sol)
	return r
}

type validateProcessor struct{}

// Process re-matches observations against the versions now live; the
// resulting constraints feed the next pass.
func (validateProcessor) Process(r *run) *run {
	r.state = ExternalValidate
	r.matchObservations()
	return r
}

func (r *run) matchObservations() {
	if len(r.observations) == 0 {
		return
	}
	r.validation, r.validated = validation.Match(r.env, r.observations)
}

// update records the pass's solution in every live binding. Declared
// bindings are never touched; conflicting ones become Unknown.
func (r *run) update() {
	r.env.ResetWarnings()
	conflicts := r.conflictsByBinding()
	applied := r.applied()
	for _, b := range r.env.LiveBindings() {
		if cf, ok := conflicts[b.ID]; ok {
			r.env.MarkUnknown(b.ID, cf.Error())
			continue
		}
		t := r.sol.Resolve(b.Var())
		switch {
		case !typesystem.IsConcrete(t):
			r.env.SetInferred(b.ID, nil, symbols.Unknown)
		case applied[b.ID]:
			r.env.SetInferred(b.ID, t, symbols.ExternallyValidated)
		default:
			r.env.SetInferred(b.ID, t, symbols.Inferred)
		}
	}
}

// advance evaluates the convergence predicate after a full pass.
func (r *run) advance() {
	st := r.stats()
	rebinds := len(r.flow.Splits) + len(r.flow.Joins)
	r.d.log.Debug("pass complete",
		"run_id", r.id,
		"pass", r.pass,
		"state", r.state.String(),
		"constraints", st.constraints,
		"substitutions", st.substitutions,
		"conflicts", len(r.conflicts()),
		"rebinds", rebinds,
	)

	converged := r.pass > 1 && st == r.prev && !r.flow.Changed
	r.prev = st
	switch {
	case converged && len(r.conflicts()) > 0:
		r.state = Unsolvable
	case converged:
		r.state = Converged
	case r.pass >= r.maxPasses:
		r.state = Exhausted
	}
}

func (r *run) stats() passStats {
	st := passStats{constraints: r.store.Len(), substitutions: r.sol.SubstitutionCount}
	if r.validation != nil {
		var sb strings.Builder
		for _, a := range r.validation.Applied {
			fmt.Fprintf(&sb, "%d=%s;", a.Binding, a.Type)
		}
		fmt.Fprintf(&sb, "c%d;u%d", len(r.validation.Conflicts), len(r.validation.Unmatched))
		st.validation = sb.String()
	}
	return st
}

// conflicts are the unifier and declaration conflicts of the current pass.
func (r *run) conflicts() []*analyzer.Conflict {
	out := make([]*analyzer.Conflict, 0, len(r.decls.Conflicts))
	out = append(out, r.decls.Conflicts...)
	if r.sol != nil {
		out = append(out, r.sol.Conflicts...)
	}
	return out
}

func (r *run) conflictsByBinding() map[symbols.BindingID]*analyzer.Conflict {
	out := make(map[symbols.BindingID]*analyzer.Conflict)
	for _, cf := range r.conflicts() {
		for _, id := range cf.Bindings {
			if _, ok := out[id]; !ok {
				out[id] = cf
			}
		}
	}
	// a parameter in conflict leaves its function's signature unknown too
	for _, sig := range r.env.Signatures() {
		if _, ok := out[sig.Binding]; ok {
			continue
		}
		fn := r.env.Binding(sig.Binding)
		if fn == nil || fn.IsDeclared() {
			continue
		}
		for _, p := range sig.Params {
			if cf, ok := out[p]; ok {
				out[sig.Binding] = cf
				break
			}
		}
	}
	return out
}

func (r *run) applied() map[symbols.BindingID]bool {
	out := make(map[symbols.BindingID]bool)
	if r.validation == nil {
		return out
	}
	for _, a := range r.validation.Applied {
		out[a.Binding] = true
	}
	return out
}
