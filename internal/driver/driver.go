// Package driver runs the multi-pass inference state machine: annotations
// once, then collect, solve, rebind and validate until a fixed point or the
// pass ceiling.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/funvibe/tyinfer/internal/analyzer"
	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/config"
	"github.com/funvibe/tyinfer/internal/pipeline"
	"github.com/funvibe/tyinfer/internal/stubs"
	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/telemetry"
	"github.com/funvibe/tyinfer/internal/validation"
)

var ErrNilProgram = errors.New("nil program")

type Driver struct {
	cfg       *config.Config
	log       *slog.Logger
	gate      validation.Gate
	sink      telemetry.Sink
	stubs     []*stubs.File
	maxPasses int
}

func New(opts ...Option) *Driver {
	d := &Driver{cfg: config.Default(), log: discardLogger()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// MaxPasses is the effective pass ceiling.
func (d *Driver) MaxPasses() int {
	n := d.cfg.MaxPasses
	if d.maxPasses > 0 && (n <= 0 || d.maxPasses < n) {
		n = d.maxPasses
	}
	if n <= 0 || n > config.PassCeiling {
		n = config.PassCeiling
	}
	return n
}

// Run infers types for program. Type conflicts are reported in the Result;
// the error return is reserved for invalid input such as a nil program, an
// unreadable stub file or a failing validation gate.
func (d *Driver) Run(ctx context.Context, program *ast.Program) (*Result, error) {
	if program == nil {
		return nil, ErrNilProgram
	}
	r, err := d.start(ctx, program)
	if err != nil {
		return nil, err
	}

	r = pipeline.New[*run](annotationsProcessor{}).Run(r)

	passes := pipeline.New[*run](
		inferLocalProcessor{},
		flowProcessor{},
		validateProcessor{},
	).HaltWhen(func(r *run) bool { return r.err != nil })

	for !r.state.Halted() {
		r.pass++
		r = passes.Run(r)
		if r.err != nil {
			return nil, r.err
		}
		r.advance()
	}

	res := r.finalize()
	d.log.Info("inference halted",
		"run_id", res.RunID,
		"status", res.State.String(),
		"outcome", res.Outcome.String(),
		"passes", res.Passes,
	)
	d.record(ctx, res)
	return res, nil
}

// start is the Init state: environment, stubs and observations.
func (d *Driver) start(ctx context.Context, program *ast.Program) (*run, error) {
	env := symbols.NewEnvironment()
	target := d.cfg.Target()

	files := []*stubs.File{stubs.Prelude()}
	for _, path := range d.cfg.StubPaths() {
		f, err := stubs.Load(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	files = append(files, d.stubs...)
	for _, f := range files {
		if skipped := f.Register(env, target); len(skipped) > 0 {
			d.log.Debug("stub entries skipped", "target", target.String(), "entries", skipped)
		}
	}

	r := &run{
		ctx:       ctx,
		d:         d,
		id:        uuid.NewString(),
		program:   program,
		env:       env,
		store:     analyzer.NewStore(),
		maxPasses: d.MaxPasses(),
		state:     Init,
	}
	if d.gate != nil {
		obs, err := d.gate.Observations(ctx)
		if err != nil {
			return nil, fmt.Errorf("validation gate: %w", err)
		}
		r.observations = obs
	}
	return r, nil
}

func (d *Driver) collectorOptions() []analyzer.CollectorOption {
	if !d.cfg.Parallel {
		return nil
	}
	return []analyzer.CollectorOption{analyzer.WithParallel(d.cfg.Workers)}
}

// record sends unknown-type events to the sink. Failures are logged only.
func (d *Driver) record(ctx context.Context, res *Result) {
	events := res.UnknownEvents()
	if len(events) == 0 {
		return
	}
	sink := d.sink
	if sink == nil && d.cfg.Telemetry.DSN != "" {
		s, err := telemetry.OpenSQL(d.cfg.Telemetry.DSN)
		if err != nil {
			d.log.Warn("telemetry unavailable", "run_id", res.RunID, "error", err)
			return
		}
		defer s.Close()
		sink = s
	}
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, events); err != nil {
		d.log.Warn("recording unknown types failed", "run_id", res.RunID, "events", len(events), "error", err)
	}
}

// Infer runs a driver built from opts.
func Infer(ctx context.Context, program *ast.Program, opts ...Option) (*Result, error) {
	return New(opts...).Run(ctx, program)
}
