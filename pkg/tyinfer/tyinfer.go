// Package tyinfer is the public entry point of the inference core for the
// code generator and other host tooling.
package tyinfer

import (
	"context"
	"io"
	"os"

	"github.com/funvibe/tyinfer/internal/ast"
	"github.com/funvibe/tyinfer/internal/config"
	"github.com/funvibe/tyinfer/internal/diagnostics"
	"github.com/funvibe/tyinfer/internal/driver"
	"github.com/funvibe/tyinfer/internal/validation"
)

type (
	Program         = ast.Program
	Result          = driver.Result
	Option          = driver.Option
	Config          = config.Config
	ObservedBinding = validation.ObservedBinding
	Outcome         = driver.Outcome
	State           = driver.State
)

const (
	Solved  = driver.OutcomeSolved
	Partial = driver.OutcomePartial
	Failed  = driver.OutcomeFailed
)

var (
	WithLogger    = driver.WithLogger
	WithConfig    = driver.WithConfig
	WithGate      = driver.WithGate
	WithSink      = driver.WithSink
	WithStubs     = driver.WithStubs
	WithMaxPasses = driver.WithMaxPasses
)

// Infer runs the multi-pass inference over program.
func Infer(ctx context.Context, program *Program, opts ...Option) (*Result, error) {
	return driver.Infer(ctx, program, opts...)
}

// WithObservations validates inference against a fixed observation set.
func WithObservations(obs ...ObservedBinding) Option {
	return driver.WithGate(validation.StaticGate(obs))
}

// WithTrace validates inference against a golden-trace file.
func WithTrace(path string) Option {
	return driver.WithGate(validation.FileGate{Path: path})
}

// LoadConfig finds tyinfer.yaml starting at dir. Without one the defaults
// apply, still subject to TYINFER_* environment overrides.
func LoadConfig(dir string) (*Config, error) {
	path, err := config.FindConfig(dir)
	if err != nil {
		return nil, err
	}
	if path != "" {
		return config.LoadConfig(path)
	}
	cfg := config.Default()
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Report writes every diagnostic of res to w.
func Report(w io.Writer, res *Result) error {
	return diagnostics.Render(w, res.Diagnostics())
}
