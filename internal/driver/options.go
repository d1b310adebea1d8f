package driver

import (
	"io"
	"log/slog"

	"github.com/funvibe/tyinfer/internal/config"
	"github.com/funvibe/tyinfer/internal/stubs"
	"github.com/funvibe/tyinfer/internal/telemetry"
	"github.com/funvibe/tyinfer/internal/validation"
)

type Option func(*Driver)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(d *Driver) {
		if cfg != nil {
			d.cfg = cfg
		}
	}
}

// WithGate attaches an external validation gate.
func WithGate(g validation.Gate) Option {
	return func(d *Driver) { d.gate = g }
}

// WithSink sends unknown-type events to s. The caller keeps ownership of s.
func WithSink(s telemetry.Sink) Option {
	return func(d *Driver) { d.sink = s }
}

// WithStubs registers extra stub files after the prelude and any stubs named
// in the configuration.
func WithStubs(files ...*stubs.File) Option {
	return func(d *Driver) { d.stubs = append(d.stubs, files...) }
}

// WithMaxPasses lowers the pass ceiling for one driver.
func WithMaxPasses(n int) Option {
	return func(d *Driver) { d.maxPasses = n }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
