// Package telemetry records bindings that inference could not type.
package telemetry

import (
	"context"
	"sync"

	"github.com/funvibe/tyinfer/internal/ast"
)

// UnknownTypeEvent describes one binding left Unknown at the end of a run.
// ExpectedType is the best partial type the solver had, empty when none.
type UnknownTypeEvent struct {
	RunID        string
	Name         string
	Function     string
	Location     ast.Location
	Reason       string
	ExpectedType string
}

// Sink receives unknown-type events. Implementations must be safe for use
// by one run at a time; the driver calls Record at most once per run.
type Sink interface {
	Record(ctx context.Context, events []UnknownTypeEvent) error
	Close() error
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	events []UnknownTypeEvent
	closed bool
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(ctx context.Context, events []UnknownTypeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far.
func (s *MemorySink) Events() []UnknownTypeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UnknownTypeEvent, len(s.events))
	copy(out, s.events)
	return out
}
