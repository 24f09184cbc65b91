// Package errors provides structured failure records for the loom engine.
//
// Failures are captured at the instance boundary where they happen and
// forwarded to the owning root's error channel as Record values. When a root
// has no subscriber, records fall through to the package handler so nothing
// is silently swallowed.
package errors

import (
	"fmt"
	"time"
)

// Phase identifies where in the engine lifecycle a failure happened.
type Phase int

const (
	// PhaseSetup covers component construction.
	PhaseSetup Phase = iota
	// PhaseRender covers render functions and reconciliation.
	PhaseRender
	// PhaseTask covers deferred tasks and post-commit hooks.
	PhaseTask
	// PhaseEvent covers platform event handlers.
	PhaseEvent
	// PhaseLoop marks a scheduler runaway halted by the loop guard.
	PhaseLoop
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseRender:
		return "render"
	case PhaseTask:
		return "task"
	case PhaseEvent:
		return "event"
	case PhaseLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// Record is one captured failure. Records are immutable snapshots and are
// passed by value.
type Record struct {
	// Phase is the lifecycle phase the failure belongs to.
	Phase Phase
	// Err is the underlying failure. Recovered panics are wrapped in
	// PanicError.
	Err error
	// Component names the component whose boundary captured the failure,
	// when one is known.
	Component string
	// Root identifies the owning root, when one is known.
	Root string
	// StackTrace contains the call stack at the failure site, when
	// available.
	StackTrace string
	// Timestamp is when the failure was captured.
	Timestamp time.Time
}

func (r Record) Error() string {
	if r.Component != "" {
		return fmt.Sprintf("%s failure in %s: %v", r.Phase, r.Component, r.Err)
	}
	return fmt.Sprintf("%s failure: %v", r.Phase, r.Err)
}

func (r Record) Unwrap() error {
	return r.Err
}

// PanicError wraps a recovered panic value.
type PanicError struct {
	// Value is the value passed to panic().
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// LoopError reports a component that kept re-queuing itself during its own
// render until the scheduler's loop guard halted the batch.
type LoopError struct {
	// Component is the runaway component's name.
	Component string
	// Cycles is how many re-renders ran before the guard tripped.
	Cycles int
	// Limit is the configured cycle limit.
	Limit int
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("infinite loop detected: %s re-rendered %d times in one flush (limit %d)",
		e.Component, e.Cycles, e.Limit)
}

// FromPanic builds a Record from a recovered panic value, capturing the
// current call stack.
func FromPanic(phase Phase, component string, value any) Record {
	return Record{
		Phase:      phase,
		Err:        &PanicError{Value: value},
		Component:  component,
		StackTrace: CaptureStack(),
		Timestamp:  time.Now(),
	}
}

// Handler receives failure records that no root subscriber consumed.
type Handler interface {
	Handle(rec Record)
}
