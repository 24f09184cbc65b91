package core

import (
	"context"

	"github.com/go-loom/loom/pkg/errors"
)

// Render produces the component's output for the current state. It runs on
// every update and must not mutate anything outside the component's own
// closures.
type Render func() Descriptor

// Component is an immutable component definition. Descriptors reference
// components by pointer, so the same *Component mounted at two positions
// yields two independent instances, and replacing the pointer at one position
// disposes the old instance.
type Component struct {
	// Name identifies the component in failure records and the inspector.
	Name string
	// Setup runs once per instance, before the first render. It owns the
	// instance's private state as closures and returns the render
	// function.
	Setup func(sc *Scope) Render
}

// Scope is a component instance's view of the engine. It is valid from setup
// until the instance is disposed; calls after disposal are no-ops.
type Scope struct {
	inst *instance
}

// Props returns the input the instance was most recently rendered with.
func (sc *Scope) Props() Props {
	return sc.inst.props
}

// Children returns the child descriptors passed to the component by its
// parent, for splicing into the component's own output.
func (sc *Scope) Children() []Descriptor {
	return sc.inst.children
}

// Update schedules a re-render of this instance. Requests raised within one
// batch coalesce into a single render. Safe to call from any goroutine and
// after disposal.
func (sc *Scope) Update() {
	sc.inst.markDirty()
}

// OnCleanup registers fn to run when the instance is disposed. Cleanups run
// in reverse registration order, after the instance's subtree is gone.
// Returns an unregister function. If the instance is already disposed, fn
// runs immediately.
func (sc *Scope) OnCleanup(fn func()) func() {
	return sc.inst.onCleanup(fn)
}

// Context returns the instance's context. It is cancelled when the instance
// is disposed.
func (sc *Scope) Context() context.Context {
	return sc.inst.ctx
}

// Post schedules fn on the engine's task queue. The task runs during the
// next flush, with failures captured at this instance's boundary.
func (sc *Scope) Post(fn func()) {
	inst := sc.inst
	inst.tree.sched.Post(func() {
		if inst.disposed {
			return
		}
		inst.protect(errors.PhaseTask, fn)
	})
}

// Share publishes a value to descendants. Descendants resolve it with Lookup
// using this instance's component reference; the nearest sharing ancestor
// wins. Sharing again replaces the value; descendants observe the new value
// on their next render.
func (sc *Scope) Share(value any) {
	sc.inst.shared = value
	sc.inst.hasShared = true
}

// Lookup resolves the value shared by the nearest ancestor instance of the
// given component. ok is false when no ancestor of that component shares a
// value.
func (sc *Scope) Lookup(provider *Component) (value any, ok bool) {
	for cur := sc.inst.parent; cur != nil; cur = cur.parent {
		if cur.component == provider && cur.hasShared {
			return cur.shared, true
		}
	}
	return nil, false
}

// State is a managed value that schedules a re-render of its owning instance
// whenever it is set. It removes the Update bookkeeping from the common case
// of plain component-local state:
//
//	count := core.NewState(sc, 0)
//	increment := func(host.Event) { count.Set(count.Get() + 1) }
//
// State is not safe for concurrent use; mutate it from handlers and tasks,
// which the engine runs on the flushing goroutine.
type State[T any] struct {
	sc    *Scope
	value T
}

// NewState creates a managed value owned by the scope's instance.
func NewState[T any](sc *Scope, initial T) *State[T] {
	return &State[T]{sc: sc, value: initial}
}

// Get returns the current value.
func (s *State[T]) Get() T {
	return s.value
}

// Set stores the value and schedules a re-render.
func (s *State[T]) Set(value T) {
	s.value = value
	s.sc.Update()
}
