// Package mixin provides composable per-node behaviors bound to host
// elements during reconciliation.
//
// A mixin application (a Use value) names a Factory, optional comparison
// Keys, and a per-render Data payload. The engine binds each application to
// its host node the first time the node commits, patches the payload on every
// later render, and removes the binding before the node detaches. Binding
// identity is the (node, factory, position) triple: when the factory value
// and keys are unchanged between renders the same Handle is patched in place,
// otherwise the old binding is removed and a fresh one inserted, in that
// order.
//
// Factories are compared with reflect.DeepEqual, so configuration that should
// participate in binding identity belongs on the factory struct or in Keys.
// Function values never compare equal; keep handlers and other callbacks in
// Data, where they are patched in place without disturbing the binding. That
// is what lets an event binding swap handlers with zero platform listener
// churn.
//
// # Lifecycle
//
// A Handle moves through unbound → inserted → (patched)* → removed, and
// removed is terminal. Insert runs after the node is attached; Remove runs
// before the node detaches, so handles can still read geometry from the live
// node. A handle whose node is reclaimed mid-exit never sees Remove for the
// cancelled exit; it sees CancelExit instead.
package mixin

import (
	"context"
	"reflect"

	"github.com/go-loom/loom/pkg/errors"
	"github.com/go-loom/loom/pkg/host"
)

// Use is one application of a mixin to a host element.
type Use struct {
	// Factory creates the binding's handle.
	Factory Factory
	// Keys force rebinding when they change. Compared with
	// reflect.DeepEqual.
	Keys []any
	// Data is the per-render payload, delivered to Insert and patched on
	// every later render.
	Data any
}

// Factory builds handles for one kind of mixin.
type Factory interface {
	// Name identifies the mixin in diagnostics and inspector payloads.
	Name() string
	// Bind creates the handle for one binding. The node is already
	// attached when Insert runs.
	Bind(node host.Node, scope *Scope) Handle
}

// Handle is one live binding.
type Handle interface {
	// Insert runs once, after the node is attached.
	Insert(data any)
	// Patch delivers the previous and next payloads on re-render.
	Patch(prev, next any)
	// Remove runs once, before the node detaches.
	Remove()
}

// ExitHandle is implemented by handles that defer node detach, typically to
// run an exit animation.
type ExitHandle interface {
	Handle
	// BeginExit starts the deferral. The handle calls done exactly once
	// when the node may detach. Returning false declines the deferral.
	BeginExit(done func()) bool
	// CancelExit aborts a deferral in progress because the node was
	// reclaimed. The pending done must not fire afterwards.
	CancelExit()
}

// Compatible reports whether a binding created for prev can be patched in
// place with next. The factory values and the comparison keys must both be
// deeply equal.
func Compatible(prev, next Use) bool {
	if prev.Factory == nil || next.Factory == nil {
		return false
	}
	if reflect.TypeOf(prev.Factory) != reflect.TypeOf(next.Factory) {
		return false
	}
	return reflect.DeepEqual(prev.Factory, next.Factory) &&
		reflect.DeepEqual(prev.Keys, next.Keys)
}

// ScopeConfig wires a scope to the engine that owns the binding.
// Zero-value fields get standalone defaults, which keeps handles testable
// without an engine.
type ScopeConfig struct {
	// Parent is the context the scope's context descends from, usually the
	// owning instance's context. Defaults to context.Background().
	Parent context.Context
	// Post schedules a task on the engine's queue. Defaults to running
	// inline.
	Post func(fn func())
	// PostCommit schedules a hook to run after the current batch commits.
	// Defaults to running inline.
	PostCommit func(fn func())
	// Report receives failure records captured inside the binding.
	// Defaults to the errors package handler.
	Report func(rec errors.Record)
	// Component names the owning component for failure records.
	Component string
}

// Scope ties a binding's resources to its lifetime. The engine releases the
// scope after Remove, cancelling the context and running release hooks in
// reverse registration order.
type Scope struct {
	ctx        context.Context
	cancel     context.CancelFunc
	post       func(func())
	postCommit func(func())
	report     func(errors.Record)
	component  string
	releasers  []func()
	released   bool
}

// NewScope creates a scope from cfg.
func NewScope(cfg ScopeConfig) *Scope {
	parent := cfg.Parent
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{
		ctx:        ctx,
		cancel:     cancel,
		post:       cfg.Post,
		postCommit: cfg.PostCommit,
		report:     cfg.Report,
		component:  cfg.Component,
	}
}

// Context returns the scope's context. It is cancelled when the binding is
// removed or the owning instance is disposed.
func (s *Scope) Context() context.Context { return s.ctx }

// Component returns the owning component's name, when known.
func (s *Scope) Component() string { return s.component }

// Post schedules fn on the engine's task queue.
func (s *Scope) Post(fn func()) {
	if s.post != nil {
		s.post(fn)
		return
	}
	fn()
}

// PostCommit schedules fn to run after the current batch commits.
func (s *Scope) PostCommit(fn func()) {
	if s.postCommit != nil {
		s.postCommit(fn)
		return
	}
	fn()
}

// Report forwards a failure record to the owning root.
func (s *Scope) Report(rec errors.Record) {
	if rec.Component == "" {
		rec.Component = s.component
	}
	if s.report != nil {
		s.report(rec)
		return
	}
	errors.Report(rec)
}

// Protect runs fn, converting a panic into a failure record for the given
// phase.
func (s *Scope) Protect(phase errors.Phase, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.Report(errors.FromPanic(phase, s.component, r))
		}
	}()
	fn()
}

// OnRelease registers fn to run when the scope is released.
func (s *Scope) OnRelease(fn func()) {
	if s.released {
		fn()
		return
	}
	s.releasers = append(s.releasers, fn)
}

// Released reports whether the scope has been released.
func (s *Scope) Released() bool { return s.released }

// Release cancels the scope's context and runs release hooks in reverse
// registration order. It is idempotent.
func (s *Scope) Release() {
	if s.released {
		return
	}
	s.released = true
	s.cancel()
	for i := len(s.releasers) - 1; i >= 0; i-- {
		s.releasers[i]()
	}
	s.releasers = nil
}
