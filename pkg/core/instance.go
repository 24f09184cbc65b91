package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/go-loom/loom/pkg/errors"
)

// instance is one running mount of a component: its private setup state, its
// render function, its committed output, and a cancellation context that
// aborts when the instance is disposed.
type instance struct {
	id        string
	component *Component
	tree      *Tree
	parent    *instance
	depth     int
	node      *treeNode
	scope     *Scope
	render    Render

	props    Props
	children []Descriptor

	shared    any
	hasShared bool

	ctx    context.Context
	cancel context.CancelFunc

	dirty    bool
	mounted  bool
	disposed bool

	mu       sync.Mutex
	cleanups []func()
}

func newInstance(c *Component, t *Tree, parent *instance) *instance {
	inst := &instance{
		id:        uuid.NewString(),
		component: c,
		tree:      t,
		parent:    parent,
	}
	var parentCtx context.Context = context.Background()
	if parent != nil {
		inst.depth = parent.depth + 1
		parentCtx = parent.ctx
	}
	inst.ctx, inst.cancel = context.WithCancel(parentCtx)
	return inst
}

// markDirty schedules a re-render. Requests within one batch coalesce; calls
// on a disposed instance are dropped by the flush loop.
func (inst *instance) markDirty() {
	if inst.disposed {
		return
	}
	inst.tree.sched.schedule(inst)
}

// protect runs fn with panic recovery at this instance's boundary, reporting
// the failure and returning false when fn panicked.
func (inst *instance) protect(phase errors.Phase, fn func()) (ok bool) {
	ok = true
	defer func() {
		if r := recover(); r != nil {
			ok = false
			inst.tree.report(errors.FromPanic(phase, inst.component.Name, r))
		}
	}()
	fn()
	return ok
}

// runSetup runs the component's setup phase once. On failure the instance
// never mounts and renders nothing; ancestors continue.
func (inst *instance) runSetup() bool {
	inst.scope = &Scope{inst: inst}
	if inst.component.Setup == nil {
		inst.tree.report(errors.Record{
			Phase:     errors.PhaseSetup,
			Err:       fmt.Errorf("component %s has no setup", inst.component.Name),
			Component: inst.component.Name,
		})
		return false
	}
	ok := inst.protect(errors.PhaseSetup, func() {
		inst.render = inst.component.Setup(inst.scope)
	})
	if !ok || inst.render == nil {
		inst.render = nil
		return false
	}
	return true
}

// runRender runs the render phase. On failure the caller keeps the previous
// committed subtree.
func (inst *instance) runRender() (Descriptor, bool) {
	if inst.render == nil {
		return Descriptor{}, false
	}
	var out Descriptor
	ok := inst.protect(errors.PhaseRender, func() {
		out = inst.render()
	})
	return out, ok
}

// rebuild re-renders a self-invalidated instance and patches its committed
// output in place. The dirty flag clears before rendering so an update raised
// during the render schedules a fresh pass instead of being lost.
func (inst *instance) rebuild() {
	if inst.disposed || !inst.mounted || !inst.dirty {
		return
	}
	inst.dirty = false
	out, ok := inst.runRender()
	if !ok {
		return
	}
	inst.tree.patchInstanceOutput(inst, out)
}

// onCleanup registers fn to run on dispose, LIFO. Returns an unregister
// function. Registration after dispose runs fn immediately.
func (inst *instance) onCleanup(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	inst.mu.Lock()
	if inst.disposed {
		inst.mu.Unlock()
		fn()
		return func() {}
	}
	index := len(inst.cleanups)
	inst.cleanups = append(inst.cleanups, fn)
	inst.mu.Unlock()

	return func() {
		inst.mu.Lock()
		defer inst.mu.Unlock()
		if index < len(inst.cleanups) {
			inst.cleanups[index] = nil
		}
	}
}

// dispose ends the instance: the context cancels, then cleanups run in
// reverse registration order. The caller has already unmounted the subtree,
// so children are gone by the time cleanups observe the world.
func (inst *instance) dispose() {
	inst.mu.Lock()
	if inst.disposed {
		inst.mu.Unlock()
		return
	}
	inst.disposed = true
	inst.mounted = false
	cleanups := inst.cleanups
	inst.cleanups = nil
	inst.mu.Unlock()

	inst.cancel()
	for i := len(cleanups) - 1; i >= 0; i-- {
		if cleanups[i] != nil {
			inst.tree.protect(inst.component.Name, errors.PhaseTask, cleanups[i])
		}
	}
}
