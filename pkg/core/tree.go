package core

import (
	"time"

	"github.com/go-loom/loom/pkg/errors"
	"github.com/go-loom/loom/pkg/host"
	"github.com/go-loom/loom/pkg/mixin"
)

// Tree owns one committed tree inside a host container: the reconciler, the
// scheduler that batches its updates, and the instances it mounted. All host
// mutation happens through a Tree.
type Tree struct {
	doc       host.Document
	container host.Node
	sched     *Scheduler
	holder    *treeNode
	reporter  func(errors.Record)
	trace     PatchTrace
	disposed  bool
}

// TreeOption configures a Tree.
type TreeOption func(*treeConfig)

type treeConfig struct {
	maxCycles int
	reporter  func(errors.Record)
	trace     PatchTrace
}

// WithMaxRenderCycles caps how many times one instance may re-render within a
// single flush before the loop guard aborts the batch. Values below 1 keep
// DefaultMaxRenderCycles.
func WithMaxRenderCycles(n int) TreeOption {
	return func(cfg *treeConfig) { cfg.maxCycles = n }
}

// WithReporter routes failure records to fn instead of the errors package
// handler.
func WithReporter(fn func(errors.Record)) TreeOption {
	return func(cfg *treeConfig) { cfg.reporter = fn }
}

// WithPatchTrace records every host mutation the reconciler performs.
func WithPatchTrace(trace PatchTrace) TreeOption {
	return func(cfg *treeConfig) { cfg.trace = trace }
}

// NewTree creates a tree bound to container. The container's existing
// children are left alone; the tree only manages nodes it created.
func NewTree(doc host.Document, container host.Node, opts ...TreeOption) *Tree {
	var cfg treeConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	t := &Tree{
		doc:       doc,
		container: container,
		reporter:  cfg.reporter,
		trace:     cfg.trace,
		holder:    &treeNode{desc: Frag()},
	}
	t.holder.parentHost = container
	t.sched = newScheduler(cfg.maxCycles, t.report)
	return t
}

// Render commits desc as the tree's new content. The commit is enqueued
// behind any pending work and flushed synchronously before Render returns.
// A zero descriptor removes the previous content. Render after Dispose is a
// no-op.
func (t *Tree) Render(desc Descriptor) {
	if t.disposed {
		return
	}
	t.sched.Post(func() { t.commit(desc) })
	t.sched.Flush()
}

// Flush synchronously drains pending updates, tasks, and post-commit hooks.
// Idempotent when nothing is pending.
func (t *Tree) Flush() {
	if t.disposed {
		return
	}
	t.sched.Flush()
}

// Dispose tears the committed tree down depth-first: every mixin's remove
// runs before its node detaches, every instance's cleanups run after its
// children are gone, and pending scheduler work is dropped. Idempotent, and a
// no-op on the host when nothing was rendered.
func (t *Tree) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	t.sched.reset()
	t.unmountNode(t.holder, true)
	t.holder.children = nil
}

// Disposed reports whether Dispose has run.
func (t *Tree) Disposed() bool {
	return t.disposed
}

// Scheduler exposes the tree's scheduler for task posting and statistics.
func (t *Tree) Scheduler() *Scheduler {
	return t.sched
}

// Stats returns scheduler counters.
func (t *Tree) Stats() Stats {
	return t.sched.Stats()
}

func (t *Tree) report(rec errors.Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if t.reporter != nil {
		t.reporter(rec)
		return
	}
	errors.Report(rec)
}

// protect runs fn, converting a panic into a failure record attributed to
// component. Failures never unwind past the boundary that owns them.
func (t *Tree) protect(component string, phase errors.Phase, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			t.report(errors.FromPanic(phase, component, r))
		}
	}()
	fn()
}

// treeNode is one committed position. Exactly one host node hangs off an
// element or text position; fragment and component positions splice their
// content into parentHost.
type treeNode struct {
	desc       Descriptor
	host       host.Node
	inst       *instance
	child      *treeNode
	children   []*treeNode
	exiting    []*exitingChild
	bindings   []*binding
	control    *binding
	parent     *treeNode
	parentHost host.Node
	owner      *instance
}

// exitingChild is a removed child whose detach is deferred while its exit
// handles animate out. It is reclaimable by key until every handle reports
// done.
type exitingChild struct {
	key     any
	node    *treeNode
	handles []mixin.ExitHandle
	pending int
}

// unmountNode permanently removes a committed subtree. Children go first,
// then the node's own bindings, then its instance, and the host node detaches
// last so handles can still read it during remove. detach is false below an
// element that is itself being detached, since removing the top host removes
// everything under it.
func (t *Tree) unmountNode(n *treeNode, detach bool) {
	switch n.desc.Kind {
	case KindText:
		if detach {
			t.detachHost(n)
		}
	case KindElement:
		for _, c := range n.children {
			t.unmountNode(c, false)
		}
		for _, ex := range n.exiting {
			t.unmountNode(ex.node, false)
		}
		n.exiting = nil
		if n.control != nil {
			n.control.remove()
			n.control = nil
		}
		for i := len(n.bindings) - 1; i >= 0; i-- {
			n.bindings[i].remove()
		}
		n.bindings = nil
		if detach {
			t.detachHost(n)
		}
	case KindFragment:
		for _, c := range n.children {
			t.unmountNode(c, detach)
		}
		for _, ex := range n.exiting {
			t.unmountNode(ex.node, detach)
		}
		n.exiting = nil
	case KindComponent:
		if n.child != nil {
			t.unmountNode(n.child, detach)
			n.child = nil
		}
		for _, ex := range n.exiting {
			t.unmountNode(ex.node, detach)
		}
		n.exiting = nil
		if n.inst != nil {
			n.inst.dispose()
		}
	}
}

func (t *Tree) detachHost(n *treeNode) {
	if n.host == nil || n.parentHost == nil {
		return
	}
	n.parentHost.RemoveChild(n.host)
	t.recordOp(OpRemove, descLabel(n.desc), "", n.desc.Key)
}

// removeChild removes child from parent's committed children. When the
// subtree carries exit handles that accept deferral, the child stays in the
// host tree on parent's exiting list until every handle reports done.
func (t *Tree) removeChild(parent *treeNode, child *treeNode) {
	var handles []mixin.ExitHandle
	collectExitHandles(child, &handles)
	if len(handles) == 0 || parent == nil {
		t.unmountNode(child, true)
		return
	}

	ex := &exitingChild{key: usableKey(child.desc.Key), node: child, handles: handles}
	accepted := 0
	for _, eh := range handles {
		ex.pending++
		if eh.BeginExit(t.exitDone(parent, ex)) {
			accepted++
		} else {
			ex.pending--
		}
	}
	if accepted == 0 || ex.pending <= 0 {
		// Nothing deferred, or every exit completed synchronously.
		t.unmountNode(child, true)
		return
	}
	parent.exiting = append(parent.exiting, ex)
	t.recordOp(OpDeferExit, descLabel(child.desc), "", child.desc.Key)
}

// exitDone builds the done callback for one exit handle. Each callback fires
// at most once; when the last one fires the node detaches for real, unless
// the node was reclaimed or an ancestor unmount already took it away.
func (t *Tree) exitDone(parent *treeNode, ex *exitingChild) func() {
	fired := false
	return func() {
		if fired {
			return
		}
		fired = true
		ex.pending--
		if ex.pending > 0 {
			return
		}
		for i, e := range parent.exiting {
			if e == ex {
				parent.exiting = append(parent.exiting[:i], parent.exiting[i+1:]...)
				t.unmountNode(ex.node, true)
				return
			}
		}
	}
}

// reclaimExiting returns an exiting child of parent that desc re-describes,
// cancelling its exit, or nil. Only keyed children are reclaimable.
func (t *Tree) reclaimExiting(parent *treeNode, desc Descriptor) *treeNode {
	key := usableKey(desc.Key)
	if key == nil {
		return nil
	}
	for i, ex := range parent.exiting {
		if ex.key != key || !canPatch(ex.node.desc, desc) {
			continue
		}
		parent.exiting = append(parent.exiting[:i], parent.exiting[i+1:]...)
		for _, eh := range ex.handles {
			eh.CancelExit()
		}
		t.recordOp(OpReclaim, descLabel(desc), "", key)
		return ex.node
	}
	return nil
}

// collectExitHandles gathers exit-capable bindings from the subtree's
// top-level element nodes, the hosts that would detach from the shared
// parent.
func collectExitHandles(n *treeNode, out *[]mixin.ExitHandle) {
	switch n.desc.Kind {
	case KindElement:
		for _, b := range n.bindings {
			if eh, ok := b.handle.(mixin.ExitHandle); ok && b.state == bindingInserted {
				*out = append(*out, eh)
			}
		}
	case KindFragment:
		for _, c := range n.children {
			collectExitHandles(c, out)
		}
	case KindComponent:
		if n.child != nil {
			collectExitHandles(n.child, out)
		}
	}
}

// firstHost returns the first host node of the subtree's committed content,
// or nil when it renders nothing. Exiting nodes are not content; they only
// linger.
func firstHost(n *treeNode) host.Node {
	switch n.desc.Kind {
	case KindElement, KindText:
		return n.host
	case KindFragment:
		for _, c := range n.children {
			if h := firstHost(c); h != nil {
				return h
			}
		}
	case KindComponent:
		if n.child != nil {
			return firstHost(n.child)
		}
	}
	return nil
}

// hostRange appends every host node the subtree occupies in its parentHost,
// in document order, including nodes lingering on exit. Moving a fragment or
// component moves this whole range.
func hostRange(n *treeNode, out []host.Node) []host.Node {
	switch n.desc.Kind {
	case KindElement, KindText:
		if n.host != nil {
			out = append(out, n.host)
		}
	case KindFragment:
		for _, c := range n.children {
			out = hostRange(c, out)
		}
		for _, ex := range n.exiting {
			out = hostRange(ex.node, out)
		}
	case KindComponent:
		if n.child != nil {
			out = hostRange(n.child, out)
		}
		for _, ex := range n.exiting {
			out = hostRange(ex.node, out)
		}
	}
	return out
}

// followingAnchor returns the host node that immediately follows n's content
// within its host parent, or nil when n's content runs to the end. Used to
// re-anchor an instance's output when it rebuilds outside a parent diff.
func followingAnchor(n *treeNode) host.Node {
	cur := n
	for p := cur.parent; p != nil; p = cur.parent {
		if p.child == cur {
			cur = p
			continue
		}
		idx := -1
		for i, c := range p.children {
			if c == cur {
				idx = i
				break
			}
		}
		if idx >= 0 {
			for _, sib := range p.children[idx+1:] {
				if h := firstHost(sib); h != nil {
					return h
				}
			}
		}
		if p.host != nil {
			// Element boundary: content ends inside p's own host.
			return nil
		}
		cur = p
	}
	return nil
}

type bindingState uint8

const (
	bindingUnbound bindingState = iota
	bindingInserted
	bindingRemoved
)

// binding is one live mixin application on a host node. Its handle moves
// through unbound, inserted, removed; removed is terminal and remove runs at
// most once regardless of how the node leaves the tree.
type binding struct {
	use    mixin.Use
	handle mixin.Handle
	scope  *mixin.Scope
	tree   *Tree
	comp   string
	state  bindingState
}

func (t *Tree) newBinding(node host.Node, use mixin.Use, owner *instance) *binding {
	if use.Factory == nil {
		// Keeps positional alignment with the descriptor's mixin list
		// without ever dispatching into a nil factory.
		return &binding{use: use, state: bindingRemoved}
	}
	cfg := mixin.ScopeConfig{
		Post:       t.sched.Post,
		PostCommit: t.sched.PostCommit,
		Report:     t.report,
	}
	if owner != nil {
		cfg.Parent = owner.ctx
		cfg.Component = owner.component.Name
	}
	scope := mixin.NewScope(cfg)
	return &binding{
		use:    use,
		handle: use.Factory.Bind(node, scope),
		scope:  scope,
		tree:   t,
		comp:   cfg.Component,
	}
}

func (t *Tree) insertBinding(node host.Node, use mixin.Use, owner *instance) *binding {
	b := t.newBinding(node, use, owner)
	b.insert()
	return b
}

func (b *binding) insert() {
	if b.state != bindingUnbound {
		return
	}
	b.state = bindingInserted
	b.tree.protect(b.comp, errors.PhaseRender, func() { b.handle.Insert(b.use.Data) })
}

func (b *binding) patch(next mixin.Use) {
	if b.state != bindingInserted {
		return
	}
	prev := b.use.Data
	b.use = next
	b.tree.protect(b.comp, errors.PhaseRender, func() { b.handle.Patch(prev, next.Data) })
}

func (b *binding) remove() {
	if b.state != bindingInserted {
		return
	}
	b.state = bindingRemoved
	b.tree.protect(b.comp, errors.PhaseRender, func() { b.handle.Remove() })
	b.scope.Release()
}
