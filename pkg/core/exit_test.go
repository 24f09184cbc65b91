package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-loom/loom/pkg/host"
	"github.com/go-loom/loom/pkg/host/memhost"
	"github.com/go-loom/loom/pkg/mixin"
)

// exitProbe is a hand-driven exit mixin: the test decides when the exit
// finishes by calling done itself.
type exitProbe struct {
	accept  bool
	begins  int
	cancels int
	removes int
	done    func()
}

type exitFactory struct {
	Probe *exitProbe
}

func (f exitFactory) Name() string { return "exit-probe" }

func (f exitFactory) Bind(node host.Node, scope *mixin.Scope) mixin.Handle {
	return &exitHandle{p: f.Probe}
}

type exitHandle struct {
	p *exitProbe
}

func (h *exitHandle) Insert(any) {}

func (h *exitHandle) Patch(_, _ any) {}

func (h *exitHandle) Remove() { h.p.removes++ }

func (h *exitHandle) BeginExit(done func()) bool {
	h.p.begins++
	if !h.p.accept {
		return false
	}
	h.p.done = done
	return true
}

func (h *exitHandle) CancelExit() {
	h.p.cancels++
	h.p.done = nil
}

func exitUse(p *exitProbe) mixin.Use {
	return mixin.Use{Factory: exitFactory{Probe: p}}
}

func tagsOf(body *memhost.Node) []string {
	kids := body.Children()
	tags := make([]string, len(kids))
	for i, kid := range kids {
		tags[i] = kid.Tag()
	}
	return tags
}

func TestRemovedNodeWithExitHandleDefersDetach(t *testing.T) {
	rec := &opRecorder{}
	_, body, tree := testTree(t, WithPatchTrace(rec.trace))

	probe := &exitProbe{accept: true}
	withPanel := Frag(
		Elem("panel", nil).WithKey("p").Use(exitUse(probe)),
		Elem("footer", nil),
	)
	withoutPanel := Frag(Elem("footer", nil))

	tree.Render(withPanel)
	rec.reset()
	tree.Render(withoutPanel)

	assert.Equal(t, 1, probe.begins)
	assert.Equal(t, 0, probe.removes, "the handle stays live while the exit runs")
	assert.Equal(t, []string{"panel", "footer"}, tagsOf(body), "the node lingers until the exit finishes")
	assert.Equal(t, 1, rec.count(OpDeferExit))
	assert.Equal(t, 0, rec.count(OpRemove))

	snap := tree.Snapshot()
	frag := snap.Children[0]
	require.Len(t, frag.Children, 2)
	assert.False(t, frag.Children[0].Exiting)
	assert.True(t, frag.Children[1].Exiting, "snapshots list exiting children after live ones")

	probe.done()

	assert.Equal(t, []string{"footer"}, tagsOf(body))
	assert.Equal(t, 1, probe.removes)
}

func TestReclaimCancelsExit(t *testing.T) {
	rec := &opRecorder{}
	_, body, tree := testTree(t, WithPatchTrace(rec.trace))

	probe := &exitProbe{accept: true}
	build := func(withPanel bool) Descriptor {
		kids := []Descriptor{Elem("footer", nil)}
		if withPanel {
			kids = append([]Descriptor{
				Elem("panel", Props{"open": withPanel}).WithKey("p").Use(exitUse(probe)),
			}, kids...)
		}
		return Frag(kids...)
	}

	tree.Render(build(true))
	panel := body.FindTag("panel")

	tree.Render(build(false))
	require.Equal(t, 1, probe.begins)
	stale := probe.done

	rec.reset()
	tree.Render(build(true))

	assert.Equal(t, 1, probe.cancels, "re-adding the key must cancel the exit")
	assert.Equal(t, 1, rec.count(OpReclaim))
	assert.Equal(t, 0, rec.count(OpCreate), "the reclaimed node is reused, not recreated")
	assert.Same(t, panel, body.FindTag("panel"))
	assert.Equal(t, []string{"panel", "footer"}, tagsOf(body))
	assert.Equal(t, 0, probe.removes)

	// A done callback that raced the reclaim must be inert.
	stale()
	assert.Equal(t, []string{"panel", "footer"}, tagsOf(body))
	assert.Equal(t, 0, probe.removes)
}

func TestExitDoneFiresOnce(t *testing.T) {
	_, body, tree := testTree(t)

	probe := &exitProbe{accept: true}
	tree.Render(Frag(
		Elem("panel", nil).WithKey("p").Use(exitUse(probe)),
		Elem("footer", nil),
	))
	tree.Render(Frag(Elem("footer", nil)))

	probe.done()
	probe.done()

	assert.Equal(t, []string{"footer"}, tagsOf(body))
	assert.Equal(t, 1, probe.removes)
}

func TestDeclinedExitDetachesImmediately(t *testing.T) {
	_, body, tree := testTree(t)

	probe := &exitProbe{accept: false}
	tree.Render(Frag(
		Elem("panel", nil).WithKey("p").Use(exitUse(probe)),
		Elem("footer", nil),
	))
	tree.Render(Frag(Elem("footer", nil)))

	assert.Equal(t, 1, probe.begins)
	assert.Equal(t, []string{"footer"}, tagsOf(body))
	assert.Equal(t, 1, probe.removes)
}

func TestAllExitHandlesMustFinishBeforeDetach(t *testing.T) {
	_, body, tree := testTree(t)

	first := &exitProbe{accept: true}
	second := &exitProbe{accept: true}
	tree.Render(Frag(
		Elem("panel", nil).WithKey("p").Use(exitUse(first), exitUse(second)),
		Elem("footer", nil),
	))
	tree.Render(Frag(Elem("footer", nil)))

	first.done()
	assert.Equal(t, []string{"panel", "footer"}, tagsOf(body), "one pending handle still defers the detach")

	second.done()
	assert.Equal(t, []string{"footer"}, tagsOf(body))
}

func TestDisposeUnmountsExitingNodes(t *testing.T) {
	_, body, tree := testTree(t)

	probe := &exitProbe{accept: true}
	tree.Render(Frag(
		Elem("panel", nil).WithKey("p").Use(exitUse(probe)),
		Elem("footer", nil),
	))
	tree.Render(Frag(Elem("footer", nil)))
	require.Equal(t, []string{"panel", "footer"}, tagsOf(body))

	tree.Dispose()

	assert.Empty(t, body.Children())
	assert.Equal(t, 1, probe.removes)

	stale := probe.done
	if stale != nil {
		stale()
	}
	assert.Empty(t, body.Children())
}

func TestWholesaleRemovalSkipsNestedExitHandles(t *testing.T) {
	_, body, tree := testTree(t)

	probe := &exitProbe{accept: true}
	tree.Render(Elem("div", nil,
		Elem("span", nil).Use(exitUse(probe)),
	))
	tree.Render(Descriptor{})

	// Only hosts detaching from the shared parent get to defer; a nested
	// element leaves together with its parent.
	assert.Equal(t, 0, probe.begins)
	assert.Equal(t, 1, probe.removes)
	assert.Empty(t, body.Children())
}

func TestExitingNodeMovesWithItsFragment(t *testing.T) {
	_, body, tree := testTree(t)

	probe := &exitProbe{accept: true}
	item := Elem("item", nil).WithKey("x").Use(exitUse(probe))
	f1With := Frag(item, Elem("s1", nil)).WithKey("f1")
	f1Without := Frag(Elem("s1", nil)).WithKey("f1")
	f2 := Frag(Elem("s2", nil)).WithKey("f2")

	tree.Render(Frag(f1With, f2))
	tree.Render(Frag(f1Without, f2))
	require.Equal(t, []string{"item", "s1", "s2"}, tagsOf(body))

	tree.Render(Frag(f2, f1Without))

	assert.Equal(t, []string{"s2", "s1", "item"}, tagsOf(body),
		"a moved fragment carries its exiting hosts along")
	assert.Equal(t, 0, probe.removes)

	probe.done()
	assert.Equal(t, []string{"s2", "s1"}, tagsOf(body))
}

func TestRootLevelExit(t *testing.T) {
	_, body, tree := testTree(t)

	probe := &exitProbe{accept: true}
	tree.Render(Elem("panel", nil).WithKey("p").Use(exitUse(probe)))

	tree.Render(Descriptor{})
	assert.Equal(t, []string{"panel"}, tagsOf(body), "root content defers its exit like any child")

	probe.done()
	assert.Empty(t, body.Children())
}

func TestKeyReplacementCoexistsWithExitingPredecessor(t *testing.T) {
	_, body, tree := testTree(t)

	probe := &exitProbe{accept: true}
	tree.Render(Frag(
		Elem("item", Props{"id": "a"}).WithKey("a").Use(exitUse(probe)),
		Elem("footer", nil),
	))
	tree.Render(Frag(
		Elem("item", Props{"id": "b"}).WithKey("b"),
		Elem("footer", nil),
	))

	items := body.FindAll(func(n *memhost.Node) bool { return n.Tag() == "item" })
	require.Len(t, items, 2, "the replacement mounts while the predecessor animates out")

	probe.done()
	items = body.FindAll(func(n *memhost.Node) bool { return n.Tag() == "item" })
	require.Len(t, items, 1)
	id, _ := items[0].Prop("id")
	assert.Equal(t, "b", id)
}
