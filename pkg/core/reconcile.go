package core

import (
	"reflect"
	"slices"

	"github.com/go-loom/loom/pkg/host"
	"github.com/go-loom/loom/pkg/mixin"
)

// commit reconciles desc against the previously committed content. Runs as a
// scheduler task so it batches with pending work.
func (t *Tree) commit(desc Descriptor) {
	if t.disposed {
		return
	}
	var kids []Descriptor
	if !desc.IsZero() {
		kids = []Descriptor{desc}
	}
	t.patchChildren(t.holder, kids, t.container, nil, nil)
}

// mountNode builds the committed node for desc and inserts its content into
// parentHost before anchor. owner is the instance whose render produced desc,
// nil at the root.
func (t *Tree) mountNode(desc Descriptor, parentHost, anchor host.Node, owner *instance) *treeNode {
	switch desc.Kind {
	case KindText:
		h := t.doc.CreateText(desc.Text)
		parentHost.InsertBefore(h, anchor)
		t.recordOp(OpCreate, "#text", "", desc.Text)
		return &treeNode{desc: desc, host: h, parentHost: parentHost, owner: owner}

	case KindElement:
		h := t.doc.CreateElement(desc.Tag)
		t.recordOp(OpCreate, desc.Tag, "", desc.Key)
		n := &treeNode{desc: desc, host: h, parentHost: parentHost, owner: owner}
		value, controlled := controlledValue(desc, h)
		t.patchProps(h, desc.Tag, nil, desc.Props, false, controlled)
		for _, kid := range desc.Children {
			c := t.mountNode(kid, h, nil, owner)
			c.parent = n
			n.children = append(n.children, c)
		}
		parentHost.InsertBefore(h, anchor)
		for _, use := range desc.Mixins {
			n.bindings = append(n.bindings, t.insertBinding(h, use, owner))
		}
		if controlled {
			n.control = t.insertBinding(h, mixin.Control(value), owner)
		}
		return n

	case KindFragment:
		n := &treeNode{desc: desc, parentHost: parentHost, owner: owner}
		for _, kid := range desc.Children {
			c := t.mountNode(kid, parentHost, anchor, owner)
			c.parent = n
			n.children = append(n.children, c)
		}
		return n

	case KindComponent:
		return t.mountComponent(desc, parentHost, anchor, owner)

	default:
		// A zero descriptor occupies its child position but renders
		// nothing.
		return &treeNode{desc: desc, parentHost: parentHost, owner: owner}
	}
}

// mountComponent constructs an instance, runs setup once, and mounts the
// first render's output. A setup or first-render failure is captured at this
// boundary: the instance contributes nothing and ancestors continue.
func (t *Tree) mountComponent(desc Descriptor, parentHost, anchor host.Node, owner *instance) *treeNode {
	inst := newInstance(desc.Component, t, owner)
	n := &treeNode{desc: desc, inst: inst, parentHost: parentHost, owner: owner}
	inst.node = n
	inst.props = desc.Props
	inst.children = desc.Children

	if !inst.runSetup() {
		return n
	}
	inst.mounted = true
	out, ok := inst.runRender()
	if ok && !out.IsZero() {
		n.child = t.mountNode(out, parentHost, anchor, inst)
		n.child.parent = n
	}
	return n
}

// patchNode updates a committed node in place. The caller has already
// established compatibility with canPatch; tail is the host anchor that
// follows this node's content.
func (t *Tree) patchNode(n *treeNode, next Descriptor, parentHost, tail host.Node, owner *instance) {
	prev := n.desc
	n.desc = next
	n.owner = owner

	switch next.Kind {
	case KindText:
		if prev.Text != next.Text {
			n.host.SetText(next.Text)
			t.recordOp(OpSetText, "#text", "", next.Text)
		}

	case KindElement:
		prevControlled := n.control != nil
		value, nextControlled := controlledValue(next, n.host)
		t.patchProps(n.host, next.Tag, prev.Props, next.Props, prevControlled, nextControlled)
		switch {
		case prevControlled && nextControlled:
			n.control.patch(mixin.Control(value))
		case prevControlled:
			n.control.remove()
			n.control = nil
		case nextControlled:
			n.control = t.insertBinding(n.host, mixin.Control(value), owner)
		}
		t.patchChildren(n, next.Children, n.host, nil, owner)
		t.patchBindings(n, next.Mixins, owner)

	case KindFragment:
		t.patchChildren(n, next.Children, parentHost, tail, owner)

	case KindComponent:
		t.patchComponent(n, next, parentHost, tail, owner)
	}
}

// patchComponent delivers new input to an existing instance and re-runs its
// render. A render failure keeps the previous committed subtree.
func (t *Tree) patchComponent(n *treeNode, next Descriptor, parentHost, tail host.Node, owner *instance) {
	inst := n.inst
	inst.props = next.Props
	inst.children = next.Children
	if inst.disposed || !inst.mounted {
		return
	}
	inst.dirty = false
	out, ok := inst.runRender()
	if !ok {
		return
	}
	t.patchOutput(n, inst, out, parentHost, tail)
}

// patchInstanceOutput recommits the output of a self-invalidated instance,
// re-deriving the anchor that follows its content.
func (t *Tree) patchInstanceOutput(inst *instance, out Descriptor) {
	n := inst.node
	if n == nil {
		return
	}
	t.patchOutput(n, inst, out, n.parentHost, followingAnchor(n))
}

func (t *Tree) patchOutput(n *treeNode, inst *instance, out Descriptor, parentHost, tail host.Node) {
	switch {
	case n.child == nil && out.IsZero():
	case n.child == nil:
		n.child = t.mountNode(out, parentHost, tail, inst)
		n.child.parent = n
	case out.IsZero():
		t.removeChild(n, n.child)
		n.child = nil
	case canPatch(n.child.desc, out):
		t.patchNode(n.child, out, parentHost, tail, inst)
	default:
		t.removeChild(n, n.child)
		n.child = t.mountNode(out, parentHost, tail, inst)
		n.child.parent = n
	}
}

// patchChildren reconciles a committed child list against next.
//
// Matching: keyed children pair with the old child carrying the same key;
// unkeyed children pair positionally among the unkeyed. A matched pair whose
// descriptor kinds disagree is destroyed and recreated. Keys duplicated among
// siblings degrade every occurrence to positional matching.
//
// Reordering: matched children forming the longest run already in order stay
// where they are; only children outside the run move. New and moved content
// is inserted right to left so each insertion's anchor is already in place.
func (t *Tree) patchChildren(parent *treeNode, next []Descriptor, parentHost, tail host.Node, owner *instance) {
	old := parent.children

	oldKey := siblingKeys(len(old), func(j int) any { return old[j].desc.Key })
	nextKey := siblingKeys(len(next), func(i int) any { return next[i].Key })

	byKey := make(map[any]int, len(old))
	for j, k := range oldKey {
		if k != nil {
			byKey[k] = j
		}
	}

	matched := make([]int, len(next))
	used := make([]bool, len(old))
	for i := range next {
		matched[i] = -1
		k := nextKey[i]
		if k == nil {
			continue
		}
		if j, ok := byKey[k]; ok && !used[j] && canPatch(old[j].desc, next[i]) {
			matched[i] = j
			used[j] = true
		}
	}

	cursor := 0
	for i, d := range next {
		if matched[i] >= 0 || nextKey[i] != nil {
			continue
		}
		for cursor < len(old) && (used[cursor] || oldKey[cursor] != nil) {
			cursor++
		}
		if cursor == len(old) {
			break
		}
		if canPatch(old[cursor].desc, d) {
			matched[i] = cursor
			used[cursor] = true
		}
		cursor++
	}

	for j := range old {
		if !used[j] {
			t.removeChild(parent, old[j])
		}
	}

	stable := stablePositions(matched)

	result := make([]*treeNode, len(next))
	anchor := tail
	for i := len(next) - 1; i >= 0; i-- {
		var n *treeNode
		switch {
		case matched[i] >= 0:
			n = old[matched[i]]
			t.patchNode(n, next[i], parentHost, anchor, owner)
			if !stable[i] {
				t.moveNode(n, parentHost, anchor)
			}
		default:
			if n = t.reclaimExiting(parent, next[i]); n != nil {
				t.patchNode(n, next[i], parentHost, anchor, owner)
				t.moveNode(n, parentHost, anchor)
			} else {
				n = t.mountNode(next[i], parentHost, anchor, owner)
			}
		}
		n.parent = parent
		result[i] = n
		if h := firstHost(n); h != nil {
			anchor = h
		}
	}
	parent.children = result
}

// siblingKeys resolves each child's matching key. A key duplicated among
// siblings degrades every occurrence to positional matching, on both sides of
// the diff, so duplicates still reuse nodes deterministically.
func siblingKeys(n int, keyAt func(int) any) []any {
	keys := make([]any, n)
	var counts map[any]int
	for i := 0; i < n; i++ {
		if k := usableKey(keyAt(i)); k != nil {
			keys[i] = k
			if counts == nil {
				counts = make(map[any]int, n)
			}
			counts[k]++
		}
	}
	for i, k := range keys {
		if k != nil && counts[k] > 1 {
			keys[i] = nil
		}
	}
	return keys
}

// stablePositions returns the next-list positions whose matched old indices
// form a longest increasing run. Those children keep relative order and are
// never moved.
func stablePositions(matched []int) map[int]bool {
	seq := make([]int, 0, len(matched))
	pos := make([]int, 0, len(matched))
	for i, j := range matched {
		if j >= 0 {
			seq = append(seq, j)
			pos = append(pos, i)
		}
	}
	if len(seq) == 0 {
		return nil
	}

	// Longest increasing subsequence over seq: tails[k] is the seq index
	// holding the smallest tail of any increasing run of length k+1.
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))
	for i, v := range seq {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		} else {
			prev[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}

	stable := make(map[int]bool, len(tails))
	for i := tails[len(tails)-1]; i >= 0; i = prev[i] {
		stable[pos[i]] = true
	}
	return stable
}

// moveNode re-inserts the subtree's whole host range before anchor,
// transferring ownership of the host nodes to the new position.
func (t *Tree) moveNode(n *treeNode, parentHost, anchor host.Node) {
	hosts := hostRange(n, nil)
	for _, h := range hosts {
		parentHost.InsertBefore(h, anchor)
	}
	if len(hosts) > 0 {
		t.recordOp(OpMove, descLabel(n.desc), "", n.desc.Key)
	}
}

// patchProps writes the key-by-key difference between prev and next: removed
// names are unset, changed names are set, unchanged names see no write. The
// "value" name is skipped on controlled elements, where the control binding
// owns it.
func (t *Tree) patchProps(node host.Node, tag string, prev, next Props, prevControlled, nextControlled bool) {
	for _, name := range sortedNames(next) {
		if nextControlled && name == "value" {
			continue
		}
		nv := next[name]
		if pv, ok := prev[name]; ok && reflect.DeepEqual(pv, nv) {
			continue
		}
		node.SetProp(name, nv)
		t.recordOp(OpSetProp, tag, name, nv)
	}
	for _, name := range sortedNames(prev) {
		if prevControlled && name == "value" {
			continue
		}
		if _, ok := next[name]; ok {
			continue
		}
		node.RemoveProp(name)
		t.recordOp(OpRemoveProp, tag, name, nil)
	}
}

// patchBindings diffs the node's mixin list by position. A compatible use
// patches the live binding in place; an incompatible one removes the old
// binding before inserting its replacement.
func (t *Tree) patchBindings(n *treeNode, next []mixin.Use, owner *instance) {
	old := n.bindings
	result := make([]*binding, 0, len(next))
	shared := min(len(old), len(next))
	for i := 0; i < shared; i++ {
		if mixin.Compatible(old[i].use, next[i]) {
			old[i].patch(next[i])
			result = append(result, old[i])
			continue
		}
		old[i].remove()
		result = append(result, t.insertBinding(n.host, next[i], owner))
	}
	for i := shared; i < len(old); i++ {
		old[i].remove()
	}
	for i := shared; i < len(next); i++ {
		result = append(result, t.insertBinding(n.host, next[i], owner))
	}
	n.bindings = result
}

// controlledValue reports whether the descriptor drives the node as a
// controlled input: a string "value" prop on a value-capable host.
func controlledValue(desc Descriptor, node host.Node) (string, bool) {
	v, ok := desc.Props["value"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	if _, ok := node.(host.ValueNode); !ok {
		return "", false
	}
	return s, true
}

func sortedNames(p Props) []string {
	if len(p) == 0 {
		return nil
	}
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
