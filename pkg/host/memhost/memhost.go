// Package memhost provides an in-memory host document for tests and demos.
//
// The document keeps ordered children, a property store, and a listener
// registry with cumulative attach/detach counters, so tests can assert not
// just the final tree shape but how much listener churn it took to get there.
// Events are synthetic: Dispatch walks capture, target, and bubble phases the
// way browser documents do, and EditValue simulates a user edit by moving the
// live value and firing an input event.
//
// Every element reports value capability. Real documents typically restrict
// it to editable controls; keeping it uniform here keeps the test surface
// small.
package memhost

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-loom/loom/pkg/host"
)

// Document is an in-memory host.Document.
type Document struct {
	created  int
	attaches int
	detaches int
}

// New returns an empty document.
func New() *Document {
	return &Document{}
}

// CreateElement returns a detached element node.
func (d *Document) CreateElement(tag string) host.Node {
	d.created++
	return &Node{doc: d, kind: host.KindElement, tag: tag}
}

// CreateText returns a detached text node.
func (d *Document) CreateText(text string) host.Node {
	d.created++
	return &Node{doc: d, kind: host.KindText, text: text}
}

// Body returns a fresh element suitable as a root container.
func (d *Document) Body() *Node {
	return d.CreateElement("body").(*Node)
}

// NodesCreated reports how many nodes this document has created.
func (d *Document) NodesCreated() int { return d.created }

// ListenerChurn reports cumulative listener attaches and detaches across all
// nodes of this document.
func (d *Document) ListenerChurn() (attaches, detaches int) {
	return d.attaches, d.detaches
}

type listener struct {
	event   string
	capture bool
	fn      host.Listener
	removed bool
}

// Node is an in-memory host.Node.
type Node struct {
	doc       *Document
	kind      host.NodeKind
	tag       string
	text      string
	parent    *Node
	children  []*Node
	props     map[string]any
	listeners []*listener
	liveValue string
	hasLive   bool
	bounds    host.Rect
	attaches  int
	detaches  int
}

var _ host.ValueNode = (*Node)(nil)
var _ host.BoundsNode = (*Node)(nil)

// Kind reports whether the node is an element or text.
func (n *Node) Kind() host.NodeKind { return n.kind }

// Tag returns the element tag, or "" for text nodes.
func (n *Node) Tag() string { return n.tag }

// Text returns the text content of a text node.
func (n *Node) Text() string { return n.text }

// SetText replaces the content of a text node. Elements ignore it.
func (n *Node) SetText(text string) {
	if n.kind == host.KindText {
		n.text = text
	}
}

// SetProp writes a named property.
func (n *Node) SetProp(name string, value any) {
	if n.props == nil {
		n.props = make(map[string]any)
	}
	n.props[name] = value
}

// RemoveProp clears a named property.
func (n *Node) RemoveProp(name string) {
	delete(n.props, name)
}

// Prop returns a property value and whether it is set.
func (n *Node) Prop(name string) (any, bool) {
	v, ok := n.props[name]
	return v, ok
}

// Parent returns the current parent, or nil when detached.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the ordered child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// InsertBefore places child immediately before anchor, or appends when anchor
// is nil. A child that already has a parent is moved.
func (n *Node) InsertBefore(child, anchor host.Node) {
	c := child.(*Node)
	if c.parent != nil {
		c.parent.detach(c)
	}
	c.parent = n
	if anchor == nil {
		n.children = append(n.children, c)
		return
	}
	a := anchor.(*Node)
	for i, existing := range n.children {
		if existing == a {
			n.children = append(n.children, nil)
			copy(n.children[i+1:], n.children[i:])
			n.children[i] = c
			return
		}
	}
	n.children = append(n.children, c)
}

// RemoveChild detaches child from this node.
func (n *Node) RemoveChild(child host.Node) {
	c := child.(*Node)
	if c.parent == n {
		n.detach(c)
		c.parent = nil
	}
}

func (n *Node) detach(c *Node) {
	for i, existing := range n.children {
		if existing == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

// AddListener subscribes fn to events of the given type.
func (n *Node) AddListener(event string, capture bool, fn host.Listener) (remove func()) {
	l := &listener{event: event, capture: capture, fn: fn}
	n.listeners = append(n.listeners, l)
	n.attaches++
	n.doc.attaches++
	return func() {
		if l.removed {
			return
		}
		l.removed = true
		n.detaches++
		n.doc.detaches++
		for i, existing := range n.listeners {
			if existing == l {
				n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
				return
			}
		}
	}
}

// ListenerChurn reports cumulative listener attaches and detaches on this
// node.
func (n *Node) ListenerChurn() (attaches, detaches int) {
	return n.attaches, n.detaches
}

// ListenerCount returns the number of live listeners for an event type.
func (n *Node) ListenerCount(event string) int {
	count := 0
	for _, l := range n.listeners {
		if l.event == event && !l.removed {
			count++
		}
	}
	return count
}

// Value returns the live value.
func (n *Node) Value() string { return n.liveValue }

// SetValue writes the live value without firing events. This is the
// engine-side write path.
func (n *Node) SetValue(value string) {
	n.liveValue = value
	n.hasLive = true
}

// EditValue simulates a user edit: it moves the live value and dispatches an
// input event at this node with the new value as payload.
func (n *Node) EditValue(value string) {
	n.liveValue = value
	n.hasLive = true
	n.Dispatch("input", value)
}

// SetBounds records geometry for BoundsNode reads.
func (n *Node) SetBounds(r host.Rect) { n.bounds = r }

// Bounds returns the recorded geometry.
func (n *Node) Bounds() host.Rect { return n.bounds }

// Dispatch fires a synthetic event at this node: capture listeners from the
// root down, then every target listener in declaration order, then bubble
// listeners back up to the root.
func (n *Node) Dispatch(event string, data any) {
	ev := host.Event{Type: event, Target: n, Data: data}
	var path []*Node
	for p := n.parent; p != nil; p = p.parent {
		path = append(path, p)
	}
	for i := len(path) - 1; i >= 0; i-- {
		path[i].fire(ev, true, false)
	}
	n.fire(ev, true, true)
	for _, p := range path {
		p.fire(ev, false, false)
	}
}

// fire runs matching listeners. At the target both phases run in declaration
// order, so capture and bubble are true together exactly once per dispatch.
func (n *Node) fire(ev host.Event, capture, bubble bool) {
	snapshot := make([]*listener, len(n.listeners))
	copy(snapshot, n.listeners)
	for _, l := range snapshot {
		if l.removed || l.event != ev.Type {
			continue
		}
		if capture && bubble {
			l.fn(ev)
			continue
		}
		if l.capture == capture && !bubble {
			l.fn(ev)
		}
	}
}

// Find returns the first node in this subtree, including the receiver, that
// matches pred, in depth-first order.
func (n *Node) Find(pred func(*Node) bool) *Node {
	if pred(n) {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(pred); found != nil {
			return found
		}
	}
	return nil
}

// FindTag returns the first element in this subtree with the given tag.
func (n *Node) FindTag(tag string) *Node {
	return n.Find(func(c *Node) bool { return c.kind == host.KindElement && c.tag == tag })
}

// FindText returns the first text node in this subtree with the given
// content.
func (n *Node) FindText(text string) *Node {
	return n.Find(func(c *Node) bool { return c.kind == host.KindText && c.text == text })
}

// FindAll returns every node in this subtree matching pred, in depth-first
// order.
func (n *Node) FindAll(pred func(*Node) bool) []*Node {
	var out []*Node
	if pred(n) {
		out = append(out, n)
	}
	for _, c := range n.children {
		out = append(out, c.FindAll(pred)...)
	}
	return out
}

// Format renders this subtree as indented text: one node per line, element
// lines carrying sorted properties, the live value when one was written, and
// live listener event names in declaration order. Output is deterministic,
// which makes it suitable for golden files.
func (n *Node) Format() string {
	var b strings.Builder
	n.format(&b, 0)
	return b.String()
}

func (n *Node) format(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.kind == host.KindText {
		fmt.Fprintf(b, "%s%q\n", indent, n.text)
		return
	}
	b.WriteString(indent)
	b.WriteString(n.tag)
	keys := make([]string, 0, len(n.props))
	for k := range n.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%q", k, fmt.Sprint(n.props[k]))
	}
	if n.hasLive {
		fmt.Fprintf(b, " value=%q", n.liveValue)
	}
	var events []string
	for _, l := range n.listeners {
		if !l.removed {
			events = append(events, l.event)
		}
	}
	if len(events) > 0 {
		fmt.Fprintf(b, " on[%s]", strings.Join(events, ","))
	}
	b.WriteString("\n")
	for _, c := range n.children {
		c.format(b, depth+1)
	}
}
