// Package host defines the document tree contract the reconciler renders into.
//
// The engine never talks to a concrete platform. It drives a host.Document to
// create nodes and a host.Node to mutate them, and everything else (real DOM
// bindings, test documents, headless servers) implements these interfaces.
// Committed nodes are exclusively owned by the engine: collaborators may read
// them and dispatch events at them, but must not reparent or mutate nodes the
// engine created.
//
// # Capabilities
//
// Optional behavior is expressed through capability interfaces. A node that
// carries a user-editable live value (text inputs and the like) implements
// ValueNode; a node that can report final geometry implements BoundsNode.
// The engine discovers capabilities with type assertions and degrades
// gracefully when they are absent.
package host

// NodeKind identifies the concrete shape of a host node.
type NodeKind int

const (
	// KindElement is a tagged container node with properties and children.
	KindElement NodeKind = iota
	// KindText is a leaf node holding a run of text.
	KindText
)

// String returns a human-readable kind name.
func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// ErrorEvent is the event type a document dispatches at a container node when
// a platform-originated error reaches it. Roots forward these onto their
// error channel until disposed.
const ErrorEvent = "error"

// Event is a platform occurrence delivered to listeners. Data carries the
// event payload; its concrete type is an agreement between the document and
// the handler (memhost uses strings for input events and Pointer values for
// pointer events).
type Event struct {
	Type   string
	Target Node
	Data   any
}

// Listener receives dispatched events.
type Listener func(Event)

// Node is one node in the host document tree.
//
// Mutators are synchronous and must not re-enter the engine. InsertBefore
// with a nil anchor appends; inserting a node that already has a parent moves
// it, preserving listeners and properties.
type Node interface {
	Kind() NodeKind

	// Tag returns the element tag. Text nodes return "".
	Tag() string

	// SetProp writes a named property. Writing the same value again is
	// allowed but documents may treat every call as a mutation, so callers
	// should diff first.
	SetProp(name string, value any)

	// RemoveProp clears a named property.
	RemoveProp(name string)

	// SetText replaces the text content. Element nodes ignore it.
	SetText(text string)

	// InsertBefore places child immediately before anchor, or at the end
	// when anchor is nil.
	InsertBefore(child, anchor Node)

	// RemoveChild detaches child from this node.
	RemoveChild(child Node)

	// AddListener subscribes fn to events of the given type on this node.
	// Capture listeners run during the capture phase. The returned func
	// removes the subscription and is safe to call more than once.
	AddListener(event string, capture bool, fn Listener) (remove func())
}

// Document creates nodes for one host tree.
type Document interface {
	CreateElement(tag string) Node
	CreateText(text string) Node
}

// ValueNode is implemented by elements whose live value can drift from the
// last written value between commits, such as text inputs. The engine uses it
// to re-assert described values after uncommitted user edits.
type ValueNode interface {
	Node
	Value() string
	SetValue(value string)
}

// Rect is a node's geometry in document coordinates.
type Rect struct {
	X, Y, Width, Height float64
}

// BoundsNode is implemented by nodes that can report geometry. Exit-animation
// mixins read it during remove, before the node detaches.
type BoundsNode interface {
	Node
	Bounds() Rect
}

// Pointer is the payload for pointer events in documents that support them.
type Pointer struct {
	X, Y float64
}
