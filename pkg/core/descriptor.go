package core

import (
	"reflect"

	"github.com/go-loom/loom/pkg/mixin"
)

// Kind discriminates the four descriptor variants.
type Kind uint8

const (
	// KindInvalid is the zero value. A zero Descriptor describes nothing;
	// rendering it removes whatever the previous pass produced.
	KindInvalid Kind = iota
	// KindElement describes one host element.
	KindElement
	// KindComponent references a component to mount at this position.
	KindComponent
	// KindFragment groups children without a host node of its own.
	KindFragment
	// KindText describes one host text node.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindComponent:
		return "component"
	case KindFragment:
		return "fragment"
	case KindText:
		return "text"
	default:
		return "invalid"
	}
}

// Props maps property names to values. Values are opaque to the engine and
// compared with reflect.DeepEqual during diffing.
type Props map[string]any

// Descriptor is an immutable description of one node of desired UI. Builders
// return fresh values; a Descriptor is never mutated after creation, so one
// value can appear in several trees.
type Descriptor struct {
	// Kind selects the variant and decides which other fields are read.
	Kind Kind
	// Tag is the host element tag. Element only.
	Tag string
	// Component is the referenced component. Component only. Two
	// descriptors reference the same component iff the pointers are equal.
	Component *Component
	// Props carries element properties or component input.
	Props Props
	// Key distinguishes this child among its siblings. Keys must be
	// comparable; a non-comparable key or a key duplicated among siblings
	// degrades that child to positional matching.
	Key any
	// Children is the ordered child list. Element, component, and
	// fragment.
	Children []Descriptor
	// Mixins are applied to the host node in order. Element only.
	Mixins []mixin.Use
	// Text is the text content. Text only.
	Text string
}

// Elem describes a host element. props may be nil.
func Elem(tag string, props Props, children ...Descriptor) Descriptor {
	return Descriptor{Kind: KindElement, Tag: tag, Props: props, Children: children}
}

// Text describes a host text node.
func Text(text string) Descriptor {
	return Descriptor{Kind: KindText, Text: text}
}

// Frag groups children without introducing a host element. The children are
// spliced into the nearest enclosing host element.
func Frag(children ...Descriptor) Descriptor {
	return Descriptor{Kind: KindFragment, Children: children}
}

// Of references a component. props become the instance's input; children are
// made available to the component through its scope.
func Of(c *Component, props Props, children ...Descriptor) Descriptor {
	return Descriptor{Kind: KindComponent, Component: c, Props: props, Children: children}
}

// WithKey returns a copy of d carrying key.
func (d Descriptor) WithKey(key any) Descriptor {
	d.Key = key
	return d
}

// Use returns a copy of d with uses appended to its mixin list.
func (d Descriptor) Use(uses ...mixin.Use) Descriptor {
	mixins := make([]mixin.Use, 0, len(d.Mixins)+len(uses))
	mixins = append(mixins, d.Mixins...)
	mixins = append(mixins, uses...)
	d.Mixins = mixins
	return d
}

// IsZero reports whether d describes nothing.
func (d Descriptor) IsZero() bool {
	return d.Kind == KindInvalid
}

// canPatch reports whether a committed node for prev can absorb next in
// place. A mismatch forces destroy-then-create.
func canPatch(prev, next Descriptor) bool {
	if prev.Kind != next.Kind {
		return false
	}
	switch prev.Kind {
	case KindElement:
		return prev.Tag == next.Tag
	case KindComponent:
		return prev.Component == next.Component
	default:
		return true
	}
}

// usableKey returns the child's matching key, or nil when the child matches
// positionally. Non-comparable keys cannot index the sibling map and degrade
// to positional matching rather than panicking.
func usableKey(key any) any {
	if key == nil {
		return nil
	}
	if !reflect.TypeOf(key).Comparable() {
		return nil
	}
	return key
}
