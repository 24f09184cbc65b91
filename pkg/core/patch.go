package core

import "fmt"

// PatchKind identifies one category of host mutation.
type PatchKind int

const (
	OpCreate PatchKind = iota
	OpRemove
	OpMove
	OpSetProp
	OpRemoveProp
	OpSetText
	OpDeferExit
	OpReclaim
)

func (k PatchKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpMove:
		return "move"
	case OpSetProp:
		return "set-prop"
	case OpRemoveProp:
		return "remove-prop"
	case OpSetText:
		return "set-text"
	case OpDeferExit:
		return "defer-exit"
	case OpReclaim:
		return "reclaim"
	default:
		return "unknown"
	}
}

// PatchOp is one recorded host mutation. Tag carries the node label, Name the
// prop name for prop writes, Value a rendered form of the written value or
// key.
type PatchOp struct {
	Kind  PatchKind
	Tag   string
	Name  string
	Value string
}

func (op PatchOp) String() string {
	s := op.Kind.String() + " " + op.Tag
	if op.Name != "" {
		s += "." + op.Name
	}
	if op.Value != "" {
		s += "=" + op.Value
	}
	return s
}

// PatchTrace observes every host mutation a tree performs, in apply order.
// Install one with WithPatchTrace. Tracing is for tests and diagnostics; the
// callback runs synchronously on the flushing goroutine.
type PatchTrace func(PatchOp)

func (t *Tree) recordOp(kind PatchKind, tag, name string, value any) {
	if t.trace == nil {
		return
	}
	var rendered string
	if value != nil {
		rendered = fmt.Sprint(value)
	}
	t.trace(PatchOp{Kind: kind, Tag: tag, Name: name, Value: rendered})
}

// descLabel names a descriptor for traces and snapshots.
func descLabel(desc Descriptor) string {
	switch desc.Kind {
	case KindElement:
		return desc.Tag
	case KindText:
		return "#text"
	case KindFragment:
		return "#fragment"
	case KindComponent:
		if desc.Component != nil {
			return desc.Component.Name
		}
		return "#component"
	default:
		return "#zero"
	}
}
