package mixin

import (
	"github.com/go-loom/loom/pkg/host"
)

// Control drives a value-capable element as a controlled input: the node's
// live value always settles at the last described value.
//
// After a user edit fires an input event, the binding schedules a post-commit
// enforcement. If no handler committed a new described value by then, the
// live value is forced back; if one did, Patch already recorded it and the
// enforcement leaves the committed value in place.
//
// The engine applies this binding automatically when an element descriptor
// sets a "value" property on a value-capable node, so most callers never use
// Control directly.
func Control(value string) Use {
	return Use{Factory: controlFactory{}, Data: value}
}

type controlFactory struct{}

func (controlFactory) Name() string { return "control" }

func (controlFactory) Bind(node host.Node, scope *Scope) Handle {
	return &controlHandle{node: node, scope: scope}
}

type controlHandle struct {
	node    host.Node
	scope   *Scope
	value   string
	pending bool
	detach  func()
}

func (h *controlHandle) Insert(data any) {
	h.value, _ = data.(string)
	if vn, ok := h.node.(host.ValueNode); ok {
		vn.SetValue(h.value)
	}
	h.detach = h.node.AddListener("input", false, func(host.Event) {
		h.scheduleEnforce()
	})
}

// scheduleEnforce re-asserts the described value once the current batch has
// committed. Multiple input events in one batch coalesce into a single
// enforcement.
func (h *controlHandle) scheduleEnforce() {
	if h.pending {
		return
	}
	h.pending = true
	h.scope.PostCommit(func() {
		h.pending = false
		if vn, ok := h.node.(host.ValueNode); ok && vn.Value() != h.value {
			vn.SetValue(h.value)
		}
	})
}

func (h *controlHandle) Patch(prev, next any) {
	value, _ := next.(string)
	if value == h.value {
		return
	}
	h.value = value
	if vn, ok := h.node.(host.ValueNode); ok && vn.Value() != value {
		vn.SetValue(value)
	}
}

func (h *controlHandle) Remove() {
	if h.detach != nil {
		h.detach()
		h.detach = nil
	}
}
