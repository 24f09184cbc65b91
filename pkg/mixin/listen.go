package mixin

import (
	"context"

	"github.com/go-loom/loom/pkg/errors"
	"github.com/go-loom/loom/pkg/host"
)

// On binds a bubble-phase event handler to the element.
//
// The binding attaches one platform listener for its whole lifetime. When
// only the handler's identity changes between renders, Patch swaps the
// handler behind that listener and the platform sees no churn.
func On(event string, handler func(host.Event)) Use {
	return Use{Factory: listenFactory{Event: event}, Data: handler}
}

// OnCapture binds a capture-phase event handler to the element.
func OnCapture(event string, handler func(host.Event)) Use {
	return Use{Factory: listenFactory{Event: event, Capture: true}, Data: handler}
}

type listenFactory struct {
	Event   string
	Capture bool
}

func (f listenFactory) Name() string {
	if f.Capture {
		return "onCapture:" + f.Event
	}
	return "on:" + f.Event
}

func (f listenFactory) Bind(node host.Node, scope *Scope) Handle {
	return &listenHandle{factory: f, node: node, scope: scope}
}

type listenHandle struct {
	factory listenFactory
	node    host.Node
	scope   *Scope
	handler func(host.Event)
	detach  func()
}

func (h *listenHandle) Insert(data any) {
	h.handler, _ = data.(func(host.Event))
	h.detach = h.node.AddListener(h.factory.Event, h.factory.Capture, func(ev host.Event) {
		h.scope.Protect(errors.PhaseEvent, func() {
			if h.handler != nil {
				h.handler(ev)
			}
		})
	})
}

func (h *listenHandle) Patch(prev, next any) {
	h.handler, _ = next.(func(host.Event))
}

func (h *listenHandle) Remove() {
	if h.detach != nil {
		h.detach()
		h.detach = nil
	}
	h.handler = nil
}

// OnAsync binds a handler that receives a fresh cancellation context per
// invocation. Re-firing the event cancels the previous invocation's context;
// removing the binding or disposing the owning instance cancels the latest
// one.
func OnAsync(event string, handler func(ctx context.Context, ev host.Event)) Use {
	return Use{Factory: asyncFactory{Event: event}, Data: handler}
}

type asyncFactory struct {
	Event string
}

func (f asyncFactory) Name() string { return "onAsync:" + f.Event }

func (f asyncFactory) Bind(node host.Node, scope *Scope) Handle {
	return &asyncHandle{factory: f, node: node, scope: scope}
}

type asyncHandle struct {
	factory asyncFactory
	node    host.Node
	scope   *Scope
	handler func(context.Context, host.Event)
	cancel  context.CancelFunc
	detach  func()
}

func (h *asyncHandle) Insert(data any) {
	h.handler, _ = data.(func(context.Context, host.Event))
	h.detach = h.node.AddListener(h.factory.Event, false, func(ev host.Event) {
		h.invoke(ev)
	})
}

func (h *asyncHandle) invoke(ev host.Event) {
	if h.cancel != nil {
		h.cancel()
	}
	ctx, cancel := context.WithCancel(h.scope.Context())
	h.cancel = cancel
	h.scope.Protect(errors.PhaseEvent, func() {
		if h.handler != nil {
			h.handler(ctx, ev)
		}
	})
}

func (h *asyncHandle) Patch(prev, next any) {
	h.handler, _ = next.(func(context.Context, host.Event))
}

func (h *asyncHandle) Remove() {
	if h.detach != nil {
		h.detach()
		h.detach = nil
	}
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.handler = nil
}
