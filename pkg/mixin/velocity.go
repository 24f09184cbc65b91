package mixin

import (
	"time"

	"github.com/go-loom/loom/pkg/animation"
	"github.com/go-loom/loom/pkg/host"
)

// DefaultSmoothing is the exponential moving average weight used when
// VelocityOptions.Smoothing is zero.
const DefaultSmoothing = 0.5

// Velocity is a smoothed pointer velocity in units per second.
type Velocity struct {
	X, Y float64
}

// VelocityOptions configures a pointer velocity tracker.
type VelocityOptions struct {
	// Event is the pointer event to sample. Defaults to "pointermove".
	Event string
	// Smoothing is the weight given to each new sample, in (0, 1]. Higher
	// values react faster; lower values settle harder. Defaults to
	// DefaultSmoothing.
	Smoothing float64
	// OnSample receives the smoothed velocity after each sampled event.
	OnSample func(v Velocity)
}

// TrackVelocity binds a pointer velocity tracker to the element.
//
// The tracker reads host.Pointer payloads from the configured event, derives
// raw velocity from consecutive samples on the package clock, and smooths it
// with an exponential moving average. Options are per-render data: swapping
// OnSample or retuning Smoothing patches the binding in place.
func TrackVelocity(opts VelocityOptions) Use {
	event := opts.Event
	if event == "" {
		event = "pointermove"
	}
	return Use{Factory: velocityFactory{Event: event}, Data: opts}
}

type velocityFactory struct {
	Event string
}

func (f velocityFactory) Name() string { return "velocity:" + f.Event }

func (f velocityFactory) Bind(node host.Node, scope *Scope) Handle {
	return &velocityHandle{factory: f, node: node, scope: scope}
}

type velocityHandle struct {
	factory  velocityFactory
	node     host.Node
	scope    *Scope
	opts     VelocityOptions
	detach   func()
	hasPrev  bool
	prev     host.Pointer
	prevTime time.Time
	current  Velocity
}

func (h *velocityHandle) Insert(data any) {
	h.opts, _ = data.(VelocityOptions)
	h.detach = h.node.AddListener(h.factory.Event, false, func(ev host.Event) {
		h.sample(ev)
	})
}

func (h *velocityHandle) sample(ev host.Event) {
	p, ok := ev.Data.(host.Pointer)
	if !ok {
		return
	}
	now := animation.Now()
	if !h.hasPrev {
		h.hasPrev = true
		h.prev = p
		h.prevTime = now
		return
	}
	dt := now.Sub(h.prevTime).Seconds()
	if dt <= 0 {
		return
	}
	raw := Velocity{
		X: (p.X - h.prev.X) / dt,
		Y: (p.Y - h.prev.Y) / dt,
	}
	s := h.opts.Smoothing
	if s <= 0 || s > 1 {
		s = DefaultSmoothing
	}
	h.current = Velocity{
		X: h.current.X*(1-s) + raw.X*s,
		Y: h.current.Y*(1-s) + raw.Y*s,
	}
	h.prev = p
	h.prevTime = now
	if h.opts.OnSample != nil {
		h.opts.OnSample(h.current)
	}
}

func (h *velocityHandle) Patch(prev, next any) {
	h.opts, _ = next.(VelocityOptions)
}

func (h *velocityHandle) Remove() {
	if h.detach != nil {
		h.detach()
		h.detach = nil
	}
}
