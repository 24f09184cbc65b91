package mixin

import (
	"github.com/go-loom/loom/pkg/animation"
	"github.com/go-loom/loom/pkg/host"
)

// TransitionSpec configures enter and exit animation for an element.
//
// Apply writes presentation for the current direction and progress; the
// engine never interprets progress itself. Progress runs 0 to 1 while
// entering and back toward 0 while exiting.
type TransitionSpec struct {
	Enter animation.Timing
	Exit  animation.Timing
	Apply func(node host.Node, exiting bool, progress float64)
}

// Transition binds enter and exit animation to the element.
//
// On insert the node animates forward under the Enter timing. When the
// element leaves the described tree, the binding defers detach and animates
// in reverse under the Exit timing; the node detaches when the transition
// dismisses. A node re-described while exiting is reclaimed: the exit is
// cancelled and the transition runs forward again from its current value.
func Transition(spec TransitionSpec) Use {
	return Use{Factory: transitionFactory{}, Data: spec}
}

// Fade is a Transition that drives the element's "opacity" property with the
// same timing in both directions.
func Fade(timing animation.Timing) Use {
	return Transition(TransitionSpec{Enter: timing, Exit: timing, Apply: ApplyOpacity})
}

// ApplyOpacity writes progress to the node's opacity property.
func ApplyOpacity(node host.Node, exiting bool, progress float64) {
	node.SetProp("opacity", progress)
}

type transitionFactory struct{}

func (transitionFactory) Name() string { return "transition" }

func (transitionFactory) Bind(node host.Node, scope *Scope) Handle {
	return &transitionHandle{node: node, scope: scope}
}

type transitionHandle struct {
	node        host.Node
	scope       *Scope
	spec        TransitionSpec
	tr          *animation.Transition
	unsubValue  func()
	unsubStatus func()
	exiting     bool
	done        func()
}

var _ ExitHandle = (*transitionHandle)(nil)

func (h *transitionHandle) Insert(data any) {
	h.spec, _ = data.(TransitionSpec)
	h.tr = animation.NewTransition(h.spec.Enter)
	h.unsubValue = h.tr.AddListener(h.apply)
	h.unsubStatus = h.tr.AddStatusListener(func(s animation.TransitionStatus) {
		if s != animation.TransitionDismissed || !h.exiting || h.done == nil {
			return
		}
		done := h.done
		h.done = nil
		done()
	})
	h.apply()
	h.tr.Forward()
}

func (h *transitionHandle) apply() {
	if h.spec.Apply != nil {
		h.spec.Apply(h.node, h.exiting, h.tr.Value())
	}
}

func (h *transitionHandle) Patch(prev, next any) {
	h.spec, _ = next.(TransitionSpec)
}

func (h *transitionHandle) Remove() {
	if h.unsubValue != nil {
		h.unsubValue()
		h.unsubValue = nil
	}
	if h.unsubStatus != nil {
		h.unsubStatus()
		h.unsubStatus = nil
	}
	if h.tr != nil {
		h.tr.Dispose()
	}
	h.done = nil
}

// BeginExit reverses the transition under the Exit timing and detaches the
// node once it dismisses. A zero exit duration dismisses synchronously.
func (h *transitionHandle) BeginExit(done func()) bool {
	h.exiting = true
	h.done = done
	h.tr.SetTiming(h.spec.Exit)
	h.tr.Reverse()
	return true
}

// CancelExit aborts the exit and resumes entering from the current value.
func (h *transitionHandle) CancelExit() {
	h.exiting = false
	h.done = nil
	h.tr.SetTiming(h.spec.Enter)
	h.tr.Forward()
}
