package animation

import "time"

// Timing describes how an enter or exit animation runs: how long it takes,
// how progress is eased, and how long to wait before starting.
//
// Easing is opaque to the engine. It maps linear progress in [0, 1] to eased
// progress and comes from whatever curve library the application uses. A nil
// Easing means linear.
type Timing struct {
	Duration time.Duration
	Easing   func(float64) float64
	Delay    time.Duration
}

// ease applies the configured easing, defaulting to linear.
func (t Timing) ease(progress float64) float64 {
	if t.Easing == nil {
		return progress
	}
	return t.Easing(progress)
}

// Linear is the identity easing.
func Linear(progress float64) float64 { return progress }
