package animation

import (
	"fmt"
	"time"
)

// TransitionStatus represents the current state of a transition.
//
// The status follows this state machine:
//
//	                Forward()
//	Dismissed ──────────────────► Completed
//	    ▲                              │
//	    │         Reverse()            │
//	    └──────────────────────────────┘
//
// While running, status is TransitionForward or TransitionReverse. When
// stopped, status is TransitionDismissed (at 0) or TransitionCompleted (at 1).
type TransitionStatus int

const (
	// TransitionDismissed means the transition is stopped at 0.
	TransitionDismissed TransitionStatus = iota
	// TransitionForward means the transition is running toward 1.
	TransitionForward
	// TransitionReverse means the transition is running toward 0.
	TransitionReverse
	// TransitionCompleted means the transition is stopped at 1.
	TransitionCompleted
)

// String returns a human-readable representation of the status.
func (s TransitionStatus) String() string {
	switch s {
	case TransitionDismissed:
		return "dismissed"
	case TransitionForward:
		return "forward"
	case TransitionReverse:
		return "reverse"
	case TransitionCompleted:
		return "completed"
	default:
		return fmt.Sprintf("TransitionStatus(%d)", int(s))
	}
}

// Transition drives a value from 0 to 1 and back under a Timing contract.
//
// Enter mixins run it Forward when a node mounts; exit mixins run it Reverse
// and detach the node once the status reaches TransitionDismissed. Reversing
// mid-flight starts from the current value, which is what makes reclaimed
// nodes continue smoothly instead of jumping.
//
// Always call Dispose when done to stop the ticker and release listeners.
type Transition struct {
	timing          Timing
	runTiming       Timing
	value           float64
	status          TransitionStatus
	ticker          *Ticker
	target          float64
	startValue      float64
	listeners       map[int]func()
	statusListeners map[int]func(TransitionStatus)
	nextListenerID  int
}

// NewTransition creates a transition at value 0 with the given timing.
func NewTransition(timing Timing) *Transition {
	return &Transition{
		timing:          timing,
		status:          TransitionDismissed,
		listeners:       make(map[int]func()),
		statusListeners: make(map[int]func(TransitionStatus)),
	}
}

// Value returns the current eased value in [0, 1].
func (tr *Transition) Value() float64 { return tr.value }

// SetTiming replaces the timing used by subsequent Forward and Reverse runs.
// A run already in flight keeps its original timing.
func (tr *Transition) SetTiming(timing Timing) { tr.timing = timing }

// Status returns the current status.
func (tr *Transition) Status() TransitionStatus { return tr.status }

// IsRunning returns true while the transition is moving.
func (tr *Transition) IsRunning() bool {
	return tr.status == TransitionForward || tr.status == TransitionReverse
}

// Forward runs from the current value toward 1.
func (tr *Transition) Forward() {
	tr.animateTo(1, TransitionForward)
}

// Reverse runs from the current value toward 0.
func (tr *Transition) Reverse() {
	tr.animateTo(0, TransitionReverse)
}

func (tr *Transition) animateTo(target float64, direction TransitionStatus) {
	if tr.ticker != nil {
		tr.ticker.Stop()
	}

	tr.target = target
	tr.startValue = tr.value
	tr.runTiming = tr.timing
	tr.setStatus(direction)

	if tr.runTiming.Duration <= 0 {
		tr.value = target
		tr.notifyListeners()
		tr.settle()
		return
	}

	tr.ticker = NewTicker(func(elapsed time.Duration) {
		tr.tick(elapsed)
	})
	tr.ticker.Start()
}

func (tr *Transition) tick(elapsed time.Duration) {
	if elapsed < tr.runTiming.Delay {
		return
	}
	progress := float64(elapsed-tr.runTiming.Delay) / float64(tr.runTiming.Duration)
	if progress >= 1.0 {
		progress = 1.0
	}

	eased := tr.runTiming.ease(progress)
	tr.value = tr.startValue + (tr.target-tr.startValue)*eased
	tr.notifyListeners()

	if progress >= 1.0 {
		tr.settle()
	}
}

// settle stops the ticker and resolves the terminal status from the value.
func (tr *Transition) settle() {
	if tr.ticker != nil {
		tr.ticker.Stop()
		tr.ticker = nil
	}
	if tr.value <= 0 {
		tr.setStatus(TransitionDismissed)
	} else if tr.value >= 1 {
		tr.setStatus(TransitionCompleted)
	}
}

// Stop halts the transition at its current value without resolving a
// terminal status.
func (tr *Transition) Stop() {
	if tr.ticker != nil {
		tr.ticker.Stop()
		tr.ticker = nil
	}
}

// AddListener adds a callback that fires whenever the value changes.
// Returns an unsubscribe function.
func (tr *Transition) AddListener(fn func()) func() {
	id := tr.nextListenerID
	tr.nextListenerID++
	tr.listeners[id] = fn
	return func() {
		delete(tr.listeners, id)
	}
}

// AddStatusListener adds a callback that fires whenever the status changes.
// Returns an unsubscribe function.
func (tr *Transition) AddStatusListener(fn func(TransitionStatus)) func() {
	id := tr.nextListenerID
	tr.nextListenerID++
	tr.statusListeners[id] = fn
	return func() {
		delete(tr.statusListeners, id)
	}
}

func (tr *Transition) setStatus(status TransitionStatus) {
	if tr.status == status {
		return
	}
	tr.status = status
	for _, listener := range tr.statusListeners {
		listener(status)
	}
}

func (tr *Transition) notifyListeners() {
	for _, listener := range tr.listeners {
		listener()
	}
}

// Dispose stops the transition and releases listeners.
func (tr *Transition) Dispose() {
	tr.Stop()
	tr.listeners = nil
	tr.statusListeners = nil
}
