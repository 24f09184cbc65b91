// Package animation provides the timing primitives behind enter and exit
// transitions.
//
// The engine does not own an animation system. It owns a clock, tickers, and
// the Timing contract that mixins consume; easing curves and physics belong
// to collaborating libraries and arrive as plain func(float64) float64
// values.
//
// # Components
//
//   - [Clock] and [SetClock]: the package time source, replaceable in tests.
//
//   - [Ticker]: calls back with elapsed time while active. Tickers advance
//     only when [StepTickers] runs, which the test harness and demo loops call
//     once per simulated frame.
//
//   - [Transition]: drives a value from 0 to 1 and back with a
//     dismissed/forward/reverse/completed status machine. Exit mixins reverse a
//     transition mid-flight when a node is reclaimed.
//
// # Driving frames
//
// Nothing advances on its own. A loop that wants animation progress steps the
// clock and the tickers together:
//
//	clock.Advance(16 * time.Millisecond)
//	animation.StepTickers()
package animation

import (
	"sync"
	"time"
)

var (
	tickerMu      sync.Mutex
	activeTickers = make(map[*Ticker]struct{})
)

// Ticker calls a callback with elapsed time on each frame while active.
//
// Ticker is the low-level primitive under [Transition]. The callback receives
// the time elapsed since Start, measured on the package clock.
type Ticker struct {
	callback func(elapsed time.Duration)
	active   bool
	start    time.Time
}

// NewTicker creates an inactive ticker with the given callback.
func NewTicker(callback func(elapsed time.Duration)) *Ticker {
	return &Ticker{callback: callback}
}

// Start activates the ticker and resets its elapsed time.
func (t *Ticker) Start() {
	if t.active {
		return
	}
	t.active = true
	t.start = Now()
	tickerMu.Lock()
	activeTickers[t] = struct{}{}
	tickerMu.Unlock()
}

// Stop deactivates the ticker.
func (t *Ticker) Stop() {
	if !t.active {
		return
	}
	t.active = false
	tickerMu.Lock()
	delete(activeTickers, t)
	tickerMu.Unlock()
}

// IsActive returns whether the ticker is currently running.
func (t *Ticker) IsActive() bool {
	return t.active
}

// Elapsed returns the time since the ticker started.
func (t *Ticker) Elapsed() time.Duration {
	if !t.active {
		return 0
	}
	return Now().Sub(t.start)
}

// StepTickers advances all active tickers against the package clock.
// Call it once per frame.
func StepTickers() {
	tickerMu.Lock()
	if len(activeTickers) == 0 {
		tickerMu.Unlock()
		return
	}
	// Copy so the lock is not held during callbacks.
	tickers := make([]*Ticker, 0, len(activeTickers))
	for ticker := range activeTickers {
		tickers = append(tickers, ticker)
	}
	tickerMu.Unlock()

	for _, ticker := range tickers {
		if ticker.active && ticker.callback != nil {
			elapsed := Now().Sub(ticker.start)
			ticker.callback(elapsed)
		}
	}
}

// HasActiveTickers returns true if any tickers are active.
func HasActiveTickers() bool {
	tickerMu.Lock()
	defer tickerMu.Unlock()
	return len(activeTickers) > 0
}

// ActiveTickerCount returns the number of active tickers.
func ActiveTickerCount() int {
	tickerMu.Lock()
	defer tickerMu.Unlock()
	return len(activeTickers)
}
