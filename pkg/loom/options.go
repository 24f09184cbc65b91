package loom

import (
	"time"

	"github.com/go-loom/loom/pkg/animation"
	"github.com/go-loom/loom/pkg/config"
	"github.com/go-loom/loom/pkg/core"
)

// DefaultFrameInterval is the animation stepping cadence Run uses unless
// WithFrameInterval overrides it.
const DefaultFrameInterval = 16 * time.Millisecond

// Option configures a Root at construction.
type Option func(*options)

type options struct {
	tree          []core.TreeOption
	clock         animation.Clock
	inspectorAddr string
	frame         time.Duration
}

func defaultOptions() options {
	return options{frame: DefaultFrameInterval}
}

// WithMaxRenderCycles caps how many times one component may re-render within
// a single flush before the loop guard aborts the batch. Values below 1 keep
// core.DefaultMaxRenderCycles.
func WithMaxRenderCycles(n int) Option {
	return func(o *options) {
		o.tree = append(o.tree, core.WithMaxRenderCycles(n))
	}
}

// WithPatchTrace records every host mutation the reconciler performs.
func WithPatchTrace(trace core.PatchTrace) Option {
	return func(o *options) {
		o.tree = append(o.tree, core.WithPatchTrace(trace))
	}
}

// WithClock installs c as the animation package clock before the root builds.
// The clock is package state shared by every root in the process; tests use
// it to drive transitions deterministically.
func WithClock(c animation.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithInspector starts the debug inspector on addr (for example
// "127.0.0.1:7473", or a ":0" port for an ephemeral one; read it back from
// Root.InspectorAddr). A bind failure is reported on the root's error channel
// instead of failing construction.
func WithInspector(addr string) Option {
	return func(o *options) { o.inspectorAddr = addr }
}

// WithFrameInterval sets the cadence at which Run steps animation tickers.
func WithFrameInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.frame = d
		}
	}
}

// WithConfig applies the loom.yaml settings that concern a root: the loop
// guard limit and the inspector port. Nil configs are ignored; input settings
// are consumed by the mixins that read them, not by the root.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		if cfg.Scheduler.MaxRenderCycles > 0 {
			o.tree = append(o.tree, core.WithMaxRenderCycles(cfg.Scheduler.MaxRenderCycles))
		}
		if addr := cfg.InspectorAddr(); addr != "" {
			o.inspectorAddr = addr
		}
	}
}
