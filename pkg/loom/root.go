// Package loom is the public entry point of the engine: it binds a component
// tree to one host document and drives it.
//
// A Root owns everything below one container node. Render commits a
// descriptor tree, Scope.Update requests re-renders that the scheduler
// batches, and Flush applies pending work synchronously. Long-running apps
// hand the draining to Run, which flushes on scheduler wake-ups and steps
// animation tickers on a frame cadence. Failures inside components never
// unwind into the caller; they surface as structured records on the root's
// error channel.
package loom

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-loom/loom/pkg/animation"
	"github.com/go-loom/loom/pkg/core"
	"github.com/go-loom/loom/pkg/errors"
	"github.com/go-loom/loom/pkg/host"
	"github.com/go-loom/loom/pkg/inspect"
)

// ErrorListener receives failure records surfaced by a root.
type ErrorListener func(rec errors.Record)

// Root binds a committed tree to one container node of one host document.
type Root struct {
	id        string
	doc       host.Document
	container host.Node
	tree      *core.Tree
	inspector *inspect.Server
	frame     time.Duration

	mu        sync.Mutex
	listeners []ErrorListener
	stopFwd   func()
	disposed  bool
}

// New creates a root rendering into container. The container's existing
// children are left alone. Platform "error" events dispatched at the
// container are forwarded onto the root's error channel until Dispose.
func New(doc host.Document, container host.Node, opts ...Option) *Root {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.clock != nil {
		animation.SetClock(cfg.clock)
	}

	r := &Root{
		id:        uuid.NewString(),
		doc:       doc,
		container: container,
		frame:     cfg.frame,
	}
	treeOpts := append([]core.TreeOption{core.WithReporter(r.dispatch)}, cfg.tree...)
	r.tree = core.NewTree(doc, container, treeOpts...)
	r.stopFwd = container.AddListener(host.ErrorEvent, false, r.forwardError)

	if cfg.inspectorAddr != "" {
		srv := inspect.New(inspect.Sources{
			RootID:   r.ID,
			Snapshot: r.tree.Snapshot,
			Stats:    r.tree.Stats,
		})
		if _, err := srv.Start(cfg.inspectorAddr); err != nil {
			r.dispatch(errors.Record{
				Phase:     errors.PhaseSetup,
				Err:       err,
				Component: "inspector",
			})
		} else {
			r.inspector = srv
		}
	}
	return r
}

// ID returns the root's identity, carried on every error record it surfaces.
func (r *Root) ID() string {
	return r.id
}

// Render commits desc as the root's content, replacing what was previously
// rendered. The commit is flushed before Render returns. A zero descriptor
// clears the content. No-op after Dispose.
func (r *Root) Render(desc core.Descriptor) {
	r.tree.Render(desc)
}

// Flush synchronously drains pending updates, tasks, and post-commit hooks.
func (r *Root) Flush() {
	r.tree.Flush()
}

// Scheduler exposes the root's scheduler for task posting and wake-signal
// integration.
func (r *Root) Scheduler() *core.Scheduler {
	return r.tree.Scheduler()
}

// Stats returns scheduler counters.
func (r *Root) Stats() core.Stats {
	return r.tree.Stats()
}

// Snapshot returns the committed tree in serializable form.
func (r *Root) Snapshot() core.NodeSnapshot {
	return r.tree.Snapshot()
}

// InspectorAddr returns the inspector's bound address, or "" when no
// inspector is running. Useful with a ":0" configured port.
func (r *Root) InspectorAddr() string {
	if r.inspector == nil {
		return ""
	}
	return r.inspector.Addr()
}

// OnError subscribes fn to the root's failure records. The returned func
// removes the subscription and is safe to call more than once. While a root
// has no subscribers, records fall through to the errors package handler.
func (r *Root) OnError(fn ErrorListener) (remove func()) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	idx := len(r.listeners) - 1
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		if idx < len(r.listeners) {
			r.listeners[idx] = nil
		}
		r.mu.Unlock()
	}
}

// Dispose stops error-event forwarding, shuts the inspector down, and tears
// the committed tree down depth-first. Idempotent, and a no-op on the host
// when nothing was rendered. A disposed root cannot be reused.
func (r *Root) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	stop := r.stopFwd
	r.stopFwd = nil
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
	if r.inspector != nil {
		r.inspector.Close()
	}
	r.tree.Dispose()
	// Nudge the wake channel so a blocked Run observes the disposal.
	r.tree.Scheduler().Post(func() {})
}

// Disposed reports whether Dispose has run.
func (r *Root) Disposed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disposed
}

// Run drives the root cooperatively until ctx is cancelled or the root is
// disposed: it flushes whenever the scheduler signals pending work and steps
// animation tickers on the frame cadence. Returns ctx.Err() on cancellation
// and nil on disposal. Host mutation happens on the calling goroutine.
func (r *Root) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.frame)
	defer ticker.Stop()
	wake := r.tree.Scheduler().Wake()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
			if r.Disposed() {
				return nil
			}
			r.tree.Flush()
		case <-ticker.C:
			if r.Disposed() {
				return nil
			}
			if animation.HasActiveTickers() {
				animation.StepTickers()
				r.tree.Flush()
			}
		}
	}
}

// dispatch fans a record out to subscribers, stamping the root identity and
// capture time. With no live subscriber it falls back to errors.Report.
func (r *Root) dispatch(rec errors.Record) {
	if rec.Root == "" {
		rec.Root = r.id
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	r.mu.Lock()
	listeners := make([]ErrorListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	delivered := false
	for _, fn := range listeners {
		if fn != nil {
			fn(rec)
			delivered = true
		}
	}
	if !delivered {
		errors.Report(rec)
	}
}

func (r *Root) forwardError(ev host.Event) {
	r.dispatch(errors.Record{
		Phase: errors.PhaseEvent,
		Err:   eventError(ev.Data),
	})
}

// eventError normalizes an error event payload into an error.
func eventError(data any) error {
	if err, ok := data.(error); ok {
		return err
	}
	if data == nil {
		return fmt.Errorf("platform error")
	}
	return fmt.Errorf("platform error: %v", data)
}
