package core

import (
	"slices"
	"sync"
	"time"

	"github.com/go-loom/loom/pkg/errors"
)

// DefaultMaxRenderCycles is how many times one instance may re-render within
// a single flush before the loop guard halts the batch.
const DefaultMaxRenderCycles = 64

// Stats are cumulative scheduler counters, exposed for the inspector and for
// tests.
type Stats struct {
	Flushes        int `json:"flushes"`
	Rebuilds       int `json:"rebuilds"`
	Tasks          int `json:"tasks"`
	PostCommits    int `json:"postCommits"`
	LoopAborts     int `json:"loopAborts"`
	PendingUpdates int `json:"pendingUpdates"`
	PendingTasks   int `json:"pendingTasks"`
}

// Scheduler batches update requests, tasks, and post-commit hooks for one
// tree. Requests raised from any goroutine funnel into the same queues;
// draining happens only inside Flush, on the calling goroutine.
//
// Update requests are deduplicated per instance per batch: however many times
// an instance is invalidated before the batch runs, it re-renders once.
type Scheduler struct {
	mu         sync.Mutex
	dirty      []*instance
	dirtySet   map[*instance]bool
	tasks      []func()
	postCommit []func()
	wake       chan struct{}
	flushing   bool
	maxCycles  int
	report     func(errors.Record)
	stats      Stats
}

func newScheduler(maxCycles int, report func(errors.Record)) *Scheduler {
	if maxCycles <= 0 {
		maxCycles = DefaultMaxRenderCycles
	}
	return &Scheduler{
		dirtySet:  make(map[*instance]bool),
		wake:      make(chan struct{}, 1),
		maxCycles: maxCycles,
		report:    report,
	}
}

// Post queues fn to run during the next flush, before any re-renders it
// causes. Safe to call from any goroutine.
func (s *Scheduler) Post(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, fn)
	s.mu.Unlock()
	s.signal()
}

// PostCommit queues fn to run once the current batch has committed: after
// the flush's tasks and re-renders have quiesced.
func (s *Scheduler) PostCommit(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.postCommit = append(s.postCommit, fn)
	s.mu.Unlock()
	s.signal()
}

// schedule queues an instance for re-render, deduplicated per batch.
func (s *Scheduler) schedule(inst *instance) {
	s.mu.Lock()
	if s.dirtySet[inst] {
		s.mu.Unlock()
		return
	}
	s.dirtySet[inst] = true
	inst.dirty = true
	s.dirty = append(s.dirty, inst)
	s.mu.Unlock()
	s.signal()
}

// signal wakes the drain loop. The buffer of one coalesces any number of
// pending signals.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Wake returns the channel that signals pending work, for select-based drain
// loops.
func (s *Scheduler) Wake() <-chan struct{} {
	return s.wake
}

// Pending reports whether any updates, tasks, or post-commit hooks await a
// flush.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty) > 0 || len(s.tasks) > 0 || len(s.postCommit) > 0
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.PendingUpdates = len(s.dirty)
	stats.PendingTasks = len(s.tasks)
	return stats
}

// MaxRenderCycles returns the loop guard's limit.
func (s *Scheduler) MaxRenderCycles() int {
	return s.maxCycles
}

// Flush drains pending work synchronously: tasks first, then re-renders in
// depth order, repeating until both are exhausted, then post-commit hooks.
// Work raised while flushing joins the same batch. Idempotent when idle, and
// a no-op when called from inside a flush.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.flushing {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	s.stats.Flushes++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.flushing = false
		s.mu.Unlock()
	}()

	cycles := make(map[*instance]int)
	for {
		if fn := s.nextTask(); fn != nil {
			s.runTask(fn)
			continue
		}
		batch := s.takeDirty()
		if len(batch) > 0 {
			if !s.runBatch(batch, cycles) {
				return
			}
			continue
		}
		hooks := s.takeHooks()
		if len(hooks) == 0 {
			return
		}
		for _, fn := range hooks {
			s.runHook(fn)
		}
	}
}

func (s *Scheduler) nextTask() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return nil
	}
	fn := s.tasks[0]
	s.tasks[0] = nil
	s.tasks = s.tasks[1:]
	return fn
}

func (s *Scheduler) takeDirty() []*instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dirty) == 0 {
		return nil
	}
	batch := s.dirty
	s.dirty = nil
	clear(s.dirtySet)
	slices.SortStableFunc(batch, func(a, b *instance) int {
		return a.depth - b.depth
	})
	return batch
}

func (s *Scheduler) takeHooks() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	hooks := s.postCommit
	s.postCommit = nil
	return hooks
}

// runBatch re-renders the batch in depth order, parents before children.
// Returns false when the loop guard aborted the flush.
func (s *Scheduler) runBatch(batch []*instance, cycles map[*instance]int) bool {
	for _, inst := range batch {
		if inst.disposed || !inst.mounted || !inst.dirty {
			continue
		}
		count := cycles[inst]
		if count >= s.maxCycles {
			s.abort(inst, count)
			return false
		}
		cycles[inst] = count + 1
		inst.rebuild()
		s.count(&s.stats.Rebuilds)
	}
	return true
}

// abort halts a runaway batch: the remaining update requests are discarded,
// leaving the tree at its last completed commit, and exactly one loop record
// is raised for the offending instance.
func (s *Scheduler) abort(inst *instance, cycles int) {
	s.mu.Lock()
	for _, pending := range s.dirty {
		pending.dirty = false
	}
	s.dirty = nil
	clear(s.dirtySet)
	s.stats.LoopAborts++
	s.mu.Unlock()
	inst.dirty = false

	s.report(errors.Record{
		Phase: errors.PhaseLoop,
		Err: &errors.LoopError{
			Component: inst.component.Name,
			Cycles:    cycles,
			Limit:     s.maxCycles,
		},
		Component:  inst.component.Name,
		StackTrace: errors.CaptureStack(),
		Timestamp:  time.Now(),
	})
}

// runTask runs one queued task. A panicking task is reported and does not
// abort the flush, so unrelated tasks queued in the same batch still run.
func (s *Scheduler) runTask(fn func()) {
	defer errors.RecoverWithCallback(errors.PhaseTask, "", s.report)
	s.count(&s.stats.Tasks)
	fn()
}

func (s *Scheduler) runHook(fn func()) {
	defer errors.RecoverWithCallback(errors.PhaseTask, "", s.report)
	s.count(&s.stats.PostCommits)
	fn()
}

func (s *Scheduler) count(field *int) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

// reset drops all pending work. Used on dispose.
func (s *Scheduler) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inst := range s.dirty {
		inst.dirty = false
	}
	s.dirty = nil
	clear(s.dirtySet)
	s.tasks = nil
	s.postCommit = nil
}
