// Package uitest provides a test harness owning a full engine stack: an
// in-memory host document, a root rendering into it, and a simulated
// animation clock.
//
// Time is fully simulated. Nothing advances unless the test steps frames
// through Frame or Settle, so transition timing is deterministic and tests
// never sleep. Failure records raised by the root are captured for
// assertion instead of reaching the package error handler.
package uitest

import (
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/go-loom/loom/pkg/animation"
	"github.com/go-loom/loom/pkg/core"
	loomerrors "github.com/go-loom/loom/pkg/errors"
	"github.com/go-loom/loom/pkg/host/memhost"
	"github.com/go-loom/loom/pkg/loom"
)

// DefaultFrame is how much simulated time one frame advances.
const DefaultFrame = 16 * time.Millisecond

// ErrSettleTimeout is returned when Settle exhausts its budget before the
// engine quiesces.
var ErrSettleTimeout = errors.New("settle timed out: engine did not quiesce")

// Harness drives one root against an in-memory host document.
type Harness struct {
	t     *testing.T
	doc   *memhost.Document
	body  *memhost.Node
	root  *loom.Root
	clock *Clock
	recs  []loomerrors.Record
}

// New creates a harness and installs its simulated clock as the animation
// package clock. Both are torn down through t.Cleanup: the root is disposed
// and the previous clock restored.
func New(t *testing.T, opts ...loom.Option) *Harness {
	t.Helper()
	clock := NewClock()
	prev := animation.SetClock(clock)

	doc := memhost.New()
	body := doc.Body()
	h := &Harness{t: t, doc: doc, body: body, clock: clock}
	h.root = loom.New(doc, body, opts...)
	h.root.OnError(func(rec loomerrors.Record) {
		h.recs = append(h.recs, rec)
	})

	t.Cleanup(func() {
		h.root.Dispose()
		animation.SetClock(prev)
	})
	return h
}

// Document returns the in-memory host document.
func (h *Harness) Document() *memhost.Document {
	return h.doc
}

// Body returns the container the root renders into.
func (h *Harness) Body() *memhost.Node {
	return h.body
}

// Root returns the root under test.
func (h *Harness) Root() *loom.Root {
	return h.root
}

// Clock returns the simulated clock.
func (h *Harness) Clock() *Clock {
	return h.clock
}

// Render commits desc as the root's content.
func (h *Harness) Render(desc core.Descriptor) {
	h.root.Render(desc)
}

// Flush synchronously applies pending updates and tasks.
func (h *Harness) Flush() {
	h.root.Flush()
}

// Frame advances one simulated frame: the clock moves DefaultFrame forward,
// active tickers step, and pending work flushes.
func (h *Harness) Frame() {
	h.clock.Advance(DefaultFrame)
	animation.StepTickers()
	h.root.Flush()
}

// Settle steps frames until the engine has no pending updates and no active
// tickers, or the simulated time budget runs out.
func (h *Harness) Settle(timeout time.Duration) error {
	var elapsed time.Duration
	for elapsed < timeout {
		h.root.Flush()
		if !h.pending() {
			return nil
		}
		h.clock.Advance(DefaultFrame)
		animation.StepTickers()
		elapsed += DefaultFrame
	}
	return ErrSettleTimeout
}

func (h *Harness) pending() bool {
	return h.root.Scheduler().Pending() || animation.HasActiveTickers()
}

// Find returns the first committed element with the given tag, failing the
// test when none exists.
func (h *Harness) Find(tag string) *memhost.Node {
	h.t.Helper()
	node := h.body.FindTag(tag)
	if node == nil {
		h.t.Fatalf("no %q element in:\n%s", tag, h.body.Format())
	}
	return node
}

// Fire dispatches a synthetic event at the first element with the given tag.
// Handlers run synchronously; updates they raise stay pending until a flush.
func (h *Harness) Fire(tag, event string, data any) {
	h.t.Helper()
	h.Find(tag).Dispatch(event, data)
}

// Edit simulates a user edit on the first element with the given tag: the
// live value moves and an input event fires.
func (h *Harness) Edit(tag, value string) {
	h.t.Helper()
	h.Find(tag).EditValue(value)
}

// Format renders the committed host tree as indented text.
func (h *Harness) Format() string {
	return h.body.Format()
}

// Snapshot returns the committed tree in serializable form.
func (h *Harness) Snapshot() core.NodeSnapshot {
	return h.root.Snapshot()
}

// Golden compares the formatted host tree against
// testdata/golden/<name>.golden, relative to the calling test's package.
// Regenerate with go test -update.
func (h *Harness) Golden(name string) {
	h.t.Helper()
	g := goldie.New(h.t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(h.t, name, []byte(h.body.Format()))
}

// Records returns the failure records captured so far.
func (h *Harness) Records() []loomerrors.Record {
	out := make([]loomerrors.Record, len(h.recs))
	copy(out, h.recs)
	return out
}
