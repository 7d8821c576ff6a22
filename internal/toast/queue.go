package toast

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/metrics"
	"github.com/wedding-os/client/pkg/eventbus"
)

// Queue displays toasts one at a time.
type Queue struct {
	logger          *zap.Logger
	clock           clockwork.Clock
	surface         Surface
	events          *eventbus.Bus[Snapshot]
	defaultDuration time.Duration
	gap             time.Duration

	mu      sync.Mutex
	pending []Request
	state   State
	current Snapshot
	timer   clockwork.Timer
	gen     uint64
	closed  bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces the real clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

// WithDefaultDuration sets the duration used when a request does not set one.
func WithDefaultDuration(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.defaultDuration = d
		}
	}
}

// WithGap sets the pause between hiding one toast and showing the next.
func WithGap(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.gap = d
		}
	}
}

// New constructs an idle Queue. surface may be nil when only Events are consumed.
func New(logger *zap.Logger, surface Surface, opts ...Option) *Queue {
	q := &Queue{
		logger:          logger,
		clock:           clockwork.NewRealClock(),
		surface:         surface,
		events:          eventbus.New[Snapshot](),
		defaultDuration: DefaultDuration,
		gap:             DefaultGap,
		current:         Snapshot{Kind: KindInfo, State: StateIdle},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Events returns the bus every state change is published on, synchronously and in order.
// Subscribers run with the queue lock held and must not call back into the
// Queue (Show, Snapshot, Pending, Close); doing so deadlocks.
func (q *Queue) Events() *eventbus.Bus[Snapshot] {
	return q.events
}

// Show enqueues a toast. It never blocks on display and never fails.
func (q *Queue) Show(message string, opts ...ShowOption) {
	req := Request{Message: message, Duration: q.defaultDuration, Kind: KindInfo}
	for _, opt := range opts {
		opt(&req)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.pending = append(q.pending, req)
	metrics.ToastQueueDepth.Set(float64(len(q.pending)))
	q.advanceLocked()
}

// Success shows a success toast. duration <= 0 uses the default.
func (q *Queue) Success(message string, duration time.Duration) {
	q.Show(message, WithKind(KindSuccess), WithDuration(duration))
}

// Error shows an error toast. duration <= 0 uses the default.
func (q *Queue) Error(message string, duration time.Duration) {
	q.Show(message, WithKind(KindError), WithDuration(duration))
}

// Info shows an info toast. duration <= 0 uses the default.
func (q *Queue) Info(message string, duration time.Duration) {
	q.Show(message, WithKind(KindInfo), WithDuration(duration))
}

// Warning shows a warning toast. duration <= 0 uses the default.
func (q *Queue) Warning(message string, duration time.Duration) {
	q.Show(message, WithKind(KindWarning), WithDuration(duration))
}

// Snapshot returns the state currently rendered.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Pending returns how many toasts wait behind the current one.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops the active timer and drops pending toasts. Later Show calls are ignored.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.stopTimerLocked()
	if dropped := len(q.pending); dropped > 0 {
		q.logger.Debug("toast.queue_closed", zap.Int("dropped", dropped))
	}
	q.pending = nil
	metrics.ToastQueueDepth.Set(0)
}

// advanceLocked dequeues the next toast when nothing is on screen.
func (q *Queue) advanceLocked() {
	if q.state != StateIdle || len(q.pending) == 0 {
		return
	}

	req := q.pending[0]
	q.pending[0] = Request{}
	q.pending = q.pending[1:]
	metrics.ToastQueueDepth.Set(float64(len(q.pending)))

	q.state = StateShowing
	q.current = Snapshot{Message: req.Message, Kind: req.Kind, Visible: true, State: StateShowing}
	metrics.ToastShownTotal.WithLabelValues(string(req.Kind)).Inc()
	q.logger.Debug("toast.shown",
		zap.String("kind", string(req.Kind)),
		zap.Duration("duration", req.Duration),
		zap.Int("pending", len(q.pending)))
	q.renderLocked()

	q.armLocked(req.Duration, q.hideLocked)
}

// hideLocked runs when the visible toast's duration has elapsed.
func (q *Queue) hideLocked() {
	q.state = StateHiding
	q.current.Visible = false
	q.current.State = StateHiding
	q.renderLocked()

	q.armLocked(q.gap, q.resetLocked)
}

// resetLocked runs after the gap; it clears the text and shows the next toast.
func (q *Queue) resetLocked() {
	q.state = StateIdle
	q.current.Message = ""
	q.current.State = StateIdle
	q.renderLocked()

	q.advanceLocked()
}

// armLocked replaces the active timer. A timer that fires after being
// replaced or stopped sees a newer generation and does nothing.
func (q *Queue) armLocked(d time.Duration, fn func()) {
	q.stopTimerLocked()
	q.gen++
	gen := q.gen
	q.timer = q.clock.AfterFunc(d, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if q.closed || q.gen != gen {
			return
		}
		q.timer = nil
		fn()
	})
}

func (q *Queue) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.gen++
}

func (q *Queue) renderLocked() {
	snap := q.current
	if q.surface != nil {
		q.surface.Render(snap)
	}
	q.events.PublishSync(snap)
}
