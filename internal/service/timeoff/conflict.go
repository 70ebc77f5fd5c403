package timeoff

import (
	"context"
	"sync"
	"time"

	"github.com/glowhouse/portal-backend-go/internal/domain/timeoff"
)

// DefaultDebounce is the quiescence window for interactive conflict checks.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer coalesces bursts of calls into one, fired after a quiet period.
// Each Call replaces any pending one; only the last survives.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	stopped bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay}
}

// Call schedules fn to run after the quiescence window. A pending fn that has
// not fired yet is discarded.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending call and rejects future ones. Safe to call more
// than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// ConflictWatcher backs the interactive date picker: while the employee is
// still typing dates, repeated Check calls collapse into a single repository
// query once input has been quiet for the debounce window. Results are
// informational only and never block a submission.
type ConflictWatcher struct {
	requests timeoff.RequestRepository
	debounce *Debouncer
	deliver  func([]timeoff.Conflict, error)
}

func NewConflictWatcher(requests timeoff.RequestRepository, delay time.Duration, deliver func([]timeoff.Conflict, error)) *ConflictWatcher {
	return &ConflictWatcher{
		requests: requests,
		debounce: NewDebouncer(delay),
		deliver:  deliver,
	}
}

// Check schedules a conflict lookup for the range, replacing any pending one.
func (w *ConflictWatcher) Check(ctx context.Context, start, end time.Time, excludeEmail string) {
	w.debounce.Call(func() {
		if ctx.Err() != nil {
			return
		}
		conflicts, err := w.requests.FindConflicts(ctx, start, end, excludeEmail)
		w.deliver(conflicts, err)
	})
}

// Close cancels any pending lookup. The watcher must not deliver after Close.
func (w *ConflictWatcher) Close() {
	w.debounce.Stop()
}
