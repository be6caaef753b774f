package progress

import (
	"sync"
	"time"
)

// Tracker converts item counts into percentage events within a band of the
// overall 0-100 range. Events are only emitted when the integer percentage
// changes.
type Tracker struct {
	reporter  Reporter
	total     int
	from, to  int
	current   int
	lastSent  int
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewTracker creates a tracker for total items mapped onto [from, to].
func NewTracker(reporter Reporter, total, from, to int) *Tracker {
	if reporter == nil {
		reporter = Discard
	}
	from, to = clamp(from), clamp(to)
	if to < from {
		to = from
	}
	return &Tracker{
		reporter: reporter,
		total:    total,
		from:     from,
		to:       to,
		lastSent: -1,
	}
}

// Start begins tracking and reports the start of the band.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = time.Now()
	t.started = true
	t.current = 0
	t.lastSent = -1
	t.report()
}

// Update sets the current progress to the specified value.
func (t *Tracker) Update(current int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}
	t.current = min(max(current, 0), t.total)
	t.report()
}

// Increment increases the current progress by delta.
func (t *Tracker) Increment(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}
	t.current = min(t.current+delta, t.total)
	t.report()
}

// Finish reports the end of the band.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return
	}
	t.current = t.total
	t.report()
}

// Current returns the number of items processed so far.
func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Elapsed returns the time elapsed since Start was called.
func (t *Tracker) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return 0
	}
	return time.Since(t.startTime)
}

// Rate returns items processed per second.
func (t *Tracker) Rate() float64 {
	elapsed := t.Elapsed().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(t.Current()) / elapsed
}

// report emits the current percentage. Must be called with lock held.
func (t *Tracker) report() {
	percent := t.to
	if t.total > 0 {
		percent = t.from + (t.to-t.from)*t.current/t.total
	} else if t.current == 0 && t.lastSent < 0 {
		percent = t.from
	}
	if percent == t.lastSent {
		return
	}
	t.lastSent = percent
	t.reporter.Report(Progress(percent))
}
