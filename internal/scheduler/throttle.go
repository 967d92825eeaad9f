package scheduler

import (
	"sync"
	"time"
)

// warnThrottle rate-limits failure warnings so a persistently failing tick
// loop does not flood the log: at most one warning per interval.
type warnThrottle struct {
	mu       sync.Mutex
	now      func() time.Time
	interval time.Duration
	last     time.Time
}

func newWarnThrottle(interval time.Duration, now func() time.Time) *warnThrottle {
	if interval <= 0 {
		interval = time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &warnThrottle{now: now, interval: interval}
}

// Allow reports whether a warning may be emitted now, and if so claims the
// slot.
func (t *warnThrottle) Allow() bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.now()
	if !t.last.IsZero() && current.Sub(t.last) < t.interval {
		return false
	}
	t.last = current
	return true
}
