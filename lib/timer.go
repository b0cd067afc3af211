package lib

import (
	"sync"
	"time"
)

// Timer is a re-armable one-shot timer. Each ScheduleAfter replaces any
// pending expiry; Unschedule cancels it. fn runs on its own goroutine.
type Timer struct {
	fn func()

	mu        sync.Mutex
	t         *time.Timer
	gen       uint64 // bumped on every arm/cancel so a stale expiry does nothing
	scheduled bool
}

func NewTimer(fn func()) *Timer {
	return &Timer{fn: fn}
}

func (t *Timer) ScheduleAfter(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.t != nil {
		t.t.Stop()
	}
	t.gen++
	gen := t.gen
	t.scheduled = true
	t.t = time.AfterFunc(d, func() { t.expire(gen) })
}

func (t *Timer) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.scheduled {
		t.mu.Unlock()
		return
	}
	t.scheduled = false
	t.mu.Unlock()
	t.fn()
}

func (t *Timer) Unschedule() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
	t.gen++
	t.scheduled = false
}

// Scheduled reports whether an expiry is pending.
func (t *Timer) Scheduled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scheduled
}
