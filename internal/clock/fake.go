package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a deterministic Clock. Time stands still until Advance
// is called; AfterFunc callbacks run synchronously inside Advance in
// deadline order. Do not call Advance from within a callback.
type FakeClock struct {
	mu        sync.Mutex
	current   time.Time
	waiters   []*fakeTimer
	scheduled []time.Duration
	changed   *sync.Cond
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Time
	callback func()
	stopped  bool
	fired    bool
}

// Fake returns a FakeClock set to initial.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc registers f to run once the clock is advanced by d.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{
		clock:    c,
		deadline: c.current.Add(d),
		callback: f,
	}
	c.waiters = append(c.waiters, t)
	c.scheduled = append(c.scheduled, d)
	c.changed.Broadcast()
	return t
}

// Stop cancels the timer.
func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	c.prune()
	c.changed.Broadcast()
	return true
}

// Advance moves the clock forward by d and fires every timer whose
// deadline has passed.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	now := c.current

	var due []*fakeTimer
	for _, t := range c.waiters {
		if !t.stopped && !t.fired && !t.deadline.After(now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.prune()
	c.changed.Broadcast()
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})
	for _, t := range due {
		t.callback()
	}
}

// Pending returns the number of timers that have neither fired nor
// been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// Scheduled returns every delay passed to AfterFunc, in call order.
func (c *FakeClock) Scheduled() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.scheduled))
	copy(out, c.scheduled)
	return out
}

// WaitForScheduled blocks until at least n calls to AfterFunc have
// been made or the timeout elapses. Returns false on timeout.
func (c *FakeClock) WaitForScheduled(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	expired := false
	wake := time.AfterFunc(timeout, func() {
		c.mu.Lock()
		expired = true
		c.changed.Broadcast()
		c.mu.Unlock()
	})
	defer wake.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.scheduled) < n {
		if expired || time.Now().After(deadline) {
			return false
		}
		c.changed.Wait()
	}
	return true
}

// prune drops stopped and fired timers. Must be called with lock held.
func (c *FakeClock) prune() {
	live := c.waiters[:0]
	for _, t := range c.waiters {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(c.waiters); i++ {
		c.waiters[i] = nil
	}
	c.waiters = live
}
