package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AfterFuncFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	var fired atomic.Int32

	c.AfterFunc(time.Second, func() { fired.Add(1) })

	c.Advance(999 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("fired = %d before deadline, want 0", got)
	}

	c.Advance(time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d at deadline, want 1", got)
	}

	c.Advance(time.Hour)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired = %d after second advance, want 1", got)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestFake_StopPreventsFire(t *testing.T) {
	c := Fake(epoch)
	var fired atomic.Bool

	timer := c.AfterFunc(time.Second, func() { fired.Store(true) })
	if !timer.Stop() {
		t.Fatal("Stop() = false on pending timer")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}

	c.Advance(time.Minute)
	if fired.Load() {
		t.Error("stopped timer fired")
	}
}

func TestFake_FiresInDeadlineOrder(t *testing.T) {
	c := Fake(epoch)
	var order []int

	c.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	c.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	c.AfterFunc(2*time.Second, func() { order = append(order, 2) })

	c.Advance(5 * time.Second)

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestFake_ScheduledAndNow(t *testing.T) {
	c := Fake(epoch)
	c.AfterFunc(time.Second, func() {})
	c.AfterFunc(2*time.Second, func() {})

	got := c.Scheduled()
	if len(got) != 2 || got[0] != time.Second || got[1] != 2*time.Second {
		t.Errorf("Scheduled() = %v, want [1s 2s]", got)
	}

	c.Advance(90 * time.Second)
	if !c.Now().Equal(epoch.Add(90 * time.Second)) {
		t.Errorf("Now() = %v, want %v", c.Now(), epoch.Add(90*time.Second))
	}
}

func TestFake_WaitForScheduled(t *testing.T) {
	c := Fake(epoch)

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.AfterFunc(time.Second, func() {})
	}()

	if !c.WaitForScheduled(1, time.Second) {
		t.Fatal("WaitForScheduled(1) timed out")
	}
	if c.WaitForScheduled(2, 20*time.Millisecond) {
		t.Error("WaitForScheduled(2) = true, want timeout")
	}
}

func TestReal_AfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real().AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
