// Package clock abstracts the timer operations the connection manager
// depends on, so reconnect scheduling can be driven deterministically
// in tests.
//
// Production code uses Real(). Tests use Fake(), which only advances
// when Advance is called and records every scheduled delay.
package clock

import "time"

// Clock is the subset of the time package used for scheduling.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc waits for d, then calls f in its own goroutine (real)
	// or synchronously during Advance (fake).
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled call.
type Timer interface {
	// Stop prevents the timer from firing. Returns true if the call
	// stops the timer, false if it already fired or was stopped.
	Stop() bool
}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
