package connection

import "time"

// Hooks receives instrumentation events from the manager. Calls happen
// on the event loop except SendRejected and MessageSent, which run on
// the caller of Send.
type Hooks interface {
	StateChanged(from, to State)
	DialAttempt()
	ReconnectScheduled(attempt int, delay time.Duration)
	GaveUp(attempts int)
	MessageReceived(size int)
	MessageSent(size int)
	SendRejected(reason error)
	TransportError()
}

type nopHooks struct{}

func (nopHooks) StateChanged(State, State)             {}
func (nopHooks) DialAttempt()                          {}
func (nopHooks) ReconnectScheduled(int, time.Duration) {}
func (nopHooks) GaveUp(int)                            {}
func (nopHooks) MessageReceived(int)                   {}
func (nopHooks) MessageSent(int)                       {}
func (nopHooks) SendRejected(error)                    {}
func (nopHooks) TransportError()                       {}
