// Package queue provides the unbounded FIFO that sits between the
// transport goroutines and the connection manager's event loop.
//
// Producers (socket readers, dialers, timers) must never block on the
// consumer, so Push always succeeds while the queue is open and the
// ring grows instead of applying backpressure.
package queue

import "sync"

// Queue is a thread-safe FIFO ring that doubles its capacity when it
// reaches 70% full.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	ring   []T
	head   int // next pop position
	tail   int // next push position
	count  int
	closed bool

	pushed  int64
	popped  int64
	dropped int64
	grows   int
}

// Stats is a point-in-time view of a queue.
type Stats struct {
	Len     int
	Cap     int
	Pushed  int64
	Popped  int64
	Dropped int64 // pushes rejected after Close plus items discarded by Discard
	Grows   int
}

// New creates a queue with the given initial capacity.
func New[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &Queue[T]{ring: make([]T, initialCapacity)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends an item. Returns false if the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.dropped++
		return false
	}

	threshold := (len(q.ring) * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.ring[q.tail] = item
	q.tail = (q.tail + 1) % len(q.ring)
	q.count++
	q.pushed++

	q.cond.Signal()
	return true
}

// Pop removes the oldest item, blocking until one is available.
// After Close, remaining items are still returned; once the queue is
// closed and empty Pop returns the zero value and false.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.take(), true
}

// Close stops accepting new items and wakes all blocked consumers.
// Calling Close more than once is safe.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Discard drops every queued item and returns how many were dropped.
func (q *Queue[T]) Discard() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.count
	for q.count > 0 {
		q.take()
		q.popped--
	}
	q.dropped += int64(n)
	return n
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns queue statistics.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Len:     q.count,
		Cap:     len(q.ring),
		Pushed:  q.pushed,
		Popped:  q.popped,
		Dropped: q.dropped,
		Grows:   q.grows,
	}
}

// take removes the head item. Must be called with lock held and count > 0.
func (q *Queue[T]) take() T {
	item := q.ring[q.head]
	var zero T
	q.ring[q.head] = zero // release reference
	q.head = (q.head + 1) % len(q.ring)
	q.count--
	q.popped++
	return item
}

// grow doubles the ring. Must be called with lock held.
func (q *Queue[T]) grow() {
	next := make([]T, len(q.ring)*2)
	if q.count > 0 {
		if q.head < q.tail {
			copy(next, q.ring[q.head:q.tail])
		} else {
			n := copy(next, q.ring[q.head:])
			copy(next[n:], q.ring[:q.tail])
		}
	}
	q.ring = next
	q.head = 0
	q.tail = q.count
	q.grows++
}
