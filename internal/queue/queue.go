// Package queue provides a fixed-capacity FIFO that evicts its oldest
// element when a push would overflow it. Indicators use it to hold the last
// N inputs.
//
// A Queue is not safe for concurrent use; indicators own theirs.
package queue

import (
	"fmt"

	"tautils/internal/errs"
)

// Queue is a circular buffer of at most Cap() elements.
type Queue[T any] struct {
	buf   []T
	head  int // index of the oldest element
	count int

	// evicted counts elements dropped by Push on a full queue.
	evicted uint64
}

// New creates a queue holding up to capacity elements.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, errs.InvalidParameter("capacity=%d", capacity)
	}
	return &Queue[T]{buf: make([]T, capacity)}, nil
}

// Push appends v. When the queue is full the oldest element is removed and
// returned with ok=true.
func (q *Queue[T]) Push(v T) (old T, ok bool) {
	if q.count < len(q.buf) {
		q.buf[(q.head+q.count)%len(q.buf)] = v
		q.count++
		return old, false
	}
	old = q.buf[q.head]
	q.buf[q.head] = v
	q.head = (q.head + 1) % len(q.buf)
	q.evicted++
	return old, true
}

// Pop removes and returns the oldest element.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.count == 0 {
		return zero, false
	}
	v := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return v, true
}

// Front returns the oldest element without removing it.
func (q *Queue[T]) Front() (T, bool) {
	return q.At(0)
}

// Back returns the newest element without removing it.
func (q *Queue[T]) Back() (T, bool) {
	return q.At(q.count - 1)
}

// At returns the i-th element counting from the oldest.
func (q *Queue[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= q.count {
		return zero, false
	}
	return q.buf[(q.head+i)%len(q.buf)], true
}

// Values copies the contents oldest first.
func (q *Queue[T]) Values() []T {
	out := make([]T, q.count)
	for i := range out {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	return out
}

// Len returns the number of stored elements.
func (q *Queue[T]) Len() int { return q.count }

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int { return len(q.buf) }

// IsFull reports whether the next Push evicts.
func (q *Queue[T]) IsFull() bool { return q.count == len(q.buf) }

// Evicted returns the total number of elements dropped by Push.
func (q *Queue[T]) Evicted() uint64 { return q.evicted }

// Reset empties the queue. The eviction counter is kept.
func (q *Queue[T]) Reset() {
	var zero T
	for i := range q.buf {
		q.buf[i] = zero
	}
	q.head = 0
	q.count = 0
}

func (q *Queue[T]) String() string {
	return fmt.Sprintf("Queue(%d/%d)", q.count, len(q.buf))
}
