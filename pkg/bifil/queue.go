// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bifil

import "sync"

// Queue is a bounded FIFO with non-blocking push and pop. The engine
// instantiates one for each direction (TX filled by the host, drained by the
// link context; RX the other way around). Overflow policy is reject: Push
// reports failure and leaves the queue contents unchanged.
type Queue[T any] struct {
	mu    sync.Mutex
	buf   []T
	head  int
	count int
}

// NewQueue creates a queue with the given fixed capacity.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultQueueDepth
	}
	return &Queue[T]{buf: make([]T, capacity)}
}

// Push appends a value. It returns false without modifying the queue if the
// queue is full.
func (q *Queue[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.count)%len(q.buf)] = v
	q.count++
	return true
}

// Pop removes and returns the head value. The second result is false if the
// queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
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

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Space returns the number of free entries.
func (q *Queue[T]) Space() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) - q.count
}

// Full reports whether a Push would fail.
func (q *Queue[T]) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == len(q.buf)
}

// Empty reports whether a Pop would fail.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == 0
}

// Clear discards all queued values.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	for i := range q.buf {
		q.buf[i] = zero
	}
	q.head = 0
	q.count = 0
}
