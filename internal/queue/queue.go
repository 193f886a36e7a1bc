// Package queue provides the bounded FIFO connecting listeners, parse workers
// and delivery workers.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Push after Close.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded, thread-safe FIFO backed by a buffered channel.
// Closing the queue lets consumers drain what is left and then observe the end.
type Queue[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	closed bool
}

// New creates a queue holding at most size items.
func New[T any](size int) *Queue[T] {
	if size < 1 {
		size = 1
	}
	return &Queue[T]{ch: make(chan T, size)}
}

// Push enqueues v, blocking while the queue is full.
func (q *Queue[T]) Push(ctx context.Context, v T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryPush enqueues v without blocking. It returns false if the queue is full or closed.
func (q *Queue[T]) TryPush(v T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// Pop dequeues the next item. ok is false once the queue is closed and empty,
// or when ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (v T, ok bool) {
	select {
	case v, ok = <-q.ch:
		return v, ok
	case <-ctx.Done():
		return v, false
	}
}

// Close stops accepting items. It waits for in-flight Push calls, so producers
// blocked on a full queue must be cancelled first.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap returns the queue bound.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}

// Utilization returns Len/Cap in [0, 1].
func (q *Queue[T]) Utilization() float64 {
	return float64(len(q.ch)) / float64(cap(q.ch))
}
