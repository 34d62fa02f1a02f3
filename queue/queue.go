// Package queue provides the unbounded FIFO queue backing message fan-out.
// Producers never block; consumers block until an element arrives or their
// context is canceled. The queue is the single total order of the system:
// elements are dequeued in exactly the order they were enqueued.
package queue

import (
	"context"
	"sync"
)

// Queue is an unbounded, goroutine-safe FIFO queue.
// The zero value is not usable; call New.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	wake  chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		wake: make(chan struct{}, 1),
	}
}

// Enqueue appends one element. It never blocks; the queue grows without
// bound under fast producers, a deliberate tradeoff inherited from the
// design (no backpressure). Queue depth is surfaced by the monitor worker.
func (q *Queue[T]) Enqueue(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest element, blocking while the queue
// is empty. It returns ctx.Err() when the context is canceled first.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len reports the current number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
