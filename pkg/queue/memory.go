// queue package

package queue

import (
	"context"
	"sync"
)

const (
	// DefaultMaxSize represents the default maximum size of a queue
	DefaultMaxSize = 1024
)

// InMemoryQueue implements an in-memory queue backed by a slice.
// Enqueue never blocks; items beyond maxSize are rejected.
type InMemoryQueue[T any] struct {
	lock    sync.Mutex
	items   []T
	maxSize int
	closed  bool
	// notify is signalled (non-blocking) whenever an item is added or the queue closes
	notify chan struct{}
}

// NewInMemoryQueue creates a new queue holding at most maxSize items.
// A maxSize of zero or less means DefaultMaxSize.
func NewInMemoryQueue[T any](maxSize int) *InMemoryQueue[T] {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &InMemoryQueue[T]{
		maxSize: maxSize,
		notify:  make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the end of the queue.
func (q *InMemoryQueue[T]) Enqueue(item T) error {
	q.lock.Lock()
	defer q.lock.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if len(q.items) >= q.maxSize {
		return ErrQueueFull
	}
	q.items = append(q.items, item)
	q.signal()
	return nil
}

// Dequeue removes and returns the item from the front of the queue.
// Items enqueued before Close are still drained before ErrQueueClosed is returned.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) (T, error) {
	for {
		q.lock.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			if len(q.items) > 0 {
				q.signal()
			}
			q.lock.Unlock()
			return item, nil
		}
		if q.closed {
			// pass the wakeup on to any other waiter
			q.signal()
			q.lock.Unlock()
			var zero T
			return zero, ErrQueueClosed
		}
		q.lock.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.notify:
		}
	}
}

// Size returns the current size of the queue.
func (q *InMemoryQueue[T]) Size() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return len(q.items)
}

// ReadAll removes and returns all pending items in the queue
func (q *InMemoryQueue[T]) ReadAll() []T {
	q.lock.Lock()
	defer q.lock.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Clear drops all pending items.
func (q *InMemoryQueue[T]) Clear() {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.items = nil
}

// Close stops the queue from accepting items and wakes any waiting Dequeue.
// It is safe to call more than once.
func (q *InMemoryQueue[T]) Close() {
	q.lock.Lock()
	defer q.lock.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.signal()
}

// signal must be called with the lock held.
func (q *InMemoryQueue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
