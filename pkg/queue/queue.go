package queue

import (
	"context"
	"errors"
)

var (
	// ErrQueueClosed is returned when operating on a closed queue
	ErrQueueClosed = errors.New("queue closed")
	// ErrQueueFull is returned when an item would exceed the queue's capacity
	ErrQueueFull = errors.New("queue full")
)

// Queue represents a basic FIFO queue.
// Implementations must be thread-safe.
type Queue[T any] interface {
	// Enqueue adds an item to the end of the queue without blocking.
	Enqueue(item T) error
	// Dequeue blocks until an item is available, the queue is closed or ctx is done.
	Dequeue(ctx context.Context) (T, error)
	Size() int
	ReadAll() []T
	Clear()
	Close()
}
