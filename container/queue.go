package container

import "context"

// Queue is a bounded FIFO. Enqueue blocks while it is full and Dequeue while
// it is empty; both give up when their context is done.
type Queue[T any] struct {
	items chan T
}

func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{items: make(chan T, capacity)}
}

func (q *Queue[T]) Enqueue(ctx context.Context, value T) error {
	select {
	case q.items <- value:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue[T]) Dequeue(ctx context.Context) (T, error) {
	select {
	case value := <-q.items:
		return value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryDequeue returns the head without blocking.
func (q *Queue[T]) TryDequeue() (T, bool) {
	select {
	case value := <-q.items:
		return value, true
	default:
		var zero T
		return zero, false
	}
}

// Ready exposes the queue for use in a select together with other signals.
func (q *Queue[T]) Ready() <-chan T {
	return q.items
}

func (q *Queue[T]) IsEmpty() bool {
	return q.Len() == 0
}

func (q *Queue[T]) Len() int {
	return len(q.items)
}

func (q *Queue[T]) Cap() int {
	return cap(q.items)
}
