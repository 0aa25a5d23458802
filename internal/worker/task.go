// Package worker runs short-lived background jobs with explicit
// cancellation, so the foreground loop never blocks on capture, remote
// calls or playback.
package worker

import (
	"context"
	"fmt"
)

// Task is a single background job producing a T
type Task[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}
	value  T
	err    error
}

// Go starts fn on a new goroutine. The task's context is derived from ctx
// and is cancelled by Cancel or when fn returns.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("worker panic: %v", r)
			}
		}()
		t.value, t.err = fn(ctx)
	}()
	return t
}

// Done is closed once the task has finished
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Cancel asks the task to stop; it does not wait
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes or ctx is done. Giving up on ctx
// does not cancel the task.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the outcome of a finished task. It must only be called
// after Done is closed.
func (t *Task[T]) Result() (T, error) {
	<-t.done
	return t.value, t.err
}
