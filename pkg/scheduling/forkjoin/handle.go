package forkjoin

import (
	"context"
	"time"

	gferrors "github.com/vnykmshr/forkflow/pkg/common/errors"
)

// Handle is returned by Submit and lets a goroutine outside the pool wait
// for a root task.
type Handle[T any] struct {
	task *Task[T]
}

// Join blocks until the task and everything it forked has completed.
func (h *Handle[T]) Join() (T, error) {
	h.task.barrier.wait()
	return h.task.value, h.task.err
}

// JoinContext is Join bounded by ctx. When ctx ends first it returns
// ctx.Err() and the task keeps running.
func (h *Handle[T]) JoinContext(ctx context.Context) (T, error) {
	if h.task.barrier.isDone() {
		return h.task.value, h.task.err
	}
	select {
	case <-h.task.barrier.channel():
		return h.task.value, h.task.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// JoinTimeout is Join bounded by d. On expiry the error wraps
// errors.ErrTimeout and the task keeps running.
func (h *Handle[T]) JoinTimeout(d time.Duration) (T, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	v, err := h.JoinContext(ctx)
	if err != nil && ctx.Err() != nil && !h.task.barrier.isDone() {
		return v, gferrors.NewOperationError(module, "Join", gferrors.ErrTimeout).
			WithContext(d.String())
	}
	return v, err
}

// Done returns a channel closed when the task completes.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.task.barrier.channel()
}

// Cancel cancels the task if it has not started yet.
func (h *Handle[T]) Cancel() bool {
	return h.task.cancel()
}

// Task returns the submitted task.
func (h *Handle[T]) Task() *Task[T] {
	return h.task
}
