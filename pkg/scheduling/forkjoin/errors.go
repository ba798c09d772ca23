package forkjoin

import (
	"errors"
	"fmt"

	gferrors "github.com/vnykmshr/forkflow/pkg/common/errors"
)

var (
	// ErrRejected is returned by Submit once the pool has begun shutting
	// down, or when no worker remains to accept the task. It wraps
	// errors.ErrClosed.
	ErrRejected = fmt.Errorf("forkjoin: task rejected: %w", gferrors.ErrClosed)

	// ErrWorkerLost resolves tasks that were running on, or queued for, a
	// worker goroutine that exited abnormally.
	ErrWorkerLost = errors.New("forkjoin: worker lost")

	// ErrCancelled resolves tasks cancelled before they started, including
	// tasks abandoned by ShutdownNow.
	ErrCancelled = errors.New("forkjoin: task cancelled")
)

// PanicError is the failure recorded for a task whose function panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("forkjoin: task panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsSchedulerError reports whether err was produced by the scheduler
// (rejection, worker loss or cancellation) rather than by a task function.
func IsSchedulerError(err error) bool {
	return errors.Is(err, ErrRejected) ||
		errors.Is(err, ErrWorkerLost) ||
		errors.Is(err, ErrCancelled)
}
