package forkjoin

import (
	"sync/atomic"
)

const (
	stateNew int32 = iota
	statePending
	stateRunning
	stateDone
)

// Func is the body of a task. w is the worker executing it and is the
// handle through which the body forks and joins subtasks.
type Func[T any] func(w *Worker) (T, error)

// task is the type-erased part of a Task that deques, inboxes and workers
// handle.
type task struct {
	id        atomic.Uint64
	state     atomic.Int32
	cancelReq atomic.Bool
	barrier   joinBarrier

	// err is written once, before barrier.release.
	err error

	// exec runs the typed body and stores its value.
	exec func(w *Worker) error

	// pool is set before the task becomes pending and is nil for tasks
	// that only ever run through Invoke.
	pool *Pool
}

func (t *task) base() *task { return t }

// complete publishes err and wakes joiners.
func (t *task) complete(err error) {
	t.err = err
	t.barrier.release()
}

// resolve settles a pending task that will never run. It reports false
// when the task had already started or been settled.
func (t *task) resolve(err error) bool {
	if !t.state.CompareAndSwap(statePending, stateDone) {
		return false
	}
	t.complete(err)
	if p := t.pool; p != nil {
		p.taskSettled(err)
	}
	return true
}

func (t *task) cancel() bool {
	t.cancelReq.Store(true)
	if t.state.CompareAndSwap(stateNew, stateDone) {
		t.complete(ErrCancelled)
		return true
	}
	return t.resolve(ErrCancelled)
}

// Task is a unit of work producing a value of type T. A task is forked or
// submitted at most once; it may be joined any number of times.
type Task[T any] struct {
	task
	fn    Func[T]
	value T
}

// NewTask creates a task around fn.
func NewTask[T any](fn Func[T]) *Task[T] {
	if fn == nil {
		panic("forkjoin: nil task function")
	}
	t := &Task[T]{fn: fn}
	t.exec = t.call
	return t
}

// Action creates a task that produces no value.
func Action(fn func(w *Worker) error) *Task[struct{}] {
	if fn == nil {
		panic("forkjoin: nil task function")
	}
	return NewTask(func(w *Worker) (struct{}, error) {
		return struct{}{}, fn(w)
	})
}

func (t *Task[T]) call(w *Worker) error {
	v, err := t.fn(w)
	t.value = v
	return err
}

// Fork pushes t onto w's deque and returns immediately. Forking a task that
// was cancelled before it was scheduled is a no-op; forking any other task
// twice panics. Fork must be called from the goroutine running w.
func (t *Task[T]) Fork(w *Worker) *Task[T] {
	if w == nil {
		panic("forkjoin: Fork called outside a worker")
	}
	w.fork(&t.task)
	return t
}

// Join returns the task's value and error, running it on w when it is still
// at the bottom of w's deque. With a nil w, Join only waits, which suits
// goroutines that are not pool workers.
func (t *Task[T]) Join(w *Worker) (T, error) {
	if w == nil {
		if t.state.Load() == stateNew {
			panic("forkjoin: Join on a task that was never scheduled")
		}
		t.barrier.wait()
	} else {
		w.join(&t.task)
	}
	return t.value, t.err
}

// Invoke runs an unscheduled task directly on the calling goroutine and
// returns its result.
func (t *Task[T]) Invoke(w *Worker) (T, error) {
	if !t.state.CompareAndSwap(stateNew, stateRunning) {
		if t.barrier.isDone() && t.err == ErrCancelled {
			return t.value, t.err
		}
		panic("forkjoin: Invoke on a task that was already scheduled")
	}
	if w == nil {
		runDetached(&t.task)
	} else {
		w.runTask(&t.task)
	}
	return t.value, t.err
}

// Cancel prevents t from running if it has not started yet and reports
// whether it did so. A running task only sees the request through
// Worker.Cancelled.
func (t *Task[T]) Cancel() bool {
	return t.cancel()
}

// Done reports whether the task has completed.
func (t *Task[T]) Done() bool {
	return t.barrier.isDone()
}

// Err returns the task's error once it is done, and nil before that.
func (t *Task[T]) Err() error {
	if !t.barrier.isDone() {
		return nil
	}
	return t.err
}

// ID returns the identifier assigned when the task was scheduled, or 0.
func (t *Task[T]) ID() uint64 {
	return t.id.Load()
}

// Joinable is implemented by every *Task[T]. It lets helpers such as
// InvokeAll schedule tasks of different result types together.
type Joinable interface {
	Done() bool
	Err() error
	Cancel() bool
	base() *task
}
