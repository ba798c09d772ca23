/*
Package forkjoin provides a work-stealing scheduler for divide-and-conquer
computations.

A Pool owns a fixed set of workers. Each worker has its own deque: tasks a
worker forks are pushed onto the bottom of its deque and popped from there
(LIFO), while idle workers steal the oldest task from the top of someone
else's deque (FIFO). There is no central run queue.

Basic usage:

	pool := forkjoin.New(4)
	defer pool.Shutdown()

	h, err := forkjoin.Go(pool, func(w *forkjoin.Worker) (int64, error) {
		return sumRange(w, 0, 1_000_001)
	})
	if err != nil {
		return err // pool is shutting down
	}
	total, err := h.Join()

Forking and joining:

Task bodies receive the *Worker executing them. Fork pushes a subtask onto
that worker's deque and returns at once; Join waits for it:

	func sumRange(w *forkjoin.Worker, lo, hi int64) (int64, error) {
		if hi-lo <= 1000 {
			return sequentialSum(lo, hi), nil
		}
		mid := lo + (hi-lo)/2
		right := forkjoin.NewTask(func(w *forkjoin.Worker) (int64, error) {
			return sumRange(w, mid, hi)
		}).Fork(w)

		left, err := sumRange(w, lo, mid)
		if err != nil {
			return 0, err
		}
		r, err := right.Join(w)
		return left + r, err
	}

Join does not always block. If the joined task is still at the bottom of
the caller's deque nobody stole it, and the joining worker runs it inline.
If it is buried under newer local tasks those run first. Only a task that
was stolen makes the joiner wait, either parked on the task's barrier
(JoinPark, the default) or stealing other work meanwhile (JoinHelp).

Reduce, ForEach and InvokeAll cover the common decomposition shapes.

Results and errors:

Join returns exactly one of three kinds of outcome:
  - the task's value with a nil error
  - the error the task returned, unchanged, or a *PanicError if it panicked
  - a scheduler error: ErrRejected, ErrWorkerLost or ErrCancelled

IsSchedulerError tells the last kind apart from task failures.

Shutdown:

Shutdown rejects new submissions and lets everything already submitted or
forked run to completion. ShutdownNow stops each worker after its current
task and fails every task that has not started with ErrCancelled. Both may
be called repeatedly and return a channel that closes once all workers
have exited.

Supervision:

A worker goroutine that exits abnormally, for example because a task
called runtime.Goexit, fails the tasks it was running and the tasks left in
its deque with ErrWorkerLost. The pool then starts a replacement, or marks
itself degraded when Config.DisableRestart is set.

Thread Safety:

Pool methods, Submit, Handle methods and Task.Cancel, Done, Err and ID are
safe for concurrent use. Fork, Join with a non-nil worker, and the other
Worker methods must only be called from the task running on that worker.
Blocking inside a task body holds a worker and should be avoided.
*/
package forkjoin
