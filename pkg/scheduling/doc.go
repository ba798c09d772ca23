/*
Package scheduling groups the task scheduling packages.

  - forkjoin: Work-stealing pool for divide-and-conquer tasks
  - deque: Lock-free deque each forkjoin worker schedules from
  - reporter: Periodic statistics logging for a forkjoin pool

Fork/join:

Tasks fork subtasks onto the running worker's deque and join them later.
Idle workers steal the oldest pending task from a random peer:

	pool := forkjoin.New(4)
	defer func() { <-pool.Shutdown() }()

	h, _ := forkjoin.Go(pool, func(w *forkjoin.Worker) (int, error) {
		left := forkjoin.NewTask(leftHalf).Fork(w)
		r, err := rightHalf(w)
		if err != nil {
			return 0, err
		}
		l, err := left.Join(w)
		return l + r, err
	})
	sum, err := h.Join()

Reporter:

	rep, _ := reporter.New(pool, reporter.Config{Schedule: "@every 10s", Logger: logger})
	rep.Start()
	defer func() { <-rep.Stop() }()

All scheduling components are safe for concurrent use.
*/
package scheduling
