package forkjoin

import "go.uber.org/zap"

// join waits for t on w. It runs t inline when t is still the bottom of
// w's deque, runs newer local tasks while t is buried beneath them, and
// otherwise waits according to the pool's JoinPolicy. On return t is done.
func (w *Worker) join(t *task) {
	if t.barrier.isDone() {
		return
	}
	if t.state.CompareAndSwap(stateNew, stateRunning) {
		w.runTask(t)
		return
	}

	prevState := w.State()
	defer w.setState(prevState)

	policy := w.pool.cfg.JoinPolicy
	for !t.barrier.isDone() {
		w.setState(StateJoining)

		if w.deque.PopBottomIf(t) {
			w.counters.inlineJoins.Add(1)
			w.execute(t)
			continue
		}

		// Anything still on the local deque was pushed after t, or t was
		// stolen; either way running it is progress.
		if local := w.deque.PopBottom(); local != nil {
			w.execute(local)
			continue
		}

		// Root tasks submitted to this worker, t among them when it was
		// submitted from inside the pool.
		if queued := w.inbox.pop(); queued != nil {
			w.execute(queued)
			continue
		}

		if policy == JoinHelp && w.pool.mode.Load() != modeImmediate {
			if other := w.steal(); other != nil {
				w.counters.helped.Add(1)
				w.execute(other)
				continue
			}
			w.counters.parkedJoins.Add(1)
			t.barrier.waitFor(w.timer, w.pool.cfg.HelpWaitInterval)
			continue
		}

		w.counters.parkedJoins.Add(1)
		w.park(t)
	}
}

// park blocks until t is done. If the pool stops immediately first, the
// worker settles its own queued tasks with ErrCancelled and then waits
// only for t's current runner, which is itself bound to stop.
func (w *Worker) park(t *task) {
	select {
	case <-t.barrier.channel():
		return
	case <-w.pool.ctx.Done():
	}
	if n := w.drain(ErrCancelled); n > 0 {
		w.logger().Debug("abandoned queued tasks while joining", zap.Int("tasks", n))
	}
	t.barrier.wait()
}

// InvokeAll forks every task but the first, runs the first inline, then
// joins the rest newest first. It returns the first error in argument
// order.
func InvokeAll(w *Worker, tasks ...Joinable) error {
	switch len(tasks) {
	case 0:
		return nil
	case 1:
		return invoke(w, tasks[0].base())
	}

	for i := len(tasks) - 1; i > 0; i-- {
		w.fork(tasks[i].base())
	}
	first := invoke(w, tasks[0].base())

	errs := make([]error, len(tasks))
	errs[0] = first
	for i := 1; i < len(tasks); i++ {
		t := tasks[i].base()
		w.join(t)
		errs[i] = t.err
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func invoke(w *Worker, t *task) error {
	if t.state.CompareAndSwap(stateNew, stateRunning) {
		w.runTask(t)
		return t.err
	}
	w.join(t)
	return t.err
}
