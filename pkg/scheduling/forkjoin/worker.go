package forkjoin

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/vnykmshr/forkflow/pkg/scheduling/deque"
)

// WorkerState is the coarse activity of a worker, as reported by Stats.
type WorkerState int32

const (
	StateIdle WorkerState = iota
	StateScanning
	StateExecuting
	StateJoining
	StateStopping
	StateStopped
)

func (s WorkerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateExecuting:
		return "executing"
	case StateJoining:
		return "joining"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WorkerState(%d)", int32(s))
	}
}

// workerCounters are written by the owning goroutine and read by Stats.
type workerCounters struct {
	executed    atomic.Int64
	failed      atomic.Int64
	forks       atomic.Int64
	steals      atomic.Int64
	stealAborts atomic.Int64
	inlineJoins atomic.Int64
	parkedJoins atomic.Int64
	helped      atomic.Int64
}

// Worker is one scheduler goroutine together with its deque. Task bodies
// receive the Worker running them and use it to fork and join.
type Worker struct {
	id   int
	pool *Pool

	deque *deque.Deque[task]
	inbox inbox

	// wake has room for one pending signal so that a wakeup sent before
	// the worker goes idle is not lost.
	wake chan struct{}

	// Owner-only state.
	current *task
	rng     *rand.Rand
	backoff *backoff.ExponentialBackOff
	timer   *time.Timer

	state      atomic.Int32
	generation atomic.Int32
	counters   workerCounters
}

func newWorker(p *Pool, id int) *Worker {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.cfg.IdleBackoffInitial
	b.MaxInterval = p.cfg.IdleBackoffMax
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.Reset()

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	return &Worker{
		id:      id,
		pool:    p,
		deque:   deque.New[task](p.cfg.DequeCapacity),
		wake:    make(chan struct{}, 1),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), uint64(id))),
		backoff: b,
		timer:   timer,
	}
}

// ID returns the worker's index in the pool.
func (w *Worker) ID() int { return w.id }

// Pool returns the pool the worker belongs to.
func (w *Worker) Pool() *Pool { return w.pool }

// Context returns the pool context, which is cancelled by ShutdownNow.
func (w *Worker) Context() context.Context { return w.pool.ctx }

// Cancelled reports whether the task currently running on w should stop
// early: it was cancelled, or the pool is shutting down immediately.
// Long-running task bodies are expected to poll it.
func (w *Worker) Cancelled() bool {
	if w.pool.mode.Load() == modeImmediate {
		return true
	}
	return w.current != nil && w.current.cancelReq.Load()
}

// State returns the worker's current state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

func (w *Worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) logger() *zap.Logger {
	return w.pool.logger.With(zap.Int("worker", w.id), zap.Int32("generation", w.generation.Load()))
}

// run is the main loop for a worker goroutine.
func (w *Worker) run() {
	p := w.pool
	clean := false

	defer p.wg.Done()
	defer func() {
		if !clean {
			w.lost(recover())
		}
	}()

	p.callHook(p.cfg.OnWorkerStart, w.id)

	for !p.shouldStop() {
		if t := w.next(); t != nil {
			w.backoff.Reset()
			w.execute(t)
			continue
		}
		w.idle()
	}

	w.stop()
	clean = true
}

// next finds a task: own deque first, then own inbox, then other workers.
func (w *Worker) next() *task {
	if t := w.deque.PopBottom(); t != nil {
		return t
	}
	if t := w.inbox.pop(); t != nil {
		return t
	}
	return w.steal()
}

// steal scans the other workers from a random start, taking the oldest
// task of the first victim that has one. A pass in which some steal
// aborted is repeated up to MaxStealRetries times. The worker reports
// StateScanning only while the scan is in progress.
func (w *Worker) steal() *task {
	p := w.pool
	n := len(p.workers)
	if n < 2 {
		return nil
	}

	prev := w.State()
	w.setState(StateScanning)
	defer w.setState(prev)

	for attempt := 0; attempt <= p.cfg.stealRetries(); attempt++ {
		aborted := false
		start := w.rng.IntN(n)
		for i := 0; i < n; i++ {
			victim := p.workers[(start+i)%n]
			if victim == w {
				continue
			}

			t, status := victim.deque.Steal()
			switch status {
			case deque.Success:
				w.counters.steals.Add(1)
				return t
			case deque.Abort:
				aborted = true
				w.counters.stealAborts.Add(1)
			}

			if t := victim.inbox.pop(); t != nil {
				w.counters.steals.Add(1)
				return t
			}
		}
		if !aborted {
			break
		}
	}
	return nil
}

func (w *Worker) idle() {
	p := w.pool
	w.setState(StateIdle)
	p.idle.Add(1)
	defer p.idle.Add(-1)

	// Re-check after advertising idleness so a wakeup is not missed.
	if p.shouldStop() || w.deque.Len() > 0 || w.inbox.len() > 0 {
		return
	}

	w.timer.Reset(w.backoff.NextBackOff())
	select {
	case <-w.wake:
		w.timer.Stop()
		w.backoff.Reset()
	case <-w.timer.C:
	}
}

// execute runs a task taken from a deque or inbox. Tasks that were
// cancelled while queued are skipped.
func (w *Worker) execute(t *task) {
	if w.pool.mode.Load() == modeImmediate {
		t.resolve(ErrCancelled)
		return
	}
	if !t.state.CompareAndSwap(statePending, stateRunning) {
		return
	}
	w.runTask(t)
}

// runTask executes a task that is already in the running state. A panic
// fails the task with a *PanicError. If the goroutine unwinds without
// returning or panicking (runtime.Goexit), the task fails with
// ErrWorkerLost and the worker is replaced by run's deferred handler.
func (w *Worker) runTask(t *task) {
	prev := w.current
	prevState := w.State()
	w.current = t
	w.setState(StateExecuting)

	finished := false
	defer func() {
		w.current = prev
		w.setState(prevState)
		if finished {
			return
		}
		if r := recover(); r != nil {
			w.pool.handlePanic(t, r)
			w.finish(t, &PanicError{Value: r, Stack: debug.Stack()})
			return
		}
		w.pool.lostTasks.Add(1)
		w.finish(t, ErrWorkerLost)
	}()

	err := t.exec(w)
	finished = true
	w.finish(t, err)
}

func (w *Worker) finish(t *task, err error) {
	w.counters.executed.Add(1)
	if err != nil {
		w.counters.failed.Add(1)
	}
	t.state.Store(stateDone)
	t.complete(err)
	if p := t.pool; p != nil {
		p.taskDone()
	}
}

// runDetached runs an invoked task on a goroutine that is not a worker.
func runDetached(t *task) {
	finished := false
	defer func() {
		if finished {
			return
		}
		var err error = ErrWorkerLost
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
		t.state.Store(stateDone)
		t.complete(err)
	}()

	err := t.exec(nil)
	finished = true
	t.state.Store(stateDone)
	t.complete(err)
}

// fork schedules t on this worker's deque.
func (w *Worker) fork(t *task) {
	p := w.pool
	if p.mode.Load() == modeImmediate {
		if t.state.CompareAndSwap(stateNew, stateDone) {
			t.complete(ErrCancelled)
			p.cancelled.Add(1)
			return
		}
	}

	t.pool = p
	t.id.Store(p.nextID.Add(1))
	if !t.state.CompareAndSwap(stateNew, statePending) {
		if t.barrier.isDone() && t.state.Load() == stateDone && t.err == ErrCancelled {
			return
		}
		panic("forkjoin: task forked or submitted more than once")
	}

	p.live.Add(1)
	w.counters.forks.Add(1)
	w.deque.PushBottom(t)
	p.signalIdle(w)
}

// drain settles everything left in the deque and inbox with err and
// returns how many tasks it settled.
func (w *Worker) drain(err error) int {
	n := 0
	for {
		t := w.deque.PopBottom()
		if t == nil {
			break
		}
		if t.resolve(err) {
			n++
		}
	}
	for _, t := range w.inbox.close() {
		if t.resolve(err) {
			n++
		}
	}
	return n
}

// stop is the clean exit path.
func (w *Worker) stop() {
	w.setState(StateStopping)
	if n := w.drain(ErrCancelled); n > 0 {
		w.logger().Debug("abandoned queued tasks", zap.Int("tasks", n))
	}
	w.timer.Stop()
	w.pool.callHook(w.pool.cfg.OnWorkerStop, w.id)
	w.setState(StateStopped)
}

// lost handles a worker goroutine that is unwinding abnormally. Every task
// it still holds fails with ErrWorkerLost; the worker is then replaced
// unless restarts are disabled or the pool is stopping immediately.
func (w *Worker) lost(recovered any) {
	p := w.pool
	w.current = nil
	w.setState(StateStopping)

	orphaned := w.drain(ErrWorkerLost)
	p.lostTasks.Add(int64(orphaned))

	fields := []zap.Field{zap.Int("orphaned", orphaned)}
	if recovered != nil {
		fields = append(fields, zap.Any("panic", recovered), zap.ByteString("stack", debug.Stack()))
	}
	w.logger().Error("worker lost", fields...)
	p.callHook(p.cfg.OnWorkerStop, w.id)

	if p.cfg.DisableRestart {
		w.setState(StateStopped)
		if p.degraded.CompareAndSwap(false, true) {
			p.logger.Warn("pool degraded", zap.Int("worker", w.id))
		}
		return
	}
	if p.mode.Load() == modeImmediate {
		w.setState(StateStopped)
		return
	}

	w.generation.Add(1)
	p.restarts.Add(1)
	w.inbox.reopen()
	w.logger().Info("worker restarted")

	p.wg.Add(1)
	go w.run()
}
