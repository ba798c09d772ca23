package forkjoin

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/forkflow/pkg/common/errors"
	"github.com/vnykmshr/forkflow/pkg/metrics"
)

const (
	modeRunning int32 = iota
	modeGraceful
	modeImmediate
)

// Pool is a fixed set of work-stealing workers.
type Pool struct {
	cfg    Config
	id     string
	logger *zap.Logger

	workers []*Worker

	// mode only moves forward: running, graceful, immediate.
	mode atomic.Int32

	// live counts scheduled tasks that have not completed.
	live atomic.Int64
	idle atomic.Int32

	nextID atomic.Uint64
	rr     atomic.Uint32

	submitted atomic.Int64
	rejected  atomic.Int64
	cancelled atomic.Int64
	lostTasks atomic.Int64
	restarts  atomic.Int64
	degraded  atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	wg       sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once

	collector prometheus.Collector
}

// New creates a pool with the given number of workers. A parallelism of 0
// uses runtime.GOMAXPROCS(0). It panics if parallelism is negative.
func New(parallelism int) *Pool {
	return NewWithConfig(Config{Parallelism: parallelism})
}

// NewWithConfig creates a pool from config and panics if config is invalid.
func NewWithConfig(config Config) *Pool {
	p, err := NewSafe(config)
	if err != nil {
		panic(err)
	}
	return p
}

// NewSafe creates a pool from config, returning a *errors.ValidationError
// instead of panicking when config is invalid.
func NewSafe(config Config) (*Pool, error) {
	if err := config.setDefaults(); err != nil {
		return nil, gferrors.NewOperationError(module, "NewSafe", err).WithContext("applying defaults")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:  config,
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
	p.logger = config.Logger.With(zap.String("pool", config.Name), zap.String("pool_id", p.id))
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.workers = make([]*Worker, config.Parallelism)
	for i := range p.workers {
		p.workers[i] = newWorker(p, i)
	}

	if config.Metrics.Enabled {
		p.registerMetrics()
	}

	p.wg.Add(len(p.workers))
	for _, w := range p.workers {
		go w.run()
	}

	p.logger.Info("pool started",
		zap.Int("parallelism", config.Parallelism),
		zap.Stringer("join_policy", config.JoinPolicy))
	return p, nil
}

func (p *Pool) registerMetrics() {
	c := NewCollector(p, p.cfg.Metrics)
	registered, err := metrics.Register[prometheus.Collector](p.cfg.Metrics.Registerer(), c)
	if err != nil {
		p.logger.Warn("metrics registration failed", zap.Error(err))
		return
	}
	if registered != prometheus.Collector(c) {
		p.logger.Warn("metrics already registered for a pool with this name")
		return
	}
	p.collector = c
}

// ID returns the pool's unique identifier.
func (p *Pool) ID() string { return p.id }

// Name returns the configured pool name.
func (p *Pool) Name() string { return p.cfg.Name }

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Degraded reports whether a worker was lost and not replaced.
func (p *Pool) Degraded() bool { return p.degraded.Load() }

// Done returns a channel that is closed once the pool has shut down and
// every worker has exited.
func (p *Pool) Done() <-chan struct{} { return p.done }

// Submit schedules t as a root task and returns a handle to its result.
// It never blocks. After shutdown it fails with an error matching
// ErrRejected.
func Submit[T any](p *Pool, t *Task[T]) (*Handle[T], error) {
	if t == nil {
		panic("forkjoin: Submit of a nil task")
	}
	if err := p.submit(&t.task); err != nil {
		return nil, err
	}
	return &Handle[T]{task: t}, nil
}

// Go wraps fn in a task and submits it.
func Go[T any](p *Pool, fn Func[T]) (*Handle[T], error) {
	return Submit(p, NewTask(fn))
}

func (p *Pool) submit(t *task) error {
	if p.mode.Load() != modeRunning {
		p.rejected.Add(1)
		return p.rejection("pool is shutting down")
	}

	// live is raised before the mode re-check: a draining worker must not
	// see zero live tasks while this submission is undecided.
	p.live.Add(1)
	if p.mode.Load() != modeRunning {
		p.taskDone()
		p.rejected.Add(1)
		return p.rejection("pool is shutting down")
	}

	t.pool = p
	t.id.Store(p.nextID.Add(1))
	if !t.state.CompareAndSwap(stateNew, statePending) {
		p.taskDone()
		panic("forkjoin: task forked or submitted more than once")
	}

	if !p.enqueue(t) {
		t.resolve(ErrRejected)
		p.rejected.Add(1)
		return p.rejection("no live workers")
	}
	p.submitted.Add(1)
	return nil
}

func (p *Pool) rejection(reason string) error {
	return gferrors.NewOperationError(module, "Submit", ErrRejected).WithContext(reason)
}

// enqueue places t in the inbox of the next open worker, round-robin.
func (p *Pool) enqueue(t *task) bool {
	n := len(p.workers)
	start := int(p.rr.Add(1) % uint32(n))
	for i := 0; i < n; i++ {
		w := p.workers[(start+i)%n]
		if w.inbox.push(t) {
			w.signal()
			return true
		}
	}
	return false
}

// signalIdle wakes one idle worker other than from.
func (p *Pool) signalIdle(from *Worker) {
	if p.idle.Load() == 0 {
		return
	}
	n := len(p.workers)
	for i := 1; i < n; i++ {
		w := p.workers[(from.id+i)%n]
		if w.State() == StateIdle {
			w.signal()
			return
		}
	}
}

func (p *Pool) wakeAll() {
	for _, w := range p.workers {
		w.signal()
	}
}

func (p *Pool) taskDone() {
	if p.live.Add(-1) <= 0 && p.mode.Load() != modeRunning {
		p.wakeAll()
	}
}

// taskSettled accounts for a pending task resolved without running.
func (p *Pool) taskSettled(err error) {
	if err == ErrCancelled {
		p.cancelled.Add(1)
	}
	p.taskDone()
}

func (p *Pool) shouldStop() bool {
	switch p.mode.Load() {
	case modeImmediate:
		return true
	case modeGraceful:
		return p.live.Load() <= 0
	default:
		return false
	}
}

// Shutdown stops accepting submissions, lets every queued and forked task
// run to completion, then stops the workers. The returned channel is
// closed once all workers have exited. Shutdown may be called any number
// of times.
func (p *Pool) Shutdown() <-chan struct{} {
	p.shutdown(modeGraceful)
	return p.done
}

// ShutdownNow stops accepting submissions and stops each worker after its
// current task. Tasks that have not started fail with ErrCancelled and the
// worker context is cancelled. It may follow Shutdown to escalate it.
func (p *Pool) ShutdownNow() <-chan struct{} {
	p.shutdown(modeImmediate)
	return p.done
}

// ShutdownWithTimeout shuts down gracefully and escalates to ShutdownNow
// if the pool has not stopped within timeout.
func (p *Pool) ShutdownWithTimeout(timeout time.Duration) <-chan struct{} {
	done := p.Shutdown()
	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			p.logger.Warn("graceful shutdown timed out", zap.Duration("timeout", timeout))
			p.ShutdownNow()
		}
	}()
	return done
}

func (p *Pool) shutdown(mode int32) {
	for {
		cur := p.mode.Load()
		if cur >= mode {
			break
		}
		if p.mode.CompareAndSwap(cur, mode) {
			if mode == modeImmediate {
				p.cancel()
				p.logger.Info("pool stopping immediately", zap.Int64("live", p.live.Load()))
			} else {
				p.logger.Info("pool draining", zap.Int64("live", p.live.Load()))
			}
			break
		}
	}

	p.doneOnce.Do(func() {
		go func() {
			p.wg.Wait()
			p.cancel()
			if p.collector != nil {
				p.cfg.Metrics.Registerer().Unregister(p.collector)
			}
			p.logger.Info("pool stopped",
				zap.Int64("submitted", p.submitted.Load()),
				zap.Int64("cancelled", p.cancelled.Load()),
				zap.Int64("lost", p.lostTasks.Load()))
			close(p.done)
		}()
	})
	p.wakeAll()
}

func (p *Pool) handlePanic(t *task, recovered any) {
	p.logger.Debug("task panicked", zap.Uint64("task", t.id.Load()), zap.Any("panic", recovered))
	if h := p.cfg.PanicHandler; h != nil {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("panic handler panicked", zap.Any("panic", r))
			}
		}()
		h(t.id.Load(), recovered)
	}
}

func (p *Pool) callHook(hook func(int), workerID int) {
	if hook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker hook panicked", zap.Int("worker", workerID), zap.Any("panic", r))
		}
	}()
	hook(workerID)
}
