package forkjoin

import (
	"testing"
	"time"

	"github.com/vnykmshr/forkflow/internal/testutil"
)

// stop shuts p down gracefully and waits for every worker to exit.
func stop(t *testing.T, p *Pool) {
	t.Helper()
	testutil.WaitClosed(t, p.Shutdown(), testutil.TestTimeout)
}

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	p, err := NewSafe(cfg)
	testutil.AssertNoError(t, err)
	return p
}

// sumRange sums [lo, hi) by recursive halving down to threshold.
func sumRange(w *Worker, lo, hi, threshold int64) (int64, error) {
	if hi-lo <= threshold {
		var s int64
		for i := lo; i < hi; i++ {
			s += i
		}
		return s, nil
	}
	mid := lo + (hi-lo)/2
	right := NewTask(func(w *Worker) (int64, error) {
		return sumRange(w, mid, hi, threshold)
	}).Fork(w)

	left, err := sumRange(w, lo, mid, threshold)
	if err != nil {
		return 0, err
	}
	r, err := right.Join(w)
	if err != nil {
		return 0, err
	}
	return left + r, nil
}

// blocker is a root task that holds its worker until released.
type blocker struct {
	started chan struct{}
	release chan struct{}
}

func newBlocker() *blocker {
	return &blocker{started: make(chan struct{}), release: make(chan struct{})}
}

func (b *blocker) task() *Task[bool] {
	return NewTask(func(w *Worker) (bool, error) {
		close(b.started)
		<-b.release
		return w.Cancelled(), nil
	})
}

func (b *blocker) waitStarted(t *testing.T) {
	t.Helper()
	testutil.WaitClosed(t, b.started, testutil.TestTimeout)
}

func (b *blocker) unblock() {
	close(b.release)
}

func joinWithin[T any](t *testing.T, h *Handle[T], d time.Duration) (T, error) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(d):
		t.Fatalf("task did not complete within %v", d)
	}
	return h.Join()
}

// scheduleOn queues t in the inbox of one specific worker, bypassing the
// round-robin placement of Submit.
func scheduleOn[T any](p *Pool, workerID int, t *Task[T]) bool {
	t.pool = p
	t.id.Store(p.nextID.Add(1))
	if !t.state.CompareAndSwap(stateNew, statePending) {
		return false
	}
	p.live.Add(1)
	if !p.workers[workerID].inbox.push(&t.task) {
		t.resolve(ErrRejected)
		return false
	}
	return true
}
