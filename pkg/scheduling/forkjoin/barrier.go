package forkjoin

import (
	"sync"
	"sync/atomic"
	"time"
)

// joinBarrier resolves one fork/join pair. done is stored after the
// task's result, so a joiner that observes done also observes the result.
// The wait channel is only allocated when someone actually parks.
type joinBarrier struct {
	done atomic.Bool

	mu sync.Mutex
	ch chan struct{}
}

func (b *joinBarrier) isDone() bool {
	return b.done.Load()
}

// release must be called exactly once.
func (b *joinBarrier) release() {
	b.mu.Lock()
	b.done.Store(true)
	if b.ch != nil {
		close(b.ch)
	}
	b.mu.Unlock()
}

func (b *joinBarrier) channel() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ch == nil {
		b.ch = make(chan struct{})
		if b.done.Load() {
			close(b.ch)
		}
	}
	return b.ch
}

func (b *joinBarrier) wait() {
	if b.isDone() {
		return
	}
	<-b.channel()
}

// waitFor parks on the barrier until it is released or timer fires, and
// reports whether it was released. timer must be stopped and is left
// stopped.
func (b *joinBarrier) waitFor(timer *time.Timer, d time.Duration) bool {
	if b.isDone() {
		return true
	}
	timer.Reset(d)
	defer timer.Stop()
	select {
	case <-b.channel():
		return true
	case <-timer.C:
		return b.isDone()
	}
}
