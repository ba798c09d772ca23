package forkjoin

import (
	"sync"
	"sync/atomic"
)

// inbox holds root tasks submitted from outside the pool. Any goroutine may
// push, so it is a mutex queue; the deque stays single-producer.
type inbox struct {
	mu     sync.Mutex
	tasks  []*task
	head   int
	closed bool

	size atomic.Int32
}

func (q *inbox) push(t *task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, t)
	q.size.Add(1)
	return true
}

// pop removes the oldest task.
func (q *inbox) pop() *task {
	if q.size.Load() == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head == len(q.tasks) {
		return nil
	}
	t := q.tasks[q.head]
	q.tasks[q.head] = nil
	q.head++
	if q.head == len(q.tasks) {
		q.tasks = q.tasks[:0]
		q.head = 0
	}
	q.size.Add(-1)
	return t
}

// close rejects further pushes and returns whatever was still queued.
func (q *inbox) close() []*task {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	rest := q.tasks[q.head:]
	q.tasks = nil
	q.head = 0
	q.size.Store(0)
	return rest
}

func (q *inbox) reopen() {
	q.mu.Lock()
	q.closed = false
	q.mu.Unlock()
}

func (q *inbox) len() int {
	return int(q.size.Load())
}
