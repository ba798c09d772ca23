package deque

import (
	"sync/atomic"
)

// DefaultCapacity is the initial ring size used when New is given a
// non-positive capacity.
const DefaultCapacity = 64

const minCapacity = 2

// cacheLinePad keeps top and bottom on separate cache lines so that
// thieves hammering top do not invalidate the owner's bottom.
type cacheLinePad [64]byte

// StealStatus reports the outcome of a Steal call.
type StealStatus int

const (
	// Empty means the deque held no elements when the thief looked.
	Empty StealStatus = iota

	// Abort means the thief lost a race for the top element, either to
	// another thief or to the owner taking the last element. The caller
	// should move on to another victim rather than spin here.
	Abort

	// Success means the returned element now belongs to the thief.
	Success
)

// String returns the status name.
func (s StealStatus) String() string {
	switch s {
	case Empty:
		return "empty"
	case Abort:
		return "abort"
	case Success:
		return "success"
	default:
		return "unknown"
	}
}

// ring is a power-of-two circular buffer. A ring is never shrunk or
// reused once it has been replaced by a larger one, so thieves holding a
// stale ring still read valid (if outdated) slots.
type ring[E any] struct {
	mask  int64
	slots []atomic.Pointer[E]
}

func newRing[E any](capacity int64) *ring[E] {
	return &ring[E]{
		mask:  capacity - 1,
		slots: make([]atomic.Pointer[E], capacity),
	}
}

func (r *ring[E]) capacity() int64 {
	return r.mask + 1
}

func (r *ring[E]) load(i int64) *E {
	return r.slots[i&r.mask].Load()
}

func (r *ring[E]) store(i int64, e *E) {
	r.slots[i&r.mask].Store(e)
}

// grow returns a ring twice the size holding the live range [top, bottom).
func (r *ring[E]) grow(top, bottom int64) *ring[E] {
	next := newRing[E](r.capacity() << 1)
	for i := top; i < bottom; i++ {
		next.store(i, r.load(i))
	}
	return next
}

// Deque is a growable Chase-Lev work-stealing deque.
//
// The owning goroutine pushes and pops at the bottom (LIFO). Any other
// goroutine may steal from the top (FIFO). The range [top, bottom) holds
// the live elements and top <= bottom holds whenever no operation is in
// flight.
//
// Owner-only: PushBottom, PopBottom, PopBottomIf.
// Any goroutine: Steal, Len, Cap, Empty.
type Deque[E any] struct {
	_ cacheLinePad

	// top is shared. Thieves advance it by CAS, and so does the owner
	// when it takes the last element.
	top atomic.Int64

	_ cacheLinePad

	// bottom is written by the owner only. It is atomic so that thieves
	// observe the slot store that precedes each increment.
	bottom atomic.Int64

	_ cacheLinePad

	// buf is replaced by the owner when it grows.
	buf atomic.Pointer[ring[E]]
}

// New creates a deque whose ring holds at least capacity elements before
// its first growth. Capacity is rounded up to a power of two.
func New[E any](capacity int) *Deque[E] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	d := &Deque[E]{}
	d.buf.Store(newRing[E](roundUp(int64(capacity))))
	return d
}

// PushBottom appends e at the bottom. Nil elements are ignored.
// Only the owner may call PushBottom.
func (d *Deque[E]) PushBottom(e *E) {
	if e == nil {
		return
	}

	b := d.bottom.Load()
	t := d.top.Load()
	r := d.buf.Load()

	if b-t >= r.capacity() {
		r = r.grow(t, b)
		d.buf.Store(r)
	}

	r.store(b, e)
	d.bottom.Store(b + 1)
}

// PopBottom removes and returns the most recently pushed element, or nil
// when the deque is empty or a thief won the race for the last element.
// Only the owner may call PopBottom.
func (d *Deque[E]) PopBottom() *E {
	b := d.bottom.Load() - 1
	r := d.buf.Load()
	d.bottom.Store(b)

	t := d.top.Load()
	if t > b {
		// Already empty; undo the speculative decrement.
		d.bottom.Store(b + 1)
		return nil
	}

	e := r.load(b)
	if t == b {
		// Last element: whoever advances top owns it.
		if !d.top.CompareAndSwap(t, t+1) {
			e = nil
		}
		d.bottom.Store(b + 1)
		return e
	}

	// No thief can be reading slot b here, so drop the reference and let
	// the element be collected once it completes.
	r.store(b, nil)
	return e
}

// PopBottomIf removes e only if it is currently the bottom element and
// reports whether it did. A false result means e was stolen, was never in
// this deque, or has newer elements above it.
// Only the owner may call PopBottomIf.
func (d *Deque[E]) PopBottomIf(e *E) bool {
	if e == nil {
		return false
	}

	b := d.bottom.Load() - 1
	if d.top.Load() > b {
		return false
	}
	if d.buf.Load().load(b) != e {
		return false
	}
	return d.PopBottom() == e
}

// Steal removes and returns the oldest element. It makes a single attempt
// and never retries: on Abort the caller decides whether to come back.
func (d *Deque[E]) Steal() (*E, StealStatus) {
	t := d.top.Load()
	b := d.bottom.Load()
	if t >= b {
		return nil, Empty
	}

	e := d.buf.Load().load(t)
	if e == nil {
		// The owner cleared this slot after popping it; our view of top
		// is stale.
		return nil, Abort
	}

	if !d.top.CompareAndSwap(t, t+1) {
		return nil, Abort
	}
	return e, Success
}

// Len returns a snapshot of the number of elements. It may be stale by the
// time it is returned.
func (d *Deque[E]) Len() int {
	b := d.bottom.Load()
	t := d.top.Load()
	if b <= t {
		return 0
	}
	return int(b - t)
}

// Empty reports whether the deque looked empty.
func (d *Deque[E]) Empty() bool {
	return d.Len() == 0
}

// Cap returns the capacity of the current ring.
func (d *Deque[E]) Cap() int {
	return int(d.buf.Load().capacity())
}

func roundUp(n int64) int64 {
	c := int64(minCapacity)
	for c < n {
		c <<= 1
	}
	return c
}
