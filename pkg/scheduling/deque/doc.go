/*
Package deque provides the per-worker work-stealing deque used by the
fork/join scheduler.

The deque follows the Chase-Lev design: the owning worker pushes and pops
at the bottom end, while other workers steal from the top end.

	owner:  PushBottom / PopBottom      (LIFO, no contention in the common case)
	thief:  Steal                       (FIFO, one CAS on top)

	 top                       bottom
	  |                          |
	  v                          v
	[ t0 | t1 | t2 | t3 | t4 |    ...    ]
	  ^ oldest                ^ newest

Basic usage:

	d := deque.New[job](64)

	// owner goroutine
	d.PushBottom(&job{})
	if j := d.PopBottom(); j != nil {
		run(j)
	}

	// any other goroutine
	if j, status := d.Steal(); status == deque.Success {
		run(j)
	}

Races:

Only two races exist. Thieves race each other for top, and the owner races
thieves when a single element remains. Both are settled by a compare-and-swap
on top; the loser sees nil (owner) or Abort (thief). A thief that aborts
should try another victim instead of retrying the same deque in a tight loop.

Growth:

When the ring is full, PushBottom copies [top, bottom) into a ring twice the
size and publishes it atomically. Old rings are never written again, so a
thief holding a stale ring either reads the right element or fails its CAS.

Thread Safety:

PushBottom, PopBottom and PopBottomIf must only be called by the owning
goroutine. Steal, Len, Cap and Empty are safe from any goroutine.
*/
package deque
