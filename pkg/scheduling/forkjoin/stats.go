package forkjoin

// WorkerStats is a snapshot of one worker's counters.
type WorkerStats struct {
	ID         int
	State      WorkerState
	Generation int

	Executed    int64
	Failed      int64
	Forks       int64
	Steals      int64
	StealAborts int64
	InlineJoins int64
	ParkedJoins int64
	Helped      int64

	QueueDepth int
	InboxDepth int
}

// Stats is a snapshot of pool activity. Counters are cumulative since the
// pool was created and are read without a global lock, so totals can be
// slightly inconsistent with each other while the pool is busy.
type Stats struct {
	Name string
	ID   string
	Size int

	Submitted int64
	Rejected  int64
	Cancelled int64
	Lost      int64
	Restarts  int64

	Live     int64
	Idle     int
	Degraded bool

	Workers []WorkerStats
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	s := Stats{
		Name:      p.cfg.Name,
		ID:        p.id,
		Size:      len(p.workers),
		Submitted: p.submitted.Load(),
		Rejected:  p.rejected.Load(),
		Cancelled: p.cancelled.Load(),
		Lost:      p.lostTasks.Load(),
		Restarts:  p.restarts.Load(),
		Live:      p.live.Load(),
		Idle:      int(p.idle.Load()),
		Degraded:  p.degraded.Load(),
		Workers:   make([]WorkerStats, len(p.workers)),
	}
	for i, w := range p.workers {
		s.Workers[i] = w.stats()
	}
	return s
}

func (w *Worker) stats() WorkerStats {
	return WorkerStats{
		ID:          w.id,
		State:       w.State(),
		Generation:  int(w.generation.Load()),
		Executed:    w.counters.executed.Load(),
		Failed:      w.counters.failed.Load(),
		Forks:       w.counters.forks.Load(),
		Steals:      w.counters.steals.Load(),
		StealAborts: w.counters.stealAborts.Load(),
		InlineJoins: w.counters.inlineJoins.Load(),
		ParkedJoins: w.counters.parkedJoins.Load(),
		Helped:      w.counters.helped.Load(),
		QueueDepth:  w.deque.Len(),
		InboxDepth:  w.inbox.len(),
	}
}

// Totals sums the per-worker counters. ID and State are left zero.
func (s Stats) Totals() WorkerStats {
	var t WorkerStats
	for _, w := range s.Workers {
		t.Generation += w.Generation
		t.Executed += w.Executed
		t.Failed += w.Failed
		t.Forks += w.Forks
		t.Steals += w.Steals
		t.StealAborts += w.StealAborts
		t.InlineJoins += w.InlineJoins
		t.ParkedJoins += w.ParkedJoins
		t.Helped += w.Helped
		t.QueueDepth += w.QueueDepth
		t.InboxDepth += w.InboxDepth
	}
	return t
}
