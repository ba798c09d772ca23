/*
Package forkflow provides a work-stealing fork/join scheduler for Go
applications that split CPU-bound work recursively.

Scheduling (pkg/scheduling):
  - forkjoin: Worker pool with per-worker deques, fork, join and Reduce
  - deque: Chase-Lev work-stealing deque
  - reporter: Cron-scheduled logging of pool statistics

Shared (pkg):
  - metrics: Prometheus configuration and collector helpers
  - common/errors, common/validation: Error types and config validation

Example usage:

	import "github.com/vnykmshr/forkflow/pkg/scheduling/forkjoin"

	pool := forkjoin.New(4) // 4 workers
	defer func() { <-pool.Shutdown() }()

	total, err := forkjoin.Reduce(pool, 0, 1_000_001, 1000,
		func(lo, hi int) int { ... }, // leaf
		func(a, b int) int { return a + b },
	)

The forkjoin command (cmd/forkjoin) runs and benchmarks reductions from the
command line.
*/
package forkflow
