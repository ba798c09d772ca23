package main

import (
	"fmt"
	"time"

	"github.com/vnykmshr/forkflow/pkg/scheduling/forkjoin"
)

// leafFor returns the per-range computation for a workload name.
func leafFor(work string) (func(lo, hi int) uint64, error) {
	switch work {
	case "sum":
		return sumLeaf, nil
	case "mix":
		return mixLeaf, nil
	default:
		return nil, fmt.Errorf("unknown workload %q (want sum or mix)", work)
	}
}

func sumLeaf(lo, hi int) uint64 {
	var s uint64
	for i := lo; i < hi; i++ {
		s += uint64(i)
	}
	return s
}

func mixLeaf(lo, hi int) uint64 {
	var acc uint64
	for i := lo; i < hi; i++ {
		x := uint64(i)
		for k := 0; k < 64; k++ {
			x = x*6364136223846793005 + 1442695040888963407
		}
		acc += x >> 33
	}
	return acc
}

func add(a, b uint64) uint64 { return a + b }

// run is one timed reduction over 0..=n.
type run struct {
	result  uint64
	elapsed time.Duration
}

func reduceOnce(pool *forkjoin.Pool, s settings) (run, error) {
	leaf, err := leafFor(s.Work)
	if err != nil {
		return run{}, err
	}
	start := time.Now()
	v, err := forkjoin.Reduce(pool, 0, s.N+1, s.Threshold, leaf, add)
	return run{result: v, elapsed: time.Since(start)}, err
}

// expected returns the closed-form answer when one exists.
func expected(s settings) (uint64, bool) {
	if s.Work != "sum" {
		return 0, false
	}
	n := uint64(s.N)
	return n * (n + 1) / 2, true
}
