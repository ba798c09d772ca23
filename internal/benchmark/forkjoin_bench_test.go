package benchmark

import (
	"fmt"
	"sync"
	"testing"

	"github.com/vnykmshr/forkflow/pkg/scheduling/forkjoin"
)

const sumN = 1 << 20

func sumLeaf(lo, hi int) int64 {
	var s int64
	for i := lo; i < hi; i++ {
		s += int64(i)
	}
	return s
}

func add(a, b int64) int64 { return a + b }

// BenchmarkForkJoinReduce measures a full reduction across pool sizes.
func BenchmarkForkJoinReduce(b *testing.B) {
	workerCounts := []int{1, 2, 4, 8}

	for _, workers := range workerCounts {
		b.Run(workerLabel(workers), func(b *testing.B) {
			pool, err := forkjoin.NewSafe(forkjoin.Config{Parallelism: workers})
			if err != nil {
				b.Fatalf("failed to create pool: %v", err)
			}
			defer func() { <-pool.Shutdown() }()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := forkjoin.Reduce(pool, 0, sumN, 4096, sumLeaf, add); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkForkJoinJoinPolicy compares parked and helping joins.
func BenchmarkForkJoinJoinPolicy(b *testing.B) {
	for _, policy := range []forkjoin.JoinPolicy{forkjoin.JoinPark, forkjoin.JoinHelp} {
		b.Run(policy.String(), func(b *testing.B) {
			pool, err := forkjoin.NewSafe(forkjoin.Config{Parallelism: 4, JoinPolicy: policy})
			if err != nil {
				b.Fatalf("failed to create pool: %v", err)
			}
			defer func() { <-pool.Shutdown() }()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := forkjoin.Reduce(pool, 0, sumN, 1024, sumLeaf, add); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkGoroutinePerSplit is the naive baseline: one goroutine per fork.
func BenchmarkGoroutinePerSplit(b *testing.B) {
	var split func(lo, hi int) int64
	split = func(lo, hi int) int64 {
		if hi-lo <= 4096 {
			return sumLeaf(lo, hi)
		}
		mid := lo + (hi-lo)/2
		var right int64
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			right = split(mid, hi)
		}()
		left := split(lo, mid)
		wg.Wait()
		return left + right
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = split(0, sumN)
	}
}

// BenchmarkSubmit measures root submission and join round trips.
func BenchmarkSubmit(b *testing.B) {
	pool := forkjoin.New(4)
	defer func() { <-pool.Shutdown() }()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, err := forkjoin.Go(pool, func(*forkjoin.Worker) (int, error) { return i, nil })
		if err != nil {
			b.Fatal(err)
		}
		if _, err := h.Join(); err != nil {
			b.Fatal(err)
		}
	}
}

func workerLabel(workers int) string {
	return fmt.Sprintf("workers-%d", workers)
}

func sizeLabel(size int) string {
	switch {
	case size >= 1000:
		return "1k"
	case size >= 100:
		return "100"
	default:
		return "10"
	}
}
