package forkjoin

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/vnykmshr/forkflow/internal/testutil"
)

func sumLeaf(lo, hi int) int64 {
	var s int64
	for i := lo; i < hi; i++ {
		s += int64(i)
	}
	return s
}

func add(a, b int64) int64 { return a + b }

func TestReduce(t *testing.T) {
	pool := New(4)
	defer stop(t, pool)

	tests := []struct {
		name      string
		n         int
		threshold int
	}{
		{"empty", 0, 1000},
		{"single", 1, 1000},
		{"below threshold", 999, 1000},
		{"at threshold", 1000, 1000},
		{"one split", 1001, 1000},
		{"threshold one", 257, 1},
		{"non-positive threshold", 100, 0},
		{"large", 1_000_000, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reduce(pool, 1, tt.n+1, tt.threshold, sumLeaf, add)
			testutil.AssertNoError(t, err)
			n := int64(tt.n)
			testutil.AssertEqual(t, got, n*(n+1)/2)
		})
	}
}

func TestReduceScenario(t *testing.T) {
	pool := New(4)
	defer stop(t, pool)

	got, err := Reduce(pool, 0, 1_000_001, 1000, sumLeaf, add)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, int64(500000500000))
}

func TestReduceMatchesSequential(t *testing.T) {
	pool := New(3)
	defer stop(t, pool)

	// A non-commutative but associative combine checks that pieces are
	// combined in index order.
	leaf := func(lo, hi int) []int {
		out := make([]int, 0, hi-lo)
		for i := lo; i < hi; i++ {
			out = append(out, i)
		}
		return out
	}
	concat := func(a, b []int) []int { return append(append([]int(nil), a...), b...) }

	got, err := Reduce(pool, 0, 5000, 37, leaf, concat)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(got), 5000)
	for i, v := range got {
		if v != i {
			t.Fatalf("element %d = %d", i, v)
		}
	}
}

func TestReducePropagatesLeafPanic(t *testing.T) {
	pool := New(2)
	defer stop(t, pool)

	_, err := Reduce(pool, 0, 10_000, 100, func(lo, hi int) int64 {
		if lo <= 5000 && 5000 < hi {
			panic("bad leaf")
		}
		return sumLeaf(lo, hi)
	}, add)

	var perr *PanicError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PanicError, got %v", err)
	}
}

func TestReduceAfterShutdown(t *testing.T) {
	pool := New(1)
	stop(t, pool)

	_, err := Reduce(pool, 0, 10, 1, sumLeaf, add)
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("got %v, want ErrRejected", err)
	}
}

func TestForEachVisitsEveryIndexOnce(t *testing.T) {
	pool := New(4)
	defer stop(t, pool)

	const n = 20_000
	seen := make([]atomic.Int32, n)
	err := ForEach(pool, 0, n, 64, func(i int) { seen[i].Add(1) })
	testutil.AssertNoError(t, err)

	for i := range seen {
		if c := seen[i].Load(); c != 1 {
			t.Fatalf("index %d visited %d times", i, c)
		}
	}
}

func TestInvokeAll(t *testing.T) {
	pool := New(4)
	defer stop(t, pool)

	h, err := Go(pool, func(w *Worker) (string, error) {
		a := NewTask(func(w *Worker) (int64, error) { return sumRange(w, 0, 100, 10) })
		b := NewTask(func(*Worker) (string, error) { return "b", nil })
		c := Action(func(*Worker) error { return nil })

		if err := InvokeAll(w, a, b, c); err != nil {
			return "", err
		}
		if !a.Done() || !b.Done() || !c.Done() {
			return "", errors.New("InvokeAll returned before every task completed")
		}
		av, _ := a.Join(w)
		bv, _ := b.Join(w)
		if av != 4950 {
			return "", errors.New("wrong sum")
		}
		return bv, nil
	})
	testutil.AssertNoError(t, err)

	v, err := h.Join()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, "b")
}

func TestInvokeAllReturnsFirstError(t *testing.T) {
	pool := New(2)
	defer stop(t, pool)

	first := errors.New("first")
	second := errors.New("second")
	h, err := Go(pool, func(w *Worker) (struct{}, error) {
		return struct{}{}, InvokeAll(w,
			Action(func(*Worker) error { return nil }),
			Action(func(*Worker) error { return first }),
			Action(func(*Worker) error { return second }),
		)
	})
	testutil.AssertNoError(t, err)

	_, err = h.Join()
	if err != first {
		t.Fatalf("got %v, want %v", err, first)
	}
}

func TestInvokeAllEmptyAndSingle(t *testing.T) {
	pool := New(1)
	defer stop(t, pool)

	h, err := Go(pool, func(w *Worker) (int, error) {
		if err := InvokeAll(w); err != nil {
			return 0, err
		}
		one := NewTask(func(*Worker) (int, error) { return 1, nil })
		if err := InvokeAll(w, one); err != nil {
			return 0, err
		}
		return one.Join(w)
	})
	testutil.AssertNoError(t, err)
	v, err := h.Join()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, v, 1)
}

func BenchmarkReduce(b *testing.B) {
	for _, parallelism := range []int{1, 4} {
		b.Run(fmt.Sprintf("workers=%d", parallelism), func(b *testing.B) {
			pool := New(parallelism)
			defer func() { <-pool.Shutdown() }()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Reduce(pool, 0, 1_000_001, 1000, sumLeaf, add); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
