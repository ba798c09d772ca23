package forkjoin

// Reduce computes combine over leaf results for the index range [lo, hi),
// splitting it in halves until a piece is at most threshold long. It
// submits the root to p and waits for it.
func Reduce[T any](p *Pool, lo, hi, threshold int, leaf func(lo, hi int) T, combine func(a, b T) T) (T, error) {
	h, err := Go(p, func(w *Worker) (T, error) {
		return ReduceOn(w, lo, hi, threshold, leaf, combine)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return h.Join()
}

// ReduceOn is Reduce for a caller that is already running on a worker.
// An empty range yields leaf(lo, lo).
func ReduceOn[T any](w *Worker, lo, hi, threshold int, leaf func(lo, hi int) T, combine func(a, b T) T) (T, error) {
	if threshold < 1 {
		threshold = 1
	}
	if hi-lo <= threshold {
		return leaf(lo, hi), nil
	}
	if w.Cancelled() {
		var zero T
		return zero, ErrCancelled
	}

	mid := lo + (hi-lo)/2
	right := NewTask(func(w *Worker) (T, error) {
		return ReduceOn(w, mid, hi, threshold, leaf, combine)
	}).Fork(w)

	left, err := ReduceOn(w, lo, mid, threshold, leaf, combine)
	if err != nil {
		right.Cancel()
		_, _ = right.Join(w)
		return left, err
	}

	r, err := right.Join(w)
	if err != nil {
		return r, err
	}
	return combine(left, r), nil
}

// ForEach calls body for every index in [lo, hi) using the same
// decomposition as Reduce.
func ForEach(p *Pool, lo, hi, threshold int, body func(i int)) error {
	_, err := Reduce(p, lo, hi, threshold, func(lo, hi int) struct{} {
		for i := lo; i < hi; i++ {
			body(i)
		}
		return struct{}{}
	}, func(struct{}, struct{}) struct{} { return struct{}{} })
	return err
}
