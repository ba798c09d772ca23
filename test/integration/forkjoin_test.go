package integration

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vnykmshr/forkflow/internal/testutil"
	gferrors "github.com/vnykmshr/forkflow/pkg/common/errors"
	"github.com/vnykmshr/forkflow/pkg/metrics"
	"github.com/vnykmshr/forkflow/pkg/scheduling/forkjoin"
	"github.com/vnykmshr/forkflow/pkg/scheduling/reporter"
)

func sumLeaf(lo, hi int) int64 {
	var s int64
	for i := lo; i < hi; i++ {
		s += int64(i)
	}
	return s
}

func add(a, b int64) int64 { return a + b }

// TestPoolMetricsOverHTTP runs reductions on an instrumented pool and scrapes
// the result through a promhttp handler.
func TestPoolMetricsOverHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	pool, err := forkjoin.NewSafe(forkjoin.Config{
		Name:        "scrape",
		Parallelism: 4,
		Metrics:     metrics.Config{Enabled: true, Registry: reg, Namespace: "it"},
	})
	testutil.AssertNoError(t, err)

	for i := 0; i < 5; i++ {
		v, err := forkjoin.Reduce(pool, 0, 100_001, 500, sumLeaf, add)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, v, int64(5_000_050_000))
	}

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	testutil.AssertNoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	testutil.AssertNoError(t, err)

	text := string(body)
	for _, want := range []string{
		`it_forkjoin_submitted_tasks_total{pool="scrape"} 5`,
		`it_forkjoin_workers{pool="scrape"} 4`,
		`it_forkjoin_executed_tasks_total{pool="scrape",worker="3"}`,
		`it_forkjoin_joins_total{outcome="inline",pool="scrape",worker="0"}`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("scrape missing %q", want)
		}
	}

	testutil.WaitClosed(t, pool.Shutdown(), testutil.TestTimeout)
}

// TestReporterFollowsPool checks that scheduled reports observe the pool's
// progress and stop cleanly alongside it.
func TestReporterFollowsPool(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	pool, err := forkjoin.NewSafe(forkjoin.Config{Name: "reported", Parallelism: 2, Logger: logger})
	testutil.AssertNoError(t, err)

	rep, err := reporter.New(pool, reporter.Config{Schedule: "@every 1s", Logger: logger})
	testutil.AssertNoError(t, err)
	rep.Start()

	_, err = forkjoin.Reduce(pool, 0, 10_001, 100, sumLeaf, add)
	testutil.AssertNoError(t, err)

	testutil.Eventually(t, func() bool { return rep.Reports() >= 1 }, 3*time.Second, 10*time.Millisecond)
	testutil.WaitClosed(t, rep.Stop(), testutil.TestTimeout)

	stats := rep.ReportNow()
	testutil.AssertEqual(t, stats.Name, "reported")
	if stats.Totals().Executed == 0 {
		t.Error("expected executed tasks in report")
	}

	testutil.WaitClosed(t, pool.Shutdown(), testutil.TestTimeout)

	if logs.FilterMessage("pool stats").Len() < 2 {
		t.Errorf("expected scheduled and manual reports, got %d", logs.FilterMessage("pool stats").Len())
	}
}

// TestShutdownNowAbandonsDeepRecursion cancels a long divide-and-conquer
// computation and checks every outstanding task settles.
func TestShutdownNowAbandonsDeepRecursion(t *testing.T) {
	pool := forkjoin.New(4)

	started := make(chan struct{})
	var once sync.Once
	h, err := forkjoin.Go(pool, func(w *forkjoin.Worker) (int64, error) {
		return forkjoin.ReduceOn(w, 0, 1<<30, 1<<10, func(lo, hi int) int64 {
			once.Do(func() { close(started) })
			time.Sleep(time.Millisecond)
			return sumLeaf(lo, hi)
		}, add)
	})
	testutil.AssertNoError(t, err)

	testutil.WaitClosed(t, started, testutil.TestTimeout)
	testutil.WaitClosed(t, pool.ShutdownNow(), testutil.TestTimeout)

	_, err = h.Join()
	if !errors.Is(err, forkjoin.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

// TestErrorClassification checks that config and lifecycle failures surface
// through the shared error helpers.
func TestErrorClassification(t *testing.T) {
	_, err := forkjoin.NewSafe(forkjoin.Config{Parallelism: -1})
	if !gferrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !errors.Is(err, gferrors.ErrInvalidConfiguration) {
		t.Errorf("validation error should match ErrInvalidConfiguration: %v", err)
	}

	pool := forkjoin.New(1)
	testutil.WaitClosed(t, pool.Shutdown(), testutil.TestTimeout)

	_, err = forkjoin.Go(pool, func(*forkjoin.Worker) (int, error) { return 0, nil })
	if !gferrors.IsClosed(err) || !errors.Is(err, forkjoin.ErrRejected) {
		t.Fatalf("expected closed rejection, got %v", err)
	}
	if !forkjoin.IsSchedulerError(err) {
		t.Errorf("rejection should be a scheduler error: %v", err)
	}
}
