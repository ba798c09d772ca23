package forkjoin

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/forkflow/pkg/metrics"
)

const subsystem = "forkjoin"

// Collector exports a pool's Stats as Prometheus metrics. It reads a fresh
// snapshot on every scrape, so scheduling paths never touch Prometheus.
type Collector struct {
	pool *Pool

	workers     *prometheus.Desc
	live        *prometheus.Desc
	idle        *prometheus.Desc
	degraded    *prometheus.Desc
	submitted   *prometheus.Desc
	rejected    *prometheus.Desc
	cancelled   *prometheus.Desc
	lost        *prometheus.Desc
	restarts    *prometheus.Desc
	executed    *prometheus.Desc
	failed      *prometheus.Desc
	forks       *prometheus.Desc
	steals      *prometheus.Desc
	stealAborts *prometheus.Desc
	joins       *prometheus.Desc
	helped      *prometheus.Desc
	queueDepth  *prometheus.Desc
}

// NewCollector creates a collector for p. The pool name is attached as the
// constant label "pool" in addition to cfg.Labels.
func NewCollector(p *Pool, cfg metrics.Config) *Collector {
	labels := prometheus.Labels{"pool": p.Name()}
	for k, v := range cfg.Labels {
		labels[k] = v
	}
	cfg.Labels = labels

	desc := func(name, help string, variable ...string) *prometheus.Desc {
		return metrics.NewDesc(cfg, subsystem, name, help, variable...)
	}

	return &Collector{
		pool:        p,
		workers:     desc("workers", "Number of workers in the pool."),
		live:        desc("live_tasks", "Tasks scheduled but not yet completed."),
		idle:        desc("idle_workers", "Workers currently sleeping for lack of work."),
		degraded:    desc("degraded", "1 if a worker was lost and not replaced."),
		submitted:   desc("submitted_tasks_total", "Root tasks accepted by Submit."),
		rejected:    desc("rejected_tasks_total", "Root tasks rejected by Submit."),
		cancelled:   desc("cancelled_tasks_total", "Tasks cancelled before they started."),
		lost:        desc("lost_tasks_total", "Tasks failed with ErrWorkerLost."),
		restarts:    desc("worker_restarts_total", "Worker goroutines replaced after being lost."),
		executed:    desc("executed_tasks_total", "Tasks executed.", "worker"),
		failed:      desc("failed_tasks_total", "Tasks that completed with an error.", "worker"),
		forks:       desc("forked_tasks_total", "Tasks forked onto the worker deque.", "worker"),
		steals:      desc("steals_total", "Tasks stolen from other workers.", "worker"),
		stealAborts: desc("steal_aborts_total", "Steal attempts that lost a race.", "worker"),
		joins:       desc("joins_total", "Joins that could not return immediately, by outcome.", "worker", "outcome"),
		helped:      desc("helped_tasks_total", "Unrelated tasks run while helping a join.", "worker"),
		queueDepth:  desc("queue_depth", "Tasks waiting in the worker deque.", "worker"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.workers, c.live, c.idle, c.degraded,
		c.submitted, c.rejected, c.cancelled, c.lost, c.restarts,
		c.executed, c.failed, c.forks, c.steals, c.stealAborts,
		c.joins, c.helped, c.queueDepth,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stats()

	degraded := 0.0
	if s.Degraded {
		degraded = 1
	}

	metrics.Gauge(ch, c.workers, float64(s.Size))
	metrics.Gauge(ch, c.live, float64(s.Live))
	metrics.Gauge(ch, c.idle, float64(s.Idle))
	metrics.Gauge(ch, c.degraded, degraded)
	metrics.Counter(ch, c.submitted, float64(s.Submitted))
	metrics.Counter(ch, c.rejected, float64(s.Rejected))
	metrics.Counter(ch, c.cancelled, float64(s.Cancelled))
	metrics.Counter(ch, c.lost, float64(s.Lost))
	metrics.Counter(ch, c.restarts, float64(s.Restarts))

	for _, w := range s.Workers {
		id := strconv.Itoa(w.ID)
		metrics.Counter(ch, c.executed, float64(w.Executed), id)
		metrics.Counter(ch, c.failed, float64(w.Failed), id)
		metrics.Counter(ch, c.forks, float64(w.Forks), id)
		metrics.Counter(ch, c.steals, float64(w.Steals), id)
		metrics.Counter(ch, c.stealAborts, float64(w.StealAborts), id)
		metrics.Counter(ch, c.joins, float64(w.InlineJoins), id, "inline")
		metrics.Counter(ch, c.joins, float64(w.ParkedJoins), id, "parked")
		metrics.Counter(ch, c.helped, float64(w.Helped), id)
		metrics.Gauge(ch, c.queueDepth, float64(w.QueueDepth), id)
	}
}
