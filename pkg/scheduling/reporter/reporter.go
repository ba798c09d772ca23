package reporter

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vnykmshr/forkflow/pkg/scheduling/forkjoin"
)

// DefaultSchedule reports every ten seconds.
const DefaultSchedule = "@every 10s"

// Source is anything that can produce pool statistics, usually a
// *forkjoin.Pool.
type Source interface {
	Stats() forkjoin.Stats
}

// Config configures a Reporter.
type Config struct {
	// Schedule is a cron expression with an optional leading seconds field,
	// or a descriptor such as "@every 1s". Defaults to DefaultSchedule.
	Schedule string

	// Logger receives one Info entry per report. Defaults to a no-op logger.
	Logger *zap.Logger

	// Name is attached to every entry as the "reporter" field.
	Name string
}

// Reporter logs a Source's statistics, including the change in the main
// counters since the previous report.
type Reporter struct {
	source Source
	logger *zap.Logger
	cron   *cron.Cron

	mu    sync.Mutex
	last  forkjoin.WorkerStats
	count int
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a stopped Reporter.
func New(source Source, cfg Config) (*Reporter, error) {
	if source == nil {
		return nil, fmt.Errorf("reporter: source cannot be nil")
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	schedule, err := parser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("reporter: invalid schedule '%s': %w", cfg.Schedule, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name != "" {
		logger = logger.With(zap.String("reporter", cfg.Name))
	}

	r := &Reporter{
		source: source,
		logger: logger,
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLogger(cronLogger{logger.Sugar()}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger.Sugar()})),
		),
	}
	r.cron.Schedule(schedule, cron.FuncJob(func() { r.ReportNow() }))
	return r, nil
}

// Start begins reporting on the schedule. It is a no-op if already started.
func (r *Reporter) Start() {
	r.cron.Start()
}

// Stop halts the schedule. The returned channel is closed once a report
// in progress, if any, has finished.
func (r *Reporter) Stop() <-chan struct{} {
	return r.cron.Stop().Done()
}

// ReportNow logs the current statistics immediately and returns them.
func (r *Reporter) ReportNow() forkjoin.Stats {
	s := r.source.Stats()
	totals := s.Totals()

	r.mu.Lock()
	prev := r.last
	r.last = totals
	r.count++
	seq := r.count
	r.mu.Unlock()

	r.logger.Info("pool stats",
		zap.String("pool", s.Name),
		zap.String("pool_id", s.ID),
		zap.Int("report", seq),
		zap.Int("workers", s.Size),
		zap.Int("idle", s.Idle),
		zap.Int64("live", s.Live),
		zap.Bool("degraded", s.Degraded),
		zap.Int64("submitted", s.Submitted),
		zap.Int64("rejected", s.Rejected),
		zap.Int64("cancelled", s.Cancelled),
		zap.Int64("lost", s.Lost),
		zap.Int64("restarts", s.Restarts),
		zap.Int64("executed", totals.Executed),
		zap.Int64("executed_delta", totals.Executed-prev.Executed),
		zap.Int64("steals", totals.Steals),
		zap.Int64("steals_delta", totals.Steals-prev.Steals),
		zap.Int64("steal_aborts", totals.StealAborts),
		zap.Int64("inline_joins", totals.InlineJoins),
		zap.Int64("parked_joins", totals.ParkedJoins),
		zap.Int("queued", totals.QueueDepth+totals.InboxDepth),
	)
	return s
}

// Reports returns how many reports have been logged.
func (r *Reporter) Reports() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
