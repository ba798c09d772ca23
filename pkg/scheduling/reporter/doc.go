// Package reporter periodically logs fork/join pool statistics on a cron
// schedule.
//
// Each report is one zap Info entry carrying the pool's counters and the
// change in executed tasks and steals since the previous report.
//
// Basic usage:
//
//	rep, err := reporter.New(pool, reporter.Config{
//		Schedule: "@every 10s", // or "*/30 * * * * *" with seconds
//		Logger:   logger,
//		Name:     "sum",
//	})
//	if err != nil {
//		return err // invalid schedule
//	}
//	rep.Start()
//	defer func() { <-rep.Stop() }()
//
// ReportNow logs outside the schedule, for example once more at shutdown:
//
//	<-rep.Stop()
//	final := rep.ReportNow()
//
// Schedules accept an optional leading seconds field and descriptors such as
// "@every 1s" or "@hourly". Overlapping runs are skipped.
package reporter
