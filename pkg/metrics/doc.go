// Package metrics provides Prometheus plumbing shared by forkflow components.
//
// Components expose their state as prometheus.Collector implementations that
// read a snapshot at scrape time, so the hot paths (fork, pop, steal) never
// touch a Prometheus vector.
//
// # Quick Start
//
//	pool := forkjoin.NewWithConfig(forkjoin.Config{
//		Name:    "reducer",
//		Metrics: metrics.DefaultConfig(),
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	pool := forkjoin.NewWithConfig(forkjoin.Config{
//		Metrics: metrics.Config{Enabled: true, Registry: registry},
//	})
//
// # Helpers
//
//   - NewDesc builds descriptors under Config.Namespace with Config.Labels.
//   - Register tolerates an identical collector that is already registered.
//   - Counter and Gauge emit const samples from a Collect method.
package metrics
