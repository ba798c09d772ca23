// Package metrics provides Prometheus instrumentation for forkflow components.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// NewDesc builds a metric descriptor under the configured namespace, with
// the configured constant labels attached.
func NewDesc(cfg Config, subsystem, name, help string, variableLabels ...string) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(cfg.NamespaceOrDefault(), subsystem, name),
		help,
		variableLabels,
		cfg.Labels,
	)
}

// Register registers collector with reg. If an equal collector is already
// registered, the existing one is returned instead of an error so that
// components can be constructed more than once against the same registry.
func Register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		existing, ok := alreadyRegistered.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}

// Counter emits a const counter sample.
func Counter(ch chan<- prometheus.Metric, desc *prometheus.Desc, value float64, labels ...string) {
	ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, value, labels...)
}

// Gauge emits a const gauge sample.
func Gauge(ch chan<- prometheus.Metric, desc *prometheus.Desc, value float64, labels ...string) {
	ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, value, labels...)
}
