// Package metrics exports engine, store and precompute metrics to
// Prometheus.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/go-reco/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

const (
	namespace = "reco"
	unknown   = "unknown"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// Metric names reported by the engine become the "operation", "event" or
// "metric" label of a small, fixed set of vectors so that cardinality
// stays bounded no matter how many units an engine defines.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	operationLatency *prometheus.HistogramVec
	events           *prometheus.CounterVec
	gauges           *prometheus.GaugeVec
	distributions    *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a PrometheusMetrics backed by its own
// registry, which also carries the Go runtime and process collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of recommendation passes, unit executions and store queries.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "engine", "unit", "status"},
		),
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Cache hits and misses, fallbacks, failures and other counted events.",
			},
			[]string{"event", "engine", "unit", "status"},
		),
		gauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "state",
				Help:      "Last observed value of engine state such as pass candidates.",
			},
			[]string{"metric", "engine"},
		),
		distributions: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "values",
				Help:      "Distributions of sizes such as the number of returned recommendations.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"metric", "engine", "mode"},
		),
	}
}

// label returns labels[key], or "unknown" when absent or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return unknown
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.operationLatency.WithLabelValues(
		operation,
		label(labels, "engine"),
		label(labels, "unit"),
		label(labels, "status"),
	).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters. A "_total" suffix on metric is dropped; negative
// values are ignored.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	if value < 0 {
		return
	}
	pm.events.WithLabelValues(
		strings.TrimSuffix(metric, "_total"),
		label(labels, "engine"),
		label(labels, "unit"),
		label(labels, "status"),
	).Add(value)
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.gauges.WithLabelValues(metric, label(labels, "engine")).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	pm.distributions.WithLabelValues(metric, label(labels, "engine"), label(labels, "mode")).Observe(value)
}

// Registry returns the registry holding every metric.
func (pm *PrometheusMetrics) Registry() *prometheus.Registry { return pm.registry }

// Handler serves the registry in the Prometheus exposition format.
func (pm *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{Registry: pm.registry})
}
