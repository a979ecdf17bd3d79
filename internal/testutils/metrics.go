package testutils

import (
	"maps"
	"sync"
	"time"

	"github.com/ahrav/go-reco/internal/ports"
)

// RecordingMetrics is a ports.MetricsCollector that keeps every
// observation in memory.
type RecordingMetrics struct {
	mu        sync.Mutex
	counters  map[string]float64
	latencies map[string]int
	gauges    map[string]float64
	samples   map[string][]float64
	labels    map[string][]map[string]string
}

var _ ports.MetricsCollector = (*RecordingMetrics)(nil)

// NewRecordingMetrics creates an empty collector.
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		counters:  make(map[string]float64),
		latencies: make(map[string]int),
		gauges:    make(map[string]float64),
		samples:   make(map[string][]float64),
		labels:    make(map[string][]map[string]string),
	}
}

func (m *RecordingMetrics) remember(name string, labels map[string]string) {
	m.labels[name] = append(m.labels[name], maps.Clone(labels))
}

// RecordLatency implements ports.MetricsCollector.
func (m *RecordingMetrics) RecordLatency(operation string, _ time.Duration, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies[operation]++
	m.remember(operation, labels)
}

// RecordCounter implements ports.MetricsCollector.
func (m *RecordingMetrics) RecordCounter(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
	m.remember(name, labels)
}

// RecordGauge implements ports.MetricsCollector.
func (m *RecordingMetrics) RecordGauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = value
	m.remember(name, labels)
}

// RecordHistogram implements ports.MetricsCollector.
func (m *RecordingMetrics) RecordHistogram(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[name] = append(m.samples[name], value)
	m.remember(name, labels)
}

// Counter returns the accumulated value of a counter.
func (m *RecordingMetrics) Counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// Latencies returns how many latencies were recorded for operation.
func (m *RecordingMetrics) Latencies(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latencies[operation]
}

// Gauge returns the last value of a gauge.
func (m *RecordingMetrics) Gauge(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gauges[name]
}

// Samples returns the histogram observations of name.
func (m *RecordingMetrics) Samples(name string) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.samples[name]...)
}

// Labels returns the label sets recorded with name, in order.
func (m *RecordingMetrics) Labels(name string) []map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]string(nil), m.labels[name]...)
}
