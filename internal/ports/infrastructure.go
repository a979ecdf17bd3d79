package ports

import (
	"cmp"
	"context"
	"time"

	"github.com/ahrav/go-reco/internal/domain"
)

// ResultCache persists ranked results computed by the background
// precompute cycle, keyed by subject. Implementations could use process
// memory, an embedded key-value store, or a remote cache.
//
// Values returned by Get are snapshots: mutating them must not affect the
// stored entry.
type ResultCache[T cmp.Ordered] interface {
	// Get returns the cached ranking for subject and true, or nil and
	// false when absent or expired.
	Get(ctx context.Context, subject string) ([]domain.Ranked[T], bool, error)

	// Put stores ranked for subject, replacing any previous entry.
	Put(ctx context.Context, subject string, ranked []domain.Ranked[T]) error

	// Delete removes the entry for subject.
	// Returns nil if the key doesn't exist.
	Delete(ctx context.Context, subject string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error
}

// Reporter receives the outcome of every completed pass, typically to
// render a human-readable record of it.
type Reporter[S any, T cmp.Ordered] interface {
	Report(ctx context.Context, subject S, ranked []domain.Ranked[T])
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus,
// OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like cache hits/misses, errors, etc.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, such as the number
	// of candidates scored in a pass.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
