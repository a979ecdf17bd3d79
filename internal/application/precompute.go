package application

import (
	"cmp"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-reco/internal/ports"
)

// Population enumerates the subjects a precompute cycle covers.
type Population[S any] func(ctx context.Context) ([]S, error)

// CycleReport summarizes one precompute cycle.
type CycleReport struct {
	Subjects  int           `json:"subjects"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// String renders the report for logs and the CLI.
func (r CycleReport) String() string {
	return fmt.Sprintf("precomputed %d/%d subjects (%d failed) in %s",
		r.Succeeded, r.Subjects, r.Failed, r.Duration.Round(time.Millisecond))
}

// Precomputer runs background precompute cycles: it enumerates the
// population and calls Engine.ComputeAndCache for every subject with
// bounded concurrency. A failing subject is logged and counted; it never
// aborts the cycle.
type Precomputer[S any, T cmp.Ordered] struct {
	engine      *Engine[S, T]
	population  Population[S]
	concurrency int
	metrics     ports.MetricsCollector
	logger      zerolog.Logger
}

// NewPrecomputer creates a precomputer. Non-positive concurrency runs one
// subject at a time.
func NewPrecomputer[S any, T cmp.Ordered](
	engine *Engine[S, T],
	population Population[S],
	concurrency int,
	logger zerolog.Logger,
) *Precomputer[S, T] {
	return &Precomputer[S, T]{
		engine:      engine,
		population:  population,
		concurrency: max(concurrency, 1),
		metrics:     engine.metrics,
		logger:      logger.With().Str("component", "precomputer").Str("engine", engine.Name()).Logger(),
	}
}

// Run executes one cycle. It returns an error only when the population
// cannot be enumerated or ctx ends; the report is valid either way.
func (p *Precomputer[S, T]) Run(ctx context.Context) (CycleReport, error) {
	start := time.Now()

	subjects, err := p.population(ctx)
	if err != nil {
		return CycleReport{Duration: time.Since(start)}, fmt.Errorf("failed to enumerate population: %w", err)
	}

	var succeeded, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)
	for _, subject := range subjects {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := p.engine.ComputeAndCache(ctx, subject); err != nil {
				failed.Add(1)
				p.logger.Warn().Err(err).Str("subject", p.engine.subjectKey(subject)).Msg("precompute failed")
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	report := CycleReport{
		Subjects:  len(subjects),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
	}

	if p.metrics != nil {
		labels := map[string]string{"engine": p.engine.Name()}
		p.metrics.RecordLatency("precompute_cycle", report.Duration, labels)
		p.metrics.RecordGauge("precompute_failed_subjects", float64(report.Failed), labels)
	}
	p.logger.Info().
		Int("subjects", report.Subjects).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("precompute cycle finished")

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
