package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

// Engine computes ranked recommendations for subjects of type S over
// candidates of type T. It runs a compiled Definition either fresh per
// request (domain.RealTime) or serves results precomputed into a
// ports.ResultCache (domain.Precomputed), falling back to real time when
// no cached result exists.
//
// Both modes share one pipeline, so a precomputed result is exactly what
// a real-time pass produced when it was computed.
type Engine[S any, T cmp.Ordered] struct {
	name     string
	pipeline *Pipeline[S, T]
	settings Settings

	cache      ports.ResultCache[T]
	reporter   ports.Reporter[S, T]
	metrics    ports.MetricsCollector
	logger     zerolog.Logger
	tracer     trace.Tracer
	subjectKey func(S) string
	check      func(context.Context, S) error

	// fallbacks deduplicates concurrent cold-cache computations per
	// subject and limit.
	fallbacks singleflight.Group
}

// EngineOption configures an Engine.
type EngineOption[S any, T cmp.Ordered] func(*Engine[S, T])

// WithCache sets the cache that precomputed mode reads and
// ComputeAndCache writes.
func WithCache[S any, T cmp.Ordered](cache ports.ResultCache[T]) EngineOption[S, T] {
	return func(e *Engine[S, T]) { e.cache = cache }
}

// WithReporter sets the reporter notified after every served request.
func WithReporter[S any, T cmp.Ordered](reporter ports.Reporter[S, T]) EngineOption[S, T] {
	return func(e *Engine[S, T]) { e.reporter = reporter }
}

// WithMetrics sets the metrics collector.
func WithMetrics[S any, T cmp.Ordered](metrics ports.MetricsCollector) EngineOption[S, T] {
	return func(e *Engine[S, T]) { e.metrics = metrics }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger[S any, T cmp.Ordered](logger zerolog.Logger) EngineOption[S, T] {
	return func(e *Engine[S, T]) { e.logger = logger }
}

// WithTracer sets the tracer used for pass and unit spans. The default
// uses the global tracer provider.
func WithTracer[S any, T cmp.Ordered](tracer trace.Tracer) EngineOption[S, T] {
	return func(e *Engine[S, T]) { e.tracer = tracer }
}

// WithSubjectKey sets how subjects are turned into cache keys. The
// default formats the subject with fmt.Sprint.
func WithSubjectKey[S any, T cmp.Ordered](key func(S) string) EngineOption[S, T] {
	return func(e *Engine[S, T]) { e.subjectKey = key }
}

// WithSubjectCheck sets a check that runs before every request. Its
// error is returned to the caller unchanged, which lets an engine reject
// unknown subjects with domain.ErrNotFound instead of ranking nothing.
func WithSubjectCheck[S any, T cmp.Ordered](check func(context.Context, S) error) EngineOption[S, T] {
	return func(e *Engine[S, T]) { e.check = check }
}

// NewEngine creates an engine running def.
func NewEngine[S any, T cmp.Ordered](def *Definition[S, T], opts ...EngineOption[S, T]) (*Engine[S, T], error) {
	if def == nil || def.Pipeline == nil {
		return nil, fmt.Errorf("%w: engine definition is required", domain.ErrInvalidConfiguration)
	}

	e := &Engine[S, T]{
		name:       def.Name,
		settings:   def.Settings,
		logger:     zerolog.Nop(),
		tracer:     otel.Tracer(tracerName),
		subjectKey: func(s S) string { return fmt.Sprint(s) },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("component", "engine").Str("engine", e.name).Logger()
	e.pipeline = def.Pipeline.instrumented(observability{
		metrics: e.metrics,
		logger:  e.logger,
		tracer:  e.tracer,
	})

	return e, nil
}

// Name returns the name of the engine definition.
func (e *Engine[S, T]) Name() string { return e.name }

// Settings returns the resolved limits of the engine.
func (e *Engine[S, T]) Settings() Settings { return e.settings }

// Recommend returns at most limit candidates for subject ordered by
// descending total score, ties broken by ascending candidate.
//
// A limit of zero returns an empty list without running anything. A
// negative limit, a limit above the configured maximum, or an unknown
// mode fails with domain.ErrInvalidArgument. Unit failures never fail
// the request unless the engine is fail-fast; the ranking is then built
// from the units that succeeded.
func (e *Engine[S, T]) Recommend(ctx context.Context, subject S, mode domain.Mode, limit int) ([]domain.Ranked[T], error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: unknown mode %v", domain.ErrInvalidArgument, mode)
	}
	if limit < 0 || limit > e.settings.MaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 0 and %d, got %d", domain.ErrInvalidArgument, e.settings.MaxLimit, limit)
	}
	if limit == 0 {
		return []domain.Ranked[T]{}, nil
	}
	if e.check != nil {
		if err := e.check(ctx, subject); err != nil {
			return nil, err
		}
	}

	key := e.subjectKey(subject)
	ctx, span := e.tracer.Start(ctx, "Engine.Recommend",
		trace.WithAttributes(
			attribute.String("engine.name", e.name),
			attribute.String("reco.subject", key),
			attribute.String("reco.mode", mode.String()),
			attribute.Int("reco.limit", limit),
		),
	)
	defer span.End()

	start := time.Now()
	var (
		ranked []domain.Ranked[T]
		err    error
	)
	switch mode {
	case domain.RealTime:
		ranked, err = e.realTime(ctx, subject, mode, limit)
	case domain.Precomputed:
		ranked, err = e.precomputed(ctx, subject, key, limit)
	}

	labels := map[string]string{"engine": e.name, "mode": mode.String()}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.recordCounter("recommend_failures_total", labels)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.Int("reco.returned", len(ranked)))

	if e.metrics != nil {
		e.metrics.RecordLatency("recommend", time.Since(start), labels)
		e.metrics.RecordHistogram("recommend_result_size", float64(len(ranked)), labels)
	}

	if e.reporter != nil {
		e.reporter.Report(ctx, subject, ranked)
	}
	return ranked, nil
}

// ComputeAndCache runs a full pass for subject with the configured
// max_recommendations and stores the ranking in the cache. It is the
// single entry point of background precomputation.
func (e *Engine[S, T]) ComputeAndCache(ctx context.Context, subject S) error {
	if e.cache == nil {
		return fmt.Errorf("%w: engine %s has no result cache", domain.ErrInvalidConfiguration, e.name)
	}

	key := e.subjectKey(subject)
	if e.check != nil {
		if err := e.check(ctx, subject); err != nil {
			return fmt.Errorf("failed to precompute recommendations for %s: %w", key, err)
		}
	}
	ctx, span := e.tracer.Start(ctx, "Engine.ComputeAndCache",
		trace.WithAttributes(
			attribute.String("engine.name", e.name),
			attribute.String("reco.subject", key),
		),
	)
	defer span.End()

	ranked, err := e.realTime(ctx, subject, domain.Precomputed, e.settings.MaxRecommendations)
	if err == nil {
		err = e.cache.Put(ctx, key, ranked)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to precompute recommendations for %s: %w", key, err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// Invalidate removes the cached ranking of subject, if any.
func (e *Engine[S, T]) Invalidate(ctx context.Context, subject S) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Delete(ctx, e.subjectKey(subject))
}

// realTime runs one pass and ranks its result.
func (e *Engine[S, T]) realTime(ctx context.Context, subject S, mode domain.Mode, limit int) ([]domain.Ranked[T], error) {
	pass := domain.NewPass[S, T](subject, mode, limit, uuid.NewString())

	runCtx := ctx
	if e.settings.PassTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeoutCause(ctx, e.settings.PassTimeout, ErrPassDeadline)
		defer cancel()
	}

	result, err := e.pipeline.Execute(runCtx, pass)
	if err != nil {
		return nil, err
	}

	ranked, err := result.Recommendations.TopFunc(limit, pass.Allowed)
	if err != nil {
		return nil, err
	}

	labels := map[string]string{"engine": e.name}
	if e.metrics != nil {
		e.metrics.RecordLatency("pass", result.Duration, labels)
		e.metrics.RecordGauge("pass_candidates", float64(result.Recommendations.Size()), labels)
	}
	if result.Degraded {
		e.recordCounter("passes_degraded_total", labels)
	}

	e.logger.Debug().
		Str("request_id", pass.RequestID).
		Str("subject", e.subjectKey(subject)).
		Int("candidates", result.Recommendations.Size()).
		Int("returned", len(ranked)).
		Int("failures", len(result.Failures)).
		Strs("skipped_stages", result.Skipped).
		Bool("degraded", result.Degraded).
		Dur("duration", result.Duration).
		Msg("pass completed")

	return ranked, nil
}

// precomputed serves from the cache, falling back to a real-time pass
// when the subject has no entry or the cache cannot be read.
func (e *Engine[S, T]) precomputed(ctx context.Context, subject S, key string, limit int) ([]domain.Ranked[T], error) {
	labels := map[string]string{"engine": e.name}

	if e.cache != nil {
		cached, ok, err := e.cache.Get(ctx, key)
		switch {
		case err != nil:
			e.recordCounter("cache_errors_total", labels)
			e.logger.Warn().Err(err).Str("subject", key).Msg("cache read failed, computing in real time")
		case ok:
			e.recordCounter("cache_hits_total", labels)
			e.logger.Debug().Str("subject", key).Int("cached", len(cached)).Msg("cache hit")
			return slices.Clone(cached[:min(limit, len(cached))]), nil
		default:
			e.recordCounter("cache_misses_total", labels)
			e.logger.Debug().Str("subject", key).Msg("cache miss")
		}
	}

	e.recordCounter("fallbacks_total", labels)
	populate := e.settings.PopulateOnMiss && e.cache != nil

	// The flight is shared by every caller waiting on this subject and
	// limit, so it must not inherit any single caller's cancellation.
	// realTime still bounds it with the pass deadline.
	shared := context.WithoutCancel(ctx)
	flight := e.fallbacks.DoChan(key+"|"+strconv.Itoa(limit), func() (any, error) {
		if !populate {
			return e.realTime(shared, subject, domain.Precomputed, limit)
		}

		// One pass serves the caller and fills the cache.
		ranked, err := e.realTime(shared, subject, domain.Precomputed, max(limit, e.settings.MaxRecommendations))
		if err != nil {
			return nil, err
		}
		stored := ranked[:min(len(ranked), e.settings.MaxRecommendations)]
		if err := e.cache.Put(shared, key, stored); err != nil {
			e.logger.Warn().Err(err).Str("subject", key).Msg("failed to populate cache after miss")
		}
		return ranked, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-flight:
		if res.Err != nil {
			return nil, res.Err
		}
		ranked := res.Val.([]domain.Ranked[T])
		// Results shared between callers must not alias.
		return slices.Clone(ranked[:min(limit, len(ranked))]), nil
	}
}

func (e *Engine[S, T]) recordCounter(name string, labels map[string]string) {
	if e.metrics != nil {
		e.metrics.RecordCounter(name, 1, labels)
	}
}

// IsInvalidRequest reports whether err was caused by malformed input to
// Recommend rather than by a failure while computing.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrNotFound)
}
