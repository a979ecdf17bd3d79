package application

import (
	"cmp"
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

// tracerName is the instrumentation scope of engine spans.
const tracerName = "github.com/ahrav/go-reco/internal/application"

// UnitAdapter wraps a ports.ScoringUnit with the cross-cutting behavior
// every unit invocation needs: a per-unit deadline, panic recovery, a
// tracing span, latency and failure metrics, and failure logging.
// Any failure is returned as a *domain.UnitError naming the unit.
type UnitAdapter[S any, T cmp.Ordered] struct {
	// unit is the underlying scoring unit.
	unit ports.ScoringUnit[S, T]
	// id is the identifier of the unit within the engine definition.
	id string
	// timeout bounds a single invocation. Zero means no per-unit bound.
	timeout time.Duration

	metrics ports.MetricsCollector
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewUnitAdapter creates an adapter for unit.
func NewUnitAdapter[S any, T cmp.Ordered](unit ports.ScoringUnit[S, T], id string, timeout time.Duration) *UnitAdapter[S, T] {
	return &UnitAdapter[S, T]{
		unit:    unit,
		id:      id,
		timeout: timeout,
		logger:  zerolog.Nop(),
		tracer:  otel.Tracer(tracerName),
	}
}

// ID returns the identifier of the wrapped unit.
func (ua *UnitAdapter[S, T]) ID() string { return ua.id }

// Unit returns the wrapped unit.
func (ua *UnitAdapter[S, T]) Unit() ports.ScoringUnit[S, T] { return ua.unit }

// observability bundles the collaborators an engine hands to the
// adapters of its pipeline. A nil metrics collector disables metrics.
type observability struct {
	metrics ports.MetricsCollector
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// instrumented returns a copy of the adapter reporting through obs.
// Compiled pipelines are shared between engines, so adapters are never
// instrumented in place.
func (ua *UnitAdapter[S, T]) instrumented(obs observability) *UnitAdapter[S, T] {
	c := *ua
	c.metrics = obs.metrics
	c.logger = obs.logger.With().Str("unit", ua.id).Logger()
	if obs.tracer != nil {
		c.tracer = obs.tracer
	}
	return &c
}

// Execute runs the unit once against recs.
func (ua *UnitAdapter[S, T]) Execute(ctx context.Context, pass *domain.Pass[S, T], recs *domain.Recommendations[T]) (err error) {
	ctx, span := ua.tracer.Start(ctx, "unit."+ua.id,
		trace.WithAttributes(
			attribute.String("unit.name", ua.unit.Name()),
			attribute.String("pass.request_id", pass.RequestID),
			attribute.Int("pass.limit", pass.Limit),
		),
	)
	defer span.End()

	if ua.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ua.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		var stack []byte
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			stack = debug.Stack()
		}

		status := "success"
		if err != nil {
			status = "error"
			err = domain.NewUnitError(ua.id, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			event := ua.logger.Warn().
				Err(err).
				Str("request_id", pass.RequestID).
				Interface("subject", pass.Subject)
			if stack != nil {
				event = event.Bytes("stack", stack)
			}
			event.Msg("scoring unit failed")
		} else {
			span.SetStatus(codes.Ok, "")
		}

		if ua.metrics != nil {
			labels := map[string]string{"unit": ua.id, "status": status}
			ua.metrics.RecordLatency("unit_execution", time.Since(start), labels)
			if err != nil {
				ua.metrics.RecordCounter("unit_failures_total", 1, map[string]string{"unit": ua.id})
			}
		}
	}()

	return ua.unit.Score(ctx, pass, recs)
}

// BlacklistAdapter wraps a ports.Blacklist with panic recovery and
// failure reporting. Failures are returned as *domain.UnitError.
type BlacklistAdapter[S any, T cmp.Ordered] struct {
	blacklist ports.Blacklist[S, T]
	id        string
	logger    zerolog.Logger
}

// NewBlacklistAdapter creates an adapter for blacklist.
func NewBlacklistAdapter[S any, T cmp.Ordered](blacklist ports.Blacklist[S, T], id string) *BlacklistAdapter[S, T] {
	return &BlacklistAdapter[S, T]{blacklist: blacklist, id: id, logger: zerolog.Nop()}
}

// ID returns the identifier of the wrapped blacklist.
func (ba *BlacklistAdapter[S, T]) ID() string { return ba.id }

func (ba *BlacklistAdapter[S, T]) instrumented(obs observability) *BlacklistAdapter[S, T] {
	c := *ba
	c.logger = obs.logger.With().Str("blacklist", ba.id).Logger()
	return &c
}

// Execute adds the blacklist's exclusions to pass.
func (ba *BlacklistAdapter[S, T]) Execute(ctx context.Context, pass *domain.Pass[S, T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = domain.NewUnitError(ba.id, err)
			ba.logger.Warn().Err(err).Str("request_id", pass.RequestID).Msg("blacklist failed")
		}
	}()

	items, err := ba.blacklist.Exclude(ctx, pass)
	if err != nil {
		return err
	}
	pass.Exclude(items...)
	return nil
}
