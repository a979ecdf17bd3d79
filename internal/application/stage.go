package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-reco/internal/domain"
)

// ErrPassDeadline is the cancellation cause of a pass that ran out of
// time. Passes cancelled with this cause degrade to the contributions
// made so far instead of failing.
var ErrPassDeadline = errors.New("pass deadline exceeded")

// Isolation controls where the units of a stage write their contributions.
type Isolation string

const (
	// Shared units write directly into the pass aggregator.
	Shared Isolation = "shared"

	// Isolated units write into a private aggregator that is merged into
	// the pass aggregator only if the unit succeeds. A failing unit
	// therefore contributes nothing.
	Isolated Isolation = "isolated"
)

// Stage is a group of scoring units that run concurrently. Stages run
// one after another inside a Pipeline, so a later stage observes every
// candidate contributed by earlier ones.
type Stage[S any, T cmp.Ordered] struct {
	// id is the unique identifier for this stage.
	id string
	// units are the adapters executed in parallel.
	units []*UnitAdapter[S, T]
	// isolation selects shared or isolated contribution.
	isolation Isolation
	// skipWhenEnough skips the stage if the pass already has enough candidates.
	skipWhenEnough bool
	// stopWhenEnough cancels remaining units once enough candidates exist.
	stopWhenEnough bool
	// concurrency caps the number of units running at once.
	concurrency int
}

// StageOption configures a Stage.
type StageOption func(*stageOptions)

type stageOptions struct {
	isolation      Isolation
	skipWhenEnough bool
	stopWhenEnough bool
	concurrency    int
}

// WithIsolation sets the contribution mode of the stage.
func WithIsolation(iso Isolation) StageOption {
	return func(o *stageOptions) { o.isolation = iso }
}

// SkipWhenEnough skips the stage when the pass aggregator already holds
// at least pass.Limit candidates.
func SkipWhenEnough() StageOption {
	return func(o *stageOptions) { o.skipWhenEnough = true }
}

// StopWhenEnough cancels the remaining units of the stage as soon as the
// pass aggregator holds at least pass.Limit candidates.
func StopWhenEnough() StageOption {
	return func(o *stageOptions) { o.stopWhenEnough = true }
}

// WithConcurrency caps the number of units of the stage that run at once.
// Non-positive values select twice the number of CPUs.
func WithConcurrency(n int) StageOption {
	return func(o *stageOptions) { o.concurrency = n }
}

// NewStage creates a stage running units.
func NewStage[S any, T cmp.Ordered](id string, units []*UnitAdapter[S, T], opts ...StageOption) *Stage[S, T] {
	o := stageOptions{isolation: Shared}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency <= 0 {
		o.concurrency = runtime.NumCPU() * 2
	}
	return &Stage[S, T]{
		id:             id,
		units:          units,
		isolation:      o.isolation,
		skipWhenEnough: o.skipWhenEnough,
		stopWhenEnough: o.stopWhenEnough,
		concurrency:    o.concurrency,
	}
}

// ID returns the unique string identifier for this stage.
func (s *Stage[S, T]) ID() string { return s.id }

// Units returns the adapters of the stage.
func (s *Stage[S, T]) Units() []*UnitAdapter[S, T] { return s.units }

// Execute runs every unit of the stage against recs and waits for all of
// them, for ctx to end, or, with StopWhenEnough, for enough candidates.
//
// Unit failures are collected and returned joined; they never stop other
// units unless failFast is set. When ctx ends first the stage stops
// waiting and returns ctx's error. Units still running are abandoned:
// they are cancelled and whatever they report afterwards is discarded.
func (s *Stage[S, T]) Execute(ctx context.Context, pass *domain.Pass[S, T], recs *domain.Recommendations[T], failFast bool) error {
	if len(s.units) == 0 {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(s.concurrency)

	var (
		mu     sync.Mutex
		closed bool
		errs   []error
	)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ua := range s.units {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}

				target := recs
				if s.isolation == Isolated {
					target = domain.NewRecommendations[T]()
				}
				err := ua.Execute(gctx, pass, target)

				mu.Lock()
				defer mu.Unlock()
				if closed {
					return nil
				}
				if err != nil {
					// Siblings cancelled by a fail-fast error are not failures of their own.
					if failFast && gctx.Err() != nil && errors.Is(err, context.Canceled) {
						return nil
					}
					errs = append(errs, err)
					if failFast {
						return err
					}
					return nil
				}
				if s.isolation == Isolated {
					if _, err := recs.Merge(target); err != nil {
						errs = append(errs, domain.NewUnitError(ua.ID(), fmt.Errorf("merge: %w", err)))
						return nil
					}
				}
				if s.stopWhenEnough && recs.HasEnough(pass.Limit) {
					cancel()
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	closed = true
	failures := errs
	mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stage %s: %w", s.id, context.Cause(ctx))
	}
	if len(failures) > 0 {
		return fmt.Errorf("stage %s failed with %d errors: %w", s.id, len(failures), errors.Join(failures...))
	}
	return nil
}

// PassResult is the outcome of one pipeline execution.
type PassResult[T cmp.Ordered] struct {
	// Recommendations is the frozen pass aggregator.
	Recommendations *domain.Recommendations[T]
	// Failures holds isolated blacklist and unit failures.
	Failures []error
	// Skipped lists the stages skipped because the pass had enough candidates.
	Skipped []string
	// Degraded is true when the pass deadline cut the pass short.
	Degraded bool
	// Duration is the wall time of the pass.
	Duration time.Duration
}

// Pipeline runs the blacklists of an engine and then its stages in order
// against a fresh aggregator. It is safe for concurrent use; every
// Execute call owns its own aggregator.
type Pipeline[S any, T cmp.Ordered] struct {
	// id is the unique identifier for this pipeline.
	id string
	// blacklists run concurrently before any stage.
	blacklists []*BlacklistAdapter[S, T]
	// stages run sequentially.
	stages []*Stage[S, T]
	// failFast aborts the pass on the first blacklist or unit failure.
	failFast bool
	logger   zerolog.Logger
}

// NewPipeline creates an empty pipeline.
func NewPipeline[S any, T cmp.Ordered](id string) *Pipeline[S, T] {
	return &Pipeline[S, T]{id: id, logger: zerolog.Nop()}
}

// ID returns the unique string identifier for this pipeline.
func (p *Pipeline[S, T]) ID() string { return p.id }

// AddBlacklist appends a blacklist.
func (p *Pipeline[S, T]) AddBlacklist(b *BlacklistAdapter[S, T]) error {
	if b == nil {
		return fmt.Errorf("blacklist cannot be nil")
	}
	for _, existing := range p.blacklists {
		if existing.ID() == b.ID() {
			return fmt.Errorf("blacklist with ID %s already exists in pipeline %s", b.ID(), p.id)
		}
	}
	p.blacklists = append(p.blacklists, b)
	return nil
}

// AddStage appends a stage.
func (p *Pipeline[S, T]) AddStage(s *Stage[S, T]) error {
	if s == nil {
		return fmt.Errorf("stage cannot be nil")
	}
	for _, existing := range p.stages {
		if existing.ID() == s.ID() {
			return fmt.Errorf("stage with ID %s already exists in pipeline %s", s.ID(), p.id)
		}
	}
	p.stages = append(p.stages, s)
	return nil
}

// Stages returns the stages in execution order.
func (p *Pipeline[S, T]) Stages() []*Stage[S, T] { return p.stages }

// SetFailFast makes any failure abort the pass.
func (p *Pipeline[S, T]) SetFailFast(failFast bool) { p.failFast = failFast }

// instrumented returns a copy of the pipeline whose adapters report
// through obs. The receiver is not modified.
func (p *Pipeline[S, T]) instrumented(obs observability) *Pipeline[S, T] {
	c := *p
	c.logger = obs.logger.With().Str("pipeline", p.id).Logger()
	obs.logger = c.logger

	c.blacklists = make([]*BlacklistAdapter[S, T], len(p.blacklists))
	for i, b := range p.blacklists {
		c.blacklists[i] = b.instrumented(obs)
	}
	c.stages = make([]*Stage[S, T], len(p.stages))
	for i, s := range p.stages {
		sc := *s
		sc.units = make([]*UnitAdapter[S, T], len(s.units))
		for j, ua := range s.units {
			sc.units[j] = ua.instrumented(obs)
		}
		c.stages[i] = &sc
	}
	return &c
}

// Execute runs a full aggregation pass for pass and returns the frozen
// aggregator. Failures are isolated unless the pipeline is fail-fast.
// When ctx is cancelled with ErrPassDeadline the pass degrades to what
// was contributed in time; any other cancellation is returned as an error.
func (p *Pipeline[S, T]) Execute(ctx context.Context, pass *domain.Pass[S, T]) (*PassResult[T], error) {
	start := time.Now()
	recs := domain.NewRecommendations[T]()
	result := &PassResult[T]{Recommendations: recs}
	defer func() { result.Duration = time.Since(start) }()

	if err := p.runBlacklists(ctx, pass, result); err != nil {
		recs.Freeze()
		return nil, err
	}

	for _, stage := range p.stages {
		if ctx.Err() != nil {
			break
		}
		if stage.skipWhenEnough && recs.HasEnough(pass.Limit) {
			result.Skipped = append(result.Skipped, stage.id)
			p.logger.Debug().Str("stage", stage.id).Str("request_id", pass.RequestID).Msg("stage skipped, enough candidates")
			continue
		}

		err := stage.Execute(ctx, pass, recs, p.failFast)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if p.failFast {
			recs.Freeze()
			return nil, err
		}
		result.Failures = append(result.Failures, err)
	}

	recs.Freeze()

	if ctx.Err() != nil {
		if !errors.Is(context.Cause(ctx), ErrPassDeadline) {
			return nil, ctx.Err()
		}
		result.Degraded = true
		p.logger.Warn().
			Str("request_id", pass.RequestID).
			Int("candidates", recs.Size()).
			Msg("pass deadline exceeded, returning partial results")
	}
	return result, nil
}

func (p *Pipeline[S, T]) runBlacklists(ctx context.Context, pass *domain.Pass[S, T], result *PassResult[T]) error {
	if len(p.blacklists) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, b := range p.blacklists {
		g.Go(func() error {
			if err := b.Execute(gctx, pass); err != nil {
				if p.failFast {
					return err
				}
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("pipeline %s: %w", p.id, err)
	}
	result.Failures = append(result.Failures, errs...)
	return nil
}
