package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-reco/configs"
	"github.com/ahrav/go-reco/infrastructure/cache"
	"github.com/ahrav/go-reco/infrastructure/metrics"
	"github.com/ahrav/go-reco/infrastructure/report"
	"github.com/ahrav/go-reco/infrastructure/store"
	"github.com/ahrav/go-reco/internal/application"
	"github.com/ahrav/go-reco/internal/config"
	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
	"github.com/ahrav/go-reco/internal/telemetry"
)

// runtime is the fully wired friends engine with the resources it owns.
type runtime struct {
	graph       ports.SocialGraph
	cache       ports.ResultCache[string]
	metrics     *metrics.PrometheusMetrics
	engine      *application.Engine[string, string]
	precomputer *application.Precomputer[string, string]
	namer       report.Namer

	closers []func() error
}

// newRuntime opens the store and cache selected by cfg and compiles the
// engine definition on top of them.
func newRuntime(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *runtime, err error) {
	rt := &runtime{metrics: metrics.NewPrometheusMetrics()}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	rt.closers = append(rt.closers, func() error { return shutdown(context.Background()) })

	base, err := rt.openGraph(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	rt.graph = store.Wrap(base, graphMiddlewares(cfg.Store, rt.metrics, logger)...)
	rt.namer = report.GraphNamer(rt.graph)

	if rt.cache, err = rt.openCache(cfg.Cache); err != nil {
		return nil, err
	}

	loader, err := application.NewEngineLoader[string, string](application.NewDefaultUnitRegistry(rt.graph))
	if err != nil {
		return nil, err
	}
	var def *application.Definition[string, string]
	if cfg.Engine.Definition != "" {
		def, err = loader.LoadFromFile(ctx, cfg.Engine.Definition)
	} else {
		def, err = loader.Load(ctx, configs.FriendsEngine)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load engine definition: %w", err)
	}

	rt.engine, err = application.NewEngine(def,
		application.WithCache[string, string](rt.cache),
		application.WithReporter[string, string](report.NewLogReporter[string, string](logger, rt.namer)),
		application.WithMetrics[string, string](rt.metrics),
		application.WithLogger[string, string](logger),
		application.WithSubjectCheck[string, string](application.PersonExists(rt.graph)),
	)
	if err != nil {
		return nil, err
	}
	rt.precomputer = application.NewPrecomputer(rt.engine, application.PeoplePopulation(rt.graph), cfg.Scheduler.Concurrency, logger)

	return rt, nil
}

func (rt *runtime) openGraph(ctx context.Context, cfg config.StoreConfig) (ports.SocialGraph, error) {
	switch cfg.Driver {
	case "sqlite":
		g, err := store.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, g.Close)
		return g, nil
	default:
		fixture, err := loadFixture(cfg.Fixture)
		if err != nil {
			return nil, err
		}
		return store.NewMemoryGraphFromFixture(ctx, fixture)
	}
}

func (rt *runtime) openCache(cfg config.CacheConfig) (ports.ResultCache[string], error) {
	switch cfg.Backend {
	case "badger":
		db, err := cache.OpenBadger(cfg.Path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, db.Close)
		return cache.NewBadgerCache[string](db, cfg.TTL), nil
	default:
		return cache.NewMemoryCache[string](cfg.TTL), nil
	}
}

// graphMiddlewares guards the store: queries are measured, paced,
// short-circuited while the store keeps failing and bounded in time.
func graphMiddlewares(cfg config.StoreConfig, collector ports.MetricsCollector, logger zerolog.Logger) []store.Middleware {
	mws := []store.Middleware{store.Metrics(collector)}
	if cfg.RateLimit > 0 {
		mws = append(mws, store.RateLimit(rate.Limit(cfg.RateLimit), cfg.Burst))
	}
	breakerLog := logger.With().Str("component", "store").Logger()
	mws = append(mws,
		store.CircuitBreaker(store.BreakerConfig{
			Name:             "social-graph",
			FailureThreshold: cfg.BreakerFailures,
			Cooldown:         cfg.BreakerTimeout,
			OnStateChange: func(name string, from, to gobreaker.State) {
				breakerLog.Warn().
					Str("breaker", name).
					Stringer("from", from).
					Stringer("to", to).
					Msg("circuit breaker state changed")
			},
		}),
		store.Timeout(cfg.QueryTimeout),
	)
	return mws
}

// loadFixture reads the fixture at path, or the bundled sample graph when
// path is empty.
func loadFixture(path string) (*store.Fixture, error) {
	if path == "" {
		return store.LoadFixture(bytes.NewReader(configs.PeopleFixture))
	}
	return store.LoadFixtureFile(path)
}

// resolveSubject accepts a person id or, failing that, a display name
// matched without regard to case.
func (rt *runtime) resolveSubject(ctx context.Context, subject string) (domain.Person, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return domain.Person{}, usageErrorf("--subject is required")
	}

	p, err := rt.graph.Person(ctx, subject)
	if err == nil || !errors.Is(err, ports.ErrPersonNotFound) {
		return p, err
	}

	people, perr := rt.graph.People(ctx)
	if perr != nil {
		return domain.Person{}, perr
	}
	for _, candidate := range people {
		if strings.EqualFold(candidate.Name, subject) {
			return candidate, nil
		}
	}
	return domain.Person{}, err
}

// Close releases every resource in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}
