package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-reco/configs"
	"github.com/ahrav/go-reco/infrastructure/cache"
	"github.com/ahrav/go-reco/infrastructure/report"
	"github.com/ahrav/go-reco/infrastructure/store"
	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
	"github.com/ahrav/go-reco/internal/testutils"
)

const (
	expectedForVince = "Computed recommendations for Vince: " +
		"(Adam {total:19,ageDifference:-6,friendsInCommon:15,sameGender:10})," +
		"(Luanne {total:8,ageDifference:-7,friendsInCommon:15})"
	expectedForAdam = "Computed recommendations for Adam: " +
		"(Vince {total:19,ageDifference:-6,friendsInCommon:15,sameGender:10})," +
		"(Luanne {total:12,ageDifference:-3,friendsInCommon:15})"
)

// friendsFixture wires the default friends engine over the sample graph.
type friendsFixture struct {
	graph    *store.MemoryGraph
	cache    *cache.MemoryCache[string]
	reporter *report.RememberingReporter[string, string]
	metrics  *testutils.RecordingMetrics
	engine   *Engine[string, string]
}

func loadFriendsDefinition(t *testing.T, graph ports.SocialGraph, definition []byte) *Definition[string, string] {
	t.Helper()

	loader, err := NewEngineLoader[string, string](NewDefaultUnitRegistry(graph))
	require.NoError(t, err)
	def, err := loader.Load(context.Background(), definition)
	require.NoError(t, err)
	return def
}

func newFriendsFixture(t *testing.T, definition []byte) *friendsFixture {
	t.Helper()

	f := &friendsFixture{
		graph:   testutils.NewPeopleGraph(t),
		cache:   cache.NewMemoryCache[string](0),
		metrics: testutils.NewRecordingMetrics(),
	}
	f.reporter = report.NewRememberingReporter[string, string](report.GraphNamer(f.graph))

	engine, err := NewEngine(loadFriendsDefinition(t, f.graph, definition),
		WithCache[string, string](f.cache),
		WithReporter[string, string](f.reporter),
		WithMetrics[string, string](f.metrics),
		WithSubjectCheck[string, string](PersonExists(f.graph)),
	)
	require.NoError(t, err)
	f.engine = engine
	return f
}

func items(ranked []domain.Ranked[string]) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	return out
}

func itemTotals(ranked []domain.Ranked[string]) []int {
	out := make([]int, len(ranked))
	for i, r := range ranked {
		out[i] = r.Total
	}
	return out
}

// TestEngine_RecommendRealTime reproduces the reference friends scenario.
func TestEngine_RecommendRealTime(t *testing.T) {
	f := newFriendsFixture(t, configs.FriendsEngine)
	ctx := context.Background()

	t.Run("vince", func(t *testing.T) {
		ranked, err := f.engine.Recommend(ctx, testutils.Vince, domain.RealTime, 2)
		require.NoError(t, err)

		assert.Equal(t, []string{testutils.Adam, testutils.Luanne}, items(ranked))
		assert.Equal(t, []int{19, 8}, itemTotals(ranked))
		assert.Equal(t, expectedForVince, f.reporter.Get(testutils.Vince))
	})

	t.Run("adam", func(t *testing.T) {
		ranked, err := f.engine.Recommend(ctx, testutils.Adam, domain.RealTime, 2)
		require.NoError(t, err)

		assert.Equal(t, []string{testutils.Vince, testutils.Luanne}, items(ranked))
		assert.Equal(t, expectedForAdam, f.reporter.Get(testutils.Adam))
	})

	t.Run("luanne is topped up with random people", func(t *testing.T) {
		ranked, err := f.engine.Recommend(ctx, testutils.Luanne, domain.RealTime, 4)
		require.NoError(t, err)

		assert.Equal(t, []string{testutils.Daniela, testutils.Adam, testutils.Vince, testutils.Bob}, items(ranked))
		assert.Equal(t, []int{22, 12, 8, -9}, itemTotals(ranked))
	})

	t.Run("results are deterministic", func(t *testing.T) {
		first, err := f.engine.Recommend(ctx, testutils.Luanne, domain.RealTime, 4)
		require.NoError(t, err)
		for range 10 {
			again, err := f.engine.Recommend(ctx, testutils.Luanne, domain.RealTime, 4)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	})

	assert.Positive(t, f.metrics.Latencies("recommend"))
	assert.Positive(t, f.metrics.Latencies("unit_execution"))
	assert.Zero(t, f.metrics.Counter("unit_failures_total"))
}

func TestEngine_RecommendValidatesInput(t *testing.T) {
	f := newFriendsFixture(t, configs.FriendsEngine)
	ctx := context.Background()
	maxLimit := f.engine.Settings().MaxLimit

	tests := []struct {
		name    string
		subject string
		mode    domain.Mode
		limit   int
		wantErr error
	}{
		{name: "negative limit", subject: testutils.Vince, mode: domain.RealTime, limit: -1, wantErr: domain.ErrInvalidArgument},
		{name: "limit above maximum", subject: testutils.Vince, mode: domain.RealTime, limit: maxLimit + 1, wantErr: domain.ErrInvalidArgument},
		{name: "unknown mode", subject: testutils.Vince, mode: domain.Mode(42), limit: 2, wantErr: domain.ErrInvalidArgument},
		{name: "unknown subject", subject: "nobody", mode: domain.RealTime, limit: 2, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Recommend(ctx, tt.subject, tt.mode, tt.limit)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, IsInvalidRequest(err))
		})
	}

	t.Run("zero limit returns an empty list without reporting", func(t *testing.T) {
		ranked, err := f.engine.Recommend(ctx, testutils.Bob, domain.RealTime, 0)
		require.NoError(t, err)
		assert.NotNil(t, ranked)
		assert.Empty(t, ranked)
		assert.Empty(t, f.reporter.Get(testutils.Bob))
	})
}

func TestEngine_Precomputed(t *testing.T) {
	ctx := context.Background()

	t.Run("cold cache falls back to real time", func(t *testing.T) {
		f := newFriendsFixture(t, configs.FriendsEngine)

		realTime, err := f.engine.Recommend(ctx, testutils.Vince, domain.RealTime, 2)
		require.NoError(t, err)
		precomputed, err := f.engine.Recommend(ctx, testutils.Vince, domain.Precomputed, 2)
		require.NoError(t, err)

		assert.Equal(t, realTime, precomputed)
		assert.Equal(t, expectedForVince, f.reporter.Get(testutils.Vince))
		assert.Equal(t, 1.0, f.metrics.Counter("cache_misses_total"))
		assert.Equal(t, 1.0, f.metrics.Counter("fallbacks_total"))
		assert.Equal(t, 0, f.cache.Len(), "fallback must not populate the cache by default")
	})

	t.Run("warm cache is served and truncated", func(t *testing.T) {
		f := newFriendsFixture(t, configs.FriendsEngine)
		require.NoError(t, f.engine.ComputeAndCache(ctx, testutils.Vince))

		cached, ok, err := f.cache.Get(ctx, testutils.Vince)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{testutils.Adam, testutils.Luanne}, items(cached))

		ranked, err := f.engine.Recommend(ctx, testutils.Vince, domain.Precomputed, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{testutils.Adam}, items(ranked))

		ranked, err = f.engine.Recommend(ctx, testutils.Vince, domain.Precomputed, 2)
		require.NoError(t, err)
		assert.Equal(t, expectedForVince, f.reporter.Get(testutils.Vince))
		assert.Equal(t, 2.0, f.metrics.Counter("cache_hits_total"))
		assert.Zero(t, f.metrics.Counter("fallbacks_total"))
	})

	t.Run("cache read errors fall back to real time", func(t *testing.T) {
		graph := testutils.NewPeopleGraph(t)
		engine, err := NewEngine(loadFriendsDefinition(t, graph, configs.FriendsEngine),
			WithCache[string, string](brokenCache{}),
		)
		require.NoError(t, err)

		ranked, err := engine.Recommend(ctx, testutils.Vince, domain.Precomputed, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{testutils.Adam, testutils.Luanne}, items(ranked))
	})

	t.Run("no cache always computes", func(t *testing.T) {
		graph := testutils.NewPeopleGraph(t)
		engine, err := NewEngine(loadFriendsDefinition(t, graph, configs.FriendsEngine))
		require.NoError(t, err)

		ranked, err := engine.Recommend(ctx, testutils.Adam, domain.Precomputed, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{testutils.Vince, testutils.Luanne}, items(ranked))

		err = engine.ComputeAndCache(ctx, testutils.Adam)
		assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	})

	t.Run("populate on miss stores the full ranking", func(t *testing.T) {
		f := newFriendsFixture(t, withPopulateOnMiss(t))

		ranked, err := f.engine.Recommend(ctx, testutils.Luanne, domain.Precomputed, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{testutils.Daniela}, items(ranked))
		assert.Equal(t, 1, f.metrics.Latencies("pass"), "one pass serves the caller and fills the cache")

		cached, ok, err := f.cache.Get(ctx, testutils.Luanne)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{testutils.Daniela, testutils.Adam, testutils.Vince, testutils.Bob}, items(cached))

		ranked, err = f.engine.Recommend(ctx, testutils.Luanne, domain.Precomputed, 4)
		require.NoError(t, err)
		assert.Equal(t, []int{22, 12, 8, -9}, itemTotals(ranked))
		assert.Equal(t, 1.0, f.metrics.Counter("cache_hits_total"))
	})

	t.Run("invalidate removes the cached entry", func(t *testing.T) {
		f := newFriendsFixture(t, configs.FriendsEngine)
		require.NoError(t, f.engine.ComputeAndCache(ctx, testutils.Adam))
		require.NoError(t, f.engine.Invalidate(ctx, testutils.Adam))

		_, ok, err := f.cache.Get(ctx, testutils.Adam)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestEngine_ConcurrentColdReadsShareOnePass(t *testing.T) {
	graph := testutils.NewPeopleGraph(t)
	engine, err := NewEngine(loadFriendsDefinition(t, graph, configs.FriendsEngine),
		WithCache[string, string](cache.NewMemoryCache[string](0)),
	)
	require.NoError(t, err)

	const callers = 16
	results := make([][]domain.Ranked[string], callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ranked, err := engine.Recommend(context.Background(), testutils.Vince, domain.Precomputed, 2)
			assert.NoError(t, err)
			results[i] = ranked
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, []string{testutils.Adam, testutils.Luanne}, items(r))
	}
}

func TestEngine_CancelledCallerDoesNotFailSharedFallback(t *testing.T) {
	graph := testutils.NewPeopleGraph(t)
	slow := &slowGraph{SocialGraph: graph, delay: 300 * time.Millisecond}
	engine, err := NewEngine(loadFriendsDefinition(t, slow, configs.FriendsEngine),
		WithCache[string, string](cache.NewMemoryCache[string](0)),
	)
	require.NoError(t, err)

	cancelledCtx, cancel := context.WithCancel(context.Background())
	cancelledErr := make(chan error, 1)
	go func() {
		_, err := engine.Recommend(cancelledCtx, testutils.Luanne, domain.Precomputed, 4)
		cancelledErr <- err
	}()

	type outcome struct {
		ranked []domain.Ranked[string]
		err    error
	}
	patient := make(chan outcome, 1)
	go func() {
		// Joins the flight started by the first caller.
		time.Sleep(20 * time.Millisecond)
		ranked, err := engine.Recommend(context.Background(), testutils.Luanne, domain.Precomputed, 4)
		patient <- outcome{ranked: ranked, err: err}
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-cancelledErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return promptly")
	}

	got := <-patient
	require.NoError(t, got.err)
	assert.Equal(t, []string{testutils.Daniela, testutils.Adam, testutils.Vince, testutils.Bob}, items(got.ranked))
	assert.Equal(t, []int{22, 12, 8, -9}, itemTotals(got.ranked))
}

func TestEngine_PassDeadline(t *testing.T) {
	graph := testutils.NewPeopleGraph(t)
	slow := &slowGraph{SocialGraph: graph, delay: 2 * time.Second}
	engine, err := NewEngine(loadFriendsDefinition(t, slow, withShortDeadline(t)))
	require.NoError(t, err)

	start := time.Now()
	ranked, err := engine.Recommend(context.Background(), testutils.Luanne, domain.RealTime, 4)
	require.NoError(t, err, "a pass deadline degrades instead of failing")

	assert.Less(t, time.Since(start), time.Second)
	// random_people never finished, so Bob is missing and enrichment never ran.
	assert.Equal(t, []string{testutils.Adam, testutils.Daniela, testutils.Vince}, items(ranked))
	assert.Equal(t, []int{15, 15, 15}, itemTotals(ranked))
}

func TestNewEngine_RequiresDefinition(t *testing.T) {
	_, err := NewEngine[string, string](nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

// withPopulateOnMiss returns the default definition with fallbacks
// writing through to the cache.
func withPopulateOnMiss(t *testing.T) []byte {
	t.Helper()
	out := strings.Replace(string(configs.FriendsEngine), "populate_on_miss: false", "populate_on_miss: true", 1)
	require.NotEqual(t, string(configs.FriendsEngine), out)
	return []byte(out)
}

// withShortDeadline returns the default definition with a 100ms pass
// deadline and no per-unit bound.
func withShortDeadline(t *testing.T) []byte {
	t.Helper()
	out := strings.Replace(string(configs.FriendsEngine), "pass_timeout_ms: 2000", "pass_timeout_ms: 100", 1)
	out = strings.Replace(out, "  unit_timeout_ms: 1000\n", "", 1)
	require.NotContains(t, out, "unit_timeout_ms")
	return []byte(out)
}

// brokenCache fails every operation.
type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) ([]domain.Ranked[string], bool, error) {
	return nil, false, errCacheDown
}
func (brokenCache) Put(context.Context, string, []domain.Ranked[string]) error { return errCacheDown }
func (brokenCache) Delete(context.Context, string) error                       { return errCacheDown }
func (brokenCache) Clear(context.Context) error                                { return errCacheDown }

// slowGraph delays People until ctx ends or delay elapses.
type slowGraph struct {
	ports.SocialGraph
	delay time.Duration
}

func (g *slowGraph) People(ctx context.Context) ([]domain.Person, error) {
	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.SocialGraph.People(ctx)
}
