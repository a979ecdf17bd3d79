package domain

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendationsGetOrCreate(t *testing.T) {
	r := NewRecommendations[string]()

	a, err := r.GetOrCreate("adam")
	require.NoError(t, err)
	b, err := r.GetOrCreate("adam")
	require.NoError(t, err)

	assert.Same(t, a, b, "same item yields the same recommendation")
	assert.Equal(t, 1, r.Size())

	_, err = r.GetOrCreate("")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 1, r.Size(), "rejected items are not counted")
}

func TestRecommendationsInvalidArguments(t *testing.T) {
	r := NewRecommendations[string]()

	assert.ErrorIs(t, r.Add("", "x", 1), ErrInvalidArgument)
	assert.ErrorIs(t, r.Add("adam", "", 1), ErrInvalidArgument)
	assert.ErrorIs(t, r.AddScore("adam", nil), ErrInvalidArgument)
	assert.ErrorIs(t, r.AddScore("", NewScore()), ErrInvalidArgument)

	_, err := r.Top(-1)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = r.Merge(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Zero(t, r.Size())
}

func TestRecommendationsGet(t *testing.T) {
	r := NewRecommendations[string]()
	require.NoError(t, r.Add("adam", "friendsInCommon", 15))

	rec, err := r.Get("adam")
	require.NoError(t, err)
	assert.Equal(t, 15, rec.Total())

	_, err = r.Get("bob")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, r.Contains("bob"))
	assert.True(t, r.Contains("adam"))
}

func TestRecommendationsTop(t *testing.T) {
	r := NewRecommendations[string]()
	require.NoError(t, r.Add("adam", "friendsInCommon", 15))
	require.NoError(t, r.Add("adam", "sameGender", 10))
	require.NoError(t, r.Add("adam", "ageDifference", -6))
	require.NoError(t, r.Add("luanne", "friendsInCommon", 15))
	require.NoError(t, r.Add("luanne", "ageDifference", -7))
	require.NoError(t, r.Add("bob", "ageDifference", -9))
	require.NoError(t, r.Add("carl", "x", 8))

	t.Run("limit truncates", func(t *testing.T) {
		top, err := r.Top(2)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "adam", top[0].Item)
		assert.Equal(t, 19, top[0].Total)
	})

	t.Run("ties ordered by item", func(t *testing.T) {
		top, err := r.Top(4)
		require.NoError(t, err)
		items := make([]string, len(top))
		for i, rec := range top {
			items[i] = rec.Item
		}
		assert.Equal(t, []string{"adam", "carl", "luanne", "bob"}, items)
	})

	t.Run("limit above size returns all", func(t *testing.T) {
		top, err := r.Top(100)
		require.NoError(t, err)
		assert.Len(t, top, r.Size())
	})

	t.Run("zero limit", func(t *testing.T) {
		top, err := r.Top(0)
		require.NoError(t, err)
		assert.NotNil(t, top)
		assert.Empty(t, top)
	})

	t.Run("non-increasing totals", func(t *testing.T) {
		top, err := r.Top(r.Size())
		require.NoError(t, err)
		for i := 1; i < len(top); i++ {
			assert.GreaterOrEqual(t, top[i-1].Total, top[i].Total)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		top, err := r.TopFunc(10, func(item string) bool { return item != "adam" })
		require.NoError(t, err)
		require.Len(t, top, 3)
		assert.Equal(t, "carl", top[0].Item)
	})

	t.Run("partials are exposed in name order", func(t *testing.T) {
		top, err := r.Top(1)
		require.NoError(t, err)
		assert.Equal(t, "{total:19,ageDifference:-6,friendsInCommon:15,sameGender:10}", top[0].Score().String())
	})
}

func TestRecommendationsAllIsSnapshot(t *testing.T) {
	r := NewRecommendations[string]()
	require.NoError(t, r.Add("adam", "a", 1))
	require.NoError(t, r.Add("bob", "a", 2))

	first := r.All()
	second := r.All()
	assert.ElementsMatch(t, totals(first), totals(second))

	require.NoError(t, r.Add("adam", "a", 10))
	for _, rec := range first {
		if rec.Item() == "adam" {
			assert.Equal(t, 1, rec.Total(), "snapshot must not see later writes")
		}
	}
}

func TestRecommendationsMerge(t *testing.T) {
	a := NewRecommendations[string]()
	require.NoError(t, a.Add("adam", "friendsInCommon", 15))
	require.NoError(t, a.Add("vince", "sameGender", 10))

	b := NewRecommendations[string]()
	require.NoError(t, b.Add("adam", "ageDifference", -6))
	require.NoError(t, b.Add("luanne", "friendsInCommon", 15))

	merged, err := a.Merge(b)
	require.NoError(t, err)
	assert.Same(t, a, merged, "merge returns the target")
	assert.Equal(t, 3, merged.Size())

	want := map[string]int{"adam": 9, "vince": 10, "luanne": 15}
	for item, total := range want {
		rec, err := merged.Get(item)
		require.NoError(t, err)
		assert.Equal(t, total, rec.Total(), item)
	}

	assert.Equal(t, 2, b.Size(), "source is not modified")
	rec, err := b.Get("adam")
	require.NoError(t, err)
	assert.Equal(t, -6, rec.Total())
}

func TestRecommendationsFreeze(t *testing.T) {
	r := NewRecommendations[string]()
	require.NoError(t, r.Add("adam", "a", 1))
	rec, err := r.Get("adam")
	require.NoError(t, err)

	r.Freeze()
	r.Freeze()
	assert.True(t, r.Frozen())

	assert.ErrorIs(t, r.Add("adam", "a", 1), ErrFrozen)
	assert.ErrorIs(t, r.Add("bob", "a", 1), ErrFrozen)
	assert.ErrorIs(t, rec.Add("a", 1), ErrFrozen, "held references are frozen too")

	top, err := r.Top(10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 1, top[0].Total)
}

func TestRecommendationsHasEnough(t *testing.T) {
	r := NewRecommendations[string]()
	assert.True(t, r.HasEnough(0))
	assert.False(t, r.HasEnough(1))

	require.NoError(t, r.Ensure("adam"))
	assert.True(t, r.HasEnough(1))

	rec, err := r.Get("adam")
	require.NoError(t, err)
	assert.Zero(t, rec.Total())
}

func TestRecommendationsConcurrentContributions(t *testing.T) {
	const (
		workers = 16
		items   = 200
		rounds  = 5
	)

	r := NewRecommendations[string]()
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for round := range rounds {
				for i := range items {
					item := fmt.Sprintf("person-%d", i)
					name := fmt.Sprintf("unit-%d", (w+round)%3)
					assert.NoError(t, r.Add(item, name, 1))
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, items, r.Size())
	for _, rec := range r.All() {
		assert.Equal(t, workers*rounds, rec.Total(), rec.Item())
	}
}

func TestRecommendationsConcurrentGetOrCreateSingleWinner(t *testing.T) {
	r := NewRecommendations[int]()
	const callers = 64

	results := make([]*Recommendation[int], callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := r.GetOrCreate(42)
			assert.NoError(t, err)
			results[i] = rec
		}()
	}
	wg.Wait()

	for _, rec := range results {
		assert.Same(t, results[0], rec)
	}
	assert.Equal(t, 1, r.Size())
}

func TestRecommendationsConcurrentMerge(t *testing.T) {
	target := NewRecommendations[string]()
	sources := make([]*Recommendations[string], 8)
	for i := range sources {
		sources[i] = NewRecommendations[string]()
		for j := range 20 {
			require.NoError(t, sources[i].Add(fmt.Sprintf("p%d", j), "s", i+1))
		}
	}

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := target.Merge(src)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, target.Size())
	for _, rec := range target.All() {
		assert.Equal(t, 36, rec.Total(), "1+2+...+8")
	}
}

func TestRecommendationString(t *testing.T) {
	rec := NewRecommendation("Adam")
	require.NoError(t, rec.Add("friendsInCommon", 15))
	require.NoError(t, rec.Add("ageDifference", -3))

	assert.Equal(t, "Adam {total:12,ageDifference:-3,friendsInCommon:15}", rec.String())
}

func TestRankedString(t *testing.T) {
	t.Run("renders partials in order", func(t *testing.T) {
		r := NewRecommendation("Adam")
		require.NoError(t, r.Add("friendsInCommon", 15))
		require.NoError(t, r.Add("ageDifference", -3))

		assert.Equal(t, "{total:12,ageDifference:-3,friendsInCommon:15}", r.Snapshot().String())
	})

	t.Run("uses the stored total", func(t *testing.T) {
		r := Ranked[string]{Item: "carl", Total: 7, Partials: []PartialScore{{Name: "sameGender", Value: 10}}}
		assert.Equal(t, "{total:7,sameGender:10}", r.String())
	})
}

func totals(recs []*Recommendation[string]) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.String()
	}
	return out
}

func BenchmarkRecommendationsAdd(b *testing.B) {
	items := make([]string, 1024)
	for i := range items {
		items[i] = fmt.Sprintf("person-%d", i)
	}

	b.Run("parallel", func(b *testing.B) {
		r := NewRecommendations[string]()
		b.ReportAllocs()
		b.RunParallel(func(pb *testing.PB) {
			i := 0
			for pb.Next() {
				_ = r.Add(items[i%len(items)], "friendsInCommon", 1)
				i++
			}
		})
	})

	b.Run("top", func(b *testing.B) {
		r := NewRecommendations[string]()
		for i, item := range items {
			_ = r.Add(item, "s", i%97)
		}
		b.ReportAllocs()
		b.ResetTimer()
		for b.Loop() {
			_, _ = r.Top(10)
		}
	})
}
