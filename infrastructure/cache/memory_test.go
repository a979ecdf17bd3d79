package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-reco/internal/domain"
)

func sampleRanking() []domain.Ranked[string] {
	return []domain.Ranked[string]{
		{Item: "adam", Total: 19, Partials: []domain.PartialScore{
			{Name: "ageDifference", Value: -6},
			{Name: "friendsInCommon", Value: 15},
			{Name: "sameGender", Value: 10},
		}},
		{Item: "luanne", Total: 8, Partials: []domain.PartialScore{
			{Name: "ageDifference", Value: -7},
			{Name: "friendsInCommon", Value: 15},
		}},
	}
}

func TestMemoryCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string](0)

	_, ok, err := c.Get(ctx, "vince")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "vince", sampleRanking()))

	got, ok, err := c.Get(ctx, "vince")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sampleRanking(), got)
}

func TestMemoryCache_EntriesAreCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string](0)

	ranked := sampleRanking()
	require.NoError(t, c.Put(ctx, "vince", ranked))
	ranked[0].Total = 1000
	ranked[0].Partials[0].Value = 1000

	got, _, err := c.Get(ctx, "vince")
	require.NoError(t, err)
	assert.Equal(t, 19, got[0].Total)
	assert.Equal(t, -6, got[0].Partials[0].Value)

	got[1].Item = "mutated"
	again, _, err := c.Get(ctx, "vince")
	require.NoError(t, err)
	assert.Equal(t, "luanne", again[1].Item)
}

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string](time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put(ctx, "vince", sampleRanking()))

	now = now.Add(59 * time.Second)
	_, ok, err := c.Get(ctx, "vince")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok, err = c.Get(ctx, "vince")
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire once its TTL has elapsed")
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string](0)

	require.NoError(t, c.Put(ctx, "vince", sampleRanking()))
	require.NoError(t, c.Put(ctx, "adam", sampleRanking()))

	require.NoError(t, c.Delete(ctx, "vince"))
	require.NoError(t, c.Delete(ctx, "unknown"))
	_, ok, _ := c.Get(ctx, "vince")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_EmptyRankingIsAHit(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache[string](0)

	require.NoError(t, c.Put(ctx, "bob", nil))
	got, ok, err := c.Get(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestMemoryCache_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewMemoryCache[string](0)

	assert.ErrorIs(t, c.Put(ctx, "vince", sampleRanking()), context.Canceled)
	_, _, err := c.Get(ctx, "vince")
	assert.ErrorIs(t, err, context.Canceled)
}
