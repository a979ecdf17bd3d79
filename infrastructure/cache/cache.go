// Package cache provides ports.ResultCache implementations for
// precomputed recommendations: an in-process map with TTL and a durable
// BadgerDB store.
package cache

import (
	"cmp"
	"slices"

	"github.com/ahrav/go-reco/internal/domain"
)

// cloneRanked deep-copies a ranking so cached entries never alias
// caller-owned slices.
func cloneRanked[T cmp.Ordered](ranked []domain.Ranked[T]) []domain.Ranked[T] {
	if ranked == nil {
		return nil
	}
	out := make([]domain.Ranked[T], len(ranked))
	for i, r := range ranked {
		out[i] = domain.Ranked[T]{Item: r.Item, Total: r.Total, Partials: slices.Clone(r.Partials)}
	}
	return out
}
