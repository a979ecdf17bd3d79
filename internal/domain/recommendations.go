package domain

import (
	"cmp"
	"hash/maphash"
	"slices"
	"sync"
	"sync/atomic"
)

// shardCount is the number of independently locked partitions of an
// aggregator. It must be a power of two.
const shardCount = 32

type shard[T cmp.Ordered] struct {
	mu    sync.RWMutex
	items map[T]*Recommendation[T]
}

// Recommendations is the concurrent aggregator that scoring units
// contribute into during one aggregation pass. It maps each candidate to
// exactly one Recommendation.
//
// Candidates are spread over shardCount partitions, each guarded by its
// own lock, so contributions for different candidates rarely contend.
// Get-or-create is double checked under the shard's write lock so that
// concurrent first contributions for the same candidate resolve to a
// single Recommendation and no contribution is lost.
//
// The zero value of T is treated as an empty identity and rejected.
// Once Freeze has been called every write fails with ErrFrozen.
type Recommendations[T cmp.Ordered] struct {
	seed   maphash.Seed
	shards [shardCount]shard[T]
	size   atomic.Int64
	frozen atomic.Bool
}

// NewRecommendations creates an empty aggregator.
func NewRecommendations[T cmp.Ordered]() *Recommendations[T] {
	r := &Recommendations[T]{seed: maphash.MakeSeed()}
	for i := range r.shards {
		r.shards[i].items = make(map[T]*Recommendation[T])
	}
	return r
}

func (r *Recommendations[T]) shardFor(item T) *shard[T] {
	h := maphash.Comparable(r.seed, item)
	return &r.shards[h&(shardCount-1)]
}

func (r *Recommendations[T]) checkItem(item T) error {
	var zero T
	if item == zero {
		return invalidArgument("item must not be empty")
	}
	return nil
}

// GetOrCreate returns the Recommendation for item, installing a new one
// if none exists yet. Concurrent callers for the same item all observe the
// same instance.
func (r *Recommendations[T]) GetOrCreate(item T) (*Recommendation[T], error) {
	if err := r.checkItem(item); err != nil {
		return nil, err
	}
	if r.frozen.Load() {
		return nil, ErrFrozen
	}

	s := r.shardFor(item)
	s.mu.RLock()
	rec, ok := s.items[item]
	s.mu.RUnlock()
	if ok {
		return rec, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.items[item]; ok {
		return rec, nil
	}
	// Re-check under the shard lock: Freeze may have won the race.
	if r.frozen.Load() {
		return nil, ErrFrozen
	}
	rec = NewRecommendation(item)
	rec.frozen = &r.frozen
	s.items[item] = rec
	r.size.Add(1)
	return rec, nil
}

// Add accumulates a single partial score for item.
func (r *Recommendations[T]) Add(item T, name string, value int) error {
	if name == "" {
		return invalidArgument("partial score name must not be empty")
	}
	rec, err := r.GetOrCreate(item)
	if err != nil {
		return err
	}
	return rec.Add(name, value)
}

// AddScore accumulates every partial of score for item.
func (r *Recommendations[T]) AddScore(item T, score *Score) error {
	if score == nil {
		return invalidArgument("score must not be nil")
	}
	rec, err := r.GetOrCreate(item)
	if err != nil {
		return err
	}
	return rec.AddScore(score)
}

// Ensure registers item as a candidate without contributing any partial.
// Its total stays at zero unless other contributions arrive.
func (r *Recommendations[T]) Ensure(item T) error {
	_, err := r.GetOrCreate(item)
	return err
}

// Get returns the Recommendation for item or ErrNotFound if item was never
// contributed.
func (r *Recommendations[T]) Get(item T) (*Recommendation[T], error) {
	if err := r.checkItem(item); err != nil {
		return nil, err
	}
	s := r.shardFor(item)
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[item]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

// Contains reports whether item has been contributed.
func (r *Recommendations[T]) Contains(item T) bool {
	_, err := r.Get(item)
	return err == nil
}

// All returns a snapshot of every recommendation in no particular order.
// The returned slice and its elements are copies; later writes to the
// aggregator do not affect them.
func (r *Recommendations[T]) All() []*Recommendation[T] {
	out := make([]*Recommendation[T], 0, r.Size())
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, rec := range s.items {
			out = append(out, rec.Clone())
		}
		s.mu.RUnlock()
	}
	return out
}

// Top returns at most limit recommendations ordered by descending total.
// Equal totals are ordered by ascending item. A limit larger than Size
// returns everything; a limit of zero returns an empty slice.
func (r *Recommendations[T]) Top(limit int) ([]Ranked[T], error) {
	return r.TopFunc(limit, nil)
}

// TopFunc is like Top but only ranks items for which keep returns true.
// A nil keep ranks every item.
func (r *Recommendations[T]) TopFunc(limit int, keep func(T) bool) ([]Ranked[T], error) {
	if limit < 0 {
		return nil, invalidArgument("limit must not be negative, got %d", limit)
	}
	if limit == 0 {
		return []Ranked[T]{}, nil
	}

	ranked := make([]Ranked[T], 0, r.Size())
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for item, rec := range s.items {
			if keep != nil && !keep(item) {
				continue
			}
			ranked = append(ranked, rec.Snapshot())
		}
		s.mu.RUnlock()
	}

	slices.SortFunc(ranked, compareRanked[T])
	if len(ranked) > limit {
		ranked = ranked[:limit:limit]
	}
	return ranked, nil
}

// Merge adds every recommendation of other into r and returns r. other is
// not modified. Merging an aggregator into itself doubles every score.
func (r *Recommendations[T]) Merge(other *Recommendations[T]) (*Recommendations[T], error) {
	if other == nil {
		return nil, invalidArgument("recommendations must not be nil")
	}
	for _, rec := range other.All() {
		if err := r.AddScore(rec.Item(), rec.Score()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// HasEnough reports whether at least limit distinct candidates have been
// contributed.
func (r *Recommendations[T]) HasEnough(limit int) bool {
	return r.Size() >= limit
}

// Size returns the number of distinct candidates contributed so far.
func (r *Recommendations[T]) Size() int { return int(r.size.Load()) }

// Freeze makes the aggregator read-only. When it returns no write is in
// flight and every later write fails with ErrFrozen. It is idempotent.
func (r *Recommendations[T]) Freeze() {
	if r.frozen.Load() {
		return
	}
	for i := range r.shards {
		r.shards[i].mu.Lock()
	}
	r.frozen.Store(true)
	for i := range r.shards {
		r.shards[i].mu.Unlock()
	}

	for i := range r.shards {
		s := &r.shards[i]
		s.mu.RLock()
		for _, rec := range s.items {
			rec.barrier()
		}
		s.mu.RUnlock()
	}
}

// Frozen reports whether Freeze has been called.
func (r *Recommendations[T]) Frozen() bool { return r.frozen.Load() }
