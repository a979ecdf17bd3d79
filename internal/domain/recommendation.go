package domain

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Recommendation binds one candidate item to the Score accumulated for it
// during an aggregation pass. The Score is guarded by a per-candidate
// mutex so that units contributing to the same candidate never race;
// locks on different candidates never contend.
type Recommendation[T cmp.Ordered] struct {
	item T

	mu    sync.Mutex
	score *Score

	// frozen is shared with the owning aggregator; nil for standalone values.
	frozen *atomic.Bool
}

// NewRecommendation creates a Recommendation for item with an empty score.
func NewRecommendation[T cmp.Ordered](item T) *Recommendation[T] {
	return &Recommendation[T]{item: item, score: NewScore()}
}

// Item returns the candidate this recommendation is for.
func (r *Recommendation[T]) Item() T { return r.item }

// Add accumulates a single partial score.
func (r *Recommendation[T]) Add(name string, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isFrozen() {
		return ErrFrozen
	}
	return r.score.Add(name, value)
}

// AddScore accumulates every partial of s.
func (r *Recommendation[T]) AddScore(s *Score) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isFrozen() {
		return ErrFrozen
	}
	return r.score.AddScore(s)
}

func (r *Recommendation[T]) isFrozen() bool {
	return r.frozen != nil && r.frozen.Load()
}

// barrier waits for any in-flight write on r to finish.
func (r *Recommendation[T]) barrier() {
	r.mu.Lock()
	r.mu.Unlock() //nolint:staticcheck // empty critical section is intentional
}

// Score returns a snapshot of the accumulated score. Later contributions
// are not reflected in the returned value.
func (r *Recommendation[T]) Score() *Score {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.score.Clone()
}

// Total returns the current total score.
func (r *Recommendation[T]) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.score.Total()
}

// Clone returns an independent copy of the recommendation.
func (r *Recommendation[T]) Clone() *Recommendation[T] {
	return &Recommendation[T]{item: r.item, score: r.Score()}
}

// String renders the recommendation as "<item> {total:...}".
func (r *Recommendation[T]) String() string {
	return fmt.Sprintf("%v %s", r.item, r.Score())
}

// Ranked is an immutable, exported view of one ranked recommendation.
// It is what engines return, caches persist and reporters render.
type Ranked[T cmp.Ordered] struct {
	// Item is the recommended candidate.
	Item T `json:"item"`

	// Total is the sum of all partial scores.
	Total int `json:"total"`

	// Partials holds the partial scores ordered by name.
	Partials []PartialScore `json:"partials,omitempty"`
}

// Snapshot captures the recommendation as a Ranked value.
func (r *Recommendation[T]) Snapshot() Ranked[T] {
	s := r.Score()
	return Ranked[T]{Item: r.item, Total: s.Total(), Partials: s.Partials()}
}

// Score rebuilds the Score described by the ranked entry.
func (r Ranked[T]) Score() *Score {
	s, err := ScoreFromPartials(r.Partials)
	if err != nil {
		// Partials with empty names never leave a Score, so only a
		// hand-built Ranked value can get here.
		return NewScore()
	}
	return s
}

// String renders the entry like Score.String, using the stored Total
// rather than one recomputed from the partials.
func (r Ranked[T]) String() string {
	var b strings.Builder
	b.WriteString("{total:")
	b.WriteString(strconv.Itoa(r.Total))
	for _, p := range r.Partials {
		b.WriteByte(',')
		b.WriteString(p.Name)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(p.Value))
	}
	b.WriteByte('}')
	return b.String()
}

// compareRanked orders by descending total and then ascending item.
func compareRanked[T cmp.Ordered](a, b Ranked[T]) int {
	if c := cmp.Compare(b.Total, a.Total); c != 0 {
		return c
	}
	return cmp.Compare(a.Item, b.Item)
}
