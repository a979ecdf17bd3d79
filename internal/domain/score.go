// Package domain contains pure, dependency-free domain models and types
// for the recommendation engine.
package domain

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// PartialScore is one named contribution to a candidate's total score.
type PartialScore struct {
	// Name identifies the signal that produced the value, for example
	// "friendsInCommon" or "ageDifference".
	Name string `json:"name"`

	// Value is the accumulated value of the signal.
	Value int `json:"value"`
}

// Score aggregates named partial scores and maintains their sum.
// Adding a partial score under an existing name accumulates into that
// name rather than replacing it, so the total is always the sum of the
// current partial values.
//
// Score is not safe for concurrent use. Recommendation serializes access
// to the Score it owns.
type Score struct {
	partials map[string]int
	total    int
}

// NewScore creates an empty Score with a total of zero.
func NewScore() *Score {
	return &Score{partials: make(map[string]int)}
}

// Add accumulates value into the partial score called name and updates
// the total. It returns ErrInvalidArgument if name is empty.
func (s *Score) Add(name string, value int) error {
	if name == "" {
		return invalidArgument("partial score name must not be empty")
	}
	if s.partials == nil {
		s.partials = make(map[string]int)
	}

	s.partials[name] += value
	s.total += value
	return nil
}

// AddScore merges every partial of other into s by name, summing values.
// It returns ErrInvalidArgument if other is nil.
func (s *Score) AddScore(other *Score) error {
	if other == nil {
		return invalidArgument("score must not be nil")
	}
	if s == other {
		other = other.Clone()
	}

	for name, value := range other.partials {
		if err := s.Add(name, value); err != nil {
			return err
		}
	}
	return nil
}

// Total returns the sum of all partial scores.
func (s *Score) Total() int { return s.total }

// Get returns the value of the named partial score and whether it exists.
func (s *Score) Get(name string) (int, bool) {
	v, ok := s.partials[name]
	return v, ok
}

// Len returns the number of distinct partial scores.
func (s *Score) Len() int { return len(s.partials) }

// Partials returns the partial scores ordered by name.
func (s *Score) Partials() []PartialScore {
	names := slices.Sorted(maps.Keys(s.partials))
	out := make([]PartialScore, 0, len(names))
	for _, name := range names {
		out = append(out, PartialScore{Name: name, Value: s.partials[name]})
	}
	return out
}

// Clone returns an independent copy of the Score.
func (s *Score) Clone() *Score {
	return &Score{
		partials: maps.Clone(s.partials),
		total:    s.total,
	}
}

// String renders the score as {total:<t>,<name>:<value>,...} with
// partial names in ascending order.
func (s *Score) String() string {
	var b strings.Builder
	b.WriteString("{total:")
	b.WriteString(strconv.Itoa(s.total))
	for _, p := range s.Partials() {
		b.WriteByte(',')
		b.WriteString(p.Name)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(p.Value))
	}
	b.WriteByte('}')
	return b.String()
}

// ScoreFromPartials rebuilds a Score from previously exported partials,
// for example when reading a cached ranking.
func ScoreFromPartials(partials []PartialScore) (*Score, error) {
	s := NewScore()
	for _, p := range partials {
		if err := s.Add(p.Name, p.Value); err != nil {
			return nil, err
		}
	}
	return s, nil
}
