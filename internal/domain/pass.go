package domain

import (
	"cmp"
	"sync"
)

// Pass carries the per-invocation context of one aggregation pass: who
// the ranking is for, how many results are wanted and which candidates
// must never be recommended. A Pass is created by the engine and shared
// read-only with every scoring unit, except for the exclusion set which
// blacklists populate before units are dispatched.
type Pass[S any, T cmp.Ordered] struct {
	// Subject is the entity recommendations are computed for.
	Subject S

	// Mode is the execution mode the pass was requested with.
	Mode Mode

	// Limit is the number of results the caller wants.
	Limit int

	// RequestID correlates logs, spans and reports of one pass.
	RequestID string

	mu       sync.RWMutex
	excluded map[T]struct{}
}

// NewPass creates a pass with an empty exclusion set.
func NewPass[S any, T cmp.Ordered](subject S, mode Mode, limit int, requestID string) *Pass[S, T] {
	return &Pass[S, T]{
		Subject:   subject,
		Mode:      mode,
		Limit:     limit,
		RequestID: requestID,
		excluded:  make(map[T]struct{}),
	}
}

// Exclude adds items to the exclusion set.
func (p *Pass[S, T]) Exclude(items ...T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.excluded == nil {
		p.excluded = make(map[T]struct{}, len(items))
	}
	for _, item := range items {
		p.excluded[item] = struct{}{}
	}
}

// Allowed reports whether item may be recommended in this pass.
func (p *Pass[S, T]) Allowed(item T) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, excluded := p.excluded[item]
	return !excluded
}

// Excluded returns the number of excluded items.
func (p *Pass[S, T]) Excluded() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.excluded)
}
