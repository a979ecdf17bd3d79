package cache

import (
	"cmp"
	"context"
	"sync"
	"time"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

var _ ports.ResultCache[string] = (*MemoryCache[string])(nil)

type memoryEntry[T cmp.Ordered] struct {
	ranked  []domain.Ranked[T]
	expires time.Time
}

// MemoryCache keeps precomputed rankings in process memory. Entries
// expire after the configured TTL; a zero TTL keeps them until replaced.
// It is safe for concurrent use.
type MemoryCache[T cmp.Ordered] struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry[T]
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache[T cmp.Ordered](ttl time.Duration) *MemoryCache[T] {
	return &MemoryCache[T]{
		entries: make(map[string]memoryEntry[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a copy of the ranking stored for subject.
func (c *MemoryCache[T]) Get(ctx context.Context, subject string) ([]domain.Ranked[T], bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.RLock()
	entry, ok := c.entries[subject]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && !c.now().Before(entry.expires) {
		c.mu.Lock()
		// Only drop the entry we saw; a concurrent Put may have replaced it.
		if current, ok := c.entries[subject]; ok && current.expires.Equal(entry.expires) {
			delete(c.entries, subject)
		}
		c.mu.Unlock()
		return nil, false, nil
	}
	return cloneRanked(entry.ranked), true, nil
}

// Put stores a copy of ranked for subject.
func (c *MemoryCache[T]) Put(ctx context.Context, subject string, ranked []domain.Ranked[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := memoryEntry[T]{ranked: cloneRanked(ranked)}
	if entry.ranked == nil {
		entry.ranked = []domain.Ranked[T]{}
	}
	if c.ttl > 0 {
		entry.expires = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[subject] = entry
	return nil
}

// Delete removes the entry for subject.
func (c *MemoryCache[T]) Delete(_ context.Context, subject string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, subject)
	return nil
}

// Clear removes all entries.
func (c *MemoryCache[T]) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
	return nil
}

// Len returns the number of stored entries, including expired ones not
// yet evicted.
func (c *MemoryCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
