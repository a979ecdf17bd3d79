package cache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

// keyPrefix namespaces cached rankings inside the Badger keyspace.
const keyPrefix = "reco:"

var _ ports.ResultCache[string] = (*BadgerCache[string])(nil)

// record is the persisted form of one cached ranking.
type record[T cmp.Ordered] struct {
	Subject    string             `json:"subject"`
	ComputedAt time.Time          `json:"computed_at"`
	Ranked     []domain.Ranked[T] `json:"ranked"`
}

// BadgerCache stores precomputed rankings in BadgerDB as JSON records, so
// they survive restarts. Expiry uses Badger's entry TTL.
type BadgerCache[T cmp.Ordered] struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerCache creates a cache on an open database. The caller owns db.
func NewBadgerCache[T cmp.Ordered](db *badger.DB, ttl time.Duration) *BadgerCache[T] {
	return &BadgerCache[T]{db: db, ttl: ttl}
}

// OpenBadger opens a database at path with Badger's logger silenced. An
// empty path opens an in-memory database.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return db, nil
}

func key(subject string) []byte { return []byte(keyPrefix + subject) }

// Get returns the ranking stored for subject. Undecodable records are
// reported as ports.ErrCacheCorrupted.
func (c *BadgerCache[T]) Get(ctx context.Context, subject string) ([]domain.Ranked[T], bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var rec record[T]
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(subject))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &rec); err != nil {
				return fmt.Errorf("%w: %v", ports.ErrCacheCorrupted, err)
			}
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, ports.NewCacheError(subject, "get", err)
	}
	if rec.Ranked == nil {
		rec.Ranked = []domain.Ranked[T]{}
	}
	return rec.Ranked, true, nil
}

// Put stores ranked for subject.
func (c *BadgerCache[T]) Put(ctx context.Context, subject string, ranked []domain.Ranked[T]) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(record[T]{Subject: subject, ComputedAt: time.Now().UTC(), Ranked: ranked})
	if err != nil {
		return ports.NewCacheError(subject, "put", fmt.Errorf("marshal ranking: %w", err))
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key(subject), data)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return ports.NewCacheError(subject, "put", err)
	}
	return nil
}

// Delete removes the entry for subject.
func (c *BadgerCache[T]) Delete(_ context.Context, subject string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(key(subject)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return ports.NewCacheError(subject, "delete", err)
	}
	return nil
}

// Clear removes every cached ranking. Other keys in the database are
// left untouched.
func (c *BadgerCache[T]) Clear(_ context.Context) error {
	if err := c.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return ports.NewCacheError(keyPrefix+"*", "clear", err)
	}
	return nil
}
