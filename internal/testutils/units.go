package testutils

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

// ErrUnitFailed is returned by FailingUnit.
var ErrUnitFailed = errors.New("unit failed")

// Contribution is one partial score a StaticUnit adds.
type Contribution struct {
	Item    string
	Partial string
	Value   int
}

// StaticUnit contributes a fixed set of partial scores. It counts its
// invocations so tests can assert whether a stage ran.
type StaticUnit struct {
	name          string
	contributions []Contribution
	calls         atomic.Int64
}

var _ ports.ScoringUnit[string, string] = (*StaticUnit)(nil)

// NewStaticUnit creates a unit adding contributions on every call.
func NewStaticUnit(name string, contributions ...Contribution) *StaticUnit {
	return &StaticUnit{name: name, contributions: contributions}
}

// Name implements ports.ScoringUnit.
func (u *StaticUnit) Name() string { return u.name }

// Score implements ports.ScoringUnit.
func (u *StaticUnit) Score(ctx context.Context, _ *domain.Pass[string, string], recs *domain.Recommendations[string]) error {
	u.calls.Add(1)
	for _, c := range u.contributions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := recs.Add(c.Item, c.Partial, c.Value); err != nil {
			return err
		}
	}
	return nil
}

// Validate implements ports.ScoringUnit.
func (u *StaticUnit) Validate() error { return nil }

// Calls returns the number of Score invocations.
func (u *StaticUnit) Calls() int { return int(u.calls.Load()) }

// FailingUnit writes its contributions and then fails, so tests can check
// how partial writes of failed units are treated.
type FailingUnit struct {
	*StaticUnit
}

// NewFailingUnit creates a unit that contributes and then returns ErrUnitFailed.
func NewFailingUnit(name string, contributions ...Contribution) *FailingUnit {
	return &FailingUnit{StaticUnit: NewStaticUnit(name, contributions...)}
}

// Score implements ports.ScoringUnit.
func (u *FailingUnit) Score(ctx context.Context, pass *domain.Pass[string, string], recs *domain.Recommendations[string]) error {
	if err := u.StaticUnit.Score(ctx, pass, recs); err != nil {
		return err
	}
	return ErrUnitFailed
}

// PanickingUnit panics on every call.
type PanickingUnit struct{ name string }

// NewPanickingUnit creates a unit that panics.
func NewPanickingUnit(name string) *PanickingUnit { return &PanickingUnit{name: name} }

// Name implements ports.ScoringUnit.
func (u *PanickingUnit) Name() string { return u.name }

// Score implements ports.ScoringUnit.
func (u *PanickingUnit) Score(context.Context, *domain.Pass[string, string], *domain.Recommendations[string]) error {
	panic("unit " + u.name + " exploded")
}

// Validate implements ports.ScoringUnit.
func (u *PanickingUnit) Validate() error { return nil }

// SlowUnit waits for delay, honoring cancellation, and then contributes.
// Contributions made after the pass was frozen fail with domain.ErrFrozen.
type SlowUnit struct {
	*StaticUnit
	delay time.Duration
}

// NewSlowUnit creates a unit that contributes after delay.
func NewSlowUnit(name string, delay time.Duration, contributions ...Contribution) *SlowUnit {
	return &SlowUnit{StaticUnit: NewStaticUnit(name, contributions...), delay: delay}
}

// Score implements ports.ScoringUnit.
func (u *SlowUnit) Score(ctx context.Context, pass *domain.Pass[string, string], recs *domain.Recommendations[string]) error {
	select {
	case <-time.After(u.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return u.StaticUnit.Score(ctx, pass, recs)
}

// StaticBlacklist excludes a fixed set of items.
type StaticBlacklist struct {
	name  string
	items []string
	err   error
}

var _ ports.Blacklist[string, string] = (*StaticBlacklist)(nil)

// NewStaticBlacklist creates a blacklist excluding items.
func NewStaticBlacklist(name string, items ...string) *StaticBlacklist {
	return &StaticBlacklist{name: name, items: items}
}

// NewFailingBlacklist creates a blacklist that always fails with err.
func NewFailingBlacklist(name string, err error) *StaticBlacklist {
	return &StaticBlacklist{name: name, err: err}
}

// Name implements ports.Blacklist.
func (b *StaticBlacklist) Name() string { return b.name }

// Exclude implements ports.Blacklist.
func (b *StaticBlacklist) Exclude(context.Context, *domain.Pass[string, string]) ([]string, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.items, nil
}
