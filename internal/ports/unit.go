// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"cmp"
	"context"

	"github.com/ahrav/go-reco/internal/domain"
)

// ScoringUnit is the fundamental building block of a recommendation
// engine. Each unit computes one signal for the candidates of a pass and
// contributes it as named partial scores into the shared aggregator.
//
// Units are invoked concurrently with other units against the same
// Recommendations instance. They must never assume exclusive access to a
// candidate's Recommendation and must not retain the aggregator after
// Score returns.
type ScoringUnit[S any, T cmp.Ordered] interface {
	// Name returns a unique identifier for this unit.
	// The name is used for logging, metrics and configuration.
	Name() string

	// Score contributes partial scores for the pass subject into recs.
	// Candidates rejected by pass.Allowed must not be contributed.
	//
	// The context carries the unit deadline. Units should respect
	// cancellation and return promptly; contributions already written
	// remain in the aggregator.
	//
	// Example:
	//
	//	if err := unit.Score(ctx, pass, recs); err != nil {
	//	    return fmt.Errorf("unit %s failed: %w", unit.Name(), err)
	//	}
	Score(ctx context.Context, pass *domain.Pass[S, T], recs *domain.Recommendations[T]) error

	// Validate checks that the unit is properly configured and ready for
	// execution. It is called when an engine is assembled.
	Validate() error
}

// Blacklist produces the candidates that must never be recommended to
// the subject of a pass, for example the subject itself or people who are
// already friends. Blacklists run before any scoring unit is dispatched.
type Blacklist[S any, T cmp.Ordered] interface {
	// Name returns a unique identifier for this blacklist.
	Name() string

	// Exclude returns the items to exclude for the pass subject.
	Exclude(ctx context.Context, pass *domain.Pass[S, T]) ([]T, error)
}

// ScoreTransformer maps a raw, non-negative signal onto a bounded score.
// Implementations must be pure and safe for concurrent use.
type ScoreTransformer interface {
	// Transform converts value into a score. Transform(ctx, 0) is 0 for
	// every transformer shipped with this module.
	Transform(ctx context.Context, value float64) int
}

// TransformerFunc adapts a plain function to the ScoreTransformer interface.
type TransformerFunc func(ctx context.Context, value float64) int

// Transform calls f(ctx, value).
func (f TransformerFunc) Transform(ctx context.Context, value float64) int { return f(ctx, value) }
