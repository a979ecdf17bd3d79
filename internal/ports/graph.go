package ports

import (
	"context"

	"github.com/ahrav/go-reco/internal/domain"
)

// SocialGraph is the candidate-generation mechanism of the friends
// engine: the store people and their friendships live in. The engine only
// consumes its output and never depends on how it is queried.
//
// Friendship is undirected: if b is in Friends(a) then a is in Friends(b).
// Implementations must be safe for concurrent use.
type SocialGraph interface {
	// Person returns the person with the given id. It returns an error
	// wrapping ErrPersonNotFound if no such person exists.
	Person(ctx context.Context, id string) (domain.Person, error)

	// Friends returns the ids of the direct friends of id, in ascending
	// order. Unknown ids yield ErrPersonNotFound.
	Friends(ctx context.Context, id string) ([]string, error)

	// People returns every person in the graph ordered by id. It is used
	// to enumerate the precompute population and random candidates.
	People(ctx context.Context) ([]domain.Person, error)
}
