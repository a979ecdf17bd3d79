package application

import (
	"context"

	"github.com/ahrav/go-reco/internal/ports"
)

// PeoplePopulation enumerates every person in graph, for precomputing
// the friends engine.
func PeoplePopulation(graph ports.SocialGraph) Population[string] {
	return func(ctx context.Context) ([]string, error) {
		people, err := graph.People(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(people))
		for i, p := range people {
			ids[i] = p.ID
		}
		return ids, nil
	}
}

// PersonExists returns a subject check rejecting ids unknown to graph
// with ports.ErrPersonNotFound.
func PersonExists(graph ports.SocialGraph) func(context.Context, string) error {
	return func(ctx context.Context, id string) error {
		_, err := graph.Person(ctx, id)
		return err
	}
}
