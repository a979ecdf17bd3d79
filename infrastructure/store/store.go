// Package store provides ports.SocialGraph implementations for the
// friends engine together with middleware that makes any graph resilient
// to a slow or failing backend.
package store

import (
	"context"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

// Writer is implemented by graphs that can be populated, for example from
// a fixture file.
type Writer interface {
	// UpsertPerson inserts p or replaces the person with the same id.
	UpsertPerson(ctx context.Context, p domain.Person) error

	// AddFriendship records an undirected friendship between a and b.
	AddFriendship(ctx context.Context, a, b string) error
}

// Middleware decorates a SocialGraph.
type Middleware func(ports.SocialGraph) ports.SocialGraph

// Wrap applies middlewares to graph. The first middleware is the
// outermost one, so Wrap(g, RateLimit(...), Timeout(...)) rate limits
// before starting the timeout clock.
func Wrap(graph ports.SocialGraph, middlewares ...Middleware) ports.SocialGraph {
	for i := len(middlewares) - 1; i >= 0; i-- {
		graph = middlewares[i](graph)
	}
	return graph
}
