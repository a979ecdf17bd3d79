// Package units provides the people-domain scoring units and blacklists
// of the friends recommendation engine. Every unit implements
// ports.ScoringUnit over person ids and reads the social graph through
// ports.SocialGraph.
package units

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

// PeopleUnit is a scoring unit over person ids.
type PeopleUnit = ports.ScoringUnit[string, string]

// PeopleBlacklist is a blacklist over person ids.
type PeopleBlacklist = ports.Blacklist[string, string]

// PeoplePass is the pass context of the friends engine.
type PeoplePass = domain.Pass[string, string]

// GraphParam is the configuration key under which the registry injects
// the social graph into unit parameters.
const GraphParam = "graph"

// Common errors returned by people-domain units.
var (
	// ErrEmptyUnitName is returned when attempting to create a unit with an empty name.
	ErrEmptyUnitName = errors.New("unit name cannot be empty")

	// ErrNoGraph is returned when a unit that reads the social graph is
	// created without one.
	ErrNoGraph = errors.New("social graph is required")

	// ErrInvalidParameter is returned when a unit parameter has the wrong type.
	ErrInvalidParameter = errors.New("invalid unit parameter")
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// graphFrom extracts the injected social graph from unit parameters.
func graphFrom(config map[string]any) (ports.SocialGraph, error) {
	g, ok := config[GraphParam].(ports.SocialGraph)
	if !ok || g == nil {
		return nil, ErrNoGraph
	}
	return g, nil
}

// intParam reads an integer parameter. YAML decoding produces int, while
// JSON and koanf may produce float64.
func intParam(config map[string]any, key string, dst *int) error {
	raw, ok := config[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case int:
		*dst = v
	case int64:
		*dst = int(v)
	case float64:
		if v != float64(int(v)) {
			return fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidParameter, key, v)
		}
		*dst = int(v)
	default:
		return fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidParameter, key, raw)
	}
	return nil
}

func stringParam(config map[string]any, key string, dst *string) error {
	raw, ok := config[key]
	if !ok {
		return nil
	}
	s, ok := raw.(string)
	if !ok {
		return fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidParameter, key, raw)
	}
	*dst = s
	return nil
}

func mapParam(config map[string]any, key string) (map[string]any, bool, error) {
	raw, ok := config[key]
	if !ok {
		return nil, false, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s must be a mapping, got %T", ErrInvalidParameter, key, raw)
	}
	return m, true, nil
}

// candidates returns the allowed items already contributed to recs, in
// ascending order. Enrichment units score these rather than generating
// their own candidates.
func candidates(pass *PeoplePass, recs *domain.Recommendations[string]) []string {
	all := recs.All()
	out := make([]string, 0, len(all))
	for _, rec := range all {
		if pass.Allowed(rec.Item()) {
			out = append(out, rec.Item())
		}
	}
	slices.Sort(out)
	return out
}

// enrich resolves the subject and every current candidate and calls
// score for each pair. Candidates that vanished from the graph are
// skipped.
func enrich(
	ctx context.Context,
	graph ports.SocialGraph,
	pass *PeoplePass,
	recs *domain.Recommendations[string],
	score func(subject, candidate domain.Person) error,
) error {
	subject, err := graph.Person(ctx, pass.Subject)
	if err != nil {
		return fmt.Errorf("failed to load subject %s: %w", pass.Subject, err)
	}

	for _, id := range candidates(pass, recs) {
		if err := ctx.Err(); err != nil {
			return err
		}
		candidate, err := graph.Person(ctx, id)
		if errors.Is(err, ports.ErrPersonNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to load candidate %s: %w", id, err)
		}
		if err := score(subject, candidate); err != nil {
			return err
		}
	}
	return nil
}
