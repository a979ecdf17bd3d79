package application

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ahrav/go-reco/infrastructure/units"
	"github.com/ahrav/go-reco/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.UnitRegistry[string, string] = (*DefaultUnitRegistry)(nil)

// DefaultUnitRegistry implements the UnitRegistry interface for the
// people domain, providing a factory for creating scoring units and
// blacklists based on type and configuration.
// It supports dynamic registration of factories and injects the social
// graph into every unit that reads it.
type DefaultUnitRegistry struct {
	// factories maps unit type strings to their factory functions.
	factories map[string]ports.UnitFactory[string, string]
	// blacklists maps blacklist type strings to their factory functions.
	blacklists map[string]ports.BlacklistFactory[string, string]
	// mu protects concurrent access to the factory maps.
	mu sync.RWMutex
	// graph is the social graph injected into units that need it.
	graph ports.SocialGraph
}

// NewDefaultUnitRegistry creates a new unit registry with the built-in
// people units and blacklists pre-registered.
func NewDefaultUnitRegistry(graph ports.SocialGraph) *DefaultUnitRegistry {
	registry := &DefaultUnitRegistry{
		factories:  make(map[string]ports.UnitFactory[string, string]),
		blacklists: make(map[string]ports.BlacklistFactory[string, string]),
		graph:      graph,
	}

	registry.registerBuiltinFactories()

	return registry
}

// withGraph adapts a typed unit constructor into a factory that receives
// the registry's graph.
func withGraph[U ports.ScoringUnit[string, string]](
	graph ports.SocialGraph,
	create func(id string, config map[string]any) (U, error),
) ports.UnitFactory[string, string] {
	return func(id string, config map[string]any) (ports.ScoringUnit[string, string], error) {
		unit, err := create(id, graphConfig(config, graph))
		if err != nil {
			return nil, err
		}
		return unit, nil
	}
}

// graphConfig returns a copy of config carrying graph. The caller's map
// is left untouched.
func graphConfig(config map[string]any, graph ports.SocialGraph) map[string]any {
	out := make(map[string]any, len(config)+1)
	maps.Copy(out, config)
	out[units.GraphParam] = graph
	return out
}

// registerBuiltinFactories registers the standard people-domain types.
func (r *DefaultUnitRegistry) registerBuiltinFactories() {
	// Capture the current graph to avoid data races.
	graph := r.graph

	r.factories["friends_in_common"] = withGraph(graph, units.CreateFriendsInCommonUnit)
	r.factories["random_people"] = withGraph(graph, units.CreateRandomPeopleUnit)
	r.factories["same_label"] = withGraph(graph, units.CreateSameLabelUnit)
	r.factories["age_difference"] = withGraph(graph, units.CreateAgeDifferenceUnit)
	r.factories["same_location"] = withGraph(graph, units.CreateSameLocationUnit)

	r.blacklists["exclude_self"] = func(id string, config map[string]any) (ports.Blacklist[string, string], error) {
		b, err := units.CreateExcludeSelf(id, config)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	r.blacklists["existing_friends"] = func(id string, config map[string]any) (ports.Blacklist[string, string], error) {
		b, err := units.CreateExistingFriends(id, graphConfig(config, graph))
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

// CreateUnit creates a new unit instance based on the provided type,
// identifier, and configuration.
func (r *DefaultUnitRegistry) CreateUnit(
	unitType string,
	id string,
	config map[string]any,
) (ports.ScoringUnit[string, string], error) {
	r.mu.RLock()
	factory, exists := r.factories[unitType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported unit type: %s", unitType)
	}

	if id == "" {
		return nil, fmt.Errorf("unit ID cannot be empty")
	}

	if config == nil {
		config = make(map[string]any)
	}

	unit, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit %s of type %s: %w", id, unitType, err)
	}

	return unit, nil
}

// CreateBlacklist creates a new blacklist instance based on the provided
// type, identifier, and configuration.
func (r *DefaultUnitRegistry) CreateBlacklist(
	blacklistType string,
	id string,
	config map[string]any,
) (ports.Blacklist[string, string], error) {
	r.mu.RLock()
	factory, exists := r.blacklists[blacklistType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported blacklist type: %s", blacklistType)
	}

	if id == "" {
		return nil, fmt.Errorf("blacklist ID cannot be empty")
	}

	if config == nil {
		config = make(map[string]any)
	}

	blacklist, err := factory(id, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create blacklist %s of type %s: %w", id, blacklistType, err)
	}

	return blacklist, nil
}

// RegisterUnitFactory registers a new factory function for a specific unit type.
// This allows extending the registry with custom unit types at runtime.
func (r *DefaultUnitRegistry) RegisterUnitFactory(
	unitType string,
	factory ports.UnitFactory[string, string],
) error {
	if unitType == "" {
		return fmt.Errorf("unit type cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[unitType] = factory
	return nil
}

// RegisterBlacklistFactory registers a new factory function for a
// specific blacklist type.
func (r *DefaultUnitRegistry) RegisterBlacklistFactory(
	blacklistType string,
	factory ports.BlacklistFactory[string, string],
) error {
	if blacklistType == "" {
		return fmt.Errorf("blacklist type cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.blacklists[blacklistType] = factory
	return nil
}

// GetSupportedTypes returns every registered unit and blacklist type,
// sorted.
func (r *DefaultUnitRegistry) GetSupportedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := slices.Collect(maps.Keys(r.factories))
	types = slices.AppendSeq(types, maps.Keys(r.blacklists))
	slices.Sort(types)
	return types
}

// SetGraph updates the social graph injected into newly created units.
// Units created before the call keep the graph they were built with.
func (r *DefaultUnitRegistry) SetGraph(graph ports.SocialGraph) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.graph = graph

	// Re-register built-in factories with the new graph.
	r.registerBuiltinFactories()
}
