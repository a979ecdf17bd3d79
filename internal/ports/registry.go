package ports

import "cmp"

// UnitFactory creates a scoring unit from its identifier and decoded
// parameters.
type UnitFactory[S any, T cmp.Ordered] func(id string, config map[string]any) (ScoringUnit[S, T], error)

// BlacklistFactory creates a blacklist from its identifier and decoded
// parameters.
type BlacklistFactory[S any, T cmp.Ordered] func(id string, config map[string]any) (Blacklist[S, T], error)

// UnitRegistry resolves unit and blacklist types named in an engine
// definition into live instances.
type UnitRegistry[S any, T cmp.Ordered] interface {
	// CreateUnit builds a scoring unit of the given registered type.
	CreateUnit(unitType, id string, config map[string]any) (ScoringUnit[S, T], error)

	// CreateBlacklist builds a blacklist of the given registered type.
	CreateBlacklist(blacklistType, id string, config map[string]any) (Blacklist[S, T], error)

	// GetSupportedTypes returns the registered unit types.
	GetSupportedTypes() []string
}
