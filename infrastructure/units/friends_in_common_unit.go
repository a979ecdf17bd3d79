package units

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/ahrav/go-reco/infrastructure/transform"
	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

var _ PeopleUnit = (*FriendsInCommonUnit)(nil)

// FriendsInCommonUnit generates candidates from friends of friends and
// scores each by how many friends it shares with the subject. The count
// is normalized through a transformer, a Pareto curve by default, so the
// first few mutual friends matter most.
//
// The unit is stateless and thread-safe for concurrent execution.
type FriendsInCommonUnit struct {
	// name is the unique identifier for this unit instance.
	name string
	// config contains the validated configuration parameters.
	config FriendsInCommonConfig
	// graph is the social graph friendships are read from.
	graph ports.SocialGraph
	// transformer normalizes the mutual friend count.
	transformer ports.ScoreTransformer
}

// FriendsInCommonConfig defines the configuration parameters for the
// FriendsInCommonUnit.
type FriendsInCommonConfig struct {
	// Partial is the name of the partial score contributed.
	Partial string `yaml:"partial" json:"partial" validate:"required"`

	// Transformer normalizes the number of common friends.
	Transformer transform.Spec `yaml:"transformer" json:"transformer"`
}

// DefaultFriendsInCommonConfig returns a FriendsInCommonConfig with the
// standard Pareto(100, 10) curve.
func DefaultFriendsInCommonConfig() FriendsInCommonConfig {
	return FriendsInCommonConfig{
		Partial:     "friendsInCommon",
		Transformer: transform.Spec{Kind: "pareto", Max: 100, Anchor: 10},
	}
}

// NewFriendsInCommonUnit creates a new FriendsInCommonUnit.
func NewFriendsInCommonUnit(name string, config FriendsInCommonConfig, graph ports.SocialGraph) (*FriendsInCommonUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if graph == nil {
		return nil, ErrNoGraph
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	tr, err := transform.New(config.Transformer)
	if err != nil {
		return nil, fmt.Errorf("invalid transformer: %w", err)
	}

	return &FriendsInCommonUnit{
		name:        name,
		config:      config,
		graph:       graph,
		transformer: tr,
	}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *FriendsInCommonUnit) Name() string { return u.name }

// Score counts, for every friend of a friend of the subject, the number of
// paths through the subject's friends and contributes the transformed
// count. Excluded people, including the subject and existing friends when
// the corresponding blacklists are configured, are never contributed.
func (u *FriendsInCommonUnit) Score(ctx context.Context, pass *PeoplePass, recs *domain.Recommendations[string]) error {
	friends, err := u.graph.Friends(ctx, pass.Subject)
	if err != nil {
		return fmt.Errorf("failed to load friends of %s: %w", pass.Subject, err)
	}

	common := make(map[string]int)
	for _, friend := range friends {
		if err := ctx.Err(); err != nil {
			return err
		}
		fof, err := u.graph.Friends(ctx, friend)
		if err != nil {
			return fmt.Errorf("failed to load friends of %s: %w", friend, err)
		}
		for _, candidate := range fof {
			if candidate == pass.Subject || !pass.Allowed(candidate) {
				continue
			}
			common[candidate]++
		}
	}

	for _, candidate := range slices.Sorted(maps.Keys(common)) {
		value := u.transformer.Transform(ctx, float64(common[candidate]))
		if err := recs.Add(candidate, u.config.Partial, value); err != nil {
			return fmt.Errorf("failed to add %s for %s: %w", u.config.Partial, candidate, err)
		}
	}
	return nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *FriendsInCommonUnit) Validate() error {
	if u.graph == nil {
		return ErrNoGraph
	}
	if err := validate.Struct(u.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// CreateFriendsInCommonUnit is a factory function that creates a
// FriendsInCommonUnit from a configuration map, following the UnitFactory
// pattern. The social graph is expected under GraphParam.
func CreateFriendsInCommonUnit(id string, config map[string]any) (*FriendsInCommonUnit, error) {
	graph, err := graphFrom(config)
	if err != nil {
		return nil, err
	}

	cfg := DefaultFriendsInCommonConfig()
	if err := stringParam(config, "partial", &cfg.Partial); err != nil {
		return nil, err
	}
	if err := transformerParam(config, &cfg.Transformer); err != nil {
		return nil, err
	}

	return NewFriendsInCommonUnit(id, cfg, graph)
}

// transformerParam overlays a "transformer" mapping onto spec.
func transformerParam(config map[string]any, spec *transform.Spec) error {
	params, ok, err := mapParam(config, "transformer")
	if err != nil || !ok {
		return err
	}
	overridden, err := spec.Override(params)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	*spec = overridden
	return nil
}
