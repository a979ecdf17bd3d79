package units

import (
	"context"
	"fmt"

	"github.com/ahrav/go-reco/infrastructure/transform"
	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

var _ PeopleUnit = (*AgeDifferenceUnit)(nil)

// AgeDifferenceUnit penalizes candidates by the age gap to the subject.
// The absolute gap in years goes through a transformer, a negated
// Pareto(10, 20) curve by default, so a 10 year gap costs 6 points and
// no gap ever costs more than 10.
type AgeDifferenceUnit struct {
	name        string
	config      AgeDifferenceConfig
	graph       ports.SocialGraph
	transformer ports.ScoreTransformer
}

// AgeDifferenceConfig defines the configuration parameters for the
// AgeDifferenceUnit.
type AgeDifferenceConfig struct {
	// Partial is the name of the partial score contributed.
	Partial string `yaml:"partial" json:"partial" validate:"required"`

	// Transformer maps the absolute age gap to a score.
	Transformer transform.Spec `yaml:"transformer" json:"transformer"`
}

// DefaultAgeDifferenceConfig returns an AgeDifferenceConfig with the
// standard penalty curve.
func DefaultAgeDifferenceConfig() AgeDifferenceConfig {
	return AgeDifferenceConfig{
		Partial:     "ageDifference",
		Transformer: transform.Spec{Kind: "pareto", Max: 10, Anchor: 20, Negate: true},
	}
}

// NewAgeDifferenceUnit creates a new AgeDifferenceUnit.
func NewAgeDifferenceUnit(name string, config AgeDifferenceConfig, graph ports.SocialGraph) (*AgeDifferenceUnit, error) {
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
	return &AgeDifferenceUnit{name: name, config: config, graph: graph, transformer: tr}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *AgeDifferenceUnit) Name() string { return u.name }

// Score contributes the transformed age gap for every candidate. Pairs
// where either age is unknown are skipped rather than scored as a gap.
func (u *AgeDifferenceUnit) Score(ctx context.Context, pass *PeoplePass, recs *domain.Recommendations[string]) error {
	return enrich(ctx, u.graph, pass, recs, func(subject, candidate domain.Person) error {
		if !subject.HasAge() || !candidate.HasAge() {
			return nil
		}
		gap := subject.Age - candidate.Age
		if gap < 0 {
			gap = -gap
		}
		return recs.Add(candidate.ID, u.config.Partial, u.transformer.Transform(ctx, float64(gap)))
	})
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *AgeDifferenceUnit) Validate() error {
	if u.graph == nil {
		return ErrNoGraph
	}
	return validate.Struct(u.config)
}

// CreateAgeDifferenceUnit is a factory function that creates an
// AgeDifferenceUnit from a configuration map.
func CreateAgeDifferenceUnit(id string, config map[string]any) (*AgeDifferenceUnit, error) {
	graph, err := graphFrom(config)
	if err != nil {
		return nil, err
	}

	cfg := DefaultAgeDifferenceConfig()
	if err := stringParam(config, "partial", &cfg.Partial); err != nil {
		return nil, err
	}
	if err := transformerParam(config, &cfg.Transformer); err != nil {
		return nil, err
	}

	return NewAgeDifferenceUnit(id, cfg, graph)
}
