package units

import (
	"context"
	"fmt"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

var _ PeopleUnit = (*SameLabelUnit)(nil)

// SameLabelUnit rewards candidates that share an attribute value, such
// as gender, with the subject. It scores candidates that earlier units
// contributed and never introduces new ones.
type SameLabelUnit struct {
	name   string
	config SameLabelConfig
	graph  ports.SocialGraph
}

// SameLabelConfig defines the configuration parameters for the
// SameLabelUnit.
type SameLabelConfig struct {
	// Attribute is the person attribute compared, see domain.Person.Label.
	Attribute string `yaml:"attribute" json:"attribute" validate:"required,oneof=gender city name"`

	// Partial is the name of the partial score contributed.
	Partial string `yaml:"partial" json:"partial" validate:"required"`

	// Value is added when the attribute matches.
	Value int `yaml:"value" json:"value"`
}

// DefaultSameLabelConfig returns the gender matching configuration.
func DefaultSameLabelConfig() SameLabelConfig {
	return SameLabelConfig{Attribute: "gender", Partial: "sameGender", Value: 10}
}

// NewSameLabelUnit creates a new SameLabelUnit.
func NewSameLabelUnit(name string, config SameLabelConfig, graph ports.SocialGraph) (*SameLabelUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if graph == nil {
		return nil, ErrNoGraph
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &SameLabelUnit{name: name, config: config, graph: graph}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *SameLabelUnit) Name() string { return u.name }

// Score adds Value to every candidate whose attribute equals the
// subject's. Unknown attribute values never match.
func (u *SameLabelUnit) Score(ctx context.Context, pass *PeoplePass, recs *domain.Recommendations[string]) error {
	return enrich(ctx, u.graph, pass, recs, func(subject, candidate domain.Person) error {
		want := subject.Label(u.config.Attribute)
		if want == "" || candidate.Label(u.config.Attribute) != want {
			return nil
		}
		return recs.Add(candidate.ID, u.config.Partial, u.config.Value)
	})
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *SameLabelUnit) Validate() error {
	if u.graph == nil {
		return ErrNoGraph
	}
	return validate.Struct(u.config)
}

// CreateSameLabelUnit is a factory function that creates a SameLabelUnit
// from a configuration map.
func CreateSameLabelUnit(id string, config map[string]any) (*SameLabelUnit, error) {
	graph, err := graphFrom(config)
	if err != nil {
		return nil, err
	}

	cfg := DefaultSameLabelConfig()
	if err := stringParam(config, "attribute", &cfg.Attribute); err != nil {
		return nil, err
	}
	if err := stringParam(config, "partial", &cfg.Partial); err != nil {
		return nil, err
	}
	if err := intParam(config, "value", &cfg.Value); err != nil {
		return nil, err
	}

	return NewSameLabelUnit(id, cfg, graph)
}
