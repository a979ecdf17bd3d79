package units

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

var _ PeopleUnit = (*SameLocationUnit)(nil)

// SameLocationUnit rewards candidates who live in the subject's city.
// City names are compared after Unicode case folding and may differ by up
// to MaxDistance edits, so "München" matches "MÜNCHEN" and "Londn"
// matches "London" with the default distance of 1.
type SameLocationUnit struct {
	name   string
	config SameLocationConfig
	graph  ports.SocialGraph
}

// SameLocationConfig defines the configuration parameters for the
// SameLocationUnit.
type SameLocationConfig struct {
	// Partial is the name of the partial score contributed.
	Partial string `yaml:"partial" json:"partial" validate:"required"`

	// Value is added when the cities match.
	Value int `yaml:"value" json:"value"`

	// MaxDistance is the largest Levenshtein distance still considered
	// the same city.
	MaxDistance int `yaml:"max_distance" json:"max_distance" validate:"gte=0,lte=5"`
}

// DefaultSameLocationConfig returns a SameLocationConfig with sensible defaults.
func DefaultSameLocationConfig() SameLocationConfig {
	return SameLocationConfig{Partial: "sameLocation", Value: 10, MaxDistance: 1}
}

// NewSameLocationUnit creates a new SameLocationUnit.
func NewSameLocationUnit(name string, config SameLocationConfig, graph ports.SocialGraph) (*SameLocationUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if graph == nil {
		return nil, ErrNoGraph
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &SameLocationUnit{name: name, config: config, graph: graph}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *SameLocationUnit) Name() string { return u.name }

// Score adds Value to every candidate living in the subject's city.
func (u *SameLocationUnit) Score(ctx context.Context, pass *PeoplePass, recs *domain.Recommendations[string]) error {
	// cases.Caser is stateful, so each pass gets its own.
	caser := cases.Fold()
	return enrich(ctx, u.graph, pass, recs, func(subject, candidate domain.Person) error {
		if !u.sameCity(caser, subject.City, candidate.City) {
			return nil
		}
		return recs.Add(candidate.ID, u.config.Partial, u.config.Value)
	})
}

func (u *SameLocationUnit) sameCity(caser cases.Caser, a, b string) bool {
	a = caser.String(strings.TrimSpace(a))
	b = caser.String(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return levenshtein.ComputeDistance(a, b) <= u.config.MaxDistance
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *SameLocationUnit) Validate() error {
	if u.graph == nil {
		return ErrNoGraph
	}
	return validate.Struct(u.config)
}

// CreateSameLocationUnit is a factory function that creates a
// SameLocationUnit from a configuration map.
func CreateSameLocationUnit(id string, config map[string]any) (*SameLocationUnit, error) {
	graph, err := graphFrom(config)
	if err != nil {
		return nil, err
	}

	cfg := DefaultSameLocationConfig()
	if err := stringParam(config, "partial", &cfg.Partial); err != nil {
		return nil, err
	}
	if err := intParam(config, "value", &cfg.Value); err != nil {
		return nil, err
	}
	if err := intParam(config, "max_distance", &cfg.MaxDistance); err != nil {
		return nil, err
	}

	return NewSameLocationUnit(id, cfg, graph)
}
