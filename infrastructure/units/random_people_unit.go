package units

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

var _ PeopleUnit = (*RandomPeopleUnit)(nil)

// RandomPeopleUnit tops up a pass that found too few candidates with
// other people from the graph. Added people get no partial score; units
// that run afterwards may still score them.
//
// The choice is a shuffle seeded by the configured seed and the subject,
// so the same subject always receives the same filler people.
type RandomPeopleUnit struct {
	name   string
	config RandomPeopleConfig
	graph  ports.SocialGraph
}

// RandomPeopleConfig defines the configuration parameters for the
// RandomPeopleUnit.
type RandomPeopleConfig struct {
	// Seed makes the shuffle reproducible.
	Seed uint64 `yaml:"seed" json:"seed"`

	// MaxAdded caps how many people one pass may add. Zero means no cap
	// beyond the pass limit.
	MaxAdded int `yaml:"max_added" json:"max_added" validate:"gte=0"`
}

// DefaultRandomPeopleConfig returns a RandomPeopleConfig with sensible defaults.
func DefaultRandomPeopleConfig() RandomPeopleConfig {
	return RandomPeopleConfig{Seed: 1}
}

// NewRandomPeopleUnit creates a new RandomPeopleUnit.
func NewRandomPeopleUnit(name string, config RandomPeopleConfig, graph ports.SocialGraph) (*RandomPeopleUnit, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if graph == nil {
		return nil, ErrNoGraph
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &RandomPeopleUnit{name: name, config: config, graph: graph}, nil
}

// Name returns the unique identifier for this unit instance.
func (u *RandomPeopleUnit) Name() string { return u.name }

// Score adds allowed people until the aggregator holds pass.Limit
// candidates. It does nothing when the aggregator already has enough.
func (u *RandomPeopleUnit) Score(ctx context.Context, pass *PeoplePass, recs *domain.Recommendations[string]) error {
	if recs.HasEnough(pass.Limit) {
		return nil
	}

	people, err := u.graph.People(ctx)
	if err != nil {
		return fmt.Errorf("failed to list people: %w", err)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(pass.Subject))
	rng := rand.New(rand.NewPCG(u.config.Seed, h.Sum64()))
	rng.Shuffle(len(people), func(i, j int) { people[i], people[j] = people[j], people[i] })

	added := 0
	for _, p := range people {
		if recs.HasEnough(pass.Limit) || (u.config.MaxAdded > 0 && added >= u.config.MaxAdded) {
			break
		}
		if p.ID == pass.Subject || !pass.Allowed(p.ID) || recs.Contains(p.ID) {
			continue
		}
		if err := recs.Ensure(p.ID); err != nil {
			return fmt.Errorf("failed to add %s: %w", p.ID, err)
		}
		added++
	}
	return nil
}

// Validate checks if the unit is properly configured and ready for execution.
func (u *RandomPeopleUnit) Validate() error {
	if u.graph == nil {
		return ErrNoGraph
	}
	return validate.Struct(u.config)
}

// CreateRandomPeopleUnit is a factory function that creates a
// RandomPeopleUnit from a configuration map.
func CreateRandomPeopleUnit(id string, config map[string]any) (*RandomPeopleUnit, error) {
	graph, err := graphFrom(config)
	if err != nil {
		return nil, err
	}

	cfg := DefaultRandomPeopleConfig()
	seed := int(cfg.Seed)
	if err := intParam(config, "seed", &seed); err != nil {
		return nil, err
	}
	if seed < 0 {
		return nil, fmt.Errorf("%w: seed must not be negative", ErrInvalidParameter)
	}
	cfg.Seed = uint64(seed)
	if err := intParam(config, "max_added", &cfg.MaxAdded); err != nil {
		return nil, err
	}

	return NewRandomPeopleUnit(id, cfg, graph)
}
