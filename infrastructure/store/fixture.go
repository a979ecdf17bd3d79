package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-reco/internal/domain"
)

// Package-level validator instance for fixture validation.
var validate = validator.New()

// Fixture is a YAML description of a social graph:
//
//	people:
//	  - {id: michal, name: Michal, gender: male, age: 30, city: London}
//	  - {id: daniela, name: Daniela, gender: female, age: 20}
//	friendships:
//	  - [michal, daniela]
type Fixture struct {
	People      []domain.Person `yaml:"people" validate:"required,min=1,dive"`
	Friendships [][2]string     `yaml:"friendships"`
}

// LoadFixture decodes and validates a fixture. Unknown fields are rejected.
func LoadFixture(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFixtureFile reads a fixture from path.
func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	return LoadFixture(bytes.NewReader(data))
}

// Validate checks field constraints and that friendships reference
// declared people.
func (f *Fixture) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("fixture validation failed: %w", err)
	}

	verr := domain.NewValidationError("fixture")
	ids := make(map[string]struct{}, len(f.People))
	for _, p := range f.People {
		if _, dup := ids[p.ID]; dup {
			verr.AddError(fmt.Sprintf("duplicate person id %q", p.ID))
		}
		ids[p.ID] = struct{}{}
	}
	for _, pair := range f.Friendships {
		for _, id := range pair {
			if _, ok := ids[id]; !ok {
				verr.AddError(fmt.Sprintf("friendship references unknown person %q", id))
			}
		}
		if pair[0] == pair[1] {
			verr.AddError(fmt.Sprintf("person %q cannot befriend themselves", pair[0]))
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Apply writes every person and friendship of the fixture into w.
func (f *Fixture) Apply(ctx context.Context, w Writer) error {
	for _, p := range f.People {
		if err := w.UpsertPerson(ctx, p); err != nil {
			return fmt.Errorf("failed to add person %s: %w", p.ID, err)
		}
	}
	for _, pair := range f.Friendships {
		if err := w.AddFriendship(ctx, pair[0], pair[1]); err != nil {
			return fmt.Errorf("failed to add friendship %s-%s: %w", pair[0], pair[1], err)
		}
	}
	return nil
}

// NewMemoryGraphFromFixture builds a MemoryGraph populated from f.
func NewMemoryGraphFromFixture(ctx context.Context, f *Fixture) (*MemoryGraph, error) {
	g := NewMemoryGraph()
	if err := f.Apply(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}
