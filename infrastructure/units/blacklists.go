package units

import (
	"context"
	"fmt"

	"github.com/ahrav/go-reco/internal/ports"
)

var (
	_ PeopleBlacklist = (*ExcludeSelf)(nil)
	_ PeopleBlacklist = (*ExistingFriends)(nil)
)

// ExcludeSelf keeps the subject out of their own recommendations.
type ExcludeSelf struct {
	name string
}

// NewExcludeSelf creates an ExcludeSelf blacklist.
func NewExcludeSelf(name string) (*ExcludeSelf, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	return &ExcludeSelf{name: name}, nil
}

// Name returns the unique identifier for this blacklist.
func (b *ExcludeSelf) Name() string { return b.name }

// Exclude returns the subject.
func (b *ExcludeSelf) Exclude(_ context.Context, pass *PeoplePass) ([]string, error) {
	return []string{pass.Subject}, nil
}

// ExistingFriends keeps people who are already friends with the subject
// out of their recommendations.
type ExistingFriends struct {
	name  string
	graph ports.SocialGraph
}

// NewExistingFriends creates an ExistingFriends blacklist.
func NewExistingFriends(name string, graph ports.SocialGraph) (*ExistingFriends, error) {
	if name == "" {
		return nil, ErrEmptyUnitName
	}
	if graph == nil {
		return nil, ErrNoGraph
	}
	return &ExistingFriends{name: name, graph: graph}, nil
}

// Name returns the unique identifier for this blacklist.
func (b *ExistingFriends) Name() string { return b.name }

// Exclude returns the subject's direct friends.
func (b *ExistingFriends) Exclude(ctx context.Context, pass *PeoplePass) ([]string, error) {
	friends, err := b.graph.Friends(ctx, pass.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to load friends of %s: %w", pass.Subject, err)
	}
	return friends, nil
}

// CreateExcludeSelf is a factory function following the BlacklistFactory pattern.
func CreateExcludeSelf(id string, _ map[string]any) (*ExcludeSelf, error) {
	return NewExcludeSelf(id)
}

// CreateExistingFriends is a factory function following the
// BlacklistFactory pattern. The social graph is expected under GraphParam.
func CreateExistingFriends(id string, config map[string]any) (*ExistingFriends, error) {
	graph, err := graphFrom(config)
	if err != nil {
		return nil, err
	}
	return NewExistingFriends(id, graph)
}
