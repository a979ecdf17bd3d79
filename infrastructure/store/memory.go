package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
)

var (
	_ ports.SocialGraph = (*MemoryGraph)(nil)
	_ Writer            = (*MemoryGraph)(nil)
)

const memoryStoreName = "memory"

// MemoryGraph is an in-process social graph. It is used for fixtures,
// tests and small deployments. All methods are safe for concurrent use
// and return copies, so callers may modify results freely.
type MemoryGraph struct {
	mu      sync.RWMutex
	people  map[string]domain.Person
	friends map[string]map[string]struct{}
}

// NewMemoryGraph creates an empty graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		people:  make(map[string]domain.Person),
		friends: make(map[string]map[string]struct{}),
	}
}

// UpsertPerson implements Writer.
func (g *MemoryGraph) UpsertPerson(_ context.Context, p domain.Person) error {
	if strings.TrimSpace(p.ID) == "" {
		return ports.NewStoreError(memoryStoreName, "UpsertPerson", fmt.Errorf("person id is required"))
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.people[p.ID] = p
	if _, ok := g.friends[p.ID]; !ok {
		g.friends[p.ID] = make(map[string]struct{})
	}
	return nil
}

// AddFriendship implements Writer. Both people must already exist.
func (g *MemoryGraph) AddFriendship(_ context.Context, a, b string) error {
	if a == b {
		return ports.NewStoreError(memoryStoreName, "AddFriendship", fmt.Errorf("%s cannot befriend themselves", a))
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range []string{a, b} {
		if _, ok := g.people[id]; !ok {
			return ports.NewStoreError(memoryStoreName, "AddFriendship", fmt.Errorf("%w: %s", ports.ErrPersonNotFound, id))
		}
	}
	g.friends[a][b] = struct{}{}
	g.friends[b][a] = struct{}{}
	return nil
}

// LivesIn sets the city of an existing person.
func (g *MemoryGraph) LivesIn(_ context.Context, id, city string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.people[id]
	if !ok {
		return ports.NewStoreError(memoryStoreName, "LivesIn", fmt.Errorf("%w: %s", ports.ErrPersonNotFound, id))
	}
	p.City = city
	g.people[id] = p
	return nil
}

// Person implements ports.SocialGraph.
func (g *MemoryGraph) Person(ctx context.Context, id string) (domain.Person, error) {
	if err := ctx.Err(); err != nil {
		return domain.Person{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.people[id]
	if !ok {
		return domain.Person{}, ports.NewStoreError(memoryStoreName, "Person", fmt.Errorf("%w: %s", ports.ErrPersonNotFound, id))
	}
	return p, nil
}

// Friends implements ports.SocialGraph.
func (g *MemoryGraph) Friends(ctx context.Context, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	friends, ok := g.friends[id]
	if !ok {
		return nil, ports.NewStoreError(memoryStoreName, "Friends", fmt.Errorf("%w: %s", ports.ErrPersonNotFound, id))
	}
	return slices.Sorted(maps.Keys(friends)), nil
}

// People implements ports.SocialGraph.
func (g *MemoryGraph) People(ctx context.Context) ([]domain.Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	people := slices.Collect(maps.Values(g.people))
	slices.SortFunc(people, func(a, b domain.Person) int { return cmp.Compare(a.ID, b.ID) })
	return people, nil
}

// FindByName returns the first person, in id order, whose name matches
// name ignoring case.
func (g *MemoryGraph) FindByName(ctx context.Context, name string) (domain.Person, error) {
	people, err := g.People(ctx)
	if err != nil {
		return domain.Person{}, err
	}
	for _, p := range people {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return domain.Person{}, ports.NewStoreError(memoryStoreName, "FindByName", fmt.Errorf("%w: %s", ports.ErrPersonNotFound, name))
}
