// Package testutils provides shared fixtures and test doubles for the
// recommendation engine test suites.
package testutils

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-reco/configs"
	"github.com/ahrav/go-reco/infrastructure/store"
)

// Person ids of the sample social graph.
const (
	Michal  = "michal"
	Daniela = "daniela"
	Vince   = "vince"
	Adam    = "adam"
	Luanne  = "luanne"
	Bob     = "bob"
)

// PeopleFixture parses the embedded sample social graph.
func PeopleFixture(t testing.TB) *store.Fixture {
	t.Helper()

	fixture, err := store.LoadFixture(bytes.NewReader(configs.PeopleFixture))
	require.NoError(t, err)
	return fixture
}

// NewPeopleGraph returns an in-memory graph holding the sample social
// graph: six people, where Michal is friends with everyone but Bob,
// Daniela is friends with Vince, and Bob is friends with Vince.
func NewPeopleGraph(t testing.TB) *store.MemoryGraph {
	t.Helper()

	graph, err := store.NewMemoryGraphFromFixture(context.Background(), PeopleFixture(t))
	require.NoError(t, err)
	return graph
}
