package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-reco/internal/domain"
	"github.com/ahrav/go-reco/internal/ports"
	"github.com/ahrav/go-reco/internal/testutils"
)

func TestDefaultUnitRegistry_SupportedTypes(t *testing.T) {
	registry := NewDefaultUnitRegistry(testutils.NewPeopleGraph(t))

	assert.Equal(t, []string{
		"age_difference",
		"exclude_self",
		"existing_friends",
		"friends_in_common",
		"random_people",
		"same_label",
		"same_location",
	}, registry.GetSupportedTypes())
}

func TestDefaultUnitRegistry_CreateUnit(t *testing.T) {
	registry := NewDefaultUnitRegistry(testutils.NewPeopleGraph(t))

	tests := []struct {
		name     string
		unitType string
		id       string
		config   map[string]any
		wantErr  string
	}{
		{name: "friends in common", unitType: "friends_in_common", id: "fic"},
		{name: "random people with seed", unitType: "random_people", id: "rp", config: map[string]any{"seed": 7}},
		{name: "same label", unitType: "same_label", id: "sl", config: map[string]any{"attribute": "city"}},
		{name: "age difference", unitType: "age_difference", id: "ad"},
		{name: "same location", unitType: "same_location", id: "loc", config: map[string]any{"max_distance": 2}},
		{name: "unknown type", unitType: "telepathy", id: "x", wantErr: "unsupported unit type: telepathy"},
		{name: "empty id", unitType: "friends_in_common", id: "", wantErr: "unit ID cannot be empty"},
		{name: "bad parameter", unitType: "random_people", id: "rp", config: map[string]any{"seed": "lucky"}, wantErr: "seed must be an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, err := registry.CreateUnit(tt.unitType, tt.id, tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, unit)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.id, unit.Name())
			assert.NoError(t, unit.Validate())
		})
	}
}

func TestDefaultUnitRegistry_CreateBlacklist(t *testing.T) {
	registry := NewDefaultUnitRegistry(testutils.NewPeopleGraph(t))
	pass := domain.NewPass[string, string](testutils.Vince, domain.RealTime, 10, "req")

	self, err := registry.CreateBlacklist("exclude_self", "self", nil)
	require.NoError(t, err)
	excluded, err := self.Exclude(context.Background(), pass)
	require.NoError(t, err)
	assert.Equal(t, []string{testutils.Vince}, excluded)

	friends, err := registry.CreateBlacklist("existing_friends", "friends", nil)
	require.NoError(t, err)
	excluded, err = friends.Exclude(context.Background(), pass)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{testutils.Michal, testutils.Daniela, testutils.Bob}, excluded)

	_, err = registry.CreateBlacklist("nobody_likes", "x", nil)
	assert.ErrorContains(t, err, "unsupported blacklist type")
}

func TestDefaultUnitRegistry_LeavesCallerConfigUntouched(t *testing.T) {
	registry := NewDefaultUnitRegistry(testutils.NewPeopleGraph(t))

	unitConfig := map[string]any{"seed": 7}
	_, err := registry.CreateUnit("random_people", "rp", unitConfig)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"seed": 7}, unitConfig)

	blacklistConfig := map[string]any{}
	_, err = registry.CreateBlacklist("existing_friends", "friends", blacklistConfig)
	require.NoError(t, err)
	assert.Empty(t, blacklistConfig)
}

func TestDefaultUnitRegistry_WithoutGraph(t *testing.T) {
	registry := NewDefaultUnitRegistry(nil)

	blacklist, err := registry.CreateBlacklist("exclude_self", "self", nil)
	require.NoError(t, err)
	assert.NotNil(t, blacklist)

	_, err = registry.CreateUnit("friends_in_common", "fic", nil)
	assert.ErrorContains(t, err, "social graph is required")

	registry.SetGraph(testutils.NewPeopleGraph(t))
	unit, err := registry.CreateUnit("friends_in_common", "fic", nil)
	require.NoError(t, err)
	assert.Equal(t, "fic", unit.Name())
}

func TestDefaultUnitRegistry_RegisterFactories(t *testing.T) {
	registry := NewDefaultUnitRegistry(testutils.NewPeopleGraph(t))

	assert.Error(t, registry.RegisterUnitFactory("", nil))
	assert.Error(t, registry.RegisterUnitFactory("static", nil))
	assert.Error(t, registry.RegisterBlacklistFactory("", nil))

	require.NoError(t, registry.RegisterUnitFactory("static",
		func(id string, _ map[string]any) (ports.ScoringUnit[string, string], error) {
			return testutils.NewStaticUnit(id), nil
		}))
	require.NoError(t, registry.RegisterBlacklistFactory("static_blacklist",
		func(id string, _ map[string]any) (ports.Blacklist[string, string], error) {
			return testutils.NewStaticBlacklist(id, testutils.Bob), nil
		}))

	unit, err := registry.CreateUnit("static", "s", nil)
	require.NoError(t, err)
	assert.Equal(t, "s", unit.Name())

	blacklist, err := registry.CreateBlacklist("static_blacklist", "b", nil)
	require.NoError(t, err)
	assert.Equal(t, "b", blacklist.Name())

	assert.Contains(t, registry.GetSupportedTypes(), "static")
	assert.Contains(t, registry.GetSupportedTypes(), "static_blacklist")
}
