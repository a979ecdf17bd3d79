// Package configs embeds the default engine definition and the sample
// social graph.
package configs

import _ "embed"

// FriendsEngine is the default friends recommendation engine definition.
//
//go:embed friends.yaml
var FriendsEngine []byte

// PeopleFixture is a small social graph in store.Fixture format.
//
//go:embed people.yaml
var PeopleFixture []byte
