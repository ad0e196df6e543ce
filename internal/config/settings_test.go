// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/actyx-go/actyx/internal/model"
)

func TestGetSetUnsetRoundTrip(t *testing.T) {
	store := NewStore(defaultDocument())

	raw, err := store.Get(ScopeSwarm)
	require.NoError(t, err)
	var swarm SwarmSettings
	require.NoError(t, json.Unmarshal(raw, &swarm))
	require.Equal(t, "default-topic", swarm.Topic)

	update, err := json.Marshal(SwarmSettings{SwarmKey: "sk", Topic: "topic-a"})
	require.NoError(t, err)
	require.NoError(t, store.Set(ScopeSwarm, update))

	raw, err = store.Get(ScopeSwarm)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &swarm))
	require.Equal(t, "topic-a", swarm.Topic)

	require.NoError(t, store.Unset(ScopeSwarm))
	raw, err = store.Get(ScopeSwarm)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &swarm))
	require.Equal(t, "default-topic", swarm.Topic)
}

func TestSetRejectsInvalidDocumentAndLeavesStoreUnchanged(t *testing.T) {
	store := NewStore(defaultDocument())
	require.NoError(t, store.Set(ScopeSwarm, mustJSON(t, SwarmSettings{SwarmKey: "sk", Topic: "kept"})))

	bad := json.RawMessage(`{"swarmKey": 123, "topic": "rejected"}`)
	err := store.Set(ScopeSwarm, bad)
	require.Error(t, err)

	raw, err := store.Get(ScopeSwarm)
	require.NoError(t, err)
	var swarm SwarmSettings
	require.NoError(t, json.Unmarshal(raw, &swarm))
	require.Equal(t, "kept", swarm.Topic)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestAuthorizedKeysBootstrapAndRoundTrip(t *testing.T) {
	store := NewStore(defaultDocument())
	require.Empty(t, store.AuthorizedKeys())

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	require.NoError(t, store.AddAuthorizedKey(pub))

	keys := store.AuthorizedKeys()
	require.Len(t, keys, 1)
	require.True(t, keys[0].Equal(pub))

	// Adding the same key again is idempotent.
	require.NoError(t, store.AddAuthorizedKey(pub))
	require.Len(t, store.AuthorizedKeys(), 1)
}

func TestLicensingDevelopmentModeAndOverride(t *testing.T) {
	store := NewStore(defaultDocument())
	require.True(t, store.DevelopmentMode())
	require.False(t, store.NodeWideOverride())
	require.False(t, store.Licensed("com.example.t1", time.Now()))

	update, err := json.Marshal(LicensingSettings{Node: NodeLicense{Mode: NodeLicenseOverride}})
	require.NoError(t, err)
	require.NoError(t, store.Set(ScopeLicensing, update))
	require.False(t, store.DevelopmentMode())
	require.True(t, store.NodeWideOverride())
}

func TestLicensedChecksPerAppExpiry(t *testing.T) {
	store := NewStore(defaultDocument())
	now := time.Now()
	update, err := json.Marshal(LicensingSettings{
		Node: NodeLicense{Mode: NodeLicenseDevelopment},
		Apps: map[model.AppId]model.AppLicense{
			"com.example.t1": {AppId: "com.example.t1", ExpiresAt: now.Add(time.Hour)},
			"com.example.t2": {AppId: "com.example.t2", ExpiresAt: now.Add(-time.Hour)},
		},
	})
	require.NoError(t, err)
	require.NoError(t, store.Set(ScopeLicensing, update))

	require.True(t, store.Licensed("com.example.t1", now))
	require.False(t, store.Licensed("com.example.t2", now))
	require.False(t, store.Licensed("com.example.unknown", now))
}

func TestSnapshotIsIndependentOfSubsequentWrites(t *testing.T) {
	store := NewStore(defaultDocument())
	snap := store.Snapshot()

	update, err := json.Marshal(SwarmSettings{SwarmKey: "sk", Topic: "changed"})
	require.NoError(t, err)
	require.NoError(t, store.Set(ScopeSwarm, update))

	require.Equal(t, "default-topic", snap.Swarm.Topic)
	require.Equal(t, "changed", store.Snapshot().Swarm.Topic)
}
