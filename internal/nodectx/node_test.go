// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package nodectx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/actyx-go/actyx/internal/admin"
	"github.com/actyx-go/actyx/internal/config"
	"github.com/actyx-go/actyx/internal/model"
)

func testDocument() config.Document {
	return config.Document{
		Admin: config.AdminSettings{
			AuthorizedUsers: []string{},
			LogLevels:       map[string]string{},
		},
		Swarm: config.SwarmSettings{
			Topic:             "default-topic",
			InitialPeers:      []string{},
			AnnounceAddresses: []string{},
		},
		API: config.APISettings{},
		Licensing: config.LicensingSettings{
			Node: config.NodeLicense{Mode: config.NodeLicenseDevelopment},
			Apps: map[model.AppId]model.AppLicense{},
		},
	}
}

func TestLoadOrCreateIdentityPersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()

	kp1, self1, err := loadOrCreateIdentity(dir)
	require.NoError(t, err)
	require.NotEmpty(t, kp1.Private)

	if _, err := os.Stat(filepath.Join(dir, identityFileName)); err != nil {
		t.Fatalf("identity.key was not persisted: %v", err)
	}

	kp2, self2, err := loadOrCreateIdentity(dir)
	require.NoError(t, err)
	require.Equal(t, self1, self2)
	require.True(t, kp1.Public.Equal(kp2.Public))
}

func TestLoadOrCreateIdentityRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, identityFileName), []byte("not-a-key"), 0o600))

	_, _, err := loadOrCreateIdentity(dir)
	require.Error(t, err)
}

func TestLoadOrCreateHMACSecretPersistsAcrossCalls(t *testing.T) {
	dir := t.TempDir()

	s1, err := loadOrCreateHMACSecret(dir)
	require.NoError(t, err)
	require.NotEmpty(t, s1)

	s2, err := loadOrCreateHMACSecret(dir)
	require.NoError(t, err)
	require.Equal(t, s1, s2)
}

func TestEnsureSwarmKeyGeneratesAndPersists(t *testing.T) {
	store := config.NewStore(testDocument())

	psk1, err := ensureSwarmKey(store)
	require.NoError(t, err)
	require.NotNil(t, psk1)

	raw, err := store.Get(config.ScopeSwarm)
	require.NoError(t, err)
	var swarmSettings config.SwarmSettings
	require.NoError(t, json.Unmarshal(raw, &swarmSettings))
	require.NotEmpty(t, swarmSettings.SwarmKey)

	// A second call reuses the now-persisted key rather than minting a new one.
	psk2, err := ensureSwarmKey(store)
	require.NoError(t, err)
	require.Equal(t, psk1, psk2)
}

func TestEnsureSwarmKeyHonorsExistingKey(t *testing.T) {
	doc := testDocument()
	raw := make([]byte, 32)
	doc.Swarm.SwarmKey = base64.StdEncoding.EncodeToString(raw)
	store := config.NewStore(doc)

	psk, err := ensureSwarmKey(store)
	require.NoError(t, err)
	require.NotNil(t, psk)
}

func TestResolveRootKeyFallsBackToEphemeralKey(t *testing.T) {
	log := zerolog.Nop()
	pub := resolveRootKey(log)
	require.NotEmpty(t, pub)
}

func TestMustPortParsesOrDefaultsToZero(t *testing.T) {
	require.Equal(t, 4454, mustPort("127.0.0.1:4454"))
	require.Equal(t, 0, mustPort("not-a-host-port"))
}

func TestNewBuildsAndClosesANode(t *testing.T) {
	dir := t.TempDir()
	store := config.NewStore(testDocument())
	logs := admin.NewLogBroadcaster()

	node, err := New(Config{
		DataDir:   dir,
		BindSwarm: "127.0.0.1:0",
		BindAPI:   "127.0.0.1:0",
		BindAdmin: "127.0.0.1:0",
	}, store, logs, zerolog.Nop())
	require.NoError(t, err)
	require.NotEmpty(t, node.Self.String())

	require.NoError(t, node.Close())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	store := config.NewStore(testDocument())
	logs := admin.NewLogBroadcaster()

	node, err := New(Config{
		DataDir:   dir,
		BindSwarm: "127.0.0.1:0",
		BindAPI:   "127.0.0.1:0",
		BindAdmin: "127.0.0.1:0",
	}, store, logs, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- node.Run(ctx) }()

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("node did not shut down in time")
	}
}
