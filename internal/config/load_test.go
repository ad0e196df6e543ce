// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	t.Setenv(SettingsPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	store, err := Load()
	require.NoError(t, err)

	doc := store.Snapshot()
	require.Equal(t, "default-topic", doc.Swarm.Topic)
	require.Equal(t, NodeLicenseDevelopment, doc.Licensing.Node.Mode)
}

func TestLoadLayersFileOverDefaultsAndEnvOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	contents := "swarm:\n  swarmKey: \"from-file\"\n  topic: \"file-topic\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	t.Setenv(SettingsPathEnvVar, path)
	t.Setenv("ACTYX_SWARM_TOPIC", "env-topic")

	store, err := Load()
	require.NoError(t, err)

	doc := store.Snapshot()
	require.Equal(t, "from-file", doc.Swarm.SwarmKey)
	require.Equal(t, "env-topic", doc.Swarm.Topic)
}

func TestLoadRejectsFileThatFailsSchemaValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	contents := "admin:\n  unknownField: true\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	t.Setenv(SettingsPathEnvVar, path)
	_, err := Load()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ValidationAdditionalProp, verr.Kind)
}
