// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDocumentAcceptsDefaults(t *testing.T) {
	require.NoError(t, ValidateDocument(defaultDocument()))
}

func TestValidateRawReportsRequiredWithJSONPointer(t *testing.T) {
	err := validateRaw([]byte(`{"admin":{"displayName":"n","authorizedUsers":[]},"swarm":{"topic":"t"},"api":{"events":{"readOnly":false}},"licensing":{"node":{"mode":"development"}}}`))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ValidationRequired, verr.Kind)
	require.Contains(t, verr.Pointer, "/swarm")
}

func TestValidateRawReportsAdditionalProperty(t *testing.T) {
	doc := []byte(`{"admin":{"displayName":"n","authorizedUsers":[],"bogus":1},"swarm":{"swarmKey":"k","topic":"t"},"api":{"events":{"readOnly":false}},"licensing":{"node":{"mode":"development"}}}`)
	err := validateRaw(doc)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ValidationAdditionalProp, verr.Kind)
}

func TestValidateRawReportsWrongType(t *testing.T) {
	doc := []byte(`{"admin":{"displayName":"n","authorizedUsers":[]},"swarm":{"swarmKey":"k","topic":"t"},"api":{"events":{"readOnly":"yes"}},"licensing":{"node":{"mode":"development"}}}`)
	err := validateRaw(doc)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, ValidationWrongType, verr.Kind)
}
