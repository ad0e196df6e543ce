// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/actyx-go/actyx/internal/model"
)

//go:embed settings.schema.json
var settingsSchemaJSON []byte

// Schema returns the JSON Schema fragment for one scope, for the Admin
// channel's get_schema(scope) operation (spec.md §4.6). It is sliced out
// of the embedded document's top-level "properties" object rather than
// maintained as a second copy, so the two can never drift apart.
func Schema(scope Scope) (json.RawMessage, error) {
	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(settingsSchemaJSON, &doc); err != nil {
		return nil, fmt.Errorf("parse settings schema: %w", err)
	}
	sub, ok := doc.Properties[string(scope)]
	if !ok {
		return nil, fmt.Errorf("schema: unknown scope %q", scope)
	}
	return sub, nil
}

// defaultDocument returns the Settings document with every field set to
// its schema default. Unset resets a scope back to these values.
func defaultDocument() Document {
	return Document{
		Admin: AdminSettings{
			DisplayName:     "",
			AuthorizedUsers: []string{},
			LogLevels:       map[string]string{},
		},
		Swarm: SwarmSettings{
			SwarmKey:          "",
			Topic:             "default-topic",
			InitialPeers:      []string{},
			AnnounceAddresses: []string{},
		},
		API: APISettings{
			Events: APIEventsSettings{ReadOnly: false},
		},
		Licensing: LicensingSettings{
			Node: NodeLicense{Mode: NodeLicenseDevelopment},
			Apps: map[model.AppId]model.AppLicense{},
		},
	}
}
