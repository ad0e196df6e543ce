// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package nodectx

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/actyx-go/actyx/internal/config"
	"github.com/actyx-go/actyx/internal/swarm"
)

// ensureSwarmKey returns the swarm's configured PSK, generating one and
// persisting it into settings.swarm.swarmKey on first startup (spec.md
// §6, "ax swarms keygen"): a node with no swarm key yet cannot gossip
// with anyone, so the Node runtime bootstraps its own rather than
// refusing to start.
func ensureSwarmKey(settings *config.Store) (*swarm.PSK, error) {
	doc := settings.Snapshot()
	if doc.Swarm.SwarmKey != "" {
		return swarm.DecodePSK(doc.Swarm.SwarmKey)
	}

	psk, raw, err := swarm.GeneratePSK()
	if err != nil {
		return nil, fmt.Errorf("generate swarm key: %w", err)
	}
	doc.Swarm.SwarmKey = base64.StdEncoding.EncodeToString(raw)
	encoded, err := json.Marshal(doc.Swarm)
	if err != nil {
		return nil, fmt.Errorf("encode swarm settings: %w", err)
	}
	if err := settings.Set(config.ScopeSwarm, encoded); err != nil {
		return nil, fmt.Errorf("persist generated swarm key: %w", err)
	}
	return psk, nil
}
