// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidTransitionCoversDocumentedEdges(t *testing.T) {
	cases := []struct {
		from, to PeerState
		want     bool
	}{
		{Discovered, Handshaking, true},
		{Discovered, Connected, false},
		{Handshaking, Connected, true},
		{Handshaking, Disconnected, true},
		{Connected, CatchingUp, true},
		{Connected, Disconnected, true},
		{Connected, Handshaking, false},
		{CatchingUp, Connected, true},
		{CatchingUp, Disconnected, true},
		{Disconnected, Discovered, true},
		{Disconnected, Connected, false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ValidTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestPeerStateStringNamesEveryState(t *testing.T) {
	for _, s := range []PeerState{Discovered, Handshaking, Connected, CatchingUp, Disconnected} {
		require.NotEqual(t, "unknown", s.String())
	}
	require.Equal(t, "unknown", PeerState(99).String())
}
