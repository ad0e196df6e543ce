// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/actyx-go/actyx/internal/model"
)

func testNodeId(t *testing.T) model.NodeId {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	id, err := model.NodeIdFromPublicKey(pub)
	require.NoError(t, err)
	return id
}

func TestPeerBookDiscoverIsIdempotent(t *testing.T) {
	book := NewPeerBook()
	id := testNodeId(t)
	addr := Multiaddr{IP: "10.0.0.1", Port: 4001, Peer: id}

	p1 := book.Discover(id, addr)
	p2 := book.Discover(id, Multiaddr{IP: "10.0.0.2", Port: 9999})

	require.Same(t, p1, p2)
	require.Equal(t, Discovered, p1.State)
	require.Equal(t, "10.0.0.1", p1.Addr.IP, "second Discover must not overwrite an already-known peer")
}

func TestPeerTransitionRejectsInvalidEdges(t *testing.T) {
	p := &Peer{State: Discovered}
	require.NoError(t, p.Transition(Handshaking))
	require.Error(t, p.Transition(CatchingUp))
	require.Equal(t, Handshaking, p.State, "a rejected transition must not mutate state")
}

func TestPeerBackoffDoublesAndCaps(t *testing.T) {
	p := &Peer{}
	now := time.Unix(0, 0)

	first := p.NextBackoff(now)
	require.Equal(t, now.Add(BackoffInitial), first)

	for i := 0; i < 10; i++ {
		p.NextBackoff(now)
	}
	require.LessOrEqual(t, p.backoff, BackoffMax)

	p.ResetBackoff()
	require.True(t, p.ReadyToRetry(now))
}

func TestPeerBookReadyForRetryOnlyReturnsElapsedDisconnected(t *testing.T) {
	book := NewPeerBook()
	id := testNodeId(t)
	p := book.Discover(id, Multiaddr{})
	require.NoError(t, p.Transition(Handshaking))
	require.NoError(t, p.Transition(Disconnected))

	now := time.Now()
	p.NextBackoff(now)

	require.Empty(t, book.ReadyForRetry(now), "must not be ready before its backoff elapses")
	require.NotEmpty(t, book.ReadyForRetry(now.Add(p.backoff+time.Second)))
}

func TestPeerBookConnectedIncludesCatchingUp(t *testing.T) {
	book := NewPeerBook()
	id := testNodeId(t)
	p := book.Discover(id, Multiaddr{})
	require.NoError(t, p.Transition(Handshaking))
	require.NoError(t, p.Transition(Connected))
	require.NoError(t, p.Transition(CatchingUp))

	connected := book.Connected()
	require.Len(t, connected, 1)
	require.Equal(t, id, connected[0].Id)
}
