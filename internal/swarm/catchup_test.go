// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/actyx-go/actyx/internal/model"
)

func TestPlanFetchChunksByFetchChunkSize(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	id, err := model.NodeIdFromPublicKey(pub)
	require.NoError(t, err)
	stream := model.StreamId{Node: id, Nr: 1}

	reqs := PlanFetch(stream, 0, model.Offset(FetchChunkSize*2+10))
	require.Len(t, reqs, 3)
	require.Equal(t, model.Offset(1), reqs[0].From)
	require.Equal(t, model.Offset(FetchChunkSize), reqs[0].To)
	require.Equal(t, model.Offset(FetchChunkSize+1), reqs[1].From)
	require.Equal(t, model.Offset(FetchChunkSize*2), reqs[1].To)
	require.Equal(t, model.Offset(FetchChunkSize*2+1), reqs[2].From)
	require.Equal(t, model.Offset(FetchChunkSize*2+10), reqs[2].To)
}

func TestPlanFetchEmptyWhenCaughtUp(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	id, err := model.NodeIdFromPublicKey(pub)
	require.NoError(t, err)
	stream := model.StreamId{Node: id, Nr: 1}

	require.Empty(t, PlanFetch(stream, 10, 10))
	require.Empty(t, PlanFetch(stream, 10, 5))
}

func TestCatchupQueueTryClaimDeduplicatesConcurrentFetch(t *testing.T) {
	q := NewCatchupQueue()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	peer, err := model.NodeIdFromPublicKey(pub)
	require.NoError(t, err)
	stream := model.StreamId{Node: peer, Nr: 1}

	require.True(t, q.TryClaim(peer, stream, 1, "holder-a"))
	require.False(t, q.TryClaim(peer, stream, 1, "holder-b"), "a second holder must not claim a live lease")
	require.True(t, q.TryClaim(peer, stream, 1, "holder-a"), "the same holder may re-claim (extend) its own lease")

	q.Release(peer, stream, 1)
	require.True(t, q.TryClaim(peer, stream, 1, "holder-b"), "after release, another holder may claim it")
}

func TestRunCatchupFetchesEveryPlannedChunk(t *testing.T) {
	q := NewCatchupQueue()
	breaker := NewBreakerRegistry()
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	peer, err := model.NodeIdFromPublicKey(pub)
	require.NoError(t, err)
	stream := model.StreamId{Node: peer, Nr: 1}

	var gotReqs []FetchRequest
	fetch := func(_ context.Context, _ model.NodeId, req FetchRequest) (FetchResponse, error) {
		gotReqs = append(gotReqs, req)
		return FetchResponse{Events: []model.Event{{Key: model.EventKey{Stream: stream, Offset: req.From}}}}, nil
	}

	toReplicate := map[model.StreamId]uint64{stream: 2}
	present := model.OffsetMap{}
	events, err := RunCatchup(context.Background(), q, breaker, peer, "holder", toReplicate, present, fetch)
	require.NoError(t, err)
	require.Len(t, gotReqs, 1)
	require.Len(t, events, 1)
}
