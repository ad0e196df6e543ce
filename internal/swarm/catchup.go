// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/actyx-go/actyx/internal/model"
)

// LeaseDuration bounds how long a claimed catch-up job may run before its
// lease is considered stale and eligible for reclaiming: if the process
// crashes while holding a lease, the lease naturally expires instead of
// blocking that peer+stream range forever.
const LeaseDuration = time.Minute

// claim is one in-flight (peer, stream, range) fetch job.
type claim struct {
	holder      string
	leaseExpiry time.Time
}

// jobKey identifies one catch-up unit: a single chunk of a single stream
// fetched from a single peer. Chunking by FetchChunkSize keeps any one
// job small and cancellable.
type jobKey struct {
	peer   model.NodeId
	stream model.StreamId
	from   model.Offset
}

// CatchupQueue deduplicates concurrent fetches of the same peer+stream
// range, using the same claim-by-key lease pattern a write-ahead log
// uses to guard against double-processing an entry: here the lease
// guards against fetching the same replication chunk from two
// goroutines at once.
type CatchupQueue struct {
	mu     sync.Mutex
	claims map[jobKey]claim
}

// NewCatchupQueue returns an empty queue.
func NewCatchupQueue() *CatchupQueue {
	return &CatchupQueue{claims: make(map[jobKey]claim)}
}

// TryClaim attempts to claim exclusive fetching rights for one chunk.
// Returns false if another goroutine already holds a live lease on it.
// A stale lease (past its expiry, i.e. an earlier claimant crashed or
// hung) is reclaimed rather than respected, matching the durable WAL
// lease's crash-recovery behavior.
func (q *CatchupQueue) TryClaim(peer model.NodeId, stream model.StreamId, from model.Offset, holder string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := jobKey{peer: peer, stream: stream, from: from}
	now := time.Now()
	if existing, ok := q.claims[key]; ok && now.Before(existing.leaseExpiry) {
		if existing.holder == holder {
			existing.leaseExpiry = now.Add(LeaseDuration)
			q.claims[key] = existing
			return true
		}
		return false
	}
	q.claims[key] = claim{holder: holder, leaseExpiry: now.Add(LeaseDuration)}
	return true
}

// Release gives up a claim early, letting another goroutine pick up the
// chunk immediately instead of waiting for the lease to expire.
func (q *CatchupQueue) Release(peer model.NodeId, stream model.StreamId, from model.Offset) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.claims, jobKey{peer: peer, stream: stream, from: from})
}

// PlanFetch splits the gap between present and advertised offsets for one
// stream into FetchChunkSize-bounded requests (spec.md §4.4: "requested
// ranges are chunked").
func PlanFetch(stream model.StreamId, present, advertised model.Offset) []FetchRequest {
	if advertised <= present {
		return nil
	}
	var reqs []FetchRequest
	from := present + 1
	for from <= advertised {
		to := from + model.Offset(FetchChunkSize) - 1
		if to > advertised {
			to = advertised
		}
		reqs = append(reqs, FetchRequest{Stream: stream, From: from, To: to})
		from = to + 1
	}
	return reqs
}

// FetchFunc performs one bounded fetch against a peer, returning the
// events it sent back for the requested range.
type FetchFunc func(ctx context.Context, peer model.NodeId, req FetchRequest) (FetchResponse, error)

// RunCatchup claims and executes every pending chunk for toReplicate
// against peer, skipping chunks already claimed elsewhere, and returns
// the events fetched, grouped by stream with each stream's events in
// ascending offset order (the order of the streams is not defined), ready
// for eventstore.Store.Ingest. A chunk whose fetch fails is released so a
// later retry (e.g. the next gossip round) can reclaim it; partial
// progress from earlier chunks in the same call is preserved and
// returned rather than discarded, matching spec.md §4.4's requirement
// that a canceled or failed fetch "resumes, not restarts, from the last
// durably ingested offset".
func RunCatchup(ctx context.Context, q *CatchupQueue, breaker *BreakerRegistry, peer model.NodeId, holder string, toReplicate map[model.StreamId]uint64, present model.OffsetMap, fetch FetchFunc) ([]model.Event, error) {
	var events []model.Event
	for stream, behind := range toReplicate {
		start := present.Get(stream)
		advertised := start + model.Offset(behind)
		for _, req := range PlanFetch(stream, start, advertised) {
			if !q.TryClaim(peer, stream, req.From, holder) {
				continue
			}
			var resp FetchResponse
			err := breaker.Execute(peer, func() error {
				var fetchErr error
				resp, fetchErr = fetch(ctx, peer, req)
				return fetchErr
			})
			q.Release(peer, stream, req.From)
			if err != nil {
				return events, fmt.Errorf("swarm: fetch %s from %s: %w", stream, peer, err)
			}
			if resp.Err != "" {
				return events, fmt.Errorf("swarm: peer %s rejected fetch of %s: %s", peer, stream, resp.Err)
			}
			events = append(events, resp.Events...)
			select {
			case <-ctx.Done():
				return events, ctx.Err()
			default:
			}
		}
	}
	return events, nil
}
