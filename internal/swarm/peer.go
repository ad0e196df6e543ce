// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"fmt"
	"sync"
	"time"

	"github.com/actyx-go/actyx/internal/model"
)

// Backoff bounds are spec.md §4.4's "back-off timer with exponential
// increase capped at a few minutes".
const (
	BackoffInitial = time.Second
	BackoffMax     = 3 * time.Minute
	backoffFactor  = 2
)

// Peer tracks one remote node's connection state, address, known
// offsets, and backoff schedule.
type Peer struct {
	Id      model.NodeId
	Addr    Multiaddr
	State   PeerState
	Offsets model.OffsetMap

	backoff    time.Duration
	retryAfter time.Time
	lastSeen   time.Time
}

// NextBackoff doubles the peer's backoff interval (capped at BackoffMax)
// and returns the time before which reconnection should not be retried.
func (p *Peer) NextBackoff(now time.Time) time.Time {
	if p.backoff == 0 {
		p.backoff = BackoffInitial
	} else {
		p.backoff *= backoffFactor
		if p.backoff > BackoffMax {
			p.backoff = BackoffMax
		}
	}
	p.retryAfter = now.Add(p.backoff)
	return p.retryAfter
}

// ResetBackoff clears the backoff schedule after a successful handshake.
func (p *Peer) ResetBackoff() {
	p.backoff = 0
	p.retryAfter = time.Time{}
}

// ReadyToRetry reports whether the peer's backoff window has elapsed.
func (p *Peer) ReadyToRetry(now time.Time) bool {
	return p.retryAfter.IsZero() || !now.Before(p.retryAfter)
}

// Transition moves the peer to `to`, rejecting edges outside the
// documented state machine (spec.md §4.4).
func (p *Peer) Transition(to PeerState) error {
	if !ValidTransition(p.State, to) {
		return fmt.Errorf("swarm: invalid peer transition %s -> %s", p.State, to)
	}
	p.State = to
	return nil
}

// PeerBook is the concurrency-safe registry of known peers, keyed by
// node id, populated from mDNS, initialPeers, and address-book
// propagation (spec.md §4.4 discovery sources).
type PeerBook struct {
	mu    sync.Mutex
	peers map[string]*Peer
}

// NewPeerBook returns an empty registry.
func NewPeerBook() *PeerBook {
	return &PeerBook{peers: make(map[string]*Peer)}
}

// Discover adds addr as a Discovered peer if its node id is not already
// known, returning the (possibly pre-existing) Peer.
func (b *PeerBook) Discover(id model.NodeId, addr Multiaddr) *Peer {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := id.String()
	if p, ok := b.peers[key]; ok {
		return p
	}
	p := &Peer{Id: id, Addr: addr, State: Discovered, Offsets: model.OffsetMap{}}
	b.peers[key] = p
	return p
}

// Get looks up a peer by node id.
func (b *PeerBook) Get(id model.NodeId) (*Peer, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.peers[id.String()]
	return p, ok
}

// Snapshot returns a copy of the currently known peers, for gossip
// adverts and inspection.
func (b *PeerBook) Snapshot() []Peer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Peer, 0, len(b.peers))
	for _, p := range b.peers {
		out = append(out, *p)
	}
	return out
}

// ReadyForRetry returns peers in Disconnected state whose backoff window
// has elapsed, i.e. ones the discovery/handshake loop should revisit.
func (b *PeerBook) ReadyForRetry(now time.Time) []*Peer {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Peer
	for _, p := range b.peers {
		if p.State == Disconnected && p.ReadyToRetry(now) {
			out = append(out, p)
		}
	}
	return out
}

// Discovered returns peers currently in the Discovered state, the set
// eligible for a handshake attempt.
func (b *PeerBook) Discovered() []*Peer {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Peer
	for _, p := range b.peers {
		if p.State == Discovered {
			out = append(out, p)
		}
	}
	return out
}

// Connected returns peers currently in the Connected or CatchingUp
// state, the set eligible to receive gossip.
func (b *PeerBook) Connected() []*Peer {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Peer
	for _, p := range b.peers {
		if p.State == Connected || p.State == CatchingUp {
			out = append(out, p)
		}
	}
	return out
}
