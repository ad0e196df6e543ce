// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

var (
	PeersByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swarm_peers",
			Help: "Current number of known peers, by state",
		},
		[]string{"state"},
	)

	HandshakesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_handshakes_total",
			Help: "Total PSK handshake attempts, by outcome",
		},
		[]string{"outcome"}, // "ok", "failed"
	)

	GossipAdvertsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_gossip_adverts_sent_total",
			Help: "Total offset adverts published to connected peers",
		},
	)

	GossipAdvertsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swarm_gossip_adverts_received_total",
			Help: "Total offset adverts received from peers",
		},
	)

	CatchupEventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_catchup_events_ingested_total",
			Help: "Total events ingested via peer catch-up, by peer",
		},
		[]string{"peer"},
	)

	CatchupFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swarm_catchup_fetch_errors_total",
			Help: "Total failed catch-up fetches, by peer",
		},
		[]string{"peer"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "swarm_breaker_state",
			Help: "Per-peer circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"peer"},
	)
)

// refreshPeerGauges recomputes PeersByState from a PeerBook snapshot.
// Called after every discovery round so the gauge reflects
// the book rather than drifting via increment/decrement bookkeeping.
func refreshPeerGauges(peers []Peer) {
	counts := map[PeerState]int{}
	for _, p := range peers {
		counts[p.State]++
	}
	for _, state := range []PeerState{Discovered, Handshaking, Connected, CatchingUp, Disconnected} {
		PeersByState.WithLabelValues(state.String()).Set(float64(counts[state]))
	}
}

// refreshBreakerGauges recomputes BreakerState from a BreakerRegistry
// snapshot.
func refreshBreakerGauges(states map[string]gobreaker.State) {
	for peer, state := range states {
		var v float64
		switch state {
		case gobreaker.StateHalfOpen:
			v = 1
		case gobreaker.StateOpen:
			v = 2
		}
		BreakerState.WithLabelValues(peer).Set(v)
	}
}
