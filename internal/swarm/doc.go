// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package swarm implements the peer discovery, handshake, gossip, and
// pull-based catch-up layer described in spec.md §4.4.
//
// # Architecture
//
//	Discovery (mDNS + initialPeers + address book)
//	        |
//	        v
//	   PeerBook  --(PSK handshake)-->  Connected peer
//	        |
//	        v
//	 Gossip transport (embedded NATS + Watermill router)
//	        |
//	        v
//	 Catch-up queue (lease/claim) --> eventstore.Store.Ingest
//
// Each peer carries its own gobreaker/v2 circuit breaker: repeated dial
// or fetch failures trip the breaker and back the peer off exponentially
// rather than hammering a down peer on every gossip tick.
//
// # Per-peer state machine
//
// Discovered -> Handshaking -> Connected -> CatchingUp -> Connected, with
// Disconnected reachable from Handshaking, Connected or CatchingUp and looping back
// to Discovered (spec.md §4.4). State transitions are validated by
// ValidTransition so a bug elsewhere in the package cannot silently skip
// the handshake.
package swarm
