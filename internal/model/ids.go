// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the shared domain types of the event store: node
// and stream identity, offsets, Lamport timestamps, event keys, events,
// and the offset map. These types carry no storage or network logic; they
// are the vocabulary every other package builds on.
package model

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
)

// NodeId is the public half of a node's Ed25519 key pair. It is both the
// node's stable identifier and the authenticator of the streams it produces.
type NodeId struct {
	pub ed25519.PublicKey
}

// NodeIdFromPublicKey wraps a raw Ed25519 public key as a NodeId.
func NodeIdFromPublicKey(pub ed25519.PublicKey) (NodeId, error) {
	if len(pub) != ed25519.PublicKeySize {
		return NodeId{}, fmt.Errorf("node id: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	cp := make(ed25519.PublicKey, len(pub))
	copy(cp, pub)
	return NodeId{pub: cp}, nil
}

// ParseNodeId decodes the canonical base64 (unpadded, URL-safe) text form.
func ParseNodeId(s string) (NodeId, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return NodeId{}, fmt.Errorf("parse node id %q: %w", s, err)
	}
	return NodeIdFromPublicKey(ed25519.PublicKey(raw))
}

// String returns the canonical base64 (unpadded, URL-safe) text form.
func (n NodeId) String() string {
	return base64.RawURLEncoding.EncodeToString(n.pub)
}

// PublicKey returns the underlying Ed25519 public key.
func (n NodeId) PublicKey() ed25519.PublicKey { return n.pub }

// IsZero reports whether this NodeId was never assigned a key.
func (n NodeId) IsZero() bool { return len(n.pub) == 0 }

// Compare gives a total, deterministic order over NodeIds (lexicographic
// over the raw public key bytes), used by EventKey comparison.
func (n NodeId) Compare(other NodeId) int {
	return strings.Compare(string(n.pub), string(other.pub))
}

func (n NodeId) MarshalText() ([]byte, error) { return []byte(n.String()), nil }

func (n *NodeId) UnmarshalText(text []byte) error {
	id, err := ParseNodeId(string(text))
	if err != nil {
		return err
	}
	*n = id
	return nil
}

// StreamNr is the small integer a node assigns to one of its own streams.
type StreamNr uint64

// StreamId uniquely identifies an append-only event stream. Only the node
// named by NodeId may append to it.
type StreamId struct {
	Node NodeId   `json:"node"`
	Nr   StreamNr `json:"nr"`
}

// String renders "<nodeId>.<nr>", the canonical textual form used in
// query results and settings.
func (s StreamId) String() string {
	return fmt.Sprintf("%s.%d", s.Node.String(), uint64(s.Nr))
}

// Compare orders StreamIds lexicographically by node id, then stream nr,
// as required by EventKey's total order (spec.md §3, EventKey).
func (s StreamId) Compare(other StreamId) int {
	if c := s.Node.Compare(other.Node); c != 0 {
		return c
	}
	switch {
	case s.Nr < other.Nr:
		return -1
	case s.Nr > other.Nr:
		return 1
	default:
		return 0
	}
}

// ParseStreamId parses the String() form ("<nodeId>.<nr>") back into a StreamId.
func ParseStreamId(s string) (StreamId, error) {
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return StreamId{}, fmt.Errorf("parse stream id %q: missing '.' separator", s)
	}
	nodeId, err := ParseNodeId(s[:idx])
	if err != nil {
		return StreamId{}, fmt.Errorf("parse stream id %q: %w", s, err)
	}
	var nr uint64
	if _, err := fmt.Sscanf(s[idx+1:], "%d", &nr); err != nil {
		return StreamId{}, fmt.Errorf("parse stream id %q: bad stream nr: %w", s, err)
	}
	return StreamId{Node: nodeId, Nr: StreamNr(nr)}, nil
}

// MarshalText renders StreamId's canonical form so it can be used as a JSON
// object key (e.g. in OffsetMap's wire representation).
func (s StreamId) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *StreamId) UnmarshalText(text []byte) error {
	id, err := ParseStreamId(string(text))
	if err != nil {
		return err
	}
	*s = id
	return nil
}

// Offset is a dense, zero-based index into a stream.
type Offset uint64

// Lamport is a node-local logical clock. It strictly increases within a
// stream and is advanced to max(local, observed)+1 whenever a node learns
// of a higher value from an ingested event (spec.md §3, Lamport).
type Lamport uint64

// Next returns the Lamport value to assign after observing `seen`.
func (l Lamport) Next(seen Lamport) Lamport {
	if seen > l {
		l = seen
	}
	return l + 1
}

// EventKey totally orders the entire event log: compare Lamport, then
// StreamId, then Offset (spec.md §3, EventKey).
type EventKey struct {
	Lamport Lamport  `json:"lamport"`
	Stream  StreamId `json:"stream"`
	Offset  Offset   `json:"offset"`
}

// Compare returns -1, 0, or 1 per the canonical ascending order.
func (k EventKey) Compare(other EventKey) int {
	switch {
	case k.Lamport < other.Lamport:
		return -1
	case k.Lamport > other.Lamport:
		return 1
	}
	if c := k.Stream.Compare(other.Stream); c != 0 {
		return c
	}
	switch {
	case k.Offset < other.Offset:
		return -1
	case k.Offset > other.Offset:
		return 1
	default:
		return 0
	}
}

func (k EventKey) Less(other EventKey) bool { return k.Compare(other) < 0 }

// String renders the canonical external event-id form used by AQL's
// to(<event-id>) clause and API responses: "<lamport>.<nodeId>.<nr>.<offset>".
func (k EventKey) String() string {
	return fmt.Sprintf("%d.%s.%d.%d", uint64(k.Lamport), k.Stream.Node.String(), uint64(k.Stream.Nr), uint64(k.Offset))
}

// ParseEventKey parses the String() form back into an EventKey.
func ParseEventKey(s string) (EventKey, error) {
	parts := strings.SplitN(s, ".", 4)
	if len(parts) != 4 {
		return EventKey{}, fmt.Errorf("parse event key %q: expected 4 dot-separated fields, got %d", s, len(parts))
	}
	var lamport, nr, offset uint64
	if _, err := fmt.Sscanf(parts[0], "%d", &lamport); err != nil {
		return EventKey{}, fmt.Errorf("parse event key %q: bad lamport: %w", s, err)
	}
	nodeId, err := ParseNodeId(parts[1])
	if err != nil {
		return EventKey{}, fmt.Errorf("parse event key %q: %w", s, err)
	}
	if _, err := fmt.Sscanf(parts[2], "%d", &nr); err != nil {
		return EventKey{}, fmt.Errorf("parse event key %q: bad stream nr: %w", s, err)
	}
	if _, err := fmt.Sscanf(parts[3], "%d", &offset); err != nil {
		return EventKey{}, fmt.Errorf("parse event key %q: bad offset: %w", s, err)
	}
	return EventKey{
		Lamport: Lamport(lamport),
		Stream:  StreamId{Node: nodeId, Nr: StreamNr(nr)},
		Offset:  Offset(offset),
	}, nil
}
