// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventstore

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/actyx-go/actyx/internal/model"
)

// Key layout inside the per-topic BadgerDB, mirroring the three internal
// data structures spec.md §4.1 calls for: the per-stream append log, the
// tag index, and the persisted OffsetMap snapshot.
//
//	e: <nodeId><nr big-endian><offset big-endian>        -> encoded Event
//	o: <nodeId><nr big-endian>                           -> big-endian Offset (high-water mark)
//	t: <tag>\x00<lamport big-endian><nodeId><nr><offset> -> empty (posting list entry)
const (
	prefixEvent  = 'e'
	prefixOffset = 'o'
	prefixTag    = 't'
)

func eventKeyBytes(k model.EventKey) []byte {
	buf := make([]byte, 0, 1+len(k.Stream.Node.PublicKey())+8+8)
	buf = append(buf, prefixEvent)
	buf = append(buf, k.Stream.Node.PublicKey()...)
	buf = appendUint64(buf, uint64(k.Stream.Nr))
	buf = appendUint64(buf, uint64(k.Offset))
	return buf
}

func offsetKeyBytes(s model.StreamId) []byte {
	buf := make([]byte, 0, 1+len(s.Node.PublicKey())+8)
	buf = append(buf, prefixOffset)
	buf = append(buf, s.Node.PublicKey()...)
	buf = appendUint64(buf, uint64(s.Nr))
	return buf
}

func streamEventPrefix(s model.StreamId) []byte {
	buf := make([]byte, 0, 1+len(s.Node.PublicKey())+8)
	buf = append(buf, prefixEvent)
	buf = append(buf, s.Node.PublicKey()...)
	buf = appendUint64(buf, uint64(s.Nr))
	return buf
}

func tagPostingKey(tag string, k model.EventKey) []byte {
	buf := make([]byte, 0, 1+len(tag)+1+8+len(k.Stream.Node.PublicKey())+8+8)
	buf = append(buf, prefixTag)
	buf = append(buf, []byte(tag)...)
	buf = append(buf, 0)
	buf = appendUint64(buf, uint64(k.Lamport))
	buf = append(buf, k.Stream.Node.PublicKey()...)
	buf = appendUint64(buf, uint64(k.Stream.Nr))
	buf = appendUint64(buf, uint64(k.Offset))
	return buf
}

func tagPrefix(tag string) []byte {
	buf := make([]byte, 0, 1+len(tag)+1)
	buf = append(buf, prefixTag)
	buf = append(buf, []byte(tag)...)
	buf = append(buf, 0)
	return buf
}

// decodeTagPostingKey reverses tagPostingKey, used when scanning the tag
// index to recover the EventKey it points at.
func decodeTagPostingKey(tag string, key []byte) (model.EventKey, error) {
	prefix := tagPrefix(tag)
	if !bytes.HasPrefix(key, prefix) {
		return model.EventKey{}, fmt.Errorf("tag posting key missing prefix")
	}
	rest := key[len(prefix):]
	const nodeLen = 32 // ed25519.PublicKeySize
	want := 8 + nodeLen + 8 + 8
	if len(rest) != want {
		return model.EventKey{}, fmt.Errorf("tag posting key malformed: got %d bytes, want %d", len(rest), want)
	}
	lamport := binary.BigEndian.Uint64(rest[0:8])
	nodeBytes := rest[8 : 8+nodeLen]
	nr := binary.BigEndian.Uint64(rest[8+nodeLen : 16+nodeLen])
	off := binary.BigEndian.Uint64(rest[16+nodeLen : 24+nodeLen])
	nodeId, err := model.NodeIdFromPublicKey(ed25519.PublicKey(append([]byte(nil), nodeBytes...)))
	if err != nil {
		return model.EventKey{}, err
	}
	return model.EventKey{
		Lamport: model.Lamport(lamport),
		Stream:  model.StreamId{Node: nodeId, Nr: model.StreamNr(nr)},
		Offset:  model.Offset(off),
	}, nil
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}
