// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventstore

import (
	"github.com/actyx-go/actyx/internal/codec"
	"github.com/actyx-go/actyx/internal/model"
)

// storedEvent is the on-disk representation of model.Event. It is encoded
// with the fast JSON codec rather than CBOR: events are never signed as a
// unit (only manifests/certificates/licenses are), so canonical encoding
// buys nothing here and goccy/go-json is faster on the hot publish path.
type storedEvent struct {
	Lamport   uint64   `json:"lamport"`
	Timestamp int64    `json:"timestamp"`
	Tags      []string `json:"tags"`
	AppId     string   `json:"appId"`
	Payload   []byte   `json:"payload"`
}

func encodeEvent(e model.Event) ([]byte, error) {
	return codec.Marshal(storedEvent{
		Lamport:   uint64(e.Key.Lamport),
		Timestamp: e.Timestamp,
		Tags:      e.Tags,
		AppId:     string(e.AppId),
		Payload:   e.Payload,
	})
}

// decodeEvent reconstructs a model.Event from stored bytes. The caller
// must fill in Key.Stream and Key.Offset since those live in the Badger
// key, not the value.
func decodeEvent(data []byte) (model.Event, error) {
	var s storedEvent
	if err := codec.Unmarshal(data, &s); err != nil {
		return model.Event{}, err
	}
	return model.Event{
		Key:       model.EventKey{Lamport: model.Lamport(s.Lamport)},
		Timestamp: s.Timestamp,
		Tags:      model.TagSet(s.Tags),
		AppId:     model.AppId(s.AppId),
		Payload:   s.Payload,
	}, nil
}
