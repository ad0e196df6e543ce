// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventstore

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/actyx-go/actyx/internal/model"
)

// ErrEventTooLarge is returned by Publish when a single event's payload
// exceeds model.MaxEventPayloadBytes (spec.md §4.1 publish()).
type ErrEventTooLarge struct {
	Index int
	Size  int
}

func (e *ErrEventTooLarge) Error() string {
	return fmt.Sprintf("event %d exceeds max payload size: %d bytes", e.Index, e.Size)
}

// Publish appends unpublished events to this node's own stream in one
// atomic batch: either every event becomes durable and visible, or none
// do (spec.md §4.1, "partial failure is not allowed"). Returns the
// assigned EventKeys in input order.
func (s *Store) Publish(appId model.AppId, events []model.UnpublishedEvent) ([]model.EventKey, error) {
	for i, e := range events {
		if len(e.Payload) > model.MaxEventPayloadBytes {
			return nil, &ErrEventTooLarge{Index: i, Size: len(e.Payload)}
		}
	}
	if len(events) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	startOffset := s.offsets.Get(s.ownStream)
	now := time.Now().UnixMicro()

	keys := make([]model.EventKey, len(events))
	stored := make([]model.Event, len(events))
	lamport := s.lamport
	for i, ue := range events {
		lamport++
		key := model.EventKey{
			Lamport: lamport,
			Stream:  s.ownStream,
			Offset:  startOffset + model.Offset(i) + 1,
		}
		keys[i] = key
		stored[i] = model.Event{
			Key:       key,
			Timestamp: now,
			Tags:      model.NewTagSet(ue.Tags),
			AppId:     appId,
			Payload:   ue.Payload,
		}
	}
	finalOffset := startOffset + model.Offset(len(events))

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, ev := range stored {
			val, err := encodeEvent(ev)
			if err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
			if err := txn.Set(eventKeyBytes(ev.Key), val); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
			for _, tag := range ev.Tags {
				if err := txn.Set(tagPostingKey(tag, ev.Key), nil); err != nil {
					return fmt.Errorf("write tag index: %w", err)
				}
			}
		}
		if err := txn.Set(offsetKeyBytes(s.ownStream), offsetValueBytes(finalOffset)); err != nil {
			return fmt.Errorf("write offset: %w", err)
		}
		return nil
	})
	if err != nil {
		// Badger's Update runs inside a single transaction; on any error
		// nothing above was committed, so there is no partial visibility
		// to unwind (spec.md §4.1 failure semantics).
		return nil, fmt.Errorf("publish: %w", err)
	}

	s.lamport = lamport
	s.offsets = s.offsets.WithAtLeast(s.ownStream, finalOffset)

	for _, ev := range stored {
		s.subs.notify(ev)
	}

	return keys, nil
}

func offsetValueBytes(o model.Offset) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(o))
	return buf
}
