// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventstore

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/actyx-go/actyx/internal/model"
)

// Ingest records events received from a peer over the swarm layer. Events
// are assumed already validated (signed stream, correctly ordered offsets)
// by the caller; Ingest's job is durability and Lamport-clock advancement.
// Events whose offset is already present are skipped, making re-delivery
// from an overlapping catch-up chunk harmless.
func (s *Store) Ingest(events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[model.StreamId]model.Offset)
	var maxSeen model.Lamport
	fresh := make([]model.Event, 0, len(events))

	for _, ev := range events {
		have := s.offsets.Get(ev.Key.Stream)
		if ev.Key.Offset <= have {
			continue // already ingested
		}
		fresh = append(fresh, ev)
		if ev.Key.Lamport > maxSeen {
			maxSeen = ev.Key.Lamport
		}
		if cur, ok := touched[ev.Key.Stream]; !ok || ev.Key.Offset > cur {
			touched[ev.Key.Stream] = ev.Key.Offset
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, ev := range fresh {
			val, err := encodeEvent(ev)
			if err != nil {
				return fmt.Errorf("encode ingested event: %w", err)
			}
			if err := txn.Set(eventKeyBytes(ev.Key), val); err != nil {
				return fmt.Errorf("write ingested event: %w", err)
			}
			for _, tag := range ev.Tags {
				if err := txn.Set(tagPostingKey(tag, ev.Key), nil); err != nil {
					return fmt.Errorf("write tag index: %w", err)
				}
			}
		}
		for stream, off := range touched {
			if err := txn.Set(offsetKeyBytes(stream), offsetValueBytes(off)); err != nil {
				return fmt.Errorf("write offset: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	for stream, off := range touched {
		s.offsets = s.offsets.WithAtLeast(stream, off)
	}
	if maxSeen > s.lamport {
		s.lamport = maxSeen
	}

	for _, ev := range fresh {
		s.subs.notify(ev)
	}
	return nil
}
