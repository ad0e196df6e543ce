// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/actyx-go/actyx/internal/model"
)

// Order selects how Query interleaves events across streams
// (spec.md §4.1 query()).
type Order int

const (
	Ascending Order = iota
	Descending
	StreamAscending
)

// QueryResponse is one element of a bounded query's lazy sequence.
type QueryResponse struct {
	Event model.Event
}

// Query returns every persisted event e with lower[stream] < e.offset <=
// upper[stream], for each stream upper mentions, that matches pred, in the
// requested order. The snapshot boundary is exactly `upper`: streams the
// caller gossiped in after the call started are not revisited mid-query
// (spec.md §4.1, "terminates when the snapshot is exhausted").
//
// The returned channel is closed when the snapshot is exhausted or ctx is
// canceled; the caller must drain it (or cancel ctx) to avoid leaking the
// goroutine.
func (s *Store) Query(ctx context.Context, lower, upper model.OffsetMap, pred model.Predicate, order Order) (<-chan QueryResponse, error) {
	if upper == nil {
		return nil, fmt.Errorf("query: upper bound is required")
	}

	events, err := s.scanRange(lower, upper, pred)
	if err != nil {
		return nil, err
	}

	switch order {
	case Ascending:
		sort.Slice(events, func(i, j int) bool { return events[i].Key.Less(events[j].Key) })
	case Descending:
		sort.Slice(events, func(i, j int) bool { return events[j].Key.Less(events[i].Key) })
	case StreamAscending:
		sort.Slice(events, func(i, j int) bool {
			a, b := events[i], events[j]
			if c := a.Key.Stream.Compare(b.Key.Stream); c != 0 {
				return c < 0
			}
			return a.Key.Offset < b.Key.Offset
		})
	default:
		return nil, fmt.Errorf("query: unknown order %d", order)
	}

	out := make(chan QueryResponse)
	go func() {
		defer close(out)
		for _, ev := range events {
			select {
			case <-ctx.Done():
				return
			case out <- QueryResponse{Event: ev}:
			}
		}
	}()
	return out, nil
}

// scanRange reads, for every stream named in upper, the events in
// (lower[stream], upper[stream]] whose tags satisfy pred. It reads
// directly from the per-stream log (not the tag index) since upper already
// bounds the scan tightly per stream; the tag index exists chiefly to
// support future predicate-driven pruning across the whole log without a
// bounding offset map, e.g. a subscribe() backlog drain from offset 0.
func (s *Store) scanRange(lower, upper model.OffsetMap, pred model.Predicate) ([]model.Event, error) {
	var out []model.Event
	err := s.db.View(func(txn *badger.Txn) error {
		for stream, up := range upper {
			lo := lower.Get(stream)
			if up <= lo {
				continue
			}
			prefix := streamEventPrefix(stream)
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				var ev model.Event
				err := item.Value(func(v []byte) error {
					decoded, err := decodeEvent(v)
					if err != nil {
						return err
					}
					ev = decoded
					return nil
				})
				if err != nil {
					it.Close()
					return fmt.Errorf("scan stream %s: %w", stream, err)
				}
				off := offsetFromEventKey(item.Key(), stream)
				if off <= lo || off > up {
					continue
				}
				ev.Key.Stream = stream
				ev.Key.Offset = off
				if pred.Match(ev.Tags) {
					out = append(out, ev)
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// offsetFromEventKey recovers the trailing big-endian Offset from an
// event: key, given the stream prefix that precedes it.
func offsetFromEventKey(key []byte, stream model.StreamId) model.Offset {
	prefix := streamEventPrefix(stream)
	rest := key[len(prefix):]
	var v uint64
	for _, b := range rest {
		v = v<<8 | uint64(b)
	}
	return model.Offset(v)
}
