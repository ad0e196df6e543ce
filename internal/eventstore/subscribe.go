// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventstore

import (
	"context"
	"sort"

	"github.com/actyx-go/actyx/internal/model"
)

// Subscribe drains the backlog from lower up to the OffsetMap observed at
// call time (in StreamAscending order), then switches to live mode and
// forwards new matching events as they arrive, preserving per-stream order
// (spec.md §4.1 subscribe()). It never terminates on its own; the caller
// cancels ctx to stop it. The returned channel is closed once cleanup
// completes after cancellation.
func (s *Store) Subscribe(ctx context.Context, lower model.OffsetMap, pred model.Predicate) (<-chan model.Event, error) {
	handle, live := s.subs.register(pred)

	snapshot, _ := s.Offsets(nil)
	backlog, err := s.scanRange(lower, snapshot, pred)
	if err != nil {
		s.subs.unregister(handle)
		return nil, err
	}
	sortStreamAscending(backlog)

	out := make(chan model.Event)
	go func() {
		defer close(out)
		defer s.subs.unregister(handle)

		for _, ev := range backlog {
			select {
			case <-ctx.Done():
				return
			case out <- ev:
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-live:
				if !ok {
					return
				}
				// The snapshot already delivered everything up to and
				// including this offset for this stream; skip to avoid a
				// duplicate delivery across the backlog/live seam.
				if ev.Key.Offset <= snapshot.Get(ev.Key.Stream) {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case out <- ev:
				}
			}
		}
	}()
	return out, nil
}

// MonotonicFrameKind tags the variant carried by a MonotonicFrame, replacing
// the sum-type subscribe_monotonic produces in the original design
// (spec.md §4.1: one of Event/Offsets/TimeTravel).
type MonotonicFrameKind int

const (
	FrameEvent MonotonicFrameKind = iota
	FrameOffsets
	FrameTimeTravel
)

// MonotonicFrame is one element of a subscribe_monotonic sequence. Only the
// field matching Kind is populated.
type MonotonicFrame struct {
	Kind      MonotonicFrameKind
	Event     model.Event
	CaughtUp  bool
	Offsets   model.OffsetMap
	NewStart  model.EventKey
}

// SubscribeMonotonic behaves like Subscribe but tracks, per call, the
// highest EventKey delivered. If a later-ingested event would be delivered
// out of canonical order relative to that high-water mark, it emits
// FrameTimeTravel carrying the offending key instead of the event itself;
// the caller is expected to discard derived state and restart the
// subscription from that key via a fresh call with lower=NewStart's offset
// map (spec.md §4.1 subscribe_monotonic()).
func (s *Store) SubscribeMonotonic(ctx context.Context, startFrom model.OffsetMap, pred model.Predicate) (<-chan MonotonicFrame, error) {
	handle, live := s.subs.register(pred)

	snapshot, _ := s.Offsets(nil)
	backlog, err := s.scanRange(startFrom, snapshot, pred)
	if err != nil {
		s.subs.unregister(handle)
		return nil, err
	}
	sortStreamAscending(backlog)

	out := make(chan MonotonicFrame)
	go func() {
		defer close(out)
		defer s.subs.unregister(handle)

		var highWater model.EventKey
		delivered := startFrom.Clone()
		hasHighWater := false

		emit := func(ev model.Event, caughtUp bool) bool {
			if hasHighWater && ev.Key.Less(highWater) {
				select {
				case <-ctx.Done():
					return false
				case out <- MonotonicFrame{Kind: FrameTimeTravel, NewStart: ev.Key}:
				}
				return true
			}
			highWater = ev.Key
			hasHighWater = true
			delivered = delivered.WithAtLeast(ev.Key.Stream, ev.Key.Offset)
			select {
			case <-ctx.Done():
				return false
			case out <- MonotonicFrame{Kind: FrameEvent, Event: ev, CaughtUp: caughtUp}:
			}
			return true
		}

		for _, ev := range backlog {
			if !emit(ev, false) {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case out <- MonotonicFrame{Kind: FrameOffsets, Offsets: delivered.Clone()}:
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-live:
				if !ok {
					return
				}
				if ev.Key.Offset <= snapshot.Get(ev.Key.Stream) {
					continue
				}
				if !emit(ev, true) {
					return
				}
			}
		}
	}()
	return out, nil
}

func sortStreamAscending(events []model.Event) {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if c := a.Key.Stream.Compare(b.Key.Stream); c != 0 {
			return c < 0
		}
		return a.Key.Offset < b.Key.Offset
	})
}
