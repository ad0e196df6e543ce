// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventstore

import (
	"sync"

	"github.com/actyx-go/actyx/internal/model"
)

// subscriberHandle is a stable index into the subscriber arena. Re-express
// of the cyclic-subscriber-reference problem flagged in the design notes:
// instead of a query holding a direct reference into the registry (and the
// registry holding one back), both sides hold only this integer, and a
// lookup through the arena resolves it. Removal simply zeroes the slot,
// so no other subscriber's handle is invalidated.
type subscriberHandle uint64

type subscriberEntry struct {
	pred model.Predicate
	ch   chan model.Event
}

// subscriberArena owns every live subscription for a Store. On append,
// every entry's predicate is asked to Match the new event's tags.
type subscriberArena struct {
	mu      sync.RWMutex
	entries map[subscriberHandle]subscriberEntry
	next    subscriberHandle
}

func newSubscriberArena() *subscriberArena {
	return &subscriberArena{entries: make(map[subscriberHandle]subscriberEntry)}
}

// register creates a new subscription and returns its handle and delivery
// channel. The channel is buffered so a slow subscriber cannot stall
// Publish/Ingest; instead it drops and the subscriber's own backlog replay
// logic in subscribe.go is responsible for not losing events durably (only
// the live-mode notification may be coalesced away).
func (a *subscriberArena) register(pred model.Predicate) (subscriberHandle, <-chan model.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.next
	a.next++
	ch := make(chan model.Event, 256)
	a.entries[h] = subscriberEntry{pred: pred, ch: ch}
	return h, ch
}

// unregister removes a subscription. Safe to call more than once.
func (a *subscriberArena) unregister(h subscriberHandle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entries[h]; ok {
		close(e.ch)
		delete(a.entries, h)
	}
}

// notify offers ev to every subscriber whose predicate matches. A full
// channel drops the event for that subscriber rather than blocking the
// publisher; subscribe_monotonic sessions detect the resulting gap as a
// TimeTravel and resynchronize from their own high-water mark.
func (a *subscriberArena) notify(ev model.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, e := range a.entries {
		if !e.pred.Match(ev.Tags) {
			continue
		}
		select {
		case e.ch <- ev:
		default:
		}
	}
}
