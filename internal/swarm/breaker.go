// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/actyx-go/actyx/internal/model"
)

// defaultBreakerSettings returns the per-peer circuit breaker parameters: trip
// after 5 consecutive failures, stay open 30s, then allow one trial
// request half-open.
func defaultBreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// BreakerRegistry hands out one circuit breaker per peer, guarding dial
// and fetch calls so a down peer is not retried on every gossip tick.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// NewBreakerRegistry returns an empty registry.
func NewBreakerRegistry() *BreakerRegistry {
	return &BreakerRegistry{breakers: make(map[string]*gobreaker.CircuitBreaker[any])}
}

// For returns the breaker for peer id, creating it on first use.
func (r *BreakerRegistry) For(id model.NodeId) *gobreaker.CircuitBreaker[any] {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := id.String()
	b, ok := r.breakers[key]
	if !ok {
		b = gobreaker.NewCircuitBreaker[any](defaultBreakerSettings(key))
		r.breakers[key] = b
	}
	return b
}

// States returns each known peer's current breaker state, keyed by peer
// id, for metrics export.
func (r *BreakerRegistry) States() map[string]gobreaker.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]gobreaker.State, len(r.breakers))
	for id, b := range r.breakers {
		out[id] = b.State()
	}
	return out
}

// Execute runs fn through the named peer's breaker, translating the
// breaker's own state into the same "drop this peer" outcome a failed
// PSK handshake produces.
func (r *BreakerRegistry) Execute(id model.NodeId, fn func() error) error {
	b := r.For(id)
	_, err := b.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}
