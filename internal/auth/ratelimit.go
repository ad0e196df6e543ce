// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var errRateLimited = errors.New("token issuance rate limit exceeded for this app id")

// RateLimiter caps how often a single appId may call issue_token, one
// token-bucket limiter per subject, using golang.org/x/time/rate in
// place of attempt-counting lockout tracking: issue_token has no
// "failed password attempt" concept to count, but the same per-subject
// bucket + periodic cleanup shape applies directly.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rps      rate.Limit
	burst    int
	idleTTL  time.Duration
}

type entry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// NewRateLimiter creates a limiter allowing `burst` immediate calls per
// subject, refilling at `rps` per second. idleTTL controls how long an
// unused subject's bucket is retained before Cleanup removes it.
func NewRateLimiter(rps float64, burst int, idleTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*entry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
	}
}

// Allow reports whether subject may proceed now, consuming one token from
// its bucket if so.
func (l *RateLimiter) Allow(subject string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.limiters[subject]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[subject] = e
	}
	e.lastUse = time.Now()
	return e.limiter.Allow()
}

// Cleanup evicts buckets idle longer than idleTTL. Callers run this
// periodically (e.g. from a ticker in the node runtime) to bound memory.
func (l *RateLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-l.idleTTL)
	for subject, e := range l.limiters {
		if e.lastUse.Before(cutoff) {
			delete(l.limiters, subject)
		}
	}
}
