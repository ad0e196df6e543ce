// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, time.Minute)
	if !rl.Allow("app") {
		t.Fatal("expected first call to be allowed")
	}
	if !rl.Allow("app") {
		t.Fatal("expected second call within burst to be allowed")
	}
	if rl.Allow("app") {
		t.Fatal("expected third call to exceed burst and be denied")
	}
}

func TestRateLimiterTracksSubjectsIndependently(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, time.Minute)
	if !rl.Allow("a") || !rl.Allow("b") {
		t.Fatal("expected independent buckets per subject")
	}
}

func TestRateLimiterCleanupEvictsIdleSubjects(t *testing.T) {
	rl := NewRateLimiter(1, 1, time.Millisecond)
	rl.Allow("app")
	time.Sleep(5 * time.Millisecond)
	rl.Cleanup()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.limiters["app"]; ok {
		t.Fatal("expected idle subject to be evicted")
	}
}
