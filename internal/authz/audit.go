// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authz provides authorization decision audit logging for
// security monitoring and forensic analysis of the Admin channel.
package authz

import (
	"time"

	"github.com/rs/zerolog"
)

// AuditEvent represents one Admin channel authorization decision.
type AuditEvent struct {
	Subject  string // base64url Ed25519 public key
	Role     string // effective role used for the decision
	Object   string // admin scope, e.g. "admin:settings"
	Action   string // "read" or "write"
	Decision bool
	Reason   string
	Duration time.Duration
	CacheHit bool
}

// AuditLog records authorization decisions through zerolog. A nil
// *AuditLog is valid and silently drops events, matching
// internal/auth.AuditLog's nil-receiver contract so callers never have
// to branch on whether auditing is configured.
type AuditLog struct {
	log zerolog.Logger
}

// NewAuditLog wraps log for authorization audit events.
func NewAuditLog(log zerolog.Logger) *AuditLog {
	return &AuditLog{log: log}
}

// Record logs ev. Denials are logged at Warn for visibility; allows at Info.
func (a *AuditLog) Record(ev AuditEvent) {
	if a == nil {
		return
	}

	var e *zerolog.Event
	if ev.Decision {
		e = a.log.Info()
	} else {
		e = a.log.Warn()
	}
	e = e.Str("subject", ev.Subject).
		Str("role", ev.Role).
		Str("object", ev.Object).
		Str("action", ev.Action).
		Bool("decision", ev.Decision).
		Dur("duration", ev.Duration).
		Bool("cache_hit", ev.CacheHit)
	if ev.Reason != "" {
		e = e.Str("reason", ev.Reason)
	}
	if ev.Decision {
		e.Msg("admin authorization allowed")
	} else {
		e.Msg("admin authorization denied")
	}
}
