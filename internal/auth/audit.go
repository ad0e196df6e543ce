// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/model"
)

// AuditEvent is one auth-relevant occurrence: a token issuance, a
// validation failure, an admin authorization decision.
type AuditEvent struct {
	Op     string
	AppId  model.AppId
	PubKey string
	Err    error
}

// AuditLog records AuditEvents as structured log lines. A nil *AuditLog is
// valid and a no-op, so components that don't care about auditing can pass
// nil rather than constructing a discard logger.
type AuditLog struct {
	log zerolog.Logger
}

// NewAuditLog wraps a logger for auth audit events.
func NewAuditLog(log zerolog.Logger) *AuditLog {
	return &AuditLog{log: log.With().Str("component", "auth.audit").Logger()}
}

// Record logs ev at Info if it succeeded, Warn if it carries an error.
func (a *AuditLog) Record(ev AuditEvent) {
	if a == nil {
		return
	}
	var e *zerolog.Event
	if ev.Err != nil {
		e = a.log.Warn().Err(ev.Err)
	} else {
		e = a.log.Info()
	}
	e = e.Str("op", ev.Op)
	if ev.AppId != "" {
		e = e.Str("appId", string(ev.AppId))
	}
	if ev.PubKey != "" {
		e = e.Str("pubkey", ev.PubKey)
	}
	e.Msg("auth event")
}
