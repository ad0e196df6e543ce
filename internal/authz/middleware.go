// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authz provides authorization middleware for the Admin channel.
package authz

import (
	"context"
	"net/http"

	"github.com/actyx-go/actyx/internal/logging"
)

type contextKey string

// SubjectContextKey is the context key under which the Admin channel
// stores the caller's base64url Ed25519 public key once the
// challenge-response handshake (spec.md §4.4) has completed.
const SubjectContextKey contextKey = "authz_subject"

// WithSubject returns a context carrying subject for later authorization checks.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectContextKey, subject)
}

// SubjectFromContext retrieves the subject stored by WithSubject.
func SubjectFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(SubjectContextKey).(string)
	return s, ok
}

// Middleware enforces Admin channel authorization using Casbin.
type Middleware struct {
	enforcer *Enforcer
	audit    *AuditLog
}

// NewMiddleware creates a new authorization middleware.
func NewMiddleware(enforcer *Enforcer, audit *AuditLog) *Middleware {
	return &Middleware{enforcer: enforcer, audit: audit}
}

// Authorize wraps next, enforcing that the caller's subject may perform
// action on object before dispatching.
func (m *Middleware) Authorize(object, action string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject, ok := SubjectFromContext(r.Context())
		if !ok {
			http.Error(w, "forbidden: no admin authentication context", http.StatusForbidden)
			return
		}

		allowed, err := m.enforcer.EnforceWithExtraRoles(subject, nil, object, action)
		if err != nil {
			logging.Error().Err(err).Msg("admin authorization error")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		m.audit.Record(AuditEvent{Subject: subject, Object: object, Action: action, Decision: allowed})

		if !allowed {
			http.Error(w, "forbidden: insufficient permissions", http.StatusForbidden)
			return
		}

		next(w, r)
	}
}

// AuthorizeRequest determines the action from the HTTP method (GET/HEAD
// map to "read", everything else to "write") and authorizes against
// object before dispatching.
func (m *Middleware) AuthorizeRequest(object string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.Authorize(object, methodToAction(r.Method), next)(w, r)
	}
}

func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	default:
		return "write"
	}
}
