// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authz provides a high-level authorization service layer that
// combines the Casbin enforcer with the Admin channel's bootstrap
// admission rule.
//
// Role Hierarchy:
//   - viewer: read-only access to settings, schema, scopes, inspect, logs
//   - operator: viewer plus settings writes
//   - admin: full access to every admin scope
//
// Unlike the RBAC layer this package is grounded on, role grants are not
// backed by an external database: the Admin channel has no concept of
// user accounts, only Ed25519 public keys, and the set of granted keys
// is small enough to live entirely in the Casbin grouping policy (kept
// in memory, or persisted via EnforcerConfig.PolicyPath).
package authz

import (
	"errors"
	"fmt"
	"time"

	"github.com/actyx-go/actyx/internal/logging"
)

// Scopes are the Admin channel operation groups (spec.md §4.4) that
// policies are written against.
const (
	ScopeSettings = "admin:settings"
	ScopeSchema   = "admin:schema"
	ScopeScopes   = "admin:scopes"
	ScopeInspect  = "admin:inspect"
	ScopeLogs     = "admin:logs"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// Service errors.
var (
	ErrNotAuthorized  = errors.New("not authorized")
	ErrInvalidRole    = errors.New("invalid role")
	ErrSelfRoleChange = errors.New("cannot modify own role")
)

var validRoles = map[string]bool{"viewer": true, "operator": true, "admin": true}

// ServiceConfig configures the authorization service.
type ServiceConfig struct {
	// BootstrapRole is the role granted to the first key admitted to the
	// Admin channel (internal/auth.AdminAuthorizer's bootstrap rule).
	BootstrapRole string
}

// DefaultServiceConfig returns the default configuration: the bootstrap
// admin gets the full "admin" role.
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{BootstrapRole: "admin"}
}

// Service provides the Admin channel's authorization operations on top
// of an Enforcer.
type Service struct {
	enforcer *Enforcer
	config   *ServiceConfig
	audit    *AuditLog
}

// NewService creates a new authorization service.
func NewService(enforcer *Enforcer, config *ServiceConfig, audit *AuditLog) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	return &Service{enforcer: enforcer, config: config, audit: audit}
}

// BootstrapAdmin grants subject the bootstrap role. Call this exactly
// once, when internal/auth.AdminAuthorizer.IsAuthorizedAdmin admits the
// first requester on an empty authorized-keys list.
func (s *Service) BootstrapAdmin(subject string) error {
	if _, err := s.enforcer.AddRoleForUser(subject, s.config.BootstrapRole); err != nil {
		return fmt.Errorf("bootstrap admin role: %w", err)
	}
	RecordRoleAssignment(s.config.BootstrapRole, "assign")
	logging.Info().Str("subject", subject).Str("role", s.config.BootstrapRole).Msg("bootstrapped admin role")
	return nil
}

// CanPerform checks whether subject may perform action on object,
// recording metrics and an audit event along the way.
func (s *Service) CanPerform(subject, object, action string) (bool, error) {
	start := time.Now()

	allowed, err := s.enforcer.EnforceWithExtraRoles(subject, nil, object, action)
	if err != nil {
		RecordAuthzError("enforcer_error")
		return false, err
	}

	duration := time.Since(start)
	role := s.effectiveRole(subject)
	RecordAuthzDecision(role, object, action, allowed, duration, false)
	s.audit.Record(AuditEvent{
		Subject: subject, Role: role, Object: object, Action: action,
		Decision: allowed, Duration: duration,
	})

	return allowed, nil
}

// effectiveRole returns the highest-privilege role granted to subject,
// or "" if none. Used only for metrics/audit labeling; authorization
// decisions always go through the enforcer.
func (s *Service) effectiveRole(subject string) string {
	roles, err := s.enforcer.GetRolesForUser(subject)
	if err != nil || len(roles) == 0 {
		return ""
	}
	for _, want := range []string{"admin", "operator", "viewer"} {
		for _, r := range roles {
			if r == want {
				return want
			}
		}
	}
	return roles[0]
}

// GrantRole grants role to subject. actor must already hold write access
// to admin:scopes and cannot grant or revoke its own role.
func (s *Service) GrantRole(actor, subject, role string) error {
	if !validRoles[role] {
		return ErrInvalidRole
	}
	if actor == subject {
		return ErrSelfRoleChange
	}
	allowed, err := s.enforcer.Enforce(actor, ScopeScopes, ActionWrite)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotAuthorized
	}

	if _, err := s.enforcer.AddRoleForUser(subject, role); err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	RecordRoleAssignment(role, "assign")
	logging.Info().Str("actor", actor).Str("subject", subject).Str("role", role).Msg("admin role granted")
	return nil
}

// RevokeRole revokes role from subject, under the same actor constraints as GrantRole.
func (s *Service) RevokeRole(actor, subject, role string) error {
	if actor == subject {
		return ErrSelfRoleChange
	}
	allowed, err := s.enforcer.Enforce(actor, ScopeScopes, ActionWrite)
	if err != nil {
		return err
	}
	if !allowed {
		return ErrNotAuthorized
	}

	if _, err := s.enforcer.DeleteRoleForUser(subject, role); err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	RecordRoleAssignment(role, "revoke")
	logging.Info().Str("actor", actor).Str("subject", subject).Str("role", role).Msg("admin role revoked")
	return nil
}

// ListScopes returns the scopes subject may read or write, for the
// list_scopes Admin operation (spec.md §4.4).
func (s *Service) ListScopes(subject string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, scope := range []string{ScopeSettings, ScopeSchema, ScopeScopes, ScopeInspect, ScopeLogs} {
		var actions []string
		for _, action := range []string{ActionRead, ActionWrite} {
			allowed, err := s.enforcer.EnforceWithExtraRoles(subject, nil, scope, action)
			if err != nil {
				return nil, err
			}
			if allowed {
				actions = append(actions, action)
			}
		}
		if len(actions) > 0 {
			out[scope] = actions
		}
	}
	return out, nil
}

// GetEnforcer returns the underlying Casbin enforcer for advanced use cases.
func (s *Service) GetEnforcer() *Enforcer {
	return s.enforcer
}
