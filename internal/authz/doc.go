// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package authz provides authorization functionality using Casbin.
//
// This package implements Role-Based Access Control (RBAC) for the Admin
// channel (spec.md §4.4), enforcing per-operation access policies using
// the Casbin authorization library. It supports role inheritance,
// wildcard-object permissions, decision caching, and policy hot reload.
//
// # Architecture
//
//	Admin request -> auth.Middleware -> authz.Service -> handler
//	                      |                   |
//	                Authenticate         Authorize (Casbin)
//	              (internal/auth)        (this package)
//
// internal/auth answers "is this Ed25519 key allowed onto the Admin
// channel at all" (the bootstrap rule: the first requester is granted
// automatically). This package answers the finer question of which
// operations that key may perform once admitted: get_settings and
// inspect are reads, set_settings/unset_settings are writes, and a
// multi-operator deployment can grant a narrower "operator" role that
// reads everything but cannot manage licensing.
//
// # RBAC Model
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[role_definition]
//	g = _, _
//
//	[policy_effect]
//	e = some(where (p.eft == allow))
//
//	[matchers]
//	m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
//
// # Policy Definition
//
// Policies are embedded in policy.csv:
//
//	p, admin, admin:*, *
//	p, operator, admin:settings, read
//	p, operator, admin:settings, write
//	p, operator, admin:schema, read
//	p, operator, admin:scopes, read
//	p, operator, admin:inspect, read
//	p, operator, admin:logs, read
//	p, viewer, admin:settings, read
//	p, viewer, admin:schema, read
//	p, viewer, admin:scopes, read
//	p, viewer, admin:inspect, read
//	p, viewer, admin:logs, read
//
// Role assignments (g, subject, role) are not embedded; they are granted
// at runtime as admin identities are admitted (see Service.GrantRole and
// internal/auth.AdminAuthorizer).
//
// # Usage
//
//	enforcer, err := authz.NewEnforcer(ctx, authz.DefaultEnforcerConfig())
//	svc := authz.NewService(enforcer, authz.DefaultServiceConfig(), authz.NewAuditLog(logger))
//	err = svc.GrantRole(actor, pubkey, "admin")
//
//	allowed, err := svc.CanPerform(pubkey, "admin:settings", "write")
//
// # Thread Safety
//
// All components are safe for concurrent use: Casbin's SyncedEnforcer
// synchronizes internally, the decision cache uses a sync.RWMutex, and
// policy auto-reload (when a PolicyPath is configured) runs on its own
// goroutine.
package authz
