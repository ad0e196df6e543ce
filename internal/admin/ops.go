// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package admin

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/actyx-go/actyx/internal/authz"
	"github.com/actyx-go/actyx/internal/config"
	"github.com/actyx-go/actyx/internal/swarm"
)

// errUnknownOp is returned for a request naming an operation outside the
// set the Admin channel supports (spec.md §4.4).
var errUnknownOp = errors.New("admin: unknown operation")

// scopeFor maps a request's settings scope string to a config.Scope,
// defaulting nothing: callers must name one of the four scopes.
func scopeFor(s string) (config.Scope, error) {
	for _, sc := range config.Scopes() {
		if string(sc) == s {
			return sc, nil
		}
	}
	return "", fmt.Errorf("admin: unknown settings scope %q", s)
}

// authzScopeFor maps a request's Op to the authz scope/action pair it is
// gated behind (spec.md §4.4's read/write split per operation group).
func authzScopeFor(op string) (object, action string, ok bool) {
	switch op {
	case "get_settings":
		return authz.ScopeSettings, authz.ActionRead, true
	case "set_settings", "unset_settings":
		return authz.ScopeSettings, authz.ActionWrite, true
	case "get_schema":
		return authz.ScopeSchema, authz.ActionRead, true
	case "list_scopes":
		return authz.ScopeScopes, authz.ActionRead, true
	case "inspect":
		return authz.ScopeInspect, authz.ActionRead, true
	case "logs_tail":
		return authz.ScopeLogs, authz.ActionRead, true
	default:
		return "", "", false
	}
}

// dispatch authorizes and executes one request, always returning a
// response frame rather than an error: every failure, including a
// denied authorization check, is reported to the caller as
// response.Error rather than closing the connection.
func (s *Server) dispatch(subject string, req request) response {
	object, action, ok := authzScopeFor(req.Op)
	if !ok {
		return errResponse(req.Op, errUnknownOp)
	}

	allowed, err := s.authzSvc.CanPerform(subject, object, action)
	if err != nil {
		return errResponse(req.Op, err)
	}
	if !allowed {
		return errResponse(req.Op, authz.ErrNotAuthorized)
	}

	switch req.Op {
	case "get_settings":
		return s.opGetSettings(req)
	case "set_settings":
		return s.opSetSettings(req)
	case "unset_settings":
		return s.opUnsetSettings(req)
	case "get_schema":
		return s.opGetSchema(req)
	case "list_scopes":
		return s.opListScopes(req, subject)
	case "inspect":
		return s.opInspect(req)
	default:
		// logs_tail is handled by the caller before dispatch, since it
		// switches the connection into a push loop instead of a single
		// request/response exchange.
		return errResponse(req.Op, errUnknownOp)
	}
}

func (s *Server) opGetSettings(req request) response {
	scope, err := scopeFor(req.Scope)
	if err != nil {
		return errResponse(req.Op, err)
	}
	data, err := s.settings.Get(scope)
	if err != nil {
		return errResponse(req.Op, err)
	}
	return response{Op: req.Op, Ok: true, Data: data}
}

func (s *Server) opSetSettings(req request) response {
	scope, err := scopeFor(req.Scope)
	if err != nil {
		return errResponse(req.Op, err)
	}
	if err := s.settings.Set(scope, req.Value); err != nil {
		return errResponse(req.Op, err)
	}
	return response{Op: req.Op, Ok: true}
}

func (s *Server) opUnsetSettings(req request) response {
	scope, err := scopeFor(req.Scope)
	if err != nil {
		return errResponse(req.Op, err)
	}
	if err := s.settings.Unset(scope); err != nil {
		return errResponse(req.Op, err)
	}
	return response{Op: req.Op, Ok: true}
}

func (s *Server) opGetSchema(req request) response {
	scope, err := scopeFor(req.Scope)
	if err != nil {
		return errResponse(req.Op, err)
	}
	data, err := config.Schema(scope)
	if err != nil {
		return errResponse(req.Op, err)
	}
	return response{Op: req.Op, Ok: true, Data: data}
}

func (s *Server) opListScopes(req request, subject string) response {
	scopes, err := s.authzSvc.ListScopes(subject)
	if err != nil {
		return errResponse(req.Op, err)
	}
	data, err := json.Marshal(scopes)
	if err != nil {
		return errResponse(req.Op, err)
	}
	return response{Op: req.Op, Ok: true, Data: data}
}

func (s *Server) opInspect(req request) response {
	var info swarm.Info
	if s.swarm != nil {
		info = s.swarm.Inspect()
	}
	data, err := json.Marshal(info)
	if err != nil {
		return errResponse(req.Op, err)
	}
	return response{Op: req.Op, Ok: true, Data: data}
}

// errResponse packages err as a response, translating a
// *config.ValidationError into its wire shape so set_settings/
// unset_settings callers can see the offending JSON Pointer and kind
// (spec.md §4.6).
func errResponse(op string, err error) response {
	var verr *config.ValidationError
	if errors.As(err, &verr) {
		return response{Op: op, Ok: false, Error: &wireValidation{
			Pointer: verr.Pointer,
			Kind:    string(verr.Kind),
			Message: verr.Message,
		}}
	}
	return response{Op: op, Ok: false, Error: &wireValidation{Message: err.Error()}}
}
