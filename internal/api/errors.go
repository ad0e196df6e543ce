// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/actyx-go/actyx/internal/aql"
	"github.com/actyx-go/actyx/internal/auth"
	"github.com/actyx-go/actyx/internal/eventstore"
)

// Wire error codes the API surfaces at the HTTP boundary (spec.md §7). The
// auth-specific codes (ERR_MISSING_AUTH_HEADER, ERR_TOKEN_INVALID,
// ERR_UNSUPPORTED_AUTH_TYPE) live in internal/auth and are written directly
// by auth.Middleware.Require; this package only ever needs the codes below.
const (
	ErrCodeBadRequest             = "ERR_BAD_REQUEST"
	ErrCodeNotFound               = "ERR_NOT_FOUND"
	ErrCodeMethodNotAllowed       = "ERR_METHOD_NOT_ALLOWED"
	ErrCodeNotAcceptable          = "ERR_NOT_ACCEPTABLE"
	ErrCodeMalformedRequestSyntax = "ERR_MALFORMED_REQUEST_SYNTAX"
	ErrCodeInternal               = "ERR_INTERNAL"
)

// wireError is the JSON shape every error response takes.
type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errReadOnly = errors.New("node is configured read-only: publish is rejected")

// classify maps a handler-level error to the (status, code) pair spec.md §7
// requires at the boundary. Unrecognized errors are treated as internal.
func classify(err error) (status int, code string) {
	var badReq *aql.BadRequestError
	var featUnavail *aql.FeatureUnavailableError
	var tooLarge *eventstore.ErrEventTooLarge
	var manifestErr *auth.ManifestError
	var notLicensed *auth.NotLicensedError
	var tokenErr *auth.TokenError

	switch {
	case errors.As(err, &badReq), errors.As(err, &featUnavail), errors.As(err, &tooLarge):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, errReadOnly):
		return http.StatusForbidden, ErrCodeBadRequest
	case errors.As(err, &manifestErr):
		return http.StatusUnauthorized, ErrCodeBadRequest
	case errors.As(err, &notLicensed):
		return http.StatusForbidden, ErrCodeBadRequest
	case errors.As(err, &tokenErr):
		return http.StatusUnauthorized, tokenErr.Code
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
