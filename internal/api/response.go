// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/actyx-go/actyx/internal/codec"
	"github.com/actyx-go/actyx/internal/logging"
)

// writeJSON marshals v with goccy/go-json (internal/codec) and writes it as
// the response body. Marshal failures at this point mean the handler built
// a value goccy/go-json cannot encode, which is a programming error, not a
// client-facing one. The body is marshaled before any header is written, so
// such a failure is logged and answered with a bare 500.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := codec.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("api: marshal response body")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// writeError writes a wireError body with the given status.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, wireError{Code: code, Message: message})
}

// writeErrFrom classifies err and writes the matching wire error.
func writeErrFrom(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err.Error())
}
