// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"io"
	"net/http"
	"time"

	"github.com/actyx-go/actyx/internal/aql"
	"github.com/actyx-go/actyx/internal/auth"
	"github.com/actyx-go/actyx/internal/codec"
	"github.com/actyx-go/actyx/internal/eventstore"
	"github.com/actyx-go/actyx/internal/logging"
	"github.com/actyx-go/actyx/internal/model"
)

// mustReadBody reads the request body. A read error surfaces as an empty
// slice, which codec.Unmarshal rejects as malformed JSON, keeping callers
// from having to handle a second distinct error path for a rare I/O fault.
func mustReadBody(r *http.Request) []byte {
	b, _ := io.ReadAll(r.Body)
	return b
}

// handleAuth implements POST /api/v2/auth: exchange a signed AppManifest for
// a bearer token (spec.md §4.5 issue_token).
func (rt *Router) handleAuth(w http.ResponseWriter, r *http.Request) {
	var manifest model.AppManifest
	if err := codec.Unmarshal(mustReadBody(r), &manifest); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeMalformedRequestSyntax, err.Error())
		return
	}

	_, signed, err := rt.deps.Issuer.IssueToken(manifest)
	if err != nil {
		writeErrFrom(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: signed})
}

// handleNodeId implements GET /api/v2/node/id.
func (rt *Router) handleNodeId(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nodeIdResponse{NodeId: rt.deps.Self.String()})
}

// handleOffsets implements GET /api/v2/events/offsets. toReplicate is
// always empty: the API layer has no visibility into swarm peer offsets,
// only into this node's own store (see DESIGN.md, internal/api entry).
func (rt *Router) handleOffsets(w http.ResponseWriter, r *http.Request) {
	present, toReplicate := rt.deps.Store.Offsets(nil)
	writeJSON(w, http.StatusOK, offsetsResponse{Present: present, ToReplicate: toReplicate})
}

// handlePublish implements POST /api/v2/events/publish.
func (rt *Router) handlePublish(w http.ResponseWriter, r *http.Request) {
	if rt.readOnly() {
		writeErrFrom(w, errReadOnly)
		return
	}

	identity, _ := auth.IdentityFromContext(r.Context())

	var req publishRequest
	if err := codec.Unmarshal(mustReadBody(r), &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeMalformedRequestSyntax, err.Error())
		return
	}

	events := make([]model.UnpublishedEvent, len(req.Data))
	for i, in := range req.Data {
		events[i] = model.UnpublishedEvent{Tags: in.Tags, Payload: []byte(in.Payload)}
	}

	keys, err := rt.deps.Store.Publish(identity.AppId, events)
	if err != nil {
		writeErrFrom(w, err)
		return
	}

	writeJSON(w, http.StatusOK, publishResponse{Data: keys})
}

// readOnly reports whether api.events.readOnly is set (spec.md §6 settings).
func (rt *Router) readOnly() bool {
	if rt.deps.Settings == nil {
		return false
	}
	return rt.deps.Settings.Snapshot().API.Events.ReadOnly
}

// parseOrder maps the wire order string to an eventstore.Order.
func parseOrder(s string) (eventstore.Order, bool) {
	switch s {
	case "Asc", "":
		return eventstore.Ascending, true
	case "Desc":
		return eventstore.Descending, true
	case "StreamAsc":
		return eventstore.StreamAscending, true
	default:
		return 0, false
	}
}

// handleQuery implements POST /api/v2/events/query: a bounded, terminating
// NDJSON stream over the snapshot named by lowerBound/upperBound.
func (rt *Router) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := codec.Unmarshal(mustReadBody(r), &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeMalformedRequestSyntax, err.Error())
		return
	}
	if req.UpperBound == nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "upperBound is required")
		return
	}

	order, ok := parseOrder(req.Order)
	if !ok {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "unknown order "+req.Order)
		return
	}

	expr, err := aql.Parse(req.Query)
	if err != nil {
		writeErrFrom(w, err)
		return
	}

	ch, err := rt.deps.Store.Query(r.Context(), req.LowerBound, req.UpperBound, expr.Predicate, order)
	if err != nil {
		writeErrFrom(w, err)
		return
	}

	nw := beginNDJSON(w)
	for resp := range ch {
		if expr.To != nil && resp.Event.Key.Compare(*expr.To) >= 0 {
			continue
		}
		if err := nw.WriteFrame(eventToFrame(resp.Event, "")); err != nil {
			logging.Warn().Err(err).Msg("api: query stream write failed")
			return
		}
	}
}

// handleSubscribe implements POST /api/v2/events/subscribe: an unbounded
// NDJSON stream that runs until the client disconnects.
func (rt *Router) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := codec.Unmarshal(mustReadBody(r), &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeMalformedRequestSyntax, err.Error())
		return
	}

	expr, err := aql.Parse(req.Query)
	if err != nil {
		writeErrFrom(w, err)
		return
	}

	ch, err := rt.deps.Store.Subscribe(r.Context(), req.LowerBound, expr.Predicate)
	if err != nil {
		writeErrFrom(w, err)
		return
	}

	nw := beginNDJSON(w)
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := nw.WriteFrame(eventToFrame(ev, "")); err != nil {
				logging.Warn().Err(err).Msg("api: subscribe stream write failed")
				return
			}
		case <-ticker.C:
			if err := nw.WriteKeepAlive(); err != nil {
				return
			}
		}
	}
}

// handleSubscribeMonotonic implements POST /api/v2/events/subscribe_monotonic.
func (rt *Router) handleSubscribeMonotonic(w http.ResponseWriter, r *http.Request) {
	var req subscribeMonotonicRequest
	if err := codec.Unmarshal(mustReadBody(r), &req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeMalformedRequestSyntax, err.Error())
		return
	}

	expr, err := aql.Parse(req.Query)
	if err != nil {
		writeErrFrom(w, err)
		return
	}

	ch, err := rt.deps.Store.SubscribeMonotonic(r.Context(), req.LowerBound, expr.Predicate)
	if err != nil {
		writeErrFrom(w, err)
		return
	}

	nw := beginNDJSON(w)
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if err := nw.WriteFrame(monotonicFrameToWire(frame)); err != nil {
				logging.Warn().Err(err).Msg("api: subscribe_monotonic stream write failed")
				return
			}
		case <-ticker.C:
			if err := nw.WriteKeepAlive(); err != nil {
				return
			}
		}
	}
}

// monotonicFrameToWire converts a store-level MonotonicFrame to its NDJSON
// shape, only ever populating the fields matching frame.Kind.
func monotonicFrameToWire(frame eventstore.MonotonicFrame) eventFrame {
	switch frame.Kind {
	case eventstore.FrameOffsets:
		return eventFrame{Type: "offsets", Offsets: frame.Offsets}
	case eventstore.FrameTimeTravel:
		key := frame.NewStart
		return eventFrame{Type: "timeTravel", NewStart: &key}
	default:
		out := eventToFrame(frame.Event, "event")
		out.CaughtUp = frame.CaughtUp
		return out
	}
}

// beginNDJSON sets the streaming content type and returns a writer flushing
// after every frame (spec.md §4.5 streaming framing).
func beginNDJSON(w http.ResponseWriter) *codec.NDJSONWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(interface{ Flush() })
	return codec.NewNDJSONWriter(w, flusher)
}
