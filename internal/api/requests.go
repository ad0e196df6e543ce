// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"

	"github.com/actyx-go/actyx/internal/model"
)

// authResponse is the body of POST /api/v2/auth (spec.md §4.5).
type authResponse struct {
	Token string `json:"token"`
}

// nodeIdResponse is the body of GET /api/v2/node/id.
type nodeIdResponse struct {
	NodeId string `json:"nodeId"`
}

// offsetsResponse is the body of GET /api/v2/events/offsets. OffsetMap and
// the toReplicate map both key on model.StreamId, which marshals through
// its MarshalText as the "<nodeId>.<nr>" canonical form.
type offsetsResponse struct {
	Present     model.OffsetMap           `json:"present"`
	ToReplicate map[model.StreamId]uint64 `json:"toReplicate"`
}

// publishEventInput is one element of publishRequest.Data. Payload is kept
// as a raw JSON value rather than decoded into a Go value: the event store
// treats the payload as an opaque blob, so the exact bytes the caller sent
// are what gets persisted and later replayed, with no reserialization in
// between.
type publishEventInput struct {
	Tags    []string        `json:"tags"`
	Payload json.RawMessage `json:"payload"`
}

// publishRequest is the body of POST /api/v2/events/publish.
type publishRequest struct {
	Data []publishEventInput `json:"data"`
}

// publishResponse is the body of POST /api/v2/events/publish.
type publishResponse struct {
	Data []model.EventKey `json:"data"`
}

// queryRequest is the body of POST /api/v2/events/query.
type queryRequest struct {
	LowerBound model.OffsetMap `json:"lowerBound,omitempty"`
	UpperBound model.OffsetMap `json:"upperBound"`
	Query      string          `json:"query"`
	Order      string          `json:"order"`
}

// subscribeRequest is the body of POST /api/v2/events/subscribe.
type subscribeRequest struct {
	LowerBound model.OffsetMap `json:"lowerBound,omitempty"`
	Query      string          `json:"query"`
}

// subscribeMonotonicRequest is the body of
// POST /api/v2/events/subscribe_monotonic. Session identifies the caller's
// subscription across reconnects after a TimeTravel frame but is not
// otherwise interpreted by the store; it exists for client-side bookkeeping
// (spec.md §4.5).
type subscribeMonotonicRequest struct {
	Session    string          `json:"session"`
	LowerBound model.OffsetMap `json:"lowerBound,omitempty"`
	Query      string          `json:"query"`
}

// eventFrame is the single NDJSON frame shape streamed by query, subscribe,
// and subscribe_monotonic. query and subscribe always emit the event
// fields with Type left empty; subscribe_monotonic additionally sets Type
// to "event", "offsets", or "timeTravel" (spec.md §4.5) and populates only
// the fields relevant to that variant.
type eventFrame struct {
	Type      string          `json:"type,omitempty"`
	Lamport   uint64          `json:"lamport,omitempty"`
	Stream    string          `json:"stream,omitempty"`
	Offset    uint64          `json:"offset,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	AppId     string          `json:"appId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CaughtUp  bool            `json:"caughtUp,omitempty"`
	Offsets   model.OffsetMap `json:"offsets,omitempty"`
	NewStart  *model.EventKey `json:"newStart,omitempty"`
}

// eventToFrame converts a stored event into its wire frame. typ is "" for
// the plain query/subscribe endpoints and "event" for subscribe_monotonic.
func eventToFrame(ev model.Event, typ string) eventFrame {
	return eventFrame{
		Type:      typ,
		Lamport:   uint64(ev.Key.Lamport),
		Stream:    ev.Key.Stream.String(),
		Offset:    uint64(ev.Key.Offset),
		Timestamp: ev.Timestamp,
		Tags:      []string(ev.Tags),
		AppId:     string(ev.AppId),
		Payload:   json.RawMessage(ev.Payload),
	}
}
