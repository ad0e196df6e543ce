// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package api implements the public HTTP API Server (spec.md §4.5): a small,
loopback-only REST surface over the event store, fronted by chi (ADR-0016
in the retrieved corpus).

Endpoints:

  - POST /api/v2/auth                        issue_token, unauthenticated
  - GET  /api/v2/node/id                      this node's NodeId, unauthenticated
  - GET  /api/v2/events/offsets                authenticated
  - POST /api/v2/events/publish                authenticated
  - POST /api/v2/events/query                  authenticated, streams NDJSON
  - POST /api/v2/events/subscribe              authenticated, streams NDJSON
  - POST /api/v2/events/subscribe_monotonic    authenticated, streams NDJSON

Every authenticated route is wrapped in auth.Middleware.Require, which
resolves the bearer token to an auth.Identity and stores it in the request
context; handlers never see the raw Authorization header.

Streaming endpoints write one codec.NDJSONWriter frame per event. query
ends once its bounded range has been written; subscribe and
subscribe_monotonic leave the connection open until the client disconnects
or the request context is canceled: exactly the suspend points described
in spec.md §5.

Usage:

	router := api.NewRouter(api.Deps{
	    Issuer:   issuer,
	    Auth:     authMiddleware,
	    Store:    store,
	    Settings: settingsStore,
	    Self:     selfNodeId,
	}, logger)
	http.ListenAndServe(bindAddr, router.SetupChi())

See Also:

  - internal/auth: token issuance and validation
  - internal/eventstore: the per-topic event log this package fronts
  - internal/aql: the tag predicate language parsed out of query bodies
  - internal/codec: NDJSON framing shared with the SDK side of the wire
*/
package api
