// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config implements the node's single Settings document: the
// JSON-schema-validated configuration tree that the Admin channel reads
// and writes (spec.md §4.6), and that the Node runtime loads at startup
// (spec.md §4.7).
//
// # Layering
//
// The initial document is assembled with koanf v2, layering three
// sources in increasing priority: built-in defaults, an optional YAML
// settings file, and environment variable overrides, down to the four
// scopes Actyx recognizes: admin, swarm, api, licensing.
//
// # Validation
//
// The merged document is validated against an embedded JSON schema
// (settings.schema.json) using gojsonschema. Validation failures are
// reported as ValidationErrors carrying a JSON Pointer path and a kind:
// wrong_type, required or additional_property. The missing_default kind
// is declared but classifyError never assigns it. Startup aborts if the initial
// load fails validation; a rejected set_settings leaves prior settings
// untouched.
//
// # Concurrency
//
// Settings are single-writer: only the Admin channel calls Set/Unset.
// Readers (Auth, Swarm, API server) call Snapshot, which returns a deep
// copy taken under the read lock, while Set/Unset replace the document
// under the write lock, so a reader never observes a document mid-update (copy-on-update, spec.md §8).
package config
