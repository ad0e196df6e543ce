// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package eventstore is the durable heart of a node: publish, ingest,
// bounded query, and the two flavors of live subscription described in
// spec.md §4.1. See store.go for the on-disk layout and subscribers.go for
// the arena-of-handles pattern used to avoid cyclic subscriber references.
package eventstore
