// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package admin implements the Admin channel (spec.md §4.6): a separate,
authenticated WebSocket server (default port 4458) used by the CLI and
Node Manager to read and write node settings, inspect swarm state, and
tail logs.

A connection opens with an Ed25519 challenge-response handshake
(handshake.go): the server sends a random nonce, the client signs it
with its admin key, and internal/auth.AdminAuthorizer.IsAuthorizedAdmin
decides admission, applying the bootstrap rule on an empty allowlist.
Once admitted, the connection's subject (the caller's base64url public
key) is fixed for its lifetime and every subsequent operation is
authorized through internal/authz.Service before it touches settings.

After the handshake the connection exchanges newline-delimited JSON-RPC
style requests (ops.go): get_settings, set_settings, unset_settings,
get_schema, list_scopes, inspect, and logs_tail. logs_tail additionally
switches the connection into a one-way push mode (logtail.go) once
accepted, streaming subsequent log lines until the client disconnects.

See Also:

  - internal/auth: AdminAuthorizer and the bootstrap admission rule
  - internal/authz: the Casbin-backed role/permission layer
  - internal/config: the Settings document operations read and write
  - internal/swarm: the peer/address state inspect() reports
*/
package admin
