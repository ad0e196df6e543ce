// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package auth implements the Auth Service (spec.md §4.3): turning a signed
AppManifest into a short-lived AuthToken, validating that token on every
subsequent API call, and deciding whether an Ed25519 pubkey is authorized
to use the Admin channel.

Key Components:

  - Manager: issues and validates AuthTokens (HMAC-SHA256 via golang-jwt/v5)
  - VerifyManifest: walks the root-key -> developer-certificate -> manifest
    signature chain
  - Issuer: runs issue_token end to end (rate limit, manifest verification,
    the licensing check outside development mode, token issuance)
  - AdminAuthorizer: Ed25519-pubkey admin allowlist with the bootstrap rule
  - RateLimiter: per-appId token bucket guarding issue_token from abuse
  - Middleware: chi middleware extracting and validating the bearer token

Operations map directly onto spec.md §4.3:

  - issue_token(AppManifest) -> AuthToken | Error
  - validate_token(token) -> {appId, nodeId} | Error
  - is_authorized_admin(pubkey) -> bool

Token Lifecycle:

Tokens are HMAC-signed with a node-local secret generated at first startup
and never transmitted; the claims carry AppId and NodeId, and the TTL is
capped at 24h per spec.md rather than being operator-configurable
without bound.

Failure Modes:

All failures surface as the structured error codes spec.md §4.3 names:
ERR_TOKEN_INVALID, ERR_UNSUPPORTED_AUTH_TYPE, ERR_MISSING_AUTH_HEADER,
ERR_BAD_REQUEST. See errors.go.

Thread Safety:

Manager and AdminAuthorizer are safe for concurrent use; RateLimiter uses
an internal mutex-guarded map with periodic cleanup, following the
teacher's lockout-store cleanup loop (internal/auth/lockout.go).
*/
package auth
