// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package admin

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/actyx-go/actyx/internal/auth"
	"github.com/actyx-go/actyx/internal/crypto"
)

// handshakeTimeout bounds how long a connection may sit unauthenticated
// before the server gives up on it (spec.md §4.7's general liveness
// posture applied to a channel with no other natural timeout).
const handshakeTimeout = 10 * time.Second

// nonceSize is the challenge length in bytes.
const nonceSize = 32

// handshakeResult is what a successful handshake establishes about the
// connection's caller.
type handshakeResult struct {
	PubKey       ed25519.PublicKey
	Bootstrapped bool // true if this key was just admitted under the empty-allowlist rule
}

// runHandshake performs the Ed25519 challenge-response handshake over
// conn and returns the caller's public key once admitted. It applies
// internal/auth.AdminAuthorizer's bootstrap rule: if no admin key is
// configured yet, the first successful signature is admitted and
// persisted as the authorized key.
func runHandshake(conn *websocket.Conn, keys auth.AuthorizedKeysStore, authorizer *auth.AdminAuthorizer) (handshakeResult, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return handshakeResult{}, fmt.Errorf("admin handshake: generate nonce: %w", err)
	}

	_ = conn.SetWriteDeadline(time.Now().Add(handshakeTimeout))
	if err := conn.WriteJSON(challengeMessage{Type: "challenge", Nonce: base64.StdEncoding.EncodeToString(nonce)}); err != nil {
		return handshakeResult{}, fmt.Errorf("admin handshake: write challenge: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var resp responseMessage
	if err := conn.ReadJSON(&resp); err != nil {
		return handshakeResult{}, fmt.Errorf("admin handshake: read response: %w", err)
	}
	if resp.Type != "response" {
		return handshakeResult{}, fmt.Errorf("admin handshake: expected response frame, got %q", resp.Type)
	}

	pub, err := crypto.DecodePublicKey(resp.PubKey)
	if err != nil {
		return handshakeResult{}, fmt.Errorf("admin handshake: decode public key: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(resp.Signature)
	if err != nil {
		return handshakeResult{}, fmt.Errorf("admin handshake: decode signature: %w", err)
	}
	if !crypto.Verify(pub, nonce, sig) {
		return handshakeResult{}, fmt.Errorf("admin handshake: signature does not verify against challenge")
	}

	wasEmpty := len(keys.AuthorizedKeys()) == 0
	if !authorizer.IsAuthorizedAdmin(pub) {
		return handshakeResult{}, fmt.Errorf("admin handshake: key %s is not authorized", crypto.EncodePublicKey(pub))
	}

	return handshakeResult{PubKey: pub, Bootstrapped: wasEmpty}, nil
}
