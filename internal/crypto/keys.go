// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package crypto wraps the Ed25519 primitives used throughout Actyx: key
// generation, signing, verification, and the canonical base64 encoding used
// for NodeIds and public keys on the wire. There is no ecosystem library in
// the retrieved corpus that does plain Ed25519 sign/verify better than the
// standard library's crypto/ed25519 (x/crypto's copy is a thin historical
// fork kept for API compatibility); this package is stdlib by necessity,
// not by default.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// KeyPair holds a private/public Ed25519 key pair used to sign streams a
// node produces, or to authenticate a developer/admin identity.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// GenerateKeyPair creates a fresh Ed25519 key pair using a CSPRNG.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate ed25519 key: %w", err)
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

// Sign produces a detached Ed25519 signature over msg.
func (k KeyPair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.Private, msg)
}

// Verify checks a detached Ed25519 signature against a public key.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, msg, sig)
}

// EncodePublicKey renders a public key in canonical unpadded URL-safe base64.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base64.RawURLEncoding.EncodeToString(pub)
}

// DecodePublicKey parses the canonical base64 form back into a public key.
func DecodePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("decode public key: expected %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// EncodePrivateKey renders a private key in canonical unpadded URL-safe base64.
// Private keys never leave the machine that generated them except through
// ax-cert's out-of-band artifacts (spec.md §3, lifecycle).
func EncodePrivateKey(priv ed25519.PrivateKey) string {
	return base64.RawURLEncoding.EncodeToString(priv)
}

// DecodePrivateKey parses the canonical base64 form back into a private key.
func DecodePrivateKey(s string) (ed25519.PrivateKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("decode private key: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return ed25519.PrivateKey(raw), nil
}
