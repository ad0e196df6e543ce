// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// PSKKeySize is the pre-shared swarm key size nacl/secretbox requires.
const PSKKeySize = 32

// ErrHandshakeFailed is returned when a peer cannot produce a challenge
// response that decrypts under the local swarm key, meaning it does not
// hold the same pre-shared secret (spec.md §4.4: "any peer failing the
// PSK handshake is dropped").
var ErrHandshakeFailed = errors.New("swarm: PSK handshake failed")

// PSK wraps the swarm's pre-shared key and the challenge-response
// handshake gating every new connection.
type PSK struct {
	key [PSKKeySize]byte
}

// NewPSK loads a swarm key from its raw bytes (swarm.swarmKey after
// base64 decoding).
func NewPSK(key []byte) (*PSK, error) {
	if len(key) != PSKKeySize {
		return nil, fmt.Errorf("swarm: PSK must be %d bytes, got %d", PSKKeySize, len(key))
	}
	p := &PSK{}
	copy(p.key[:], key)
	return p, nil
}

// DecodePSK parses the base64 form stored in swarm.swarmKey.
func DecodePSK(encoded string) (*PSK, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("swarm: decode swarm key: %w", err)
	}
	return NewPSK(raw)
}

// GeneratePSK creates a fresh random swarm key (`ax swarms keygen`,
// spec.md §6).
func GeneratePSK() (*PSK, []byte, error) {
	raw := make([]byte, PSKKeySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, nil, fmt.Errorf("swarm: generate PSK: %w", err)
	}
	p, err := NewPSK(raw)
	return p, raw, err
}

// Challenge is a random nonce-sealed token one side sends the other to
// prove possession of the swarm key.
type Challenge struct {
	Nonce      [24]byte
	Ciphertext []byte
}

// IssueChallenge seals a fresh random plaintext under the swarm key,
// to be sent to the peer for it to open and echo back.
func (p *PSK) IssueChallenge() (Challenge, []byte, error) {
	plaintext := make([]byte, 32)
	if _, err := rand.Read(plaintext); err != nil {
		return Challenge{}, nil, fmt.Errorf("swarm: issue challenge: %w", err)
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Challenge{}, nil, fmt.Errorf("swarm: issue challenge nonce: %w", err)
	}
	sealed := secretbox.Seal(nil, plaintext, &nonce, &p.key)
	return Challenge{Nonce: nonce, Ciphertext: sealed}, plaintext, nil
}

// Open decrypts a challenge under the swarm key, returning
// ErrHandshakeFailed if the peer's key does not match (authentication
// failure, not a transport error).
func (p *PSK) Open(c Challenge) ([]byte, error) {
	plaintext, ok := secretbox.Open(nil, c.Ciphertext, &c.Nonce, &p.key)
	if !ok {
		return nil, ErrHandshakeFailed
	}
	return plaintext, nil
}

// Verify reports whether response matches the plaintext originally
// issued in a Challenge (the responder decrypted our challenge and
// echoed it back, proving it holds the same swarm key).
func Verify(issued, response []byte) bool {
	if len(issued) != len(response) {
		return false
	}
	var diff byte
	for i := range issued {
		diff |= issued[i] ^ response[i]
	}
	return diff == 0
}
