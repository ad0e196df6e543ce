// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package nodectx

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/actyx-go/actyx/internal/auth"
	"github.com/actyx-go/actyx/internal/crypto"
	"github.com/actyx-go/actyx/internal/model"
)

const (
	identityFileName = "identity.key"
	secretFileName   = "auth.secret"
	filePerm         = 0o600
)

// loadOrCreateIdentity reads the node's Ed25519 key pair from
// <dataDir>/identity.key, generating and persisting a fresh one on first
// startup. The resulting NodeId is the node's identity for the lifetime
// of its on-disk state (spec.md §3, NodeId).
func loadOrCreateIdentity(dataDir string) (crypto.KeyPair, model.NodeId, error) {
	path := filepath.Join(dataDir, identityFileName)

	if raw, err := os.ReadFile(path); err == nil {
		priv, err := crypto.DecodePrivateKey(string(raw))
		if err != nil {
			return crypto.KeyPair{}, model.NodeId{}, fmt.Errorf("decode node identity: %w", err)
		}
		pub := priv.Public().(ed25519.PublicKey)
		self, err := model.NodeIdFromPublicKey(pub)
		if err != nil {
			return crypto.KeyPair{}, model.NodeId{}, fmt.Errorf("derive node id: %w", err)
		}
		return crypto.KeyPair{Private: priv, Public: pub}, self, nil
	} else if !os.IsNotExist(err) {
		return crypto.KeyPair{}, model.NodeId{}, fmt.Errorf("read node identity: %w", err)
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return crypto.KeyPair{}, model.NodeId{}, fmt.Errorf("generate node identity: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return crypto.KeyPair{}, model.NodeId{}, fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(crypto.EncodePrivateKey(kp.Private)), filePerm); err != nil {
		return crypto.KeyPair{}, model.NodeId{}, fmt.Errorf("persist node identity: %w", err)
	}
	self, err := model.NodeIdFromPublicKey(kp.Public)
	if err != nil {
		return crypto.KeyPair{}, model.NodeId{}, fmt.Errorf("derive node id: %w", err)
	}
	return kp, self, nil
}

// loadOrCreateHMACSecret reads the Manager's HMAC secret from
// <dataDir>/auth.secret, generating and persisting a fresh one on first
// startup (internal/auth.Manager's doc comment).
func loadOrCreateHMACSecret(dataDir string) ([]byte, error) {
	path := filepath.Join(dataDir, secretFileName)

	if raw, err := os.ReadFile(path); err == nil {
		secret, err := base64.StdEncoding.DecodeString(string(raw))
		if err != nil {
			return nil, fmt.Errorf("decode auth secret: %w", err)
		}
		return secret, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read auth secret: %w", err)
	}

	secret, err := auth.GenerateSecret()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(base64.StdEncoding.EncodeToString(secret)), filePerm); err != nil {
		return nil, fmt.Errorf("persist auth secret: %w", err)
	}
	return secret, nil
}
