// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/actyx-go/actyx/internal/model"
)

// MaxTokenTTL is the hard ceiling on AuthToken lifetime (spec.md §4.3,
// issue_token step 5: "TTL implementation-defined but <= 24h").
const MaxTokenTTL = 24 * time.Hour

// DefaultTokenTTL is the TTL issue_token uses unless a caller overrides it
// with something shorter.
const DefaultTokenTTL = time.Hour

// Claims carries the identity an AuthToken authenticates: the app that was
// granted it and the node that issued it. validate_token rejects any token
// whose NodeId claim does not match the validating node (spec.md §4.3,
// "tokens from other nodes are rejected").
type Claims struct {
	AppId  string `json:"appId"`
	NodeId string `json:"nodeId"`
	jwt.RegisteredClaims
}

// Manager issues and validates AuthTokens using a node-local HMAC secret.
// The secret is generated once at first startup and persisted alongside
// the node's identity key on local disk; it never leaves the node. Tokens
// are signed with HMAC-SHA256 (HS256).
type Manager struct {
	secret []byte
	nodeId model.NodeId
}

// NewManager creates a Manager bound to this node's identity and HMAC
// secret. secret must be at least 32 bytes; shorter secrets make HS256
// brute-forceable.
func NewManager(secret []byte, nodeId model.NodeId) (*Manager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("auth: hmac secret must be at least 32 bytes, got %d", len(secret))
	}
	return &Manager{secret: secret, nodeId: nodeId}, nil
}

// GenerateSecret produces a fresh 32-byte HMAC secret for first-time node
// initialization.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("auth: generate hmac secret: %w", err)
	}
	return secret, nil
}

// IssueToken signs a new AuthToken for appId with the given TTL (a
// non-positive TTL, or one above MaxTokenTTL, is replaced by
// DefaultTokenTTL). This is the last step of issue_token (spec.md §4.3 step
// 5), called once manifest verification and licensing have both passed.
func (m *Manager) IssueToken(appId model.AppId, ttl time.Duration) (model.AuthToken, string, error) {
	if ttl <= 0 || ttl > MaxTokenTTL {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		AppId:  string(appId),
		NodeId: m.nodeId.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return model.AuthToken{}, "", fmt.Errorf("auth: sign token: %w", err)
	}

	return model.AuthToken{
		AppId:     appId,
		NodeId:    m.nodeId,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, signed, nil
}

// ValidateToken verifies signature, algorithm, expiry, and node binding,
// returning the carried {appId, nodeId} on success (spec.md §4.3
// validate_token()).
func (m *Manager) ValidateToken(tokenString string) (appId model.AppId, nodeId model.NodeId, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", model.NodeId{}, &TokenError{Code: ErrCodeTokenInvalid, Cause: err}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", model.NodeId{}, &TokenError{Code: ErrCodeTokenInvalid, Cause: fmt.Errorf("invalid token claims")}
	}

	tokenNode, err := model.ParseNodeId(claims.NodeId)
	if err != nil {
		return "", model.NodeId{}, &TokenError{Code: ErrCodeTokenInvalid, Cause: fmt.Errorf("invalid node id claim: %w", err)}
	}
	if tokenNode.Compare(m.nodeId) != 0 {
		return "", model.NodeId{}, &TokenError{Code: ErrCodeTokenInvalid, Cause: fmt.Errorf("token was issued by a different node")}
	}

	return model.AppId(claims.AppId), tokenNode, nil
}
