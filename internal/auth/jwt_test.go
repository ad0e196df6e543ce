// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"testing"
	"time"

	"github.com/actyx-go/actyx/internal/crypto"
	"github.com/actyx-go/actyx/internal/model"
)

func testNodeId(t *testing.T) model.NodeId {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	id, err := model.NodeIdFromPublicKey(kp.Public)
	if err != nil {
		t.Fatalf("node id: %v", err)
	}
	return id
}

func TestIssueAndValidateToken(t *testing.T) {
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	node := testNodeId(t)
	mgr, err := NewManager(secret, node)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	_, signed, err := mgr.IssueToken("com.example.app", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	appId, nodeId, err := mgr.ValidateToken(signed)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if appId != "com.example.app" {
		t.Fatalf("expected appId com.example.app, got %q", appId)
	}
	if nodeId.Compare(node) != 0 {
		t.Fatalf("expected matching node id")
	}
}

func TestValidateTokenRejectsOtherNode(t *testing.T) {
	secret, _ := GenerateSecret()
	mgr1, _ := NewManager(secret, testNodeId(t))
	mgr2, _ := NewManager(secret, testNodeId(t))

	_, signed, err := mgr1.IssueToken("com.example.app", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, _, err := mgr2.ValidateToken(signed); err == nil {
		t.Fatal("expected token from another node to be rejected")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	secret, _ := GenerateSecret()
	node := testNodeId(t)
	mgr, _ := NewManager(secret, node)

	_, signed, err := mgr.IssueToken("com.example.app", time.Nanosecond)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, _, err := mgr.ValidateToken(signed); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestNewManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewManager([]byte("too-short"), testNodeId(t)); err == nil {
		t.Fatal("expected error for short secret")
	}
}
