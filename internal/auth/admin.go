// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/ed25519"
	"sync"

	"github.com/actyx-go/actyx/internal/crypto"
)

// AuthorizedKeysStore is the settings-backed persistence for
// admin.authorizedUsers. internal/config implements this.
type AuthorizedKeysStore interface {
	AuthorizedKeys() []ed25519.PublicKey
	AddAuthorizedKey(pub ed25519.PublicKey) error
}

// AdminAuthorizer implements is_authorized_admin (spec.md §4.3), including
// the bootstrap rule: when the authorized-key list is empty, the first
// admin request's key is added automatically rather than rejected.
type AdminAuthorizer struct {
	mu    sync.Mutex
	store AuthorizedKeysStore
	audit *AuditLog
}

// NewAdminAuthorizer wraps the settings-backed authorized-key list.
func NewAdminAuthorizer(store AuthorizedKeysStore, audit *AuditLog) *AdminAuthorizer {
	return &AdminAuthorizer{store: store, audit: audit}
}

// IsAuthorizedAdmin reports whether pubkey may use the Admin channel,
// applying the bootstrap rule on an empty allowlist.
func (a *AdminAuthorizer) IsAuthorizedAdmin(pubkey ed25519.PublicKey) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	keys := a.store.AuthorizedKeys()
	if len(keys) == 0 {
		if err := a.store.AddAuthorizedKey(pubkey); err != nil {
			a.audit.Record(AuditEvent{Op: "is_authorized_admin", PubKey: crypto.EncodePublicKey(pubkey), Err: err})
			RecordAdminAuthDecision("denied")
			return false
		}
		a.audit.Record(AuditEvent{Op: "is_authorized_admin", PubKey: crypto.EncodePublicKey(pubkey)})
		RecordAdminAuthDecision("bootstrapped")
		return true
	}

	for _, k := range keys {
		if ed25519Equal(k, pubkey) {
			RecordAdminAuthDecision("authorized")
			return true
		}
	}
	RecordAdminAuthDecision("denied")
	return false
}

func ed25519Equal(a, b ed25519.PublicKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
