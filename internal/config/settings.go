// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/actyx-go/actyx/internal/model"
)

// Scope names the four top-level sections of the Settings document
// (spec.md §3, Settings).
type Scope string

const (
	ScopeAdmin     Scope = "admin"
	ScopeSwarm     Scope = "swarm"
	ScopeAPI       Scope = "api"
	ScopeLicensing Scope = "licensing"
)

// AdminSettings is the admin scope: who may use the Admin channel, the
// node's display name, and per-module log levels.
type AdminSettings struct {
	DisplayName     string            `json:"displayName" koanf:"displayName"`
	AuthorizedUsers []string          `json:"authorizedUsers" koanf:"authorizedUsers"`
	LogLevels       map[string]string `json:"logLevels,omitempty" koanf:"logLevels"`
}

// SwarmSettings is the swarm scope (spec.md §4.2, §6).
type SwarmSettings struct {
	SwarmKey          string   `json:"swarmKey" koanf:"swarmKey"`
	Topic             string   `json:"topic" koanf:"topic"`
	InitialPeers      []string `json:"initialPeers,omitempty" koanf:"initialPeers"`
	AnnounceAddresses []string `json:"announceAddresses,omitempty" koanf:"announceAddresses"`
}

// APIEventsSettings controls the API server's events endpoints.
type APIEventsSettings struct {
	ReadOnly bool `json:"readOnly" koanf:"readOnly"`
}

// APISettings is the api scope.
type APISettings struct {
	Events APIEventsSettings `json:"events" koanf:"events"`
}

// NodeLicenseMode distinguishes the two forms spec.md §6 allows for
// licensing.node: the development trial mode and an operator-asserted
// node-wide override ("licensed: true" in the distilled spec).
type NodeLicenseMode string

const (
	NodeLicenseDevelopment NodeLicenseMode = "development"
	NodeLicenseOverride    NodeLicenseMode = "licensed"
)

// NodeLicense is the licensing.node value.
type NodeLicense struct {
	Mode NodeLicenseMode `json:"mode" koanf:"mode"`
}

// LicensingSettings is the licensing scope: the node's own licensing
// mode plus per-app signed grants (spec.md §3, AppLicense).
type LicensingSettings struct {
	Node NodeLicense                      `json:"node" koanf:"node"`
	Apps map[model.AppId]model.AppLicense `json:"apps,omitempty" koanf:"apps"`
}

// Document is the full Settings tree, unmarshaled from and marshaled to
// the JSON document the Admin channel exchanges (spec.md §3, Settings).
type Document struct {
	Admin     AdminSettings     `json:"admin" koanf:"admin"`
	Swarm     SwarmSettings     `json:"swarm" koanf:"swarm"`
	API       APISettings       `json:"api" koanf:"api"`
	Licensing LicensingSettings `json:"licensing" koanf:"licensing"`
}

// Store holds the live Settings document and enforces the single-writer,
// copy-on-update discipline spec.md §8 requires.
type Store struct {
	mu  sync.RWMutex
	doc Document
}

// NewStore wraps an already-validated document. Use Load to build one
// from the layered defaults/file/env sources with schema validation.
func NewStore(doc Document) *Store {
	return &Store{doc: doc}
}

// Snapshot returns a deep copy of the current document, safe to read
// without holding any lock.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDocument(s.doc)
}

// Get returns the named scope as its canonical JSON encoding
// (get_settings, spec.md §4.4).
func (s *Store) Get(scope Scope) (json.RawMessage, error) {
	doc := s.Snapshot()
	v, err := scopeValue(&doc, scope)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal scope %s: %w", scope, err)
	}
	return b, nil
}

// Set replaces the named scope with value, after validating the
// resulting whole document against the embedded schema. On a validation
// error, the store is left unchanged (set_settings, spec.md §4.4, §8).
func (s *Store) Set(scope Scope, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := cloneDocument(s.doc)
	resetScope(&candidate, scope)
	dst, err := scopeValue(&candidate, scope)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return &ValidationError{Pointer: "/" + string(scope), Kind: ValidationWrongType, Message: err.Error()}
	}
	if err := ValidateDocument(candidate); err != nil {
		return err
	}
	s.doc = candidate
	return nil
}

// Unset resets the named scope to its schema default
// (unset_settings, spec.md §4.4).
func (s *Store) Unset(scope Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidate := cloneDocument(s.doc)
	def := defaultDocument()
	defScope, err := scopeValue(&def, scope)
	if err != nil {
		return err
	}
	dst, err := scopeValue(&candidate, scope)
	if err != nil {
		return err
	}
	b, err := json.Marshal(defScope)
	if err != nil {
		return fmt.Errorf("marshal default scope %s: %w", scope, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("reset scope %s: %w", scope, err)
	}
	if err := ValidateDocument(candidate); err != nil {
		return err
	}
	s.doc = candidate
	return nil
}

// Scopes lists the recognized top-level scope names (list_scopes helper
// for the Admin channel; distinct from authz.Service.ListScopes, which
// lists RBAC permissions rather than document sections).
func Scopes() []Scope {
	return []Scope{ScopeAdmin, ScopeSwarm, ScopeAPI, ScopeLicensing}
}

// resetScope zeroes the named scope's field in place, so a subsequent
// unmarshal of caller-supplied JSON fully replaces it rather than
// merging into whatever was there before (set_settings replaces the
// scope wholesale; it is not a patch).
func resetScope(doc *Document, scope Scope) {
	switch scope {
	case ScopeAdmin:
		doc.Admin = AdminSettings{}
	case ScopeSwarm:
		doc.Swarm = SwarmSettings{}
	case ScopeAPI:
		doc.API = APISettings{}
	case ScopeLicensing:
		doc.Licensing = LicensingSettings{}
	}
}

func scopeValue(doc *Document, scope Scope) (any, error) {
	switch scope {
	case ScopeAdmin:
		return &doc.Admin, nil
	case ScopeSwarm:
		return &doc.Swarm, nil
	case ScopeAPI:
		return &doc.API, nil
	case ScopeLicensing:
		return &doc.Licensing, nil
	default:
		return nil, fmt.Errorf("unknown settings scope %q", scope)
	}
}

func cloneDocument(doc Document) Document {
	b, err := json.Marshal(doc)
	if err != nil {
		// doc was itself unmarshaled from JSON; re-marshaling cannot fail.
		panic(fmt.Sprintf("config: clone settings document: %v", err))
	}
	var out Document
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("config: clone settings document: %v", err))
	}
	return out
}

// AuthorizedKeys implements auth.AuthorizedKeysStore.
func (s *Store) AuthorizedKeys() []ed25519.PublicKey {
	doc := s.Snapshot()
	keys := make([]ed25519.PublicKey, 0, len(doc.Admin.AuthorizedUsers))
	for _, enc := range doc.Admin.AuthorizedUsers {
		pub, err := model.ParseNodeId(enc)
		if err != nil {
			continue
		}
		keys = append(keys, pub.PublicKey())
	}
	return keys
}

// AddAuthorizedKey implements auth.AuthorizedKeysStore, appending pub to
// admin.authorizedUsers and re-validating the document.
func (s *Store) AddAuthorizedKey(pub ed25519.PublicKey) error {
	id, err := model.NodeIdFromPublicKey(pub)
	if err != nil {
		return err
	}
	enc := id.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.doc.Admin.AuthorizedUsers {
		if existing == enc {
			return nil
		}
	}
	candidate := cloneDocument(s.doc)
	candidate.Admin.AuthorizedUsers = append(candidate.Admin.AuthorizedUsers, enc)
	if err := ValidateDocument(candidate); err != nil {
		return err
	}
	s.doc = candidate
	return nil
}

// DevelopmentMode implements auth.Licensing.
func (s *Store) DevelopmentMode() bool {
	doc := s.Snapshot()
	return doc.Licensing.Node.Mode == NodeLicenseDevelopment
}

// NodeWideOverride implements auth.Licensing.
func (s *Store) NodeWideOverride() bool {
	doc := s.Snapshot()
	return doc.Licensing.Node.Mode == NodeLicenseOverride
}

// Licensed implements auth.Licensing: appId is licensed if a per-app
// grant exists in licensing.apps and has not expired as of now.
func (s *Store) Licensed(appId model.AppId, now time.Time) bool {
	doc := s.Snapshot()
	lic, ok := doc.Licensing.Apps[appId]
	if !ok {
		return false
	}
	return now.Before(lic.ExpiresAt)
}
