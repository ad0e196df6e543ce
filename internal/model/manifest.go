// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// AppManifest identifies an application requesting a bearer token
// (spec.md §3, AppManifest).
type AppManifest struct {
	AppId       AppId              `json:"appId"`
	DisplayName string             `json:"displayName"`
	Version     string             `json:"version"`
	Signature   *ManifestSignature `json:"signature,omitempty"`
}

// ManifestSignature is the CBOR-encoded structure chaining a manifest to
// the operator's root key through a developer certificate.
type ManifestSignature struct {
	DevPubKey    []byte   `cbor:"devPubKey" json:"devPubKey"`
	AppDomains   []string `cbor:"appDomains" json:"appDomains"`
	AxSignature  []byte   `cbor:"axSignature" json:"axSignature"`   // root sig over (DevPubKey, AppDomains)
	DevSignature []byte   `cbor:"devSignature" json:"devSignature"` // dev sig over (appId, displayName, version)
}

// DeveloperCertificate grants a developer key the right to sign manifests
// for a set of app-id domain globs (spec.md §3, DeveloperCertificate).
type DeveloperCertificate struct {
	DevPubKey   []byte   `cbor:"devPubKey"`
	AppDomains  []string `cbor:"appDomains"`
	AxSignature []byte   `cbor:"axSignature"`
}

// AppLicense is an Actyx-root-signed grant that appId may run on a node
// whose licensing configuration contains this license (spec.md §3, AppLicense).
type AppLicense struct {
	AppId     AppId     `cbor:"appId" json:"appId"`
	ExpiresAt time.Time `cbor:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `cbor:"createdAt" json:"createdAt"`
	Requester string    `cbor:"requester" json:"requester"`
	Signature []byte    `cbor:"signature" json:"signature"`
}

// Expired reports whether the license has passed its expiry at time `now`.
func (l AppLicense) Expired(now time.Time) bool {
	return !l.ExpiresAt.IsZero() && now.After(l.ExpiresAt)
}

// AuthToken is the short-lived opaque bearer credential issued to an app.
type AuthToken struct {
	AppId     AppId     `json:"appId"`
	NodeId    NodeId    `json:"nodeId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the token has passed its expiry at time `now`.
func (t AuthToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TrialAppDomain is the hard-coded domain under which an unsigned manifest
// is accepted when the node's license is in development mode
// (spec.md §3, AppManifest / §4.3 issue_token step 2).
const TrialAppDomain = "com.example.*"
