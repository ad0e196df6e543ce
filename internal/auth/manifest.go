// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/ed25519"
	"fmt"
	"regexp"

	"github.com/actyx-go/actyx/internal/codec"
	"github.com/actyx-go/actyx/internal/crypto"
	"github.com/actyx-go/actyx/internal/model"
)

// appIdPattern enforces the "lowercase, reverse-DNS" shape spec.md §4.3
// step 1 requires: dot-separated lowercase alphanumeric/hyphen labels.
var appIdPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

// ValidAppId reports whether appId has the required reverse-DNS shape.
func ValidAppId(appId model.AppId) bool {
	return appIdPattern.MatchString(string(appId))
}

// devSignedPayload is the canonical CBOR payload the developer signs with
// their certificate key: (appId, displayName, version).
type devSignedPayload struct {
	AppId       string `cbor:"appId"`
	DisplayName string `cbor:"displayName"`
	Version     string `cbor:"version"`
}

// rootSignedPayload is the canonical CBOR payload the Actyx root key signs
// when minting a developer certificate: (devPubKey, appDomains).
type rootSignedPayload struct {
	DevPubKey  []byte   `cbor:"devPubKey"`
	AppDomains []string `cbor:"appDomains"`
}

// Verifier checks AppManifest signature chains against the operator's root
// public key, baked into the binary at build time (spec.md §4.3 step 3).
type Verifier struct {
	rootPub ed25519.PublicKey
}

// NewVerifier wraps the hard-coded Actyx root public key.
func NewVerifier(rootPub ed25519.PublicKey) *Verifier {
	return &Verifier{rootPub: rootPub}
}

// VerifyManifest implements spec.md §4.3 issue_token steps 1-3: shape
// check, then (if a signature is present) the full chain verification.
// It does not perform the licensing check (step 4); callers combine this
// with a Licensing decision before calling Manager.IssueToken.
func (v *Verifier) VerifyManifest(m model.AppManifest, devModeTrialAllowed bool) error {
	if !ValidAppId(m.AppId) {
		return &ManifestError{Reason: "appId is not a valid lowercase reverse-DNS identifier"}
	}

	if m.Signature == nil {
		if !devModeTrialAllowed {
			return &ManifestError{Reason: "unsigned manifest requires development licensing mode"}
		}
		if !crypto.MatchAppDomain(model.TrialAppDomain, string(m.AppId)) {
			return &ManifestError{Reason: "unsigned manifest's appId is outside the trial domain"}
		}
		return nil
	}

	sig := m.Signature
	if len(sig.DevPubKey) != ed25519.PublicKeySize {
		return &ManifestError{Reason: "malformed developer public key"}
	}

	rootPayload, err := codec.MarshalCBOR(rootSignedPayload{DevPubKey: sig.DevPubKey, AppDomains: sig.AppDomains})
	if err != nil {
		return &ManifestError{Reason: fmt.Sprintf("encode root signed payload: %v", err)}
	}
	if !crypto.Verify(v.rootPub, rootPayload, sig.AxSignature) {
		return &ManifestError{Reason: "root signature over developer certificate does not verify"}
	}

	devPayload, err := codec.MarshalCBOR(devSignedPayload{AppId: string(m.AppId), DisplayName: m.DisplayName, Version: m.Version})
	if err != nil {
		return &ManifestError{Reason: fmt.Sprintf("encode developer signed payload: %v", err)}
	}
	if !crypto.Verify(ed25519.PublicKey(sig.DevPubKey), devPayload, sig.DevSignature) {
		return &ManifestError{Reason: "developer signature over manifest does not verify"}
	}

	if !crypto.MatchAnyAppDomain(sig.AppDomains, string(m.AppId)) {
		return &ManifestError{Reason: "appId does not match any certified domain"}
	}

	return nil
}

// SignDeveloperCertificatePayload and SignManifestPayload are exported so
// the (out-of-scope-for-this-node) certificate-issuing tool and test
// fixtures can build the exact byte strings VerifyManifest expects.

// SignDeveloperCertificatePayload returns the bytes the root key signs.
func SignDeveloperCertificatePayload(devPub ed25519.PublicKey, appDomains []string) ([]byte, error) {
	return codec.MarshalCBOR(rootSignedPayload{DevPubKey: devPub, AppDomains: appDomains})
}

// SignManifestPayload returns the bytes the developer key signs.
func SignManifestPayload(appId model.AppId, displayName, version string) ([]byte, error) {
	return codec.MarshalCBOR(devSignedPayload{AppId: string(appId), DisplayName: displayName, Version: version})
}
