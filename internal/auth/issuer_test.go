// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/crypto"
	"github.com/actyx-go/actyx/internal/model"
)

type fakeLicensing struct {
	devMode  bool
	override bool
	licensed map[model.AppId]bool
}

func (f *fakeLicensing) DevelopmentMode() bool  { return f.devMode }
func (f *fakeLicensing) NodeWideOverride() bool { return f.override }
func (f *fakeLicensing) Licensed(appId model.AppId, _ time.Time) bool {
	return f.licensed[appId]
}

func newTestIssuer(t *testing.T, lic Licensing) (*Issuer, *Verifier) {
	t.Helper()
	rootKp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("root key pair: %v", err)
	}
	verifier := NewVerifier(rootKp.Public)
	secret, _ := GenerateSecret()
	mgr, err := NewManager(secret, testNodeId(t))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return NewIssuer(verifier, lic, mgr, nil, NewAuditLog(zerolog.Nop())), verifier
}

func TestIssuerIssuesTokenForLicensedTrialApp(t *testing.T) {
	lic := &fakeLicensing{devMode: true, licensed: map[model.AppId]bool{"com.example.t1": true}}
	issuer, _ := newTestIssuer(t, lic)

	manifest := model.AppManifest{AppId: "com.example.t1", DisplayName: "Trial", Version: "1.0.0"}
	token, signed, err := issuer.IssueToken(manifest)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if token.AppId != manifest.AppId || signed == "" {
		t.Fatal("expected a populated token and signed string")
	}
}

func TestIssuerRejectsUnsignedManifestOutsideDevelopmentMode(t *testing.T) {
	lic := &fakeLicensing{devMode: false}
	issuer, _ := newTestIssuer(t, lic)

	manifest := model.AppManifest{AppId: "com.example.t1", DisplayName: "Trial", Version: "1.0.0"}
	_, _, err := issuer.IssueToken(manifest)
	if err == nil {
		t.Fatal("expected unsigned manifest to be rejected outside development mode")
	}
}

func TestIssuerRejectsNodeWideUnlicensedAfterValidManifest(t *testing.T) {
	lic := &fakeLicensing{devMode: false, override: false, licensed: map[model.AppId]bool{}}
	rootKp, _ := crypto.GenerateKeyPair()
	devKp, _ := crypto.GenerateKeyPair()
	secret, _ := GenerateSecret()
	mgr, err := NewManager(secret, testNodeId(t))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	issuer := NewIssuer(NewVerifier(rootKp.Public), lic, mgr, nil, NewAuditLog(zerolog.Nop()))

	domains := []string{"com.acme.*"}
	rootPayload, err := SignDeveloperCertificatePayload(devKp.Public, domains)
	if err != nil {
		t.Fatalf("sign dev cert payload: %v", err)
	}
	manifest := model.AppManifest{AppId: "com.acme.widget", DisplayName: "Widget", Version: "2.0.0"}
	devPayload, err := SignManifestPayload(manifest.AppId, manifest.DisplayName, manifest.Version)
	if err != nil {
		t.Fatalf("sign manifest payload: %v", err)
	}
	manifest.Signature = &model.ManifestSignature{
		DevPubKey:    devKp.Public,
		AppDomains:   domains,
		AxSignature:  rootKp.Sign(rootPayload),
		DevSignature: devKp.Sign(devPayload),
	}

	_, _, err = issuer.IssueToken(manifest)
	if err == nil {
		t.Fatal("expected NotLicensedError")
	}
	if _, ok := err.(*NotLicensedError); !ok {
		t.Fatalf("expected *NotLicensedError, got %T: %v", err, err)
	}
}
