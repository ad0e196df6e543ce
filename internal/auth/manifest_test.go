// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"testing"

	"github.com/actyx-go/actyx/internal/crypto"
	"github.com/actyx-go/actyx/internal/model"
)

func TestValidAppId(t *testing.T) {
	cases := map[string]bool{
		"com.example.app": true,
		"com.example":     true,
		"Com.Example.App": false,
		"com..example":    false,
		"justoneword":     false,
		"":                false,
	}
	for appId, want := range cases {
		if got := ValidAppId(model.AppId(appId)); got != want {
			t.Errorf("ValidAppId(%q) = %v, want %v", appId, got, want)
		}
	}
}

func TestVerifyManifestUnsignedTrial(t *testing.T) {
	rootKp, _ := crypto.GenerateKeyPair()
	v := NewVerifier(rootKp.Public)

	manifest := model.AppManifest{AppId: "com.example.t1", DisplayName: "Trial App", Version: "1.0.0"}
	if err := v.VerifyManifest(manifest, true); err != nil {
		t.Fatalf("expected trial manifest to verify, got %v", err)
	}
	if err := v.VerifyManifest(manifest, false); err == nil {
		t.Fatal("expected unsigned manifest to be rejected outside development mode")
	}
}

func TestVerifyManifestUnsignedOutsideTrialDomain(t *testing.T) {
	rootKp, _ := crypto.GenerateKeyPair()
	v := NewVerifier(rootKp.Public)
	manifest := model.AppManifest{AppId: "com.acme.prod", DisplayName: "Prod App", Version: "1.0.0"}
	if err := v.VerifyManifest(manifest, true); err == nil {
		t.Fatal("expected unsigned manifest outside trial domain to be rejected")
	}
}

func TestVerifyManifestSignedChain(t *testing.T) {
	rootKp, _ := crypto.GenerateKeyPair()
	devKp, _ := crypto.GenerateKeyPair()
	v := NewVerifier(rootKp.Public)

	domains := []string{"com.acme.*"}
	rootPayload, err := SignDeveloperCertificatePayload(devKp.Public, domains)
	if err != nil {
		t.Fatalf("sign dev cert payload: %v", err)
	}
	axSig := rootKp.Sign(rootPayload)

	manifest := model.AppManifest{AppId: "com.acme.widget", DisplayName: "Widget", Version: "2.0.0"}
	devPayload, err := SignManifestPayload(manifest.AppId, manifest.DisplayName, manifest.Version)
	if err != nil {
		t.Fatalf("sign manifest payload: %v", err)
	}
	devSig := devKp.Sign(devPayload)

	manifest.Signature = &model.ManifestSignature{
		DevPubKey:    devKp.Public,
		AppDomains:   domains,
		AxSignature:  axSig,
		DevSignature: devSig,
	}

	if err := v.VerifyManifest(manifest, false); err != nil {
		t.Fatalf("expected signed manifest to verify, got %v", err)
	}
}

func TestVerifyManifestRejectsTamperedSignature(t *testing.T) {
	rootKp, _ := crypto.GenerateKeyPair()
	devKp, _ := crypto.GenerateKeyPair()
	v := NewVerifier(rootKp.Public)

	domains := []string{"com.acme.*"}
	rootPayload, _ := SignDeveloperCertificatePayload(devKp.Public, domains)
	axSig := rootKp.Sign(rootPayload)

	manifest := model.AppManifest{AppId: "com.acme.widget", DisplayName: "Widget", Version: "2.0.0"}
	devPayload, _ := SignManifestPayload(manifest.AppId, manifest.DisplayName, manifest.Version)
	devSig := devKp.Sign(devPayload)
	devSig[0] ^= 0xFF

	manifest.Signature = &model.ManifestSignature{
		DevPubKey:    devKp.Public,
		AppDomains:   domains,
		AxSignature:  axSig,
		DevSignature: devSig,
	}

	if err := v.VerifyManifest(manifest, false); err == nil {
		t.Fatal("expected tampered developer signature to be rejected")
	}
}

func TestVerifyManifestRejectsDomainMismatch(t *testing.T) {
	rootKp, _ := crypto.GenerateKeyPair()
	devKp, _ := crypto.GenerateKeyPair()
	v := NewVerifier(rootKp.Public)

	domains := []string{"com.acme.*"}
	rootPayload, _ := SignDeveloperCertificatePayload(devKp.Public, domains)
	axSig := rootKp.Sign(rootPayload)

	manifest := model.AppManifest{AppId: "com.other.widget", DisplayName: "Widget", Version: "2.0.0"}
	devPayload, _ := SignManifestPayload(manifest.AppId, manifest.DisplayName, manifest.Version)
	devSig := devKp.Sign(devPayload)

	manifest.Signature = &model.ManifestSignature{
		DevPubKey:    devKp.Public,
		AppDomains:   domains,
		AxSignature:  axSig,
		DevSignature: devSig,
	}

	if err := v.VerifyManifest(manifest, false); err == nil {
		t.Fatal("expected appId outside certified domain to be rejected")
	}
}
