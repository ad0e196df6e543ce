// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package crypto

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	msg := []byte("hello actyx")
	sig := kp.Sign(msg)
	if !Verify(kp.Public, msg, sig) {
		t.Fatal("expected signature to verify")
	}
	sig[0] ^= 0xFF
	if Verify(kp.Public, msg, sig) {
		t.Fatal("expected tampered signature to fail")
	}
}

func TestPublicKeyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	s := EncodePublicKey(kp.Public)
	pub, err := DecodePublicKey(s)
	if err != nil {
		t.Fatalf("DecodePublicKey: %v", err)
	}
	if string(pub) != string(kp.Public) {
		t.Fatal("round trip mismatch")
	}
}

func TestMatchAppDomain(t *testing.T) {
	cases := []struct {
		glob, appId string
		want        bool
	}{
		{"com.example.*", "com.example.t1", true},
		{"com.example.*", "com.example", true},
		{"com.example.*", "com.other", false},
		{"com.example.*", "com.exampleother", false},
		{"com.example.foo", "com.example.foo", true},
		{"com.example.foo", "com.example.bar", false},
	}
	for _, c := range cases {
		if got := MatchAppDomain(c.glob, c.appId); got != c.want {
			t.Errorf("MatchAppDomain(%q, %q) = %v, want %v", c.glob, c.appId, got, c.want)
		}
	}
}
