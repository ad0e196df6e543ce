// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/auth"
	"github.com/actyx-go/actyx/internal/config"
	"github.com/actyx-go/actyx/internal/crypto"
	"github.com/actyx-go/actyx/internal/eventstore"
	"github.com/actyx-go/actyx/internal/model"
)

// testDeps builds a Router wired to a fresh in-process store, a
// development-mode settings document (so unsigned trial manifests are
// accepted), and the node's own self identity, mirroring what cmd/server
// assembles at startup.
func testDeps(t *testing.T) (Deps, *Router) {
	t.Helper()

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	self, err := model.NodeIdFromPublicKey(kp.Public)
	if err != nil {
		t.Fatalf("node id: %v", err)
	}

	store, err := eventstore.Open(eventstore.DefaultConfig(t.TempDir()), self, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	settings := config.NewStore(config.Document{
		Licensing: config.LicensingSettings{Node: config.NodeLicense{Mode: config.NodeLicenseDevelopment}},
	})

	verifier := auth.NewVerifier(kp.Public)
	secret, err := auth.GenerateSecret()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	tokens, err := auth.NewManager(secret, self)
	if err != nil {
		t.Fatalf("new token manager: %v", err)
	}
	issuer := auth.NewIssuer(verifier, settings, tokens, nil, auth.NewAuditLog(zerolog.Nop()))
	mw := auth.NewMiddleware(tokens)

	deps := Deps{Issuer: issuer, Auth: mw, Store: store, Settings: settings, Self: self}
	return deps, NewRouter(deps, zerolog.Nop())
}

func issueTestToken(t *testing.T, rt *Router) string {
	t.Helper()
	_, signed, err := rt.deps.Issuer.IssueToken(model.AppManifest{
		AppId: "com.example.test", DisplayName: "Test", Version: "1.0.0",
	})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return signed
}

func TestHandleAuthIssuesTokenForUnsignedTrialManifest(t *testing.T) {
	_, rt := testDeps(t)
	handler := rt.SetupChi()

	body, _ := json.Marshal(model.AppManifest{AppId: "com.example.test", DisplayName: "Test", Version: "1.0.0"})
	req := httptest.NewRequest(http.MethodPost, "/api/v2/auth", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected non-empty token")
	}
}

func TestHandleAuthRejectsOutOfDomainUnsignedManifest(t *testing.T) {
	_, rt := testDeps(t)
	handler := rt.SetupChi()

	body, _ := json.Marshal(model.AppManifest{AppId: "com.acme.prod", DisplayName: "Prod", Version: "1.0.0"})
	req := httptest.NewRequest(http.MethodPost, "/api/v2/auth", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleNodeIdIsUnauthenticated(t *testing.T) {
	deps, rt := testDeps(t)
	handler := rt.SetupChi()

	req := httptest.NewRequest(http.MethodGet, "/api/v2/node/id", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp nodeIdResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.NodeId != deps.Self.String() {
		t.Fatalf("expected %q, got %q", deps.Self.String(), resp.NodeId)
	}
}

func TestHandleEventsRequiresAuth(t *testing.T) {
	_, rt := testDeps(t)
	handler := rt.SetupChi()

	req := httptest.NewRequest(http.MethodGet, "/api/v2/events/offsets", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandlePublishAndQueryRoundTrip(t *testing.T) {
	_, rt := testDeps(t)
	handler := rt.SetupChi()
	token := issueTestToken(t, rt)

	publishBody, _ := json.Marshal(publishRequest{Data: []publishEventInput{
		{Tags: []string{"robot"}, Payload: json.RawMessage(`{"x":1}`)},
	}})
	req := httptest.NewRequest(http.MethodPost, "/api/v2/events/publish", bytes.NewReader(publishBody))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var pubResp publishResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &pubResp); err != nil {
		t.Fatalf("decode publish response: %v", err)
	}
	if len(pubResp.Data) != 1 {
		t.Fatalf("expected 1 key, got %d", len(pubResp.Data))
	}

	upper, _ := rt.deps.Store.Offsets(nil)
	queryBody, _ := json.Marshal(queryRequest{UpperBound: upper, Query: "'robot'", Order: "Asc"})
	req = httptest.NewRequest(http.MethodPost, "/api/v2/events/query", bytes.NewReader(queryBody))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("query: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	lines := bytes.Split(bytes.TrimRight(rec.Body.Bytes(), "\n"), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 NDJSON frame, got %d: %s", len(lines), rec.Body.String())
	}
	var frame eventFrame
	if err := json.Unmarshal(lines[0], &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.AppId != "com.example.test" {
		t.Fatalf("expected appId com.example.test, got %q", frame.AppId)
	}
}

func TestHandlePublishRejectedWhenReadOnly(t *testing.T) {
	deps, rt := testDeps(t)
	if err := deps.Settings.Set(config.ScopeAPI, mustMarshal(t, config.APISettings{Events: config.APIEventsSettings{ReadOnly: true}})); err != nil {
		t.Fatalf("set api settings: %v", err)
	}
	handler := rt.SetupChi()
	token := issueTestToken(t, rt)

	body, _ := json.Marshal(publishRequest{Data: []publishEventInput{{Tags: nil, Payload: json.RawMessage(`1`)}}})
	req := httptest.NewRequest(http.MethodPost, "/api/v2/events/publish", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestParseOrder(t *testing.T) {
	cases := map[string]eventstore.Order{"Asc": eventstore.Ascending, "": eventstore.Ascending, "Desc": eventstore.Descending, "StreamAsc": eventstore.StreamAscending}
	for s, want := range cases {
		got, ok := parseOrder(s)
		if !ok || got != want {
			t.Fatalf("parseOrder(%q) = %v, %v; want %v, true", s, got, ok, want)
		}
	}
	if _, ok := parseOrder("bogus"); ok {
		t.Fatal("expected parseOrder to reject unknown order")
	}
}
