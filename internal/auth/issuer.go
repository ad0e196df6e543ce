// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"time"

	"github.com/actyx-go/actyx/internal/model"
)

// Licensing is the settings-backed view issue_token consults at step 4.
// internal/config implements this over the live Settings document so auth
// never has to know about koanf or the settings schema.
type Licensing interface {
	// DevelopmentMode reports whether the node accepts unsigned trial
	// manifests (spec.md §4.3 step 2).
	DevelopmentMode() bool
	// NodeWideOverride reports whether "licensed: true" is set, which
	// licenses every app regardless of individual AppLicenses.
	NodeWideOverride() bool
	// Licensed reports whether a non-expired AppLicense for appId is
	// present in settings.
	Licensed(appId model.AppId, now time.Time) bool
}

// Issuer performs the full issue_token operation: manifest verification,
// licensing, and token minting (spec.md §4.3 issue_token).
type Issuer struct {
	verifier  *Verifier
	licensing Licensing
	tokens    *Manager
	limiter   *RateLimiter
	audit     *AuditLog
}

// NewIssuer wires the pieces issue_token needs.
func NewIssuer(verifier *Verifier, licensing Licensing, tokens *Manager, limiter *RateLimiter, audit *AuditLog) *Issuer {
	return &Issuer{verifier: verifier, licensing: licensing, tokens: tokens, limiter: limiter, audit: audit}
}

// IssueToken runs spec.md §4.3 issue_token end to end and returns the
// signed token string alongside the AuthToken record.
func (i *Issuer) IssueToken(manifest model.AppManifest) (model.AuthToken, string, error) {
	if i.limiter != nil && !i.limiter.Allow(string(manifest.AppId)) {
		err := &TokenError{Code: ErrCodeBadRequest, Cause: errRateLimited}
		i.audit.Record(AuditEvent{Op: "issue_token", AppId: manifest.AppId, Err: err})
		return model.AuthToken{}, "", err
	}

	if err := i.verifier.VerifyManifest(manifest, i.licensing.DevelopmentMode()); err != nil {
		i.audit.Record(AuditEvent{Op: "issue_token", AppId: manifest.AppId, Err: err})
		return model.AuthToken{}, "", err
	}

	if !i.licensing.DevelopmentMode() && !i.licensing.NodeWideOverride() && !i.licensing.Licensed(manifest.AppId, time.Now()) {
		err := &NotLicensedError{AppId: string(manifest.AppId)}
		i.audit.Record(AuditEvent{Op: "issue_token", AppId: manifest.AppId, Err: err})
		return model.AuthToken{}, "", err
	}

	token, signed, err := i.tokens.IssueToken(manifest.AppId, DefaultTokenTTL)
	if err != nil {
		i.audit.Record(AuditEvent{Op: "issue_token", AppId: manifest.AppId, Err: err})
		return model.AuthToken{}, "", err
	}
	i.audit.Record(AuditEvent{Op: "issue_token", AppId: manifest.AppId})
	return token, signed, nil
}
