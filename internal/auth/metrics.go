// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Auth Service metrics, one promauto vector per outcome, scoped to
// spec.md §4.3's three operations.
var (
	// TokensIssued counts issue_token calls by outcome.
	// outcome: "issued", "invalid_manifest", "not_licensed", "rate_limited", "error"
	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actyx_auth_tokens_issued_total",
			Help: "Total number of issue_token calls by outcome",
		},
		[]string{"outcome"},
	)

	// TokenValidations counts validate_token calls by outcome.
	// outcome: "valid", "invalid", "expired", "wrong_node"
	TokenValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actyx_auth_token_validations_total",
			Help: "Total number of validate_token calls by outcome",
		},
		[]string{"outcome"},
	)

	// AdminAuthDecisions counts is_authorized_admin calls by outcome.
	// outcome: "authorized", "denied", "bootstrapped"
	AdminAuthDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actyx_auth_admin_decisions_total",
			Help: "Total number of is_authorized_admin calls by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordTokenIssued records an issue_token outcome.
func RecordTokenIssued(outcome string) { TokensIssued.WithLabelValues(outcome).Inc() }

// RecordTokenValidation records a validate_token outcome.
func RecordTokenValidation(outcome string) { TokenValidations.WithLabelValues(outcome).Inc() }

// RecordAdminAuthDecision records an is_authorized_admin outcome.
func RecordAdminAuthDecision(outcome string) { AdminAuthDecisions.WithLabelValues(outcome).Inc() }
