// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import (
	"context"
	"fmt"
)

// StartStopManager interface matches the Swarm orchestrator's lifecycle.
//
// This interface abstracts the swarm's Start/Stop pattern, allowing the
// SwarmService wrapper to adapt it to suture's Serve pattern without
// importing internal/swarm directly, avoiding a circular dependency.
//
// The interface is satisfied by *swarm.Swarm from internal/swarm/swarm.go.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SwarmService wraps the Swarm orchestrator as a supervised service.
//
// It adapts the Start/Stop lifecycle pattern to suture's Serve pattern:
//  1. Calls Start(ctx) to begin discovery, gossip, and catch-up
//  2. Waits for context cancellation
//  3. Calls Stop() for graceful shutdown
//
// Swarm spawns its own internal goroutines and tracks them with a
// WaitGroup, so this wrapper simply orchestrates the lifecycle
// transitions.
type SwarmService struct {
	swarm StartStopManager
	name  string
}

// NewSwarmService creates a new swarm service wrapper.
//
// Example usage:
//
//	sw := swarm.New(cfg, store, logger)
//	svc := services.NewSwarmService(sw)
//	tree.AddSwarmService(svc)
func NewSwarmService(swarm StartStopManager) *SwarmService {
	return &SwarmService{
		swarm: swarm,
		name:  "swarm",
	}
}

// Serve implements suture.Service.
//
// If Start() fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (s *SwarmService) Serve(ctx context.Context) error {
	if err := s.swarm.Start(ctx); err != nil {
		return fmt.Errorf("swarm start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.swarm.Stop(); err != nil {
		return fmt.Errorf("swarm stop failed: %w", err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *SwarmService) String() string {
	return s.name
}
