// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package services provides suture.Service wrappers for node components.

This package adapts components with their own native lifecycle pattern
(Start/Stop, ListenAndServe/Shutdown) to suture v4's context-aware Serve
pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (Start/Stop or ListenAndServe/Shutdown to Serve)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server (the public API server, and separately the Admin
    channel's server on its own port) with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

Swarm (SwarmService):
  - Wraps the Swarm orchestrator's Start(ctx)/Stop() lifecycle
  - Covers peer discovery, PSK handshakes, gossip, and catch-up
    replication as a single supervised unit

# Usage Example

	import (
	    "net/http"
	    "time"

	    "github.com/actyx-go/actyx/internal/supervisor"
	    "github.com/actyx-go/actyx/internal/supervisor/services"
	)

	func setupSupervisor(apiServer, adminServer *http.Server, sw *swarm.Swarm) {
	    tree, _ := supervisor.NewSupervisorTree(logger, config)

	    tree.AddSwarmService(services.NewSwarmService(sw))
	    tree.AddAPIService(services.NewHTTPServerService(apiServer, 10*time.Second))
	    tree.AddAdminService(services.NewHTTPServerService(adminServer, 10*time.Second))

	    tree.Serve(ctx)
	}

# Lifecycle Patterns

Start/Stop Pattern (SwarmService):

	type StartStopManager interface {
	    Start(ctx context.Context) error
	    Stop() error
	}

	func (s *SwarmService) Serve(ctx context.Context) error {
	    if err := s.swarm.Start(ctx); err != nil {
	        return err
	    }
	    <-ctx.Done()
	    return s.swarm.Stop()
	}

ListenAndServe Pattern (HTTPServerService):

	type HTTPServer interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	func (h *HTTPServerService) Serve(ctx context.Context) error {
	    go h.server.ListenAndServe()
	    <-ctx.Done()
	    return h.server.Shutdown(shutdownCtx)
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Service Identification

All services implement fmt.Stringer for logging, which suture uses for
its own log messages ("swarm: starting", "http-server: restarting after
failure", and so on).

# Thread Safety

All service wrappers are safe for concurrent use. Multiple concurrent
Serve calls on the same instance are not supported.

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/swarm: Swarm orchestrator wrapped by SwarmService
*/
package services
