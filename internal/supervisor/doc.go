// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package supervisor provides process supervision for an Actyx node using
suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of the node's long-running loops. It provides Erlang/OTP-style
supervision with automatic restart, failure isolation, and graceful
shutdown.

# Overview

Auth and the Event Store have no run loop: they are constructed once, in
dependency order, before the tree starts, and handed to the services
below. The remaining components are supervised, one layer each:

	RootSupervisor ("actyx-node")
	├── SwarmSupervisor ("swarm-layer")
	│   └── SwarmService (discovery, handshake, gossip, catch-up)
	├── APISupervisor ("api-layer")
	│   └── HTTPServerService (/api/v2/*)
	└── AdminSupervisor ("admin-layer")
	    └── HTTPServerService (Admin channel, separate port)

This hierarchy ensures that:
  - A crash in gossip/discovery doesn't take the public API down
  - A slow Admin channel request doesn't stall event ingestion
  - Each layer can restart independently

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - A fixed FailureBackoff delay prevents restart storms
  - Configurable failure thresholds and decay rates

Failure Isolation:
  - Services are organized into logical groups
  - Child supervisor failures don't propagate upward
  - Each layer has independent failure counting

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via sutureslog adapter

# Usage Example

	import (
	    "log/slog"
	    "github.com/actyx-go/actyx/internal/supervisor"
	    "github.com/actyx-go/actyx/internal/supervisor/services"
	)

	func main() {
	    logger := slog.Default()
	    config := supervisor.DefaultTreeConfig()

	    tree, err := supervisor.NewSupervisorTree(logger, config)
	    if err != nil {
	        log.Fatal(err)
	    }

	    tree.AddSwarmService(services.NewSwarmService(sw))
	    tree.AddAPIService(services.NewHTTPServerService(apiServer, 10*time.Second))
	    tree.AddAdminService(services.NewHTTPServerService(adminServer, 10*time.Second))

	    ctx := context.Background()
	    if err := tree.Serve(ctx); err != nil {
	        log.Printf("Supervisor stopped: %v", err)
	    }
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,
	    FailureDecay:     30.0,
	    FailureBackoff:   15 * time.Second,
	    ShutdownTimeout:  10 * time.Second,
	}

Default values match suture's production-ready defaults.

# Failure Handling

The supervisor uses a failure counter with exponential decay:

1. Each service failure increments the counter
2. Counter decays exponentially over time (FailureDecay seconds)
3. When counter exceeds FailureThreshold, supervisor enters backoff
4. During backoff, restarts are delayed by FailureBackoff duration

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return behavior:
  - Return nil: Service stopped cleanly, will not be restarted
  - Return error: Service crashed, will be restarted
  - Context canceled: Shutdown requested, return promptly

# What Is NOT Supervised

The event store's Badger handle is intentionally not supervised: it's an
embedded library, not a long-running service, and a crash in it would
require a process restart anyway. Auth's manifest/JWT verification is a
pure function set with no loop to supervise.

# Debugging Shutdown Issues

If services don't stop within the timeout:

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("Service didn't stop: %v", svc)
	}

Common causes:
  - Goroutines not respecting context cancellation
  - Blocked network I/O without deadlines

# Thread Safety

The SupervisorTree is safe for concurrent use.

# See Also

  - internal/supervisor/services: Service wrappers
  - github.com/thejerf/suture/v4: Underlying library
*/
package supervisor
