// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command actyxd is the Actyx node binary: it loads settings, builds
// Auth, the Event Store, the Swarm layer, the API server, and the Admin
// channel, and runs them until SIGINT/SIGTERM (spec.md §4.7, Node
// Runtime).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/admin"
	"github.com/actyx-go/actyx/internal/config"
	"github.com/actyx-go/actyx/internal/logging"
	"github.com/actyx-go/actyx/internal/nodectx"
)

func main() {
	os.Exit(run())
}

func run() int {
	defaults := nodectx.DefaultConfig()

	dataDir := flag.String("data-dir", defaults.DataDir, "directory for topic databases and node identity")
	bindSwarm := flag.String("bind-swarm", defaults.BindSwarm, "host:port the swarm gossip transport listens on")
	bindAPI := flag.String("bind-api", defaults.BindAPI, "host:port the API server listens on")
	bindAdmin := flag.String("bind-admin", defaults.BindAdmin, "host:port the Admin channel listens on")
	logLevel := flag.String("log-level", "info", "trace, debug, info, warn, error")
	logFormat := flag.String("log-format", "console", "json or console")
	flag.Parse()

	logBroadcaster := admin.NewLogBroadcaster()
	logging.Init(logging.Config{
		Level:  *logLevel,
		Format: *logFormat,
		Output: zerolog.MultiLevelWriter(os.Stderr, logBroadcaster),
	})
	log := logging.Logger()

	settings, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("actyxd: load settings")
	}

	node, err := nodectx.New(nodectx.Config{
		DataDir:   *dataDir,
		BindSwarm: *bindSwarm,
		BindAPI:   *bindAPI,
		BindAdmin: *bindAdmin,
	}, settings, logBroadcaster, log)
	if err != nil {
		log.Fatal().Err(err).Msg("actyxd: build node")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := node.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "actyxd: node exited with error:", err)
		return 1
	}
	return 0
}
