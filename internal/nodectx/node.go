// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nodectx builds and runs one Actyx node: it constructs Auth, the
// Event Store, the Swarm layer, the API server, and the Admin channel in
// dependency order and wires each long-running one into a
// internal/supervisor tree, following spec.md §4.7's Node Runtime. This
// mirrors the familiar construct-dependencies / build-a-supervisor-tree /
// add-services / serve shape of a suture-based main package, but the
// wiring itself now lives in a package cmd/server can stay thin on top
// of.
package nodectx

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/admin"
	"github.com/actyx-go/actyx/internal/api"
	"github.com/actyx-go/actyx/internal/auth"
	"github.com/actyx-go/actyx/internal/authz"
	"github.com/actyx-go/actyx/internal/config"
	"github.com/actyx-go/actyx/internal/logging"
	"github.com/actyx-go/actyx/internal/model"
	"github.com/actyx-go/actyx/internal/supervisor"
	"github.com/actyx-go/actyx/internal/supervisor/services"
	"github.com/actyx-go/actyx/internal/swarm"
	"github.com/actyx-go/actyx/internal/topic"
)

// Config is everything cmd/server's flags and environment resolve before
// a Node can be built. None of this lives in the Settings document: bind
// addresses and the on-disk data directory are host-local deployment
// facts, not swarm-shared configuration (spec.md §4.7, "parse CLI
// flags").
type Config struct {
	DataDir   string
	BindSwarm string // host:port the embedded gossip transport listens on
	BindAPI   string // host:port the public API server listens on
	BindAdmin string // host:port the Admin channel listens on
}

// DefaultConfig returns the addresses and directory an `ax run` with no
// overrides would use.
func DefaultConfig() Config {
	return Config{
		DataDir:   "./actyx-data",
		BindSwarm: "0.0.0.0:4001",
		BindAPI:   "127.0.0.1:4454",
		BindAdmin: "127.0.0.1:4458",
	}
}

// Node is one running Actyx node: every component spec.md §4.7 lists,
// wired together and supervised.
type Node struct {
	Self     model.NodeId
	Settings *config.Store
	Topics   *topic.Manager
	Swarm    *swarm.Swarm
	Logs     *admin.LogBroadcaster

	tree       *supervisor.SupervisorTree
	log        zerolog.Logger
	apiServer  *http.Server
	adminHTTP  *http.Server
	enforcer   *authz.Enforcer
}

// New constructs every Node component in dependency order: identity,
// then Auth, then the Event Store (via the topic manager), then Swarm,
// the API server, and the Admin channel, and wires the long-running
// ones into a supervisor tree ready for Serve.
func New(cfg Config, settings *config.Store, logBroadcaster *admin.LogBroadcaster, log zerolog.Logger) (*Node, error) {
	_, self, err := loadOrCreateIdentity(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("nodectx: node identity: %w", err)
	}
	log = log.With().Str("node", self.String()).Logger()

	hmacSecret, err := loadOrCreateHMACSecret(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("nodectx: auth secret: %w", err)
	}

	// --- Auth (spec.md §4.3) ---
	tokens, err := auth.NewManager(hmacSecret, self)
	if err != nil {
		return nil, fmt.Errorf("nodectx: auth manager: %w", err)
	}
	verifier := auth.NewVerifier(resolveRootKey(log))
	authAudit := auth.NewAuditLog(log)
	limiter := auth.NewRateLimiter(5, 10, 10*time.Minute)
	issuer := auth.NewIssuer(verifier, settings, tokens, limiter, authAudit)
	authMiddleware := auth.NewMiddleware(tokens)
	adminAuthorizer := auth.NewAdminAuthorizer(settings, authAudit)

	enforcer, err := authz.NewEnforcer(context.Background(), authz.DefaultEnforcerConfig())
	if err != nil {
		return nil, fmt.Errorf("nodectx: authz enforcer: %w", err)
	}
	authzAudit := authz.NewAuditLog(log)
	authzSvc := authz.NewService(enforcer, authz.DefaultServiceConfig(), authzAudit)

	// --- Event Store, via the topic manager (spec.md §4.1, §2) ---
	doc := settings.Snapshot()
	topics, err := topic.New(cfg.DataDir, self, doc.Swarm.Topic, log)
	if err != nil {
		enforcer.Close()
		return nil, fmt.Errorf("nodectx: open topic store: %w", err)
	}

	// --- Swarm (spec.md §4.2) ---
	psk, err := ensureSwarmKey(settings)
	if err != nil {
		topics.Close()
		enforcer.Close()
		return nil, fmt.Errorf("nodectx: swarm key: %w", err)
	}
	swarmCfg := swarm.Config{
		Self:              self,
		BindPort:          mustPort(cfg.BindSwarm),
		PSK:               psk,
		InitialPeers:      doc.Swarm.InitialPeers,
		AnnounceAddresses: doc.Swarm.AnnounceAddresses,
	}
	sw := swarm.New(swarmCfg, topics.Store(), log)

	// --- API server (spec.md §4.5) ---
	router := api.NewRouter(api.Deps{
		Issuer:   issuer,
		Auth:     authMiddleware,
		Store:    topics.Store(),
		Settings: settings,
		Self:     self,
	}, log)
	apiServer := &http.Server{
		Addr:         cfg.BindAPI,
		Handler:      router.SetupChi(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming query/subscribe responses are long-lived
	}

	// --- Admin channel (spec.md §4.4, §4.6) ---
	adminSrv := admin.NewServer(admin.Deps{
		Admin:    adminAuthorizer,
		AuthzSvc: authzSvc,
		Settings: settings,
		Swarm:    sw,
		Logs:     logBroadcaster,
	}, log)
	adminMux := http.NewServeMux()
	adminMux.Handle("/", adminSrv)
	adminHTTP := &http.Server{
		Addr:    cfg.BindAdmin,
		Handler: adminMux,
	}

	// --- Supervisor tree (spec.md §4.7's component set as suture children) ---
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		topics.Close()
		enforcer.Close()
		return nil, fmt.Errorf("nodectx: build supervisor tree: %w", err)
	}
	tree.AddSwarmService(services.NewSwarmService(sw))
	tree.AddAPIService(services.NewHTTPServerService(apiServer, 10*time.Second))
	tree.AddAdminService(services.NewHTTPServerService(adminHTTP, 10*time.Second))

	return &Node{
		Self:      self,
		Settings:  settings,
		Topics:    topics,
		Swarm:     sw,
		Logs:      logBroadcaster,
		tree:      tree,
		log:       log,
		apiServer: apiServer,
		adminHTTP: adminHTTP,
		enforcer:  enforcer,
	}, nil
}

// Run blocks serving every supervised component until ctx is canceled,
// then waits for graceful shutdown to finish. Components stop in
// reverse dependency order: suture tears down the API and Admin
// services, then Swarm, before Run returns; Auth and the Event Store
// have no run loop to stop, so Close tears them down last (spec.md
// §4.7, "components stop in reverse dependency order").
func (n *Node) Run(ctx context.Context) error {
	n.log.Info().
		Str("api", n.apiServer.Addr).
		Str("admin", n.adminHTTP.Addr).
		Msg("nodectx: node starting")
	err := n.tree.Serve(ctx)
	if closeErr := n.Close(); closeErr != nil {
		n.log.Warn().Err(closeErr).Msg("nodectx: error during shutdown")
	}
	return err
}

// Close releases the passive, non-tree-managed resources: the Casbin
// enforcer and the Event Store. Safe to call after Run returns.
func (n *Node) Close() error {
	n.enforcer.Close()
	return n.Topics.Close()
}

// mustPort extracts the numeric port from a "host:port" bind address; a
// malformed address yields port 0, which Swarm.Inspect reports
// as-is rather than aborting startup over a cosmetic listen-address
// string used only for the Admin channel's inspect() operation.
func mustPort(hostport string) int {
	_, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}
