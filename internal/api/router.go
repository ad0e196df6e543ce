// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/auth"
	"github.com/actyx-go/actyx/internal/config"
	"github.com/actyx-go/actyx/internal/eventstore"
	"github.com/actyx-go/actyx/internal/model"
)

// keepAliveInterval is how often a streaming handler writes an empty
// NDJSON line while waiting for the next event, so a client (or an
// intermediate proxy) can tell the connection is still alive rather than
// stalled (spec.md §4.5, "empty lines permitted as keep-alives").
const keepAliveInterval = 54 * time.Second

// Deps bundles the already-constructed components the API Server wires
// together (spec.md §4.7: Auth, Event Store, and Settings are started
// before the API server). cmd/server builds each of these once at startup
// and shares Store and Settings with the swarm and admin channels.
type Deps struct {
	Issuer   *auth.Issuer
	Auth     *auth.Middleware
	Store    *eventstore.Store
	Settings *config.Store
	Self     model.NodeId
}

// Router wires Deps into chi routes (ADR-0016 in the retrieved corpus:
// chi over a bare net/http mux or gorilla/mux).
type Router struct {
	deps Deps
	log  zerolog.Logger
	mw   *ChiMiddleware
}

// NewRouter builds a Router ready for SetupChi.
func NewRouter(deps Deps, log zerolog.Logger) *Router {
	return &Router{
		deps: deps,
		log:  log.With().Str("component", "api").Logger(),
		mw:   NewChiMiddleware(DefaultChiMiddlewareConfig()),
	}
}

// SetupChi registers every route and returns the assembled handler.
func (rt *Router) SetupChi() chi.Router {
	r := chi.NewRouter()

	r.Use(rt.mw.RequestIDWithLogging())
	r.Use(rt.mw.CORS())
	r.Use(APISecurityHeaders())

	r.Route("/api/v2", func(r chi.Router) {
		// Unauthenticated: issuing a token and reading node identity cannot
		// themselves require a token (spec.md §4.5).
		r.Group(func(r chi.Router) {
			r.Use(rt.mw.RateLimitAuth())
			r.Post("/auth", rt.handleAuth)
		})
		r.Get("/node/id", rt.handleNodeId)

		r.Route("/events", func(r chi.Router) {
			r.Use(rt.deps.Auth.Require)
			r.Use(rt.mw.RateLimit())
			r.Get("/offsets", rt.handleOffsets)
			r.Post("/publish", rt.handlePublish)
			r.Post("/query", rt.handleQuery)
			r.Post("/subscribe", rt.handleSubscribe)
			r.Post("/subscribe_monotonic", rt.handleSubscribeMonotonic)
		})
	})

	return r
}
