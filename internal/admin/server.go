// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package admin

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/auth"
	"github.com/actyx-go/actyx/internal/authz"
	"github.com/actyx-go/actyx/internal/config"
	"github.com/actyx-go/actyx/internal/crypto"
	"github.com/actyx-go/actyx/internal/swarm"
)

// pingPeriod is the keep-alive cadence for an idle Admin connection,
// comfortably inside pongWait so a ping always lands before the peer
// times out.
const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Deps bundles the components a Server wires together (spec.md §4.6).
type Deps struct {
	Admin    *auth.AdminAuthorizer
	AuthzSvc *authz.Service
	Settings *config.Store
	Swarm    *swarm.Swarm
	Logs     *LogBroadcaster
}

// Server is the Admin channel's WebSocket endpoint.
type Server struct {
	admin    *auth.AdminAuthorizer
	authzSvc *authz.Service
	settings *config.Store
	swarm    *swarm.Swarm
	logs     *LogBroadcaster
	log      zerolog.Logger
}

// NewServer builds a Server ready to be mounted as an http.Handler.
func NewServer(deps Deps, log zerolog.Logger) *Server {
	return &Server{
		admin:    deps.Admin,
		authzSvc: deps.AuthzSvc,
		settings: deps.Settings,
		swarm:    deps.Swarm,
		logs:     deps.Logs,
		log:      log.With().Str("component", "admin").Logger(),
	}
}

// ServeHTTP upgrades the request to a WebSocket and drives the
// handshake, then the request/response loop, until the client
// disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("admin: upgrade failed")
		return
	}
	defer conn.Close()

	hs, err := runHandshake(conn, s.settings, s.admin)
	if err != nil {
		s.log.Warn().Err(err).Msg("admin: handshake failed")
		_ = conn.WriteJSON(errorMessage{Type: "error", Message: err.Error()})
		return
	}
	subject := crypto.EncodePublicKey(hs.PubKey)

	if hs.Bootstrapped {
		if err := s.authzSvc.BootstrapAdmin(subject); err != nil {
			s.log.Error().Err(err).Msg("admin: bootstrap role grant failed")
			_ = conn.WriteJSON(errorMessage{Type: "error", Message: err.Error()})
			return
		}
	}

	role := s.roleFor(subject)
	if err := conn.WriteJSON(welcomeMessage{Type: "welcome", Role: role}); err != nil {
		return
	}

	s.log.Info().Str("subject", subject).Str("role", role).Msg("admin: connection admitted")
	s.serve(conn, subject)
}

func (s *Server) roleFor(subject string) string {
	scopes, err := s.authzSvc.ListScopes(subject)
	if err != nil {
		return ""
	}
	if actions, ok := scopes[authz.ScopeScopes]; ok && containsWrite(actions) {
		return "admin"
	}
	if actions, ok := scopes[authz.ScopeSettings]; ok && containsWrite(actions) {
		return "operator"
	}
	return "viewer"
}

func containsWrite(actions []string) bool {
	for _, a := range actions {
		if a == authz.ActionWrite {
			return true
		}
	}
	return false
}

// serve reads request frames until the connection closes, dispatching
// each through dispatch except logs_tail, which switches the connection
// into a one-way push loop for its duration.
func (s *Server) serve(conn *websocket.Conn, subject string) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(conn, done)

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		if req.Op == "logs_tail" {
			s.streamLogs(conn, subject, req)
			return
		}

		resp := s.dispatch(subject, req)
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// streamLogs authorizes the request once, then pushes backlog and live
// log lines until the client disconnects (spec.md §4.4 logs_tail).
func (s *Server) streamLogs(conn *websocket.Conn, subject string, req request) {
	allowed, err := s.authzSvc.CanPerform(subject, authz.ScopeLogs, authz.ActionRead)
	if err != nil || !allowed {
		_ = conn.WriteJSON(errResponse(req.Op, authz.ErrNotAuthorized))
		return
	}
	if s.logs == nil {
		_ = conn.WriteJSON(response{Op: req.Op, Ok: true})
		return
	}

	ch, backlog := s.logs.Subscribe(req.Lines)
	defer s.logs.Unsubscribe(ch)

	for _, line := range backlog {
		if err := conn.WriteJSON(logLineMessage{Type: "logLine", Line: line}); err != nil {
			return
		}
	}
	if !req.Follow {
		return
	}
	for line := range ch {
		if err := conn.WriteJSON(logLineMessage{Type: "logLine", Line: line}); err != nil {
			return
		}
	}
}
