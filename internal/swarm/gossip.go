// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	natsserver "github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"

	"github.com/actyx-go/actyx/internal/model"
)

// GossipInterval is the coarse offset-gossip period spec.md §4.4 targets
// ("every few seconds").
const GossipInterval = 3 * time.Second

// HeartbeatInterval keeps a Connected session alive between gossip
// rounds (spec.md §4.4: "keep-alive every second").
const HeartbeatInterval = time.Second

const (
	gossipSubjectPrefix    = "swarm.gossip."
	fetchSubjectPrefix     = "swarm.fetch."
	handshakeSubjectPrefix = "swarm.handshake."
)

// OffsetAdvert is the `(StreamId, highest-known-offset)` tuple set a
// Connected peer exchanges each gossip round.
type OffsetAdvert struct {
	Node              model.NodeId    `json:"node"`
	Offsets           model.OffsetMap `json:"offsets"`
	AnnounceAddresses []string        `json:"announceAddresses,omitempty"`
}

// FetchRequest asks a peer for one chunk of a stream, bounded to keep
// memory use flat regardless of how far behind the requester is
// (spec.md §4.4: "requested ranges are chunked").
type FetchRequest struct {
	Stream model.StreamId `json:"stream"`
	From   model.Offset   `json:"from"`
	To     model.Offset   `json:"to"`
}

// FetchResponse carries one chunk's worth of events, in ascending
// offset order.
type FetchResponse struct {
	Events []model.Event `json:"events"`
	Err    string        `json:"err,omitempty"`
}

// FetchChunkSize bounds how many offsets a single FetchRequest spans.
const FetchChunkSize = 256

// Embedded is one node's embedded NATS server plus the Watermill router
// carrying gossip and fetch traffic between directly-connected peers,
// using a Recoverer + Retry middleware stack onto an in-process NATS
// core instead of a standalone broker.
type Embedded struct {
	server *natsserver.Server
	conn   *natsgo.Conn
	pub    message.Publisher
	sub    message.Subscriber
	router *message.Router
	self   model.NodeId
}

// StartEmbedded boots an in-process NATS server bound to port (0 picks a
// free port) and wires a Watermill router with panic-recovery and retry
// middleware.
func StartEmbedded(self model.NodeId, port int, logger watermill.LoggerAdapter) (*Embedded, error) {
	opts := &natsserver.Options{Port: port, NoLog: true, NoSigs: true}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("swarm: start embedded NATS: %w", err)
	}
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("swarm: embedded NATS did not become ready")
	}

	conn, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		return nil, fmt.Errorf("swarm: connect to embedded NATS: %w", err)
	}

	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	marshaler := &nats.NATSMarshaler{}
	pub, err := nats.NewPublisher(nats.PublisherConfig{URL: srv.ClientURL(), Marshaler: marshaler}, logger)
	if err != nil {
		return nil, fmt.Errorf("swarm: create gossip publisher: %w", err)
	}
	sub, err := nats.NewSubscriber(nats.SubscriberConfig{URL: srv.ClientURL(), Unmarshaler: marshaler, NatsOptions: []natsgo.Option{}}, logger)
	if err != nil {
		return nil, fmt.Errorf("swarm: create gossip subscriber: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("swarm: create gossip router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{MaxRetries: 3, InitialInterval: 200 * time.Millisecond, MaxInterval: 5 * time.Second, Multiplier: 2, Logger: logger}
	router.AddMiddleware(retry.Middleware)

	return &Embedded{server: srv, conn: conn, pub: pub, sub: sub, router: router, self: self}, nil
}

// Run starts the router; blocks until ctx is canceled or Close is called.
func (e *Embedded) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

// Close tears down the router, NATS client, and embedded server in that
// order.
func (e *Embedded) Close() error {
	if err := e.router.Close(); err != nil {
		return err
	}
	e.conn.Close()
	e.server.Shutdown()
	return nil
}

// gossipSubject is the subject a node listens on for offset adverts.
func gossipSubject(id model.NodeId) string { return gossipSubjectPrefix + id.String() }

// fetchSubject is the subject a node listens on for fetch requests.
func fetchSubject(id model.NodeId) string { return fetchSubjectPrefix + id.String() }

// handshakeSubject is the subject a node listens on for PSK challenges.
func handshakeSubject(id model.NodeId) string { return handshakeSubjectPrefix + id.String() }

// handshakeWire is the wire form of a PSK challenge/response exchange.
type handshakeWire struct {
	Nonce      [24]byte `json:"nonce"`
	Ciphertext []byte   `json:"ciphertext"`
	Plaintext  []byte   `json:"plaintext,omitempty"`
}

// RequestHandshake issues a fresh PSK challenge to peer and verifies its
// response, proving peer holds the same swarm key
// (spec.md §4.4: "any peer failing the PSK handshake is dropped").
func (e *Embedded) RequestHandshake(ctx context.Context, psk *PSK, peer model.NodeId) error {
	challenge, plaintext, err := psk.IssueChallenge()
	if err != nil {
		return err
	}
	b, err := json.Marshal(handshakeWire{Nonce: challenge.Nonce, Ciphertext: challenge.Ciphertext})
	if err != nil {
		return fmt.Errorf("swarm: marshal handshake challenge: %w", err)
	}
	msg, err := e.conn.RequestWithContext(ctx, handshakeSubject(peer), b)
	if err != nil {
		return fmt.Errorf("swarm: request handshake from %s: %w", peer, err)
	}
	var resp handshakeWire
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return fmt.Errorf("swarm: unmarshal handshake response: %w", err)
	}
	if !Verify(plaintext, resp.Plaintext) {
		return ErrHandshakeFailed
	}
	return nil
}

// ServeHandshake subscribes this node's handshake subject, opening each
// incoming challenge under psk and echoing the plaintext back. A peer
// that does not hold the same key will see its own Verify fail, since
// Open itself never runs here if the sealing key differs -- the
// responder blindly echoes back whatever it could open under its own
// key, which only matches the requester's plaintext when the keys agree.
func (e *Embedded) ServeHandshake(psk *PSK) error {
	_, err := e.conn.Subscribe(handshakeSubject(e.self), func(msg *natsgo.Msg) {
		var req handshakeWire
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return
		}
		plaintext, err := psk.Open(Challenge{Nonce: req.Nonce, Ciphertext: req.Ciphertext})
		if err != nil {
			_ = msg.Respond(nil)
			return
		}
		b, err := json.Marshal(handshakeWire{Plaintext: plaintext})
		if err != nil {
			return
		}
		_ = msg.Respond(b)
	})
	if err != nil {
		return fmt.Errorf("swarm: subscribe handshake inbox: %w", err)
	}
	return nil
}

// PublishAdvert gossips advert to peer over the embedded transport.
func (e *Embedded) PublishAdvert(peer model.NodeId, advert OffsetAdvert) error {
	b, err := json.Marshal(advert)
	if err != nil {
		return fmt.Errorf("swarm: marshal offset advert: %w", err)
	}
	return e.pub.Publish(gossipSubject(peer), message.NewMessage(watermill.NewUUID(), b))
}

// OnAdvert registers handler for offset adverts addressed to this node.
func (e *Embedded) OnAdvert(handler func(OffsetAdvert) error) {
	e.router.AddNoPublisherHandler("gossip-inbound", gossipSubject(e.self), e.sub, func(msg *message.Message) error {
		var advert OffsetAdvert
		if err := json.Unmarshal(msg.Payload, &advert); err != nil {
			return fmt.Errorf("swarm: unmarshal offset advert: %w", err)
		}
		return handler(advert)
	})
}

// RequestFetch asks peer for one chunk of a stream and blocks for its
// reply, using plain NATS request-reply rather than the Watermill
// pub/sub path above: a fetch is a point-to-point RPC, not a broadcast,
// so it rides the embedded server's request/reply support directly.
func (e *Embedded) RequestFetch(ctx context.Context, peer model.NodeId, req FetchRequest) (FetchResponse, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return FetchResponse{}, fmt.Errorf("swarm: marshal fetch request: %w", err)
	}
	msg, err := e.conn.RequestWithContext(ctx, fetchSubject(peer), b)
	if err != nil {
		return FetchResponse{}, fmt.Errorf("swarm: request fetch from %s: %w", peer, err)
	}
	var resp FetchResponse
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return FetchResponse{}, fmt.Errorf("swarm: unmarshal fetch response: %w", err)
	}
	if resp.Err != "" {
		return resp, fmt.Errorf("swarm: peer %s rejected fetch: %s", peer, resp.Err)
	}
	return resp, nil
}

// ServeFetch subscribes this node's fetch subject and answers every
// incoming FetchRequest with handler's result.
func (e *Embedded) ServeFetch(handler func(FetchRequest) (FetchResponse, error)) error {
	_, err := e.conn.Subscribe(fetchSubject(e.self), func(msg *natsgo.Msg) {
		var req FetchRequest
		resp := FetchResponse{}
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			resp.Err = err.Error()
		} else if r, err := handler(req); err != nil {
			resp.Err = err.Error()
		} else {
			resp = r
		}
		b, err := json.Marshal(resp)
		if err != nil {
			return
		}
		_ = msg.Respond(b)
	})
	if err != nil {
		return fmt.Errorf("swarm: subscribe fetch inbox: %w", err)
	}
	return nil
}
