// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/eventstore"
	"github.com/actyx-go/actyx/internal/model"
)

// Config is everything a Swarm needs to bind and participate in gossip,
// sourced from internal/config's swarm scope.
type Config struct {
	Self              model.NodeId
	BindPort          int
	PSK               *PSK
	InitialPeers      []string
	AnnounceAddresses []string
	DiscoveryInterval time.Duration
}

// Swarm ties discovery, the PSK handshake, the per-peer state machine,
// the embedded gossip transport, and the catch-up queue together into
// the single running component the supervisor tree starts and stops,
// feeding every event it pulls from peers into an eventstore.Store.
type Swarm struct {
	cfg     Config
	store   *eventstore.Store
	book    *PeerBook
	breaker *BreakerRegistry
	catchup *CatchupQueue
	embed   *Embedded
	announc *MDNSAnnouncer
	log     zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Swarm bound to store, ready for Start.
func New(cfg Config, store *eventstore.Store, log zerolog.Logger) *Swarm {
	if cfg.DiscoveryInterval == 0 {
		cfg.DiscoveryInterval = 30 * time.Second
	}
	return &Swarm{
		cfg:     cfg,
		store:   store,
		book:    NewPeerBook(),
		breaker: NewBreakerRegistry(),
		catchup: NewCatchupQueue(),
		log:     log.With().Str("component", "swarm").Logger(),
	}
}

// Start seeds the peer book, begins LAN discovery, boots the embedded
// gossip transport, and launches the background loops driving handshake,
// gossip, and catch-up. It returns once the transport is listening;
// the background loops keep running until Stop is called.
func (s *Swarm) Start(ctx context.Context) error {
	if err := SeedInitialPeers(s.book, s.cfg.InitialPeers); err != nil {
		return fmt.Errorf("swarm: seed initial peers: %w", err)
	}

	announcer, err := StartAnnouncing(s.cfg.Self, s.cfg.BindPort, s.cfg.AnnounceAddresses)
	if err != nil {
		return fmt.Errorf("swarm: start mDNS announcer: %w", err)
	}
	s.announc = announcer

	logger := watermillLogAdapter{s.log}
	embed, err := StartEmbedded(s.cfg.Self, 0, logger)
	if err != nil {
		return fmt.Errorf("swarm: start embedded gossip transport: %w", err)
	}
	s.embed = embed

	embed.OnAdvert(s.handleAdvert)
	if err := embed.ServeFetch(s.serveFetch); err != nil {
		return fmt.Errorf("swarm: serve fetch requests: %w", err)
	}
	if err := embed.ServeHandshake(s.cfg.PSK); err != nil {
		return fmt.Errorf("swarm: serve handshake requests: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := embed.Run(runCtx); err != nil && runCtx.Err() == nil {
			s.log.Error().Err(err).Msg("swarm: gossip router exited")
		}
	}()

	s.wg.Add(1)
	go s.discoveryLoop(runCtx)

	s.wg.Add(1)
	go s.handshakeLoop(runCtx)

	s.wg.Add(1)
	go s.gossipLoop(runCtx)

	return nil
}

// Stop cancels every background loop and tears down the transport,
// waiting for all of them to exit.
func (s *Swarm) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if s.announc != nil {
		_ = s.announc.Close()
	}
	if s.embed != nil {
		return s.embed.Close()
	}
	return nil
}

// Peers reports every peer currently known, for the admin inspect
// endpoint.
func (s *Swarm) Peers() []Peer {
	return s.book.Snapshot()
}

// Info is the shape the Admin channel's inspect() operation reports
// (spec.md §4.6).
type Info struct {
	PeerId        model.NodeId
	ListenAddrs   []string
	AnnounceAddrs []string
	Peers         []Peer
}

// Inspect reports this node's identity, listen/announce addresses, and
// known peers for the Admin channel's inspect() operation.
func (s *Swarm) Inspect() Info {
	return Info{
		PeerId:        s.cfg.Self,
		ListenAddrs:   []string{fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", s.cfg.BindPort)},
		AnnounceAddrs: s.cfg.AnnounceAddresses,
		Peers:         s.book.Snapshot(),
	}
}

func (s *Swarm) discoveryLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.DiscoveryInterval)
	defer ticker.Stop()
	DiscoverLAN(ctx, s.book, s.cfg.Self, 5*time.Second, s.log)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			DiscoverLAN(ctx, s.book, s.cfg.Self, 5*time.Second, s.log)
			refreshPeerGauges(s.book.Snapshot())
		}
	}
}

// handshakeLoop drives every Discovered or backoff-ready peer through the
// PSK challenge-response, dropping it to Disconnected on failure
// (spec.md §4.4: "any peer failing the PSK handshake is dropped").
func (s *Swarm) handshakeLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, p := range s.book.ReadyForRetry(now) {
				_ = p.Transition(Discovered)
			}
			for _, p := range s.book.Discovered() {
				s.attemptHandshake(p)
			}
		}
	}
}

func (s *Swarm) attemptHandshake(p *Peer) {
	if err := p.Transition(Handshaking); err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.breaker.Execute(p.Id, func() error {
		return s.embed.RequestHandshake(ctx, s.cfg.PSK, p.Id)
	})
	if err != nil {
		HandshakesTotal.WithLabelValues("failed").Inc()
		s.log.Warn().Str("peer", p.Id.String()).Err(err).Msg("swarm: PSK handshake failed")
		_ = p.Transition(Disconnected)
		p.NextBackoff(time.Now())
		return
	}
	if err := p.Transition(Connected); err != nil {
		s.log.Warn().Str("peer", p.Id.String()).Err(err).Msg("swarm: unexpected state after handshake")
		return
	}
	HandshakesTotal.WithLabelValues("ok").Inc()
	p.ResetBackoff()
	s.log.Info().Str("peer", p.Id.String()).Msg("swarm: peer connected")
}

// gossipLoop advertises this node's offsets to every Connected peer and
// pulls whatever they are missing, every GossipInterval.
func (s *Swarm) gossipLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(GossipInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.gossipRound(ctx)
			refreshBreakerGauges(s.breaker.States())
		}
	}
}

func (s *Swarm) gossipRound(_ context.Context) {
	present, _ := s.store.Offsets(nil)
	advert := OffsetAdvert{Node: s.cfg.Self, Offsets: present, AnnounceAddresses: s.cfg.AnnounceAddresses}
	for _, p := range s.book.Connected() {
		if err := s.embed.PublishAdvert(p.Id, advert); err != nil {
			s.log.Warn().Str("peer", p.Id.String()).Err(err).Msg("swarm: publish offset advert failed")
			continue
		}
		GossipAdvertsSent.Inc()
	}
}

// handleAdvert reacts to an incoming peer OffsetAdvert: it computes what
// we are missing and claims+fetches it, feeding the result into the
// store.
func (s *Swarm) handleAdvert(advert OffsetAdvert) error {
	GossipAdvertsReceived.Inc()
	peer, ok := s.book.Get(advert.Node)
	if !ok || peer.State != Connected {
		return nil
	}
	peer.Offsets = advert.Offsets

	present, toReplicate := s.store.Offsets(advert.Offsets)
	if len(toReplicate) == 0 {
		return nil
	}

	if err := peer.Transition(CatchingUp); err != nil {
		return nil
	}
	defer func() { _ = peer.Transition(Connected) }()

	events, err := RunCatchup(context.Background(), s.catchup, s.breaker, peer.Id, s.cfg.Self.String(), toReplicate, present, s.fetchFromPeer)
	if len(events) > 0 {
		if ingestErr := s.store.Ingest(events); ingestErr != nil {
			CatchupFetchErrors.WithLabelValues(peer.Id.String()).Inc()
			return fmt.Errorf("swarm: ingest catch-up events from %s: %w", peer.Id, ingestErr)
		}
		CatchupEventsIngested.WithLabelValues(peer.Id.String()).Add(float64(len(events)))
	}
	if err != nil {
		CatchupFetchErrors.WithLabelValues(peer.Id.String()).Inc()
	}
	return err
}

// fetchFromPeer performs one outbound chunk fetch and waits for the
// peer's reply.
func (s *Swarm) fetchFromPeer(ctx context.Context, peer model.NodeId, req FetchRequest) (FetchResponse, error) {
	return s.embed.RequestFetch(ctx, peer, req)
}

// serveFetch answers an incoming FetchRequest by scanning the local
// store for the requested range.
func (s *Swarm) serveFetch(req FetchRequest) (FetchResponse, error) {
	lower := model.OffsetMap{req.Stream: req.From - 1}
	upper := model.OffsetMap{req.Stream: req.To}
	ch, err := s.store.Query(context.Background(), lower, upper, model.AllEventsPredicate{}, eventstore.StreamAscending)
	if err != nil {
		return FetchResponse{}, err
	}
	var events []model.Event
	for r := range ch {
		events = append(events, r.Event)
	}
	return FetchResponse{Events: events}, nil
}

type watermillLogAdapter struct{ log zerolog.Logger }

func (a watermillLogAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error().Err(err).Fields(map[string]interface{}(fields)).Msg(msg)
}
func (a watermillLogAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info().Fields(map[string]interface{}(fields)).Msg(msg)
}
func (a watermillLogAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug().Fields(map[string]interface{}(fields)).Msg(msg)
}
func (a watermillLogAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Trace().Fields(map[string]interface{}(fields)).Msg(msg)
}
func (a watermillLogAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogAdapter{a.log.With().Fields(map[string]interface{}(fields)).Logger()}
}
