// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"context"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/model"
)

// ServiceName is the mDNS service type Actyx nodes announce themselves
// under (spec.md §4.4, discovery source 1).
const ServiceName = "_actyx-swarm._tcp"

// MDNSAnnouncer advertises this node on the local network so peers can
// discover it without a static initialPeers entry.
type MDNSAnnouncer struct {
	server *mdns.Server
}

// StartAnnouncing registers an mDNS service record for this node,
// advertising hostPort and the given TXT record (used to carry the
// node's encoded NodeId so discoverers can dial /p2p/<peerId>).
func StartAnnouncing(self model.NodeId, port int, announceAddrs []string) (*MDNSAnnouncer, error) {
	info := []string{"actyx-node=" + self.String()}
	service, err := mdns.NewMDNSService(self.String(), ServiceName, "", "", port, nil, info)
	if err != nil {
		return nil, err
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, err
	}
	return &MDNSAnnouncer{server: server}, nil
}

// Close stops advertising.
func (a *MDNSAnnouncer) Close() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// DiscoverLAN runs one mDNS lookup round and reports the peers found,
// folding each into book as Discovered (spec.md §4.4, discovery source
// 1). It returns once the lookup timeout elapses.
func DiscoverLAN(ctx context.Context, book *PeerBook, self model.NodeId, timeout time.Duration, log zerolog.Logger) {
	entries := make(chan *mdns.ServiceEntry, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range entries {
			addr, id, ok := parseMDNSEntry(e)
			if !ok || id == self {
				continue
			}
			book.Discover(id, addr)
			log.Debug().Str("peer", id.String()).Str("addr", addr.String()).Msg("swarm: discovered peer via mDNS")
		}
	}()

	params := mdns.DefaultParams(ServiceName)
	params.Timeout = timeout
	params.Entries = entries
	if err := mdns.Query(params); err != nil {
		log.Warn().Err(err).Msg("swarm: mDNS discovery round failed")
	}
	close(entries)
	<-done
}

func parseMDNSEntry(e *mdns.ServiceEntry) (Multiaddr, model.NodeId, bool) {
	var encoded string
	for _, field := range e.InfoFields {
		if len(field) > len("actyx-node=") && field[:len("actyx-node=")] == "actyx-node=" {
			encoded = field[len("actyx-node="):]
		}
	}
	if encoded == "" {
		return Multiaddr{}, model.NodeId{}, false
	}
	id, err := model.ParseNodeId(encoded)
	if err != nil {
		return Multiaddr{}, model.NodeId{}, false
	}
	ip := e.AddrV4.String()
	if e.AddrV4 == nil {
		ip = e.Addr.String()
	}
	return Multiaddr{IP: ip, Port: e.Port, Peer: id}, id, true
}

// SeedInitialPeers parses swarm.initialPeers and folds each into book as
// Discovered (spec.md §4.4, discovery source 2).
func SeedInitialPeers(book *PeerBook, raw []string) error {
	addrs, err := ParseMultiaddrs(raw)
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		if addr.Peer.IsZero() {
			continue
		}
		book.Discover(addr.Peer, addr)
	}
	return nil
}

// PropagateAddressBook folds addresses advertised by an already-connected
// peer into book as Discovered entries (spec.md §4.4, discovery source 3).
func PropagateAddressBook(book *PeerBook, advertised []Multiaddr) {
	for _, addr := range advertised {
		if addr.Peer.IsZero() {
			continue
		}
		book.Discover(addr.Peer, addr)
	}
}
