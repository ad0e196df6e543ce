// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/actyx-go/actyx/internal/model"
)

// Multiaddr is a parsed "/ip4/<addr>/tcp/<port>/p2p/<peerId>" address
// (spec.md §4.4 initialPeers / announceAddresses).
type Multiaddr struct {
	IP   string
	Port int
	Peer model.NodeId // zero value if the address carries no /p2p/ component
	raw  string
}

func (m Multiaddr) String() string {
	if m.raw != "" {
		return m.raw
	}
	if m.Peer.IsZero() {
		return fmt.Sprintf("/ip4/%s/tcp/%d", m.IP, m.Port)
	}
	return fmt.Sprintf("/ip4/%s/tcp/%d/p2p/%s", m.IP, m.Port, m.Peer.String())
}

// HostPort renders the dial address "ip:port" for net.Dial.
func (m Multiaddr) HostPort() string {
	return fmt.Sprintf("%s:%d", m.IP, m.Port)
}

// ParseMultiaddr parses the subset of the multiaddr grammar spec.md §4.4
// requires: /ip4/<addr>/tcp/<port>[/p2p/<peerId>].
func ParseMultiaddr(s string) (Multiaddr, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	if len(parts) < 4 || parts[0] != "ip4" || parts[2] != "tcp" {
		return Multiaddr{}, fmt.Errorf("parse multiaddr %q: expected /ip4/<addr>/tcp/<port>[/p2p/<peerId>]", s)
	}
	port, err := strconv.Atoi(parts[3])
	if err != nil {
		return Multiaddr{}, fmt.Errorf("parse multiaddr %q: bad port: %w", s, err)
	}
	m := Multiaddr{IP: parts[1], Port: port, raw: s}
	if len(parts) >= 6 && parts[4] == "p2p" {
		id, err := model.ParseNodeId(parts[5])
		if err != nil {
			return Multiaddr{}, fmt.Errorf("parse multiaddr %q: bad peer id: %w", s, err)
		}
		m.Peer = id
	}
	return m, nil
}

// ParseMultiaddrs parses a list, failing on the first invalid entry.
func ParseMultiaddrs(raw []string) ([]Multiaddr, error) {
	out := make([]Multiaddr, 0, len(raw))
	for _, s := range raw {
		m, err := ParseMultiaddr(s)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
