// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package topic manages which on-disk event-store database is active for a
// node. A topic name selects a directory under the node's working
// directory; switching the topic atomically swaps the active
// *eventstore.Store while leaving the old topic's files untouched on disk
// (spec.md §3, Topic and §2 Topic manager).
package topic

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/eventstore"
	"github.com/actyx-go/actyx/internal/model"
)

// Manager owns the currently active Store and swaps it when the node's
// swarm.topic setting changes.
type Manager struct {
	mu       sync.RWMutex
	workDir  string
	self     model.NodeId
	log      zerolog.Logger
	current  *eventstore.Store
	curTopic string
}

// New opens the initial topic's store and returns a Manager bound to it.
func New(workDir string, self model.NodeId, initialTopic string, log zerolog.Logger) (*Manager, error) {
	m := &Manager{workDir: workDir, self: self, log: log.With().Str("component", "topic").Logger()}
	if err := m.Switch(initialTopic); err != nil {
		return nil, err
	}
	return m, nil
}

// Store returns the currently active event store. Callers must not retain
// the pointer across a Switch; fetch it again (or hold the RLock window
// briefly) if they need a consistent view across a config reload.
func (m *Manager) Store() *eventstore.Store {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Topic returns the name of the currently active topic.
func (m *Manager) Topic() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.curTopic
}

// Switch opens (or creates) the database for name and makes it the active
// store, closing the previous one. Events already on disk under the
// previous topic remain there, simply inactive, per the topic invariant.
func (m *Manager) Switch(name string) error {
	if name == "" {
		return fmt.Errorf("switch topic: name must not be empty")
	}
	path := filepath.Join(m.workDir, "store", sanitizeTopic(name))
	cfg := eventstore.DefaultConfig(path)

	next, err := eventstore.Open(cfg, m.self, m.log)
	if err != nil {
		return fmt.Errorf("switch topic %q: %w", name, err)
	}

	m.mu.Lock()
	prev := m.current
	m.current = next
	m.curTopic = name
	m.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			m.log.Warn().Err(err).Str("topic", name).Msg("error closing previous topic store")
		}
	}
	m.log.Info().Str("topic", name).Str("path", path).Msg("topic switched")
	return nil
}

// Close closes the active store.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.Close()
}

// sanitizeTopic keeps topic names filesystem-safe; Actyx topic names are
// free-form UTF-8 but the directory they map to must not escape workDir.
func sanitizeTopic(name string) string {
	return filepath.Base(filepath.Clean(name))
}
