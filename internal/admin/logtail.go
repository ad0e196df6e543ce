// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package admin

import (
	"sync"

	"github.com/rs/zerolog"
)

// logTailBacklog is how many recent lines a new logs_tail subscriber
// receives immediately, before live lines start arriving (spec.md §4.4's
// "lines" request parameter, bounded so a late subscriber still sees
// some history).
const logTailBacklog = 200

// LogBroadcaster fans out every log line written through it to any
// number of logs_tail subscribers, using the same register/unregister/
// broadcast shape as the Admin channel's other hub-style fan-out, but
// carrying plain log lines rather than a typed wire message.
type LogBroadcaster struct {
	mu      sync.Mutex
	subs    map[chan string]struct{}
	history []string
}

// NewLogBroadcaster creates an empty broadcaster. Wire it into
// cmd/server's zerolog setup as an io.Writer (via Write) alongside the
// process's normal log output.
func NewLogBroadcaster() *LogBroadcaster {
	return &LogBroadcaster{subs: make(map[chan string]struct{})}
}

// Write implements io.Writer so the broadcaster can be used as a
// zerolog.MultiLevelWriter member, capturing every line the node logs.
func (b *LogBroadcaster) Write(p []byte) (int, error) {
	line := string(p)

	b.mu.Lock()
	b.history = append(b.history, line)
	if len(b.history) > logTailBacklog {
		b.history = b.history[len(b.history)-logTailBacklog:]
	}
	for ch := range b.subs {
		select {
		case ch <- line:
		default:
			// Slow subscriber: drop the line rather than block log writes.
		}
	}
	b.mu.Unlock()

	return len(p), nil
}

// Subscribe registers a new logs_tail listener and returns its channel
// plus up to `lines` of backlog (0, or a value above the retained history,
// meaning all retained lines). Call Unsubscribe
// when the connection closes.
func (b *LogBroadcaster) Subscribe(lines int) (chan string, []string) {
	ch := make(chan string, 64)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}

	if lines <= 0 || lines > len(b.history) {
		lines = len(b.history)
	}
	backlog := append([]string(nil), b.history[len(b.history)-lines:]...)
	return ch, backlog
}

// Unsubscribe removes and closes ch.
func (b *LogBroadcaster) Unsubscribe(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

var _ zerolog.LevelWriter = (*levelLogBroadcaster)(nil)

// levelLogBroadcaster adapts LogBroadcaster to zerolog.LevelWriter so it
// can be combined with the process's normal writer via
// zerolog.MultiLevelWriter without every line being written twice at
// different levels.
type levelLogBroadcaster struct{ *LogBroadcaster }

func (l levelLogBroadcaster) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	return l.Write(p)
}
