// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package codec

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Marshal and Unmarshal re-export goccy/go-json's drop-in encoding/json
// replacement so callers never import encoding/json directly.
var (
	Marshal   = json.Marshal
	Unmarshal = json.Unmarshal
)

// NDJSONWriter streams one independent JSON object per line
// (application/x-ndjson, spec.md §4.5 Streaming framing). It flushes after
// every frame so subscribers see events as they are produced rather than
// buffered until the response closes.
type NDJSONWriter struct {
	w       *bufio.Writer
	flusher interface{ Flush() }
}

// NewNDJSONWriter wraps an io.Writer. If w also implements an http.Flusher
// (or any type exposing Flush()), pass it as flusher so WriteFrame can push
// bytes to the client immediately.
func NewNDJSONWriter(w io.Writer, flusher interface{ Flush() }) *NDJSONWriter {
	return &NDJSONWriter{w: bufio.NewWriter(w), flusher: flusher}
}

// WriteFrame marshals v and writes it as one NDJSON line, then flushes.
func (n *NDJSONWriter) WriteFrame(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ndjson marshal frame: %w", err)
	}
	if _, err := n.w.Write(b); err != nil {
		return fmt.Errorf("ndjson write frame: %w", err)
	}
	if err := n.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("ndjson write newline: %w", err)
	}
	if err := n.w.Flush(); err != nil {
		return fmt.Errorf("ndjson flush: %w", err)
	}
	if n.flusher != nil {
		n.flusher.Flush()
	}
	return nil
}

// WriteKeepAlive writes an empty line, permitted by spec.md §4.5 as a
// keep-alive that readers must ignore.
func (n *NDJSONWriter) WriteKeepAlive() error {
	if _, err := n.w.WriteString("\n"); err != nil {
		return fmt.Errorf("ndjson keep-alive: %w", err)
	}
	if err := n.w.Flush(); err != nil {
		return err
	}
	if n.flusher != nil {
		n.flusher.Flush()
	}
	return nil
}

// NDJSONScanner reads one JSON value per line, skipping blank keep-alive
// lines, until ctx is canceled or the stream ends.
type NDJSONScanner struct {
	sc  *bufio.Scanner
	ctx context.Context
}

func NewNDJSONScanner(ctx context.Context, r io.Reader) *NDJSONScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &NDJSONScanner{sc: sc, ctx: ctx}
}

// Next decodes the next non-blank line into v. It returns io.EOF when the
// stream is exhausted and ctx.Err() if the context is canceled first.
func (s *NDJSONScanner) Next(v interface{}) error {
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		default:
		}
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return fmt.Errorf("ndjson scan: %w", err)
			}
			return io.EOF
		}
		line := s.sc.Bytes()
		if len(line) == 0 {
			continue // keep-alive
		}
		if err := json.Unmarshal(line, v); err != nil {
			return fmt.Errorf("ndjson unmarshal: %w", err)
		}
		return nil
	}
}
