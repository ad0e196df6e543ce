// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package codec centralizes the two wire encodings Actyx uses: canonical
// deterministic CBOR for signed artifacts (manifests, certificates,
// licenses, tokens) via github.com/fxamacker/cbor/v2, and fast JSON via
// github.com/goccy/go-json for request/response bodies and NDJSON framing.
package codec

import (
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
	once    sync.Once
	initErr error
)

// init configures deterministic, canonical CBOR encoding: map
// keys are sorted per RFC 8949 §4.2.1 (bytewise lexicographic), matching
// the requirement that signatures are computed over one unambiguous byte
// string (spec.md §3, ManifestSignature / DeveloperCertificate / AppLicense).
func init() {
	once.Do(func() {
		opts := cbor.CanonicalEncOptions()
		var err error
		encMode, err = opts.EncMode()
		if err != nil {
			initErr = fmt.Errorf("build canonical CBOR encoder: %w", err)
			return
		}
		decMode, err = cbor.DecOptions{}.DecMode()
		if err != nil {
			initErr = fmt.Errorf("build CBOR decoder: %w", err)
		}
	})
}

// MarshalCBOR encodes v using canonical (deterministic, sorted-map-key) CBOR.
// Two calls with equal input always produce byte-identical output, which is
// the property signature verification depends on.
func MarshalCBOR(v interface{}) ([]byte, error) {
	if initErr != nil {
		return nil, initErr
	}
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal: %w", err)
	}
	return b, nil
}

// UnmarshalCBOR decodes canonical CBOR into v.
func UnmarshalCBOR(data []byte, v interface{}) error {
	if initErr != nil {
		return initErr
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cbor unmarshal: %w", err)
	}
	return nil
}
