// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package nodectx

import (
	"crypto/ed25519"

	"github.com/rs/zerolog"

	"github.com/actyx-go/actyx/internal/crypto"
)

// rootPublicKey is the Actyx root public key baked into the binary at
// build time (internal/auth/manifest.go's Verifier), overridable with
// -ldflags "-X ...rootPublicKey=<base64>". It gates signed developer
// certificates; unsigned trial manifests (auth.DevelopmentMode) never
// consult it.
var rootPublicKey string

// resolveRootKey decodes the build-time root key, or mints an ephemeral
// one with a loud warning when none was baked in. A node running this
// way can still issue trial tokens; it simply cannot verify any
// developer certificate chain, since there is no real chain to check it
// against.
func resolveRootKey(log zerolog.Logger) ed25519.PublicKey {
	if rootPublicKey != "" {
		if pub, err := crypto.DecodePublicKey(rootPublicKey); err == nil {
			return ed25519.PublicKey(pub)
		}
		log.Error().Msg("nodectx: built-in root public key is malformed, falling back to an ephemeral one")
	}

	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		log.Fatal().Err(err).Msg("nodectx: generate ephemeral root key")
	}
	log.Warn().Msg("nodectx: no root public key baked in; generated an ephemeral one for this run. Signed developer certificates will not verify; unsigned trial manifests are unaffected")
	return kp.Public
}
