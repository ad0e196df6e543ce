// Actyx - decentralized event database and streaming engine
// SPDX-License-Identifier: AGPL-3.0-or-later

package swarm

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPSKChallengeResponseRoundTrip(t *testing.T) {
	psk, raw, err := GeneratePSK()
	require.NoError(t, err)
	require.Len(t, raw, PSKKeySize)

	challenge, plaintext, err := psk.IssueChallenge()
	require.NoError(t, err)

	opened, err := psk.Open(challenge)
	require.NoError(t, err)
	require.True(t, Verify(plaintext, opened))
}

func TestPSKOpenFailsUnderMismatchedKey(t *testing.T) {
	a, _, err := GeneratePSK()
	require.NoError(t, err)
	b, _, err := GeneratePSK()
	require.NoError(t, err)

	challenge, _, err := a.IssueChallenge()
	require.NoError(t, err)

	_, err = b.Open(challenge)
	require.ErrorIs(t, err, ErrHandshakeFailed)
}

func TestDecodePSKRoundTripsGeneratedKey(t *testing.T) {
	_, raw, err := GeneratePSK()
	require.NoError(t, err)

	encoded := base64.StdEncoding.EncodeToString(raw)
	decoded, err := DecodePSK(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, decoded.key[:])
}

func TestVerifyRejectsLengthMismatch(t *testing.T) {
	require.False(t, Verify([]byte("short"), []byte("longer-value")))
}
