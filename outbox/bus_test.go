// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package outbox

import (
	"testing"

	"github.com/luxfi/crypto/bls"
	"github.com/stretchr/testify/require"
)

func TestBusEmitAssignsIncreasingSequence(t *testing.T) {
	b := NewBus()
	seq0 := b.Emit("withdrawal", [32]byte{1})
	seq1 := b.Emit("withdrawal", [32]byte{2})
	seq2 := b.Emit("custodian", [32]byte{3})
	require.EqualValues(t, 0, seq0)
	require.EqualValues(t, 1, seq1)
	require.EqualValues(t, 2, seq2)
}

func TestBusLastAndAllFilterByTopic(t *testing.T) {
	b := NewBus()
	b.Emit("withdrawal", [32]byte{1})
	b.Emit("custodian", [32]byte{9})
	b.Emit("withdrawal", [32]byte{2})

	last, ok := b.Last("withdrawal")
	require.True(t, ok)
	require.Equal(t, [32]byte{2}, last.Payload)

	all := b.All("withdrawal")
	require.Len(t, all, 2)
	require.Equal(t, [32]byte{1}, all[0].Payload)
	require.Equal(t, [32]byte{2}, all[1].Payload)

	_, ok = b.Last("unknown")
	require.False(t, ok)
}

func TestVerifyAttestationRoundTrip(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	sk, err := bls.SecretKeyFromSeed(seed)
	require.NoError(t, err)
	pk := sk.PublicKey()

	payload := [32]byte{0xAB}
	sig, err := sk.Sign(payload[:])
	require.NoError(t, err)

	att := BLSAttestation{Sequence: 7, Payload: payload, AggregateSig: sig}
	require.True(t, VerifyAttestation(pk, att))
	require.NotEmpty(t, att.Bytes())

	wrongPayload := att
	wrongPayload.Payload = [32]byte{0xCD}
	require.False(t, VerifyAttestation(pk, wrongPayload))

	empty := BLSAttestation{Sequence: 7, Payload: payload}
	require.Nil(t, empty.Bytes())
	require.False(t, VerifyAttestation(pk, empty))
}
