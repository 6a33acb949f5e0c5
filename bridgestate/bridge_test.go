// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridgestate

import (
	"context"
	"testing"

	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/principal"
	"github.com/dogebridge/core/wire"
	"github.com/dogebridge/core/zkverify"
	"github.com/stretchr/testify/require"
)

func genesis(height uint32, hash byte) wire.StateCommitment {
	c := wire.StateCommitment{BlockHeight: height}
	c.BlockHash[0] = hash
	return c
}

func TestInitializeOnce(t *testing.T) {
	require := require.New(t)
	s := New()
	operator := principal.Derive("operator")
	err := s.Initialize(operator, operator, operator, wire.BridgeConfig{}, genesis(0, 0), wire.ReturnTxOutput{}, [32]byte{})
	require.NoError(err)
	require.ErrorIs(s.Initialize(operator, operator, operator, wire.BridgeConfig{}, genesis(0, 0), wire.ReturnTxOutput{}, [32]byte{}), bridgeerrors.ErrAlreadyProcessed)
}

func TestBlockUpdateHappyPath(t *testing.T) {
	require := require.New(t)
	s := New()
	operator := principal.Derive("operator")
	require.NoError(s.Initialize(operator, operator, operator, wire.BridgeConfig{}, genesis(0, 0), wire.ReturnTxOutput{}, [32]byte{}))

	v := zkverify.NewMock()
	newHeader := wire.BridgeHeader{
		Tip:       genesis(1, 1),
		Finalized: genesis(1, 1),
	}
	var snapRoot [32]byte
	newHeader.BridgeStateHash = s.StateHash(snapRoot)

	mintHash := newHeader.Tip.PendingMintsFinalizedHash
	txoHash := newHeader.Tip.TxoOutputListFinalizedHash

	inputs := zkverify.NewInputs().
		Push(s.Finalized.BlockHash).
		Push(newHeader.Tip.BlockHash).
		Push(newHeader.Finalized.BlockHash).
		Push(newHeader.BridgeStateHash).
		Push(mintHash).
		Push(txoHash).
		Push(newHeader.Tip.AutoClaimedTxoTreeRoot).
		Push(s.ReturnUTXO.Commitment()).
		Build()
	proof := zkverify.Fingerprint(nil, inputs)

	err := s.BlockUpdate(context.Background(), v, BlockUpdateInput{
		Caller:              operator,
		NewHeader:           newHeader,
		Proof:               proof,
		MintBufferHash:      mintHash,
		TxoBufferHash:       txoHash,
		SnapshotRingRootOld: snapRoot,
	})
	require.NoError(err)
	require.Equal(uint32(1), s.Tip.BlockHeight)
	require.Equal(uint32(1), s.Finalized.BlockHeight)
}

func TestBlockUpdateRejectsWrongOperator(t *testing.T) {
	require := require.New(t)
	s := New()
	operator := principal.Derive("operator")
	other := principal.Derive("other")
	require.NoError(s.Initialize(operator, operator, operator, wire.BridgeConfig{}, genesis(0, 0), wire.ReturnTxOutput{}, [32]byte{}))

	err := s.BlockUpdate(context.Background(), zkverify.NewMock(), BlockUpdateInput{
		Caller:    other,
		NewHeader: wire.BridgeHeader{Tip: genesis(1, 1), Finalized: genesis(1, 1)},
	})
	require.Error(err)
}

func TestBlockUpdateRejectsReorgDepthExceeded(t *testing.T) {
	require := require.New(t)
	s := New()
	operator := principal.Derive("operator")
	require.NoError(s.Initialize(operator, operator, operator, wire.BridgeConfig{}, genesis(0, 0), wire.ReturnTxOutput{}, [32]byte{}))

	err := s.BlockUpdate(context.Background(), zkverify.NewMock(), BlockUpdateInput{
		Caller:    operator,
		NewHeader: wire.BridgeHeader{Tip: genesis(11, 1), Finalized: genesis(0, 0)},
	})
	require.ErrorIs(err, bridgeerrors.ErrHeightMismatch)
}
