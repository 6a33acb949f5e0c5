// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridgestate is the bridge's tip/finalized state and the
// block_update/process_reorg_blocks transition logic of spec.md §4.5.
// It holds the ancillary mutable fields bridge_state_hash binds
// together; the hash is not stored but computed from them on demand by
// StateHash, which BlockUpdate compares against the proposed header.
package bridgestate

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/dogebridge/core/bridgeconfig"
	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/principal"
	"github.com/dogebridge/core/wire"
	"github.com/dogebridge/core/zkverify"
)

// State is the bridge's tip/finalized commitments plus every ancillary
// field folded into bridge_state_hash (spec.md §3 invariant). It is
// not safe for concurrent use; engine.Bridge serializes access with
// its own mutex, matching "the host serializes conflicting mutations
// by account" (spec.md §5).
type State struct {
	initialized bool

	Operator   principal.Principal
	FeeSpender principal.Principal
	WrappedMint principal.Principal

	Config wire.BridgeConfig

	Tip       wire.StateCommitment
	Finalized wire.StateCommitment

	ReturnUTXO wire.ReturnTxOutput

	LastRollbackAtSecs                      uint32
	PausedUntilSecs                         uint32
	TotalFinalizedFeesCollectedChainHistory uint64

	// SpentTxoTreeRoot is the withdrawal-side spent-UTXO commitment
	// rotated by process_withdrawal (spec.md §4.7 step 4).
	SpentTxoTreeRoot [32]byte

	// ManualClaimTxoTreeRoot is the global manual-claim commitment
	// updated by process_manual_deposit (spec.md §4.6).
	ManualClaimTxoTreeRoot [32]byte

	NextWithdrawalIndex           uint64
	NextProcessedWithdrawalsIndex uint64

	CustodianHash [32]byte
}

// New returns an uninitialized State; Initialize must be called once
// before any other operation.
func New() *State {
	return &State{}
}

// Initialize sets the bridge's fixed identity and initial values
// (spec.md §4.5 "initialize: once"). Returns ErrAlreadyProcessed if
// called twice.
func (s *State) Initialize(operator, feeSpender, wrappedMint principal.Principal, cfg wire.BridgeConfig, genesis wire.StateCommitment, initialReturn wire.ReturnTxOutput, initialCustodianHash [32]byte) error {
	if s.initialized {
		return bridgeerrors.ErrAlreadyProcessed
	}
	s.Operator = operator
	s.FeeSpender = feeSpender
	s.WrappedMint = wrappedMint
	s.Config = cfg
	s.Tip = genesis
	s.Finalized = genesis
	s.ReturnUTXO = initialReturn
	s.CustodianHash = initialCustodianHash
	s.initialized = true
	return nil
}

// StateHash recomputes bridge_state_hash: the domain-separated SHA-256
// of every ancillary mutable field named in spec.md §3's invariant.
// snapshotRingRoot is supplied by the caller (withdrawal.SnapshotRing
// owns that commitment; bridgestate only folds it in, to avoid an
// import cycle between the two packages).
func (s *State) StateHash(snapshotRingRoot [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte("dogebridge/bridgestate/state-hash/v1"))
	cfgBytes, _ := s.Config.MarshalBinary()
	h.Write(cfgBytes)
	h.Write(s.Operator[:])
	h.Write(s.FeeSpender[:])
	h.Write(s.WrappedMint[:])
	returnCommit := s.ReturnUTXO.Commitment()
	h.Write(returnCommit[:])
	h.Write(snapshotRingRoot[:])
	var idxBuf [8]byte
	binary.LittleEndian.PutUint64(idxBuf[:], s.NextWithdrawalIndex)
	h.Write(idxBuf[:])
	binary.LittleEndian.PutUint64(idxBuf[:], s.NextProcessedWithdrawalsIndex)
	h.Write(idxBuf[:])
	h.Write(s.ManualClaimTxoTreeRoot[:])
	var feeBuf [8]byte
	binary.LittleEndian.PutUint64(feeBuf[:], s.TotalFinalizedFeesCollectedChainHistory)
	h.Write(feeBuf[:])
	h.Write(s.CustodianHash[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Header assembles the wire.BridgeHeader a caller would submit to
// reproduce the current state, binding StateHash(snapshotRingRoot).
func (s *State) Header(snapshotRingRoot [32]byte) wire.BridgeHeader {
	return wire.BridgeHeader{
		Tip:                                     s.Tip,
		Finalized:                               s.Finalized,
		BridgeStateHash:                         s.StateHash(snapshotRingRoot),
		LastRollbackAtSecs:                      s.LastRollbackAtSecs,
		PausedUntilSecs:                         s.PausedUntilSecs,
		TotalFinalizedFeesCollectedChainHistory: s.TotalFinalizedFeesCollectedChainHistory,
	}
}

// Paused reports whether the bridge is currently pause-gated, per the
// PausedUntilSecs field set by a custodian transition (spec.md §4.8).
func (s *State) Paused(nowSecs uint32) bool {
	return nowSecs < s.PausedUntilSecs
}

// BlockUpdateInput carries every external input to block_update
// (spec.md §4.5) beyond the receiver's own current state.
type BlockUpdateInput struct {
	Caller              principal.Principal
	NowSecs             uint32
	Proof               [256]byte
	VerifyingKey        []byte
	NewHeader           wire.BridgeHeader
	MintBufferHash      [32]byte
	TxoBufferHash       [32]byte
	SnapshotRingRootOld [32]byte
	SnapshotRingRootNew [32]byte
	FeeDelta            uint64
}

// BlockUpdate implements spec.md §4.5 block_update: verifies
// preconditions, buffer-hash and state-hash agreement, then the proof
// itself, and on success atomically advances tip/finalized.
func (s *State) BlockUpdate(ctx context.Context, v zkverify.Verifier, in BlockUpdateInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.initialized {
		return bridgeerrors.Wrapf(bridgeerrors.ErrUnauthorized, "bridge state: not initialized")
	}
	if !principal.VerifySigner(s.Operator, in.Caller) {
		return bridgeerrors.ErrUnauthorized
	}
	if s.Paused(in.NowSecs) {
		return bridgeerrors.ErrPaused
	}

	sameFinalized := in.NewHeader.Finalized.BlockHeight == s.Finalized.BlockHeight &&
		in.NewHeader.Finalized.BlockHash == s.Finalized.BlockHash
	advancesByOne := in.NewHeader.Finalized.BlockHeight == s.Finalized.BlockHeight+1
	if !sameFinalized && !advancesByOne {
		return bridgeerrors.Wrapf(bridgeerrors.ErrHeightMismatch, "finalized height %d does not follow current finalized %d", in.NewHeader.Finalized.BlockHeight, s.Finalized.BlockHeight)
	}
	if in.NewHeader.Tip.BlockHeight < in.NewHeader.Finalized.BlockHeight {
		return bridgeerrors.Wrapf(bridgeerrors.ErrHeightMismatch, "tip height %d below finalized height %d", in.NewHeader.Tip.BlockHeight, in.NewHeader.Finalized.BlockHeight)
	}
	if in.NewHeader.Tip.BlockHeight-in.NewHeader.Finalized.BlockHeight > bridgeconfig.ReorgDepth {
		return bridgeerrors.Wrapf(bridgeerrors.ErrHeightMismatch, "tip-finalized gap %d exceeds reorg depth %d", in.NewHeader.Tip.BlockHeight-in.NewHeader.Finalized.BlockHeight, bridgeconfig.ReorgDepth)
	}
	if in.NewHeader.Tip.AutoClaimedDepositsNextIndex < s.Tip.AutoClaimedDepositsNextIndex {
		return bridgeerrors.Wrapf(bridgeerrors.ErrHeightMismatch, "auto_claimed_deposits_next_index must be non-decreasing")
	}

	if in.MintBufferHash != in.NewHeader.Tip.PendingMintsFinalizedHash {
		return bridgeerrors.ErrBufferHashMismatch
	}
	if in.TxoBufferHash != in.NewHeader.Tip.TxoOutputListFinalizedHash {
		return bridgeerrors.ErrBufferHashMismatch
	}

	gotStateHash := s.StateHash(in.SnapshotRingRootOld)
	if gotStateHash != in.NewHeader.BridgeStateHash {
		return bridgeerrors.ErrStateHashMismatch
	}

	inputs := zkverify.NewInputs().
		Push(s.Finalized.BlockHash).
		Push(in.NewHeader.Tip.BlockHash).
		Push(in.NewHeader.Finalized.BlockHash).
		Push(gotStateHash).
		Push(in.MintBufferHash).
		Push(in.TxoBufferHash).
		Push(in.NewHeader.Tip.AutoClaimedTxoTreeRoot).
		Push(s.ReturnUTXO.Commitment()).
		Build()
	if err := zkverify.VerifyOrReject(v, in.VerifyingKey, in.Proof, inputs); err != nil {
		return err
	}

	s.Tip = in.NewHeader.Tip
	s.Finalized = in.NewHeader.Finalized
	s.TotalFinalizedFeesCollectedChainHistory += in.FeeDelta
	return nil
}

// ReorgInput carries the extended inputs process_reorg_blocks needs
// beyond BlockUpdateInput: the ordered per-block hash pairs for every
// block between the previous and new tip.
type ReorgInput struct {
	BlockUpdateInput
	ExtraBlocks []wire.FinalizedBlockMintTxoInfo
}

// ProcessReorgBlocks implements spec.md §4.5 process_reorg_blocks: the
// same shape as BlockUpdate, but bounds ExtraBlocks to REORG_DEPTH-1
// and always advances LastRollbackAtSecs, since a reorg is by
// definition a rollback. ExtraBlocks is only length-checked: its pairs
// are not pushed into the public inputs, so the proof is verified
// against exactly the same input vector BlockUpdate builds.
func (s *State) ProcessReorgBlocks(ctx context.Context, v zkverify.Verifier, in ReorgInput) error {
	if len(in.ExtraBlocks) > bridgeconfig.ReorgDepth-1 {
		return bridgeerrors.Wrapf(bridgeerrors.ErrHeightMismatch, "reorg carries %d extra blocks, max %d", len(in.ExtraBlocks), bridgeconfig.ReorgDepth-1)
	}
	if in.NewHeader.Finalized.BlockHeight != s.Finalized.BlockHeight || in.NewHeader.Finalized.BlockHash != s.Finalized.BlockHash {
		return bridgeerrors.Wrapf(bridgeerrors.ErrHeightMismatch, "reorg must keep finalized fixed at height %d", s.Finalized.BlockHeight)
	}
	if err := s.BlockUpdate(ctx, v, in.BlockUpdateInput); err != nil {
		return err
	}
	s.LastRollbackAtSecs = in.NowSecs
	return nil
}
