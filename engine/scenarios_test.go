// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/buffer"
	"github.com/dogebridge/core/custodian"
	"github.com/dogebridge/core/deposit"
	"github.com/dogebridge/core/merkle"
	"github.com/dogebridge/core/principal"
	"github.com/dogebridge/core/wire"
	"github.com/dogebridge/core/zkverify"
	"github.com/stretchr/testify/require"
)

// TestBatch24DepositsFillsOneGroup exercises spec.md §8's "a single
// group of exactly MaxMintsPerGroup (24) mints" scenario seed: every
// recipient is credited by one block_update plus one
// process_mint_group(0, unlock=true), and the buffer ends unlocked.
func TestBatch24DepositsFillsOneGroup(t *testing.T) {
	b, v := newTestBridge(t)
	operator := principal.Derive("operator")
	initBridge(t, b, operator)

	const n = buffer.MaxMintsPerGroup
	records := make([]wire.DepositRecord, n)
	mints := make([]wire.PendingMint, n)
	recipients := make([]principal.Principal, n)
	for i := 0; i < n; i++ {
		recipients[i] = principal.Derive(fmt.Sprintf("batch-depositor-%d", i))
		records[i] = wire.DepositRecord{TxHash: [32]byte{byte(i + 1)}, CombinedTxoIndex: uint64(i), RecipientPubkey: recipients[i], AmountSats: 2_000_000}
		mints[i] = wire.PendingMint{Recipient: recipients[i], Amount: records[i].AmountSats}
	}

	require.NoError(t, b.MintBuffer.Reinit(operator, 1))
	_, err := b.InsertDepositRecords(records)
	require.NoError(t, err)
	require.NoError(t, b.MintBuffer.Insert(operator, 0, mints))

	advanceBlockWithStagedMints(t, b, v, operator, 1)
	require.NoError(t, b.ProcessMintGroup(0, true))

	fee := b.Network.Fees.DepositFee(2_000_000)
	for i, r := range recipients {
		require.Equal(t, 2_000_000-fee, b.BalanceOf(r), "recipient %d", i)
	}
	require.Equal(t, buffer.MintUnlocked, b.MintBuffer.State())

	// A 25th mint in the same group must have been rejected up front,
	// per spec.md §4.3/§8 "each group <= 24 mints; 25 fails" — confirm
	// Insert itself enforces the bound before any block_update runs.
	require.NoError(t, b.MintBuffer.Unlock(operator))
	require.NoError(t, b.MintBuffer.Reinit(operator, 1))
	tooMany := append(append([]wire.PendingMint(nil), mints...), wire.PendingMint{Recipient: principal.Derive("one-too-many"), Amount: 1})
	err = b.MintBuffer.Insert(operator, 0, tooMany)
	require.Error(t, err)
}

// TestReorgDepth3KeepsFinalizedFixed exercises spec.md §8's reorg
// scenario seed: the tip is replaced by a 3-extra-block reorg while
// finalized stays pinned, and last_rollback_at_secs records the call
// time.
func TestReorgDepth3KeepsFinalizedFixed(t *testing.T) {
	b, v := newTestBridge(t)
	operator := principal.Derive("operator")
	initBridge(t, b, operator)

	advanceBlock(t, b, v, operator, 1, nil)
	advanceBlock(t, b, v, operator, 2, nil)
	finalizedBefore := b.State.Finalized

	require.NoError(t, b.TxoBuffer.SetLen(operator, 0, true, 2, 2, true))
	require.NoError(t, b.MintBuffer.Unlock(operator))
	require.NoError(t, b.MintBuffer.Reinit(operator, 1))
	require.NoError(t, b.MintBuffer.Lock(operator))
	mintHash, err := b.MintBuffer.Hash()
	require.NoError(t, err)
	txoHash, err := b.TxoBuffer.Hash()
	require.NoError(t, err)

	newTip := wire.StateCommitment{
		BlockHash:                  [32]byte{0x99},
		BlockHeight:                2,
		PendingMintsFinalizedHash:  mintHash,
		TxoOutputListFinalizedHash: txoHash,
	}
	header := wire.BridgeHeader{Tip: newTip, Finalized: finalizedBefore}
	snapshotRingRootOld := b.SnapshotRing.CommitmentHash()
	header.BridgeStateHash = b.State.StateHash(snapshotRingRootOld)

	extraBlocks := []wire.FinalizedBlockMintTxoInfo{
		{PendingMintsFinalizedHash: mintHash, TxoOutputListFinalizedHash: txoHash},
		{PendingMintsFinalizedHash: mintHash, TxoOutputListFinalizedHash: txoHash},
		{PendingMintsFinalizedHash: mintHash, TxoOutputListFinalizedHash: txoHash},
	}

	inputs := zkverify.NewInputs().
		Push(finalizedBefore.BlockHash).
		Push(header.Tip.BlockHash).
		Push(header.Finalized.BlockHash).
		Push(header.BridgeStateHash).
		Push(mintHash).
		Push(txoHash).
		Push(header.Tip.AutoClaimedTxoTreeRoot).
		Push(b.State.ReturnUTXO.Commitment()).
		Build()
	proof := zkverify.Fingerprint(nil, inputs)

	const rollbackAt = 999
	require.NoError(t, b.ProcessReorgBlocks(context.Background(), ProcessReorgBlocksRequest{
		BlockUpdateRequest: BlockUpdateRequest{
			Caller:              operator,
			NowSecs:             rollbackAt,
			Proof:               proof,
			NewHeader:           header,
			SnapshotRingRootOld: snapshotRingRootOld,
		},
		ExtraBlocks: extraBlocks,
	}))

	require.Equal(t, newTip.BlockHash, b.State.Tip.BlockHash)
	require.Equal(t, finalizedBefore.BlockHash, b.State.Finalized.BlockHash)
	require.EqualValues(t, rollbackAt, b.State.LastRollbackAtSecs)
}

// TestReorgRejectsTooManyExtraBlocks confirms process_reorg_blocks
// bounds ExtraBlocks to REORG_DEPTH-1 (spec.md §4.5).
func TestReorgRejectsTooManyExtraBlocks(t *testing.T) {
	b, v := newTestBridge(t)
	operator := principal.Derive("operator")
	initBridge(t, b, operator)
	advanceBlock(t, b, v, operator, 1, nil)

	extra := make([]wire.FinalizedBlockMintTxoInfo, 10) // ReorgDepth(10)-1 == 9 max
	err := b.ProcessReorgBlocks(context.Background(), ProcessReorgBlocksRequest{
		BlockUpdateRequest: BlockUpdateRequest{Caller: operator, NewHeader: wire.BridgeHeader{Finalized: b.State.Finalized}},
		ExtraBlocks:        extra,
	})
	require.Error(t, err)
}

// TestManualClaimAfterStallRejectsReplay exercises spec.md §8's manual-
// claim scenario seed: a deposit claimed through the manual path after
// never landing in the pending-mint buffer, with an identical replay
// rejected.
func TestManualClaimAfterStallRejectsReplay(t *testing.T) {
	b, _ := newTestBridge(t)
	operator := principal.Derive("operator")
	initBridge(t, b, operator)

	recentBlockRoot := [32]byte{0xAA}
	recentAutoClaimRoot := [32]byte{0xBB}
	b.RecentRoots.Push(recentBlockRoot, recentAutoClaimRoot)

	user := principal.Derive("manual-claimant")
	txHash := [32]byte{0x42}
	amount := uint64(10_000_000)

	previewSubtree, err := merkle.New(b.Network.MerkleDepth)
	require.NoError(t, err)
	leaf := merkle.LeafHash(txHash[:])
	newRoot := merkle.RootAfterAppend(previewSubtree.Root(), previewSubtree.NextIndex(), leaf)

	inputs := zkverify.NewInputs().
		Push(recentBlockRoot).
		Push(recentAutoClaimRoot).
		Push(txHash).
		Push(previewSubtree.Root()).
		Push(newRoot).
		Build()
	proof := zkverify.Fingerprint(nil, inputs)

	req := deposit.ManualClaimRequest{
		Data: wire.ManualClaimInstructionData{
			Proof:                     proof,
			TxHash:                    txHash,
			CombinedTxoIndex:          500,
			Recipient:                 [32]byte(user),
			AmountSats:                amount,
			RecentBlockMerkleTreeRoot: recentBlockRoot,
			RecentAutoClaimTxoRoot:    recentAutoClaimRoot,
		},
	}
	require.NoError(t, b.SubmitManualClaim(user, req))

	fee := b.Network.Fees.DepositFee(amount)
	require.Equal(t, amount-fee, b.BalanceOf(user))

	err = b.SubmitManualClaim(user, req)
	require.Error(t, err)
}

// TestCustodianTransitionFullCycle exercises spec.md §8's custodian
// scenario seed end to end: notify, a rejected early pause, an
// accepted pause at the grace boundary, a rejected process below the
// consolidation target, and an accepted process once the target is
// met, leaving the FSM cleared back to NONE.
func TestCustodianTransitionFullCycle(t *testing.T) {
	b, _ := newTestBridge(t)
	operator := principal.Derive("operator")
	initBridge(t, b, operator)

	newHash := [32]byte{0x7A}
	require.NoError(t, b.Custodian.Notify(newHash, 0))

	err := b.Custodian.Pause(custodian.GraceSeconds - 1)
	require.ErrorIs(t, err, bridgeerrors.ErrGracePeriodNotElapsed)

	require.NoError(t, b.Custodian.Pause(custodian.GraceSeconds))

	const autoClaimedNextIndex = 3
	const manualClaimedNextIndex = 2
	target := custodian.ConsolidationTarget(autoClaimedNextIndex, manualClaimedNextIndex)

	oldReturn := b.State.ReturnUTXO
	newReturn := wire.ReturnTxOutput{Sighash: [32]byte{0x7B}, OutputIndex: 0, AmountSats: oldReturn.AmountSats}
	newCustodianHash := [32]byte{0x7C}

	buildProof := func() [256]byte {
		inputs := zkverify.NewInputs().
			Push(oldReturn.Commitment()).
			Push(newReturn.Commitment()).
			Push(newHash).
			Push(newCustodianHash).
			Build()
		return zkverify.Fingerprint(nil, inputs)
	}

	err = b.ProcessCustodianTransition(newReturn, newCustodianHash, buildProof(), nil, autoClaimedNextIndex, manualClaimedNextIndex)
	require.Error(t, err)

	other := principal.Derive("not-the-operator")
	require.ErrorIs(t, b.RecordCustodianConsolidationSpend(other, target), bridgeerrors.ErrUnauthorized)

	require.NoError(t, b.RecordCustodianConsolidationSpend(operator, target))
	require.NoError(t, b.ProcessCustodianTransition(newReturn, newCustodianHash, buildProof(), nil, autoClaimedNextIndex, manualClaimedNextIndex))

	require.Equal(t, custodian.None, b.Custodian.Status())
	require.Equal(t, newReturn, b.State.ReturnUTXO)
	require.Equal(t, newCustodianHash, b.State.CustodianHash)
}
