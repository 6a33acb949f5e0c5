// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command bridgesim drives the bridge engine through the scenario
// seeds of spec.md §8 against a mocked zkverify.Verifier, the way
// cmd/sim drives a consensus simulation through create -> configure ->
// act -> observe against a fixed parameter set.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dogebridge/core/blog"
	"github.com/dogebridge/core/bridgeconfig"
	"github.com/dogebridge/core/buffer"
	"github.com/dogebridge/core/custodian"
	"github.com/dogebridge/core/deposit"
	"github.com/dogebridge/core/engine"
	"github.com/dogebridge/core/merkle"
	"github.com/dogebridge/core/metrics"
	"github.com/dogebridge/core/principal"
	"github.com/dogebridge/core/wire"
	"github.com/dogebridge/core/withdrawal"
	"github.com/dogebridge/core/zkverify"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
)

var logger = blog.New("bridgesim")

type scenario struct {
	name string
	run  func() (string, error)
}

func main() {
	network := flag.String("network", "local", "Network preset: mainnet, testnet, or local (scenarios wire their own engine.Bridge; this only validates the flag)")
	which := flag.String("scenario", "all", "Scenario to run: all, or one of the names printed by -list")
	showList := flag.Bool("list", false, "List scenario names and exit")
	flag.Parse()

	scenarios := []scenario{
		{"single-deposit", scenarioSingleDeposit},
		{"batch-24-deposits", scenarioBatch24Deposits},
		{"reorg-depth-3", scenarioReorgDepth3},
		{"manual-claim-after-stall", scenarioManualClaimAfterStall},
		{"withdrawal-round-trip", scenarioWithdrawalRoundTrip},
		{"custodian-transition", scenarioCustodianTransition},
	}

	if *showList {
		for _, s := range scenarios {
			fmt.Println(s.name)
		}
		return
	}

	if _, err := presetFor(*network); err != nil {
		logger.Error("invalid network preset", log.String("network", *network))
		os.Exit(1)
	}

	logger.Info("starting bridgesim", log.String("network", *network), log.String("scenario", *which))
	fmt.Printf("\n=== Dogecoin ZK Bridge Scenario Driver ===\n\n")

	ran := 0
	failures := 0
	for _, s := range scenarios {
		if *which != "all" && *which != s.name {
			continue
		}
		ran++
		detail, err := s.run()
		if err != nil {
			failures++
			fmt.Printf("[FAIL] %-28s %v\n", s.name, err)
			logger.Error("scenario failed", log.String("scenario", s.name), log.Err(err))
			continue
		}
		fmt.Printf("[ OK ] %-28s %s\n", s.name, detail)
	}

	fmt.Println()
	if ran == 0 {
		fmt.Printf("no scenario matched %q (-list to see names)\n", *which)
		os.Exit(1)
	}
	if failures > 0 {
		fmt.Printf("%d/%d scenario(s) failed\n", failures, ran)
		os.Exit(1)
	}
	fmt.Printf("all %d scenario(s) passed\n", ran)
}

func presetFor(name string) (bridgeconfig.NetworkType, error) {
	switch name {
	case "mainnet":
		return bridgeconfig.MainnetNetwork, nil
	case "testnet":
		return bridgeconfig.TestnetNetwork, nil
	case "local":
		return bridgeconfig.LocalNetwork, nil
	default:
		return "", fmt.Errorf("bridgesim: unknown network %q", name)
	}
}

// newSimBridge wires a fresh engine.Bridge over the local preset
// (merkle depth 8, zero-fee schedule) and a deterministic mock
// verifier, registering metrics against a scenario-local registry so
// concurrent scenario runs never collide on collector names.
func newSimBridge() (*engine.Bridge, *zkverify.Mock, error) {
	net, err := bridgeconfig.NewBuilder().FromPreset(bridgeconfig.LocalNetwork).Build()
	if err != nil {
		return nil, nil, err
	}
	v := zkverify.NewMock()
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		return nil, nil, err
	}
	b, err := engine.New(net, v, m, blog.NewNoOp())
	if err != nil {
		return nil, nil, err
	}
	return b, v, nil
}

// initSimBridge initializes b with operator == feeSpender and a fresh
// genesis commitment, finalizing an empty TXO buffer at height 0.
func initSimBridge(b *engine.Bridge, operator principal.Principal) error {
	genesis := wire.StateCommitment{BlockHash: [32]byte{1}}
	initialReturn := wire.ReturnTxOutput{Sighash: [32]byte{2}, OutputIndex: 0, AmountSats: 1_000_000}
	if err := b.Initialize(engine.InitializeRequest{
		Operator:             operator,
		FeeSpender:           operator,
		WrappedMint:          principal.Derive("wrapped-mint"),
		Config:               b.Network.Fees,
		Genesis:              genesis,
		InitialReturn:        initialReturn,
		InitialCustodianHash: [32]byte{3},
	}); err != nil {
		return err
	}
	return b.TxoBuffer.SetLen(operator, 0, true, 1, genesis.BlockHeight, true)
}

// advanceBlock drives one block_update to newFinalizedHeight, locking
// and hashing whatever mints/TXO deltas are already staged, and
// computing a proof the bridge's zkverify.Mock will accept. Mirrors
// bridgestate.State.BlockUpdate's exact public-input schedule.
func advanceBlock(b *engine.Bridge, operator principal.Principal, newFinalizedHeight uint32) (wire.StateCommitment, error) {
	if err := b.TxoBuffer.SetLen(operator, 0, true, newFinalizedHeight, newFinalizedHeight, true); err != nil {
		return wire.StateCommitment{}, err
	}

	if err := b.MintBuffer.Lock(operator); err != nil {
		return wire.StateCommitment{}, err
	}
	mintHash, err := b.MintBuffer.Hash()
	if err != nil {
		return wire.StateCommitment{}, err
	}
	txoHash, err := b.TxoBuffer.Hash()
	if err != nil {
		return wire.StateCommitment{}, err
	}

	newFinalized := wire.StateCommitment{
		BlockHash:                    [32]byte{byte(10 + newFinalizedHeight)},
		AutoClaimedDepositsTreeRoot:  b.AutoClaim.Root(),
		AutoClaimedTxoTreeRoot:       b.AutoClaim.TxoRoot(),
		AutoClaimedDepositsNextIndex: uint32(b.AutoClaim.NextIndex()),
		BlockHeight:                  newFinalizedHeight,
		PendingMintsFinalizedHash:    mintHash,
		TxoOutputListFinalizedHash:   txoHash,
	}

	snapshotRingRootOld := b.SnapshotRing.CommitmentHash()
	stateHash := b.State.StateHash(snapshotRingRootOld)
	header := wire.BridgeHeader{Tip: newFinalized, Finalized: newFinalized, BridgeStateHash: stateHash}

	inputs := zkverify.NewInputs().
		Push(b.State.Finalized.BlockHash).
		Push(header.Tip.BlockHash).
		Push(header.Finalized.BlockHash).
		Push(stateHash).
		Push(mintHash).
		Push(txoHash).
		Push(header.Tip.AutoClaimedTxoTreeRoot).
		Push(b.State.ReturnUTXO.Commitment()).
		Build()
	proof := zkverify.Fingerprint(nil, inputs)

	err = b.BlockUpdate(context.Background(), engine.BlockUpdateRequest{
		Caller:              operator,
		NowSecs:             newFinalizedHeight,
		Proof:               proof,
		NewHeader:           header,
		SnapshotRingRootOld: snapshotRingRootOld,
	})
	return newFinalized, err
}

// scenarioSingleDeposit is spec.md §8 scenario 1: one staged mint,
// one block_update, wrapped balance credited minus the deposit fee.
func scenarioSingleDeposit() (string, error) {
	b, _, err := newSimBridge()
	if err != nil {
		return "", err
	}
	operator := principal.Derive("bridgesim-operator")
	if err := initSimBridge(b, operator); err != nil {
		return "", err
	}

	alice := principal.Derive("bridgesim-alice")
	records := []wire.DepositRecord{
		{TxHash: [32]byte{9}, CombinedTxoIndex: 0, RecipientPubkey: alice, AmountSats: 100_000_000},
	}
	if _, err := b.InsertDepositRecords(records); err != nil {
		return "", err
	}
	if err := b.MintBuffer.Reinit(operator, 1); err != nil {
		return "", err
	}
	if err := b.MintBuffer.Insert(operator, 0, []wire.PendingMint{
		{Recipient: alice, Amount: records[0].AmountSats},
	}); err != nil {
		return "", err
	}
	if _, err := advanceBlock(b, operator, 1); err != nil {
		return "", err
	}
	if err := b.ProcessMintGroup(0, true); err != nil {
		return "", err
	}

	fee := b.Network.Fees.DepositFee(records[0].AmountSats)
	want := records[0].AmountSats - fee
	got := b.BalanceOf(alice)
	if got != want {
		return "", fmt.Errorf("alice balance = %d, want %d (fee %d)", got, want, fee)
	}
	return fmt.Sprintf("alice credited %d (fee %d)", got, fee), nil
}

// scenarioBatch24Deposits is spec.md §8 scenario 2: a single group of
// exactly MaxMintsPerGroup (24) mints, one block_update, one
// process_mint_group(0, unlock=true); every recipient credited and the
// buffer ends unlocked.
func scenarioBatch24Deposits() (string, error) {
	b, _, err := newSimBridge()
	if err != nil {
		return "", err
	}
	operator := principal.Derive("bridgesim-operator")
	if err := initSimBridge(b, operator); err != nil {
		return "", err
	}

	const n = buffer.MaxMintsPerGroup
	records := make([]wire.DepositRecord, n)
	mints := make([]wire.PendingMint, n)
	recipients := make([]principal.Principal, n)
	for i := 0; i < n; i++ {
		recipients[i] = principal.Derive(fmt.Sprintf("bridgesim-batch-%d", i))
		records[i] = wire.DepositRecord{TxHash: [32]byte{byte(i + 1)}, CombinedTxoIndex: uint64(i), RecipientPubkey: recipients[i], AmountSats: 1_000_000}
		mints[i] = wire.PendingMint{Recipient: recipients[i], Amount: records[i].AmountSats}
	}

	if _, err := b.InsertDepositRecords(records); err != nil {
		return "", err
	}
	if err := b.MintBuffer.Reinit(operator, 1); err != nil {
		return "", err
	}
	if err := b.MintBuffer.Insert(operator, 0, mints); err != nil {
		return "", err
	}
	if _, err := advanceBlock(b, operator, 1); err != nil {
		return "", err
	}
	if err := b.ProcessMintGroup(0, true); err != nil {
		return "", err
	}

	fee := b.Network.Fees.DepositFee(1_000_000)
	for i, r := range recipients {
		if got, want := b.BalanceOf(r), 1_000_000-fee; got != want {
			return "", fmt.Errorf("recipient %d balance = %d, want %d", i, got, want)
		}
	}
	if b.MintBuffer.State() != buffer.MintUnlocked {
		return "", fmt.Errorf("mint buffer still locked after unlocking last group")
	}
	return fmt.Sprintf("%d recipients credited, buffer unlocked", n), nil
}

// scenarioReorgDepth3 is spec.md §8 scenario 3: tip advances to a
// replacement head carrying 3 extra_blocks entries while finalized
// stays fixed; last_rollback_at_secs and the new tip hash land in
// state.
func scenarioReorgDepth3() (string, error) {
	b, _, err := newSimBridge()
	if err != nil {
		return "", err
	}
	operator := principal.Derive("bridgesim-operator")
	if err := initSimBridge(b, operator); err != nil {
		return "", err
	}
	if _, err := advanceBlock(b, operator, 1); err != nil {
		return "", err
	}
	if _, err := advanceBlock(b, operator, 2); err != nil {
		return "", err
	}

	if err := b.TxoBuffer.SetLen(operator, 0, true, 2, 2, true); err != nil {
		return "", err
	}
	if err := b.MintBuffer.Unlock(operator); err != nil {
		return "", err
	}
	if err := b.MintBuffer.Reinit(operator, 1); err != nil {
		return "", err
	}
	if err := b.MintBuffer.Lock(operator); err != nil {
		return "", err
	}
	mintHash, err := b.MintBuffer.Hash()
	if err != nil {
		return "", err
	}
	txoHash, err := b.TxoBuffer.Hash()
	if err != nil {
		return "", err
	}

	newTip := wire.StateCommitment{
		BlockHash:                  [32]byte{0x55},
		BlockHeight:                2,
		PendingMintsFinalizedHash:  mintHash,
		TxoOutputListFinalizedHash: txoHash,
	}
	header := wire.BridgeHeader{Tip: newTip, Finalized: b.State.Finalized}
	snapshotRingRootOld := b.SnapshotRing.CommitmentHash()
	header.BridgeStateHash = b.State.StateHash(snapshotRingRootOld)

	extraBlocks := []wire.FinalizedBlockMintTxoInfo{
		{PendingMintsFinalizedHash: mintHash, TxoOutputListFinalizedHash: txoHash},
		{PendingMintsFinalizedHash: mintHash, TxoOutputListFinalizedHash: txoHash},
		{PendingMintsFinalizedHash: mintHash, TxoOutputListFinalizedHash: txoHash},
	}

	inputs := zkverify.NewInputs().
		Push(b.State.Finalized.BlockHash).
		Push(header.Tip.BlockHash).
		Push(header.Finalized.BlockHash).
		Push(header.BridgeStateHash).
		Push(mintHash).
		Push(txoHash).
		Push(header.Tip.AutoClaimedTxoTreeRoot).
		Push(b.State.ReturnUTXO.Commitment()).
		Build()
	proof := zkverify.Fingerprint(nil, inputs)

	const rollbackAt = 12345
	err = b.ProcessReorgBlocks(context.Background(), engine.ProcessReorgBlocksRequest{
		BlockUpdateRequest: engine.BlockUpdateRequest{
			Caller:              operator,
			NowSecs:             rollbackAt,
			Proof:               proof,
			NewHeader:           header,
			SnapshotRingRootOld: snapshotRingRootOld,
		},
		ExtraBlocks: extraBlocks,
	})
	if err != nil {
		return "", err
	}
	if b.State.Tip.BlockHash != newTip.BlockHash {
		return "", fmt.Errorf("tip hash not updated after reorg")
	}
	if b.State.LastRollbackAtSecs != rollbackAt {
		return "", fmt.Errorf("last_rollback_at_secs = %d, want %d", b.State.LastRollbackAtSecs, rollbackAt)
	}
	return fmt.Sprintf("tip replaced with %d extra block(s), rollback recorded at %d", len(extraBlocks), rollbackAt), nil
}

// scenarioManualClaimAfterStall is spec.md §8 scenario 4: a deposit
// that never made it into the pending-mint buffer is claimed through
// the manual path instead; a second identical submission is rejected.
func scenarioManualClaimAfterStall() (string, error) {
	b, _, err := newSimBridge()
	if err != nil {
		return "", err
	}
	operator := principal.Derive("bridgesim-operator")
	if err := initSimBridge(b, operator); err != nil {
		return "", err
	}

	recentBlockRoot := [32]byte{0xAA}
	recentAutoClaimRoot := [32]byte{0xBB}
	b.RecentRoots.Push(recentBlockRoot, recentAutoClaimRoot)

	user := principal.Derive("bridgesim-manual-claimant")
	txHash := [32]byte{0x42}
	recipient := [32]byte(user)
	amount := uint64(42_000_000)

	previewSubtree, err := merkle.New(b.Network.MerkleDepth)
	if err != nil {
		return "", err
	}
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
			CombinedTxoIndex:          999,
			Recipient:                 recipient,
			AmountSats:                amount,
			RecentBlockMerkleTreeRoot: recentBlockRoot,
			RecentAutoClaimTxoRoot:    recentAutoClaimRoot,
		},
	}
	if err := b.SubmitManualClaim(user, req); err != nil {
		return "", fmt.Errorf("first manual claim: %w", err)
	}

	fee := b.Network.Fees.DepositFee(amount)
	if got, want := b.BalanceOf(user), amount-fee; got != want {
		return "", fmt.Errorf("claimant balance = %d, want %d", got, want)
	}

	if err := b.SubmitManualClaim(user, req); err == nil {
		return "", fmt.Errorf("second identical manual claim unexpectedly succeeded")
	}

	return fmt.Sprintf("claimant credited %d via manual path, replay rejected", b.BalanceOf(user)), nil
}

// scenarioWithdrawalRoundTrip is spec.md §8 scenario 5: request,
// snapshot, process with a fresh return-UTXO, then replay the same
// outbound message.
func scenarioWithdrawalRoundTrip() (string, error) {
	b, _, err := newSimBridge()
	if err != nil {
		return "", err
	}
	operator := principal.Derive("bridgesim-operator")
	if err := initSimBridge(b, operator); err != nil {
		return "", err
	}

	if _, err := b.RequestWithdrawal(wire.WithdrawalRequest{AmountSats: 50_000_000, Recipient: [20]byte{0x01}}); err != nil {
		return "", err
	}
	b.SnapshotWithdrawals()
	snap, err := b.SnapshotRing.Latest()
	if err != nil {
		return "", err
	}

	dogeTx := buffer.NewGeneric(operator)
	if err := dogeTx.Init(operator, 8); err != nil {
		return "", err
	}
	if err := dogeTx.Write(operator, 0, []byte("doge-tx-")); err != nil {
		return "", err
	}
	sighash, err := dogeTx.Freeze()
	if err != nil {
		return "", err
	}

	newReturn := wire.ReturnTxOutput{Sighash: [32]byte{0x9A}, OutputIndex: 1, AmountSats: b.State.ReturnUTXO.AmountSats - 50_000_000}
	newSpentRoot := [32]byte{0x5A}
	newIdx := b.State.NextProcessedWithdrawalsIndex + 1

	inputs := zkverify.NewInputs().
		Push(sighash).
		Push(b.State.ReturnUTXO.Commitment()).
		Push(newReturn.Commitment()).
		Push(b.State.SpentTxoTreeRoot).
		Push(newSpentRoot).
		Push(snap.WithdrawalsMerkleRoot).
		Push(encodeUint64(snap.NextWithdrawalIndex)).
		Push(encodeUint64(b.State.NextProcessedWithdrawalsIndex)).
		Push(encodeUint64(newIdx)).
		Push(b.State.CustodianHash).
		Build()
	proof := zkverify.Fingerprint(nil, inputs)

	if err := b.ProcessWithdrawal(withdrawal.ProcessWithdrawalInput{
		Proof:                            proof,
		NewReturnOutput:                  newReturn,
		NewSpentTxoTreeRoot:              newSpentRoot,
		NewNextProcessedWithdrawalsIndex: newIdx,
		DogeTxBytesBuffer:                dogeTx,
		ReferencedSnapshot:               snap,
	}); err != nil {
		return "", err
	}
	if b.State.ReturnUTXO != newReturn {
		return "", fmt.Errorf("return-UTXO not updated after process_withdrawal")
	}

	replayBuf := buffer.NewGeneric(operator)
	if err := replayBuf.Init(operator, 8); err != nil {
		return "", err
	}
	if err := replayBuf.Write(operator, 0, []byte("doge-tx-")); err != nil {
		return "", err
	}
	if err := b.ProcessReplayWithdrawal(replayBuf); err != nil {
		return "", fmt.Errorf("replay: %w", err)
	}
	if got := len(b.Bus.All(withdrawal.OutboundTopic)); got != 2 {
		return "", fmt.Errorf("outbound message count = %d, want 2 (process + replay)", got)
	}
	return "return-UTXO rotated, outbound message emitted and replayed", nil
}

func encodeUint64(v uint64) [32]byte {
	var out [32]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}

// scenarioCustodianTransition is spec.md §8 scenario 6: notify, reject
// an early pause, accept the pause once the grace period elapses,
// reject processing below the consolidation target, then accept it
// once the operator drives spend count to target.
func scenarioCustodianTransition() (string, error) {
	b, _, err := newSimBridge()
	if err != nil {
		return "", err
	}
	operator := principal.Derive("bridgesim-operator")
	if err := initSimBridge(b, operator); err != nil {
		return "", err
	}

	newHash := [32]byte{0x7A}
	if err := b.Custodian.Notify(newHash, 0); err != nil {
		return "", err
	}
	if err := b.Custodian.Pause(custodian.GraceSeconds - 1); err == nil {
		return "", fmt.Errorf("pause at t=%d unexpectedly succeeded before the grace period", custodian.GraceSeconds-1)
	}
	if err := b.Custodian.Pause(custodian.GraceSeconds); err != nil {
		return "", fmt.Errorf("pause at t=%d: %w", custodian.GraceSeconds, err)
	}

	const autoClaimedNextIndex = 5
	const manualClaimedNextIndex = 0
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

	if err := b.ProcessCustodianTransition(newReturn, newCustodianHash, buildProof(), nil, autoClaimedNextIndex, manualClaimedNextIndex); err == nil {
		return "", fmt.Errorf("process succeeded below consolidation target %d", target)
	}

	if err := b.RecordCustodianConsolidationSpend(operator, target); err != nil {
		return "", err
	}
	if err := b.ProcessCustodianTransition(newReturn, newCustodianHash, buildProof(), nil, autoClaimedNextIndex, manualClaimedNextIndex); err != nil {
		return "", fmt.Errorf("process at target %d: %w", target, err)
	}
	if b.Custodian.Status() != custodian.None {
		return "", fmt.Errorf("custodian FSM status = %s, want none after process clears it", b.Custodian.Status())
	}
	return fmt.Sprintf("custodian transition completed at consolidation target %d", target), nil
}
