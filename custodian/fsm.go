// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package custodian implements the custodian transition state machine
// of spec.md §4.8, grounded on the consensus engine's own state-machine idiom in
// core/choices (a Status enum with a String method) and consensus/wave's
// phase transitions.
package custodian

import (
	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/wire"
	"github.com/dogebridge/core/zkverify"
)

// Status is the custodian-transition lifecycle state (spec.md §4.8).
type Status uint8

const (
	None Status = iota
	Pending
	Paused
	Completed
)

func (s Status) String() string {
	switch s {
	case None:
		return "none"
	case Pending:
		return "pending"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// GraceSeconds is the PENDING -> PAUSED timing gate (spec.md §4.8, §8:
// "pause gate requires now-start >= 7200s").
const GraceSeconds = 7200

// FSM is the custodian-transition state held alongside bridgestate.State.
type FSM struct {
	status      Status
	incomingHash [32]byte
	startTS     uint32

	// totalSpentDepositUtxoCount tracks UTXOs spent against the
	// consolidation target while PAUSED (spec.md §4.8 process
	// precondition). engine.Bridge.RecordCustodianConsolidationSpend is
	// the operator-facing call that increments this as the new
	// custodian set consumes deposit UTXOs.
	totalSpentDepositUtxoCount uint64
}

// New returns an FSM in state NONE.
func New() *FSM {
	return &FSM{status: None}
}

// Status returns the current state.
func (f *FSM) Status() Status { return f.status }

// Notify implements notify(new_hash): NONE -> PENDING.
func (f *FSM) Notify(newHash [32]byte, nowSecs uint32) error {
	if f.status != None {
		return bridgeerrors.Wrapf(bridgeerrors.ErrUnauthorized, "custodian: notify requires state NONE, have %s", f.status)
	}
	f.incomingHash = newHash
	f.startTS = nowSecs
	f.status = Pending
	return nil
}

// Pause implements pause(now): PENDING -> PAUSED iff
// now - start_ts >= GraceSeconds.
func (f *FSM) Pause(nowSecs uint32) error {
	if f.status != Pending {
		return bridgeerrors.Wrapf(bridgeerrors.ErrUnauthorized, "custodian: pause requires state PENDING, have %s", f.status)
	}
	if nowSecs < f.startTS || nowSecs-f.startTS < GraceSeconds {
		return bridgeerrors.ErrGracePeriodNotElapsed
	}
	f.status = Paused
	return nil
}

// RecordSpentDepositUtxo increments the consolidation-spend counter as
// the new custodian set consumes count deposit UTXOs. Only valid while
// PAUSED — the counter exists solely to gate that transition's Process
// call, so accrual outside the window it is checked against would be
// meaningless.
func (f *FSM) RecordSpentDepositUtxo(count uint64) error {
	if f.status != Paused {
		return bridgeerrors.Wrapf(bridgeerrors.ErrUnauthorized, "custodian: record spent deposit utxo requires state PAUSED, have %s", f.status)
	}
	f.totalSpentDepositUtxoCount += count
	return nil
}

// ProcessInput carries process's external inputs (spec.md §4.8 process).
type ProcessInput struct {
	Proof                  [256]byte
	VerifyingKey           []byte
	OldReturnCommitment    [32]byte
	NewReturnCommitment    [32]byte
	ConsolidationTarget    uint64
	NewCustodianHash       [32]byte
}

// Process implements process(proof, new_return_output): PAUSED ->
// COMPLETED iff total_spent_deposit_utxo_count >= consolidation_target.
// On success, the caller (engine.Bridge) rotates custodian hash and
// return-UTXO and clears transition state by calling Clear.
func (f *FSM) Process(v zkverify.Verifier, in ProcessInput) error {
	if f.status != Paused {
		return bridgeerrors.Wrapf(bridgeerrors.ErrUnauthorized, "custodian: process requires state PAUSED, have %s", f.status)
	}
	if f.totalSpentDepositUtxoCount < in.ConsolidationTarget {
		return bridgeerrors.ErrIncompleteConsolidation
	}

	inputs := zkverify.NewInputs().
		Push(in.OldReturnCommitment).
		Push(in.NewReturnCommitment).
		Push(f.incomingHash).
		Push(in.NewCustodianHash).
		Build()
	if err := zkverify.VerifyOrReject(v, in.VerifyingKey, in.Proof, inputs); err != nil {
		return err
	}

	f.status = Completed
	return nil
}

// Clear resets the FSM back to NONE, the terminal step of a completed
// or cancelled transition (spec.md §4.8: "COMPLETED -> NONE" /
// cancel's "back to NONE").
func (f *FSM) Clear() {
	f.status = None
	f.incomingHash = [32]byte{}
	f.startTS = 0
	f.totalSpentDepositUtxoCount = 0
}

// Cancel implements cancel: from PENDING or PAUSED back to NONE.
func (f *FSM) Cancel() error {
	if f.status != Pending && f.status != Paused {
		return bridgeerrors.Wrapf(bridgeerrors.ErrUnauthorized, "custodian: cancel requires state PENDING or PAUSED, have %s", f.status)
	}
	f.Clear()
	return nil
}

// DepositsBlocked reports whether deposit entrypoints must reject with
// DepositsBlockedDuringTransition: "while not NONE, deposit
// entrypoints reject once paused; PENDING does not block deposits"
// (spec.md §4.8 hard rule).
func (f *FSM) DepositsBlocked() bool {
	return f.status == Paused
}

// ConsolidationTarget computes consolidation_target = auto-claimed
// deposits next_index + manual-claimed deposits next_index, per
// spec.md §4.8 process precondition.
func ConsolidationTarget(autoClaimedNextIndex, manualClaimedNextIndex uint64) uint64 {
	return autoClaimedNextIndex + manualClaimedNextIndex
}

// ReturnCommitment is a small convenience matching
// wire.ReturnTxOutput.Commitment for custodian.Process call sites that
// haven't imported wire directly.
func ReturnCommitment(r wire.ReturnTxOutput) [32]byte {
	return r.Commitment()
}
