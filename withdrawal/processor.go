// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package withdrawal

import (
	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/bridgestate"
	"github.com/dogebridge/core/buffer"
	"github.com/dogebridge/core/outbox"
	"github.com/dogebridge/core/wire"
	"github.com/dogebridge/core/zkverify"
)

// OutboundTopic is the outbox.Bus topic withdrawal completions and
// replays are emitted under (spec.md §4.7 step 5, §6).
const OutboundTopic = "withdrawal"

// Processor executes process_withdrawal/process_replay_withdrawal
// against a bridgestate.State, emitting through an outbox.Bus.
type Processor struct {
	State *bridgestate.State
	Bus   *outbox.Bus
}

// NewProcessor wires a Processor over the given state and bus.
func NewProcessor(state *bridgestate.State, bus *outbox.Bus) *Processor {
	return &Processor{State: state, Bus: bus}
}

// ProcessWithdrawalInput carries process_withdrawal's external inputs
// (spec.md §4.7) beyond the Processor's own state.
type ProcessWithdrawalInput struct {
	Proof                            [256]byte
	VerifyingKey                     []byte
	NewReturnOutput                  wire.ReturnTxOutput
	NewSpentTxoTreeRoot              [32]byte
	NewNextProcessedWithdrawalsIndex uint64
	DogeTxBytesBuffer                *buffer.Generic
	ReferencedSnapshot               wire.WithdrawalChainSnapshot
	CustodianConfigHash              [32]byte
}

// ProcessWithdrawal implements spec.md §4.7 process_withdrawal.
func (p *Processor) ProcessWithdrawal(v zkverify.Verifier, in ProcessWithdrawalInput) error {
	sighash, err := in.DogeTxBytesBuffer.Freeze()
	if err != nil {
		return err
	}
	if in.NewNextProcessedWithdrawalsIndex <= p.State.NextProcessedWithdrawalsIndex {
		return bridgeerrors.Wrapf(bridgeerrors.ErrHeightMismatch, "new next_processed_withdrawals_index %d must exceed old %d", in.NewNextProcessedWithdrawalsIndex, p.State.NextProcessedWithdrawalsIndex)
	}

	oldIdxBuf := encodeUint64(p.State.NextProcessedWithdrawalsIndex)
	newIdxBuf := encodeUint64(in.NewNextProcessedWithdrawalsIndex)
	snapIdxBuf := encodeUint64(in.ReferencedSnapshot.NextWithdrawalIndex)

	inputs := zkverify.NewInputs().
		Push(sighash).
		Push(p.State.ReturnUTXO.Commitment()).
		Push(in.NewReturnOutput.Commitment()).
		Push(p.State.SpentTxoTreeRoot).
		Push(in.NewSpentTxoTreeRoot).
		Push(in.ReferencedSnapshot.WithdrawalsMerkleRoot).
		Push(snapIdxBuf).
		Push(oldIdxBuf).
		Push(newIdxBuf).
		Push(in.CustodianConfigHash).
		Build()
	if err := zkverify.VerifyOrReject(v, in.VerifyingKey, in.Proof, inputs); err != nil {
		return err
	}

	p.State.ReturnUTXO = in.NewReturnOutput
	p.State.SpentTxoTreeRoot = in.NewSpentTxoTreeRoot
	p.State.NextProcessedWithdrawalsIndex = in.NewNextProcessedWithdrawalsIndex

	p.Bus.Emit(OutboundTopic, sighash)
	return nil
}

// ProcessReplayWithdrawal implements spec.md §4.7
// process_replay_withdrawal: re-emits the outbound message for the
// already-processed withdrawal identified by dogeTxBytesBuffer's
// sighash, without mutating state. Fails if the sighash does not match
// the most recently processed withdrawal.
func (p *Processor) ProcessReplayWithdrawal(dogeTxBytesBuffer *buffer.Generic) error {
	sighash, err := dogeTxBytesBuffer.Freeze()
	if err != nil {
		return err
	}
	last, ok := p.Bus.Last(OutboundTopic)
	if !ok || last.Payload != sighash {
		return bridgeerrors.Wrapf(bridgeerrors.ErrInvalidProof, "replay withdrawal: sighash does not match most recently processed withdrawal")
	}
	p.Bus.Emit(OutboundTopic, sighash)
	return nil
}

func encodeUint64(v uint64) [32]byte {
	var out [32]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}
