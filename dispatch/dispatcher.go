// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatch

import "fmt"

// Handler executes one decoded instruction per opcode. args carries
// the operation-specific request value the caller already assembled
// (typically an engine request struct); Handler implementations type-
// assert it to what that opcode expects. Decoding instruction data
// into accounts and arguments is host-chain-specific (spec.md §1 lists
// "foreign-chain runtime internals (account model...)" as a Non-goal),
// so Dispatcher routes already-decoded values rather than reinventing
// an account model here. engine.Bridge's DispatchAdapter implements
// Handler; dispatch never imports engine, keeping the routing table
// independent of the aggregate it drives.
type Handler interface {
	Initialize(args interface{}) error
	BlockUpdate(args interface{}) error
	RequestWithdrawal(args interface{}) error
	ProcessWithdrawal(args interface{}) error
	OperatorWithdrawFees(args interface{}) error
	ProcessManualDeposit(args interface{}) error
	ProcessReplayWithdrawal(args interface{}) error
	ProcessMintGroup(args interface{}) error
	ProcessReorgBlocks(args interface{}) error
	ProcessMintGroupAutoAdvance(args interface{}) error
	SnapshotWithdrawals(args interface{}) error
}

// Dispatcher decodes an instruction's 8-byte header and routes the
// caller-supplied args to the matching Handler method.
type Dispatcher struct{}

// NewDispatcher returns a stateless Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Dispatch decodes header from data and invokes the Handler method
// matching its opcode with args.
func (d *Dispatcher) Dispatch(data []byte, args interface{}, h Handler) error {
	hdr, err := DecodeHeader(data)
	if err != nil {
		return err
	}

	switch hdr.Opcode {
	case OpInitialize:
		return h.Initialize(args)
	case OpBlockUpdate:
		return h.BlockUpdate(args)
	case OpRequestWithdrawal:
		return h.RequestWithdrawal(args)
	case OpProcessWithdrawal:
		return h.ProcessWithdrawal(args)
	case OpOperatorWithdrawFees:
		return h.OperatorWithdrawFees(args)
	case OpProcessManualDeposit:
		return h.ProcessManualDeposit(args)
	case OpProcessReplayWithdrawal:
		return h.ProcessReplayWithdrawal(args)
	case OpProcessMintGroup:
		return h.ProcessMintGroup(args)
	case OpProcessReorgBlocks:
		return h.ProcessReorgBlocks(args)
	case OpProcessMintGroupAutoAdvance:
		return h.ProcessMintGroupAutoAdvance(args)
	case OpSnapshotWithdrawals:
		return h.SnapshotWithdrawals(args)
	default:
		return fmt.Errorf("dispatch: unknown opcode %d", uint8(hdr.Opcode))
	}
}
