// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package dispatch decodes instruction headers and derives account
// addresses per spec.md §6 (External Interfaces). It carries no
// bridge-domain logic of its own: every opcode routes to a method on
// engine.Bridge.
package dispatch

import "fmt"

// Opcode identifies a bridge instruction, per spec.md §6's stable
// opcode table.
type Opcode uint8

const (
	OpInitialize                    Opcode = 0
	OpBlockUpdate                   Opcode = 1
	OpRequestWithdrawal              Opcode = 2
	OpProcessWithdrawal              Opcode = 3
	OpOperatorWithdrawFees           Opcode = 4
	OpProcessManualDeposit           Opcode = 5
	OpProcessReplayWithdrawal        Opcode = 6
	OpProcessMintGroup               Opcode = 7
	OpProcessReorgBlocks             Opcode = 8
	OpProcessMintGroupAutoAdvance    Opcode = 9
	OpSnapshotWithdrawals            Opcode = 10
)

// opcodeNames mirrors the spec.md §6 table in declaration order.
var opcodeNames = [...]string{
	"initialize",
	"block_update",
	"request_withdrawal",
	"process_withdrawal",
	"operator_withdraw_fees",
	"process_manual_deposit",
	"process_replay_withdrawal",
	"process_mint_group",
	"process_reorg_blocks",
	"process_mint_group_auto_advance",
	"snapshot_withdrawals",
}

func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("opcode(%d)", uint8(o))
}

// Valid reports whether o is one of the eleven stable opcodes.
func (o Opcode) Valid() bool {
	return int(o) < len(opcodeNames)
}

// ManualClaimOpcode is the single opcode of the separate manual-claim
// program (spec.md §6: "Manual-claim program: opcode 0 =
// manual-claim-transaction").
const ManualClaimOpcode Opcode = 0

// HeaderSize is the fixed 8-byte instruction header: opcode (repeated
// for padding) followed by bump seeds for address derivation.
const HeaderSize = 8

// Header is a decoded 8-byte instruction header.
type Header struct {
	Opcode   Opcode
	BumpSeeds [HeaderSize - 1]byte
}

// DecodeHeader parses the first HeaderSize bytes of an instruction.
// The opcode occupies byte 0; bytes 1..7 are the bump-seed trailer
// used for deterministic-address derivation (spec.md §6).
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("dispatch: instruction header requires %d bytes, got %d", HeaderSize, len(data))
	}
	var h Header
	h.Opcode = Opcode(data[0])
	copy(h.BumpSeeds[:], data[1:HeaderSize])
	return h, nil
}
