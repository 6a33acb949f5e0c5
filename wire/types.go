// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wire holds the bit-exact on-wire structs named in spec.md
// §3 and §6. Encoding follows the consensus engine's own idiom for fixed-width
// structures (see dag/witness/cache.go): hand-written
// MarshalBinary/UnmarshalBinary over encoding/binary.LittleEndian,
// checked by size constants and round-trip tests rather than a
// reflection-based codec — see DESIGN.md for why luxfi/codec, an
// indirect dependency with no call-site anywhere in the retrieved
// corpus, is not used here.
package wire

import (
	"encoding/binary"

	"github.com/dogebridge/core/bridgeerrors"
)

// Wire sizes, bit-exact per spec.md §6.
const (
	StateCommitmentSize           = 200
	BridgeHeaderSize              = 448
	ReturnTxOutputSize            = 48
	BridgeConfigSize              = 48
	PendingMintSize               = 40
	FinalizedBlockMintTxoInfoSize = 64
	ManualClaimInstructionDataSize = 400
	CompactProofSize              = 256
)

// StateCommitment is the 200-byte commitment to one block's worth of
// bridge-relevant chain state (spec.md §3).
type StateCommitment struct {
	BlockHash                     [32]byte
	BlockMerkleTreeRoot            [32]byte
	PendingMintsFinalizedHash      [32]byte
	TxoOutputListFinalizedHash     [32]byte
	AutoClaimedTxoTreeRoot         [32]byte
	AutoClaimedDepositsTreeRoot    [32]byte
	AutoClaimedDepositsNextIndex  uint32
	BlockHeight                   uint32
}

// MarshalBinary encodes a StateCommitment to exactly StateCommitmentSize bytes.
func (s StateCommitment) MarshalBinary() ([]byte, error) {
	buf := make([]byte, StateCommitmentSize)
	off := 0
	off += copy(buf[off:], s.BlockHash[:])
	off += copy(buf[off:], s.BlockMerkleTreeRoot[:])
	off += copy(buf[off:], s.PendingMintsFinalizedHash[:])
	off += copy(buf[off:], s.TxoOutputListFinalizedHash[:])
	off += copy(buf[off:], s.AutoClaimedTxoTreeRoot[:])
	off += copy(buf[off:], s.AutoClaimedDepositsTreeRoot[:])
	binary.LittleEndian.PutUint32(buf[off:], s.AutoClaimedDepositsNextIndex)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], s.BlockHeight)
	off += 4
	return buf, nil
}

// UnmarshalBinary decodes a StateCommitment from exactly StateCommitmentSize bytes.
func (s *StateCommitment) UnmarshalBinary(buf []byte) error {
	if len(buf) != StateCommitmentSize {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "state commitment: want %d bytes got %d", StateCommitmentSize, len(buf))
	}
	off := 0
	off += copy(s.BlockHash[:], buf[off:])
	off += copy(s.BlockMerkleTreeRoot[:], buf[off:])
	off += copy(s.PendingMintsFinalizedHash[:], buf[off:])
	off += copy(s.TxoOutputListFinalizedHash[:], buf[off:])
	off += copy(s.AutoClaimedTxoTreeRoot[:], buf[off:])
	off += copy(s.AutoClaimedDepositsTreeRoot[:], buf[off:])
	s.AutoClaimedDepositsNextIndex = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	s.BlockHeight = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	return nil
}

// BridgeHeader is the 448-byte proposed header submitted to
// block_update/process_reorg_blocks (spec.md §3).
type BridgeHeader struct {
	Tip                                     StateCommitment
	Finalized                               StateCommitment
	BridgeStateHash                         [32]byte
	LastRollbackAtSecs                      uint32
	PausedUntilSecs                         uint32
	TotalFinalizedFeesCollectedChainHistory uint64
}

// MarshalBinary encodes a BridgeHeader to exactly BridgeHeaderSize bytes.
func (h BridgeHeader) MarshalBinary() ([]byte, error) {
	buf := make([]byte, BridgeHeaderSize)
	tip, err := h.Tip.MarshalBinary()
	if err != nil {
		return nil, err
	}
	fin, err := h.Finalized.MarshalBinary()
	if err != nil {
		return nil, err
	}
	off := 0
	off += copy(buf[off:], tip)
	off += copy(buf[off:], fin)
	off += copy(buf[off:], h.BridgeStateHash[:])
	binary.LittleEndian.PutUint32(buf[off:], h.LastRollbackAtSecs)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], h.PausedUntilSecs)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], h.TotalFinalizedFeesCollectedChainHistory)
	off += 8
	return buf, nil
}

// UnmarshalBinary decodes a BridgeHeader from exactly BridgeHeaderSize bytes.
func (h *BridgeHeader) UnmarshalBinary(buf []byte) error {
	if len(buf) != BridgeHeaderSize {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "bridge header: want %d bytes got %d", BridgeHeaderSize, len(buf))
	}
	if err := h.Tip.UnmarshalBinary(buf[0:StateCommitmentSize]); err != nil {
		return err
	}
	off := StateCommitmentSize
	if err := h.Finalized.UnmarshalBinary(buf[off : off+StateCommitmentSize]); err != nil {
		return err
	}
	off += StateCommitmentSize
	off += copy(h.BridgeStateHash[:], buf[off:])
	h.LastRollbackAtSecs = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.PausedUntilSecs = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	h.TotalFinalizedFeesCollectedChainHistory = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	return nil
}

// ReturnTxOutput is the single unspent output carrying the bridge's
// custodied balance between withdrawals (spec.md glossary: Return-UTXO).
type ReturnTxOutput struct {
	Sighash     [32]byte
	OutputIndex uint64
	AmountSats  uint64
}

// MarshalBinary encodes a ReturnTxOutput to exactly ReturnTxOutputSize bytes.
func (r ReturnTxOutput) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ReturnTxOutputSize)
	off := copy(buf, r.Sighash[:])
	binary.LittleEndian.PutUint64(buf[off:], r.OutputIndex)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], r.AmountSats)
	return buf, nil
}

// UnmarshalBinary decodes a ReturnTxOutput from exactly ReturnTxOutputSize bytes.
func (r *ReturnTxOutput) UnmarshalBinary(buf []byte) error {
	if len(buf) != ReturnTxOutputSize {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "return tx output: want %d bytes got %d", ReturnTxOutputSize, len(buf))
	}
	off := copy(r.Sighash[:], buf)
	r.OutputIndex = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	r.AmountSats = binary.LittleEndian.Uint64(buf[off:])
	return nil
}

// Commitment returns H(sighash, output_index, amount_sats) — the
// 32-byte form this return-UTXO contributes to a public-input vector
// (spec.md §4.5 step 3, §4.8 `process`).
func (r ReturnTxOutput) Commitment() [32]byte {
	buf, _ := r.MarshalBinary()
	return domainHash("dogebridge/wire/return-utxo/v1", buf)
}

// BridgeConfig is the 48-byte fee schedule (spec.md §3 "initial config").
type BridgeConfig struct {
	DepositFeeFlatSats     uint64
	DepositFeeBps          uint32
	WithdrawalFeeFlatSats  uint64
	WithdrawalFeeBps       uint32
	MinDepositSats         uint64
	MinWithdrawalSats      uint64
	MaxWithdrawalSats      uint64
}

// MarshalBinary encodes a BridgeConfig to exactly BridgeConfigSize bytes.
func (c BridgeConfig) MarshalBinary() ([]byte, error) {
	buf := make([]byte, BridgeConfigSize)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], c.DepositFeeFlatSats)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], c.DepositFeeBps)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], c.WithdrawalFeeFlatSats)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], c.WithdrawalFeeBps)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], c.MinDepositSats)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], c.MinWithdrawalSats)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], c.MaxWithdrawalSats)
	off += 8
	return buf, nil
}

// UnmarshalBinary decodes a BridgeConfig from exactly BridgeConfigSize bytes.
func (c *BridgeConfig) UnmarshalBinary(buf []byte) error {
	if len(buf) != BridgeConfigSize {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "bridge config: want %d bytes got %d", BridgeConfigSize, len(buf))
	}
	off := 0
	c.DepositFeeFlatSats = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	c.DepositFeeBps = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	c.WithdrawalFeeFlatSats = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	c.WithdrawalFeeBps = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	c.MinDepositSats = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	c.MinWithdrawalSats = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	c.MaxWithdrawalSats = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	return nil
}

// DepositFee returns the fee charged on a deposit of amountSats.
func (c BridgeConfig) DepositFee(amountSats uint64) uint64 {
	return c.DepositFeeFlatSats + (amountSats*uint64(c.DepositFeeBps))/10_000
}

// WithdrawalFee returns the fee charged on a withdrawal of amountSats.
func (c BridgeConfig) WithdrawalFee(amountSats uint64) uint64 {
	return c.WithdrawalFeeFlatSats + (amountSats*uint64(c.WithdrawalFeeBps))/10_000
}

// PendingMint is a single (recipient, amount) staged mint (spec.md §3, §4.3).
type PendingMint struct {
	Recipient [32]byte
	Amount    uint64
}

// MarshalBinary encodes a PendingMint to exactly PendingMintSize bytes.
func (p PendingMint) MarshalBinary() ([]byte, error) {
	buf := make([]byte, PendingMintSize)
	off := copy(buf, p.Recipient[:])
	binary.LittleEndian.PutUint64(buf[off:], p.Amount)
	return buf, nil
}

// UnmarshalBinary decodes a PendingMint from exactly PendingMintSize bytes.
func (p *PendingMint) UnmarshalBinary(buf []byte) error {
	if len(buf) != PendingMintSize {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "pending mint: want %d bytes got %d", PendingMintSize, len(buf))
	}
	off := copy(p.Recipient[:], buf)
	p.Amount = binary.LittleEndian.Uint64(buf[off:])
	return nil
}

// FinalizedBlockMintTxoInfo pairs one reorg-range block's finalized
// mint-hash and txo-hash (spec.md §4.5 process_reorg_blocks, §6).
type FinalizedBlockMintTxoInfo struct {
	PendingMintsFinalizedHash  [32]byte
	TxoOutputListFinalizedHash [32]byte
}

// MarshalBinary encodes to exactly FinalizedBlockMintTxoInfoSize bytes.
func (f FinalizedBlockMintTxoInfo) MarshalBinary() ([]byte, error) {
	buf := make([]byte, FinalizedBlockMintTxoInfoSize)
	off := copy(buf, f.PendingMintsFinalizedHash[:])
	copy(buf[off:], f.TxoOutputListFinalizedHash[:])
	return buf, nil
}

// UnmarshalBinary decodes from exactly FinalizedBlockMintTxoInfoSize bytes.
func (f *FinalizedBlockMintTxoInfo) UnmarshalBinary(buf []byte) error {
	if len(buf) != FinalizedBlockMintTxoInfoSize {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "finalized block mint/txo info: want %d bytes got %d", FinalizedBlockMintTxoInfoSize, len(buf))
	}
	off := copy(f.PendingMintsFinalizedHash[:], buf)
	copy(f.TxoOutputListFinalizedHash[:], buf[off:])
	return nil
}

// WithdrawalRequest is a user's burn-for-withdrawal request (spec.md §3).
// It is not a fixed table-driven wire size in spec.md §6 (it travels
// inside the withdrawal tree's leaves, not as raw instruction data), so
// it is encoded with the same MarshalBinary convention for hashing and
// persistence but without a dedicated *Size constant.
type WithdrawalRequest struct {
	Index       uint64
	AmountSats  uint64
	AddressType uint32
	Recipient   [20]byte
}

const withdrawalRequestSize = 8 + 8 + 4 + 20

// MarshalBinary encodes a WithdrawalRequest.
func (w WithdrawalRequest) MarshalBinary() ([]byte, error) {
	buf := make([]byte, withdrawalRequestSize)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], w.Index)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], w.AmountSats)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], w.AddressType)
	off += 4
	copy(buf[off:], w.Recipient[:])
	return buf, nil
}

// UnmarshalBinary decodes a WithdrawalRequest.
func (w *WithdrawalRequest) UnmarshalBinary(buf []byte) error {
	if len(buf) != withdrawalRequestSize {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "withdrawal request: want %d bytes got %d", withdrawalRequestSize, len(buf))
	}
	off := 0
	w.Index = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	w.AmountSats = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	w.AddressType = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	copy(w.Recipient[:], buf[off:])
	return nil
}

// LeafHash returns the merkle-leaf-domain hash of this request, for
// insertion into the withdrawal tree.
func (w WithdrawalRequest) LeafHash() [32]byte {
	buf, _ := w.MarshalBinary()
	return domainHash("dogebridge/wire/withdrawal-request-leaf/v1", buf)
}

// WithdrawalChainSnapshot is one entry of the snapshot ring (spec.md
// §3, glossary "Snapshot ring").
type WithdrawalChainSnapshot struct {
	NextWithdrawalIndex   uint64
	WithdrawalsMerkleRoot [32]byte
}

// DepositRecord is the auto-claim deposit record spec.md §4.6
// describes: "(tx_hash, combined_txo_index, recipient_pubkey,
// amount_sats)". [EXPANSION]: given a concrete Go type since spec.md
// only prose-describes the tuple.
type DepositRecord struct {
	TxHash            [32]byte
	CombinedTxoIndex  uint64
	RecipientPubkey   [32]byte
	AmountSats        uint64
}

const depositRecordSize = 32 + 8 + 32 + 8

// MarshalBinary encodes a DepositRecord.
func (d DepositRecord) MarshalBinary() ([]byte, error) {
	buf := make([]byte, depositRecordSize)
	off := copy(buf, d.TxHash[:])
	binary.LittleEndian.PutUint64(buf[off:], d.CombinedTxoIndex)
	off += 8
	off += copy(buf[off:], d.RecipientPubkey[:])
	binary.LittleEndian.PutUint64(buf[off:], d.AmountSats)
	return buf, nil
}

// UnmarshalBinary decodes a DepositRecord.
func (d *DepositRecord) UnmarshalBinary(buf []byte) error {
	if len(buf) != depositRecordSize {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "deposit record: want %d bytes got %d", depositRecordSize, len(buf))
	}
	off := copy(d.TxHash[:], buf)
	d.CombinedTxoIndex = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	off += copy(d.RecipientPubkey[:], buf[off:])
	d.AmountSats = binary.LittleEndian.Uint64(buf[off:])
	return nil
}

// LeafHash returns the merkle-leaf-domain hash of this deposit record,
// for insertion into the auto-claimed-deposits tree.
func (d DepositRecord) LeafHash() [32]byte {
	buf, _ := d.MarshalBinary()
	return domainHash("dogebridge/wire/deposit-record-leaf/v1", buf)
}

// ManualClaimInstructionData is the manual-claim program's 400-byte
// instruction payload (spec.md §4.6 manual-claim, §6). It carries the
// compact proof plus the non-circuit-derivable public facts the host
// needs to reconstruct the rest of the public-input vector; the
// resulting new manual-claim root is *derived* on-host via
// merkle.RootAfterAppend rather than carried as an input field, which
// is what makes the layout land at exactly 400 bytes (256 + 32 + 8 +
// 32 + 8 + 32 + 32).
type ManualClaimInstructionData struct {
	Proof                     [CompactProofSize]byte
	TxHash                    [32]byte
	CombinedTxoIndex          uint64
	Recipient                 [32]byte
	AmountSats                uint64
	RecentBlockMerkleTreeRoot [32]byte
	RecentAutoClaimTxoRoot    [32]byte
}

// MarshalBinary encodes a ManualClaimInstructionData to exactly
// ManualClaimInstructionDataSize bytes.
func (m ManualClaimInstructionData) MarshalBinary() ([]byte, error) {
	buf := make([]byte, ManualClaimInstructionDataSize)
	off := copy(buf, m.Proof[:])
	off += copy(buf[off:], m.TxHash[:])
	binary.LittleEndian.PutUint64(buf[off:], m.CombinedTxoIndex)
	off += 8
	off += copy(buf[off:], m.Recipient[:])
	binary.LittleEndian.PutUint64(buf[off:], m.AmountSats)
	off += 8
	off += copy(buf[off:], m.RecentBlockMerkleTreeRoot[:])
	copy(buf[off:], m.RecentAutoClaimTxoRoot[:])
	return buf, nil
}

// UnmarshalBinary decodes a ManualClaimInstructionData from exactly
// ManualClaimInstructionDataSize bytes.
func (m *ManualClaimInstructionData) UnmarshalBinary(buf []byte) error {
	if len(buf) != ManualClaimInstructionDataSize {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "manual claim instruction data: want %d bytes got %d", ManualClaimInstructionDataSize, len(buf))
	}
	off := copy(m.Proof[:], buf)
	off += copy(m.TxHash[:], buf[off:])
	m.CombinedTxoIndex = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	off += copy(m.Recipient[:], buf[off:])
	m.AmountSats = binary.LittleEndian.Uint64(buf[off:])
	off += 8
	off += copy(m.RecentBlockMerkleTreeRoot[:], buf[off:])
	copy(m.RecentAutoClaimTxoRoot[:], buf[off:])
	return nil
}
