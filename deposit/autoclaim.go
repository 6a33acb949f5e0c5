// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package deposit implements the auto-claim and manual-claim deposit
// pipelines of spec.md §4.6.
package deposit

import (
	"encoding/binary"

	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/buffer"
	"github.com/dogebridge/core/merkle"
	"github.com/dogebridge/core/principal"
	"github.com/dogebridge/core/wire"
)

// BridgeCaller is the CPI-style interface the manual-claim path calls
// into, grounded on spec.md §9's "cross-program invocation... model as
// a function the core exports and the manual-claim module imports".
// The bridge core implements this; deposit.ManualClaim only depends on
// the interface, never on the concrete engine type, avoiding an import
// cycle between deposit and engine.
type BridgeCaller interface {
	// MintTo credits amountSats of wrapped tokens to recipient, minus
	// the configured deposit fee. Called by both auto-claim and
	// manual-claim once their respective proof has verified.
	MintTo(recipient principal.Principal, amountSats uint64) error
	// ProcessManualDeposit updates the bridge's global
	// manual_claim_txo_tree_root (spec.md §4.6 manual-claim, final step).
	ProcessManualDeposit(newManualClaimTxoRoot [32]byte) error
}

// txoLeafHash hashes a combined_txo_index into the TXO tree's leaf
// domain (merkle.LeafHash applies the package-wide leaf tag; no
// further domain separation is needed between leaf kinds since each
// tree only ever holds one).
func txoLeafHash(combinedTxoIndex uint64) [32]byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], combinedTxoIndex)
	return merkle.LeafHash(buf[:])
}

// AutoClaimTxoTree is the auto_claimed_txo_tree of spec.md §3/§4.6: a
// fixed-append tree of the combined_txo_index values the bridge has
// already auto-claimed, distinct from the auto_claimed_deposits tree
// of full deposit records. Its root anchors the non-membership witness
// a manual-claim proof must carry ("tx_hash must not be present in the
// auto_claimed_txo_tree at combined_txo_index", spec.md §4.6).
//
// The merkle tree alone cannot answer "is this index already claimed"
// without a sibling path the host never retains (spec.md §4.1), so
// AutoClaimTxoTree keeps an exact side index of every inserted index
// — the same fast-check-backed-by-authoritative-structure pattern
// deposit.ClaimHistory uses alongside ManualClaimState's subtree — to
// give engine.Bridge a real Contains check instead of approximating
// one from next_index.
type AutoClaimTxoTree struct {
	tree    *merkle.Tree
	claimed map[uint64]struct{}
}

// NewAutoClaimTxoTree wraps an empty auto_claimed_txo_tree.
func NewAutoClaimTxoTree(tree *merkle.Tree) *AutoClaimTxoTree {
	return &AutoClaimTxoTree{tree: tree, claimed: make(map[uint64]struct{})}
}

// InsertIndices appends each combined_txo_index in order, mirroring
// the deposits tree's "new next_index equals old + count" attestation,
// and records every index as claimed. Returns the index of the first
// inserted leaf.
func (a *AutoClaimTxoTree) InsertIndices(indices []uint64) (uint64, error) {
	leaves := make([][32]byte, len(indices))
	for i, idx := range indices {
		leaves[i] = txoLeafHash(idx)
	}
	first, err := a.tree.AppendN(leaves)
	if err != nil {
		return 0, err
	}
	for _, idx := range indices {
		a.claimed[idx] = struct{}{}
	}
	return first, nil
}

// Contains reports whether combinedTxoIndex has already been
// auto-claimed — the real non-membership check spec.md §4.6 requires
// SubmitManualClaim to run before accepting a manual-claim proof.
func (a *AutoClaimTxoTree) Contains(combinedTxoIndex uint64) bool {
	_, ok := a.claimed[combinedTxoIndex]
	return ok
}

// Root returns the current auto_claimed_txo_tree_root.
func (a *AutoClaimTxoTree) Root() [32]byte {
	return a.tree.Root()
}

// NextIndex returns the TXO tree's next_index.
func (a *AutoClaimTxoTree) NextIndex() uint64 {
	return a.tree.NextIndex()
}

// AutoClaim is the proof-driven insertion path: each block_update
// records deposits into the auto_claimed_deposits tree and their
// combined_txo_index values into the sibling auto_claimed_txo_tree in
// lockstep, then mints group-by-group from the locked pending-mint
// buffer.
type AutoClaim struct {
	deposits *merkle.Tree
	txo      *AutoClaimTxoTree
}

// NewAutoClaim wraps an auto-claimed-deposits tree and its sibling
// auto-claimed-TXO tree.
func NewAutoClaim(deposits *merkle.Tree, txo *AutoClaimTxoTree) *AutoClaim {
	return &AutoClaim{deposits: deposits, txo: txo}
}

// InsertRecords appends deposit records in order, as block_update's
// proof attests ("new next_index equals old + count", spec.md §4.6),
// inserting each record's combined_txo_index into the TXO tree at the
// same time so it is immediately ineligible for a manual claim.
// Returns the index of the first inserted record.
func (a *AutoClaim) InsertRecords(records []wire.DepositRecord) (uint64, error) {
	leaves := make([][32]byte, len(records))
	indices := make([]uint64, len(records))
	for i, r := range records {
		leaves[i] = r.LeafHash()
		indices[i] = r.CombinedTxoIndex
	}
	first, err := a.deposits.AppendN(leaves)
	if err != nil {
		return 0, err
	}
	if _, err := a.txo.InsertIndices(indices); err != nil {
		return 0, err
	}
	return first, nil
}

// Root returns the current auto_claimed_deposits_tree_root.
func (a *AutoClaim) Root() [32]byte {
	return a.deposits.Root()
}

// NextIndex returns auto_claimed_deposits_next_index.
func (a *AutoClaim) NextIndex() uint64 {
	return a.deposits.NextIndex()
}

// TxoRoot returns the current auto_claimed_txo_tree_root.
func (a *AutoClaim) TxoRoot() [32]byte {
	return a.txo.Root()
}

// TxoNextIndex returns the TXO tree's next_index.
func (a *AutoClaim) TxoNextIndex() uint64 {
	return a.txo.NextIndex()
}

// Contains reports whether combinedTxoIndex has already been
// auto-claimed, per AutoClaimTxoTree.Contains.
func (a *AutoClaim) Contains(combinedTxoIndex uint64) bool {
	return a.txo.Contains(combinedTxoIndex)
}

// ProcessMintGroup mints every (recipient, amount) in mint group
// groupIdx via caller, marking the group consumed to forbid
// double-mint (spec.md §4.6). If shouldUnlock is set and this is the
// last unconsumed group, the mint buffer is unlocked.
func ProcessMintGroup(locker principal.Principal, buf *buffer.Mint, groupIdx int, shouldUnlock bool, caller BridgeCaller) error {
	group, err := buf.ReadGroup(locker, groupIdx)
	if err != nil {
		return err
	}
	if buf.IsConsumed(groupIdx) {
		return bridgeerrors.ErrAlreadyProcessed
	}
	for _, mint := range group {
		if err := caller.MintTo(mint.Recipient, mint.Amount); err != nil {
			return err
		}
	}
	if err := buf.MarkConsumed(locker, groupIdx); err != nil {
		return err
	}
	if shouldUnlock && buf.AllConsumed() {
		return buf.Unlock(locker)
	}
	return nil
}

// ProcessMintGroupAutoAdvance is opcode 9 (spec.md §6, §9 open
// question): a convenience wrapper around ProcessMintGroup that also
// advances the TXO buffer's read cursor when the group was the last
// one. Never required for correctness — any caller could instead issue
// ProcessMintGroup followed by a separate cursor advance.
func ProcessMintGroupAutoAdvance(locker principal.Principal, buf *buffer.Mint, groupIdx int, shouldUnlock bool, caller BridgeCaller, advanceTxoCursor func() error) error {
	if err := ProcessMintGroup(locker, buf, groupIdx, shouldUnlock, caller); err != nil {
		return err
	}
	if buf.AllConsumed() && advanceTxoCursor != nil {
		return advanceTxoCursor()
	}
	return nil
}
