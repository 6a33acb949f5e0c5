// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deposit

import (
	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/merkle"
	"github.com/dogebridge/core/principal"
	"github.com/dogebridge/core/wire"
	"github.com/dogebridge/core/zkverify"
)

// ClaimHistoryDepth bounds the per-user fast-check ring added beyond
// the bare merkle subtree (spec.md §4.6 [EXPANSION], grounded on
// networking/benchlist's fast-in-memory-check-backed-by-authoritative-
// structure pattern): it answers "has this tx_hash already been
// attempted" in O(1) for the common re-submission case.
const ClaimHistoryDepth = 64

// ClaimHistory is a bounded per-user ring of recently manual-claimed
// tx hashes. It is bookkeeping only: the authoritative answer is
// always the merkle subtree's non-membership property, verified by
// the proof. ClaimHistory just short-circuits an obviously-repeated
// submission before doing any tree work.
type ClaimHistory struct {
	entries [ClaimHistoryDepth][32]byte
	count   int
	next    int
}

// NewClaimHistory returns an empty ring.
func NewClaimHistory() *ClaimHistory {
	return &ClaimHistory{}
}

// Seen reports whether txHash appears in the ring.
func (c *ClaimHistory) Seen(txHash [32]byte) bool {
	for i := 0; i < c.count; i++ {
		if c.entries[i] == txHash {
			return true
		}
	}
	return false
}

// Record inserts txHash, overwriting the oldest entry once full.
func (c *ClaimHistory) Record(txHash [32]byte) {
	c.entries[c.next] = txHash
	c.next = (c.next + 1) % ClaimHistoryDepth
	if c.count < ClaimHistoryDepth {
		c.count++
	}
}

// ManualClaimState is the per-user state spec.md §3 describes:
// "a per-user root of a fixed-append subtree of that user's
// manual-claimed tx hashes."
type ManualClaimState struct {
	user    principal.Principal
	subtree *merkle.Tree
	history *ClaimHistory
}

// NewManualClaimState constructs empty per-user state with a subtree
// of the given depth.
func NewManualClaimState(user principal.Principal, subtreeDepth uint8) (*ManualClaimState, error) {
	tree, err := merkle.New(subtreeDepth)
	if err != nil {
		return nil, err
	}
	return &ManualClaimState{user: user, subtree: tree, history: NewClaimHistory()}, nil
}

// Root returns the user's manual-claim subtree root.
func (m *ManualClaimState) Root() [32]byte {
	return m.subtree.Root()
}

// RecentRoots is the bridge's bounded ring of recent
// (block_merkle_tree_root, auto_claim_txo_root) pairs a manual-claim
// proof may reference (spec.md §4.6: "recent — proof carries
// recent_block_merkle_tree_root and recent_auto_claim_txo_root, both
// checked against the bridge's ring of recent roots").
type RecentRoots struct {
	blockRoots    [][32]byte
	autoClaimRoots [][32]byte
	depth         int
}

// NewRecentRoots returns a ring retaining the last depth snapshots.
func NewRecentRoots(depth int) *RecentRoots {
	return &RecentRoots{depth: depth}
}

// Push records the latest finalized block_merkle_tree_root and
// auto_claimed_txo_tree_root pair, evicting the oldest once full.
func (r *RecentRoots) Push(blockRoot, autoClaimRoot [32]byte) {
	r.blockRoots = append(r.blockRoots, blockRoot)
	r.autoClaimRoots = append(r.autoClaimRoots, autoClaimRoot)
	if len(r.blockRoots) > r.depth {
		r.blockRoots = r.blockRoots[1:]
		r.autoClaimRoots = r.autoClaimRoots[1:]
	}
}

// Contains reports whether (blockRoot, autoClaimRoot) appears together
// in the ring at the same position.
func (r *RecentRoots) Contains(blockRoot, autoClaimRoot [32]byte) bool {
	for i := range r.blockRoots {
		if r.blockRoots[i] == blockRoot && r.autoClaimRoots[i] == autoClaimRoot {
			return true
		}
	}
	return false
}

// ManualClaimRequest bundles the checked instruction data plus the
// derived facts Claim needs to verify non-membership and insert.
type ManualClaimRequest struct {
	Data                wire.ManualClaimInstructionData
	VerifyingKey        []byte
	AutoClaimContains   func(combinedTxoIndex uint64) bool
}

// Claim executes spec.md §4.6 manual-claim: verifies the tx_hash is
// anchored to a recent finalized block, is absent from both the
// auto-claim tree and the user's own subtree, and mints on success.
func (m *ManualClaimState) Claim(v zkverify.Verifier, recent *RecentRoots, req ManualClaimRequest, caller BridgeCaller) error {
	if m.history.Seen(req.Data.TxHash) {
		return bridgeerrors.ErrDepositAlreadyClaimed
	}
	if !recent.Contains(req.Data.RecentBlockMerkleTreeRoot, req.Data.RecentAutoClaimTxoRoot) {
		return bridgeerrors.Wrapf(bridgeerrors.ErrInvalidProof, "manual claim: recent roots not found in bridge's recent-roots ring")
	}
	if req.AutoClaimContains != nil && req.AutoClaimContains(req.Data.CombinedTxoIndex) {
		return bridgeerrors.ErrDepositAlreadyClaimed
	}

	leaf := merkle.LeafHash(req.Data.TxHash[:])
	newRoot := merkle.RootAfterAppend(m.subtree.Root(), m.subtree.NextIndex(), leaf)

	inputs := zkverify.NewInputs().
		Push(req.Data.RecentBlockMerkleTreeRoot).
		Push(req.Data.RecentAutoClaimTxoRoot).
		Push(req.Data.TxHash).
		Push(m.subtree.Root()).
		Push(newRoot).
		Build()
	if err := zkverify.VerifyOrReject(v, req.VerifyingKey, req.Data.Proof, inputs); err != nil {
		return err
	}

	if _, err := m.subtree.Append(leaf); err != nil {
		return err
	}
	m.history.Record(req.Data.TxHash)

	if err := caller.MintTo(req.Data.Recipient, req.Data.AmountSats); err != nil {
		return err
	}
	return caller.ProcessManualDeposit(newRoot)
}
