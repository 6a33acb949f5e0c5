// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package withdrawal

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/wire"
)

// SnapshotRingDepth bounds the ring (glossary: "Snapshot ring... bounded
// ring buffer"). A fixed, generous depth: the host-chain account would
// size this to its compute-budget constraints; here it is a constant
// since no Non-goal covers tuning it.
const SnapshotRingDepth = 16

// SnapshotRing is the bounded ring of recent
// (nextWithdrawalIndex, withdrawalsMerkleRoot) pairs spec.md §4.7
// snapshot_withdrawals promotes the queue's current head into, so a
// process_withdrawal proof can reference a stable, already-committed
// set instead of racing fresh requests.
type SnapshotRing struct {
	entries [SnapshotRingDepth]wire.WithdrawalChainSnapshot
	count   int
	next    int
}

// NewSnapshotRing returns an empty ring.
func NewSnapshotRing() *SnapshotRing {
	return &SnapshotRing{}
}

// Push promotes (nextIndex, root) into the ring, overwriting the
// oldest entry once full.
func (r *SnapshotRing) Push(nextIndex uint64, root [32]byte) {
	r.entries[r.next] = wire.WithdrawalChainSnapshot{NextWithdrawalIndex: nextIndex, WithdrawalsMerkleRoot: root}
	r.next = (r.next + 1) % SnapshotRingDepth
	if r.count < SnapshotRingDepth {
		r.count++
	}
}

// Contains reports whether (nextIndex, root) is one of the retained snapshots.
func (r *SnapshotRing) Contains(nextIndex uint64, root [32]byte) bool {
	for i := 0; i < r.count; i++ {
		if r.entries[i].NextWithdrawalIndex == nextIndex && r.entries[i].WithdrawalsMerkleRoot == root {
			return true
		}
	}
	return false
}

// Latest returns the most recently pushed snapshot, or an error if the
// ring is empty.
func (r *SnapshotRing) Latest() (wire.WithdrawalChainSnapshot, error) {
	if r.count == 0 {
		return wire.WithdrawalChainSnapshot{}, bridgeerrors.Wrapf(bridgeerrors.ErrBufferNotFrozen, "snapshot ring: no snapshots taken yet")
	}
	idx := (r.next - 1 + SnapshotRingDepth) % SnapshotRingDepth
	return r.entries[idx], nil
}

// CommitmentHash is the 32-byte commitment bridgestate.State folds
// into bridge_state_hash, computed as a domain-separated hash of every
// retained snapshot in ring order.
func (r *SnapshotRing) CommitmentHash() [32]byte {
	h := sha256.New()
	h.Write([]byte("dogebridge/withdrawal/snapshot-ring/v1"))
	for i := 0; i < r.count; i++ {
		e := r.entries[i]
		var idxBuf [8]byte
		binary.LittleEndian.PutUint64(idxBuf[:], e.NextWithdrawalIndex)
		h.Write(idxBuf[:])
		h.Write(e.WithdrawalsMerkleRoot[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
