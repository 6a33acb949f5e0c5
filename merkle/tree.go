// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package merkle implements the bounded-depth append-only merkle tree
// used throughout the bridge core (spec.md §4.1): the auto-claimed-TXO
// tree, the auto-claimed-deposits tree, the withdrawal tree, and every
// per-user manual-claim subtree.
//
// Per spec.md §4.1/§8, the root is NOT recomputed from a conventional
// sibling-path binary tree; it is a pure function of
// (depth, next_index, leaves): each Append folds the new leaf into the
// running root under a fixed domain-separated hash,
//
//	root' = H(tag, root, next_index, leaf)
//
// so the on-host account only ever needs to retain (next_index, root)
// — no sibling path, no leaf log — and the root is a pure function of
// that pair plus the leaf sequence that produced it.
package merkle

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/dogebridge/core/bridgeerrors"
)

// MaxDepth bounds the zero-root table precomputed at init. No tree
// constructed through New may exceed it.
const MaxDepth = 64

// domainTag domain-separates this chain's node hashing from every
// other hash computed in this module (leaf hashing) or elsewhere
// (state hashing, sighash).
const domainTag = "dogebridge/merkle/node/v1"

// leafTag domain-separates leaf hashing from node hashing.
const leafTag = "dogebridge/merkle/leaf/v1"

// emptyRoots[d] is the root of a fresh, empty tree of depth d.
var emptyRoots [MaxDepth + 1][32]byte

func init() {
	base := sha256.Sum256([]byte("dogebridge/merkle/empty-root/v1"))
	for d := 0; d <= MaxDepth; d++ {
		emptyRoots[d] = base
	}
}

// LeafHash hashes raw leaf bytes into the tree's leaf domain. Callers
// append the result, never the raw bytes, so every leaf slot is a
// fixed-size 32-byte value regardless of payload shape.
func LeafHash(payload []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(leafTag))
	h.Write(payload)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// RootAfterAppend computes the new root the way spec.md §4.1/§8
// requires: "root after append(x) equals H(root_before, next_index_before, x)
// under the domain tag". This is the single source of truth for the
// root transition; Tree.Append and any proof-side recomputation of a
// claimed new root must both call this function.
func RootAfterAppend(rootBefore [32]byte, nextIndexBefore uint64, leaf [32]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(domainTag))
	h.Write(rootBefore[:])
	var idxBuf [8]byte
	binary.LittleEndian.PutUint64(idxBuf[:], nextIndexBefore)
	h.Write(idxBuf[:])
	h.Write(leaf[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Tree is a fixed-depth append-only merkle tree. Its root is derivable
// from (depth, next_index, last-leaf chain) alone — see RootAfterAppend
// — matching the on-host storage constraint in spec.md §4.1.
//
// Tree is not safe for concurrent use; callers serialize access the
// way the host chain serializes mutations to one account (spec.md §5).
type Tree struct {
	depth     uint8
	nextIndex uint64
	root      [32]byte
}

// New constructs an empty tree of the given depth (1..MaxDepth).
// Capacity is 2^depth leaves (2^64-1 at depth 64, the largest uint64).
func New(depth uint8) (*Tree, error) {
	if depth == 0 || depth > MaxDepth {
		return nil, bridgeerrors.Wrapf(bridgeerrors.ErrTreeFull, "invalid depth %d", depth)
	}
	return &Tree{depth: depth, root: emptyRoots[depth]}, nil
}

// Capacity returns the maximum number of leaves this tree can hold.
func (t *Tree) Capacity() uint64 {
	if t.depth >= 64 {
		return ^uint64(0)
	}
	return uint64(1) << t.depth
}

// Depth returns the tree's fixed depth.
func (t *Tree) Depth() uint8 {
	return t.depth
}

// NextIndex returns the index the next Append call will occupy.
func (t *Tree) NextIndex() uint64 {
	return t.nextIndex
}

// Root returns the current root.
func (t *Tree) Root() [32]byte {
	return t.root
}

// Append extends the tree at the next free slot with leaf (already
// leaf-hashed by the caller via LeafHash) and returns the index it was
// inserted at. Fails with ErrTreeFull once the tree is at capacity.
func (t *Tree) Append(leaf [32]byte) (uint64, error) {
	if t.nextIndex >= t.Capacity() {
		return 0, bridgeerrors.ErrTreeFull
	}
	index := t.nextIndex
	t.root = RootAfterAppend(t.root, t.nextIndex, leaf)
	t.nextIndex++
	return index, nil
}

// AppendN appends every leaf in order and returns the index of the
// first inserted leaf. Used by batch insertion paths (a block's worth
// of auto-claimed deposit records and their TXO indices) where the
// proof attests "new next_index equals old + count".
func (t *Tree) AppendN(leaves [][32]byte) (uint64, error) {
	if uint64(len(leaves)) > t.Capacity()-t.nextIndex {
		return 0, bridgeerrors.ErrTreeFull
	}
	first := t.nextIndex
	for _, leaf := range leaves {
		if _, err := t.Append(leaf); err != nil {
			return 0, err
		}
	}
	return first, nil
}

// Snapshot captures (depth, next_index, root) — exactly what the
// host-chain account preallocates — so a caller can restore an exact
// tree state without replaying every leaf.
type Snapshot struct {
	Depth     uint8
	NextIndex uint64
	Root      [32]byte
}

// Snapshot returns the tree's current state.
func (t *Tree) Snapshot() Snapshot {
	return Snapshot{Depth: t.depth, NextIndex: t.nextIndex, Root: t.root}
}

// Restore rebuilds a Tree from a Snapshot previously produced by this
// package.
func Restore(s Snapshot) *Tree {
	return &Tree{depth: s.Depth, nextIndex: s.NextIndex, root: s.Root}
}
