// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package withdrawal implements the withdrawal pipeline of spec.md
// §4.7: the FIFO request queue, the snapshot ring that stabilizes
// proofs against concurrent new requests, and proof-gated execution.
package withdrawal

import (
	"github.com/dogebridge/core/merkle"
	"github.com/dogebridge/core/wire"
)

// Queue is the append-only withdrawal-request log: every burn is
// assigned nextWithdrawalIndex++ and inserted as a leaf of the
// withdrawal tree, never removed (spec.md §3 WithdrawalRequest
// lifecycle: "fulfilled by snapshot advance", not deletion).
type Queue struct {
	tree     *merkle.Tree
	requests []wire.WithdrawalRequest
}

// NewQueue wraps a withdrawal tree of the given depth.
func NewQueue(depth uint8) (*Queue, error) {
	tree, err := merkle.New(depth)
	if err != nil {
		return nil, err
	}
	return &Queue{tree: tree}, nil
}

// Request assigns req the next withdrawal index, inserts it into the
// tree, and returns the assigned index.
func (q *Queue) Request(req wire.WithdrawalRequest) (uint64, error) {
	req.Index = q.tree.NextIndex()
	leaf := req.LeafHash()
	index, err := q.tree.Append(leaf)
	if err != nil {
		return 0, err
	}
	q.requests = append(q.requests, req)
	return index, nil
}

// NextIndex returns nextWithdrawalIndex.
func (q *Queue) NextIndex() uint64 {
	return q.tree.NextIndex()
}

// Root returns the current withdrawalsMerkleRoot.
func (q *Queue) Root() [32]byte {
	return q.tree.Root()
}

// At returns the withdrawal request assigned index i, and whether it exists.
func (q *Queue) At(i uint64) (wire.WithdrawalRequest, bool) {
	if i >= uint64(len(q.requests)) {
		return wire.WithdrawalRequest{}, false
	}
	return q.requests[i], true
}
