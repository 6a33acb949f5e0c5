// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package buffer

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/principal"
)

// TXO is the versioned (batch_id, height) list of UTXO indices
// spec.md §4.4 describes: a delta set for a Dogecoin block (spent by
// the bridge, or created for the bridge), resizeable until finalized.
type TXO struct {
	writer    principal.Principal
	batchID   uint32
	height    uint32
	indices   []uint32
	finalized bool

	// lastBatchID is the highest batch_id this buffer account has ever
	// been opened under, enforcing the monotonic-batch invariant across
	// reopenings (spec.md §4.4 invariant).
	lastBatchID uint32
	everOpened  bool
}

// NewTXO constructs an empty TXO buffer owned by writer.
func NewTXO(writer principal.Principal) *TXO {
	return &TXO{writer: writer}
}

// Writer returns the buffer's authorized writer.
func (t *TXO) Writer() principal.Principal { return t.writer }

// BatchID returns the buffer's current batch.
func (t *TXO) BatchID() uint32 { return t.batchID }

// Height returns the buffer's current block height.
func (t *TXO) Height() uint32 { return t.height }

// Finalized reports whether the (batch_id, height) pair is sealed.
func (t *TXO) Finalized() bool { return t.finalized }

// Len returns the current index count.
func (t *TXO) Len() int { return len(t.indices) }

// SetLen is the sole entry point for length changes. resize extends
// the backing allocation; finalize seals the (batchID, height) pair.
// batchID must be monotonically non-decreasing across reopenings for
// this buffer account.
func (t *TXO) SetLen(caller principal.Principal, newLen int, resize bool, batchID, height uint32, finalize bool) error {
	if !principal.VerifySigner(t.writer, caller) {
		return bridgeerrors.ErrUnauthorized
	}
	if t.everOpened && batchID < t.lastBatchID {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferNotFrozen, "txo buffer: batch_id %d is stale, last seen %d", batchID, t.lastBatchID)
	}
	if batchID != t.batchID {
		// Reopening under a new batch: previous contents no longer
		// apply to the new batch's storage.
		t.finalized = false
	}
	t.batchID = batchID
	t.height = height
	t.lastBatchID = batchID
	t.everOpened = true

	if newLen < 0 {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "txo buffer: negative length %d", newLen)
	}
	switch {
	case newLen <= len(t.indices):
		t.indices = t.indices[:newLen]
	case resize:
		grown := make([]uint32, newLen)
		copy(grown, t.indices)
		t.indices = grown
	default:
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "txo buffer: length %d exceeds allocation without resize", newLen)
	}

	if finalize {
		t.finalized = true
	}
	return nil
}

// Write copies UTXO indices into the buffer at offset, for the given
// batch. Requires a matching, unfrozen batch.
func (t *TXO) Write(caller principal.Principal, batchID uint32, offset int, indices []uint32) error {
	if !principal.VerifySigner(t.writer, caller) {
		return bridgeerrors.ErrUnauthorized
	}
	if t.finalized {
		return bridgeerrors.ErrBufferNotFrozen
	}
	if batchID != t.batchID {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferNotFrozen, "txo buffer: write batch %d does not match open batch %d", batchID, t.batchID)
	}
	if offset < 0 || offset+len(indices) > len(t.indices) {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "txo buffer: write out of range (offset=%d len=%d cap=%d)", offset, len(indices), len(t.indices))
	}
	copy(t.indices[offset:], indices)
	return nil
}

// Indices returns a read-only view of the staged UTXO index list.
func (t *TXO) Indices() []uint32 {
	return t.indices
}

// Hash computes H(indices) over the finalized payload — the
// txo_output_list_finalized_hash public input (spec.md §4.5 step 1).
// Requires the buffer to be finalized.
func (t *TXO) Hash() ([32]byte, error) {
	if !t.finalized {
		return [32]byte{}, bridgeerrors.ErrBufferNotFrozen
	}
	h := sha256.New()
	h.Write([]byte("dogebridge/buffer/txo-content/v1"))
	buf := make([]byte, 4)
	for _, idx := range t.indices {
		binary.LittleEndian.PutUint32(buf, idx)
		h.Write(buf)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
