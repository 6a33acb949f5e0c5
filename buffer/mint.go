// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package buffer

import (
	"crypto/sha256"

	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/principal"
	"github.com/dogebridge/core/wire"
)

// MaxMintsPerGroup is the per-instruction grouping bound from spec.md
// §4.3/§8: "each group ≤ 24 mints"; 25 fails.
const MaxMintsPerGroup = 24

// MintState is the lifecycle of a Mint buffer (spec.md §4.3).
type MintState uint8

const (
	MintUnlocked MintState = iota
	MintLocked
)

// Mint is the grouped (recipient, amount) pending-mint staging buffer.
// Roles: locker (the bridge state itself) and writer (operator).
type Mint struct {
	locker principal.Principal
	writer principal.Principal
	state  MintState

	groups   [][]wire.PendingMint
	consumed []bool

	hash      [32]byte
	hashValid bool
}

// NewMint constructs an unlocked Mint buffer with no groups.
func NewMint() *Mint {
	return &Mint{state: MintUnlocked}
}

// Setup assigns locker and writer once. Called exactly once per buffer
// lifetime (spec.md §4.3 "setup(locker, writer) once").
func (m *Mint) Setup(locker, writer principal.Principal) error {
	if m.locker != principal.Empty || m.writer != principal.Empty {
		return bridgeerrors.Wrapf(bridgeerrors.ErrUnauthorized, "mint buffer: setup already called")
	}
	m.locker = locker
	m.writer = writer
	return nil
}

// Reinit resets group occupancy for totalGroups groups. Permitted only
// while unlocked.
func (m *Mint) Reinit(caller principal.Principal, totalGroups int) error {
	if !principal.VerifySigner(m.writer, caller) {
		return bridgeerrors.ErrUnauthorized
	}
	if m.state != MintUnlocked {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferNotFrozen, "mint buffer: reinit while locked")
	}
	m.groups = make([][]wire.PendingMint, totalGroups)
	m.consumed = make([]bool, totalGroups)
	m.hashValid = false
	return nil
}

// Insert stages a group of mints at groupIdx. Permitted only while
// unlocked; fails if the group would exceed MaxMintsPerGroup.
func (m *Mint) Insert(caller principal.Principal, groupIdx int, mints []wire.PendingMint) error {
	if !principal.VerifySigner(m.writer, caller) {
		return bridgeerrors.ErrUnauthorized
	}
	if m.state != MintUnlocked {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferNotFrozen, "mint buffer: insert while locked")
	}
	if groupIdx < 0 || groupIdx >= len(m.groups) {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "mint buffer: group index %d out of range", groupIdx)
	}
	if len(mints) > MaxMintsPerGroup {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "mint buffer: group %d has %d mints, max %d", groupIdx, len(mints), MaxMintsPerGroup)
	}
	m.groups[groupIdx] = append([]wire.PendingMint(nil), mints...)
	m.hashValid = false
	return nil
}

// Lock is called only by the bridge under its locker authority during
// a block transition. Once locked, the content hash is frozen stable.
func (m *Mint) Lock(caller principal.Principal) error {
	if !principal.VerifySigner(m.locker, caller) {
		return bridgeerrors.ErrUnauthorized
	}
	if m.state == MintLocked {
		return nil
	}
	m.state = MintLocked
	m.hash = m.computeHash()
	m.hashValid = true
	return nil
}

// computeHash is H(all_groups_concatenated_in_order) — spec.md §4.3
// invariant.
func (m *Mint) computeHash() [32]byte {
	h := sha256.New()
	h.Write([]byte("dogebridge/buffer/mint-content/v1"))
	for _, group := range m.groups {
		for _, mint := range group {
			b, _ := mint.MarshalBinary()
			h.Write(b)
		}
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Hash returns the frozen content hash. Requires the buffer to be
// locked; the bridge compares this to the proof's
// pending_mints_finalized_hash (spec.md §4.3 invariant).
func (m *Mint) Hash() ([32]byte, error) {
	if m.state != MintLocked {
		return [32]byte{}, bridgeerrors.ErrBufferNotFrozen
	}
	return m.hash, nil
}

// ReadGroup returns group i's mints for execution. Callable by the
// bridge (the locker) during mint execution, whether or not the
// buffer is still locked — execution happens while locked.
func (m *Mint) ReadGroup(caller principal.Principal, i int) ([]wire.PendingMint, error) {
	if !principal.VerifySigner(m.locker, caller) {
		return nil, bridgeerrors.ErrUnauthorized
	}
	if i < 0 || i >= len(m.groups) {
		return nil, bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "mint buffer: group index %d out of range", i)
	}
	return m.groups[i], nil
}

// MarkConsumed flags group i as executed, preventing a second
// ProcessMintGroup call from double-minting it.
func (m *Mint) MarkConsumed(caller principal.Principal, i int) error {
	if !principal.VerifySigner(m.locker, caller) {
		return bridgeerrors.ErrUnauthorized
	}
	if i < 0 || i >= len(m.consumed) {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "mint buffer: group index %d out of range", i)
	}
	if m.consumed[i] {
		return bridgeerrors.ErrAlreadyProcessed
	}
	m.consumed[i] = true
	return nil
}

// IsConsumed reports whether group i has already been executed.
func (m *Mint) IsConsumed(i int) bool {
	if i < 0 || i >= len(m.consumed) {
		return false
	}
	return m.consumed[i]
}

// GroupCount returns the number of groups staged.
func (m *Mint) GroupCount() int { return len(m.groups) }

// AllConsumed reports whether every group has been executed, the
// condition under which the caller may request Unlock.
func (m *Mint) AllConsumed() bool {
	for _, c := range m.consumed {
		if !c {
			return false
		}
	}
	return true
}

// Unlock is called by the bridge during mint execution once the
// buffer can be released (e.g. should_unlock was set on the last
// group, per spec.md §4.6).
func (m *Mint) Unlock(caller principal.Principal) error {
	if !principal.VerifySigner(m.locker, caller) {
		return bridgeerrors.ErrUnauthorized
	}
	m.state = MintUnlocked
	m.hashValid = false
	return nil
}

// State returns the buffer's current lock state.
func (m *Mint) State() MintState { return m.state }
