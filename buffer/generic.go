// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package buffer implements the data-availability staging buffers of
// spec.md §4.2-§4.4: a generic raw-byte buffer, the grouped
// pending-mint buffer, and the versioned TXO buffer. Every buffer is a
// single-use, hash-committed object external to bridge state —
// created, written, frozen/locked, consumed, then reset or discarded.
package buffer

import (
	"crypto/sha256"

	"github.com/dogebridge/core/bridgeerrors"
	"github.com/dogebridge/core/principal"
)

// GenericState is the lifecycle of a Generic buffer (spec.md §4.2).
type GenericState uint8

const (
	GenericUninit GenericState = iota
	GenericSized
	GenericWriting
	GenericFrozen
)

func (s GenericState) String() string {
	switch s {
	case GenericUninit:
		return "uninit"
	case GenericSized:
		return "sized"
	case GenericWriting:
		return "writing"
	case GenericFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// Generic is a raw byte staging buffer: init-sized account, chunked
// writes, frozen content hash (spec.md §4.2). It is single-use: there
// is no explicit unfreeze.
type Generic struct {
	writer principal.Principal
	state  GenericState
	data   []byte
	hash   [32]byte
}

// NewGeneric constructs an empty, Uninit buffer owned by writer.
func NewGeneric(writer principal.Principal) *Generic {
	return &Generic{writer: writer, state: GenericUninit}
}

// Writer returns the buffer's authorized writer.
func (g *Generic) Writer() principal.Principal { return g.writer }

// State returns the buffer's current lifecycle state.
func (g *Generic) State() GenericState { return g.state }

// Init allocates targetLen payload bytes and transitions Uninit -> Sized.
func (g *Generic) Init(caller principal.Principal, targetLen int) error {
	if !principal.VerifySigner(g.writer, caller) {
		return bridgeerrors.ErrUnauthorized
	}
	if g.state != GenericUninit {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferNotFrozen, "generic buffer: init called in state %s", g.state)
	}
	g.data = make([]byte, targetLen)
	g.state = GenericSized
	return nil
}

// Write copies bytes into the buffer at offset. Permitted only while
// not frozen; out-of-range writes fail.
func (g *Generic) Write(caller principal.Principal, offset int, bytes []byte) error {
	if !principal.VerifySigner(g.writer, caller) {
		return bridgeerrors.ErrUnauthorized
	}
	if g.state == GenericUninit || g.state == GenericFrozen {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferNotFrozen, "generic buffer: write called in state %s", g.state)
	}
	if offset < 0 || offset+len(bytes) > len(g.data) {
		return bridgeerrors.Wrapf(bridgeerrors.ErrBufferTooLarge, "generic buffer: write out of range (offset=%d len=%d cap=%d)", offset, len(bytes), len(g.data))
	}
	copy(g.data[offset:], bytes)
	g.state = GenericWriting
	return nil
}

// Freeze is called by the bridge (not the writer) when it reads the
// buffer through a bridge instruction: it hashes the payload to
// produce the sighash used as a proof public input, and the buffer
// becomes single-use-consumed. There is no unfreeze.
func (g *Generic) Freeze() ([32]byte, error) {
	if g.state == GenericUninit {
		return [32]byte{}, bridgeerrors.ErrBufferNotFrozen
	}
	if g.state == GenericFrozen {
		return g.hash, nil
	}
	g.hash = sha256.Sum256(g.data)
	g.state = GenericFrozen
	return g.hash, nil
}

// Payload returns a read-only view of the staged bytes. Callers must
// not retain or mutate the returned slice; this is the "never copies
// the payload into state" zero-copy-over-raw-bytes contract from
// spec.md §9, modeled here as "hand back the same backing array,
// document it as a view."
func (g *Generic) Payload() []byte {
	return g.data
}

// Hash returns the frozen content hash, or the zero hash if the
// buffer has not been frozen yet.
func (g *Generic) Hash() [32]byte {
	return g.hash
}
