// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package outbox is the bridge's outbound message-bus producer (spec.md
// §4.7 item 5, §6, §9): a Wormhole-VAA-style emit(topic, payload) ->
// sequence_number surface. The core only produces messages; signing
// and delivery to the federated signer set happen off-system (an
// explicit non-goal). Grounded on vms/platformvm/warp's
// Signer/UnsignedMessage/Backend shape, generalized from a single
// warp-chain backend to an in-memory topic log.
package outbox

import (
	"sync"

	"github.com/luxfi/crypto/bls"
)

// Message is one emitted outbound message: an opaque payload (a
// sighash or transition digest, per spec.md §6) plus the sequence
// number it was assigned.
type Message struct {
	Topic    string
	Sequence uint64
	Payload  [32]byte
}

// BLSAttestation is the envelope a conforming federated-signer module
// attaches to a Message once it has attested off-system, grounded on
// protocol/quasar/bls.go's CertBundle shape: a sequence number, the
// payload it attests to, and an aggregate BLS signature over it. The
// core never requires this to be present — the signer network is out
// of scope — but the type exists so a downstream signer has somewhere
// to put its output.
type BLSAttestation struct {
	Sequence     uint64
	Payload      [32]byte
	AggregateSig *bls.Signature
}

// Bytes encodes the aggregate signature the same way
// protocol/quasar/witness.go serializes its CertBundle.BLSAggregate
// field, for a signer module to hand back over the wire.
func (a BLSAttestation) Bytes() []byte {
	if a.AggregateSig == nil {
		return nil
	}
	return bls.SignatureToBytes(a.AggregateSig)
}

// VerifyAttestation checks an aggregate signature over payload against
// the aggregate public key of the signers who attested it, mirroring
// engine/pq/crypto.go's Verify-after-AggregatePublicKeys sequence.
func VerifyAttestation(aggPubKey *bls.PublicKey, a BLSAttestation) bool {
	if a.AggregateSig == nil || aggPubKey == nil {
		return false
	}
	return bls.Verify(aggPubKey, a.AggregateSig, a.Payload[:])
}

// Bus is an in-memory log of emitted outbound messages. The log is not
// bounded: every emitted message is kept. Bus guards its own state with
// a mutex. Its emitters are withdrawal.Processor's ProcessWithdrawal and
// ProcessReplayWithdrawal; custodian-transition processing emits
// nothing here.
type Bus struct {
	mu       sync.Mutex
	sequence uint64
	log      []Message
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// Emit appends payload under topic and returns the sequence number it
// was assigned. Sequence numbers are global across all topics, the
// same way a single warp chain assigns one sequence space to every
// outbound message regardless of destination.
func (b *Bus) Emit(topic string, payload [32]byte) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	seq := b.sequence
	b.sequence++
	b.log = append(b.log, Message{Topic: topic, Sequence: seq, Payload: payload})
	return seq
}

// Last returns the most recently emitted message under topic, and
// whether one exists — used by process_replay_withdrawal to compare
// the buffer's sighash against the most recently processed withdrawal.
func (b *Bus) Last(topic string) (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.log) - 1; i >= 0; i-- {
		if b.log[i].Topic == topic {
			return b.log[i], true
		}
	}
	return Message{}, false
}

// All returns every message emitted under topic, in emission order.
func (b *Bus) All(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.log {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}
