// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package zkverify

// Inputs is a fluent builder for a single operation's ordered
// public-input vector, grounded on config.Builder's chained-setter
// idiom (config/builder.go) but carrying 32-byte field commitments
// instead of consensus parameters. Centralizing this assembly keeps
// block_update, process_withdrawal, and process_custodian_transition
// from hand-rolling the input ordering inline (spec.md §4.5 step 3,
// §4.7 step 2, §4.8 process).
type Inputs struct {
	values [][32]byte
}

// NewInputs starts an empty public-input vector.
func NewInputs() *Inputs {
	return &Inputs{}
}

// Push appends one 32-byte commitment and returns the builder for chaining.
func (in *Inputs) Push(v [32]byte) *Inputs {
	in.values = append(in.values, v)
	return in
}

// PushAll appends a sequence of commitments in order.
func (in *Inputs) PushAll(vs ...[32]byte) *Inputs {
	in.values = append(in.values, vs...)
	return in
}

// Build returns the assembled public-input vector.
func (in *Inputs) Build() [][32]byte {
	return in.values
}
