// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wire

import "crypto/sha256"

// domainHash computes a domain-separated SHA-256 digest the way every
// hash in this codebase is computed: H(tag ‖ payload). Centralizing it
// here keeps every wire-level hash (leaf hashes, the return-UTXO
// commitment) consistent with the same convention bridgestate uses for
// BridgeStateHash.
func domainHash(tag string, payload []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(tag))
	h.Write(payload)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DomainHash exports domainHash for use by other packages (bridgestate,
// custodian) that need the exact same convention for their own
// composite commitments.
func DomainHash(tag string, payload ...[]byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, p := range payload {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
