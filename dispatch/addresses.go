// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package dispatch

import "github.com/dogebridge/core/principal"

// DeriveBridgeState computes the bridge-state address: hash("bridge_state",
// bridgeProgram) per spec.md §6.
func DeriveBridgeState(bridgeProgram principal.Principal) principal.Principal {
	b := bridgeProgram
	return principal.Derive("bridge_state", b[:])
}

// DeriveManualClaimState computes the per-user manual-claim-state
// address: hash("manual-claim", userPubkey, manualClaimProgram) per
// spec.md §6.
func DeriveManualClaimState(userPubkey, manualClaimProgram principal.Principal) principal.Principal {
	u, p := userPubkey, manualClaimProgram
	return principal.Derive("manual-claim", u[:], p[:])
}

// DeriveMintBuffer computes a mint-buffer address: hash("mint_buffer",
// writerPubkey, bufferProgram) per spec.md §6.
func DeriveMintBuffer(writerPubkey, bufferProgram principal.Principal) principal.Principal {
	w, p := writerPubkey, bufferProgram
	return principal.Derive("mint_buffer", w[:], p[:])
}

// DeriveTXOBuffer computes a TXO-buffer address: hash("txo_buffer",
// writerPubkey, bufferProgram) per spec.md §6.
func DeriveTXOBuffer(writerPubkey, bufferProgram principal.Principal) principal.Principal {
	w, p := writerPubkey, bufferProgram
	return principal.Derive("txo_buffer", w[:], p[:])
}
