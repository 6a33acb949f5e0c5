// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridgeerrors defines the sentinel error taxonomy the bridge
// core surfaces to callers. Every entrypoint returns one of these
// (optionally wrapped with call-site context) and never recovers
// silently.
package bridgeerrors

import "errors"

// AuthorityViolation: fatal, reject.
var (
	ErrUnauthorized = errors.New("caller is not authorized for this operation")
	ErrWrongSigner  = errors.New("principal did not authorize this instruction")
)

// Precondition: reject, caller fixes inputs.
var (
	ErrPaused                         = errors.New("bridge is paused")
	ErrHeightMismatch                 = errors.New("header height does not follow current tip/finalized")
	ErrBufferNotFrozen                = errors.New("buffer is not frozen/locked")
	ErrDepositsBlockedDuringTransition = errors.New("deposits are blocked during custodian transition")
	ErrIncompleteConsolidation        = errors.New("consolidation target not yet reached")
)

// Integrity: reject, caller re-proves.
var (
	ErrBufferHashMismatch = errors.New("buffer content hash does not match header commitment")
	ErrStateHashMismatch  = errors.New("recomputed bridge state hash does not match header")
	ErrInvalidProof       = errors.New("zk proof verification failed")
)

// Capacity: fatal at this stage, operator must rotate.
var (
	ErrTreeFull      = errors.New("fixed-append merkle tree is at capacity")
	ErrBufferTooLarge = errors.New("buffer write exceeds allocated capacity")
)

// Timing: retry later.
var (
	ErrGracePeriodNotElapsed = errors.New("custodian transition grace period has not elapsed")
)

// Duplicate: idempotent no-op response where safe.
var (
	ErrAlreadyProcessed      = errors.New("operation already processed for this height/index")
	ErrDepositAlreadyClaimed = errors.New("deposit has already been claimed")
)

// codeCustodianBase is the first of the custodian-transition error
// codes reserved by spec.md §6 (960-968).
const codeCustodianBase = 960

// custodianCodes assigns the 960-968 numeric range to the custodian
// transition subspace, in declaration order.
var custodianCodes = []error{
	ErrGracePeriodNotElapsed,
	ErrIncompleteConsolidation,
	ErrDepositsBlockedDuringTransition,
	ErrUnauthorized,
	ErrAlreadyProcessed,
}

// Code returns the numeric error code for errs that fall in the
// custodian-transition subspace (960-968), or 0 if err is not one of
// them. Code never participates in errors.Is matching; callers must
// still match on the sentinel itself.
func Code(err error) int {
	for i, sentinel := range custodianCodes {
		if errors.Is(err, sentinel) {
			return codeCustodianBase + i
		}
	}
	return 0
}
