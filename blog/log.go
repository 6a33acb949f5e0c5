// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package blog is the bridge core's structured-logging surface,
// wrapping github.com/luxfi/log the same way this codebase's own log
// package does (see log/noop.go), with the corpus's
// key-value call convention used across protocol/nova/bootstrap and
// engine/fastdag (log.Info("msg", "key", value, ...)).
package blog

import (
	"github.com/luxfi/log"
)

// Logger is re-exported so callers depend on this package, not
// directly on luxfi/log, the way core/block depends on
// consensuscontext rather than on every leaf dependency directly.
type Logger = log.Logger

// NewNoOp returns a logger that discards everything, for tests and for
// callers (like cmd/bridgesim in quiet mode) that don't want output.
func NewNoOp() Logger {
	return log.NewNoOpLogger()
}

// New returns a named logger writing to the process's usual log
// sink, the way internal/ringtail wires its finalizer's logger.
func New(name string) Logger {
	return log.NewLogger(name)
}

// Fields is a convenience alias for the variadic key-value pairs every
// Logger method accepts, matching the corpus's "msg", "k1", v1, "k2",
// v2, ... convention.
type Fields = []interface{}
