// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridgeerrors

import (
	"github.com/cockroachdb/errors"
)

// Wrapf attaches call-site context to a sentinel error while
// preserving errors.Is against the sentinel. Used at every bridge
// entrypoint boundary so a caller sees why a precondition failed
// without the core's internal control flow having to construct ad-hoc
// strings.
func Wrapf(sentinel error, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, format, args...)
}
