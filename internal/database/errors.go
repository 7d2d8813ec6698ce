// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package database

import (
	"io"
	"strings"
)

// closeQuietly closes a resource where the error carries no signal, such
// as rows iterators already drained by the caller.
func closeQuietly(closer io.Closer) {
	_ = closer.Close()
}

// isUniqueConstraintError reports whether err looks like a unique
// constraint violation. DuckDB does not expose typed driver errors, so
// this matches on message text the way its own test suite does.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint error")
}
