// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package sync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/outboundlabs/prospectus/internal/platform"
)

// Engine-level sentinel errors.
var (
	// ErrWorkspaceRequired is returned when a run request carries no
	// workspace id.
	ErrWorkspaceRequired = errors.New("workspace id is required")

	// ErrConnectionDisabled is returned when the addressed connection exists
	// but has been deactivated by the user.
	ErrConnectionDisabled = errors.New("connection is disabled")
)

// WriteError reports rows that failed to persist within one upsert call. It
// is absorbed where it occurs: the failed rows are logged and counted, the
// sync keeps going, and a later idempotent re-upsert heals them.
type WriteError struct {
	Table   string
	Failed  int
	Reasons []string
}

func (e *WriteError) Error() string {
	if len(e.Reasons) == 0 {
		return fmt.Sprintf("%s: %d rows failed to persist", e.Table, e.Failed)
	}
	return fmt.Sprintf("%s: %d rows failed to persist: %s", e.Table, e.Failed, strings.Join(e.Reasons, "; "))
}

// retryLater reports whether err is worth retrying on a later invocation.
// The clients already spent their bounded retries before surfacing these, so
// the engine keeps the cursor and hands the work to the continuation queue
// or the next scheduler tick instead of looping in place.
func retryLater(err error) bool {
	return platform.IsTransient(err) || platform.IsRateLimit(err)
}

// errorType maps an error to its metrics classification label.
func errorType(err error) string {
	switch {
	case platform.IsAuth(err):
		return "auth"
	case platform.IsRateLimit(err):
		return "rate_limit"
	case platform.IsTransient(err):
		return "transient"
	default:
		return "internal"
	}
}
