// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package sync

import (
	"errors"
	"fmt"
	"testing"

	"github.com/outboundlabs/prospectus/internal/platform"
)

func TestWriteErrorMessage(t *testing.T) {
	bare := &WriteError{Table: "calls", Failed: 4}
	if got, want := bare.Error(), "calls: 4 rows failed to persist"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	detailed := &WriteError{
		Table:   "external_contacts",
		Failed:  2,
		Reasons: []string{"duplicate key", "null workspace"},
	}
	if got, want := detailed.Error(), "external_contacts: 2 rows failed to persist: duplicate key; null workspace"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestRetryLater(t *testing.T) {
	transient := &platform.TransientError{Platform: "phoneburner", Endpoint: "contacts", Attempts: 3, Err: errors.New("bad gateway")}
	rateLimited := &platform.RateLimitError{Platform: "phoneburner", Endpoint: "contacts"}
	auth := &platform.AuthError{Platform: "phoneburner", Endpoint: "contacts", StatusCode: 401}

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", transient, true},
		{"rate limited", rateLimited, true},
		{"wrapped transient", fmt.Errorf("contacts phase: %w", transient), true},
		{"auth", auth, false},
		{"plain", errors.New("boom"), false},
		{"write", &WriteError{Table: "calls", Failed: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryLater(tc.err); got != tc.want {
				t.Errorf("retryLater(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestErrorType(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"auth", &platform.AuthError{Platform: "phoneburner", Endpoint: "contacts", StatusCode: 401}, "auth"},
		{"rate limit", &platform.RateLimitError{Platform: "airtable", Endpoint: "records"}, "rate_limit"},
		{"transient", &platform.TransientError{Platform: "phoneburner", Endpoint: "contacts", Attempts: 3, Err: errors.New("x")}, "transient"},
		{"unclassified", errors.New("boom"), "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := errorType(tc.err); got != tc.want {
				t.Errorf("errorType(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
