// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

// Package platform holds the error taxonomy and page bookkeeping shared by
// the external platform clients (phoneburner, airtable) and the sync engine.
//
// The taxonomy drives control flow in the engine:
//
//   - AuthError: fatal. The engine moves the session to the error phase and
//     never retries; the credential is wrong, not the weather.
//   - RateLimitError: retryable inside the client with increasing backoff.
//     When retries are exhausted the client wraps it in a TransientError, so
//     callers only ever observe it through errors.As on the chain.
//   - TransientError: bounded retries already spent. The engine skips the
//     page or item, logs, and continues.
//
// Matched with errors.As, never string comparison.
package platform

import (
	"errors"
	"fmt"
	"time"
)

// ErrSkipRecord is returned by normalizers when a record carries no usable
// external identity. Malformed fields coerce to null and never produce an
// error; a record with no identity cannot be keyed and is skipped whole.
var ErrSkipRecord = errors.New("record has no external identity")

// AuthError reports a credential rejection (HTTP 401/403) from a platform.
// It is fatal: no retry at any layer.
type AuthError struct {
	Platform   string
	Endpoint   string
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed on %s (HTTP %d): check the connection API key", e.Platform, e.Endpoint, e.StatusCode)
}

// RateLimitError reports an HTTP 429 from a platform. RetryAfter carries the
// server-requested delay when the Retry-After header was parseable, else zero.
type RateLimitError struct {
	Platform   string
	Endpoint   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limited on %s (retry after %s)", e.Platform, e.Endpoint, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limited on %s", e.Platform, e.Endpoint)
}

// ParseRetryAfter reads a Retry-After header's seconds form. The HTTP-date
// form is rare on these APIs; unparseable values return zero so the caller
// falls back to its computed backoff.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := time.ParseDuration(header + "s"); err == nil && seconds > 0 {
		return seconds
	}
	return 0
}

// TransientError reports a request that failed after bounded retries:
// network failure, non-2xx status, or exhausted rate-limit backoff.
// Err carries the last underlying failure.
type TransientError struct {
	Platform string
	Endpoint string
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s request to %s failed after %d attempts: %v", e.Platform, e.Endpoint, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsAuth reports whether err is or wraps an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsRateLimit reports whether err is or wraps a RateLimitError.
func IsRateLimit(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re)
}

// IsTransient reports whether err is or wraps a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
