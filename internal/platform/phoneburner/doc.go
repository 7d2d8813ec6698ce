// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

/*
Package phoneburner implements the PhoneBurner dialer API client and the
normalizers that turn its payloads into canonical rows.

The client enforces a fixed minimum delay between requests (a rate.Limiter
with burst 1), retries HTTP 429 with increasing backoff honoring Retry-After,
retries other failures with bounded linear backoff, and treats HTTP 401/403
as fatal. All requests run inside a circuit breaker so a dead platform trips
fast instead of burning the sync budget on timeouts.

PhoneBurner payloads are shape-unstable: a collection field arrives sometimes
as a single object, sometimes as an array, sometimes as a nested
array-of-arrays. Collection[T] absorbs all three at the decode boundary and
flattens to a plain slice; unrecognized shapes yield an empty slice and a
skip count, never an error. Numeric fields follow the same rule through the
Flex* types: a JSON number or numeric string parses, anything else becomes
null, so a contact scored 0 stays distinguishable from one never scored.
*/
package phoneburner
