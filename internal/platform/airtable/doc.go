// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

/*
Package airtable implements the Airtable REST API client and the normalizer
that turns metric table rows into canonical daily aggregates.

The client is a resty.Client tuned for Airtable's per-base rate limit: a
fixed minimum delay precedes every attempt (a rate.Limiter in a before-request
hook, which resty re-runs on each retry), HTTP 429 and 5xx retry with jittered
backoff honoring Retry-After, and HTTP 401/403 surface as *platform.AuthError
with zero retries. Client errors other than 429 fail on the first attempt;
repeating a request Airtable already rejected as malformed will not change
its mind. Requests run inside a circuit breaker, same as the dialer client.

Pagination is token-based: each page carries an opaque offset, and an absent
offset means the listing is done. Unlike the dialer, Airtable's envelope is
stable; shape tolerance here lives at the field level. Column names resolve
case-insensitively with spaces, underscores and hyphens ignored, so "Emails
Sent", "emails_sent" and "EmailsSent" are the same column, and numeric cells
parse strictly-then-zero whether the column is a number or a text field.
*/
package airtable
