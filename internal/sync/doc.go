// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

// Package sync implements the platform sync engine: a resumable,
// phase-ordered crawl of an external sales-engagement platform into the
// local store.
//
// One call to Engine.RunStep performs one bounded invocation. The engine
// walks the phases in order (contacts, sessions, metrics, linking), checks
// a wall-clock budget between units of work, and persists its cursor before
// every early exit, so the next invocation resumes where the last one
// stopped instead of starting over. Invocations are serialized per
// connection by a heartbeat lock: while a holder keeps refreshing the
// heartbeat, every other caller is turned away with "already_syncing" and
// mutates nothing.
//
// The engine never retries failed requests itself. The platform clients own
// bounded retry and rate-limit waits; whatever error still comes back is
// classified once: credential problems stop the sync in the error phase,
// transient trouble ends the invocation and leaves the cursor for a later
// retry, and per-record mapping or write failures are logged, counted, and
// absorbed.
package sync
