// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

/*
Package models defines data structures for the Prospectus application.

It is the single source of truth for the shapes shared across packages:
canonical synced rows, the sync session state, the job invocation contract,
and the standard API response envelope.

Model Categories:

1. Canonical Rows (written by the upsert layer, read by analytics):
  - ExternalContact, DialSession, Call, DailyMetric
  - Lead: the workspace-canonical contact entity set by the entity linker

2. Sync State:
  - SyncConnection: per-(workspace, platform) credential + status row
  - SyncProgress: typed phase/cursor/counter state, persisted as a JSON
    column and parsed back at the storage boundary only
  - Phase, SyncCursor, SyncCounters: the pieces of SyncProgress

3. Job Contract:
  - SyncRunRequest / SyncRunResponse: the invocation API the UI calls
  - ResumeMessage: the durable continuation payload on the queue

4. API Envelope:
  - APIResponse, APIError, Metadata: standard response wrapper
  - AnalyticsSummary, CallsByDay, DispositionCount, TopContact: dashboard
    query results

Uniqueness invariant: every canonical row carries (WorkspaceID, ExternalID),
unique per table, enforced by the database layer's upsert conflict key. The
application never deduplicates rows itself.

Thread safety: plain data structures, immutable after creation, safe for
concurrent reads. No internal locking.
*/
package models
