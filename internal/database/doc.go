// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

// Package database provides the DuckDB-backed storage layer for synced
// platform records, lead linking, workspace sync connections, and the
// analytics queries that power the dashboard.
//
// All writes are idempotent: synced records carry a (workspace_id,
// external_id) identity and are applied with multi-row upserts, so
// re-ingesting an overlapping page never produces duplicates. Batch
// failures are reported per batch in the returned WriteResult and never
// abort the remaining batches.
package database
