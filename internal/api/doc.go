// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

// Package api is the HTTP surface of Prospectus: the sync control
// endpoints, connection management, dashboard analytics, and auth, routed
// with chi and wrapped in the standard middleware stack (request id, real
// IP, panic recovery, CORS, per-group rate limits, JWT).
//
// Every endpoint writes the models.APIResponse envelope. Analytics
// aggregates are served through a short-TTL response cache so a dashboard
// refresh storm does not hammer DuckDB.
package api
