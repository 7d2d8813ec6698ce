// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

/*
Package metrics provides Prometheus metrics collection for observability.

Collectors are registered at package load via promauto and exposed at the
/metrics endpoint in Prometheus text format.

Concern groups:

  - platform_*: external API client (requests, retries, rate-limit waits)
  - sync_*: engine progress (runs, phases, pages, records, budget exits,
    lock contention)
  - linker_*: entity linking outcomes
  - duckdb_*: query latency, errors, upsert batch sizes
  - queue_*: continuation publishes/consumes/dedup
  - api_*: HTTP endpoint latency and throughput
  - cache_*: analytics response cache
  - circuit_breaker_*: breaker state and outcomes

Prefer the Record* helpers over touching collectors directly; they keep
label cardinality consistent across call sites.
*/
package metrics
