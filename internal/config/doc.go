// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

/*
Package config provides centralized configuration management for Prospectus.

Configuration is loaded in layers via Koanf v2: built-in defaults, then an
optional YAML config file, then PROSPECTUS_* environment variables. A local
.env file is honored in development. The loaded Config is validated before
use and immutable afterwards.

# Configuration Structure

Configuration is organized into logical groups:

  - PhoneBurnerConfig / AirtableConfig: platform API connections
  - DatabaseConfig: DuckDB analytics store
  - SyncConfig: engine tuning (batch size, time budget, lock timeout)
  - QueueConfig: embedded NATS JetStream continuation queue
  - SchedulerConfig: periodic sync enqueueing
  - ServerConfig / APIConfig: HTTP server and pagination settings
  - SecurityConfig: JWT auth, admin credential, rate limiting, CORS
  - LoggingConfig: zerolog level and format

# Secrets

Platform API keys configured at runtime through the connections API are
encrypted at rest with AES-256-GCM (CredentialEncryptor), keyed from
JWT_SECRET via HKDF-SHA256. The admin password is checked against
DefaultPasswordPolicy at load time and bcrypt-compared at login.

See the field documentation on Config and its section structs for the full
environment variable reference.
*/
package config
