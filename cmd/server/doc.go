// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

/*
Package main is the entry point for the Prospectus server application.

Prospectus is a self-hosted sales engagement analytics platform. It syncs
contacts, dial sessions, call detail, and daily metrics from external
engagement platforms (PhoneBurner, Airtable) into an embedded DuckDB
store and serves an analytics dashboard API on top of it.

# Application Architecture

The server implements a layered architecture with Suture v4 process
supervision:

	RootSupervisor ("prospectus")
	├── DataSupervisor ("data-layer")
	│   └── Scheduler (stale-connection sweeps)
	├── MessagingSupervisor ("messaging-layer")
	│   └── Queue consumer (embedded NATS JetStream, if enabled)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (Chi router)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB with schema creation and migrations
 4. Platform clients: PhoneBurner and Airtable (each optional)
 5. Sync engine: budget-bounded, resumable sync sessions
 6. Continuation queue: embedded NATS JetStream via Watermill (optional)
 7. Authentication: JWT or no-auth mode
 8. Supervisor tree: Suture v4 process supervision
 9. HTTP server: Chi router with middleware stack

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins):
  - PROSPECTUS_* environment variables (see .env.example)
  - Config file (config.yaml)
  - Built-in defaults

Platform connections can also be managed at runtime through the
connections API; env-configured platforms seed a bootstrap connection
for the default workspace at startup.

For JWT authentication (default):
  - PROSPECTUS_JWT_SECRET: 32+ character secret for token signing
  - PROSPECTUS_ADMIN_USERNAME: Admin username
  - PROSPECTUS_ADMIN_PASSWORD: Admin password (8+ characters)

The JWT secret also keys the credential encryptor for stored platform
API keys, so it is required even with PROSPECTUS_AUTH_MODE=none.

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:
  - Stops accepting new connections
  - Waits for in-flight requests to complete (10s timeout)
  - Drains the queue consumer and closes the embedded NATS server
  - Closes the database connection

# Example Usage

Development with PhoneBurner, no auth:

	export PROSPECTUS_PHONEBURNER_ENABLED=true
	export PROSPECTUS_PHONEBURNER_API_KEY=your-api-key
	export PROSPECTUS_JWT_SECRET=$(openssl rand -base64 32)
	export PROSPECTUS_AUTH_MODE=none
	./prospectus

Production with JWT:

	export PROSPECTUS_PHONEBURNER_ENABLED=true
	export PROSPECTUS_PHONEBURNER_API_KEY=your-api-key
	export PROSPECTUS_AIRTABLE_ENABLED=true
	export PROSPECTUS_AIRTABLE_API_KEY=your-pat
	export PROSPECTUS_AIRTABLE_BASE_ID=appXXXXXXXXXXXXXX
	export PROSPECTUS_JWT_SECRET=$(openssl rand -base64 32)
	export PROSPECTUS_ADMIN_USERNAME=admin
	export PROSPECTUS_ADMIN_PASSWORD=secure-password
	export PROSPECTUS_ENVIRONMENT=production
	./prospectus
*/
package main
