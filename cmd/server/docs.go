// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

// Package main provides the Prospectus HTTP server
//
// Prospectus syncs sales engagement data from external platforms and
// serves analytics dashboards over it.
//
// @title Prospectus API
// @version 1.0
// @description Sales engagement analytics and platform sync
// @description
// @description ## Features
// @description
// @description - **Platform Sync**: Budget-bounded, resumable sync from PhoneBurner and Airtable
// @description - **Analytics Dashboards**: Call volume, dispositions, talk time, top contacts
// @description - **Lead Linking**: Cross-platform identity resolution by normalized email and phone
// @description - **Continuation Queue**: Durable self-continuation via embedded NATS JetStream
// @description
// @description ## Authentication
// @description
// @description Most endpoints require a JWT bearer token.
// @description Use `/api/v1/auth/login` to obtain a token, then send it as
// @description `Authorization: Bearer <token>` on subsequent requests.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address, with
// @description tighter limits on login and sync endpoints.
// @description
// @description ## Error Responses
// @description
// @description All error responses follow this format:
// @description ```json
// @description {
// @description   "status": "error",
// @description   "data": null,
// @description   "error": {
// @description     "code": "ERROR_CODE",
// @description     "message": "Human-readable error message",
// @description     "details": {}
// @description   },
// @description   "metadata": {
// @description     "timestamp": "2026-08-27T12:34:56Z"
// @description   }
// @description }
// @description ```
//
// @contact.name GitHub Repository
// @contact.url https://github.com/outboundlabs/prospectus/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:8484
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT bearer token. Obtain via /api/v1/auth/login, then send "Bearer <token>".
//
// @tag.name Sync
// @tag.description Sync session control: run, status, reset
//
// @tag.name Connections
// @tag.description Workspace platform connection management
//
// @tag.name Analytics
// @tag.description Dashboard aggregates over synced engagement data
//
// @tag.name Leads
// @tag.description Linked lead listing
//
// @tag.name Auth
// @tag.description Authentication endpoints
//
// @tag.name Core
// @tag.description Health, readiness, and metrics
package main
