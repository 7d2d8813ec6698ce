// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context for DDL operations, which can be slow on
// first startup against a cold disk.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates all tables if they don't exist.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}
	return nil
}

// getTableCreationQueries returns the DDL for the full schema.
//
// Timestamps deliberately carry no function defaults: every writer stamps
// created_at/updated_at itself, which keeps WAL replay deterministic and
// the values testable. Synced records are keyed by (workspace_id,
// external_id) so upserts from re-fetched pages stay idempotent.
func getTableCreationQueries() []string {
	return []string{
		// ============================================================
		// External contacts synced from the dialer platform
		// ============================================================
		`CREATE TABLE IF NOT EXISTS external_contacts (
			id UUID PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			company TEXT,
			job_title TEXT,
			score DOUBLE,
			tags TEXT,
			last_contacted_at TIMESTAMP,
			lead_id UUID,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (workspace_id, external_id)
		)`,

		// ============================================================
		// Dial sessions (one power-dialing run by one member)
		// ============================================================
		`CREATE TABLE IF NOT EXISTS dial_sessions (
			id UUID PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			member_id TEXT,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP,
			total_calls INTEGER NOT NULL,
			total_connects INTEGER NOT NULL,
			total_talk_seconds INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (workspace_id, external_id)
		)`,

		// ============================================================
		// Individual calls placed within dial sessions
		// ============================================================
		`CREATE TABLE IF NOT EXISTS calls (
			id UUID PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			session_external_id TEXT,
			contact_external_id TEXT,
			phone_number TEXT,
			started_at TIMESTAMP NOT NULL,
			duration_seconds INTEGER NOT NULL,
			talk_seconds INTEGER NOT NULL,
			connected BOOLEAN NOT NULL,
			raw_category TEXT,
			disposition TEXT NOT NULL,
			recording_url TEXT,
			notes TEXT,
			lead_id UUID,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (workspace_id, external_id)
		)`,

		// ============================================================
		// Daily activity rollups reported by the metrics platform
		// ============================================================
		`CREATE TABLE IF NOT EXISTS daily_metrics (
			id UUID PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			date TIMESTAMP NOT NULL,
			dials INTEGER NOT NULL,
			connects INTEGER NOT NULL,
			conversations INTEGER NOT NULL,
			emails_sent INTEGER NOT NULL,
			talk_seconds INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (workspace_id, external_id)
		)`,

		// ============================================================
		// Leads: the workspace-owned identity contacts link into
		// ============================================================
		`CREATE TABLE IF NOT EXISTS leads (
			id UUID PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			company TEXT,
			source TEXT NOT NULL,
			source_external_id TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (workspace_id, source, source_external_id)
		)`,

		// ============================================================
		// Sync connections: per-workspace platform credentials + progress
		// ============================================================
		`CREATE TABLE IF NOT EXISTS sync_connections (
			id UUID PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			api_key_encrypted TEXT NOT NULL,
			is_active BOOLEAN NOT NULL,
			sync_status TEXT NOT NULL,
			sync_progress TEXT,
			last_sync_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (workspace_id, platform)
		)`,
	}
}

// createIndexes creates all secondary indexes if they don't exist.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_contacts_workspace ON external_contacts (workspace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_lead ON external_contacts (lead_id)`,
		`CREATE INDEX IF NOT EXISTS idx_contacts_email ON external_contacts (workspace_id, email)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_workspace_started ON dial_sessions (workspace_id, started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_workspace_started ON calls (workspace_id, started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_contact ON calls (workspace_id, contact_external_id)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_session ON calls (workspace_id, session_external_id)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_disposition ON calls (workspace_id, disposition)`,
		`CREATE INDEX IF NOT EXISTS idx_calls_lead ON calls (lead_id)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_workspace_date ON daily_metrics (workspace_id, date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_workspace ON leads (workspace_id)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_email ON leads (workspace_id, email)`,
		`CREATE INDEX IF NOT EXISTS idx_connections_workspace ON sync_connections (workspace_id)`,
	}
}
