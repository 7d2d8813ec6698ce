// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package database

import (
	"fmt"
	"time"

	"github.com/outboundlabs/prospectus/internal/logging"
)

// Migration describes a single versioned schema change.
type Migration struct {
	Version     int
	Name        string
	Description string
	SQL         string
	AppliedAt   time.Time
}

const migrationsTableSQL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL
)`

// getMigrations returns all versioned migrations in order.
//
// The schema is currently consolidated into database_schema.go; the first
// post-release change to an existing table lands here as version 1.
func getMigrations() []Migration {
	return []Migration{}
}

func (db *DB) createMigrationsTable() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, migrationsTableSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (db *DB) getAppliedMigrations() (map[int]bool, error) {
	ctx, cancel := schemaContext()
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer closeQuietly(rows)

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate migrations: %w", err)
	}
	return applied, nil
}

// runVersionedMigrations applies any migrations not yet recorded in
// schema_migrations, in version order.
func (db *DB) runVersionedMigrations() error {
	if err := db.createMigrationsTable(); err != nil {
		return err
	}

	applied, err := db.getAppliedMigrations()
	if err != nil {
		return err
	}

	for _, m := range getMigrations() {
		if applied[m.Version] {
			continue
		}

		ctx, cancel := schemaContext()
		if _, err := db.conn.ExecContext(ctx, m.SQL); err != nil {
			cancel()
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := db.conn.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name, description, applied_at) VALUES (?, ?, ?, ?)",
			m.Version, m.Name, m.Description, time.Now().UTC()); err != nil {
			cancel()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		cancel()

		logging.Info().
			Int("version", m.Version).
			Str("name", m.Name).
			Msg("Applied schema migration")
	}
	return nil
}

// GetCurrentSchemaVersion returns the highest applied migration version,
// or 0 when the schema is at its consolidated baseline.
func (db *DB) GetCurrentSchemaVersion() (int, error) {
	ctx, cancel := schemaContext()
	defer cancel()

	var version int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}
