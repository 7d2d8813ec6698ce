// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/models"
)

// Sentinel errors for sync connection operations.
var (
	ErrConnectionNotFound = errors.New("sync connection not found")
	ErrConnectionExists   = errors.New("sync connection already exists for this workspace and platform")
)

const connectionColumns = `id, workspace_id, platform, api_key_encrypted, is_active,
	sync_status, sync_progress, last_sync_at, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows, letting single-row
// and multi-row reads share one scan routine.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanConnection reads one sync_connections row, decrypting the stored API
// key and decoding the progress document. Credentials are encrypted and
// decrypted only here, at the storage boundary, so callers always hold
// plaintext in memory and never persist it.
func (db *DB) scanConnection(row rowScanner) (*models.SyncConnection, error) {
	var (
		conn       models.SyncConnection
		encrypted  string
		progress   sql.NullString
		lastSyncAt sql.NullTime
	)

	err := row.Scan(
		&conn.ID, &conn.WorkspaceID, &conn.Platform, &encrypted, &conn.IsActive,
		&conn.SyncStatus, &progress, &lastSyncAt, &conn.CreatedAt, &conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	apiKey, err := db.enc.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt connection credentials: %w", err)
	}
	conn.APIKey = apiKey

	if progress.Valid && progress.String != "" {
		if err := json.Unmarshal([]byte(progress.String), &conn.Progress); err != nil {
			return nil, fmt.Errorf("failed to decode sync progress: %w", err)
		}
	}
	if lastSyncAt.Valid {
		conn.LastSyncAt = &lastSyncAt.Time
	}
	return &conn, nil
}

// CreateSyncConnection stores a new platform connection for a workspace.
// The API key is encrypted before it touches disk. Returns
// ErrConnectionExists when the workspace already has a connection for the
// platform.
func (db *DB) CreateSyncConnection(ctx context.Context, conn *models.SyncConnection) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	now := time.Now().UTC()
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	if conn.SyncStatus == "" {
		conn.SyncStatus = models.SyncStatusIdle
	}
	conn.CreatedAt = now
	conn.UpdatedAt = now

	encrypted, err := db.enc.Encrypt(conn.APIKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt connection credentials: %w", err)
	}

	progressJSON, err := json.Marshal(conn.Progress)
	if err != nil {
		return fmt.Errorf("failed to encode sync progress: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `INSERT INTO sync_connections (
		id, workspace_id, platform, api_key_encrypted, is_active,
		sync_status, sync_progress, last_sync_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conn.ID, conn.WorkspaceID, conn.Platform, encrypted, conn.IsActive,
		string(conn.SyncStatus), string(progressJSON), conn.LastSyncAt, conn.CreatedAt, conn.UpdatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrConnectionExists
		}
		return fmt.Errorf("failed to create sync connection: %w", err)
	}

	logging.Info().
		Str("workspace_id", conn.WorkspaceID).
		Str("platform", conn.Platform).
		Msg("Sync connection created")
	return nil
}

// GetSyncConnection fetches the connection for a workspace and platform.
func (db *DB) GetSyncConnection(ctx context.Context, workspaceID, platform string) (*models.SyncConnection, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM sync_connections
		WHERE workspace_id = ? AND platform = ?`, connectionColumns)

	conn, err := db.scanConnection(db.conn.QueryRowContext(ctx, query, workspaceID, platform))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync connection: %w", err)
	}
	return conn, nil
}

// GetActiveSyncConnection returns the oldest active connection for a
// workspace, the one the sync engine runs against.
func (db *DB) GetActiveSyncConnection(ctx context.Context, workspaceID string) (*models.SyncConnection, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM sync_connections
		WHERE workspace_id = ? AND is_active
		ORDER BY created_at
		LIMIT 1`, connectionColumns)

	conn, err := db.scanConnection(db.conn.QueryRowContext(ctx, query, workspaceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active sync connection: %w", err)
	}
	return conn, nil
}

// ListSyncConnections returns connections, optionally filtered by
// workspace, newest first.
func (db *DB) ListSyncConnections(ctx context.Context, workspaceID string) ([]models.SyncConnection, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM sync_connections WHERE 1=1", connectionColumns)
	args := []any{}
	if workspaceID != "" {
		query += " AND workspace_id = ?"
		args = append(args, workspaceID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync connections: %w", err)
	}
	defer closeQuietly(rows)

	var conns []models.SyncConnection
	for rows.Next() {
		conn, err := db.scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync connection: %w", err)
		}
		conns = append(conns, *conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync connections: %w", err)
	}
	return conns, nil
}

// UpdateSyncState persists a connection's status and progress document in
// one statement. Completion additionally stamps last_sync_at, which feeds
// both the dashboard and the staleness scheduler.
func (db *DB) UpdateSyncState(ctx context.Context, workspaceID, platform string, status models.SyncStatus, progress models.SyncProgress) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	progressJSON, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode sync progress: %w", err)
	}

	now := time.Now().UTC()
	var result sql.Result
	if status == models.SyncStatusComplete {
		result, err = db.conn.ExecContext(ctx, `UPDATE sync_connections
			SET sync_status = ?, sync_progress = ?, last_sync_at = ?, updated_at = ?
			WHERE workspace_id = ? AND platform = ?`,
			string(status), string(progressJSON), now, now, workspaceID, platform)
	} else {
		result, err = db.conn.ExecContext(ctx, `UPDATE sync_connections
			SET sync_status = ?, sync_progress = ?, updated_at = ?
			WHERE workspace_id = ? AND platform = ?`,
			string(status), string(progressJSON), now, workspaceID, platform)
	}
	if err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check sync state update: %w", err)
	}
	if affected == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

// SetConnectionActive toggles whether the scheduler and sync engine pick
// up a connection.
func (db *DB) SetConnectionActive(ctx context.Context, workspaceID, platform string, active bool) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `UPDATE sync_connections
		SET is_active = ?, updated_at = ?
		WHERE workspace_id = ? AND platform = ?`,
		active, time.Now().UTC(), workspaceID, platform)
	if err != nil {
		return fmt.Errorf("failed to update connection active flag: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check connection update: %w", err)
	}
	if affected == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

// DeleteSyncConnection removes a connection. Synced data stays; use
// ResetWorkspaceData to purge it.
func (db *DB) DeleteSyncConnection(ctx context.Context, workspaceID, platform string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		"DELETE FROM sync_connections WHERE workspace_id = ? AND platform = ?",
		workspaceID, platform)
	if err != nil {
		return fmt.Errorf("failed to delete sync connection: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check connection delete: %w", err)
	}
	if affected == 0 {
		return ErrConnectionNotFound
	}

	logging.Info().
		Str("workspace_id", workspaceID).
		Str("platform", platform).
		Msg("Sync connection deleted")
	return nil
}

// ResetWorkspaceData deletes all synced rows for a workspace in one
// transaction and reports per-table counts. Platform-scoped tables go
// first, leads last, matching the reset contract. Connection rows are
// kept; callers clear their progress separately before a fresh sync.
func (db *DB) ResetWorkspaceData(ctx context.Context, workspaceID string) (purged map[string]int64, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logging.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Failed to rollback workspace reset")
			}
		}
	}()

	tables := []string{"calls", "dial_sessions", "external_contacts", "daily_metrics", "leads"}
	purged = make(map[string]int64, len(tables))
	var total int64
	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s WHERE workspace_id = ?", table) //nolint:gosec // table names are from a fixed list
		result, execErr := tx.ExecContext(ctx, query, workspaceID)
		if execErr != nil {
			err = fmt.Errorf("failed to purge %s: %w", table, execErr)
			return nil, err
		}
		n, raErr := result.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("failed to count purged rows in %s: %w", table, raErr)
			return nil, err
		}
		purged[table] = n
		total += n
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit workspace reset: %w", err)
	}

	logging.Info().
		Str("workspace_id", workspaceID).
		Int64("rows_purged", total).
		Msg("Workspace data reset")
	return purged, nil
}

// ListConnectionsDueForSync returns active connections whose last completed
// sync is older than staleAfter (or that never completed one). The
// scheduler enqueues these on every tick; the engine's session lock keeps
// a connection already mid-sync from running twice.
func (db *DB) ListConnectionsDueForSync(ctx context.Context, staleAfter time.Duration) ([]models.SyncConnection, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	cutoff := time.Now().UTC().Add(-staleAfter)
	query := fmt.Sprintf(`SELECT %s FROM sync_connections
		WHERE is_active = true
		  AND (last_sync_at IS NULL OR last_sync_at < ?)
		ORDER BY last_sync_at ASC NULLS FIRST`, connectionColumns)

	rows, err := db.conn.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list due sync connections: %w", err)
	}
	defer closeQuietly(rows)

	var conns []models.SyncConnection
	for rows.Next() {
		conn, err := db.scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync connection: %w", err)
		}
		conns = append(conns, *conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate due sync connections: %w", err)
	}
	return conns, nil
}
