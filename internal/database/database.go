// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver
	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/logging"
)

// Upsert batch sizing. Multi-row upserts are windowed so a single bad
// batch cannot poison an entire page of records.
const (
	defaultUpsertBatchSize = 200
	minUpsertBatchSize     = 100
	maxUpsertBatchSize     = 500
)

// defaultQueryTimeout bounds individual queries when the caller's context
// carries no deadline of its own.
const defaultQueryTimeout = 30 * time.Second

// DB wraps the DuckDB connection pool together with the credential
// encryptor used for sync connection secrets.
type DB struct {
	conn            *sql.DB
	cfg             *config.DatabaseConfig
	enc             *config.CredentialEncryptor
	upsertBatchSize int
}

// New opens (or creates) the DuckDB database at cfg.Path, configures the
// connection pool, and runs schema creation plus any pending migrations.
func New(cfg *config.DatabaseConfig, enc *config.CredentialEncryptor) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if enc == nil {
		return nil, fmt.Errorf("credential encryptor is required")
	}

	if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:            conn,
		cfg:             cfg,
		enc:             enc,
		upsertBatchSize: defaultUpsertBatchSize,
	}
	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Str("max_memory", cfg.MaxMemory).
		Msg("Database initialized")

	return db, nil
}

// configureConnectionPool sizes the pool for DuckDB's threading model:
// one writer plus analytical readers, bounded by CPU count.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(1 * time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// initialize creates tables and indexes and applies pending migrations.
func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := db.runVersionedMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := db.createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	// Flush the WAL so a fresh file-backed database is immediately durable.
	if err := db.Checkpoint(); err != nil {
		logging.Warn().Err(err).Msg("Initial checkpoint failed")
	}
	return nil
}

// SetUpsertBatchSize overrides the multi-row upsert window. Values are
// clamped to the supported range.
func (db *DB) SetUpsertBatchSize(n int) {
	if n < minUpsertBatchSize {
		n = minUpsertBatchSize
	}
	if n > maxUpsertBatchSize {
		n = maxUpsertBatchSize
	}
	db.upsertBatchSize = n
}

// Close checkpoints the WAL and closes the connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if err := db.Checkpoint(); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint on close failed")
	}
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Checkpoint forces a WAL checkpoint, persisting in-memory state to disk.
func (db *DB) Checkpoint() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("failed to checkpoint database: %w", err)
	}
	return nil
}

// ensureContext attaches a default timeout when the caller's context has
// no deadline, so stray queries cannot hang the sync engine.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// RecordCounts returns the number of rows in each domain table, used by
// diagnostics and the reset endpoint's reporting.
func (db *DB) RecordCounts(ctx context.Context) (map[string]int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tables := []string{
		"external_contacts",
		"dial_sessions",
		"calls",
		"daily_metrics",
		"leads",
		"sync_connections",
	}

	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		var n int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table) //nolint:gosec // table names are from a fixed list
		if err := db.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count rows in %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
