// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/models"
)

// testDBSemaphore serializes DuckDB instance creation across tests. Each
// instance reserves max_memory up front, so parallel instances can blow
// past the runner's memory even when individual tests are cheap.
var testDBSemaphore = make(chan struct{}, 1)

func newTestEncryptor(t *testing.T) *config.CredentialEncryptor {
	t.Helper()
	enc, err := config.NewCredentialEncryptor("prospectus-test-secret-0123456789abcdef")
	if err != nil {
		t.Fatalf("failed to create test encryptor: %v", err)
	}
	return enc
}

// openTestDB creates a database at path, holding the instance semaphore
// for the duration of the test.
func openTestDB(t *testing.T, path string) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	cfg := &config.DatabaseConfig{
		Path:      path,
		MaxMemory: "1GB",
	}
	enc := newTestEncryptor(t)

	type result struct {
		db  *DB
		err error
	}
	done := make(chan result, 1)
	go func() {
		db, err := New(cfg, enc)
		done <- result{db, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("failed to create test database: %v", r.err)
		}
		t.Cleanup(func() {
			if err := r.db.Close(); err != nil {
				t.Logf("failed to close test database: %v", err)
			}
		})
		return r.db
	case <-time.After(120 * time.Second):
		t.Fatal("timed out creating test database")
		return nil
	}
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	return openTestDB(t, ":memory:")
}

// countRows queries the connection directly; tests are allowed to bypass
// the public API to assert on persisted state.
func countRows(t *testing.T, db *DB, table, workspaceID string) int {
	t.Helper()
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE workspace_id = ?", table)
	if err := db.conn.QueryRow(query, workspaceID).Scan(&n); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	return n
}

func TestNewValidatesArguments(t *testing.T) {
	enc := newTestEncryptor(t)

	if _, err := New(nil, enc); err == nil {
		t.Error("expected error for nil config")
	}

	cfg := &config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"}
	if _, err := New(cfg, nil); err == nil {
		t.Error("expected error for nil encryptor")
	}
}

func TestDatabaseLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	version, err := db.GetCurrentSchemaVersion()
	if err != nil {
		t.Fatalf("failed to read schema version: %v", err)
	}
	if version != 0 {
		t.Errorf("expected consolidated baseline version 0, got %d", version)
	}

	counts, err := db.RecordCounts(ctx)
	if err != nil {
		t.Fatalf("failed to read record counts: %v", err)
	}
	for _, table := range []string{"external_contacts", "dial_sessions", "calls", "daily_metrics", "leads", "sync_connections"} {
		n, ok := counts[table]
		if !ok {
			t.Errorf("missing count for table %s", table)
			continue
		}
		if n != 0 {
			t.Errorf("expected empty table %s, got %d rows", table, n)
		}
	}
}

func TestSetUpsertBatchSizeClamps(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name string
		in   int
		want int
	}{
		{"below minimum", 10, minUpsertBatchSize},
		{"at minimum", 100, 100},
		{"in range", 250, 250},
		{"at maximum", 500, 500},
		{"above maximum", 10000, maxUpsertBatchSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db.SetUpsertBatchSize(tt.in)
			if db.upsertBatchSize != tt.want {
				t.Errorf("SetUpsertBatchSize(%d) = %d, want %d", tt.in, db.upsertBatchSize, tt.want)
			}
		})
	}
}

func TestFileBackedPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "prospectus.db")
	db := openTestDB(t, path)
	ctx := context.Background()

	res := db.UpsertContacts(ctx, "ws-persist", []models.ExternalContact{{
		ExternalID: "pb-1",
		Platform:   models.PlatformPhoneBurner,
		FirstName:  "Ada",
		LastName:   "Quinn",
	}})
	if res.Written != 1 || res.Failed != 0 {
		t.Fatalf("unexpected write result: %+v", res)
	}

	if err := db.Close(); err != nil {
		t.Fatalf("failed to close database: %v", err)
	}

	enc := newTestEncryptor(t)
	reopened, err := New(&config.DatabaseConfig{Path: path, MaxMemory: "1GB"}, enc)
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer func() {
		if err := reopened.Close(); err != nil {
			t.Logf("failed to close reopened database: %v", err)
		}
	}()

	if got := countRows(t, reopened, "external_contacts", "ws-persist"); got != 1 {
		t.Errorf("expected 1 contact after reopen, got %d", got)
	}
}
