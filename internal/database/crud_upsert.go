// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/metrics"
	"github.com/outboundlabs/prospectus/internal/models"
)

// dedupeByExternalID collapses records sharing an external id down to the
// last occurrence, preserving first-seen order. DuckDB rejects an INSERT
// whose ON CONFLICT target would update the same row twice, so one page
// containing a duplicate must never reach the database as-is.
func dedupeByExternalID[T any](records []T, key func(T) string) []T {
	if len(records) < 2 {
		return records
	}
	seen := make(map[string]int, len(records))
	out := make([]T, 0, len(records))
	for _, rec := range records {
		k := key(rec)
		if i, ok := seen[k]; ok {
			out[i] = rec
			continue
		}
		seen[k] = len(out)
		out = append(out, rec)
	}
	return out
}

// upsertInBatches windows records into multi-row statements and applies
// them independently. A failed batch marks its records failed and moves
// on; the sync engine treats partial writes as progress, not as an abort.
func upsertInBatches[T any](ctx context.Context, db *DB, table string, records []T, exec func(context.Context, []T) error) models.WriteResult {
	var result models.WriteResult
	if len(records) == 0 {
		return result
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	size := db.upsertBatchSize
	for begin := 0; begin < len(records); begin += size {
		end := min(begin+size, len(records))
		batch := records[begin:end]
		metrics.DBBatchSize.Observe(float64(len(batch)))

		if err := exec(ctx, batch); err != nil {
			result.Failed += len(batch)
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s rows %d-%d: %v", table, begin, end-1, err))
			logging.Warn().
				Err(err).
				Str("table", table).
				Int("batch_start", begin).
				Int("batch_size", len(batch)).
				Msg("Upsert batch failed")
			continue
		}
		result.Written += len(batch)
	}

	metrics.RecordUpsert(table, result.Written, result.Failed, time.Since(start))
	return result
}

// batchPlaceholders renders the VALUES clause for a multi-row insert:
// rows groups of cols question marks.
func batchPlaceholders(rows, cols int) string {
	row := "(" + strings.Repeat("?, ", cols-1) + "?)"
	var b strings.Builder
	b.Grow(len(row)*rows + 2*rows)
	for i := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
	}
	return b.String()
}

// UpsertContacts writes contacts for a workspace idempotently, keyed on
// (workspace_id, external_id). Re-synced rows refresh identity and
// engagement fields; lead_id and created_at are preserved because the
// linker owns the former and the latter records first sight.
func (db *DB) UpsertContacts(ctx context.Context, workspaceID string, contacts []models.ExternalContact) models.WriteResult {
	now := time.Now().UTC()
	for i := range contacts {
		contacts[i].WorkspaceID = workspaceID
		if contacts[i].ID == uuid.Nil {
			contacts[i].ID = uuid.New()
		}
		if contacts[i].CreatedAt.IsZero() {
			contacts[i].CreatedAt = now
		}
		contacts[i].UpdatedAt = now
	}
	contacts = dedupeByExternalID(contacts, func(c models.ExternalContact) string { return c.ExternalID })

	return upsertInBatches(ctx, db, "external_contacts", contacts, db.execContactBatch)
}

func (db *DB) execContactBatch(ctx context.Context, batch []models.ExternalContact) error {
	const cols = 16
	query := fmt.Sprintf(`INSERT INTO external_contacts (
		id, workspace_id, external_id, platform,
		first_name, last_name, email, phone, company, job_title,
		score, tags, last_contacted_at, lead_id, created_at, updated_at
	) VALUES %s
	ON CONFLICT (workspace_id, external_id) DO UPDATE SET
		platform = EXCLUDED.platform,
		first_name = EXCLUDED.first_name,
		last_name = EXCLUDED.last_name,
		email = EXCLUDED.email,
		phone = EXCLUDED.phone,
		company = EXCLUDED.company,
		job_title = EXCLUDED.job_title,
		score = EXCLUDED.score,
		tags = EXCLUDED.tags,
		last_contacted_at = EXCLUDED.last_contacted_at,
		updated_at = EXCLUDED.updated_at`,
		batchPlaceholders(len(batch), cols))

	args := make([]any, 0, len(batch)*cols)
	for _, c := range batch {
		args = append(args,
			c.ID, c.WorkspaceID, c.ExternalID, c.Platform,
			c.FirstName, c.LastName, c.Email, c.Phone, c.Company, c.JobTitle,
			c.Score, c.Tags, c.LastContactedAt, c.LeadID, c.CreatedAt, c.UpdatedAt)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert contacts: %w", err)
	}
	return nil
}

// UpsertDialSessions writes dial sessions idempotently, keyed on
// (workspace_id, external_id).
func (db *DB) UpsertDialSessions(ctx context.Context, workspaceID string, sessions []models.DialSession) models.WriteResult {
	now := time.Now().UTC()
	for i := range sessions {
		sessions[i].WorkspaceID = workspaceID
		if sessions[i].ID == uuid.Nil {
			sessions[i].ID = uuid.New()
		}
		if sessions[i].CreatedAt.IsZero() {
			sessions[i].CreatedAt = now
		}
		sessions[i].UpdatedAt = now
	}
	sessions = dedupeByExternalID(sessions, func(s models.DialSession) string { return s.ExternalID })

	return upsertInBatches(ctx, db, "dial_sessions", sessions, db.execSessionBatch)
}

func (db *DB) execSessionBatch(ctx context.Context, batch []models.DialSession) error {
	const cols = 12
	query := fmt.Sprintf(`INSERT INTO dial_sessions (
		id, workspace_id, external_id, platform,
		member_id, started_at, ended_at,
		total_calls, total_connects, total_talk_seconds,
		created_at, updated_at
	) VALUES %s
	ON CONFLICT (workspace_id, external_id) DO UPDATE SET
		platform = EXCLUDED.platform,
		member_id = EXCLUDED.member_id,
		started_at = EXCLUDED.started_at,
		ended_at = EXCLUDED.ended_at,
		total_calls = EXCLUDED.total_calls,
		total_connects = EXCLUDED.total_connects,
		total_talk_seconds = EXCLUDED.total_talk_seconds,
		updated_at = EXCLUDED.updated_at`,
		batchPlaceholders(len(batch), cols))

	args := make([]any, 0, len(batch)*cols)
	for _, s := range batch {
		args = append(args,
			s.ID, s.WorkspaceID, s.ExternalID, s.Platform,
			s.MemberID, s.StartedAt, s.EndedAt,
			s.TotalCalls, s.TotalConnects, s.TotalTalkSeconds,
			s.CreatedAt, s.UpdatedAt)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert dial sessions: %w", err)
	}
	return nil
}

// UpsertCalls writes calls idempotently, keyed on (workspace_id,
// external_id). Like contacts, lead_id survives re-ingestion untouched.
func (db *DB) UpsertCalls(ctx context.Context, workspaceID string, calls []models.Call) models.WriteResult {
	now := time.Now().UTC()
	for i := range calls {
		calls[i].WorkspaceID = workspaceID
		if calls[i].ID == uuid.Nil {
			calls[i].ID = uuid.New()
		}
		if calls[i].CreatedAt.IsZero() {
			calls[i].CreatedAt = now
		}
		calls[i].UpdatedAt = now
	}
	calls = dedupeByExternalID(calls, func(c models.Call) string { return c.ExternalID })

	return upsertInBatches(ctx, db, "calls", calls, db.execCallBatch)
}

func (db *DB) execCallBatch(ctx context.Context, batch []models.Call) error {
	const cols = 18
	query := fmt.Sprintf(`INSERT INTO calls (
		id, workspace_id, external_id, platform,
		session_external_id, contact_external_id, phone_number,
		started_at, duration_seconds, talk_seconds, connected,
		raw_category, disposition, recording_url, notes, lead_id,
		created_at, updated_at
	) VALUES %s
	ON CONFLICT (workspace_id, external_id) DO UPDATE SET
		platform = EXCLUDED.platform,
		session_external_id = EXCLUDED.session_external_id,
		contact_external_id = EXCLUDED.contact_external_id,
		phone_number = EXCLUDED.phone_number,
		started_at = EXCLUDED.started_at,
		duration_seconds = EXCLUDED.duration_seconds,
		talk_seconds = EXCLUDED.talk_seconds,
		connected = EXCLUDED.connected,
		raw_category = EXCLUDED.raw_category,
		disposition = EXCLUDED.disposition,
		recording_url = EXCLUDED.recording_url,
		notes = EXCLUDED.notes,
		updated_at = EXCLUDED.updated_at`,
		batchPlaceholders(len(batch), cols))

	args := make([]any, 0, len(batch)*cols)
	for _, c := range batch {
		args = append(args,
			c.ID, c.WorkspaceID, c.ExternalID, c.Platform,
			c.SessionExternalID, c.ContactExternalID, c.PhoneNumber,
			c.StartedAt, c.DurationSeconds, c.TalkSeconds, c.Connected,
			c.RawCategory, string(c.Disposition), c.RecordingURL, c.Notes, c.LeadID,
			c.CreatedAt, c.UpdatedAt)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert calls: %w", err)
	}
	return nil
}

// civilDay normalizes a moment to midnight UTC. Daily rows are keyed by
// civil day, and a stable key keeps the upsert conflict behavior exact.
func civilDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UpsertDailyMetrics writes daily aggregate rows idempotently, keyed on
// (workspace_id, external_id).
func (db *DB) UpsertDailyMetrics(ctx context.Context, workspaceID string, rows []models.DailyMetric) models.WriteResult {
	now := time.Now().UTC()
	for i := range rows {
		rows[i].WorkspaceID = workspaceID
		rows[i].Date = civilDay(rows[i].Date)
		if rows[i].ID == uuid.Nil {
			rows[i].ID = uuid.New()
		}
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		rows[i].UpdatedAt = now
	}
	rows = dedupeByExternalID(rows, func(m models.DailyMetric) string { return m.ExternalID })

	return upsertInBatches(ctx, db, "daily_metrics", rows, db.execMetricBatch)
}

func (db *DB) execMetricBatch(ctx context.Context, batch []models.DailyMetric) error {
	const cols = 12
	query := fmt.Sprintf(`INSERT INTO daily_metrics (
		id, workspace_id, external_id, platform,
		date, dials, connects, conversations, emails_sent, talk_seconds,
		created_at, updated_at
	) VALUES %s
	ON CONFLICT (workspace_id, external_id) DO UPDATE SET
		platform = EXCLUDED.platform,
		date = EXCLUDED.date,
		dials = EXCLUDED.dials,
		connects = EXCLUDED.connects,
		conversations = EXCLUDED.conversations,
		emails_sent = EXCLUDED.emails_sent,
		talk_seconds = EXCLUDED.talk_seconds,
		updated_at = EXCLUDED.updated_at`,
		batchPlaceholders(len(batch), cols))

	args := make([]any, 0, len(batch)*cols)
	for _, m := range batch {
		args = append(args,
			m.ID, m.WorkspaceID, m.ExternalID, m.Platform,
			m.Date, m.Dials, m.Connects, m.Conversations, m.EmailsSent, m.TalkSeconds,
			m.CreatedAt, m.UpdatedAt)
	}

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert daily metrics: %w", err)
	}
	return nil
}
