// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/outboundlabs/prospectus/internal/metrics"
	"github.com/outboundlabs/prospectus/internal/models"
)

// observeQuery records query latency for the dashboard metrics.
func observeQuery(operation, table string, start time.Time) {
	metrics.DBQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}

// round2 truncates derived rates to two decimals for stable API output.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// GetAnalyticsSummary computes the dashboard KPI header for a workspace.
// The since bound applies to activity tables (calls, sessions, daily
// metrics); contact and lead totals are whole-workspace inventories.
//
// Aggregates over INTEGER columns are cast to BIGINT because DuckDB
// returns HUGEINT sums, which database/sql scans as *big.Int.
func (db *DB) GetAnalyticsSummary(ctx context.Context, workspaceID string, since time.Time) (*models.AnalyticsSummary, error) {
	defer observeQuery("select", "analytics_summary", time.Now())
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	summary := &models.AnalyticsSummary{WorkspaceID: workspaceID}

	var contacts, leads, sessions int64
	err := db.conn.QueryRowContext(ctx, `SELECT
			(SELECT COUNT(*) FROM external_contacts WHERE workspace_id = ?),
			(SELECT COUNT(*) FROM leads WHERE workspace_id = ?),
			(SELECT COUNT(*) FROM dial_sessions WHERE workspace_id = ? AND started_at >= ?)`,
		workspaceID, workspaceID, workspaceID, since).
		Scan(&contacts, &leads, &sessions)
	if err != nil {
		return nil, fmt.Errorf("failed to query workspace counts: %w", err)
	}
	summary.TotalContacts = int(contacts)
	summary.TotalLeads = int(leads)
	summary.TotalSessions = int(sessions)

	var calls, connects, conversations, talkSeconds int64
	err = db.conn.QueryRowContext(ctx, `SELECT
			CAST(COUNT(*) AS BIGINT),
			CAST(COUNT(*) FILTER (WHERE connected) AS BIGINT),
			CAST(COUNT(*) FILTER (WHERE disposition = ?) AS BIGINT),
			CAST(COALESCE(SUM(talk_seconds), 0) AS BIGINT)
		FROM calls
		WHERE workspace_id = ? AND started_at >= ?`,
		string(models.DispositionConversation), workspaceID, since).
		Scan(&calls, &connects, &conversations, &talkSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to query call aggregates: %w", err)
	}
	summary.TotalCalls = int(calls)
	summary.TotalConnects = int(connects)
	summary.TotalConversations = int(conversations)

	var dials, emailsSent int64
	err = db.conn.QueryRowContext(ctx, `SELECT
			CAST(COALESCE(SUM(dials), 0) AS BIGINT),
			CAST(COALESCE(SUM(emails_sent), 0) AS BIGINT)
		FROM daily_metrics
		WHERE workspace_id = ? AND date >= ?`,
		workspaceID, since).
		Scan(&dials, &emailsSent)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily metric aggregates: %w", err)
	}
	summary.TotalDials = int(dials)
	summary.TotalEmailsSent = int(emailsSent)

	var lastSyncAt sql.NullTime
	err = db.conn.QueryRowContext(ctx,
		"SELECT MAX(last_sync_at) FROM sync_connections WHERE workspace_id = ?",
		workspaceID).Scan(&lastSyncAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query last sync time: %w", err)
	}
	if lastSyncAt.Valid {
		summary.LastSyncAt = &lastSyncAt.Time
	}

	if calls > 0 {
		summary.ConnectRate = round2(float64(connects) / float64(calls) * 100)
		summary.ConversationRate = round2(float64(conversations) / float64(calls) * 100)
	}
	if connects > 0 {
		summary.AvgTalkSeconds = round2(float64(talkSeconds) / float64(connects))
	}
	return summary, nil
}

// GetCallsByDay returns per-day call volume for the activity chart.
func (db *DB) GetCallsByDay(ctx context.Context, workspaceID string, since time.Time) ([]models.CallsByDay, error) {
	defer observeQuery("select", "calls", time.Now())
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT
			CAST(started_at AS DATE) AS day,
			CAST(COUNT(*) AS BIGINT),
			CAST(COUNT(*) FILTER (WHERE connected) AS BIGINT),
			CAST(COALESCE(SUM(talk_seconds), 0) AS BIGINT)
		FROM calls
		WHERE workspace_id = ? AND started_at >= ?
		GROUP BY 1
		ORDER BY 1`,
		workspaceID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query calls by day: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.CallsByDay
	for rows.Next() {
		var (
			day                       time.Time
			calls, connects, talkSecs int64
		)
		if err := rows.Scan(&day, &calls, &connects, &talkSecs); err != nil {
			return nil, fmt.Errorf("failed to scan calls by day: %w", err)
		}
		out = append(out, models.CallsByDay{
			Date:        day.Format("2006-01-02"),
			Calls:       int(calls),
			Connects:    int(connects),
			TalkSeconds: int(talkSecs),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calls by day: %w", err)
	}
	return out, nil
}

// GetDispositionBreakdown returns call counts per disposition bucket,
// largest first.
func (db *DB) GetDispositionBreakdown(ctx context.Context, workspaceID string, since time.Time) ([]models.DispositionCount, error) {
	defer observeQuery("select", "calls", time.Now())
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT
			disposition,
			CAST(COUNT(*) AS BIGINT) AS cnt
		FROM calls
		WHERE workspace_id = ? AND started_at >= ?
		GROUP BY disposition
		ORDER BY cnt DESC, disposition`,
		workspaceID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query disposition breakdown: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.DispositionCount
	for rows.Next() {
		var (
			disposition string
			count       int64
		)
		if err := rows.Scan(&disposition, &count); err != nil {
			return nil, fmt.Errorf("failed to scan disposition count: %w", err)
		}
		out = append(out, models.DispositionCount{
			Disposition: models.Disposition(disposition),
			Count:       int(count),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate disposition breakdown: %w", err)
	}
	return out, nil
}

// GetTopContacts ranks contacts by call volume inside the window. Only
// calls carrying a contact reference count; ties break on talk time then
// external id so pagination stays stable.
func (db *DB) GetTopContacts(ctx context.Context, workspaceID string, since time.Time, limit int) ([]models.TopContact, error) {
	defer observeQuery("select", "calls", time.Now())
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 10
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT
			c.external_id, c.first_name, c.last_name, c.email, c.company,
			CAST(COUNT(*) AS BIGINT) AS call_count,
			CAST(COALESCE(SUM(ca.talk_seconds), 0) AS BIGINT) AS talk_seconds
		FROM calls ca
		JOIN external_contacts c
			ON c.workspace_id = ca.workspace_id AND c.external_id = ca.contact_external_id
		WHERE ca.workspace_id = ? AND ca.started_at >= ? AND ca.contact_external_id IS NOT NULL
		GROUP BY c.external_id, c.first_name, c.last_name, c.email, c.company
		ORDER BY call_count DESC, talk_seconds DESC, c.external_id
		LIMIT ?`,
		workspaceID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top contacts: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.TopContact
	for rows.Next() {
		var (
			contact             models.TopContact
			email, company      sql.NullString
			callCount, talkSecs int64
		)
		if err := rows.Scan(
			&contact.ExternalID, &contact.FirstName, &contact.LastName,
			&email, &company, &callCount, &talkSecs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan top contact: %w", err)
		}
		if email.Valid {
			contact.Email = &email.String
		}
		if company.Valid {
			contact.Company = &company.String
		}
		contact.CallCount = int(callCount)
		contact.TalkSeconds = int(talkSecs)
		out = append(out, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top contacts: %w", err)
	}
	return out, nil
}
