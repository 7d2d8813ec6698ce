// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/outboundlabs/prospectus/internal/metrics"
	"github.com/outboundlabs/prospectus/internal/models"
)

// defaultLinkerBatchSize bounds one linker pass when the caller passes no
// explicit batch size.
const defaultLinkerBatchSize = 500

// LinkResult reports one linker pass. A pass that moved nothing means the
// workspace is fully linked and the caller can stop iterating.
type LinkResult struct {
	LeadsCreated   int64 `json:"leads_created"`
	ContactsLinked int64 `json:"contacts_linked"`
	CallsLinked    int64 `json:"calls_linked"`
}

// Linked returns the number of records attached to a lead in this pass.
func (r LinkResult) Linked() int64 {
	return r.ContactsLinked + r.CallsLinked
}

// LinkWorkspaceLeads runs one bounded pass of the entity linker: create
// leads for unmatched contacts, attach unlinked contacts to leads, then
// attach unlinked calls through their contact. Matching prefers the exact
// (source, external_id) pair and falls back to email.
//
// Every statement filters on lead_id IS NULL, so the pass is idempotent
// and needs no cursor; repeated passes converge to zero work. Each
// statement is bounded by batchSize with a deterministic external_id
// order, keeping a single pass inside the sync engine's time budget.
func (db *DB) LinkWorkspaceLeads(ctx context.Context, workspaceID string, batchSize int) (LinkResult, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if batchSize <= 0 {
		batchSize = defaultLinkerBatchSize
	}

	var result LinkResult
	start := time.Now()
	now := time.Now().UTC()

	created, err := db.createLeadsFromContacts(ctx, workspaceID, batchSize, now)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("link", "leads").Inc()
		return result, fmt.Errorf("failed to create leads from contacts: %w", err)
	}
	result.LeadsCreated = created

	contacts, err := db.linkContactsToLeads(ctx, workspaceID, batchSize, now)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("link", "external_contacts").Inc()
		return result, fmt.Errorf("failed to link contacts to leads: %w", err)
	}
	result.ContactsLinked = contacts

	calls, err := db.linkCallsToLeads(ctx, workspaceID, batchSize, now)
	if err != nil {
		metrics.DBQueryErrors.WithLabelValues("link", "calls").Inc()
		return result, fmt.Errorf("failed to link calls to leads: %w", err)
	}
	result.CallsLinked = calls

	metrics.LinkerLeadsCreated.Add(float64(result.LeadsCreated))
	metrics.LinkerLeadsLinked.Add(float64(result.Linked()))
	metrics.DBQueryDuration.WithLabelValues("link", "leads").Observe(time.Since(start).Seconds())
	return result, nil
}

// createLeadsFromContacts inserts a lead for each unlinked contact that
// matches no existing lead by (source, external_id) or email. QUALIFY
// keeps one row per identity so two same-email contacts arriving in the
// same batch produce a single lead.
func (db *DB) createLeadsFromContacts(ctx context.Context, workspaceID string, batchSize int, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `INSERT INTO leads (
			id, workspace_id, first_name, last_name, email, phone, company,
			source, source_external_id, created_at, updated_at
		)
		SELECT uuid(), c.workspace_id, c.first_name, c.last_name, c.email, c.phone, c.company,
			c.platform, c.external_id, ?, ?
		FROM external_contacts c
		WHERE c.workspace_id = ?
			AND c.lead_id IS NULL
			AND NOT EXISTS (
				SELECT 1 FROM leads l
				WHERE l.workspace_id = c.workspace_id
					AND ((l.source = c.platform AND l.source_external_id = c.external_id)
						OR (c.email IS NOT NULL AND l.email = c.email))
			)
		QUALIFY ROW_NUMBER() OVER (
			PARTITION BY COALESCE(c.email, 'ext:' || c.external_id)
			ORDER BY c.external_id
		) = 1
		ORDER BY c.external_id
		LIMIT ?`,
		now, now, workspaceID, batchSize)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// linkContactsToLeads attaches unlinked contacts to their best lead match,
// preferring the exact (source, external_id) pair over an email match.
func (db *DB) linkContactsToLeads(ctx context.Context, workspaceID string, batchSize int, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `UPDATE external_contacts
		SET lead_id = m.lead_id, updated_at = ?
		FROM (
			SELECT c.id AS contact_id,
				(SELECT l.id FROM leads l
					WHERE l.workspace_id = c.workspace_id
						AND ((l.source = c.platform AND l.source_external_id = c.external_id)
							OR (c.email IS NOT NULL AND l.email = c.email))
					ORDER BY (l.source = c.platform AND l.source_external_id = c.external_id) DESC,
						l.created_at
					LIMIT 1) AS lead_id
			FROM external_contacts c
			WHERE c.workspace_id = ? AND c.lead_id IS NULL
			ORDER BY c.external_id
			LIMIT ?
		) m
		WHERE external_contacts.id = m.contact_id AND m.lead_id IS NOT NULL`,
		now, workspaceID, batchSize)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// linkCallsToLeads propagates the lead id from a linked contact onto its
// unlinked calls.
func (db *DB) linkCallsToLeads(ctx context.Context, workspaceID string, batchSize int, now time.Time) (int64, error) {
	result, err := db.conn.ExecContext(ctx, `UPDATE calls
		SET lead_id = m.lead_id, updated_at = ?
		FROM (
			SELECT ca.id AS call_id, c.lead_id
			FROM calls ca
			JOIN external_contacts c
				ON c.workspace_id = ca.workspace_id AND c.external_id = ca.contact_external_id
			WHERE ca.workspace_id = ?
				AND ca.lead_id IS NULL
				AND ca.contact_external_id IS NOT NULL
				AND c.lead_id IS NOT NULL
			ORDER BY ca.external_id
			LIMIT ?
		) m
		WHERE calls.id = m.call_id`,
		now, workspaceID, batchSize)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ListLeads returns a workspace's leads, newest first.
func (db *DB) ListLeads(ctx context.Context, workspaceID string, limit, offset int) ([]models.Lead, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT
			id, workspace_id, first_name, last_name, email, phone, company,
			source, source_external_id, created_at, updated_at
		FROM leads
		WHERE workspace_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?`,
		workspaceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer closeQuietly(rows)

	var leads []models.Lead
	for rows.Next() {
		var (
			lead             models.Lead
			email            sql.NullString
			phone            sql.NullString
			company          sql.NullString
			sourceExternalID sql.NullString
		)
		if err := rows.Scan(
			&lead.ID, &lead.WorkspaceID, &lead.FirstName, &lead.LastName,
			&email, &phone, &company,
			&lead.Source, &sourceExternalID, &lead.CreatedAt, &lead.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		if email.Valid {
			lead.Email = &email.String
		}
		if phone.Valid {
			lead.Phone = &phone.String
		}
		if company.Valid {
			lead.Company = &company.String
		}
		if sourceExternalID.Valid {
			lead.SourceExternalID = &sourceExternalID.String
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, nil
}

// CountLeads returns the number of leads in a workspace.
func (db *DB) CountLeads(ctx context.Context, workspaceID string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM leads WHERE workspace_id = ?", workspaceID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}
