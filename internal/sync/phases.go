// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/metrics"
	"github.com/outboundlabs/prospectus/internal/models"
	"github.com/outboundlabs/prospectus/internal/platform"
	"github.com/outboundlabs/prospectus/internal/platform/airtable"
	"github.com/outboundlabs/prospectus/internal/platform/phoneburner"
)

// runContactsPhase crawls the dialer's contact pages. Connections to other
// platforms have no contact resource and exhaust immediately.
func (e *Engine) runContactsPhase(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress, budget *Budget) (bool, error) {
	if conn.Platform != models.PlatformPhoneBurner {
		return true, nil
	}
	if e.dialer == nil {
		return false, fmt.Errorf("dialer client is not configured")
	}
	ws := conn.WorkspaceID

	return walkPages(ctx, budget, progress.ContactsPage,
		func(ctx context.Context, page int) ([]phoneburner.Contact, platform.PageInfo, error) {
			return e.dialer.ListContacts(ctx, page)
		},
		func(ctx context.Context, raw []phoneburner.Contact) error {
			metrics.SyncPagesFetched.WithLabelValues(conn.Platform, "contacts").Inc()
			contacts := make([]models.ExternalContact, 0, len(raw))
			for _, rc := range raw {
				contact, err := phoneburner.NormalizeContact(ws, rc)
				if err != nil {
					e.recordSkip(conn.Platform, "contacts", err)
					continue
				}
				contacts = append(contacts, contact)
			}
			res := e.store.UpsertContacts(ctx, ws, contacts)
			progress.ContactsSynced += e.recordWrites("external_contacts", res)
			return nil
		},
		func(ctx context.Context, nextPage int) error {
			progress.ContactsPage = nextPage
			return e.persist(ctx, conn, models.SyncStatusSyncing, progress)
		})
}

// runSessionsPhase crawls dial sessions page by page and, for each session,
// its call detail. The page number and the index within the page are both
// persisted, so a budget exit mid-page resumes at the exact session; calls
// handled before the exit are never fetched twice within the cycle.
func (e *Engine) runSessionsPhase(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress, budget *Budget) (bool, error) {
	if conn.Platform != models.PlatformPhoneBurner {
		return true, nil
	}
	if e.dialer == nil {
		return false, fmt.Errorf("dialer client is not configured")
	}
	ws := conn.WorkspaceID
	since := sessionsSince(conn)

	page := progress.SessionsPage
	if page < 1 {
		page = 1
	}
	for {
		raw, info, err := e.dialer.ListDialSessions(ctx, page, since)
		if err != nil {
			return false, err
		}
		metrics.SyncPagesFetched.WithLabelValues(conn.Platform, "sessions").Inc()

		sessions := make([]models.DialSession, 0, len(raw))
		for _, rs := range raw {
			session, err := phoneburner.NormalizeDialSession(ws, rs)
			if err != nil {
				e.recordSkip(conn.Platform, "sessions", err)
				continue
			}
			sessions = append(sessions, session)
		}
		res := e.store.UpsertDialSessions(ctx, ws, sessions)
		written := e.recordWrites("dial_sessions", res)
		if progress.SessionOffset == 0 {
			// A page re-entered mid-way was already counted by the
			// invocation that first fetched it.
			progress.SessionsSynced += written
		}

		for i := progress.SessionOffset; i < len(raw); i++ {
			if budget.Exceeded() {
				progress.SessionsPage = page
				progress.SessionOffset = i
				if err := e.persist(ctx, conn, models.SyncStatusSyncing, progress); err != nil {
					return false, err
				}
				return false, nil
			}
			if err := e.syncSessionCalls(ctx, conn, progress, raw[i]); err != nil {
				return false, err
			}
			progress.SessionOffset = i + 1
		}

		if info.Exhausted() {
			progress.SessionsPage = page
			progress.SessionOffset = 0
			return true, nil
		}

		page++
		progress.SessionsPage = page
		progress.SessionOffset = 0
		if err := e.persist(ctx, conn, models.SyncStatusSyncing, progress); err != nil {
			return false, err
		}
		if budget.Exceeded() {
			return false, nil
		}
	}
}

// syncSessionCalls fetches, classifies, and writes one session's calls. A
// detail fetch the client could not recover does not sink the whole phase;
// the session's calls are picked up by the overlap window of a later cycle.
func (e *Engine) syncSessionCalls(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress, raw phoneburner.DialSession) error {
	sessionID := raw.SessionID.String()
	if sessionID == "" {
		metrics.SyncRecordsSkipped.WithLabelValues(conn.Platform, "calls").Inc()
		return nil
	}

	rawCalls, err := e.dialer.GetSessionCalls(ctx, sessionID)
	if err != nil {
		if retryLater(err) {
			logging.Warn().
				Err(err).
				Str("session_id", sessionID).
				Msg("Skipping session call detail after exhausted retries")
			metrics.SyncErrors.WithLabelValues(errorType(err)).Inc()
			return nil
		}
		return err
	}

	threshold := e.talkThreshold()
	calls := make([]models.Call, 0, len(rawCalls))
	for _, rc := range rawCalls {
		call, err := phoneburner.NormalizeCall(conn.WorkspaceID, sessionID, rc)
		if err != nil {
			e.recordSkip(conn.Platform, "calls", err)
			continue
		}
		category := ""
		if call.RawCategory != nil {
			category = *call.RawCategory
		}
		call.Disposition = ClassifyDisposition(category, call.TalkSeconds, threshold)
		calls = append(calls, call)
	}

	res := e.store.UpsertCalls(ctx, conn.WorkspaceID, calls)
	progress.CallsSynced += e.recordWrites("calls", res)
	return nil
}

// runMetricsPhase ingests daily aggregates. The tabular source supersedes
// the dialer's member stats when configured; its opaque continuation token
// and the dialer's page number share the metrics_offset cursor field.
func (e *Engine) runMetricsPhase(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress, budget *Budget) (bool, error) {
	if e.tabular != nil {
		return e.runTabularMetrics(ctx, conn, progress, budget)
	}
	if conn.Platform == models.PlatformPhoneBurner && e.dialer != nil {
		return e.runDialerMetrics(ctx, conn, progress, budget)
	}
	if conn.Platform == models.PlatformAirtable {
		return false, fmt.Errorf("tabular metrics client is not configured")
	}
	return true, nil
}

func (e *Engine) runTabularMetrics(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress, budget *Budget) (bool, error) {
	ws := conn.WorkspaceID

	return walkOffsets(ctx, budget, progress.MetricsOffset,
		func(ctx context.Context, offset string) ([]airtable.Record, platform.PageInfo, error) {
			return e.tabular.ListDailyMetrics(ctx, offset)
		},
		func(ctx context.Context, raw []airtable.Record) error {
			metrics.SyncPagesFetched.WithLabelValues(models.PlatformAirtable, "daily_metrics").Inc()
			rows := make([]models.DailyMetric, 0, len(raw))
			for _, rr := range raw {
				row, err := airtable.NormalizeMetricRecord(ws, rr)
				if err != nil {
					e.recordSkip(models.PlatformAirtable, "daily_metrics", err)
					continue
				}
				rows = append(rows, row)
			}
			res := e.store.UpsertDailyMetrics(ctx, ws, rows)
			progress.MetricsSynced += e.recordWrites("daily_metrics", res)
			return nil
		},
		func(ctx context.Context, nextOffset string) error {
			progress.MetricsOffset = nextOffset
			return e.persist(ctx, conn, models.SyncStatusSyncing, progress)
		})
}

func (e *Engine) runDialerMetrics(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress, budget *Budget) (bool, error) {
	ws := conn.WorkspaceID

	startPage := 1
	if progress.MetricsOffset != "" {
		if v, err := strconv.Atoi(progress.MetricsOffset); err == nil && v > 0 {
			startPage = v
		}
	}

	return walkPages(ctx, budget, startPage,
		func(ctx context.Context, page int) ([]phoneburner.MemberStat, platform.PageInfo, error) {
			return e.dialer.ListMemberStats(ctx, page)
		},
		func(ctx context.Context, raw []phoneburner.MemberStat) error {
			metrics.SyncPagesFetched.WithLabelValues(conn.Platform, "member_stats").Inc()
			rows := make([]models.DailyMetric, 0, len(raw))
			for _, rr := range raw {
				row, err := phoneburner.NormalizeMemberStat(ws, rr)
				if err != nil {
					e.recordSkip(conn.Platform, "member_stats", err)
					continue
				}
				rows = append(rows, row)
			}
			res := e.store.UpsertDailyMetrics(ctx, ws, rows)
			progress.MetricsSynced += e.recordWrites("daily_metrics", res)
			return nil
		},
		func(ctx context.Context, nextPage int) error {
			progress.MetricsOffset = strconv.Itoa(nextPage)
			return e.persist(ctx, conn, models.SyncStatusSyncing, progress)
		})
}

// runLinkingPhase runs bounded linker passes until one moves nothing. Every
// pass filters on rows that still lack a lead, so re-running after a pause
// repeats no work.
func (e *Engine) runLinkingPhase(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress, budget *Budget) (bool, error) {
	for {
		result, err := e.store.LinkWorkspaceLeads(ctx, conn.WorkspaceID, e.linkerBatch())
		if err != nil {
			return false, fmt.Errorf("failed to link leads: %w", err)
		}
		if result.LeadsCreated == 0 && result.Linked() == 0 {
			return true, nil
		}

		progress.LeadsLinked += int(result.ContactsLinked)
		if err := e.persist(ctx, conn, models.SyncStatusSyncing, progress); err != nil {
			return false, err
		}
		if budget.Exceeded() {
			return false, nil
		}
	}
}

// sessionsSince returns the incremental lower bound for the session crawl:
// a window before the last completed sync, or the zero time for a full
// crawl on the first cycle.
func sessionsSince(conn *models.SyncConnection) time.Time {
	if conn.LastSyncAt == nil {
		return time.Time{}
	}
	return conn.LastSyncAt.Add(-sessionOverlap)
}

// recordWrites logs and counts failed rows without failing the sync, and
// returns the written count for the progress counters.
func (e *Engine) recordWrites(table string, res models.WriteResult) int {
	if res.Failed > 0 {
		werr := &WriteError{Table: table, Failed: res.Failed, Reasons: res.Errors}
		logging.Warn().
			Err(werr).
			Int("written", res.Written).
			Msg("Some records failed to persist; sync continues")
		metrics.SyncErrors.WithLabelValues("write").Inc()
	}
	return res.Written
}

// recordSkip counts one record dropped during normalization. Records without
// an external identity are expected platform noise; anything else is logged
// as a mapping problem. Neither stops the sync.
func (e *Engine) recordSkip(platformName, resource string, err error) {
	if errors.Is(err, platform.ErrSkipRecord) {
		metrics.SyncRecordsSkipped.WithLabelValues(platformName, resource).Inc()
		return
	}
	metrics.SyncErrors.WithLabelValues("mapping").Inc()
	logging.Warn().
		Err(err).
		Str("platform", platformName).
		Str("resource", resource).
		Msg("Dropping unmappable record")
}
