// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/database"
	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/metrics"
	"github.com/outboundlabs/prospectus/internal/models"
	"github.com/outboundlabs/prospectus/internal/platform"
	"github.com/outboundlabs/prospectus/internal/platform/airtable"
	"github.com/outboundlabs/prospectus/internal/platform/phoneburner"
)

const (
	// defaultLockTimeout is how stale a heartbeat must be before another
	// invocation may take over the session.
	defaultLockTimeout = 30 * time.Second

	// budgetGrace caps the invocation context slightly above the budget so
	// one wedged request cannot outlive the invocation.
	budgetGrace = 5 * time.Second

	// finalPersistTimeout bounds the detached state writes that must land
	// even when the invocation context is already done.
	finalPersistTimeout = 10 * time.Second

	// continuationTimeout bounds the continuation enqueue.
	continuationTimeout = 5 * time.Second

	// sessionOverlap is re-crawled before the last completed sync so
	// sessions that were still running at the boundary pick up their final
	// stats. The idempotent upsert makes the overlap free.
	sessionOverlap = 24 * time.Hour
)

// Store is the persistence surface the engine consumes. *database.DB
// implements it; tests may substitute their own.
type Store interface {
	GetSyncConnection(ctx context.Context, workspaceID, platform string) (*models.SyncConnection, error)
	GetActiveSyncConnection(ctx context.Context, workspaceID string) (*models.SyncConnection, error)
	UpdateSyncState(ctx context.Context, workspaceID, platform string, status models.SyncStatus, progress models.SyncProgress) error
	UpsertContacts(ctx context.Context, workspaceID string, contacts []models.ExternalContact) models.WriteResult
	UpsertDialSessions(ctx context.Context, workspaceID string, sessions []models.DialSession) models.WriteResult
	UpsertCalls(ctx context.Context, workspaceID string, calls []models.Call) models.WriteResult
	UpsertDailyMetrics(ctx context.Context, workspaceID string, rows []models.DailyMetric) models.WriteResult
	LinkWorkspaceLeads(ctx context.Context, workspaceID string, batchSize int) (database.LinkResult, error)
	ResetWorkspaceData(ctx context.Context, workspaceID string) (map[string]int64, error)
}

// DialerClient is the slice of the dialer platform API the engine consumes.
type DialerClient interface {
	ListContacts(ctx context.Context, page int) ([]phoneburner.Contact, platform.PageInfo, error)
	ListDialSessions(ctx context.Context, page int, since time.Time) ([]phoneburner.DialSession, platform.PageInfo, error)
	GetSessionCalls(ctx context.Context, sessionID string) ([]phoneburner.Call, error)
	ListMemberStats(ctx context.Context, page int) ([]phoneburner.MemberStat, platform.PageInfo, error)
	Ping(ctx context.Context) error
}

// MetricsClient is the tabular daily-metrics source. When configured it
// supersedes the dialer's member stats in the metrics phase.
type MetricsClient interface {
	ListDailyMetrics(ctx context.Context, offset string) ([]airtable.Record, platform.PageInfo, error)
	Ping(ctx context.Context) error
}

// Continuer enqueues a durable resume for a paused sync. A nil or failing
// continuer degrades to resuming on the next scheduler tick or manual run;
// the engine never re-invokes itself in process.
type Continuer interface {
	EnqueueResume(ctx context.Context, workspaceID, platformName string) error
}

var (
	_ Store         = (*database.DB)(nil)
	_ DialerClient  = (*phoneburner.Client)(nil)
	_ MetricsClient = (*airtable.Client)(nil)
)

// Engine runs sync sessions. It holds no per-session state; everything a
// resumed invocation needs lives in the persisted progress row, so any
// process can pick up any session.
type Engine struct {
	store     Store
	dialer    DialerClient
	tabular   MetricsClient
	cfg       *config.SyncConfig
	continuer Continuer

	// clock is the time source; tests step it to drive budget exits.
	clock func() time.Time
}

// NewEngine creates a sync engine. dialer and tabular may be nil when the
// respective platform is not configured; phases that need a missing client
// either no-op (wrong platform) or fail the run (required client absent).
func NewEngine(store Store, dialer DialerClient, tabular MetricsClient, cfg *config.SyncConfig) *Engine {
	e := &Engine{
		store:   store,
		dialer:  dialer,
		tabular: tabular,
		cfg:     cfg,
	}
	logging.Info().
		Dur("budget", e.budgetCeiling()).
		Dur("lock_timeout", e.lockTimeout()).
		Bool("dialer_configured", dialer != nil).
		Bool("tabular_configured", tabular != nil).
		Msg("Sync engine initialized")
	return e
}

// SetContinuer wires the continuation queue. Called once during startup,
// after the queue exists; the engine works without one.
func (e *Engine) SetContinuer(c Continuer) {
	e.continuer = c
}

// RunStep performs one bounded sync invocation for the workspace and returns
// its outcome immediately. Long syncs span several invocations: whenever the
// budget ends one early, the response carries NeedsContinuation and the
// persisted cursor lets the next call resume in place.
func (e *Engine) RunStep(ctx context.Context, req models.SyncRunRequest) (*models.SyncRunResponse, error) {
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return nil, ErrWorkspaceRequired
	}
	started := e.now()

	conn, err := e.lookupConnection(ctx, req)
	if err != nil {
		return nil, err
	}
	if !conn.IsActive {
		return nil, fmt.Errorf("%s/%s: %w", conn.WorkspaceID, conn.Platform, ErrConnectionDisabled)
	}

	ctx, cancel := context.WithTimeout(ctx, e.budgetCeiling()+budgetGrace)
	defer cancel()

	if req.Diagnostic {
		return e.runDiagnostic(ctx, conn, started), nil
	}

	if e.lockedElsewhere(conn) {
		metrics.SyncLockContention.Inc()
		metrics.RecordSyncRun(conn.Platform, string(models.RunStatusAlreadySyncing), e.now().Sub(started))
		logging.Debug().
			Str("workspace_id", conn.WorkspaceID).
			Str("platform", conn.Platform).
			Time("heartbeat", conn.Progress.Heartbeat).
			Msg("Sync already running; nothing to do")
		return &models.SyncRunResponse{
			Status:   models.RunStatusAlreadySyncing,
			Phase:    conn.Progress.Phase,
			Counters: conn.Progress.SyncCounters,
		}, nil
	}

	progress, err := e.startingProgress(ctx, conn, req, started)
	if err != nil {
		return nil, err
	}

	// Acquire the session lock: status syncing plus a fresh heartbeat.
	if err := e.persist(ctx, conn, models.SyncStatusSyncing, &progress); err != nil {
		return nil, err
	}

	resp := e.advance(ctx, conn, &progress)
	metrics.RecordSyncRun(conn.Platform, string(resp.Status), e.now().Sub(started))
	if resp.NeedsContinuation {
		e.requestContinuation(ctx, conn)
	}
	return resp, nil
}

// lookupConnection resolves the connection a run request addresses: the
// named platform when given, otherwise the workspace's active connection.
func (e *Engine) lookupConnection(ctx context.Context, req models.SyncRunRequest) (*models.SyncConnection, error) {
	if req.Platform != "" {
		return e.store.GetSyncConnection(ctx, req.WorkspaceID, req.Platform)
	}
	return e.store.GetActiveSyncConnection(ctx, req.WorkspaceID)
}

// lockedElsewhere reports whether another invocation holds a live session
// lock. Only a running holder keeps the heartbeat fresh; a paused or crashed
// session goes stale and is taken over, resuming from its persisted cursor.
func (e *Engine) lockedElsewhere(conn *models.SyncConnection) bool {
	return conn.SyncStatus == models.SyncStatusSyncing &&
		conn.Progress.HeartbeatFresh(e.now(), e.lockTimeout())
}

// startingProgress picks where this invocation begins: a reset or a finished
// session starts a new cycle, anything mid-cycle resumes at its cursor.
func (e *Engine) startingProgress(ctx context.Context, conn *models.SyncConnection, req models.SyncRunRequest, started time.Time) (models.SyncProgress, error) {
	if req.Reset {
		purged, err := e.store.ResetWorkspaceData(ctx, conn.WorkspaceID)
		if err != nil {
			return models.SyncProgress{}, fmt.Errorf("failed to reset workspace data: %w", err)
		}
		logging.Info().
			Str("workspace_id", conn.WorkspaceID).
			Interface("purged", purged).
			Msg("Workspace data reset; starting over")
		return models.NewSyncProgress(started), nil
	}

	progress := conn.Progress
	if !progress.Phase.Valid() || progress.Phase.Terminal() {
		return models.NewSyncProgress(started), nil
	}

	// Mid-cycle: pick up at the persisted cursor. This covers both a
	// budget-paused session and a crashed holder whose heartbeat went stale.
	progress.Error = ""
	logging.Info().
		Str("workspace_id", conn.WorkspaceID).
		Str("phase", string(progress.Phase)).
		Int("contacts_page", progress.ContactsPage).
		Int("sessions_page", progress.SessionsPage).
		Msg("Resuming sync from persisted cursor")
	return progress, nil
}

// advance drives the phase loop until the session completes, fails, or the
// budget pauses it. Every outcome is folded into the response; the caller
// only sees an error before the session lock is taken.
func (e *Engine) advance(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress) *models.SyncRunResponse {
	budget := newBudget(e.budgetCeiling(), e.clock)
	for {
		metrics.SetSyncPhase(conn.WorkspaceID, string(progress.Phase))
		exhausted, err := e.runPhase(ctx, conn, progress, budget)
		if err != nil {
			return e.finishWithError(ctx, conn, progress, err)
		}
		if !exhausted {
			return e.finishPaused(ctx, conn, progress, budget)
		}

		progress.Phase = progress.Phase.Next()
		if progress.Phase == models.PhaseComplete {
			return e.finishComplete(ctx, conn, progress)
		}
		if err := e.persist(ctx, conn, models.SyncStatusSyncing, progress); err != nil {
			return e.finishWithError(ctx, conn, progress, err)
		}
		if budget.Exceeded() {
			return e.finishPaused(ctx, conn, progress, budget)
		}
	}
}

// runPhase dispatches one phase. The bool reports exhaustion: true means the
// phase has nothing left and the session may advance, false with a nil error
// means the budget stopped it mid-phase.
func (e *Engine) runPhase(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress, budget *Budget) (bool, error) {
	switch progress.Phase {
	case models.PhaseContacts:
		return e.runContactsPhase(ctx, conn, progress, budget)
	case models.PhaseSessions:
		return e.runSessionsPhase(ctx, conn, progress, budget)
	case models.PhaseMetrics:
		return e.runMetricsPhase(ctx, conn, progress, budget)
	case models.PhaseLinking:
		return e.runLinkingPhase(ctx, conn, progress, budget)
	default:
		return false, fmt.Errorf("sync cannot proceed from phase %q", progress.Phase)
	}
}

// finishPaused ends the invocation with work remaining. The partial status
// releases the session lock so the continuation can take over immediately;
// the cursor was already persisted by the phase that ran out of budget.
func (e *Engine) finishPaused(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress, budget *Budget) *models.SyncRunResponse {
	metrics.SyncBudgetExits.WithLabelValues(string(progress.Phase)).Inc()
	if err := e.persistFinal(ctx, conn, models.SyncStatusPartial, progress); err != nil {
		return e.finishWithError(ctx, conn, progress, err)
	}
	logging.Info().
		Str("workspace_id", conn.WorkspaceID).
		Str("phase", string(progress.Phase)).
		Dur("elapsed", budget.Elapsed()).
		Msg("Budget spent; pausing for continuation")
	return &models.SyncRunResponse{
		Status:            models.RunStatusInProgress,
		Phase:             progress.Phase,
		Counters:          progress.SyncCounters,
		NeedsContinuation: true,
	}
}

// finishComplete lands the session in the complete phase. The store stamps
// last_sync_at as part of the complete-status write.
func (e *Engine) finishComplete(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress) *models.SyncRunResponse {
	progress.Error = ""
	if err := e.persistFinal(ctx, conn, models.SyncStatusComplete, progress); err != nil {
		return e.finishWithError(ctx, conn, progress, err)
	}
	metrics.SetSyncPhase(conn.WorkspaceID, string(models.PhaseComplete))
	metrics.SyncLastSuccess.WithLabelValues(conn.WorkspaceID).Set(float64(e.now().Unix()))
	logging.Info().
		Str("workspace_id", conn.WorkspaceID).
		Str("platform", conn.Platform).
		Int("contacts_synced", progress.ContactsSynced).
		Int("sessions_synced", progress.SessionsSynced).
		Int("calls_synced", progress.CallsSynced).
		Int("metrics_synced", progress.MetricsSynced).
		Int("leads_linked", progress.LeadsLinked).
		Msg("Sync complete")
	return &models.SyncRunResponse{
		Status:   models.RunStatusComplete,
		Phase:    models.PhaseComplete,
		Counters: progress.SyncCounters,
	}
}

// finishWithError classifies a phase failure. Transient platform trouble
// pauses the session for a later retry; credential problems and everything
// else land it in the error phase with the message persisted. There is no
// implicit retry in either path.
func (e *Engine) finishWithError(ctx context.Context, conn *models.SyncConnection, progress *models.SyncProgress, cause error) *models.SyncRunResponse {
	metrics.SyncErrors.WithLabelValues(errorType(cause)).Inc()

	if retryLater(cause) {
		if err := e.persistFinal(ctx, conn, models.SyncStatusPartial, progress); err != nil {
			logging.Error().
				Err(err).
				Str("workspace_id", conn.WorkspaceID).
				Msg("Failed to persist paused sync state")
		}
		logging.Warn().
			Err(cause).
			Str("workspace_id", conn.WorkspaceID).
			Str("phase", string(progress.Phase)).
			Msg("Platform trouble; pausing sync for a later retry")
		return &models.SyncRunResponse{
			Status:            models.RunStatusInProgress,
			Phase:             progress.Phase,
			Counters:          progress.SyncCounters,
			NeedsContinuation: true,
			Error:             cause.Error(),
		}
	}

	progress.Phase = models.PhaseError
	progress.Error = cause.Error()
	if err := e.persistFinal(ctx, conn, models.SyncStatusError, progress); err != nil {
		logging.Error().
			Err(err).
			Str("workspace_id", conn.WorkspaceID).
			AnErr("original_error", cause).
			Msg("Failed to persist sync error state")
	}
	metrics.SetSyncPhase(conn.WorkspaceID, string(models.PhaseError))
	logging.Error().
		Err(cause).
		Str("workspace_id", conn.WorkspaceID).
		Str("platform", conn.Platform).
		Msg("Sync failed")
	return &models.SyncRunResponse{
		Status:   models.RunStatusError,
		Phase:    models.PhaseError,
		Counters: progress.SyncCounters,
		Error:    cause.Error(),
	}
}

// persist writes the session state with a fresh heartbeat. Every write is a
// liveness proof, so the lock stays held while work is moving.
func (e *Engine) persist(ctx context.Context, conn *models.SyncConnection, status models.SyncStatus, progress *models.SyncProgress) error {
	progress.Heartbeat = e.now()
	if err := e.store.UpdateSyncState(ctx, conn.WorkspaceID, conn.Platform, status, *progress); err != nil {
		return fmt.Errorf("failed to persist sync progress: %w", err)
	}
	conn.SyncStatus = status
	conn.Progress = *progress
	return nil
}

// persistFinal writes terminal or pause state on a context detached from the
// invocation deadline, so the outcome lands even when the budget context is
// already done.
func (e *Engine) persistFinal(ctx context.Context, conn *models.SyncConnection, status models.SyncStatus, progress *models.SyncProgress) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalPersistTimeout)
	defer cancel()
	return e.persist(ctx, conn, status, progress)
}

// requestContinuation hands the paused session to the continuation queue.
// Failures only degrade the resume to the next scheduler tick.
func (e *Engine) requestContinuation(ctx context.Context, conn *models.SyncConnection) {
	if e.continuer == nil {
		logging.Debug().
			Str("workspace_id", conn.WorkspaceID).
			Msg("No continuation queue; sync resumes on the next scheduler tick")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), continuationTimeout)
	defer cancel()
	if err := e.continuer.EnqueueResume(ctx, conn.WorkspaceID, conn.Platform); err != nil {
		logging.Warn().
			Err(err).
			Str("workspace_id", conn.WorkspaceID).
			Msg("Failed to enqueue continuation; sync resumes on the next scheduler tick")
	}
}

// runDiagnostic handles a diagnostic-only request: probe connectivity,
// mutate nothing, report reachability through the run status.
func (e *Engine) runDiagnostic(ctx context.Context, conn *models.SyncConnection, started time.Time) *models.SyncRunResponse {
	report := e.probeConnection(ctx, conn)
	resp := &models.SyncRunResponse{
		Status:   models.RunStatusComplete,
		Phase:    conn.Progress.Phase,
		Counters: conn.Progress.SyncCounters,
	}
	if !report.Reachable {
		resp.Status = models.RunStatusError
		resp.Error = firstProbeError(report)
	}
	metrics.RecordSyncRun(conn.Platform, string(resp.Status), e.now().Sub(started))
	logging.Info().
		Str("workspace_id", conn.WorkspaceID).
		Str("platform", conn.Platform).
		Bool("reachable", report.Reachable).
		Int("probes", len(report.Probes)).
		Msg("Diagnostic run finished")
	return resp
}

// Diagnose probes the workspace's active connection and returns the full
// per-resource report. No sync state is touched.
func (e *Engine) Diagnose(ctx context.Context, workspaceID string) (*models.DiagnosticReport, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return nil, ErrWorkspaceRequired
	}
	conn, err := e.store.GetActiveSyncConnection(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	return e.probeConnection(ctx, conn), nil
}

func (e *Engine) probeConnection(ctx context.Context, conn *models.SyncConnection) *models.DiagnosticReport {
	report := &models.DiagnosticReport{
		WorkspaceID: conn.WorkspaceID,
		Platform:    conn.Platform,
		Reachable:   true,
	}
	if conn.Platform == models.PlatformPhoneBurner && e.dialer != nil {
		report.Probes = append(report.Probes, probe(ctx, models.PlatformPhoneBurner, e.dialer.Ping))
	}
	if e.tabular != nil {
		report.Probes = append(report.Probes, probe(ctx, models.PlatformAirtable, e.tabular.Ping))
	}
	if len(report.Probes) == 0 {
		report.Reachable = false
		return report
	}
	for _, p := range report.Probes {
		if !p.OK {
			report.Reachable = false
			break
		}
	}
	return report
}

// probe runs one connectivity check. Latency is real wall-clock time, not
// the engine's injectable clock.
func probe(ctx context.Context, resource string, ping func(context.Context) error) models.DiagnosticProbe {
	start := time.Now()
	err := ping(ctx)
	p := models.DiagnosticProbe{
		Resource:  resource,
		OK:        err == nil,
		LatencyMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		p.Error = err.Error()
	}
	return p
}

func firstProbeError(report *models.DiagnosticReport) string {
	for _, p := range report.Probes {
		if !p.OK && p.Error != "" {
			return p.Error
		}
	}
	return "no platform client configured for this connection"
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}

func (e *Engine) budgetCeiling() time.Duration {
	if e.cfg != nil && e.cfg.Budget > 0 {
		return e.cfg.Budget
	}
	return defaultBudget
}

func (e *Engine) lockTimeout() time.Duration {
	if e.cfg != nil && e.cfg.LockTimeout > 0 {
		return e.cfg.LockTimeout
	}
	return defaultLockTimeout
}

// linkerBatch returns the configured linker pass size, zero for the store's
// default.
func (e *Engine) linkerBatch() int {
	if e.cfg != nil && e.cfg.LinkerBatchSize > 0 {
		return e.cfg.LinkerBatchSize
	}
	return 0
}

func (e *Engine) talkThreshold() time.Duration {
	if e.cfg != nil && e.cfg.DispositionTalkThreshold > 0 {
		return e.cfg.DispositionTalkThreshold
	}
	return defaultTalkThreshold
}
