// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	gocache "github.com/patrickmn/go-cache"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/database"
	"github.com/outboundlabs/prospectus/internal/models"
	syncengine "github.com/outboundlabs/prospectus/internal/sync"
)

// Store is the slice of the database the handlers consume. *database.DB
// satisfies it; tests use in-memory fakes.
type Store interface {
	Ping(ctx context.Context) error
	CreateSyncConnection(ctx context.Context, conn *models.SyncConnection) error
	GetSyncConnection(ctx context.Context, workspaceID, platform string) (*models.SyncConnection, error)
	GetActiveSyncConnection(ctx context.Context, workspaceID string) (*models.SyncConnection, error)
	ListSyncConnections(ctx context.Context, workspaceID string) ([]models.SyncConnection, error)
	SetConnectionActive(ctx context.Context, workspaceID, platform string, active bool) error
	DeleteSyncConnection(ctx context.Context, workspaceID, platform string) error
	UpdateSyncState(ctx context.Context, workspaceID, platform string, status models.SyncStatus, progress models.SyncProgress) error
	ResetWorkspaceData(ctx context.Context, workspaceID string) (map[string]int64, error)
	ListLeads(ctx context.Context, workspaceID string, limit, offset int) ([]models.Lead, error)
	CountLeads(ctx context.Context, workspaceID string) (int64, error)
	GetAnalyticsSummary(ctx context.Context, workspaceID string, since time.Time) (*models.AnalyticsSummary, error)
	GetCallsByDay(ctx context.Context, workspaceID string, since time.Time) ([]models.CallsByDay, error)
	GetDispositionBreakdown(ctx context.Context, workspaceID string, since time.Time) ([]models.DispositionCount, error)
	GetTopContacts(ctx context.Context, workspaceID string, since time.Time, limit int) ([]models.TopContact, error)
}

// SyncRunner is the slice of the sync engine the handlers invoke.
type SyncRunner interface {
	RunStep(ctx context.Context, req models.SyncRunRequest) (*models.SyncRunResponse, error)
	Diagnose(ctx context.Context, workspaceID string) (*models.DiagnosticReport, error)
}

// QueuePinger reports continuation queue connectivity for readiness.
type QueuePinger interface {
	Ping(ctx context.Context) error
}

var _ Store = (*database.DB)(nil)
var _ SyncRunner = (*syncengine.Engine)(nil)

// Handler holds the dependencies shared by all endpoint handlers.
type Handler struct {
	store     Store
	engine    SyncRunner
	queue     QueuePinger // nil when the queue is disabled
	validate  *validator.Validate
	cache     *gocache.Cache
	apiCfg    *config.APIConfig
	syncCfg   *config.SyncConfig
	version   string
	startTime time.Time
}

// NewHandler creates the handler set. queue may be nil when the
// continuation queue is disabled.
func NewHandler(store Store, engine SyncRunner, queue QueuePinger, apiCfg *config.APIConfig, syncCfg *config.SyncConfig, version string) *Handler {
	return &Handler{
		store:     store,
		engine:    engine,
		queue:     queue,
		validate:  validator.New(),
		cache:     gocache.New(apiCfg.AnalyticsCacheTTL, 2*apiCfg.AnalyticsCacheTTL),
		apiCfg:    apiCfg,
		syncCfg:   syncCfg,
		version:   version,
		startTime: time.Now(),
	}
}

// decodeJSON decodes a request body into dst and runs struct validation.
// On failure it writes the error envelope and returns false.
func (h *Handler) decodeJSON(rw *ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "invalid JSON body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidation, "request validation failed",
			validationDetails(err))
		return false
	}
	return true
}

// validationDetails flattens validator errors into a field -> constraint
// map for the error envelope.
func validationDetails(err error) map[string]interface{} {
	details := make(map[string]interface{})
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return details
}

// pagination reads limit/offset query parameters, clamped to the
// configured page sizes.
func (h *Handler) pagination(r *http.Request) (limit, offset int) {
	limit = h.apiCfg.DefaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > h.apiCfg.MaxPageSize {
		limit = h.apiCfg.MaxPageSize
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// sinceParam reads the days query parameter (default 30, max 365) and
// returns the corresponding cutoff time.
func sinceParam(r *http.Request) (time.Time, int) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 365 {
			days = n
		}
	}
	return time.Now().UTC().AddDate(0, 0, -days), days
}
