// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/outboundlabs/prospectus/internal/database"
	"github.com/outboundlabs/prospectus/internal/models"
	syncengine "github.com/outboundlabs/prospectus/internal/sync"
)

// ResetRequest addresses the workspace (and optionally platform) whose
// synced data should be purged.
type ResetRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required,min=1,max=128"`
	Platform    string `json:"platform,omitempty" validate:"omitempty,oneof=phoneburner airtable"`
}

// ResetResponse reports the purged row counts per table.
type ResetResponse struct {
	WorkspaceID string           `json:"workspace_id"`
	Purged      map[string]int64 `json:"purged"`
}

// SyncRun handles POST /api/v1/sync/run.
//
// @Summary Run one sync step
// @Description Starts or resumes a sync for a workspace. Returns immediately after one budgeted step; poll sync status for progress.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body models.SyncRunRequest true "Run request"
// @Success 200 {object} models.APIResponse{data=models.SyncRunResponse}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Security BearerAuth
// @Router /api/v1/sync/run [post]
func (h *Handler) SyncRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)

	var req models.SyncRunRequest
	if !h.decodeJSON(rw, r, &req) {
		return
	}

	if req.Diagnostic {
		report, err := h.engine.Diagnose(r.Context(), req.WorkspaceID)
		if err != nil {
			h.writeSyncError(rw, err)
			return
		}
		rw.Success(report)
		return
	}

	resp, err := h.engine.RunStep(r.Context(), req)
	if err != nil {
		h.writeSyncError(rw, err)
		return
	}

	if resp.Status == models.RunStatusAlreadySyncing {
		rw.ErrorWithDetails(http.StatusConflict, ErrCodeAlreadySyncing,
			"a sync session holds a fresh lock for this workspace",
			map[string]interface{}{"phase": resp.Phase})
		return
	}
	rw.Success(resp)
}

// SyncStatus handles GET /api/v1/sync/status.
//
// @Summary Get sync status
// @Description Returns the connection's sync status and persisted progress. With no platform parameter the workspace's active connection is used.
// @Tags sync
// @Produce json
// @Param workspace_id query string true "Workspace id"
// @Param platform query string false "Platform (phoneburner, airtable)"
// @Success 200 {object} models.APIResponse{data=models.SyncConnection}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /api/v1/sync/status [get]
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)

	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "workspace_id is required")
		return
	}

	var (
		conn *models.SyncConnection
		err  error
	)
	if platformName := r.URL.Query().Get("platform"); platformName != "" {
		conn, err = h.store.GetSyncConnection(r.Context(), workspaceID, platformName)
	} else {
		conn, err = h.store.GetActiveSyncConnection(r.Context(), workspaceID)
	}
	if err != nil {
		if errors.Is(err, database.ErrConnectionNotFound) {
			rw.Error(http.StatusNotFound, ErrCodeNotFound, "no sync connection for this workspace")
			return
		}
		rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to load sync connection")
		return
	}
	rw.Success(conn)
}

// SyncReset handles POST /api/v1/sync/reset.
//
// @Summary Reset workspace data
// @Description Purges all synced rows for the workspace (leads included) and reinitializes sync progress. Rejected while a sync session holds a fresh lock.
// @Tags sync
// @Accept json
// @Produce json
// @Param request body ResetRequest true "Reset request"
// @Success 200 {object} models.APIResponse{data=ResetResponse}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Security BearerAuth
// @Router /api/v1/sync/reset [post]
func (h *Handler) SyncReset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)

	var req ResetRequest
	if !h.decodeJSON(rw, r, &req) {
		return
	}

	conns := h.resetTargets(rw, r, req)
	if conns == nil {
		return
	}

	purged, err := h.store.ResetWorkspaceData(r.Context(), req.WorkspaceID)
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to purge workspace data")
		return
	}

	for _, conn := range conns {
		if err := h.store.UpdateSyncState(r.Context(), conn.WorkspaceID, conn.Platform,
			models.SyncStatusIdle, models.SyncProgress{}); err != nil {
			rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to reset sync progress")
			return
		}
	}

	rw.Success(ResetResponse{WorkspaceID: req.WorkspaceID, Purged: purged})
}

// resetTargets resolves which connections the reset applies to and rejects
// the request while any of them holds a fresh session lock. Returns nil
// after writing an error response.
func (h *Handler) resetTargets(rw *ResponseWriter, r *http.Request, req ResetRequest) []models.SyncConnection {
	var conns []models.SyncConnection
	if req.Platform != "" {
		conn, err := h.store.GetSyncConnection(r.Context(), req.WorkspaceID, req.Platform)
		if err != nil {
			if errors.Is(err, database.ErrConnectionNotFound) {
				rw.Error(http.StatusNotFound, ErrCodeNotFound, "no sync connection for this workspace")
				return nil
			}
			rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to load sync connection")
			return nil
		}
		conns = []models.SyncConnection{*conn}
	} else {
		var err error
		conns, err = h.store.ListSyncConnections(r.Context(), req.WorkspaceID)
		if err != nil {
			rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to list sync connections")
			return nil
		}
		if len(conns) == 0 {
			rw.Error(http.StatusNotFound, ErrCodeNotFound, "no sync connections for this workspace")
			return nil
		}
	}

	for i := range conns {
		if conns[i].SyncStatus == models.SyncStatusSyncing &&
			conns[i].Progress.HeartbeatFresh(time.Now(), h.lockTimeout()) {
			rw.Error(http.StatusConflict, ErrCodeAlreadySyncing,
				"cannot reset while a sync session is running")
			return nil
		}
	}
	return conns
}

// lockTimeout mirrors the engine's session lock staleness threshold.
func (h *Handler) lockTimeout() time.Duration {
	if h.syncCfg != nil && h.syncCfg.LockTimeout > 0 {
		return h.syncCfg.LockTimeout
	}
	return 30 * time.Second
}

// writeSyncError maps engine errors onto the response envelope.
func (h *Handler) writeSyncError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, syncengine.ErrWorkspaceRequired):
		rw.Error(http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, database.ErrConnectionNotFound):
		rw.Error(http.StatusNotFound, ErrCodeNotFound, "no sync connection for this workspace")
	case errors.Is(err, syncengine.ErrConnectionDisabled):
		rw.Error(http.StatusConflict, ErrCodeValidation, "connection is disabled")
	default:
		rw.Error(http.StatusInternalServerError, ErrCodeInternal, "sync invocation failed")
	}
}
