// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/outboundlabs/prospectus/internal/database"
	"github.com/outboundlabs/prospectus/internal/models"
)

// CreateConnectionRequest is the payload for connecting a platform to a
// workspace. The API key is write-only: it is stored encrypted and never
// appears in any response.
type CreateConnectionRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required,min=1,max=128"`
	Platform    string `json:"platform" validate:"required,oneof=phoneburner airtable"`
	APIKey      string `json:"api_key" validate:"required,min=8"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

// SetConnectionActiveRequest toggles scheduler/engine pickup for a
// connection.
type SetConnectionActiveRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required,min=1,max=128"`
	Platform    string `json:"platform" validate:"required,oneof=phoneburner airtable"`
	IsActive    bool   `json:"is_active"`
}

// ConnectionsList handles GET /api/v1/connections.
//
// @Summary List sync connections
// @Description Lists connections, optionally filtered by workspace. API keys are never returned.
// @Tags connections
// @Produce json
// @Param workspace_id query string false "Workspace id filter"
// @Success 200 {object} models.APIResponse{data=[]models.SyncConnection}
// @Security BearerAuth
// @Router /api/v1/connections [get]
func (h *Handler) ConnectionsList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)

	conns, err := h.store.ListSyncConnections(r.Context(), r.URL.Query().Get("workspace_id"))
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to list connections")
		return
	}
	if conns == nil {
		conns = []models.SyncConnection{}
	}
	rw.Success(conns)
}

// ConnectionsCreate handles POST /api/v1/connections.
//
// @Summary Create a sync connection
// @Description Connects a platform to a workspace. One connection per (workspace, platform).
// @Tags connections
// @Accept json
// @Produce json
// @Param request body CreateConnectionRequest true "Connection"
// @Success 201 {object} models.APIResponse{data=models.SyncConnection}
// @Failure 400 {object} models.APIResponse
// @Failure 409 {object} models.APIResponse
// @Security BearerAuth
// @Router /api/v1/connections [post]
func (h *Handler) ConnectionsCreate(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)

	var req CreateConnectionRequest
	if !h.decodeJSON(rw, r, &req) {
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	conn := &models.SyncConnection{
		ID:          uuid.New(),
		WorkspaceID: req.WorkspaceID,
		Platform:    req.Platform,
		APIKey:      req.APIKey,
		IsActive:    active,
		SyncStatus:  models.SyncStatusIdle,
	}

	if err := h.store.CreateSyncConnection(r.Context(), conn); err != nil {
		if errors.Is(err, database.ErrConnectionExists) {
			rw.Error(http.StatusConflict, ErrCodeValidation,
				"a connection already exists for this workspace and platform")
			return
		}
		rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to create connection")
		return
	}
	rw.Created(conn)
}

// ConnectionsSetActive handles PUT /api/v1/connections/active.
//
// @Summary Enable or disable a connection
// @Tags connections
// @Accept json
// @Produce json
// @Param request body SetConnectionActiveRequest true "Toggle"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /api/v1/connections/active [put]
func (h *Handler) ConnectionsSetActive(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)

	var req SetConnectionActiveRequest
	if !h.decodeJSON(rw, r, &req) {
		return
	}

	if err := h.store.SetConnectionActive(r.Context(), req.WorkspaceID, req.Platform, req.IsActive); err != nil {
		if errors.Is(err, database.ErrConnectionNotFound) {
			rw.Error(http.StatusNotFound, ErrCodeNotFound, "no such connection")
			return
		}
		rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to update connection")
		return
	}
	rw.Success(map[string]interface{}{
		"workspace_id": req.WorkspaceID,
		"platform":     req.Platform,
		"is_active":    req.IsActive,
	})
}

// ConnectionsDelete handles DELETE /api/v1/connections.
//
// @Summary Delete a sync connection
// @Description Removes the connection row. Synced data stays; use the reset endpoint to purge it.
// @Tags connections
// @Produce json
// @Param workspace_id query string true "Workspace id"
// @Param platform query string true "Platform"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Security BearerAuth
// @Router /api/v1/connections [delete]
func (h *Handler) ConnectionsDelete(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)

	workspaceID := r.URL.Query().Get("workspace_id")
	platformName := r.URL.Query().Get("platform")
	if workspaceID == "" || platformName == "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "workspace_id and platform are required")
		return
	}

	if err := h.store.DeleteSyncConnection(r.Context(), workspaceID, platformName); err != nil {
		if errors.Is(err, database.ErrConnectionNotFound) {
			rw.Error(http.StatusNotFound, ErrCodeNotFound, "no such connection")
			return
		}
		rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to delete connection")
		return
	}
	rw.Success(map[string]interface{}{
		"workspace_id": workspaceID,
		"platform":     platformName,
		"deleted":      true,
	})
}
