// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"net/http"

	"github.com/outboundlabs/prospectus/internal/models"
)

// LeadsPage is the paginated lead listing payload.
type LeadsPage struct {
	Leads  []models.Lead `json:"leads"`
	Total  int64         `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// LeadsList handles GET /api/v1/leads.
//
// @Summary List linked leads
// @Description Lists the workspace's leads created and linked by the entity linker, newest first.
// @Tags leads
// @Produce json
// @Param workspace_id query string true "Workspace id"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.APIResponse{data=LeadsPage}
// @Failure 400 {object} models.APIResponse
// @Security BearerAuth
// @Router /api/v1/leads [get]
func (h *Handler) LeadsList(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)
	workspaceID, ok := requireWorkspace(rw, r)
	if !ok {
		return
	}
	limit, offset := h.pagination(r)

	leads, err := h.store.ListLeads(r.Context(), workspaceID, limit, offset)
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to list leads")
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}

	total, err := h.store.CountLeads(r.Context(), workspaceID)
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "failed to count leads")
		return
	}

	rw.Success(LeadsPage{Leads: leads, Total: total, Limit: limit, Offset: offset})
}
