// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"fmt"
	"net/http"
	"strconv"

	gocache "github.com/patrickmn/go-cache"

	"github.com/outboundlabs/prospectus/internal/metrics"
)

// cachedAnalytics serves an analytics payload through the short-TTL
// response cache. A dashboard refresh fans out to every chart at once;
// the cache collapses that burst into one DuckDB query per endpoint.
func (h *Handler) cachedAnalytics(rw *ResponseWriter, cacheKey string, query func() (interface{}, error)) {
	if data, found := h.cache.Get(cacheKey); found {
		metrics.CacheHits.WithLabelValues("analytics").Inc()
		rw.Cached(data)
		return
	}
	metrics.CacheMisses.WithLabelValues("analytics").Inc()

	data, err := query()
	if err != nil {
		rw.Error(http.StatusInternalServerError, ErrCodeDatabase, "analytics query failed")
		return
	}
	h.cache.Set(cacheKey, data, gocache.DefaultExpiration)
	rw.Success(data)
}

// requireWorkspace reads the workspace_id parameter, writing the error
// envelope when absent.
func requireWorkspace(rw *ResponseWriter, r *http.Request) (string, bool) {
	workspaceID := r.URL.Query().Get("workspace_id")
	if workspaceID == "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidation, "workspace_id is required")
		return "", false
	}
	return workspaceID, true
}

// AnalyticsSummary handles GET /api/v1/analytics/summary.
//
// @Summary Dashboard KPI summary
// @Description Totals and derived rates for the workspace over the requested window.
// @Tags analytics
// @Produce json
// @Param workspace_id query string true "Workspace id"
// @Param days query int false "Window in days (default 30, max 365)"
// @Success 200 {object} models.APIResponse{data=models.AnalyticsSummary}
// @Security BearerAuth
// @Router /api/v1/analytics/summary [get]
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)
	workspaceID, ok := requireWorkspace(rw, r)
	if !ok {
		return
	}
	since, days := sinceParam(r)

	h.cachedAnalytics(rw, analyticsCacheKey("summary", workspaceID, days, 0), func() (interface{}, error) {
		return h.store.GetAnalyticsSummary(r.Context(), workspaceID, since)
	})
}

// AnalyticsCallsByDay handles GET /api/v1/analytics/calls-by-day.
//
// @Summary Calls-over-time series
// @Tags analytics
// @Produce json
// @Param workspace_id query string true "Workspace id"
// @Param days query int false "Window in days (default 30, max 365)"
// @Success 200 {object} models.APIResponse{data=[]models.CallsByDay}
// @Security BearerAuth
// @Router /api/v1/analytics/calls-by-day [get]
func (h *Handler) AnalyticsCallsByDay(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)
	workspaceID, ok := requireWorkspace(rw, r)
	if !ok {
		return
	}
	since, days := sinceParam(r)

	h.cachedAnalytics(rw, analyticsCacheKey("calls-by-day", workspaceID, days, 0), func() (interface{}, error) {
		return h.store.GetCallsByDay(r.Context(), workspaceID, since)
	})
}

// AnalyticsDispositions handles GET /api/v1/analytics/dispositions.
//
// @Summary Disposition breakdown
// @Tags analytics
// @Produce json
// @Param workspace_id query string true "Workspace id"
// @Param days query int false "Window in days (default 30, max 365)"
// @Success 200 {object} models.APIResponse{data=[]models.DispositionCount}
// @Security BearerAuth
// @Router /api/v1/analytics/dispositions [get]
func (h *Handler) AnalyticsDispositions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)
	workspaceID, ok := requireWorkspace(rw, r)
	if !ok {
		return
	}
	since, days := sinceParam(r)

	h.cachedAnalytics(rw, analyticsCacheKey("dispositions", workspaceID, days, 0), func() (interface{}, error) {
		return h.store.GetDispositionBreakdown(r.Context(), workspaceID, since)
	})
}

// AnalyticsTopContacts handles GET /api/v1/analytics/top-contacts.
//
// @Summary Contacts ranked by call volume
// @Tags analytics
// @Produce json
// @Param workspace_id query string true "Workspace id"
// @Param days query int false "Window in days (default 30, max 365)"
// @Param limit query int false "Row limit (default 10, max 100)"
// @Success 200 {object} models.APIResponse{data=[]models.TopContact}
// @Security BearerAuth
// @Router /api/v1/analytics/top-contacts [get]
func (h *Handler) AnalyticsTopContacts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)
	workspaceID, ok := requireWorkspace(rw, r)
	if !ok {
		return
	}
	since, days := sinceParam(r)

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	h.cachedAnalytics(rw, analyticsCacheKey("top-contacts", workspaceID, days, limit), func() (interface{}, error) {
		return h.store.GetTopContacts(r.Context(), workspaceID, since, limit)
	})
}

func analyticsCacheKey(endpoint, workspaceID string, days, limit int) string {
	return fmt.Sprintf("%s:%s:%d:%d", endpoint, workspaceID, days, limit)
}
