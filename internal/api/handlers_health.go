// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"net/http"
	"time"

	"github.com/outboundlabs/prospectus/internal/models"
)

// Health handles GET /health: liveness. It answers as long as the process
// serves HTTP; dependency state belongs to readiness.
//
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w).Success(models.HealthStatus{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	})
}

// Ready handles GET /ready: readiness. It pings DuckDB and, when the
// queue is enabled, the NATS connection. Any failed dependency yields 503
// with per-dependency detail.
//
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus}
// @Failure 503 {object} models.APIResponse{data=models.HealthStatus}
// @Router /ready [get]
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)

	status := models.HealthStatus{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	status.DatabaseConnected = h.store.Ping(r.Context()) == nil
	if h.queue != nil {
		status.QueueConnected = h.queue.Ping(r.Context()) == nil
	}

	ready := status.DatabaseConnected && (h.queue == nil || status.QueueConnected)
	if !ready {
		status.Status = "degraded"
		rw.SuccessStatus(http.StatusServiceUnavailable, status)
		return
	}
	rw.Success(status)
}
