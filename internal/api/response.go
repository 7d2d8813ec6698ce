// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/models"
)

// Error codes surfaced in the response envelope.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeAuthentication = "AUTHENTICATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeAlreadySyncing = "ALREADY_SYNCING"
	ErrCodeDatabase       = "DATABASE_ERROR"
	ErrCodePlatform       = "PLATFORM_ERROR"
	ErrCodeRateLimited    = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// ResponseWriter writes the standardized models.APIResponse envelope. One
// is created per request so QueryTimeMS reflects actual handler time.
type ResponseWriter struct {
	w         http.ResponseWriter
	startTime time.Time
}

// NewResponseWriter creates a response writer for one request.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{w: w, startTime: time.Now()}
}

// Success writes a 200 envelope with the given payload.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.SuccessStatus(http.StatusOK, data)
}

// Created writes a 201 envelope.
func (rw *ResponseWriter) Created(data interface{}) {
	rw.SuccessStatus(http.StatusCreated, data)
}

// SuccessStatus writes a success envelope with an explicit status code.
func (rw *ResponseWriter) SuccessStatus(status int, data interface{}) {
	rw.writeJSON(status, models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(rw.startTime).Milliseconds(),
		},
	})
}

// Cached writes a success envelope flagged as served from the analytics
// cache. QueryTimeMS stays zero: no query ran.
func (rw *ResponseWriter) Cached(data interface{}) {
	rw.writeJSON(http.StatusOK, models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			Cached:    true,
		},
	})
}

// Error writes an error envelope.
func (rw *ResponseWriter) Error(status int, code, message string) {
	rw.ErrorWithDetails(status, code, message, nil)
}

// ErrorWithDetails writes an error envelope with structured details, used
// mainly for per-field validation failures.
func (rw *ResponseWriter) ErrorWithDetails(status int, code, message string, details map[string]interface{}) {
	rw.writeJSON(status, models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func (rw *ResponseWriter) writeJSON(status int, payload models.APIResponse) {
	rw.w.Header().Set("Content-Type", "application/json")
	rw.w.WriteHeader(status)
	if err := json.NewEncoder(rw.w).Encode(payload); err != nil {
		logging.Error().Err(err).Str("component", "api").Msg("Failed to encode response")
	}
}
