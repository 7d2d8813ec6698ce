// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package models

import (
	"time"
)

// APIResponse is the standardized wrapper returned by every HTTP endpoint.
//
// Status is "success" or "error"; Data carries the payload on success and
// Error the structured failure on error. Metadata is always present so
// clients can observe query timing and cache hits.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data,omitempty"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response observability fields: server timestamp, query
// execution time in milliseconds (0 when served from cache), and whether
// the response came from the analytics cache.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError is the structured error payload.
//
// Codes used across the API: VALIDATION_ERROR, AUTHENTICATION_ERROR,
// NOT_FOUND, ALREADY_SYNCING, DATABASE_ERROR, PLATFORM_ERROR,
// RATE_LIMIT_EXCEEDED, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the liveness/readiness response.
type HealthStatus struct {
	Status            string     `json:"status"`
	Version           string     `json:"version"`
	DatabaseConnected bool       `json:"database_connected"`
	QueueConnected    bool       `json:"queue_connected"`
	LastSyncTime      *time.Time `json:"last_sync_time,omitempty"`
	UptimeSeconds     float64    `json:"uptime_seconds"`
}

// AnalyticsSummary is the dashboard's KPI header: totals plus derived
// rates. Rates are percentages in [0,100]; AvgTalkSeconds is per connected
// call. TotalDials and TotalEmailsSent come from the platform-reported
// daily aggregates; everything call-shaped comes from the synced call rows.
type AnalyticsSummary struct {
	WorkspaceID        string     `json:"workspace_id"`
	TotalContacts      int        `json:"total_contacts"`
	TotalLeads         int        `json:"total_leads"`
	TotalSessions      int        `json:"total_sessions"`
	TotalCalls         int        `json:"total_calls"`
	TotalConnects      int        `json:"total_connects"`
	TotalConversations int        `json:"total_conversations"`
	TotalDials         int        `json:"total_dials"`
	TotalEmailsSent    int        `json:"total_emails_sent"`
	ConnectRate        float64    `json:"connect_rate"`
	ConversationRate   float64    `json:"conversation_rate"`
	AvgTalkSeconds     float64    `json:"avg_talk_seconds"`
	LastSyncAt         *time.Time `json:"last_sync_at,omitempty"`
}

// CallsByDay is one point of the calls-over-time series.
type CallsByDay struct {
	Date        string `json:"date"` // YYYY-MM-DD
	Calls       int    `json:"calls"`
	Connects    int    `json:"connects"`
	TalkSeconds int    `json:"talk_seconds"`
}

// DispositionCount is one slice of the disposition breakdown chart.
type DispositionCount struct {
	Disposition Disposition `json:"disposition"`
	Count       int         `json:"count"`
}

// TopContact ranks contacts by call volume for the dashboard table.
type TopContact struct {
	ExternalID  string  `json:"external_id"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Email       *string `json:"email,omitempty"`
	Company     *string `json:"company,omitempty"`
	CallCount   int     `json:"call_count"`
	TalkSeconds int     `json:"talk_seconds"`
}

// DiagnosticReport is returned by a diagnostic run: one probe per resource
// endpoint, no state mutated.
type DiagnosticReport struct {
	WorkspaceID string            `json:"workspace_id"`
	Platform    string            `json:"platform"`
	Reachable   bool              `json:"reachable"`
	Probes      []DiagnosticProbe `json:"probes"`
}

// DiagnosticProbe is a single connectivity check result.
type DiagnosticProbe struct {
	Resource  string `json:"resource"`
	OK        bool   `json:"ok"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}
