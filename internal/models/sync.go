// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the connection-level status visible to the dashboard.
type SyncStatus string

// SyncStatus values.
const (
	SyncStatusIdle     SyncStatus = "idle"
	SyncStatusSyncing  SyncStatus = "syncing"
	SyncStatusComplete SyncStatus = "complete"
	SyncStatusError    SyncStatus = "error"
	SyncStatusPartial  SyncStatus = "partial"
)

// Phase is one ordered stage of a sync session. Phases run strictly in
// order; a resumed invocation re-enters the persisted phase at its cursor
// and never restarts an earlier phase that already reported exhaustion.
type Phase string

// Phases in execution order, plus the two terminal states.
const (
	PhaseContacts Phase = "contacts"
	PhaseSessions Phase = "sessions"
	PhaseMetrics  Phase = "metrics"
	PhaseLinking  Phase = "linking"
	PhaseComplete Phase = "complete"
	PhaseError    Phase = "error"
)

// Next returns the phase that follows p in the fixed order. Terminal phases
// return themselves.
func (p Phase) Next() Phase {
	switch p {
	case PhaseContacts:
		return PhaseSessions
	case PhaseSessions:
		return PhaseMetrics
	case PhaseMetrics:
		return PhaseLinking
	case PhaseLinking:
		return PhaseComplete
	default:
		return p
	}
}

// Terminal reports whether p ends the session.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseError
}

// Valid reports whether p is a known phase value. Unknown values can appear
// when progress rows written by a newer build are read back by an older one.
func (p Phase) Valid() bool {
	switch p {
	case PhaseContacts, PhaseSessions, PhaseMetrics, PhaseLinking, PhaseComplete, PhaseError:
		return true
	}
	return false
}

// SyncCursor holds the per-phase resumption pointers. Pages are 1-based;
// a page of 0 means "not started" and is normalized to 1 on first use.
// MetricsOffset is the tabular source's opaque continuation token.
type SyncCursor struct {
	ContactsPage  int    `json:"contacts_page"`
	SessionsPage  int    `json:"sessions_page"`
	SessionOffset int    `json:"session_offset"`
	MetricsOffset string `json:"metrics_offset,omitempty"`
}

// SyncCounters are the running totals the dashboard's progress bar is
// driven by.
type SyncCounters struct {
	ContactsSynced int `json:"contacts_synced"`
	SessionsSynced int `json:"sessions_synced"`
	CallsSynced    int `json:"calls_synced"`
	MetricsSynced  int `json:"metrics_synced"`
	LeadsLinked    int `json:"leads_linked"`
}

// SyncProgress is the persisted state of one sync session. It is stored as
// a JSON column on the connection row and parsed into this struct at the
// storage boundary only; everything downstream works with the typed value.
//
// Invariant: progress is persisted before any time-budget early exit, so a
// crash between "budget exceeded" and "response sent" loses at most the
// current unflushed page.
//
// The embedded cursor and counter structs flatten into the JSON object, so
// the wire shape stays {phase, contacts_page, ..., contacts_synced, ...,
// heartbeat, error?}.
type SyncProgress struct {
	Phase Phase `json:"phase"`
	SyncCursor
	SyncCounters
	Heartbeat time.Time `json:"heartbeat"`
	Error     string    `json:"error,omitempty"`
}

// NewSyncProgress returns progress positioned at the start of the first
// phase with a fresh heartbeat.
func NewSyncProgress(now time.Time) SyncProgress {
	return SyncProgress{
		Phase: PhaseContacts,
		SyncCursor: SyncCursor{
			ContactsPage: 1,
			SessionsPage: 1,
		},
		Heartbeat: now,
	}
}

// HeartbeatFresh reports whether another invocation holds a live session
// lock: the heartbeat was refreshed less than timeout ago. A stale
// heartbeat is an implicit lock release.
func (p *SyncProgress) HeartbeatFresh(now time.Time, timeout time.Duration) bool {
	if p.Heartbeat.IsZero() {
		return false
	}
	return now.Sub(p.Heartbeat) < timeout
}

// SyncConnection is the per-(workspace, platform) connection record: the
// credential, the activation flag, and the persisted sync state. It is
// mutated only by the sync engine and by user-initiated reset/disconnect.
type SyncConnection struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Platform    string    `json:"platform"`

	// APIKey never leaves the process in API responses.
	APIKey string `json:"-"`

	IsActive   bool         `json:"is_active"`
	SyncStatus SyncStatus   `json:"sync_status"`
	Progress   SyncProgress `json:"sync_progress"`
	LastSyncAt *time.Time   `json:"last_sync_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SyncSession is the in-flight value the engine threads through one
// invocation: the connection identity plus its mutable progress. The engine
// owns persistence; nothing else writes these fields while a session lock
// is fresh.
type SyncSession struct {
	WorkspaceID string
	Platform    string
	Status      SyncStatus
	Progress    SyncProgress
}

// Supported platform identifiers.
const (
	PlatformPhoneBurner = "phoneburner"
	PlatformAirtable    = "airtable"
)

// RunStatus is the top-level outcome of one sync invocation.
type RunStatus string

// RunStatus values, mirrored verbatim in the job response JSON.
const (
	RunStatusAlreadySyncing RunStatus = "already_syncing"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusComplete       RunStatus = "complete"
	RunStatusError          RunStatus = "error"
)

// SyncRunRequest is the job invocation contract. Platform is optional; when
// empty the workspace's single active connection is used. Reset purges all
// synced rows (leads included) before starting over. Diagnostic runs
// connectivity probes without mutating any state.
type SyncRunRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required,min=1,max=128"`
	Platform    string `json:"platform,omitempty" validate:"omitempty,oneof=phoneburner airtable"`
	Reset       bool   `json:"reset,omitempty"`
	Diagnostic  bool   `json:"diagnostic,omitempty"`
}

// SyncRunResponse is returned to the caller immediately; progress beyond it
// is observed by polling the connection's sync status, never by awaiting
// the continuation.
type SyncRunResponse struct {
	Status            RunStatus    `json:"status"`
	Phase             Phase        `json:"phase"`
	Counters          SyncCounters `json:"counters"`
	NeedsContinuation bool         `json:"needsContinuation"`
	Error             string       `json:"error,omitempty"`
}

// ResumeMessage is the durable continuation payload. The persisted progress
// row carries the cursor, so the message carries identity only; replaying a
// duplicate is harmless because the engine re-checks the session lock and
// phase before doing any work.
type ResumeMessage struct {
	WorkspaceID string `json:"workspace_id"`
	Platform    string `json:"platform"`
}
