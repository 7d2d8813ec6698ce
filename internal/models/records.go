// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package models

import (
	"time"

	"github.com/google/uuid"
)

// ExternalContact represents a contact record pulled from an external
// calling/CRM platform.
//
// Every synced row carries both an internal UUID and the platform's own
// identifier. The pair (WorkspaceID, ExternalID) is unique per table,
// enforced by the upsert conflict key in the database layer rather than
// by application-side deduplication.
//
// Score is a pointer on purpose: the platforms distinguish "scored 0"
// from "never scored", and that distinction must survive normalization.
type ExternalContact struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	ExternalID  string    `json:"external_id"`
	Platform    string    `json:"platform"`

	// Identity
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Company   *string `json:"company,omitempty"`
	JobTitle  *string `json:"job_title,omitempty"`

	// Engagement
	Score           *float64   `json:"score,omitempty"`
	Tags            *string    `json:"tags,omitempty"` // comma-separated
	LastContactedAt *time.Time `json:"last_contacted_at,omitempty"`

	// Set by the entity linker, never by ingestion
	LeadID *uuid.UUID `json:"lead_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DialSession represents one power-dialing session on the dialer platform.
// Calls reference their parent session by the platform's session identifier,
// not the internal UUID, because calls and sessions can arrive in either
// order across invocations.
type DialSession struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	ExternalID  string    `json:"external_id"`
	Platform    string    `json:"platform"`

	MemberID  *string    `json:"member_id,omitempty"` // dialer seat/user that ran the session
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	TotalCalls       int `json:"total_calls"`
	TotalConnects    int `json:"total_connects"`
	TotalTalkSeconds int `json:"total_talk_seconds"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Call represents a single dial attempt, usually fetched as a sub-collection
// of its DialSession.
type Call struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	ExternalID  string    `json:"external_id"`
	Platform    string    `json:"platform"`

	SessionExternalID *string `json:"session_external_id,omitempty"`
	ContactExternalID *string `json:"contact_external_id,omitempty"`

	PhoneNumber     *string   `json:"phone_number,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds int       `json:"duration_seconds"`
	TalkSeconds     int       `json:"talk_seconds"`
	Connected       bool      `json:"connected"`

	// RawCategory is the platform's verbatim result string; Disposition is
	// the classified bucket (see sync.ClassifyDisposition).
	RawCategory  *string     `json:"raw_category,omitempty"`
	Disposition  Disposition `json:"disposition"`
	RecordingURL *string     `json:"recording_url,omitempty"`
	Notes        *string     `json:"notes,omitempty"`

	// Set by the entity linker, never by ingestion
	LeadID *uuid.UUID `json:"lead_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DailyMetric is a per-day aggregate row for a workspace, sourced either
// from the dialer platform's member stats or from an externally maintained
// tabular sheet. ExternalID encodes the source row identity (for tabular
// sources the record id, for the dialer "<member>:<date>").
type DailyMetric struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	ExternalID  string    `json:"external_id"`
	Platform    string    `json:"platform"`

	Date          time.Time `json:"date"`
	Dials         int       `json:"dials"`
	Connects      int       `json:"connects"`
	Conversations int       `json:"conversations"`
	EmailsSent    int       `json:"emails_sent"`
	TalkSeconds   int       `json:"talk_seconds"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lead is the workspace's canonical contact entity, independent of any
// source platform. Leads are created lazily by the entity linker when a
// synced contact has no match, and are deleted only by an explicit reset
// (which purges platform-scoped rows first).
type Lead struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID string    `json:"workspace_id"`

	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Company   *string `json:"company,omitempty"`

	// Source records where this lead came from ("phoneburner", "airtable",
	// "manual"); SourceExternalID keeps the original external-id
	// correspondence used by the linker.
	Source           string  `json:"source"`
	SourceExternalID *string `json:"source_external_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Disposition is the classified outcome bucket of a call. RawCategory keeps
// the platform's verbatim string; Disposition is what analytics aggregate on.
type Disposition string

// Disposition buckets.
const (
	DispositionConversation Disposition = "conversation" // reached a decision-maker
	DispositionVoicemail    Disposition = "voicemail"
	DispositionNoAnswer     Disposition = "no_answer"
	DispositionBusy         Disposition = "busy"
	DispositionEmailSent    Disposition = "email_sent"
	DispositionWrongNumber  Disposition = "wrong_number"
	DispositionDoNotCall    Disposition = "do_not_call"
	DispositionOther        Disposition = "other"
)

// WriteResult reports the outcome of one batched upsert. A non-zero Failed
// count is not fatal to the caller; errors are carried per batch so the sync
// can continue and report partial progress.
type WriteResult struct {
	Written int      `json:"written"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// Merge folds another batch result into this one.
func (r *WriteResult) Merge(other WriteResult) {
	r.Written += other.Written
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}
