// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package phoneburner

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/outboundlabs/prospectus/internal/models"
	"github.com/outboundlabs/prospectus/internal/platform"
)

// recordID narrows platform.RecordID to this platform's records.
func recordID(kind, workspaceID, externalID string) uuid.UUID {
	return platform.RecordID(models.PlatformPhoneBurner, kind, workspaceID, externalID)
}

// NormalizeContact maps a raw contact to the canonical row. Malformed
// fields coerce to null; only a missing contact id skips the record
// (platform.ErrSkipRecord).
func NormalizeContact(workspaceID string, raw Contact) (models.ExternalContact, error) {
	externalID := raw.ContactID.String()
	if externalID == "" {
		return models.ExternalContact{}, platform.ErrSkipRecord
	}

	now := time.Now().UTC()
	return models.ExternalContact{
		ID:              recordID("contact", workspaceID, externalID),
		WorkspaceID:     workspaceID,
		ExternalID:      externalID,
		Platform:        models.PlatformPhoneBurner,
		FirstName:       raw.FirstName.String(),
		LastName:        raw.LastName.String(),
		Email:           normalizeEmail(raw.Email),
		Phone:           raw.Phone.Ptr(),
		Company:         raw.Company.Ptr(),
		JobTitle:        raw.Title.Ptr(),
		Score:           raw.LeadScore.Ptr(),
		Tags:            joinTags(raw.Tags),
		LastContactedAt: raw.LastCallTime.Ptr(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// NormalizeDialSession maps a raw dial session to the canonical row.
func NormalizeDialSession(workspaceID string, raw DialSession) (models.DialSession, error) {
	externalID := raw.SessionID.String()
	if externalID == "" {
		return models.DialSession{}, platform.ErrSkipRecord
	}

	now := time.Now().UTC()
	return models.DialSession{
		ID:               recordID("session", workspaceID, externalID),
		WorkspaceID:      workspaceID,
		ExternalID:       externalID,
		Platform:         models.PlatformPhoneBurner,
		MemberID:         raw.MemberID.Ptr(),
		StartedAt:        raw.StartTime.Time(),
		EndedAt:          raw.EndTime.Ptr(),
		TotalCalls:       raw.TotalCalls.Int(),
		TotalConnects:    raw.TotalConnects.Int(),
		TotalTalkSeconds: raw.TotalTalkTime.Int(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// NormalizeCall maps a raw call to the canonical row. sessionExternalID is
// the session whose sub-collection produced the call; the payload's own
// session_id wins when present. Disposition is left for the classifier.
func NormalizeCall(workspaceID, sessionExternalID string, raw Call) (models.Call, error) {
	externalID := raw.CallID.String()
	if externalID == "" {
		return models.Call{}, platform.ErrSkipRecord
	}

	session := raw.SessionID.String()
	if session == "" {
		session = sessionExternalID
	}

	now := time.Now().UTC()
	call := models.Call{
		ID:                recordID("call", workspaceID, externalID),
		WorkspaceID:       workspaceID,
		ExternalID:        externalID,
		Platform:          models.PlatformPhoneBurner,
		ContactExternalID: raw.ContactID.Ptr(),
		PhoneNumber:       raw.PhoneNumber.Ptr(),
		StartedAt:         raw.CallStart.Time(),
		DurationSeconds:   raw.Duration.Int(),
		TalkSeconds:       raw.TalkTime.Int(),
		Connected:         raw.Connected.Bool(),
		RawCategory:       raw.Category.Ptr(),
		RecordingURL:      raw.RecordingURL.Ptr(),
		Notes:             raw.Notes.Ptr(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if session != "" {
		call.SessionExternalID = &session
	}
	return call, nil
}

// NormalizeMemberStat maps a raw per-member daily aggregate to a canonical
// daily metric row. The external id encodes member and day because the
// platform has no row id for aggregates.
func NormalizeMemberStat(workspaceID string, raw MemberStat) (models.DailyMetric, error) {
	memberID := raw.MemberID.String()
	day := raw.Date.Time()
	if memberID == "" || day.IsZero() {
		return models.DailyMetric{}, platform.ErrSkipRecord
	}

	externalID := memberID + ":" + day.Format("2006-01-02")
	now := time.Now().UTC()
	return models.DailyMetric{
		ID:            recordID("metric", workspaceID, externalID),
		WorkspaceID:   workspaceID,
		ExternalID:    externalID,
		Platform:      models.PlatformPhoneBurner,
		Date:          day.Truncate(24 * time.Hour),
		Dials:         raw.Dials.Int(),
		Connects:      raw.Connects.Int(),
		Conversations: raw.Conversations.Int(),
		EmailsSent:    raw.EmailsSent.Int(),
		TalkSeconds:   raw.TalkTime.Int(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// normalizeEmail lowercases and trims; junk without an @ becomes null so
// the linker never joins on garbage.
func normalizeEmail(raw FlexString) *string {
	email := strings.ToLower(strings.TrimSpace(raw.String()))
	if email == "" || !strings.Contains(email, "@") {
		return nil
	}
	return &email
}

// joinTags folds the tag list into the canonical comma-separated form.
func joinTags(tags FlexStrings) *string {
	if len(tags) == 0 {
		return nil
	}
	joined := strings.Join(tags, ",")
	return &joined
}
