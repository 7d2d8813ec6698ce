// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package database

import (
	"context"
	"testing"
	"time"

	"github.com/outboundlabs/prospectus/internal/models"
)

func makeCall(externalID, contactExternalID string, at time.Time, connected bool, disposition models.Disposition, talkSeconds int) models.Call {
	call := models.Call{
		ExternalID:      externalID,
		Platform:        models.PlatformPhoneBurner,
		StartedAt:       at,
		DurationSeconds: talkSeconds + 15,
		TalkSeconds:     talkSeconds,
		Connected:       connected,
		Disposition:     disposition,
	}
	if contactExternalID != "" {
		call.ContactExternalID = strPtr(contactExternalID)
	}
	return call
}

func TestGetAnalyticsSummary(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	const ws = "ws-summary"
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	if res := db.UpsertContacts(ctx, ws, makeContacts(3)); res.Failed != 0 {
		t.Fatalf("failed to seed contacts: %+v", res)
	}
	if _, err := db.LinkWorkspaceLeads(ctx, ws, 0); err != nil {
		t.Fatalf("failed to link leads: %v", err)
	}

	sessions := []models.DialSession{
		{ExternalID: "sess-in", Platform: models.PlatformPhoneBurner, StartedAt: time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)},
		{ExternalID: "sess-old", Platform: models.PlatformPhoneBurner, StartedAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)},
	}
	if res := db.UpsertDialSessions(ctx, ws, sessions); res.Failed != 0 {
		t.Fatalf("failed to seed sessions: %+v", res)
	}

	day := time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC)
	calls := []models.Call{
		makeCall("call-1", "pb-0001", day, true, models.DispositionConversation, 120),
		makeCall("call-2", "pb-0002", day.Add(5*time.Minute), true, models.DispositionOther, 60),
		makeCall("call-3", "pb-0001", day.Add(10*time.Minute), false, models.DispositionNoAnswer, 0),
		makeCall("call-4", "pb-0003", day.Add(15*time.Minute), false, models.DispositionVoicemail, 0),
		makeCall("call-old", "pb-0001", time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC), true, models.DispositionConversation, 300),
	}
	if res := db.UpsertCalls(ctx, ws, calls); res.Failed != 0 {
		t.Fatalf("failed to seed calls: %+v", res)
	}

	rows := []models.DailyMetric{
		{ExternalID: "rec-1", Platform: models.PlatformAirtable, Date: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC), Dials: 50, EmailsSent: 5},
		{ExternalID: "rec-2", Platform: models.PlatformAirtable, Date: time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC), Dials: 30, EmailsSent: 3},
		{ExternalID: "rec-old", Platform: models.PlatformAirtable, Date: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), Dials: 999, EmailsSent: 99},
	}
	if res := db.UpsertDailyMetrics(ctx, ws, rows); res.Failed != 0 {
		t.Fatalf("failed to seed daily metrics: %+v", res)
	}

	createTestConnection(t, db, ws, models.PlatformPhoneBurner, true)
	progress := models.NewSyncProgress(time.Now().UTC())
	progress.Phase = models.PhaseComplete
	if err := db.UpdateSyncState(ctx, ws, models.PlatformPhoneBurner, models.SyncStatusComplete, progress); err != nil {
		t.Fatalf("failed to stamp sync completion: %v", err)
	}

	summary, err := db.GetAnalyticsSummary(ctx, ws, since)
	if err != nil {
		t.Fatalf("failed to get summary: %v", err)
	}

	if summary.TotalContacts != 3 {
		t.Errorf("TotalContacts = %d, want 3", summary.TotalContacts)
	}
	if summary.TotalLeads != 3 {
		t.Errorf("TotalLeads = %d, want 3", summary.TotalLeads)
	}
	if summary.TotalSessions != 1 {
		t.Errorf("TotalSessions = %d, want 1 inside window", summary.TotalSessions)
	}
	if summary.TotalCalls != 4 {
		t.Errorf("TotalCalls = %d, want 4 inside window", summary.TotalCalls)
	}
	if summary.TotalConnects != 2 {
		t.Errorf("TotalConnects = %d, want 2", summary.TotalConnects)
	}
	if summary.TotalConversations != 1 {
		t.Errorf("TotalConversations = %d, want 1", summary.TotalConversations)
	}
	if summary.TotalDials != 80 {
		t.Errorf("TotalDials = %d, want 80", summary.TotalDials)
	}
	if summary.TotalEmailsSent != 8 {
		t.Errorf("TotalEmailsSent = %d, want 8", summary.TotalEmailsSent)
	}
	if summary.ConnectRate != 50.0 {
		t.Errorf("ConnectRate = %v, want 50.0", summary.ConnectRate)
	}
	if summary.ConversationRate != 25.0 {
		t.Errorf("ConversationRate = %v, want 25.0", summary.ConversationRate)
	}
	if summary.AvgTalkSeconds != 90.0 {
		t.Errorf("AvgTalkSeconds = %v, want 90.0", summary.AvgTalkSeconds)
	}
	if summary.LastSyncAt == nil {
		t.Error("expected last sync time after completion")
	}
}

func TestGetAnalyticsSummaryEmptyWorkspace(t *testing.T) {
	db := setupTestDB(t)

	summary, err := db.GetAnalyticsSummary(context.Background(), "ws-void",
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("failed to get empty summary: %v", err)
	}
	if summary.TotalCalls != 0 || summary.ConnectRate != 0 || summary.AvgTalkSeconds != 0 {
		t.Errorf("expected zeroed summary, got %+v", summary)
	}
	if summary.LastSyncAt != nil {
		t.Errorf("expected nil last sync, got %v", summary.LastSyncAt)
	}
}

func TestGetCallsByDay(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	const ws = "ws-byday"
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	day1 := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 11, 14, 0, 0, 0, time.UTC)
	calls := []models.Call{
		makeCall("c1", "", day1, false, models.DispositionNoAnswer, 0),
		makeCall("c2", "", day1.Add(time.Hour), true, models.DispositionConversation, 30),
		makeCall("c3", "", day2, true, models.DispositionConversation, 60),
	}
	if res := db.UpsertCalls(ctx, ws, calls); res.Failed != 0 {
		t.Fatalf("failed to seed calls: %+v", res)
	}

	byDay, err := db.GetCallsByDay(ctx, ws, since)
	if err != nil {
		t.Fatalf("failed to get calls by day: %v", err)
	}
	if len(byDay) != 2 {
		t.Fatalf("expected 2 days, got %d", len(byDay))
	}

	want := []models.CallsByDay{
		{Date: "2026-08-10", Calls: 2, Connects: 1, TalkSeconds: 30},
		{Date: "2026-08-11", Calls: 1, Connects: 1, TalkSeconds: 60},
	}
	for i, w := range want {
		if byDay[i] != w {
			t.Errorf("day %d = %+v, want %+v", i, byDay[i], w)
		}
	}
}

func TestGetDispositionBreakdown(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	const ws = "ws-dispositions"
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	day := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	calls := []models.Call{
		makeCall("c1", "", day, false, models.DispositionVoicemail, 0),
		makeCall("c2", "", day.Add(time.Minute), false, models.DispositionVoicemail, 0),
		makeCall("c3", "", day.Add(2*time.Minute), false, models.DispositionVoicemail, 0),
		makeCall("c4", "", day.Add(3*time.Minute), true, models.DispositionConversation, 90),
	}
	if res := db.UpsertCalls(ctx, ws, calls); res.Failed != 0 {
		t.Fatalf("failed to seed calls: %+v", res)
	}

	breakdown, err := db.GetDispositionBreakdown(ctx, ws, since)
	if err != nil {
		t.Fatalf("failed to get breakdown: %v", err)
	}
	if len(breakdown) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(breakdown))
	}
	if breakdown[0].Disposition != models.DispositionVoicemail || breakdown[0].Count != 3 {
		t.Errorf("largest bucket = %+v, want voicemail x3", breakdown[0])
	}
	if breakdown[1].Disposition != models.DispositionConversation || breakdown[1].Count != 1 {
		t.Errorf("second bucket = %+v, want conversation x1", breakdown[1])
	}
}

func TestGetTopContacts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	const ws = "ws-top"
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	day := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)

	if res := db.UpsertContacts(ctx, ws, makeContacts(2)); res.Failed != 0 {
		t.Fatalf("failed to seed contacts: %+v", res)
	}
	calls := []models.Call{
		makeCall("c1", "pb-0001", day, true, models.DispositionConversation, 30),
		makeCall("c2", "pb-0001", day.Add(time.Minute), true, models.DispositionOther, 30),
		makeCall("c3", "pb-0001", day.Add(2*time.Minute), false, models.DispositionNoAnswer, 30),
		makeCall("c4", "pb-0002", day.Add(3*time.Minute), true, models.DispositionConversation, 50),
	}
	if res := db.UpsertCalls(ctx, ws, calls); res.Failed != 0 {
		t.Fatalf("failed to seed calls: %+v", res)
	}

	top, err := db.GetTopContacts(ctx, ws, since, 10)
	if err != nil {
		t.Fatalf("failed to get top contacts: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(top))
	}
	if top[0].ExternalID != "pb-0001" || top[0].CallCount != 3 || top[0].TalkSeconds != 90 {
		t.Errorf("top contact = %+v, want pb-0001 with 3 calls and 90s", top[0])
	}
	if top[0].Email == nil || *top[0].Email == "" {
		t.Error("expected contact email on ranking row")
	}
	if top[1].ExternalID != "pb-0002" || top[1].CallCount != 1 {
		t.Errorf("second contact = %+v, want pb-0002 with 1 call", top[1])
	}

	limited, err := db.GetTopContacts(ctx, ws, since, 1)
	if err != nil {
		t.Fatalf("failed to get limited top contacts: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected limit 1 respected, got %d", len(limited))
	}
}
