// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPlatformRequest(t *testing.T) {
	before := testutil.ToFloat64(PlatformRequests.WithLabelValues("phoneburner", "contacts", "ok"))

	RecordPlatformRequest("phoneburner", "contacts", "ok", 120*time.Millisecond)
	RecordPlatformRequest("phoneburner", "contacts", "ok", 80*time.Millisecond)

	after := testutil.ToFloat64(PlatformRequests.WithLabelValues("phoneburner", "contacts", "ok"))
	if after-before != 2 {
		t.Errorf("counter delta = %v, want 2", after-before)
	}
}

func TestRecordUpsert(t *testing.T) {
	wBefore := testutil.ToFloat64(SyncRecordsWritten.WithLabelValues("external_contacts"))
	fBefore := testutil.ToFloat64(SyncRecordsFailed.WithLabelValues("external_contacts"))

	RecordUpsert("external_contacts", 200, 0, 15*time.Millisecond)
	RecordUpsert("external_contacts", 150, 50, 20*time.Millisecond)

	if got := testutil.ToFloat64(SyncRecordsWritten.WithLabelValues("external_contacts")) - wBefore; got != 350 {
		t.Errorf("written delta = %v, want 350", got)
	}
	if got := testutil.ToFloat64(SyncRecordsFailed.WithLabelValues("external_contacts")) - fBefore; got != 50 {
		t.Errorf("failed delta = %v, want 50", got)
	}
}

func TestRecordUpsertNoFailureLabelOnSuccess(t *testing.T) {
	before := testutil.ToFloat64(SyncRecordsFailed.WithLabelValues("leads"))
	RecordUpsert("leads", 10, 0, time.Millisecond)
	after := testutil.ToFloat64(SyncRecordsFailed.WithLabelValues("leads"))
	if after != before {
		t.Errorf("failed counter moved on clean batch: %v -> %v", before, after)
	}
}

func TestSetSyncPhase(t *testing.T) {
	tests := []struct {
		phase string
		want  float64
	}{
		{"contacts", 0},
		{"sessions", 1},
		{"metrics", 2},
		{"linking", 3},
		{"complete", 4},
		{"error", 5},
	}

	for _, tt := range tests {
		t.Run(tt.phase, func(t *testing.T) {
			SetSyncPhase("ws-phase-test", tt.phase)
			if got := testutil.ToFloat64(SyncPhase.WithLabelValues("ws-phase-test")); got != tt.want {
				t.Errorf("gauge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetSyncPhaseIgnoresUnknown(t *testing.T) {
	SetSyncPhase("ws-unknown-test", "linking")
	SetSyncPhase("ws-unknown-test", "bogus")
	if got := testutil.ToFloat64(SyncPhase.WithLabelValues("ws-unknown-test")); got != 3 {
		t.Errorf("gauge = %v, want 3 (unknown phase must not move it)", got)
	}
}

func TestRecordSyncRun(t *testing.T) {
	before := testutil.ToFloat64(SyncRuns.WithLabelValues("phoneburner", "complete"))
	RecordSyncRun("phoneburner", "complete", 42*time.Second)
	after := testutil.ToFloat64(SyncRuns.WithLabelValues("phoneburner", "complete"))
	if after-before != 1 {
		t.Errorf("runs delta = %v, want 1", after-before)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/sync/run", "200"))
	RecordAPIRequest("POST", "/api/v1/sync/run", "200", 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/sync/run", "200"))
	if after-before != 1 {
		t.Errorf("api requests delta = %v, want 1", after-before)
	}
}
