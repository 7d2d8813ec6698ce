// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestPhaseNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from Phase
		want Phase
	}{
		{"contacts advances to sessions", PhaseContacts, PhaseSessions},
		{"sessions advances to metrics", PhaseSessions, PhaseMetrics},
		{"metrics advances to linking", PhaseMetrics, PhaseLinking},
		{"linking advances to complete", PhaseLinking, PhaseComplete},
		{"complete is absorbing", PhaseComplete, PhaseComplete},
		{"error is absorbing", PhaseError, PhaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.Next(); got != tt.want {
				t.Errorf("Next(%s) = %s, want %s", tt.from, got, tt.want)
			}
		})
	}
}

func TestPhaseOrderReachesComplete(t *testing.T) {
	t.Parallel()

	// The full ordered walk must terminate in finitely many steps.
	p := PhaseContacts
	var visited []Phase
	for i := 0; i < 10 && !p.Terminal(); i++ {
		visited = append(visited, p)
		p = p.Next()
	}
	if p != PhaseComplete {
		t.Fatalf("walk ended at %s, want %s (visited %v)", p, PhaseComplete, visited)
	}
	if len(visited) != 4 {
		t.Errorf("expected 4 working phases, visited %v", visited)
	}
}

func TestPhaseValid(t *testing.T) {
	t.Parallel()

	for _, p := range []Phase{PhaseContacts, PhaseSessions, PhaseMetrics, PhaseLinking, PhaseComplete, PhaseError} {
		if !p.Valid() {
			t.Errorf("Valid(%s) = false, want true", p)
		}
	}
	if Phase("bogus").Valid() {
		t.Error("Valid(bogus) = true, want false")
	}
	if Phase("").Valid() {
		t.Error("Valid(empty) = true, want false")
	}
}

func TestNewSyncProgress(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	p := NewSyncProgress(now)

	if p.Phase != PhaseContacts {
		t.Errorf("Phase = %s, want %s", p.Phase, PhaseContacts)
	}
	if p.ContactsPage != 1 || p.SessionsPage != 1 {
		t.Errorf("pages = (%d, %d), want (1, 1)", p.ContactsPage, p.SessionsPage)
	}
	if p.SessionOffset != 0 {
		t.Errorf("SessionOffset = %d, want 0", p.SessionOffset)
	}
	if !p.Heartbeat.Equal(now) {
		t.Errorf("Heartbeat = %v, want %v", p.Heartbeat, now)
	}
}

func TestHeartbeatFresh(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	timeout := 30 * time.Second

	tests := []struct {
		name      string
		heartbeat time.Time
		want      bool
	}{
		{"just refreshed", now, true},
		{"five seconds old", now.Add(-5 * time.Second), true},
		{"one tick under timeout", now.Add(-timeout + time.Millisecond), true},
		{"exactly at timeout", now.Add(-timeout), false},
		{"long stale", now.Add(-10 * time.Minute), false},
		{"zero value", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := SyncProgress{Heartbeat: tt.heartbeat}
			if got := p.HeartbeatFresh(now, timeout); got != tt.want {
				t.Errorf("HeartbeatFresh = %v, want %v", got, tt.want)
			}
		})
	}
}

// The persisted progress column and the polling API both expect the flat
// wire shape, so the embedded cursor and counter fields must not nest.
func TestSyncProgressWireShape(t *testing.T) {
	t.Parallel()

	p := NewSyncProgress(time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))
	p.ContactsPage = 4
	p.ContactsSynced = 250

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"phase", "contacts_page", "sessions_page", "session_offset", "contacts_synced", "calls_synced", "heartbeat"} {
		if _, ok := flat[key]; !ok {
			t.Errorf("wire shape missing top-level key %q (got %v)", key, flat)
		}
	}
	if _, ok := flat["error"]; ok {
		t.Error("empty error should be omitted from wire shape")
	}

	var back SyncProgress
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal into struct: %v", err)
	}
	if back.ContactsPage != 4 || back.ContactsSynced != 250 {
		t.Errorf("round trip lost cursor/counters: page=%d synced=%d", back.ContactsPage, back.ContactsSynced)
	}
}

func TestWriteResultMerge(t *testing.T) {
	t.Parallel()

	r := WriteResult{Written: 100, Failed: 0}
	r.Merge(WriteResult{Written: 50, Failed: 3, Errors: []string{"batch 2: constraint"}})
	r.Merge(WriteResult{Written: 25})

	if r.Written != 175 {
		t.Errorf("Written = %d, want 175", r.Written)
	}
	if r.Failed != 3 {
		t.Errorf("Failed = %d, want 3", r.Failed)
	}
	if len(r.Errors) != 1 {
		t.Errorf("Errors = %v, want one entry", r.Errors)
	}
}
