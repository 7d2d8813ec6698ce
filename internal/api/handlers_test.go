// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/database"
	"github.com/outboundlabs/prospectus/internal/models"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	conns         map[string]*models.SyncConnection // key: workspace/platform
	leads         []models.Lead
	pingErr       error
	summaryCalls  int
	resetCalls    int
	updatedStates []models.SyncStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{conns: make(map[string]*models.SyncConnection)}
}

func connKey(workspaceID, platform string) string { return workspaceID + "/" + platform }

func (s *fakeStore) Ping(context.Context) error { return s.pingErr }

func (s *fakeStore) CreateSyncConnection(_ context.Context, conn *models.SyncConnection) error {
	key := connKey(conn.WorkspaceID, conn.Platform)
	if _, exists := s.conns[key]; exists {
		return database.ErrConnectionExists
	}
	s.conns[key] = conn
	return nil
}

func (s *fakeStore) GetSyncConnection(_ context.Context, workspaceID, platform string) (*models.SyncConnection, error) {
	conn, ok := s.conns[connKey(workspaceID, platform)]
	if !ok {
		return nil, database.ErrConnectionNotFound
	}
	return conn, nil
}

func (s *fakeStore) GetActiveSyncConnection(_ context.Context, workspaceID string) (*models.SyncConnection, error) {
	for _, conn := range s.conns {
		if conn.WorkspaceID == workspaceID && conn.IsActive {
			return conn, nil
		}
	}
	return nil, database.ErrConnectionNotFound
}

func (s *fakeStore) ListSyncConnections(_ context.Context, workspaceID string) ([]models.SyncConnection, error) {
	var out []models.SyncConnection
	for _, conn := range s.conns {
		if workspaceID == "" || conn.WorkspaceID == workspaceID {
			out = append(out, *conn)
		}
	}
	return out, nil
}

func (s *fakeStore) SetConnectionActive(_ context.Context, workspaceID, platform string, active bool) error {
	conn, ok := s.conns[connKey(workspaceID, platform)]
	if !ok {
		return database.ErrConnectionNotFound
	}
	conn.IsActive = active
	return nil
}

func (s *fakeStore) DeleteSyncConnection(_ context.Context, workspaceID, platform string) error {
	key := connKey(workspaceID, platform)
	if _, ok := s.conns[key]; !ok {
		return database.ErrConnectionNotFound
	}
	delete(s.conns, key)
	return nil
}

func (s *fakeStore) UpdateSyncState(_ context.Context, workspaceID, platform string, status models.SyncStatus, progress models.SyncProgress) error {
	conn, ok := s.conns[connKey(workspaceID, platform)]
	if !ok {
		return database.ErrConnectionNotFound
	}
	conn.SyncStatus = status
	conn.Progress = progress
	s.updatedStates = append(s.updatedStates, status)
	return nil
}

func (s *fakeStore) ResetWorkspaceData(context.Context, string) (map[string]int64, error) {
	s.resetCalls++
	return map[string]int64{"calls": 12, "leads": 3}, nil
}

func (s *fakeStore) ListLeads(_ context.Context, workspaceID string, limit, offset int) ([]models.Lead, error) {
	if offset >= len(s.leads) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.leads) {
		end = len(s.leads)
	}
	return s.leads[offset:end], nil
}

func (s *fakeStore) CountLeads(context.Context, string) (int64, error) {
	return int64(len(s.leads)), nil
}

func (s *fakeStore) GetAnalyticsSummary(_ context.Context, workspaceID string, _ time.Time) (*models.AnalyticsSummary, error) {
	s.summaryCalls++
	return &models.AnalyticsSummary{WorkspaceID: workspaceID, TotalCalls: 42}, nil
}

func (s *fakeStore) GetCallsByDay(context.Context, string, time.Time) ([]models.CallsByDay, error) {
	return []models.CallsByDay{{Date: "2026-08-01", Calls: 5}}, nil
}

func (s *fakeStore) GetDispositionBreakdown(context.Context, string, time.Time) ([]models.DispositionCount, error) {
	return []models.DispositionCount{{Disposition: models.DispositionConversation, Count: 9}}, nil
}

func (s *fakeStore) GetTopContacts(context.Context, string, time.Time, int) ([]models.TopContact, error) {
	return []models.TopContact{{ExternalID: "c-1", CallCount: 7}}, nil
}

// fakeEngine is a canned SyncRunner.
type fakeEngine struct {
	resp      *models.SyncRunResponse
	err       error
	diagnosed bool
	lastReq   models.SyncRunRequest
}

func (e *fakeEngine) RunStep(_ context.Context, req models.SyncRunRequest) (*models.SyncRunResponse, error) {
	e.lastReq = req
	if e.err != nil {
		return nil, e.err
	}
	return e.resp, nil
}

func (e *fakeEngine) Diagnose(_ context.Context, workspaceID string) (*models.DiagnosticReport, error) {
	e.diagnosed = true
	return &models.DiagnosticReport{WorkspaceID: workspaceID, Reachable: true}, nil
}

func testAPIConfig() *config.APIConfig {
	return &config.APIConfig{
		DefaultPageSize:   20,
		MaxPageSize:       100,
		AnalyticsCacheTTL: 30 * time.Second,
	}
}

func newTestHandler(store Store, engine SyncRunner) *Handler {
	return NewHandler(store, engine, nil, testAPIConfig(), &config.SyncConfig{LockTimeout: 30 * time.Second}, "test")
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var env models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func TestSyncRunSuccess(t *testing.T) {
	engine := &fakeEngine{resp: &models.SyncRunResponse{
		Status:            models.RunStatusInProgress,
		Phase:             models.PhaseContacts,
		NeedsContinuation: true,
	}}
	h := newTestHandler(newFakeStore(), engine)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/run",
		strings.NewReader(`{"workspace_id":"ws-1","platform":"phoneburner"}`))
	rec := httptest.NewRecorder()
	h.SyncRun(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env.Status != "success" {
		t.Errorf("envelope status = %q", env.Status)
	}
	if engine.lastReq.WorkspaceID != "ws-1" {
		t.Errorf("engine request = %+v", engine.lastReq)
	}
}

func TestSyncRunAlreadySyncingConflict(t *testing.T) {
	engine := &fakeEngine{resp: &models.SyncRunResponse{
		Status: models.RunStatusAlreadySyncing,
		Phase:  models.PhaseSessions,
	}}
	h := newTestHandler(newFakeStore(), engine)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/run",
		strings.NewReader(`{"workspace_id":"ws-1"}`))
	rec := httptest.NewRecorder()
	h.SyncRun(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != ErrCodeAlreadySyncing {
		t.Errorf("error = %+v, want code %s", env.Error, ErrCodeAlreadySyncing)
	}
}

func TestSyncRunValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing workspace", `{"platform":"phoneburner"}`},
		{"unknown platform", `{"workspace_id":"ws-1","platform":"dialpad"}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &fakeEngine{resp: &models.SyncRunResponse{Status: models.RunStatusComplete}}
			h := newTestHandler(newFakeStore(), engine)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/run", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.SyncRun(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSyncRunDiagnostic(t *testing.T) {
	engine := &fakeEngine{}
	h := newTestHandler(newFakeStore(), engine)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/run",
		strings.NewReader(`{"workspace_id":"ws-1","diagnostic":true}`))
	rec := httptest.NewRecorder()
	h.SyncRun(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !engine.diagnosed {
		t.Error("diagnostic run did not reach Diagnose")
	}
}

func TestSyncStatus(t *testing.T) {
	store := newFakeStore()
	store.conns[connKey("ws-1", "phoneburner")] = &models.SyncConnection{
		WorkspaceID: "ws-1",
		Platform:    "phoneburner",
		APIKey:      "secret-key",
		IsActive:    true,
		SyncStatus:  models.SyncStatusSyncing,
	}
	h := newTestHandler(store, &fakeEngine{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/status?workspace_id=ws-1", nil)
	rec := httptest.NewRecorder()
	h.SyncStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-key") {
		t.Error("API key leaked into sync status response")
	}

	// Unknown workspace.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sync/status?workspace_id=nope", nil)
	rec = httptest.NewRecorder()
	h.SyncStatus(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d for unknown workspace, want 404", rec.Code)
	}

	// Missing workspace id.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/sync/status", nil)
	rec = httptest.NewRecorder()
	h.SyncStatus(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d without workspace_id, want 400", rec.Code)
	}
}

func TestSyncResetPurgesAndReinitializes(t *testing.T) {
	store := newFakeStore()
	store.conns[connKey("ws-1", "phoneburner")] = &models.SyncConnection{
		WorkspaceID: "ws-1",
		Platform:    "phoneburner",
		SyncStatus:  models.SyncStatusComplete,
	}
	h := newTestHandler(store, &fakeEngine{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/reset",
		strings.NewReader(`{"workspace_id":"ws-1"}`))
	rec := httptest.NewRecorder()
	h.SyncReset(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if store.resetCalls != 1 {
		t.Errorf("ResetWorkspaceData called %d times, want 1", store.resetCalls)
	}
	if len(store.updatedStates) != 1 || store.updatedStates[0] != models.SyncStatusIdle {
		t.Errorf("sync state updates = %v, want [idle]", store.updatedStates)
	}
}

func TestSyncResetRejectedWhileLocked(t *testing.T) {
	store := newFakeStore()
	store.conns[connKey("ws-1", "phoneburner")] = &models.SyncConnection{
		WorkspaceID: "ws-1",
		Platform:    "phoneburner",
		SyncStatus:  models.SyncStatusSyncing,
		Progress:    models.SyncProgress{Heartbeat: time.Now()},
	}
	h := newTestHandler(store, &fakeEngine{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/reset",
		strings.NewReader(`{"workspace_id":"ws-1"}`))
	rec := httptest.NewRecorder()
	h.SyncReset(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if store.resetCalls != 0 {
		t.Error("reset ran despite a fresh session lock")
	}
}

func TestConnectionsCreate(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store, &fakeEngine{})

	body := `{"workspace_id":"ws-1","platform":"phoneburner","api_key":"pb-key-12345"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/connections", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ConnectionsCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "pb-key-12345") {
		t.Error("API key leaked into create response")
	}

	// Duplicate is a conflict.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/connections", strings.NewReader(body))
	rec = httptest.NewRecorder()
	h.ConnectionsCreate(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", rec.Code)
	}

	// Validation failure.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/connections",
		strings.NewReader(`{"workspace_id":"ws-1","platform":"phoneburner","api_key":"x"}`))
	rec = httptest.NewRecorder()
	h.ConnectionsCreate(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short api_key status = %d, want 400", rec.Code)
	}
}

func TestConnectionsDeleteAndToggle(t *testing.T) {
	store := newFakeStore()
	store.conns[connKey("ws-1", "airtable")] = &models.SyncConnection{
		WorkspaceID: "ws-1", Platform: "airtable", IsActive: true,
	}
	h := newTestHandler(store, &fakeEngine{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/connections/active",
		strings.NewReader(`{"workspace_id":"ws-1","platform":"airtable","is_active":false}`))
	rec := httptest.NewRecorder()
	h.ConnectionsSetActive(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle status = %d, want 200", rec.Code)
	}
	if store.conns[connKey("ws-1", "airtable")].IsActive {
		t.Error("connection still active after toggle")
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/connections?workspace_id=ws-1&platform=airtable", nil)
	rec = httptest.NewRecorder()
	h.ConnectionsDelete(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/connections?workspace_id=ws-1&platform=airtable", nil)
	rec = httptest.NewRecorder()
	h.ConnectionsDelete(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestAnalyticsSummaryCaching(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store, &fakeEngine{})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary?workspace_id=ws-1", nil)
		rec := httptest.NewRecorder()
		h.AnalyticsSummary(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
		env := decodeEnvelope(t, rec)
		wantCached := i > 0
		if env.Metadata.Cached != wantCached {
			t.Errorf("request %d cached = %v, want %v", i, env.Metadata.Cached, wantCached)
		}
	}

	if store.summaryCalls != 1 {
		t.Errorf("summary query ran %d times, want 1", store.summaryCalls)
	}

	// A different window is a different cache entry.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/summary?workspace_id=ws-1&days=7", nil)
	rec := httptest.NewRecorder()
	h.AnalyticsSummary(rec, req)
	if store.summaryCalls != 2 {
		t.Errorf("summary query ran %d times after window change, want 2", store.summaryCalls)
	}
}

func TestLeadsListPagination(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 150; i++ {
		store.leads = append(store.leads, models.Lead{WorkspaceID: "ws-1", FirstName: "Lead"})
	}
	h := newTestHandler(store, &fakeEngine{})

	// Limit above MaxPageSize clamps to 100.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/leads?workspace_id=ws-1&limit=500", nil)
	rec := httptest.NewRecorder()
	h.LeadsList(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var env struct {
		Data LeadsPage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Limit != 100 {
		t.Errorf("limit = %d, want clamp to 100", env.Data.Limit)
	}
	if len(env.Data.Leads) != 100 {
		t.Errorf("returned %d leads, want 100", len(env.Data.Leads))
	}
	if env.Data.Total != 150 {
		t.Errorf("total = %d, want 150", env.Data.Total)
	}
}

func TestReadyDegradedWhenDatabaseDown(t *testing.T) {
	store := newFakeStore()
	h := newTestHandler(store, &fakeEngine{})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	h.Ready(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy ready status = %d, want 200", rec.Code)
	}

	store.pingErr = context.DeadlineExceeded
	rec = httptest.NewRecorder()
	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded ready status = %d, want 503", rec.Code)
	}
}
