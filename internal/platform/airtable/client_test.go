// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package airtable

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/platform"
)

func testConfig(serverURL string) *config.AirtableConfig {
	return &config.AirtableConfig{
		BaseURL:       serverURL,
		APIKey:        "test-key",
		BaseID:        "app123",
		MetricsTable:  "metrics",
		PageSize:      100,
		RequestDelay:  time.Millisecond,
		MaxRetries:    2,
		RetryWaitTime: 5 * time.Millisecond,
		Timeout:       5 * time.Second,
	}
}

// requestRecorder captures server-side arrival times for spacing assertions.
type requestRecorder struct {
	mu    sync.Mutex
	times []time.Time
}

func (r *requestRecorder) record() {
	r.mu.Lock()
	r.times = append(r.times, time.Now())
	r.mu.Unlock()
}

func (r *requestRecorder) gaps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var gaps []time.Duration
	for i := 1; i < len(r.times); i++ {
		gaps = append(gaps, r.times[i].Sub(r.times[i-1]))
	}
	return gaps
}

func TestListDailyMetricsWalksOffsetChain(t *testing.T) {
	pages := map[string]string{
		"":     `{"records":[{"id":"rec1","fields":{"Date":"2026-08-18"}},{"id":"rec2","fields":{"Date":"2026-08-19"}}],"offset":"itr1"}`,
		"itr1": `{"records":[{"id":"rec3","fields":{"Date":"2026-08-20"}},{"id":"rec4","fields":{"Date":"2026-08-21"}}],"offset":"itr2"}`,
		"itr2": `{"records":[{"id":"rec5","fields":{"Date":"2026-08-22"}}]}`,
	}
	var mu sync.Mutex
	var seenOffsets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		mu.Lock()
		seenOffsets = append(seenOffsets, offset)
		mu.Unlock()
		body, ok := pages[offset]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	ctx := context.Background()

	var ids []string
	offset := ""
	for {
		records, info, err := client.ListDailyMetrics(ctx, offset)
		if err != nil {
			t.Fatalf("ListDailyMetrics() error = %v", err)
		}
		for _, rec := range records {
			ids = append(ids, rec.ID)
		}
		if info.Exhausted() {
			break
		}
		offset = info.NextOffset
	}

	if len(ids) != 5 {
		t.Fatalf("collected %d records, want 5: %v", len(ids), ids)
	}
	if ids[0] != "rec1" || ids[4] != "rec5" {
		t.Errorf("record order = %v, want rec1..rec5", ids)
	}

	mu.Lock()
	defer mu.Unlock()
	wantOffsets := []string{"", "itr1", "itr2"}
	if len(seenOffsets) != len(wantOffsets) {
		t.Fatalf("server saw %d requests, want %d", len(seenOffsets), len(wantOffsets))
	}
	for i := range wantOffsets {
		if seenOffsets[i] != wantOffsets[i] {
			t.Errorf("request %d offset = %q, want %q", i, seenOffsets[i], wantOffsets[i])
		}
	}
}

func TestListDailyMetricsRequestShape(t *testing.T) {
	var gotPath, gotAuth, gotPageSize string
	var gotHasOffset bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotPageSize = r.URL.Query().Get("pageSize")
		gotHasOffset = r.URL.Query().Has("offset")
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.BaseID = "appXYZ"
	cfg.MetricsTable = "Daily Metrics"
	cfg.PageSize = 25
	client := NewClient(cfg)

	_, info, err := client.ListDailyMetrics(context.Background(), "")
	if err != nil {
		t.Fatalf("ListDailyMetrics() error = %v", err)
	}

	if gotPath != "/appXYZ/Daily%20Metrics" {
		t.Errorf("path = %q, want /appXYZ/Daily%%20Metrics", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want Bearer test-key", gotAuth)
	}
	if gotPageSize != "25" {
		t.Errorf("pageSize = %q, want 25", gotPageSize)
	}
	if gotHasOffset {
		t.Error("first page request should carry no offset parameter")
	}
	if !info.Exhausted() {
		t.Error("empty listing without offset should be exhausted")
	}
}

func TestListDailyMetricsDecodesRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records":[{"id":"r1","createdTime":"2026-08-01T00:00:00.000Z","fields":{"Date":"2026-08-19","Dials":7}}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	records, info, err := client.ListDailyMetrics(context.Background(), "")
	if err != nil {
		t.Fatalf("ListDailyMetrics() error = %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ID != "r1" {
		t.Errorf("ID = %q, want r1", records[0].ID)
	}
	if _, ok := records[0].Fields["Dials"]; !ok {
		t.Error("Fields should carry the raw Dials cell")
	}
	if records[0].CreatedTime.IsZero() {
		t.Error("CreatedTime should parse")
	}
	if info.Returned != 1 {
		t.Errorf("Returned = %d, want 1", info.Returned)
	}
}

func TestFixedDelayBetweenRequests(t *testing.T) {
	rec := &requestRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record()
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RequestDelay = 100 * time.Millisecond
	client := NewClient(cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, _, err := client.ListDailyMetrics(ctx, ""); err != nil {
			t.Fatalf("ListDailyMetrics() error = %v", err)
		}
	}

	for i, gap := range rec.gaps() {
		if gap < 80*time.Millisecond {
			t.Errorf("gap %d = %v, want >= 80ms (fixed inter-request delay)", i, gap)
		}
	}
}

func TestFixedDelayAppliesDuringRetries(t *testing.T) {
	attempts := atomic.Int32{}
	rec := &requestRecorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record()
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RequestDelay = 60 * time.Millisecond
	client := NewClient(cfg)

	if _, _, err := client.ListDailyMetrics(context.Background(), ""); err != nil {
		t.Fatalf("ListDailyMetrics() error = %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}

	// Retries must still respect the minimum spacing, not just new requests.
	for i, gap := range rec.gaps() {
		if gap < 45*time.Millisecond {
			t.Errorf("retry gap %d = %v, want >= 45ms", i, gap)
		}
	}
}

func TestAuthErrorFatalNoRetry(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			attempts := atomic.Int32{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(status)
			}))
			defer server.Close()

			client := NewClient(testConfig(server.URL))
			_, _, err := client.ListDailyMetrics(context.Background(), "")

			var authErr *platform.AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("error = %v, want *platform.AuthError", err)
			}
			if authErr.StatusCode != status {
				t.Errorf("StatusCode = %d, want %d", authErr.StatusCode, status)
			}
			if got := attempts.Load(); got != 1 {
				t.Errorf("attempts = %d, want 1 (auth failures must not retry)", got)
			}
		})
	}
}

func TestRateLimitRetriesThenSucceeds(t *testing.T) {
	attempts := atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"records":[{"id":"rec1","fields":{}}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	records, _, err := client.ListDailyMetrics(context.Background(), "")
	if err != nil {
		t.Fatalf("ListDailyMetrics() error = %v", err)
	}

	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	if len(records) != 1 {
		t.Errorf("got %d records, want 1", len(records))
	}
}

func TestRateLimitHonorsRetryAfter(t *testing.T) {
	rec := &requestRecorder{}
	attempts := atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record()
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if _, _, err := client.ListDailyMetrics(context.Background(), ""); err != nil {
		t.Fatalf("ListDailyMetrics() error = %v", err)
	}

	gaps := rec.gaps()
	if len(gaps) != 1 {
		t.Fatalf("server saw %d gaps, want 1", len(gaps))
	}
	if gaps[0] < 900*time.Millisecond || gaps[0] > 1500*time.Millisecond {
		t.Errorf("retry gap = %v, want ~1s from Retry-After header", gaps[0])
	}
}

func TestRateLimitExhaustedEscalatesToTransient(t *testing.T) {
	attempts := atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, _, err := client.ListDailyMetrics(context.Background(), "")

	if !platform.IsTransient(err) {
		t.Fatalf("error = %v, want transient after exhausted retries", err)
	}
	if !platform.IsRateLimit(err) {
		t.Errorf("error = %v, should still classify as rate limited", err)
	}
	var te *platform.TransientError
	if errors.As(err, &te) && te.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", te.Attempts)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3 (MaxRetries=2)", got)
	}
}

func TestServerErrorFailsAfterRetries(t *testing.T) {
	attempts := atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "upstream exploded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, _, err := client.ListDailyMetrics(context.Background(), "")

	var te *platform.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *platform.TransientError", err)
	}
	if te.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", te.Attempts)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error = %v, want mention of the status code", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestClientErrorFailsFast(t *testing.T) {
	attempts := atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, `{"error":{"type":"TABLE_NOT_FOUND"}}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, _, err := client.ListDailyMetrics(context.Background(), "")

	var te *platform.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want *platform.TransientError", err)
	}
	if te.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 (4xx other than 429 does not retry)", te.Attempts)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want mention of the status code", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestNetworkErrorRetriesThenTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close() // every dial now fails

	cfg := testConfig(serverURL)
	cfg.MaxRetries = 1
	client := NewClient(cfg)

	_, _, err := client.ListDailyMetrics(context.Background(), "")
	if !platform.IsTransient(err) {
		t.Fatalf("error = %v, want transient for connection failures", err)
	}
	if platform.IsAuth(err) {
		t.Error("connection failure must not classify as an auth error")
	}
}

func TestMalformedBodyIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"records":[`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, _, err := client.ListDailyMetrics(context.Background(), "")
	if !platform.IsTransient(err) {
		t.Fatalf("error = %v, want transient for an undecodable body", err)
	}
}

func TestContextCancelDuringRetryWait(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "10")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, _, err := client.ListDailyMetrics(ctx, "")
	elapsed := time.Since(start)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if elapsed > time.Second {
		t.Errorf("cancellation took %v, should not wait out the Retry-After backoff", elapsed)
	}
}

func TestPingMinimalRequest(t *testing.T) {
	var gotPageSize string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPageSize = r.URL.Query().Get("pageSize")
		_, _ = w.Write([]byte(`{"records":[]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if gotPageSize != "1" {
		t.Errorf("pageSize = %q, want 1 (ping should fetch the minimum)", gotPageSize)
	}
}

func TestPingSurfacesAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	err := client.Ping(context.Background())
	if !platform.IsAuth(err) {
		t.Fatalf("Ping() error = %v, want auth error", err)
	}
}
