// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/models"
)

type fakeStore struct {
	conns []models.SyncConnection
	err   error
	calls int
}

func (s *fakeStore) ListConnectionsDueForSync(context.Context, time.Duration) ([]models.SyncConnection, error) {
	s.calls++
	return s.conns, s.err
}

type fakeEnqueuer struct {
	enqueued []string
	err      error
}

func (e *fakeEnqueuer) EnqueueResume(_ context.Context, workspaceID, platformName string) error {
	if e.err != nil {
		return e.err
	}
	e.enqueued = append(e.enqueued, workspaceID+"/"+platformName)
	return nil
}

type fakeRunner struct {
	runs []models.SyncRunRequest
	err  error
}

func (r *fakeRunner) RunStep(_ context.Context, req models.SyncRunRequest) (*models.SyncRunResponse, error) {
	r.runs = append(r.runs, req)
	if r.err != nil {
		return nil, r.err
	}
	return &models.SyncRunResponse{Status: models.RunStatusComplete, Phase: models.PhaseComplete}, nil
}

func testConfig() *config.SchedulerConfig {
	return &config.SchedulerConfig{Enabled: true, Interval: time.Minute, StaleAfter: time.Hour}
}

func dueConns() []models.SyncConnection {
	return []models.SyncConnection{
		{WorkspaceID: "ws-1", Platform: models.PlatformPhoneBurner, IsActive: true},
		{WorkspaceID: "ws-2", Platform: models.PlatformAirtable, IsActive: true},
	}
}

func TestTickEnqueuesDueConnections(t *testing.T) {
	store := &fakeStore{conns: dueConns()}
	enq := &fakeEnqueuer{}
	runner := &fakeRunner{}
	s := New(store, enq, runner, testConfig())

	s.tick(context.Background())

	if len(enq.enqueued) != 2 {
		t.Fatalf("enqueued %d connections, want 2", len(enq.enqueued))
	}
	if len(runner.runs) != 0 {
		t.Errorf("engine ran inline despite a working queue: %v", runner.runs)
	}
}

func TestTickFallsBackToInlineRun(t *testing.T) {
	store := &fakeStore{conns: dueConns()}
	enq := &fakeEnqueuer{err: errors.New("queue down")}
	runner := &fakeRunner{}
	s := New(store, enq, runner, testConfig())

	s.tick(context.Background())

	if len(runner.runs) != 2 {
		t.Fatalf("engine ran %d times, want 2 when enqueue fails", len(runner.runs))
	}
}

func TestTickWithoutQueueRunsInline(t *testing.T) {
	store := &fakeStore{conns: dueConns()}
	runner := &fakeRunner{}
	s := New(store, nil, runner, testConfig())

	s.tick(context.Background())

	if len(runner.runs) != 2 {
		t.Fatalf("engine ran %d times, want 2 with no queue", len(runner.runs))
	}
}

func TestTickSurvivesPerConnectionFailures(t *testing.T) {
	store := &fakeStore{conns: dueConns()}
	runner := &fakeRunner{err: errors.New("platform unavailable")}
	s := New(store, nil, runner, testConfig())

	// Must not panic and must try every connection.
	s.tick(context.Background())
	if len(runner.runs) != 2 {
		t.Errorf("engine ran %d times, want 2 even when runs fail", len(runner.runs))
	}
}

func TestTickListFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("db closed")}
	runner := &fakeRunner{}
	s := New(store, nil, runner, testConfig())

	s.tick(context.Background())
	if len(runner.runs) != 0 {
		t.Error("engine ran despite list failure")
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	s := New(store, nil, &fakeRunner{}, &config.SchedulerConfig{
		Interval:   10 * time.Millisecond,
		StaleAfter: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop after cancel")
	}

	if store.calls < 2 {
		t.Errorf("store listed %d times, want immediate tick plus interval ticks", store.calls)
	}
}
