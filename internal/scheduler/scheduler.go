// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

// Package scheduler periodically re-enqueues syncs for active connections
// whose data has gone stale. It is the fallback continuation path too:
// when the queue is down, a paused sync simply waits for the next tick.
package scheduler

import (
	"context"
	"time"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/models"
)

// Store lists connections due for a sync.
type Store interface {
	ListConnectionsDueForSync(ctx context.Context, staleAfter time.Duration) ([]models.SyncConnection, error)
}

// Enqueuer hands a due connection to the continuation queue.
type Enqueuer interface {
	EnqueueResume(ctx context.Context, workspaceID, platformName string) error
}

// Runner invokes the sync engine directly, used when no queue is wired.
type Runner interface {
	RunStep(ctx context.Context, req models.SyncRunRequest) (*models.SyncRunResponse, error)
}

// Scheduler ticks at a configured interval and dispatches due connections.
// With a queue it enqueues resume messages (deduplicated server-side); in
// degraded mode it runs the engine inline, one connection at a time.
type Scheduler struct {
	store    Store
	enqueuer Enqueuer // nil when the queue is disabled
	runner   Runner
	interval time.Duration
	stale    time.Duration
}

// New creates a scheduler. enqueuer may be nil; runner must not be.
func New(store Store, enqueuer Enqueuer, runner Runner, cfg *config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		store:    store,
		enqueuer: enqueuer,
		runner:   runner,
		interval: cfg.Interval,
		stale:    cfg.StaleAfter,
	}
}

// Serve runs the tick loop until the context is cancelled. It fires once
// immediately so a restart does not wait a full interval to pick up work.
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// String names the service in supervisor logs.
func (s *Scheduler) String() string {
	return "scheduler"
}

// tick dispatches every due connection. Failures are logged per
// connection and never abort the tick: one broken workspace must not
// starve the rest.
func (s *Scheduler) tick(ctx context.Context) {
	conns, err := s.store.ListConnectionsDueForSync(ctx, s.stale)
	if err != nil {
		logging.Error().Err(err).Str("component", "scheduler").Msg("Failed to list due connections")
		return
	}
	if len(conns) == 0 {
		return
	}

	logging.Debug().
		Str("component", "scheduler").
		Int("due", len(conns)).
		Msg("Dispatching due connections")

	for i := range conns {
		s.dispatch(ctx, &conns[i])
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, conn *models.SyncConnection) {
	if s.enqueuer != nil {
		err := s.enqueuer.EnqueueResume(ctx, conn.WorkspaceID, conn.Platform)
		if err == nil {
			return
		}
		logging.Warn().Err(err).
			Str("component", "scheduler").
			Str("workspace_id", conn.WorkspaceID).
			Str("platform", conn.Platform).
			Msg("Enqueue failed, running sync inline")
	}

	resp, err := s.runner.RunStep(ctx, models.SyncRunRequest{
		WorkspaceID: conn.WorkspaceID,
		Platform:    conn.Platform,
	})
	if err != nil {
		logging.Error().Err(err).
			Str("component", "scheduler").
			Str("workspace_id", conn.WorkspaceID).
			Str("platform", conn.Platform).
			Msg("Scheduled sync failed")
		return
	}

	logging.Info().
		Str("component", "scheduler").
		Str("workspace_id", conn.WorkspaceID).
		Str("platform", conn.Platform).
		Str("status", string(resp.Status)).
		Str("phase", string(resp.Phase)).
		Msg("Scheduled sync step finished")
}
