// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockQueueRunner struct {
	err  error
	runs int
}

func (m *mockQueueRunner) Run(ctx context.Context) error {
	m.runs++
	if m.err != nil {
		return m.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestQueueServiceImplementsService(t *testing.T) {
	var _ suture.Service = (*QueueService)(nil)
}

func TestQueueServiceStopsOnCancel(t *testing.T) {
	svc := NewQueueService(&mockQueueRunner{})
	if svc.String() != "queue-consumer" {
		t.Errorf("name = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestQueueServicePropagatesCrash(t *testing.T) {
	crash := errors.New("router wedged")
	svc := NewQueueService(&mockQueueRunner{err: crash})

	err := svc.Serve(context.Background())
	if !errors.Is(err, crash) {
		t.Errorf("Serve returned %v, want wrapped crash", err)
	}
}

func TestQueueServiceShutdownUnwindNotACrash(t *testing.T) {
	// A router error surfaced while the context is already cancelled is
	// shutdown noise, not a crash worth restarting for.
	runner := &mockQueueRunner{err: errors.New("subscriber closed")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewQueueService(runner)
	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}
}
