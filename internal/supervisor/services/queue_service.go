// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package services

import (
	"context"
	"fmt"
)

// QueueRunner matches the consumer-driving surface of queue.Components.
type QueueRunner interface {
	Run(ctx context.Context) error
}

// QueueService wraps the continuation queue's consumer router as a
// supervised service. The embedded NATS server, connection, and stores
// are started once in main and outlive restarts of this service; only
// the router's Run loop is supervised here, so a consumer crash gets a
// clean restart without re-provisioning the stream.
type QueueService struct {
	runner QueueRunner
	name   string
}

// NewQueueService creates a supervised wrapper around the queue consumer.
func NewQueueService(runner QueueRunner) *QueueService {
	return &QueueService{
		runner: runner,
		name:   "queue-consumer",
	}
}

// Serve implements suture.Service. Run blocks until the context is
// cancelled or the router fails.
func (q *QueueService) Serve(ctx context.Context) error {
	if err := q.runner.Run(ctx); err != nil {
		if ctx.Err() != nil {
			// Shutdown in progress; the router error is just the unwind.
			return ctx.Err()
		}
		return fmt.Errorf("queue consumer failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor log messages.
func (q *QueueService) String() string {
	return q.name
}
