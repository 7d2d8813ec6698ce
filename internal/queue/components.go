// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package queue

import (
	"context"
	"fmt"

	natsgo "github.com/nats-io/nats.go"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/logging"
)

// Components bundles the queue's moving parts behind one lifecycle. Start
// brings everything up in dependency order; Run drives the consumer; Close
// tears down in reverse.
type Components struct {
	cfg       *config.QueueConfig
	server    *EmbeddedServer
	nc        *natsgo.Conn
	streams   *StreamManager
	publisher *Publisher
	consumer  *Consumer
	processed *ProcessedStore
}

// Start assembles the queue: embedded server (when configured), stream,
// dedup store, publisher, and consumer. On any failure it unwinds what it
// already started and returns the cause.
func Start(ctx context.Context, cfg *config.QueueConfig, runner Runner) (c *Components, err error) {
	c = &Components{cfg: cfg}
	defer func() {
		if err != nil {
			c.Close(context.Background())
		}
	}()

	url := cfg.URL
	if cfg.EmbeddedServer {
		c.server, err = NewEmbeddedServer(cfg)
		if err != nil {
			return nil, err
		}
		url = c.server.ClientURL()
	}

	c.nc, err = natsgo.Connect(url,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(maxReconnects),
		natsgo.ReconnectWait(reconnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", logging.SanitizeURL(url), err)
	}

	c.streams, err = NewStreamManager(c.nc, cfg.DuplicateWindow)
	if err != nil {
		return nil, err
	}
	if _, err = c.streams.EnsureStream(ctx); err != nil {
		return nil, err
	}

	c.processed, err = OpenProcessedStore(cfg.DedupDir)
	if err != nil {
		return nil, err
	}

	logger := NewLoggerAdapter()
	c.publisher, err = NewPublisher(url, logger)
	if err != nil {
		return nil, err
	}

	c.consumer, err = NewConsumer(cfg, runner, c.publisher.WatermillPublisher(), c.processed, logger)
	if err != nil {
		return nil, err
	}

	logging.Info().
		Str("component", "queue").
		Str("stream", StreamName).
		Str("durable", cfg.DurableName).
		Dur("duplicate_window", cfg.DuplicateWindow).
		Msg("Continuation queue ready")
	return c, nil
}

// Publisher returns the resume publisher for wiring into the sync engine.
func (c *Components) Publisher() *Publisher {
	return c.publisher
}

// Run drives the consumer until the context is cancelled.
func (c *Components) Run(ctx context.Context) error {
	return c.consumer.Run(ctx)
}

// Ping reports queue connectivity for readiness checks.
func (c *Components) Ping(_ context.Context) error {
	if c.nc == nil || !c.nc.IsConnected() {
		return fmt.Errorf("NATS connection is down")
	}
	return nil
}

// Close tears down in reverse start order. Individual failures are logged
// and the first is returned; teardown always runs to completion.
func (c *Components) Close(ctx context.Context) error {
	var first error
	record := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if c.consumer != nil {
		record(c.consumer.Close())
	}
	if c.publisher != nil {
		record(c.publisher.Close())
	}
	if c.processed != nil {
		record(c.processed.Close())
	}
	if c.nc != nil {
		c.nc.Close()
	}
	if c.server != nil {
		record(c.server.Shutdown(ctx))
	}
	return first
}
