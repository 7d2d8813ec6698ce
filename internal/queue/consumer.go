// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/outboundlabs/prospectus/internal/config"
	"github.com/outboundlabs/prospectus/internal/database"
	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/metrics"
	"github.com/outboundlabs/prospectus/internal/models"
	syncengine "github.com/outboundlabs/prospectus/internal/sync"
)

// Runner is the slice of the sync engine the consumer drives.
type Runner interface {
	RunStep(ctx context.Context, req models.SyncRunRequest) (*models.SyncRunResponse, error)
}

// Subscriber delivery settings. One continuation at a time: resumes are
// cheap to enqueue and expensive to run, and the engine's session lock
// would reject concurrent deliveries for the same workspace anyway.
const (
	consumerMaxDeliver    = 5
	consumerMaxAckPending = 1
	consumerAckWait       = 90 * time.Second // engine budget + persistence headroom
)

// Consumer drives resume messages from the continuation stream back into
// the sync engine. It owns a durable JetStream subscriber and a Watermill
// router with recovery, bounded retry, and a poison topic for messages
// that keep failing.
type Consumer struct {
	router    *message.Router
	processed *ProcessedStore
	runner    Runner
	logger    watermill.LoggerAdapter
}

// NewConsumer builds the subscriber and router and registers the resume
// handler. Run starts consumption.
func NewConsumer(
	cfg *config.QueueConfig,
	runner Runner,
	poison message.Publisher,
	processed *ProcessedStore,
	logger watermill.LoggerAdapter,
) (*Consumer, error) {
	if logger == nil {
		logger = NewLoggerAdapter()
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(consumerMaxDeliver),
		natsgo.MaxAckPending(consumerMaxAckPending),
		natsgo.AckWait(consumerAckWait),
		natsgo.DeliverNew(),
		natsgo.BindStream(StreamName),
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:            cfg.URL,
		AckWaitTimeout: consumerAckWait,
		CloseTimeout:   cfg.RouterCloseTimeout,
		NatsOptions:    natsOptions(logger),
		Unmarshaler:    &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.RouterCloseTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	c := &Consumer{
		router:    router,
		processed: processed,
		runner:    runner,
		logger:    logger,
	}

	// Middleware, outer to inner: panics become errors, transient failures
	// retry with backoff, persistent failures land on the poison topic.
	router.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      cfg.RouterRetryCount,
		InitialInterval: cfg.RouterRetryInitialInterval,
		MaxInterval:     time.Minute,
		Multiplier:      2.0,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)
	if poison != nil && cfg.PoisonTopic != "" {
		poisonQueue, err := middleware.PoisonQueue(poison, cfg.PoisonTopic)
		if err != nil {
			return nil, fmt.Errorf("create poison queue middleware: %w", err)
		}
		router.AddMiddleware(poisonQueue)
	}

	router.AddConsumerHandler("sync-resume", TopicResume, sub, c.handleResume)
	return c, nil
}

// Run starts the router and blocks until the context is cancelled. The
// router closes its subscriber on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running returns a channel that closes once the router is consuming.
func (c *Consumer) Running() <-chan struct{} {
	return c.router.Running()
}

// Close stops the router, waiting up to its close timeout for the in-flight
// handler.
func (c *Consumer) Close() error {
	return c.router.Close()
}

// handleResume re-enters the sync engine for one continuation. Returning
// nil acks; returning an error triggers retry and eventually the poison
// topic. Permanent conditions (connection deleted or disabled since the
// resume was enqueued) ack immediately: retrying cannot fix them.
func (c *Consumer) handleResume(msg *message.Message) error {
	ctx := msg.Context()

	var resume models.ResumeMessage
	if err := json.Unmarshal(msg.Payload, &resume); err != nil {
		return fmt.Errorf("decode resume message %s: %w", msg.UUID, err)
	}

	seen, err := c.processed.Seen(msg.UUID)
	if err != nil {
		return err
	}
	if seen {
		metrics.QueueMessagesDeduplicated.Inc()
		logging.Debug().
			Str("component", "queue").
			Str("message_uuid", msg.UUID).
			Str("workspace_id", resume.WorkspaceID).
			Msg("Duplicate resume delivery skipped")
		return nil
	}

	resp, err := c.runner.RunStep(ctx, models.SyncRunRequest{
		WorkspaceID: resume.WorkspaceID,
		Platform:    resume.Platform,
	})
	if err != nil {
		if isPermanentResumeError(err) {
			logging.Warn().Err(err).
				Str("component", "queue").
				Str("workspace_id", resume.WorkspaceID).
				Str("platform", resume.Platform).
				Msg("Dropping resume for unusable connection")
			return c.markHandled(msg.UUID)
		}
		return fmt.Errorf("resume %s/%s: %w", resume.WorkspaceID, resume.Platform, err)
	}

	metrics.QueueMessagesConsumed.Inc()
	logging.Info().
		Str("component", "queue").
		Str("workspace_id", resume.WorkspaceID).
		Str("platform", resume.Platform).
		Str("status", string(resp.Status)).
		Str("phase", string(resp.Phase)).
		Bool("needs_continuation", resp.NeedsContinuation).
		Msg("Resume step executed")

	// If the step paused again the engine has already enqueued the next
	// continuation; nothing more to do here.
	return c.markHandled(msg.UUID)
}

// markHandled records the id and acks even if the record fails: losing a
// dedup entry means at most one redundant engine invocation, which the
// session lock absorbs.
func (c *Consumer) markHandled(messageID string) error {
	if err := c.processed.Mark(messageID); err != nil {
		logging.Error().Err(err).
			Str("component", "queue").
			Str("message_uuid", messageID).
			Msg("Failed to record processed resume")
	}
	return nil
}

// isPermanentResumeError reports whether retrying the delivery can never
// succeed.
func isPermanentResumeError(err error) bool {
	return errors.Is(err, database.ErrConnectionNotFound) ||
		errors.Is(err, syncengine.ErrConnectionDisabled) ||
		errors.Is(err, syncengine.ErrWorkspaceRequired)
}
