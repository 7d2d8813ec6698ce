// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/metrics"
	"github.com/outboundlabs/prospectus/internal/models"
)

// Connection resilience settings shared by publisher and subscriber.
const (
	maxReconnects = 10
	reconnectWait = 2 * time.Second
)

// Publisher enqueues durable resume messages. It satisfies the sync
// engine's Continuer contract: a paused invocation calls EnqueueResume and
// returns; the consumer re-enters the engine from the persisted cursor.
type Publisher struct {
	publisher message.Publisher
	logger    watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

// NewPublisher creates a Watermill JetStream publisher against the
// pre-created continuation stream. TrackMsgId is enabled so the stream's
// duplicate window applies to our deterministic message ids.
func NewPublisher(url string, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = NewLoggerAdapter()
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOptions(logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // stream is created by StreamManager
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{publisher: pub, logger: logger}, nil
}

// EnqueueResume publishes an identity-only continuation for the given
// connection. The message id is deterministic per (workspace, platform), so
// repeated enqueues inside the stream's duplicate window collapse into one
// delivery. Replays past the window are still harmless: the engine
// re-checks the session lock and phase before doing any work.
func (p *Publisher) EnqueueResume(ctx context.Context, workspaceID, platformName string) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("queue publisher is closed")
	}
	p.mu.RUnlock()

	payload, err := json.Marshal(models.ResumeMessage{
		WorkspaceID: workspaceID,
		Platform:    platformName,
	})
	if err != nil {
		return fmt.Errorf("encode resume message: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(natsgo.MsgIdHdr, resumeMsgID(workspaceID, platformName))

	if err := p.publisher.Publish(TopicResume, msg); err != nil {
		metrics.QueuePublishErrors.Inc()
		return fmt.Errorf("publish resume for %s/%s: %w", workspaceID, platformName, err)
	}

	metrics.QueueMessagesPublished.Inc()
	logging.Debug().
		Str("component", "queue").
		Str("workspace_id", workspaceID).
		Str("platform", platformName).
		Str("message_uuid", msg.UUID).
		Msg("Resume enqueued")
	return nil
}

// Close shuts the publisher down. Further EnqueueResume calls fail, which
// the engine tolerates as a degraded continuation.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// WatermillPublisher exposes the underlying publisher for middleware that
// needs the native interface, such as the poison queue.
func (p *Publisher) WatermillPublisher() message.Publisher {
	return p.publisher
}

// resumeMsgID builds the deterministic Nats-Msg-Id for a connection's
// continuations.
func resumeMsgID(workspaceID, platformName string) string {
	return "resume:" + workspaceID + ":" + platformName
}

// natsOptions returns the shared connection options with reconnection
// handling wired to the queue logger.
func natsOptions(logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(maxReconnects),
		natsgo.ReconnectWait(reconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, sub *natsgo.Subscription, err error) {
			fields := watermill.LogFields{}
			if sub != nil {
				fields["subject"] = sub.Subject
			}
			logger.Error("NATS error", err, fields)
		}),
	}
}
