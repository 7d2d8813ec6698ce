// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Stream and subject layout. The stream captures everything under sync.>
// so the poison topic lands in the same durable store as the resumes.
const (
	// StreamName is the JetStream stream holding sync continuations.
	StreamName = "PROSPECTUS_SYNC"

	// TopicResume carries identity-only resume messages.
	TopicResume = "sync.resume"

	// streamMaxAge caps how long an unconsumed continuation survives. A
	// resume older than this is worthless: the scheduler will have
	// re-enqueued the stale connection long before.
	streamMaxAge = 24 * time.Hour
)

// StreamManager owns the lifecycle of the continuation stream.
type StreamManager struct {
	js              jetstream.JetStream
	duplicateWindow time.Duration
}

// NewStreamManager creates a stream manager on the given connection.
func NewStreamManager(nc *nats.Conn, duplicateWindow time.Duration) (*StreamManager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return &StreamManager{js: js, duplicateWindow: duplicateWindow}, nil
}

// EnsureStream creates the continuation stream or updates its configuration
// if it already exists. The duplicate window is the server-side msg-id
// suppression span: resumes for the same (workspace, platform) published
// within it collapse to a single delivery.
func (m *StreamManager) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{"sync.>"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     streamMaxAge,
		Duplicates: m.duplicateWindow,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}

	if _, err := m.js.Stream(ctx, StreamName); err == nil {
		stream, err := m.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", StreamName, err)
		}
		return stream, nil
	}

	stream, err := m.js.CreateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	return stream, nil
}

// Info returns current stream state, used by diagnostics.
func (m *StreamManager) Info(ctx context.Context) (*jetstream.StreamInfo, error) {
	stream, err := m.js.Stream(ctx, StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream %s: %w", StreamName, err)
	}
	return stream.Info(ctx)
}
