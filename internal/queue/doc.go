// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

// Package queue is the durable continuation transport for the sync engine.
//
// When a sync invocation exhausts its time budget it asks for a resume by
// publishing a small identity-only message to the PROSPECTUS_SYNC JetStream
// stream; a durable consumer picks it up and re-enters the engine at the
// persisted cursor. The process never re-invokes itself directly.
//
// Layers, outermost first:
//
//   - EmbeddedServer: an in-process NATS server with JetStream file storage,
//     for single-binary deployments. External NATS works by disabling it and
//     pointing QueueConfig.URL at the server.
//   - StreamManager: creates or updates the stream with a server-side msg-id
//     duplicate window, so repeated resumes for the same workspace collapse.
//   - Publisher: a Watermill JetStream publisher with TrackMsgId enabled and
//     a deterministic per-(workspace, platform) message id. Implements the
//     engine's Continuer contract.
//   - Consumer: a Watermill router (recoverer, bounded retry, poison topic)
//     driving a durable subscriber that feeds resumes back into the engine.
//   - ProcessedStore: a BadgerDB record of handled message ids, covering
//     redeliveries that outlive the JetStream duplicate window.
//
// Everything is toggled by QueueConfig.Enabled; with the queue off the
// engine degrades to resuming on the next scheduler tick or manual run.
package queue
