// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

/*
Package services provides suture.Service wrappers for Prospectus components.

This package adapts application components to the suture v4 supervision
model, translating their native lifecycle patterns (ListenAndServe,
Run/Close) into suture's context-aware Serve pattern.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

Queue (QueueService):
  - Wraps the queue consumer router's Run/Close lifecycle
  - Restarted by the messaging layer on consumer crashes

The scheduler needs no wrapper: it implements Serve(ctx) and String()
natively and is added to the tree directly.

# Error Handling

Return values determine supervisor behavior:

	nil         -> service stopped cleanly, will not restart
	error       -> service crashed, supervisor will restart
	ctx.Err()   -> shutdown requested, normal termination
*/
package services
