// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package sync

import (
	"context"

	"github.com/outboundlabs/prospectus/internal/logging"
	"github.com/outboundlabs/prospectus/internal/metrics"
	"github.com/outboundlabs/prospectus/internal/platform"
)

// maxConsecutiveSkips bounds how many pages in a row the walker abandons to
// transient trouble before giving the error back to the caller. A single
// flaky page heals on the next pass; a wall of them means the platform is
// down and the invocation should stop.
const maxConsecutiveSkips = 3

// pageFetcher returns one numbered page of raw records with its pagination
// envelope. Pages are 1-based.
type pageFetcher[T any] func(ctx context.Context, page int) ([]T, platform.PageInfo, error)

// offsetFetcher returns one page addressed by an opaque continuation token.
// An empty token means the first page.
type offsetFetcher[T any] func(ctx context.Context, offset string) ([]T, platform.PageInfo, error)

// pageHandler consumes one fetched page: normalize, write, count.
type pageHandler[T any] func(ctx context.Context, items []T) error

// pageSaver persists the cursor for the next page so a later invocation
// resumes after the pages already handled.
type pageSaver func(ctx context.Context, nextPage int) error

// offsetSaver persists the continuation token for the next page.
type offsetSaver func(ctx context.Context, nextOffset string) error

// walkPages crawls numbered pages from startPage until the source reports
// exhaustion or the budget runs out. After each page the cursor for the next
// one is persisted first and the budget is checked second, so an early exit
// never loses a handled page. The return value reports exhaustion: true
// means the resource is fully crawled, false with a nil error means the
// budget stopped the walk mid-resource.
//
// A fetch that still fails with a transient error after the client's own
// retries is skipped: the cursor advances past it and the walk continues,
// up to maxConsecutiveSkips pages in a row. Every other error ends the walk.
func walkPages[T any](ctx context.Context, budget *Budget, startPage int, fetch pageFetcher[T], handle pageHandler[T], save pageSaver) (bool, error) {
	page := startPage
	if page < 1 {
		page = 1
	}

	skips := 0
	for {
		items, info, err := fetch(ctx, page)
		if err != nil {
			if !platform.IsTransient(err) {
				return false, err
			}
			skips++
			if skips >= maxConsecutiveSkips {
				return false, err
			}
			logging.Warn().
				Err(err).
				Int("page", page).
				Msg("Skipping page after exhausted retries")
			metrics.SyncErrors.WithLabelValues("transient").Inc()
		} else {
			skips = 0
			if err := handle(ctx, items); err != nil {
				return false, err
			}
			if info.Exhausted() {
				return true, nil
			}
		}

		page++
		if err := save(ctx, page); err != nil {
			return false, err
		}
		if budget.Exceeded() {
			return false, nil
		}
	}
}

// walkOffsets crawls token-addressed pages from startOffset, with the same
// persist-then-check contract as walkPages. Token pagination cannot skip a
// failed page, so any fetch error ends the walk.
func walkOffsets[T any](ctx context.Context, budget *Budget, startOffset string, fetch offsetFetcher[T], handle pageHandler[T], save offsetSaver) (bool, error) {
	offset := startOffset
	for {
		items, info, err := fetch(ctx, offset)
		if err != nil {
			return false, err
		}
		if err := handle(ctx, items); err != nil {
			return false, err
		}
		if info.Exhausted() {
			return true, nil
		}

		offset = info.NextOffset
		if err := save(ctx, offset); err != nil {
			return false, err
		}
		if budget.Exceeded() {
			return false, nil
		}
	}
}
