// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package sync

import "time"

// defaultBudget is the invocation ceiling when the configuration carries
// none. It leaves headroom under a typical 60s job runtime limit.
const defaultBudget = 45 * time.Second

// Budget tracks the wall-clock ceiling of one sync invocation. It is a soft
// limit: work in flight always finishes, and the check happens between units
// of work, after the cursor for the next unit is persisted. The first unit of
// every invocation runs unconditionally, so a sync always moves forward no
// matter how small the ceiling.
type Budget struct {
	start   time.Time
	ceiling time.Duration
	clock   func() time.Time
}

// NewBudget starts a budget clocked by time.Now.
func NewBudget(ceiling time.Duration) *Budget {
	return newBudget(ceiling, time.Now)
}

// newBudget starts a budget on an explicit clock. Tests step the clock to
// exercise exits deterministically.
func newBudget(ceiling time.Duration, clock func() time.Time) *Budget {
	if ceiling <= 0 {
		ceiling = defaultBudget
	}
	if clock == nil {
		clock = time.Now
	}
	return &Budget{start: clock(), ceiling: ceiling, clock: clock}
}

// Ceiling returns the configured limit.
func (b *Budget) Ceiling() time.Duration {
	return b.ceiling
}

// Elapsed returns the time spent since the budget started.
func (b *Budget) Elapsed() time.Duration {
	return b.clock().Sub(b.start)
}

// Remaining returns the time left, zero once spent.
func (b *Budget) Remaining() time.Duration {
	rem := b.ceiling - b.Elapsed()
	if rem < 0 {
		return 0
	}
	return rem
}

// Exceeded reports whether the ceiling has been reached.
func (b *Budget) Exceeded() bool {
	return b.Elapsed() >= b.ceiling
}
