// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/outboundlabs/prospectus/internal/logging"
)

// processedKeyPrefix namespaces dedup entries inside the Badger store.
const processedKeyPrefix = "queue:processed:"

// processedTTL is how long a handled message id is remembered. It must
// outlive the JetStream redelivery horizon (MaxDeliver x AckWait plus
// consumer downtime), which the duplicate window does not cover.
const processedTTL = 24 * time.Hour

// ProcessedStore records message ids the consumer has fully handled. The
// JetStream duplicate window suppresses duplicate publishes; this store
// suppresses duplicate deliveries, which can arrive long after the window
// when an ack is lost or the process crashes mid-handle.
type ProcessedStore struct {
	db *badger.DB
}

// OpenProcessedStore opens (or creates) the Badger store at dir.
func OpenProcessedStore(dir string) (*ProcessedStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Badger's own logger is noisy; failures surface as errors.

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open dedup store at %s: %w", dir, err)
	}
	return &ProcessedStore{db: db}, nil
}

// Seen reports whether the message id was already handled.
func (s *ProcessedStore) Seen(messageID string) (bool, error) {
	var seen bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(processedKeyPrefix + messageID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		seen = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check processed id: %w", err)
	}
	return seen, nil
}

// Mark records the message id as handled. Entries expire after
// processedTTL so the store stays bounded.
func (s *ProcessedStore) Mark(messageID string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(processedKeyPrefix+messageID), nil).
			WithTTL(processedTTL)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("mark processed id: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying store.
func (s *ProcessedStore) Close() error {
	if err := s.db.Close(); err != nil {
		logging.Error().Err(err).Str("component", "queue").Msg("Failed to close dedup store")
		return err
	}
	return nil
}
