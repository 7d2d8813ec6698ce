// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package airtable

import (
	"time"

	"github.com/goccy/go-json"
)

// Record is one Airtable row as returned by the list endpoint. Fields stay
// raw JSON; NormalizeMetricRecord resolves column names and cell types
// leniently, because the table is maintained by hand and its schema drifts.
type Record struct {
	ID          string                     `json:"id"`
	CreatedTime time.Time                  `json:"createdTime"`
	Fields      map[string]json.RawMessage `json:"fields"`
}

// listResponse is the list endpoint envelope. Offset is the opaque token for
// the next page; the final page omits it.
type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}
