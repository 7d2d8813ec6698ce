// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package airtable

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/outboundlabs/prospectus/internal/models"
	"github.com/outboundlabs/prospectus/internal/platform"
)

// recordID narrows platform.RecordID to this platform's records.
func recordID(kind, workspaceID, externalID string) uuid.UUID {
	return platform.RecordID(models.PlatformAirtable, kind, workspaceID, externalID)
}

// metricDateLayouts covers Airtable's date and dateTime column string forms.
var metricDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// NormalizeMetricRecord maps one Airtable row to a canonical daily metric.
// Column names resolve leniently (case, spaces, underscores and hyphens are
// ignored) and counter cells parse strictly-then-zero. Only a missing record
// id or an unresolvable date skips the row, via platform.ErrSkipRecord.
func NormalizeMetricRecord(workspaceID string, raw Record) (models.DailyMetric, error) {
	if raw.ID == "" {
		return models.DailyMetric{}, platform.ErrSkipRecord
	}

	cells := canonicalFields(raw.Fields)
	day, ok := cellTime(cells, "date", "day")
	if !ok {
		return models.DailyMetric{}, platform.ErrSkipRecord
	}

	now := time.Now().UTC()
	return models.DailyMetric{
		ID:            recordID("metric", workspaceID, raw.ID),
		WorkspaceID:   workspaceID,
		ExternalID:    raw.ID,
		Platform:      models.PlatformAirtable,
		Date:          day,
		Dials:         cellInt(cells, "dials", "calls"),
		Connects:      cellInt(cells, "connects", "connections"),
		Conversations: cellInt(cells, "conversations", "convos"),
		EmailsSent:    cellInt(cells, "emailssent", "emails"),
		TalkSeconds:   cellInt(cells, "talkseconds", "talktime"),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// canonicalFields rekeys a row by canonical column name, so user renames
// like "Emails Sent" -> "emails_sent" keep resolving to the same column.
func canonicalFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	cells := make(map[string]json.RawMessage, len(fields))
	for key, val := range fields {
		cells[canonicalKey(key)] = val
	}
	return cells
}

// canonicalKey lowercases a column name and strips spaces, underscores and
// hyphens.
func canonicalKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		if r == ' ' || r == '_' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// cell returns the first cell present among the candidate canonical names.
func cell(cells map[string]json.RawMessage, names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		if raw, ok := cells[name]; ok {
			return raw, true
		}
	}
	return nil, false
}

// cellInt reads a counter cell: a JSON number parses (floats truncate), a
// numeric string parses, anything else counts as zero. Once a column is
// found its value decides; junk does not fall through to alias columns.
func cellInt(cells map[string]json.RawMessage, names ...string) int {
	raw, ok := cell(cells, names...)
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return int(v)
		}
	}
	return 0
}

// cellTime reads a date cell, accepting Airtable's date and dateTime string
// forms, truncated to the UTC day.
func cellTime(cells map[string]json.RawMessage, names ...string) (time.Time, bool) {
	raw, ok := cell(cells, names...)
	if !ok {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	for _, layout := range metricDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), true
		}
	}
	return time.Time{}, false
}
