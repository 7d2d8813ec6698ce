// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package platform

import "github.com/google/uuid"

// RecordID derives a deterministic UUID from a record's identity, so
// re-normalizing the same platform record always yields the same internal
// id. Upserts key on (workspace_id, external_id) regardless; the stable id
// keeps logs and queue messages consistent across runs. Every normalizer
// must derive ids through here so the rule never forks per platform.
func RecordID(platformName, kind, workspaceID, externalID string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(platformName+":"+kind+":"+workspaceID+":"+externalID))
}
