// Prospectus - Sales Engagement Analytics and Platform Sync
// Copyright 2026 Outbound Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/outboundlabs/prospectus

package platform

// PageInfo is the pagination envelope reported by list endpoints.
//
// Dialer-style sources fill Page/PageSize/TotalPages/TotalResults; tabular
// sources that paginate by opaque token fill NextOffset instead and leave the
// numeric fields zero. Exhausted reports termination for both styles.
type PageInfo struct {
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`
	TotalPages   int    `json:"total_pages"`
	TotalResults int    `json:"total_results"`
	NextOffset   string `json:"next_offset,omitempty"`

	// Returned is the number of records actually present on this page,
	// counted after shape normalization. A short page terminates the walk
	// even when the envelope promises more.
	Returned int `json:"returned"`
}

// Exhausted reports whether the walk over this resource is done: a short
// page, the last numbered page, or an empty continuation token.
func (p PageInfo) Exhausted() bool {
	if p.PageSize > 0 && p.Returned < p.PageSize {
		return true
	}
	if p.TotalPages > 0 && p.Page >= p.TotalPages {
		return true
	}
	if p.PageSize == 0 && p.TotalPages == 0 {
		// Token-paginated source: no token means no more pages.
		return p.NextOffset == ""
	}
	return false
}
