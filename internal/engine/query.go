package engine

import (
	"signalstore/internal/iterx"
	"signalstore/internal/models"
)

// Query bundles a textual filter with ordering, pagination, and a time
// window, grounded on SPEC_FULL.md §6.1's Query object: {filter, order,
// limit, start, end, previous}. Limit and Previous are both zero-valued
// (unbounded / no cursor) by default.
type Query struct {
	Filter string      `json:"filter"`
	Order  iterx.Order `json:"order"`

	// Limit caps the number of rendered results; 0 means unbounded. Count
	// queries ignore Limit entirely — they report the true total.
	Limit uint32 `json:"limit,omitempty"`

	Start models.Timestamp `json:"start,omitempty"`
	End   models.Timestamp `json:"end,omitempty"`

	// Previous is a keyset-pagination cursor: results begin strictly
	// after it for Order==Asc, strictly before it for Order==Desc. Zero
	// means no cursor.
	Previous *models.Timestamp `json:"previous,omitempty"`
}

func (q Query) window() (models.Timestamp, models.Timestamp) {
	return q.Start, q.End
}
