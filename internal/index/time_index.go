// Package index holds the secondary structures the query planner consults:
// time, level, value, span-duration, and span-parent indexes. All of them
// are rebuilt from storage on open and mutated only by the single engine
// worker.
package index

import (
	"signalstore/internal/iterx"
	"signalstore/internal/models"
)

// TimeIndex is the universal fallback index: every timestamp of one entity
// kind, kept sorted. Any filter leaf the planner cannot satisfy with a more
// selective index falls back to scanning this one with a residual
// predicate attached.
type TimeIndex struct {
	all []models.Timestamp
}

func NewTimeIndex() *TimeIndex {
	return &TimeIndex{}
}

// Add inserts ts using binary-expansion search from the tail, since new
// entities almost always arrive at or near the current high watermark.
func (idx *TimeIndex) Add(ts models.Timestamp) {
	idx.all = iterx.InsertSorted(idx.all, ts)
}

// Remove drops every timestamp in keys (keys must be sorted) in a single
// compacting pass.
func (idx *TimeIndex) Remove(keys []models.Timestamp) {
	idx.all = iterx.RemoveListSorted(idx.all, keys)
}

// All returns the live backing slice; callers must not mutate it.
func (idx *TimeIndex) All() []models.Timestamp { return idx.all }

func (idx *TimeIndex) Len() int { return len(idx.all) }

// Scan builds a fresh IndexIterator over the window [lo, hi], with an
// optional residual predicate attached for leaves the time index alone
// cannot fully resolve.
func (idx *TimeIndex) Scan(lo, hi models.Timestamp, filter func(models.Timestamp) bool) *iterx.IndexIterator[models.Timestamp] {
	start := iterx.LowerBound(idx.all, lo)
	end := iterx.UpperBound(idx.all, hi)
	return iterx.NewIndexIterator(idx.all[start:end], filter)
}
