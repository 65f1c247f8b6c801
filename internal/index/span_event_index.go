package index

import (
	"signalstore/internal/iterx"
	"signalstore/internal/models"
)

// SpanEventIndex tracks every span-event timestamp (All) plus the subset
// belonging to each span (Spans), grounded on Venator's
// index/span_event_indexes.rs. Invariant: every timestamp appearing in any
// Spans bucket also appears in All.
type SpanEventIndex struct {
	All   []models.Timestamp
	Spans map[models.SpanKey][]models.Timestamp
}

func NewSpanEventIndex() *SpanEventIndex {
	return &SpanEventIndex{Spans: make(map[models.SpanKey][]models.Timestamp)}
}

func (idx *SpanEventIndex) Add(spanEvent *models.SpanEvent) {
	ts := spanEvent.Timestamp
	idx.All = iterx.InsertSorted(idx.All, ts)

	bucket := idx.Spans[spanEvent.SpanKey]
	idx.Spans[spanEvent.SpanKey] = iterx.InsertSorted(bucket, ts)
}

func (idx *SpanEventIndex) RemoveSpanEvents(keys []models.Timestamp) {
	idx.All = iterx.RemoveListSorted(idx.All, keys)
	for span, bucket := range idx.Spans {
		idx.Spans[span] = iterx.RemoveListSorted(bucket, keys)
	}
}

// RemoveSpans drops the per-span buckets for spans entirely (used when a
// span itself is dropped by retention).
func (idx *SpanEventIndex) RemoveSpans(spans []models.SpanKey) {
	for _, s := range spans {
		delete(idx.Spans, s)
	}
}
