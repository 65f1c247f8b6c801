package index

import "signalstore/internal/models"

// durationEntry orders a span by (duration, key) so that equal durations
// still produce a deterministic, stable ordering.
type durationEntry struct {
	duration int64
	key      models.SpanKey
}

func (a durationEntry) less(b durationEntry) bool {
	if a.duration != b.duration {
		return a.duration < b.duration
	}
	return a.key < b.key
}

// SpanDurationIndex tracks closed spans sorted by (closed_at - created_at)
// and keeps still-open spans in a separate unordered set, per §4.2: spans
// move from the open bucket to the closed bucket exactly once, when their
// close is observed.
type SpanDurationIndex struct {
	closed []durationEntry
	open   map[models.SpanKey]struct{}
}

func NewSpanDurationIndex() *SpanDurationIndex {
	return &SpanDurationIndex{open: make(map[models.SpanKey]struct{})}
}

func (idx *SpanDurationIndex) AddOpen(key models.SpanKey) {
	idx.open[key] = struct{}{}
}

// Close moves a span from the open bucket into the closed, duration-sorted
// bucket. It is a no-op if the span was not tracked as open (e.g. it was
// already closed at insert time via AddClosed).
func (idx *SpanDurationIndex) Close(key models.SpanKey, duration int64) {
	if _, ok := idx.open[key]; !ok {
		return
	}
	delete(idx.open, key)
	idx.insertClosed(key, duration)
}

// AddClosed directly inserts a span whose duration is already known at
// insert time (it was created and closed in the same record).
func (idx *SpanDurationIndex) AddClosed(key models.SpanKey, duration int64) {
	idx.insertClosed(key, duration)
}

func (idx *SpanDurationIndex) insertClosed(key models.SpanKey, duration int64) {
	entry := durationEntry{duration: duration, key: key}
	i := durationUpperBound(idx.closed, entry)
	idx.closed = append(idx.closed, durationEntry{})
	copy(idx.closed[i+1:], idx.closed[i:len(idx.closed)-1])
	idx.closed[i] = entry
}

func durationUpperBound(s []durationEntry, item durationEntry) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if !item.less(s[mid]) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Remove drops spans from whichever bucket currently holds them.
func (idx *SpanDurationIndex) Remove(keys []models.SpanKey) {
	keySet := make(map[models.SpanKey]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
		delete(idx.open, k)
	}

	write := 0
	for _, e := range idx.closed {
		if _, dropped := keySet[e.key]; dropped {
			continue
		}
		idx.closed[write] = e
		write++
	}
	idx.closed = idx.closed[:write]
}

// KeysInDurationRange returns the keys of closed spans whose duration lies
// in [lo, hi], in ascending duration order.
func (idx *SpanDurationIndex) KeysInDurationRange(lo, hi int64) []models.SpanKey {
	start := durationUpperBound(idx.closed, durationEntry{duration: lo - 1, key: -1 << 62})
	end := durationUpperBound(idx.closed, durationEntry{duration: hi, key: 1<<62 - 1})
	out := make([]models.SpanKey, 0, end-start)
	for _, e := range idx.closed[start:end] {
		out = append(out, e.key)
	}
	return out
}

func (idx *SpanDurationIndex) OpenCount() int   { return len(idx.open) }
func (idx *SpanDurationIndex) ClosedCount() int { return len(idx.closed) }
