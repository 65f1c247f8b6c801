package index

import (
	"signalstore/internal/iterx"
	"signalstore/internal/models"
)

// ParentIndex maps each span to its sorted transitive descendant spans and
// events. Spans may reference a parent that has not been inserted yet
// (forward reference); when that parent later arrives and the link is
// bound via BindSpanParent, the existing descendants of the child are
// folded into the parent's (and the parent's ancestors') descendant sets.
type ParentIndex struct {
	parentOf         map[models.SpanKey]models.SpanKey
	descendantSpans  map[models.SpanKey][]models.SpanKey
	descendantEvents map[models.SpanKey][]models.EventKey
}

func NewParentIndex() *ParentIndex {
	return &ParentIndex{
		parentOf:         make(map[models.SpanKey]models.SpanKey),
		descendantSpans:  make(map[models.SpanKey][]models.SpanKey),
		descendantEvents: make(map[models.SpanKey][]models.EventKey),
	}
}

// ancestorsOf walks the parent chain from key upward, inclusive neither of
// key nor of any cycle member (cycles are rejected at bind time, but this
// walk guards defensively against one slipping through).
func (idx *ParentIndex) ancestorsOf(key models.SpanKey) []models.SpanKey {
	var out []models.SpanKey
	seen := map[models.SpanKey]struct{}{key: {}}
	cur := key
	for {
		p, ok := idx.parentOf[cur]
		if !ok {
			return out
		}
		if _, cycle := seen[p]; cycle {
			return out
		}
		out = append(out, p)
		seen[p] = struct{}{}
		cur = p
	}
}

// wouldCycle reports whether binding child under newParent would introduce
// a cycle, used to reject cycle-introducing parent assignments.
func (idx *ParentIndex) wouldCycle(child, newParent models.SpanKey) bool {
	if child == newParent {
		return true
	}
	for _, a := range idx.ancestorsOf(newParent) {
		if a == child {
			return true
		}
	}
	return false
}

// AddSpanParent records a known-at-insert-time parent link and bubbles the
// child (and any descendants it already carries) up into every ancestor's
// descendant-span set.
func (idx *ParentIndex) AddSpanParent(child, parent models.SpanKey) bool {
	if idx.wouldCycle(child, parent) {
		return false
	}
	idx.parentOf[child] = parent

	toAdd := append([]models.SpanKey{child}, idx.descendantSpans[child]...)
	idx.bubbleSpans(parent, toAdd)
	idx.bubbleEvents(parent, idx.descendantEvents[child])
	return true
}

// BindSpanParent is identical to AddSpanParent; it is the entry point used
// specifically for late-bound parent assignment (the parent span arrived
// after the child), kept as a distinct name to mirror the two call sites
// described in §4.2/§9 (forward-declared parents backfilled on arrival).
func (idx *ParentIndex) BindSpanParent(child, parent models.SpanKey) bool {
	return idx.AddSpanParent(child, parent)
}

func (idx *ParentIndex) bubbleSpans(start models.SpanKey, newKeys []models.SpanKey) {
	if len(newKeys) == 0 {
		return
	}
	cur := start
	seen := map[models.SpanKey]struct{}{}
	for {
		if _, ok := seen[cur]; ok {
			return
		}
		seen[cur] = struct{}{}

		bucket := idx.descendantSpans[cur]
		for _, k := range newKeys {
			bucket = insertSpanKeyIfAbsent(bucket, k)
		}
		idx.descendantSpans[cur] = bucket

		p, ok := idx.parentOf[cur]
		if !ok {
			return
		}
		cur = p
	}
}

func (idx *ParentIndex) bubbleEvents(start models.SpanKey, newKeys []models.EventKey) {
	if len(newKeys) == 0 {
		return
	}
	cur := start
	seen := map[models.SpanKey]struct{}{}
	for {
		if _, ok := seen[cur]; ok {
			return
		}
		seen[cur] = struct{}{}

		bucket := idx.descendantEvents[cur]
		for _, k := range newKeys {
			bucket = insertSpanKeyIfAbsent(bucket, k)
		}
		idx.descendantEvents[cur] = bucket

		p, ok := idx.parentOf[cur]
		if !ok {
			return
		}
		cur = p
	}
}

func insertSpanKeyIfAbsent(s []models.Timestamp, key models.Timestamp) []models.Timestamp {
	idxPos := iterx.LowerBound(s, key)
	if idxPos < len(s) && s[idxPos] == key {
		return s
	}
	return iterx.InsertSorted(s, key)
}

// AddEventParent records that event belongs under parent (directly) and
// bubbles it up through the ancestor chain.
func (idx *ParentIndex) AddEventParent(event models.EventKey, parent models.SpanKey) {
	idx.bubbleEvents(parent, []models.EventKey{event})
}

// DescendantSpans returns the sorted transitive descendant spans of key.
func (idx *ParentIndex) DescendantSpans(key models.SpanKey) []models.SpanKey {
	return idx.descendantSpans[key]
}

// DescendantEvents returns the sorted transitive descendant events of key.
func (idx *ParentIndex) DescendantEvents(key models.SpanKey) []models.EventKey {
	return idx.descendantEvents[key]
}

// ParentOf returns the direct parent of a span, if known.
func (idx *ParentIndex) ParentOf(key models.SpanKey) (models.SpanKey, bool) {
	p, ok := idx.parentOf[key]
	return p, ok
}

// RemoveSpans strips the given spans from the index entirely: their parent
// link, their descendant sets, and their membership in any ancestor's
// descendant-span set.
func (idx *ParentIndex) RemoveSpans(keys []models.SpanKey) {
	for _, key := range keys {
		for _, ancestor := range append([]models.SpanKey{}, idx.ancestorsOf(key)...) {
			idx.descendantSpans[ancestor] = iterx.RemoveListSorted(idx.descendantSpans[ancestor], []models.SpanKey{key})
		}
		delete(idx.parentOf, key)
		delete(idx.descendantSpans, key)
		delete(idx.descendantEvents, key)
	}
}
