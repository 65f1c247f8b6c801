package index

import (
	"strings"

	"github.com/google/btree"

	"signalstore/internal/iterx"
	"signalstore/internal/models"
)

// valueEntry is one node of a per-attribute ordered map: a distinct
// attribute value and the sorted timestamps of every entity carrying it.
type valueEntry struct {
	value      models.Value
	timestamps []models.Timestamp
}

func lessValueEntry(a, b *valueEntry) bool {
	return a.value.Compare(b.value) < 0
}

// attributeIndex is the ordered map for a single attribute name, backed by
// github.com/google/btree. A plain Go map cannot answer the prefix/range
// filter operators (§4.3) without a full sort on every query; btree gives
// an O(log n) ordered insert and a native AscendRange walk.
type attributeIndex struct {
	tree *btree.BTreeG[*valueEntry]
}

func newAttributeIndex() *attributeIndex {
	return &attributeIndex{tree: btree.NewG(32, lessValueEntry)}
}

func (a *attributeIndex) add(value models.Value, ts models.Timestamp) {
	probe := &valueEntry{value: value}
	if existing, ok := a.tree.Get(probe); ok {
		existing.timestamps = iterx.InsertSorted(existing.timestamps, ts)
		return
	}
	probe.timestamps = []models.Timestamp{ts}
	a.tree.ReplaceOrInsert(probe)
}

func (a *attributeIndex) remove(value models.Value, ts models.Timestamp) {
	probe := &valueEntry{value: value}
	existing, ok := a.tree.Get(probe)
	if !ok {
		return
	}
	existing.timestamps = iterx.RemoveListSorted(existing.timestamps, []models.Timestamp{ts})
	if len(existing.timestamps) == 0 {
		a.tree.Delete(probe)
	}
}

// equals returns the sorted timestamps carrying exactly value.
func (a *attributeIndex) equals(value models.Value) []models.Timestamp {
	if entry, ok := a.tree.Get(&valueEntry{value: value}); ok {
		return entry.timestamps
	}
	return nil
}

// rangeBuckets returns, in ascending value order, the timestamp buckets for
// every distinct value v such that lo <= v < hi (hi exclusive). Either
// bound may be nil for an open range.
func (a *attributeIndex) rangeBuckets(lo, hi *models.Value) [][]models.Timestamp {
	var out [][]models.Timestamp
	visit := func(e *valueEntry) bool {
		if hi != nil && e.value.Compare(*hi) >= 0 {
			return false
		}
		out = append(out, e.timestamps)
		return true
	}

	if lo != nil {
		a.tree.AscendGreaterOrEqual(&valueEntry{value: *lo}, visit)
	} else {
		a.tree.Ascend(visit)
	}
	return out
}

// prefixBuckets returns timestamp buckets for every string value carrying
// prefix, by scanning the ordered map from the prefix forward and stopping
// as soon as a value no longer shares it — values are strings already
// ordered lexicographically, so this is a bounded scan, not a full pass.
func (a *attributeIndex) prefixBuckets(prefix string) [][]models.Timestamp {
	var out [][]models.Timestamp
	a.tree.AscendGreaterOrEqual(&valueEntry{value: models.Str(prefix)}, func(e *valueEntry) bool {
		if e.value.Kind != models.KindString || !strings.HasPrefix(e.value.Str, prefix) {
			return false
		}
		out = append(out, e.timestamps)
		return true
	})
	return out
}

// scanAllBuckets returns every bucket whose value matches, used for
// suffix/substring/regex and inclusive-bound comparisons that cannot exploit ordering and therefore must still visit
// each distinct value once (but still avoid a full per-entity scan).
func (a *attributeIndex) scanAllBuckets(matches func(models.Value) bool) [][]models.Timestamp {
	var out [][]models.Timestamp
	a.tree.Ascend(func(e *valueEntry) bool {
		if matches(e.value) {
			out = append(out, e.timestamps)
		}
		return true
	})
	return out
}

// ValueIndex is keyed by attribute name; each name gets its own ordered map
// of distinct values to the entities carrying them.
type ValueIndex struct {
	attrs map[string]*attributeIndex
}

func NewValueIndex() *ValueIndex {
	return &ValueIndex{attrs: make(map[string]*attributeIndex)}
}

func (idx *ValueIndex) Add(name string, value models.Value, ts models.Timestamp) {
	bucket, ok := idx.attrs[name]
	if !ok {
		bucket = newAttributeIndex()
		idx.attrs[name] = bucket
	}
	bucket.add(value, ts)
}

func (idx *ValueIndex) Remove(name string, value models.Value, ts models.Timestamp) {
	if bucket, ok := idx.attrs[name]; ok {
		bucket.remove(value, ts)
	}
}

// Has reports whether name has ever been indexed, letting the planner fall
// back to a residual predicate when it has not.
func (idx *ValueIndex) Has(name string) bool {
	_, ok := idx.attrs[name]
	return ok
}

func (idx *ValueIndex) Equals(name string, value models.Value) []models.Timestamp {
	if bucket, ok := idx.attrs[name]; ok {
		return bucket.equals(value)
	}
	return nil
}

func (idx *ValueIndex) Range(name string, lo, hi *models.Value) [][]models.Timestamp {
	if bucket, ok := idx.attrs[name]; ok {
		return bucket.rangeBuckets(lo, hi)
	}
	return nil
}

func (idx *ValueIndex) Prefix(name string, prefix string) [][]models.Timestamp {
	if bucket, ok := idx.attrs[name]; ok {
		return bucket.prefixBuckets(prefix)
	}
	return nil
}

func (idx *ValueIndex) Scan(name string, matches func(models.Value) bool) [][]models.Timestamp {
	if bucket, ok := idx.attrs[name]; ok {
		return bucket.scanAllBuckets(matches)
	}
	return nil
}
