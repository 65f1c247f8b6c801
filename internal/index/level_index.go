package index

import (
	"signalstore/internal/iterx"
	"signalstore/internal/models"
)

const numLevels = 6

// LevelIndex keeps one sorted timestamp vector per severity level, grounded
// on the same six-bucket shape Venator's level.rs uses: a filter that
// matches several levels is answered by OR-ing the corresponding buckets
// rather than scanning every entity.
type LevelIndex struct {
	buckets [numLevels][]models.Timestamp
}

func NewLevelIndex() *LevelIndex {
	return &LevelIndex{}
}

func (idx *LevelIndex) Add(level models.Level, ts models.Timestamp) {
	idx.buckets[level] = iterx.InsertSorted(idx.buckets[level], ts)
}

func (idx *LevelIndex) Remove(keys []models.Timestamp) {
	for i := range idx.buckets {
		idx.buckets[i] = iterx.RemoveListSorted(idx.buckets[i], keys)
	}
}

// Bucket returns the live backing slice for one level; callers must not
// mutate it.
func (idx *LevelIndex) Bucket(level models.Level) []models.Timestamp {
	return idx.buckets[level]
}

// MatchingBuckets returns the backing slices for every level that matches
// the predicate; the planner ORs them together via SetUnionIterator.
func (idx *LevelIndex) MatchingBuckets(matches func(models.Level) bool) [][]models.Timestamp {
	var out [][]models.Timestamp
	for l := 0; l < numLevels; l++ {
		if matches(models.Level(l)) {
			out = append(out, idx.buckets[l])
		}
	}
	return out
}
