// Package iterx implements the sorted-timestamp-stream iterator algebra the
// query engine is built on: bound search, double-ended peeking, bidirectional
// seeking, and the AND/OR compound iterators that the filter planner composes
// from individual indexes.
package iterx

import "cmp"

// expansionFactor is the step multiplier LowerBoundViaExpansion/
// UpperBoundViaExpansion grow their probe window by (1, f, f², f³, ...).
// 2 is the classic galloping-search doubling; EngineConfig.
// GallopExpansionFactor exposes this for benchmarking, tuned via
// SetExpansionFactor at startup.
var expansionFactor = 2

// SetExpansionFactor changes the probe-window growth rate
// LowerBoundViaExpansion/UpperBoundViaExpansion use. Values below 2 are
// ignored — a factor of 1 never grows the window and degrades the
// search to linear scan.
func SetExpansionFactor(factor int) {
	if factor < 2 {
		return
	}
	expansionFactor = factor
}

// LowerBound returns the first index in the sorted slice s whose element is
// not less than item, via plain binary search. Meaningful only if s is sorted.
func LowerBound[T cmp.Ordered](s []T, item T) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid] < item {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// UpperBound returns the first index in the sorted slice s whose element is
// greater than item.
func UpperBound[T cmp.Ordered](s []T, item T) int {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := (lo + hi) / 2
		if s[mid] <= item {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// LowerBoundViaExpansion locates the lower bound using binary-expansion
// search from the front: it checks indexes 1, 2, 4, 8, ... until it finds a
// window known to contain the bound, then binary-searches within that
// window. This is faster than a plain binary search when the target is
// expected near the beginning of the slice.
func LowerBoundViaExpansion[T cmp.Ordered](s []T, item T) int {
	n := len(s)
	if n == 0 {
		return 0
	}
	start, end := 0, 1
	for {
		if end >= n {
			end = n
		} else if s[end] < item {
			start, end = end, end*expansionFactor
			continue
		}
		return LowerBound(s[start:end], item) + start
	}
}

// UpperBoundViaExpansion locates the upper bound using binary-expansion
// search from the back: it is the mirror of LowerBoundViaExpansion, and is
// the insertion-position algorithm every sorted index in this package uses,
// since most inserts land at or near the current high watermark.
func UpperBoundViaExpansion[T cmp.Ordered](s []T, item T) int {
	n := len(s)
	if n == 0 {
		return 0
	}
	start, end := 0, 1
	for {
		if end >= n {
			end = n
		} else if s[n-end] > item {
			start, end = end, end*expansionFactor
			continue
		}
		return UpperBound(s[n-end:n-start], item) + (n - end)
	}
}

// InsertSorted inserts item into s at the position given by
// UpperBoundViaExpansion, preserving sort order, and returns the updated
// slice. This is the near-tail-optimized insertion every append-mostly
// index in this store uses.
func InsertSorted[T cmp.Ordered](s []T, item T) []T {
	idx := UpperBoundViaExpansion(s, item)
	s = append(s, item)
	copy(s[idx+1:], s[idx:len(s)-1])
	s[idx] = item
	return s
}

// RemoveListSorted removes every element of list from the sorted slice s in
// a single compacting pass, assuming both s and list are sorted. This
// replaces a naive O(n*m) pairwise-match removal with O(n+m): two cursors
// walk s and list together, and elements of s not present in list are
// copied forward over the gaps left by removed elements.
func RemoveListSorted[T cmp.Ordered](s []T, list []T) []T {
	if len(list) == 0 || len(s) == 0 {
		return s
	}

	write := 0
	j := 0
	for read := 0; read < len(s); read++ {
		for j < len(list) && list[j] < s[read] {
			j++
		}
		if j < len(list) && list[j] == s[read] {
			j++
			continue
		}
		s[write] = s[read]
		write++
	}
	return s[:write]
}
