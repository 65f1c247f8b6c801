package iterx

import "cmp"

// IndexIterator drains a sorted slice from both ends, optionally skipping
// elements that fail a residual predicate (the part of a filter leaf that
// the chosen index cannot evaluate itself). It owns its slice view, so
// seeking just narrows the window rather than copying.
type IndexIterator[T cmp.Ordered] struct {
	s      []T
	filter func(T) bool
}

// NewIndexIterator wraps a sorted slice. filter may be nil, meaning every
// element in the window matches.
func NewIndexIterator[T cmp.Ordered](s []T, filter func(T) bool) *IndexIterator[T] {
	return &IndexIterator[T]{s: s, filter: filter}
}

func (it *IndexIterator[T]) matches(v T) bool {
	return it.filter == nil || it.filter(v)
}

func (it *IndexIterator[T]) Next() (T, bool) {
	for i, v := range it.s {
		if !it.matches(v) {
			continue
		}
		it.s = it.s[i+1:]
		return v, true
	}
	var zero T
	it.s = nil
	return zero, false
}

func (it *IndexIterator[T]) NextBack() (T, bool) {
	for i := len(it.s) - 1; i >= 0; i-- {
		v := it.s[i]
		if !it.matches(v) {
			continue
		}
		it.s = it.s[:i]
		return v, true
	}
	var zero T
	it.s = nil
	return zero, false
}

func (it *IndexIterator[T]) AdvanceFrontUntilEquals(item T) bool {
	idx := LowerBound(it.s, item)
	it.s = it.s[idx:]
	return len(it.s) > 0 && it.s[0] == item && it.matches(item)
}

func (it *IndexIterator[T]) AdvanceBackUntilEquals(item T) bool {
	idx := UpperBound(it.s, item)
	it.s = it.s[:idx]
	return len(it.s) > 0 && it.s[len(it.s)-1] == item && it.matches(item)
}

// Len reports the number of elements remaining in the window, an upper
// bound when a residual filter is attached.
func (it *IndexIterator[T]) Len() int { return len(it.s) }
