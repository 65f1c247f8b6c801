package iterx

import "cmp"

// SetIntersectionIterator ANDs together n sorted streams: on each Next it
// peeks every stream's front, advances every stream to the maximum of those
// peeked values via AdvanceFrontUntilEquals, and repeats until all streams
// land on the same value (or one is exhausted). NextBack is the mirror,
// converging on the minimum of the peeked back values.
type SetIntersectionIterator[T cmp.Ordered] struct {
	streams []*Peekable[T]
}

// NewSetIntersectionIterator builds an AND over already-peekable streams.
// Use NewPeekable to adapt plain AdvanceUntil streams.
func NewSetIntersectionIterator[T cmp.Ordered](streams []*Peekable[T]) *SetIntersectionIterator[T] {
	return &SetIntersectionIterator[T]{streams: streams}
}

func (it *SetIntersectionIterator[T]) Next() (T, bool) {
	var zero T
	if len(it.streams) == 0 {
		return zero, false
	}

	for {
		maxVal, ok := it.streams[0].PeekFront()
		if !ok {
			return zero, false
		}
		for _, s := range it.streams[1:] {
			v, ok := s.PeekFront()
			if !ok {
				return zero, false
			}
			if v > maxVal {
				maxVal = v
			}
		}

		allMatch := true
		for _, s := range it.streams {
			if !s.AdvanceFrontUntilEquals(maxVal) {
				allMatch = false
			}
		}
		if allMatch {
			for _, s := range it.streams {
				s.Next()
			}
			return maxVal, true
		}
	}
}

func (it *SetIntersectionIterator[T]) NextBack() (T, bool) {
	var zero T
	if len(it.streams) == 0 {
		return zero, false
	}

	for {
		minVal, ok := it.streams[0].PeekBack()
		if !ok {
			return zero, false
		}
		for _, s := range it.streams[1:] {
			v, ok := s.PeekBack()
			if !ok {
				return zero, false
			}
			if v < minVal {
				minVal = v
			}
		}

		allMatch := true
		for _, s := range it.streams {
			if !s.AdvanceBackUntilEquals(minVal) {
				allMatch = false
			}
		}
		if allMatch {
			for _, s := range it.streams {
				s.NextBack()
			}
			return minVal, true
		}
	}
}

func (it *SetIntersectionIterator[T]) AdvanceFrontUntilEquals(item T) bool {
	ok := true
	for _, s := range it.streams {
		if !s.AdvanceFrontUntilEquals(item) {
			ok = false
		}
	}
	return ok
}

func (it *SetIntersectionIterator[T]) AdvanceBackUntilEquals(item T) bool {
	ok := true
	for _, s := range it.streams {
		if !s.AdvanceBackUntilEquals(item) {
			ok = false
		}
	}
	return ok
}
