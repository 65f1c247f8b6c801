package iterx

// DoubleEnded is any sequence that can be drained from either end, the
// stream abstraction every index/compound iterator in this package
// implements.
type DoubleEnded[T any] interface {
	// Next yields the next item from the front, or ok=false when exhausted.
	Next() (item T, ok bool)
	// NextBack yields the next item from the back, or ok=false when exhausted.
	NextBack() (item T, ok bool)
}

// AdvanceUntil is a DoubleEnded stream that is additionally sorted, which
// lets it implement the bidirectional seek primitive the set-intersection
// and set-union iterators rely on to skip runs of non-matching elements in
// O(log n) instead of visiting them one at a time.
type AdvanceUntil[T any] interface {
	DoubleEnded[T]

	// AdvanceFrontUntilEquals advances the stream forward to where item is
	// expected and reports whether it is present. Implementations must stop
	// as soon as presence/absence is known without yielding skipped items.
	AdvanceFrontUntilEquals(item T) bool

	// AdvanceBackUntilEquals is the mirror seek from the back.
	AdvanceBackUntilEquals(item T) bool
}
