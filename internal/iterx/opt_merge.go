package iterx

// MergeOptional combines two optional values with f when both are present,
// and passes through whichever one is present otherwise. Used by the
// planner to combine window bounds and residual predicates without a
// forest of nil-checks at every call site.
func MergeOptional[T any](a, b *T, f func(a, b T) T) *T {
	switch {
	case a != nil && b != nil:
		merged := f(*a, *b)
		return &merged
	case a != nil:
		return a
	case b != nil:
		return b
	default:
		return nil
	}
}
