package iterx

import "cmp"

// CompoundKind tags which variant a CompoundIndexIterator holds.
type CompoundKind uint8

const (
	CompoundSingle CompoundKind = iota
	CompoundAnd
	CompoundOr
)

// CompoundIndexIterator uniformly wraps a single index scan or a nested
// AND/OR of further compound iterators, so the planner can build an
// arbitrarily deep tree and every consumer (engine queries, subscription
// re-evaluation) drives it through one interface.
type CompoundIndexIterator[T cmp.Ordered] struct {
	Kind   CompoundKind
	Single *IndexIterator[T]
	And    *SetIntersectionIterator[T]
	Or     *SetUnionIterator[T]
}

func SingleCompound[T cmp.Ordered](it *IndexIterator[T]) *CompoundIndexIterator[T] {
	return &CompoundIndexIterator[T]{Kind: CompoundSingle, Single: it}
}

func AndCompound[T cmp.Ordered](it *SetIntersectionIterator[T]) *CompoundIndexIterator[T] {
	return &CompoundIndexIterator[T]{Kind: CompoundAnd, And: it}
}

func OrCompound[T cmp.Ordered](it *SetUnionIterator[T]) *CompoundIndexIterator[T] {
	return &CompoundIndexIterator[T]{Kind: CompoundOr, Or: it}
}

func (c *CompoundIndexIterator[T]) Next() (T, bool) {
	switch c.Kind {
	case CompoundSingle:
		return c.Single.Next()
	case CompoundAnd:
		return c.And.Next()
	default:
		return c.Or.Next()
	}
}

func (c *CompoundIndexIterator[T]) NextBack() (T, bool) {
	switch c.Kind {
	case CompoundSingle:
		return c.Single.NextBack()
	case CompoundAnd:
		return c.And.NextBack()
	default:
		return c.Or.NextBack()
	}
}

func (c *CompoundIndexIterator[T]) AdvanceFrontUntilEquals(item T) bool {
	switch c.Kind {
	case CompoundSingle:
		return c.Single.AdvanceFrontUntilEquals(item)
	case CompoundAnd:
		return c.And.AdvanceFrontUntilEquals(item)
	default:
		return c.Or.AdvanceFrontUntilEquals(item)
	}
}

func (c *CompoundIndexIterator[T]) AdvanceBackUntilEquals(item T) bool {
	switch c.Kind {
	case CompoundSingle:
		return c.Single.AdvanceBackUntilEquals(item)
	case CompoundAnd:
		return c.And.AdvanceBackUntilEquals(item)
	default:
		return c.Or.AdvanceBackUntilEquals(item)
	}
}

// Order selects ascending or descending drain direction for a query.
type Order uint8

const (
	OrderAsc Order = iota
	OrderDesc
)

// Reversed adapts a DoubleEnded stream to drain in the opposite direction by
// swapping Next/NextBack, the same role Rust's std::iter::Rev plays for
// CompoundIndexIterator::with_order in the reference implementation.
type Reversed[T cmp.Ordered] struct {
	inner AdvanceUntil[T]
}

func NewReversed[T cmp.Ordered](inner AdvanceUntil[T]) *Reversed[T] {
	return &Reversed[T]{inner: inner}
}

func (r *Reversed[T]) Next() (T, bool)     { return r.inner.NextBack() }
func (r *Reversed[T]) NextBack() (T, bool) { return r.inner.Next() }

func (r *Reversed[T]) AdvanceFrontUntilEquals(item T) bool {
	return r.inner.AdvanceBackUntilEquals(item)
}

func (r *Reversed[T]) AdvanceBackUntilEquals(item T) bool {
	return r.inner.AdvanceFrontUntilEquals(item)
}

// WithOrder returns a stream draining in the requested direction: the
// iterator itself for Asc, or a Reversed wrapper for Desc.
func WithOrder[T cmp.Ordered](it AdvanceUntil[T], order Order) AdvanceUntil[T] {
	if order == OrderDesc {
		return NewReversed(it)
	}
	return it
}
