package iterx

import "cmp"

// Peekable adds a one-slot buffer at each end of an AdvanceUntil stream so
// callers can look at the next front/back item without consuming it. Seeks
// consult the buffered items before touching the underlying stream. T is
// constrained to cmp.Ordered because every stream in this engine is a
// sorted timestamp stream and the seek methods need to compare buffered
// items against the sought value.
type Peekable[T cmp.Ordered] struct {
	inner     AdvanceUntil[T]
	nextFront *T
	nextBack  *T
}

func NewPeekable[T cmp.Ordered](inner AdvanceUntil[T]) *Peekable[T] {
	return &Peekable[T]{inner: inner}
}

func (p *Peekable[T]) PeekFront() (T, bool) {
	if p.nextFront != nil {
		return *p.nextFront, true
	}
	if v, ok := p.inner.Next(); ok {
		p.nextFront = &v
		return v, true
	}
	if p.nextBack != nil {
		return *p.nextBack, true
	}
	var zero T
	return zero, false
}

func (p *Peekable[T]) PeekBack() (T, bool) {
	if p.nextBack != nil {
		return *p.nextBack, true
	}
	if v, ok := p.inner.NextBack(); ok {
		p.nextBack = &v
		return v, true
	}
	if p.nextFront != nil {
		return *p.nextFront, true
	}
	var zero T
	return zero, false
}

func (p *Peekable[T]) Next() (T, bool) {
	if p.nextFront != nil {
		v := *p.nextFront
		p.nextFront = nil
		return v, true
	}
	if v, ok := p.inner.Next(); ok {
		return v, true
	}
	if p.nextBack != nil {
		v := *p.nextBack
		p.nextBack = nil
		return v, true
	}
	var zero T
	return zero, false
}

func (p *Peekable[T]) NextBack() (T, bool) {
	if p.nextBack != nil {
		v := *p.nextBack
		p.nextBack = nil
		return v, true
	}
	if v, ok := p.inner.NextBack(); ok {
		return v, true
	}
	if p.nextFront != nil {
		v := *p.nextFront
		p.nextFront = nil
		return v, true
	}
	var zero T
	return zero, false
}

func (p *Peekable[T]) AdvanceFrontUntilEquals(item T) bool {
	if p.nextFront != nil {
		switch {
		case *p.nextFront == item:
			return true
		case *p.nextFront > item:
			return false
		default:
			p.nextFront = nil
		}
	}

	if p.inner.AdvanceFrontUntilEquals(item) {
		return true
	}

	if p.nextBack != nil {
		switch {
		case *p.nextBack == item:
			return true
		case *p.nextBack > item:
			return false
		default:
			p.nextBack = nil
		}
	}

	return false
}

func (p *Peekable[T]) AdvanceBackUntilEquals(item T) bool {
	if p.nextBack != nil {
		switch {
		case *p.nextBack == item:
			return true
		case *p.nextBack < item:
			return false
		default:
			p.nextBack = nil
		}
	}

	if p.inner.AdvanceBackUntilEquals(item) {
		return true
	}

	if p.nextFront != nil {
		switch {
		case *p.nextFront == item:
			return true
		case *p.nextFront < item:
			return false
		default:
			p.nextFront = nil
		}
	}

	return false
}
