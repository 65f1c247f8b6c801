package iterx

import "testing"

func drainAll(t *testing.T, it interface{ Next() (int, bool) }) []int {
	t.Helper()
	var out []int
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

func assertEqualSlices(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func peekify(s []int) *Peekable[int] {
	return NewPeekable[int](NewIndexIterator(s, nil))
}

func TestSetIntersectionMatchesCommonElements(t *testing.T) {
	a := peekify([]int{1, 2, 3, 4, 5, 6})
	b := peekify([]int{2, 4, 6, 8})

	it := NewSetIntersectionIterator([]*Peekable[int]{a, b})
	assertEqualSlices(t, drainAll(t, it), []int{2, 4, 6})
}

func TestSetIntersectionWithUniverseIsIdentity(t *testing.T) {
	a := peekify([]int{1, 2, 3})
	universe := peekify([]int{-100, 1, 2, 3, 100})

	it := NewSetIntersectionIterator([]*Peekable[int]{a, universe})
	assertEqualSlices(t, drainAll(t, it), []int{1, 2, 3})
}

func TestSetIntersectionCommutativity(t *testing.T) {
	a := []int{1, 2, 3, 4, 5}
	b := []int{3, 4, 5, 6, 7}

	ab := NewSetIntersectionIterator([]*Peekable[int]{peekify(a), peekify(b)})
	ba := NewSetIntersectionIterator([]*Peekable[int]{peekify(b), peekify(a)})

	assertEqualSlices(t, drainAll(t, ab), drainAll(t, ba))
}

func TestSetUnionDedupsAndMerges(t *testing.T) {
	a := peekify([]int{1, 3, 5})
	b := peekify([]int{3, 4, 5, 6})

	it := NewSetUnionIterator([]*Peekable[int]{a, b})
	assertEqualSlices(t, drainAll(t, it), []int{1, 3, 4, 5, 6})
}

func TestSetUnionWithEmptyIsIdentity(t *testing.T) {
	a := peekify([]int{1, 2, 3})
	empty := peekify(nil)

	it := NewSetUnionIterator([]*Peekable[int]{a, empty})
	assertEqualSlices(t, drainAll(t, it), []int{1, 2, 3})
}

func TestSetUnionBidirectionalDrain(t *testing.T) {
	a := peekify([]int{1, 4, 7})
	b := peekify([]int{2, 4, 8})

	it := NewSetUnionIterator([]*Peekable[int]{a, b})

	if v, _ := it.Next(); v != 1 {
		t.Fatalf("got %d want 1", v)
	}
	if v, _ := it.NextBack(); v != 8 {
		t.Fatalf("got %d want 8", v)
	}
	if v, _ := it.Next(); v != 2 {
		t.Fatalf("got %d want 2", v)
	}
	if v, _ := it.NextBack(); v != 7 {
		t.Fatalf("got %d want 7", v)
	}
	if v, _ := it.Next(); v != 4 {
		t.Fatalf("got %d want 4", v)
	}
	if _, ok := it.Next(); ok {
		t.Fatal("expected exhaustion")
	}
}
