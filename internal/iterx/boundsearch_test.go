package iterx

import "testing"

func TestBoundsOnEmptySlice(t *testing.T) {
	var empty []int
	if LowerBound(empty, 0) != 0 {
		t.Fatal("lower bound on empty slice")
	}
	if UpperBound(empty, 0) != 0 {
		t.Fatal("upper bound on empty slice")
	}
	if LowerBoundViaExpansion(empty, 0) != 0 {
		t.Fatal("lower bound via expansion on empty slice")
	}
	if UpperBoundViaExpansion(empty, 0) != 0 {
		t.Fatal("upper bound via expansion on empty slice")
	}
}

func TestBoundsForDuplicateItem(t *testing.T) {
	s := []int{0, 0, 1, 1, 2, 2}

	cases := []struct {
		item                 int
		lower, upper         int
	}{
		{-1, 0, 0},
		{0, 0, 2},
		{1, 2, 4},
		{2, 4, 6},
		{3, 6, 6},
	}

	for _, c := range cases {
		if got := LowerBound(s, c.item); got != c.lower {
			t.Errorf("LowerBound(%d) = %d, want %d", c.item, got, c.lower)
		}
		if got := UpperBound(s, c.item); got != c.upper {
			t.Errorf("UpperBound(%d) = %d, want %d", c.item, got, c.upper)
		}
		if got := LowerBoundViaExpansion(s, c.item); got != c.lower {
			t.Errorf("LowerBoundViaExpansion(%d) = %d, want %d", c.item, got, c.lower)
		}
		if got := UpperBoundViaExpansion(s, c.item); got != c.upper {
			t.Errorf("UpperBoundViaExpansion(%d) = %d, want %d", c.item, got, c.upper)
		}
	}
}

func TestBoundsForMissingItem(t *testing.T) {
	s := []int{0, 0, 2, 2}
	if got := LowerBound(s, 1); got != 2 {
		t.Errorf("LowerBound = %d, want 2", got)
	}
	if got := UpperBoundViaExpansion(s, 1); got != 2 {
		t.Errorf("UpperBoundViaExpansion = %d, want 2", got)
	}
}

func TestInsertSortedKeepsOrder(t *testing.T) {
	var s []int
	for _, v := range []int{5, 1, 9, 1, 3, 9, 0} {
		s = InsertSorted(s, v)
	}
	want := []int{0, 1, 1, 3, 5, 9, 9}
	if len(s) != len(want) {
		t.Fatalf("len = %d, want %d (%v)", len(s), len(want), s)
	}
	for i := range want {
		if s[i] != want[i] {
			t.Fatalf("s = %v, want %v", s, want)
		}
	}
}

func TestRemoveListSortedCompactsInSinglePass(t *testing.T) {
	s := []int{1, 2, 3, 4, 5, 6, 7}
	s = RemoveListSorted(s, []int{2, 4, 4, 6, 10})
	want := []int{1, 3, 5, 7}
	if len(s) != len(want) {
		t.Fatalf("got %v, want %v", s, want)
	}
	for i := range want {
		if s[i] != want[i] {
			t.Fatalf("got %v, want %v", s, want)
		}
	}
}

func TestRemoveListSortedNoMatches(t *testing.T) {
	s := []int{1, 3, 5}
	out := RemoveListSorted(append([]int(nil), s...), []int{2, 4})
	if len(out) != 3 {
		t.Fatalf("expected untouched slice, got %v", out)
	}
}
