package index

import (
	"testing"

	"signalstore/internal/models"
)

func TestTimeIndexStaysSortedUnderAnyInsertOrder(t *testing.T) {
	idx := NewTimeIndex()
	for _, ts := range []models.Timestamp{50, 10, 30, 20, 40} {
		idx.Add(ts)
	}
	all := idx.All()
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Fatalf("index not sorted: %v", all)
		}
	}
}

func TestTimeIndexRemoveDropsExactKeys(t *testing.T) {
	idx := NewTimeIndex()
	for _, ts := range []models.Timestamp{1, 2, 3, 4, 5} {
		idx.Add(ts)
	}
	idx.Remove([]models.Timestamp{2, 4})
	want := []models.Timestamp{1, 3, 5}
	got := idx.All()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestLevelIndexBucketsSeparateByLevel(t *testing.T) {
	idx := NewLevelIndex()
	idx.Add(models.LevelInfo, 10)
	idx.Add(models.LevelError, 20)
	idx.Add(models.LevelInfo, 5)

	info := idx.Bucket(models.LevelInfo)
	if len(info) != 2 || info[0] != 5 || info[1] != 10 {
		t.Fatalf("unexpected info bucket: %v", info)
	}
	errs := idx.Bucket(models.LevelError)
	if len(errs) != 1 || errs[0] != 20 {
		t.Fatalf("unexpected error bucket: %v", errs)
	}
}

func TestSpanEventIndexAllIsSupersetOfSpanBuckets(t *testing.T) {
	idx := NewSpanEventIndex()
	idx.Add(&models.SpanEvent{Timestamp: 100, SpanKey: 1})
	idx.Add(&models.SpanEvent{Timestamp: 200, SpanKey: 2})
	idx.Add(&models.SpanEvent{Timestamp: 150, SpanKey: 1})

	allSet := map[models.Timestamp]bool{}
	for _, ts := range idx.All {
		allSet[ts] = true
	}
	for _, bucket := range idx.Spans {
		for _, ts := range bucket {
			if !allSet[ts] {
				t.Fatalf("span bucket has %d not present in All", ts)
			}
		}
	}
}

func TestSpanDurationIndexMovesOpenToClosed(t *testing.T) {
	idx := NewSpanDurationIndex()
	idx.AddOpen(1)
	if idx.OpenCount() != 1 || idx.ClosedCount() != 0 {
		t.Fatalf("expected 1 open, 0 closed")
	}
	idx.Close(1, 500)
	if idx.OpenCount() != 0 || idx.ClosedCount() != 1 {
		t.Fatalf("expected span to move to closed bucket")
	}
}

func TestSpanDurationIndexRangeQuery(t *testing.T) {
	idx := NewSpanDurationIndex()
	idx.AddClosed(1, 100)
	idx.AddClosed(2, 500)
	idx.AddClosed(3, 900)

	keys := idx.KeysInDurationRange(200, 600)
	if len(keys) != 1 || keys[0] != 2 {
		t.Fatalf("got %v, want [2]", keys)
	}
}

func TestParentIndexBubblesDescendantsTransitively(t *testing.T) {
	idx := NewParentIndex()
	// grandchild inserted before its grandparent link is known
	idx.AddSpanParent(3, 2) // 3's parent is 2
	idx.AddSpanParent(2, 1) // 2's parent is 1 -- should bubble 3 up to 1 too

	desc1 := idx.DescendantSpans(1)
	found2, found3 := false, false
	for _, d := range desc1 {
		if d == 2 {
			found2 = true
		}
		if d == 3 {
			found3 = true
		}
	}
	if !found2 || !found3 {
		t.Fatalf("expected span 1 to have descendants {2,3}, got %v", desc1)
	}
}

func TestParentIndexRejectsCycles(t *testing.T) {
	idx := NewParentIndex()
	idx.AddSpanParent(2, 1)
	if idx.AddSpanParent(1, 2) {
		t.Fatal("expected cycle-introducing parent assignment to be rejected")
	}
}

func TestValueIndexEqualsAndRange(t *testing.T) {
	idx := NewValueIndex()
	idx.Add("http.status", models.I64(200), 10)
	idx.Add("http.status", models.I64(404), 20)
	idx.Add("http.status", models.I64(500), 30)

	got := idx.Equals("http.status", models.I64(404))
	if len(got) != 1 || got[0] != 20 {
		t.Fatalf("got %v, want [20]", got)
	}

	lo, hi := models.I64(300), models.I64(500)
	buckets := idx.Range("http.status", &lo, &hi)
	var all []models.Timestamp
	for _, b := range buckets {
		all = append(all, b...)
	}
	if len(all) != 1 || all[0] != 20 {
		t.Fatalf("range got %v, want [20]", all)
	}
}

func TestValueIndexPrefixScan(t *testing.T) {
	idx := NewValueIndex()
	idx.Add("service", models.Str("auth-api"), 1)
	idx.Add("service", models.Str("auth-worker"), 2)
	idx.Add("service", models.Str("billing-api"), 3)

	buckets := idx.Prefix("service", "auth-")
	var all []models.Timestamp
	for _, b := range buckets {
		all = append(all, b...)
	}
	if len(all) != 2 {
		t.Fatalf("got %v, want 2 entries", all)
	}
}
