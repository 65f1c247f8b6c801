package iterx

import (
	"cmp"
	"container/heap"
)

// SetUnionIterator ORs together n sorted streams using a min-heap (max-heap
// for the back side) of stream heads, yielding the overall minimum/maximum
// and deduplicating identical timestamps that appear in more than one
// stream. container/heap is the standard library's priority-queue
// primitive; no third-party heap implementation appears anywhere in the
// example corpus, so this is a deliberate stdlib choice (see DESIGN.md).
type SetUnionIterator[T cmp.Ordered] struct {
	streams []*Peekable[T]
	frontH  *frontHeap[T]
	backH   *backHeap[T]
}

func NewSetUnionIterator[T cmp.Ordered](streams []*Peekable[T]) *SetUnionIterator[T] {
	return &SetUnionIterator[T]{streams: streams}
}

func (it *SetUnionIterator[T]) ensureFrontHeap() {
	if it.frontH != nil {
		return
	}
	h := make(frontHeap[T], 0, len(it.streams))
	for i, s := range it.streams {
		if v, ok := s.PeekFront(); ok {
			h = append(h, headEntry[T]{value: v, idx: i})
		}
	}
	heap.Init(&h)
	it.frontH = &h
}

func (it *SetUnionIterator[T]) ensureBackHeap() {
	if it.backH != nil {
		return
	}
	h := make(backHeap[T], 0, len(it.streams))
	for i, s := range it.streams {
		if v, ok := s.PeekBack(); ok {
			h = append(h, headEntry[T]{value: v, idx: i})
		}
	}
	heap.Init(&h)
	it.backH = &h
}

func (it *SetUnionIterator[T]) Next() (T, bool) {
	var zero T
	it.ensureFrontHeap()
	if it.frontH.Len() == 0 {
		return zero, false
	}

	top := heap.Pop(it.frontH).(headEntry[T])
	min := top.value
	it.streams[top.idx].Next()
	if v, ok := it.streams[top.idx].PeekFront(); ok {
		heap.Push(it.frontH, headEntry[T]{value: v, idx: top.idx})
	}

	// dedup: pop and consume any other stream whose head equals min too.
	for it.frontH.Len() > 0 && (*it.frontH)[0].value == min {
		dup := heap.Pop(it.frontH).(headEntry[T])
		it.streams[dup.idx].Next()
		if v, ok := it.streams[dup.idx].PeekFront(); ok {
			heap.Push(it.frontH, headEntry[T]{value: v, idx: dup.idx})
		}
	}

	return min, true
}

func (it *SetUnionIterator[T]) NextBack() (T, bool) {
	var zero T
	it.ensureBackHeap()
	if it.backH.Len() == 0 {
		return zero, false
	}

	top := heap.Pop(it.backH).(headEntry[T])
	max := top.value
	it.streams[top.idx].NextBack()
	if v, ok := it.streams[top.idx].PeekBack(); ok {
		heap.Push(it.backH, headEntry[T]{value: v, idx: top.idx})
	}

	for it.backH.Len() > 0 && (*it.backH)[0].value == max {
		dup := heap.Pop(it.backH).(headEntry[T])
		it.streams[dup.idx].NextBack()
		if v, ok := it.streams[dup.idx].PeekBack(); ok {
			heap.Push(it.backH, headEntry[T]{value: v, idx: dup.idx})
		}
	}

	return max, true
}

func (it *SetUnionIterator[T]) AdvanceFrontUntilEquals(item T) bool {
	found := false
	for _, s := range it.streams {
		if s.AdvanceFrontUntilEquals(item) {
			found = true
		}
	}
	it.frontH = nil // peeked fronts may have changed; rebuild lazily
	return found
}

func (it *SetUnionIterator[T]) AdvanceBackUntilEquals(item T) bool {
	found := false
	for _, s := range it.streams {
		if s.AdvanceBackUntilEquals(item) {
			found = true
		}
	}
	it.backH = nil
	return found
}

type headEntry[T cmp.Ordered] struct {
	value T
	idx   int
}

type frontHeap[T cmp.Ordered] []headEntry[T]

func (h frontHeap[T]) Len() int            { return len(h) }
func (h frontHeap[T]) Less(i, j int) bool  { return h[i].value < h[j].value }
func (h frontHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *frontHeap[T]) Push(x interface{}) { *h = append(*h, x.(headEntry[T])) }
func (h *frontHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

type backHeap[T cmp.Ordered] []headEntry[T]

func (h backHeap[T]) Len() int            { return len(h) }
func (h backHeap[T]) Less(i, j int) bool  { return h[i].value > h[j].value }
func (h backHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *backHeap[T]) Push(x interface{}) { *h = append(*h, x.(headEntry[T])) }
func (h *backHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
