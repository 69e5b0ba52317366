package query

import "testing"

func TestMinHeapOfferUpToCapacity(t *testing.T) {
	h := newMinHeap(3)
	for _, s := range []scored{{1, 5}, {2, 1}, {3, 3}} {
		if !h.Offer(s) {
			t.Fatalf("Offer(%+v) should succeed below capacity", s)
		}
	}
	if !h.Full() {
		t.Fatal("heap should be full")
	}
	if h.Top().docID != 2 || h.Top().score != 1 {
		t.Fatalf("Top() = %+v, want docID=2 score=1", h.Top())
	}
}

func TestMinHeapOfferEvictsLowestOnBetterCandidate(t *testing.T) {
	h := newMinHeap(2)
	h.Offer(scored{1, 1})
	h.Offer(scored{2, 2})
	if !h.Offer(scored{3, 10}) {
		t.Fatal("Offer of a higher score should succeed on a full heap")
	}
	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
	if h.Top().docID != 2 {
		t.Fatalf("Top().docID = %d, want 2 (lowest survivor)", h.Top().docID)
	}
}

func TestMinHeapOfferRejectsBelowThreshold(t *testing.T) {
	h := newMinHeap(2)
	h.Offer(scored{1, 5})
	h.Offer(scored{2, 6})
	if h.Offer(scored{3, 1}) {
		t.Fatal("Offer of a lower score on a full heap should fail")
	}
	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}
}

func TestMinHeapThresholdBeforeAndAfterFull(t *testing.T) {
	h := newMinHeap(1)
	if h.Threshold() != negInf {
		t.Fatalf("Threshold() = %v, want negInf before full", h.Threshold())
	}
	h.Offer(scored{1, 3})
	if h.Threshold() != 3 {
		t.Fatalf("Threshold() = %v, want 3 once full", h.Threshold())
	}
}

func TestMinHeapSortedAscendingByDocID(t *testing.T) {
	h := newMinHeap(4)
	for _, s := range []scored{{9, 1}, {1, 2}, {5, 3}, {3, 4}} {
		h.Offer(s)
	}
	sorted := h.Sorted()
	want := []uint32{1, 3, 5, 9}
	for i, s := range sorted {
		if s.docID != want[i] {
			t.Fatalf("Sorted() = %v, want doc_ids %v", sorted, want)
		}
	}
}

func TestLessTieBreaksByDocID(t *testing.T) {
	a := scored{docID: 5, score: 1}
	b := scored{docID: 2, score: 1}
	if !less(b, a) {
		t.Fatal("equal scores should order by ascending doc_id")
	}
}
