package query

import "math"

// negInf is the heap_threshold when the heap isn't yet full: any finite
// score beats it (spec §4.7: "f32::MIN" if not full — this module uses
// negative infinity instead, which is strictly lower and so strictly safer
// as a default threshold).
var negInf = float32(math.Inf(-1))

// scored is one (doc_id, score) candidate. The min-heap keeps the lowest
// score at the root so a full heap can cheaply test "does this beat the
// worst survivor" (spec §4.7).
type scored struct {
	docID uint32
	score float32
}

// less orders by score ascending, ties broken by doc_id ascending so a
// heap of equal scores still has a well-defined root (spec §4.7 tie-break).
func less(a, b scored) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.docID < b.docID
}

// minHeap is a fixed-capacity binary min-heap on a slice, the same inline
// push/pop pattern as the teacher's sqlite-vec top-k heap in Search,
// generalized into a reusable type instead of being inlined per call site.
type minHeap struct {
	items []scored
	cap   int
}

func newMinHeap(k int) *minHeap {
	return &minHeap{items: make([]scored, 0, k), cap: k}
}

func (h *minHeap) Len() int { return len(h.items) }
func (h *minHeap) Full() bool { return len(h.items) >= h.cap }

// Top returns the current root (lowest score), valid only if Len() > 0.
func (h *minHeap) Top() scored { return h.items[0] }

// Threshold is the score a new candidate must exceed to be worth offering:
// the current root's score if full, or the minimum float32 otherwise (spec
// §4.7 "heap_threshold").
func (h *minHeap) Threshold() float32 {
	if h.Full() {
		return h.items[0].score
	}
	return negInf
}

// Offer inserts s if it beats the current threshold, evicting the current
// root when the heap is already at capacity (spec §4.7 heap discipline:
// "offer only if score > heap_threshold").
func (h *minHeap) Offer(s scored) bool {
	if h.Full() {
		if !less(h.items[0], s) {
			return false // s.score <= root.score (or ties losing to doc_id order)
		}
		h.items[0] = s
		h.siftDown(0)
		return true
	}
	h.items = append(h.items, s)
	h.siftUp(len(h.items) - 1)
	return true
}

func (h *minHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(h.items[i], h.items[parent]) {
			break
		}
		h.items[parent], h.items[i] = h.items[i], h.items[parent]
		i = parent
	}
}

func (h *minHeap) siftDown(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && less(h.items[right], h.items[left]) {
			smallest = right
		}
		if !less(h.items[smallest], h.items[i]) {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// Sorted returns a copy of the heap's entries (the heap itself is left
// unchanged) ordered ascending by doc_id, per spec
// §4.7 step 5 ("output the heap as a list ... sorted by ascending doc_id").
func (h *minHeap) Sorted() []scored {
	out := make([]scored, len(h.items))
	copy(out, h.items)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].docID > out[j].docID; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
