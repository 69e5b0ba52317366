// Package query implements C7: the top-k search algorithm over clustered
// postings, with dynamic-threshold cluster pruning, per-leaf parallelism,
// and a single-threaded global merge. The per-leaf worker fan-out and
// result-channel merge are adapted directly from the teacher's sqlite-vec
// Search method (chunk the candidate set across adaptiveWorkers goroutines,
// each keeping its own local top-k heap, then merge on the calling
// goroutine); the cluster-pruning scan itself has no teacher analogue and
// is built from spec §4.7.
package query

import (
	"context"
	"errors"
	"math/bits"
	"sort"

	"seismic/internal/concurrency"
	"seismic/internal/enginelog"
	"seismic/internal/forwardindex"
	"seismic/internal/posting"
	"seismic/internal/sparseerr"
	"seismic/internal/sparsevec"
)

// BitSet is a simple fixed-domain bitset used for both accept_docs filters
// and the per-leaf visited set (spec §4.7).
type BitSet struct {
	words []uint64
}

// NewBitSet creates a BitSet over doc ids [0, n).
func NewBitSet(n int) *BitSet {
	return &BitSet{words: make([]uint64, (n+63)/64)}
}

func (b *BitSet) ensure(docID uint32) {
	w := int(docID)/64 + 1
	if w > len(b.words) {
		grown := make([]uint64, w)
		copy(grown, b.words)
		b.words = grown
	}
}

// Set marks docID as present.
func (b *BitSet) Set(docID uint32) {
	b.ensure(docID)
	b.words[docID/64] |= 1 << (docID % 64)
}

// Test reports whether docID is marked.
func (b *BitSet) Test(docID uint32) bool {
	w := int(docID) / 64
	if w >= len(b.words) {
		return false
	}
	return b.words[w]&(1<<(docID%64)) != 0
}

// Count returns the number of set bits.
func (b *BitSet) Count() int {
	n := 0
	for _, w := range b.words {
		n += bits.OnesCount64(w)
	}
	return n
}

// Leaf is one segment's forward index + posting store, the unit the
// executor scores independently before the global merge.
type Leaf struct {
	Forward *forwardindex.Store
	Posting *posting.Store
	DocIDs  func() []uint32 // flat-posting fallback: every doc in the segment
}

// Request bundles one query's parameters (spec §4.7 inputs).
type Request struct {
	QueryVec    sparsevec.SparseVector
	QueryTokens []uint16
	K           int
	HeapFactor  float64
	AcceptDocs  *BitSet
	FlatPosting bool // segment below algo_trigger_doc_count: no cluster pruning
}

// Result is one (doc_id, score) match.
type Result struct {
	DocID uint32
	Score float32
}

// scorerState is the per-token scanner's lifecycle (spec §4.7 state
// machine): Init before any qualifying cluster has been found,
// InCluster while iterating a qualifying cluster's members, Exhausted once
// no further cluster in this token's posting list can qualify.
type scorerState int

const (
	stateInit scorerState = iota
	stateInCluster
	stateExhausted
)

// SearchLeaf runs the per-segment algorithm of spec §4.7 and returns the
// leaf's local top-k, sorted ascending by doc_id (step 5).
func SearchLeaf(ctx context.Context, leaf Leaf, req Request) ([]Result, error) {
	span := enginelog.StartSpan("query.SearchLeaf")
	defer span.End()

	dense := req.QueryVec.ToDense(maxToken(req.QueryVec, req.QueryTokens))
	heap := newMinHeap(req.K)
	visited := NewBitSet(256)

	if req.FlatPosting {
		if err := scanFlat(ctx, leaf, dense, req, heap, visited); err != nil {
			return nil, err
		}
	} else {
		for _, token := range req.QueryTokens {
			select {
			case <-ctx.Done():
				return nil, sparseerr.New(ctxErrKind(ctx.Err()), "query.SearchLeaf", ctx.Err())
			default:
			}
			pc, ok, err := leaf.Posting.Read(tokenTerm(token))
			if err != nil {
				return nil, sparseerr.New(sparseerr.KindStorageError, "query.SearchLeaf", err)
			}
			if !ok {
				continue
			}
			if err := scanToken(ctx, leaf, pc, dense, req, heap, visited); err != nil {
				return nil, err
			}
		}
	}

	out := make([]Result, 0, heap.Len())
	for _, s := range heap.Sorted() {
		out = append(out, Result{DocID: s.docID, Score: s.score})
	}
	return out, nil
}

// scanToken walks one token's posting clusters in stored order, applying
// the dynamic-threshold pruning rule (spec §4.7 step 4).
func scanToken(ctx context.Context, leaf Leaf, pc posting.PostingClusters, dense []float32, req Request, heap *minHeap, visited *BitSet) error {
	for _, cluster := range pc.Clusters {
		select {
		case <-ctx.Done():
			return sparseerr.New(ctxErrKind(ctx.Err()), "query.scanToken", ctx.Err())
		default:
		}

		qualifies := cluster.MustVisit
		if !qualifies {
			s := cluster.Summary.DotDense(dense)
			if heap.Full() && float64(s) < float64(heap.Top().score)/req.HeapFactor {
				continue
			}
			qualifies = true
		}
		if !qualifies {
			continue
		}

		for _, docID := range cluster.DocIDs {
			if req.AcceptDocs != nil && !req.AcceptDocs.Test(docID) {
				continue
			}
			if visited.Test(docID) {
				continue
			}
			visited.Set(docID)

			v, ok, err := leaf.Forward.Read(docID)
			if err != nil {
				return sparseerr.New(sparseerr.KindStorageError, "query.scanToken", err)
			}
			if !ok {
				enginelog.Warn("query: forward-index miss for doc %d, skipped", docID)
				continue
			}
			score := v.DotDense(dense)
			if score > heap.Threshold() {
				heap.Offer(scored{docID: docID, score: score})
			}
		}
	}
	return nil
}

// scanFlat is the fallback path for small/flat-posting segments: every doc
// is visited once, with no cluster pruning (spec §4.7 "Fallback" path).
func scanFlat(ctx context.Context, leaf Leaf, dense []float32, req Request, heap *minHeap, visited *BitSet) error {
	if leaf.DocIDs == nil {
		return nil
	}
	for _, docID := range leaf.DocIDs() {
		select {
		case <-ctx.Done():
			return sparseerr.New(ctxErrKind(ctx.Err()), "query.scanFlat", ctx.Err())
		default:
		}
		if req.AcceptDocs != nil && !req.AcceptDocs.Test(docID) {
			continue
		}
		if visited.Test(docID) {
			continue
		}
		visited.Set(docID)
		v, ok, err := leaf.Forward.Read(docID)
		if err != nil {
			return sparseerr.New(sparseerr.KindStorageError, "query.scanFlat", err)
		}
		if !ok {
			continue
		}
		score := v.DotDense(dense)
		if score > heap.Threshold() {
			heap.Offer(scored{docID: docID, score: score})
		}
	}
	return nil
}

// ctxErrKind classifies a cancelled context's error (spec §5: the deadline
// is consulted at the same points as cancellation, but §7 keeps
// DeadlineExceeded a distinct kind from Cancelled).
func ctxErrKind(err error) sparseerr.Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return sparseerr.KindDeadlineExceeded
	}
	return sparseerr.KindCancelled
}

func maxToken(v sparsevec.SparseVector, tokens []uint16) uint16 {
	dim := v.Dim()
	for _, t := range tokens {
		if t > dim {
			dim = t
		}
	}
	return dim
}

func tokenTerm(token uint16) string {
	// posting terms are keyed by the raw token id's decimal string; the
	// tokenizer/term-dictionary mapping from text terms to token ids is
	// external (spec §1 Non-goals), so this module addresses posting lists
	// directly by token id.
	return uintToString(uint64(token))
}

func uintToString(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// SearchLeaves runs SearchLeaf over every leaf in parallel on pool, then
// merges the per-leaf top-k into one global top-k sorted by score
// descending (ties by doc_id ascending), per spec §4.7/§5 "the global
// top-k merge is single-threaded".
func SearchLeaves(ctx context.Context, leaves []Leaf, req Request, pool *concurrency.Pool) ([]Result, error) {
	type leafResult struct {
		results []Result
		err     error
	}
	resultsCh := make(chan leafResult, len(leaves))

	for _, leaf := range leaves {
		leaf := leaf
		if err := pool.Submit(ctx, func() {
			res, err := SearchLeaf(ctx, leaf, req)
			resultsCh <- leafResult{results: res, err: err}
		}); err != nil {
			return nil, err
		}
	}

	merged := make([]Result, 0, len(leaves)*req.K)
	for range leaves {
		lr := <-resultsCh
		if lr.err != nil {
			return nil, lr.err
		}
		merged = append(merged, lr.results...)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].DocID < merged[j].DocID
	})
	if len(merged) > req.K {
		merged = merged[:req.K]
	}
	return merged, nil
}
