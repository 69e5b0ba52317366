// Package indexing implements C6: consuming a stream of (doc_id, term ->
// freq) updates into the forward index, and, at segment finalize/merge
// time, driving the clustering pipeline (C4) to populate the clustered
// posting store (C3). Term keys are the decimal string form of each sparse
// vector's token id, consistent with internal/query's tokenTerm addressing
// (tokenization into token ids is external to this module; spec §1
// Non-goals).
package indexing

import (
	"context"
	"fmt"
	"strconv"

	"seismic/internal/circuitbreaker"
	"seismic/internal/clustering"
	"seismic/internal/concurrency"
	"seismic/internal/enginelog"
	"seismic/internal/forwardindex"
	"seismic/internal/posting"
	"seismic/internal/segment"
	"seismic/internal/settings"
	"seismic/internal/sparsevec"
	"seismic/internal/storage"
)

// Segment is one actively-building segment: the forward index and raw
// per-term posting buffers accumulated since the last finalize.
type Segment struct {
	Key      segment.Key
	Forward  *forwardindex.Store
	rawTerms map[string][]clustering.Posting
	nextDoc  uint32
}

// NewSegment creates an empty, actively-building segment.
func NewSegment(key segment.Key) *Segment {
	return &Segment{
		Key:      key,
		Forward:  forwardindex.NewActive(),
		rawTerms: make(map[string][]clustering.Posting),
	}
}

// DocCount returns the number of documents inserted so far.
func (s *Segment) DocCount() int { return int(s.nextDoc) }

// AddDocument builds a SparseVector from pairs, inserts it into the forward
// index, and appends (doc_id, freq) to each token's raw postings buffer
// (spec §4.6 steps 1-3). Freq is the pair's weight, truncated to the
// nearest non-negative integer, matching "freq" as a frequency count.
func (s *Segment) AddDocument(pairs []sparsevec.Pair) (uint32, error) {
	vec, err := sparsevec.New(pairs)
	if err != nil {
		return 0, err
	}
	docID := s.nextDoc
	s.nextDoc++
	if err := s.Forward.Insert(docID, vec); err != nil {
		return 0, err
	}
	for i, t := range vec.Tokens() {
		term := strconv.FormatUint(uint64(t), 10)
		s.rawTerms[term] = append(s.rawTerms[term], clustering.Posting{
			DocID: docID,
			Freq:  uint32(vec.Weights()[i]),
		})
	}
	return docID, nil
}

// FinalizeResult reports what happened to each term during finalize.
type FinalizeResult struct {
	Store        *posting.Store
	Disk         *forwardindex.Disk
	FailedTerms  []string
	ClusteredAll bool // false if doc_count < algo_trigger_doc_count
}

// Finalize runs the segment-finalize logic of spec §4.6: below
// algo_trigger_doc_count, flat (single must-visit cluster) postings only;
// otherwise, run the clustering pipeline per term in parallel, bounded by
// the training pool. Per-term failures are collected, not fatal.
func Finalize(ctx context.Context, s *Segment, backend storage.Backend, params settings.FieldAlgoParams, pool *concurrency.Pool, breaker circuitbreaker.Breaker) (*FinalizeResult, error) {
	span := enginelog.StartSpan("indexing.Finalize:" + s.Key.SegmentUUID)
	defer span.End()

	entries := make(map[uint32]sparsevec.SparseVector, s.nextDoc)
	for docID := uint32(0); docID < s.nextDoc; docID++ {
		v, ok, err := s.Forward.Read(docID)
		if err != nil {
			return nil, err
		}
		if ok {
			entries[docID] = v
		}
	}
	disk, err := forwardindex.Build(backend, s.Key, entries)
	if err != nil {
		return nil, err
	}

	source := func(docID uint32) (sparsevec.SparseVector, error) {
		v, ok, rerr := s.Forward.Read(docID)
		if rerr != nil {
			return sparsevec.SparseVector{}, rerr
		}
		if !ok {
			return sparsevec.SparseVector{}, fmt.Errorf("indexing: doc %d not found in forward index", docID)
		}
		return v, nil
	}

	postingDisk := posting.NewDisk(backend, s.Key)
	clustered := !shouldUseFlat(s.DocCount(), params)

	type termOutcome struct {
		term   string
		result clustering.Result
		failed bool
	}
	resultsCh := make(chan termOutcome, len(s.rawTerms))

	for term, raw := range s.rawTerms {
		term, raw := term, raw
		submit := func() {
			var result clustering.Result
			if clustered {
				result = clustering.Build(ctx, term, raw, source, params, s.DocCount())
			} else {
				result = flatResult(raw)
			}
			resultsCh <- termOutcome{term: term, result: result}
		}
		if err := pool.Submit(ctx, submit); err != nil {
			resultsCh <- termOutcome{term: term, failed: true}
		}
	}

	var failed []string
	for range s.rawTerms {
		out := <-resultsCh
		if out.failed || !out.result.Persisted {
			if out.failed {
				failed = append(failed, out.term)
			}
			continue
		}
		pc := posting.PostingClusters{Clusters: make([]posting.DocumentCluster, len(out.result.Clusters))}
		for i, c := range out.result.Clusters {
			pc.Clusters[i] = posting.DocumentCluster{Summary: c.Summary, DocIDs: c.DocIDs, MustVisit: c.MustVisit}
		}
		if err := postingDisk.WriteTerm(out.term, pc); err != nil {
			failed = append(failed, out.term)
		}
	}

	return &FinalizeResult{
		Store:        posting.NewFinalized(postingDisk, breaker),
		Disk:         disk,
		FailedTerms:  failed,
		ClusteredAll: clustered,
	}, nil
}

func shouldUseFlat(docCount int, params settings.FieldAlgoParams) bool {
	return docCount < params.AlgoTriggerDocCount
}

// flatResult builds the single must-visit cluster flat-posting form used
// both below algo_trigger_doc_count and as Finalize's no-cluster path.
func flatResult(raw []clustering.Posting) clustering.Result {
	ids := make([]uint32, len(raw))
	for i, p := range raw {
		ids[i] = p.DocID
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return clustering.Result{
		Persisted: true,
		Clusters: []clustering.ClusterSummary{{
			Summary:   sparsevec.SparseVector{},
			DocIDs:    ids,
			MustVisit: true,
		}},
	}
}

// EvictInputs drops the cached entries of every input segment ahead of a
// merge rebuild (spec §4.6 "merged segments ... evicted to avoid stale
// caching").
func EvictInputs(inputs []*forwardindex.Store, postings []*posting.Store) {
	for _, fi := range inputs {
		fi.ClearCache()
	}
	for _, ps := range postings {
		ps.ClearCache()
	}
}
