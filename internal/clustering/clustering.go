// Package clustering implements C4: turning a term's raw (doc_id, freq)
// posting list into a posting.PostingClusters via sort-prune-cluster-
// summarize (spec §4.4). The spherical k-means step's nearest-centroid
// assignment and centroid accumulation are adapted from the teacher's
// sqlite-vec dot-product/accumulate loops (dotProductSIMD against a dense
// row, sum-then-normalize for centroid build), generalized from dense
// float32 rows to sparse vectors via sparsevec.Sum/FromDense.
package clustering

import (
	"context"
	"math"
	"sort"

	"seismic/internal/enginelog"
	"seismic/internal/settings"
	"seismic/internal/sparsevec"
)

// MinDocsForCluster is the small-posting short-circuit threshold (spec
// §4.4 step 3).
const MinDocsForCluster = 10

// DefaultPostingMinimumLength is the floor applied to posting prune when the
// configured value is zero (spec §4.4 step 2).
const DefaultPostingMinimumLength = 160

// MaxIterations bounds the k-means refinement loop (spec §4.4 step 4).
const MaxIterations = 25

// Posting is one raw (doc_id, freq) entry accumulated during indexing,
// before clustering.
type Posting struct {
	DocID uint32
	Freq  uint32
}

// VectorSource resolves a doc_id to its forward-index sparse vector.
// Per-document read failures are excluded from clustering rather than
// aborting the whole term (spec §4.4 failure semantics).
type VectorSource func(docID uint32) (sparsevec.SparseVector, error)

// Cluster is the pre-summarization output of the k-means stage: a set of
// member doc_ids (no centroid is stored on it).
type Cluster struct {
	DocIDs []uint32
}

// docEntry pairs a resolved forward-index vector with its doc_id, the unit
// the k-means stage assigns to clusters.
type docEntry struct {
	docID uint32
	vec   sparsevec.SparseVector
}

// Result is a clustered term's full output.
type Result struct {
	Clusters  []ClusterSummary
	Persisted bool // false when zero docs survived (nothing to write)
}

// ClusterSummary is one finished cluster: its alpha-pruned summary vector,
// sorted member doc_ids, and must_visit flag.
type ClusterSummary struct {
	Summary   sparsevec.SparseVector
	DocIDs    []uint32
	MustVisit bool
}

// Build runs the full pipeline for one term's raw postings.
func Build(ctx context.Context, term string, postings []Posting, source VectorSource, params settings.FieldAlgoParams, segmentDocCount int) Result {
	span := enginelog.StartSpan("clustering.Build:" + term)
	defer span.End()

	// 1. sort-by-frequency descending
	sorted := make([]Posting, len(postings))
	copy(sorted, postings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Freq > sorted[j].Freq })

	// 2. posting prune
	pruned := prunePostings(sorted, params, segmentDocCount)

	// resolve vectors, excluding per-doc read failures
	docs := make([]docEntry, 0, len(pruned))
	var maxDim uint16
	for _, p := range pruned {
		v, err := source(p.DocID)
		if err != nil {
			enginelog.Warn("clustering: doc %d excluded from term %q: %v", p.DocID, term, err)
			continue
		}
		docs = append(docs, docEntry{docID: p.DocID, vec: v})
		if d := v.Dim(); d > maxDim {
			maxDim = d
		}
	}

	if len(docs) == 0 {
		return Result{Persisted: false}
	}

	// 3. small-posting short-circuit
	if len(docs) < MinDocsForCluster {
		ids := make([]uint32, len(docs))
		for i, d := range docs {
			ids[i] = d.docID
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return Result{
			Persisted: true,
			Clusters: []ClusterSummary{{
				Summary:   sparsevec.SparseVector{},
				DocIDs:    ids,
				MustVisit: true,
			}},
		}
	}

	// 4. cluster
	k := int(math.Round(params.ClusterRatio * float64(len(docs))))
	if k < 1 {
		k = 1
	}
	if k > len(docs) {
		k = len(docs)
	}
	assignments := kmeans(ctx, docs, maxDim, k)

	// 5. summarize + 6. sort doc_ids ascending
	out := make([]ClusterSummary, 0, k)
	for _, members := range assignments {
		if len(members) == 0 {
			continue // empty clusters discarded
		}
		dense := make([]float32, int(maxDim)+1)
		ids := make([]uint32, 0, len(members))
		for _, idx := range members {
			sparsevec.Sum(dense, docs[idx].vec)
			ids = append(ids, docs[idx].docID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		centroid := sparsevec.FromDense(dense)
		summary := centroid.PruneAlpha(params.SummaryPruneRatio)
		out = append(out, ClusterSummary{Summary: summary, DocIDs: ids, MustVisit: false})
	}

	if len(out) == 0 {
		return Result{Persisted: false}
	}
	return Result{Persisted: true, Clusters: out}
}

func prunePostings(sorted []Posting, params settings.FieldAlgoParams, segmentDocCount int) []Posting {
	minLen := params.PostingMinimumLength
	if minLen <= 0 {
		minLen = DefaultPostingMinimumLength
	}

	limit := len(sorted)
	if params.NPostings > 0 {
		byRatio := int(math.Ceil(params.PostingPruneRatio * float64(segmentDocCount)))
		limit = params.NPostings
		if byRatio < limit {
			limit = byRatio
		}
	} else if params.PostingPruneRatio > 0 && params.PostingPruneRatio < 1 {
		limit = int(math.Ceil(params.PostingPruneRatio * float64(segmentDocCount)))
	}
	if limit < minLen {
		limit = minLen
	}
	if limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit]
}

// kmeans runs spherical k-means over docs' sparse vectors materialized
// against a shared dense width (maxDim+1), per spec §4.4 step 4. Returns,
// for each of the k clusters, the indices into docs assigned to it.
func kmeans(ctx context.Context, docs []docEntry, maxDim uint16, k int) [][]int {
	n := len(docs)
	dim := int(maxDim) + 1

	// initial centroids: k docs spaced evenly in the (already frequency-
	// sorted) order
	centroids := make([][]float32, k)
	for c := 0; c < k; c++ {
		idx := (c * n) / k
		centroids[c] = make([]float32, dim)
		sparsevec.Sum(centroids[c], docs[idx].vec)
	}

	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = -1
	}

	for iter := 0; iter < MaxIterations; iter++ {
		select {
		case <-ctx.Done():
			return groupBy(assignment, k)
		default:
		}

		changed := false
		for i, d := range docs {
			best, bestScore := 0, math.Inf(-1)
			for c := 0; c < k; c++ {
				score := float64(d.vec.DotDense(centroids[c]))
				if score > bestScore {
					best, bestScore = c, score
				}
			}
			if assignment[i] != best {
				assignment[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		for c := range centroids {
			for j := range centroids[c] {
				centroids[c][j] = 0
			}
		}
		for i, d := range docs {
			sparsevec.Sum(centroids[assignment[i]], d.vec)
		}
	}

	return groupBy(assignment, k)
}

func groupBy(assignment []int, k int) [][]int {
	groups := make([][]int, k)
	for i, c := range assignment {
		if c < 0 {
			continue
		}
		groups[c] = append(groups[c], i)
	}
	return groups
}
