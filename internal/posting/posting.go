// Package posting implements C3: the clustered posting list store. A term's
// posting list is a PostingClusters — an ordered list of DocumentCluster
// entries, each carrying a summary vector used by the query executor to
// decide whether the cluster needs a full visit (spec §4.3).
//
// The wire format and the in-memory/disk/cache-gated tier split mirror
// internal/forwardindex directly, generalized the same way from the
// teacher's sqlite-vec vectorArena/loadCache pair.
package posting

import (
	"sort"
	"sync"

	"seismic/internal/sparseerr"
	"seismic/internal/sparsevec"
)

// DocumentCluster is one cluster of a term's posting list: a summary vector
// used for pruning, the member doc_ids in ascending order, and whether the
// cluster must always be fully visited (spec §4.3 — small postings and
// flat, unclustered postings set MustVisit so the executor never prunes
// them; clusters produced by k-means never set it).
type DocumentCluster struct {
	Summary   sparsevec.SparseVector
	DocIDs    []uint32
	MustVisit bool
}

// PostingClusters is a term's full clustered posting list.
type PostingClusters struct {
	Clusters []DocumentCluster
}

// Len returns the total number of postings (documents) across all clusters.
func (p PostingClusters) Len() int {
	n := 0
	for _, c := range p.Clusters {
		n += len(c.DocIDs)
	}
	return n
}

// RamBytes estimates the list's resident memory.
func (p PostingClusters) RamBytes() uint64 {
	var total uint64
	for _, c := range p.Clusters {
		total += c.Summary.RamBytes()
		total += uint64(len(c.DocIDs)) * 4
		total += 16 // slice header + bool, roughly
	}
	return total
}

// RamBytesQuantized estimates the list's resident memory if every cluster
// summary were held in its byte-quantized form (spec §3 ByteQuantizer)
// instead of full float32 weights. The cache layer charges cluster summaries
// against this figure rather than RamBytes, since a quantized summary is the
// realistic memory-saving tier a production SEISMIC index would serve reads
// from (the doc_id list and must_visit flag are unaffected by quantization).
func (p PostingClusters) RamBytesQuantized() uint64 {
	var total uint64
	for _, c := range p.Clusters {
		total += sparsevec.Quantize(c.Summary, 0).RamBytes()
		total += uint64(len(c.DocIDs)) * 4
		total += 16
	}
	return total
}

// Memory is the in-memory tier of the posting store: one PostingClusters
// per term, write-once (spec §4.3: "a second write to an existing term is
// DuplicateTerm").
type Memory struct {
	mu    sync.RWMutex
	terms map[string]PostingClusters
}

// NewMemory creates an empty in-memory posting store.
func NewMemory() *Memory {
	return &Memory{terms: make(map[string]PostingClusters)}
}

// Write stores pc under term. Fails with DuplicateTerm if term already has
// an entry.
func (m *Memory) Write(term string, pc PostingClusters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.terms[term]; exists {
		return sparseerr.New(sparseerr.KindDuplicateTerm, "posting.Memory.Write", nil)
	}
	m.terms[term] = pc
	return nil
}

// Read returns the clusters stored for term, or ok=false if none.
func (m *Memory) Read(term string) (PostingClusters, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pc, ok := m.terms[term]
	return pc, ok
}

// Terms returns every term with a posting list, in sorted order.
func (m *Memory) Terms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.terms))
	for t := range m.terms {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Size returns the number of terms with a posting list.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.terms)
}

// RamBytes sums RAM across every term's posting list.
func (m *Memory) RamBytes() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total uint64
	for _, pc := range m.terms {
		total += pc.RamBytes()
	}
	return total
}
