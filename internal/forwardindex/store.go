package forwardindex

import (
	"seismic/internal/cache"
	"seismic/internal/circuitbreaker"
	"seismic/internal/segment"
	"seismic/internal/sparseerr"
	"seismic/internal/sparsevec"
)

// Store is the cache-gated composition of the in-memory and disk-backed
// tiers (spec §4.2): writes land in Memory (the active, still-mutable
// segment); reads against a finalized segment go through a Keyed cache that
// loads from Disk on miss. A Store over a segment still being built never
// has a Disk tier and serves entirely out of Memory.
type Store struct {
	memory *Memory
	disk   *Disk
	cached *cache.Keyed[uint32, sparsevec.SparseVector]
}

// NewActive creates a Store for a segment still accepting inserts: Memory
// only, no disk tier yet.
func NewActive() *Store {
	return &Store{memory: NewMemory()}
}

// GetOrCreate returns the active Store for seg, pre-sizing its in-memory
// tier for docCount documents. Spec §9 notes two divergent source
// definitions of this constructor, one taking a segment write state and one
// taking a segment key plus doc count; only the latter form is implemented
// here (see DESIGN.md) — callers that hold a write-state value extract its
// (segment.Key, docCount) before calling this.
func GetOrCreate(seg segment.Key, docCount int) *Store {
	s := NewActive()
	if docCount > 0 {
		s.memory.presize(docCount)
	}
	return s
}

// NewFinalized creates a Store over a finalized, disk-backed segment, read
// through a per-segment cache gated by breaker.
func NewFinalized(disk *Disk, breaker circuitbreaker.Breaker) *Store {
	s := &Store{disk: disk}
	s.cached = cache.New(breaker, func(docID uint32) (sparsevec.SparseVector, uint64, bool, error) {
		v, ok, err := disk.Read(docID)
		if err != nil || !ok {
			return sparsevec.SparseVector{}, 0, ok, err
		}
		return v, v.RamBytes(), true, nil
	})
	return s
}

// Insert stores v at docID. Only valid on an active (pre-finalize) Store.
func (s *Store) Insert(docID uint32, v sparsevec.SparseVector) error {
	if s.memory == nil {
		return sparseerr.New(sparseerr.KindStorageError, "forwardindex.Store.Insert", nil)
	}
	return s.memory.Insert(docID, v)
}

// Read returns the vector for docID from whichever tier backs this Store.
func (s *Store) Read(docID uint32) (sparsevec.SparseVector, bool, error) {
	if s.memory != nil {
		return s.memory.Read(docID)
	}
	v, ok, err := s.cached.Get(docID)
	if err != nil {
		return sparsevec.SparseVector{}, false, err
	}
	return v, ok, nil
}

// Erase drops docID from the active Memory tier and returns bytes freed.
func (s *Store) Erase(docID uint32) (uint64, error) {
	if s.memory != nil {
		return s.memory.Erase(docID)
	}
	return 0, nil
}

// EvictCached drops docID from this Store's read cache without touching the
// underlying disk segment (spec §4.5 explicit eviction).
func (s *Store) EvictCached(docID uint32) {
	if s.cached != nil {
		s.cached.Evict(docID)
	}
}

// ClearCache drops every cached entry for this Store.
func (s *Store) ClearCache() {
	if s.cached != nil {
		s.cached.Clear()
	}
}

// Warmup populates the cache for the given doc_ids ahead of query traffic.
func (s *Store) Warmup(docIDs []uint32) error {
	if s.cached == nil {
		return nil
	}
	return s.cached.Warmup(docIDs)
}

// RamBytes reports the Store's current resident memory across whichever
// tier is active.
func (s *Store) RamBytes() uint64 {
	switch {
	case s.memory != nil:
		return s.memory.RamBytes()
	case s.disk != nil:
		return s.disk.RamBytes()
	default:
		return 0
	}
}
