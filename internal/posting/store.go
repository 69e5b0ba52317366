package posting

import (
	"seismic/internal/cache"
	"seismic/internal/circuitbreaker"
	"seismic/internal/segment"
	"seismic/internal/sparseerr"
	"seismic/internal/storage"
)

const blobField = "posting"

// Disk is the disk-backed tier: one blob per term within a segment, each
// term addressed by its own storage field name (unlike forwardindex's
// single concatenated blob, since terms are sparse and unboundedly named).
type Disk struct {
	backend storage.Backend
	seg     segment.Key
}

// NewDisk attaches a Disk reader/writer to seg over backend.
func NewDisk(backend storage.Backend, seg segment.Key) *Disk {
	return &Disk{backend: backend, seg: seg}
}

func fieldFor(term string) string {
	return blobField + ":" + term
}

// WriteTerm finalizes term's clusters to storage. Called once per term at
// segment build time.
func (d *Disk) WriteTerm(term string, pc PostingClusters) error {
	return d.backend.WriteFinalize(d.seg, fieldFor(term), Encode(pc))
}

// ReadTerm loads term's clusters from storage.
func (d *Disk) ReadTerm(term string) (PostingClusters, bool, error) {
	data, ok, err := d.backend.ReadBytes(d.seg, fieldFor(term), storage.Range{})
	if err != nil || !ok {
		return PostingClusters{}, ok, err
	}
	pc, err := Decode(data)
	if err != nil {
		return PostingClusters{}, false, err
	}
	return pc, true, nil
}

// Store is the cache-gated composition of the in-memory and disk-backed
// tiers, mirroring forwardindex.Store (spec §4.3/§4.5).
type Store struct {
	memory *Memory
	disk   *Disk
	cached *cache.Keyed[string, PostingClusters]
}

// NewActive creates a Store for a segment still accepting term writes.
func NewActive() *Store {
	return &Store{memory: NewMemory()}
}

// NewFinalized creates a Store over a finalized, disk-backed segment, read
// through a cache gated by breaker.
func NewFinalized(disk *Disk, breaker circuitbreaker.Breaker) *Store {
	s := &Store{disk: disk}
	s.cached = cache.New(breaker, func(term string) (PostingClusters, uint64, bool, error) {
		pc, ok, err := disk.ReadTerm(term)
		if err != nil || !ok {
			return PostingClusters{}, 0, ok, err
		}
		// charge the budget for the quantized-summary memory footprint
		// (SPEC_FULL.md supplemented feature #4), not the full
		// float32 RamBytes the cache actually retains.
		return pc, pc.RamBytesQuantized(), true, nil
	})
	return s
}

// Write stores pc for term. Only valid on an active Store.
func (s *Store) Write(term string, pc PostingClusters) error {
	if s.memory == nil {
		return sparseerr.New(sparseerr.KindStorageError, "posting.Store.Write", nil)
	}
	return s.memory.Write(term, pc)
}

// Read returns term's clusters from whichever tier backs this Store.
func (s *Store) Read(term string) (PostingClusters, bool, error) {
	if s.memory != nil {
		pc, ok := s.memory.Read(term)
		return pc, ok, nil
	}
	return s.cached.Get(term)
}

// Terms returns every term with a posting list. Only valid on an active
// (in-memory) Store; on a finalized Store it returns nil, since no term list
// is kept for a disk-backed segment.
func (s *Store) Terms() []string {
	if s.memory != nil {
		return s.memory.Terms()
	}
	return nil
}

// EvictCached drops term from this Store's read cache.
func (s *Store) EvictCached(term string) {
	if s.cached != nil {
		s.cached.Evict(term)
	}
}

// ClearCache drops every cached entry for this Store.
func (s *Store) ClearCache() {
	if s.cached != nil {
		s.cached.Clear()
	}
}

// Warmup populates the cache for the given terms ahead of query traffic.
func (s *Store) Warmup(terms []string) error {
	if s.cached == nil {
		return nil
	}
	return s.cached.Warmup(terms)
}

// RamBytes reports the Store's current resident memory.
func (s *Store) RamBytes() uint64 {
	switch {
	case s.memory != nil:
		return s.memory.RamBytes()
	default:
		return 0
	}
}
