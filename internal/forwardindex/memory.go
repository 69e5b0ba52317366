package forwardindex

import (
	"sync"
	"sync/atomic"

	"seismic/internal/sparseerr"
	"seismic/internal/sparsevec"
)

// Index is the forward-index contract shared by the in-memory, disk-backed,
// and cache-gated implementations (spec §4.2).
type Index interface {
	Insert(docID uint32, v sparsevec.SparseVector) error
	Read(docID uint32) (sparsevec.SparseVector, bool, error)
	Erase(docID uint32) (uint64, error)
	RamBytes() uint64
}

// slot holds one doc_id's vector behind an atomic pointer so that readers
// never observe a partially-initialized SparseVector (spec §5 "publication
// safe"): the pointer is only ever stored once, fully built.
type slot struct {
	v atomic.Pointer[sparsevec.SparseVector]
}

// Memory is the in-memory tier of the forward index: a contiguous array
// indexed by local doc_id, generalized from the teacher's sqlite-vec
// vectorArena (a flat []float32 indexed by row) to a flat []*slot indexed by
// doc_id, since entries are optional and variable-length. The backing array
// itself sits behind an atomic pointer (copy-on-write on growth or
// first-touch of a slot), so Read never takes a lock: growLock only
// serializes the copy-and-publish done by ensureSlot.
type Memory struct {
	growLock sync.Mutex
	slots    atomic.Pointer[[]*slot]
	ramBytes atomic.Uint64
}

// NewMemory creates an empty in-memory forward index tier.
func NewMemory() *Memory {
	m := &Memory{}
	empty := []*slot{}
	m.slots.Store(&empty)
	return m
}

// presize grows the backing array to hold at least n slots, ahead of a known
// batch of inserts. Only valid before any concurrent access begins (called
// once, right after NewMemory, by GetOrCreate).
func (m *Memory) presize(n int) {
	grown := make([]*slot, n)
	m.slots.Store(&grown)
}

// ensureSlot returns docID's slot, publishing a freshly copied backing array
// if growth or first-touch is needed. The published array is never mutated
// in place afterward — every change to it is copy-then-store — so a reader
// that loaded an older array before this call completes still sees a
// self-consistent view (spec §5 publication safety).
func (m *Memory) ensureSlot(docID uint32) *slot {
	m.growLock.Lock()
	defer m.growLock.Unlock()
	idx := int(docID)
	old := *m.slots.Load()
	if idx < len(old) && old[idx] != nil {
		return old[idx]
	}
	n := len(old)
	if idx >= n {
		n = idx + 1
	}
	grown := make([]*slot, n)
	copy(grown, old)
	if grown[idx] == nil {
		grown[idx] = &slot{}
	}
	m.slots.Store(&grown)
	return grown[idx]
}

// Insert stores v at docID. Re-insertion into an already-populated slot
// fails with DuplicateDoc (spec §4.2: "insert is called at most once per
// (segment, doc_id); re-insertion is an error"). Insertion is idempotent
// under a race: only the first successful CompareAndSwap wins, the loser
// observes the slot as populated and returns DuplicateDoc.
func (m *Memory) Insert(docID uint32, v sparsevec.SparseVector) error {
	s := m.ensureSlot(docID)
	vv := v
	if !s.v.CompareAndSwap(nil, &vv) {
		return sparseerr.New(sparseerr.KindDuplicateDoc, "forwardindex.Memory.Insert", nil)
	}
	m.ramBytes.Add(v.RamBytes())
	return nil
}

// Read returns the vector stored at docID, or ok=false if absent. Lock-free:
// readers only dereference the backing array's atomic pointer and, if a slot
// exists there, the slot's own atomic pointer — never growLock (spec §5).
func (m *Memory) Read(docID uint32) (sparsevec.SparseVector, bool, error) {
	idx := int(docID)
	slots := *m.slots.Load()
	if idx >= len(slots) {
		return sparsevec.SparseVector{}, false, nil
	}
	s := slots[idx]
	if s == nil {
		return sparsevec.SparseVector{}, false, nil
	}
	p := s.v.Load()
	if p == nil {
		return sparsevec.SparseVector{}, false, nil
	}
	return *p, true, nil
}

// Erase drops docID's vector and returns the RAM freed, used by cache
// eviction (spec §4.2). Also lock-free on the read side, for the same
// reason as Read.
func (m *Memory) Erase(docID uint32) (uint64, error) {
	idx := int(docID)
	slots := *m.slots.Load()
	var s *slot
	if idx < len(slots) {
		s = slots[idx]
	}
	if s == nil {
		return 0, nil
	}
	p := s.v.Swap(nil)
	if p == nil {
		return 0, nil
	}
	freed := p.RamBytes()
	m.ramBytes.Add(^(freed - 1)) // atomic subtract
	return freed, nil
}

// RamBytes returns the tier's total resident memory estimate.
func (m *Memory) RamBytes() uint64 {
	return m.ramBytes.Load()
}
