// Package circuitbreaker defines the memory-accounting callback contract
// the cache layer (C5) consults before populating a cache entry, and ships
// a simple atomic-counter implementation. The admin settings plumbing that
// would configure a breaker's thresholds in production is out of scope
// (spec Non-goals); this package only fixes the contract and a usable
// default.
package circuitbreaker

import (
	"sync/atomic"

	"seismic/internal/sparseerr"
)

// Breaker gates how much memory the cache layer may hold resident.
// Reserve is called before populating a cache entry with its estimated
// byte size; a CapacityExceeded error means the caller must skip
// populating and read through uncached instead (spec §4.5). Release is
// called when an entry is evicted.
type Breaker interface {
	Reserve(bytes uint64) error
	Release(bytes uint64)
}

// Budget is an atomic-counter Breaker: a fixed byte ceiling, no reclamation
// policy of its own (the cache layer owns eviction). Reserve never blocks.
type Budget struct {
	limit uint64
	used  atomic.Uint64
}

// NewBudget creates a Budget that rejects Reserve once Used() would exceed
// limit bytes.
func NewBudget(limit uint64) *Budget {
	return &Budget{limit: limit}
}

func (b *Budget) Reserve(bytes uint64) error {
	for {
		cur := b.used.Load()
		next := cur + bytes
		if next > b.limit {
			return sparseerr.New(sparseerr.KindCapacityExceeded, "circuitbreaker.Reserve", nil)
		}
		if b.used.CompareAndSwap(cur, next) {
			return nil
		}
	}
}

func (b *Budget) Release(bytes uint64) {
	for {
		cur := b.used.Load()
		next := cur - bytes
		if bytes > cur {
			next = 0
		}
		if b.used.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Used returns the currently reserved byte count.
func (b *Budget) Used() uint64 { return b.used.Load() }

// Limit returns the configured byte ceiling.
func (b *Budget) Limit() uint64 { return b.limit }
