// Package cache implements C5: a read-through cache layer in front of any
// disk-backed tier, generalized from the teacher's sqlite-vec queryCache
// (a single map-based LRU guarded by one mutex) into a generic, per-key
// lock-coalescing cache shared by the forward index and the posting store.
// Unlike the teacher's cache, eviction here is explicit only: there is no
// background LRU sweep, matching the spec's "evict_segment / clear_cache"
// contract (spec §4.5).
package cache

import (
	"sync"

	"seismic/internal/circuitbreaker"
	"seismic/internal/sparseerr"
)

// Loader fetches the authoritative value for key on a cache miss, along
// with its resident memory cost for budget accounting.
type Loader[K comparable, V any] func(key K) (value V, ramBytes uint64, ok bool, err error)

// entry is a cached value plus the byte cost it reserved from the breaker,
// so Evict can release exactly what Populate reserved.
type entry[V any] struct {
	value    V
	ramBytes uint64
}

// inflight coalesces concurrent misses on the same key: the first caller
// does the load and closes done; every other caller for the same key blocks
// on done instead of issuing a redundant load (spec §4.5 "concurrent misses
// on the same key are coalesced").
type inflight[V any] struct {
	done  chan struct{}
	value V
	ok    bool
	err   error
}

// Keyed is a read-through cache keyed by K, gated by a circuitbreaker.Breaker
// memory budget. Zero value is not usable; construct with New.
type Keyed[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]entry[V]
	pending  map[K]*inflight[V]
	breaker  circuitbreaker.Breaker
	load     Loader[K, V]
}

// New creates a Keyed cache that calls load on misses and gates population
// through breaker.
func New[K comparable, V any](breaker circuitbreaker.Breaker, load Loader[K, V]) *Keyed[K, V] {
	return &Keyed[K, V]{
		entries: make(map[K]entry[V]),
		pending: make(map[K]*inflight[V]),
		breaker: breaker,
		load:    load,
	}
}

// Get returns the value for key and whether it exists, populating the
// cache on a miss. If the memory budget rejects the reservation, Get still
// returns the freshly loaded value (read-through) but does not retain it in
// the cache (spec §4.5: "on CapacityExceeded, skip populate and read
// through uncached").
func (c *Keyed[K, V]) Get(key K) (V, bool, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return e.value, true, nil
	}
	if in, ok := c.pending[key]; ok {
		c.mu.Unlock()
		<-in.done
		return in.value, in.ok, in.err
	}
	in := &inflight[V]{done: make(chan struct{})}
	c.pending[key] = in
	c.mu.Unlock()

	value, ramBytes, found, err := c.load(key)
	if err != nil {
		in.err = err
	} else if found {
		in.value = value
		in.ok = true
	}

	c.mu.Lock()
	delete(c.pending, key)
	if in.err == nil && in.ok {
		if resErr := c.breaker.Reserve(ramBytes); resErr == nil {
			c.entries[key] = entry[V]{value: value, ramBytes: ramBytes}
		} else if sparseerr.Is(resErr, sparseerr.KindCapacityExceeded) {
			// read through uncached, as documented above
		} else {
			in.err = resErr
		}
	}
	c.mu.Unlock()
	close(in.done)
	return in.value, in.ok, in.err
}

// Evict drops key from the cache and releases its reserved memory, without
// touching the underlying disk tier (spec §4.5 explicit eviction).
func (c *Keyed[K, V]) Evict(key K) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()
	if ok {
		c.breaker.Release(e.ramBytes)
	}
}

// Clear drops every cached entry and releases all reserved memory.
func (c *Keyed[K, V]) Clear() {
	c.mu.Lock()
	all := c.entries
	c.entries = make(map[K]entry[V])
	c.mu.Unlock()
	for _, e := range all {
		c.breaker.Release(e.ramBytes)
	}
}

// Warmup loads and populates every key that is not already cached, used by
// the admin warmup operation (spec §4.8).
func (c *Keyed[K, V]) Warmup(keys []K) error {
	for _, k := range keys {
		if _, _, err := c.Get(k); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of currently cached entries.
func (c *Keyed[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
