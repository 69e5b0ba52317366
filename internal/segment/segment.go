// Package segment defines the keys and lifecycle types that scope every
// in-memory structure in the engine. Structures are keyed by (segment_uuid,
// field_name); nothing ever references another segment's data (spec §9).
package segment

import "github.com/google/uuid"

// Key identifies a single segment's field-scoped data: the forward index,
// clustered postings, and cache entries for one sparse field of one segment
// all live under the same Key.
type Key struct {
	SegmentUUID string
	Field       string
}

// NewUUID generates a fresh segment identifier. Called once per flush or
// merge-finalize, matching the teacher's id-per-row allocation style but
// using a real UUID (google/uuid) instead of a composed string key.
func NewUUID() string {
	return uuid.NewString()
}

// Lifecycle describes why a segment's in-memory structures are being
// constructed or torn down. No other package in this module consults it;
// the cache layer (C5) evicts without regard to it.
type Lifecycle int

const (
	// LifecycleFlush: segment created directly from indexed documents.
	LifecycleFlush Lifecycle = iota
	// LifecycleMerge: segment created by merging other segments.
	LifecycleMerge
	// LifecycleEvict: segment's structures are being dropped (close or
	// explicit clear-cache), no replacement is coming.
	LifecycleEvict
)

// MergeInput describes the segments being folded into a new one (spec
// §4.6). The pre-merge eviction itself, indexing.EvictInputs, takes the
// input stores directly rather than a MergeInput.
type MergeInput struct {
	Sources []Key
	Target  Key
}
