// Package storage defines the StorageBackend contract the engine uses for
// everything it persists past process lifetime: forward-index entries and
// clustered posting entries, each addressed by (segment, field) plus a
// logical byte range (spec §4.2/§4.3, "out of scope: the underlying
// segmented storage engine internals"). The engine never assumes a
// filesystem or a particular database; sqlitekv is the one concrete backend
// this module ships.
package storage

import "seismic/internal/segment"

// Range is a logical byte range within a (segment, field)'s stored blob.
// Offset and Length are both in bytes; a zero Length reads from Offset to
// the end of the blob (so the zero Range reads the whole blob).
type Range struct {
	Offset uint64
	Length uint64
}

// Backend is the storage contract a forward index, posting store, or cache
// layer writes through. Implementations need not be durable across process
// restarts to satisfy the engine's own invariants, but the shipped
// implementation is.
type Backend interface {
	// ReadBytes returns the bytes in r from (seg, field)'s stored blob. ok is
	// false if no blob has been finalized for (seg, field) yet.
	ReadBytes(seg segment.Key, field string, r Range) (data []byte, ok bool, err error)

	// WriteFinalize writes the complete blob for (seg, field), replacing any
	// prior contents. Called once per (segment, field) at segment finalize or
	// merge time (spec §4.6).
	WriteFinalize(seg segment.Key, field string, data []byte) error

	// Size returns the length in bytes of (seg, field)'s stored blob, or
	// ok=false if none exists.
	Size(seg segment.Key, field string) (size uint64, ok bool, err error)

	// Delete removes (seg, field)'s stored blob, used when a segment is
	// merged away (spec §4.6 merge input retirement).
	Delete(seg segment.Key, field string) error
}
