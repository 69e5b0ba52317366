package forwardindex

import (
	"fmt"

	"seismic/internal/segment"
	"seismic/internal/sparseerr"
	"seismic/internal/sparsevec"
	"seismic/internal/storage"
)

// Disk is the disk-backed forward-index tier: an opaque byte-range reader
// over a storage.Backend, addressed by per-doc offsets recorded in a side
// directory built at finalize time. It never mutates after Build; inserts
// belong to the in-memory tier that precedes finalization.
type Disk struct {
	backend storage.Backend
	seg     segment.Key
	field   string
	offsets map[uint32]storage.Range
}

// field name forward-index blobs are stored under within a segment.
const blobField = "forward"

// Build writes entries (deduplicated by construction, in map iteration order,
// so not sorted by doc_id) to backend as a single concatenated blob and
// returns a Disk reader over it.
// Each entry is encoded with Encode; Build records each doc_id's byte range
// so Read can issue a targeted ReadBytes instead of loading the whole
// segment (spec §4.2: disk tier is an "opaque byte-range reader").
func Build(backend storage.Backend, seg segment.Key, entries map[uint32]sparsevec.SparseVector) (*Disk, error) {
	offsets := make(map[uint32]storage.Range, len(entries))
	var blob []byte
	for docID, v := range entries {
		enc := Encode(v)
		offsets[docID] = storage.Range{Offset: uint64(len(blob)), Length: uint64(len(enc))}
		blob = append(blob, enc...)
	}
	if err := backend.WriteFinalize(seg, blobField, blob); err != nil {
		return nil, err
	}
	return &Disk{backend: backend, seg: seg, field: blobField, offsets: offsets}, nil
}

// OpenDisk reattaches to an already-finalized segment's forward index given
// its previously recorded offset table (callers persist the offset table
// alongside the blob; the spec leaves that side-channel's format
// unspecified, so this module keeps it in memory for a freshly-built
// segment and expects a rebuild on process restart for now).
func OpenDisk(backend storage.Backend, seg segment.Key, offsets map[uint32]storage.Range) *Disk {
	return &Disk{backend: backend, seg: seg, field: blobField, offsets: offsets}
}

func (d *Disk) Read(docID uint32) (sparsevec.SparseVector, bool, error) {
	r, ok := d.offsets[docID]
	if !ok {
		return sparsevec.SparseVector{}, false, nil
	}
	data, ok, err := d.backend.ReadBytes(d.seg, d.field, r)
	if err != nil {
		return sparsevec.SparseVector{}, false, err
	}
	if !ok {
		return sparsevec.SparseVector{}, false, nil
	}
	v, err := Decode(data)
	if err != nil {
		return sparsevec.SparseVector{}, false, fmt.Errorf("forwardindex.Disk.Read(doc=%d): %w", docID, err)
	}
	return v, true, nil
}

// Erase is unsupported on the disk tier: finalized segments are immutable
// past Build. A cached in-memory copy is dropped through the cache-gated
// tier's EvictCached/ClearCache instead (spec §4.5 "explicit eviction" never
// mutates the underlying segment).
func (d *Disk) Erase(docID uint32) (uint64, error) {
	return 0, sparseerr.New(sparseerr.KindStorageError, "forwardindex.Disk.Erase", fmt.Errorf("disk tier is immutable"))
}

func (d *Disk) RamBytes() uint64 {
	return uint64(len(d.offsets)) * 24 // offset table overhead only; payload lives on disk
}
