// Package forwardindex implements C2 of the engine: the per-segment
// doc_id -> SparseVector store, in an in-memory tier, a disk-backed tier,
// and a cache-gated composition of the two (spec §4.2).
//
// The in-memory tier's slot array and the disk tier's byte layout are
// generalized from the teacher's sqlite-vec vectorArena/loadCache pair: that
// code keeps one contiguous []float32 arena indexed by row id and decodes a
// little-endian blob per row on load. Forward-index entries are sparse, so
// the arena becomes a slice of *SparseVector slots, but the "array indexed
// by dense small-integer id, decode-on-load from a length-prefixed blob"
// shape carries over directly, as does internal/vectorstore/serialize.go's
// little-endian count-prefixed wire format (here applied to token/weight
// pairs instead of a flat float array).
package forwardindex

import (
	"encoding/binary"
	"math"

	"seismic/internal/sparseerr"
	"seismic/internal/sparsevec"
)

// Encode serializes a SparseVector to the bit-exact on-disk layout fixed by
// spec §4.2/§6: u16 count, then count * (u16 token, f32 weight), all
// little-endian, sorted by token_id ascending (already guaranteed by the
// vector's invariant).
func Encode(v sparsevec.SparseVector) []byte {
	tokens := v.Tokens()
	weights := v.Weights()
	buf := make([]byte, 2+len(tokens)*6)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(len(tokens)))
	off := 2
	for i := range tokens {
		binary.LittleEndian.PutUint16(buf[off:], tokens[i])
		binary.LittleEndian.PutUint32(buf[off+2:], math.Float32bits(weights[i]))
		off += 6
	}
	return buf
}

// Decode parses the on-disk layout back into a SparseVector.
func Decode(data []byte) (sparsevec.SparseVector, error) {
	if len(data) < 2 {
		return sparsevec.SparseVector{}, sparseerr.New(sparseerr.KindMalformedVector, "forwardindex.Decode", nil)
	}
	count := int(binary.LittleEndian.Uint16(data[0:2]))
	want := 2 + count*6
	if len(data) < want {
		return sparsevec.SparseVector{}, sparseerr.New(sparseerr.KindMalformedVector, "forwardindex.Decode", nil)
	}
	pairs := make([]sparsevec.Pair, count)
	off := 2
	for i := 0; i < count; i++ {
		token := binary.LittleEndian.Uint16(data[off:])
		weight := math.Float32frombits(binary.LittleEndian.Uint32(data[off+2:]))
		pairs[i] = sparsevec.Pair{Token: token, Weight: weight}
		off += 6
	}
	return sparsevec.New(pairs)
}
