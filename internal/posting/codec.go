package posting

import (
	"encoding/binary"
	"math"

	"seismic/internal/sparseerr"
	"seismic/internal/sparsevec"
)

// Encode serializes a term's PostingClusters to the bit-exact layout fixed
// by spec §6:
//
//	u32 cluster_count
//	per cluster:
//	  u8  must_visit
//	  u16 summary_count
//	  summary_count * (u16 token, f32 weight)
//	  u32 doc_count
//	  doc_count * u32 doc_id   (sorted ascending)
//
// all fields little-endian.
func Encode(pc PostingClusters) []byte {
	size := 4
	for _, c := range pc.Clusters {
		size += 1 + 2 + c.Summary.Len()*6 + 4 + len(c.DocIDs)*4
	}
	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(pc.Clusters)))
	off += 4
	for _, c := range pc.Clusters {
		if c.MustVisit {
			buf[off] = 1
		}
		off++
		tokens := c.Summary.Tokens()
		weights := c.Summary.Weights()
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(tokens)))
		off += 2
		for i := range tokens {
			binary.LittleEndian.PutUint16(buf[off:], tokens[i])
			binary.LittleEndian.PutUint32(buf[off+2:], math.Float32bits(weights[i]))
			off += 6
		}
		binary.LittleEndian.PutUint32(buf[off:], uint32(len(c.DocIDs)))
		off += 4
		for _, id := range c.DocIDs {
			binary.LittleEndian.PutUint32(buf[off:], id)
			off += 4
		}
	}
	return buf
}

// Decode parses the layout Encode writes back into a PostingClusters.
func Decode(data []byte) (PostingClusters, error) {
	if len(data) < 4 {
		return PostingClusters{}, sparseerr.New(sparseerr.KindStorageError, "posting.Decode", nil)
	}
	clusterCount := int(binary.LittleEndian.Uint32(data[0:4]))
	off := 4
	clusters := make([]DocumentCluster, clusterCount)
	for i := 0; i < clusterCount; i++ {
		if off+1+2 > len(data) {
			return PostingClusters{}, sparseerr.New(sparseerr.KindStorageError, "posting.Decode", nil)
		}
		mustVisit := data[off] != 0
		off++
		summaryCount := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+summaryCount*6 > len(data) {
			return PostingClusters{}, sparseerr.New(sparseerr.KindStorageError, "posting.Decode", nil)
		}
		pairs := make([]sparsevec.Pair, summaryCount)
		for j := 0; j < summaryCount; j++ {
			token := binary.LittleEndian.Uint16(data[off:])
			weight := math.Float32frombits(binary.LittleEndian.Uint32(data[off+2:]))
			pairs[j] = sparsevec.Pair{Token: token, Weight: weight}
			off += 6
		}
		summary, err := sparsevec.New(pairs)
		if err != nil {
			return PostingClusters{}, err
		}
		if off+4 > len(data) {
			return PostingClusters{}, sparseerr.New(sparseerr.KindStorageError, "posting.Decode", nil)
		}
		docCount := int(binary.LittleEndian.Uint32(data[off:]))
		off += 4
		if off+docCount*4 > len(data) {
			return PostingClusters{}, sparseerr.New(sparseerr.KindStorageError, "posting.Decode", nil)
		}
		docIDs := make([]uint32, docCount)
		for j := 0; j < docCount; j++ {
			docIDs[j] = binary.LittleEndian.Uint32(data[off:])
			off += 4
		}
		clusters[i] = DocumentCluster{Summary: summary, DocIDs: docIDs, MustVisit: mustVisit}
	}
	return PostingClusters{Clusters: clusters}, nil
}
