package posting

import (
	"testing"

	"seismic/internal/sparsevec"
)

func TestPostingEncodeDecodeRoundTrip(t *testing.T) {
	s1, _ := sparsevec.New([]sparsevec.Pair{{Token: 1, Weight: 0.25}, {Token: 4, Weight: 0.75}})
	s2, _ := sparsevec.New(nil)
	pc := PostingClusters{Clusters: []DocumentCluster{
		{Summary: s1, DocIDs: []uint32{1, 2, 9}, MustVisit: false},
		{Summary: s2, DocIDs: []uint32{5}, MustVisit: true},
	}}
	data := Encode(pc)
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Clusters) != 2 {
		t.Fatalf("clusters = %d, want 2", len(got.Clusters))
	}
	if !got.Clusters[0].Summary.Equal(s1) {
		t.Fatalf("cluster0 summary = %+v, want %+v", got.Clusters[0].Summary, s1)
	}
	if got.Clusters[0].MustVisit {
		t.Fatal("cluster0 must_visit should be false")
	}
	if !got.Clusters[1].MustVisit {
		t.Fatal("cluster1 must_visit should be true")
	}
	for i, id := range []uint32{1, 2, 9} {
		if got.Clusters[0].DocIDs[i] != id {
			t.Fatalf("cluster0 doc_ids = %v, want [1 2 9]", got.Clusters[0].DocIDs)
		}
	}
}

func TestPostingDecodeRejectsTruncated(t *testing.T) {
	s1, _ := sparsevec.New([]sparsevec.Pair{{Token: 1, Weight: 1}})
	pc := PostingClusters{Clusters: []DocumentCluster{{Summary: s1, DocIDs: []uint32{1}}}}
	data := Encode(pc)
	if _, err := Decode(data[:len(data)-1]); err == nil {
		t.Fatal("expected error on truncated input")
	}
}

func TestPostingDecodeEmptyClusters(t *testing.T) {
	pc := PostingClusters{}
	data := Encode(pc)
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Clusters) != 0 {
		t.Fatalf("clusters = %d, want 0", len(got.Clusters))
	}
}
