package posting

import (
	"testing"

	"seismic/internal/sparseerr"
	"seismic/internal/sparsevec"
)

func sampleClusters(t *testing.T) PostingClusters {
	t.Helper()
	summary, err := sparsevec.New([]sparsevec.Pair{{Token: 1, Weight: 1}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return PostingClusters{Clusters: []DocumentCluster{
		{Summary: summary, DocIDs: []uint32{1, 2, 3}, MustVisit: true},
	}}
}

func TestMemoryWriteReadAndDuplicate(t *testing.T) {
	m := NewMemory()
	pc := sampleClusters(t)
	if err := m.Write("42", pc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, ok := m.Read("42")
	if !ok || got.Len() != 3 {
		t.Fatalf("Read: got=%+v ok=%v", got, ok)
	}
	err := m.Write("42", pc)
	if sparseerr.KindOf(err) != sparseerr.KindDuplicateTerm {
		t.Fatalf("got %v, want DuplicateTerm", err)
	}
}

func TestMemoryTermsSorted(t *testing.T) {
	m := NewMemory()
	pc := sampleClusters(t)
	for _, term := range []string{"9", "100", "2"} {
		if err := m.Write(term, pc); err != nil {
			t.Fatalf("Write(%s): %v", term, err)
		}
	}
	terms := m.Terms()
	want := []string{"100", "2", "9"} // lexicographic, not numeric
	for i, term := range want {
		if terms[i] != term {
			t.Fatalf("terms = %v, want %v", terms, want)
		}
	}
	if m.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", m.Size())
	}
}

func TestMemoryReadMissing(t *testing.T) {
	m := NewMemory()
	if _, ok := m.Read("nope"); ok {
		t.Fatal("expected miss")
	}
}
