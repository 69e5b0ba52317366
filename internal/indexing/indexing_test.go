package indexing

import (
	"context"
	"sync"
	"testing"

	"seismic/internal/circuitbreaker"
	"seismic/internal/concurrency"
	"seismic/internal/forwardindex"
	"seismic/internal/posting"
	"seismic/internal/segment"
	"seismic/internal/settings"
	"seismic/internal/sparseerr"
	"seismic/internal/sparsevec"
	"seismic/internal/storage"
)

type fakeBackend struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{blobs: make(map[string][]byte)}
}

func (f *fakeBackend) key(seg segment.Key, field string) string {
	return seg.SegmentUUID + "/" + seg.Field + "/" + field
}

func (f *fakeBackend) ReadBytes(seg segment.Key, field string, r storage.Range) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	blob, ok := f.blobs[f.key(seg, field)]
	if !ok {
		return nil, false, nil
	}
	if r.Length == 0 && r.Offset == 0 {
		return blob, true, nil
	}
	end := r.Offset + r.Length
	if end > uint64(len(blob)) {
		return nil, false, sparseerr.New(sparseerr.KindStorageError, "fakeBackend.ReadBytes", nil)
	}
	out := make([]byte, r.Length)
	copy(out, blob[r.Offset:end])
	return out, true, nil
}

func (f *fakeBackend) WriteFinalize(seg segment.Key, field string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[f.key(seg, field)] = data
	return nil
}

func (f *fakeBackend) Size(seg segment.Key, field string) (uint64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	blob, ok := f.blobs[f.key(seg, field)]
	if !ok {
		return 0, false, nil
	}
	return uint64(len(blob)), true, nil
}

func (f *fakeBackend) Delete(seg segment.Key, field string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, f.key(seg, field))
	return nil
}

var _ storage.Backend = (*fakeBackend)(nil)

func TestAddDocumentAssignsSequentialDocIDs(t *testing.T) {
	s := NewSegment(segment.Key{SegmentUUID: "seg1", Field: "body"})
	for i := 0; i < 3; i++ {
		docID, err := s.AddDocument([]sparsevec.Pair{{Token: 1, Weight: 1}})
		if err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
		if docID != uint32(i) {
			t.Fatalf("docID = %d, want %d", docID, i)
		}
	}
	if s.DocCount() != 3 {
		t.Fatalf("DocCount() = %d, want 3", s.DocCount())
	}
}

func TestAddDocumentRejectsMalformedVector(t *testing.T) {
	s := NewSegment(segment.Key{SegmentUUID: "seg1", Field: "body"})
	_, err := s.AddDocument([]sparsevec.Pair{{Token: 1, Weight: 1}, {Token: 1, Weight: 2}})
	if sparseerr.KindOf(err) != sparseerr.KindMalformedVector {
		t.Fatalf("got %v, want MalformedVector", err)
	}
	if s.DocCount() != 0 {
		t.Fatalf("DocCount() = %d, want 0 (rejected doc should not be counted)", s.DocCount())
	}
}

func TestFinalizeFlatPathBelowTrigger(t *testing.T) {
	s := NewSegment(segment.Key{SegmentUUID: "seg-flat", Field: "body"})
	for i := 0; i < 3; i++ {
		if _, err := s.AddDocument([]sparsevec.Pair{{Token: 7, Weight: float32(i + 1)}}); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
	}
	backend := newFakeBackend()
	params := settings.DefaultFieldAlgoParams() // AlgoTriggerDocCount 1000, well above 3
	pool := concurrency.NewTrainingPool()
	breaker := circuitbreaker.NewBudget(1 << 20)

	result, err := Finalize(context.Background(), s, backend, params, pool, breaker)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if result.ClusteredAll {
		t.Fatal("expected flat (non-clustered) path below algo_trigger_doc_count")
	}
	pc, ok, err := result.Store.Read("7")
	if err != nil || !ok {
		t.Fatalf("Store.Read(7): ok=%v err=%v", ok, err)
	}
	if len(pc.Clusters) != 1 || !pc.Clusters[0].MustVisit {
		t.Fatalf("pc = %+v, want a single must_visit cluster", pc)
	}
	if len(pc.Clusters[0].DocIDs) != 3 {
		t.Fatalf("doc_ids = %v, want 3 entries", pc.Clusters[0].DocIDs)
	}
}

func TestFinalizeClusteredPathAboveTrigger(t *testing.T) {
	s := NewSegment(segment.Key{SegmentUUID: "seg-clustered", Field: "body"})
	const n = 30
	for i := 0; i < n; i++ {
		if _, err := s.AddDocument([]sparsevec.Pair{{Token: 3, Weight: float32(i%5 + 1)}}); err != nil {
			t.Fatalf("AddDocument: %v", err)
		}
	}
	backend := newFakeBackend()
	params := settings.DefaultFieldAlgoParams()
	params.AlgoTriggerDocCount = 5 // well below n, forces clustering
	params.PostingMinimumLength = 5
	pool := concurrency.NewTrainingPool()
	breaker := circuitbreaker.NewBudget(1 << 20)

	result, err := Finalize(context.Background(), s, backend, params, pool, breaker)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !result.ClusteredAll {
		t.Fatal("expected clustered path above algo_trigger_doc_count")
	}
	pc, ok, err := result.Store.Read("3")
	if err != nil || !ok {
		t.Fatalf("Store.Read(3): ok=%v err=%v", ok, err)
	}
	total := 0
	for _, c := range pc.Clusters {
		total += len(c.DocIDs)
	}
	if total != n {
		t.Fatalf("total clustered docs = %d, want %d", total, n)
	}
}

func TestEvictInputsClearsAllSegmentCaches(t *testing.T) {
	backend := newFakeBackend()
	seg := segment.Key{SegmentUUID: "seg-evict", Field: "body"}
	v, _ := sparsevec.New([]sparsevec.Pair{{Token: 1, Weight: 1}})
	disk, err := forwardindex.Build(backend, seg, map[uint32]sparsevec.SparseVector{0: v})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	breaker := circuitbreaker.NewBudget(1 << 20)
	fi := forwardindex.NewFinalized(disk, breaker)
	fi.Read(0) // populate the cache

	pd := posting.NewDisk(backend, seg)
	pc := posting.PostingClusters{Clusters: []posting.DocumentCluster{{Summary: v, DocIDs: []uint32{0}, MustVisit: true}}}
	if err := pd.WriteTerm("1", pc); err != nil {
		t.Fatalf("WriteTerm: %v", err)
	}
	ps := posting.NewFinalized(pd, breaker)
	ps.Read("1") // populate the cache

	EvictInputs([]*forwardindex.Store{fi}, []*posting.Store{ps})

	// reads still succeed (disk tier untouched), the cache was just cleared
	if _, ok, err := fi.Read(0); err != nil || !ok {
		t.Fatalf("fi.Read(0) after evict: ok=%v err=%v", ok, err)
	}
	if _, ok, err := ps.Read("1"); err != nil || !ok {
		t.Fatalf("ps.Read(1) after evict: ok=%v err=%v", ok, err)
	}
}
