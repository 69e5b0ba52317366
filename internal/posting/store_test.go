package posting

import (
	"sync"
	"testing"

	"seismic/internal/circuitbreaker"
	"seismic/internal/segment"
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
	return blob, true, nil
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

func TestDiskWriteReadTerm(t *testing.T) {
	backend := newFakeBackend()
	seg := segment.Key{SegmentUUID: "s1", Field: "body"}
	disk := NewDisk(backend, seg)
	pc := sampleClustersForStore(t)
	if err := disk.WriteTerm("7", pc); err != nil {
		t.Fatalf("WriteTerm: %v", err)
	}
	got, ok, err := disk.ReadTerm("7")
	if err != nil || !ok || got.Len() != pc.Len() {
		t.Fatalf("ReadTerm: got=%+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, err := disk.ReadTerm("missing"); err != nil || ok {
		t.Fatalf("ReadTerm(missing): ok=%v err=%v", ok, err)
	}
}

func sampleClustersForStore(t *testing.T) PostingClusters {
	t.Helper()
	return sampleClusters(t)
}

func TestStoreFinalizedReadThroughCache(t *testing.T) {
	backend := newFakeBackend()
	seg := segment.Key{SegmentUUID: "s2", Field: "body"}
	disk := NewDisk(backend, seg)
	pc := sampleClusters(t)
	if err := disk.WriteTerm("3", pc); err != nil {
		t.Fatalf("WriteTerm: %v", err)
	}
	store := NewFinalized(disk, circuitbreaker.NewBudget(1<<20))
	got, ok, err := store.Read("3")
	if err != nil || !ok || got.Len() != pc.Len() {
		t.Fatalf("Read: got=%+v ok=%v err=%v", got, ok, err)
	}
	store.EvictCached("3")
	got, ok, err = store.Read("3")
	if err != nil || !ok || got.Len() != pc.Len() {
		t.Fatalf("Read after evict: got=%+v ok=%v err=%v", got, ok, err)
	}
	if store.Terms() != nil {
		t.Fatal("Terms() should be nil on a finalized store")
	}
}

func TestStoreFinalizedChargesQuantizedRamBytes(t *testing.T) {
	backend := newFakeBackend()
	seg := segment.Key{SegmentUUID: "s3", Field: "body"}
	disk := NewDisk(backend, seg)
	pc := sampleClusters(t)
	if err := disk.WriteTerm("9", pc); err != nil {
		t.Fatalf("WriteTerm: %v", err)
	}

	budget := circuitbreaker.NewBudget(1 << 20)
	store := NewFinalized(disk, budget)
	if _, ok, err := store.Read("9"); err != nil || !ok {
		t.Fatalf("Read: ok=%v err=%v", ok, err)
	}

	want := pc.RamBytesQuantized()
	if want >= pc.RamBytes() {
		t.Fatalf("test fixture doesn't exercise quantization: quantized=%d full=%d", want, pc.RamBytes())
	}
	if got := budget.Used(); got != want {
		t.Fatalf("budget.Used() = %d, want RamBytesQuantized() = %d", got, want)
	}
}

func TestStoreActiveWriteDuplicate(t *testing.T) {
	store := NewActive()
	pc := sampleClusters(t)
	if err := store.Write("1", pc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Write("1", pc); err == nil {
		t.Fatal("expected DuplicateTerm on second write")
	}
	terms := store.Terms()
	if len(terms) != 1 || terms[0] != "1" {
		t.Fatalf("Terms() = %v, want [1]", terms)
	}
}
