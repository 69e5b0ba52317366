package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"seismic/internal/circuitbreaker"
	"seismic/internal/sparseerr"
)

func TestGetLoadsOnMissAndCachesOnHit(t *testing.T) {
	var loads atomic.Int32
	c := New[string, int](circuitbreaker.NewBudget(1<<20), func(key string) (int, uint64, bool, error) {
		loads.Add(1)
		return 42, 8, true, nil
	})
	v, ok, err := c.Get("a")
	if err != nil || !ok || v != 42 {
		t.Fatalf("Get: v=%d ok=%v err=%v", v, ok, err)
	}
	if _, _, _ = c.Get("a"); loads.Load() != 1 {
		t.Fatalf("loads = %d, want 1 (second Get should hit cache)", loads.Load())
	}
}

func TestGetMissReturnsNotFoundWithoutCaching(t *testing.T) {
	c := New[string, int](circuitbreaker.NewBudget(1<<20), func(key string) (int, uint64, bool, error) {
		return 0, 0, false, nil
	})
	_, ok, err := c.Get("missing")
	if err != nil || ok {
		t.Fatalf("Get: ok=%v err=%v, want ok=false", ok, err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}
}

func TestGetCapacityExceededReadsThroughUncached(t *testing.T) {
	c := New[string, int](circuitbreaker.NewBudget(0), func(key string) (int, uint64, bool, error) {
		return 7, 1 << 10, true, nil
	})
	v, ok, err := c.Get("a")
	if err != nil || !ok || v != 7 {
		t.Fatalf("Get: v=%d ok=%v err=%v", v, ok, err)
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (capacity exceeded should not populate)", c.Len())
	}
}

func TestGetPropagatesLoaderError(t *testing.T) {
	wantErr := sparseerr.New(sparseerr.KindStorageError, "test", nil)
	c := New[string, int](circuitbreaker.NewBudget(1<<20), func(key string) (int, uint64, bool, error) {
		return 0, 0, false, wantErr
	})
	_, _, err := c.Get("a")
	if err != wantErr {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestGetCoalescesConcurrentMisses(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	c := New[string, int](circuitbreaker.NewBudget(1<<20), func(key string) (int, uint64, bool, error) {
		loads.Add(1)
		<-release
		return 99, 4, true, nil
	})
	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, _ := c.Get("shared")
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond) // let all goroutines reach the pending lock
	close(release)
	wg.Wait()
	if loads.Load() != 1 {
		t.Fatalf("loads = %d, want 1 (concurrent misses should coalesce)", loads.Load())
	}
	for _, v := range results {
		if v != 99 {
			t.Fatalf("results = %v, want all 99", results)
		}
	}
}

func TestEvictAndClear(t *testing.T) {
	budget := circuitbreaker.NewBudget(1 << 20)
	c := New[string, int](budget, func(key string) (int, uint64, bool, error) {
		return 1, 100, true, nil
	})
	c.Get("a")
	c.Get("b")
	if budget.Used() != 200 {
		t.Fatalf("Used() = %d, want 200", budget.Used())
	}
	c.Evict("a")
	if budget.Used() != 100 {
		t.Fatalf("Used() after evict = %d, want 100", budget.Used())
	}
	if c.Len() != 1 {
		t.Fatalf("Len() after evict = %d, want 1", c.Len())
	}
	c.Clear()
	if budget.Used() != 0 || c.Len() != 0 {
		t.Fatalf("after Clear: Used()=%d Len()=%d, want 0,0", budget.Used(), c.Len())
	}
}

func TestWarmupPopulatesAllKeys(t *testing.T) {
	c := New[string, int](circuitbreaker.NewBudget(1<<20), func(key string) (int, uint64, bool, error) {
		return len(key), 4, true, nil
	})
	if err := c.Warmup([]string{"a", "bb", "ccc"}); err != nil {
		t.Fatalf("Warmup: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", c.Len())
	}
}
