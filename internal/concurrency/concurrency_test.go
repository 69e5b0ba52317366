package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"seismic/internal/sparseerr"
)

func TestSubmitRunsWithinBound(t *testing.T) {
	p := newPool(2)
	var inFlight, maxSeen atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		err := p.Submit(context.Background(), func() {
			defer wg.Done()
			n := inFlight.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		})
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()
	if maxSeen.Load() > 2 {
		t.Fatalf("max concurrent = %d, want <= 2", maxSeen.Load())
	}
}

func TestSubmitRespectsCancellation(t *testing.T) {
	p := newPool(1)
	block := make(chan struct{})
	if err := p.Submit(context.Background(), func() { <-block }); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Submit(ctx, func() {})
	if sparseerr.KindOf(err) != sparseerr.KindCancelled && err != context.Canceled {
		t.Fatalf("Submit after cancel: err=%v", err)
	}
	close(block)
}

func TestTrySubmitReturnsQueueFullWithoutBlocking(t *testing.T) {
	p := newPool(1)
	p.queue = make(chan struct{}, 1) // shrink queue so saturation is cheap to reach

	block := make(chan struct{})
	if err := p.TrySubmit(func() { <-block }); err != nil {
		t.Fatalf("first TrySubmit: %v", err)
	}
	// the first task's goroutine holds the queue slot for its whole
	// lifetime (both defers fire at goroutine exit), so the queue is
	// already saturated while fn blocks on <-block.
	done := make(chan error, 1)
	go func() { done <- p.TrySubmit(func() {}) }()
	select {
	case err := <-done:
		if sparseerr.KindOf(err) != sparseerr.KindQueueFull {
			t.Fatalf("TrySubmit = %v, want QueueFull", err)
		}
	case <-time.After(time.Second):
		t.Fatal("TrySubmit blocked instead of returning QueueFull immediately")
	}
	close(block)
}

func TestPoolSizing(t *testing.T) {
	if NewTrainingPool().Workers() < 1 {
		t.Fatal("training pool must have at least 1 worker")
	}
	qp := NewQueryPool()
	if qp.Workers() < 1 || qp.Workers() > 1000 {
		t.Fatalf("query pool workers = %d, want in [1,1000]", qp.Workers())
	}
}
