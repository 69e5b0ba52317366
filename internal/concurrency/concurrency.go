// Package concurrency implements C9: the engine's two bounded worker pools
// (training and query) and the FIFO bounded task queue both sit on top of.
// The pool shape is adapted from the teacher's sqlite-vec adaptiveWorkers
// helper — size workers off runtime.NumCPU(), cap at a ceiling — but where
// that helper just returns a worker count for a one-shot fan-out, this
// package owns a persistent buffered-channel semaphore so callers can
// submit work over the pool's whole lifetime and get QueueFull instead of
// blocking forever when the queue backs up (spec §4.9).
package concurrency

import (
	"context"
	"runtime"

	"seismic/internal/sparseerr"
)

const queueCapacity = 1000

// Pool is a bounded worker pool with a FIFO admission queue. Submit blocks
// until a slot is free or ctx is cancelled; TrySubmit returns QueueFull
// immediately instead of blocking once the queue is at capacity.
type Pool struct {
	sem   chan struct{}
	queue chan struct{}
}

func newPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		sem:   make(chan struct{}, workers),
		queue: make(chan struct{}, queueCapacity),
	}
}

// NewTrainingPool creates the bounded pool clustering (C4) runs on:
// max(numCPU/2, 1) workers (spec §4.9).
func NewTrainingPool() *Pool {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return newPool(workers)
}

// NewQueryPool creates the bounded pool the query executor (C7) runs on:
// min(2*numCPU, 1000) workers (spec §4.9).
func NewQueryPool() *Pool {
	workers := 2 * runtime.NumCPU()
	if workers > 1000 {
		workers = 1000
	}
	return newPool(workers)
}

// Submit runs fn on the pool, blocking until a worker slot is available or
// ctx is cancelled. Returns ctx.Err() if ctx is cancelled first.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	select {
	case p.queue <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.queue }()

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	go func() {
		defer func() { <-p.sem }()
		fn()
	}()
	return nil
}

// TrySubmit admits fn to the queue without blocking, returning QueueFull if
// the queue is already at capacity (spec §4.9 — "bounded queues reject
// rather than block once full").
func (p *Pool) TrySubmit(fn func()) error {
	select {
	case p.queue <- struct{}{}:
	default:
		return sparseerr.New(sparseerr.KindQueueFull, "concurrency.Pool.TrySubmit", nil)
	}
	go func() {
		defer func() { <-p.queue }()
		p.sem <- struct{}{}
		defer func() { <-p.sem }()
		fn()
	}()
	return nil
}

// Workers returns the pool's configured worker concurrency ceiling.
func (p *Pool) Workers() int {
	return cap(p.sem)
}
