// Package admin implements C8: the warmup and clear-cache broadcast
// operations over a set of indices, validated against their is_sparse
// setting before any shard work begins (spec §4.8). The validate-then-
// broadcast shape is adapted from the teacher's admin handler pattern
// (role-check before touching any resource, then fan out).
package admin

import (
	"context"
	"sync"

	"seismic/internal/enginelog"
	"seismic/internal/settings"
	"seismic/internal/sparseerr"
)

// Shard is one shard's warmup/clear-cache hook for a single index.
type Shard interface {
	Warmup(ctx context.Context, index string) error
	ClearCache(ctx context.Context, index string) error
}

// BroadcastResult is the return shape spec §4.8 fixes for both operations.
type BroadcastResult struct {
	TotalShards int      `json:"total_shards"`
	Succeeded   int      `json:"successful_shards"`
	Failed      int      `json:"failed_shards"`
	Failures    []string `json:"failures"`
}

// Manager runs warmup/clear-cache broadcasts across a fixed set of shards,
// gated by a settings.Manager's is_sparse validation.
type Manager struct {
	shards   []Shard
	settings *settings.Manager
}

// NewManager creates an admin Manager broadcasting to shards and validating
// indices against settings.
func NewManager(shards []Shard, settingsMgr *settings.Manager) *Manager {
	return &Manager{shards: shards, settings: settingsMgr}
}

// Warmup forces cache population for every field of every segment of the
// given indices, shard-parallel (spec §4.5/§4.8).
func (m *Manager) Warmup(ctx context.Context, indices []string) (BroadcastResult, error) {
	if err := m.validate(indices, "warmup"); err != nil {
		return BroadcastResult{}, err
	}
	return m.broadcast(ctx, indices, Shard.Warmup)
}

// ClearCache evicts every C2/C3 in-memory entry keyed by any segment of the
// given indices, shard-parallel (spec §4.8).
func (m *Manager) ClearCache(ctx context.Context, indices []string) (BroadcastResult, error) {
	if err := m.validate(indices, "clear_cache"); err != nil {
		return BroadcastResult{}, err
	}
	return m.broadcast(ctx, indices, Shard.ClearCache)
}

// validate rejects any listed index whose is_sparse setting is not true,
// before any broadcast work begins (spec §4.8 validation contract).
func (m *Manager) validate(indices []string, op string) error {
	var bad []string
	for _, idx := range indices {
		if !m.settings.IsSparse(idx) {
			bad = append(bad, idx)
		}
	}
	if len(bad) > 0 {
		return (&sparseerr.InvalidIndices{Names: bad, Operation: op}).AsError("admin." + op)
	}
	return nil
}

func (m *Manager) broadcast(ctx context.Context, indices []string, op func(Shard, context.Context, string) error) (BroadcastResult, error) {
	total := len(m.shards) * len(indices)
	result := BroadcastResult{TotalShards: total}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, shard := range m.shards {
		for _, index := range indices {
			shard, index := shard, index
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := op(shard, ctx, index); err != nil {
					enginelog.Warn("admin: shard op failed for index %q: %v", index, err)
					mu.Lock()
					result.Failed++
					result.Failures = append(result.Failures, index)
					mu.Unlock()
					return
				}
				mu.Lock()
				result.Succeeded++
				mu.Unlock()
			}()
		}
	}
	wg.Wait()
	return result, nil
}
