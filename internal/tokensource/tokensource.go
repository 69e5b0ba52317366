// Package tokensource defines the boundary between the engine's indexing
// path and whatever turns raw text into weighted tokens. Tokenization and
// the neural model that scores tokens are explicitly out of scope (spec
// Non-goals); this package only fixes the contract callers implement.
package tokensource

import (
	"context"

	"seismic/internal/sparsevec"
)

// Source converts a document's text into weighted token pairs, in no
// particular order (the engine sorts and validates when it calls
// sparsevec.New). Implementations are opaque to the engine: a SPLADE model
// call, a lookup table, a test fixture.
type Source interface {
	Tokenize(ctx context.Context, text string) ([]sparsevec.Pair, error)
}

// Func adapts a plain function to Source.
type Func func(ctx context.Context, text string) ([]sparsevec.Pair, error)

func (f Func) Tokenize(ctx context.Context, text string) ([]sparsevec.Pair, error) {
	return f(ctx, text)
}
