// Package sparsevec implements C1 of the engine: the sorted (token_id,
// weight) sparse vector type, its dot product against a dense array, and
// the alpha-mass summary pruning used to build cluster summaries (spec §4.1).
//
// The dot-product hot path is generalized from the teacher's sqlite-vec dense
// dot product: sqlite-vec multiplies two contiguous []float32 arrays with a
// loop unrolled for instruction-level parallelism, gated by a runtime CPU
// feature probe (golang.org/x/sys/cpu) per architecture. Since a sparse
// vector's "gather" against a dense array can't walk two parallel arrays the
// same way, this package instead binary-searches the sorted token slice for
// the first out-of-range token (exploiting the same sortedness the teacher's
// early-exit comment describes) and then runs the unrolled accumulate over
// the in-range prefix only.
package sparsevec

import (
	"math"
	"sort"

	"seismic/internal/sparseerr"
)

// Pair is a single (token_id, weight) entry as received from a TokenSource.
type Pair struct {
	Token  uint16
	Weight float32
}

// SparseVector is an ordered, deduplicated sequence of (token_id, weight)
// pairs sorted by token_id ascending (spec §3).
type SparseVector struct {
	tokens  []uint16
	weights []float32
}

// Tokens returns the vector's token ids in ascending order. The returned
// slice is owned by the vector and must not be mutated.
func (v SparseVector) Tokens() []uint16 { return v.tokens }

// Weights returns the vector's weights, index-aligned with Tokens(). The
// returned slice is owned by the vector and must not be mutated.
func (v SparseVector) Weights() []float32 { return v.weights }

// Len returns the number of nonzero entries.
func (v SparseVector) Len() int { return len(v.tokens) }

// New builds a SparseVector from unordered pairs: sorts by token ascending
// and rejects duplicate tokens with MalformedVector (spec §4.1 picks
// "reject" over "sum weights" as the default, documented here and tested).
// Non-finite or negative weights are rejected (negative -> MalformedVector,
// NaN/Inf -> ArithmeticOverflow).
func New(pairs []Pair) (SparseVector, error) {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Token < sorted[j].Token })

	tokens := make([]uint16, len(sorted))
	weights := make([]float32, len(sorted))
	for i, p := range sorted {
		if math.IsNaN(float64(p.Weight)) || math.IsInf(float64(p.Weight), 0) {
			return SparseVector{}, sparseerr.New(sparseerr.KindArithmeticOverflow, "sparsevec.New", nil)
		}
		if p.Weight < 0 {
			return SparseVector{}, sparseerr.New(sparseerr.KindMalformedVector, "sparsevec.New", nil)
		}
		if i > 0 && sorted[i-1].Token == p.Token {
			return SparseVector{}, sparseerr.New(sparseerr.KindMalformedVector, "sparsevec.New", nil)
		}
		tokens[i] = p.Token
		weights[i] = p.Weight
	}
	return SparseVector{tokens: tokens, weights: weights}, nil
}

// newUnchecked builds a SparseVector from already-sorted, already-validated,
// index-aligned slices without copying or re-validating. Used internally by
// operations (PruneAlpha, FromDense, Dequantize) that construct vectors whose
// invariants are established by the caller.
func newUnchecked(tokens []uint16, weights []float32) SparseVector {
	return SparseVector{tokens: tokens, weights: weights}
}

// Dim returns the vector's nominal dimensionality: the last token + 1, or 0
// for an empty vector.
func (v SparseVector) Dim() uint16 {
	if len(v.tokens) == 0 {
		return 0
	}
	return v.tokens[len(v.tokens)-1] + 1
}

// ToDense materializes the vector into a dense []float32 of length dim+1;
// entries for tokens > dim are dropped (spec §4.1).
func (v SparseVector) ToDense(dim uint16) []float32 {
	out := make([]float32, int(dim)+1)
	for i, t := range v.tokens {
		if t > dim {
			break
		}
		out[t] = v.weights[i]
	}
	return out
}

// DotDense computes sum(w[i] * dense[token[i]]) for all token[i] < len(dense),
// stopping at the first out-of-range token since the vector is sorted and
// every subsequent token is also out of range (spec §4.1).
func (v SparseVector) DotDense(dense []float32) float32 {
	limit := len(dense)
	if limit == 0 || len(v.tokens) == 0 {
		return 0
	}
	// Binary search the first index whose token >= limit; everything before
	// it is in range, everything from it on is not (tokens are sorted).
	cut := sort.Search(len(v.tokens), func(i int) bool { return int(v.tokens[i]) >= limit })
	if cut == 0 {
		return 0
	}
	return dotDenseSIMD(v.tokens[:cut], v.weights[:cut], dense)
}

// RamBytes estimates the vector's resident memory: a fixed struct overhead
// plus the token and weight backing arrays (spec §4.1).
func (v SparseVector) RamBytes() uint64 {
	const shallow = 48 // two slice headers, roughly
	return uint64(shallow) + uint64(len(v.tokens))*2 + uint64(len(v.weights))*4
}

// L1Mass returns the sum of the vector's weights.
func (v SparseVector) L1Mass() float64 {
	var sum float64
	for _, w := range v.weights {
		sum += float64(w)
	}
	return sum
}

// PruneAlpha returns the largest prefix (by weight, descending, ties broken
// by ascending token_id) whose cumulative L1 mass is >= alpha * total mass,
// re-expressed in the vector's original ascending-token order (spec §4.1).
// Used to build cluster summaries from a cluster's member sum/mean vector.
func (v SparseVector) PruneAlpha(alpha float64) SparseVector {
	n := len(v.tokens)
	if n == 0 {
		return v
	}
	total := v.L1Mass()
	if total <= 0 || alpha >= 1 {
		return v
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		wi, wj := v.weights[order[i]], v.weights[order[j]]
		if wi != wj {
			return wi > wj
		}
		return v.tokens[order[i]] < v.tokens[order[j]]
	})

	keep := make([]bool, n)
	target := alpha * total
	var acc float64
	for _, idx := range order {
		if acc >= target {
			break
		}
		keep[idx] = true
		acc += float64(v.weights[idx])
	}

	tokens := make([]uint16, 0, n)
	weights := make([]float32, 0, n)
	for i := 0; i < n; i++ {
		if keep[i] {
			tokens = append(tokens, v.tokens[i])
			weights = append(weights, v.weights[i])
		}
	}
	return newUnchecked(tokens, weights)
}

// Equal reports structural equality: same tokens in the same order with
// identical weights (spec §3: "Equality is structural").
func (v SparseVector) Equal(other SparseVector) bool {
	if len(v.tokens) != len(other.tokens) {
		return false
	}
	for i := range v.tokens {
		if v.tokens[i] != other.tokens[i] || v.weights[i] != other.weights[i] {
			return false
		}
	}
	return true
}

// Sum adds a sparse vector into a dense accumulator, used by the clustering
// pipeline (C4) to build cluster centroids/summaries before re-pruning.
func Sum(dense []float32, v SparseVector) {
	for i, t := range v.tokens {
		if int(t) >= len(dense) {
			break
		}
		dense[int(t)] += v.weights[i]
	}
}

// FromDense extracts the nonzero entries of a dense array back into a sorted
// SparseVector, used after a clustering pipeline accumulates a centroid in
// dense form.
func FromDense(dense []float32) SparseVector {
	var tokens []uint16
	var weights []float32
	for i, w := range dense {
		if w == 0 {
			continue
		}
		tokens = append(tokens, uint16(i))
		weights = append(weights, w)
	}
	return newUnchecked(tokens, weights)
}
