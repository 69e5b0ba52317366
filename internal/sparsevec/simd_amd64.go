//go:build amd64

package sparsevec

import "golang.org/x/sys/cpu"

var (
	hasAVX2 = cpu.X86.HasAVX2 && cpu.X86.HasFMA
)

// dotDenseSIMD computes sum(weights[i] * dense[tokens[i]]) over an
// already-in-range prefix (tokens, weights). The gather pattern prevents a
// true SIMD load, but a wider accumulator split still improves instruction-
// level parallelism the way the teacher's dotProductF32x8 does for its
// dense-dense case; the width is chosen from the detected feature level the
// same way sqlite-vec chooses its AVX2/SSE code path.
func dotDenseSIMD(tokens []uint16, weights []float32, dense []float32) float32 {
	if hasAVX2 && len(tokens) >= 8 {
		return dotDenseUnrolled8(tokens, weights, dense)
	}
	return dotDenseUnrolled4(tokens, weights, dense)
}

func simdCapability() string {
	if hasAVX2 {
		return "AVX2 + FMA (amd64, gather-bound)"
	}
	return "generic (amd64)"
}
