//go:build arm64

package sparsevec

import "golang.org/x/sys/cpu"

var hasNEON = cpu.ARM64.HasASIMD

func dotDenseSIMD(tokens []uint16, weights []float32, dense []float32) float32 {
	if hasNEON && len(tokens) >= 8 {
		return dotDenseUnrolled8(tokens, weights, dense)
	}
	return dotDenseUnrolled4(tokens, weights, dense)
}

func simdCapability() string {
	if hasNEON {
		return "NEON (arm64, gather-bound)"
	}
	return "generic (arm64)"
}
