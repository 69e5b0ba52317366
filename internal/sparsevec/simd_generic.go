//go:build !amd64 && !arm64

package sparsevec

func dotDenseSIMD(tokens []uint16, weights []float32, dense []float32) float32 {
	return dotDenseUnrolled4(tokens, weights, dense)
}

func simdCapability() string {
	return "Go (no SIMD feature probe for this platform)"
}
