package sparsevec

// dotDenseUnrolled4 and dotDenseUnrolled8 accumulate the sparse·dense dot
// product over a gather pattern with 4-way/8-way split accumulators, the
// same instruction-level-parallelism trick as the teacher's
// dotProductF32x8, adapted from a dense-dense walk to a gather walk.

func dotDenseUnrolled4(tokens []uint16, weights []float32, dense []float32) float32 {
	n := len(tokens)
	var s0, s1, s2, s3 float32
	i := 0
	for ; i <= n-4; i += 4 {
		s0 += weights[i] * dense[tokens[i]]
		s1 += weights[i+1] * dense[tokens[i+1]]
		s2 += weights[i+2] * dense[tokens[i+2]]
		s3 += weights[i+3] * dense[tokens[i+3]]
	}
	for ; i < n; i++ {
		s0 += weights[i] * dense[tokens[i]]
	}
	return s0 + s1 + s2 + s3
}

func dotDenseUnrolled8(tokens []uint16, weights []float32, dense []float32) float32 {
	n := len(tokens)
	var s0, s1, s2, s3, s4, s5, s6, s7 float32
	i := 0
	for ; i <= n-8; i += 8 {
		s0 += weights[i] * dense[tokens[i]]
		s1 += weights[i+1] * dense[tokens[i+1]]
		s2 += weights[i+2] * dense[tokens[i+2]]
		s3 += weights[i+3] * dense[tokens[i+3]]
		s4 += weights[i+4] * dense[tokens[i+4]]
		s5 += weights[i+5] * dense[tokens[i+5]]
		s6 += weights[i+6] * dense[tokens[i+6]]
		s7 += weights[i+7] * dense[tokens[i+7]]
	}
	for ; i < n; i++ {
		s0 += weights[i] * dense[tokens[i]]
	}
	return (s0 + s1 + s2 + s3) + (s4 + s5 + s6 + s7)
}

// SIMDCapability returns a human-readable description of the active
// gather-accumulate path, reported once at engine startup (spec §9
// supplement; mirrors sqlite-vec.SIMDCapability()).
func SIMDCapability() string {
	return simdCapability()
}
