package sparsevec

// QuantizedVector is the byte-quantized variant of a SparseVector described
// in spec §3: each weight w in [0, wmax] maps to a u8 via
// round(w * 255 / wmax), saturating at both ends. Spec §9 leaves open
// whether the scale factor is 127 or 255; this package fixes it at 255 (see
// DESIGN.md) since that is the value spec §3's own prose uses and it spans
// the full u8 range.
type QuantizedVector struct {
	tokens  []uint16
	qweights []byte
	wmax    float32
}

// Quantize converts v into its byte-quantized form. wmax defaults to v's
// maximum weight if the caller passes 0, matching "map w in [0, wmax]"
// against the vector's own range when no external scale is supplied (e.g. a
// cluster summary quantized independently of its siblings).
func Quantize(v SparseVector, wmax float32) QuantizedVector {
	if wmax <= 0 {
		for _, w := range v.weights {
			if w > wmax {
				wmax = w
			}
		}
	}
	q := make([]byte, len(v.weights))
	if wmax > 0 {
		for i, w := range v.weights {
			q[i] = quantizeOne(w, wmax)
		}
	}
	tokens := make([]uint16, len(v.tokens))
	copy(tokens, v.tokens)
	return QuantizedVector{tokens: tokens, qweights: q, wmax: wmax}
}

func quantizeOne(w, wmax float32) byte {
	scaled := w * 255.0 / wmax
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return byte(scaled + 0.5) // round-half-up, saturating at both ends
}

// Dequantize reconstructs an approximate SparseVector from a quantized one.
func (q QuantizedVector) Dequantize() SparseVector {
	weights := make([]float32, len(q.qweights))
	for i, b := range q.qweights {
		weights[i] = float32(b) / 255.0 * q.wmax
	}
	tokens := make([]uint16, len(q.tokens))
	copy(tokens, q.tokens)
	return newUnchecked(tokens, weights)
}

// RamBytes reports the quantized vector's resident memory: the quantized
// form is a fourth the size of the float32 weight array plus the shared
// token array, the memory saving spec §9's open question on ByteQuantizer
// is motivated by.
func (q QuantizedVector) RamBytes() uint64 {
	const shallow = 40
	return uint64(shallow) + uint64(len(q.tokens))*2 + uint64(len(q.qweights))
}

// Tokens returns the quantized vector's token ids.
func (q QuantizedVector) Tokens() []uint16 { return q.tokens }

// WMax returns the scale factor used at quantization time.
func (q QuantizedVector) WMax() float32 { return q.wmax }
