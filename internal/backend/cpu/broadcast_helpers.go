package cpu

// computeFlatIndex computes the flat index in the source array for a given output index.
// outStrides: strides of the output shape.
// inStrides: broadcast-adjusted strides of the input shape.
func computeFlatIndex(outIdx int, outStrides, inStrides []int) int {
	flatIdx := 0
	for i := range outStrides {
		coord := outIdx / outStrides[i]
		outIdx %= outStrides[i]
		flatIdx += coord * inStrides[i]
	}
	return flatIdx
}

// unravel writes the multi-index of flat index idx over shape into coords.
func unravel(idx int, shape, coords []int) {
	for d := len(shape) - 1; d >= 0; d-- {
		coords[d] = idx % shape[d]
		idx /= shape[d]
	}
}

// product multiplies the entries of dims.
func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}

// paramOr returns vals[i], or def if vals is too short.
func paramOr(vals []int, i, def int) int {
	if i < len(vals) {
		return vals[i]
	}
	return def
}
