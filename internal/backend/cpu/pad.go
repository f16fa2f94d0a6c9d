package cpu

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// Pad grows (or, with negative pads, crops) every axis.
// Pads lists the begin amounts of all axes followed by the end amounts.
func (cpu *CPUBackend) Pad(x *tensor.RawTensor, pads []int, mode tensor.PadMode, value float32) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)
	if len(pads) != 2*rank {
		panic(fmt.Sprintf("pad: expected %d pads for %v, got %v", 2*rank, shape, pads))
	}

	outShape := make(tensor.Shape, rank)
	for d := 0; d < rank; d++ {
		outShape[d] = shape[d] + pads[d] + pads[d+rank]
		if outShape[d] < 0 {
			panic(fmt.Sprintf("pad: pads %v crop %v below zero", pads, shape))
		}
		if mode == tensor.PadReflect && (pads[d] >= shape[d] || pads[d+rank] >= shape[d]) {
			panic(fmt.Sprintf("pad: reflect pads %v must be smaller than %v", pads, shape))
		}
	}

	result := newFloat32("pad", outShape)
	src, dst := x.AsFloat32(), result.AsFloat32()
	inStrides := shape.ComputeStrides()
	oc := make([]int, rank)

	for oi := range dst {
		unravel(oi, outShape, oc)
		idx, inside := 0, true
		for d := 0; d < rank; d++ {
			pos := oc[d] - pads[d]
			if pos < 0 || pos >= shape[d] {
				switch mode {
				case tensor.PadReflect:
					if pos < 0 {
						pos = -pos
					} else {
						pos = 2*(shape[d]-1) - pos
					}
				case tensor.PadEdge:
					pos = min(max(pos, 0), shape[d]-1)
				default:
					inside = false
				}
			}
			idx += pos * inStrides[d]
		}
		if inside {
			dst[oi] = src[idx]
		} else {
			dst[oi] = value
		}
	}
	return result
}
