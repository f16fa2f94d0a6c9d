package cpu

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// Reduce reduces x over axes. Empty axes reduce over every axis.
//
// Example:
//
//	x: [2, 3, 4]
//	Reduce(x, ReduceSum, []int{-1}, true)  // shape: [2, 3, 1]
//	Reduce(x, ReduceMean, nil, false)      // shape: []
func (cpu *CPUBackend) Reduce(x *tensor.RawTensor, op tensor.ReduceOp, axes []int, keepDims bool) *tensor.RawTensor {
	shape := x.Shape()
	rank := len(shape)

	reduced := make([]bool, rank)
	if len(axes) == 0 {
		for i := range reduced {
			reduced[i] = true
		}
	}
	for _, a := range axes {
		ax, err := tensor.NormalizeAxis(a, rank)
		if err != nil {
			panic(fmt.Sprintf("reduce: %v", err))
		}
		reduced[ax] = true
	}

	keptShape := make(tensor.Shape, rank)
	outShape := make(tensor.Shape, 0, rank)
	for d := 0; d < rank; d++ {
		keptShape[d] = shape[d]
		if reduced[d] {
			keptShape[d] = 1
			if !keepDims {
				continue
			}
		}
		outShape = append(outShape, keptShape[d])
	}

	result := newFloat32("reduce", outShape)
	src, dst := x.AsFloat32(), result.AsFloat32()

	if op == tensor.ReduceMax {
		for i := range dst {
			dst[i] = math32.Inf(-1)
		}
	}

	inStrides := shape.ComputeStrides()
	outStrides := tensor.BroadcastStrides(keptShape, shape)
	count := 0
	if len(dst) > 0 {
		count = len(src) / len(dst)
	}

	for i, v := range src {
		o := computeFlatIndex(i, inStrides, outStrides)
		switch op {
		case tensor.ReduceSum, tensor.ReduceMean:
			dst[o] += v
		case tensor.ReduceMax:
			dst[o] = max(dst[o], v)
		case tensor.ReduceL2:
			dst[o] += v * v
		default:
			panic(fmt.Sprintf("reduce: unknown op %d", op))
		}
	}

	switch op {
	case tensor.ReduceMean:
		for i := range dst {
			dst[i] /= float32(count)
		}
	case tensor.ReduceL2:
		for i := range dst {
			dst[i] = math32.Sqrt(dst[i])
		}
	}
	return result
}
