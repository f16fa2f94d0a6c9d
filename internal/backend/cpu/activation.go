package cpu

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// Relu computes max(0, x).
func (cpu *CPUBackend) Relu(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, func(v float32) float32 { return max(v, 0) })
}

// Sigmoid computes 1 / (1 + exp(-x)).
func (cpu *CPUBackend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, sigmoid)
}

// Tanh computes the hyperbolic tangent.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, math32.Tanh)
}

// Softplus computes log(1 + exp(x)) without overflowing for large x.
func (cpu *CPUBackend) Softplus(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, func(v float32) float32 {
		return max(v, 0) + math32.Log1p(math32.Exp(-math32.Abs(v)))
	})
}

func sigmoid(v float32) float32 {
	return 1 / (1 + math32.Exp(-v))
}

// Softmax computes softmax along a single axis.
// Softmax(x_i) = exp(x_i) / sum(exp(x_j)) for all j in the axis.
// With logarithm set it returns log-softmax.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, axis int, logarithm bool) *tensor.RawTensor {
	shape := x.Shape()
	dim, err := tensor.NormalizeAxis(axis, len(shape))
	if err != nil {
		panic(fmt.Sprintf("softmax: %v", err))
	}

	result := newFloat32("softmax", shape)
	src, dst := x.AsFloat32(), result.AsFloat32()

	dimSize := shape[dim]
	inner := product(shape[dim+1:])
	outer := product(shape[:dim])

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*dimSize*inner + in

			maxVal := math32.Inf(-1)
			for k := 0; k < dimSize; k++ {
				maxVal = max(maxVal, src[base+k*inner])
			}

			var sum float32
			for k := 0; k < dimSize; k++ {
				e := math32.Exp(src[base+k*inner] - maxVal)
				dst[base+k*inner] = e
				sum += e
			}

			if logarithm {
				logSum := math32.Log(sum)
				for k := 0; k < dimSize; k++ {
					idx := base + k*inner
					dst[idx] = src[idx] - maxVal - logSum
				}
				continue
			}
			for k := 0; k < dimSize; k++ {
				dst[base+k*inner] /= sum
			}
		}
	}

	return result
}
