// Package cpu implements the float32 CPU backend that computes the reference
// outputs of exported graphs. Matrix products go through gonum's BLAS.
package cpu

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// CPUBackend implements tensor.Backend on the CPU.
type CPUBackend struct{}

var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// newFloat32 allocates a result tensor or panics with the op name.
func newFloat32(op string, shape tensor.Shape) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}

// binary applies fn element-wise with NumPy-style broadcasting.
func binary(op string, a, b *tensor.RawTensor, fn func(x, y float32) float32) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result := newFloat32(op, outShape)
	dst, av, bv := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()

	if !needsBroadcast {
		for i := range dst {
			dst[i] = fn(av[i], bv[i])
		}
		return result
	}

	outStrides := outShape.ComputeStrides()
	aStrides := tensor.BroadcastStrides(a.Shape(), outShape)
	bStrides := tensor.BroadcastStrides(b.Shape(), outShape)
	for i := range dst {
		dst[i] = fn(av[computeFlatIndex(i, outStrides, aStrides)], bv[computeFlatIndex(i, outStrides, bStrides)])
	}
	return result
}

// unary applies fn element-wise.
func unary(x *tensor.RawTensor, fn func(v float32) float32) *tensor.RawTensor {
	result := newFloat32("unary", x.Shape())
	dst := result.AsFloat32()
	for i, v := range x.AsFloat32() {
		dst[i] = fn(v)
	}
	return result
}

// Add performs element-wise addition with broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("div", a, b, func(x, y float32) float32 { return x / y })
}

// Pow raises a to the power b with broadcasting.
func (cpu *CPUBackend) Pow(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("pow", a, b, math32.Pow)
}

// Max takes the element-wise maximum with broadcasting.
func (cpu *CPUBackend) Max(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("max", a, b, func(x, y float32) float32 { return max(x, y) })
}

// Min takes the element-wise minimum with broadcasting.
func (cpu *CPUBackend) Min(a, b *tensor.RawTensor) *tensor.RawTensor {
	return binary("min", a, b, func(x, y float32) float32 { return min(x, y) })
}
