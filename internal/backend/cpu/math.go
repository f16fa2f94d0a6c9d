package cpu

import (
	"github.com/chewxy/math32"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// Exp computes element-wise exponential: exp(x).
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, math32.Exp)
}

// Log computes element-wise natural logarithm. Non-positive inputs give
// -Inf or NaN like any ONNX runtime would.
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, math32.Log)
}

// Sqrt computes element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, math32.Sqrt)
}

// Reciprocal computes 1/x.
func (cpu *CPUBackend) Reciprocal(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, func(v float32) float32 { return 1 / v })
}

// Neg computes -x.
func (cpu *CPUBackend) Neg(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, func(v float32) float32 { return -v })
}

// Abs computes |x|.
func (cpu *CPUBackend) Abs(x *tensor.RawTensor) *tensor.RawTensor {
	return unary(x, math32.Abs)
}

// Clip limits values to [lo, hi].
func (cpu *CPUBackend) Clip(x *tensor.RawTensor, lo, hi float32) *tensor.RawTensor {
	return unary(x, func(v float32) float32 { return min(max(v, lo), hi) })
}
