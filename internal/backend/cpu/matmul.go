package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// gemm32 computes c = alpha * op(a) @ op(b) + beta * c for row-major
// matrices, where op(a) is [m, k] and op(b) is [k, n].
func gemm32(transA, transB bool, m, n, k int, alpha float32, a, b []float32, beta float32, c []float32) {
	if m == 0 || n == 0 {
		return
	}
	if k == 0 {
		for i := range c[:m*n] {
			c[i] *= beta
		}
		return
	}

	ta, ar, ac := blas.NoTrans, m, k
	if transA {
		ta, ar, ac = blas.Trans, k, m
	}
	tb, br, bc := blas.NoTrans, k, n
	if transB {
		tb, br, bc = blas.Trans, n, k
	}

	blas32.Gemm(ta, tb, alpha,
		blas32.General{Rows: ar, Cols: ac, Stride: ac, Data: a[:ar*ac]},
		blas32.General{Rows: br, Cols: bc, Stride: bc, Data: b[:br*bc]},
		beta,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c[:m*n]},
	)
}

// MatMul performs matrix multiplication with NumPy semantics:
// 1-D operands are promoted to matrices and leading batch dimensions broadcast.
//
// Examples:
//
//	[M, K] @ [K, N] -> [M, N]
//	[B, M, K] @ [K, N] -> [B, M, N]
//	[K] @ [B, K, N] -> [B, N]
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape().Clone(), b.Shape().Clone()
	if len(aShape) == 0 || len(bShape) == 0 {
		panic("matmul: scalar operands are not supported")
	}

	vecA, vecB := len(aShape) == 1, len(bShape) == 1
	if vecA {
		aShape = tensor.Shape{1, aShape[0]}
	}
	if vecB {
		bShape = tensor.Shape{bShape[0], 1}
	}

	m, k := aShape[len(aShape)-2], aShape[len(aShape)-1]
	kAlt, n := bShape[len(bShape)-2], bShape[len(bShape)-1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch %v @ %v", a.Shape(), b.Shape()))
	}

	aBatch, bBatch := aShape[:len(aShape)-2], bShape[:len(bShape)-2]
	batch, _, err := tensor.BroadcastShapes(aBatch, bBatch)
	if err != nil {
		panic(fmt.Sprintf("matmul: batch dims: %v", err))
	}

	outShape := append(batch.Clone(), m, n)
	result := newFloat32("matmul", outShape)
	av, bv, dst := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()

	batchStrides := batch.ComputeStrides()
	aStrides := tensor.BroadcastStrides(aBatch, batch)
	bStrides := tensor.BroadcastStrides(bBatch, batch)
	for i := 0; i < batch.NumElements(); i++ {
		ai := computeFlatIndex(i, batchStrides, aStrides) * m * k
		bi := computeFlatIndex(i, batchStrides, bStrides) * k * n
		gemm32(false, false, m, n, k, 1, av[ai:ai+m*k], bv[bi:bi+k*n], 0, dst[i*m*n:(i+1)*m*n])
	}

	final := batch.Clone()
	if !vecA {
		final = append(final, m)
	}
	if !vecB {
		final = append(final, n)
	}
	reshaped, err := tensor.Reshape(result, final)
	if err != nil {
		panic(fmt.Sprintf("matmul: %v", err))
	}
	return reshaped
}

// Gemm computes alpha * op(A) @ op(B) + beta * C for 2-D A and B.
// C is optional and broadcasts to the [M, N] result.
func (cpu *CPUBackend) Gemm(a, b, c *tensor.RawTensor, p tensor.GemmParams) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("gemm: operands must be 2-D, got %v and %v", aShape, bShape))
	}

	m, k := aShape[0], aShape[1]
	if p.TransA {
		m, k = k, m
	}
	kAlt, n := bShape[0], bShape[1]
	if p.TransB {
		kAlt, n = n, kAlt
	}
	if k != kAlt {
		panic(fmt.Sprintf("gemm: shape mismatch %v @ %v (transA=%v transB=%v)", aShape, bShape, p.TransA, p.TransB))
	}

	outShape := tensor.Shape{m, n}
	beta := p.Beta
	var result *tensor.RawTensor
	if c != nil {
		expanded, err := tensor.Expand(c, outShape)
		if err != nil || !expanded.Shape().Equal(outShape) {
			panic(fmt.Sprintf("gemm: bias %v does not broadcast to %v", c.Shape(), outShape))
		}
		result = expanded
	} else {
		result = newFloat32("gemm", outShape)
		beta = 0
	}

	gemm32(p.TransA, p.TransB, m, n, k, p.Alpha, a.AsFloat32(), b.AsFloat32(), beta, result.AsFloat32())
	return result
}
