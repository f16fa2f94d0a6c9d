package cpu

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// poolGeometry resolves the output size of a pooling window over
// [N, C, D1, ..., Dk].
//
//	out_i = floor_or_ceil((D_i + padBegin_i + padEnd_i - dilation_i*(K_i-1) - 1) / stride_i) + 1
//
// With ceil mode a trailing window that would start inside the end padding
// is dropped.
func poolGeometry(op string, shape tensor.Shape, p tensor.PoolParams) (convGeometry, []int) {
	spatial := shape[2:]
	k := len(spatial)
	if len(p.Kernel) != k {
		panic(fmt.Sprintf("%s: kernel %v does not match input %v", op, p.Kernel, shape))
	}
	g := newConvGeometry(op, spatial, p.Kernel, tensor.ConvParams{
		Strides:   p.Strides,
		Pads:      p.Pads,
		Dilations: p.Dilations,
	})
	padEnd := make([]int, k)
	for d := 0; d < k; d++ {
		padEnd[d] = paramOr(p.Pads, d+k, 0)
		span := spatial[d] + g.padBegin[d] + padEnd[d] - g.dilations[d]*(g.kernel[d]-1) - 1
		if span < 0 {
			panic(fmt.Sprintf("%s: kernel %v larger than padded input %v", op, p.Kernel, shape))
		}
		out := span/g.strides[d] + 1
		if p.CeilMode {
			out = (span+g.strides[d]-1)/g.strides[d] + 1
			if (out-1)*g.strides[d] >= spatial[d]+g.padBegin[d] {
				out--
			}
		}
		g.out[d] = out
	}
	return g, padEnd
}

// MaxPool takes the maximum over each window. Padding never wins.
func (cpu *CPUBackend) MaxPool(x *tensor.RawTensor, p tensor.PoolParams) *tensor.RawTensor {
	return pool("maxpool", x, p, false)
}

// AveragePool averages over each window. With CountIncludePad the divisor
// counts padded positions inside the declared padding.
func (cpu *CPUBackend) AveragePool(x *tensor.RawTensor, p tensor.PoolParams) *tensor.RawTensor {
	return pool("averagepool", x, p, true)
}

func pool(op string, x *tensor.RawTensor, p tensor.PoolParams, average bool) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) < 3 {
		panic(fmt.Sprintf("%s: expected input [N,C,...], got %v", op, shape))
	}
	g, padEnd := poolGeometry(op, shape, p)

	outShape := append(tensor.Shape{shape[0], shape[1]}, g.out...)
	result := newFloat32(op, outShape)
	src, dst := x.AsFloat32(), result.AsFloat32()

	k := len(g.spatial)
	planes := shape[0] * shape[1]
	inSize, outSize, kSize := product(g.spatial), product(g.out), product(g.kernel)
	oc := make([]int, k)
	kc := make([]int, k)

	for pl := 0; pl < planes; pl++ {
		plane := src[pl*inSize : (pl+1)*inSize]
		for oi := 0; oi < outSize; oi++ {
			unravel(oi, g.out, oc)
			acc := math32.Inf(-1)
			if average {
				acc = 0
			}
			valid, padded := 0, 0
			for ki := 0; ki < kSize; ki++ {
				unravel(ki, g.kernel, kc)
				idx, inside, inPad := 0, true, true
				for d := 0; d < k; d++ {
					pos := oc[d]*g.strides[d] - g.padBegin[d] + kc[d]*g.dilations[d]
					if pos < -g.padBegin[d] || pos >= g.spatial[d]+padEnd[d] {
						inPad = false
					}
					if pos < 0 || pos >= g.spatial[d] {
						inside = false
						continue
					}
					idx = idx*g.spatial[d] + pos
				}
				if inPad {
					padded++
				}
				if !inside {
					continue
				}
				valid++
				if average {
					acc += plane[idx]
				} else {
					acc = max(acc, plane[idx])
				}
			}
			if average {
				div := valid
				if p.CountIncludePad {
					div = padded
				}
				if div > 0 {
					acc /= float32(div)
				}
			}
			dst[pl*outSize+oi] = acc
		}
	}
	return result
}
