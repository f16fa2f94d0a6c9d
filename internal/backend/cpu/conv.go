package cpu

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// convGeometry describes one convolution over k spatial dimensions.
type convGeometry struct {
	spatial   []int // input spatial dims
	kernel    []int
	out       []int // output spatial dims
	strides   []int
	padBegin  []int
	dilations []int
}

func newConvGeometry(op string, spatial, kernel []int, p tensor.ConvParams) convGeometry {
	k := len(spatial)
	g := convGeometry{
		spatial:   spatial,
		kernel:    kernel,
		out:       make([]int, k),
		strides:   make([]int, k),
		padBegin:  make([]int, k),
		dilations: make([]int, k),
	}
	if len(p.Pads) != 0 && len(p.Pads) != 2*k {
		panic(fmt.Sprintf("%s: expected %d pads, got %v", op, 2*k, p.Pads))
	}
	for d := 0; d < k; d++ {
		g.strides[d] = paramOr(p.Strides, d, 1)
		g.dilations[d] = paramOr(p.Dilations, d, 1)
		g.padBegin[d] = paramOr(p.Pads, d, 0)
		if g.strides[d] <= 0 || g.dilations[d] <= 0 {
			panic(fmt.Sprintf("%s: invalid strides %v or dilations %v", op, p.Strides, p.Dilations))
		}
	}
	return g
}

// Conv performs N-d convolution using the im2col algorithm.
//
// Input shape:  [N, C, D1, ..., Dk]
// Weight shape: [M, C/group, K1, ..., Kk]
// Output shape: [N, M, O1, ..., Ok]
//
// where Oi = (Di + padBegin_i + padEnd_i - dilation_i*(Ki-1) - 1) / stride_i + 1.
//
// Algorithm: Im2col
//  1. Transform the input patches of one group into a column matrix
//     [C/group * K1*...*Kk, O1*...*Ok]
//  2. Multiply the group's weights [M/group, C/group * K1*...*Kk] by it
//  3. Add the bias per output channel
func (cpu *CPUBackend) Conv(x, w, b *tensor.RawTensor, p tensor.ConvParams) *tensor.RawTensor {
	xShape, wShape := x.Shape(), w.Shape()
	if len(xShape) < 3 || len(wShape) != len(xShape) {
		panic(fmt.Sprintf("conv: input %v and weight %v must have the same rank >= 3", xShape, wShape))
	}

	group := max(p.Group, 1)
	N, C, M := xShape[0], xShape[1], wShape[0]
	if C%group != 0 || M%group != 0 || wShape[1] != C/group {
		panic(fmt.Sprintf("conv: input %v and weight %v do not match group=%d", xShape, wShape, group))
	}

	g := newConvGeometry("conv", xShape[2:], wShape[2:], p)
	for d := range g.spatial {
		padded := g.spatial[d] + paramOr(p.Pads, d, 0) + paramOr(p.Pads, d+len(g.spatial), 0)
		g.out[d] = (padded-g.dilations[d]*(g.kernel[d]-1)-1)/g.strides[d] + 1
		if g.out[d] <= 0 {
			panic(fmt.Sprintf("conv: invalid output size %v for input %v and kernel %v", g.out, xShape, wShape))
		}
	}

	outShape := append(tensor.Shape{N, M}, g.out...)
	result := newFloat32("conv", outShape)

	xv, wv, dst := x.AsFloat32(), w.AsFloat32(), result.AsFloat32()
	cg, mg := C/group, M/group
	inSize, outSize, kSize := product(g.spatial), product(g.out), product(g.kernel)
	colRows := cg * kSize
	col := make([]float32, colRows*outSize)

	for n := 0; n < N; n++ {
		for gi := 0; gi < group; gi++ {
			src := xv[(n*C+gi*cg)*inSize : (n*C+(gi+1)*cg)*inSize]
			im2col(col, src, cg, g)
			wg := wv[gi*mg*colRows : (gi+1)*mg*colRows]
			out := dst[(n*M+gi*mg)*outSize : (n*M+(gi+1)*mg)*outSize]
			gemm32(false, false, mg, outSize, colRows, 1, wg, col, 0, out)
		}
	}

	if b != nil {
		addChannelBias("conv", dst, b, N, M, outSize)
	}
	return result
}

// im2col fills col [channels*prod(kernel), prod(out)] from src [channels, spatial...].
// Positions that fall into the padding are zero.
func im2col(col, src []float32, channels int, g convGeometry) {
	k := len(g.spatial)
	inSize, outSize, kSize := product(g.spatial), product(g.out), product(g.kernel)
	kc := make([]int, k)
	oc := make([]int, k)

	for c := 0; c < channels; c++ {
		for ki := 0; ki < kSize; ki++ {
			unravel(ki, g.kernel, kc)
			row := col[(c*kSize+ki)*outSize : (c*kSize+ki+1)*outSize]
			for oi := 0; oi < outSize; oi++ {
				unravel(oi, g.out, oc)
				idx, ok := 0, true
				for d := 0; d < k; d++ {
					pos := oc[d]*g.strides[d] - g.padBegin[d] + kc[d]*g.dilations[d]
					if pos < 0 || pos >= g.spatial[d] {
						ok = false
						break
					}
					idx = idx*g.spatial[d] + pos
				}
				if ok {
					row[oi] = src[c*inSize+idx]
				} else {
					row[oi] = 0
				}
			}
		}
	}
}

// ConvTranspose performs N-d transposed convolution (the gradient of Conv
// with respect to its input) via col2im.
//
// Input shape:  [N, C, D1, ..., Dk]
// Weight shape: [C, M/group, K1, ..., Kk]
// Output shape: [N, M, O1, ..., Ok]
//
// where Oi = stride_i*(Di-1) + outputPadding_i + dilation_i*(Ki-1) + 1 - padBegin_i - padEnd_i.
func (cpu *CPUBackend) ConvTranspose(x, w, b *tensor.RawTensor, p tensor.ConvParams) *tensor.RawTensor {
	xShape, wShape := x.Shape(), w.Shape()
	if len(xShape) < 3 || len(wShape) != len(xShape) {
		panic(fmt.Sprintf("convtranspose: input %v and weight %v must have the same rank >= 3", xShape, wShape))
	}

	group := max(p.Group, 1)
	N, C := xShape[0], xShape[1]
	if wShape[0] != C || C%group != 0 {
		panic(fmt.Sprintf("convtranspose: input %v and weight %v do not match group=%d", xShape, wShape, group))
	}
	M := wShape[1] * group

	g := newConvGeometry("convtranspose", xShape[2:], wShape[2:], p)
	for d := range g.spatial {
		g.out[d] = g.strides[d]*(g.spatial[d]-1) + paramOr(p.OutputPadding, d, 0) +
			g.dilations[d]*(g.kernel[d]-1) + 1 -
			paramOr(p.Pads, d, 0) - paramOr(p.Pads, d+len(g.spatial), 0)
		if g.out[d] <= 0 {
			panic(fmt.Sprintf("convtranspose: invalid output size %v", g.out))
		}
	}

	outShape := append(tensor.Shape{N, M}, g.out...)
	result := newFloat32("convtranspose", outShape)

	xv, wv, dst := x.AsFloat32(), w.AsFloat32(), result.AsFloat32()
	cg, mg := C/group, M/group
	inSize, outSize, kSize := product(g.spatial), product(g.out), product(g.kernel)
	colRows := mg * kSize
	col := make([]float32, colRows*inSize)

	for n := 0; n < N; n++ {
		for gi := 0; gi < group; gi++ {
			src := xv[(n*C+gi*cg)*inSize : (n*C+(gi+1)*cg)*inSize]
			wg := wv[gi*cg*colRows : (gi+1)*cg*colRows]
			// col = wg^T [mg*kSize, cg] @ src [cg, inSize]
			gemm32(true, false, colRows, inSize, cg, 1, wg, src, 0, col)
			out := dst[(n*M+gi*mg)*outSize : (n*M+(gi+1)*mg)*outSize]
			col2im(out, col, mg, g)
		}
	}

	if b != nil {
		addChannelBias("convtranspose", dst, b, N, M, outSize)
	}
	return result
}

// col2im scatters col [channels*prod(kernel), prod(spatial)] into
// dst [channels, out...], accumulating overlapping contributions.
func col2im(dst, col []float32, channels int, g convGeometry) {
	k := len(g.spatial)
	inSize, outSize, kSize := product(g.spatial), product(g.out), product(g.kernel)
	kc := make([]int, k)
	ic := make([]int, k)

	for c := 0; c < channels; c++ {
		for ki := 0; ki < kSize; ki++ {
			unravel(ki, g.kernel, kc)
			row := col[(c*kSize+ki)*inSize : (c*kSize+ki+1)*inSize]
			for ii := 0; ii < inSize; ii++ {
				unravel(ii, g.spatial, ic)
				idx, ok := 0, true
				for d := 0; d < k; d++ {
					pos := ic[d]*g.strides[d] - g.padBegin[d] + kc[d]*g.dilations[d]
					if pos < 0 || pos >= g.out[d] {
						ok = false
						break
					}
					idx = idx*g.out[d] + pos
				}
				if ok {
					dst[c*outSize+idx] += row[ii]
				}
			}
		}
	}
}

func addChannelBias(op string, dst []float32, b *tensor.RawTensor, n, channels, size int) {
	bias := b.AsFloat32()
	if len(bias) != channels {
		panic(fmt.Sprintf("%s: bias has %d values for %d channels", op, len(bias), channels))
	}
	for i := 0; i < n; i++ {
		for c := 0; c < channels; c++ {
			plane := dst[(i*channels+c)*size : (i*channels+c+1)*size]
			for j := range plane {
				plane[j] += bias[c]
			}
		}
	}
}
