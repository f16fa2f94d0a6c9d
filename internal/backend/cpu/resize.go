package cpu

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// Resize interpolates x to outShape. Both nearest and linear interpolation
// are separable, so the resize runs one axis at a time and skips axes whose
// size and scale are unchanged.
func (cpu *CPUBackend) Resize(x *tensor.RawTensor, outShape tensor.Shape, p tensor.ResizeParams) *tensor.RawTensor {
	shape := x.Shape()
	if len(outShape) != len(shape) {
		panic(fmt.Sprintf("resize: output %v does not match input rank %v", outShape, shape))
	}
	if p.Mode != "nearest" && p.Mode != "linear" {
		panic(fmt.Sprintf("resize: unsupported mode %q", p.Mode))
	}

	cur := x
	for axis := range shape {
		scale := float32(0)
		if axis < len(p.Scales) {
			scale = p.Scales[axis]
		}
		if outShape[axis] == shape[axis] && (scale == 0 || scale == 1) {
			continue
		}
		if scale == 0 {
			scale = float32(outShape[axis]) / float32(shape[axis])
		}
		cur = resizeAxis(cur, axis, outShape[axis], scale, p)
	}
	if cur == x {
		return x.Clone()
	}
	return cur
}

// sourceCoord maps an output coordinate back into input space.
func sourceCoord(mode string, o, inLen, outLen int, scale float32) float32 {
	switch mode {
	case "half_pixel":
		return (float32(o)+0.5)/scale - 0.5
	case "pytorch_half_pixel":
		if outLen > 1 {
			return (float32(o)+0.5)/scale - 0.5
		}
		return 0
	case "align_corners":
		if outLen == 1 {
			return 0
		}
		return float32(o) * float32(inLen-1) / float32(outLen-1)
	case "asymmetric", "":
		return float32(o) / scale
	default:
		panic(fmt.Sprintf("resize: unsupported coordinate_transformation_mode %q", mode))
	}
}

func nearestIndex(mode string, v float32) int {
	switch mode {
	case "floor":
		return int(math32.Floor(v))
	case "ceil":
		return int(math32.Ceil(v))
	case "round_prefer_ceil":
		return int(math32.Floor(v + 0.5))
	case "round_prefer_floor", "":
		if v-math32.Floor(v) == 0.5 {
			return int(math32.Floor(v))
		}
		return int(math32.Round(v))
	default:
		panic(fmt.Sprintf("resize: unsupported nearest_mode %q", mode))
	}
}

func resizeAxis(x *tensor.RawTensor, axis, outLen int, scale float32, p tensor.ResizeParams) *tensor.RawTensor {
	shape := x.Shape()
	inLen := shape[axis]
	outShape := shape.Clone()
	outShape[axis] = outLen

	result := newFloat32("resize", outShape)
	src, dst := x.AsFloat32(), result.AsFloat32()
	outer := product(shape[:axis])
	inner := product(shape[axis+1:])

	// Per output coordinate: two source rows and the weight of the second.
	lo := make([]int, outLen)
	hi := make([]int, outLen)
	w := make([]float32, outLen)
	for o := 0; o < outLen; o++ {
		c := sourceCoord(p.CoordMode, o, inLen, outLen, scale)
		if p.Mode == "nearest" {
			i := min(max(nearestIndex(p.NearestMode, c), 0), inLen-1)
			lo[o], hi[o] = i, i
			continue
		}
		c = min(max(c, 0), float32(inLen-1))
		i0 := int(math32.Floor(c))
		lo[o], hi[o] = i0, min(i0+1, inLen-1)
		w[o] = c - float32(i0)
	}

	for ou := 0; ou < outer; ou++ {
		in := src[ou*inLen*inner : (ou+1)*inLen*inner]
		out := dst[ou*outLen*inner : (ou+1)*outLen*inner]
		for o := 0; o < outLen; o++ {
			a := in[lo[o]*inner : (lo[o]+1)*inner]
			b := in[hi[o]*inner : (hi[o]+1)*inner]
			row := out[o*inner : (o+1)*inner]
			for j := range row {
				row[j] = a[j] + (b[j]-a[j])*w[o]
			}
		}
	}
	return result
}
