package cpu

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// BatchNorm applies inference-mode batch normalization over axis 1:
//
//	y = scale * (x - mean) / sqrt(variance + eps) + bias
func (cpu *CPUBackend) BatchNorm(x, scale, bias, mean, variance *tensor.RawTensor, eps float32) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("batchnorm: expected input [N,C,...], got %v", shape))
	}
	C := shape[1]
	s, b, m, v := scale.AsFloat32(), bias.AsFloat32(), mean.AsFloat32(), variance.AsFloat32()
	if len(s) != C || len(b) != C || len(m) != C || len(v) != C {
		panic(fmt.Sprintf("batchnorm: parameters must have %d values", C))
	}

	result := newFloat32("batchnorm", shape)
	src, dst := x.AsFloat32(), result.AsFloat32()
	size := product(shape[2:])
	for n := 0; n < shape[0]; n++ {
		for c := 0; c < C; c++ {
			k := s[c] / math32.Sqrt(v[c]+eps)
			off := (n*C + c) * size
			for i := off; i < off+size; i++ {
				dst[i] = (src[i]-m[c])*k + b[c]
			}
		}
	}
	return result
}

// InstanceNorm normalizes each (sample, channel) plane by its own mean and
// biased variance, then applies the per-channel affine transform.
func (cpu *CPUBackend) InstanceNorm(x, scale, bias *tensor.RawTensor, eps float32) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) < 3 {
		panic(fmt.Sprintf("instancenorm: expected input [N,C,D1,...], got %v", shape))
	}
	C := shape[1]
	s, b := scale.AsFloat32(), bias.AsFloat32()
	if len(s) != C || len(b) != C {
		panic(fmt.Sprintf("instancenorm: parameters must have %d values", C))
	}

	result := newFloat32("instancenorm", shape)
	src, dst := x.AsFloat32(), result.AsFloat32()
	size := product(shape[2:])
	for n := 0; n < shape[0]; n++ {
		for c := 0; c < C; c++ {
			plane := src[(n*C+c)*size : (n*C+c+1)*size]
			out := dst[(n*C+c)*size : (n*C+c+1)*size]

			var mean float64
			for _, v := range plane {
				mean += float64(v)
			}
			mean /= float64(size)
			var variance float64
			for _, v := range plane {
				d := float64(v) - mean
				variance += d * d
			}
			variance /= float64(size)

			k := s[c] / math32.Sqrt(float32(variance)+eps)
			for i, v := range plane {
				out[i] = (v-float32(mean))*k + b[c]
			}
		}
	}
	return result
}
