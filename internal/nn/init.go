package nn

import (
	"math"

	"github.com/born-ml/onnxgen/internal/random"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// KaimingUniform draws a tensor from U(-1/sqrt(fanIn), 1/sqrt(fanIn)).
//
// This is what PyTorch's kaiming_uniform_ with a=sqrt(5) reduces to, the
// default for convolution and linear weights. The same bound is used for
// their biases.
func KaimingUniform(src *random.Source, fanIn int, shape ...int) *tensor.RawTensor {
	bound := 1 / math.Sqrt(float64(fanIn))
	return src.Uniform(-bound, bound, shape...)
}

// Zeros creates a float32 tensor filled with zeros.
func Zeros(shape ...int) *tensor.RawTensor {
	return full(0, shape)
}

// Ones creates a float32 tensor filled with ones.
func Ones(shape ...int) *tensor.RawTensor {
	return full(1, shape)
}

func full(v float64, shape []int) *tensor.RawTensor {
	t, err := tensor.FullRaw(tensor.Shape(shape), tensor.Float32, v)
	if err != nil {
		panic(err)
	}
	return t
}

// fanIn is the number of inputs feeding one output of a weight laid out
// as [out, in, kernel...].
func fanIn(shape []int) int {
	n := 1
	for _, d := range shape[1:] {
		n *= d
	}
	return n
}
