package nn

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/onnx"
)

const normEpsilon = 1e-5

// BatchNorm is batch normalization in inference mode over the channel
// axis of an NC... input. A fresh layer has weight 1, bias 0, running
// mean 0 and running variance 1.
type BatchNorm struct {
	weight, bias, mean, variance *Parameter
	eps, momentum                float32
}

// NewBatchNorm creates a BatchNorm layer for numFeatures channels.
func NewBatchNorm(numFeatures int) *BatchNorm {
	return &BatchNorm{
		weight:   NewParameter("weight", Ones(numFeatures)),
		bias:     NewParameter("bias", Zeros(numFeatures)),
		mean:     NewParameter("running_mean", Zeros(numFeatures)),
		variance: NewParameter("running_var", Ones(numFeatures)),
		eps:      normEpsilon,
		// ONNX momentum weighs the running statistic, PyTorch's the batch one.
		momentum: 1 - 0.1,
	}
}

// Build emits BatchNormalization.
func (b *BatchNorm) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	return g.Op("BatchNormalization",
		[]onnx.Value{x, b.weight.Emit(g), b.bias.Emit(g), b.mean.Emit(g), b.variance.Emit(g)},
		onnx.AttrFloat("epsilon", b.eps), onnx.AttrFloat("momentum", b.momentum))
}

// Parameters returns weight, bias, running mean and running variance.
func (b *BatchNorm) Parameters() []*Parameter {
	return []*Parameter{b.weight, b.bias, b.mean, b.variance}
}

func (b *BatchNorm) String() string {
	return fmt.Sprintf("BatchNorm(%d)", b.weight.Tensor().Shape()[0])
}

// InstanceNorm normalizes each channel of each sample separately.
type InstanceNorm struct {
	numFeatures  int
	weight, bias *Parameter // nil unless affine
}

// NewInstanceNorm creates an InstanceNorm layer. With affine set it owns
// a scale (ones) and shift (zeros); otherwise both are exported as
// constants.
func NewInstanceNorm(numFeatures int, affine bool) *InstanceNorm {
	n := &InstanceNorm{numFeatures: numFeatures}
	if affine {
		n.weight = NewParameter("weight", Ones(numFeatures))
		n.bias = NewParameter("bias", Zeros(numFeatures))
	}
	return n
}

// Build emits InstanceNormalization.
func (n *InstanceNorm) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	var scale, shift onnx.Value
	if n.weight != nil {
		scale, shift = n.weight.Emit(g), n.bias.Emit(g)
	} else {
		scale, shift = g.Constant(Ones(n.numFeatures)), g.Constant(Zeros(n.numFeatures))
	}
	return g.Op("InstanceNormalization", []onnx.Value{x, scale, shift}, onnx.AttrFloat("epsilon", normEpsilon))
}

// Parameters returns weight and bias when affine.
func (n *InstanceNorm) Parameters() []*Parameter {
	if n.weight == nil {
		return nil
	}
	return []*Parameter{n.weight, n.bias}
}
