package nn

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/random"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
// Shapes:
//   - W: [out_features, in_features]
//   - b: [out_features]
//
// A 2-D input exports as a single Gemm with transB=1. Inputs of any other
// rank export as Transpose(W), MatMul and Add, which is how the layer
// broadcasts over leading batch axes.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter
	bias        *Parameter // nil without bias
}

// NewLinear creates a Linear layer with PyTorch's default initialization.
func NewLinear(src *random.Source, inFeatures, outFeatures int, bias bool) *Linear {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear: invalid features in=%d, out=%d", inFeatures, outFeatures))
	}
	l := &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", KaimingUniform(src, inFeatures, outFeatures, inFeatures)),
	}
	if bias {
		l.bias = NewParameter("bias", KaimingUniform(src, inFeatures, outFeatures))
	}
	return l
}

// Build emits Gemm for 2-D inputs and MatMul(+Add) otherwise.
func (l *Linear) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	w := l.weight.Emit(g)
	if x.Rank() == 2 && l.bias != nil {
		return g.Op("Gemm", []onnx.Value{x, w, l.bias.Emit(g)},
			onnx.AttrFloat("alpha", 1), onnx.AttrFloat("beta", 1), onnx.AttrInt("transB", 1))
	}
	y := g.Op("MatMul", []onnx.Value{x, g.Transpose(w, 1, 0)})
	if l.bias == nil {
		return y
	}
	return g.Op("Add", []onnx.Value{y, l.bias.Emit(g)})
}

// Parameters returns the weight and, if present, the bias.
func (l *Linear) Parameters() []*Parameter {
	if l.bias == nil {
		return []*Parameter{l.weight}
	}
	return []*Parameter{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter { return l.weight }

// Bias returns the bias parameter, or nil.
func (l *Linear) Bias() *Parameter { return l.bias }

func (l *Linear) String() string {
	return fmt.Sprintf("Linear(in_features=%d, out_features=%d, bias=%v)", l.inFeatures, l.outFeatures, l.bias != nil)
}
