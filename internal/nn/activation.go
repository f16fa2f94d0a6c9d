package nn

import (
	"github.com/born-ml/onnxgen/internal/onnx"
)

// Activation is a parameterless element-wise layer exported as a single
// node of opType.
type Activation struct {
	opType string
}

// NewReLU creates a ReLU activation: f(x) = max(0, x).
func NewReLU() *Activation { return &Activation{opType: "Relu"} }

// NewSigmoid creates a sigmoid activation: f(x) = 1 / (1 + exp(-x)).
func NewSigmoid() *Activation { return &Activation{opType: "Sigmoid"} }

// NewTanh creates a tanh activation.
func NewTanh() *Activation { return &Activation{opType: "Tanh"} }

// Build emits the activation node.
func (a *Activation) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	return g.Op(a.opType, []onnx.Value{x})
}

// Parameters returns nil.
func (a *Activation) Parameters() []*Parameter { return nil }

func (a *Activation) String() string { return a.opType }

// Softmax normalizes along one axis; negative axes count from the end.
type Softmax struct {
	axis      int
	logarithm bool
}

// NewSoftmax creates a softmax over axis.
func NewSoftmax(axis int) *Softmax { return &Softmax{axis: axis} }

// NewLogSoftmax creates a log-softmax over axis.
func NewLogSoftmax(axis int) *Softmax { return &Softmax{axis: axis, logarithm: true} }

// Build emits Softmax or LogSoftmax.
func (s *Softmax) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	return g.Softmax(x, s.axis, s.logarithm)
}

// Parameters returns nil.
func (s *Softmax) Parameters() []*Parameter { return nil }

// Dropout is exported in inference mode, where it passes its input
// through unchanged.
type Dropout struct {
	p float32
}

// NewDropout creates a dropout layer with drop probability p.
func NewDropout(p float32) *Dropout { return &Dropout{p: p} }

// Build emits Dropout. From opset 12 the ratio is an input and the
// default of 0.5 applies in inference mode, so it is left out.
func (d *Dropout) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	if g.Opset() >= 12 {
		return g.Op("Dropout", []onnx.Value{x})
	}
	return g.Op("Dropout", []onnx.Value{x}, onnx.AttrFloat("ratio", d.p))
}

// Parameters returns nil.
func (d *Dropout) Parameters() []*Parameter { return nil }
