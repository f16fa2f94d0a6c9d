package nn

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// Parameter is a named weight tensor of a layer.
//
// The name is local to the layer ("weight", "bias"); the full initializer
// name is formed from the builder scope when the parameter is emitted.
type Parameter struct {
	name   string
	tensor *tensor.RawTensor
}

// NewParameter creates a parameter.
func NewParameter(name string, t *tensor.RawTensor) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the local parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.RawTensor {
	return p.tensor
}

// Emit adds the parameter to g as an initializer. Emitting the same
// parameter twice yields the same value.
func (p *Parameter) Emit(g *onnx.GraphBuilder) onnx.Value {
	return g.Param(p.name, p.tensor)
}

func (p *Parameter) String() string {
	return fmt.Sprintf("%s%v", p.name, p.tensor.Shape())
}
