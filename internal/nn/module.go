// Package nn provides PyTorch-style layers that export themselves into an
// ONNX graph.
//
// A Module does not compute on its own. Build appends the nodes that
// implement the layer to an onnx.GraphBuilder, which traces each node on
// the CPU backend as it is added, so the builder ends up holding both the
// graph and the reference output for the sample input.
//
// Layers draw their parameters from a seeded random.Source using PyTorch's
// default initialization:
//
//	src := random.New(0)
//	model := nn.NewSequential(
//	    nn.NewConv2d(src, 3, 6, nn.ConvConfig{Kernel: []int{5}}),
//	    nn.NewReLU(),
//	    nn.NewMaxPool2d(nn.PoolConfig{Kernel: []int{2}}),
//	)
//	g := onnx.NewGraphBuilder("net", 9, cpu.New())
//	y := model.Build(g, g.Input("input", src.Randn(1, 3, 32, 32)))
//	g.Output(y, "output")
package nn

import (
	"github.com/born-ml/onnxgen/internal/onnx"
)

// Module is the interface all layers implement.
type Module interface {
	// Build appends the layer's nodes to g and returns the output value.
	// Parameters are emitted as initializers under g's current scope.
	Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value

	// Parameters returns all parameters of the module, nested modules
	// included. Layers without parameters return nil.
	Parameters() []*Parameter
}

// Call builds m inside the parameter scope name, the way a submodule
// attribute names its parameters ("conv1.weight").
func Call(g *onnx.GraphBuilder, name string, m Module, x onnx.Value) onnx.Value {
	defer g.Scope(name)()
	return m.Build(g, x)
}

// Func adapts a graph function to Module. Children lists the modules the
// function calls so that Parameters can report them.
type Func struct {
	fn       func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value
	children []Module
}

// NewFunc wraps fn as a Module.
func NewFunc(fn func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value, children ...Module) *Func {
	return &Func{fn: fn, children: children}
}

// Build calls the wrapped function.
func (f *Func) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	return f.fn(g, x)
}

// Parameters returns the parameters of the listed children.
func (f *Func) Parameters() []*Parameter {
	return collect(f.children)
}

func collect(modules []Module) []*Parameter {
	var params []*Parameter
	for _, m := range modules {
		params = append(params, m.Parameters()...)
	}
	return params
}
