package nn

import (
	"strconv"

	"github.com/born-ml/onnxgen/internal/onnx"
)

// Sequential chains modules; each module's output feeds the next one.
//
// Parameters of the i-th module are scoped by its index, so the weight of
// the first layer becomes "0.weight" just like in a PyTorch state dict.
//
//	model := nn.NewSequential(
//	    nn.NewMaxPool2d(nn.PoolConfig{Kernel: []int{4}, Stride: []int{2}}),
//	    nn.NewSigmoid(),
//	)
type Sequential struct {
	modules []Module
}

// NewSequential creates a Sequential container.
func NewSequential(modules ...Module) *Sequential {
	return &Sequential{modules: modules}
}

// Build applies all modules in order.
func (s *Sequential) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	for i, m := range s.modules {
		x = Call(g, strconv.Itoa(i), m, x)
	}
	return x
}

// Parameters returns the parameters of all modules in order.
func (s *Sequential) Parameters() []*Parameter {
	return collect(s.modules)
}

// Len returns the number of modules.
func (s *Sequential) Len() int {
	return len(s.modules)
}

// Module returns the i-th module.
func (s *Sequential) Module(i int) Module {
	return s.modules[i]
}
