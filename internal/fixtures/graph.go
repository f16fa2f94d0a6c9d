package fixtures

import (
	"math"

	"github.com/born-ml/onnxgen/internal/nn"
	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// Graph helpers for fixtures that compute shapes inside the model, the
// way a traced x.size(i) call exports.

var inf = float32(math.Inf(1))

// size emits x.size(axis) as an int64 scalar.
func size(g *onnx.GraphBuilder, x onnx.Value, axis int) onnx.Value {
	return g.Gather(g.Shape(x), axis, 0)
}

// vec packs scalars and 1-D int64 values into one shape vector.
func vec(g *onnx.GraphBuilder, parts ...onnx.Value) onnx.Value {
	packed := make([]onnx.Value, len(parts))
	for i, p := range parts {
		packed[i] = p
		if p.Rank() == 0 {
			packed[i] = g.Unsqueeze(p, 0)
		}
	}
	return g.Concat(0, packed...)
}

// view reshapes x to a shape computed in the graph.
func view(g *onnx.GraphBuilder, x, shape onnx.Value) onnx.Value {
	return g.Op("Reshape", []onnx.Value{x, shape})
}

// constInt emits an int64 scalar constant.
func constInt(g *onnx.GraphBuilder, v int) onnx.Value {
	t, err := tensor.FromInt64([]int64{int64(v)}, tensor.Shape{})
	if err != nil {
		return g.Fail(err)
	}
	return g.Constant(t)
}

func binary(g *onnx.GraphBuilder, op string, a, b onnx.Value) onnx.Value {
	return g.Op(op, []onnx.Value{a, b})
}

func unary(g *onnx.GraphBuilder, op string, x onnx.Value) onnx.Value {
	return g.Op(op, []onnx.Value{x})
}

// lastAxes returns the trailing n entries of x's shape as an int64 vector.
func lastAxes(g *onnx.GraphBuilder, x onnx.Value, n int) onnx.Value {
	return g.Slice(g.Shape(x), []int{-n}, []int{math.MaxInt64}, []int{0}, nil)
}

// fn is shorthand for nn.NewFunc.
func fn(f func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value, children ...nn.Module) nn.Module {
	return nn.NewFunc(f, children...)
}

func floatTensor(data []float32, shape ...int) *tensor.RawTensor {
	t, err := tensor.FromFloat32(data, tensor.Shape(shape))
	if err != nil {
		panic(err)
	}
	return t
}
