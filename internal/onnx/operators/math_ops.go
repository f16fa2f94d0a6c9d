package operators

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// registerMathOps adds arithmetic, matrix and reduction operators to the registry.
func (r *Registry) registerMathOps() {
	r.Register("Add", binaryOp("add", tensor.Backend.Add, func(a, b int64) int64 { return a + b }))
	r.Register("Sub", binaryOp("sub", tensor.Backend.Sub, func(a, b int64) int64 { return a - b }))
	r.Register("Mul", binaryOp("mul", tensor.Backend.Mul, func(a, b int64) int64 { return a * b }))
	r.Register("Div", binaryOp("div", tensor.Backend.Div, func(a, b int64) int64 { return a / b }))
	r.Register("Pow", binaryOp("pow", tensor.Backend.Pow, nil))
	r.Register("Max", variadicOp("max", tensor.Backend.Max))
	r.Register("Min", variadicOp("min", tensor.Backend.Min))

	r.Register("Sqrt", unaryOp("sqrt", tensor.Backend.Sqrt))
	r.Register("Exp", unaryOp("exp", tensor.Backend.Exp))
	r.Register("Log", unaryOp("log", tensor.Backend.Log))
	r.Register("Reciprocal", unaryOp("reciprocal", tensor.Backend.Reciprocal))
	r.Register("Neg", unaryOp("neg", tensor.Backend.Neg))
	r.Register("Abs", unaryOp("abs", tensor.Backend.Abs))

	r.Register("MatMul", handleMatMul)
	r.Register("Gemm", handleGemm)

	r.Register("ReduceSum", reduceOp(tensor.ReduceSum, 13))
	r.Register("ReduceMean", reduceOp(tensor.ReduceMean, 0))
	r.Register("ReduceMax", reduceOp(tensor.ReduceMax, 0))
	r.Register("ReduceL2", reduceOp(tensor.ReduceL2, 0))
}

type binaryKernel func(tensor.Backend, *tensor.RawTensor, *tensor.RawTensor) *tensor.RawTensor

type unaryKernel func(tensor.Backend, *tensor.RawTensor) *tensor.RawTensor

// binaryOp wraps a broadcasting float kernel. Integer operands (shape
// arithmetic) are evaluated by intFn when it is set.
func binaryOp(name string, kernel binaryKernel, intFn func(a, b int64) int64) OpHandler {
	return func(ctx *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
		if len(inputs) != 2 {
			return nil, fmt.Errorf("%s requires 2 inputs, got %d", name, len(inputs))
		}
		a, b := inputs[0], inputs[1]
		if a.DType() != b.DType() {
			return nil, fmt.Errorf("%s: mismatched types %s and %s", name, a.DType(), b.DType())
		}
		if a.DType() == tensor.Float32 {
			return one(kernel(ctx.Backend, a, b)), nil
		}
		if intFn == nil || a.DType().IsFloat() {
			return nil, fmt.Errorf("%s: unsupported type %s", name, a.DType())
		}
		result, err := intBinary(a, b, intFn)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return one(result), nil
	}
}

// intBinary applies fn element-wise with broadcasting and keeps the dtype of a.
func intBinary(a, b *tensor.RawTensor, fn func(a, b int64) int64) (*tensor.RawTensor, error) {
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		return nil, err
	}
	ea, err := tensor.Expand(a, outShape)
	if err != nil {
		return nil, err
	}
	eb, err := tensor.Expand(b, outShape)
	if err != nil {
		return nil, err
	}
	out, err := tensor.NewRaw(outShape, a.DType())
	if err != nil {
		return nil, err
	}
	for i := 0; i < out.NumElements(); i++ {
		out.SetFloat64(i, float64(fn(int64(ea.Float64At(i)), int64(eb.Float64At(i)))))
	}
	return out, nil
}

func variadicOp(name string, kernel binaryKernel) OpHandler {
	return func(ctx *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
		if len(inputs) < 1 {
			return nil, fmt.Errorf("%s requires at least 1 input", name)
		}
		acc := inputs[0]
		for _, in := range inputs[1:] {
			acc = kernel(ctx.Backend, acc, in)
		}
		if len(inputs) == 1 {
			acc = acc.Clone()
		}
		return one(acc), nil
	}
}

func unaryOp(name string, kernel unaryKernel) OpHandler {
	return func(ctx *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
		if len(inputs) != 1 {
			return nil, fmt.Errorf("%s requires 1 input, got %d", name, len(inputs))
		}
		return one(kernel(ctx.Backend, inputs[0])), nil
	}
}

func handleMatMul(ctx *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("matMul requires 2 inputs, got %d", len(inputs))
	}
	return one(ctx.Backend.MatMul(inputs[0], inputs[1])), nil
}

func handleGemm(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 2 || len(inputs) > 3 {
		return nil, fmt.Errorf("gemm requires 2 or 3 inputs, got %d", len(inputs))
	}
	p := tensor.GemmParams{
		Alpha:  GetAttrFloat(node, "alpha", 1),
		Beta:   GetAttrFloat(node, "beta", 1),
		TransA: GetAttrInt(node, "transA", 0) != 0,
		TransB: GetAttrInt(node, "transB", 0) != 0,
	}
	return one(ctx.Backend.Gemm(inputs[0], inputs[1], optInput(inputs, 2), p)), nil
}

// reduceOp builds a ReduceX handler. axesInputSince is the opset from which
// axes is read from the second input instead of the attribute (0: never).
func reduceOp(op tensor.ReduceOp, axesInputSince int64) OpHandler {
	return func(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
		if len(inputs) < 1 {
			return nil, fmt.Errorf("%s requires at least 1 input", node.OpType)
		}
		var axes []int
		if axesInputSince > 0 && ctx.Opset >= axesInputSince {
			if t := optInput(inputs, 1); t != nil {
				axes = t.Ints()
			}
		} else {
			axes = intsAttr(node, "axes", nil)
		}
		keepDims := GetAttrInt(node, "keepdims", 1) != 0
		if len(axes) == 0 && GetAttrInt(node, "noop_with_empty_axes", 0) != 0 {
			return one(inputs[0].Clone()), nil
		}
		return one(ctx.Backend.Reduce(inputs[0], op, axes, keepDims)), nil
	}
}
