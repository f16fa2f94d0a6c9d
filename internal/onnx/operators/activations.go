package operators

import (
	"fmt"
	"math"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// registerActivations adds activation operators to the registry.
func (r *Registry) registerActivations() {
	r.Register("Relu", unaryOp("relu", tensor.Backend.Relu))
	r.Register("Sigmoid", unaryOp("sigmoid", tensor.Backend.Sigmoid))
	r.Register("Tanh", unaryOp("tanh", tensor.Backend.Tanh))
	r.Register("Softplus", unaryOp("softplus", tensor.Backend.Softplus))
	r.Register("Softmax", softmaxOp(false))
	r.Register("LogSoftmax", softmaxOp(true))
	r.Register("Clip", handleClip)
}

// softmaxOp handles Softmax and LogSoftmax. Before opset 13 the input is
// coerced to 2-D [prod(shape[:axis]), prod(shape[axis:])] and normalized
// along the second dimension; the default axis was 1. From opset 13 the
// normalization runs along the single axis, default -1.
func softmaxOp(logarithm bool) OpHandler {
	return func(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
		if len(inputs) != 1 {
			return nil, fmt.Errorf("%s requires 1 input, got %d", node.OpType, len(inputs))
		}
		x := inputs[0]
		if ctx.Opset >= 13 {
			axis := int(GetAttrInt(node, "axis", -1))
			return one(ctx.Backend.Softmax(x, axis, logarithm)), nil
		}

		axis, err := tensor.NormalizeAxis(int(GetAttrInt(node, "axis", 1)), len(x.Shape()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.OpType, err)
		}
		flat, err := tensor.Flatten(x, axis)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.OpType, err)
		}
		y := ctx.Backend.Softmax(flat, 1, logarithm)
		result, err := tensor.Reshape(y, x.Shape())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.OpType, err)
		}
		return one(result), nil
	}
}

// handleClip reads min/max from attributes before opset 11 and from the
// optional inputs afterwards.
func handleClip(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("clip requires at least 1 input, got %d", len(inputs))
	}
	var lo, hi float32
	if ctx.Opset >= 11 {
		lo = float32Bound(optInput(inputs, 1), negInf)
		hi = float32Bound(optInput(inputs, 2), posInf)
	} else {
		lo = GetAttrFloat(node, "min", negInf)
		hi = GetAttrFloat(node, "max", posInf)
	}
	return one(ctx.Backend.Clip(inputs[0], lo, hi)), nil
}

// float32Bound converts an ONNX clip bound to float32, mapping absent bounds
// to infinities.
func float32Bound(t *tensor.RawTensor, def float32) float32 {
	if t == nil || t.NumElements() == 0 {
		return def
	}
	return float32(t.Float64At(0))
}

var (
	negInf = float32(math.Inf(-1))
	posInf = float32(math.Inf(1))
)
