package operators

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// registerUtilityOps adds utility operators to the registry.
func (r *Registry) registerUtilityOps() {
	r.Register("Identity", handleIdentity)
	r.Register("Dropout", handleDropout)
	r.Register("Constant", handleConstant)
	r.Register("Cast", handleCast)
	r.Register("ConstantOfShape", handleConstantOfShape)
	r.Register("Shape", handleShape)
}

func handleIdentity(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("identity requires 1 input, got %d", len(inputs))
	}
	return one(inputs[0]), nil
}

// handleDropout is the inference-mode identity. The optional mask output is
// all true.
func handleDropout(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("dropout requires at least 1 input, got %d", len(inputs))
	}
	outputs := one(inputs[0])
	if len(node.Outputs) > 1 {
		mask, err := tensor.FullRaw(inputs[0].Shape(), tensor.Bool, 1)
		if err != nil {
			return nil, fmt.Errorf("dropout: %w", err)
		}
		outputs = append(outputs, mask)
	}
	return outputs, nil
}

func handleConstant(_ *Context, node *Node, _ []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	for i := range node.Attributes {
		attr := &node.Attributes[i]
		switch attr.Name {
		case "value":
			if attr.T == nil {
				return nil, fmt.Errorf("constant: value attribute has no tensor")
			}
			return one(attr.T.Clone()), nil
		case "value_float":
			return one(tensor.Scalar(attr.F)), nil
		case "value_floats":
			t, err := tensor.FromFloat32(attr.Floats, tensor.Shape{len(attr.Floats)})
			if err != nil {
				return nil, fmt.Errorf("constant value_floats: %w", err)
			}
			return one(t), nil
		case "value_int":
			t, err := tensor.FromInt64([]int64{attr.I}, tensor.Shape{})
			if err != nil {
				return nil, fmt.Errorf("constant value_int: %w", err)
			}
			return one(t), nil
		case "value_ints":
			return one(tensor.Int64Vector(attr.Ints...)), nil
		}
	}
	return nil, fmt.Errorf("constant: no value attribute found")
}

func handleCast(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("cast requires 1 input, got %d", len(inputs))
	}
	to := node.Attr("to")
	if to == nil {
		return nil, fmt.Errorf("cast requires the to attribute")
	}
	dtype, err := dataTypeFromONNX(to.I)
	if err != nil {
		return nil, fmt.Errorf("cast: %w", err)
	}
	result, err := tensor.Cast(inputs[0], dtype)
	if err != nil {
		return nil, fmt.Errorf("cast: %w", err)
	}
	return one(result), nil
}

// handleConstantOfShape fills a tensor of the requested shape with the
// single element of the "value" attribute (float32 zero by default).
func handleConstantOfShape(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("constantOfShape requires 1 input (shape), got %d", len(inputs))
	}

	dtype, value := tensor.Float32, 0.0
	if a := node.Attr("value"); a != nil && a.T != nil {
		if a.T.NumElements() != 1 {
			return nil, fmt.Errorf("constantOfShape: value must have one element, got %v", a.T.Shape())
		}
		dtype, value = a.T.DType(), a.T.Float64At(0)
	}

	result, err := tensor.FullRaw(tensor.Shape(inputs[0].Ints()), dtype, value)
	if err != nil {
		return nil, fmt.Errorf("constantOfShape: %w", err)
	}
	return one(result), nil
}

func handleShape(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("shape requires 1 input, got %d", len(inputs))
	}
	return one(tensor.Int64Vector(inputs[0].Shape().Int64s()...)), nil
}
