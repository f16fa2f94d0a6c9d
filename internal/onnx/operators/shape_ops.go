package operators

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// registerShapeOps adds shape manipulation operators to the registry.
func (r *Registry) registerShapeOps() {
	r.Register("Reshape", handleReshape)
	r.Register("Transpose", handleTranspose)
	r.Register("Squeeze", handleSqueeze)
	r.Register("Unsqueeze", handleUnsqueeze)
	r.Register("Concat", handleConcat)
	r.Register("Split", handleSplit)
	r.Register("Slice", handleSlice)
	r.Register("Gather", handleGather)
	r.Register("Flatten", handleFlatten)
	r.Register("Expand", handleExpand)
}

func handleReshape(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("reshape requires 2 inputs (data, shape), got %d", len(inputs))
	}
	result, err := tensor.Reshape(inputs[0], inputs[1].Ints())
	if err != nil {
		return nil, fmt.Errorf("reshape: %w", err)
	}
	return one(result), nil
}

func handleTranspose(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("transpose requires 1 input, got %d", len(inputs))
	}
	result, err := tensor.TransposeAxes(inputs[0], intsAttr(node, "perm", nil)...)
	if err != nil {
		return nil, fmt.Errorf("transpose: %w", err)
	}
	return one(result), nil
}

// handleSqueeze reads axes from the attribute before opset 13 and from the
// second input afterwards. No axes squeezes every unit dimension.
func handleSqueeze(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("squeeze requires at least 1 input, got %d", len(inputs))
	}
	result, err := tensor.Squeeze(inputs[0], axesFor(ctx, node, inputs, 13)...)
	if err != nil {
		return nil, fmt.Errorf("squeeze: %w", err)
	}
	return one(result), nil
}

func handleUnsqueeze(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("unsqueeze requires at least 1 input, got %d", len(inputs))
	}
	axes := axesFor(ctx, node, inputs, 13)
	if len(axes) == 0 {
		return nil, fmt.Errorf("unsqueeze requires axes")
	}
	result, err := tensor.Unsqueeze(inputs[0], axes...)
	if err != nil {
		return nil, fmt.Errorf("unsqueeze: %w", err)
	}
	return one(result), nil
}

// axesFor returns the "axes" attribute, or the second input once the
// opset has moved it there.
func axesFor(ctx *Context, node *Node, inputs []*tensor.RawTensor, inputSince int64) []int {
	if ctx.Opset >= inputSince {
		if t := optInput(inputs, 1); t != nil {
			return t.Ints()
		}
		return nil
	}
	return intsAttr(node, "axes", nil)
}

func handleConcat(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("concat requires at least 1 input")
	}
	axis := node.Attr("axis")
	if axis == nil {
		return nil, fmt.Errorf("concat requires the axis attribute")
	}
	result, err := tensor.Concat(inputs, int(axis.I))
	if err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}
	return one(result), nil
}

// handleSplit reads sizes from the "split" attribute before opset 13 and
// from the second input afterwards. Without sizes the axis is divided
// evenly between the node outputs.
func handleSplit(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("split requires at least 1 input, got %d", len(inputs))
	}
	axis := int(GetAttrInt(node, "axis", 0))

	var sizes []int
	if ctx.Opset >= 13 {
		if t := optInput(inputs, 1); t != nil {
			sizes = t.Ints()
		}
	} else {
		sizes = intsAttr(node, "split", nil)
	}

	var (
		results []*tensor.RawTensor
		err     error
	)
	if len(sizes) > 0 {
		results, err = tensor.Split(inputs[0], axis, sizes)
	} else {
		results, err = tensor.SplitEven(inputs[0], axis, len(node.Outputs))
	}
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	return results, nil
}

// handleSlice reads starts/ends/axes from attributes before opset 10 and
// from inputs (plus optional steps) afterwards.
func handleSlice(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("slice requires at least 1 input")
	}

	var starts, ends, axes, steps []int
	if ctx.Opset < 10 {
		starts = intsAttr(node, "starts", nil)
		ends = intsAttr(node, "ends", nil)
		axes = intsAttr(node, "axes", nil)
	} else {
		if len(inputs) < 3 {
			return nil, fmt.Errorf("slice requires at least 3 inputs (data, starts, ends), got %d", len(inputs))
		}
		starts = inputs[1].Ints()
		ends = inputs[2].Ints()
		if t := optInput(inputs, 3); t != nil {
			axes = t.Ints()
		}
		if t := optInput(inputs, 4); t != nil {
			steps = t.Ints()
		}
	}

	result, err := tensor.Slice(inputs[0], starts, ends, axes, steps)
	if err != nil {
		return nil, fmt.Errorf("slice: %w", err)
	}
	return one(result), nil
}

func handleGather(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("gather requires 2 inputs (data, indices), got %d", len(inputs))
	}
	axis := int(GetAttrInt(node, "axis", 0))
	result, err := tensor.Gather(inputs[0], inputs[1], axis)
	if err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	return one(result), nil
}

func handleFlatten(_ *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("flatten requires 1 input, got %d", len(inputs))
	}
	axis := int(GetAttrInt(node, "axis", 1))
	result, err := tensor.Flatten(inputs[0], axis)
	if err != nil {
		return nil, fmt.Errorf("flatten: %w", err)
	}
	return one(result), nil
}

func handleExpand(_ *Context, _ *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("expand requires 2 inputs (input, shape), got %d", len(inputs))
	}
	result, err := tensor.Expand(inputs[0], tensor.Shape(inputs[1].Ints()))
	if err != nil {
		return nil, fmt.Errorf("expand: %w", err)
	}
	return one(result), nil
}
