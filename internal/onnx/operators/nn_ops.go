package operators

import (
	"fmt"
	"math"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// registerNNOps adds convolution, pooling, normalization, resampling and
// recurrent operators to the registry.
func (r *Registry) registerNNOps() {
	r.Register("Conv", handleConv)
	r.Register("ConvTranspose", handleConvTranspose)
	r.Register("MaxPool", handleMaxPool)
	r.Register("AveragePool", handleAveragePool)
	r.Register("BatchNormalization", handleBatchNorm)
	r.Register("InstanceNormalization", handleInstanceNorm)
	r.Register("Pad", handlePad)
	r.Register("Upsample", handleUpsample)
	r.Register("Resize", handleResize)
	r.Register("LSTM", handleLSTM)
}

// checkAutoPad rejects the padding modes that derive pads from the input.
func checkAutoPad(node *Node) error {
	switch p := GetAttrString(node, "auto_pad", "NOTSET"); p {
	case "NOTSET", "VALID":
		return nil
	default:
		return fmt.Errorf("%s: auto_pad %s is not supported", node.OpType, p)
	}
}

func convParams(node *Node) (tensor.ConvParams, error) {
	if err := checkAutoPad(node); err != nil {
		return tensor.ConvParams{}, err
	}
	return tensor.ConvParams{
		Strides:       intsAttr(node, "strides", nil),
		Pads:          intsAttr(node, "pads", nil),
		Dilations:     intsAttr(node, "dilations", nil),
		Group:         int(GetAttrInt(node, "group", 1)),
		OutputPadding: intsAttr(node, "output_padding", nil),
	}, nil
}

func handleConv(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 2 || len(inputs) > 3 {
		return nil, fmt.Errorf("conv requires 2 or 3 inputs (X, W, B), got %d", len(inputs))
	}
	p, err := convParams(node)
	if err != nil {
		return nil, err
	}
	return one(ctx.Backend.Conv(inputs[0], inputs[1], optInput(inputs, 2), p)), nil
}

func handleConvTranspose(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 2 || len(inputs) > 3 {
		return nil, fmt.Errorf("convTranspose requires 2 or 3 inputs (X, W, B), got %d", len(inputs))
	}
	if node.Attr("output_shape") != nil {
		return nil, fmt.Errorf("convTranspose: output_shape is not supported, use pads and output_padding")
	}
	p, err := convParams(node)
	if err != nil {
		return nil, err
	}
	return one(ctx.Backend.ConvTranspose(inputs[0], inputs[1], optInput(inputs, 2), p)), nil
}

func poolParams(node *Node) (tensor.PoolParams, error) {
	if err := checkAutoPad(node); err != nil {
		return tensor.PoolParams{}, err
	}
	kernel := intsAttr(node, "kernel_shape", nil)
	if len(kernel) == 0 {
		return tensor.PoolParams{}, fmt.Errorf("%s requires kernel_shape", node.OpType)
	}
	return tensor.PoolParams{
		Kernel:          kernel,
		Strides:         intsAttr(node, "strides", nil),
		Pads:            intsAttr(node, "pads", nil),
		Dilations:       intsAttr(node, "dilations", nil),
		CeilMode:        GetAttrInt(node, "ceil_mode", 0) != 0,
		CountIncludePad: GetAttrInt(node, "count_include_pad", 0) != 0,
	}, nil
}

func handleMaxPool(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("maxPool requires 1 input, got %d", len(inputs))
	}
	if len(node.Outputs) > 1 && node.Outputs[1] != "" {
		return nil, fmt.Errorf("maxPool: the Indices output is not supported")
	}
	p, err := poolParams(node)
	if err != nil {
		return nil, err
	}
	return one(ctx.Backend.MaxPool(inputs[0], p)), nil
}

func handleAveragePool(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("averagePool requires 1 input, got %d", len(inputs))
	}
	p, err := poolParams(node)
	if err != nil {
		return nil, err
	}
	return one(ctx.Backend.AveragePool(inputs[0], p)), nil
}

// handleBatchNorm implements inference-mode BatchNormalization; the
// training-only outputs are not produced.
func handleBatchNorm(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 5 {
		return nil, fmt.Errorf("batchNormalization requires 5 inputs (X, scale, B, mean, var), got %d", len(inputs))
	}
	eps := GetAttrFloat(node, "epsilon", 1e-5)
	return one(ctx.Backend.BatchNorm(inputs[0], inputs[1], inputs[2], inputs[3], inputs[4], eps)), nil
}

func handleInstanceNorm(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) != 3 {
		return nil, fmt.Errorf("instanceNormalization requires 3 inputs (X, scale, B), got %d", len(inputs))
	}
	eps := GetAttrFloat(node, "epsilon", 1e-5)
	return one(ctx.Backend.InstanceNorm(inputs[0], inputs[1], inputs[2], eps)), nil
}

// handlePad reads pads and the fill value from attributes before opset 11
// and from inputs afterwards.
func handlePad(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("pad requires at least 1 input")
	}
	mode := tensor.PadMode(GetAttrString(node, "mode", string(tensor.PadConstant)))
	switch mode {
	case tensor.PadConstant, tensor.PadReflect, tensor.PadEdge:
	default:
		return nil, fmt.Errorf("pad: unsupported mode %q", mode)
	}

	var (
		pads  []int
		value float32
	)
	if ctx.Opset >= 11 {
		if len(inputs) < 2 {
			return nil, fmt.Errorf("pad requires the pads input since opset 11")
		}
		pads = inputs[1].Ints()
		value = float32Bound(optInput(inputs, 2), 0)
	} else {
		pads = intsAttr(node, "pads", nil)
		value = GetAttrFloat(node, "value", 0)
	}
	return one(ctx.Backend.Pad(inputs[0], pads, mode, value)), nil
}

// handleUpsample covers Upsample-7 (scales attribute) and Upsample-9
// (scales input). Both use asymmetric coordinates and floor rounding.
func handleUpsample(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("upsample requires at least 1 input")
	}
	var scales []float32
	if t := optInput(inputs, 1); t != nil {
		scales = floats(t)
	} else {
		scales = GetAttrFloats(node, "scales")
	}
	return resizeByScales(ctx, node, inputs[0], scales, "asymmetric", "floor")
}

// handleResize covers Resize-10 (X, scales; Upsample semantics) and
// Resize-11/13 (X, roi, scales, sizes with coordinate modes).
func handleResize(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 1 {
		return nil, fmt.Errorf("resize requires at least 1 input")
	}
	if ctx.Opset < 11 {
		if len(inputs) != 2 {
			return nil, fmt.Errorf("resize-10 requires 2 inputs (X, scales), got %d", len(inputs))
		}
		return resizeByScales(ctx, node, inputs[0], floats(inputs[1]), "asymmetric", "floor")
	}

	coord := GetAttrString(node, "coordinate_transformation_mode", "half_pixel")
	if coord == "tf_crop_and_resize" {
		return nil, fmt.Errorf("resize: coordinate mode %s is not supported", coord)
	}
	nearest := GetAttrString(node, "nearest_mode", "round_prefer_floor")

	x := inputs[0]
	if sizes := optInput(inputs, 3); sizes != nil && sizes.NumElements() > 0 {
		outShape := tensor.Shape(sizes.Ints())
		if len(outShape) != len(x.Shape()) {
			return nil, fmt.Errorf("resize: sizes %v do not match input %v", outShape, x.Shape())
		}
		p, err := resizeParams(node, coord, nearest, nil)
		if err != nil {
			return nil, err
		}
		return one(ctx.Backend.Resize(x, outShape, p)), nil
	}
	scales := optInput(inputs, 2)
	if scales == nil || scales.NumElements() == 0 {
		return nil, fmt.Errorf("resize requires scales or sizes")
	}
	return resizeByScales(ctx, node, x, floats(scales), coord, nearest)
}

func resizeByScales(ctx *Context, node *Node, x *tensor.RawTensor, scales []float32, coord, nearest string) ([]*tensor.RawTensor, error) {
	shape := x.Shape()
	if len(scales) != len(shape) {
		return nil, fmt.Errorf("%s: scales %v do not match input %v", node.OpType, scales, shape)
	}
	outShape := make(tensor.Shape, len(shape))
	for i, s := range scales {
		if s <= 0 {
			return nil, fmt.Errorf("%s: scales must be positive, got %v", node.OpType, scales)
		}
		outShape[i] = int(math.Floor(float64(float32(shape[i]) * s)))
	}
	p, err := resizeParams(node, coord, nearest, scales)
	if err != nil {
		return nil, err
	}
	return one(ctx.Backend.Resize(x, outShape, p)), nil
}

func resizeParams(node *Node, coord, nearest string, scales []float32) (tensor.ResizeParams, error) {
	mode := GetAttrString(node, "mode", "nearest")
	switch mode {
	case "nearest", "linear":
	case "bilinear":
		mode = "linear"
	default:
		return tensor.ResizeParams{}, fmt.Errorf("%s: unsupported mode %q", node.OpType, mode)
	}
	return tensor.ResizeParams{Mode: mode, CoordMode: coord, NearestMode: nearest, Scales: scales}, nil
}

func floats(t *tensor.RawTensor) []float32 {
	out := make([]float32, t.NumElements())
	for i := range out {
		out[i] = float32(t.Float64At(i))
	}
	return out
}

// handleLSTM runs a single-layer LSTM. Outputs are Y, Y_h and Y_c.
func handleLSTM(ctx *Context, node *Node, inputs []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if len(inputs) < 3 {
		return nil, fmt.Errorf("lstm requires at least 3 inputs (X, W, R), got %d", len(inputs))
	}
	if optInput(inputs, 4) != nil {
		return nil, fmt.Errorf("lstm: sequence_lens is not supported")
	}
	if optInput(inputs, 7) != nil {
		return nil, fmt.Errorf("lstm: peephole weights are not supported")
	}
	if GetAttrInt(node, "layout", 0) != 0 {
		return nil, fmt.Errorf("lstm: only layout 0 is supported")
	}
	p := tensor.LSTMParams{
		HiddenSize: int(GetAttrInt(node, "hidden_size", 0)),
		Direction:  GetAttrString(node, "direction", "forward"),
	}
	y, yh, yc := ctx.Backend.LSTM(inputs[0], inputs[1], inputs[2],
		optInput(inputs, 3), optInput(inputs, 5), optInput(inputs, 6), p)
	return []*tensor.RawTensor{y, yh, yc}, nil
}
