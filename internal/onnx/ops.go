package onnx

import (
	"fmt"
	"math"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// Helpers for ops whose signature depends on the opset. Each emits the
// form that is legal for the builder's opset.

// Slice emits Slice with attributes before opset 10 and constant inputs
// afterwards. Nil axes means the leading axes; steps other than 1 need
// opset 10.
func (g *GraphBuilder) Slice(x Value, starts, ends, axes, steps []int) Value {
	if g.opset < 10 {
		for _, s := range steps {
			if s != 1 {
				return g.fail(fmt.Errorf("slice: steps need opset 10, have %d", g.opset))
			}
		}
		attrs := []AttributeProto{AttrInts("starts", starts...), AttrInts("ends", ends...)}
		if axes != nil {
			attrs = append(attrs, AttrInts("axes", axes...))
		}
		return g.Op("Slice", []Value{x}, attrs...)
	}
	inputs := []Value{x, g.ConstInts(starts...), g.ConstInts(ends...)}
	if axes != nil || steps != nil {
		if axes == nil {
			axes = make([]int, len(starts))
			for i := range axes {
				axes[i] = i
			}
		}
		inputs = append(inputs, g.ConstInts(axes...))
	}
	if steps != nil {
		inputs = append(inputs, g.ConstInts(steps...))
	}
	return g.Op("Slice", inputs)
}

// Squeeze removes the given unit axes, or every unit axis when none are given.
func (g *GraphBuilder) Squeeze(x Value, axes ...int) Value {
	if len(axes) == 0 {
		return g.Op("Squeeze", []Value{x})
	}
	if g.opset < 13 {
		return g.Op("Squeeze", []Value{x}, AttrInts("axes", axes...))
	}
	return g.Op("Squeeze", []Value{x, g.ConstInts(axes...)})
}

// Unsqueeze inserts unit axes at the given output positions.
func (g *GraphBuilder) Unsqueeze(x Value, axes ...int) Value {
	if g.opset < 13 {
		return g.Op("Unsqueeze", []Value{x}, AttrInts("axes", axes...))
	}
	return g.Op("Unsqueeze", []Value{x, g.ConstInts(axes...)})
}

// Split cuts x along axis into parts of the given sizes.
func (g *GraphBuilder) Split(x Value, axis int, sizes ...int) []Value {
	if g.opset < 13 {
		return g.OpN("Split", []Value{x}, len(sizes), AttrInt("axis", axis), AttrInts("split", sizes...))
	}
	return g.OpN("Split", []Value{x, g.ConstInts(sizes...)}, len(sizes), AttrInt("axis", axis))
}

// Clip limits x to [lo, hi]. Infinite bounds are left out.
func (g *GraphBuilder) Clip(x Value, lo, hi float32) Value {
	loSet, hiSet := !math.IsInf(float64(lo), -1), !math.IsInf(float64(hi), 1)
	if g.opset < 11 {
		var attrs []AttributeProto
		if loSet {
			attrs = append(attrs, AttrFloat("min", lo))
		}
		if hiSet {
			attrs = append(attrs, AttrFloat("max", hi))
		}
		return g.Op("Clip", []Value{x}, attrs...)
	}
	var minV, maxV Value
	if loSet {
		minV = g.ConstScalar(lo)
	}
	if hiSet {
		maxV = g.ConstScalar(hi)
	}
	return g.Op("Clip", []Value{x, minV, maxV})
}

// Pad pads every axis of x. Pads lists all begin amounts then all end amounts.
func (g *GraphBuilder) Pad(x Value, pads []int, mode tensor.PadMode, value float32) Value {
	if g.opset < 11 {
		attrs := []AttributeProto{AttrString("mode", string(mode)), AttrInts("pads", pads...)}
		if mode == tensor.PadConstant {
			attrs = append(attrs, AttrFloat("value", value))
		}
		return g.Op("Pad", []Value{x}, attrs...)
	}
	return g.PadDynamic(x, g.ConstInts(pads...), mode, value)
}

// PadDynamic pads with pad amounts computed in the graph (opset 11+).
func (g *GraphBuilder) PadDynamic(x, pads Value, mode tensor.PadMode, value float32) Value {
	if g.opset < 11 {
		return g.fail(fmt.Errorf("pad: computed pads need opset 11, have %d", g.opset))
	}
	inputs := []Value{x, pads}
	if mode == tensor.PadConstant {
		inputs = append(inputs, g.ConstScalar(value))
	}
	return g.Op("Pad", inputs, AttrString("mode", string(mode)))
}

// ResizeSpec describes a spatial resize of an NC... tensor. Exactly one of
// Scales, Sizes and SizesFrom is set; all of them cover the spatial axes
// only.
type ResizeSpec struct {
	Mode         string    // "nearest" or "linear"
	Scales       []float32 // scale per spatial axis
	Sizes        []int     // output size per spatial axis
	SizesFrom    Value     // int64 output sizes computed in the graph
	AlignCorners bool      // linear only, opset 11+
}

// Resize emits Upsample (opset 9), Resize-10 or Resize-11+ for spec.
//
//nolint:gocyclo,cyclop // one branch per opset form
func (g *GraphBuilder) Resize(x Value, spec ResizeSpec) Value {
	if g.err != nil {
		return Value{}
	}
	if spec.Mode != "nearest" && spec.Mode != "linear" {
		return g.fail(fmt.Errorf("resize: unsupported mode %q", spec.Mode))
	}
	shape := x.Shape()
	spatial := len(shape) - 2
	if spatial < 1 {
		return g.fail(fmt.Errorf("resize: input %v has no spatial axes", shape))
	}

	if g.opset < 11 {
		if spec.AlignCorners {
			return g.fail(fmt.Errorf("resize: align_corners needs opset 11, have %d", g.opset))
		}
		var scales Value
		switch {
		case spec.Scales != nil:
			scales = g.ConstFloats(append([]float32{1, 1}, spec.Scales...)...)
		case spec.Sizes != nil:
			full := []float32{1, 1}
			for i, s := range spec.Sizes {
				full = append(full, float32(s)/float32(shape[i+2]))
			}
			scales = g.ConstFloats(full...)
		default:
			in := g.Cast(g.Slice(g.Shape(x), []int{2}, []int{math.MaxInt64}, []int{0}, nil), tensor.Float32)
			ratio := g.Op("Div", []Value{g.Cast(spec.SizesFrom, tensor.Float32), in})
			scales = g.Concat(0, g.ConstFloats(1, 1), ratio)
		}
		opType := "Upsample"
		if g.opset == 10 {
			opType = "Resize"
		}
		return g.Op(opType, []Value{x, scales}, AttrString("mode", spec.Mode))
	}

	attrs := []AttributeProto{AttrString("mode", spec.Mode)}
	switch {
	case spec.Mode == "nearest":
		attrs = append(attrs,
			AttrString("coordinate_transformation_mode", "asymmetric"),
			AttrString("nearest_mode", "floor"))
	case spec.AlignCorners:
		attrs = append(attrs, AttrString("coordinate_transformation_mode", "align_corners"))
	default:
		attrs = append(attrs, AttrString("coordinate_transformation_mode", "pytorch_half_pixel"))
	}

	var roi Value
	if g.opset < 13 {
		roi = g.ConstFloats()
	}
	switch {
	case spec.Scales != nil:
		scales := g.ConstFloats(append([]float32{1, 1}, spec.Scales...)...)
		return g.Op("Resize", []Value{x, roi, scales}, attrs...)
	case spec.Sizes != nil:
		sizes := g.ConstInts(append([]int{shape[0], shape[1]}, spec.Sizes...)...)
		return g.Op("Resize", []Value{x, roi, g.emptyScales(), sizes}, attrs...)
	default:
		lead := g.Slice(g.Shape(x), []int{0}, []int{2}, []int{0}, nil)
		sizes := g.Concat(0, lead, spec.SizesFrom)
		return g.Op("Resize", []Value{x, roi, g.emptyScales(), sizes}, attrs...)
	}
}

// emptyScales is the placeholder for an unused scales input: an empty
// tensor for Resize-11, a skipped input from opset 13.
func (g *GraphBuilder) emptyScales() Value {
	if g.opset < 13 {
		return g.ConstFloats()
	}
	return Value{}
}

// Reduce emits ReduceSum/ReduceMean/ReduceMax/ReduceL2. ReduceSum takes
// axes as an input from opset 13.
func (g *GraphBuilder) Reduce(opType string, x Value, axes []int, keepDims bool) Value {
	keep := 0
	if keepDims {
		keep = 1
	}
	if opType == "ReduceSum" && g.opset >= 13 {
		inputs := []Value{x}
		if len(axes) > 0 {
			inputs = append(inputs, g.ConstInts(axes...))
		}
		return g.Op(opType, inputs, AttrInt("keepdims", keep))
	}
	attrs := []AttributeProto{AttrInt("keepdims", keep)}
	if len(axes) > 0 {
		attrs = append([]AttributeProto{AttrInts("axes", axes...)}, attrs...)
	}
	return g.Op(opType, []Value{x}, attrs...)
}

// Softmax normalizes x along axis. Before opset 13 Softmax works on the
// flattened trailing block, so a non-last axis is moved to the end first.
func (g *GraphBuilder) Softmax(x Value, axis int, logarithm bool) Value {
	opType := "Softmax"
	if logarithm {
		opType = "LogSoftmax"
	}
	rank := x.Rank()
	ax, err := tensor.NormalizeAxis(axis, rank)
	if err != nil {
		return g.fail(fmt.Errorf("%s: %w", opType, err))
	}
	if g.opset >= 13 || ax == rank-1 {
		return g.Op(opType, []Value{x}, AttrInt("axis", ax))
	}
	perm := make([]int, rank)
	for i := range perm {
		perm[i] = i
	}
	perm[ax], perm[rank-1] = rank-1, ax
	y := g.Op(opType, []Value{g.Transpose(x, perm...)}, AttrInt("axis", rank-1))
	return g.Transpose(y, perm...)
}

// Shape emits Shape.
func (g *GraphBuilder) Shape(x Value) Value {
	return g.Op("Shape", []Value{x})
}

// Cast emits Cast to dtype.
func (g *GraphBuilder) Cast(x Value, dtype tensor.DataType) Value {
	return g.Op("Cast", []Value{x}, AttrInt("to", int(ProtoDataType(dtype))))
}

// Concat joins values along axis.
func (g *GraphBuilder) Concat(axis int, vals ...Value) Value {
	return g.Op("Concat", vals, AttrInt("axis", axis))
}

// Transpose permutes the axes of x; no perm reverses them.
func (g *GraphBuilder) Transpose(x Value, perm ...int) Value {
	if len(perm) == 0 {
		return g.Op("Transpose", []Value{x})
	}
	return g.Op("Transpose", []Value{x}, AttrInts("perm", perm...))
}

// Reshape reshapes x to a constant target shape (-1 and 0 allowed).
func (g *GraphBuilder) Reshape(x Value, shape ...int) Value {
	return g.Op("Reshape", []Value{x, g.ConstInts(shape...)})
}

// Gather picks index along axis; a scalar index drops the axis.
func (g *GraphBuilder) Gather(x Value, index, axis int) Value {
	idx, err := tensor.FromInt64([]int64{int64(index)}, tensor.Shape{})
	if err != nil {
		return g.fail(err)
	}
	return g.Op("Gather", []Value{x, g.Constant(idx)}, AttrInt("axis", axis))
}

// Expand broadcasts x to shape.
func (g *GraphBuilder) Expand(x Value, shape ...int) Value {
	return g.Op("Expand", []Value{x, g.ConstInts(shape...)})
}
