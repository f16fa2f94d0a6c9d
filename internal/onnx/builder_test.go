package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/onnxgen/internal/backend/cpu"
	"github.com/born-ml/onnxgen/internal/tensor"
)

func sample(t *testing.T, shape ...int) *tensor.RawTensor {
	t.Helper()
	n := tensor.Shape(shape).NumElements()
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(i) - float32(n)/2
	}
	x, err := tensor.FromFloat32(data, tensor.Shape(shape))
	require.NoError(t, err)
	return x
}

func opTypes(m *ModelProto) []string {
	ops := make([]string, len(m.Graph.Nodes))
	for i := range m.Graph.Nodes {
		ops[i] = m.Graph.Nodes[i].OpType
	}
	return ops
}

func TestGraphBuilderNaming(t *testing.T) {
	g := NewGraphBuilder("net", 9, cpu.New())
	x := g.Input("input", sample(t, 1, 4))

	done := g.Scope("layer")
	w := g.Param("weight", sample(t, 4))
	w2 := g.Param("weight", sample(t, 4))
	done()
	assert.Equal(t, "layer.weight", w.Name())
	assert.Equal(t, "layer.weight_1", w2.Name())

	y := g.Op("Mul", []Value{x, w})
	z := g.Op("Relu", []Value{y})
	assert.Equal(t, "1", y.Name())
	assert.Equal(t, "2", z.Name())
	assert.Equal(t, tensor.Shape{1, 4}, z.Shape())
	assert.Equal(t, []float32{4, 1, 0, 1}, z.Tensor().AsFloat32())

	g.Output(z, "output")
	m, err := g.Model(ModelOptions{})
	require.NoError(t, err)

	nodes := m.Graph.Nodes
	require.Len(t, nodes, 2)
	assert.Equal(t, "Mul_0", nodes[0].Name)
	assert.Equal(t, "Relu_1", nodes[1].Name)
	assert.Equal(t, []string{"1"}, nodes[1].Inputs)
	assert.Equal(t, []string{"output"}, nodes[1].Outputs)
	assert.Equal(t, int64(4), m.IRVersion)
	require.NoError(t, CheckModel(m))
}

func TestGraphBuilderOutputRename(t *testing.T) {
	g := NewGraphBuilder("net", 11, cpu.New())
	x := g.Input("input", sample(t, 2))
	y := g.Op("Neg", []Value{x})
	g.Output(y, "first")

	// y was renamed; using the old handle must follow the rename.
	z := g.Op("Abs", []Value{y})
	g.Output(z, "second")
	// Exporting the same value twice needs an Identity.
	g.Output(z, "third")
	// So does exporting an input.
	g.Output(x, "echo")

	m, err := g.Model(ModelOptions{})
	require.NoError(t, err)
	require.NoError(t, CheckModel(m))
	assert.Equal(t, []string{"Neg", "Abs", "Identity", "Identity"}, opTypes(m))
	assert.Equal(t, []string{"first"}, m.Graph.Nodes[1].Inputs)
	assert.Equal(t, []string{"second"}, m.Graph.Nodes[2].Inputs)

	tr, ok := g.Trace("third")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, tr.AsFloat32())
	_, ok = g.Trace("missing")
	assert.False(t, ok)
}

func TestGraphBuilderStickyError(t *testing.T) {
	g := NewGraphBuilder("net", 11, cpu.New())
	x := g.Input("input", sample(t, 2))
	bad := g.Op("Add", []Value{x, g.Input("other", sample(t, 3))})
	assert.False(t, bad.Valid())
	require.Error(t, g.Err())

	after := g.Op("Relu", []Value{x})
	assert.False(t, after.Valid())
	_, err := g.Model(ModelOptions{})
	assert.Equal(t, g.Err(), err)

	g2 := NewGraphBuilder("net", 11, cpu.New())
	g2.Input("input", sample(t, 2))
	g2.Input("input", sample(t, 2))
	assert.ErrorContains(t, g2.Err(), "already used")

	g3 := NewGraphBuilder("net", 11, cpu.New())
	g3.Input("input", sample(t, 2))
	_, err = g3.Model(ModelOptions{})
	assert.ErrorContains(t, err, "no outputs")
}

func TestIRVersionForOpset(t *testing.T) {
	for opset, want := range map[int64]int64{7: 3, 8: 3, 9: 4, 10: 5, 11: 6, 12: 7, 13: 7} {
		assert.Equal(t, want, IRVersionForOpset(opset), "opset %d", opset)
	}
}

// buildWith traces fn at the given opset and returns the checked model.
func buildWith(t *testing.T, opset int64, x *tensor.RawTensor, fn func(g *GraphBuilder, x Value) Value) (*ModelProto, *tensor.RawTensor) {
	t.Helper()
	g := NewGraphBuilder("g", opset, cpu.New())
	g.Output(fn(g, g.Input("input", x)), "output")
	m, err := g.Model(ModelOptions{InitializersAsInputs: true})
	require.NoError(t, err)
	require.NoError(t, CheckModel(m))
	out, _ := g.Trace("output")
	return m, out
}

func TestOpsetForms(t *testing.T) {
	x := sample(t, 1, 2, 2, 3)

	t.Run("slice", func(t *testing.T) {
		fn := func(g *GraphBuilder, x Value) Value { return g.Slice(x, []int{1}, []int{3}, []int{3}, nil) }
		m9, out9 := buildWith(t, 9, x, fn)
		m11, out11 := buildWith(t, 11, x, fn)
		assert.Equal(t, []string{"Slice"}, opTypes(m9))
		assert.Len(t, m9.Graph.Nodes[0].Attributes, 3)
		assert.Equal(t, []string{"Constant", "Constant", "Constant", "Slice"}, opTypes(m11))
		assert.Equal(t, out9.AsFloat32(), out11.AsFloat32())
		assert.Equal(t, tensor.Shape{1, 2, 2, 2}, out11.Shape())
	})

	t.Run("squeeze", func(t *testing.T) {
		fn := func(g *GraphBuilder, x Value) Value { return g.Unsqueeze(g.Squeeze(x, 0), 0) }
		m11, _ := buildWith(t, 11, x, fn)
		m13, out := buildWith(t, 13, x, fn)
		assert.Equal(t, []string{"Squeeze", "Unsqueeze"}, opTypes(m11))
		assert.Equal(t, []string{"Constant", "Squeeze", "Constant", "Unsqueeze"}, opTypes(m13))
		assert.Equal(t, x.Shape(), out.Shape())
	})

	t.Run("resize", func(t *testing.T) {
		fn := func(g *GraphBuilder, x Value) Value {
			return g.Resize(x, ResizeSpec{Mode: "nearest", Scales: []float32{2, 2}})
		}
		m9, out9 := buildWith(t, 9, x, fn)
		m10, out10 := buildWith(t, 10, x, fn)
		m11, out11 := buildWith(t, 11, x, fn)
		m13, out13 := buildWith(t, 13, x, fn)
		assert.Equal(t, "Upsample", m9.Graph.Nodes[1].OpType)
		assert.Equal(t, "Resize", m10.Graph.Nodes[1].OpType)
		assert.Len(t, m11.Graph.Nodes[2].Inputs, 3)
		assert.Equal(t, "", m13.Graph.Nodes[1].Inputs[1])
		for _, out := range []*tensor.RawTensor{out10, out11, out13} {
			assert.Equal(t, out9.AsFloat32(), out.AsFloat32())
		}
		assert.Equal(t, tensor.Shape{1, 2, 4, 6}, out9.Shape())
	})

	t.Run("resize sizes from graph", func(t *testing.T) {
		fn := func(g *GraphBuilder, x Value) Value {
			hw := g.Slice(g.Shape(x), []int{2}, []int{4}, []int{0}, nil)
			sizes := g.Op("Mul", []Value{hw, g.ConstInts(2)})
			return g.Resize(x, ResizeSpec{Mode: "linear", SizesFrom: sizes, AlignCorners: true})
		}
		_, out := buildWith(t, 11, x, fn)
		assert.Equal(t, tensor.Shape{1, 2, 4, 6}, out.Shape())
		data := out.AsFloat32()
		assert.Equal(t, x.AsFloat32()[0], data[0])
		assert.Equal(t, x.AsFloat32()[5], data[23])
	})

	t.Run("softmax axis", func(t *testing.T) {
		fn := func(g *GraphBuilder, x Value) Value { return g.Softmax(x, 1, false) }
		m9, out9 := buildWith(t, 9, x, fn)
		m13, out13 := buildWith(t, 13, x, fn)
		assert.Equal(t, []string{"Transpose", "Softmax", "Transpose"}, opTypes(m9))
		assert.Equal(t, []string{"Softmax"}, opTypes(m13))
		assert.InDeltaSlice(t, out13.AsFloat32(), out9.AsFloat32(), 1e-6)
	})

	t.Run("clip", func(t *testing.T) {
		fn := func(g *GraphBuilder, x Value) Value { return g.Clip(x, 0, 6) }
		m9, out9 := buildWith(t, 9, x, fn)
		m11, out11 := buildWith(t, 11, x, fn)
		assert.Len(t, m9.Graph.Nodes[0].Attributes, 2)
		assert.Equal(t, []string{"Constant", "Constant", "Clip"}, opTypes(m11))
		assert.Equal(t, out9.AsFloat32(), out11.AsFloat32())
	})

	t.Run("reduce sum", func(t *testing.T) {
		fn := func(g *GraphBuilder, x Value) Value { return g.Reduce("ReduceSum", x, []int{1}, false) }
		m11, out11 := buildWith(t, 11, x, fn)
		m13, out13 := buildWith(t, 13, x, fn)
		assert.Equal(t, []string{"ReduceSum"}, opTypes(m11))
		assert.Equal(t, []string{"Constant", "ReduceSum"}, opTypes(m13))
		assert.Equal(t, out11.AsFloat32(), out13.AsFloat32())
		assert.Equal(t, tensor.Shape{1, 2, 3}, out13.Shape())
	})

	t.Run("split", func(t *testing.T) {
		fn := func(g *GraphBuilder, x Value) Value {
			parts := g.Split(x, 3, 1, 2)
			return g.Concat(3, parts[1], parts[0])
		}
		_, out11 := buildWith(t, 11, x, fn)
		_, out13 := buildWith(t, 13, x, fn)
		assert.Equal(t, out11.AsFloat32(), out13.AsFloat32())
		assert.Equal(t, x.AsFloat32()[1], out13.AsFloat32()[0])
	})

	t.Run("pad", func(t *testing.T) {
		fn := func(g *GraphBuilder, x Value) Value {
			return g.Pad(x, []int{0, 0, 1, 1, 0, 0, 1, 1}, tensor.PadReflect, 0)
		}
		_, out9 := buildWith(t, 9, x, fn)
		_, out11 := buildWith(t, 11, x, fn)
		assert.Equal(t, out9.AsFloat32(), out11.AsFloat32())
		assert.Equal(t, tensor.Shape{1, 2, 4, 5}, out11.Shape())
	})
}

func TestOpsetLimits(t *testing.T) {
	x := sample(t, 1, 1, 2, 2)
	g := NewGraphBuilder("g", 9, cpu.New())
	in := g.Input("input", x)
	g.Slice(in, []int{0}, []int{2}, []int{2}, []int{2})
	assert.ErrorContains(t, g.Err(), "steps need opset 10")

	g = NewGraphBuilder("g", 10, cpu.New())
	in = g.Input("input", x)
	g.Resize(in, ResizeSpec{Mode: "linear", Scales: []float32{2, 2}, AlignCorners: true})
	assert.ErrorContains(t, g.Err(), "align_corners needs opset 11")
}

func TestGraphBuilderSharedParam(t *testing.T) {
	g := NewGraphBuilder("net", 9, cpu.New())
	w := sample(t, 2)
	a := g.Param("weight", w)
	b := g.Param("weight", w)
	assert.Equal(t, a.Name(), b.Name())

	x := g.Input("input", sample(t, 2))
	g.Output(g.Op("Mul", []Value{g.Op("Mul", []Value{x, a}), b}), "output")
	m, err := g.Model(ModelOptions{})
	require.NoError(t, err)
	assert.Len(t, m.Graph.Initializers, 1)
}
