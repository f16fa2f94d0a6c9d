package onnx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/onnxgen/internal/backend/cpu"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// convReluModel is a small valid model: relu(conv(x, w, b)).
func convReluModel(t *testing.T, opset int64) *ModelProto {
	t.Helper()
	g := NewGraphBuilder("conv_relu", opset, cpu.New())
	x := g.Input("input", sample(t, 1, 1, 4, 4))
	defer g.Scope("conv")()
	y := g.Op("Conv", []Value{x, g.Param("weight", sample(t, 2, 1, 3, 3)), g.Param("bias", sample(t, 2))},
		AttrInts("kernel_shape", 3, 3), AttrInts("pads", 1, 1, 1, 1))
	g.Output(g.Op("Relu", []Value{y}), "output")
	m, err := g.Model(ModelOptions{InitializersAsInputs: true})
	require.NoError(t, err)
	return m
}

func TestCheckModelValid(t *testing.T) {
	for opset := int64(MinOpset); opset <= MaxOpset; opset++ {
		assert.NoError(t, CheckModel(convReluModel(t, opset)), "opset %d", opset)
	}
}

func TestCheckModelErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *ModelProto)
		want   error
	}{
		{"ir version", func(m *ModelProto) { m.IRVersion = 2 }, ErrIRVersion},
		{"opset too new", func(m *ModelProto) { m.OpsetImport[0].Version = 14 }, ErrOpset},
		{"no opset", func(m *ModelProto) { m.OpsetImport = nil }, ErrOpset},
		{"foreign domain", func(m *ModelProto) {
			m.OpsetImport = append(m.OpsetImport, OperatorSetID{Domain: "com.example", Version: 1})
		}, ErrOpset},
		{"graph name", func(m *ModelProto) { m.Graph.Name = "" }, ErrGraphName},
		{"unknown op", func(m *ModelProto) { m.Graph.Nodes[1].OpType = "Gelu" }, ErrUnknownOp},
		{"arity", func(m *ModelProto) { m.Graph.Nodes[1].Inputs = append(m.Graph.Nodes[1].Inputs, "input") }, ErrNodeArity},
		{"unknown attribute", func(m *ModelProto) {
			m.Graph.Nodes[0].Attributes = append(m.Graph.Nodes[0].Attributes, AttrInt("bogus", 1))
		}, ErrAttribute},
		{"attribute type", func(m *ModelProto) { m.Graph.Nodes[0].Attributes[0] = AttrInt("kernel_shape", 3) }, ErrAttribute},
		{"duplicate output", func(m *ModelProto) { m.Graph.Nodes[0].Outputs[0] = "input" }, ErrDuplicateValue},
		{"undefined input", func(m *ModelProto) { m.Graph.Nodes[1].Inputs[0] = "nowhere" }, ErrUndefinedValue},
		{"out of order", func(m *ModelProto) {
			m.Graph.Nodes[0], m.Graph.Nodes[1] = m.Graph.Nodes[1], m.Graph.Nodes[0]
		}, ErrUndefinedValue},
		{"missing output", func(m *ModelProto) { m.Graph.Outputs[0].Name = "other" }, ErrMissingOutput},
		{"untyped value", func(m *ModelProto) { m.Graph.Inputs[0].Type = nil }, ErrValueType},
		{"negative dim", func(m *ModelProto) { m.Graph.Inputs[0].Type.TensorType.Shape.Dims[0].DimValue = -1 }, ErrDimension},
		{"initializer size", func(m *ModelProto) { m.Graph.Initializers[0].RawData = m.Graph.Initializers[0].RawData[4:] }, ErrInitializer},
		{"undeclared initializer", func(m *ModelProto) {
			m.IRVersion = 3
			m.Graph.Inputs = m.Graph.Inputs[:1]
		}, ErrInitializerDecl},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := convReluModel(t, 11)
			tt.mutate(m)
			err := CheckModel(m)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var ce *CheckError
			assert.True(t, errors.As(err, &ce))
		})
	}
}

func TestCheckModelOpsetForms(t *testing.T) {
	x := ValueInfoFor("x", sample(t, 1, 2, 4, 4))
	scales := TensorToProto("scales", tensor.Scalar(2))

	model := func(opset int64, node NodeProto) *ModelProto {
		node.Outputs = []string{"y"}
		return &ModelProto{
			IRVersion:   7,
			OpsetImport: []OperatorSetID{{Version: opset}},
			Graph: &GraphProto{
				Name:         "g",
				Nodes:        []NodeProto{node},
				Inputs:       []ValueInfoProto{x},
				Initializers: []TensorProto{scales},
				Outputs:      []ValueInfoProto{ValueInfoFor("y", sample(t, 1))},
			},
		}
	}

	upsample := NodeProto{OpType: "Upsample", Inputs: []string{"x", "scales"}, Attributes: []AttributeProto{AttrString("mode", "nearest")}}
	assert.NoError(t, CheckModel(model(9, upsample)))
	assert.ErrorContains(t, CheckModel(model(10, upsample)), "deprecated since opset 10")
	assert.ErrorContains(t, CheckModel(model(8, upsample)), "Upsample-7 takes 1 inputs")

	sliceAttrs := NodeProto{OpType: "Slice", Inputs: []string{"x"}, Attributes: []AttributeProto{
		AttrInts("starts", 0), AttrInts("ends", 1),
	}}
	assert.NoError(t, CheckModel(model(9, sliceAttrs)))
	assert.ErrorIs(t, CheckModel(model(10, sliceAttrs)), ErrNodeArity)

	missingAttr := NodeProto{OpType: "Slice", Inputs: []string{"x"}, Attributes: []AttributeProto{AttrInts("starts", 0)}}
	assert.ErrorContains(t, CheckModel(model(9, missingAttr)), `missing required attribute "ends"`)

	resize := NodeProto{OpType: "Resize", Inputs: []string{"x", "", "scales"}}
	assert.ErrorContains(t, CheckModel(model(11, resize)), "required input 1 is empty")
	assert.NoError(t, CheckModel(model(13, resize)))

	constant := NodeProto{OpType: "Constant", Attributes: []AttributeProto{AttrFloat("value_float", 1)}}
	assert.ErrorIs(t, CheckModel(model(11, constant)), ErrAttribute)
	assert.NoError(t, CheckModel(model(12, constant)))
	constant.Attributes = append(constant.Attributes, AttrInt("value_int", 1))
	assert.ErrorContains(t, CheckModel(model(13, constant)), "exactly one value attribute")
}
