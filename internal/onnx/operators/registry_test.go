package operators

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/onnxgen/internal/backend/cpu"
	"github.com/born-ml/onnxgen/internal/tensor"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	ops := []string{
		"Add", "Sub", "Mul", "Div", "Pow", "Max", "Min", "MatMul", "Gemm",
		"Sqrt", "Exp", "Log", "Reciprocal", "Neg", "Abs",
		"Relu", "Sigmoid", "Tanh", "Softplus", "Softmax", "LogSoftmax", "Clip",
		"Identity", "Dropout", "Constant", "ConstantOfShape", "Cast", "Shape",
		"Reshape", "Transpose", "Squeeze", "Unsqueeze", "Concat", "Split",
		"Slice", "Gather", "Flatten", "Expand", "Pad",
		"Conv", "ConvTranspose", "MaxPool", "AveragePool",
		"BatchNormalization", "InstanceNormalization", "Upsample", "Resize",
		"ReduceSum", "ReduceMean", "ReduceMax", "ReduceL2", "LSTM",
	}
	for _, op := range ops {
		_, ok := r.Get(op)
		assert.True(t, ok, "operator %s should be registered", op)
	}
	assert.Len(t, r.SupportedOps(), len(ops))
	assert.True(t, sort.StringsAreSorted(r.SupportedOps()))
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("UnknownOp")
	assert.False(t, ok)

	_, err := r.Execute(newCtx(13), &Node{OpType: "UnknownOp"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported operator")
}

func TestRegisterCustomOp(t *testing.T) {
	r := NewRegistry()
	r.Register("MyCustomOp", func(_ *Context, _ *Node, _ []*tensor.RawTensor) ([]*tensor.RawTensor, error) {
		return nil, nil
	})
	_, ok := r.Get("MyCustomOp")
	assert.True(t, ok)
}

func TestExecuteRecoversKernelPanic(t *testing.T) {
	r := NewRegistry()
	a := f32(t, []float32{1, 2, 3}, 3)
	b := f32(t, []float32{1, 2}, 2)

	_, err := r.Execute(newCtx(9), &Node{OpType: "Add"}, []*tensor.RawTensor{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Add")
}

// Test helpers shared by the operator tests.

func newCtx(opset int64) *Context {
	return &Context{Backend: cpu.New(), Opset: opset}
}

func f32(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromFloat32(data, tensor.Shape(shape))
	require.NoError(t, err)
	return r
}

func ints(vals ...int64) *tensor.RawTensor {
	return tensor.Int64Vector(vals...)
}

func intsAttrOf(name string, vals ...int64) Attribute {
	return Attribute{Name: name, Type: 7, Ints: vals}
}

func intAttrOf(name string, v int64) Attribute {
	return Attribute{Name: name, Type: 2, I: v}
}

func floatAttrOf(name string, v float32) Attribute {
	return Attribute{Name: name, Type: 1, F: v}
}

func strAttrOf(name, v string) Attribute {
	return Attribute{Name: name, Type: 3, S: []byte(v)}
}

func run(t *testing.T, opset int64, node *Node, inputs ...*tensor.RawTensor) []*tensor.RawTensor {
	t.Helper()
	out, err := NewRegistry().Execute(newCtx(opset), node, inputs)
	require.NoError(t, err)
	return out
}
