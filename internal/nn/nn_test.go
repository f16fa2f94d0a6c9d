package nn_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/onnxgen/internal/backend/cpu"
	"github.com/born-ml/onnxgen/internal/nn"
	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/random"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// export builds m over input at opset and returns the traced output and
// the checked model.
func export(t *testing.T, m nn.Module, input *tensor.RawTensor, opset int64) (onnx.Value, *onnx.ModelProto) {
	t.Helper()
	g := onnx.NewGraphBuilder("test", opset, cpu.New())
	y := m.Build(g, g.Input("input", input))
	require.NoError(t, g.Err())
	g.Output(y, "output")
	model, err := g.Model(onnx.ModelOptions{})
	require.NoError(t, err)
	require.NoError(t, onnx.CheckModel(model))
	return y, model
}

func opTypes(m *onnx.ModelProto) []string {
	var ops []string
	for i := range m.Graph.Nodes {
		if op := m.Graph.Nodes[i].OpType; op != "Constant" {
			ops = append(ops, op)
		}
	}
	return ops
}

func initNames(m *onnx.ModelProto) []string {
	var names []string
	for i := range m.Graph.Initializers {
		names = append(names, m.Graph.Initializers[i].Name)
	}
	return names
}

func attr(n *onnx.NodeProto, name string) *onnx.AttributeProto {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i]
		}
	}
	return nil
}

func TestKaimingUniformBound(t *testing.T) {
	w := nn.KaimingUniform(random.New(0), 16, 8, 16)
	assert.Equal(t, tensor.Shape{8, 16}, w.Shape())
	for _, v := range w.AsFloat32() {
		assert.LessOrEqual(t, math.Abs(float64(v)), 0.25)
	}
}

func TestSequentialScopes(t *testing.T) {
	src := random.New(0)
	model := nn.NewSequential(
		nn.NewConv2d(src, 3, 6, nn.ConvConfig{Kernel: []int{5}}),
		nn.NewReLU(),
		nn.NewMaxPool2d(nn.PoolConfig{Kernel: []int{2}}),
		nn.NewConv2d(src, 6, 4, nn.ConvConfig{Kernel: []int{3}, NoBias: true}),
	)
	assert.Len(t, model.Parameters(), 3)

	y, m := export(t, model, src.Randn(1, 3, 16, 16), 9)
	assert.Equal(t, tensor.Shape{1, 4, 4, 4}, y.Shape())
	assert.Equal(t, []string{"Conv", "Relu", "MaxPool", "Conv"}, opTypes(m))
	assert.Equal(t, []string{"0.weight", "0.bias", "3.weight"}, initNames(m))
	assert.Equal(t, "0", m.Graph.Nodes[0].DocString)
}

func TestLinearExport(t *testing.T) {
	src := random.New(1)
	lin := nn.NewLinear(src, 3, 4, true)

	y, m := export(t, lin, src.Randn(2, 3), 9)
	assert.Equal(t, tensor.Shape{2, 4}, y.Shape())
	assert.Equal(t, []string{"Gemm"}, opTypes(m))
	assert.Equal(t, int64(1), attr(&m.Graph.Nodes[0], "transB").I)

	x := src.Randn(1, 2, 3)
	y, m = export(t, lin, x, 9)
	assert.Equal(t, tensor.Shape{1, 2, 4}, y.Shape())
	assert.Equal(t, []string{"Transpose", "MatMul", "Add"}, opTypes(m))

	w, b := lin.Weight().Tensor().AsFloat32(), lin.Bias().Tensor().AsFloat32()
	xv, yv := x.AsFloat32(), y.Tensor().AsFloat32()
	for r := 0; r < 2; r++ {
		for o := 0; o < 4; o++ {
			want := b[o]
			for i := 0; i < 3; i++ {
				want += xv[r*3+i] * w[o*3+i]
			}
			assert.InDelta(t, want, yv[r*4+o], 1e-5)
		}
	}
}

func TestLinearWithoutBias(t *testing.T) {
	src := random.New(2)
	lin := nn.NewLinear(src, 2, 2, false)
	assert.Nil(t, lin.Bias())
	_, m := export(t, lin, src.Randn(3, 2), 9)
	assert.Equal(t, []string{"Transpose", "MatMul"}, opTypes(m))
}

func TestSharedLayer(t *testing.T) {
	src := random.New(3)
	lin := nn.NewLinear(src, 2, 2, true)
	model := nn.NewFunc(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		a := nn.Call(g, "squeeze1", lin, x)
		b := nn.Call(g, "squeeze1", lin, a)
		return g.Op("Mul", []onnx.Value{a, b})
	}, lin)
	assert.Len(t, model.Parameters(), 2)

	_, m := export(t, model, src.Randn(2, 2), 9)
	assert.Equal(t, []string{"squeeze1.weight", "squeeze1.bias"}, initNames(m))
	assert.Equal(t, []string{"Gemm", "Gemm", "Mul"}, opTypes(m))
}

func TestConvGeometry(t *testing.T) {
	src := random.New(4)
	tests := []struct {
		name  string
		layer nn.Module
		input tensor.Shape
		want  tensor.Shape
	}{
		{"conv2d", nn.NewConv2d(src, 3, 5, nn.ConvConfig{Kernel: []int{5}, Stride: []int{2}, Padding: []int{1}}),
			tensor.Shape{1, 3, 10, 10}, tensor.Shape{1, 5, 4, 4}},
		{"deconv2d", nn.NewConvTranspose2d(src, 3, 5, nn.ConvConfig{Kernel: []int{5}, Stride: []int{2}, Padding: []int{1}}),
			tensor.Shape{1, 3, 10, 10}, tensor.Shape{1, 5, 21, 21}},
		{"deconv adjpad", nn.NewConvTranspose2d(src, 2, 3, nn.ConvConfig{
			Kernel: []int{3, 2}, Stride: []int{1, 2}, Padding: []int{1, 2}, OutputPadding: []int{0, 1},
		}), tensor.Shape{1, 2, 4, 5}, tensor.Shape{1, 3, 4, 7}},
		{"conv3d", nn.NewConv3d(src, 2, 3, nn.ConvConfig{
			Kernel: []int{2, 3, 3}, Stride: []int{1, 2, 3}, Padding: []int{0, 1, 2}, Dilation: []int{1, 2, 3},
		}), tensor.Shape{1, 2, 3, 4, 5}, tensor.Shape{1, 3, 2, 1, 1}},
		{"conv1d", nn.NewConv1d(src, 3, 2, nn.ConvConfig{
			Kernel: []int{3}, Stride: []int{2}, Padding: []int{2}, Dilation: []int{2}, NoBias: true,
		}), tensor.Shape{1, 3, 25}, tensor.Shape{1, 2, 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, _ := export(t, tt.layer, src.Randn(tt.input...), 9)
			assert.Equal(t, tt.want, y.Shape())
		})
	}
}

func TestConvAttributes(t *testing.T) {
	src := random.New(5)
	conv := nn.NewConv2d(src, 3, 6, nn.ConvConfig{Kernel: []int{5, 3}, Padding: []int{1}})
	assert.Equal(t, tensor.Shape{6, 3, 5, 3}, conv.Weight().Tensor().Shape())
	_, m := export(t, conv, src.Randn(1, 3, 10, 20), 9)
	n := &m.Graph.Nodes[0]
	assert.Equal(t, []int64{1, 1, 1, 1}, attr(n, "pads").Ints)
	assert.Equal(t, []int64{5, 3}, attr(n, "kernel_shape").Ints)
	assert.Equal(t, []int64{1, 1}, attr(n, "strides").Ints)
	assert.Equal(t, int64(1), attr(n, "group").I)
}

func TestPoolOpsetForms(t *testing.T) {
	src := random.New(6)
	pool := nn.NewMaxPool2d(nn.PoolConfig{Kernel: []int{5, 3}, Stride: []int{3}, Padding: []int{1}})
	x := src.Randn(1, 3, 10, 9)

	y, m := export(t, pool, x, 9)
	assert.Equal(t, tensor.Shape{1, 3, 3, 3}, y.Shape())
	assert.Nil(t, attr(&m.Graph.Nodes[0], "ceil_mode"))

	_, m = export(t, pool, x, 10)
	assert.Equal(t, int64(0), attr(&m.Graph.Nodes[0], "ceil_mode").I)

	g := onnx.NewGraphBuilder("test", 9, cpu.New())
	nn.NewMaxPool2d(nn.PoolConfig{Kernel: []int{2}, CeilMode: true}).Build(g, g.Input("input", x))
	assert.ErrorContains(t, g.Err(), "ceil_mode needs opset 10")
}

func TestAvgPool(t *testing.T) {
	src := random.New(7)
	pool := nn.NewAvgPool2d(nn.PoolConfig{Kernel: []int{3}, Stride: []int{2}, Padding: []int{1}})
	y, m := export(t, pool, src.Randn(1, 3, 7, 5), 9)
	assert.Equal(t, tensor.Shape{1, 3, 4, 3}, y.Shape())
	assert.Equal(t, int64(1), attr(&m.Graph.Nodes[0], "count_include_pad").I)

	g := onnx.NewGraphBuilder("test", 9, cpu.New())
	pool.Build(g, g.Input("input", src.Randn(1, 3, 7)))
	assert.ErrorContains(t, g.Err(), "expected 4-d input")
}

func TestBatchNormIsNearIdentity(t *testing.T) {
	bn := nn.NewBatchNorm(4)
	x := random.New(8).Randn(2, 4, 2, 3)
	y, m := export(t, bn, x, 9)
	assert.Equal(t, []string{"weight", "bias", "running_mean", "running_var"}, initNames(m))
	scale := 1 / math.Sqrt(1+1e-5)
	for i, v := range x.AsFloat32() {
		assert.InDelta(t, float64(v)*scale, y.Tensor().AsFloat32()[i], 1e-5)
	}
}

func TestInstanceNorm(t *testing.T) {
	x := random.New(9).Rand(1, 3, 4, 4)
	y, m := export(t, nn.NewInstanceNorm(3, true), x, 9)
	assert.Len(t, m.Graph.Initializers, 2)
	out := y.Tensor().AsFloat32()
	for c := 0; c < 3; c++ {
		var sum float64
		for _, v := range out[c*16 : (c+1)*16] {
			sum += float64(v)
		}
		assert.InDelta(t, 0, sum/16, 1e-5)
	}

	_, m = export(t, nn.NewInstanceNorm(3, false), x, 9)
	assert.Empty(t, m.Graph.Initializers)
}

func TestPadding(t *testing.T) {
	x := random.New(10).Randn(1, 2, 3, 4)
	y, m := export(t, nn.NewZeroPad2d(4, 3, 2, 1), x, 9)
	assert.Equal(t, tensor.Shape{1, 2, 6, 11}, y.Shape())
	assert.Equal(t, []int64{0, 0, 2, 4, 0, 0, 1, 3}, attr(&m.Graph.Nodes[0], "pads").Ints)

	y, m = export(t, nn.NewReflectionPad2d(1), x, 11)
	assert.Equal(t, tensor.Shape{1, 2, 5, 6}, y.Shape())
	assert.Equal(t, "reflect", string(attr(&m.Graph.Nodes[len(m.Graph.Nodes)-1], "mode").S))
	// Reflection mirrors around the edge: column 0 of the output is column 1 of the input.
	assert.Equal(t, x.AsFloat32()[1], y.Tensor().AsFloat32()[6+0])
}

func TestUpsampleOpsetForms(t *testing.T) {
	x := random.New(11).Randn(1, 2, 3, 4)
	up := nn.NewUpsample(nn.UpsampleConfig{Mode: "nearest", Scale: []float32{2}})

	y, m := export(t, up, x, 9)
	assert.Equal(t, tensor.Shape{1, 2, 6, 8}, y.Shape())
	assert.Equal(t, []string{"Upsample"}, opTypes(m))

	_, m = export(t, up, x, 11)
	assert.Equal(t, []string{"Resize"}, opTypes(m))

	bilinear := nn.NewUpsample(nn.UpsampleConfig{Mode: "bilinear", Size: []int{6, 8}})
	y, _ = export(t, bilinear, x, 9)
	assert.Equal(t, tensor.Shape{1, 2, 6, 8}, y.Shape())

	assert.Panics(t, func() { nn.NewUpsample(nn.UpsampleConfig{Mode: "nearest"}) })
}

func TestActivations(t *testing.T) {
	x := random.New(12).Randn(2, 3)
	y, _ := export(t, nn.NewReLU(), x, 9)
	for _, v := range y.Tensor().AsFloat32() {
		assert.GreaterOrEqual(t, v, float32(0))
	}

	y, _ = export(t, nn.NewSoftmax(-1), x, 9)
	out := y.Tensor().AsFloat32()
	for r := 0; r < 2; r++ {
		assert.InDelta(t, 1, out[r*3]+out[r*3+1]+out[r*3+2], 1e-5)
	}

	y, m := export(t, nn.NewDropout(0.5), x, 9)
	assert.Equal(t, x.AsFloat32(), y.Tensor().AsFloat32())
	assert.Equal(t, []string{"Dropout"}, opTypes(m))
	_, m = export(t, nn.NewDropout(0.5), x, 12)
	assert.Empty(t, m.Graph.Nodes[0].Attributes)
}

func TestLSTM(t *testing.T) {
	src := random.New(13)
	x := src.Randn(2, 5, 4)

	lstm := nn.NewLSTM(src, 4, 3, false)
	assert.Len(t, lstm.Parameters(), 4)
	y, m := export(t, lstm, x, 9)
	assert.Equal(t, tensor.Shape{2, 5, 3}, y.Shape())
	assert.Equal(t, []string{"LSTM", "Squeeze"}, opTypes(m))
	assert.Equal(t, []string{"W", "R", "B"}, initNames(m))
	assert.Equal(t, []int64{1, 12, 4}, m.Graph.Initializers[0].Dims)

	bi := nn.NewLSTM(src, 4, 3, true)
	assert.Len(t, bi.Parameters(), 8)
	y, m = export(t, bi, x, 9)
	assert.Equal(t, tensor.Shape{2, 5, 6}, y.Shape())
	assert.Equal(t, []string{"LSTM", "Transpose", "Reshape"}, opTypes(m))
	assert.Equal(t, []int64{2, 24}, m.Graph.Initializers[2].Dims)
}

func TestLSTMGateOrder(t *testing.T) {
	src := random.New(14)
	lstm := nn.NewLSTM(src, 1, 1, false)
	_, m := export(t, lstm, src.Randn(1, 1, 1), 9)

	wih := lstm.Parameters()[0].Tensor().AsFloat32() // i, f, g, o
	w := &m.Graph.Initializers[0]
	got, err := onnx.TensorFromProto(w)
	require.NoError(t, err)
	assert.Equal(t, []float32{wih[0], wih[3], wih[1], wih[2]}, got.AsFloat32())
}
