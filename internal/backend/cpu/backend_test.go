package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/onnxgen/internal/tensor"
)

const epsilon = 1e-5

func raw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.FromFloat32(data, shape)
	require.NoError(t, err)
	return r
}

func seq(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i)
	}
	return out
}

func TestBinaryBroadcast(t *testing.T) {
	backend := New()
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := raw(t, []float32{10, 20, 30}, 3)

	tests := []struct {
		name string
		fn   func(a, b *tensor.RawTensor) *tensor.RawTensor
		want []float32
	}{
		{"add", backend.Add, []float32{11, 22, 33, 14, 25, 36}},
		{"sub", backend.Sub, []float32{-9, -18, -27, -6, -15, -24}},
		{"mul", backend.Mul, []float32{10, 40, 90, 40, 100, 180}},
		{"max", backend.Max, []float32{10, 20, 30, 10, 20, 30}},
		{"min", backend.Min, []float32{1, 2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(a, b)
			assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
			assert.InDeltaSlice(t, tt.want, got.AsFloat32(), epsilon)
		})
	}

	col := raw(t, []float32{2, 4}, 2, 1)
	div := backend.Div(a, col)
	assert.InDeltaSlice(t, []float32{0.5, 1, 1.5, 1, 1.25, 1.5}, div.AsFloat32(), epsilon)

	pow := backend.Pow(a, raw(t, []float32{2}))
	assert.InDeltaSlice(t, []float32{1, 4, 9, 16, 25, 36}, pow.AsFloat32(), epsilon)

	assert.Panics(t, func() { backend.Add(a, raw(t, []float32{1, 2}, 2)) })
}

func TestUnary(t *testing.T) {
	backend := New()
	x := raw(t, []float32{-2, -0.5, 0, 1.5}, 4)

	assert.Equal(t, []float32{0, 0, 0, 1.5}, backend.Relu(x).AsFloat32())
	assert.Equal(t, []float32{2, 0.5, 0, 1.5}, backend.Abs(x).AsFloat32())
	assert.Equal(t, []float32{2, 0.5, 0, -1.5}, backend.Neg(x).AsFloat32())
	assert.Equal(t, []float32{-1, -0.5, 0, 1}, backend.Clip(x, -1, 1).AsFloat32())
	assert.InDelta(t, 0.5, backend.Sigmoid(x).AsFloat32()[2], epsilon)
	assert.InDelta(t, 0.6931472, backend.Softplus(x).AsFloat32()[2], epsilon)
	assert.InDelta(t, 100, backend.Softplus(raw(t, []float32{100}, 1)).AsFloat32()[0], 1e-3)
	assert.InDeltaSlice(t, []float32{0.5, 2}, backend.Reciprocal(raw(t, []float32{2, 0.5}, 2)).AsFloat32(), epsilon)
}

func TestSoftmax(t *testing.T) {
	backend := New()
	x := raw(t, []float32{1, 2, 3, 1, 1, 1}, 2, 3)

	s := backend.Softmax(x, -1, false).AsFloat32()
	assert.InDeltaSlice(t, []float32{0.09003057, 0.24472847, 0.66524096}, s[:3], epsilon)
	assert.InDeltaSlice(t, []float32{1.0 / 3, 1.0 / 3, 1.0 / 3}, s[3:], epsilon)

	ls := backend.Softmax(x, 1, true).AsFloat32()
	assert.InDelta(t, -2.407606, ls[0], epsilon)

	cols := backend.Softmax(x, 0, false).AsFloat32()
	assert.InDelta(t, 0.5, cols[0], epsilon)
	assert.InDelta(t, cols[2]+cols[5], 1, epsilon)
}

func TestMatMul(t *testing.T) {
	backend := New()

	a := raw(t, seq(6), 2, 3)
	b := raw(t, seq(6), 3, 2)
	got := backend.MatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 2}, got.Shape())
	assert.InDeltaSlice(t, []float32{10, 13, 28, 40}, got.AsFloat32(), epsilon)

	batched := backend.MatMul(raw(t, seq(12), 2, 2, 3), b)
	assert.Equal(t, tensor.Shape{2, 2, 2}, batched.Shape())
	assert.InDeltaSlice(t, []float32{10, 13, 28, 40}, batched.AsFloat32()[:4], epsilon)

	vec := backend.MatMul(raw(t, []float32{1, 1, 1}, 3), b)
	assert.Equal(t, tensor.Shape{2}, vec.Shape())
	assert.InDeltaSlice(t, []float32{6, 9}, vec.AsFloat32(), epsilon)

	assert.Panics(t, func() { backend.MatMul(a, a) })
}

func TestGemm(t *testing.T) {
	backend := New()
	a := raw(t, seq(6), 2, 3)
	w := raw(t, seq(6), 2, 3)
	c := raw(t, []float32{1, -1}, 2)

	got := backend.Gemm(a, w, c, tensor.GemmParams{Alpha: 1, Beta: 1, TransB: true})
	assert.Equal(t, tensor.Shape{2, 2}, got.Shape())
	assert.InDeltaSlice(t, []float32{6, 13, 15, 49}, got.AsFloat32(), epsilon)

	noBias := backend.Gemm(a, w, nil, tensor.GemmParams{Alpha: 2, TransB: true})
	assert.InDeltaSlice(t, []float32{10, 28, 28, 100}, noBias.AsFloat32(), epsilon)
}
