package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/onnxgen/internal/tensor"
)

func ones(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func TestConv(t *testing.T) {
	backend := New()
	x := raw(t, seq(9), 1, 1, 3, 3)
	w := raw(t, ones(4), 1, 1, 2, 2)

	tests := []struct {
		name  string
		bias  *tensor.RawTensor
		p     tensor.ConvParams
		shape tensor.Shape
		want  []float32
	}{
		{"valid", nil, tensor.ConvParams{}, tensor.Shape{1, 1, 2, 2}, []float32{8, 12, 20, 24}},
		{"bias", raw(t, []float32{1}, 1), tensor.ConvParams{}, tensor.Shape{1, 1, 2, 2}, []float32{9, 13, 21, 25}},
		{
			"padded strided", nil,
			tensor.ConvParams{Strides: []int{2, 2}, Pads: []int{1, 1, 1, 1}},
			tensor.Shape{1, 1, 2, 2}, []float32{0, 3, 9, 24},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backend.Conv(x, w, tt.bias, tt.p)
			assert.Equal(t, tt.shape, got.Shape())
			assert.InDeltaSlice(t, tt.want, got.AsFloat32(), epsilon)
		})
	}

	t.Run("groups", func(t *testing.T) {
		got := backend.Conv(raw(t, []float32{1, 2}, 1, 2, 1, 1), raw(t, []float32{3, 4}, 2, 1, 1, 1), nil,
			tensor.ConvParams{Group: 2})
		assert.InDeltaSlice(t, []float32{3, 8}, got.AsFloat32(), epsilon)
	})

	t.Run("dilated 1d", func(t *testing.T) {
		got := backend.Conv(raw(t, seq(5), 1, 1, 5), raw(t, ones(2), 1, 1, 2), nil,
			tensor.ConvParams{Dilations: []int{2}})
		assert.Equal(t, tensor.Shape{1, 1, 3}, got.Shape())
		assert.InDeltaSlice(t, []float32{2, 4, 6}, got.AsFloat32(), epsilon)
	})

	t.Run("3d", func(t *testing.T) {
		got := backend.Conv(raw(t, ones(8), 1, 1, 2, 2, 2), raw(t, ones(8), 1, 1, 2, 2, 2), nil, tensor.ConvParams{})
		assert.Equal(t, tensor.Shape{1, 1, 1, 1, 1}, got.Shape())
		assert.InDelta(t, 8, got.AsFloat32()[0], epsilon)
	})

	assert.Panics(t, func() { backend.Conv(x, raw(t, ones(8), 1, 2, 2, 2), nil, tensor.ConvParams{}) })
}

func TestConvTranspose(t *testing.T) {
	backend := New()
	x := raw(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	w := raw(t, ones(4), 1, 1, 2, 2)

	got := backend.ConvTranspose(x, w, nil, tensor.ConvParams{})
	assert.Equal(t, tensor.Shape{1, 1, 3, 3}, got.Shape())
	assert.InDeltaSlice(t, []float32{1, 3, 2, 4, 10, 6, 3, 7, 4}, got.AsFloat32(), epsilon)

	strided := backend.ConvTranspose(x, w, nil, tensor.ConvParams{Strides: []int{2, 2}})
	assert.Equal(t, tensor.Shape{1, 1, 4, 4}, strided.Shape())
	assert.InDeltaSlice(t, []float32{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}, strided.AsFloat32(), epsilon)

	padded := backend.ConvTranspose(x, w, raw(t, []float32{1}, 1),
		tensor.ConvParams{Strides: []int{2, 2}, OutputPadding: []int{1, 1}})
	assert.Equal(t, tensor.Shape{1, 1, 5, 5}, padded.Shape())
	out := padded.AsFloat32()
	assert.InDelta(t, 2, out[0], epsilon)
	assert.InDelta(t, 1, out[24], epsilon)
}

func TestPooling(t *testing.T) {
	backend := New()

	got := backend.MaxPool(raw(t, seq(16), 1, 1, 4, 4), tensor.PoolParams{Kernel: []int{2, 2}, Strides: []int{2, 2}})
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, got.Shape())
	assert.Equal(t, []float32{5, 7, 13, 15}, got.AsFloat32())

	line := raw(t, seq(5), 1, 1, 5)
	floor := backend.MaxPool(line, tensor.PoolParams{Kernel: []int{2}, Strides: []int{2}})
	assert.Equal(t, []float32{1, 3}, floor.AsFloat32())
	ceil := backend.MaxPool(line, tensor.PoolParams{Kernel: []int{2}, Strides: []int{2}, CeilMode: true})
	assert.Equal(t, []float32{1, 3, 4}, ceil.AsFloat32())

	short := raw(t, []float32{1, 2, 3}, 1, 1, 3)
	p := tensor.PoolParams{Kernel: []int{3}, Strides: []int{1}, Pads: []int{1, 1}}
	avg := backend.AveragePool(short, p)
	assert.InDeltaSlice(t, []float32{1.5, 2, 2.5}, avg.AsFloat32(), epsilon)

	p.CountIncludePad = true
	withPad := backend.AveragePool(short, p)
	assert.InDeltaSlice(t, []float32{1, 2, 5.0 / 3}, withPad.AsFloat32(), epsilon)
}

func TestNormalization(t *testing.T) {
	backend := New()

	bn := backend.BatchNorm(raw(t, []float32{1, 2}, 1, 2, 1, 1),
		raw(t, []float32{1, 2}, 2), raw(t, []float32{0, 1}, 2),
		raw(t, []float32{0, 1}, 2), raw(t, []float32{1, 4}, 2), 0)
	assert.InDeltaSlice(t, []float32{1, 2}, bn.AsFloat32(), epsilon)

	in := backend.InstanceNorm(raw(t, []float32{1, 2, 3, 4}, 1, 1, 4),
		raw(t, []float32{1}, 1), raw(t, []float32{0}, 1), 0)
	assert.InDeltaSlice(t, []float32{-1.3416408, -0.4472136, 0.4472136, 1.3416408}, in.AsFloat32(), epsilon)
}

func TestPad(t *testing.T) {
	backend := New()

	c := backend.Pad(raw(t, []float32{1, 2, 3, 4}, 2, 2), []int{0, 1, 0, 1}, tensor.PadConstant, 0)
	assert.Equal(t, tensor.Shape{2, 4}, c.Shape())
	assert.Equal(t, []float32{0, 1, 2, 0, 0, 3, 4, 0}, c.AsFloat32())

	line := raw(t, []float32{1, 2, 3}, 3)
	assert.Equal(t, []float32{2, 1, 2, 3, 2}, backend.Pad(line, []int{1, 1}, tensor.PadReflect, 0).AsFloat32())
	assert.Equal(t, []float32{1, 1, 2, 3, 3}, backend.Pad(line, []int{1, 1}, tensor.PadEdge, 0).AsFloat32())
	assert.Equal(t, []float32{2}, backend.Pad(line, []int{-1, -1}, tensor.PadConstant, 0).AsFloat32())
}

func TestResize(t *testing.T) {
	backend := New()
	x := raw(t, []float32{1, 2}, 1, 1, 2)

	tests := []struct {
		name string
		out  int
		p    tensor.ResizeParams
		want []float32
	}{
		{"nearest", 4, tensor.ResizeParams{Mode: "nearest", CoordMode: "asymmetric", NearestMode: "floor"}, []float32{1, 1, 2, 2}},
		{"align corners", 3, tensor.ResizeParams{Mode: "linear", CoordMode: "align_corners"}, []float32{1, 1.5, 2}},
		{"half pixel", 4, tensor.ResizeParams{Mode: "linear", CoordMode: "pytorch_half_pixel"}, []float32{1, 1.25, 1.75, 2}},
		{"asymmetric linear", 4, tensor.ResizeParams{Mode: "linear", CoordMode: "asymmetric"}, []float32{1, 1.5, 2, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := backend.Resize(x, tensor.Shape{1, 1, tt.out}, tt.p)
			assert.InDeltaSlice(t, tt.want, got.AsFloat32(), epsilon)
		})
	}

	img := raw(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	up := backend.Resize(img, tensor.Shape{1, 1, 4, 4}, tensor.ResizeParams{Mode: "nearest", NearestMode: "floor"})
	assert.Equal(t, []float32{1, 1, 2, 2, 1, 1, 2, 2, 3, 3, 4, 4, 3, 3, 4, 4}, up.AsFloat32())
}

func TestReduce(t *testing.T) {
	backend := New()
	x := raw(t, seq(6), 2, 3)

	sum := backend.Reduce(x, tensor.ReduceSum, []int{1}, true)
	assert.Equal(t, tensor.Shape{2, 1}, sum.Shape())
	assert.Equal(t, []float32{3, 12}, sum.AsFloat32())

	mean := backend.Reduce(x, tensor.ReduceMean, nil, false)
	assert.Equal(t, 0, len(mean.Shape()))
	assert.InDelta(t, 2.5, mean.AsFloat32()[0], epsilon)

	mx := backend.Reduce(x, tensor.ReduceMax, []int{-2}, false)
	assert.Equal(t, []float32{3, 4, 5}, mx.AsFloat32())

	l2 := backend.Reduce(x, tensor.ReduceL2, []int{1}, false)
	assert.InDeltaSlice(t, []float32{2.236068, 7.071068}, l2.AsFloat32(), epsilon)
}

func TestLSTM(t *testing.T) {
	backend := New()
	x := raw(t, []float32{3, -7}, 2, 1, 1)

	t.Run("forward", func(t *testing.T) {
		y, yh, yc := backend.LSTM(x,
			raw(t, make([]float32, 4), 1, 4, 1), raw(t, make([]float32, 4), 1, 4, 1),
			nil, nil, raw(t, []float32{1}, 1, 1, 1),
			tensor.LSTMParams{HiddenSize: 1, Direction: "forward"})
		assert.Equal(t, tensor.Shape{2, 1, 1, 1}, y.Shape())
		assert.InDeltaSlice(t, []float32{0.2310586, 0.1224593}, y.AsFloat32(), epsilon)
		assert.InDelta(t, 0.1224593, yh.AsFloat32()[0], epsilon)
		assert.InDelta(t, 0.25, yc.AsFloat32()[0], epsilon)
	})

	t.Run("bidirectional", func(t *testing.T) {
		y, _, _ := backend.LSTM(x,
			raw(t, make([]float32, 8), 2, 4, 1), raw(t, make([]float32, 8), 2, 4, 1),
			raw(t, make([]float32, 16), 2, 8), nil, raw(t, []float32{1, 1}, 2, 1, 1),
			tensor.LSTMParams{HiddenSize: 1, Direction: "bidirectional"})
		assert.Equal(t, tensor.Shape{2, 2, 1, 1}, y.Shape())
		assert.InDeltaSlice(t, []float32{0.2310586, 0.1224593, 0.1224593, 0.2310586}, y.AsFloat32(), epsilon)
	})
}
