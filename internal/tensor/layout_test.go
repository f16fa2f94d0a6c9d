package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arange(t *testing.T, shape Shape) *RawTensor {
	t.Helper()
	data := make([]float32, shape.NumElements())
	for i := range data {
		data[i] = float32(i)
	}
	r, err := FromFloat32(data, shape)
	require.NoError(t, err)
	return r
}

func TestReshape(t *testing.T) {
	x := arange(t, Shape{2, 3, 4})

	tests := []struct {
		name string
		in   []int
		want Shape
	}{
		{"explicit", []int{6, 4}, Shape{6, 4}},
		{"infer", []int{2, -1}, Shape{2, 12}},
		{"copy zero", []int{0, 0, 2, 2}, Shape{2, 3, 2, 2}},
		{"flat", []int{-1}, Shape{24}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reshape(x, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Shape())
			assert.Equal(t, x.AsFloat32(), got.AsFloat32())
		})
	}

	_, err := Reshape(x, []int{-1, -1})
	assert.Error(t, err)
	_, err = Reshape(x, []int{5, 5})
	assert.Error(t, err)
}

func TestTransposeAxes(t *testing.T) {
	x := arange(t, Shape{2, 3})
	y, err := TransposeAxes(x)
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, y.Shape())
	assert.Equal(t, []float32{0, 3, 1, 4, 2, 5}, y.AsFloat32())

	z := arange(t, Shape{2, 3, 4})
	p, err := TransposeAxes(z, 0, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 4, 3}, p.Shape())
	// element [1][2][0] of p is z[1][0][2]
	assert.Equal(t, float32(1*12+0*4+2), p.AsFloat32()[1*12+2*3+0])

	_, err = TransposeAxes(z, 0, 0, 1)
	assert.Error(t, err)
}

func TestSqueezeUnsqueeze(t *testing.T) {
	x := arange(t, Shape{1, 3, 1, 2})

	all, err := Squeeze(x)
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, all.Shape())

	one, err := Squeeze(x, -2)
	require.NoError(t, err)
	assert.Equal(t, Shape{1, 3, 2}, one.Shape())

	_, err = Squeeze(x, 1)
	assert.Error(t, err)

	u, err := Unsqueeze(all, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, Shape{1, 3, 2, 1}, u.Shape())
}

func TestFlatten(t *testing.T) {
	x := arange(t, Shape{2, 3, 4})
	for axis, want := range map[int]Shape{0: {1, 24}, 1: {2, 12}, 3: {24, 1}, -1: {6, 4}} {
		got, err := Flatten(x, axis)
		require.NoError(t, err)
		assert.Equal(t, want, got.Shape(), "axis %d", axis)
	}
}

func TestConcatSplit(t *testing.T) {
	a := arange(t, Shape{2, 2})
	b := arange(t, Shape{2, 1})

	c, err := Concat([]*RawTensor{a, b}, 1)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 3}, c.Shape())
	assert.Equal(t, []float32{0, 1, 0, 2, 3, 1}, c.AsFloat32())

	parts, err := Split(c, 1, []int{2, 1})
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, a.AsFloat32(), parts[0].AsFloat32())
	assert.Equal(t, b.AsFloat32(), parts[1].AsFloat32())

	even, err := SplitEven(arange(t, Shape{5}), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, Shape{3}, even[0].Shape())
	assert.Equal(t, Shape{2}, even[1].Shape())

	_, err = Concat([]*RawTensor{a, arange(t, Shape{3, 1})}, 1)
	assert.Error(t, err)
}

func TestSlice(t *testing.T) {
	x := arange(t, Shape{10})

	tests := []struct {
		name             string
		start, end, step int
		want             []float32
	}{
		{"prefix", 0, 3, 1, []float32{0, 1, 2}},
		{"negative start", -3, 100, 1, []float32{7, 8, 9}},
		{"stepped", 1, 8, 3, []float32{1, 4, 7}},
		{"reversed", -1, -100, -1, []float32{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}},
		{"reverse stepped", 8, 1, -3, []float32{8, 5, 2}},
		{"empty", 5, 2, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Slice(x, []int{tt.start}, []int{tt.end}, nil, []int{tt.step})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.AsFloat32())
		})
	}

	m := arange(t, Shape{3, 4})
	s, err := Slice(m, []int{1}, []int{3}, []int{1}, nil)
	require.NoError(t, err)
	assert.Equal(t, Shape{3, 2}, s.Shape())
	assert.Equal(t, []float32{1, 2, 5, 6, 9, 10}, s.AsFloat32())
}

func TestGather(t *testing.T) {
	x := arange(t, Shape{3, 2})

	scalar, err := Gather(x, Int64Vector(-1), 0)
	require.NoError(t, err)
	assert.Equal(t, Shape{1, 2}, scalar.Shape())
	assert.Equal(t, []float32{4, 5}, scalar.AsFloat32())

	idx, err := FromInt64([]int64{1}, Shape{})
	require.NoError(t, err)
	col, err := Gather(x, idx, 1)
	require.NoError(t, err)
	assert.Equal(t, Shape{3}, col.Shape())
	assert.Equal(t, []float32{1, 3, 5}, col.AsFloat32())

	_, err = Gather(x, Int64Vector(3), 0)
	assert.Error(t, err)
}

func TestExpandAndCast(t *testing.T) {
	x := arange(t, Shape{3, 1})
	e, err := Expand(x, Shape{2, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 3, 2}, e.Shape())
	assert.Equal(t, []float32{0, 0, 1, 1, 2, 2, 0, 0, 1, 1, 2, 2}, e.AsFloat32())

	f, err := FromFloat32([]float32{1.7, -1.7}, Shape{2})
	require.NoError(t, err)
	i, err := Cast(f, Int64)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, -1}, i.AsInt64())

	full, err := FullRaw(Shape{2}, Int64, 7)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 7}, full.Ints())
}

func TestBroadcastShapes(t *testing.T) {
	got, needs, err := BroadcastShapes(Shape{3, 1}, Shape{3, 5})
	require.NoError(t, err)
	assert.True(t, needs)
	assert.Equal(t, Shape{3, 5}, got)

	_, _, err = BroadcastShapes(Shape{3, 4}, Shape{3, 5})
	assert.Error(t, err)

	assert.Equal(t, []int{0, 1}, BroadcastStrides(Shape{5}, Shape{3, 5}))
}

func TestZeroSizedTensor(t *testing.T) {
	empty, err := NewRaw(Shape{0}, Float32)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.NumElements())
	assert.Nil(t, empty.AsFloat32())

	_, err = NewRaw(Shape{-1}, Float32)
	assert.Error(t, err)
}
