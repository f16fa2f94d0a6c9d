package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

func float64s(data []float32) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v)
	}
	return out
}

func TestSameSeedSameBytes(t *testing.T) {
	a, b := New(0), New(0)
	assert.Equal(t, a.Randn(3, 4).Data(), b.Randn(3, 4).Data())
	assert.Equal(t, a.Rand(5).Data(), b.Rand(5).Data())

	c := New(1)
	assert.NotEqual(t, New(0).Randn(3, 4).Data(), c.Randn(3, 4).Data())
}

func TestRandnMoments(t *testing.T) {
	x := float64s(New(42).Randn(20000).AsFloat32())
	mean, std := stat.MeanStdDev(x, nil)
	assert.InDelta(t, 0, mean, 0.03)
	assert.InDelta(t, 1, std, 0.03)
}

func TestUniformRange(t *testing.T) {
	src := New(7)
	x := float64s(src.Uniform(-0.5, 0.5, 1000).AsFloat32())
	assert.GreaterOrEqual(t, floats.Min(x), -0.5)
	assert.LessOrEqual(t, floats.Max(x), 0.5)

	u := float64s(src.Rand(1000).AsFloat32())
	assert.GreaterOrEqual(t, floats.Min(u), 0.0)
	assert.LessOrEqual(t, floats.Max(u), 1.0)

	scalar := src.Randn()
	assert.Equal(t, 0, len(scalar.Shape()))
	assert.Len(t, scalar.AsFloat32(), 1)
}
