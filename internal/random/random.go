// Package random draws reproducible sample tensors from a seeded
// MT19937-64 generator.
package random

import (
	"math"
	"math/rand"

	"github.com/seehuhn/mt19937"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// Source is a seeded generator of float32 tensors. It is not safe for
// concurrent use.
type Source struct {
	r *rand.Rand
	// spare holds the second value of the last Box-Muller pair.
	spare    float64
	hasSpare bool
}

// New returns a Source seeded with seed.
func New(seed int64) *Source {
	r := rand.New(mt19937.New()) //nolint:gosec // reproducible test data, not security-sensitive
	r.Seed(seed)
	return &Source{r: r}
}

// Float64 returns a uniform value in [0, 1).
func (s *Source) Float64() float64 {
	return s.r.Float64()
}

// Norm returns a standard normal value. Values are generated in pairs
// with the Box-Muller transform.
func (s *Source) Norm() float64 {
	if s.hasSpare {
		s.hasSpare = false
		return s.spare
	}
	u1 := 1 - s.r.Float64() // (0, 1]
	u2 := s.r.Float64()
	radius := math.Sqrt(-2 * math.Log(u1))
	theta := 2 * math.Pi * u2
	s.spare, s.hasSpare = radius*math.Sin(theta), true
	return radius * math.Cos(theta)
}

func (s *Source) fill(shape []int, next func() float64) *tensor.RawTensor {
	t, err := tensor.NewRaw(tensor.Shape(shape), tensor.Float32)
	if err != nil {
		panic(err)
	}
	data := t.AsFloat32()
	for i := range data {
		data[i] = float32(next())
	}
	return t
}

// Randn returns a tensor of standard normal samples.
func (s *Source) Randn(shape ...int) *tensor.RawTensor {
	return s.fill(shape, s.Norm)
}

// Rand returns a tensor of uniform samples in [0, 1).
func (s *Source) Rand(shape ...int) *tensor.RawTensor {
	return s.fill(shape, s.Float64)
}

// Uniform returns a tensor of uniform samples in [lo, hi).
func (s *Source) Uniform(lo, hi float64, shape ...int) *tensor.RawTensor {
	return s.fill(shape, func() float64 { return lo + (hi-lo)*s.r.Float64() })
}
