package nn

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/onnx"
)

// UpsampleConfig describes a resize of the spatial axes. Exactly one of
// Scale, Size and SizeFrom is set; a single scale is repeated for every
// axis.
type UpsampleConfig struct {
	// Mode is "nearest" or "bilinear".
	Mode  string
	Scale []float32
	Size  []int
	// SizeFrom holds output sizes computed in the graph (int64, one per
	// spatial axis).
	SizeFrom     onnx.Value
	AlignCorners bool
}

// InterpolateOp resizes x, the functional form of Upsample.
func InterpolateOp(g *onnx.GraphBuilder, x onnx.Value, cfg UpsampleConfig) onnx.Value {
	if !traced(g, "Upsample", x) {
		return onnx.Value{}
	}
	spec := onnx.ResizeSpec{Sizes: cfg.Size, SizesFrom: cfg.SizeFrom, AlignCorners: cfg.AlignCorners}
	switch cfg.Mode {
	case "", "nearest":
		spec.Mode = "nearest"
	case "bilinear", "linear":
		spec.Mode = "linear"
	default:
		return g.Fail(fmt.Errorf("upsample: unsupported mode %q", cfg.Mode))
	}
	if cfg.Scale != nil {
		spatial := x.Rank() - 2
		spec.Scales = make([]float32, spatial)
		for i := range spec.Scales {
			spec.Scales[i] = cfg.Scale[0]
			if len(cfg.Scale) == spatial {
				spec.Scales[i] = cfg.Scale[i]
			}
		}
	}
	return g.Resize(x, spec)
}

// Upsample resizes the spatial axes of an NC... input.
type Upsample struct {
	cfg UpsampleConfig
}

// NewUpsample creates an Upsample layer.
func NewUpsample(cfg UpsampleConfig) *Upsample {
	if (cfg.Scale == nil) == (cfg.Size == nil) {
		panic("upsample: exactly one of Scale and Size must be set")
	}
	return &Upsample{cfg: cfg}
}

// Build emits Upsample or Resize depending on the opset.
func (u *Upsample) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	return InterpolateOp(g, x, u.cfg)
}

// Parameters returns nil.
func (u *Upsample) Parameters() []*Parameter { return nil }
