package nn

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/onnx"
)

// PoolConfig holds the geometry of a pooling layer. Single-element slices
// are repeated for every spatial axis. Stride defaults to the kernel size.
type PoolConfig struct {
	Kernel   []int
	Stride   []int
	Padding  []int
	Dilation []int // max pooling only
	CeilMode bool
	// ExcludePad leaves padded cells out of the average (PyTorch's
	// count_include_pad=False).
	ExcludePad bool
}

func (c PoolConfig) resolve(spatial int) (kernel, stride, pads []int) {
	kernel = expand(c.Kernel, spatial, 1)
	stride = kernel
	if c.Stride != nil {
		stride = expand(c.Stride, spatial, 1)
	}
	pad := expand(c.Padding, spatial, 0)
	return kernel, stride, append(pad, pad...)
}

// MaxPoolOp emits MaxPool over the spatial axes of x.
func MaxPoolOp(g *onnx.GraphBuilder, x onnx.Value, cfg PoolConfig) onnx.Value {
	if !traced(g, "MaxPool", x) {
		return onnx.Value{}
	}
	spatial := x.Rank() - 2
	kernel, stride, pads := cfg.resolve(spatial)
	var attrs []onnx.AttributeProto
	if g.Opset() >= 10 {
		attrs = append(attrs, onnx.AttrInt("ceil_mode", boolInt(cfg.CeilMode)))
	} else if cfg.CeilMode {
		return failOpset(g, "maxPool: ceil_mode", 10)
	}
	if dil := expand(cfg.Dilation, spatial, 1); !allOnes(dil) {
		if g.Opset() < 10 {
			return failOpset(g, "maxPool: dilations", 10)
		}
		attrs = append(attrs, onnx.AttrInts("dilations", dil...))
	}
	attrs = append(attrs,
		onnx.AttrInts("kernel_shape", kernel...),
		onnx.AttrInts("pads", pads...),
		onnx.AttrInts("strides", stride...))
	return g.Op("MaxPool", []onnx.Value{x}, attrs...)
}

// AvgPoolOp emits AveragePool over the spatial axes of x.
func AvgPoolOp(g *onnx.GraphBuilder, x onnx.Value, cfg PoolConfig) onnx.Value {
	if !traced(g, "AveragePool", x) {
		return onnx.Value{}
	}
	kernel, stride, pads := cfg.resolve(x.Rank() - 2)
	var attrs []onnx.AttributeProto
	if g.Opset() >= 10 {
		attrs = append(attrs, onnx.AttrInt("ceil_mode", boolInt(cfg.CeilMode)))
	} else if cfg.CeilMode {
		return failOpset(g, "averagePool: ceil_mode", 10)
	}
	attrs = append(attrs,
		onnx.AttrInt("count_include_pad", boolInt(!cfg.ExcludePad)),
		onnx.AttrInts("kernel_shape", kernel...),
		onnx.AttrInts("pads", pads...),
		onnx.AttrInts("strides", stride...))
	return g.Op("AveragePool", []onnx.Value{x}, attrs...)
}

// Pool is a max or average pooling layer.
type Pool struct {
	average bool
	spatial int
	cfg     PoolConfig
}

// NewMaxPool creates a max pooling layer over the given number of spatial axes.
func NewMaxPool(spatial int, cfg PoolConfig) *Pool {
	return &Pool{spatial: spatial, cfg: cfg}
}

// NewMaxPool1d creates a 1-d max pooling layer.
func NewMaxPool1d(cfg PoolConfig) *Pool { return NewMaxPool(1, cfg) }

// NewMaxPool2d creates a 2-d max pooling layer.
func NewMaxPool2d(cfg PoolConfig) *Pool { return NewMaxPool(2, cfg) }

// NewMaxPool3d creates a 3-d max pooling layer.
func NewMaxPool3d(cfg PoolConfig) *Pool { return NewMaxPool(3, cfg) }

// NewAvgPool creates an average pooling layer.
func NewAvgPool(spatial int, cfg PoolConfig) *Pool {
	return &Pool{average: true, spatial: spatial, cfg: cfg}
}

// NewAvgPool1d creates a 1-d average pooling layer.
func NewAvgPool1d(cfg PoolConfig) *Pool { return NewAvgPool(1, cfg) }

// NewAvgPool2d creates a 2-d average pooling layer.
func NewAvgPool2d(cfg PoolConfig) *Pool { return NewAvgPool(2, cfg) }

// NewAvgPool3d creates a 3-d average pooling layer.
func NewAvgPool3d(cfg PoolConfig) *Pool { return NewAvgPool(3, cfg) }

// Build emits MaxPool or AveragePool.
func (p *Pool) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	if x.Valid() && x.Rank() != p.spatial+2 {
		return g.Fail(fmt.Errorf("%s: expected %d-d input, got %v", p, p.spatial+2, x.Shape()))
	}
	if p.average {
		return AvgPoolOp(g, x, p.cfg)
	}
	return MaxPoolOp(g, x, p.cfg)
}

// Parameters returns nil.
func (p *Pool) Parameters() []*Parameter { return nil }

func (p *Pool) String() string {
	kind := "MaxPool"
	if p.average {
		kind = "AvgPool"
	}
	return fmt.Sprintf("%s%dd", kind, p.spatial)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func allOnes(v []int) bool {
	for _, x := range v {
		if x != 1 {
			return false
		}
	}
	return true
}

// traced reports whether all values carry traced tensors, failing g
// otherwise. Layers that read shapes at build time call it first.
func traced(g *onnx.GraphBuilder, op string, vals ...onnx.Value) bool {
	if g.Err() != nil {
		return false
	}
	for i, v := range vals {
		if !v.Valid() {
			g.Fail(fmt.Errorf("%s: input %d has no traced value", op, i))
			return false
		}
	}
	return true
}

func failOpset(g *onnx.GraphBuilder, what string, need int64) onnx.Value {
	return g.Fail(fmt.Errorf("%s needs opset %d, have %d", what, need, g.Opset()))
}
