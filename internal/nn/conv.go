package nn

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/random"
)

// ConvConfig holds the geometry of a convolution. Single-element slices
// are repeated for every spatial axis; nil means the PyTorch default
// (stride 1, padding 0, dilation 1).
type ConvConfig struct {
	Kernel   []int
	Stride   []int
	Padding  []int
	Dilation []int
	// OutputPadding is only used by transposed convolutions.
	OutputPadding []int
	// Groups defaults to 1.
	Groups int
	NoBias bool
}

// expand repeats a single value n times and fills nil with def.
func expand(v []int, n, def int) []int {
	switch len(v) {
	case 0:
		v = []int{def}
		fallthrough
	case 1:
		out := make([]int, n)
		for i := range out {
			out[i] = v[0]
		}
		return out
	default:
		if len(v) != n {
			panic(fmt.Sprintf("nn: %d values given for %d spatial axes", len(v), n))
		}
		return append([]int(nil), v...)
	}
}

func (c ConvConfig) groups() int {
	if c.Groups == 0 {
		return 1
	}
	return c.Groups
}

// attrs returns the Conv/ConvTranspose attributes for n spatial axes.
func (c ConvConfig) attrs(kernel []int, transposed bool) []onnx.AttributeProto {
	n := len(kernel)
	pad := expand(c.Padding, n, 0)
	attrs := []onnx.AttributeProto{
		onnx.AttrInts("dilations", expand(c.Dilation, n, 1)...),
		onnx.AttrInt("group", c.groups()),
		onnx.AttrInts("kernel_shape", kernel...),
	}
	if transposed {
		attrs = append(attrs, onnx.AttrInts("output_padding", expand(c.OutputPadding, n, 0)...))
	}
	return append(attrs,
		onnx.AttrInts("pads", append(pad, pad...)...),
		onnx.AttrInts("strides", expand(c.Stride, n, 1)...))
}

// ConvOp emits a Conv node for weights and bias computed in the graph, the
// functional form of Conv. The kernel shape is taken from w; b may be the
// zero Value.
func ConvOp(g *onnx.GraphBuilder, x, w, b onnx.Value, cfg ConvConfig) onnx.Value {
	if !traced(g, "Conv", x, w) {
		return onnx.Value{}
	}
	kernel := w.Shape()[2:]
	return g.Op("Conv", []onnx.Value{x, w, b}, cfg.attrs(kernel, false)...)
}

// ConvTransposeOp is the functional form of ConvTranspose.
func ConvTransposeOp(g *onnx.GraphBuilder, x, w, b onnx.Value, cfg ConvConfig) onnx.Value {
	if !traced(g, "ConvTranspose", x, w) {
		return onnx.Value{}
	}
	kernel := w.Shape()[2:]
	return g.Op("ConvTranspose", []onnx.Value{x, w, b}, cfg.attrs(kernel, true)...)
}

// Conv is an N-d convolution layer over NC... inputs.
//
// Weight shape: [out_channels, in_channels/groups, kernel...]
// Bias shape:   [out_channels]
type Conv struct {
	transposed bool
	cfg        ConvConfig
	weight     *Parameter
	bias       *Parameter
}

// NewConv creates a convolution with the given number of spatial axes.
// Weights and bias are drawn uniformly from ±1/sqrt(fan_in).
func NewConv(src *random.Source, spatial, inChannels, outChannels int, cfg ConvConfig) *Conv {
	groups := cfg.groups()
	if inChannels%groups != 0 || outChannels%groups != 0 {
		panic(fmt.Sprintf("conv: channels in=%d, out=%d not divisible by groups=%d", inChannels, outChannels, groups))
	}
	shape := append([]int{outChannels, inChannels / groups}, expand(cfg.Kernel, spatial, 1)...)
	return newConv(src, false, shape, outChannels, cfg)
}

// NewConv1d creates a 1-d convolution.
func NewConv1d(src *random.Source, inChannels, outChannels int, cfg ConvConfig) *Conv {
	return NewConv(src, 1, inChannels, outChannels, cfg)
}

// NewConv2d creates a 2-d convolution.
func NewConv2d(src *random.Source, inChannels, outChannels int, cfg ConvConfig) *Conv {
	return NewConv(src, 2, inChannels, outChannels, cfg)
}

// NewConv3d creates a 3-d convolution.
func NewConv3d(src *random.Source, inChannels, outChannels int, cfg ConvConfig) *Conv {
	return NewConv(src, 3, inChannels, outChannels, cfg)
}

// NewConvTranspose creates a transposed convolution. Its weight is laid
// out as [in_channels, out_channels/groups, kernel...].
func NewConvTranspose(src *random.Source, spatial, inChannels, outChannels int, cfg ConvConfig) *Conv {
	groups := cfg.groups()
	if inChannels%groups != 0 || outChannels%groups != 0 {
		panic(fmt.Sprintf("convTranspose: channels in=%d, out=%d not divisible by groups=%d", inChannels, outChannels, groups))
	}
	shape := append([]int{inChannels, outChannels / groups}, expand(cfg.Kernel, spatial, 1)...)
	return newConv(src, true, shape, outChannels, cfg)
}

// NewConvTranspose2d creates a 2-d transposed convolution.
func NewConvTranspose2d(src *random.Source, inChannels, outChannels int, cfg ConvConfig) *Conv {
	return NewConvTranspose(src, 2, inChannels, outChannels, cfg)
}

// NewConvTranspose3d creates a 3-d transposed convolution.
func NewConvTranspose3d(src *random.Source, inChannels, outChannels int, cfg ConvConfig) *Conv {
	return NewConvTranspose(src, 3, inChannels, outChannels, cfg)
}

func newConv(src *random.Source, transposed bool, shape []int, outChannels int, cfg ConvConfig) *Conv {
	fan := fanIn(shape)
	c := &Conv{
		transposed: transposed,
		cfg:        cfg,
		weight:     NewParameter("weight", KaimingUniform(src, fan, shape...)),
	}
	if !cfg.NoBias {
		c.bias = NewParameter("bias", KaimingUniform(src, fan, outChannels))
	}
	return c
}

// Build emits Conv or ConvTranspose.
func (c *Conv) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	w := c.weight.Emit(g)
	var b onnx.Value
	if c.bias != nil {
		b = c.bias.Emit(g)
	}
	if c.transposed {
		return ConvTransposeOp(g, x, w, b, c.cfg)
	}
	return ConvOp(g, x, w, b, c.cfg)
}

// Parameters returns the weight and, if present, the bias.
func (c *Conv) Parameters() []*Parameter {
	if c.bias == nil {
		return []*Parameter{c.weight}
	}
	return []*Parameter{c.weight, c.bias}
}

// Weight returns the weight parameter.
func (c *Conv) Weight() *Parameter { return c.weight }

// Bias returns the bias parameter, or nil.
func (c *Conv) Bias() *Parameter { return c.bias }

func (c *Conv) String() string {
	shape := c.weight.Tensor().Shape()
	name, in, out := "Conv", shape[1]*c.cfg.groups(), shape[0]
	if c.transposed {
		name, in, out = "ConvTranspose", shape[0], shape[1]*c.cfg.groups()
	}
	return fmt.Sprintf("%s%dd(%d, %d, kernel_size=%v, bias=%v)", name, len(shape)-2, in, out, []int(shape[2:]), c.bias != nil)
}
