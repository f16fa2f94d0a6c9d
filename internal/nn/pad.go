package nn

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// PadOp pads the trailing axes of x. Pads follow the PyTorch layout:
// (left, right) of the last axis first, then (top, bottom) of the one
// before it, and so on.
func PadOp(g *onnx.GraphBuilder, x onnx.Value, pads []int, mode tensor.PadMode) onnx.Value {
	if !traced(g, "Pad", x) {
		return onnx.Value{}
	}
	rank := x.Rank()
	if len(pads)%2 != 0 || len(pads)/2 > rank {
		return g.Fail(fmt.Errorf("pad: %d pad values for a rank %d input", len(pads), rank))
	}
	full := make([]int, 2*rank)
	for i := 0; i < len(pads)/2; i++ {
		axis := rank - 1 - i
		full[axis] = pads[2*i]
		full[rank+axis] = pads[2*i+1]
	}
	return g.Pad(x, full, mode, 0)
}

// Pad is a padding layer over the trailing axes.
type Pad struct {
	pads []int
	mode tensor.PadMode
}

// NewZeroPad2d pads the two spatial axes with zeros. One value pads every
// side; four values are (left, right, top, bottom).
func NewZeroPad2d(pads ...int) *Pad {
	return &Pad{pads: pad2d(pads), mode: tensor.PadConstant}
}

// NewReflectionPad2d pads the two spatial axes by reflection.
func NewReflectionPad2d(pads ...int) *Pad {
	return &Pad{pads: pad2d(pads), mode: tensor.PadReflect}
}

func pad2d(pads []int) []int {
	switch len(pads) {
	case 1:
		return []int{pads[0], pads[0], pads[0], pads[0]}
	case 4:
		return append([]int(nil), pads...)
	default:
		panic(fmt.Sprintf("pad2d: want 1 or 4 values, got %d", len(pads)))
	}
}

// Build emits Pad.
func (p *Pad) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	return PadOp(g, x, p.pads, p.mode)
}

// Parameters returns nil.
func (p *Pad) Parameters() []*Parameter { return nil }
