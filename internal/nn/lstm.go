package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/random"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// LSTM is a single-layer LSTM over [seq, batch, features] inputs,
// started from zero hidden and cell states. The output is the hidden
// state sequence, [seq, batch, directions*hidden].
//
// Parameters keep the PyTorch layout and gate order (i, f, g, o):
//
//	weight_ih_l0: [4H, features]   weight_hh_l0: [4H, H]
//	bias_ih_l0:   [4H]             bias_hh_l0:   [4H]
//
// plus the "_reverse" set when bidirectional. They are exported as the
// ONNX W, R and B initializers with gates reordered to (i, o, f, c).
type LSTM struct {
	features, hidden int
	bidirectional    bool
	params           []*Parameter
	w, r, b          *tensor.RawTensor
}

// NewLSTM creates an LSTM. Every parameter is drawn from
// U(-1/sqrt(hidden), 1/sqrt(hidden)).
func NewLSTM(src *random.Source, features, hidden int, bidirectional bool) *LSTM {
	l := &LSTM{features: features, hidden: hidden, bidirectional: bidirectional}
	bound := 1 / math.Sqrt(float64(hidden))
	suffixes := []string{""}
	if bidirectional {
		suffixes = append(suffixes, "_reverse")
	}
	var ws, rs, bs [][]float32
	for _, sfx := range suffixes {
		wih := NewParameter("weight_ih_l0"+sfx, src.Uniform(-bound, bound, 4*hidden, features))
		whh := NewParameter("weight_hh_l0"+sfx, src.Uniform(-bound, bound, 4*hidden, hidden))
		bih := NewParameter("bias_ih_l0"+sfx, src.Uniform(-bound, bound, 4*hidden))
		bhh := NewParameter("bias_hh_l0"+sfx, src.Uniform(-bound, bound, 4*hidden))
		l.params = append(l.params, wih, whh, bih, bhh)

		ws = append(ws, reorderGates(wih.Tensor().AsFloat32(), hidden))
		rs = append(rs, reorderGates(whh.Tensor().AsFloat32(), hidden))
		bs = append(bs, reorderGates(bih.Tensor().AsFloat32(), hidden), reorderGates(bhh.Tensor().AsFloat32(), hidden))
	}
	dirs := len(suffixes)
	l.w = stack(ws, tensor.Shape{dirs, 4 * hidden, features})
	l.r = stack(rs, tensor.Shape{dirs, 4 * hidden, hidden})
	l.b = stack(bs, tensor.Shape{dirs, 8 * hidden})
	return l
}

// reorderGates maps the PyTorch gate blocks (i, f, g, o) to the ONNX
// order (i, o, f, c).
func reorderGates(v []float32, hidden int) []float32 {
	block := len(v) / 4
	out := make([]float32, 0, len(v))
	for _, gate := range [4]int{0, 3, 1, 2} {
		out = append(out, v[gate*block:(gate+1)*block]...)
	}
	return out
}

func stack(parts [][]float32, shape tensor.Shape) *tensor.RawTensor {
	var data []float32
	for _, p := range parts {
		data = append(data, p...)
	}
	t, err := tensor.FromFloat32(data, shape)
	if err != nil {
		panic(err)
	}
	return t
}

// Build emits LSTM followed by the reshape of Y to [seq, batch, D*H].
func (l *LSTM) Build(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
	if !traced(g, "LSTM", x) {
		return onnx.Value{}
	}
	shape := x.Shape()
	if len(shape) != 3 || shape[2] != l.features {
		return g.Fail(fmt.Errorf("lstm: expected [seq, batch, %d] input, got %v", l.features, shape))
	}
	dirs, direction := 1, "forward"
	if l.bidirectional {
		dirs, direction = 2, "bidirectional"
	}
	state := Zeros(dirs, shape[1], l.hidden)
	h0 := g.Constant(state)
	c0 := g.Constant(state)

	outs := g.OpN("LSTM",
		[]onnx.Value{x, g.Param("W", l.w), g.Param("R", l.r), g.Param("B", l.b), {}, h0, c0},
		3,
		onnx.AttrString("direction", direction),
		onnx.AttrInt("hidden_size", l.hidden))
	if outs == nil {
		return onnx.Value{}
	}
	y := outs[0]
	if !l.bidirectional {
		return g.Squeeze(y, 1)
	}
	return g.Reshape(g.Transpose(y, 0, 2, 1, 3), 0, 0, -1)
}

// Parameters returns the PyTorch-layout weights and biases.
func (l *LSTM) Parameters() []*Parameter {
	return l.params
}
