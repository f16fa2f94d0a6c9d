package cpu

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// LSTM runs a single-layer LSTM with the ONNX gate layout (i, o, f, c).
//
// Shapes (D = number of directions, H = hidden size):
//
//	x:  [T, B, I]       w: [D, 4H, I]     r: [D, 4H, H]
//	b:  [D, 8H] or nil  h0, c0: [D, B, H] or nil
//	y:  [T, D, B, H]    yh, yc: [D, B, H]
//
// Per step:
//
//	i = σ(x Wi + h Ri + bi)   o = σ(x Wo + h Ro + bo)
//	f = σ(x Wf + h Rf + bf)   g = tanh(x Wc + h Rc + bc)
//	c = f*c + i*g             h = o*tanh(c)
func (cpu *CPUBackend) LSTM(x, w, r, b, h0, c0 *tensor.RawTensor, p tensor.LSTMParams) (y, yh, yc *tensor.RawTensor) {
	xs, ws := x.Shape(), w.Shape()
	if len(xs) != 3 || len(ws) != 3 {
		panic(fmt.Sprintf("lstm: expected 3-D input and weights, got %v and %v", xs, ws))
	}
	T, B, I := xs[0], xs[1], xs[2]
	D, H := ws[0], p.HiddenSize
	if H == 0 {
		H = ws[1] / 4
	}
	if ws[1] != 4*H || ws[2] != I {
		panic(fmt.Sprintf("lstm: weight %v does not match input %v and hidden size %d", ws, xs, H))
	}
	if p.Direction == "bidirectional" && D != 2 || p.Direction != "bidirectional" && D != 1 {
		panic(fmt.Sprintf("lstm: direction %q does not match %d weight sets", p.Direction, D))
	}

	y = newFloat32("lstm", tensor.Shape{T, D, B, H})
	yh = newFloat32("lstm", tensor.Shape{D, B, H})
	yc = newFloat32("lstm", tensor.Shape{D, B, H})

	xv, wv, rv := x.AsFloat32(), w.AsFloat32(), r.AsFloat32()
	yv := y.AsFloat32()
	gates := make([]float32, B*4*H)

	for d := 0; d < D; d++ {
		wd := wv[d*4*H*I : (d+1)*4*H*I]
		rd := rv[d*4*H*H : (d+1)*4*H*H]
		h := yh.AsFloat32()[d*B*H : (d+1)*B*H]
		c := yc.AsFloat32()[d*B*H : (d+1)*B*H]
		if h0 != nil {
			copy(h, h0.AsFloat32()[d*B*H:(d+1)*B*H])
		}
		if c0 != nil {
			copy(c, c0.AsFloat32()[d*B*H:(d+1)*B*H])
		}
		var bias []float32
		if b != nil {
			bd := b.AsFloat32()[d*8*H : (d+1)*8*H]
			bias = make([]float32, 4*H)
			for j := range bias {
				bias[j] = bd[j] + bd[4*H+j]
			}
		}

		reverse := p.Direction == "reverse" || d == 1
		for step := 0; step < T; step++ {
			t := step
			if reverse {
				t = T - 1 - step
			}
			xt := xv[t*B*I : (t+1)*B*I]

			// gates [B, 4H] = xt [B, I] @ wd^T + h [B, H] @ rd^T
			gemm32(false, true, B, 4*H, I, 1, xt, wd, 0, gates)
			gemm32(false, true, B, 4*H, H, 1, h, rd, 1, gates)

			for bi := 0; bi < B; bi++ {
				g := gates[bi*4*H : (bi+1)*4*H]
				if bias != nil {
					for j := range g {
						g[j] += bias[j]
					}
				}
				for j := 0; j < H; j++ {
					ig := sigmoid(g[j])
					og := sigmoid(g[H+j])
					fg := sigmoid(g[2*H+j])
					cg := math32.Tanh(g[3*H+j])
					k := bi*H + j
					c[k] = fg*c[k] + ig*cg
					h[k] = og * math32.Tanh(c[k])
				}
			}
			copy(yv[(t*D+d)*B*H:(t*D+d+1)*B*H], h)
		}
	}
	return y, yh, yc
}
