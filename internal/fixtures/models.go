package fixtures

import (
	"github.com/born-ml/onnxgen/internal/nn"
	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/random"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// Composite models used by the catalog. Submodules are built under the
// attribute name they would have in a PyTorch module, which is what their
// initializers are named after.

func conv1x1(src *random.Source, channels int) *nn.Conv {
	return nn.NewConv2d(src, channels, channels, nn.ConvConfig{Kernel: []int{1}})
}

// concatenation applies two 1x1 convolutions in a row and concatenates
// both results along the batch axis.
func concatenation(src *random.Source) nn.Module {
	squeeze1, squeeze2 := conv1x1(src, 2), conv1x1(src, 2)
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		x = nn.Call(g, "squeeze1", squeeze1, x)
		y := nn.Call(g, "squeeze2", squeeze2, x)
		return g.Concat(0, x, y)
	}, squeeze1, squeeze2)
}

// sharedLinear applies one Linear layer twice and multiplies the results.
func sharedLinear(src *random.Source) nn.Module {
	squeeze1 := nn.NewLinear(src, 2, 2, true)
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		x = nn.Call(g, "squeeze1", squeeze1, x)
		y := nn.Call(g, "squeeze1", squeeze1, x)
		return binary(g, "Mul", x, y)
	}, squeeze1)
}

// twoBranches convolves each input and adds the results.
func twoBranches(src *random.Source) MultiInput {
	squeeze1, squeeze2 := conv1x1(src, 2), conv1x1(src, 2)
	return func(g *onnx.GraphBuilder, xs []onnx.Value) onnx.Value {
		x := nn.Call(g, "squeeze1", squeeze1, xs[0])
		y := nn.Call(g, "squeeze2", squeeze2, xs[1])
		return binary(g, "Add", x, y)
	}
}

// leNet is the LeNet-5 classifier over 32x32 images.
func leNet(src *random.Source) nn.Module {
	return nn.NewSequential(
		nn.NewConv2d(src, 3, 6, nn.ConvConfig{Kernel: []int{5}}),
		nn.NewReLU(),
		nn.NewMaxPool2d(nn.PoolConfig{Kernel: []int{2}, Stride: []int{2}}),
		nn.NewConv2d(src, 6, 16, nn.ConvConfig{Kernel: []int{5}}),
		nn.NewReLU(),
		nn.NewMaxPool2d(nn.PoolConfig{Kernel: []int{2}, Stride: []int{2}}),
		fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value { return g.Reshape(x, -1, 16*5*5) }),
		nn.NewLinear(src, 16*5*5, 120, true),
		nn.NewReLU(),
		nn.NewLinear(src, 120, 84, true),
		nn.NewReLU(),
		nn.NewLinear(src, 84, 10, true),
	)
}

// convBNUpsample is the conv, batch norm, upsample stack whose export
// keeps the three layers unfused.
func convBNUpsample(src *random.Source, up nn.UpsampleConfig) nn.Module {
	return nn.NewSequential(
		nn.NewConv2d(src, 3, 2, nn.ConvConfig{Kernel: []int{3}, Padding: []int{1}}),
		nn.NewBatchNorm(2),
		nn.NewUpsample(up),
	)
}

// channelsLast moves channels to the end and folds the spatial axes:
// [N, C, H, W] -> [N, H*W, C], with N and C read from the input shape.
func channelsLast() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		batch, channels := size(g, x, 0), size(g, x, 1)
		y := g.Transpose(x, 0, 2, 3, 1)
		return view(g, y, vec(g, batch, g.ConstInts(-1), channels))
	})
}

// poolConv3d is 3-d max pooling followed by a 3-d convolution.
func poolConv3d(src *random.Source) nn.Module {
	pool := nn.NewMaxPool3d(nn.PoolConfig{Kernel: []int{3}, Stride: []int{2}, Padding: []int{1}})
	conv := nn.NewConv3d(src, 2, 2, nn.ConvConfig{Kernel: []int{3}, Padding: []int{1}})
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		x = nn.Call(g, "pool", pool, x)
		return nn.Call(g, "conv", conv, x)
	}, conv)
}

// splitConcat splits along axis 0 and concatenates the parts again.
func splitConcat() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		n := x.Shape()[0]
		sizes := make([]int, n)
		for i := range sizes {
			sizes[i] = 1
		}
		return g.Concat(0, g.Split(x, 0, sizes...)...)
	})
}

// splitMax splits six channels into 2+2+2 and takes their element-wise
// maximum.
func splitMax() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		parts := g.Split(x, 1, 2, 4)
		if parts == nil {
			return onnx.Value{}
		}
		rest := g.Split(parts[1], 1, 2, 2)
		if rest == nil {
			return onnx.Value{}
		}
		return binary(g, "Max", parts[0], binary(g, "Max", rest[0], rest[1]))
	})
}

// l2Transpose divides by the L2 norm over channels and swaps the two
// trailing axes.
func l2Transpose() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		norm := g.Reduce("ReduceL2", x, []int{1}, true)
		return g.Transpose(binary(g, "Div", x, norm), 0, 1, 3, 2)
	})
}

// softmaxUnfused is softmax over axis 2 spelled out as Exp, ReduceSum, Div.
func softmaxUnfused() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		e := unary(g, "Exp", x)
		return binary(g, "Div", e, g.Reduce("ReduceSum", e, []int{2}, true))
	})
}

// flattenByProd reshapes to [N, C*H*W] with every size read from the input.
func flattenByProd() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		b, c, h, w := size(g, x, 0), size(g, x, 1), size(g, x, 2), size(g, x, 3)
		chw := binary(g, "Mul", binary(g, "Mul", c, h), w)
		return view(g, x, vec(g, b, chw))
	})
}

// reshapeByDiv reshapes to [N, C*H*(W/2), -1].
func reshapeByDiv() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		b, c, h, w := size(g, x, 0), size(g, x, 1), size(g, x, 2), size(g, x, 3)
		half := binary(g, "Div", w, constInt(g, 2))
		mid := binary(g, "Mul", binary(g, "Mul", c, h), half)
		return view(g, x, vec(g, b, mid, g.ConstInts(-1)))
	})
}

// broadcast computes x*y + (x-x)/y - y for a per-channel y.
func broadcast(g *onnx.GraphBuilder, xs []onnx.Value) onnx.Value {
	x, y := xs[0], xs[1]
	prod := binary(g, "Mul", x, y)
	zero := binary(g, "Div", binary(g, "Sub", x, x), y)
	return binary(g, "Sub", binary(g, "Add", prod, zero), y)
}

// flattenConst flattens a constant shape vector, casts it to float and
// adds it to the input.
func flattenConst() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		sizes := g.Constant(tensor.Int64Vector(x.Shape().Int64s()...))
		flat := g.Op("Flatten", []onnx.Value{sizes})
		return binary(g, "Add", x, g.Cast(flat, tensor.Float32))
	})
}

// resizeLike resizes x bilinearly to the spatial size of y and adds y.
func resizeLike(g *onnx.GraphBuilder, xs []onnx.Value) onnx.Value {
	x, y := xs[0], xs[1]
	up := nn.InterpolateOp(g, x, nn.UpsampleConfig{Mode: "bilinear", SizeFrom: lastAxes(g, y, 2)})
	return binary(g, "Add", up, y)
}

// resizeByScale halves x bilinearly and adds y.
func resizeByScale(g *onnx.GraphBuilder, xs []onnx.Value) onnx.Value {
	up := nn.InterpolateOp(g, xs[0], nn.UpsampleConfig{Mode: "bilinear", Scale: []float32{0.5, 0.5}})
	return binary(g, "Add", up, xs[1])
}

// shapeOfConstant adds 2*x to zeros shaped like it.
func shapeOfConstant() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		x = binary(g, "Mul", x, g.ConstScalar(2))
		zeros := g.Op("ConstantOfShape", []onnx.Value{g.Shape(x)},
			onnx.AttrTensor("value", floatTensor([]float32{0}, 1)))
		return binary(g, "Add", zeros, x)
	})
}

// lstm wraps an LSTM layer as the "lstm" attribute.
func lstm(src *random.Source, features, hidden int, bidirectional bool) nn.Module {
	l := nn.NewLSTM(src, features, hidden, bidirectional)
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return nn.Call(g, "lstm", l, x)
	}, l)
}

// gramMatrix multiplies x by its transpose over the last two axes.
func gramMatrix() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		rank := x.Rank()
		perm := make([]int, rank)
		for i := range perm {
			perm[i] = i
		}
		perm[rank-1], perm[rank-2] = rank-2, rank-1
		return binary(g, "MatMul", x, g.Transpose(x, perm...))
	})
}

func expand(shape ...int) nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return g.Expand(x, shape...)
	})
}

// normL2 divides by the clipped L2 norm over channels, expanded back to
// the input shape.
func normL2() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		norm := g.Clip(g.Reduce("ReduceL2", x, []int{1}, true), 0, inf)
		expanded := g.Op("Expand", []onnx.Value{norm, g.Shape(x)})
		return binary(g, "Div", x, expanded)
	})
}

// l2NormSSD is the SSD L2Norm layer: x / (sqrt(sum(x^2, 1)) + eps). The
// layer's scale weight does not reach the output and is not exported.
func l2NormSSD() nn.Module {
	const eps = 1e-10
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		sq := binary(g, "Pow", x, g.ConstScalar(2))
		norm := binary(g, "Add", unary(g, "Sqrt", g.Reduce("ReduceSum", sq, []int{1}, true)), g.ConstScalar(eps))
		return binary(g, "Div", x, norm)
	})
}

// frozenBatchNorm is batch norm with fixed statistics written out as
// arithmetic: x * w/sqrt(var) + (b - mean*w/sqrt(var)).
func frozenBatchNorm(n int) nn.Module {
	weight := nn.NewParameter("weight", nn.Ones(n))
	bias := nn.NewParameter("bias", nn.Zeros(n))
	mean := nn.NewParameter("running_mean", nn.Zeros(n))
	variance := nn.NewParameter("running_var", nn.Ones(n))
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		rsqrt := unary(g, "Reciprocal", unary(g, "Sqrt", variance.Emit(g)))
		scale := binary(g, "Mul", weight.Emit(g), rsqrt)
		shift := binary(g, "Sub", bias.Emit(g), binary(g, "Mul", mean.Emit(g), scale))
		scale = g.Reshape(scale, 1, -1, 1, 1)
		shift = g.Reshape(shift, 1, -1, 1, 1)
		return binary(g, "Add", binary(g, "Mul", x, scale), shift)
	})
}

// upsampleToOther resizes the second input (after a 1x1 convolution) to
// the spatial size of the first one after its own 1x1 convolution.
func upsampleToOther(src *random.Source) MultiInput {
	conv1, conv2 := conv1x1(src, 3), conv1x1(src, 3)
	return func(g *onnx.GraphBuilder, xs []onnx.Value) onnx.Value {
		x := nn.Call(g, "conv1", conv1, xs[0])
		y := nn.Call(g, "conv2", conv2, xs[1])
		return nn.InterpolateOp(g, y, nn.UpsampleConfig{Mode: "nearest", SizeFrom: lastAxes(g, x, 2)})
	}
}

// convWithInputs convolves the first input with the second as weights.
func convWithInputs(g *onnx.GraphBuilder, xs []onnx.Value) onnx.Value {
	return nn.ConvOp(g, xs[0], xs[1], onnx.Value{}, nn.ConvConfig{})
}

// depthwiseWithInputs folds batch into channels and runs a depthwise
// convolution with weights and bias taken from the inputs:
// x [N, C, S...], kernel [N, C, K...], bias [N*C].
func depthwiseWithInputs(g *onnx.GraphBuilder, xs []onnx.Value) onnx.Value {
	x, kernel, bias := xs[0], xs[1], xs[2]
	ks := kernel.Shape()
	groups := ks[0] * ks[1]
	xShape := append([]int{1, groups}, x.Shape()[2:]...)
	wShape := append([]int{groups, 1}, ks[2:]...)
	out := nn.ConvOp(g, g.Reshape(x, xShape...), g.Reshape(kernel, wShape...), bias, nn.ConvConfig{Groups: groups})
	if !out.Valid() {
		return out
	}
	return g.Reshape(out, append([]int{ks[0], ks[1]}, out.Shape()[2:]...)...)
}

// linearWithConstant multiplies a projection of the input by a projection
// of a constant zero row.
func linearWithConstant(src *random.Source) nn.Module {
	linConst := nn.NewLinear(src, 2, 2, true)
	linInp := nn.NewLinear(src, 2, 2, true)
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		x = g.Reshape(x, -1, 2)
		c := g.Constant(nn.Zeros(1, 2))
		xp := nn.Call(g, "lin_inp", linInp, x)
		cp := nn.Call(g, "lin_const", linConst, c)
		return binary(g, "Mul", xp, cp)
	}, linConst, linInp)
}

// matmulWithTwoInputs is a small attention-like block: softmax weights
// computed from the input are multiplied back onto it.
func matmulWithTwoInputs(src *random.Source) nn.Module {
	forConst := nn.NewLinear(src, 2, 2, true)
	first := nn.NewLinear(src, 2, 2, true)
	second := nn.NewLinear(src, 2, 1, true)
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		x = g.Reshape(x, -1, 2)
		xp := nn.Call(g, "first_linear", first, x)
		cp := nn.Call(g, "linear_for_const", forConst, g.Constant(nn.Zeros(1, 2)))
		cp = g.Expand(cp, 2, 2)
		h := g.Reshape(unary(g, "Tanh", binary(g, "Add", cp, xp)), -1, 2)
		h = g.Reshape(nn.Call(g, "second_linear", second, h), 1, 2)
		return binary(g, "MatMul", g.Softmax(h, 1, false), x)
	}, forConst, first, second)
}

// reduceMaxAll reduces over every axis and returns a 1-element vector.
func reduceMaxAll() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return g.Unsqueeze(g.Reduce("ReduceMax", x, nil, false), 0)
	})
}

func reduceMaxAxis(axis int) nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return g.Reduce("ReduceMax", x, []int{axis}, false)
	})
}

// resizeConv doubles the spatial size (nearest) and applies a 2x2
// convolution without bias.
func resizeConv(src *random.Source) nn.Module {
	conv1 := nn.NewConv2d(src, 2, 2, nn.ConvConfig{Kernel: []int{2}, NoBias: true})
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		x = nn.InterpolateOp(g, x, nn.UpsampleConfig{Mode: "nearest", Scale: []float32{2}})
		return nn.Call(g, "conv1", conv1, x)
	}, conv1)
}

// scaleByMean multiplies x by its spatial mean.
func scaleByMean() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return binary(g, "Mul", g.Reduce("ReduceMean", x, []int{2, 3}, true), x)
	})
}

// gatherMultiOutput casts a projection to int64, picks row 0 and sums
// three float casts of it.
func gatherMultiOutput(src *random.Source) nn.Module {
	lin := nn.NewLinear(src, 2, 2, false)
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		p := g.Cast(nn.Call(g, "lin_inp", lin, x), tensor.Int64)
		row := g.Gather(p, 0, 1)
		a, b, c := g.Cast(row, tensor.Float32), g.Cast(row, tensor.Float32), g.Cast(row, tensor.Float32)
		return binary(g, "Add", binary(g, "Add", a, b), c)
	}, lin)
}

// unsqueezeConv adds a batch axis and applies a 1x1 convolution.
func unsqueezeConv(src *random.Source) nn.Module {
	conv := conv1x1(src, 3)
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return nn.Call(g, "conv", conv, g.Unsqueeze(x, 0))
	}, conv)
}

// squeezeConv drops every unit axis and applies a 1x1 convolution.
func squeezeConv(src *random.Source) nn.Module {
	conv := conv1x1(src, 3)
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return nn.Call(g, "conv", conv, g.Squeeze(x))
	}, conv)
}

// poolConv1d is 1-d max pooling followed by a 1-d convolution.
func poolConv1d(src *random.Source) nn.Module {
	pool := nn.NewMaxPool1d(nn.PoolConfig{Kernel: []int{3}, Stride: []int{2}, Padding: []int{1}})
	conv := nn.NewConv1d(src, 2, 2, nn.ConvConfig{Kernel: []int{3}, Padding: []int{1}})
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return nn.Call(g, "conv", conv, nn.Call(g, "pool", pool, x))
	}, conv)
}

// convResizePool1d convolves in 2-d, flattens the spatial axes and pools
// the result in 1-d.
func convResizePool1d(src *random.Source) nn.Module {
	pool := nn.NewMaxPool1d(nn.PoolConfig{Kernel: []int{3}, Stride: []int{2}, Padding: []int{1}})
	conv := nn.NewConv2d(src, 2, 2, nn.ConvConfig{Kernel: []int{3}, Padding: []int{1}})
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		batch, channels := size(g, x, 0), size(g, x, 1)
		x = nn.Call(g, "conv", conv, x)
		x = view(g, x, vec(g, batch, channels, g.ConstInts(-1)))
		return nn.Call(g, "pool", pool, x)
	}, conv)
}

// mish is x * tanh(softplus(x)).
func mish() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return binary(g, "Mul", x, unary(g, "Tanh", unary(g, "Softplus", x)))
	})
}

// padToInput max-pools by 2 and pads the result back to the input size
// with pads computed from both shapes.
func padToInput() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		y := nn.MaxPoolOp(g, x, nn.PoolConfig{Kernel: []int{2}})
		diffH := binary(g, "Sub", size(g, x, 2), size(g, y, 2))
		diffW := binary(g, "Sub", size(g, x, 3), size(g, y, 3))
		top := binary(g, "Div", diffH, constInt(g, 2))
		left := binary(g, "Div", diffW, constInt(g, 2))
		bottom := binary(g, "Sub", diffH, top)
		right := binary(g, "Sub", diffW, left)
		zeros := g.ConstInts(0, 0)
		pads := vec(g, zeros, top, left, zeros, bottom, right)
		return g.PadDynamic(y, pads, tensor.PadConstant, 0)
	})
}

// normalizeFusion is x / sqrt(max(sum(x^2, 1), 1e-8)) spelled out op by op.
func normalizeFusion() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		sum := g.Reduce("ReduceSum", binary(g, "Mul", x, x), []int{1}, true)
		clipped := g.Clip(sum, 1e-8, inf)
		return binary(g, "Mul", x, unary(g, "Reciprocal", unary(g, "Sqrt", clipped)))
	})
}
