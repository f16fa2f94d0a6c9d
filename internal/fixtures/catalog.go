package fixtures

import (
	"strconv"

	"github.com/born-ml/onnxgen/internal/nn"
	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/random"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// Entry is one step of the catalog. Most entries write a single fixture;
// entries that share inputs between several fixtures list all of them.
type Entry struct {
	Names []string
	Run   func(gen *Generator) error
}

// Names returns every fixture name of the catalog in order.
func Names() []string {
	var names []string
	for _, e := range Catalog() {
		names = append(names, e.Names...)
	}
	return names
}

type draw func(src *random.Source) *tensor.RawTensor

func randn(shape ...int) draw {
	return func(src *random.Source) *tensor.RawTensor { return src.Randn(shape...) }
}

func rand(shape ...int) draw {
	return func(src *random.Source) *tensor.RawTensor { return src.Rand(shape...) }
}

func fixed(t *tensor.RawTensor) draw {
	return func(*random.Source) *tensor.RawTensor { return t }
}

type makeModel func(src *random.Source) nn.Module

// static wraps a model without parameters.
func static(m nn.Module) makeModel {
	return func(*random.Source) nn.Module { return m }
}

// layer draws the input, then builds the model and saves both.
func layer(name string, input draw, model makeModel, opts ...Option) Entry {
	return Entry{Names: []string{name}, Run: func(gen *Generator) error {
		x := input(gen.Source())
		return gen.SaveDataAndModel(name, x, model(gen.Source()), opts...)
	}}
}

// modelFirst is layer for scripts that build the model before drawing
// its input.
func modelFirst(name string, model makeModel, input draw, opts ...Option) Entry {
	return Entry{Names: []string{name}, Run: func(gen *Generator) error {
		m := model(gen.Source())
		return gen.SaveDataAndModel(name, input(gen.Source()), m, opts...)
	}}
}

// withDims rewrites the input dims of a single-fixture entry once it has
// been written.
func withDims(e Entry, dims ...onnx.Dim) Entry {
	run := e.Run
	e.Run = func(gen *Generator) error {
		if err := run(gen); err != nil {
			return err
		}
		return gen.PostprocessModel(e.Names[0], [][]onnx.Dim{dims})
	}
	return e
}

func drawAll(src *random.Source, inputs []draw) []*tensor.RawTensor {
	out := make([]*tensor.RawTensor, len(inputs))
	for i, in := range inputs {
		out[i] = in(src)
	}
	return out
}

// multi draws every input, then builds the model.
func multi(name string, inputs []draw, model func(src *random.Source) MultiInput, opts ...Option) Entry {
	return Entry{Names: []string{name}, Run: func(gen *Generator) error {
		xs := drawAll(gen.Source(), inputs)
		return gen.SaveDataAndModelMultiInputs(name, model(gen.Source()), xs, opts...)
	}}
}

func staticMulti(m MultiInput) func(*random.Source) MultiInput {
	return func(*random.Source) MultiInput { return m }
}

// reduce writes a single-node reduction whose reference output comes
// straight from the backend kernel.
func reduce(name, opType string, kind tensor.ReduceOp, input draw, axes []int, keepDims bool) Entry {
	return Entry{Names: []string{name}, Run: func(gen *Generator) error {
		x := input(gen.Source())
		want := gen.Backend().Reduce(x, kind, axes, keepDims)
		return gen.SaveONNXDataAndModel(name, opType, x, want,
			onnx.AttrInts("axes", axes...), onnx.AttrInt("keepdims", boolInt(keepDims)))
	}}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func ints(v ...int) []int { return v }

func conv2d(in, out int, cfg nn.ConvConfig) makeModel {
	return func(src *random.Source) nn.Module { return nn.NewConv2d(src, in, out, cfg) }
}

func conv1d(in, out int, cfg nn.ConvConfig) makeModel {
	return func(src *random.Source) nn.Module { return nn.NewConv1d(src, in, out, cfg) }
}

func conv3d(in, out int, cfg nn.ConvConfig) makeModel {
	return func(src *random.Source) nn.Module { return nn.NewConv3d(src, in, out, cfg) }
}

func deconv2d(in, out int, cfg nn.ConvConfig) makeModel {
	return func(src *random.Source) nn.Module { return nn.NewConvTranspose2d(src, in, out, cfg) }
}

func deconv3d(in, out int, cfg nn.ConvConfig) makeModel {
	return func(src *random.Source) nn.Module { return nn.NewConvTranspose3d(src, in, out, cfg) }
}

func op(opType string, attrs ...onnx.AttributeProto) nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return g.Op(opType, []onnx.Value{x}, attrs...)
	})
}

// slice is x[..., 1:-1, 0:3].
func slice() nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return g.Slice(x, ints(1, 0), ints(-1, 3), ints(2, 3), nil)
	})
}

func gather(index, axis int) nn.Module {
	return fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
		return g.Gather(x, index, axis)
	})
}

// sameInput saves one input under several models that share it.
func sameInput(names []string, input draw, save func(gen *Generator, name string, x *tensor.RawTensor) error) Entry {
	return Entry{Names: names, Run: func(gen *Generator) error {
		x := input(gen.Source())
		for _, name := range names {
			if err := save(gen, name, x); err != nil {
				return err
			}
		}
		return nil
	}}
}

// Catalog returns every fixture in generation order. Inputs and
// parameters are drawn from the generator's source in this order, so the
// order is part of the output.
//
//nolint:funlen,maintidx // one line per fixture
func Catalog() []Entry {
	sigmoidPool := func(*random.Source) nn.Module {
		return nn.NewSequential(
			nn.NewMaxPool2d(nn.PoolConfig{Kernel: ints(4), Stride: ints(2), Padding: ints(1, 2)}),
			nn.NewSigmoid(),
		)
	}
	avgPool := static(nn.NewAvgPool2d(nn.PoolConfig{Kernel: ints(3), Stride: ints(2), Padding: ints(1)}))
	dynDims := []onnx.Dim{"batch_size", 2, "height", "width"}

	return []Entry{
		layer("maxpooling", randn(1, 3, 10, 9),
			static(nn.NewMaxPool2d(nn.PoolConfig{Kernel: ints(5, 3), Stride: ints(3), Padding: ints(1)}))),
		layer("convolution", randn(1, 3, 10, 10),
			conv2d(3, 5, nn.ConvConfig{Kernel: ints(5), Stride: ints(2), Padding: ints(1)})),
		layer("deconvolution", randn(1, 3, 10, 10),
			deconv2d(3, 5, nn.ConvConfig{Kernel: ints(5), Stride: ints(2), Padding: ints(1)})),
		layer("linear", randn(2, 3), func(src *random.Source) nn.Module { return nn.NewLinear(src, 3, 4, true) }),
		layer("maxpooling_sigmoid", randn(2, 3, 12, 18), sigmoidPool),
		layer("two_convolution", randn(1, 3, 10, 20), func(src *random.Source) nn.Module {
			return nn.NewSequential(
				nn.NewConv2d(src, 3, 6, nn.ConvConfig{Kernel: ints(5, 3), Padding: ints(1)}),
				nn.NewConv2d(src, 6, 4, nn.ConvConfig{Kernel: ints(5), Stride: ints(2), Padding: ints(0, 2)}),
			)
		}),
		layer("two_deconvolution", randn(1, 3, 10, 20), func(src *random.Source) nn.Module {
			return nn.NewSequential(
				nn.NewConvTranspose2d(src, 3, 6, nn.ConvConfig{Kernel: ints(5, 3), Padding: ints(1)}),
				nn.NewConvTranspose2d(src, 6, 4, nn.ConvConfig{Kernel: ints(5), Stride: ints(2), Padding: ints(0, 2)}),
			)
		}),
		layer("two_maxpooling", randn(2, 3, 12, 9), static(nn.NewSequential(
			nn.NewMaxPool2d(nn.PoolConfig{Kernel: ints(5), Stride: ints(1)}),
			nn.NewMaxPool2d(nn.PoolConfig{Kernel: ints(3), Stride: ints(1)}),
		))),
		layer("ReLU", randn(1, 2, 10, 10), static(nn.NewReLU())),
		layer("dropout", randn(2, 3), static(nn.NewDropout(0.5))),
		layer("average_pooling", randn(1, 3, 7, 5), avgPool),
		layer("batch_norm", randn(2, 4, 2, 3), static(nn.NewBatchNorm(4))),
		layer("concatenation", randn(1, 2, 2, 2), concatenation),
		layer("mul", randn(2, 2), sharedLinear),
		multi("multy_inputs", []draw{randn(1, 2, 2, 2), randn(1, 2, 2, 2)}, twoBranches),
		modelFirst("constant", leNet, randn(1, 3, 32, 32)),
		layer("transpose", randn(2, 3), static(fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
			return g.Transpose(unary(g, "Relu", x), 1, 0)
		}))),
		layer("padding", randn(1, 2, 3, 4), static(nn.NewZeroPad2d(4, 3, 2, 1))),
		layer("dynamic_reshape", randn(1, 2, 3, 4), static(channelsLast())),
		layer("resize_nearest", randn(1, 2, 3, 4),
			static(nn.NewUpsample(nn.UpsampleConfig{Mode: "nearest", Scale: []float32{2}}))),
		layer("resize_bilinear", randn(1, 2, 3, 4),
			static(nn.NewUpsample(nn.UpsampleConfig{Mode: "bilinear", Size: ints(6, 8)}))),
		layer("upsample_unfused_opset9_torch1.4", randn(1, 3, 4, 5), func(src *random.Source) nn.Module {
			return convBNUpsample(src, nn.UpsampleConfig{Mode: "nearest", Scale: []float32{2}})
		}),
		layer("resize_nearest_unfused_opset11_torch1.4", randn(1, 3, 4, 5), func(src *random.Source) nn.Module {
			return convBNUpsample(src, nn.UpsampleConfig{Mode: "nearest", Scale: []float32{2}})
		}, WithOpset(11)),
		layer("resize_bilinear_unfused_opset11_torch1.4", randn(1, 3, 4, 5), func(src *random.Source) nn.Module {
			return convBNUpsample(src, nn.UpsampleConfig{Mode: "bilinear", Scale: []float32{2}, AlignCorners: true})
		}, WithOpset(11)),
		layer("upsample_unfused_torch1.2", randn(1, 2, 3, 4), static(nn.NewSequential(
			nn.NewBatchNorm(2),
			nn.NewUpsample(nn.UpsampleConfig{Mode: "nearest", Scale: []float32{2}}),
		))),
		layer("unsqueeze", randn(1, 2, 3), static(fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
			return g.Unsqueeze(x, 1)
		}))),
		layer("deconv_adjpad_2d", randn(1, 2, 4, 5), deconv2d(2, 3, nn.ConvConfig{
			Kernel: ints(3, 2), Stride: ints(1, 2), Padding: ints(1, 2), OutputPadding: ints(0, 1),
		})),
		layer("conv3d", randn(1, 2, 3, 4, 5), conv3d(2, 3, nn.ConvConfig{Kernel: ints(2, 3, 2), NoBias: true})),
		layer("conv3d_bias", randn(1, 2, 3, 4, 5), conv3d(2, 3, nn.ConvConfig{
			Kernel: ints(2, 3, 3), Stride: ints(1, 2, 3), Padding: ints(0, 1, 2), Dilation: ints(1, 2, 3),
		})),
		layer("max_pool3d", randn(1, 2, 3, 4, 6), static(nn.NewMaxPool3d(nn.PoolConfig{
			Kernel: ints(3, 2, 5), Stride: ints(2, 1, 2), Padding: ints(1, 0, 2),
		}))),
		layer("ave_pool3d", randn(1, 2, 3, 5, 6), static(nn.NewAvgPool3d(nn.PoolConfig{
			Kernel: ints(3, 4, 3), Stride: ints(1, 2, 3), Padding: ints(1, 2, 0),
		}))),
		layer("batch_norm_3d", randn(1, 2, 3, 4, 5), static(nn.NewBatchNorm(2))),
		layer("softmax", randn(2, 3), static(nn.NewSoftmax(-1))),
		layer("log_softmax", randn(2, 3), static(nn.NewLogSoftmax(-1))),
		sameInput([]string{"slice", "slice_opset_11"}, randn(1, 2, 4, 4), func(gen *Generator, name string, x *tensor.RawTensor) error {
			if name == "slice_opset_11" {
				return gen.SaveDataAndModel(name, x, slice(), WithOpset(11))
			}
			return gen.SaveDataAndModel(name, x, slice())
		}),
		layer("eltwise3d", randn(1, 1, 2, 3, 4), static(fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
			return binary(g, "Add", x, binary(g, "Mul", x, g.ConstScalar(2.7)))
		}))),
		layer("instancenorm", rand(1, 3, 4, 4), static(nn.NewInstanceNorm(3, true))),
		layer("pool_conv_3d", randn(1, 2, 4, 4, 19), poolConv3d),
		modelFirst("clip", static(fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
			return g.Clip(x, -0.1, 0.2)
		})), rand(1, 10, 2, 2)),
		layer("deconv3d", randn(1, 3, 6, 6, 6), deconv3d(3, 3, nn.ConvConfig{Kernel: ints(3), NoBias: true})),
		layer("deconv3d_bias", randn(1, 3, 5, 4, 4), deconv3d(3, 5, nn.ConvConfig{Kernel: ints(3)})),
		layer("deconv3d_pad", randn(1, 3, 5, 5, 5), deconv3d(3, 2, nn.ConvConfig{
			Kernel: ints(4, 3, 3), Padding: ints(1, 0, 1),
		})),
		layer("deconv3d_adjpad", randn(1, 3, 4, 5, 3), deconv3d(3, 5, nn.ConvConfig{
			Kernel: ints(2, 3, 1), Stride: ints(2), Padding: ints(1, 2, 1), OutputPadding: ints(1),
		})),
		reduce("reduce_mean", "ReduceMean", tensor.ReduceMean, rand(1, 3, 4, 2), ints(2, 3), true),
		reduce("reduce_mean3d", "ReduceMean", tensor.ReduceMean, rand(1, 3, 4, 2, 3), ints(3, 4), true),
		sameInput([]string{"split_1", "split_2", "split_3", "split_4"}, fixed(floatTensor([]float32{1, 2}, 2)),
			func(gen *Generator, name string, x *tensor.RawTensor) error {
				return gen.SaveDataAndModel(name, x, splitConcat())
			}),
		layer("split_max", randn(1, 6, 2, 3), static(splitMax())),
		layer("squeeze", randn(3, 1, 2, 4), static(fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
			return g.Squeeze(x, 1)
		}))),
		multi("div", []draw{randn(1, 3, 2, 2), randn(1, 3, 2, 2)}, staticMulti(func(g *onnx.GraphBuilder, xs []onnx.Value) onnx.Value {
			return binary(g, "Div", xs[0], xs[1])
		})),
		layer("reduceL2", randn(1, 3, 2, 4), static(l2Transpose())),
		layer("softmax_unfused", randn(1, 2, 4, 3), static(softmaxUnfused())),
		layer("flatten_by_prod", randn(1, 2, 3, 4), static(flattenByProd()), WithOpset(11)),
		layer("dynamic_reshape_opset_11", randn(1, 2, 3, 4), static(reshapeByDiv()), WithOpset(11)),
		multi("channel_broadcast", []draw{randn(1, 4, 1, 2), randn(1, 4, 1, 1)}, staticMulti(broadcast)),
		layer("flatten_const", rand(1, 2), static(flattenConst())),
		layer("cast", randn(1, 2), static(fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
			return g.Cast(x, tensor.Float32)
		}))),
		resizeFamily("dynamic_resize", resizeLike, false),
		resizeFamily("dynamic_resize_scale", resizeByScale, true),
		layer("shape_of_constant", fixed(floatTensor([]float32{1, 2, 3, 1, 2, 3}, 2, 3)),
			static(shapeOfConstant()), WithOpset(11)),
		layer("lstm", randn(2, 5, 4), func(src *random.Source) nn.Module { return lstm(src, 4, 3, false) }),
		layer("lstm_bidirectional", randn(2, 5, 4), func(src *random.Source) nn.Module { return lstm(src, 4, 3, true) }),
		layer("matmul_2d", randn(2, 4), static(gramMatrix())),
		layer("matmul_3d", randn(3, 2, 4), static(gramMatrix())),
		layer("matmul_4d", randn(1, 3, 2, 4), static(gramMatrix())),
		reduce("reduce_mean_axis1", "ReduceMean", tensor.ReduceMean, rand(1, 3, 2), ints(1), true),
		reduce("reduce_mean_axis2", "ReduceMean", tensor.ReduceMean, rand(1, 3, 2), ints(2), true),
		layer("expand_batch", randn(1, 1, 2, 2), static(expand(2, 1, 2, 2))),
		layer("expand_channels", randn(1, 1, 2, 2), static(expand(1, 3, 2, 2))),
		layer("expand_hw", randn(1, 2, 1, 1), static(expand(1, 2, 3, 4))),
		layer("reduceL2_subgraph", randn(1, 2, 3, 4), static(normL2())),
		modelFirst("ZeroPad2d", static(nn.NewZeroPad2d(1)), rand(1, 3, 2, 4), WithOpset(11)),
		modelFirst("ReflectionPad2d", static(nn.NewReflectionPad2d(1)), rand(1, 3, 2, 4), WithOpset(11)),
		modelFirst("reduceL2_subgraph_2", static(l2NormSSD()), randn(1, 2, 3, 4)),
		layer("frozenBatchNorm2d", rand(1, 3, 2, 4), static(frozenBatchNorm(3))),
		{
			Names: []string{"upsample_unfused_two_inputs_opset9_torch1.4", "upsample_unfused_two_inputs_opset11_torch1.4"},
			Run: func(gen *Generator) error {
				xs := drawAll(gen.Source(), []draw{randn(1, 3, 4, 6), randn(1, 3, 2, 2)})
				upsampleToOther(gen.Source()) // never exported
				err := gen.SaveDataAndModelMultiInputs("upsample_unfused_two_inputs_opset9_torch1.4",
					upsampleToOther(gen.Source()), xs, WithOpset(9))
				if err != nil {
					return err
				}
				return gen.SaveDataAndModelMultiInputs("upsample_unfused_two_inputs_opset11_torch1.4",
					upsampleToOther(gen.Source()), xs, WithOpset(11))
			},
		},
		layer("batch_norm_subgraph", randn(1, 2, 3, 4), static(frozenBatchNorm(2))),
		layer("gather_scalar", randn(2), static(gather(1, 0))),
		layer("gather", randn(2, 2, 2, 2), static(gather(1, 3))),
		multi("conv_variable_w", []draw{randn(2, 2, 10, 10), randn(2, 2, 2, 2)}, staticMulti(convWithInputs)),
		multi("conv_variable_wb", []draw{randn(2, 2, 5, 5), randn(2, 2, 2, 2), randn(4)}, staticMulti(depthwiseWithInputs)),
		layer("matmul_add", randn(1, 2, 2), func(src *random.Source) nn.Module { return nn.NewLinear(src, 2, 2, true) }),
		reduce("reduce_sum", "ReduceSum", tensor.ReduceSum, rand(1, 3, 4, 2), ints(-1), false),
		layer("expand_neg_batch", randn(1, 2, 2), static(expand(2, 1, 1, 1))),
		layer("lin_with_constant", rand(1, 2, 2), linearWithConstant),
		layer("matmul_with_two_inputs", rand(1, 2, 2), matmulWithTwoInputs),
		layer("pow2", randn(2, 2), static(fn(func(g *onnx.GraphBuilder, x onnx.Value) onnx.Value {
			return binary(g, "Pow", x, g.ConstScalar(2))
		}))),
		layer("exp", randn(2, 2), static(op("Exp"))),
		layer("reduce_max", randn(1, 3, 2, 2), static(reduceMaxAll())),
		sameInput([]string{"reduce_max_axis_0", "reduce_max_axis_1"}, randn(1, 3, 2, 2),
			func(gen *Generator, name string, x *tensor.RawTensor) error {
				axis := 0
				if name == "reduce_max_axis_1" {
					axis = 1
				}
				return gen.SaveDataAndModel(name, x, reduceMaxAxis(axis))
			}),
		layer("resize_opset11_torch1.6", rand(1, 2, 2, 2), resizeConv, WithOpset(11)),
		layer("scale", randn(1, 3, 2, 2), static(scaleByMean())),
		layer("conv1d", randn(1, 3, 25), conv1d(3, 2, nn.ConvConfig{
			Kernel: ints(3), Padding: ints(2), Stride: ints(2), Dilation: ints(2), NoBias: true,
		})),
		layer("conv1d_bias", randn(1, 3, 25), conv1d(3, 2, nn.ConvConfig{Kernel: ints(3)})),
		multi("conv1d_variable_w", []draw{randn(2, 2, 10), randn(2, 2, 2)}, staticMulti(convWithInputs)),
		multi("conv1d_variable_wb", []draw{randn(2, 2, 5), randn(2, 2, 2), randn(4)}, staticMulti(depthwiseWithInputs)),
		layer("gather_multi_output", fixed(nn.Zeros(1, 2, 2)), gatherMultiOutput),
		withDims(layer("unsqueeze_and_conv_dynamic_axes", randn(3, 10, 10), unsqueezeConv),
			3, "height", "width"),
		withDims(layer("squeeze_and_conv_dynamic_axes", randn(2, 1, 3, 3, 3), squeezeConv),
			"batch_size", 1, "channels", "height", "width"),
		withDims(layer("gather_scalar_dynamic_axes", randn(2), static(gather(1, 0))), "shape"),
		withDims(layer("gather_dynamic_axes", randn(2, 2, 2, 2), static(gather(1, 3))), dynDims...),
		sameInput([]string{"slice_dynamic_axes", "slice_opset_11_dynamic_axes"}, randn(1, 2, 4, 4),
			func(gen *Generator, name string, x *tensor.RawTensor) error {
				var opts []Option
				if name == "slice_opset_11_dynamic_axes" {
					opts = append(opts, WithOpset(11))
				}
				if err := gen.SaveDataAndModel(name, x, slice(), opts...); err != nil {
					return err
				}
				return gen.PostprocessModel(name, [][]onnx.Dim{dynDims})
			}),
		withDims(layer("resize_opset11_torch1.6_dynamic_axes", rand(1, 2, 2, 2), resizeConv, WithOpset(11)),
			dynDims...),
		withDims(modelFirst("maxpooling_sigmoid_dynamic_axes", sigmoidPool, randn(2, 3, 12, 18)),
			2, 3, "height", "width"),
		withDims(modelFirst("average_pooling_dynamic_axes", avgPool, randn(1, 3, 7, 5)),
			1, 3, "height", "width"),
		layer("maxpooling_1d", randn(1, 3, 10), static(nn.NewMaxPool1d(nn.PoolConfig{
			Kernel: ints(5), Stride: ints(1), Padding: ints(2),
		}))),
		layer("maxpooling_sigmoid_1d", randn(2, 3, 12), static(nn.NewSequential(
			nn.NewMaxPool1d(nn.PoolConfig{Kernel: ints(4), Stride: ints(2), Padding: ints(2)}),
			nn.NewSigmoid(),
		))),
		layer("two_maxpooling_1d", randn(2, 3, 12), static(nn.NewSequential(
			nn.NewMaxPool1d(nn.PoolConfig{Kernel: ints(5), Stride: ints(1)}),
			nn.NewMaxPool1d(nn.PoolConfig{Kernel: ints(3), Stride: ints(1)}),
		))),
		layer("average_pooling_1d", randn(1, 3, 7), static(nn.NewAvgPool1d(nn.PoolConfig{
			Kernel: ints(3), Stride: ints(2), Padding: ints(1),
		}))),
		layer("pool_conv_1d", randn(1, 2, 4), poolConv1d),
		layer("conv_resize_pool_1d", randn(1, 2, 20, 20), convResizePool1d),
		layer("mish", randn(1, 2, 2, 2), static(mish())),
		layer("calc_pads", randn(1, 1, 3, 4), static(padToInput()), WithOpset(11)),
		layer("normalize_fusion", randn(2, 3), static(normalizeFusion())),
	}
}

// resizeFamily saves one two-input resize model at opsets 9, 10 and 11,
// named <base>_9, <base>_10 and <base>_11.
func resizeFamily(base string, model MultiInput, exportParams bool) Entry {
	opsets := []int64{9, 10, 11}
	names := make([]string, len(opsets))
	for i, v := range opsets {
		names[i] = base + "_" + strconv.FormatInt(v, 10)
	}
	return Entry{Names: names, Run: func(gen *Generator) error {
		xs := drawAll(gen.Source(), []draw{randn(1, 3, 8, 6), randn(1, 3, 4, 3)})
		for i, v := range opsets {
			err := gen.SaveDataAndModelMultiInputs(names[i], model, xs, WithOpset(v), WithExportParams(exportParams))
			if err != nil {
				return err
			}
		}
		return nil
	}}
}
