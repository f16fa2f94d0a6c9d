package onnx

import "sort"

// variadic marks an open upper bound on inputs or outputs.
const variadic = 1 << 30

// Supported range of default-domain opsets.
const (
	MinOpset = 7
	MaxOpset = 13
)

// opSchema is one version of an operator's signature.
type opSchema struct {
	since      int64
	deprecated bool
	minIn      int
	maxIn      int
	minOut     int
	maxOut     int
	attrs      map[string]attrSpec
	// oneAttr requires exactly one of attrs to be present.
	oneAttr bool
}

type attrSpec struct {
	typ      int32
	required bool
}

func opt(typ int32) attrSpec { return attrSpec{typ: typ} }

func req(typ int32) attrSpec { return attrSpec{typ: typ, required: true} }

const (
	aInt     = AttributeProtoInt
	aInts    = AttributeProtoInts
	aFloat   = AttributeProtoFloat
	aFloats  = AttributeProtoFloats
	aString  = AttributeProtoString
	aStrings = AttributeProtoStrings
	aTensor  = AttributeProtoTensor
)

func versions(since []int64, in, out [2]int, attrs map[string]attrSpec) []opSchema {
	s := make([]opSchema, len(since))
	for i, v := range since {
		s[i] = opSchema{since: v, minIn: in[0], maxIn: in[1], minOut: out[0], maxOut: out[1], attrs: attrs}
	}
	return s
}

var (
	one2one   = [2]int{1, 1}
	two2one   = [2]int{2, 2}
	noAttrs   = map[string]attrSpec{}
	axisAttr  = map[string]attrSpec{"axis": opt(aInt)}
	convAttrs = map[string]attrSpec{
		"auto_pad": opt(aString), "dilations": opt(aInts), "group": opt(aInt),
		"kernel_shape": opt(aInts), "pads": opt(aInts), "strides": opt(aInts),
	}
	convTransposeAttrs = map[string]attrSpec{
		"auto_pad": opt(aString), "dilations": opt(aInts), "group": opt(aInt),
		"kernel_shape": opt(aInts), "pads": opt(aInts), "strides": opt(aInts),
		"output_padding": opt(aInts), "output_shape": opt(aInts),
	}
	reduceAttrs = map[string]attrSpec{"axes": opt(aInts), "keepdims": opt(aInt)}
)

func unaryVersions(since ...int64) []opSchema {
	return versions(since, one2one, one2one, noAttrs)
}

func binaryVersions(since ...int64) []opSchema {
	return versions(since, two2one, one2one, noAttrs)
}

func concat(parts ...[]opSchema) []opSchema {
	var out []opSchema
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// schemas lists, per operator, the signature changes between opset 1 and
// MaxOpset in ascending since-version order.
var schemas = map[string][]opSchema{
	"Add": binaryVersions(7, 13),
	"Sub": binaryVersions(7, 13),
	"Mul": binaryVersions(7, 13),
	"Div": binaryVersions(7, 13),
	"Pow": binaryVersions(7, 12, 13),
	"Max": versions([]int64{8, 12, 13}, [2]int{1, variadic}, one2one, noAttrs),
	"Min": versions([]int64{8, 12, 13}, [2]int{1, variadic}, one2one, noAttrs),

	"MatMul": binaryVersions(1, 9, 13),
	"Gemm": concat(
		versions([]int64{7, 9}, [2]int{3, 3}, one2one, map[string]attrSpec{
			"alpha": opt(aFloat), "beta": opt(aFloat), "transA": opt(aInt), "transB": opt(aInt),
		}),
		versions([]int64{11, 13}, [2]int{2, 3}, one2one, map[string]attrSpec{
			"alpha": opt(aFloat), "beta": opt(aFloat), "transA": opt(aInt), "transB": opt(aInt),
		}),
	),

	"Sqrt":       unaryVersions(6, 13),
	"Exp":        unaryVersions(6, 13),
	"Log":        unaryVersions(6, 13),
	"Reciprocal": unaryVersions(6, 13),
	"Neg":        unaryVersions(6, 13),
	"Abs":        unaryVersions(6, 13),
	"Relu":       unaryVersions(6, 13),
	"Sigmoid":    unaryVersions(6, 13),
	"Tanh":       unaryVersions(6, 13),
	"Softplus":   unaryVersions(1),
	"Softmax":    versions([]int64{1, 11, 13}, one2one, one2one, axisAttr),
	"LogSoftmax": versions([]int64{1, 11, 13}, one2one, one2one, axisAttr),
	"Clip": concat(
		versions([]int64{6}, one2one, one2one, map[string]attrSpec{"min": opt(aFloat), "max": opt(aFloat)}),
		versions([]int64{11, 12, 13}, [2]int{1, 3}, one2one, noAttrs),
	),

	"Identity": unaryVersions(1, 13),
	"Dropout": concat(
		versions([]int64{7, 10}, one2one, [2]int{1, 2}, map[string]attrSpec{"ratio": opt(aFloat)}),
		versions([]int64{12, 13}, [2]int{1, 3}, [2]int{1, 2}, map[string]attrSpec{"seed": opt(aInt)}),
	),
	"Constant": concat(
		versions([]int64{9, 11}, [2]int{0, 0}, one2one, map[string]attrSpec{"value": req(aTensor)}),
		[]opSchema{
			{since: 12, maxOut: 1, minOut: 1, oneAttr: true, attrs: map[string]attrSpec{
				"value": opt(aTensor), "value_float": opt(aFloat), "value_floats": opt(aFloats),
				"value_int": opt(aInt), "value_ints": opt(aInts),
				"value_string": opt(aString), "value_strings": opt(aStrings),
			}},
			{since: 13, maxOut: 1, minOut: 1, oneAttr: true, attrs: map[string]attrSpec{
				"value": opt(aTensor), "value_float": opt(aFloat), "value_floats": opt(aFloats),
				"value_int": opt(aInt), "value_ints": opt(aInts),
				"value_string": opt(aString), "value_strings": opt(aStrings),
			}},
		},
	),
	"ConstantOfShape": versions([]int64{9}, one2one, one2one, map[string]attrSpec{"value": opt(aTensor)}),
	"Cast":            versions([]int64{6, 9, 13}, one2one, one2one, map[string]attrSpec{"to": req(aInt)}),
	"Shape":           unaryVersions(1, 13),

	"Reshape":   binaryVersions(5, 13),
	"Transpose": versions([]int64{1, 13}, one2one, one2one, map[string]attrSpec{"perm": opt(aInts)}),
	"Squeeze": concat(
		versions([]int64{1, 11}, one2one, one2one, map[string]attrSpec{"axes": opt(aInts)}),
		versions([]int64{13}, [2]int{1, 2}, one2one, noAttrs),
	),
	"Unsqueeze": concat(
		versions([]int64{1, 11}, one2one, one2one, map[string]attrSpec{"axes": req(aInts)}),
		versions([]int64{13}, two2one, one2one, noAttrs),
	),
	"Concat": versions([]int64{4, 11, 13}, [2]int{1, variadic}, one2one, map[string]attrSpec{"axis": req(aInt)}),
	"Split": concat(
		versions([]int64{2, 11}, one2one, [2]int{1, variadic}, map[string]attrSpec{"axis": opt(aInt), "split": opt(aInts)}),
		versions([]int64{13}, [2]int{1, 2}, [2]int{1, variadic}, axisAttr),
	),
	"Slice": concat(
		versions([]int64{1}, one2one, one2one, map[string]attrSpec{
			"starts": req(aInts), "ends": req(aInts), "axes": opt(aInts),
		}),
		versions([]int64{10, 11, 13}, [2]int{3, 5}, one2one, noAttrs),
	),
	"Gather":  versions([]int64{1, 11, 13}, two2one, one2one, axisAttr),
	"Flatten": versions([]int64{1, 9, 11, 13}, one2one, one2one, axisAttr),
	"Expand":  binaryVersions(8, 13),
	"Pad": concat(
		versions([]int64{2}, one2one, one2one, map[string]attrSpec{
			"pads": req(aInts), "mode": opt(aString), "value": opt(aFloat),
		}),
		versions([]int64{11, 13}, [2]int{2, 3}, one2one, map[string]attrSpec{"mode": opt(aString)}),
	),

	"Conv":          versions([]int64{1, 11}, [2]int{2, 3}, one2one, convAttrs),
	"ConvTranspose": versions([]int64{1, 11}, [2]int{2, 3}, one2one, convTransposeAttrs),
	"MaxPool": concat(
		versions([]int64{8}, one2one, [2]int{1, 2}, map[string]attrSpec{
			"auto_pad": opt(aString), "kernel_shape": req(aInts), "pads": opt(aInts),
			"storage_order": opt(aInt), "strides": opt(aInts),
		}),
		versions([]int64{10, 11, 12}, one2one, [2]int{1, 2}, map[string]attrSpec{
			"auto_pad": opt(aString), "ceil_mode": opt(aInt), "dilations": opt(aInts),
			"kernel_shape": req(aInts), "pads": opt(aInts), "storage_order": opt(aInt), "strides": opt(aInts),
		}),
	),
	"AveragePool": concat(
		versions([]int64{7}, one2one, one2one, map[string]attrSpec{
			"auto_pad": opt(aString), "count_include_pad": opt(aInt), "kernel_shape": req(aInts),
			"pads": opt(aInts), "strides": opt(aInts),
		}),
		versions([]int64{10, 11}, one2one, one2one, map[string]attrSpec{
			"auto_pad": opt(aString), "ceil_mode": opt(aInt), "count_include_pad": opt(aInt),
			"kernel_shape": req(aInts), "pads": opt(aInts), "strides": opt(aInts),
		}),
	),
	"BatchNormalization": concat(
		versions([]int64{7}, [2]int{5, 5}, [2]int{1, 5}, map[string]attrSpec{
			"epsilon": opt(aFloat), "momentum": opt(aFloat), "spatial": opt(aInt),
		}),
		versions([]int64{9}, [2]int{5, 5}, [2]int{1, 5}, map[string]attrSpec{
			"epsilon": opt(aFloat), "momentum": opt(aFloat),
		}),
	),
	"InstanceNormalization": versions([]int64{6}, [2]int{3, 3}, one2one, map[string]attrSpec{"epsilon": opt(aFloat)}),
	"Upsample": concat(
		versions([]int64{7}, one2one, one2one, map[string]attrSpec{"mode": opt(aString), "scales": req(aFloats)}),
		versions([]int64{9}, two2one, one2one, map[string]attrSpec{"mode": opt(aString)}),
		[]opSchema{{since: 10, deprecated: true}},
	),
	"Resize": concat(
		versions([]int64{10}, two2one, one2one, map[string]attrSpec{"mode": opt(aString)}),
		versions([]int64{11}, [2]int{3, 4}, one2one, resizeAttrs),
		versions([]int64{13}, [2]int{1, 4}, one2one, resizeAttrs),
	),

	"ReduceSum": concat(
		versions([]int64{1, 11}, one2one, one2one, reduceAttrs),
		versions([]int64{13}, [2]int{1, 2}, one2one, map[string]attrSpec{
			"keepdims": opt(aInt), "noop_with_empty_axes": opt(aInt),
		}),
	),
	"ReduceMean": versions([]int64{1, 11, 13}, one2one, one2one, reduceAttrs),
	"ReduceMax":  versions([]int64{1, 11, 12, 13}, one2one, one2one, reduceAttrs),
	"ReduceL2":   versions([]int64{1, 11, 13}, one2one, one2one, reduceAttrs),

	"LSTM": versions([]int64{7}, [2]int{3, 8}, [2]int{0, 3}, map[string]attrSpec{
		"activation_alpha": opt(aFloats), "activation_beta": opt(aFloats), "activations": opt(aStrings),
		"clip": opt(aFloat), "direction": opt(aString), "hidden_size": opt(aInt), "input_forget": opt(aInt),
	}),
}

var resizeAttrs = map[string]attrSpec{
	"coordinate_transformation_mode": opt(aString), "cubic_coeff_a": opt(aFloat),
	"exclude_outside": opt(aInt), "extrapolation_value": opt(aFloat),
	"mode": opt(aString), "nearest_mode": opt(aString),
}

// lookupSchema returns the signature of opType in effect at opset.
func lookupSchema(opType string, opset int64) (*opSchema, bool) {
	vs, ok := schemas[opType]
	if !ok {
		return nil, false
	}
	i := sort.Search(len(vs), func(i int) bool { return vs[i].since > opset })
	if i == 0 {
		return nil, false
	}
	return &vs[i-1], true
}

// KnownOps returns the operators the checker has schemas for.
func KnownOps() []string {
	ops := make([]string, 0, len(schemas))
	for op := range schemas {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
