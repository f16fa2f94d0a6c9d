package onnx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/onnxgen/internal/onnx/operators"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// Value is a handle to a tensor in a graph under construction. The builder
// evaluates every node as soon as it is added, so each Value also carries
// the traced result for the sample inputs. The zero Value stands for a
// skipped optional input.
type Value struct {
	name string
	t    *tensor.RawTensor
}

// Name returns the graph name of the value.
func (v Value) Name() string { return v.name }

// Tensor returns the traced tensor.
func (v Value) Tensor() *tensor.RawTensor { return v.t }

// Shape returns the traced shape.
func (v Value) Shape() tensor.Shape {
	if v.t == nil {
		return nil
	}
	return v.t.Shape()
}

// Rank returns the number of dimensions of the traced tensor.
func (v Value) Rank() int { return len(v.Shape()) }

// DType returns the traced element type.
func (v Value) DType() tensor.DataType {
	if v.t == nil {
		return 0
	}
	return v.t.DType()
}

// Valid reports whether v refers to a traced tensor.
func (v Value) Valid() bool { return v.t != nil }

var errInvalidValue = errors.New("invalid value (an earlier graph operation failed)")

// GraphBuilder assembles an ONNX graph node by node, tracing each node on a
// backend as it goes. Errors are sticky: after the first failure every
// further call is a no-op returning the zero Value, and Err reports it.
type GraphBuilder struct {
	name  string
	opset int64

	nodes        []NodeProto
	inputs       []ValueInfoProto
	outputs      []ValueInfoProto
	initializers []TensorProto

	// produced maps a value name to the index of the node that produced it.
	produced map[string]int
	renamed  map[string]string
	used     map[string]bool
	values   map[string]*tensor.RawTensor
	params   map[*tensor.RawTensor]string
	scope    []string
	next     int

	registry *operators.Registry
	ctx      *operators.Context
	err      error
}

// NewGraphBuilder creates a builder for a graph named name that targets
// the given default-domain opset.
func NewGraphBuilder(name string, opset int64, backend tensor.Backend) *GraphBuilder {
	return &GraphBuilder{
		name:     name,
		opset:    opset,
		produced: make(map[string]int),
		renamed:  make(map[string]string),
		used:     make(map[string]bool),
		values:   make(map[string]*tensor.RawTensor),
		params:   make(map[*tensor.RawTensor]string),
		registry: operators.NewRegistry(),
		ctx:      &operators.Context{Backend: backend, Opset: opset},
	}
}

// Opset returns the targeted opset version.
func (g *GraphBuilder) Opset() int64 { return g.opset }

// Err returns the first error encountered while building.
func (g *GraphBuilder) Err() error { return g.err }

// Fail records err as the build error unless one is already set, and
// returns the zero Value. Layers use it to reject arguments.
func (g *GraphBuilder) Fail(err error) Value {
	return g.fail(err)
}

func (g *GraphBuilder) fail(err error) Value {
	if g.err == nil {
		g.err = err
	}
	return Value{}
}

// Scope pushes a name onto the parameter prefix and returns the function
// that pops it:
//
//	defer g.Scope("conv1")()
func (g *GraphBuilder) Scope(name string) func() {
	g.scope = append(g.scope, name)
	n := len(g.scope)
	return func() { g.scope = g.scope[:n-1] }
}

func (g *GraphBuilder) uniqueName(base string) string {
	name := base
	for i := 1; g.used[name]; i++ {
		name = base + "_" + strconv.Itoa(i)
	}
	g.used[name] = true
	return name
}

func (g *GraphBuilder) newValueName() string {
	for {
		g.next++
		name := strconv.Itoa(g.next)
		if !g.used[name] {
			g.used[name] = true
			return name
		}
	}
}

// Input declares a graph input with the sample tensor that will be fed
// to it.
func (g *GraphBuilder) Input(name string, sample *tensor.RawTensor) Value {
	if g.err != nil {
		return Value{}
	}
	if g.used[name] {
		return g.fail(fmt.Errorf("graph input %q: name already used", name))
	}
	g.used[name] = true
	g.inputs = append(g.inputs, ValueInfoFor(name, sample))
	g.values[name] = sample
	return Value{name: name, t: sample}
}

// Param adds an initializer named after the current scope, e.g.
// "features.0.weight". Passing the same tensor again returns the existing
// initializer, so a layer applied twice shares its weights.
func (g *GraphBuilder) Param(name string, t *tensor.RawTensor) Value {
	if g.err != nil {
		return Value{}
	}
	if existing, ok := g.params[t]; ok {
		return Value{name: existing, t: t}
	}
	full := g.uniqueName(strings.Join(append(append([]string(nil), g.scope...), name), "."))
	g.initializers = append(g.initializers, TensorToProto(full, t))
	g.values[full] = t
	g.params[t] = full
	return Value{name: full, t: t}
}

// Constant emits a Constant node holding t.
func (g *GraphBuilder) Constant(t *tensor.RawTensor) Value {
	return g.Op("Constant", nil, AttrTensor("value", t))
}

// ConstInts emits a 1-D int64 Constant.
func (g *GraphBuilder) ConstInts(vals ...int) Value {
	v := make([]int64, len(vals))
	for i, x := range vals {
		v[i] = int64(x)
	}
	return g.Constant(tensor.Int64Vector(v...))
}

// ConstFloats emits a 1-D float32 Constant.
func (g *GraphBuilder) ConstFloats(vals ...float32) Value {
	t, err := tensor.FromFloat32(vals, tensor.Shape{len(vals)})
	if err != nil {
		return g.fail(err)
	}
	return g.Constant(t)
}

// ConstScalar emits a 0-d float32 Constant.
func (g *GraphBuilder) ConstScalar(v float32) Value {
	return g.Constant(tensor.Scalar(v))
}

// Op appends a single-output node and traces it.
func (g *GraphBuilder) Op(opType string, inputs []Value, attrs ...AttributeProto) Value {
	outs := g.OpN(opType, inputs, 1, attrs...)
	if outs == nil {
		return Value{}
	}
	return outs[0]
}

// OpN appends a node with n outputs and traces it. A zero Value among the
// inputs is written as an empty name (skipped optional input), except
// that trailing skipped inputs are dropped.
func (g *GraphBuilder) OpN(opType string, inputs []Value, n int, attrs ...AttributeProto) []Value {
	if g.err != nil {
		return nil
	}
	last := -1
	for i, in := range inputs {
		if in.name != "" {
			if !in.Valid() {
				g.fail(fmt.Errorf("%s input %d: %w", opType, i, errInvalidValue))
				return nil
			}
			last = i
		}
	}
	names := make([]string, last+1)
	for i := range names {
		names[i] = g.resolve(inputs[i].name)
	}

	node := NodeProto{
		Inputs:     names,
		Outputs:    make([]string, n),
		Name:       opType + "_" + strconv.Itoa(len(g.nodes)),
		OpType:     opType,
		Attributes: attrs,
		DocString:  strings.Join(g.scope, "/"),
	}
	for i := range node.Outputs {
		node.Outputs[i] = g.newValueName()
	}

	opNode, err := nodeProtoToOperatorNode(&node)
	if err != nil {
		g.fail(err)
		return nil
	}
	if err := execNode(g.registry, g.ctx, opNode, g.values); err != nil {
		g.fail(err)
		return nil
	}

	idx := len(g.nodes)
	g.nodes = append(g.nodes, node)
	outs := make([]Value, n)
	for i, name := range node.Outputs {
		g.produced[name] = idx
		outs[i] = Value{name: name, t: g.values[name]}
	}
	return outs
}

// Output marks v as a graph output called name. A value produced by a
// node is renamed in place; inputs, initializers and values that are
// already outputs get an Identity node.
func (g *GraphBuilder) Output(v Value, name string) {
	if g.err != nil {
		return
	}
	if !v.Valid() {
		g.fail(fmt.Errorf("graph output %q: %w", name, errInvalidValue))
		return
	}
	v.name = g.resolve(v.name)
	if g.used[name] && name != v.name {
		g.fail(fmt.Errorf("graph output %q: name already used", name))
		return
	}

	idx, fromNode := g.produced[v.name]
	alreadyOutput := false
	for _, out := range g.outputs {
		if out.Name == v.name {
			alreadyOutput = true
		}
	}
	switch {
	case name == v.name:
	case fromNode && !alreadyOutput:
		g.rename(idx, v.name, name)
	default:
		v = g.Op("Identity", []Value{v})
		if g.err != nil {
			return
		}
		g.rename(g.produced[v.name], v.name, name)
	}
	g.outputs = append(g.outputs, ValueInfoFor(name, v.t))
}

func (g *GraphBuilder) rename(producer int, from, to string) {
	for i := producer; i < len(g.nodes); i++ {
		n := &g.nodes[i]
		for j := range n.Inputs {
			if n.Inputs[j] == from {
				n.Inputs[j] = to
			}
		}
		for j := range n.Outputs {
			if n.Outputs[j] == from {
				n.Outputs[j] = to
			}
		}
	}
	g.values[to] = g.values[from]
	delete(g.values, from)
	g.produced[to] = producer
	delete(g.produced, from)
	g.renamed[from] = to
	g.used[to] = true
}

// resolve follows output renames so that Values obtained before Output
// stay usable.
func (g *GraphBuilder) resolve(name string) string {
	for {
		to, ok := g.renamed[name]
		if !ok {
			return name
		}
		name = to
	}
}

// Trace returns the traced tensor of a graph output.
func (g *GraphBuilder) Trace(name string) (*tensor.RawTensor, bool) {
	for _, out := range g.outputs {
		if out.Name == name {
			return g.values[name], true
		}
	}
	return nil, false
}

// ModelOptions controls how the finished graph is wrapped into a model.
type ModelOptions struct {
	ProducerName    string
	ProducerVersion string
	// IRVersion defaults to the IR release that introduced the opset.
	IRVersion int64
	// InitializersAsInputs also lists every initializer as a graph input,
	// the layout IR versions before 4 require.
	InitializersAsInputs bool
}

// IRVersionForOpset returns the IR version released together with opset.
func IRVersionForOpset(opset int64) int64 {
	switch {
	case opset <= 8:
		return 3
	case opset == 9:
		return 4
	case opset == 10:
		return 5
	case opset == 11:
		return 6
	default:
		return 7
	}
}

// Model returns the finished model. The builder can keep being used;
// the returned model does not share node or value-info slices with it.
func (g *GraphBuilder) Model(opts ModelOptions) (*ModelProto, error) {
	if g.err != nil {
		return nil, g.err
	}
	if len(g.outputs) == 0 {
		return nil, fmt.Errorf("graph %q has no outputs", g.name)
	}

	graph := &GraphProto{
		Name:         g.name,
		Nodes:        append([]NodeProto(nil), g.nodes...),
		Initializers: append([]TensorProto(nil), g.initializers...),
		Inputs:       append([]ValueInfoProto(nil), g.inputs...),
		Outputs:      append([]ValueInfoProto(nil), g.outputs...),
	}
	if opts.InitializersAsInputs {
		for i := range g.initializers {
			init := &g.initializers[i]
			graph.Inputs = append(graph.Inputs, ValueInfoFor(init.Name, g.values[init.Name]))
		}
	}

	ir := opts.IRVersion
	if ir == 0 {
		ir = IRVersionForOpset(g.opset)
	}
	return &ModelProto{
		IRVersion:       ir,
		OpsetImport:     []OperatorSetID{{Domain: "", Version: g.opset}},
		ProducerName:    opts.ProducerName,
		ProducerVersion: opts.ProducerVersion,
		Graph:           graph,
	}, nil
}

// ValueInfoFor describes a tensor value with a fully static shape.
func ValueInfoFor(name string, t *tensor.RawTensor) ValueInfoProto {
	shape := &TensorShapeProto{Dims: make([]DimensionProto, len(t.Shape()))}
	for i, d := range t.Shape() {
		shape.Dims[i].DimValue = int64(d)
	}
	return ValueInfoProto{
		Name: name,
		Type: &TypeProto{TensorType: &TensorTypeProto{
			ElemType: ProtoDataType(t.DType()),
			Shape:    shape,
		}},
	}
}

// AttrInt creates an INT attribute.
func AttrInt(name string, v int) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoInt, I: int64(v)}
}

// AttrInts creates an INTS attribute.
func AttrInts(name string, vals ...int) AttributeProto {
	ints := make([]int64, len(vals))
	for i, v := range vals {
		ints[i] = int64(v)
	}
	return AttributeProto{Name: name, Type: AttributeProtoInts, Ints: ints}
}

// AttrFloat creates a FLOAT attribute.
func AttrFloat(name string, v float32) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoFloat, F: v}
}

// AttrFloats creates a FLOATS attribute.
func AttrFloats(name string, vals ...float32) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoFloats, Floats: append([]float32(nil), vals...)}
}

// AttrString creates a STRING attribute.
func AttrString(name, v string) AttributeProto {
	return AttributeProto{Name: name, Type: AttributeProtoString, S: []byte(v)}
}

// AttrTensor creates a TENSOR attribute.
func AttrTensor(name string, t *tensor.RawTensor) AttributeProto {
	tp := TensorToProto("", t)
	return AttributeProto{Name: name, Type: AttributeProtoTensor, T: &tp}
}
