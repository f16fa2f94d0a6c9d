package onnx

import (
	"fmt"
)

// Highest IR version the checker knows about.
const maxIRVersion = 8

// CheckModel validates the structure of m. It returns the first problem
// found as a *CheckError; use errors.Is with the Err* sentinels to classify
// it.
func CheckModel(m *ModelProto) error {
	if m.IRVersion < 3 || m.IRVersion > maxIRVersion {
		return checkErr("model", ErrIRVersion, "ir_version %d outside [3, %d]", m.IRVersion, maxIRVersion)
	}
	opset, err := checkOpsetImport(m.OpsetImport)
	if err != nil {
		return err
	}
	g := m.Graph
	if g == nil {
		return &CheckError{Where: "model", Err: ErrNoGraph}
	}
	if g.Name == "" {
		return &CheckError{Where: "graph", Err: ErrGraphName}
	}

	defined := make(map[string]bool, len(g.Inputs)+len(g.Initializers)+len(g.Nodes))
	inputs := make(map[string]bool, len(g.Inputs))
	for i := range g.Inputs {
		vi := &g.Inputs[i]
		where := "graph input " + vi.Name
		if inputs[vi.Name] {
			return checkErr(where, ErrDuplicateValue, "declared twice")
		}
		if err := checkValueInfo(where, vi); err != nil {
			return err
		}
		inputs[vi.Name] = true
		defined[vi.Name] = true
	}

	inits := make(map[string]bool, len(g.Initializers))
	for i := range g.Initializers {
		t := &g.Initializers[i]
		where := "initializer " + t.Name
		if t.Name == "" {
			return checkErr("initializer", ErrInitializer, "initializer %d has no name", i)
		}
		if inits[t.Name] {
			return checkErr(where, ErrDuplicateValue, "declared twice")
		}
		if err := checkTensor(where, t); err != nil {
			return err
		}
		if m.IRVersion < 4 && !inputs[t.Name] {
			return checkErr(where, ErrInitializerDecl, "required for ir_version %d", m.IRVersion)
		}
		inits[t.Name] = true
		defined[t.Name] = true
	}

	for i := range g.Nodes {
		if err := checkNode(&g.Nodes[i], i, opset, defined); err != nil {
			return err
		}
	}

	for i := range g.Outputs {
		vi := &g.Outputs[i]
		where := "graph output " + vi.Name
		if err := checkValueInfo(where, vi); err != nil {
			return err
		}
		if !defined[vi.Name] {
			return &CheckError{Where: where, Err: ErrMissingOutput}
		}
	}
	for i := range g.ValueInfo {
		vi := &g.ValueInfo[i]
		if err := checkValueInfo("value_info "+vi.Name, vi); err != nil {
			return err
		}
	}
	return nil
}

func checkOpsetImport(imports []OperatorSetID) (int64, error) {
	var opset int64
	found := false
	for _, imp := range imports {
		if imp.Domain != "" && imp.Domain != "ai.onnx" {
			return 0, checkErr("model", ErrOpset, "unsupported domain %q", imp.Domain)
		}
		if found {
			return 0, checkErr("model", ErrOpset, "default domain imported twice")
		}
		found = true
		opset = imp.Version
	}
	if !found {
		return 0, checkErr("model", ErrOpset, "no default-domain opset import")
	}
	if opset < MinOpset || opset > MaxOpset {
		return 0, checkErr("model", ErrOpset, "version %d outside [%d, %d]", opset, MinOpset, MaxOpset)
	}
	return opset, nil
}

func nodeLabel(n *NodeProto, idx int) string {
	if n.Name != "" {
		return "node " + n.Name
	}
	return fmt.Sprintf("node %d (%s)", idx, n.OpType)
}

func checkNode(n *NodeProto, idx int, opset int64, defined map[string]bool) error {
	where := nodeLabel(n, idx)
	if n.Domain != "" && n.Domain != "ai.onnx" {
		return checkErr(where, ErrUnknownOp, "domain %q", n.Domain)
	}
	schema, ok := lookupSchema(n.OpType, opset)
	if !ok {
		return checkErr(where, ErrUnknownOp, "%s is not defined in opset %d", n.OpType, opset)
	}
	if schema.deprecated {
		return checkErr(where, ErrUnknownOp, "%s is deprecated since opset %d", n.OpType, schema.since)
	}

	if len(n.Inputs) < schema.minIn || len(n.Inputs) > schema.maxIn {
		return checkErr(where, ErrNodeArity, "%s-%d takes %s inputs, got %d",
			n.OpType, schema.since, arityRange(schema.minIn, schema.maxIn), len(n.Inputs))
	}
	if len(n.Outputs) < schema.minOut || len(n.Outputs) > schema.maxOut {
		return checkErr(where, ErrNodeArity, "%s-%d takes %s outputs, got %d",
			n.OpType, schema.since, arityRange(schema.minOut, schema.maxOut), len(n.Outputs))
	}
	for i := 0; i < schema.minIn; i++ {
		if n.Inputs[i] == "" {
			return checkErr(where, ErrNodeArity, "required input %d is empty", i)
		}
	}

	if err := checkAttributes(where, n, schema); err != nil {
		return err
	}

	for _, in := range n.Inputs {
		if in != "" && !defined[in] {
			return checkErr(where, ErrUndefinedValue, "input %q", in)
		}
	}
	for _, out := range n.Outputs {
		if out == "" {
			continue
		}
		if defined[out] {
			return checkErr(where, ErrDuplicateValue, "output %q", out)
		}
		defined[out] = true
	}
	return nil
}

func arityRange(lo, hi int) string {
	switch {
	case lo == hi:
		return fmt.Sprint(lo)
	case hi == variadic:
		return fmt.Sprintf("at least %d", lo)
	default:
		return fmt.Sprintf("%d to %d", lo, hi)
	}
}

func checkAttributes(where string, n *NodeProto, schema *opSchema) error {
	seen := make(map[string]bool, len(n.Attributes))
	for i := range n.Attributes {
		a := &n.Attributes[i]
		spec, ok := schema.attrs[a.Name]
		if !ok {
			return checkErr(where, ErrAttribute, "%s-%d has no attribute %q", n.OpType, schema.since, a.Name)
		}
		if seen[a.Name] {
			return checkErr(where, ErrAttribute, "attribute %q set twice", a.Name)
		}
		seen[a.Name] = true
		if a.Type != spec.typ {
			return checkErr(where, ErrAttribute, "attribute %q has type %s, want %s",
				a.Name, attributeTypeNames[a.Type], attributeTypeNames[spec.typ])
		}
		if a.Type == AttributeProtoTensor {
			if a.T == nil {
				return checkErr(where, ErrAttribute, "attribute %q has no tensor", a.Name)
			}
			if err := checkTensor(where+" attribute "+a.Name, a.T); err != nil {
				return err
			}
		}
	}
	for name, spec := range schema.attrs {
		if spec.required && !seen[name] {
			return checkErr(where, ErrAttribute, "missing required attribute %q", name)
		}
	}
	if schema.oneAttr && len(seen) != 1 {
		return checkErr(where, ErrAttribute, "%s needs exactly one value attribute, got %d", n.OpType, len(seen))
	}
	return nil
}

func checkValueInfo(where string, vi *ValueInfoProto) error {
	if vi.Name == "" {
		return checkErr(where, ErrValueType, "value has no name")
	}
	if vi.Type == nil || vi.Type.TensorType == nil {
		return &CheckError{Where: where, Err: ErrValueType}
	}
	tt := vi.Type.TensorType
	if tt.ElemType == TensorProtoUndefined {
		return checkErr(where, ErrValueType, "element type is undefined")
	}
	if tt.Shape == nil {
		return nil
	}
	for j, d := range tt.Shape.Dims {
		if d.DimParam == "" && d.DimValue < 0 {
			return checkErr(where, ErrDimension, "dim %d is %d", j, d.DimValue)
		}
	}
	return nil
}

func checkTensor(where string, t *TensorProto) error {
	n := int64(1)
	for j, d := range t.Dims {
		if d < 0 {
			return checkErr(where, ErrInitializer, "dim %d is %d", j, d)
		}
		n *= d
	}
	size := elemSize(t.DataType)
	if size == 0 {
		return checkErr(where, ErrInitializer, "data type %d has no fixed size", t.DataType)
	}
	if len(t.RawData) > 0 {
		if int64(len(t.RawData)) != n*int64(size) {
			return checkErr(where, ErrInitializer, "raw_data has %d bytes, dims %v need %d",
				len(t.RawData), t.Dims, n*int64(size))
		}
		return nil
	}
	var got int64
	switch t.DataType {
	case TensorProtoFloat:
		got = int64(len(t.FloatData))
	case TensorProtoInt64:
		got = int64(len(t.Int64Data))
	case TensorProtoInt32, TensorProtoInt16, TensorProtoInt8,
		TensorProtoUint16, TensorProtoUint8, TensorProtoBool, TensorProtoFloat16:
		got = int64(len(t.Int32Data))
	}
	if got != n {
		return checkErr(where, ErrInitializer, "has %d elements, dims %v need %d", got, t.Dims, n)
	}
	return nil
}
