package onnx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Text renders m in protobuf text format. Fields appear in field-number
// order, floats are printed with %.15g and enum-typed fields by name.
func Text(m *ModelProto) string {
	p := &textPrinter{}
	p.model(m)
	return p.b.String()
}

// StripDocStrings clears every doc_string in m, recursing into attribute
// graphs.
func StripDocStrings(m *ModelProto) {
	m.DocString = ""
	if m.Graph != nil {
		stripGraph(m.Graph)
	}
}

func stripGraph(g *GraphProto) {
	g.DocString = ""
	for i := range g.Nodes {
		n := &g.Nodes[i]
		n.DocString = ""
		for j := range n.Attributes {
			a := &n.Attributes[j]
			a.DocString = ""
			if a.T != nil {
				a.T.DocString = ""
			}
			if a.G != nil {
				stripGraph(a.G)
			}
			for k := range a.Tensors {
				a.Tensors[k].DocString = ""
			}
			for k := range a.Graphs {
				stripGraph(&a.Graphs[k])
			}
		}
	}
	for i := range g.Initializers {
		g.Initializers[i].DocString = ""
	}
	for _, infos := range [][]ValueInfoProto{g.Inputs, g.Outputs, g.ValueInfo} {
		for i := range infos {
			infos[i].DocString = ""
		}
	}
}

type textPrinter struct {
	b     strings.Builder
	depth int
}

func (p *textPrinter) line(format string, args ...any) {
	p.b.WriteString(strings.Repeat("  ", p.depth))
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *textPrinter) open(name string) {
	p.line("%s {", name)
	p.depth++
}

func (p *textPrinter) close() {
	p.depth--
	p.line("}")
}

func (p *textPrinter) str(name, v string) {
	p.line("%s: \"%s\"", name, escapeBytes([]byte(v)))
}

func (p *textPrinter) optStr(name, v string) {
	if v != "" {
		p.str(name, v)
	}
}

func (p *textPrinter) model(m *ModelProto) {
	p.line("ir_version: %d", m.IRVersion)
	p.optStr("producer_name", m.ProducerName)
	p.optStr("producer_version", m.ProducerVersion)
	p.optStr("domain", m.Domain)
	if m.ModelVersion != 0 {
		p.line("model_version: %d", m.ModelVersion)
	}
	p.optStr("doc_string", m.DocString)
	if m.Graph != nil {
		p.open("graph")
		p.graph(m.Graph)
		p.close()
	}
	for _, op := range m.OpsetImport {
		p.open("opset_import")
		p.str("domain", op.Domain)
		p.line("version: %d", op.Version)
		p.close()
	}
	for _, e := range m.MetadataProps {
		p.open("metadata_props")
		p.str("key", e.Key)
		p.str("value", e.Value)
		p.close()
	}
}

func (p *textPrinter) graph(g *GraphProto) {
	for i := range g.Nodes {
		p.open("node")
		p.node(&g.Nodes[i])
		p.close()
	}
	p.optStr("name", g.Name)
	for i := range g.Initializers {
		p.open("initializer")
		p.tensor(&g.Initializers[i])
		p.close()
	}
	p.optStr("doc_string", g.DocString)
	p.valueInfos("input", g.Inputs)
	p.valueInfos("output", g.Outputs)
	p.valueInfos("value_info", g.ValueInfo)
}

func (p *textPrinter) node(n *NodeProto) {
	for _, in := range n.Inputs {
		p.str("input", in)
	}
	for _, out := range n.Outputs {
		p.str("output", out)
	}
	p.optStr("name", n.Name)
	p.str("op_type", n.OpType)
	for i := range n.Attributes {
		p.open("attribute")
		p.attribute(&n.Attributes[i])
		p.close()
	}
	p.optStr("doc_string", n.DocString)
	p.optStr("domain", n.Domain)
}

func (p *textPrinter) tensor(t *TensorProto) {
	for _, d := range t.Dims {
		p.line("dims: %d", d)
	}
	p.line("data_type: %d", t.DataType)
	for _, f := range t.FloatData {
		p.line("float_data: %s", formatFloat(f))
	}
	for _, v := range t.Int32Data {
		p.line("int32_data: %d", v)
	}
	for _, v := range t.Int64Data {
		p.line("int64_data: %d", v)
	}
	p.optStr("name", t.Name)
	if t.RawData != nil {
		p.line("raw_data: \"%s\"", escapeBytes(t.RawData))
	}
	p.optStr("doc_string", t.DocString)
}

func (p *textPrinter) valueInfos(name string, infos []ValueInfoProto) {
	for i := range infos {
		vi := &infos[i]
		p.open(name)
		p.str("name", vi.Name)
		if vi.Type != nil && vi.Type.TensorType != nil {
			tt := vi.Type.TensorType
			p.open("type")
			p.open("tensor_type")
			p.line("elem_type: %d", tt.ElemType)
			if tt.Shape != nil {
				p.open("shape")
				for _, d := range tt.Shape.Dims {
					p.open("dim")
					if d.IsSymbolic() {
						p.str("dim_param", d.DimParam)
					} else {
						p.line("dim_value: %d", d.DimValue)
					}
					p.close()
				}
				p.close()
			}
			p.close()
			p.close()
		}
		p.optStr("doc_string", vi.DocString)
		p.close()
	}
}

//nolint:gocyclo,cyclop // one branch per attribute type
func (p *textPrinter) attribute(a *AttributeProto) {
	p.str("name", a.Name)
	switch a.Type {
	case AttributeProtoFloat:
		p.line("f: %s", formatFloat(a.F))
	case AttributeProtoInt:
		p.line("i: %d", a.I)
	case AttributeProtoString:
		p.line("s: \"%s\"", escapeBytes(a.S))
	case AttributeProtoTensor:
		if a.T != nil {
			p.open("t")
			p.tensor(a.T)
			p.close()
		}
	case AttributeProtoGraph:
		if a.G != nil {
			p.open("g")
			p.graph(a.G)
			p.close()
		}
	case AttributeProtoFloats:
		for _, f := range a.Floats {
			p.line("floats: %s", formatFloat(f))
		}
	case AttributeProtoInts:
		for _, v := range a.Ints {
			p.line("ints: %d", v)
		}
	case AttributeProtoStrings:
		for _, s := range a.Strings {
			p.line("strings: \"%s\"", escapeBytes(s))
		}
	case AttributeProtoTensors:
		for i := range a.Tensors {
			p.open("tensors")
			p.tensor(&a.Tensors[i])
			p.close()
		}
	case AttributeProtoGraphs:
		for i := range a.Graphs {
			p.open("graphs")
			p.graph(&a.Graphs[i])
			p.close()
		}
	}
	p.optStr("doc_string", a.DocString)
	name, ok := attributeTypeNames[a.Type]
	if !ok {
		name = strconv.Itoa(int(a.Type))
	}
	p.line("type: %s", name)
}

func formatFloat(f float32) string {
	v := float64(f)
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', 15, 64)
}

// escapeBytes applies C-style escaping with octal escapes for bytes
// outside printable ASCII.
func escapeBytes(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch c {
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '"':
			sb.WriteString(`\"`)
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, "\\%03o", c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	return sb.String()
}

// DataTypeName returns the TensorProto.DataType enum name of t.
func DataTypeName(t int32) string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return strconv.Itoa(int(t))
}
