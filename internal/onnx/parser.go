package onnx

import (
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// ParseFile parses an ONNX model from file.
//
//nolint:gosec // G304: Path is provided by user, file inclusion is intentional for ONNX model loading
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from bytes.
func Parse(data []byte) (*ModelProto, error) {
	model := &ModelProto{}
	if err := readModelProto(newDecoder("ModelProto", data), model); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	return model, nil
}

// decoder walks the fields of one protobuf message.
type decoder struct {
	msg string
	b   []byte
	num protowire.Number
	typ protowire.Type
}

func newDecoder(msg string, b []byte) *decoder {
	return &decoder{msg: msg, b: b}
}

func (d *decoder) fail(err error) error {
	return &FormatError{Message: d.msg, Field: int(d.num), Err: err}
}

// next advances to the next field. It returns false at the end of the message.
func (d *decoder) next() (bool, error) {
	if len(d.b) == 0 {
		return false, nil
	}
	num, typ, n := protowire.ConsumeTag(d.b)
	if n < 0 {
		return false, d.fail(protowire.ParseError(n))
	}
	d.b = d.b[n:]
	d.num, d.typ = num, typ
	return true, nil
}

func (d *decoder) varint() (uint64, error) {
	if d.typ != protowire.VarintType {
		return 0, d.fail(ErrWireType)
	}
	v, n := protowire.ConsumeVarint(d.b)
	if n < 0 {
		return 0, d.fail(ErrTruncated)
	}
	d.b = d.b[n:]
	return v, nil
}

func (d *decoder) i64() (int64, error) {
	v, err := d.varint()
	return int64(v), err //nolint:gosec // G115: protobuf int64 is two's complement
}

func (d *decoder) bytes() ([]byte, error) {
	if d.typ != protowire.BytesType {
		return nil, d.fail(ErrWireType)
	}
	v, n := protowire.ConsumeBytes(d.b)
	if n < 0 {
		return nil, d.fail(ErrTruncated)
	}
	d.b = d.b[n:]
	return v, nil
}

func (d *decoder) str() (string, error) {
	b, err := d.bytes()
	return string(b), err
}

func (d *decoder) f32() (float32, error) {
	if d.typ != protowire.Fixed32Type {
		return 0, d.fail(ErrWireType)
	}
	v, n := protowire.ConsumeFixed32(d.b)
	if n < 0 {
		return 0, d.fail(ErrTruncated)
	}
	d.b = d.b[n:]
	return math.Float32frombits(v), nil
}

// sub returns a decoder over an embedded message.
func (d *decoder) sub(msg string) (*decoder, error) {
	b, err := d.bytes()
	if err != nil {
		return nil, err
	}
	return newDecoder(msg, b), nil
}

func (d *decoder) skip() error {
	n := protowire.ConsumeFieldValue(d.num, d.typ, d.b)
	if n < 0 {
		return d.fail(protowire.ParseError(n))
	}
	d.b = d.b[n:]
	return nil
}

// int64s reads a repeated integer field in either packed or unpacked form.
func (d *decoder) int64s(dst []int64) ([]int64, error) {
	if d.typ != protowire.BytesType {
		v, err := d.i64()
		return append(dst, v), err
	}
	b, err := d.bytes()
	if err != nil {
		return dst, err
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return dst, d.fail(ErrTruncated)
		}
		dst = append(dst, int64(v)) //nolint:gosec // G115: protobuf int64 is two's complement
		b = b[n:]
	}
	return dst, nil
}

// float32s reads a repeated float field in either packed or unpacked form.
func (d *decoder) float32s(dst []float32) ([]float32, error) {
	if d.typ != protowire.BytesType {
		v, err := d.f32()
		return append(dst, v), err
	}
	b, err := d.bytes()
	if err != nil {
		return dst, err
	}
	if len(b)%4 != 0 {
		return dst, d.fail(ErrTruncated)
	}
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed32(b)
		dst = append(dst, math.Float32frombits(v))
		b = b[n:]
	}
	return dst, nil
}

//nolint:gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic
func readModelProto(d *decoder, m *ModelProto) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		switch d.num {
		case fieldModelIRVersion:
			m.IRVersion, err = d.i64()
		case fieldModelProducerName:
			m.ProducerName, err = d.str()
		case fieldModelProducerVersion:
			m.ProducerVersion, err = d.str()
		case fieldModelDomain:
			m.Domain, err = d.str()
		case fieldModelModelVersion:
			m.ModelVersion, err = d.i64()
		case fieldModelDocString:
			m.DocString, err = d.str()
		case fieldModelGraph:
			var sub *decoder
			if sub, err = d.sub("GraphProto"); err == nil {
				m.Graph = &GraphProto{}
				err = readGraphProto(sub, m.Graph)
			}
		case fieldModelOpsetImport:
			var sub *decoder
			if sub, err = d.sub("OperatorSetIdProto"); err == nil {
				var opset OperatorSetID
				err = readOperatorSetID(sub, &opset)
				m.OpsetImport = append(m.OpsetImport, opset)
			}
		case fieldModelMetadataProps:
			var sub *decoder
			if sub, err = d.sub("StringStringEntryProto"); err == nil {
				var entry StringStringEntry
				err = readStringStringEntry(sub, &entry)
				m.MetadataProps = append(m.MetadataProps, entry)
			}
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
}

//nolint:gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic
func readGraphProto(d *decoder, g *GraphProto) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		switch d.num {
		case fieldGraphNode:
			var sub *decoder
			if sub, err = d.sub("NodeProto"); err == nil {
				var node NodeProto
				err = readNodeProto(sub, &node)
				g.Nodes = append(g.Nodes, node)
			}
		case fieldGraphName:
			g.Name, err = d.str()
		case fieldGraphInitializer:
			var sub *decoder
			if sub, err = d.sub("TensorProto"); err == nil {
				var t TensorProto
				err = readTensorProto(sub, &t)
				g.Initializers = append(g.Initializers, t)
			}
		case fieldGraphDocString:
			g.DocString, err = d.str()
		case fieldGraphInput, fieldGraphOutput, fieldGraphValueInfo:
			field := d.num
			var sub *decoder
			if sub, err = d.sub("ValueInfoProto"); err == nil {
				var vi ValueInfoProto
				err = readValueInfoProto(sub, &vi)
				switch field {
				case fieldGraphInput:
					g.Inputs = append(g.Inputs, vi)
				case fieldGraphOutput:
					g.Outputs = append(g.Outputs, vi)
				default:
					g.ValueInfo = append(g.ValueInfo, vi)
				}
			}
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
}

func readNodeProto(d *decoder, n *NodeProto) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		var s string
		switch d.num {
		case fieldNodeInput:
			if s, err = d.str(); err == nil {
				n.Inputs = append(n.Inputs, s)
			}
		case fieldNodeOutput:
			if s, err = d.str(); err == nil {
				n.Outputs = append(n.Outputs, s)
			}
		case fieldNodeName:
			n.Name, err = d.str()
		case fieldNodeOpType:
			n.OpType, err = d.str()
		case fieldNodeAttribute:
			var sub *decoder
			if sub, err = d.sub("AttributeProto"); err == nil {
				var attr AttributeProto
				err = readAttributeProto(sub, &attr)
				n.Attributes = append(n.Attributes, attr)
			}
		case fieldNodeDocString:
			n.DocString, err = d.str()
		case fieldNodeDomain:
			n.Domain, err = d.str()
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
}

//nolint:gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic
func readTensorProto(d *decoder, t *TensorProto) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		switch d.num {
		case fieldTensorDims:
			t.Dims, err = d.int64s(t.Dims)
		case fieldTensorDataType:
			var v int64
			v, err = d.i64()
			t.DataType = int32(v) //nolint:gosec // G115: enum values fit in int32
		case fieldTensorFloatData:
			t.FloatData, err = d.float32s(t.FloatData)
		case fieldTensorInt32Data:
			var vals []int64
			vals, err = d.int64s(nil)
			for _, v := range vals {
				t.Int32Data = append(t.Int32Data, int32(v)) //nolint:gosec // G115: int32 field
			}
		case fieldTensorInt64Data:
			t.Int64Data, err = d.int64s(t.Int64Data)
		case fieldTensorName:
			t.Name, err = d.str()
		case fieldTensorRawData:
			var b []byte
			if b, err = d.bytes(); err == nil {
				t.RawData = append([]byte(nil), b...)
			}
		case fieldTensorDocString:
			t.DocString, err = d.str()
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
}

func readValueInfoProto(d *decoder, v *ValueInfoProto) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		switch d.num {
		case fieldValueInfoName:
			v.Name, err = d.str()
		case fieldValueInfoType:
			var sub *decoder
			if sub, err = d.sub("TypeProto"); err == nil {
				v.Type = &TypeProto{}
				err = readTypeProto(sub, v.Type)
			}
		case fieldValueInfoDocString:
			v.DocString, err = d.str()
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
}

func readTypeProto(d *decoder, t *TypeProto) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		if d.num != fieldTypeTensorType {
			if err := d.skip(); err != nil {
				return err
			}
			continue
		}
		sub, err := d.sub("TypeProto.Tensor")
		if err != nil {
			return err
		}
		t.TensorType = &TensorTypeProto{}
		if err := readTensorTypeProto(sub, t.TensorType); err != nil {
			return err
		}
	}
}

func readTensorTypeProto(d *decoder, t *TensorTypeProto) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		switch d.num {
		case fieldTensorTypeElemType:
			var v int64
			v, err = d.i64()
			t.ElemType = int32(v) //nolint:gosec // G115: enum values fit in int32
		case fieldTensorTypeShape:
			var sub *decoder
			if sub, err = d.sub("TensorShapeProto"); err == nil {
				t.Shape = &TensorShapeProto{}
				err = readTensorShapeProto(sub, t.Shape)
			}
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
}

func readTensorShapeProto(d *decoder, s *TensorShapeProto) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		if d.num != fieldShapeDim {
			if err := d.skip(); err != nil {
				return err
			}
			continue
		}
		sub, err := d.sub("TensorShapeProto.Dimension")
		if err != nil {
			return err
		}
		var dim DimensionProto
		if err := readDimensionProto(sub, &dim); err != nil {
			return err
		}
		s.Dims = append(s.Dims, dim)
	}
}

func readDimensionProto(d *decoder, dim *DimensionProto) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		switch d.num {
		case fieldDimValue:
			dim.DimValue, err = d.i64()
		case fieldDimParam:
			dim.DimParam, err = d.str()
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
}

//nolint:gocyclo,cyclop // Protobuf parsing requires field-by-field switch logic
func readAttributeProto(d *decoder, a *AttributeProto) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		switch d.num {
		case fieldAttrName:
			a.Name, err = d.str()
		case fieldAttrF:
			a.F, err = d.f32()
		case fieldAttrI:
			a.I, err = d.i64()
		case fieldAttrS:
			var b []byte
			if b, err = d.bytes(); err == nil {
				a.S = append([]byte(nil), b...)
			}
		case fieldAttrT:
			var sub *decoder
			if sub, err = d.sub("TensorProto"); err == nil {
				a.T = &TensorProto{}
				err = readTensorProto(sub, a.T)
			}
		case fieldAttrG:
			var sub *decoder
			if sub, err = d.sub("GraphProto"); err == nil {
				a.G = &GraphProto{}
				err = readGraphProto(sub, a.G)
			}
		case fieldAttrFloats:
			a.Floats, err = d.float32s(a.Floats)
		case fieldAttrInts:
			a.Ints, err = d.int64s(a.Ints)
		case fieldAttrStrings:
			var b []byte
			if b, err = d.bytes(); err == nil {
				a.Strings = append(a.Strings, append([]byte(nil), b...))
			}
		case fieldAttrTensors:
			var sub *decoder
			if sub, err = d.sub("TensorProto"); err == nil {
				var t TensorProto
				err = readTensorProto(sub, &t)
				a.Tensors = append(a.Tensors, t)
			}
		case fieldAttrGraphs:
			var sub *decoder
			if sub, err = d.sub("GraphProto"); err == nil {
				var g GraphProto
				err = readGraphProto(sub, &g)
				a.Graphs = append(a.Graphs, g)
			}
		case fieldAttrDocString:
			a.DocString, err = d.str()
		case fieldAttrType:
			var v int64
			v, err = d.i64()
			a.Type = int32(v) //nolint:gosec // G115: enum values fit in int32
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
}

func readOperatorSetID(d *decoder, o *OperatorSetID) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		switch d.num {
		case fieldOpsetDomain:
			o.Domain, err = d.str()
		case fieldOpsetVersion:
			o.Version, err = d.i64()
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
}

func readStringStringEntry(d *decoder, e *StringStringEntry) error {
	for {
		ok, err := d.next()
		if !ok || err != nil {
			return err
		}
		switch d.num {
		case fieldEntryKey:
			e.Key, err = d.str()
		case fieldEntryValue:
			e.Value, err = d.str()
		default:
			err = d.skip()
		}
		if err != nil {
			return err
		}
	}
}
