package onnx

import (
	"fmt"
	"math"
	"os"

	"google.golang.org/protobuf/encoding/protowire"
)

// Marshal encodes a model in the ONNX protobuf wire format. Fields are
// written in field-number order; repeated scalars follow onnx.proto
// (dims and attribute lists unpacked, float_data/int64_data packed).
func Marshal(m *ModelProto) ([]byte, error) {
	if m.Graph == nil {
		return nil, ErrNoGraph
	}
	return appendModelProto(nil, m), nil
}

// SaveFile encodes a model and writes it to path.
func SaveFile(path string, m *ModelProto) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: model files are meant to be shared
		return fmt.Errorf("failed to write model: %w", err)
	}
	return nil
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendIntField(b []byte, num protowire.Number, v int64) []byte {
	return appendVarintField(b, num, uint64(v)) //nolint:gosec // G115: protobuf int64 is two's complement
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendOptString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	return appendStringField(b, num, v)
}

func appendFloatField(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

// appendMessage writes an embedded message produced by fn.
func appendMessage(b []byte, num protowire.Number, fn func([]byte) []byte) []byte {
	return appendBytesField(b, num, fn(nil))
}

func appendModelProto(b []byte, m *ModelProto) []byte {
	b = appendIntField(b, fieldModelIRVersion, m.IRVersion)
	b = appendOptString(b, fieldModelProducerName, m.ProducerName)
	b = appendOptString(b, fieldModelProducerVersion, m.ProducerVersion)
	b = appendOptString(b, fieldModelDomain, m.Domain)
	if m.ModelVersion != 0 {
		b = appendIntField(b, fieldModelModelVersion, m.ModelVersion)
	}
	b = appendOptString(b, fieldModelDocString, m.DocString)
	b = appendMessage(b, fieldModelGraph, func(b []byte) []byte { return appendGraphProto(b, m.Graph) })
	for i := range m.OpsetImport {
		op := &m.OpsetImport[i]
		b = appendMessage(b, fieldModelOpsetImport, func(b []byte) []byte {
			b = appendStringField(b, fieldOpsetDomain, op.Domain)
			return appendIntField(b, fieldOpsetVersion, op.Version)
		})
	}
	for i := range m.MetadataProps {
		e := &m.MetadataProps[i]
		b = appendMessage(b, fieldModelMetadataProps, func(b []byte) []byte {
			b = appendStringField(b, fieldEntryKey, e.Key)
			return appendStringField(b, fieldEntryValue, e.Value)
		})
	}
	return b
}

func appendGraphProto(b []byte, g *GraphProto) []byte {
	for i := range g.Nodes {
		n := &g.Nodes[i]
		b = appendMessage(b, fieldGraphNode, func(b []byte) []byte { return appendNodeProto(b, n) })
	}
	b = appendOptString(b, fieldGraphName, g.Name)
	for i := range g.Initializers {
		t := &g.Initializers[i]
		b = appendMessage(b, fieldGraphInitializer, func(b []byte) []byte { return appendTensorProto(b, t) })
	}
	b = appendOptString(b, fieldGraphDocString, g.DocString)
	b = appendValueInfos(b, fieldGraphInput, g.Inputs)
	b = appendValueInfos(b, fieldGraphOutput, g.Outputs)
	b = appendValueInfos(b, fieldGraphValueInfo, g.ValueInfo)
	return b
}

func appendNodeProto(b []byte, n *NodeProto) []byte {
	for _, in := range n.Inputs {
		b = appendStringField(b, fieldNodeInput, in)
	}
	for _, out := range n.Outputs {
		b = appendStringField(b, fieldNodeOutput, out)
	}
	b = appendOptString(b, fieldNodeName, n.Name)
	b = appendStringField(b, fieldNodeOpType, n.OpType)
	for i := range n.Attributes {
		a := &n.Attributes[i]
		b = appendMessage(b, fieldNodeAttribute, func(b []byte) []byte { return appendAttributeProto(b, a) })
	}
	b = appendOptString(b, fieldNodeDocString, n.DocString)
	b = appendOptString(b, fieldNodeDomain, n.Domain)
	return b
}

func appendTensorProto(b []byte, t *TensorProto) []byte {
	for _, d := range t.Dims {
		b = appendIntField(b, fieldTensorDims, d)
	}
	b = appendIntField(b, fieldTensorDataType, int64(t.DataType))
	if len(t.FloatData) > 0 {
		packed := make([]byte, 0, 4*len(t.FloatData))
		for _, f := range t.FloatData {
			packed = protowire.AppendFixed32(packed, math.Float32bits(f))
		}
		b = appendBytesField(b, fieldTensorFloatData, packed)
	}
	if len(t.Int32Data) > 0 {
		var packed []byte
		for _, v := range t.Int32Data {
			packed = protowire.AppendVarint(packed, uint64(int64(v))) //nolint:gosec // G115: sign-extended like protoc
		}
		b = appendBytesField(b, fieldTensorInt32Data, packed)
	}
	if len(t.Int64Data) > 0 {
		var packed []byte
		for _, v := range t.Int64Data {
			packed = protowire.AppendVarint(packed, uint64(v)) //nolint:gosec // G115: two's complement
		}
		b = appendBytesField(b, fieldTensorInt64Data, packed)
	}
	b = appendOptString(b, fieldTensorName, t.Name)
	if t.RawData != nil {
		b = appendBytesField(b, fieldTensorRawData, t.RawData)
	}
	b = appendOptString(b, fieldTensorDocString, t.DocString)
	return b
}

func appendValueInfos(b []byte, num protowire.Number, infos []ValueInfoProto) []byte {
	for i := range infos {
		vi := &infos[i]
		b = appendMessage(b, num, func(b []byte) []byte { return appendValueInfoProto(b, vi) })
	}
	return b
}

func appendValueInfoProto(b []byte, v *ValueInfoProto) []byte {
	b = appendStringField(b, fieldValueInfoName, v.Name)
	if v.Type != nil && v.Type.TensorType != nil {
		tt := v.Type.TensorType
		b = appendMessage(b, fieldValueInfoType, func(b []byte) []byte {
			return appendMessage(b, fieldTypeTensorType, func(b []byte) []byte {
				b = appendIntField(b, fieldTensorTypeElemType, int64(tt.ElemType))
				if tt.Shape == nil {
					return b
				}
				return appendMessage(b, fieldTensorTypeShape, func(b []byte) []byte {
					for _, d := range tt.Shape.Dims {
						b = appendMessage(b, fieldShapeDim, func(b []byte) []byte {
							if d.IsSymbolic() {
								return appendStringField(b, fieldDimParam, d.DimParam)
							}
							return appendIntField(b, fieldDimValue, d.DimValue)
						})
					}
					return b
				})
			})
		})
	}
	b = appendOptString(b, fieldValueInfoDocString, v.DocString)
	return b
}

//nolint:gocyclo,cyclop // one branch per attribute type
func appendAttributeProto(b []byte, a *AttributeProto) []byte {
	b = appendStringField(b, fieldAttrName, a.Name)
	switch a.Type {
	case AttributeProtoFloat:
		b = appendFloatField(b, fieldAttrF, a.F)
	case AttributeProtoInt:
		b = appendIntField(b, fieldAttrI, a.I)
	case AttributeProtoString:
		b = appendBytesField(b, fieldAttrS, a.S)
	case AttributeProtoTensor:
		if a.T != nil {
			b = appendMessage(b, fieldAttrT, func(b []byte) []byte { return appendTensorProto(b, a.T) })
		}
	case AttributeProtoGraph:
		if a.G != nil {
			b = appendMessage(b, fieldAttrG, func(b []byte) []byte { return appendGraphProto(b, a.G) })
		}
	case AttributeProtoFloats:
		for _, f := range a.Floats {
			b = appendFloatField(b, fieldAttrFloats, f)
		}
	case AttributeProtoInts:
		for _, v := range a.Ints {
			b = appendIntField(b, fieldAttrInts, v)
		}
	case AttributeProtoStrings:
		for _, s := range a.Strings {
			b = appendBytesField(b, fieldAttrStrings, s)
		}
	case AttributeProtoTensors:
		for i := range a.Tensors {
			t := &a.Tensors[i]
			b = appendMessage(b, fieldAttrTensors, func(b []byte) []byte { return appendTensorProto(b, t) })
		}
	case AttributeProtoGraphs:
		for i := range a.Graphs {
			g := &a.Graphs[i]
			b = appendMessage(b, fieldAttrGraphs, func(b []byte) []byte { return appendGraphProto(b, g) })
		}
	}
	b = appendOptString(b, fieldAttrDocString, a.DocString)
	b = appendIntField(b, fieldAttrType, int64(a.Type))
	return b
}
