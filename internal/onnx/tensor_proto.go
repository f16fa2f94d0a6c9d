package onnx

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// DataTypeFromProto converts an ONNX element type to tensor.DataType.
func DataTypeFromProto(onnxType int32) (tensor.DataType, error) {
	switch onnxType {
	case TensorProtoFloat:
		return tensor.Float32, nil
	case TensorProtoDouble:
		return tensor.Float64, nil
	case TensorProtoInt32:
		return tensor.Int32, nil
	case TensorProtoInt64:
		return tensor.Int64, nil
	case TensorProtoUint8:
		return tensor.Uint8, nil
	case TensorProtoBool:
		return tensor.Bool, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, dataTypeNames[onnxType])
	}
}

// ProtoDataType converts a tensor.DataType to the ONNX element type.
func ProtoDataType(dt tensor.DataType) int32 {
	switch dt {
	case tensor.Float32:
		return TensorProtoFloat
	case tensor.Float64:
		return TensorProtoDouble
	case tensor.Int32:
		return TensorProtoInt32
	case tensor.Int64:
		return TensorProtoInt64
	case tensor.Uint8:
		return TensorProtoUint8
	case tensor.Bool:
		return TensorProtoBool
	default:
		return TensorProtoUndefined
	}
}

// TensorFromProto converts a TensorProto to a RawTensor.
// Exactly one of raw_data or the typed data fields is expected to be set.
func TensorFromProto(proto *TensorProto) (*tensor.RawTensor, error) {
	shape := make(tensor.Shape, len(proto.Dims))
	for i, dim := range proto.Dims {
		shape[i] = int(dim)
	}

	dtype, err := DataTypeFromProto(proto.DataType)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", proto.Name, err)
	}

	t, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", proto.Name, err)
	}

	n := t.NumElements()
	switch {
	case proto.RawData != nil:
		if len(proto.RawData) != t.ByteSize() {
			return nil, fmt.Errorf("tensor %q: raw_data has %d bytes, expected %d", proto.Name, len(proto.RawData), t.ByteSize())
		}
		copy(t.Data(), proto.RawData)
	case len(proto.FloatData) > 0:
		if dtype != tensor.Float32 || len(proto.FloatData) != n {
			return nil, fmt.Errorf("tensor %q: float_data does not match %s%v", proto.Name, dtype, shape)
		}
		copy(t.AsFloat32(), proto.FloatData)
	case len(proto.Int32Data) > 0:
		if len(proto.Int32Data) != n {
			return nil, fmt.Errorf("tensor %q: int32_data does not match %v", proto.Name, shape)
		}
		for i, v := range proto.Int32Data {
			t.SetFloat64(i, float64(v))
		}
	case len(proto.Int64Data) > 0:
		if dtype != tensor.Int64 || len(proto.Int64Data) != n {
			return nil, fmt.Errorf("tensor %q: int64_data does not match %s%v", proto.Name, dtype, shape)
		}
		copy(t.AsInt64(), proto.Int64Data)
	case n != 0:
		return nil, fmt.Errorf("tensor %q: no data for %d elements", proto.Name, n)
	}

	return t, nil
}

// TensorToProto converts a RawTensor to a TensorProto using raw_data.
func TensorToProto(name string, t *tensor.RawTensor) TensorProto {
	raw := make([]byte, t.ByteSize())
	copy(raw, t.Data())
	return TensorProto{
		Name:     name,
		DataType: ProtoDataType(t.DType()),
		Dims:     t.Shape().Int64s(),
		RawData:  raw,
	}
}
