package onnx

// ONNX protobuf data structures (hand-written). Only the messages and fields
// that an exported inference graph uses are modelled; unknown fields are
// skipped on parse.

// ModelProto represents an ONNX model.
type ModelProto struct {
	IRVersion       int64               // IR version (e.g., 3, 6, 7)
	OpsetImport     []OperatorSetID     // Opset version(s)
	ProducerName    string              // Framework name; fixtures use their own name
	ProducerVersion string              // Framework version
	Domain          string              // Model domain
	ModelVersion    int64               // Model version number
	DocString       string              // Model description
	Graph           *GraphProto         // Computation graph
	MetadataProps   []StringStringEntry // Key-value metadata
}

// GraphProto represents the computation graph.
type GraphProto struct {
	Name         string           // Graph name (required by the checker)
	Nodes        []NodeProto      // Operation nodes in topological order
	Initializers []TensorProto    // Weight tensors
	DocString    string           // Graph description
	Inputs       []ValueInfoProto // Graph inputs
	Outputs      []ValueInfoProto // Graph outputs
	ValueInfo    []ValueInfoProto // Intermediate tensor info
}

// NodeProto represents a single operation.
type NodeProto struct {
	Inputs     []string         // Input value names; "" marks a skipped optional input
	Outputs    []string         // Output value names
	Name       string           // Node name (optional)
	OpType     string           // Operation type (e.g., "Conv", "MatMul", "Relu")
	Attributes []AttributeProto // Operation attributes
	DocString  string           // Node description
	Domain     string           // Custom domain (empty for default)
}

// TensorProto represents a tensor (weights, constants, attribute values).
type TensorProto struct {
	Dims      []int64   // Tensor shape
	DataType  int32     // Element data type
	FloatData []float32 // Float32 data (legacy)
	Int32Data []int32   // Int32 data (legacy)
	Int64Data []int64   // Int64 data (legacy)
	Name      string    // Tensor name
	RawData   []byte    // Little-endian payload (what the builder writes)
	DocString string    // Tensor description
}

// ValueInfoProto describes a graph input, output or intermediate value.
type ValueInfoProto struct {
	Name      string     // Value name
	Type      *TypeProto // Type information
	DocString string     // Description
}

// TypeProto describes a value type. Only tensor types are supported.
type TypeProto struct {
	TensorType *TensorTypeProto
}

// TensorTypeProto describes tensor shape and element type.
type TensorTypeProto struct {
	ElemType int32             // Element data type
	Shape    *TensorShapeProto // Declared shape; nil means unknown rank
}

// TensorShapeProto describes tensor dimensions.
type TensorShapeProto struct {
	Dims []DimensionProto
}

// DimensionProto describes a single dimension. A non-empty DimParam marks a
// symbolic axis and takes precedence over DimValue.
type DimensionProto struct {
	DimValue int64  // Static dimension value (e.g., 224 for image size)
	DimParam string // Symbolic dimension name (e.g., "batch_size")
}

// IsSymbolic reports whether the dimension is named rather than fixed.
func (d DimensionProto) IsSymbolic() bool {
	return d.DimParam != ""
}

// AttributeProto represents node attributes.
type AttributeProto struct {
	Name      string        // Attribute name
	F         float32       // FLOAT value
	I         int64         // INT value
	S         []byte        // STRING value
	T         *TensorProto  // TENSOR value
	G         *GraphProto   // GRAPH value
	Floats    []float32     // FLOATS array
	Ints      []int64       // INTS array
	Strings   [][]byte      // STRINGS array
	Tensors   []TensorProto // TENSORS array
	Graphs    []GraphProto  // GRAPHS array
	DocString string        // Description
	Type      int32         // Attribute type
}

// OperatorSetID identifies opset version.
type OperatorSetID struct {
	Domain  string // Operator domain (empty for default)
	Version int64  // Opset version number
}

// StringStringEntry represents key-value metadata.
type StringStringEntry struct {
	Key   string
	Value string
}

// ONNX data types (TensorProto.DataType).
const (
	TensorProtoUndefined  = 0
	TensorProtoFloat      = 1  // float32
	TensorProtoUint8      = 2  // uint8
	TensorProtoInt8       = 3  // int8
	TensorProtoUint16     = 4  // uint16
	TensorProtoInt16      = 5  // int16
	TensorProtoInt32      = 6  // int32
	TensorProtoInt64      = 7  // int64
	TensorProtoString     = 8  // string
	TensorProtoBool       = 9  // bool
	TensorProtoFloat16    = 10 // float16
	TensorProtoDouble     = 11 // float64
	TensorProtoUint32     = 12 // uint32
	TensorProtoUint64     = 13 // uint64
	TensorProtoComplex64  = 14 // complex64
	TensorProtoComplex128 = 15 // complex128
	TensorProtoBfloat16   = 16 // bfloat16
)

// ONNX attribute types (AttributeProto.Type).
const (
	AttributeProtoUndefined = 0
	AttributeProtoFloat     = 1  // FLOAT
	AttributeProtoInt       = 2  // INT
	AttributeProtoString    = 3  // STRING
	AttributeProtoTensor    = 4  // TENSOR
	AttributeProtoGraph     = 5  // GRAPH
	AttributeProtoFloats    = 6  // FLOATS
	AttributeProtoInts      = 7  // INTS
	AttributeProtoStrings   = 8  // STRINGS
	AttributeProtoTensors   = 9  // TENSORS
	AttributeProtoGraphs    = 10 // GRAPHS
)

// dataTypeNames maps TensorProto.DataType to the enum names used by the
// text format.
var dataTypeNames = map[int32]string{
	TensorProtoUndefined:  "UNDEFINED",
	TensorProtoFloat:      "FLOAT",
	TensorProtoUint8:      "UINT8",
	TensorProtoInt8:       "INT8",
	TensorProtoUint16:     "UINT16",
	TensorProtoInt16:      "INT16",
	TensorProtoInt32:      "INT32",
	TensorProtoInt64:      "INT64",
	TensorProtoString:     "STRING",
	TensorProtoBool:       "BOOL",
	TensorProtoFloat16:    "FLOAT16",
	TensorProtoDouble:     "DOUBLE",
	TensorProtoUint32:     "UINT32",
	TensorProtoUint64:     "UINT64",
	TensorProtoComplex64:  "COMPLEX64",
	TensorProtoComplex128: "COMPLEX128",
	TensorProtoBfloat16:   "BFLOAT16",
}

var attributeTypeNames = map[int32]string{
	AttributeProtoUndefined: "UNDEFINED",
	AttributeProtoFloat:     "FLOAT",
	AttributeProtoInt:       "INT",
	AttributeProtoString:    "STRING",
	AttributeProtoTensor:    "TENSOR",
	AttributeProtoGraph:     "GRAPH",
	AttributeProtoFloats:    "FLOATS",
	AttributeProtoInts:      "INTS",
	AttributeProtoStrings:   "STRINGS",
	AttributeProtoTensors:   "TENSORS",
	AttributeProtoGraphs:    "GRAPHS",
}

// elemSize returns the byte width of a fixed-size ONNX data type, or 0.
func elemSize(dataType int32) int {
	switch dataType {
	case TensorProtoUint8, TensorProtoInt8, TensorProtoBool:
		return 1
	case TensorProtoUint16, TensorProtoInt16, TensorProtoFloat16, TensorProtoBfloat16:
		return 2
	case TensorProtoFloat, TensorProtoInt32, TensorProtoUint32:
		return 4
	case TensorProtoDouble, TensorProtoInt64, TensorProtoUint64, TensorProtoComplex64:
		return 8
	case TensorProtoComplex128:
		return 16
	default:
		return 0
	}
}

// Field numbers from onnx.proto.
const (
	fieldModelIRVersion       = 1
	fieldModelProducerName    = 2
	fieldModelProducerVersion = 3
	fieldModelDomain          = 4
	fieldModelModelVersion    = 5
	fieldModelDocString       = 6
	fieldModelGraph           = 7
	fieldModelOpsetImport     = 8
	fieldModelMetadataProps   = 14

	fieldGraphNode        = 1
	fieldGraphName        = 2
	fieldGraphInitializer = 5
	fieldGraphDocString   = 10
	fieldGraphInput       = 11
	fieldGraphOutput      = 12
	fieldGraphValueInfo   = 13

	fieldNodeInput     = 1
	fieldNodeOutput    = 2
	fieldNodeName      = 3
	fieldNodeOpType    = 4
	fieldNodeAttribute = 5
	fieldNodeDocString = 6
	fieldNodeDomain    = 7

	fieldTensorDims      = 1
	fieldTensorDataType  = 2
	fieldTensorFloatData = 4
	fieldTensorInt32Data = 5
	fieldTensorInt64Data = 7
	fieldTensorName      = 8
	fieldTensorRawData   = 9
	fieldTensorDocString = 12

	fieldValueInfoName      = 1
	fieldValueInfoType      = 2
	fieldValueInfoDocString = 3

	fieldTypeTensorType = 1

	fieldTensorTypeElemType = 1
	fieldTensorTypeShape    = 2

	fieldShapeDim = 1

	fieldDimValue = 1
	fieldDimParam = 2

	fieldAttrName      = 1
	fieldAttrF         = 2
	fieldAttrI         = 3
	fieldAttrS         = 4
	fieldAttrT         = 5
	fieldAttrG         = 6
	fieldAttrFloats    = 7
	fieldAttrInts      = 8
	fieldAttrStrings   = 9
	fieldAttrTensors   = 10
	fieldAttrGraphs    = 11
	fieldAttrDocString = 13
	fieldAttrType      = 20

	fieldOpsetDomain  = 1
	fieldOpsetVersion = 2

	fieldEntryKey   = 1
	fieldEntryValue = 2
)
