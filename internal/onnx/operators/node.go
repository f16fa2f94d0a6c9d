// Package operators provides ONNX operator implementations.
package operators

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/tensor"
)

// ONNX data types used by Cast's "to" attribute.
const (
	TensorProtoFloat  = 1
	TensorProtoUint8  = 2
	TensorProtoInt32  = 6
	TensorProtoInt64  = 7
	TensorProtoBool   = 9
	TensorProtoDouble = 11
)

// Node represents an ONNX operation node.
// This is a local copy of the relevant fields from onnx.NodeProto
// to avoid import cycles between onnx and operators packages.
type Node struct {
	Name       string      // Node name (optional)
	OpType     string      // Operation type (e.g., "Conv", "MatMul", "Relu")
	Inputs     []string    // Input tensor names
	Outputs    []string    // Output tensor names
	Attributes []Attribute // Operation attributes
	Domain     string      // Custom domain (empty for default)
}

// Attribute represents a node attribute. Tensor attributes arrive already
// decoded in T.
type Attribute struct {
	Name    string            // Attribute name
	Type    int32             // Attribute type
	F       float32           // FLOAT value
	I       int64             // INT value
	S       []byte            // STRING value
	T       *tensor.RawTensor // TENSOR value
	Floats  []float32         // FLOATS array
	Ints    []int64           // INTS array
	Strings [][]byte          // STRINGS array
}

// Attr returns the named attribute, or nil.
func (n *Node) Attr(name string) *Attribute {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i]
		}
	}
	return nil
}

// GetAttrInt returns an integer attribute or default value.
func GetAttrInt(node *Node, name string, defaultVal int64) int64 {
	if a := node.Attr(name); a != nil {
		return a.I
	}
	return defaultVal
}

// GetAttrInts returns an integer array attribute.
func GetAttrInts(node *Node, name string) []int64 {
	if a := node.Attr(name); a != nil {
		return a.Ints
	}
	return nil
}

// GetAttrFloat returns a float attribute or default value.
func GetAttrFloat(node *Node, name string, defaultVal float32) float32 {
	if a := node.Attr(name); a != nil {
		return a.F
	}
	return defaultVal
}

// GetAttrFloats returns a float array attribute.
func GetAttrFloats(node *Node, name string) []float32 {
	if a := node.Attr(name); a != nil {
		return a.Floats
	}
	return nil
}

// GetAttrString returns a string attribute or default value.
func GetAttrString(node *Node, name, defaultVal string) string {
	if a := node.Attr(name); a != nil {
		return string(a.S)
	}
	return defaultVal
}

// intsAttr returns an INTS attribute as []int, or def when absent.
func intsAttr(node *Node, name string, def []int) []int {
	a := node.Attr(name)
	if a == nil {
		return def
	}
	out := make([]int, len(a.Ints))
	for i, v := range a.Ints {
		out[i] = int(v)
	}
	return out
}

// optInput returns inputs[idx], or nil for a missing optional input.
func optInput(inputs []*tensor.RawTensor, idx int) *tensor.RawTensor {
	if idx < len(inputs) {
		return inputs[idx]
	}
	return nil
}

// dataTypeFromONNX converts an ONNX element type to tensor.DataType.
func dataTypeFromONNX(onnxType int64) (tensor.DataType, error) {
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
		return 0, fmt.Errorf("unsupported element type %d", onnxType)
	}
}

func one(t *tensor.RawTensor) []*tensor.RawTensor {
	return []*tensor.RawTensor{t}
}
