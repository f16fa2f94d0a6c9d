package onnx

import (
	"fmt"
)

// Dim is a dimension override: an int (>= 0 for a fixed size, < 0 for a
// generated symbolic name) or a string (symbolic name).
type Dim = any

// UpdateInputDims overrides the declared dimensions of the graph inputs.
// dims[i][j] replaces dimension j of graph input i. A negative int becomes
// the symbolic name "in_<i>_<j>". The model is checked afterwards.
func UpdateInputDims(m *ModelProto, dims [][]Dim) error {
	if m.Graph == nil {
		return ErrNoGraph
	}
	for i, inputDims := range dims {
		if i >= len(m.Graph.Inputs) {
			return fmt.Errorf("update dims: model has %d inputs, got dims for input %d", len(m.Graph.Inputs), i)
		}
		vi := &m.Graph.Inputs[i]
		if vi.Type == nil || vi.Type.TensorType == nil || vi.Type.TensorType.Shape == nil {
			return fmt.Errorf("update dims: input %s has no shape", vi.Name)
		}
		shape := vi.Type.TensorType.Shape
		for j, d := range inputDims {
			if j >= len(shape.Dims) {
				return fmt.Errorf("update dims: input %s has rank %d, got dim %d", vi.Name, len(shape.Dims), j)
			}
			if err := updateDim(&shape.Dims[j], d, i, j); err != nil {
				return fmt.Errorf("update dims: input %s dim %d: %w", vi.Name, j, err)
			}
		}
	}
	return CheckModel(m)
}

func updateDim(dim *DimensionProto, d Dim, i, j int) error {
	switch v := d.(type) {
	case int:
		if v >= 0 {
			*dim = DimensionProto{DimValue: int64(v)}
		} else {
			*dim = DimensionProto{DimParam: fmt.Sprintf("in_%d_%d", i, j)}
		}
	case string:
		*dim = DimensionProto{DimParam: v}
	default:
		return fmt.Errorf("%w, incorrect type: %T", ErrDimValueType, d)
	}
	return nil
}

// PostprocessModel loads the model at path, updates its input dimensions,
// checks it and writes it back.
func PostprocessModel(path string, dims [][]Dim) error {
	m, err := ParseFile(path)
	if err != nil {
		return err
	}
	if err := UpdateInputDims(m, dims); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return SaveFile(path, m)
}
