package onnx

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inputDims(m *ModelProto, i int) []any {
	var out []any
	for _, d := range m.Graph.Inputs[i].Type.TensorType.Shape.Dims {
		if d.IsSymbolic() {
			out = append(out, d.DimParam)
		} else {
			out = append(out, int(d.DimValue))
		}
	}
	return out
}

func TestUpdateInputDims(t *testing.T) {
	m := convReluModel(t, 11)
	err := UpdateInputDims(m, [][]Dim{{"batch_size", 1, -1, "width"}})
	require.NoError(t, err)
	assert.Equal(t, []any{"batch_size", 1, "in_0_2", "width"}, inputDims(m, 0))

	// Shorter override lists leave the remaining dims alone.
	require.NoError(t, UpdateInputDims(m, [][]Dim{{2}}))
	assert.Equal(t, []any{2, 1, "in_0_2", "width"}, inputDims(m, 0))
}

func TestUpdateInputDimsErrors(t *testing.T) {
	m := convReluModel(t, 11)
	err := UpdateInputDims(m, [][]Dim{{1.5}})
	assert.ErrorIs(t, err, ErrDimValueType)
	assert.ErrorContains(t, err, "only int or string is accepted as dimension value")

	err = UpdateInputDims(m, [][]Dim{{1, 1, 4, 4, 1}})
	assert.ErrorContains(t, err, "rank 4")

	err = UpdateInputDims(m, make([][]Dim, 10))
	assert.ErrorContains(t, err, "got dims for input 3")
}

func TestPostprocessModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.onnx")
	require.NoError(t, SaveFile(path, convReluModel(t, 11)))

	require.NoError(t, PostprocessModel(path, [][]Dim{{"batch_size", 1, "height", "width"}}))

	m, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, []any{"batch_size", 1, "height", "width"}, inputDims(m, 0))
	require.NoError(t, CheckModel(m))
}
