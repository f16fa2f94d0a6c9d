package onnx_test

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/onnxgen/internal/fixtures"
	"github.com/born-ml/onnxgen/onnx"
)

func writeFixtures(t *testing.T, only ...string) fixtures.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := fixtures.DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.ModelsDir = filepath.Join(dir, "models")
	cfg.Only = only
	gen, err := fixtures.New(cfg, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	require.NoError(t, gen.Run())
	return cfg
}

func TestLoadAndForward(t *testing.T) {
	cfg := writeFixtures(t, "convolution")
	path := filepath.Join(cfg.ModelsDir, "convolution.onnx")

	require.NoError(t, onnx.Check(path))
	model, err := onnx.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"input"}, model.InputNames())
	assert.Equal(t, []string{"output"}, model.OutputNames())
	assert.Equal(t, int64(9), model.OpsetVersion())
	assert.Equal(t, fixtures.Producer, model.Metadata()["producer_name"])

	input, err := onnx.ReadArray(filepath.Join(cfg.DataDir, "input_convolution.npy"))
	require.NoError(t, err)
	output, err := model.Forward(input)
	require.NoError(t, err)
	want, err := onnx.ReadArray(filepath.Join(cfg.DataDir, "output_convolution.npy"))
	require.NoError(t, err)
	assert.Equal(t, want.Shape(), output.Shape())

	require.NoError(t, onnx.VerifyFixture(cfg.DataDir, cfg.ModelsDir, "convolution"))
}

func TestPatchInputDims(t *testing.T) {
	cfg := writeFixtures(t, "ReLU")
	path := filepath.Join(cfg.ModelsDir, "ReLU.onnx")

	require.NoError(t, onnx.PatchInputDims(path, [][]onnx.Dim{{"batch_size", 2, -1, "width"}}))
	require.NoError(t, onnx.Check(path))

	info, err := onnx.GetModelInfo(path)
	require.NoError(t, err)
	require.Len(t, info.Inputs, 1)
	dims := info.Inputs[0].Type.TensorType.Shape.Dims
	assert.Equal(t, "batch_size", dims[0].DimParam)
	assert.Equal(t, int64(2), dims[1].DimValue)
	assert.Equal(t, "in_0_2", dims[2].DimParam)
	assert.Equal(t, map[string]int{"Relu": 1}, info.OpCounts)
}

func TestCheckRejectsGarbage(t *testing.T) {
	assert.Error(t, onnx.Check(filepath.Join(t.TempDir(), "missing.onnx")))
}

func TestFixturesAndOps(t *testing.T) {
	assert.Contains(t, onnx.Fixtures(), "lstm_bidirectional")
	assert.Contains(t, onnx.ListSupportedOps(), "LSTM")
}
