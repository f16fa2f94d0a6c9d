package fixtures

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/onnxgen/internal/npy"
	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/tensor"
)

func testConfig(t *testing.T, only ...string) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.ModelsDir = filepath.Join(dir, "models")
	cfg.Only = only
	cfg.Verify = true
	return cfg
}

func newTestGenerator(t *testing.T, cfg Config) *Generator {
	t.Helper()
	gen, err := New(cfg, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	return gen
}

func TestCatalogNames(t *testing.T) {
	names := Names()
	require.Greater(t, len(names), 100)
	assert.Equal(t, "maxpooling", names[0])
	assert.Equal(t, "normalize_fusion", names[len(names)-1])

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		assert.False(t, seen[n], "duplicate fixture %q", n)
		seen[n] = true
	}
	for _, n := range []string{
		"dynamic_resize_9", "dynamic_resize_10", "dynamic_resize_11",
		"dynamic_resize_scale_11", "split_4", "reduce_max_axis_1",
		"upsample_unfused_two_inputs_opset11_torch1.4", "slice_opset_11_dynamic_axes",
	} {
		assert.True(t, seen[n], "missing fixture %q", n)
	}
}

func TestRunWritesSelectedFixtures(t *testing.T) {
	cfg := testConfig(t, "linear", "div", "reduce_mean", "split_3")
	gen := newTestGenerator(t, cfg)
	require.NoError(t, gen.Run())

	assert.Equal(t, []string{"linear", "reduce_mean", "split_3", "div"}, gen.Written())
	for _, f := range []string{
		"data/input_linear.npy", "data/output_linear.npy", "models/linear.onnx",
		"data/input_div_0.npy", "data/input_div_1.npy", "data/output_div.npy",
		"data/input_reduce_mean.npy", "models/reduce_mean.onnx",
	} {
		assert.FileExists(t, filepath.Join(filepath.Dir(cfg.DataDir), f))
	}
	assert.NoFileExists(t, filepath.Join(cfg.ModelsDir, "convolution.onnx"))
	assert.NoFileExists(t, filepath.Join(cfg.DataDir, "input_div.npy"))
}

func TestRunAll(t *testing.T) {
	if testing.Short() {
		t.Skip("generates every fixture")
	}
	cfg := testConfig(t)
	gen := newTestGenerator(t, cfg)
	require.NoError(t, gen.Run())
	assert.Equal(t, Names(), gen.Written())
}

func TestFilteredRunSameInputs(t *testing.T) {
	read := func(only ...string) []byte {
		cfg := testConfig(t, only...)
		cfg.Verify = false
		require.NoError(t, newTestGenerator(t, cfg).Run())
		data, err := os.ReadFile(filepath.Join(cfg.DataDir, "input_normalize_fusion.npy"))
		require.NoError(t, err)
		return data
	}
	alone := read("normalize_fusion")
	assert.Equal(t, alone, read("maxpooling", "lstm", "normalize_fusion"))
}

func TestSkip(t *testing.T) {
	cfg := testConfig(t, "linear", "mul")
	cfg.Skip = []string{"linear"}
	gen := newTestGenerator(t, cfg)
	require.NoError(t, gen.Run())
	assert.Equal(t, []string{"mul"}, gen.Written())
}

func inputDims(t *testing.T, path string) []any {
	t.Helper()
	m, err := onnx.ParseFile(path)
	require.NoError(t, err)
	var out []any
	for _, d := range m.Graph.Inputs[0].Type.TensorType.Shape.Dims {
		if d.IsSymbolic() {
			out = append(out, d.DimParam)
		} else {
			out = append(out, int(d.DimValue))
		}
	}
	return out
}

func TestDynamicAxes(t *testing.T) {
	cfg := testConfig(t, "gather_dynamic_axes", "unsqueeze_and_conv_dynamic_axes", "slice_opset_11_dynamic_axes")
	require.NoError(t, newTestGenerator(t, cfg).Run())

	tests := map[string][]any{
		"gather_dynamic_axes":             {"batch_size", 2, "height", "width"},
		"unsqueeze_and_conv_dynamic_axes": {3, "height", "width"},
		"slice_opset_11_dynamic_axes":     {"batch_size", 2, "height", "width"},
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want, inputDims(t, filepath.Join(cfg.ModelsDir, name+".onnx")))
		})
	}
}

func TestExportParams(t *testing.T) {
	cfg := testConfig(t, "dynamic_resize_scale_9", "concatenation")
	require.NoError(t, newTestGenerator(t, cfg).Run())

	m, err := onnx.ParseFile(filepath.Join(cfg.ModelsDir, "concatenation.onnx"))
	require.NoError(t, err)
	var inputs []string
	for _, in := range m.Graph.Inputs {
		inputs = append(inputs, in.Name)
	}
	assert.Equal(t, []string{"input", "squeeze1.weight", "squeeze1.bias", "squeeze2.weight", "squeeze2.bias"}, inputs)

	m, err = onnx.ParseFile(filepath.Join(cfg.ModelsDir, "dynamic_resize_scale_9.onnx"))
	require.NoError(t, err)
	require.Len(t, m.Graph.Inputs, 2)
	assert.Equal(t, int64(9), onnx.DefaultOpset(m))
	assert.Equal(t, int64(4), m.IRVersion)
}

func TestSaveONNXDataAndModel(t *testing.T) {
	cfg := testConfig(t)
	gen := newTestGenerator(t, cfg)
	x := floatTensor([]float32{1, 2, 3, 4}, 1, 2, 2)
	attrs := []onnx.AttributeProto{onnx.AttrInts("axes", 2), onnx.AttrInt("keepdims", 1)}

	want := floatTensor([]float32{1.5, 3.5}, 1, 2, 1)
	require.NoError(t, gen.SaveONNXDataAndModel("mean", "ReduceMean", x, want, attrs...))
	m, err := onnx.ParseFile(filepath.Join(cfg.ModelsDir, "mean.onnx"))
	require.NoError(t, err)
	assert.Equal(t, "mean", m.ProducerName)
	require.Len(t, m.Graph.Nodes, 1)
	assert.Equal(t, []string{"input"}, m.Graph.Nodes[0].Inputs)
	assert.Equal(t, []string{"output"}, m.Graph.Nodes[0].Outputs)

	wrong := floatTensor([]float32{1, 3}, 1, 2, 1)
	err = gen.SaveONNXDataAndModel("bad_mean", "ReduceMean", x, wrong, attrs...)
	assert.ErrorContains(t, err, "disagrees with the given output")
	assert.NoFileExists(t, filepath.Join(cfg.ModelsDir, "bad_mean.onnx"))
}

func TestTextSnapshot(t *testing.T) {
	cfg := testConfig(t, "ReLU")
	cfg.Text = true
	require.NoError(t, newTestGenerator(t, cfg).Run())

	data, err := os.ReadFile(filepath.Join(cfg.ModelsDir, "ReLU.pbtxt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `op_type: "Relu"`)
}

func TestVerifyDetectsTamperedOutput(t *testing.T) {
	cfg := testConfig(t, "exp")
	gen := newTestGenerator(t, cfg)
	require.NoError(t, gen.Run())
	require.NoError(t, gen.Verify("exp"))

	bad, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float32)
	require.NoError(t, err)
	require.NoError(t, npy.Save(filepath.Join(cfg.DataDir, "output_exp"), bad))
	assert.ErrorContains(t, gen.Verify("exp"), "verify exp")
}

func TestCompare(t *testing.T) {
	a := floatTensor([]float32{1, 2, 3}, 3)
	assert.NoError(t, compare(a, floatTensor([]float32{1, 2, 3.000001}, 3)))
	assert.ErrorContains(t, compare(a, floatTensor([]float32{1, 2.5, 3}, 3)), "element 1")
	assert.ErrorContains(t, compare(a, floatTensor([]float32{1, 2, 3}, 1, 3)), "shape")
}

func TestVerifyAll(t *testing.T) {
	cfg := testConfig(t, "exp", "pow2", "mish")
	cfg.Verify = false
	gen := newTestGenerator(t, cfg)
	require.NoError(t, gen.Run())

	errs := VerifyAll(cfg.DataDir, cfg.ModelsDir, []string{"exp", "missing", "mish", "pow2"}, gen.Backend(), 2)
	require.Len(t, errs, 4)
	assert.NoError(t, errs[0])
	assert.ErrorContains(t, errs[1], "verify missing")
	assert.NoError(t, errs[2])
	assert.NoError(t, errs[3])
}
