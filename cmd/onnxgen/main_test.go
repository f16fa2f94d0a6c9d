package main

import (
	"bytes"
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/onnxgen/internal/fixtures"
	"github.com/born-ml/onnxgen/internal/onnx"
)

func TestParseDims(t *testing.T) {
	dims, err := parseDims("batch_size,1, height ,-1;3")
	require.NoError(t, err)
	assert.Equal(t, [][]onnx.Dim{{"batch_size", 1, "height", -1}, {3}}, dims)

	_, err = parseDims("1,,2")
	assert.ErrorContains(t, err, "empty dimension")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"linear", "mul"}, splitList(" linear,,mul "))
	assert.Nil(t, splitList(""))
}

func TestPrintInfo(t *testing.T) {
	info := &onnx.ModelInfo{
		GraphName:    "relu",
		IRVersion:    4,
		OpsetVersion: 9,
		OutputNames:  []string{"output"},
		NodeCount:    2,
		OpCounts:     map[string]int{"Relu": 1, "Add": 1},
	}
	var buf bytes.Buffer
	printInfo(&buf, info)
	out := buf.String()
	assert.Contains(t, out, "opset:     9")
	assert.Regexp(t, `(?s)Add\s+1.*Relu\s+1`, out)
}

func TestGenerateFlagsOverrideConfig(t *testing.T) {
	cfg := fixtures.DefaultConfig()
	cfg.Seed = 7
	cfg.Opset = 11
	cfg.Text = true

	cmd := flag.NewFlagSet("generate", flag.ContinueOnError)
	var flags generateFlags
	flags.register(cmd)
	require.NoError(t, cmd.Parse([]string{"-seed", "3", "-only", "linear,mul", "-data", "out"}))
	flags.apply(cmd, &cfg)

	assert.Equal(t, int64(3), cfg.Seed)
	assert.Equal(t, []string{"linear", "mul"}, cfg.Only)
	assert.Equal(t, "out", cfg.DataDir)
	// Flags left unset keep the file's values, even when their zero value differs.
	assert.Equal(t, int64(11), cfg.Opset)
	assert.True(t, cfg.Text)
	assert.Equal(t, "models", cfg.ModelsDir)
}
