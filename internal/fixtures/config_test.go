package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "onnxgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "seed: 7\nonly: [linear]\ntext: true\n"))
	require.NoError(t, err)

	want := DefaultConfig()
	want.Seed = 7
	want.Only = []string{"linear"}
	want.Text = true
	assert.Equal(t, want, cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"opset too high", "opset: 20\n", "opset 20 outside [7, 13]"},
		{"opset too low", "opset: 6\n", "opset 6 outside [7, 13]"},
		{"empty data dir", "data_dir: \"\"\n", "data_dir is empty"},
		{"empty models dir", "models_dir: \"\"\n", "models_dir is empty"},
		{"unknown only", "only: [linear, nosuchfixture]\n", `only: unknown fixture "nosuchfixture"`},
		{"unknown skip", "skip: [lineer]\n", `skip: unknown fixture "lineer"`},
		{"malformed yaml", "seed: [1\n", "parse config"},
		{"wrong type", "seed: many\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Config{Opset: 99, Skip: []string{"nope"}}
	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"data_dir is empty", "models_dir is empty", "opset 99", `unknown fixture "nope"`} {
		assert.ErrorContains(t, err, want)
	}
	assert.NoError(t, DefaultConfig().Validate())
}

func TestNewRejectsUnknownFixture(t *testing.T) {
	cfg := testConfig(t, "nosuchfixture")
	_, err := New(cfg, nil)
	assert.ErrorContains(t, err, `only: unknown fixture "nosuchfixture"`)
}
