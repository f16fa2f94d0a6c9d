package fixtures

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/onnxgen/internal/onnx"
)

// Config controls a generator run.
type Config struct {
	// DataDir receives input_<name>*.npy and output_<name>.npy.
	DataDir string `yaml:"data_dir"`
	// ModelsDir receives <name>.onnx.
	ModelsDir string `yaml:"models_dir"`
	// Seed seeds the random source shared by every fixture.
	Seed int64 `yaml:"seed"`
	// Opset is used by fixtures that do not pin their own.
	Opset int64 `yaml:"opset"`
	// Only, when non-empty, restricts writing to these fixtures.
	Only []string `yaml:"only"`
	// Skip lists fixtures that are built but not written.
	Skip []string `yaml:"skip"`
	// Verify reloads every written fixture and re-runs it.
	Verify bool `yaml:"verify"`
	// Text also writes the text form of each model as models/<name>.pbtxt.
	Text bool `yaml:"text"`
}

// DefaultConfig returns the layout the fixture consumers expect.
func DefaultConfig() Config {
	return Config{
		DataDir:   "data",
		ModelsDir: "models",
		Seed:      0,
		Opset:     9,
	}
}

// LoadConfig reads a YAML config file. Keys missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings no run can succeed with.
func (c Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is empty"))
	}
	if c.ModelsDir == "" {
		errs = append(errs, errors.New("models_dir is empty"))
	}
	if c.Opset < onnx.MinOpset || c.Opset > onnx.MaxOpset {
		errs = append(errs, fmt.Errorf("opset %d outside [%d, %d]", c.Opset, onnx.MinOpset, onnx.MaxOpset))
	}
	errs = append(errs, unknownFixtures("only", c.Only)...)
	errs = append(errs, unknownFixtures("skip", c.Skip)...)
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func unknownFixtures(key string, names []string) []error {
	if len(names) == 0 {
		return nil
	}
	known := set(Names())
	var errs []error
	for _, n := range names {
		if !known[n] {
			errs = append(errs, fmt.Errorf("%s: unknown fixture %q", key, n))
		}
	}
	return errs
}
