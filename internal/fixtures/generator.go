// Package fixtures generates the ONNX test fixtures: for every entry of
// the catalog a model file plus the NumPy arrays of its sample inputs and
// reference output.
//
// Each model is built with an onnx.GraphBuilder, which traces every node
// on the CPU backend while the graph is assembled; the traced graph
// output is the reference. Before anything is written the serialized
// model is parsed back and passed through onnx.CheckModel.
package fixtures

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/born-ml/onnxgen/internal/backend/cpu"
	"github.com/born-ml/onnxgen/internal/nn"
	"github.com/born-ml/onnxgen/internal/npy"
	"github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/parallel"
	"github.com/born-ml/onnxgen/internal/random"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// Producer is written into every model built from layers.
const (
	Producer        = "onnxgen"
	ProducerVersion = "0.1.0"
)

// SingleNodeOpset is the opset of the models written by
// SaveONNXDataAndModel. Reduce axes are attributes up to opset 12.
const SingleNodeOpset = 11

// Tolerance is the absolute and relative tolerance used when comparing
// outputs.
const Tolerance = 1e-5

// Option adjusts how one fixture is exported.
type Option func(*exportOptions)

type exportOptions struct {
	opset        int64
	exportParams bool
}

// WithOpset pins the opset of a fixture.
func WithOpset(v int64) Option {
	return func(o *exportOptions) { o.opset = v }
}

// WithExportParams selects whether parameters are stored only as
// initializers (true) or also declared as graph inputs (false, the
// default).
func WithExportParams(b bool) Option {
	return func(o *exportOptions) { o.exportParams = b }
}

// MultiInput builds a model that takes several inputs.
type MultiInput func(g *onnx.GraphBuilder, xs []onnx.Value) onnx.Value

// Generator writes fixtures into the configured directories.
type Generator struct {
	cfg     Config
	log     *log.Logger
	src     *random.Source
	backend tensor.Backend
	only    map[string]bool
	skip    map[string]bool
	written []string
}

// New creates a generator and the output directories.
func New(cfg Config, logger *log.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.DataDir, cfg.ModelsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	return &Generator{
		cfg:     cfg,
		log:     logger,
		src:     random.New(cfg.Seed),
		backend: cpu.New(),
		only:    set(cfg.Only),
		skip:    set(cfg.Skip),
	}, nil
}

func set(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Source returns the random source shared by all fixtures.
func (gen *Generator) Source() *random.Source { return gen.src }

// Backend returns the backend models are traced on.
func (gen *Generator) Backend() tensor.Backend { return gen.backend }

// Written returns the names of the fixtures written so far.
func (gen *Generator) Written() []string { return gen.written }

// Run builds every catalog entry in order. Entries that are filtered out
// still draw their random inputs and parameters, so a filtered run writes
// the same bytes as a full one.
func (gen *Generator) Run() error {
	for _, e := range Catalog() {
		if err := e.Run(gen); err != nil {
			return fmt.Errorf("%s: %w", e.Names[0], err)
		}
	}
	gen.log.Printf("wrote %d fixtures to %s and %s", len(gen.written), gen.cfg.DataDir, gen.cfg.ModelsDir)
	return nil
}

func (gen *Generator) selected(name string) bool {
	if gen.skip[name] {
		return false
	}
	return len(gen.only) == 0 || gen.only[name]
}

func (gen *Generator) options(opts []Option) exportOptions {
	o := exportOptions{opset: gen.cfg.Opset}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// SaveDataAndModel exports a single-input model. The input is written as
// data/input_<name>.npy and fed to the graph input "input".
func (gen *Generator) SaveDataAndModel(name string, input *tensor.RawTensor, model nn.Module, opts ...Option) error {
	if !gen.selected(name) {
		return nil
	}
	gen.log.Printf("%s input has sizes %v", name, input.Shape())
	build := func(g *onnx.GraphBuilder, xs []onnx.Value) onnx.Value { return model.Build(g, xs[0]) }
	return gen.save(name, []string{"input"}, []*tensor.RawTensor{input}, build, gen.options(opts))
}

// SaveDataAndModelMultiInputs exports a model with several inputs,
// written as data/input_<name>_<i>.npy and fed to "input_<i>".
func (gen *Generator) SaveDataAndModelMultiInputs(name string, model MultiInput, inputs []*tensor.RawTensor, opts ...Option) error {
	if !gen.selected(name) {
		return nil
	}
	names := make([]string, len(inputs))
	for i := range inputs {
		names[i] = fmt.Sprintf("input_%d", i)
	}
	return gen.save(name, names, inputs, model, gen.options(opts))
}

func (gen *Generator) save(name string, inputNames []string, inputs []*tensor.RawTensor, build MultiInput, o exportOptions) error {
	g := onnx.NewGraphBuilder(name, o.opset, gen.backend)
	xs := make([]onnx.Value, len(inputs))
	for i, in := range inputs {
		xs[i] = g.Input(inputNames[i], in)
	}
	g.Output(build(g, xs), "output")
	model, err := g.Model(onnx.ModelOptions{
		ProducerName:         Producer,
		ProducerVersion:      ProducerVersion,
		InitializersAsInputs: !o.exportParams,
	})
	if err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	output, _ := g.Trace("output")
	gen.log.Printf("%s output has sizes %v", name, output.Shape())
	return gen.write(name, inputs, output, model)
}

// SaveONNXDataAndModel writes a single-node model applying op to a graph
// input "input" and producing "output". The given output is checked
// against the traced one before anything is written.
func (gen *Generator) SaveONNXDataAndModel(name, op string, input, output *tensor.RawTensor, attrs ...onnx.AttributeProto) error {
	if !gen.selected(name) {
		return nil
	}
	gen.log.Printf("%s input has sizes %v", name, input.Shape())
	gen.log.Printf("%s output has sizes %v", name, output.Shape())

	g := onnx.NewGraphBuilder(name, SingleNodeOpset, gen.backend)
	g.Output(g.Op(op, []onnx.Value{g.Input("input", input)}, attrs...), "output")
	model, err := g.Model(onnx.ModelOptions{ProducerName: name})
	if err != nil {
		return fmt.Errorf("export %s: %w", name, err)
	}
	traced, _ := g.Trace("output")
	if err := compare(traced, output); err != nil {
		return fmt.Errorf("%s: %s disagrees with the given output: %w", name, op, err)
	}
	return gen.write(name, []*tensor.RawTensor{input}, output, model)
}

// write round-trips the model through the codec and the checker, then
// writes the arrays and the model file.
func (gen *Generator) write(name string, inputs []*tensor.RawTensor, output *tensor.RawTensor, model *onnx.ModelProto) error {
	data, err := onnx.Marshal(model)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", name, err)
	}
	parsed, err := onnx.Parse(data)
	if err != nil {
		return fmt.Errorf("reparse %s: %w", name, err)
	}
	if err := onnx.CheckModel(parsed); err != nil {
		return fmt.Errorf("check %s: %w", name, err)
	}
	onnx.StripDocStrings(parsed)

	if len(inputs) == 1 {
		if err := npy.Save(gen.dataPath("input_"+name), inputs[0]); err != nil {
			return err
		}
	} else {
		for i, in := range inputs {
			if err := npy.Save(gen.dataPath(fmt.Sprintf("input_%s_%d", name, i)), in); err != nil {
				return err
			}
		}
	}
	if err := npy.Save(gen.dataPath("output_"+name), output); err != nil {
		return err
	}
	if err := onnx.SaveFile(gen.modelPath(name), parsed); err != nil {
		return err
	}
	if gen.cfg.Text {
		path := filepath.Join(gen.cfg.ModelsDir, name+".pbtxt")
		if err := os.WriteFile(path, []byte(onnx.Text(parsed)), 0o644); err != nil {
			return fmt.Errorf("write text form: %w", err)
		}
	}
	gen.written = append(gen.written, name)

	if gen.cfg.Verify {
		return gen.Verify(name)
	}
	return nil
}

func (gen *Generator) dataPath(base string) string {
	return filepath.Join(gen.cfg.DataDir, base+".npy")
}

func (gen *Generator) modelPath(name string) string {
	return filepath.Join(gen.cfg.ModelsDir, name+".onnx")
}

// PostprocessModel rewrites the declared input dimensions of a written
// fixture. It is a no-op for fixtures that were filtered out.
func (gen *Generator) PostprocessModel(name string, dims [][]onnx.Dim) error {
	if !gen.selected(name) {
		return nil
	}
	return onnx.PostprocessModel(gen.modelPath(name), dims)
}

// Verify reloads a written fixture from disk, runs the model on the saved
// inputs and compares the result with the saved output.
func (gen *Generator) Verify(name string) error {
	return VerifyFixture(gen.cfg.DataDir, gen.cfg.ModelsDir, name, gen.backend)
}

// VerifyFixture is Verify for fixtures on disk outside a generator run.
func VerifyFixture(dataDir, modelsDir, name string, backend tensor.Backend) error {
	sess, err := onnx.Load(filepath.Join(modelsDir, name+".onnx"), backend)
	if err != nil {
		return fmt.Errorf("verify %s: %w", name, err)
	}
	inputNames := sess.InputNames()
	feeds := make(map[string]*tensor.RawTensor, len(inputNames))
	for i, in := range inputNames {
		base := "input_" + name
		if len(inputNames) > 1 {
			base = fmt.Sprintf("input_%s_%d", name, i)
		}
		t, err := npy.Load(filepath.Join(dataDir, base+".npy"))
		if err != nil {
			return fmt.Errorf("verify %s: %w", name, err)
		}
		feeds[in] = t
	}
	want, err := npy.Load(filepath.Join(dataDir, "output_"+name+".npy"))
	if err != nil {
		return fmt.Errorf("verify %s: %w", name, err)
	}
	outs, err := sess.ForwardNamed(feeds)
	if err != nil {
		return fmt.Errorf("verify %s: %w", name, err)
	}
	got, ok := outs["output"]
	if !ok {
		return fmt.Errorf("verify %s: model has no output named %q", name, "output")
	}
	if err := compare(got, want); err != nil {
		return fmt.Errorf("verify %s: %w", name, err)
	}
	return nil
}

// VerifyAll verifies the named fixtures on up to workers goroutines and
// returns one error per name, nil for fixtures that pass.
func VerifyAll(dataDir, modelsDir string, names []string, backend tensor.Backend, workers int) []error {
	return parallel.Errors(len(names), func(i int) error {
		return VerifyFixture(dataDir, modelsDir, names[i], backend)
	}, parallel.Config{NumWorkers: workers})
}

// compare checks shapes and values within Tolerance.
func compare(got, want *tensor.RawTensor) error {
	if !got.Shape().Equal(want.Shape()) {
		return fmt.Errorf("shape %v, want %v", got.Shape(), want.Shape())
	}
	g, w := float64s(got), float64s(want)
	if floats.EqualApprox(g, w, Tolerance) {
		return nil
	}
	for i := range g {
		if !scalar.EqualWithinAbsOrRel(g[i], w[i], Tolerance, Tolerance) {
			return fmt.Errorf("element %d is %g, want %g", i, g[i], w[i])
		}
	}
	return nil
}

func float64s(t *tensor.RawTensor) []float64 {
	out := make([]float64, t.NumElements())
	for i := range out {
		out[i] = t.Float64At(i)
	}
	return out
}
