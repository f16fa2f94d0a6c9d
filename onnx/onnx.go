// Package onnx is the public entry point for consumers of the generated
// fixtures: load a fixture model, feed it the saved inputs and compare
// against the saved output.
//
// # Example Usage
//
//	model, err := onnx.Load("models/convolution.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	input, err := onnx.ReadArray("data/input_convolution.npy")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	output, err := model.Forward(input)
//
// Or, to check a whole fixture in one call:
//
//	if err := onnx.VerifyFixture("data", "models", "convolution"); err != nil {
//	    log.Fatal(err)
//	}
package onnx

import (
	"github.com/born-ml/onnxgen/internal/backend/cpu"
	"github.com/born-ml/onnxgen/internal/fixtures"
	"github.com/born-ml/onnxgen/internal/npy"
	internalonnx "github.com/born-ml/onnxgen/internal/onnx"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// Tensor is a dense tensor as read from a .npy file or produced by a model.
type Tensor = tensor.RawTensor

// Dim is an input dimension override for PatchInputDims: an int (>= 0 for
// a fixed size, < 0 for a generated name) or a string name.
type Dim = internalonnx.Dim

// ModelInfo contains metadata about an ONNX model.
type ModelInfo = internalonnx.ModelInfo

// Load parses an ONNX file and prepares it for execution on the CPU.
func Load(path string) (Model, error) {
	sess, err := internalonnx.Load(path, cpu.New())
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Check parses an ONNX file and validates its structure.
func Check(path string) error {
	m, err := internalonnx.ParseFile(path)
	if err != nil {
		return err
	}
	return internalonnx.CheckModel(m)
}

// GetModelInfo extracts metadata from an ONNX file.
func GetModelInfo(path string) (*ModelInfo, error) {
	return internalonnx.GetModelInfo(path)
}

// PatchInputDims rewrites the declared input dimensions of an ONNX file in
// place. dims[i] overrides the leading dims of graph input i.
func PatchInputDims(path string, dims [][]Dim) error {
	return internalonnx.PostprocessModel(path, dims)
}

// ReadArray reads a .npy file.
func ReadArray(path string) (*Tensor, error) {
	return npy.Load(path)
}

// VerifyFixture loads models/<name>.onnx, runs it on the saved inputs and
// compares the result with data/output_<name>.npy.
func VerifyFixture(dataDir, modelsDir, name string) error {
	return fixtures.VerifyFixture(dataDir, modelsDir, name, cpu.New())
}

// Fixtures returns the names of all fixtures in generation order.
func Fixtures() []string {
	return fixtures.Names()
}

// ListSupportedOps returns the operators the runtime can execute.
func ListSupportedOps() []string {
	return internalonnx.ListSupportedOps()
}
