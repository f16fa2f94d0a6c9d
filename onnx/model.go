package onnx

// Model is a loaded ONNX model ready for execution.
//
// The interface keeps the runtime's internal types out of the public API
// and lets tests substitute their own implementation.
type Model interface {
	// Forward runs a model with exactly one input and one output.
	Forward(input *Tensor) (*Tensor, error)

	// ForwardNamed runs the model with named inputs and returns every
	// graph output by name.
	ForwardNamed(inputs map[string]*Tensor) (map[string]*Tensor, error)

	// InputNames returns the graph inputs that are not initializers.
	InputNames() []string

	// OutputNames returns the graph output names.
	OutputNames() []string

	// OpsetVersion returns the default-domain opset the model imports.
	OpsetVersion() int64

	// Metadata returns producer_name, producer_version and the model's
	// metadata_props.
	Metadata() map[string]string
}
