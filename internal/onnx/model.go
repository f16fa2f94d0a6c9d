package onnx

import (
	"fmt"

	"github.com/born-ml/onnxgen/internal/onnx/operators"
	"github.com/born-ml/onnxgen/internal/tensor"
)

// Session is a loaded ONNX model ready for inference.
// It executes the computation graph on the provided backend.
type Session struct {
	proto        *ModelProto
	registry     *operators.Registry
	backend      tensor.Backend
	weights      map[string]*tensor.RawTensor
	inputNames   []string
	outputNames  []string
	nodes        []*operators.Node
	opsetVersion int64
}

// InputNames returns the names of the graph inputs that are not initializers.
func (s *Session) InputNames() []string {
	return s.inputNames
}

// OutputNames returns the names of model outputs.
func (s *Session) OutputNames() []string {
	return s.outputNames
}

// OpsetVersion returns the default-domain opset version.
func (s *Session) OpsetVersion() int64 {
	return s.opsetVersion
}

// Proto returns the model the session was built from.
func (s *Session) Proto() *ModelProto {
	return s.proto
}

// Metadata returns model metadata as key-value pairs.
func (s *Session) Metadata() map[string]string {
	meta := make(map[string]string)
	for _, prop := range s.proto.MetadataProps {
		meta[prop.Key] = prop.Value
	}
	meta["producer_name"] = s.proto.ProducerName
	meta["producer_version"] = s.proto.ProducerVersion
	meta["domain"] = s.proto.Domain
	return meta
}

// Forward runs inference with a single input tensor.
// For models with multiple inputs, use ForwardNamed.
func (s *Session) Forward(input *tensor.RawTensor) (*tensor.RawTensor, error) {
	if len(s.inputNames) != 1 {
		return nil, fmt.Errorf("model has %d inputs, use ForwardNamed", len(s.inputNames))
	}

	outputs, err := s.ForwardNamed(map[string]*tensor.RawTensor{
		s.inputNames[0]: input,
	})
	if err != nil {
		return nil, err
	}

	if len(s.outputNames) != 1 {
		return nil, fmt.Errorf("model has %d outputs, access via ForwardNamed result", len(s.outputNames))
	}

	return outputs[s.outputNames[0]], nil
}

// ForwardNamed runs inference with named inputs.
// Returns a map of output name to tensor.
func (s *Session) ForwardNamed(inputs map[string]*tensor.RawTensor) (map[string]*tensor.RawTensor, error) {
	values := make(map[string]*tensor.RawTensor, len(s.weights)+len(inputs))
	for name, t := range s.weights {
		values[name] = t
	}
	for name, t := range inputs {
		values[name] = t
	}

	for _, name := range s.inputNames {
		if _, ok := values[name]; !ok {
			return nil, fmt.Errorf("missing input: %s", name)
		}
	}

	ctx := &operators.Context{Backend: s.backend, Opset: s.opsetVersion}
	for _, node := range s.nodes {
		if err := execNode(s.registry, ctx, node, values); err != nil {
			return nil, err
		}
	}

	result := make(map[string]*tensor.RawTensor, len(s.outputNames))
	for _, name := range s.outputNames {
		t, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("missing output: %s", name)
		}
		result[name] = t
	}

	return result, nil
}

// execNode gathers a node's inputs from values, runs it and stores the
// outputs back. Empty input names are skipped optional inputs.
func execNode(registry *operators.Registry, ctx *operators.Context, node *operators.Node, values map[string]*tensor.RawTensor) error {
	nodeInputs := make([]*tensor.RawTensor, len(node.Inputs))
	for i, name := range node.Inputs {
		if name == "" {
			continue
		}
		t, ok := values[name]
		if !ok {
			return fmt.Errorf("node %s: missing input %s", node.Name, name)
		}
		nodeInputs[i] = t
	}

	outputs, err := registry.Execute(ctx, node, nodeInputs)
	if err != nil {
		return fmt.Errorf("node %s (%s): %w", node.Name, node.OpType, err)
	}
	if len(outputs) < countNamed(node.Outputs) {
		return fmt.Errorf("node %s (%s): produced %d outputs, graph expects %d", node.Name, node.OpType, len(outputs), len(node.Outputs))
	}

	for i, name := range node.Outputs {
		if name != "" && i < len(outputs) {
			values[name] = outputs[i]
		}
	}
	return nil
}

// countNamed returns the position after the last non-empty name.
func countNamed(names []string) int {
	n := 0
	for i, name := range names {
		if name != "" {
			n = i + 1
		}
	}
	return n
}

// compile prepares the model for inference.
func (s *Session) compile() error {
	graph := s.proto.Graph
	if graph == nil {
		return ErrNoGraph
	}

	s.weights = make(map[string]*tensor.RawTensor, len(graph.Initializers))
	for i := range graph.Initializers {
		init := &graph.Initializers[i]
		t, err := TensorFromProto(init)
		if err != nil {
			return fmt.Errorf("failed to load initializer %s: %w", init.Name, err)
		}
		s.weights[init.Name] = t
	}

	// Inputs are graph inputs minus initializers
	for i := range graph.Inputs {
		if _, ok := s.weights[graph.Inputs[i].Name]; !ok {
			s.inputNames = append(s.inputNames, graph.Inputs[i].Name)
		}
	}

	for i := range graph.Outputs {
		s.outputNames = append(s.outputNames, graph.Outputs[i].Name)
	}

	sorted := topologicalSort(graph.Nodes)
	s.nodes = make([]*operators.Node, len(sorted))
	for i := range sorted {
		node, err := nodeProtoToOperatorNode(&sorted[i])
		if err != nil {
			return err
		}
		s.nodes[i] = node
	}

	s.opsetVersion = DefaultOpset(s.proto)
	return nil
}

// DefaultOpset returns the version imported for the default domain, or 0.
func DefaultOpset(m *ModelProto) int64 {
	for _, opset := range m.OpsetImport {
		if opset.Domain == "" || opset.Domain == "ai.onnx" {
			return opset.Version
		}
	}
	return 0
}

// nodeProtoToOperatorNode converts NodeProto to operators.Node, decoding
// tensor-valued attributes.
func nodeProtoToOperatorNode(proto *NodeProto) (*operators.Node, error) {
	attrs := make([]operators.Attribute, len(proto.Attributes))
	for i := range proto.Attributes {
		attr := &proto.Attributes[i]
		attrs[i] = operators.Attribute{
			Name:    attr.Name,
			Type:    attr.Type,
			F:       attr.F,
			I:       attr.I,
			S:       attr.S,
			Floats:  attr.Floats,
			Ints:    attr.Ints,
			Strings: attr.Strings,
		}
		if attr.T != nil {
			t, err := TensorFromProto(attr.T)
			if err != nil {
				return nil, fmt.Errorf("node %s attribute %s: %w", proto.Name, attr.Name, err)
			}
			attrs[i].T = t
		}
	}
	return &operators.Node{
		Name:       proto.Name,
		OpType:     proto.OpType,
		Inputs:     proto.Inputs,
		Outputs:    proto.Outputs,
		Attributes: attrs,
		Domain:     proto.Domain,
	}, nil
}

// topologicalSort sorts nodes in execution order.
// Ensures dependencies are executed before dependents.
func topologicalSort(nodes []NodeProto) []NodeProto {
	outputToNode := make(map[string]int)
	for i := range nodes {
		for _, output := range nodes[i].Outputs {
			if output != "" {
				outputToNode[output] = i
			}
		}
	}

	visited := make([]bool, len(nodes))
	result := make([]NodeProto, 0, len(nodes))

	var visit func(i int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true

		// Visit dependencies first
		for _, input := range nodes[i].Inputs {
			if depIdx, ok := outputToNode[input]; ok {
				visit(depIdx)
			}
		}

		result = append(result, nodes[i])
	}

	for i := range nodes {
		visit(i)
	}

	return result
}
