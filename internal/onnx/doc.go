// Package onnx reads, writes, builds, checks and runs ONNX models.
//
// The protobuf messages are hand-written structs (ModelProto, GraphProto,
// NodeProto, TensorProto, ValueInfoProto) covering the fields an exported
// inference graph uses. Parse and Marshal convert them from and to the wire
// format with protowire.
//
// GraphBuilder assembles a graph node by node and evaluates every node on a
// backend as it is added, so the reference output of a graph is known as
// soon as the graph is. Helpers such as Slice, Resize and Softmax emit the
// form of an operator that is legal for the builder's opset.
//
// CheckModel validates structure against a per-opset schema table,
// UpdateInputDims rewrites declared input dimensions and Text renders the
// protobuf text format.
//
// Example:
//
//	g := onnx.NewGraphBuilder("relu", 11, cpu.New())
//	g.Output(g.Op("Relu", []onnx.Value{g.Input("input", x)}), "output")
//	model, err := g.Model(onnx.ModelOptions{ProducerName: "relu"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := onnx.CheckModel(model); err != nil {
//	    log.Fatal(err)
//	}
package onnx
