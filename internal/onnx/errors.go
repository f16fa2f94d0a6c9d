package onnx

import (
	"errors"
	"fmt"
)

// Sentinel errors for decoding.
var (
	ErrTruncated   = errors.New("truncated protobuf message")
	ErrWireType    = errors.New("unexpected wire type")
	ErrNoGraph     = errors.New("model has no graph")
	ErrUnsupported = errors.New("unsupported data type")
)

// Sentinel errors for structural checks. Every CheckError wraps one of them.
var (
	ErrIRVersion       = errors.New("invalid IR version")
	ErrOpset           = errors.New("invalid opset import")
	ErrGraphName       = errors.New("graph has no name")
	ErrUnknownOp       = errors.New("unknown operator")
	ErrNodeArity       = errors.New("wrong number of node inputs or outputs")
	ErrAttribute       = errors.New("invalid attribute")
	ErrDuplicateValue  = errors.New("value produced more than once")
	ErrUndefinedValue  = errors.New("value used before definition")
	ErrMissingOutput   = errors.New("graph output is never produced")
	ErrValueType       = errors.New("value info has no tensor type")
	ErrDimension       = errors.New("invalid dimension")
	ErrInitializer     = errors.New("invalid initializer")
	ErrInitializerDecl = errors.New("initializer is not declared as a graph input")
)

// ErrDimValueType is returned when a dimension override is neither an
// integer nor a string.
var ErrDimValueType = errors.New("only int or string is accepted as dimension value")

// CheckError describes a structural problem found by CheckModel.
type CheckError struct {
	Where string // e.g. "node Conv_0", "graph input x"
	Err   error  // one of the Err* sentinels
	Msg   string
}

func (e *CheckError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Where, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Where, e.Err, e.Msg)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

func checkErr(where string, err error, format string, args ...any) *CheckError {
	return &CheckError{Where: where, Err: err, Msg: fmt.Sprintf(format, args...)}
}

// FormatError reports malformed protobuf input at a message/field path.
type FormatError struct {
	Message string // protobuf message being decoded
	Field   int    // field number, 0 if not applicable
	Err     error
}

func (e *FormatError) Error() string {
	if e.Field == 0 {
		return fmt.Sprintf("onnx: decoding %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("onnx: decoding %s field %d: %v", e.Message, e.Field, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
