package tensor

// Backend defines the numeric kernels the ONNX runtime dispatches to.
// All kernels take and return float32 tensors; integer tensors only flow
// through the layout functions of this package.
//
// Kernels panic on malformed arguments, the same way an index out of range
// would. Callers that execute untrusted graphs recover at node granularity.
type Backend interface {
	// Element-wise binary operations with NumPy broadcasting
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor
	Pow(a, b *RawTensor) *RawTensor
	Max(a, b *RawTensor) *RawTensor
	Min(a, b *RawTensor) *RawTensor

	// Element-wise unary operations
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	Reciprocal(x *RawTensor) *RawTensor
	Neg(x *RawTensor) *RawTensor
	Abs(x *RawTensor) *RawTensor
	Relu(x *RawTensor) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor
	Softplus(x *RawTensor) *RawTensor
	Clip(x *RawTensor, lo, hi float32) *RawTensor

	// Matrix operations
	MatMul(a, b *RawTensor) *RawTensor
	Gemm(a, b, c *RawTensor, p GemmParams) *RawTensor

	// Convolution and pooling over N spatial dimensions (NC... layout)
	Conv(x, w, b *RawTensor, p ConvParams) *RawTensor
	ConvTranspose(x, w, b *RawTensor, p ConvParams) *RawTensor
	MaxPool(x *RawTensor, p PoolParams) *RawTensor
	AveragePool(x *RawTensor, p PoolParams) *RawTensor

	// Normalization
	BatchNorm(x, scale, bias, mean, variance *RawTensor, eps float32) *RawTensor
	InstanceNorm(x, scale, bias *RawTensor, eps float32) *RawTensor

	// Spatial
	Pad(x *RawTensor, pads []int, mode PadMode, value float32) *RawTensor
	Resize(x *RawTensor, outShape Shape, p ResizeParams) *RawTensor

	// Reductions; empty axes reduce everything
	Reduce(x *RawTensor, op ReduceOp, axes []int, keepDims bool) *RawTensor
	Softmax(x *RawTensor, axis int, logarithm bool) *RawTensor

	// Recurrent
	LSTM(x, w, r, b, h0, c0 *RawTensor, p LSTMParams) (y, yh, yc *RawTensor)

	// Metadata
	Name() string
}

// GemmParams mirrors the Gemm attributes.
type GemmParams struct {
	Alpha, Beta    float32
	TransA, TransB bool
}

// ConvParams holds the geometry shared by Conv and ConvTranspose.
// Pads lists all begin values then all end values.
type ConvParams struct {
	Strides       []int
	Pads          []int
	Dilations     []int
	Group         int
	OutputPadding []int
}

// PoolParams holds pooling geometry.
type PoolParams struct {
	Kernel          []int
	Strides         []int
	Pads            []int
	Dilations       []int
	CeilMode        bool
	CountIncludePad bool
}

// PadMode selects how Pad fills the border.
type PadMode string

// Pad modes.
const (
	PadConstant PadMode = "constant"
	PadReflect  PadMode = "reflect"
	PadEdge     PadMode = "edge"
)

// ResizeParams selects interpolation and coordinate mapping.
type ResizeParams struct {
	// Mode is "nearest" or "linear".
	Mode string
	// CoordMode is one of asymmetric, align_corners, half_pixel, pytorch_half_pixel.
	CoordMode string
	// NearestMode is one of floor, ceil, round_prefer_floor, round_prefer_ceil.
	NearestMode string
	// Scales per axis; zero means derive from the shapes.
	Scales []float32
}

// ReduceOp selects the reduction.
type ReduceOp int

// Reductions.
const (
	ReduceSum ReduceOp = iota
	ReduceMean
	ReduceMax
	ReduceL2
)

// LSTMParams mirrors the LSTM attributes.
type LSTMParams struct {
	HiddenSize int
	// Direction is "forward", "reverse" or "bidirectional".
	Direction string
}
