package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// RawTensor is the low-level tensor representation: a shape, an element type
// and a contiguous row-major little-endian buffer.
type RawTensor struct {
	data   []byte
	shape  Shape
	stride []int
	dtype  DataType
}

// NewRaw creates a new zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:   make([]byte, shape.NumElements()*dtype.Size()),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}, nil
}

// FromBytes wraps a little-endian buffer. The buffer length must match the
// shape and dtype exactly; the tensor takes ownership of data.
func FromBytes(data []byte, shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if want := shape.NumElements() * dtype.Size(); len(data) != want {
		return nil, fmt.Errorf("buffer has %d bytes, shape %v of %s needs %d", len(data), shape, dtype, want)
	}
	return &RawTensor{
		data:   data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}, nil
}

// FromSlice creates a tensor holding a copy of data with the given shape.
func FromSlice[T DType](data []T, shape Shape) (*RawTensor, error) {
	var zero T
	t, err := NewRaw(shape, inferDataType(zero))
	if err != nil {
		return nil, err
	}
	if len(data) != shape.NumElements() {
		return nil, fmt.Errorf("data has %d elements, shape %v needs %d", len(data), shape, shape.NumElements())
	}
	if len(data) > 0 {
		//nolint:gosec // unsafe.Slice reinterprets the typed slice as bytes for a single copy
		src := unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*t.dtype.Size())
		copy(t.data, src)
	}
	return t, nil
}

// Scalar creates a 0-d float32 tensor.
func Scalar(v float32) *RawTensor {
	t, _ := NewRaw(Shape{}, Float32) //nolint:errcheck // empty shape is always valid
	t.AsFloat32()[0] = v
	return t
}

// Int64Vector creates a 1-d int64 tensor, the usual carrier of shapes and axes.
func Int64Vector(values ...int64) *RawTensor {
	t, _ := NewRaw(Shape{len(values)}, Int64) //nolint:errcheck // length is never negative
	copy(t.AsInt64(), values)
	return t
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return len(r.data)
}

// Data returns the raw little-endian byte slice.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(fmt.Sprintf("tensor dtype is %s, not float32", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(fmt.Sprintf("tensor dtype is %s, not float64", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(fmt.Sprintf("tensor dtype is %s, not int32", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(fmt.Sprintf("tensor dtype is %s, not int64", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsUint8 interprets the data as []uint8.
// Panics if the tensor's dtype is not Uint8.
func (r *RawTensor) AsUint8() []uint8 {
	if r.dtype != Uint8 {
		panic(fmt.Sprintf("tensor dtype is %s, not uint8", r.dtype))
	}
	return r.data
}

// AsBool interprets the data as []bool.
// Panics if the tensor's dtype is not Bool.
func (r *RawTensor) AsBool() []bool {
	if r.dtype != Bool {
		panic(fmt.Sprintf("tensor dtype is %s, not bool", r.dtype))
	}
	if len(r.data) == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*bool)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Float64At reads element i as float64 whatever the dtype.
func (r *RawTensor) Float64At(i int) float64 {
	switch r.dtype {
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(r.data[4*i:])))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(r.data[8*i:]))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(r.data[4*i:]))) //nolint:gosec // G115: reinterpreting stored bits
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(r.data[8*i:]))) //nolint:gosec // G115: reinterpreting stored bits
	case Uint8, Bool:
		return float64(r.data[i])
	default:
		panic(fmt.Sprintf("unsupported dtype %s", r.dtype))
	}
}

// Ints returns the elements of an integer tensor as ints. Float tensors are
// truncated, which is what shape arithmetic in exported graphs expects.
func (r *RawTensor) Ints() []int {
	out := make([]int, r.NumElements())
	switch r.dtype {
	case Int64:
		for i, v := range r.AsInt64() {
			out[i] = int(v)
		}
	case Int32:
		for i, v := range r.AsInt32() {
			out[i] = int(v)
		}
	default:
		for i := range out {
			out[i] = int(r.Float64At(i))
		}
	}
	return out
}

// Clone creates a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
	}
}

// view returns a tensor sharing r's buffer with a different shape.
func (r *RawTensor) view(shape Shape) *RawTensor {
	return &RawTensor{
		data:   r.data,
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  r.dtype,
	}
}

// String returns a short description, not the contents.
func (r *RawTensor) String() string {
	return fmt.Sprintf("RawTensor(%s, %v)", r.dtype, r.shape)
}
