package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Layout operations work on any dtype by moving whole elements; none of them
// touch the numeric value of an element, except Cast.

// copyStrided writes the elements addressed by (base, srcStrides) over shape
// into dst in row-major order. Strides may be zero (broadcast) or negative
// (reversed slices).
func copyStrided(dst, src []byte, shape Shape, srcStrides []int, base, es int) {
	n := shape.NumElements()
	if n == 0 {
		return
	}
	idx := make([]int, len(shape))
	off := base
	for i := 0; i < n; i++ {
		copy(dst[i*es:(i+1)*es], src[off*es:(off+1)*es])
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			off += srcStrides[d]
			if idx[d] < shape[d] {
				break
			}
			off -= srcStrides[d] * shape[d]
			idx[d] = 0
		}
	}
}

// Reshape returns a tensor with a new shape sharing the same data.
// A -1 entry is inferred from the element count and a 0 entry copies the
// corresponding input dimension.
func Reshape(t *RawTensor, shape []int) (*RawTensor, error) {
	out := make(Shape, len(shape))
	infer := -1
	known := 1
	for i, d := range shape {
		switch {
		case d == -1:
			if infer >= 0 {
				return nil, fmt.Errorf("reshape %v: more than one -1 in %v", t.shape, shape)
			}
			infer = i
			continue
		case d == 0:
			if i >= len(t.shape) {
				return nil, fmt.Errorf("reshape %v: 0 at index %d has no input dimension", t.shape, i)
			}
			d = t.shape[i]
		case d < -1:
			return nil, fmt.Errorf("reshape %v: invalid dimension %d", t.shape, d)
		}
		out[i] = d
		known *= d
	}
	n := t.NumElements()
	if infer >= 0 {
		if known == 0 || n%known != 0 {
			return nil, fmt.Errorf("reshape %v: cannot infer -1 in %v", t.shape, shape)
		}
		out[infer] = n / known
	}
	if out.NumElements() != n {
		return nil, fmt.Errorf("reshape %v: element count mismatch for %v", t.shape, out)
	}
	return t.view(out), nil
}

// TransposeAxes permutes the dimensions of t. An empty perm reverses them.
func TransposeAxes(t *RawTensor, perm ...int) (*RawTensor, error) {
	rank := len(t.shape)
	if len(perm) == 0 {
		perm = make([]int, rank)
		for i := range perm {
			perm[i] = rank - 1 - i
		}
	}
	if len(perm) != rank {
		return nil, fmt.Errorf("transpose %v: perm %v has wrong length", t.shape, perm)
	}
	seen := make([]bool, rank)
	outShape := make(Shape, rank)
	srcStrides := make([]int, rank)
	for i, p := range perm {
		if p < 0 || p >= rank || seen[p] {
			return nil, fmt.Errorf("transpose %v: invalid perm %v", t.shape, perm)
		}
		seen[p] = true
		outShape[i] = t.shape[p]
		srcStrides[i] = t.stride[p]
	}
	out, err := NewRaw(outShape, t.dtype)
	if err != nil {
		return nil, err
	}
	copyStrided(out.data, t.data, outShape, srcStrides, 0, t.dtype.Size())
	return out, nil
}

// Squeeze removes the listed size-1 axes, or every size-1 axis if none are listed.
func Squeeze(t *RawTensor, axes ...int) (*RawTensor, error) {
	rank := len(t.shape)
	drop := make([]bool, rank)
	if len(axes) == 0 {
		for i, d := range t.shape {
			drop[i] = d == 1
		}
	}
	for _, a := range axes {
		ax, err := NormalizeAxis(a, rank)
		if err != nil {
			return nil, fmt.Errorf("squeeze: %w", err)
		}
		if t.shape[ax] != 1 {
			return nil, fmt.Errorf("squeeze %v: axis %d has size %d", t.shape, a, t.shape[ax])
		}
		drop[ax] = true
	}
	out := make(Shape, 0, rank)
	for i, d := range t.shape {
		if !drop[i] {
			out = append(out, d)
		}
	}
	return t.view(out), nil
}

// Unsqueeze inserts size-1 axes. Axes refer to positions in the output.
func Unsqueeze(t *RawTensor, axes ...int) (*RawTensor, error) {
	rank := len(t.shape) + len(axes)
	insert := make([]bool, rank)
	for _, a := range axes {
		ax, err := NormalizeAxis(a, rank)
		if err != nil {
			return nil, fmt.Errorf("unsqueeze: %w", err)
		}
		if insert[ax] {
			return nil, fmt.Errorf("unsqueeze: duplicate axis %d", a)
		}
		insert[ax] = true
	}
	out := make(Shape, rank)
	j := 0
	for i := range out {
		if insert[i] {
			out[i] = 1
			continue
		}
		out[i] = t.shape[j]
		j++
	}
	return t.view(out), nil
}

// Flatten reshapes t to 2-D: dims before axis and dims from axis on.
func Flatten(t *RawTensor, axis int) (*RawTensor, error) {
	rank := len(t.shape)
	if axis < 0 {
		axis += rank
	}
	if axis < 0 || axis > rank {
		return nil, fmt.Errorf("flatten %v: axis %d out of range", t.shape, axis)
	}
	outer := Shape(t.shape[:axis]).NumElements()
	inner := Shape(t.shape[axis:]).NumElements()
	return t.view(Shape{outer, inner}), nil
}

// Concat joins tensors of equal dtype along axis.
func Concat(ts []*RawTensor, axis int) (*RawTensor, error) {
	if len(ts) == 0 {
		return nil, fmt.Errorf("concat: no inputs")
	}
	first := ts[0]
	rank := len(first.shape)
	ax, err := NormalizeAxis(axis, rank)
	if err != nil {
		return nil, fmt.Errorf("concat: %w", err)
	}
	outShape := first.shape.Clone()
	outShape[ax] = 0
	for _, t := range ts {
		if t.dtype != first.dtype || len(t.shape) != rank {
			return nil, fmt.Errorf("concat: %v does not match %v", t, first)
		}
		for d := range t.shape {
			if d != ax && t.shape[d] != first.shape[d] {
				return nil, fmt.Errorf("concat: shape %v does not match %v off axis %d", t.shape, first.shape, ax)
			}
		}
		outShape[ax] += t.shape[ax]
	}
	out, err := NewRaw(outShape, first.dtype)
	if err != nil {
		return nil, err
	}
	es := first.dtype.Size()
	outer := Shape(outShape[:ax]).NumElements()
	inner := Shape(outShape[ax+1:]).NumElements() * es
	pos := 0
	for o := 0; o < outer; o++ {
		for _, t := range ts {
			chunk := t.shape[ax] * inner
			copy(out.data[pos:pos+chunk], t.data[o*chunk:(o+1)*chunk])
			pos += chunk
		}
	}
	return out, nil
}

// Split cuts t along axis into pieces of the given sizes.
func Split(t *RawTensor, axis int, sizes []int) ([]*RawTensor, error) {
	ax, err := NormalizeAxis(axis, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	total := 0
	for _, s := range sizes {
		if s < 0 {
			return nil, fmt.Errorf("split: negative size in %v", sizes)
		}
		total += s
	}
	if total != t.shape[ax] {
		return nil, fmt.Errorf("split %v: sizes %v do not sum to %d", t.shape, sizes, t.shape[ax])
	}
	es := t.dtype.Size()
	outer := Shape(t.shape[:ax]).NumElements()
	inner := Shape(t.shape[ax+1:]).NumElements() * es
	row := t.shape[ax] * inner
	outs := make([]*RawTensor, len(sizes))
	offset := 0
	for i, s := range sizes {
		shape := t.shape.Clone()
		shape[ax] = s
		out, err := NewRaw(shape, t.dtype)
		if err != nil {
			return nil, err
		}
		chunk := s * inner
		for o := 0; o < outer; o++ {
			copy(out.data[o*chunk:(o+1)*chunk], t.data[o*row+offset:o*row+offset+chunk])
		}
		offset += chunk
		outs[i] = out
	}
	return outs, nil
}

// SplitEven cuts t along axis into n pieces; the last one may be smaller.
func SplitEven(t *RawTensor, axis, n int) ([]*RawTensor, error) {
	ax, err := NormalizeAxis(axis, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	if n <= 0 {
		return nil, fmt.Errorf("split: %d outputs", n)
	}
	dim := t.shape[ax]
	size := (dim + n - 1) / n
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = min(size, dim)
		dim -= sizes[i]
	}
	return Split(t, ax, sizes)
}

// Slice extracts a strided window. Negative starts and ends count from the
// end of the axis and out-of-range values are clamped. Nil axes means the
// leading axes in order; nil steps means step 1.
func Slice(t *RawTensor, starts, ends, axes, steps []int) (*RawTensor, error) {
	rank := len(t.shape)
	if len(ends) != len(starts) {
		return nil, fmt.Errorf("slice: %d starts but %d ends", len(starts), len(ends))
	}
	if axes == nil {
		axes = make([]int, len(starts))
		for i := range axes {
			axes[i] = i
		}
	}
	if steps == nil {
		steps = make([]int, len(starts))
		for i := range steps {
			steps[i] = 1
		}
	}
	if len(axes) != len(starts) || len(steps) != len(starts) {
		return nil, fmt.Errorf("slice: axes/steps length mismatch")
	}

	outShape := t.shape.Clone()
	srcStrides := append([]int(nil), t.stride...)
	base := 0
	for i, a := range axes {
		ax, err := NormalizeAxis(a, rank)
		if err != nil {
			return nil, fmt.Errorf("slice: %w", err)
		}
		dim, step := t.shape[ax], steps[i]
		if step == 0 {
			return nil, fmt.Errorf("slice: step is zero on axis %d", a)
		}
		start, end := starts[i], ends[i]
		if start < 0 {
			start += dim
		}
		if end < 0 {
			end += dim
		}
		var count int
		if step > 0 {
			start = clampInt(start, 0, dim)
			end = clampInt(end, 0, dim)
			count = ceilDiv(end-start, step)
		} else {
			start = clampInt(start, 0, dim-1)
			end = clampInt(end, -1, dim-1)
			count = ceilDiv(start-end, -step)
		}
		if count < 0 {
			count = 0
		}
		outShape[ax] = count
		if count > 0 {
			base += start * t.stride[ax]
		}
		srcStrides[ax] = t.stride[ax] * step
	}
	out, err := NewRaw(outShape, t.dtype)
	if err != nil {
		return nil, err
	}
	copyStrided(out.data, t.data, outShape, srcStrides, base, t.dtype.Size())
	return out, nil
}

// Gather picks entries of t along axis. Indices may be negative.
func Gather(t, indices *RawTensor, axis int) (*RawTensor, error) {
	ax, err := NormalizeAxis(axis, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("gather: %w", err)
	}
	dim := t.shape[ax]
	idx := indices.Ints()
	for i, v := range idx {
		if v < 0 {
			v += dim
		}
		if v < 0 || v >= dim {
			return nil, fmt.Errorf("gather: index %d out of range for axis of size %d", idx[i], dim)
		}
		idx[i] = v
	}
	outShape := make(Shape, 0, len(t.shape)-1+len(indices.shape))
	outShape = append(outShape, t.shape[:ax]...)
	outShape = append(outShape, indices.shape...)
	outShape = append(outShape, t.shape[ax+1:]...)
	out, err := NewRaw(outShape, t.dtype)
	if err != nil {
		return nil, err
	}
	es := t.dtype.Size()
	outer := Shape(t.shape[:ax]).NumElements()
	inner := Shape(t.shape[ax+1:]).NumElements() * es
	pos := 0
	for o := 0; o < outer; o++ {
		for _, k := range idx {
			src := (o*dim + k) * inner
			copy(out.data[pos:pos+inner], t.data[src:src+inner])
			pos += inner
		}
	}
	return out, nil
}

// Expand broadcasts t against shape.
func Expand(t *RawTensor, shape Shape) (*RawTensor, error) {
	outShape, _, err := BroadcastShapes(t.shape, shape)
	if err != nil {
		return nil, fmt.Errorf("expand: %w", err)
	}
	out, err := NewRaw(outShape, t.dtype)
	if err != nil {
		return nil, err
	}
	copyStrided(out.data, t.data, outShape, BroadcastStrides(t.shape, outShape), 0, t.dtype.Size())
	return out, nil
}

// Cast converts t to dtype. Float to integer conversion truncates toward zero.
func Cast(t *RawTensor, dtype DataType) (*RawTensor, error) {
	if t.dtype == dtype {
		return t.Clone(), nil
	}
	out, err := NewRaw(t.shape, dtype)
	if err != nil {
		return nil, err
	}
	for i := 0; i < t.NumElements(); i++ {
		out.SetFloat64(i, t.Float64At(i))
	}
	return out, nil
}

// FullRaw creates a tensor filled with value.
func FullRaw(shape Shape, dtype DataType, value float64) (*RawTensor, error) {
	t, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	if value != 0 {
		for i := 0; i < t.NumElements(); i++ {
			t.SetFloat64(i, value)
		}
	}
	return t, nil
}

// FromFloat32 creates a float32 tensor from a copy of data.
func FromFloat32(data []float32, shape Shape) (*RawTensor, error) {
	return FromSlice(data, shape)
}

// FromInt64 creates an int64 tensor from a copy of data.
func FromInt64(data []int64, shape Shape) (*RawTensor, error) {
	return FromSlice(data, shape)
}

// SetFloat64 stores v at element i, converting to the tensor's dtype.
func (r *RawTensor) SetFloat64(i int, v float64) {
	switch r.dtype {
	case Float32:
		binary.LittleEndian.PutUint32(r.data[4*i:], math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(r.data[8*i:], math.Float64bits(v))
	case Int32:
		binary.LittleEndian.PutUint32(r.data[4*i:], uint32(int32(v))) //nolint:gosec // G115: two's complement store
	case Int64:
		binary.LittleEndian.PutUint64(r.data[8*i:], uint64(int64(v))) //nolint:gosec // G115: two's complement store
	case Uint8:
		r.data[i] = uint8(v)
	case Bool:
		if v != 0 {
			r.data[i] = 1
		} else {
			r.data[i] = 0
		}
	default:
		panic(fmt.Sprintf("unsupported dtype %s", r.dtype))
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
