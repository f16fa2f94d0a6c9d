// Package npy reads and writes NumPy .npy files (format version 1.0).
//
// Supported dtypes are little-endian float32, float64, int32 and int64,
// plus uint8 and bool, in C order. Zero-dimensional arrays are supported.
package npy

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/onnxgen/internal/tensor"
)

const (
	magic = "\x93NUMPY"
	// Header plus preamble is padded to a multiple of align bytes.
	align = 64
)

var descrs = map[tensor.DataType]string{
	tensor.Float32: "<f4",
	tensor.Float64: "<f8",
	tensor.Int32:   "<i4",
	tensor.Int64:   "<i8",
	tensor.Uint8:   "|u1",
	tensor.Bool:    "|b1",
}

func dtypeFromDescr(descr string) (tensor.DataType, bool) {
	for dt, d := range descrs {
		if d == descr {
			return dt, true
		}
	}
	return 0, false
}

// header returns the padded header dictionary for t, newline included.
func header(t *tensor.RawTensor) (string, error) {
	descr, ok := descrs[t.DType()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDType, t.DType())
	}
	var shape string
	switch dims := t.Shape(); len(dims) {
	case 0:
		shape = "()"
	case 1:
		shape = fmt.Sprintf("(%d,)", dims[0])
	default:
		parts := make([]string, len(dims))
		for i, d := range dims {
			parts[i] = strconv.Itoa(d)
		}
		shape = "(" + strings.Join(parts, ", ") + ")"
	}
	h := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, shape)
	// magic(6) + version(2) + header length(2) + header + '\n'
	pad := align - (len(magic)+4+len(h)+1)%align
	if pad == align {
		pad = 0
	}
	return h + strings.Repeat(" ", pad) + "\n", nil
}

// Write encodes t in .npy format.
func Write(w io.Writer, t *tensor.RawTensor) error {
	h, err := header(t)
	if err != nil {
		return err
	}
	var pre bytes.Buffer
	pre.WriteString(magic)
	pre.Write([]byte{1, 0})
	_ = binary.Write(&pre, binary.LittleEndian, uint16(len(h))) //nolint:gosec // G115: header is a few hundred bytes
	pre.WriteString(h)
	if _, err := w.Write(pre.Bytes()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(t.Data()); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}
	return nil
}

// Save writes t to path. Like numpy.save, ".npy" is appended when path
// does not already end with it.
func Save(path string, t *tensor.RawTensor) error {
	if !strings.HasSuffix(path, ".npy") {
		path += ".npy"
	}
	//nolint:gosec // G304: fixture paths come from the caller
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, t); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// Read decodes one array in .npy format.
func Read(r io.Reader) (*tensor.RawTensor, error) {
	pre := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(r, pre); err != nil {
		return nil, fmt.Errorf("failed to read preamble: %w", err)
	}
	if string(pre[:len(magic)]) != magic {
		return nil, ErrInvalidMagic
	}
	major := pre[len(magic)]
	var hlen int
	switch major {
	case 1:
		var n uint16
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("failed to read header length: %w", err)
		}
		hlen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("failed to read header length: %w", err)
		}
		hlen = int(n)
	default:
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, major, pre[len(magic)+1])
	}

	hb := make([]byte, hlen)
	if _, err := io.ReadFull(r, hb); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	dtype, shape, err := parseHeader(string(hb))
	if err != nil {
		return nil, err
	}

	size, err := dataSize(shape, dtype.Size())
	if err != nil {
		return nil, err
	}
	// The buffer grows with the bytes actually present, not with the
	// header's claim.
	data, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: have %d bytes, shape %v needs %d", ErrDataSize, len(data), shape, size)
	}
	return tensor.FromBytes(data, shape, dtype)
}

// MaxDataBytes caps the payload of a single array.
const MaxDataBytes = 1 << 31

// dataSize returns the payload size of shape, or ErrTooLarge once it
// passes MaxDataBytes.
func dataSize(shape tensor.Shape, elemSize int) (int, error) {
	size := elemSize
	for _, d := range shape {
		if d == 0 {
			return 0, nil
		}
		if size > MaxDataBytes/d {
			return 0, fmt.Errorf("%w: shape %v", ErrTooLarge, shape)
		}
		size *= d
	}
	if size > MaxDataBytes {
		return 0, fmt.Errorf("%w: shape %v", ErrTooLarge, shape)
	}
	return size, nil
}

// Load reads the array stored at path.
func Load(path string) (*tensor.RawTensor, error) {
	//nolint:gosec // G304: fixture paths come from the caller
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	t, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// parseHeader extracts dtype and shape from a header dictionary such as
// {'descr': '<f4', 'fortran_order': False, 'shape': (2, 3), }.
func parseHeader(h string) (tensor.DataType, tensor.Shape, error) {
	trimmed := strings.TrimSpace(h)
	bad := func(format string, args ...any) error {
		return &HeaderError{Header: trimmed, Details: fmt.Sprintf(format, args...)}
	}
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return 0, nil, bad("not a dictionary")
	}

	descr, ok := field(trimmed, "descr")
	if !ok {
		return 0, nil, bad("missing descr")
	}
	descr = strings.Trim(descr, `'"`)
	dtype, ok := dtypeFromDescr(descr)
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s", ErrUnsupportedDType, descr)
	}

	order, ok := field(trimmed, "fortran_order")
	if !ok {
		return 0, nil, bad("missing fortran_order")
	}
	if order == "True" {
		return 0, nil, ErrFortranOrder
	}

	i := strings.Index(trimmed, "'shape':")
	if i < 0 {
		return 0, nil, bad("missing shape")
	}
	rest := trimmed[i+len("'shape':"):]
	open, end := strings.IndexByte(rest, '('), strings.IndexByte(rest, ')')
	if open < 0 || end < open {
		return 0, nil, bad("shape is not a tuple")
	}
	shape := tensor.Shape{}
	for _, part := range strings.Split(rest[open+1:end], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil || d < 0 {
			return 0, nil, bad("bad dimension %q", part)
		}
		shape = append(shape, d)
	}
	return dtype, shape, nil
}

// field returns the raw scalar value of key in a header dictionary.
func field(h, key string) (string, bool) {
	k := "'" + key + "':"
	i := strings.Index(h, k)
	if i < 0 {
		return "", false
	}
	v := strings.TrimSpace(h[i+len(k):])
	if end := strings.IndexAny(v, ",}"); end >= 0 {
		v = v[:end]
	}
	return strings.TrimSpace(v), true
}
