package npy

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/onnxgen/internal/tensor"
)

func TestWriteHeader(t *testing.T) {
	x, err := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, x))
	b := buf.Bytes()

	assert.Equal(t, "\x93NUMPY\x01\x00", string(b[:8]))
	hlen := int(b[8]) | int(b[9])<<8
	assert.Equal(t, 0, (10+hlen)%64)
	h := string(b[10 : 10+hlen])
	assert.True(t, bytes.HasPrefix([]byte(h), []byte("{'descr': '<f4', 'fortran_order': False, 'shape': (2, 3), }")), h)
	assert.Equal(t, byte('\n'), h[len(h)-1])
	assert.Len(t, b, 10+hlen+24)
}

func TestRoundTrip(t *testing.T) {
	f64, err := tensor.FromSlice([]float64{1.5, -2}, tensor.Shape{2, 1})
	require.NoError(t, err)
	i32, err := tensor.FromSlice([]int32{7}, tensor.Shape{1})
	require.NoError(t, err)
	empty, err := tensor.NewRaw(tensor.Shape{0, 3}, tensor.Float32)
	require.NoError(t, err)

	tests := []struct {
		name  string
		t     *tensor.RawTensor
		descr string
	}{
		{"float32 scalar", tensor.Scalar(3.25), "'<f4'"},
		{"float64", f64, "'<f8'"},
		{"int32 vector", i32, "'<i4'"},
		{"int64", tensor.Int64Vector(1, -2, 3), "'<i8'"},
		{"empty", empty, "'<f4'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, tt.t))
			assert.Contains(t, buf.String(), tt.descr)

			got, err := Read(&buf)
			require.NoError(t, err)
			assert.Equal(t, tt.t.DType(), got.DType())
			assert.True(t, tt.t.Shape().Equal(got.Shape()), "shape %v", got.Shape())
			assert.Equal(t, tt.t.Data(), got.Data())
		})
	}
}

func TestSaveAppendsExtension(t *testing.T) {
	dir := t.TempDir()
	x := tensor.Int64Vector(4, 5)

	require.NoError(t, Save(filepath.Join(dir, "input_x"), x))
	_, err := os.Stat(filepath.Join(dir, "input_x.npy"))
	require.NoError(t, err)

	require.NoError(t, Save(filepath.Join(dir, "output_x.npy"), x))
	got, err := Load(filepath.Join(dir, "output_x.npy"))
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, got.AsInt64())
}

func TestReadErrors(t *testing.T) {
	header := func(dict string) []byte {
		b := []byte("\x93NUMPY\x01\x00")
		b = append(b, byte(len(dict)), 0)
		return append(b, dict...)
	}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"magic", []byte("\x93NUMPZ\x01\x00\x00\x00"), ErrInvalidMagic},
		{"version", []byte("\x93NUMPY\x04\x00\x00\x00"), ErrUnsupportedVersion},
		{"dtype", header("{'descr': '<c8', 'fortran_order': False, 'shape': (1,), }\n"), ErrUnsupportedDType},
		{"fortran", header("{'descr': '<f4', 'fortran_order': True, 'shape': (1,), }\n"), ErrFortranOrder},
		{"short data", header("{'descr': '<f4', 'fortran_order': False, 'shape': (2,), }\n"), ErrDataSize},
		{"huge shape", header("{'descr': '<f4', 'fortran_order': False, 'shape': (1000000, 1000000), }\n"), ErrTooLarge},
		{"missing payload", header("{'descr': '<f4', 'fortran_order': False, 'shape': (100000000,), }\n"), ErrDataSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := Read(bytes.NewReader(header("{'descr': '<f4', 'fortran_order': False}\n")))
	var he *HeaderError
	assert.ErrorAs(t, err, &he)
}
