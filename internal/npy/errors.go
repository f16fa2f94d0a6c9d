package npy

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrUnsupportedDType   = errors.New("unsupported dtype")
	ErrFortranOrder       = errors.New("fortran-ordered arrays are not supported")
	ErrDataSize           = errors.New("data size does not match shape")
	ErrTooLarge           = errors.New("array exceeds size limit")
)

// HeaderError reports a malformed array header.
type HeaderError struct {
	Header  string // header dictionary as read
	Details string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("npy header %q: %s", e.Header, e.Details)
}
