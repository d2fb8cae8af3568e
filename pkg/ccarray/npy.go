package ccarray

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sbinet/npyio/npy"
)

// ErrNPY is returned for malformed or unsupported .npy input.
var ErrNPY = errors.New("npy: unsupported array")

// ReadNPY decodes a C-order numeric .npy array, flattened and converted to
// float32. Float (f4, f8) and integer (i1 to i8, u1 to u8) element types
// are accepted in either byte order.
func ReadNPY(r io.Reader) ([]float32, error) {
	nr, err := npy.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNPY, err)
	}
	descr := nr.Header.Descr
	if descr.Fortran {
		return nil, fmt.Errorf("%w: fortran order", ErrNPY)
	}
	if len(descr.Type) < 3 {
		return nil, fmt.Errorf("%w: descr %q", ErrNPY, descr.Type)
	}

	var out []float32
	switch dtype := descr.Type[1:]; dtype {
	case "f4":
		err = nr.Read(&out)
	case "f8":
		out, err = readAs[float64](nr)
	case "i1":
		out, err = readAs[int8](nr)
	case "i2":
		out, err = readAs[int16](nr)
	case "i4":
		out, err = readAs[int32](nr)
	case "i8":
		out, err = readAs[int64](nr)
	case "u1":
		out, err = readAs[uint8](nr)
	case "u2":
		out, err = readAs[uint16](nr)
	case "u4":
		out, err = readAs[uint32](nr)
	case "u8":
		out, err = readAs[uint64](nr)
	default:
		return nil, fmt.Errorf("%w: element type %q", ErrNPY, descr.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s %v: %v", ErrNPY, descr.Type, descr.Shape, err)
	}
	return out, nil
}

type npyElem interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float64
}

// readAs reads the array as its on-disk element type and converts it.
func readAs[T npyElem](nr *npy.Reader) ([]float32, error) {
	var raw []T
	if err := nr.Read(&raw); err != nil {
		return nil, err
	}
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}

// FormatFloat formats v the way numpy prints a float32 scalar: the shortest
// representation that round-trips, positional for magnitudes in
// [1e-4, 1e16) and scientific otherwise.
func FormatFloat(v float32) string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if a := math.Abs(f); a == 0 || (a >= 1e-4 && a < 1e16) {
		s := strconv.FormatFloat(f, 'f', -1, 32)
		if !strings.ContainsRune(s, '.') {
			s += ".0"
		}
		return s
	}
	return strconv.FormatFloat(f, 'e', -1, 32)
}
