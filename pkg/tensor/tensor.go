// Package tensor describes the fixed-shape numeric buffers exchanged with
// inference stages, and the affine quantization used by fixed-point models.
//
// A [Tensor] carries exactly one backing slice whose element type matches its
// [DataType]. An [Info] is the declared contract of a tensor slot: name, shape,
// element type and, for fixed-point types, the (scale, zero point) pair.
//
// Conversion between float32 and the declared type is done by a [Codec],
// selected once per slot with [NewCodec]:
//
//	codec, _ := tensor.NewCodec(info)
//	in := codec.Encode(mag, info.Shape)   // float32 -> declared type
//	out, _ := codec.Decode(result)        // declared type -> float32
package tensor

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType is the element type of a tensor.
type DataType int

const (
	// Float32 is IEEE-754 single precision.
	Float32 DataType = iota
	// Int8 is signed 8-bit fixed point.
	Int8
	// Int16 is signed 16-bit fixed point.
	Int16
)

// String returns the numpy-style name of the type.
func (d DataType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	}
	return "DataType(" + strconv.Itoa(int(d)) + ")"
}

// FixedPoint reports whether values of this type are quantized.
func (d DataType) FixedPoint() bool {
	return d == Int8 || d == Int16
}

// ParseDataType parses "float32", "int8" or "int16" (case-insensitive).
// "float" is accepted as an alias of "float32".
func ParseDataType(s string) (DataType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float32", "float":
		return Float32, nil
	case "int8":
		return Int8, nil
	case "int16":
		return Int16, nil
	}
	return 0, fmt.Errorf("tensor: unknown data type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (d DataType) MarshalText() ([]byte, error) {
	switch d {
	case Float32, Int8, Int16:
		return []byte(d.String()), nil
	}
	return nil, fmt.Errorf("tensor: invalid data type %d", int(d))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DataType) UnmarshalText(b []byte) error {
	v, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Shape lists tensor dimensions. A dimension of -1 is dynamic.
type Shape []int64

// Elements returns the product of all dimensions. Dynamic dimensions count
// as 1, matching a batch of one.
func (s Shape) Elements() int {
	n := 1
	for _, d := range s {
		if d >= 0 {
			n *= int(d)
		}
	}
	return n
}

// Static reports whether every dimension is known.
func (s Shape) Static() bool {
	for _, d := range s {
		if d < 0 {
			return false
		}
	}
	return true
}

// Resolve returns a copy of s with dynamic dimensions set to 1.
func (s Shape) Resolve() Shape {
	out := make(Shape, len(s))
	for i, d := range s {
		if d < 0 {
			d = 1
		}
		out[i] = d
	}
	return out
}

// Equal reports whether two shapes have identical dimensions.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Matches reports whether a concrete shape satisfies the declared shape s.
// Dynamic dimensions in s match any size.
func (s Shape) Matches(concrete Shape) bool {
	if len(s) != len(concrete) {
		return false
	}
	for i, d := range s {
		if d >= 0 && d != concrete[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	parts := make([]string, len(s))
	for i, d := range s {
		parts[i] = strconv.FormatInt(d, 10)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Quantization holds the affine parameters of a fixed-point tensor:
// real = Scale * (q - ZeroPoint).
type Quantization struct {
	Scale     float32 `yaml:"scale" json:"scale" msgpack:"scale"`
	ZeroPoint int32   `yaml:"zero_point" json:"zero_point" msgpack:"zero_point"`
}

// Info is the declared contract of one tensor slot.
type Info struct {
	Name  string
	Shape Shape
	DType DataType
	Quant *Quantization
}

func (i Info) String() string {
	s := fmt.Sprintf("%s %s%s", i.Name, i.DType, i.Shape)
	if i.Quant != nil {
		s += fmt.Sprintf(" q(%g,%d)", i.Quant.Scale, i.Quant.ZeroPoint)
	}
	return s
}

// Tensor is a shaped numeric buffer.
type Tensor struct {
	dtype DataType
	shape Shape
	f32   []float32
	i8    []int8
	i16   []int16
}

// NewFloat32 wraps data as a float32 tensor. The slice is not copied.
func NewFloat32(shape Shape, data []float32) *Tensor {
	return &Tensor{dtype: Float32, shape: shape, f32: data}
}

// NewInt8 wraps data as an int8 tensor. The slice is not copied.
func NewInt8(shape Shape, data []int8) *Tensor {
	return &Tensor{dtype: Int8, shape: shape, i8: data}
}

// NewInt16 wraps data as an int16 tensor. The slice is not copied.
func NewInt16(shape Shape, data []int16) *Tensor {
	return &Tensor{dtype: Int16, shape: shape, i16: data}
}

// Zeros allocates a zero-valued tensor of the given type and shape.
func Zeros(dtype DataType, shape Shape) *Tensor {
	n := shape.Elements()
	switch dtype {
	case Int8:
		return NewInt8(shape, make([]int8, n))
	case Int16:
		return NewInt16(shape, make([]int16, n))
	default:
		return NewFloat32(shape, make([]float32, n))
	}
}

// DType returns the element type.
func (t *Tensor) DType() DataType { return t.dtype }

// Shape returns the tensor dimensions.
func (t *Tensor) Shape() Shape { return t.shape }

// Len returns the number of elements in the backing slice.
func (t *Tensor) Len() int {
	switch t.dtype {
	case Int8:
		return len(t.i8)
	case Int16:
		return len(t.i16)
	default:
		return len(t.f32)
	}
}

// Float32Data returns the backing slice of a float32 tensor, or nil.
func (t *Tensor) Float32Data() []float32 { return t.f32 }

// Int8Data returns the backing slice of an int8 tensor, or nil.
func (t *Tensor) Int8Data() []int8 { return t.i8 }

// Int16Data returns the backing slice of an int16 tensor, or nil.
func (t *Tensor) Int16Data() []int16 { return t.i16 }

// Floats returns the elements widened to float64, without dequantizing.
func (t *Tensor) Floats() []float64 {
	out := make([]float64, t.Len())
	switch t.dtype {
	case Int8:
		for i, v := range t.i8 {
			out[i] = float64(v)
		}
	case Int16:
		for i, v := range t.i16 {
			out[i] = float64(v)
		}
	default:
		for i, v := range t.f32 {
			out[i] = float64(v)
		}
	}
	return out
}

// Clone returns a deep copy of t.
func (t *Tensor) Clone() *Tensor {
	c := &Tensor{dtype: t.dtype, shape: append(Shape(nil), t.shape...)}
	switch t.dtype {
	case Int8:
		c.i8 = append([]int8(nil), t.i8...)
	case Int16:
		c.i16 = append([]int16(nil), t.i16...)
	default:
		c.f32 = append([]float32(nil), t.f32...)
	}
	return c
}
