package tensor

import (
	"fmt"
	"math"
)

// Quantize maps a real value onto the fixed-point grid of q:
// trunc(v/scale + zero_point), evaluated in float32.
//
// The conversion goes through a 32-bit integer like a C cast does: the
// fraction is truncated toward zero, and NaN or values outside the int32
// range become math.MinInt32. Callers narrow the result with a plain Go
// conversion (int8(x), int16(x)), so out-of-range values wrap rather than
// saturate.
func Quantize(v float32, q Quantization) int64 {
	return castInt32(v/q.Scale + float32(q.ZeroPoint))
}

// Dequantize maps a fixed-point value back to real: scale * (q - zero_point).
func Dequantize(v int64, q Quantization) float32 {
	return q.Scale * (float32(v) - float32(q.ZeroPoint))
}

func castInt32(f float32) int64 {
	if f != f || f >= 2147483648 || f < -2147483648 {
		return math.MinInt32
	}
	return int64(int32(f))
}

// Codec converts float32 values to and from the declared type of a tensor
// slot. Pick one per slot with NewCodec; the choice is fixed for the
// lifetime of the binding.
type Codec interface {
	// DType is the declared element type the codec produces.
	DType() DataType
	// Encode converts values into a tensor of the declared type.
	Encode(values []float32, shape Shape) *Tensor
	// Decode converts a tensor of the declared type back to float32.
	Decode(t *Tensor) ([]float32, error)
}

// NewCodec selects the codec for a declared tensor slot:
//
//   - Float32: passthrough
//   - Int8 with quantization: int8 affine
//   - Int16 with quantization: int16 affine
//
// A fixed-point slot without quantization parameters is rejected.
func NewCodec(info Info) (Codec, error) {
	switch info.DType {
	case Float32:
		return float32Codec{}, nil
	case Int8, Int16:
		if info.Quant == nil {
			return nil, fmt.Errorf("tensor: %s slot %q has no quantization parameters", info.DType, info.Name)
		}
		if info.Quant.Scale == 0 || math.IsNaN(float64(info.Quant.Scale)) || math.IsInf(float64(info.Quant.Scale), 0) {
			return nil, fmt.Errorf("tensor: slot %q has invalid scale %g", info.Name, info.Quant.Scale)
		}
		if info.DType == Int8 {
			return int8Codec{q: *info.Quant}, nil
		}
		return int16Codec{q: *info.Quant}, nil
	}
	return nil, fmt.Errorf("tensor: slot %q has unsupported type %s", info.Name, info.DType)
}

type float32Codec struct{}

func (float32Codec) DType() DataType { return Float32 }

func (float32Codec) Encode(values []float32, shape Shape) *Tensor {
	return NewFloat32(shape, append([]float32(nil), values...))
}

func (float32Codec) Decode(t *Tensor) ([]float32, error) {
	if t.DType() != Float32 {
		return nil, fmt.Errorf("tensor: decode float32: got %s", t.DType())
	}
	return append([]float32(nil), t.Float32Data()...), nil
}

type int8Codec struct{ q Quantization }

func (int8Codec) DType() DataType { return Int8 }

func (c int8Codec) Encode(values []float32, shape Shape) *Tensor {
	out := make([]int8, len(values))
	for i, v := range values {
		out[i] = int8(Quantize(v, c.q))
	}
	return NewInt8(shape, out)
}

func (c int8Codec) Decode(t *Tensor) ([]float32, error) {
	if t.DType() != Int8 {
		return nil, fmt.Errorf("tensor: decode int8: got %s", t.DType())
	}
	in := t.Int8Data()
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = Dequantize(int64(v), c.q)
	}
	return out, nil
}

type int16Codec struct{ q Quantization }

func (int16Codec) DType() DataType { return Int16 }

func (c int16Codec) Encode(values []float32, shape Shape) *Tensor {
	out := make([]int16, len(values))
	for i, v := range values {
		out[i] = int16(Quantize(v, c.q))
	}
	return NewInt16(shape, out)
}

func (c int16Codec) Decode(t *Tensor) ([]float32, error) {
	if t.DType() != Int16 {
		return nil, fmt.Errorf("tensor: decode int16: got %s", t.DType())
	}
	in := t.Int16Data()
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = Dequantize(int64(v), c.q)
	}
	return out, nil
}
