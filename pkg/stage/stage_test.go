package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/analogdevicesinc/tflite-micro/pkg/tensor"
)

func TestCheckTensors(t *testing.T) {
	declared := []tensor.Info{
		{Name: "state", Shape: tensor.Shape{1, 4}, DType: tensor.Float32},
		{Name: "mag", Shape: tensor.Shape{-1, 3}, DType: tensor.Int8},
	}
	good := func() []*tensor.Tensor {
		return []*tensor.Tensor{
			tensor.Zeros(tensor.Float32, tensor.Shape{1, 4}),
			tensor.Zeros(tensor.Int8, tensor.Shape{2, 3}),
		}
	}

	tests := []struct {
		name    string
		got     []*tensor.Tensor
		wantIdx int
	}{
		{"ok", good(), -2},
		{"count", good()[:1], -1},
		{"nil", []*tensor.Tensor{good()[0], nil}, 1},
		{"dtype", []*tensor.Tensor{tensor.Zeros(tensor.Int16, tensor.Shape{1, 4}), good()[1]}, 0},
		{"shape", []*tensor.Tensor{tensor.Zeros(tensor.Float32, tensor.Shape{1, 5}), good()[1]}, 0},
		{"length", []*tensor.Tensor{good()[0], tensor.NewInt8(tensor.Shape{1, 3}, []int8{1})}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTensors("mask", "input", declared, tt.got)
			if tt.wantIdx == -2 {
				if err != nil {
					t.Fatalf("CheckTensors: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInference) {
				t.Fatalf("error %v is not ErrInference", err)
			}
			var ie *InferenceError
			if !errors.As(err, &ie) {
				t.Fatalf("error %T is not *InferenceError", err)
			}
			if ie.Index != tt.wantIdx || ie.Stage != "mask" || ie.Op != "input" {
				t.Errorf("got %+v, want index %d", ie, tt.wantIdx)
			}
		})
	}
}

func TestFunc(t *testing.T) {
	info := []tensor.Info{{Name: "x", Shape: tensor.Shape{2}, DType: tensor.Float32}}
	boom := errors.New("boom")

	double := &Func{Name: "double", In: info, Out: info, Fn: func(in []*tensor.Tensor) ([]*tensor.Tensor, error) {
		d := in[0].Float32Data()
		return []*tensor.Tensor{tensor.NewFloat32(tensor.Shape{2}, []float32{2 * d[0], 2 * d[1]})}, nil
	}}
	out, err := double.Invoke([]*tensor.Tensor{tensor.NewFloat32(tensor.Shape{2}, []float32{1, 3})})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got := out[0].Float32Data(); got[0] != 2 || got[1] != 6 {
		t.Errorf("Invoke = %v", got)
	}

	failing := &Func{Name: "fail", In: info, Out: info, Fn: func([]*tensor.Tensor) ([]*tensor.Tensor, error) {
		return nil, boom
	}}
	_, err = failing.Invoke([]*tensor.Tensor{tensor.Zeros(tensor.Float32, tensor.Shape{2})})
	if !errors.Is(err, boom) || !errors.Is(err, ErrInference) {
		t.Errorf("Invoke error = %v, want wrapped boom", err)
	}

	wrongOut := &Func{Name: "wrong", In: info, Out: info, Fn: func([]*tensor.Tensor) ([]*tensor.Tensor, error) {
		return []*tensor.Tensor{tensor.Zeros(tensor.Float32, tensor.Shape{3})}, nil
	}}
	_, err = wrongOut.Invoke([]*tensor.Tensor{tensor.Zeros(tensor.Float32, tensor.Shape{2})})
	var ie *InferenceError
	if !errors.As(err, &ie) || ie.Op != "output" {
		t.Errorf("Invoke error = %v, want output InferenceError", err)
	}
}

func TestManifestApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mask.yaml")
	data := `name: mask
inputs:
  - index: 1
    dtype: int8
    quantization: {scale: 0.5, zero_point: -3}
outputs:
  - index: 0
    name: gain
    shape: [1, 1, 257]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	in := []tensor.Info{
		{Name: "state", Shape: tensor.Shape{1, 2, 128, 2}, DType: tensor.Float32},
		{Name: "mag", Shape: tensor.Shape{1, 1, 257}, DType: tensor.Float32},
	}
	out := []tensor.Info{
		{Name: "out0", Shape: tensor.Shape{1, -1, 257}, DType: tensor.Float32},
		{Name: "out1", Shape: tensor.Shape{1, 2, 128, 2}, DType: tensor.Float32},
	}
	gotIn, gotOut, err := m.Apply(in, out)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if gotIn[1].DType != tensor.Int8 || gotIn[1].Quant == nil || gotIn[1].Quant.Scale != 0.5 || gotIn[1].Quant.ZeroPoint != -3 {
		t.Errorf("input 1 = %v", gotIn[1])
	}
	if gotIn[0].DType != tensor.Float32 || gotIn[0].Quant != nil {
		t.Errorf("input 0 should be untouched, got %v", gotIn[0])
	}
	if gotOut[0].Name != "gain" || !gotOut[0].Shape.Equal(tensor.Shape{1, 1, 257}) {
		t.Errorf("output 0 = %v", gotOut[0])
	}
	if in[1].DType != tensor.Float32 || out[0].Name != "out0" {
		t.Error("Apply modified the declared infos")
	}
}

func TestManifestApplyErrors(t *testing.T) {
	m, err := ParseManifest([]byte(`{"inputs": [{"index": 2, "dtype": "int16"}]}`))
	if err != nil {
		t.Fatalf("ParseManifest(json): %v", err)
	}
	if _, _, err := m.Apply(make([]tensor.Info, 2), nil); err == nil {
		t.Error("out-of-range index should fail")
	}

	if _, err := ParseManifest([]byte("inputs:\n  - index: 0\n    dtype: uint8\n")); err == nil {
		t.Error("unknown dtype should fail")
	}

	var nilManifest *Manifest
	in, out, err := nilManifest.Apply([]tensor.Info{{Name: "a"}}, nil)
	if err != nil || len(in) != 1 || len(out) != 0 {
		t.Errorf("nil manifest Apply = %v, %v, %v", in, out, err)
	}
}
