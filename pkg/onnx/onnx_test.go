package onnx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/analogdevicesinc/tflite-micro/pkg/stage"
	"github.com/analogdevicesinc/tflite-micro/pkg/tensor"
	ort "github.com/yalue/onnxruntime_go"
)

func TestToDataType(t *testing.T) {
	tests := []struct {
		in      ort.TensorElementDataType
		want    tensor.DataType
		wantErr bool
	}{
		{ort.TensorElementDataTypeFloat, tensor.Float32, false},
		{ort.TensorElementDataTypeInt8, tensor.Int8, false},
		{ort.TensorElementDataTypeInt16, tensor.Int16, false},
		{ort.TensorElementDataTypeUint8, 0, true},
		{ort.TensorElementDataTypeDouble, 0, true},
		{ort.TensorElementDataTypeInt64, 0, true},
	}

	for _, tt := range tests {
		got, err := toDataType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("toDataType(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("toDataType(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToInfos(t *testing.T) {
	infos, err := toInfos([]ort.InputOutputInfo{
		{Name: "in0", OrtValueType: ort.ONNXTypeTensor, Dimensions: ort.NewShape(1, 1, 257), DataType: ort.TensorElementDataTypeFloat},
		{Name: "in1", OrtValueType: ort.ONNXTypeTensor, Dimensions: ort.NewShape(1, 2, -1, 2), DataType: ort.TensorElementDataTypeInt8},
	})
	if err != nil {
		t.Fatal(err)
	}
	if infos[0].Name != "in0" || infos[0].DType != tensor.Float32 || !infos[0].Shape.Equal(tensor.Shape{1, 1, 257}) {
		t.Errorf("infos[0] = %v", infos[0])
	}
	if infos[1].DType != tensor.Int8 || infos[1].Shape.Static() || infos[1].Quant != nil {
		t.Errorf("infos[1] = %v", infos[1])
	}

	_, err = toInfos([]ort.InputOutputInfo{
		{Name: "seq", OrtValueType: ort.ONNXTypeSequence},
	})
	if err == nil {
		t.Error("non-tensor value should be rejected")
	}
}

func TestFindLibrary(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "libonnxruntime.so")
	if err := os.WriteFile(lib, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := findLibrary(lib)
	if err != nil || got != lib {
		t.Errorf("findLibrary(explicit) = %q, %v", got, err)
	}
	if _, err := findLibrary(filepath.Join(dir, "missing.so")); err == nil {
		t.Error("missing explicit library should fail")
	}

	t.Setenv(EnvLibraryPath, lib)
	got, err = findLibrary("")
	if err != nil || got != lib {
		t.Errorf("findLibrary(env) = %q, %v", got, err)
	}

	t.Setenv(EnvLibraryPath, filepath.Join(dir, "missing.so"))
	if _, err := findLibrary(""); err == nil {
		t.Error("missing env library should fail")
	}
}

func TestLoadBeforeInit(t *testing.T) {
	if Library() != "" {
		t.Skip("runtime already initialized")
	}
	if _, err := Load("model.onnx", nil); err == nil {
		t.Error("Load before Init should fail")
	}
}

// testModel returns a model path from TFLMTOOL_TEST_MODEL after initializing
// the runtime, skipping when either is unavailable.
func testModel(t *testing.T) string {
	t.Helper()
	path := os.Getenv("TFLMTOOL_TEST_MODEL")
	if path == "" {
		t.Skip("TFLMTOOL_TEST_MODEL not set")
	}
	if err := Init(""); err != nil {
		if errors.Is(err, ErrLibraryNotFound) {
			t.Skip("onnx runtime not installed")
		}
		t.Fatal(err)
	}
	return path
}

func TestSessionInvoke(t *testing.T) {
	path := testModel(t)

	s, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	t.Logf("%s: inputs %v outputs %v", s.Name(), s.Inputs(), s.Outputs())

	inputs := make([]*tensor.Tensor, len(s.Inputs()))
	for i, info := range s.Inputs() {
		inputs[i] = tensor.Zeros(info.DType, info.Shape.Resolve())
	}
	outputs, err := s.Invoke(inputs)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(outputs) != len(s.Outputs()) {
		t.Fatalf("got %d outputs, want %d", len(outputs), len(s.Outputs()))
	}

	// Wrong input count is a contract error, not a runtime crash.
	if len(inputs) > 0 {
		_, err = s.Invoke(inputs[:len(inputs)-1])
		if !errors.Is(err, stage.ErrInference) {
			t.Errorf("Invoke with a missing input = %v, want ErrInference", err)
		}
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := s.Invoke(inputs); !errors.Is(err, stage.ErrInference) {
		t.Errorf("Invoke after Close = %v, want ErrInference", err)
	}
}
