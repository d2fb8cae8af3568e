package onnx

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/analogdevicesinc/tflite-micro/pkg/stage"
	"github.com/analogdevicesinc/tflite-micro/pkg/tensor"
	ort "github.com/yalue/onnxruntime_go"
)

// Session is a loaded ONNX model bound to its declared tensor contract.
type Session struct {
	name    string
	path    string
	inputs  []tensor.Info
	outputs []tensor.Info

	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

var _ stage.Stage = (*Session)(nil)

// Load opens the model at path. The declared inputs and outputs are read from
// the model and then overlaid with manifest, which may be nil. The stage name
// is the manifest name, or the file name without extension.
func Load(path string, manifest *stage.Manifest) (*Session, error) {
	if err := ensureInit(); err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if manifest != nil && manifest.Name != "" {
		name = manifest.Name
	}

	inInfo, outInfo, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("onnx: read model info %s: %w", path, err)
	}
	declaredIn, err := toInfos(inInfo)
	if err != nil {
		return nil, &stage.InferenceError{Stage: name, Op: "bind", Index: -1, Err: err}
	}
	declaredOut, err := toInfos(outInfo)
	if err != nil {
		return nil, &stage.InferenceError{Stage: name, Op: "bind", Index: -1, Err: err}
	}
	in, out, err := manifest.Apply(declaredIn, declaredOut)
	if err != nil {
		return nil, &stage.InferenceError{Stage: name, Op: "bind", Index: -1, Err: err}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(path, names(inInfo), names(outInfo), options)
	if err != nil {
		return nil, fmt.Errorf("onnx: create session %s: %w", path, err)
	}

	return &Session{
		name:    name,
		path:    path,
		inputs:  in,
		outputs: out,
		session: session,
	}, nil
}

// Name returns the stage name.
func (s *Session) Name() string { return s.name }

// Path returns the model file path.
func (s *Session) Path() string { return s.path }

// Inputs implements stage.Stage.
func (s *Session) Inputs() []tensor.Info { return s.inputs }

// Outputs implements stage.Stage.
func (s *Session) Outputs() []tensor.Info { return s.outputs }

// Invoke runs the model once. Inputs must match the declared contract; the
// outputs are copied out of the runtime and checked against the declared
// outputs.
func (s *Session) Invoke(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := stage.CheckTensors(s.name, "input", s.inputs, inputs); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, &stage.InferenceError{Stage: s.name, Op: "invoke", Index: -1, Err: errors.New("session closed")}
	}

	ins := make([]ort.Value, len(inputs))
	defer destroyAll(ins)
	for i, t := range inputs {
		v, err := toValue(t)
		if err != nil {
			return nil, &stage.InferenceError{Stage: s.name, Op: "input", Index: i, Err: err}
		}
		ins[i] = v
	}

	outs := make([]ort.Value, len(s.outputs))
	defer destroyAll(outs)
	if err := s.session.Run(ins, outs); err != nil {
		return nil, &stage.InferenceError{Stage: s.name, Op: "invoke", Index: -1, Err: err}
	}

	result := make([]*tensor.Tensor, len(outs))
	for i, v := range outs {
		t, err := fromValue(v)
		if err != nil {
			return nil, &stage.InferenceError{Stage: s.name, Op: "output", Index: i, Err: err}
		}
		result[i] = t
	}
	if err := stage.CheckTensors(s.name, "output", s.outputs, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Close releases the session. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}

func names(infos []ort.InputOutputInfo) []string {
	out := make([]string, len(infos))
	for i, info := range infos {
		out[i] = info.Name
	}
	return out
}

func toInfos(infos []ort.InputOutputInfo) ([]tensor.Info, error) {
	out := make([]tensor.Info, len(infos))
	for i, info := range infos {
		ti, err := toInfo(info)
		if err != nil {
			return nil, fmt.Errorf("tensor %d (%s): %w", i, info.Name, err)
		}
		out[i] = ti
	}
	return out, nil
}

func toInfo(info ort.InputOutputInfo) (tensor.Info, error) {
	if info.OrtValueType != ort.ONNXTypeTensor {
		return tensor.Info{}, fmt.Errorf("value type %v is not a tensor", info.OrtValueType)
	}
	dtype, err := toDataType(info.DataType)
	if err != nil {
		return tensor.Info{}, err
	}
	return tensor.Info{
		Name:  info.Name,
		Shape: append(tensor.Shape(nil), info.Dimensions...),
		DType: dtype,
	}, nil
}

func toDataType(t ort.TensorElementDataType) (tensor.DataType, error) {
	switch t {
	case ort.TensorElementDataTypeFloat:
		return tensor.Float32, nil
	case ort.TensorElementDataTypeInt8:
		return tensor.Int8, nil
	case ort.TensorElementDataTypeInt16:
		return tensor.Int16, nil
	}
	return 0, fmt.Errorf("unsupported element type %v", t)
}

func toValue(t *tensor.Tensor) (ort.Value, error) {
	shape := ort.NewShape(t.Shape()...)
	switch t.DType() {
	case tensor.Float32:
		return ort.NewTensor(shape, append([]float32(nil), t.Float32Data()...))
	case tensor.Int8:
		return ort.NewTensor(shape, append([]int8(nil), t.Int8Data()...))
	case tensor.Int16:
		return ort.NewTensor(shape, append([]int16(nil), t.Int16Data()...))
	}
	return nil, fmt.Errorf("unsupported tensor type %s", t.DType())
}

func fromValue(v ort.Value) (*tensor.Tensor, error) {
	switch ot := v.(type) {
	case *ort.Tensor[float32]:
		return tensor.NewFloat32(append(tensor.Shape(nil), ot.GetShape()...), append([]float32(nil), ot.GetData()...)), nil
	case *ort.Tensor[int8]:
		return tensor.NewInt8(append(tensor.Shape(nil), ot.GetShape()...), append([]int8(nil), ot.GetData()...)), nil
	case *ort.Tensor[int16]:
		return tensor.NewInt16(append(tensor.Shape(nil), ot.GetShape()...), append([]int16(nil), ot.GetData()...)), nil
	case nil:
		return nil, errors.New("runtime returned no value")
	}
	return nil, fmt.Errorf("unsupported output value %T", v)
}

func destroyAll(values []ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Destroy()
		}
	}
}
