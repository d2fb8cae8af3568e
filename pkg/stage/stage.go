// Package stage defines the inference-stage contract used by the block
// processor: a pre-trained model with declared input and output tensors,
// invoked once per block.
//
// Backends (see package onnx) implement [Stage]. [Func] builds a stage from
// a plain function, which is handy for scripted or identity stages.
package stage

import (
	"github.com/analogdevicesinc/tflite-micro/pkg/tensor"
)

// Stage is one opaque inference step.
//
// Inputs and Outputs return the declared contract; callers must not modify
// the returned slices. Invoke receives one tensor per declared input and
// returns one tensor per declared output, in declaration order.
type Stage interface {
	Inputs() []tensor.Info
	Outputs() []tensor.Info
	Invoke(inputs []*tensor.Tensor) ([]*tensor.Tensor, error)
}

// Func adapts a function to a Stage. The function's inputs and outputs are
// checked against the declared contract on every call.
type Func struct {
	Name string
	In   []tensor.Info
	Out  []tensor.Info
	Fn   func(inputs []*tensor.Tensor) ([]*tensor.Tensor, error)
}

var _ Stage = (*Func)(nil)

// Inputs implements Stage.
func (f *Func) Inputs() []tensor.Info { return f.In }

// Outputs implements Stage.
func (f *Func) Outputs() []tensor.Info { return f.Out }

// Invoke implements Stage.
func (f *Func) Invoke(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if err := CheckTensors(f.Name, "input", f.In, inputs); err != nil {
		return nil, err
	}
	outputs, err := f.Fn(inputs)
	if err != nil {
		return nil, &InferenceError{Stage: f.Name, Op: "invoke", Index: -1, Err: err}
	}
	if err := CheckTensors(f.Name, "output", f.Out, outputs); err != nil {
		return nil, err
	}
	return outputs, nil
}
