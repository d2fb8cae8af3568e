package stage

import (
	"errors"
	"fmt"

	"github.com/analogdevicesinc/tflite-micro/pkg/tensor"
)

// ErrInference is matched by every InferenceError.
var ErrInference = errors.New("inference error")

// InferenceError reports a stage that failed or did not honour its declared
// tensor contract.
type InferenceError struct {
	Stage string // stage name
	Op    string // "bind", "input", "output" or "invoke"
	Index int    // tensor index, or -1 when not tied to one tensor
	Err   error
}

func (e *InferenceError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("stage %s: %s %d: %v", e.Stage, e.Op, e.Index, e.Err)
	}
	return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInference) true for any InferenceError.
func (e *InferenceError) Is(target error) bool { return target == ErrInference }

// CheckTensors verifies got against the declared infos: same count, same
// element type, matching static dimensions and a backing slice holding
// exactly the shape's element count.
func CheckTensors(stage, op string, declared []tensor.Info, got []*tensor.Tensor) error {
	if len(got) != len(declared) {
		return &InferenceError{Stage: stage, Op: op, Index: -1,
			Err: fmt.Errorf("got %d tensors, want %d", len(got), len(declared))}
	}
	for i, info := range declared {
		t := got[i]
		if t == nil {
			return &InferenceError{Stage: stage, Op: op, Index: i, Err: errors.New("nil tensor")}
		}
		if t.DType() != info.DType {
			return &InferenceError{Stage: stage, Op: op, Index: i,
				Err: fmt.Errorf("type %s, want %s", t.DType(), info.DType)}
		}
		if !info.Shape.Matches(t.Shape()) {
			return &InferenceError{Stage: stage, Op: op, Index: i,
				Err: fmt.Errorf("shape %s, want %s", t.Shape(), info.Shape)}
		}
		if t.Len() != t.Shape().Elements() {
			return &InferenceError{Stage: stage, Op: op, Index: i,
				Err: fmt.Errorf("%d elements for shape %s", t.Len(), t.Shape())}
		}
	}
	return nil
}
