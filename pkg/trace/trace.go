// Package trace records the tensors exchanged with each inference stage of a
// denoise run, and exports them as firmware test vectors.
//
// A trace file is a msgpack stream: one [Header] followed by one [Record] per
// stage invocation, in block order.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/analogdevicesinc/tflite-micro/pkg/tensor"
)

// Version is the trace format version written by Recorder.
const Version = 1

// ErrVersion is returned when reading a trace of an unknown version.
var ErrVersion = errors.New("trace: unsupported version")

// Header describes the run a trace was recorded from.
type Header struct {
	Version    int       `msgpack:"version"`
	RunID      uuid.UUID `msgpack:"run_id"`
	CreatedAt  time.Time `msgpack:"created_at"`
	Source     string    `msgpack:"source"`
	BlockLen   int       `msgpack:"block_len"`
	BlockShift int       `msgpack:"block_shift"`
	SampleRate int       `msgpack:"sample_rate"`
}

// Tensor is the stored form of a tensor. Exactly one of the data slices is
// set, matching DType.
type Tensor struct {
	DType tensor.DataType `msgpack:"dtype"`
	Shape tensor.Shape    `msgpack:"shape"`
	F32   []float32       `msgpack:"f32,omitempty"`
	I8    []int8          `msgpack:"i8,omitempty"`
	I16   []int16         `msgpack:"i16,omitempty"`
}

// FromTensor copies t into its stored form.
func FromTensor(t *tensor.Tensor) Tensor {
	c := t.Clone()
	return Tensor{
		DType: c.DType(),
		Shape: c.Shape(),
		F32:   c.Float32Data(),
		I8:    c.Int8Data(),
		I16:   c.Int16Data(),
	}
}

// Tensor rebuilds the in-memory tensor.
func (t Tensor) Tensor() *tensor.Tensor {
	switch t.DType {
	case tensor.Int8:
		return tensor.NewInt8(t.Shape, t.I8)
	case tensor.Int16:
		return tensor.NewInt16(t.Shape, t.I16)
	default:
		return tensor.NewFloat32(t.Shape, t.F32)
	}
}

// Record holds one stage invocation.
type Record struct {
	Block   int      `msgpack:"block"`
	Stage   string   `msgpack:"stage"`
	Inputs  []Tensor `msgpack:"inputs"`
	Outputs []Tensor `msgpack:"outputs"`
}

// Recorder writes a trace. It implements denoise.Observer.
type Recorder struct {
	w      *bufio.Writer
	enc    *msgpack.Encoder
	header Header
	count  int
}

// NewRecorder writes h to w and returns a Recorder for the records. A zero
// RunID or CreatedAt is filled in.
func NewRecorder(w io.Writer, h Header) (*Recorder, error) {
	h.Version = Version
	if h.RunID == uuid.Nil {
		h.RunID = uuid.New()
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	bw := bufio.NewWriter(w)
	r := &Recorder{w: bw, enc: msgpack.NewEncoder(bw), header: h}
	if err := r.enc.Encode(&h); err != nil {
		return nil, fmt.Errorf("trace: write header: %w", err)
	}
	return r, nil
}

// Header returns the header as written.
func (r *Recorder) Header() Header { return r.header }

// Count returns the number of records written.
func (r *Recorder) Count() int { return r.count }

// ObserveStage appends one record.
func (r *Recorder) ObserveStage(block int, stage string, inputs, outputs []*tensor.Tensor) error {
	rec := Record{
		Block:   block,
		Stage:   stage,
		Inputs:  make([]Tensor, len(inputs)),
		Outputs: make([]Tensor, len(outputs)),
	}
	for i, t := range inputs {
		rec.Inputs[i] = FromTensor(t)
	}
	for i, t := range outputs {
		rec.Outputs[i] = FromTensor(t)
	}
	if err := r.enc.Encode(&rec); err != nil {
		return fmt.Errorf("trace: write record: %w", err)
	}
	r.count++
	return nil
}

// Close flushes buffered records. It does not close the underlying writer.
func (r *Recorder) Close() error {
	return r.w.Flush()
}

// Reader reads a trace written by Recorder.
type Reader struct {
	r      *bufio.Reader
	dec    *msgpack.Decoder
	header Header
}

// NewReader reads the trace header from r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	tr := &Reader{r: br, dec: msgpack.NewDecoder(br)}
	if err := tr.dec.Decode(&tr.header); err != nil {
		return nil, fmt.Errorf("trace: read header: %w", err)
	}
	if tr.header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, tr.header.Version)
	}
	return tr, nil
}

// Header returns the trace header.
func (r *Reader) Header() Header { return r.header }

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (*Record, error) {
	if _, err := r.r.Peek(1); err != nil {
		return nil, err
	}
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("trace: read record: %w", err)
	}
	return &rec, nil
}
