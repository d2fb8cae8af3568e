package denoise

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/analogdevicesinc/tflite-micro/pkg/stage"
	"github.com/analogdevicesinc/tflite-micro/pkg/tensor"
)

// Observer receives the tensors exchanged with each stage: the encoded
// inputs and the raw outputs, before dequantization. Observers must not
// keep or modify the tensors after returning unless they clone them.
type Observer interface {
	ObserveStage(block int, stage string, inputs, outputs []*tensor.Tensor) error
}

// Option configures a Processor.
type Option func(*Processor)

// WithObserver installs an observer called for every stage of every block.
// An observer error aborts the stream.
func WithObserver(o Observer) Option {
	return func(p *Processor) { p.observer = o }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// Stats describes the blocks processed since the last reset.
type Stats struct {
	Blocks  int           // blocks processed
	Dropped int           // input samples never consumed
	Total   time.Duration // time spent inside the block loop
}

// Mean returns the mean processing time per block.
func (s Stats) Mean() time.Duration {
	if s.Blocks == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Blocks)
}

// Processor runs the two-stage block loop over a signal.
//
// A Processor owns its buffers and carried states. It is not safe for
// concurrent use.
type Processor struct {
	cfg      Config
	mask     *binding
	synth    *binding
	spec     *spectrum
	observer Observer
	logger   *slog.Logger

	inBuf  []float32
	outBuf []float32
	mag    []float32
	phase  []float64
	block  []float32

	blocks int
	stats  Stats
}

// New binds the mask and synthesis stages to a processor. The tensor codecs
// of every port are chosen here, and the stage contracts are checked against
// the block geometry: the mask stage exchanges BlockLen/2+1 bins, the
// synthesis stage exchanges BlockLen samples, and each stage returns a state
// the size of the one it takes.
func New(cfg Config, mask, synth stage.Stage, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mb, err := bind(StageMask, mask, cfg.Mask, cfg.Bins())
	if err != nil {
		return nil, err
	}
	sb, err := bind(StageSynth, synth, cfg.Synth, cfg.BlockLen)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:    cfg,
		mask:   mb,
		synth:  sb,
		spec:   newSpectrum(cfg.BlockLen),
		logger: slog.Default(),
		inBuf:  make([]float32, cfg.BlockLen),
		outBuf: make([]float32, cfg.BlockLen),
		mag:    make([]float32, cfg.Bins()),
		phase:  make([]float64, cfg.Bins()),
		block:  make([]float32, cfg.BlockLen),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger.Debug("denoise: stages bound",
		"mask", mb.describe(), "synth", sb.describe(),
		"block_len", cfg.BlockLen, "block_shift", cfg.BlockShift)
	return p, nil
}

// Config returns the processor configuration.
func (p *Processor) Config() Config { return p.cfg }

// Stats returns the statistics since the last reset.
func (p *Processor) Stats() Stats { return p.stats }

// Reset zeroes both carried states, both buffers and the statistics.
func (p *Processor) Reset() {
	clear(p.inBuf)
	clear(p.outBuf)
	p.mask.reset()
	p.synth.reset()
	p.blocks = 0
	p.stats = Stats{}
}

// Process resets the processor and runs the block loop over signal.
//
// The output holds BlockShift samples per block, floor((len-overlap)/shift)
// blocks in all; the samples after the last whole block are dropped and
// counted in Stats().Dropped. Because blocks are overlap-added without a
// synthesis window, a pass-through pipeline returns the input delayed by
// BlockLen-BlockShift samples and scaled by BlockLen/BlockShift.
//
// Any stage failure aborts the stream and no output is returned.
func (p *Processor) Process(signal []float32) ([]float32, error) {
	p.Reset()
	return p.Continue(signal)
}

// Continue runs the block loop over signal without resetting, carrying the
// states and buffers left by the previous call. The block count rule is the
// same as Process, applied to signal alone.
func (p *Processor) Continue(signal []float32) ([]float32, error) {
	n := p.cfg.Blocks(len(signal))
	shift := p.cfg.BlockShift
	out := make([]float32, 0, n*shift)

	start := time.Now()
	for i := 0; i < n; i++ {
		if err := p.step(signal[i*shift : (i+1)*shift]); err != nil {
			return nil, err
		}
		out = append(out, p.outBuf[:shift]...)
	}
	elapsed := time.Since(start)

	dropped := len(signal) - n*shift
	p.stats.Blocks += n
	p.stats.Dropped += dropped
	p.stats.Total += elapsed

	p.logger.Debug("denoise: stream processed",
		"samples", len(signal), "blocks", n, "dropped", dropped,
		"mean_block", p.stats.Mean())
	return out, nil
}

func (p *Processor) step(chunk []float32) error {
	L, shift := p.cfg.BlockLen, p.cfg.BlockShift
	idx := p.blocks

	copy(p.inBuf, p.inBuf[shift:])
	copy(p.inBuf[L-shift:], chunk)

	p.spec.analyze(p.inBuf, p.mag, p.phase)

	mask, err := p.mask.run(idx, p.mag, p.observer)
	if err != nil {
		return err
	}
	p.spec.synthesize(p.mag, mask, p.phase, p.block)

	est, err := p.synth.run(idx, p.block, p.observer)
	if err != nil {
		return err
	}

	copy(p.outBuf, p.outBuf[shift:])
	clear(p.outBuf[L-shift:])
	for j, v := range est {
		p.outBuf[j] += v
	}

	p.blocks++
	return nil
}

// binding is one stage with its ports, codecs and carried state.
type binding struct {
	name  string
	stage stage.Stage
	ports Ports

	dataIn, stateIn, dataOut, stateOut tensor.Codec

	dataShape  tensor.Shape
	stateShape tensor.Shape
	state      []float32
}

func bind(name string, st stage.Stage, ports Ports, dataLen int) (*binding, error) {
	fail := func(op string, index int, err error) error {
		return &stage.InferenceError{Stage: name, Op: op, Index: index, Err: err}
	}
	if st == nil {
		return nil, fail("bind", -1, errors.New("no stage"))
	}
	in, out := st.Inputs(), st.Outputs()
	if len(in) != 2 || len(out) != 2 {
		return nil, fail("bind", -1, fmt.Errorf("declares %d inputs and %d outputs, want 2 and 2", len(in), len(out)))
	}

	b := &binding{name: name, stage: st, ports: ports}
	codecs := []struct {
		dst   *tensor.Codec
		info  tensor.Info
		op    string
		index int
	}{
		{&b.dataIn, in[ports.DataIn], "input", ports.DataIn},
		{&b.stateIn, in[ports.StateIn], "input", ports.StateIn},
		{&b.dataOut, out[ports.DataOut], "output", ports.DataOut},
		{&b.stateOut, out[ports.StateOut], "output", ports.StateOut},
	}
	for _, c := range codecs {
		codec, err := tensor.NewCodec(c.info)
		if err != nil {
			return nil, fail(c.op, c.index, err)
		}
		*c.dst = codec
	}

	if got := in[ports.DataIn].Shape.Elements(); got != dataLen {
		return nil, fail("input", ports.DataIn, fmt.Errorf("data has %d elements, want %d", got, dataLen))
	}
	if got := out[ports.DataOut].Shape.Elements(); got != dataLen {
		return nil, fail("output", ports.DataOut, fmt.Errorf("data has %d elements, want %d", got, dataLen))
	}
	stateIn, stateOut := in[ports.StateIn].Shape.Elements(), out[ports.StateOut].Shape.Elements()
	if stateIn != stateOut {
		return nil, fail("output", ports.StateOut, fmt.Errorf("state has %d elements, input state has %d", stateOut, stateIn))
	}

	b.dataShape = in[ports.DataIn].Shape.Resolve()
	b.stateShape = in[ports.StateIn].Shape.Resolve()
	b.state = make([]float32, stateIn)
	return b, nil
}

func (b *binding) reset() { clear(b.state) }

func (b *binding) describe() string {
	in, out := b.stage.Inputs(), b.stage.Outputs()
	return fmt.Sprintf("in[%s; %s] out[%s; %s]", in[0], in[1], out[0], out[1])
}

// run encodes data and the carried state, invokes the stage, stores the new
// state and returns the decoded data output.
func (b *binding) run(block int, data []float32, obs Observer) ([]float32, error) {
	inputs := make([]*tensor.Tensor, 2)
	inputs[b.ports.DataIn] = b.dataIn.Encode(data, b.dataShape)
	inputs[b.ports.StateIn] = b.stateIn.Encode(b.state, b.stateShape)

	outputs, err := b.stage.Invoke(inputs)
	if err != nil {
		var ie *stage.InferenceError
		if !errors.As(err, &ie) {
			err = &stage.InferenceError{Stage: b.name, Op: "invoke", Index: -1, Err: err}
		}
		return nil, fmt.Errorf("block %d: %w", block, err)
	}
	if err := stage.CheckTensors(b.name, "output", b.stage.Outputs(), outputs); err != nil {
		return nil, fmt.Errorf("block %d: %w", block, err)
	}
	if obs != nil {
		if err := obs.ObserveStage(block, b.name, inputs, outputs); err != nil {
			return nil, fmt.Errorf("block %d: observe %s: %w", block, b.name, err)
		}
	}

	state, err := b.stateOut.Decode(outputs[b.ports.StateOut])
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", block, &stage.InferenceError{Stage: b.name, Op: "output", Index: b.ports.StateOut, Err: err})
	}
	out, err := b.dataOut.Decode(outputs[b.ports.DataOut])
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", block, &stage.InferenceError{Stage: b.name, Op: "output", Index: b.ports.DataOut, Err: err})
	}
	b.state = state
	return out, nil
}
