package denoise

import (
	"fmt"
)

// Stage names used in errors, logs and traces.
const (
	StageMask  = "mask"
	StageSynth = "synth"
)

// Ports maps the roles of a two-input, two-output stage onto tensor indices.
type Ports struct {
	DataIn   int `yaml:"data_in" json:"data_in"`
	StateIn  int `yaml:"state_in" json:"state_in"`
	DataOut  int `yaml:"data_out" json:"data_out"`
	StateOut int `yaml:"state_out" json:"state_out"`
}

func (p Ports) validate(name string) error {
	for _, pair := range [][2]int{{p.DataIn, p.StateIn}, {p.DataOut, p.StateOut}} {
		a, b := pair[0], pair[1]
		if a < 0 || a > 1 || b < 0 || b > 1 || a == b {
			return fmt.Errorf("denoise: %s ports %+v must be a permutation of 0 and 1", name, p)
		}
	}
	return nil
}

// Config is the block geometry and the tensor layout of both stages.
type Config struct {
	BlockLen   int   `yaml:"block_len" json:"block_len"`
	BlockShift int   `yaml:"block_shift" json:"block_shift"`
	Mask       Ports `yaml:"mask_ports" json:"mask_ports"`
	Synth      Ports `yaml:"synth_ports" json:"synth_ports"`
}

// DefaultConfig returns the DTLN geometry: 512-sample blocks, 128-sample
// shift, with the tensor order produced by the TFLite converter.
//
// The mask stage takes (state, magnitude) and returns (mask, state); the
// synthesis stage takes (block, state) and returns (state, block).
func DefaultConfig() Config {
	return Config{
		BlockLen:   512,
		BlockShift: 128,
		Mask:       Ports{DataIn: 1, StateIn: 0, DataOut: 0, StateOut: 1},
		Synth:      Ports{DataIn: 0, StateIn: 1, DataOut: 1, StateOut: 0},
	}
}

// Bins returns the number of rfft bins of one block.
func (c Config) Bins() int { return c.BlockLen/2 + 1 }

// Overlap returns BlockLen - BlockShift, the output delay in samples.
func (c Config) Overlap() int { return c.BlockLen - c.BlockShift }

// Validate checks the block geometry and port layout.
func (c Config) Validate() error {
	if c.BlockLen <= 0 || c.BlockShift <= 0 || c.BlockShift > c.BlockLen {
		return fmt.Errorf("denoise: invalid block geometry len=%d shift=%d", c.BlockLen, c.BlockShift)
	}
	if err := c.Mask.validate(StageMask); err != nil {
		return err
	}
	return c.Synth.validate(StageSynth)
}

// Blocks returns how many whole blocks a signal of n samples yields:
// floor((n - overlap) / shift), or 0 when n is shorter than the overlap.
func (c Config) Blocks(n int) int {
	if n < c.Overlap() {
		return 0
	}
	return (n - c.Overlap()) / c.BlockShift
}
