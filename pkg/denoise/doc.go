// Package denoise implements the streaming block processor of the DTLN
// two-stage denoiser.
//
// For each block shift the input buffer slides by BlockShift samples and is
// transformed with a real FFT. The mask stage maps the magnitude and its
// carried state to a spectral mask and a new state. The masked spectrum is
// inverted back to a time-domain block, which the synthesis stage refines
// with its own carried state. Refined blocks are overlap-added into the
// output buffer, and its first BlockShift samples are emitted.
//
//	p, err := denoise.New(denoise.DefaultConfig(), mask, synth)
//	if err != nil {
//		return err
//	}
//	clean, err := p.Process(noisy)
//
// Stages whose tensors are int8 or int16 are fed and read through the affine
// codecs of package tensor, selected once when the processor is built.
package denoise
