package denoise

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// spectrum holds the real FFT plan and scratch buffers for one block size.
type spectrum struct {
	n      int
	fft    *fourier.FFT
	seq    []float64
	coeffs []complex128
}

func newSpectrum(n int) *spectrum {
	return &spectrum{
		n:      n,
		fft:    fourier.NewFFT(n),
		seq:    make([]float64, n),
		coeffs: make([]complex128, n/2+1),
	}
}

// analyze computes the rfft of block into mag and phase.
func (s *spectrum) analyze(block []float32, mag []float32, phase []float64) {
	for i, v := range block {
		s.seq[i] = float64(v)
	}
	s.coeffs = s.fft.Coefficients(s.coeffs, s.seq)
	for k, c := range s.coeffs {
		mag[k] = float32(cmplx.Abs(c))
		phase[k] = cmplx.Phase(c)
	}
}

// synthesize writes irfft(mag * mask * e^{i*phase}) into out. The gain is
// formed in float32 before it meets the phase.
func (s *spectrum) synthesize(mag, mask []float32, phase []float64, out []float32) {
	for k := range s.coeffs {
		s.coeffs[k] = cmplx.Rect(float64(mag[k]*mask[k]), phase[k])
	}
	s.seq = s.fft.Sequence(s.seq, s.coeffs)
	scale := 1 / float64(s.n)
	for i, v := range s.seq {
		out[i] = float32(v * scale)
	}
}
