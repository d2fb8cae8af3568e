// Package rawbin reads and writes headerless little-endian float32 sample
// files, the layout numpy produces with ndarray.tofile and reads back with
// numpy.fromfile(path, dtype="float32").
package rawbin

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// SampleSize is the size of one encoded sample in bytes.
const SampleSize = 4

// Reader decodes float32 samples from a byte stream. Reads always consume
// whole samples; bytes of a sample split across underlying reads are held
// until the sample is complete.
type Reader struct {
	r        io.Reader
	buf      []byte
	pending  [SampleSize - 1]byte
	buffered int
}

// NewReader returns a Reader decoding samples from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read decodes up to len(dst) samples. At the end of the stream it returns
// io.EOF, or io.ErrUnexpectedEOF when the stream ends inside a sample.
func (sr *Reader) Read(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	want := len(dst) * SampleSize
	if cap(sr.buf) < want {
		sr.buf = make([]byte, want)
	}
	p := sr.buf[:want]

	n := copy(p, sr.pending[:sr.buffered])
	sr.buffered = 0

	rn, err := sr.r.Read(p[n:])
	n += rn

	mod := n % SampleSize
	whole := n - mod
	for i := 0; i < whole/SampleSize; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*SampleSize:]))
	}

	if err != nil {
		if err == io.EOF && mod != 0 {
			return whole / SampleSize, io.ErrUnexpectedEOF
		}
		if err == io.EOF && whole > 0 {
			// Report the samples now and EOF on the next call.
			return whole / SampleSize, nil
		}
		return whole / SampleSize, err
	}
	if mod != 0 {
		sr.buffered = copy(sr.pending[:], p[whole:n])
	}
	return whole / SampleSize, nil
}

// ReadAll decodes every sample of r.
func ReadAll(r io.Reader) ([]float32, error) {
	sr := NewReader(r)
	var out []float32
	chunk := make([]float32, 4096)
	for {
		n, err := sr.Read(chunk)
		out = append(out, chunk[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// ReadFile decodes the samples stored at path.
func ReadFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := ReadAll(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("rawbin: %s: %w", path, err)
	}
	return samples, nil
}

// Write encodes samples to w.
func Write(w io.Writer, samples []float32) error {
	buf := make([]byte, SampleSize*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*SampleSize:], math.Float32bits(s))
	}
	_, err := w.Write(buf)
	return err
}

// WriteFile writes samples to path, creating or truncating it.
func WriteFile(path string, samples []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, samples); err != nil {
		f.Close()
		return fmt.Errorf("rawbin: %s: %w", path, err)
	}
	return f.Close()
}
