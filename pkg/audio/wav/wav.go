// Package wav reads and writes PCM WAV files as normalized float32 samples,
// built on github.com/go-audio/wav.
//
// Decoding divides each integer sample by 2^(bits-1), so 16-bit audio maps
// to [-1, 1), and multi-channel audio is averaged down to mono. 32-bit IEEE
// float input is taken as is. WAVE_FORMAT_EXTENSIBLE headers are resolved
// to their sub-format. Encoding scales
// by 2^(bits-1)-1, rounds, and clips to the target range.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// DefaultBitDepth is the sample width used by WriteFile.
const DefaultBitDepth = 16

// ErrInvalidFile is returned for input that is not PCM or float WAV.
var ErrInvalidFile = errors.New("wav: not a PCM WAV file")

// WAVE format tags.
const (
	formatPCM        = 0x0001
	formatFloat      = 0x0003
	formatExtensible = 0xFFFE
)

// PCM is the raw content of a WAV file: interleaved samples. When Float is
// set each element holds the bits of a float32 sample.
type PCM struct {
	Data       []int
	Channels   int
	SampleRate int
	BitDepth   int
	Float      bool
}

// Frames returns the number of sample frames (samples per channel).
func (p *PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Data) / p.Channels
}

// Audio is a decoded mono signal.
type Audio struct {
	Samples    []float32
	SampleRate int
	Channels   int // channel count of the source file
	BitDepth   int // sample width of the source file
}

// Duration returns the signal length.
func (a *Audio) Duration() time.Duration {
	if a.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(a.Samples)) * time.Second / time.Duration(a.SampleRate)
}

// DecodePCM reads the samples of a WAV file.
func DecodePCM(r io.ReadSeeker) (*PCM, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("wav: %w", err)
	}
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrInvalidFile
	}

	tag := d.WavAudioFormat
	if tag == formatExtensible {
		if tag, err = subFormat(r, start); err != nil {
			return nil, err
		}
	}
	var float bool
	switch tag {
	case formatPCM:
		switch d.BitDepth {
		case 8, 16, 24, 32:
		default:
			return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidFile, d.BitDepth)
		}
	case formatFloat:
		if d.BitDepth != 32 {
			return nil, fmt.Errorf("%w: unsupported float bit depth %d (want 32)", ErrInvalidFile, d.BitDepth)
		}
		float = true
	default:
		return nil, fmt.Errorf("%w: audio format %#x", ErrInvalidFile, tag)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav: read samples: %w", err)
	}
	if d.NumChans == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidFile)
	}

	p := &PCM{
		Data:       buf.Data,
		Channels:   int(d.NumChans),
		SampleRate: int(d.SampleRate),
		BitDepth:   int(d.BitDepth),
		Float:      float,
	}
	if p.BitDepth == 8 {
		// 8-bit WAV is unsigned.
		for i, v := range p.Data {
			p.Data[i] = v - 128
		}
	}
	return p, nil
}

// subFormat returns the format tag carried in the GUID of an extensible fmt
// chunk. The reader position is restored afterwards.
func subFormat(r io.ReadSeeker, start int64) (uint16, error) {
	cur, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("wav: %w", err)
	}
	defer r.Seek(cur, io.SeekStart)
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return 0, fmt.Errorf("wav: %w", err)
	}

	p := riff.New(r)
	if err := p.ParseHeaders(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	for {
		ch, err := p.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("%w: fmt chunk: %v", ErrInvalidFile, err)
		}
		if ch.ID != riff.FmtID {
			ch.Drain()
			continue
		}
		body := make([]byte, ch.Size)
		if _, err := io.ReadFull(ch.R, body); err != nil {
			return 0, fmt.Errorf("%w: fmt chunk: %v", ErrInvalidFile, err)
		}
		// cbSize, valid bits, channel mask, then the sub-format GUID.
		if len(body) < 26 {
			return 0, fmt.Errorf("%w: extensible fmt chunk of %d bytes", ErrInvalidFile, len(body))
		}
		return binary.LittleEndian.Uint16(body[24:26]), nil
	}
}

// Decode reads a WAV file and returns its mono float32 signal.
func Decode(r io.ReadSeeker) (*Audio, error) {
	p, err := DecodePCM(r)
	if err != nil {
		return nil, err
	}
	return p.Mono(), nil
}

// Mono normalizes the samples and averages the channels.
func (p *PCM) Mono() *Audio {
	scale := 1 / math.Ldexp(1, p.BitDepth-1)
	if p.Float {
		scale = 1
	}
	frames := p.Frames()
	out := make([]float32, frames)
	for i := range frames {
		var sum float64
		for c := range p.Channels {
			sum += p.sample(i*p.Channels + c)
		}
		out[i] = float32(sum * scale / float64(p.Channels))
	}
	return &Audio{
		Samples:    out,
		SampleRate: p.SampleRate,
		Channels:   p.Channels,
		BitDepth:   p.BitDepth,
	}
}

func (p *PCM) sample(i int) float64 {
	if p.Float {
		return float64(math.Float32frombits(uint32(int32(p.Data[i]))))
	}
	return float64(p.Data[i])
}

// ReadFile decodes the WAV file at path.
func ReadFile(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// ReadPCMFile reads the raw integer samples of the WAV file at path.
func ReadPCMFile(path string) (*PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := DecodePCM(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Encode writes mono samples as integer PCM of the given bit depth.
func Encode(w io.WriteSeeker, samples []float32, sampleRate, bitDepth int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("wav: invalid sample rate %d", sampleRate)
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("wav: unsupported bit depth %d", bitDepth)
	}

	full := math.Ldexp(1, bitDepth-1)
	lo, hi := -full, full-1
	data := make([]int, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * hi)
		if v > hi || math.IsInf(v, 1) {
			v = hi
		} else if v < lo || math.IsInf(v, -1) {
			v = lo
		} else if math.IsNaN(v) {
			v = 0
		}
		data[i] = int(v)
		if bitDepth == 8 {
			data[i] += 128
		}
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav: write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav: finalize: %w", err)
	}
	return nil
}

// WriteFile writes samples to path as 16-bit mono PCM.
func WriteFile(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, samples, sampleRate, DefaultBitDepth); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
