package rawbin

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"path/filepath"
	"testing"
)

func encode(samples ...float32) []byte {
	var buf bytes.Buffer
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, s)
	}
	return buf.Bytes()
}

// chunkedReader returns data in fixed-size chunks, with io.EOF alongside
// the last chunk.
type chunkedReader struct {
	data      []byte
	pos       int
	chunkSize int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := min(r.pos+r.chunkSize, len(r.data), r.pos+len(p))
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	if r.pos >= len(r.data) {
		return n, io.EOF
	}
	return n, nil
}

func TestReadAll(t *testing.T) {
	want := []float32{0, 1, -1, 0.5, float32(math.Inf(1)), 1e-20}
	data := encode(want...)

	for _, chunk := range []int{1, 3, 4, 5, 7, len(data)} {
		got, err := ReadAll(&chunkedReader{data: data, chunkSize: chunk})
		if err != nil {
			t.Fatalf("chunk %d: ReadAll: %v", chunk, err)
		}
		if len(got) != len(want) {
			t.Fatalf("chunk %d: got %d samples, want %d", chunk, len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("chunk %d: sample %d = %v, want %v", chunk, i, got[i], want[i])
			}
		}
	}
}

func TestReadPartialSample(t *testing.T) {
	data := append(encode(0.25, 0.75), 1, 2)
	r := NewReader(bytes.NewReader(data))

	buf := make([]float32, 8)
	n, err := r.Read(buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		t.Fatalf("first Read: %v", err)
	}
	if n != 2 || buf[0] != 0.25 || buf[1] != 0.75 {
		t.Fatalf("first Read = %d %v", n, buf[:n])
	}
	if err == nil {
		_, err = r.Read(buf)
	}
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("error = %v, want io.ErrUnexpectedEOF", err)
	}

	if _, err := ReadAll(bytes.NewReader(data)); err != io.ErrUnexpectedEOF {
		t.Errorf("ReadAll error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestReadEmpty(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	n, err := r.Read(make([]float32, 4))
	if n != 0 || err != io.EOF {
		t.Fatalf("Read = %d, %v, want 0, io.EOF", n, err)
	}
	if n, err := r.Read(nil); n != 0 || err != nil {
		t.Errorf("Read(nil) = %d, %v", n, err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.bin")
	want := make([]float32, 10000)
	for i := range want {
		want[i] = float32(math.Sin(float64(i) / 10))
	}
	if err := WriteFile(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.bin")); err == nil {
		t.Error("ReadFile of a missing file should fail")
	}
}
