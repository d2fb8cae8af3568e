// Package ccarray turns model, image, audio and test-vector files into C++
// source constants that firmware links directly.
//
// Each supported input maps to a fixed array name and element type:
//
//	.tflite                  unsigned char g_model_data
//	.bmp                     unsigned char g_image_data
//	.wav                     int16_t       g_micro_speech_audio_data
//	*_int32.csv              int32_t       g_test_data
//	*_int16.csv              int16_t       g_test_data
//	*_int8.csv               int8_t        g_test_data
//	*_float.csv, .npy        float         g_test_data
package ccarray

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/image/bmp"

	"github.com/analogdevicesinc/tflite-micro/pkg/audio/wav"
)

// ErrUnsupported is returned for inputs with no known array mapping.
var ErrUnsupported = errors.New("ccarray: unsupported file type")

// Array is one generated C array.
type Array struct {
	Name     string
	Type     string
	Contents string // comma-separated initializer, without braces
	Size     int
}

type kind struct {
	suffix string
	name   string
	ctype  string
	read   func(path string) (string, int, error)
}

// Order matters: the typed csv suffixes are checked before anything generic.
var kinds = []kind{
	{".wav", "g_micro_speech_audio_data", "int16_t", readWAV},
	{".tflite", "g_model_data", "unsigned char", readBytes},
	{".bmp", "g_image_data", "unsigned char", readBMP},
	{"_int32.csv", "g_test_data", "int32_t", readCSV},
	{"_int16.csv", "g_test_data", "int16_t", readCSV},
	{"_int8.csv", "g_test_data", "int8_t", readCSV},
	{"_float.csv", "g_test_data", "float", readCSV},
	{".npy", "g_test_data", "float", readNPY},
}

// FromFile reads path and builds its array.
func FromFile(path string) (*Array, error) {
	for _, k := range kinds {
		if !strings.HasSuffix(path, k.suffix) {
			continue
		}
		contents, size, err := k.read(path)
		if err != nil {
			return nil, fmt.Errorf("ccarray: %s: %w", path, err)
		}
		return &Array{Name: k.name, Type: k.ctype, Contents: contents, Size: size}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

// WriteSource writes the .cc definition. include is the header path quoted
// in the #include line.
func (a *Array) WriteSource(w io.Writer, include string) error {
	_, err := fmt.Fprintf(w, "#include <cstdint>\n\n#include \"%s\"\n\nalignas(16) const %s %s[] = {%s};\n",
		include, a.Type, a.Name, a.Contents)
	return err
}

// WriteHeader writes the .h declaration.
func (a *Array) WriteHeader(w io.Writer) error {
	_, err := fmt.Fprintf(w, "#include <cstdint>\n\nconstexpr unsigned int %s_size = %d;\nextern const %s %s[];\n",
		a.Name, a.Size, a.Type, a.Name)
	return err
}

// Hex formats bytes as a C initializer: 0x0,0x1f,0xff.
func Hex(data []byte) string {
	var b strings.Builder
	b.Grow(len(data) * 5)
	for i, v := range data {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("0x")
		b.WriteString(strconv.FormatUint(uint64(v), 16))
	}
	return b.String()
}

func readBytes(path string) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	return Hex(data), len(data), nil
}

func readBMP(path string) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	img, err := bmp.Decode(bufio.NewReader(f))
	if err != nil {
		return "", 0, err
	}
	data := PixelBytes(img)
	return Hex(data), len(data), nil
}

// PixelBytes returns the packed pixel data of img: one byte per pixel for
// grayscale and paletted images (the palette index), three bytes of RGB
// otherwise.
func PixelBytes(img image.Image) []byte {
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	switch m := img.(type) {
	case *image.Gray:
		return packRows(m.Pix, m.Stride, w, h)
	case *image.Paletted:
		return packRows(m.Pix, m.Stride, w, h)
	}
	out := make([]byte, 0, w*h*3)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			out = append(out, byte(cr>>8), byte(cg>>8), byte(cb>>8))
		}
	}
	return out
}

func packRows(pix []byte, stride, w, h int) []byte {
	out := make([]byte, 0, w*h)
	for y := range h {
		out = append(out, pix[y*stride:y*stride+w]...)
	}
	return out
}

func readWAV(path string) (string, int, error) {
	p, err := wav.ReadPCMFile(path)
	if err != nil {
		return "", 0, err
	}
	if p.Float {
		return "", 0, fmt.Errorf("want 16-bit integer samples, got %d-bit float", p.BitDepth)
	}
	if p.BitDepth != 16 {
		return "", 0, fmt.Errorf("want 16-bit samples, got %d-bit", p.BitDepth)
	}
	var b strings.Builder
	for i, v := range p.Data {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(v))
	}
	return b.String(), p.Frames(), nil
}

// readCSV takes the first line as-is; one array per file.
func readCSV(path string) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", 0, err
	}
	return line, strings.Count(line, ",") + 1, nil
}

func readNPY(path string) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	values, err := ReadNPY(bufio.NewReader(f))
	if err != nil {
		return "", 0, err
	}
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(FormatFloat(v))
	}
	return b.String(), len(values), nil
}
