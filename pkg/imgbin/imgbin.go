// Package imgbin prepares camera-model input: images are converted to 8-bit
// grayscale, resized bilinearly, and stored as packed row-major bytes.
//
// Resizing uses draw.ApproxBiLinear: each output pixel interpolates the 2x2
// source pixels around it, with no area filtering when downscaling.
package imgbin

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Default output size.
const (
	DefaultWidth  = 96
	DefaultHeight = 96
)

// Decode reads a PNG, JPEG, GIF, BMP, TIFF or WebP image and reports the
// detected format.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("imgbin: decode: %w", err)
	}
	return img, format, nil
}

// ReadFile decodes the image at path.
func ReadFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Convert turns img into a width x height grayscale image. Luma uses the
// ITU-R 601 weights and is computed before resizing.
func Convert(img image.Image, width, height int) (*image.Gray, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("imgbin: invalid size %dx%d", width, height)
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	if b.Dx() == width && b.Dy() == height {
		return gray, nil
	}

	out := image.NewGray(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(out, out.Bounds(), gray, gray.Bounds(), draw.Src, nil)
	return out, nil
}

// Bytes returns the pixels of g without row padding.
func Bytes(g *image.Gray) []byte {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if g.Stride == w {
		return append([]byte(nil), g.Pix[:w*h]...)
	}
	out := make([]byte, 0, w*h)
	for y := range h {
		off := y * g.Stride
		out = append(out, g.Pix[off:off+w]...)
	}
	return out
}

// WritePNG writes img to path as PNG.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("imgbin: %s: %w", path, err)
	}
	return f.Close()
}

// Save writes the bytes of g to dst. When preview is set g is also written
// there as PNG.
func Save(g *image.Gray, dst, preview string) error {
	if err := os.WriteFile(dst, Bytes(g), 0o644); err != nil {
		return err
	}
	if preview != "" {
		return WritePNG(preview, g)
	}
	return nil
}
