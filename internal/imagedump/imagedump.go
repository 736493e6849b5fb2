// Package imagedump writes read-back BGRA surfaces to image files for visual
// verification. It runs off the timed path, at most once per strategy.
package imagedump

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Format is an output image encoding.
type Format string

// Supported formats.
const (
	PNG  Format = "png"
	BMP  Format = "bmp"
	TIFF Format = "tiff"
)

// ErrFormat is returned for an unknown format name.
var ErrFormat = errors.New("imagedump: unknown format")

// ErrShape is returned when the pixel buffer does not match the dimensions.
var ErrShape = errors.New("imagedump: pixel buffer does not match dimensions")

// ParseFormat maps a name or file extension onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	case "tif", "tiff":
		return TIFF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrFormat, s)
}

// BGRA is a read-back surface: height rows of Stride bytes, four bytes per
// pixel in blue, green, red, alpha order, not premultiplied.
type BGRA struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// NewBGRA wraps pixels without copying them.
func NewBGRA(pixels []byte, width, height, pitch uint32) (*BGRA, error) {
	if width == 0 || height == 0 || pitch < width*4 {
		return nil, fmt.Errorf("%w: %dx%d, pitch %d", ErrShape, width, height, pitch)
	}
	if need := uint64(pitch)*uint64(height-1) + uint64(width)*4; uint64(len(pixels)) < need {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrShape, len(pixels), need)
	}
	return &BGRA{Pix: pixels, Stride: int(pitch), Rect: image.Rect(0, 0, int(width), int(height))}, nil
}

// ColorModel implements image.Image.
func (b *BGRA) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (b *BGRA) Bounds() image.Rectangle { return b.Rect }

// At implements image.Image.
func (b *BGRA) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(b.Rect)) {
		return color.NRGBA{}
	}
	i := y*b.Stride + x*4
	p := b.Pix[i : i+4 : i+4]
	return color.NRGBA{R: p[2], G: p[1], B: p[0], A: p[3]}
}

// ToNRGBA converts the surface to a tightly packed image.NRGBA.
func (b *BGRA) ToNRGBA() *image.NRGBA {
	dst := image.NewNRGBA(b.Rect)
	xdraw.Copy(dst, image.Point{}, b, b.Rect, xdraw.Src, nil)
	return dst
}

// Encode writes img to w in format f.
func Encode(w io.Writer, img image.Image, f Format) error {
	switch f {
	case PNG:
		return png.Encode(w, img)
	case BMP:
		return bmp.Encode(w, img)
	case TIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	}
	return fmt.Errorf("%w: %q", ErrFormat, string(f))
}

// Source is the name the source surface is saved under.
const Source = "source"

// Writer saves surfaces as files under Dir.
type Writer struct {
	Dir    string
	Format Format
}

// FileName returns the file name used for a strategy and group size.
func (w Writer) FileName(strategy string, groupSize int) string {
	f := w.Format
	if f == "" {
		f = PNG
	}
	if groupSize > 0 {
		return fmt.Sprintf("%s-g%d.%s", strategy, groupSize, f)
	}
	return fmt.Sprintf("%s.%s", strategy, f)
}

// Save converts pixels and writes them to Dir, creating it if needed. It
// returns the path written.
func (w Writer) Save(strategy string, groupSize int, pixels []byte, width, height, pitch uint32) (path string, err error) {
	src, err := NewBGRA(pixels, width, height, pitch)
	if err != nil {
		return "", err
	}
	f := w.Format
	if f == "" {
		f = PNG
	}
	if _, err := ParseFormat(string(f)); err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("imagedump: %w", err)
	}

	path = filepath.Join(w.Dir, w.FileName(strategy, groupSize))
	out, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return "", fmt.Errorf("imagedump: %w", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("imagedump: %w", cerr)
		}
	}()

	if err := Encode(out, src.ToNRGBA(), f); err != nil {
		return "", fmt.Errorf("imagedump: encode %s: %w", path, err)
	}
	return path, nil
}
