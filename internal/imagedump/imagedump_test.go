package imagedump

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// surface returns an opaque w x h BGRA surface with pitch bytes per row and
// 0xEE padding after each row.
func surface(w, h, pitch uint32) []byte {
	buf := bytes.Repeat([]byte{0xEE}, int(pitch*h))
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			i := y*pitch + x*4
			buf[i+0] = byte(x)     // B
			buf[i+1] = byte(y)     // G
			buf[i+2] = byte(x + y) // R
			buf[i+3] = 0xFF        // A
		}
	}
	return buf
}

func TestToNRGBASwapsChannels(t *testing.T) {
	const w, h, pitch = 5, 3, 256
	src, err := NewBGRA(surface(w, h, pitch), w, h, pitch)
	if err != nil {
		t.Fatal(err)
	}
	img := src.ToNRGBA()
	if img.Bounds() != image.Rect(0, 0, w, h) {
		t.Fatalf("Bounds = %v", img.Bounds())
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := color.NRGBA{R: byte(x + y), G: byte(y), B: byte(x), A: 0xFF}
			if got := img.NRGBAAt(x, y); got != want {
				t.Fatalf("(%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestNewBGRARejectsShortBuffer(t *testing.T) {
	tests := []struct {
		name        string
		n           int
		w, h, pitch uint32
	}{
		{"zero width", 64, 0, 1, 256},
		{"pitch below row", 1024, 4, 1, 8},
		{"short buffer", 256 + 15, 4, 2, 256},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBGRA(make([]byte, tt.n), tt.w, tt.h, tt.pitch); !errors.Is(err, ErrShape) {
				t.Errorf("NewBGRA = %v, want ErrShape", err)
			}
		})
	}
	// The last row needs no padding.
	if _, err := NewBGRA(make([]byte, 256+16), 4, 2, 256); err != nil {
		t.Errorf("NewBGRA without trailing padding: %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": PNG, "PNG": PNG, ".bmp": BMP, "tif": TIFF, "tiff": TIFF}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("jpeg"); !errors.Is(err, ErrFormat) {
		t.Errorf("ParseFormat(jpeg) = %v", err)
	}
}

func TestWriterSave(t *testing.T) {
	const w, h, pitch = 7, 4, 256
	decoders := map[Format]func(f *os.File) (image.Image, error){
		PNG:  func(f *os.File) (image.Image, error) { return png.Decode(f) },
		BMP:  func(f *os.File) (image.Image, error) { return bmp.Decode(f) },
		TIFF: func(f *os.File) (image.Image, error) { return tiff.Decode(f) },
	}
	for format, decode := range decoders {
		t.Run(string(format), func(t *testing.T) {
			wr := Writer{Dir: filepath.Join(t.TempDir(), "dumps"), Format: format}
			path, err := wr.Save("compute-copy", 8, surface(w, h, pitch), w, h, pitch)
			if err != nil {
				t.Fatalf("Save: %v", err)
			}
			if filepath.Base(path) != "compute-copy-g8."+string(format) {
				t.Errorf("path = %s", path)
			}
			f, err := os.Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()
			img, err := decode(f)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			got := color.NRGBAModel.Convert(img.At(3, 2)).(color.NRGBA)
			if want := (color.NRGBA{R: 5, G: 2, B: 3, A: 0xFF}); got != want {
				t.Errorf("pixel (3,2) = %v, want %v", got, want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	if got := (Writer{}).FileName("direct-copy", 0); got != "direct-copy.png" {
		t.Errorf("FileName = %q", got)
	}
}
