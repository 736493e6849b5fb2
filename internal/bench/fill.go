package bench

import (
	"bytes"
	"math/rand/v2"
)

// GradientFill returns a surface whose every channel of texel (x, y) is
// (x+y) mod 256. Rows are RowPitch(width) bytes; padding is zero.
func GradientFill(width, height uint32) []byte {
	pitch := RowPitch(width)
	out := make([]byte, int(pitch)*int(height))
	for y := uint32(0); y < height; y++ {
		row := out[y*pitch:]
		for x := uint32(0); x < width; x++ {
			v := byte(x + y)
			px := row[x*BytesPerPixel : x*BytesPerPixel+BytesPerPixel]
			px[0], px[1], px[2], px[3] = v, v, v, v
		}
	}
	return out
}

// RandomFill returns a surface of pseudo-random texels determined by seed.
// Rows are RowPitch(width) bytes; padding is zero.
func RandomFill(width, height uint32, seed uint64) []byte {
	pitch := RowPitch(width)
	out := make([]byte, int(pitch)*int(height))
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rowBytes := width * BytesPerPixel
	for y := uint32(0); y < height; y++ {
		row := out[y*pitch : y*pitch+rowBytes]
		for i := 0; i < len(row); i += 8 {
			v := rng.Uint64()
			for j := 0; j < 8 && i+j < len(row); j++ {
				row[i+j] = byte(v >> (8 * j))
			}
		}
	}
	return out
}

// CountMismatches returns the number of texels that differ between two
// pitched surfaces. Row padding is ignored.
func CountMismatches(want, got []byte, width, height uint32) int {
	pitch := int(RowPitch(width))
	rowBytes := int(width) * BytesPerPixel
	n := 0
	for y := 0; y < int(height); y++ {
		off := y * pitch
		if off+rowBytes > len(want) || off+rowBytes > len(got) {
			n += int(width)
			continue
		}
		a, b := want[off:off+rowBytes], got[off:off+rowBytes]
		if bytes.Equal(a, b) {
			continue
		}
		for x := 0; x < rowBytes; x += BytesPerPixel {
			if !bytes.Equal(a[x:x+BytesPerPixel], b[x:x+BytesPerPixel]) {
				n++
			}
		}
	}
	return n
}
