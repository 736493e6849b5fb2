package bench

import (
	"bytes"
	"math"
	"testing"
)

func near(got, want float64) bool {
	return math.Abs(got-want) <= 1e-9*math.Max(1, math.Abs(want))
}

func TestAccumulatorOrderInvariant(t *testing.T) {
	samples := []uint64{7, 1_000_003, 2, 999, 1 << 40, 3, 5}
	var fwd, rev Accumulator
	for i := range samples {
		fwd.Add(samples[i])
		rev.Add(samples[len(samples)-1-i])
	}
	if fwd.MeanTicks() != rev.MeanTicks() || fwd.Total() != rev.Total() {
		t.Errorf("forward %v/%d, reverse %v/%d", fwd.MeanTicks(), fwd.Total(), rev.MeanTicks(), rev.Total())
	}

	var res Result
	fwd.Fill(&res, 1e9)
	if res.Iterations != len(samples) {
		t.Errorf("Iterations = %d", res.Iterations)
	}
	if !near(res.MinMicroseconds, 2e-3) {
		t.Errorf("MinMicroseconds = %v", res.MinMicroseconds)
	}
	if want := float64(1<<40) / 1e3; !near(res.MaxMicroseconds, want) {
		t.Errorf("MaxMicroseconds = %v, want %v", res.MaxMicroseconds, want)
	}
}

func TestAccumulatorMean(t *testing.T) {
	var a Accumulator
	if !math.IsNaN(a.MeanTicks()) {
		t.Errorf("empty mean = %v, want NaN", a.MeanTicks())
	}
	for _, v := range []uint64{100, 200, 300} {
		a.Add(v)
	}
	if a.Count() != 3 || a.MeanTicks() != 200 {
		t.Errorf("Count %d, mean %v", a.Count(), a.MeanTicks())
	}
	var res Result
	a.Fill(&res, 1e6)
	if !near(res.AvgMicroseconds, 200) {
		t.Errorf("AvgMicroseconds = %v, want 200", res.AvgMicroseconds)
	}
}

func TestGradientFill(t *testing.T) {
	const w, h = 3, 2
	fill := GradientFill(w, h)
	if len(fill) != int(SurfaceSize(w, h)) {
		t.Fatalf("len = %d", len(fill))
	}
	pitch := int(RowPitch(w))
	want := []byte{1, 1, 1, 1}
	if got := fill[pitch+0*BytesPerPixel : pitch+BytesPerPixel]; !bytes.Equal(got, want) {
		t.Errorf("texel (0,1) = %v, want %v", got, want)
	}
	if fill[w*BytesPerPixel] != 0 {
		t.Error("row padding is not zero")
	}
}

func TestRandomFillDeterministic(t *testing.T) {
	a := RandomFill(17, 5, 42)
	b := RandomFill(17, 5, 42)
	c := RandomFill(17, 5, 43)
	if !bytes.Equal(a, b) {
		t.Error("same seed produced different fills")
	}
	if bytes.Equal(a, c) {
		t.Error("different seeds produced the same fill")
	}
	if CountMismatches(a, c, 17, 5) == 0 {
		t.Error("CountMismatches found no difference")
	}
}

func TestCountMismatchesIgnoresPadding(t *testing.T) {
	const w, h = 2, 2
	a := GradientFill(w, h)
	b := append([]byte(nil), a...)
	b[w*BytesPerPixel] = 0xff // padding of row 0
	if n := CountMismatches(a, b, w, h); n != 0 {
		t.Errorf("padding difference counted: %d", n)
	}
	b[int(RowPitch(w))+BytesPerPixel+2] ^= 1 // texel (1,1)
	if n := CountMismatches(a, b, w, h); n != 1 {
		t.Errorf("CountMismatches = %d, want 1", n)
	}
}
