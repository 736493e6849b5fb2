package copybench

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/copybench/internal/report"
)

func TestRunSimAllStrategies(t *testing.T) {
	var sink report.Collector
	results, err := Run(context.Background(),
		WithBackend("sim"),
		WithSize(32, 32),
		WithIterations(3),
		WithVerify(true),
		WithSink(&sink),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// pixel-blit, five compute variants, direct-copy.
	if len(results) != 7 {
		t.Fatalf("got %d results", len(results))
	}
	wantGroups := []int{0, 1, 2, 4, 8, 16, 0}
	for i, r := range results {
		if r.GroupSize != wantGroups[i] {
			t.Errorf("result %d: group %d, want %d", i, r.GroupSize, wantGroups[i])
		}
		if r.Iterations != 3 || r.Width != 32 || r.Height != 32 {
			t.Errorf("%s: %+v", r.Strategy, r)
		}
		if !r.Verified || r.Mismatches != 0 {
			t.Errorf("%s g%d: verified %v, %d mismatches", r.Strategy, r.GroupSize, r.Verified, r.Mismatches)
		}
		if r.AvgMicroseconds < 0 || r.MinMicroseconds > r.MaxMicroseconds {
			t.Errorf("%s: avg %v min %v max %v", r.Strategy, r.AvgMicroseconds, r.MinMicroseconds, r.MaxMicroseconds)
		}
	}
	if results[0].Strategy != string(PixelBlit) || results[6].Strategy != string(DirectCopy) {
		t.Errorf("order: %s ... %s", results[0].Strategy, results[6].Strategy)
	}
	if len(sink.Results) != len(results) {
		t.Errorf("sink got %d results", len(sink.Results))
	}
}

func TestRunRandomFillVerifies(t *testing.T) {
	results, err := Run(context.Background(),
		WithBackend("sim"),
		WithSize(24, 8),
		WithIterations(1),
		WithStrategies(ComputeCopy, DirectCopy),
		WithGroupSizes(4, 8),
		WithFill(FillRandom),
		WithSeed(99),
		WithVerify(true),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, r := range results {
		if r.Mismatches != 0 {
			t.Errorf("%s g%d: %d mismatches", r.Strategy, r.GroupSize, r.Mismatches)
		}
	}
}

func TestRunDumps(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	_, err := Run(context.Background(),
		WithBackend("sim"),
		WithSize(8, 8),
		WithIterations(1),
		WithStrategies(DirectCopy, ComputeCopy),
		WithGroupSizes(8),
		WithDumpDir(dir),
		WithDumpFormat("bmp"),
	)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, name := range []string{"source.bmp", "direct-copy.bmp", "compute-copy-g8.bmp"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("dump %s: %v", name, err)
			continue
		}
		if !bytes.HasPrefix(data, []byte("BM")) {
			t.Errorf("%s is not a BMP", name)
		}
	}
	src, _ := os.ReadFile(filepath.Join(dir, "source.bmp"))
	out, _ := os.ReadFile(filepath.Join(dir, "direct-copy.bmp"))
	if !bytes.Equal(src, out) {
		t.Error("direct-copy readback differs from the saved source")
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want error
	}{
		{"invalid options", []Option{WithIterations(-1)}, ErrInvalidOptions},
		{"out of memory", []Option{WithSimConfig(SimConfig{MemoryBudget: 1024})}, ErrAllocationFailure},
		{"device lost", []Option{WithSimConfig(SimConfig{FailSubmitAfter: 4})}, ErrSubmissionFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{
				WithBackend("sim"),
				WithSize(16, 16),
				WithIterations(5),
				WithStrategies(DirectCopy),
			}, tt.opts...)
			results, err := Run(context.Background(), opts...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Run = %v, want %v", err, tt.want)
			}
			if results != nil {
				t.Errorf("partial results returned: %v", results)
			}
		})
	}
}

func TestCompileConvertsShaderErrors(t *testing.T) {
	_, err := buildStrategies(options{strategies: []Strategy{ComputeCopy}, groupSizes: []int{0}})
	if !errors.Is(err, ErrCompileFailure) {
		t.Fatalf("buildStrategies = %v, want ErrCompileFailure", err)
	}
	var ce *CompileError
	if !errors.As(err, &ce) || ce.Diagnostic == "" {
		t.Errorf("CompileError = %+v", ce)
	}
}

func TestRunRejectsOversizedSurface(t *testing.T) {
	res, err := Run(context.Background(),
		WithBackend("sim"),
		WithSize(1<<30, 1),
		WithIterations(1),
		WithStrategies(DirectCopy),
	)
	if !errors.Is(err, ErrInvalidOptions) {
		t.Fatalf("Run = %v, want ErrInvalidOptions", err)
	}
	if res != nil {
		t.Errorf("results = %v, want nil", res)
	}
}
