package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/copybench/internal/bench"
)

func sampleResults() []bench.Result {
	return []bench.Result{
		{Strategy: "direct-copy", Width: 1024, Height: 1024, Iterations: 16384, AvgMicroseconds: 10, MinMicroseconds: 9, MaxMicroseconds: 12, Verified: true},
		{Strategy: "compute-copy", GroupSize: 8, Width: 1024, Height: 1024, Iterations: 16384, AvgMicroseconds: 25, MinMicroseconds: 20, MaxMicroseconds: 31.5},
		{Strategy: "pixel-blit", Width: 1024, Height: 1024, Iterations: 16384, AvgMicroseconds: 1500, Verified: true, Mismatches: 3},
	}
}

func TestGenerate(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, Printer("en"), sampleResults()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Surface: 1024 x 1024 BGRA8",
		"| compute-copy (g8) | 1024x1024 | 16,384 | 25.0 |",
		"2.50x",
		"150.00x",
		"1,500.0",
		"| ok |",
		"3 texels differ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateLocale(t *testing.T) {
	var buf bytes.Buffer
	if err := Generate(&buf, Printer("de"), sampleResults()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(buf.String(), "16.384") {
		t.Errorf("German grouping missing:\n%s", buf.String())
	}
}

func TestGenerateEmpty(t *testing.T) {
	if err := Generate(&bytes.Buffer{}, nil, nil); !errors.Is(err, ErrNoResults) {
		t.Errorf("Generate(nil) = %v, want ErrNoResults", err)
	}
}

func TestGenerateJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateJSON(&buf, sampleResults()); err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 3 || decoded[1]["group_size"] != float64(8) {
		t.Errorf("decoded = %v", decoded)
	}
	if _, ok := decoded[0]["group_size"]; ok {
		t.Error("group_size present for a strategy without groups")
	}
}

func TestLine(t *testing.T) {
	got := Line(Printer("en"), sampleResults()[1])
	want := "compute-copy (g8) (1024 x 1024): 25.0 usec avg over 16,384 iterations"
	if got != want {
		t.Errorf("Line = %q, want %q", got, want)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	sink.Emit(sampleResults()[1])
	out := buf.String()
	for _, want := range []string{"strategy=compute-copy", "group_size=8", "avg_us=25", "iterations=16384"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}

func TestCollector(t *testing.T) {
	var c Collector
	for _, r := range sampleResults() {
		c.Emit(r)
	}
	if len(c.Results) != 3 || c.Results[2].Strategy != "pixel-blit" {
		t.Errorf("Results = %+v", c.Results)
	}
}
