// Package report formats copy benchmark results: one log line per strategy
// while the run progresses, and a markdown table or JSON document at the end.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/copybench/internal/bench"
)

// ErrNoResults is returned when there is nothing to report.
var ErrNoResults = errors.New("report: no results to report")

// Label is the display name of a result: the strategy, plus the group size
// for dispatch variants.
func Label(r bench.Result) string {
	if r.GroupSize > 0 {
		return fmt.Sprintf("%s (g%d)", r.Strategy, r.GroupSize)
	}
	return r.Strategy
}

// Line is the one-line summary of a result.
func Line(p *message.Printer, r bench.Result) string {
	return p.Sprintf("%s (%s): %.1f usec avg over %d iterations",
		Label(r), size(r, " x "), r.AvgMicroseconds, r.Iterations)
}

// LogSink writes every result as one structured Info record.
type LogSink struct {
	Logger *slog.Logger
}

// Emit logs r.
func (s LogSink) Emit(r bench.Result) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	attrs := []slog.Attr{
		slog.String("strategy", r.Strategy),
		slog.Uint64("width", uint64(r.Width)),
		slog.Uint64("height", uint64(r.Height)),
		slog.Float64("avg_us", r.AvgMicroseconds),
		slog.Int("iterations", r.Iterations),
	}
	if r.GroupSize > 0 {
		attrs = append(attrs, slog.Int("group_size", r.GroupSize))
	}
	if r.Verified {
		attrs = append(attrs, slog.Int("mismatches", r.Mismatches))
	}
	l.LogAttrs(context.Background(), slog.LevelInfo, "copybench: result", attrs...)
}

// Collector keeps every emitted result in order.
type Collector struct {
	Results []bench.Result
}

// Emit appends r.
func (c *Collector) Emit(r bench.Result) { c.Results = append(c.Results, r) }

// Printer returns a number printer for lang. An unparsable tag falls back
// to English.
func Printer(lang string) *message.Printer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag)
}

// Generate writes a markdown comparison table for results. Numbers are
// formatted for p's locale; a nil p formats for English.
func Generate(w io.Writer, p *message.Printer, results []bench.Result) error {
	if len(results) == 0 {
		return ErrNoResults
	}
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	fastest := findFastest(results)

	p.Fprintln(w, "## Copy Benchmark Results")
	p.Fprintln(w)
	if r := results[0]; sameSize(results) {
		p.Fprintf(w, "Surface: %s BGRA8\n\n", size(r, " x "))
	}

	p.Fprintln(w, "| Strategy | Size | Iterations | Avg (us) | Min (us) | Max (us) | Relative | Verify |")
	p.Fprintln(w, "|----------|------|------------|----------|----------|----------|----------|--------|")
	for _, r := range results {
		rel := "-"
		if fastest > 0 && r.AvgMicroseconds > 0 {
			rel = p.Sprintf("%.2fx", r.AvgMicroseconds/fastest)
		}
		p.Fprintf(w, "| %s | %s | %d | %.1f | %.1f | %.1f | %s | %s |\n",
			Label(r), size(r, "x"), r.Iterations,
			r.AvgMicroseconds, r.MinMicroseconds, r.MaxMicroseconds,
			rel, verdict(p, r))
	}
	return nil
}

// GenerateJSON writes results as indented JSON to w.
func GenerateJSON(w io.Writer, results []bench.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// size prints dimensions without digit grouping.
func size(r bench.Result, sep string) string {
	return fmt.Sprintf("%d%s%d", r.Width, sep, r.Height)
}

func verdict(p *message.Printer, r bench.Result) string {
	switch {
	case !r.Verified:
		return "-"
	case r.Mismatches == 0:
		return "ok"
	default:
		return p.Sprintf("%d texels differ", r.Mismatches)
	}
}

func sameSize(results []bench.Result) bool {
	for _, r := range results[1:] {
		if r.Width != results[0].Width || r.Height != results[0].Height {
			return false
		}
	}
	return true
}

func findFastest(results []bench.Result) float64 {
	fastest := math.Inf(1)
	for _, r := range results {
		if r.AvgMicroseconds > 0 && r.AvgMicroseconds < fastest {
			fastest = r.AvgMicroseconds
		}
	}
	if math.IsInf(fastest, 1) {
		return 0
	}
	return fastest
}
