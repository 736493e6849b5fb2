package copybench

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/copybench/internal/adapter"
	"github.com/gogpu/copybench/internal/bench"
	"github.com/gogpu/copybench/internal/simgpu"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for copybench, its internal packages and
// the wgpu HAL. By default nothing is logged. Pass nil to restore silence.
//
// Levels used:
//   - [slog.LevelDebug]: one line per iteration, resource and pipeline creation
//   - [slog.LevelInfo]: adapter selected, one summary per strategy
//   - [slog.LevelWarn]: skipped adapters, release errors, failed submissions
//
// Example:
//
//	copybench.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	bench.SetLogger(l)
	simgpu.SetLogger(l)
	adapter.SetLogger(l)
}

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
