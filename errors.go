package copybench

import (
	"errors"

	"github.com/gogpu/copybench/internal/adapter"
	"github.com/gogpu/copybench/internal/bench"
)

// Failure kinds returned by Run. Every one of them aborts the run; no
// partial results are returned.
var (
	ErrAllocationFailure   = bench.ErrAllocationFailure
	ErrCompileFailure      = bench.ErrCompileFailure
	ErrSubmissionFailure   = bench.ErrSubmissionFailure
	ErrSyncTimeout         = bench.ErrSyncTimeout
	ErrTransitionImbalance = bench.ErrTransitionImbalance
	ErrInvalidTimestamp    = bench.ErrInvalidTimestamp
	ErrTimerInUse          = bench.ErrTimerInUse

	ErrNoAdapter      = adapter.ErrNoAdapter
	ErrFeatureMissing = adapter.ErrFeatureMissing
	ErrUnknownBackend = adapter.ErrUnknownBackend
)

// ErrInvalidOptions is returned when Run is given an unusable configuration.
var ErrInvalidOptions = errors.New("copybench: invalid options")

// CompileError carries the shader compiler's diagnostic. It matches
// ErrCompileFailure.
type CompileError = bench.CompileError
