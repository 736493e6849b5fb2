package bench

import (
	"errors"
	"fmt"
)

// Failure kinds. Every one of them is fatal to a benchmark run: a partially
// completed measurement cannot produce a trustworthy average.
var (
	// ErrAllocationFailure is returned when a texture or buffer cannot be
	// created, including requests with a zero size or dimension.
	ErrAllocationFailure = errors.New("bench: allocation failure")

	// ErrCompileFailure is returned when shader bytecode is rejected or a
	// pipeline object cannot be built from it.
	ErrCompileFailure = errors.New("bench: compile failure")

	// ErrSubmissionFailure is returned when the queue rejects a command
	// stream or the device fails while executing it.
	ErrSubmissionFailure = errors.New("bench: submission failure")

	// ErrSyncTimeout is reserved for a bounded-wait mode. Waits are
	// unconditional, so the driver never returns it today.
	ErrSyncTimeout = errors.New("bench: sync timeout")

	// ErrTransitionImbalance is returned when an iteration leaves a texture
	// outside its steady state, or a transition names the wrong prior state.
	ErrTransitionImbalance = errors.New("bench: transition imbalance")

	// ErrInvalidTimestamp is returned when a timer sample ends before it starts.
	ErrInvalidTimestamp = errors.New("bench: invalid timestamp")

	// ErrTimerInUse is returned when StartTiming is called while a
	// measurement is already open.
	ErrTimerInUse = errors.New("bench: timer already measuring")

	// ErrTimerNotStarted is returned when EndTiming has no matching StartTiming.
	ErrTimerNotStarted = errors.New("bench: timer not started")

	// ErrRecorderState is returned when a recorder operation is invalid for
	// the recorder's current state.
	ErrRecorderState = errors.New("bench: recorder in wrong state")
)

// CompileError carries the diagnostic produced by the shader compiler or the
// device when a shader or pipeline is rejected.
type CompileError struct {
	// Stage names the shader stage or pipeline that failed.
	Stage string
	// Diagnostic is the compiler's text, verbatim.
	Diagnostic string
	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Diagnostic == "" {
		return fmt.Sprintf("bench: compile failure (%s)", e.Stage)
	}
	return fmt.Sprintf("bench: compile failure (%s): %s", e.Stage, e.Diagnostic)
}

// Unwrap lets errors.Is match both ErrCompileFailure and the cause.
func (e *CompileError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCompileFailure}
	}
	return []error{ErrCompileFailure, e.Err}
}

// allocFailure wraps cause under ErrAllocationFailure with a description.
func allocFailure(what string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrAllocationFailure, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrAllocationFailure, what, cause)
}

// submitFailure wraps cause under ErrSubmissionFailure with a description.
func submitFailure(what string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrSubmissionFailure, what)
	}
	return fmt.Errorf("%w: %s: %w", ErrSubmissionFailure, what, cause)
}
