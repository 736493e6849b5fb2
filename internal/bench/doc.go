// Package bench is the copy benchmark engine.
//
// A Strategy transforms a source texture into a destination texture of the
// same size and format. Every texture has a steady state, the residency
// state it occupies before the first iteration and after every iteration.
// A Driver sets a strategy up once through Resources, which own every
// texture, buffer, pipeline and view table it creates, and then runs
// iterations one at a time:
//
//	Idle -> Recording -> Submitted -> WaitingOnCompletion -> Idle
//
// Each iteration records pre-transitions, the copy bracketed by a Timer,
// the transition-out readback and the return to the steady state. It is
// submitted, waited on with no timeout and collected before the next one is
// recorded, so every timer sample covers exactly one copy.
//
// Residency states map onto single gputypes.TextureUsage bits; a transition
// is a hal texture barrier from one bit to another.
//
// Every error is fatal to a run. Failures are classified by
// ErrAllocationFailure, ErrCompileFailure, ErrSubmissionFailure and the
// protocol errors declared alongside them.
package bench
