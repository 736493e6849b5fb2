// Package simgpu is a simulated HAL device that validates residency states
// and executes the texel-copy work of the copy benchmark on the CPU.
//
// It embeds the hal/noop types for everything it does not model. Textures
// and buffers hold real bytes; command buffers are lists of deferred
// commands executed in order at Queue.Submit, which fails with
// ErrStateMismatch when a barrier names the wrong prior usage or an
// operation finds a texture in an incompatible usage.
//
// Execution is synchronous: Submit returns after the work has run, so
// PollCompleted always equals the last submission index.
//
// Draws rasterize the screen-space bounding box of their vertices, which is
// exact for the axis-aligned full-screen quad, and sample the bound texture
// with nearest filtering. Dispatches do not interpret SPIR-V: every
// invocation of the grid given by the pipeline's workgroup size copies the
// texel at its global id from the sampled input to the storage output.
package simgpu
