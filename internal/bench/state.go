package bench

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// State is the residency state of a texture: the mode the device requires it
// to be in for a given operation. Each state maps onto exactly one HAL
// texture usage bit, which is what TransitionTextures consumes.
type State int

const (
	// StateUndefined is the state of a freshly allocated texture whose
	// contents have never been defined.
	StateUndefined State = iota

	// StateRenderTarget allows the texture to be a color attachment.
	StateRenderTarget

	// StateShaderRead allows sampling or loading from a shader.
	StateShaderRead

	// StateReadWrite allows storage writes from a compute shader.
	StateReadWrite

	// StateCopySource allows the texture to be read by copy commands.
	StateCopySource

	// StateCopyDest allows the texture to be written by copy commands.
	StateCopyDest
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateUndefined:
		return "Undefined"
	case StateRenderTarget:
		return "RenderTarget"
	case StateShaderRead:
		return "ShaderRead"
	case StateReadWrite:
		return "ReadWrite"
	case StateCopySource:
		return "CopySource"
	case StateCopyDest:
		return "CopyDest"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Usage returns the HAL texture usage that represents this state.
func (s State) Usage() gputypes.TextureUsage {
	switch s {
	case StateRenderTarget:
		return gputypes.TextureUsageRenderAttachment
	case StateShaderRead:
		return gputypes.TextureUsageTextureBinding
	case StateReadWrite:
		return gputypes.TextureUsageStorageBinding
	case StateCopySource:
		return gputypes.TextureUsageCopySrc
	case StateCopyDest:
		return gputypes.TextureUsageCopyDst
	default:
		return gputypes.TextureUsageNone
	}
}

// StateFromUsage is the inverse of State.Usage. Usages that combine several
// bits, or that have no residency meaning, report ok == false.
func StateFromUsage(u gputypes.TextureUsage) (State, bool) {
	switch u {
	case gputypes.TextureUsageNone:
		return StateUndefined, true
	case gputypes.TextureUsageRenderAttachment:
		return StateRenderTarget, true
	case gputypes.TextureUsageTextureBinding:
		return StateShaderRead, true
	case gputypes.TextureUsageStorageBinding:
		return StateReadWrite, true
	case gputypes.TextureUsageCopySrc:
		return StateCopySource, true
	case gputypes.TextureUsageCopyDst:
		return StateCopyDest, true
	default:
		return StateUndefined, false
	}
}
