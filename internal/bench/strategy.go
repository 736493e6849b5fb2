package bench

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// SurfaceFormat is the fixed pixel format of every benchmarked texture.
const SurfaceFormat = gputypes.TextureFormatBGRA8Unorm

// Role identifies a texture inside a strategy.
type Role int

const (
	// RoleSource is the texture copied from.
	RoleSource Role = iota
	// RoleDest is the texture copied into.
	RoleDest
)

// String returns the string representation of Role.
func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleDest:
		return "dest"
	default:
		return fmt.Sprintf("Unknown(%d)", int(r))
	}
}

// Strategy is one way of transforming a source texture into a destination
// texture of identical size and format.
type Strategy interface {
	// Name is the strategy identifier, e.g. "compute-copy".
	Name() string

	// GroupSize is the per-thread-group extent, or 0 when not applicable.
	GroupSize() int

	// Description is the human-readable name used in per-iteration logs.
	Description() string

	// Setup allocates and builds everything the strategy reuses across
	// iterations. All objects are owned by res.
	Setup(res *Resources, p SetupParams) (*StrategyContext, error)

	// RecordCopy records one iteration: pre-transitions, the timed
	// operation bracketed by timer, and the transition-out readback.
	RecordCopy(rec *Recorder, sc *StrategyContext, timer *Timer) error

	// SteadyStateOf returns the state role must occupy before and after
	// every iteration.
	SteadyStateOf(role Role) State
}

// SetupParams is the input shared by every strategy's Setup.
type SetupParams struct {
	Width  uint32
	Height uint32

	// Fill is the source image with RowPitch(Width) bytes per row.
	Fill []byte
}

// StrategyContext holds the per-strategy objects reused by every iteration.
// Pipelines, layouts and the view table are never mutated after Setup.
type StrategyContext struct {
	Width  uint32
	Height uint32

	Source *Texture
	Dest   *Texture

	// Upload holds the source fill; Readback receives the destination
	// surface every iteration.
	Upload   *Buffer
	Readback *Buffer

	Views    *ViewTable
	Graphics *GraphicsPipeline
	Compute  *ComputePipeline
	Quad     *Buffer
}

// Texture returns the texture playing role.
func (sc *StrategyContext) Texture(role Role) *Texture {
	if role == RoleSource {
		return sc.Source
	}
	return sc.Dest
}

// CheckSteady returns ErrTransitionImbalance unless every texture of sc is
// in the steady state s declares for it.
func CheckSteady(s Strategy, sc *StrategyContext) error {
	for _, role := range []Role{RoleSource, RoleDest} {
		tex := sc.Texture(role)
		if want := s.SteadyStateOf(role); tex.State() != want {
			return fmt.Errorf("%w: %s %s %q is %s, steady state is %s",
				ErrTransitionImbalance, s.Name(), role, tex.Label(), tex.State(), want)
		}
	}
	return nil
}

// setupSurfaces allocates the source and destination textures in their
// steady states, the upload and readback buffers, and uploads the fill into
// the source in its own submission.
func setupSurfaces(res *Resources, s Strategy, p SetupParams, srcUsage, dstUsage gputypes.TextureUsage) (*StrategyContext, error) {
	if p.Width == 0 || p.Height == 0 {
		return nil, allocFailure(fmt.Sprintf("%s: zero surface %dx%d", s.Name(), p.Width, p.Height), nil)
	}
	size := SurfaceSize(p.Width, p.Height)
	if uint64(len(p.Fill)) != size {
		return nil, fmt.Errorf("bench: %s: fill is %d bytes, surface needs %d", s.Name(), len(p.Fill), size)
	}

	label := s.Name()
	srcSteady := s.SteadyStateOf(RoleSource)
	dstSteady := s.SteadyStateOf(RoleDest)

	src, err := res.AllocateDeviceTexture(label+"_src", p.Width, p.Height, SurfaceFormat,
		srcUsage|gputypes.TextureUsageCopyDst, srcSteady)
	if err != nil {
		return nil, err
	}
	dst, err := res.AllocateDeviceTexture(label+"_dst", p.Width, p.Height, SurfaceFormat,
		dstUsage|gputypes.TextureUsageCopySrc, dstSteady)
	if err != nil {
		return nil, err
	}
	upload, err := res.AllocateUploadBuffer(label+"_upload", size)
	if err != nil {
		return nil, err
	}
	readback, err := res.AllocateReadbackBuffer(label+"_readback", size)
	if err != nil {
		return nil, err
	}

	if err := upload.Write(p.Fill); err != nil {
		return nil, allocFailure(label+"_upload", err)
	}
	err = res.ctx.Immediate(label+"_upload", func(rec *Recorder) error {
		if err := rec.Transition(src, StateCopyDest); err != nil {
			return err
		}
		if err := rec.UploadSurface(upload, src); err != nil {
			return err
		}
		return rec.Transition(src, srcSteady)
	})
	if err != nil {
		return nil, err
	}

	return &StrategyContext{
		Width:    p.Width,
		Height:   p.Height,
		Source:   src,
		Dest:     dst,
		Upload:   upload,
		Readback: readback,
	}, nil
}
