package bench

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultGroupSizes are the thread-group extents benchmarked by default.
var DefaultGroupSizes = []int{1, 2, 4, 8, 16}

// ComputeCopy dispatches one invocation per texel; each invocation loads
// the input texel and stores it unchanged at the same coordinate of the
// output. Variants differ only in group size.
type ComputeCopy struct {
	groupSize int
	shader    Bytecode
}

// NewComputeCopy returns the compute-copy variant for groupSize, built from
// shader, whose workgroup size must be groupSize x groupSize x 1.
func NewComputeCopy(groupSize int, shader Bytecode) *ComputeCopy {
	return &ComputeCopy{groupSize: groupSize, shader: shader}
}

// Name implements Strategy.
func (*ComputeCopy) Name() string { return "compute-copy" }

// GroupSize implements Strategy.
func (c *ComputeCopy) GroupSize() int { return c.groupSize }

// Description implements Strategy.
func (c *ComputeCopy) Description() string {
	return fmt.Sprintf("compute shader copy (group %d)", c.groupSize)
}

// SteadyStateOf implements Strategy.
func (*ComputeCopy) SteadyStateOf(Role) State { return StateShaderRead }

// Setup implements Strategy.
func (c *ComputeCopy) Setup(res *Resources, p SetupParams) (*StrategyContext, error) {
	if c.groupSize <= 0 {
		return nil, fmt.Errorf("bench: %s: group size %d", c.Name(), c.groupSize)
	}
	g := uint32(c.groupSize)
	if p.Width%g != 0 || p.Height%g != 0 {
		return nil, fmt.Errorf("bench: %s: group size %d does not divide %dx%d", c.Name(), g, p.Width, p.Height)
	}
	sc, err := setupSurfaces(res, c, p,
		gputypes.TextureUsageTextureBinding,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageStorageBinding)
	if err != nil {
		return nil, err
	}
	label := fmt.Sprintf("%s_g%d", c.Name(), c.groupSize)
	cp, err := res.BuildComputePipeline(label, c.shader, SurfaceFormat)
	if err != nil {
		return nil, err
	}
	views, err := res.BuildViewTable(label+"_views", cp.BindLayout,
		ViewSlot{View: sc.Source.View()},
		ViewSlot{View: sc.Dest.View()},
	)
	if err != nil {
		return nil, err
	}
	sc.Compute = cp
	sc.Views = views
	return sc, nil
}

// RecordCopy implements Strategy.
func (c *ComputeCopy) RecordCopy(rec *Recorder, sc *StrategyContext, timer *Timer) error {
	if err := rec.Expect(sc.Source, StateShaderRead); err != nil {
		return err
	}
	if err := rec.Transition(sc.Dest, StateReadWrite); err != nil {
		return err
	}
	if err := timer.StartTiming(rec); err != nil {
		return err
	}

	g := uint32(c.groupSize)
	pass := rec.Encoder().BeginComputePass(&hal.ComputePassDescriptor{Label: c.Description()})
	pass.SetPipeline(sc.Compute.Pipeline)
	pass.SetBindGroup(0, sc.Views.Group(), nil)
	pass.Dispatch(sc.Width/g, sc.Height/g, 1)
	pass.End()

	if err := timer.EndTiming(rec); err != nil {
		return err
	}
	return rec.TransitionOut(sc.Dest, sc.Readback, c.SteadyStateOf(RoleDest))
}
