package bench

import "github.com/gogpu/gputypes"

// DirectCopy copies the whole source resource into the destination with a
// single copy command. No shader is involved.
type DirectCopy struct{}

// NewDirectCopy returns the direct-copy strategy.
func NewDirectCopy() *DirectCopy { return &DirectCopy{} }

// Name implements Strategy.
func (*DirectCopy) Name() string { return "direct-copy" }

// GroupSize implements Strategy.
func (*DirectCopy) GroupSize() int { return 0 }

// Description implements Strategy.
func (*DirectCopy) Description() string { return "direct copy" }

// SteadyStateOf implements Strategy.
func (*DirectCopy) SteadyStateOf(role Role) State {
	if role == RoleSource {
		return StateCopySource
	}
	return StateCopyDest
}

// Setup implements Strategy.
func (d *DirectCopy) Setup(res *Resources, p SetupParams) (*StrategyContext, error) {
	return setupSurfaces(res, d, p, gputypes.TextureUsageCopySrc, gputypes.TextureUsageCopyDst)
}

// RecordCopy implements Strategy.
func (d *DirectCopy) RecordCopy(rec *Recorder, sc *StrategyContext, timer *Timer) error {
	if err := timer.StartTiming(rec); err != nil {
		return err
	}
	if err := rec.CopyTexture(sc.Source, sc.Dest); err != nil {
		return err
	}
	if err := timer.EndTiming(rec); err != nil {
		return err
	}
	return rec.TransitionOut(sc.Dest, sc.Readback, d.SteadyStateOf(RoleDest))
}
