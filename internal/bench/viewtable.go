package bench

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ViewSlot is one entry of a view table: either a texture view or a sampler.
type ViewSlot struct {
	View    hal.TextureView
	Sampler hal.Sampler
}

// ViewTable is the shader-visible table of views a strategy binds every
// iteration. Slot i lives at Offset(i) = base + i*stride and is bound at
// binding number i of bind group 0. Immutable once built.
type ViewTable struct {
	group  hal.BindGroup
	base   uint64
	stride uint32
	slots  int
}

// BuildViewTable creates the bind group for layout holding slots in order.
func (r *Resources) BuildViewTable(label string, layout hal.BindGroupLayout, slots ...ViewSlot) (*ViewTable, error) {
	if len(slots) == 0 {
		return nil, allocFailure(fmt.Sprintf("view table %q: no slots", label), nil)
	}
	entries := make([]gputypes.BindGroupEntry, len(slots))
	for i, s := range slots {
		entries[i].Binding = uint32(i)
		switch {
		case s.View != nil:
			entries[i].Resource = gputypes.TextureViewBinding{TextureView: s.View.NativeHandle()}
		case s.Sampler != nil:
			entries[i].Resource = gputypes.SamplerBinding{Sampler: s.Sampler.NativeHandle()}
		default:
			return nil, allocFailure(fmt.Sprintf("view table %q: slot %d is empty", label, i), nil)
		}
	}

	d := r.ctx.device
	group, err := d.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, allocFailure(fmt.Sprintf("view table %q", label), err)
	}
	r.own(func() { d.DestroyBindGroup(group) })

	stride := r.ctx.viewStride
	vt := &ViewTable{
		group:  group,
		base:   r.ctx.nextViewBase,
		stride: stride,
		slots:  len(slots),
	}
	r.ctx.nextViewBase += uint64(len(slots)) * uint64(stride)
	return vt, nil
}

// Group returns the bind group to set at index 0.
func (t *ViewTable) Group() hal.BindGroup { return t.group }

// Len returns the number of slots.
func (t *ViewTable) Len() int { return t.slots }

// Base returns the offset of slot 0.
func (t *ViewTable) Base() uint64 { return t.base }

// Offset returns the table offset of slot.
func (t *ViewTable) Offset(slot int) uint64 {
	return t.base + uint64(slot)*uint64(t.stride)
}
