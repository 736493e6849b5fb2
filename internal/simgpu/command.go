package simgpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// command is one deferred operation run at submit time.
type command struct {
	name string
	run  func() error
}

// CommandEncoder records deferred commands.
type CommandEncoder struct {
	noop.CommandEncoder
	device    *Device
	label     string
	recording bool
	cmds      []command
}

func (e *CommandEncoder) push(name string, run func() error) {
	e.cmds = append(e.cmds, command{name: name, run: run})
}

// fail records a command that fails at submit with err.
func (e *CommandEncoder) fail(name string, err error) {
	e.push(name, func() error { return err })
}

// BeginEncoding starts recording.
func (e *CommandEncoder) BeginEncoding(label string) error {
	if e.recording {
		return fmt.Errorf("%w: encoder %q already recording", ErrInvalid, e.label)
	}
	if label != "" {
		e.label = label
	}
	e.recording = true
	e.cmds = nil
	return nil
}

// EndEncoding finishes recording.
func (e *CommandEncoder) EndEncoding() (hal.CommandBuffer, error) {
	if !e.recording {
		return nil, fmt.Errorf("%w: encoder %q is not recording", ErrInvalid, e.label)
	}
	e.recording = false
	cb := &CommandBuffer{label: e.label, cmds: e.cmds}
	e.cmds = nil
	return cb, nil
}

// DiscardEncoding drops the recorded commands.
func (e *CommandEncoder) DiscardEncoding() {
	e.recording = false
	e.cmds = nil
}

// TransitionTextures records usage transitions. At submit each barrier's
// old usage must equal the texture's current usage.
func (e *CommandEncoder) TransitionTextures(barriers []hal.TextureBarrier) {
	for _, b := range barriers {
		t, ok := b.Texture.(*Texture)
		if !ok {
			e.fail("transition", fmt.Errorf("%w: foreign texture %T", ErrInvalid, b.Texture))
			continue
		}
		old, next := b.Usage.OldUsage, b.Usage.NewUsage
		e.push("transition", func() error {
			if t.current != old {
				return fmt.Errorf("%w: %q transition from %#x but texture is %#x",
					ErrStateMismatch, t.label, uint64(old), uint64(t.current))
			}
			if next&^t.usage != 0 {
				return fmt.Errorf("%w: %q transition to %#x outside created usage %#x",
					ErrInvalid, t.label, uint64(next), uint64(t.usage))
			}
			t.current = next
			e.device.count(func(s *Stats) { s.Transitions++ })
			return nil
		})
	}
}

// TransitionBuffers is accepted; buffer usage is not state-tracked.
func (e *CommandEncoder) TransitionBuffers([]hal.BufferBarrier) {}

// ClearBuffer records zeroing a buffer range.
func (e *CommandEncoder) ClearBuffer(buffer hal.Buffer, offset, size uint64) {
	b, ok := buffer.(*Buffer)
	if !ok {
		e.fail("clear buffer", fmt.Errorf("%w: foreign buffer %T", ErrInvalid, buffer))
		return
	}
	e.push("clear buffer", func() error {
		if offset+size > uint64(len(b.data)) {
			return fmt.Errorf("%w: clear of %q out of range", ErrInvalid, b.label)
		}
		clear(b.data[offset : offset+size])
		return nil
	})
}

// CopyBufferToBuffer records linear copies.
func (e *CommandEncoder) CopyBufferToBuffer(src, dst hal.Buffer, regions []hal.BufferCopy) {
	s, ok1 := src.(*Buffer)
	d, ok2 := dst.(*Buffer)
	if !ok1 || !ok2 {
		e.fail("copy buffer", fmt.Errorf("%w: foreign buffer", ErrInvalid))
		return
	}
	regions = append([]hal.BufferCopy(nil), regions...)
	e.push("copy buffer", func() error {
		if s.usage&gputypes.BufferUsageCopySrc == 0 || d.usage&gputypes.BufferUsageCopyDst == 0 {
			return fmt.Errorf("%w: copy %q -> %q lacks copy usage", ErrInvalid, s.label, d.label)
		}
		for _, r := range regions {
			if r.SrcOffset+r.Size > uint64(len(s.data)) || r.DstOffset+r.Size > uint64(len(d.data)) {
				return fmt.Errorf("%w: copy %q -> %q out of range", ErrInvalid, s.label, d.label)
			}
			copy(d.data[r.DstOffset:r.DstOffset+r.Size], s.data[r.SrcOffset:r.SrcOffset+r.Size])
		}
		e.device.count(func(st *Stats) { st.Copies++ })
		return nil
	})
}

// CopyBufferToTexture records uploads. The texture must be CopyDst.
func (e *CommandEncoder) CopyBufferToTexture(src hal.Buffer, dst hal.Texture, regions []hal.BufferTextureCopy) {
	b, ok1 := src.(*Buffer)
	t, ok2 := dst.(*Texture)
	if !ok1 || !ok2 {
		e.fail("upload", fmt.Errorf("%w: foreign resource", ErrInvalid))
		return
	}
	regions = append([]hal.BufferTextureCopy(nil), regions...)
	e.push("upload", func() error {
		if err := requireUsage(t, gputypes.TextureUsageCopyDst); err != nil {
			return err
		}
		for _, r := range regions {
			if err := copyRows(b.data, t, r, true); err != nil {
				return err
			}
		}
		e.device.count(func(st *Stats) { st.Copies++ })
		return nil
	})
}

// CopyTextureToBuffer records readbacks. The texture must be CopySrc.
func (e *CommandEncoder) CopyTextureToBuffer(src hal.Texture, dst hal.Buffer, regions []hal.BufferTextureCopy) {
	t, ok1 := src.(*Texture)
	b, ok2 := dst.(*Buffer)
	if !ok1 || !ok2 {
		e.fail("readback", fmt.Errorf("%w: foreign resource", ErrInvalid))
		return
	}
	regions = append([]hal.BufferTextureCopy(nil), regions...)
	e.push("readback", func() error {
		if err := requireUsage(t, gputypes.TextureUsageCopySrc); err != nil {
			return err
		}
		for _, r := range regions {
			if err := copyRows(b.data, t, r, false); err != nil {
				return err
			}
		}
		e.device.count(func(st *Stats) { st.Copies++ })
		return nil
	})
}

// CopyTextureToTexture records texture copies. The source must be CopySrc
// and the destination CopyDst.
func (e *CommandEncoder) CopyTextureToTexture(src, dst hal.Texture, regions []hal.TextureCopy) {
	s, ok1 := src.(*Texture)
	d, ok2 := dst.(*Texture)
	if !ok1 || !ok2 {
		e.fail("copy texture", fmt.Errorf("%w: foreign texture", ErrInvalid))
		return
	}
	regions = append([]hal.TextureCopy(nil), regions...)
	e.push("copy texture", func() error {
		if err := requireUsage(s, gputypes.TextureUsageCopySrc); err != nil {
			return err
		}
		if err := requireUsage(d, gputypes.TextureUsageCopyDst); err != nil {
			return err
		}
		for _, r := range regions {
			so, do, sz := r.SrcBase.Origin, r.DstBase.Origin, r.Size
			if so.X+sz.Width > s.width || so.Y+sz.Height > s.height ||
				do.X+sz.Width > d.width || do.Y+sz.Height > d.height {
				return fmt.Errorf("%w: copy %q -> %q out of range", ErrInvalid, s.label, d.label)
			}
			for y := uint32(0); y < sz.Height; y++ {
				for x := uint32(0); x < sz.Width; x++ {
					copy(d.texel(do.X+x, do.Y+y), s.texel(so.X+x, so.Y+y))
				}
			}
		}
		e.device.count(func(st *Stats) { st.Copies++ })
		return nil
	})
}

// ResolveQuerySet records writing raw timestamps as little-endian uint64s.
func (e *CommandEncoder) ResolveQuerySet(querySet hal.QuerySet, firstQuery, queryCount uint32, destination hal.Buffer, destinationOffset uint64) {
	qs, ok1 := querySet.(*QuerySet)
	b, ok2 := destination.(*Buffer)
	if !ok1 || !ok2 {
		e.fail("resolve queries", fmt.Errorf("%w: foreign resource", ErrInvalid))
		return
	}
	e.push("resolve queries", func() error {
		if b.usage&gputypes.BufferUsageQueryResolve == 0 {
			return fmt.Errorf("%w: %q lacks query resolve usage", ErrInvalid, b.label)
		}
		if int(firstQuery+queryCount) > len(qs.values) || destinationOffset+uint64(queryCount)*8 > uint64(len(b.data)) {
			return fmt.Errorf("%w: query resolve out of range", ErrInvalid)
		}
		for i := uint32(0); i < queryCount; i++ {
			off := destinationOffset + uint64(i)*8
			binary.LittleEndian.PutUint64(b.data[off:off+8], qs.values[firstQuery+i])
		}
		return nil
	})
}

// writeTimestamp records a timestamp into slot idx of qs, if idx is set.
func (e *CommandEncoder) writeTimestamp(qs hal.QuerySet, idx *uint32) {
	if idx == nil {
		return
	}
	q, ok := qs.(*QuerySet)
	if !ok {
		e.fail("timestamp", fmt.Errorf("%w: foreign query set %T", ErrInvalid, qs))
		return
	}
	i := *idx
	e.push("timestamp", func() error {
		if int(i) >= len(q.values) {
			return fmt.Errorf("%w: timestamp index %d of %d", ErrInvalid, i, len(q.values))
		}
		q.values[i] = e.device.ticks()
		return nil
	})
}

// BeginRenderPass begins a render pass over one color attachment.
func (e *CommandEncoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &RenderPassEncoder{enc: e}
	if desc == nil || len(desc.ColorAttachments) != 1 {
		e.fail("render pass", fmt.Errorf("%w: render pass needs one color attachment", ErrUnsupported))
		return p
	}
	ca := desc.ColorAttachments[0]
	v, ok := ca.View.(*TextureView)
	if !ok {
		e.fail("render pass", fmt.Errorf("%w: foreign attachment view %T", ErrInvalid, ca.View))
		return p
	}
	p.target = v.texture
	if tw := desc.TimestampWrites; tw != nil {
		p.timestamps = tw
		e.writeTimestamp(tw.QuerySet, tw.BeginningOfPassWriteIndex)
	}
	target, load, clearValue := v.texture, ca.LoadOp, ca.ClearValue
	e.push("render pass", func() error {
		if err := requireUsage(target, gputypes.TextureUsageRenderAttachment); err != nil {
			return err
		}
		if load == gputypes.LoadOpClear {
			px := [texelBytes]byte{
				unorm(clearValue.B), unorm(clearValue.G), unorm(clearValue.R), unorm(clearValue.A),
			}
			if target.format == gputypes.TextureFormatRGBA8Unorm {
				px[0], px[2] = px[2], px[0]
			}
			for i := 0; i < len(target.data); i += texelBytes {
				copy(target.data[i:i+texelBytes], px[:])
			}
		}
		return nil
	})
	return p
}

// BeginComputePass begins a compute pass.
func (e *CommandEncoder) BeginComputePass(desc *hal.ComputePassDescriptor) hal.ComputePassEncoder {
	p := &ComputePassEncoder{enc: e}
	if desc != nil && desc.TimestampWrites != nil {
		p.timestamps = desc.TimestampWrites
		e.writeTimestamp(desc.TimestampWrites.QuerySet, desc.TimestampWrites.BeginningOfPassWriteIndex)
	}
	return p
}

// RenderPassEncoder records draw state and draws.
type RenderPassEncoder struct {
	noop.RenderPassEncoder
	enc        *CommandEncoder
	target     *Texture
	timestamps *hal.RenderPassTimestampWrites
	state      drawState
}

// End finishes the pass.
func (p *RenderPassEncoder) End() {
	if tw := p.timestamps; tw != nil {
		p.enc.writeTimestamp(tw.QuerySet, tw.EndOfPassWriteIndex)
	}
}

// SetPipeline sets the render pipeline.
func (p *RenderPassEncoder) SetPipeline(pipeline hal.RenderPipeline) {
	p.state.pipeline, _ = pipeline.(*RenderPipeline)
}

// SetBindGroup sets bind group 0; other indices are not modeled.
func (p *RenderPassEncoder) SetBindGroup(index uint32, group hal.BindGroup, _ []uint32) {
	if index != 0 {
		p.enc.fail("set bind group", fmt.Errorf("%w: bind group index %d", ErrUnsupported, index))
		return
	}
	p.state.group, _ = group.(*BindGroup)
}

// SetVertexBuffer sets vertex buffer slot 0.
func (p *RenderPassEncoder) SetVertexBuffer(slot uint32, buffer hal.Buffer, offset uint64) {
	if slot != 0 {
		p.enc.fail("set vertex buffer", fmt.Errorf("%w: vertex buffer slot %d", ErrUnsupported, slot))
		return
	}
	p.state.vertices, _ = buffer.(*Buffer)
	p.state.vertexOffset = offset
}

// SetViewport sets the viewport rectangle; depth is ignored.
func (p *RenderPassEncoder) SetViewport(x, y, width, height, _, _ float32) {
	p.state.viewport = [4]float32{x, y, width, height}
	p.state.hasViewport = true
}

// SetScissorRect sets the scissor rectangle.
func (p *RenderPassEncoder) SetScissorRect(x, y, width, height uint32) {
	p.state.scissor = [4]uint32{x, y, width, height}
	p.state.hasScissor = true
}

// Draw records a draw with the current state.
func (p *RenderPassEncoder) Draw(vertexCount, instanceCount, firstVertex, _ uint32) {
	if p.target == nil || instanceCount == 0 {
		return
	}
	st, target, dev := p.state, p.target, p.enc.device
	p.enc.push("draw", func() error {
		if err := st.draw(target, firstVertex, vertexCount); err != nil {
			return err
		}
		dev.count(func(s *Stats) { s.Draws++ })
		return nil
	})
}

// DrawIndexed is not modeled.
func (p *RenderPassEncoder) DrawIndexed(_, _, _ uint32, _ int32, _ uint32) {
	p.enc.fail("draw indexed", fmt.Errorf("%w: indexed draws", ErrUnsupported))
}

// DrawIndirect is not modeled.
func (p *RenderPassEncoder) DrawIndirect(hal.Buffer, uint64) {
	p.enc.fail("draw indirect", fmt.Errorf("%w: indirect draws", ErrUnsupported))
}

// DrawIndexedIndirect is not modeled.
func (p *RenderPassEncoder) DrawIndexedIndirect(hal.Buffer, uint64) {
	p.enc.fail("draw indexed indirect", fmt.Errorf("%w: indirect draws", ErrUnsupported))
}

// ComputePassEncoder records dispatches.
type ComputePassEncoder struct {
	noop.ComputePassEncoder
	enc        *CommandEncoder
	timestamps *hal.ComputePassTimestampWrites
	pipeline   *ComputePipeline
	group      *BindGroup
}

// End finishes the pass.
func (p *ComputePassEncoder) End() {
	if tw := p.timestamps; tw != nil {
		p.enc.writeTimestamp(tw.QuerySet, tw.EndOfPassWriteIndex)
	}
}

// SetPipeline sets the compute pipeline.
func (p *ComputePassEncoder) SetPipeline(pipeline hal.ComputePipeline) {
	p.pipeline, _ = pipeline.(*ComputePipeline)
}

// SetBindGroup sets bind group 0; other indices are not modeled.
func (p *ComputePassEncoder) SetBindGroup(index uint32, group hal.BindGroup, _ []uint32) {
	if index != 0 {
		p.enc.fail("set bind group", fmt.Errorf("%w: bind group index %d", ErrUnsupported, index))
		return
	}
	p.group, _ = group.(*BindGroup)
}

// Dispatch records a dispatch of x*y*z workgroups.
func (p *ComputePassEncoder) Dispatch(x, y, z uint32) {
	pipeline, group, dev := p.pipeline, p.group, p.enc.device
	p.enc.push("dispatch", func() error {
		if err := dispatch(pipeline, group, [3]uint32{x, y, z}); err != nil {
			return err
		}
		dev.count(func(s *Stats) { s.Dispatches++ })
		return nil
	})
}

// DispatchIndirect is not modeled.
func (p *ComputePassEncoder) DispatchIndirect(hal.Buffer, uint64) {
	p.enc.fail("dispatch indirect", fmt.Errorf("%w: indirect dispatch", ErrUnsupported))
}

func requireUsage(t *Texture, want gputypes.TextureUsage) error {
	if t.current != want {
		return fmt.Errorf("%w: %q is %#x, operation needs %#x",
			ErrStateMismatch, t.label, uint64(t.current), uint64(want))
	}
	return nil
}

func unorm(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return byte(v*255 + 0.5)
	}
}

var (
	_ hal.CommandEncoder     = (*CommandEncoder)(nil)
	_ hal.RenderPassEncoder  = (*RenderPassEncoder)(nil)
	_ hal.ComputePassEncoder = (*ComputePassEncoder)(nil)
)
