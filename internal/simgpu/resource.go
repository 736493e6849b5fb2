package simgpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Buffer is a linear allocation backed by a byte slice.
type Buffer struct {
	noop.Resource
	handle uintptr
	label  string
	usage  gputypes.BufferUsage
	data   []byte
	mapped bool
}

// NativeHandle returns the device-unique handle of the buffer.
func (b *Buffer) NativeHandle() uintptr { return b.handle }

// Texture is a 2D texture with tightly packed 4-byte texels and a tracked
// current usage.
type Texture struct {
	noop.Resource
	handle  uintptr
	label   string
	width   uint32
	height  uint32
	format  gputypes.TextureFormat
	usage   gputypes.TextureUsage
	current gputypes.TextureUsage
	data    []byte
	pending int
}

// NativeHandle returns the device-unique handle of the texture.
func (t *Texture) NativeHandle() uintptr { return t.handle }

// CurrentUsage returns the usage the texture was last transitioned into.
// A fresh texture reports TextureUsageNone.
func (t *Texture) CurrentUsage() gputypes.TextureUsage { return t.current }

// AddPendingRef implements hal.Texture.
func (t *Texture) AddPendingRef() { t.pending++ }

// DecPendingRef implements hal.Texture.
func (t *Texture) DecPendingRef() { t.pending-- }

// Pixels returns a copy of the texel data, width*4 bytes per row.
func (t *Texture) Pixels() []byte { return append([]byte(nil), t.data...) }

func (t *Texture) texel(x, y uint32) []byte {
	off := (y*t.width + x) * texelBytes
	return t.data[off : off+texelBytes]
}

// TextureView is a view of a whole texture.
type TextureView struct {
	noop.Resource
	handle  uintptr
	texture *Texture
}

// NativeHandle returns the device-unique handle of the view.
func (v *TextureView) NativeHandle() uintptr { return v.handle }

// Sampler records the filter used when sampling.
type Sampler struct {
	noop.Resource
	handle  uintptr
	nearest bool
}

// NativeHandle returns the device-unique handle of the sampler.
func (s *Sampler) NativeHandle() uintptr { return s.handle }

// BindGroupLayout keeps its entries so bind groups can be validated.
type BindGroupLayout struct {
	noop.Resource
	entries map[uint32]gputypes.BindGroupLayoutEntry
}

// binding is one resolved bind group entry.
type binding struct {
	layout  gputypes.BindGroupLayoutEntry
	view    *TextureView
	sampler *Sampler
	buffer  *Buffer
}

// BindGroup holds resolved resources by binding number.
type BindGroup struct {
	noop.Resource
	bindings map[uint32]binding
}

// sampled returns the first sampled texture and sampler of the group.
func (g *BindGroup) sampled() (*TextureView, *Sampler) {
	var view *TextureView
	var samp *Sampler
	for _, b := range g.bindings {
		switch {
		case b.layout.Texture != nil && b.view != nil:
			view = b.view
		case b.sampler != nil:
			samp = b.sampler
		}
	}
	return view, samp
}

// storage returns the first storage texture of the group.
func (g *BindGroup) storage() *TextureView {
	for _, b := range g.bindings {
		if b.layout.StorageTexture != nil && b.view != nil {
			return b.view
		}
	}
	return nil
}

// ShaderModule keeps the entry points reflected from its SPIR-V.
type ShaderModule struct {
	noop.Resource
	label   string
	entries map[string]entryInfo
}

type entryInfo struct {
	stage     gputypes.ShaderStage
	localSize [3]uint32
}

// RenderPipeline is a validated render pipeline.
type RenderPipeline struct {
	noop.Resource
	label  string
	format gputypes.TextureFormat
}

// ComputePipeline is a validated compute pipeline with its workgroup size.
type ComputePipeline struct {
	noop.Resource
	label     string
	localSize [3]uint32
}

// QuerySet holds raw timestamp values.
type QuerySet struct {
	noop.Resource
	values []uint64
}

// CommandBuffer is a finished list of deferred commands.
type CommandBuffer struct {
	noop.Resource
	label string
	cmds  []command
}

var (
	_ hal.Buffer          = (*Buffer)(nil)
	_ hal.Texture         = (*Texture)(nil)
	_ hal.TextureView     = (*TextureView)(nil)
	_ hal.Sampler         = (*Sampler)(nil)
	_ hal.BindGroupLayout = (*BindGroupLayout)(nil)
	_ hal.BindGroup       = (*BindGroup)(nil)
	_ hal.ShaderModule    = (*ShaderModule)(nil)
	_ hal.RenderPipeline  = (*RenderPipeline)(nil)
	_ hal.ComputePipeline = (*ComputePipeline)(nil)
	_ hal.QuerySet        = (*QuerySet)(nil)
	_ hal.CommandBuffer   = (*CommandBuffer)(nil)
)
