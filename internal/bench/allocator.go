package bench

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BytesPerPixel is the size of one BGRA8 texel.
const BytesPerPixel = 4

// RowPitchAlignment is the row alignment required for buffer-texture copies.
const RowPitchAlignment = 256

// MaxDimension is the largest surface width or height accepted. It matches
// the maxTextureDimension2D every supported backend guarantees and keeps
// RowPitch within uint32.
const MaxDimension = 16384

// RowPitch returns the aligned number of bytes per row for a surface of the
// given width.
func RowPitch(width uint32) uint32 {
	unaligned := width * BytesPerPixel
	return (unaligned + RowPitchAlignment - 1) &^ (RowPitchAlignment - 1)
}

// SurfaceSize returns the buffer size needed to hold a full surface with
// aligned rows.
func SurfaceSize(width, height uint32) uint64 {
	return uint64(RowPitch(width)) * uint64(height)
}

// Texture is a device-local 2D texture together with its default view and
// the residency state it was last recorded into.
type Texture struct {
	raw  hal.Texture
	view hal.TextureView

	label  string
	width  uint32
	height uint32
	format gputypes.TextureFormat
	usage  gputypes.TextureUsage

	state State
}

// Width returns the texture width in texels.
func (t *Texture) Width() uint32 { return t.width }

// Height returns the texture height in texels.
func (t *Texture) Height() uint32 { return t.height }

// Format returns the pixel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Label returns the debug label.
func (t *Texture) Label() string { return t.label }

// State returns the residency state the texture was last recorded into.
func (t *Texture) State() State { return t.state }

// Raw returns the underlying HAL texture.
func (t *Texture) Raw() hal.Texture { return t.raw }

// View returns the default view.
func (t *Texture) View() hal.TextureView { return t.view }

// BufferKind says which side of the bus can touch a buffer.
type BufferKind int

const (
	// BufferUpload is written by the CPU and read by the device.
	BufferUpload BufferKind = iota
	// BufferReadback is written by the device and read by the CPU.
	BufferReadback
	// BufferDevice is device-local and not mappable.
	BufferDevice
)

// String returns the string representation of BufferKind.
func (k BufferKind) String() string {
	switch k {
	case BufferUpload:
		return "Upload"
	case BufferReadback:
		return "Readback"
	case BufferDevice:
		return "Device"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// Buffer is a linear allocation.
type Buffer struct {
	raw   hal.Buffer
	label string
	size  uint64
	kind  BufferKind

	device hal.Device
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Kind returns the host visibility of the buffer.
func (b *Buffer) Kind() BufferKind { return b.kind }

// Raw returns the underlying HAL buffer.
func (b *Buffer) Raw() hal.Buffer { return b.raw }

// Write maps an upload buffer, copies data to its start, and unmaps it.
func (b *Buffer) Write(data []byte) error {
	if b.kind != BufferUpload {
		return fmt.Errorf("bench: write to %s buffer %q", b.kind, b.label)
	}
	if uint64(len(data)) > b.size {
		return fmt.Errorf("bench: write of %d bytes to %d-byte buffer %q", len(data), b.size, b.label)
	}
	if len(data) == 0 {
		return nil
	}
	m, err := b.device.MapBuffer(b.raw, 0, uint64(len(data)))
	if err != nil {
		return fmt.Errorf("bench: map %q: %w", b.label, err)
	}
	copy(unsafe.Slice((*byte)(m.Ptr), len(data)), data)
	if err := b.device.UnmapBuffer(b.raw); err != nil {
		return fmt.Errorf("bench: unmap %q: %w", b.label, err)
	}
	return nil
}

// ReadInto maps a host-visible buffer, copies len(dst) bytes from its start
// into dst, and unmaps it. The device must not be writing the buffer.
func (b *Buffer) ReadInto(dst []byte) error {
	if b.kind == BufferDevice {
		return fmt.Errorf("bench: read from %s buffer %q", b.kind, b.label)
	}
	if uint64(len(dst)) > b.size {
		return fmt.Errorf("bench: read of %d bytes from %d-byte buffer %q", len(dst), b.size, b.label)
	}
	if len(dst) == 0 {
		return nil
	}
	m, err := b.device.MapBuffer(b.raw, 0, uint64(len(dst)))
	if err != nil {
		return fmt.Errorf("bench: map %q: %w", b.label, err)
	}
	copy(dst, unsafe.Slice((*byte)(m.Ptr), len(dst)))
	if err := b.device.UnmapBuffer(b.raw); err != nil {
		return fmt.Errorf("bench: unmap %q: %w", b.label, err)
	}
	return nil
}

// Bytes returns a copy of the whole buffer.
func (b *Buffer) Bytes() ([]byte, error) {
	out := make([]byte, b.size)
	if err := b.ReadInto(out); err != nil {
		return nil, err
	}
	return out, nil
}

// Resources is a scoped allocator. Every object it creates is released by
// Release, newest first. A strategy owns one Resources for its lifetime.
type Resources struct {
	ctx *Context
	scope
}

// NewResources returns an allocator whose objects are released by Release,
// or by the context's Close if Release is never reached.
func (c *Context) NewResources() *Resources {
	r := &Resources{ctx: c}
	c.own(r.Release)
	return r
}

// Context returns the owning context.
func (r *Resources) Context() *Context { return r.ctx }

// Release waits for the device and destroys everything r created.
func (r *Resources) Release() {
	if len(r.releases) == 0 {
		return
	}
	if err := r.ctx.device.WaitIdle(); err != nil {
		slogger().Warn("bench: wait idle before release", "err", err)
	}
	r.close()
}

// AllocateDeviceTexture creates a device-local 2D texture and its default
// view, then moves it from Undefined into initial in its own submission.
//
// usage must contain the usage bit of initial and of every state the
// texture will be transitioned into.
func (r *Resources) AllocateDeviceTexture(label string, width, height uint32, format gputypes.TextureFormat, usage gputypes.TextureUsage, initial State) (*Texture, error) {
	if width == 0 || height == 0 {
		return nil, allocFailure(fmt.Sprintf("texture %q: zero dimension %dx%d", label, width, height), nil)
	}
	if width > MaxDimension || height > MaxDimension {
		return nil, allocFailure(fmt.Sprintf("texture %q: %dx%d exceeds %d", label, width, height, MaxDimension), nil)
	}
	if want := initial.Usage(); usage&want != want {
		return nil, allocFailure(fmt.Sprintf("texture %q: usage %#x lacks initial state %s", label, uint64(usage), initial), nil)
	}

	d := r.ctx.device
	raw, err := d.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, allocFailure(fmt.Sprintf("texture %q", label), err)
	}
	r.own(func() { d.DestroyTexture(raw) })

	view, err := d.CreateTextureView(raw, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil, allocFailure(fmt.Sprintf("texture view %q", label), err)
	}
	r.own(func() { d.DestroyTextureView(view) })

	tex := &Texture{
		raw:    raw,
		view:   view,
		label:  label,
		width:  width,
		height: height,
		format: format,
		usage:  usage,
		state:  StateUndefined,
	}
	if initial != StateUndefined {
		err := r.ctx.Immediate(label+"_init", func(rec *Recorder) error {
			return rec.Transition(tex, initial)
		})
		if err != nil {
			return nil, err
		}
	}
	slogger().Debug("bench: texture allocated",
		"label", label, "width", width, "height", height, "state", initial)
	return tex, nil
}

// AllocateUploadBuffer creates a CPU-writable buffer the device copies from.
func (r *Resources) AllocateUploadBuffer(label string, size uint64) (*Buffer, error) {
	return r.allocateBuffer(label, size, BufferUpload,
		gputypes.BufferUsageMapWrite|gputypes.BufferUsageCopySrc)
}

// AllocateReadbackBuffer creates a device-writable buffer the CPU reads from.
func (r *Resources) AllocateReadbackBuffer(label string, size uint64) (*Buffer, error) {
	return r.allocateBuffer(label, size, BufferReadback,
		gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
}

// AllocateVertexBuffer creates a device-local vertex buffer holding data,
// filled through a temporary upload buffer in its own submission.
func (r *Resources) AllocateVertexBuffer(label string, data []byte) (*Buffer, error) {
	vb, err := r.allocateBuffer(label, uint64(len(data)), BufferDevice,
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, err
	}

	staging := &Resources{ctx: r.ctx}
	defer staging.Release()
	up, err := staging.AllocateUploadBuffer(label+"_upload", uint64(len(data)))
	if err != nil {
		return nil, err
	}
	if err := up.Write(data); err != nil {
		return nil, allocFailure(fmt.Sprintf("fill %q", label), err)
	}
	err = r.ctx.Immediate(label+"_upload", func(rec *Recorder) error {
		return rec.CopyBuffer(up, vb, uint64(len(data)))
	})
	if err != nil {
		return nil, err
	}
	return vb, nil
}

func (r *Resources) allocateBuffer(label string, size uint64, kind BufferKind, usage gputypes.BufferUsage) (*Buffer, error) {
	if size == 0 {
		return nil, allocFailure(fmt.Sprintf("%s buffer %q: zero size", kind, label), nil)
	}
	d := r.ctx.device
	raw, err := d.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, allocFailure(fmt.Sprintf("%s buffer %q (%d bytes)", kind, label, size), err)
	}
	r.own(func() { d.DestroyBuffer(raw) })
	slogger().Debug("bench: buffer allocated", "label", label, "kind", kind, "size", size)
	return &Buffer{raw: raw, label: label, size: size, kind: kind, device: d}, nil
}

// CreatePointSampler creates a nearest-neighbor sampler with repeat addressing.
func (r *Resources) CreatePointSampler(label string) (hal.Sampler, error) {
	d := r.ctx.device
	s, err := d.CreateSampler(&hal.SamplerDescriptor{
		Label:        label,
		AddressModeU: gputypes.AddressModeRepeat,
		AddressModeV: gputypes.AddressModeRepeat,
		AddressModeW: gputypes.AddressModeRepeat,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	})
	if err != nil {
		return nil, allocFailure(fmt.Sprintf("sampler %q", label), err)
	}
	r.own(func() { d.DestroySampler(s) })
	return s, nil
}
