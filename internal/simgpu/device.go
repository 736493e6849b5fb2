package simgpu

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/copybench/internal/shaders"
)

const texelBytes = 4

// DefaultViewStride is the view table slot size reported when Config leaves
// it unset.
const DefaultViewStride = 32

// Errors returned by the simulated device.
var (
	// ErrStateMismatch is returned by Submit when a command finds a texture
	// in a usage other than the one it requires.
	ErrStateMismatch = errors.New("simgpu: texture usage state mismatch")

	// ErrUnsupported is returned for descriptors and commands the simulator
	// does not model.
	ErrUnsupported = errors.New("simgpu: unsupported")

	// ErrInvalid is returned for malformed descriptors and commands.
	ErrInvalid = errors.New("simgpu: invalid")
)

// Config tunes the simulated device.
type Config struct {
	// MemoryBudget caps the bytes of live textures and buffers. Zero means
	// unlimited. Exceeding it fails creation with hal.ErrDeviceOutOfMemory.
	MemoryBudget uint64

	// FailSubmitAfter makes every submission after the first N fail with
	// hal.ErrDeviceLost. Zero disables it.
	FailSubmitAfter int

	// ViewStride is reported by Device.ViewStride. Zero means DefaultViewStride.
	ViewStride uint32

	// TimestampPeriod is nanoseconds per timestamp tick. Zero means 1.
	TimestampPeriod float32
}

// Stats counts device activity.
type Stats struct {
	Submissions  int
	Transitions  int
	Copies       int
	Draws        int
	Dispatches   int
	LiveTextures int
	LiveBuffers  int
	LiveBytes    uint64
}

// Device is the simulated hal.Device.
type Device struct {
	noop.Device

	cfg   Config
	start time.Time

	mu         sync.Mutex
	nextHandle uintptr
	handles    map[uintptr]any
	stats      Stats
}

// New returns a simulated device and its queue.
func New(cfg Config) (*Device, *Queue) {
	if cfg.ViewStride == 0 {
		cfg.ViewStride = DefaultViewStride
	}
	if cfg.TimestampPeriod <= 0 {
		cfg.TimestampPeriod = 1
	}
	d := &Device{
		cfg:     cfg,
		start:   time.Now(),
		handles: make(map[uintptr]any),
	}
	return d, &Queue{device: d}
}

// ViewStride returns the distance between view table slots.
func (d *Device) ViewStride() uint32 { return d.cfg.ViewStride }

// Stats returns a snapshot of the activity counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// ticks returns the current timestamp in ticks.
func (d *Device) ticks() uint64 {
	ns := float64(time.Since(d.start).Nanoseconds())
	return uint64(ns / float64(d.cfg.TimestampPeriod))
}

func (d *Device) register(v any) uintptr {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextHandle++
	d.handles[d.nextHandle] = v
	return d.nextHandle
}

func (d *Device) unregister(h uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handles, h)
}

func (d *Device) lookup(h uintptr) any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handles[h]
}

// reserve accounts size bytes against the memory budget.
func (d *Device) reserve(size uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg.MemoryBudget > 0 && d.stats.LiveBytes+size > d.cfg.MemoryBudget {
		return fmt.Errorf("simgpu: %d bytes over budget of %d: %w",
			d.stats.LiveBytes+size-d.cfg.MemoryBudget, d.cfg.MemoryBudget, hal.ErrDeviceOutOfMemory)
	}
	d.stats.LiveBytes += size
	return nil
}

func (d *Device) count(f func(s *Stats)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f(&d.stats)
}

// CreateBuffer creates a buffer backed by a byte slice.
func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	if desc == nil || desc.Size == 0 {
		return nil, fmt.Errorf("%w: zero-size buffer", ErrInvalid)
	}
	if err := d.reserve(desc.Size); err != nil {
		return nil, err
	}
	b := &Buffer{label: desc.Label, usage: desc.Usage, data: make([]byte, desc.Size)}
	b.handle = d.register(b)
	d.count(func(s *Stats) { s.LiveBuffers++ })
	return b, nil
}

// DestroyBuffer releases a buffer.
func (d *Device) DestroyBuffer(buffer hal.Buffer) {
	b, ok := buffer.(*Buffer)
	if !ok || b.data == nil {
		return
	}
	d.unregister(b.handle)
	size := uint64(len(b.data))
	b.data = nil
	d.count(func(s *Stats) {
		s.LiveBuffers--
		s.LiveBytes -= size
	})
}

// MapBuffer maps a MapRead or MapWrite buffer.
func (d *Device) MapBuffer(buffer hal.Buffer, offset, size uint64) (hal.BufferMapping, error) {
	b, ok := buffer.(*Buffer)
	if !ok || b.data == nil {
		return hal.BufferMapping{}, hal.ErrInvalidMapRange
	}
	if b.usage&(gputypes.BufferUsageMapRead|gputypes.BufferUsageMapWrite) == 0 {
		return hal.BufferMapping{}, hal.ErrInvalidMapRange
	}
	if size == 0 || offset+size > uint64(len(b.data)) {
		return hal.BufferMapping{}, hal.ErrInvalidMapRange
	}
	b.mapped = true
	return hal.BufferMapping{Ptr: unsafe.Pointer(&b.data[offset]), IsCoherent: true}, nil
}

// UnmapBuffer ends a mapping.
func (d *Device) UnmapBuffer(buffer hal.Buffer) error {
	b, ok := buffer.(*Buffer)
	if !ok || !b.mapped {
		return fmt.Errorf("%w: unmap of a buffer that is not mapped", ErrInvalid)
	}
	b.mapped = false
	return nil
}

// CreateTexture creates a 2D texture of a 4-byte color format.
func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if desc == nil || desc.Size.Width == 0 || desc.Size.Height == 0 {
		return nil, fmt.Errorf("%w: zero-size texture", ErrInvalid)
	}
	if desc.Dimension != gputypes.TextureDimension2D || desc.Size.DepthOrArrayLayers > 1 || desc.MipLevelCount > 1 || desc.SampleCount > 1 {
		return nil, fmt.Errorf("%w: texture %q is not a single-sample 2D texture", ErrUnsupported, desc.Label)
	}
	switch desc.Format {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm:
	default:
		return nil, fmt.Errorf("%w: texture format %v", ErrUnsupported, desc.Format)
	}
	size := uint64(desc.Size.Width) * uint64(desc.Size.Height) * texelBytes
	if err := d.reserve(size); err != nil {
		return nil, err
	}
	t := &Texture{
		label:  desc.Label,
		width:  desc.Size.Width,
		height: desc.Size.Height,
		format: desc.Format,
		usage:  desc.Usage,
		data:   make([]byte, size),
	}
	t.handle = d.register(t)
	d.count(func(s *Stats) { s.LiveTextures++ })
	return t, nil
}

// DestroyTexture releases a texture.
func (d *Device) DestroyTexture(texture hal.Texture) {
	t, ok := texture.(*Texture)
	if !ok || t.data == nil {
		return
	}
	d.unregister(t.handle)
	size := uint64(len(t.data))
	t.data = nil
	d.count(func(s *Stats) {
		s.LiveTextures--
		s.LiveBytes -= size
	})
}

// CreateTextureView creates a whole-texture view.
func (d *Device) CreateTextureView(texture hal.Texture, _ *hal.TextureViewDescriptor) (hal.TextureView, error) {
	t, ok := texture.(*Texture)
	if !ok {
		return nil, fmt.Errorf("%w: view of foreign texture %T", ErrInvalid, texture)
	}
	v := &TextureView{texture: t}
	v.handle = d.register(v)
	return v, nil
}

// DestroyTextureView releases a view.
func (d *Device) DestroyTextureView(view hal.TextureView) {
	if v, ok := view.(*TextureView); ok {
		d.unregister(v.handle)
	}
}

// CreateSampler creates a sampler. Only nearest filtering is executed.
func (d *Device) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil sampler descriptor", ErrInvalid)
	}
	s := &Sampler{
		nearest: desc.MagFilter == gputypes.FilterModeNearest && desc.MinFilter == gputypes.FilterModeNearest,
	}
	s.handle = d.register(s)
	return s, nil
}

// DestroySampler releases a sampler.
func (d *Device) DestroySampler(sampler hal.Sampler) {
	if s, ok := sampler.(*Sampler); ok {
		d.unregister(s.handle)
	}
}

// CreateBindGroupLayout records the layout entries.
func (d *Device) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil bind group layout descriptor", ErrInvalid)
	}
	l := &BindGroupLayout{entries: make(map[uint32]gputypes.BindGroupLayoutEntry, len(desc.Entries))}
	for _, e := range desc.Entries {
		if _, dup := l.entries[e.Binding]; dup {
			return nil, fmt.Errorf("%w: duplicate binding %d in %q", ErrInvalid, e.Binding, desc.Label)
		}
		l.entries[e.Binding] = e
	}
	return l, nil
}

// CreateBindGroup resolves handles and checks them against the layout.
func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil bind group descriptor", ErrInvalid)
	}
	layout, ok := desc.Layout.(*BindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("%w: bind group %q has foreign layout %T", ErrInvalid, desc.Label, desc.Layout)
	}
	g := &BindGroup{bindings: make(map[uint32]binding, len(desc.Entries))}
	for _, e := range desc.Entries {
		le, ok := layout.entries[e.Binding]
		if !ok {
			return nil, fmt.Errorf("%w: bind group %q binding %d not in layout", ErrInvalid, desc.Label, e.Binding)
		}
		b := binding{layout: le}
		switch r := e.Resource.(type) {
		case gputypes.TextureViewBinding:
			v, ok := d.lookup(r.TextureView).(*TextureView)
			if !ok || (le.Texture == nil && le.StorageTexture == nil) {
				return nil, fmt.Errorf("%w: bind group %q binding %d: texture view mismatch", ErrInvalid, desc.Label, e.Binding)
			}
			b.view = v
		case gputypes.SamplerBinding:
			s, ok := d.lookup(r.Sampler).(*Sampler)
			if !ok || le.Sampler == nil {
				return nil, fmt.Errorf("%w: bind group %q binding %d: sampler mismatch", ErrInvalid, desc.Label, e.Binding)
			}
			b.sampler = s
		case gputypes.BufferBinding:
			buf, ok := d.lookup(r.Buffer).(*Buffer)
			if !ok || le.Buffer == nil {
				return nil, fmt.Errorf("%w: bind group %q binding %d: buffer mismatch", ErrInvalid, desc.Label, e.Binding)
			}
			b.buffer = buf
		default:
			return nil, fmt.Errorf("%w: bind group %q binding %d: resource %T", ErrUnsupported, desc.Label, e.Binding, e.Resource)
		}
		g.bindings[e.Binding] = b
	}
	if len(g.bindings) != len(layout.entries) {
		return nil, fmt.Errorf("%w: bind group %q fills %d of %d bindings", ErrInvalid, desc.Label, len(g.bindings), len(layout.entries))
	}
	return g, nil
}

// CreateShaderModule reflects the entry points of SPIR-V source. WGSL
// source is not accepted.
func (d *Device) CreateShaderModule(desc *hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	if desc == nil || len(desc.Source.SPIRV) == 0 {
		return nil, fmt.Errorf("%w: shader module without SPIR-V", ErrUnsupported)
	}
	eps, err := shaders.EntryPoints(desc.Source.SPIRV)
	if err != nil {
		return nil, fmt.Errorf("simgpu: shader module %q: %w", desc.Label, err)
	}
	m := &ShaderModule{label: desc.Label, entries: make(map[string]entryInfo, len(eps))}
	for _, ep := range eps {
		m.entries[ep.Name] = entryInfo{stage: ep.Stage, localSize: ep.LocalSize}
	}
	return m, nil
}

func entry(mod hal.ShaderModule, name string, stage gputypes.ShaderStage) (entryInfo, error) {
	m, ok := mod.(*ShaderModule)
	if !ok {
		return entryInfo{}, fmt.Errorf("%w: foreign shader module %T", ErrInvalid, mod)
	}
	info, ok := m.entries[name]
	if !ok || info.stage != stage {
		return entryInfo{}, fmt.Errorf("%w: module %q has no %s entry point %q",
			ErrInvalid, m.label, shaders.StageName(stage), name)
	}
	return info, nil
}

// CreateRenderPipeline checks the vertex and fragment entry points.
func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if desc == nil || desc.Fragment == nil || len(desc.Fragment.Targets) != 1 {
		return nil, fmt.Errorf("%w: render pipeline needs one fragment target", ErrUnsupported)
	}
	if _, err := entry(desc.Vertex.Module, desc.Vertex.EntryPoint, gputypes.ShaderStageVertex); err != nil {
		return nil, err
	}
	if _, err := entry(desc.Fragment.Module, desc.Fragment.EntryPoint, gputypes.ShaderStageFragment); err != nil {
		return nil, err
	}
	return &RenderPipeline{label: desc.Label, format: desc.Fragment.Targets[0].Format}, nil
}

// CreateComputePipeline checks the entry point and records its workgroup size.
func (d *Device) CreateComputePipeline(desc *hal.ComputePipelineDescriptor) (hal.ComputePipeline, error) {
	if desc == nil {
		return nil, fmt.Errorf("%w: nil compute pipeline descriptor", ErrInvalid)
	}
	info, err := entry(desc.Compute.Module, desc.Compute.EntryPoint, gputypes.ShaderStageCompute)
	if err != nil {
		return nil, err
	}
	for _, n := range info.localSize {
		if n == 0 {
			return nil, fmt.Errorf("%w: compute pipeline %q has workgroup size %v", ErrInvalid, desc.Label, info.localSize)
		}
	}
	return &ComputePipeline{label: desc.Label, localSize: info.localSize}, nil
}

// CreateQuerySet creates a timestamp query set.
func (d *Device) CreateQuerySet(desc *hal.QuerySetDescriptor) (hal.QuerySet, error) {
	if desc == nil || desc.Type != hal.QueryTypeTimestamp {
		return nil, fmt.Errorf("%w: only timestamp queries", ErrUnsupported)
	}
	if desc.Count == 0 {
		return nil, fmt.Errorf("%w: empty query set", ErrInvalid)
	}
	return &QuerySet{values: make([]uint64, desc.Count)}, nil
}

// CreateCommandEncoder returns a recording encoder.
func (d *Device) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	label := ""
	if desc != nil {
		label = desc.Label
	}
	return &CommandEncoder{device: d, label: label}, nil
}

// FreeCommandBuffer drops a command buffer's commands.
func (d *Device) FreeCommandBuffer(cmdBuffer hal.CommandBuffer) {
	if cb, ok := cmdBuffer.(*CommandBuffer); ok {
		cb.cmds = nil
	}
}

var _ hal.Device = (*Device)(nil)
