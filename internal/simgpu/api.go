package simgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// AdapterName is the name the simulated adapter reports.
const AdapterName = "Simulated GPU"

// API is a hal.Backend whose single adapter opens simulated devices. It is
// not registered with the hal registry; callers hold it explicitly.
type API struct {
	Config Config
}

// Variant reports BackendEmpty.
func (API) Variant() gputypes.Backend { return gputypes.BackendEmpty }

// CreateInstance returns an instance exposing one simulated adapter.
func (a API) CreateInstance(*hal.InstanceDescriptor) (hal.Instance, error) {
	return &Instance{cfg: a.Config}, nil
}

// Instance enumerates the simulated adapter.
type Instance struct {
	noop.Instance
	cfg Config
}

// CreateSurface fails; the simulator has no presentation.
func (i *Instance) CreateSurface(_, _ uintptr) (hal.Surface, error) {
	return nil, fmt.Errorf("%w: surfaces", ErrUnsupported)
}

// EnumerateAdapters returns the simulated adapter.
func (i *Instance) EnumerateAdapters(hal.Surface) []hal.ExposedAdapter {
	var features gputypes.Features
	features.Insert(gputypes.FeatureTimestampQuery)
	features.Insert(gputypes.FeatureBGRA8UnormStorage)
	return []hal.ExposedAdapter{{
		Adapter: &Adapter{cfg: i.cfg},
		Info: gputypes.AdapterInfo{
			Name:       AdapterName,
			Vendor:     "copybench",
			DeviceType: gputypes.DeviceTypeDiscreteGPU,
			Driver:     "simgpu",
			DriverInfo: "CPU execution with usage state validation",
			Backend:    gputypes.BackendEmpty,
		},
		Features: features,
		Capabilities: hal.Capabilities{
			Limits: gputypes.DefaultLimits(),
			AlignmentsMask: hal.Alignments{
				BufferCopyOffset: 4,
				BufferCopyPitch:  256,
			},
		},
	}}
}

// Adapter opens simulated devices.
type Adapter struct {
	noop.Adapter
	cfg Config
}

// Open returns a fresh simulated device and queue.
func (a *Adapter) Open(gputypes.Features, gputypes.Limits) (hal.OpenDevice, error) {
	d, q := New(a.cfg)
	slogger().Debug("simgpu: device opened", "budget", a.cfg.MemoryBudget, "view_stride", d.ViewStride())
	return hal.OpenDevice{Device: d, Queue: q}, nil
}

// TextureFormatCapabilities reports the formats CreateTexture accepts.
func (a *Adapter) TextureFormatCapabilities(format gputypes.TextureFormat) hal.TextureFormatCapabilities {
	switch format {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatRGBA8Unorm:
		return hal.TextureFormatCapabilities{
			Flags: hal.TextureFormatCapabilitySampled |
				hal.TextureFormatCapabilityStorage |
				hal.TextureFormatCapabilityRenderAttachment,
		}
	}
	return hal.TextureFormatCapabilities{}
}

var (
	_ hal.Backend  = API{}
	_ hal.Instance = (*Instance)(nil)
	_ hal.Adapter  = (*Adapter)(nil)
)
