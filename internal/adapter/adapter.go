// Package adapter discovers HAL backends, picks the adapter a benchmark runs
// on, and opens its device.
//
// Selection ranks adapters by device type (discrete, integrated, virtual,
// software, other) and keeps enumeration order within a rank. Vendors are
// never preferred or excluded. Adapters lacking a required feature are
// skipped with a warning.
package adapter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	// Registers every HAL backend available on this platform.
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/copybench/internal/simgpu"
)

// Backend names accepted by Resolve.
const (
	BackendAuto     = "auto"
	BackendVulkan   = "vulkan"
	BackendMetal    = "metal"
	BackendDX12     = "dx12"
	BackendGL       = "gl"
	BackendSoftware = "software"
	BackendSim      = "sim"
)

// Names lists every backend name Resolve accepts.
var Names = []string{BackendAuto, BackendVulkan, BackendMetal, BackendDX12, BackendGL, BackendSoftware, BackendSim}

var (
	// ErrUnknownBackend is returned for a backend name Resolve does not know.
	ErrUnknownBackend = errors.New("adapter: unknown backend")

	// ErrNoAdapter is returned when no backend exposes a usable adapter.
	ErrNoAdapter = errors.New("adapter: no suitable adapter")

	// ErrFeatureMissing is returned when adapters exist but none supports
	// every required feature.
	ErrFeatureMissing = errors.New("adapter: required feature missing")
)

// Required are the features every benchmark device must support: timestamp
// queries for the timer and BGRA8 storage for the compute copy.
var Required = []gputypes.Feature{
	gputypes.FeatureTimestampQuery,
	gputypes.FeatureBGRA8UnormStorage,
}

// auto is the probe order of "auto". Software comes last; it registers as
// BackendEmpty.
var auto = []string{BackendVulkan, BackendMetal, BackendDX12, BackendGL, BackendSoftware}

// Source is one backend to enumerate.
type Source struct {
	Name    string
	Backend hal.Backend
}

// Resolve maps a backend name to the backends it enumerates. "auto" yields
// every registered hardware or software backend; "sim" yields the simulated
// device configured by sim.
func Resolve(name string, sim simgpu.Config) ([]Source, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", BackendAuto:
		var out []Source
		for _, n := range auto {
			if b, ok := registered(n); ok {
				out = append(out, Source{Name: n, Backend: b})
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: no HAL backend registered", ErrNoAdapter)
		}
		return out, nil
	case BackendSim:
		return []Source{{Name: BackendSim, Backend: simgpu.API{Config: sim}}}, nil
	}
	if _, known := variant(name); !known {
		return nil, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownBackend, name, strings.Join(Names, ", "))
	}
	b, ok := registered(name)
	if !ok {
		return nil, fmt.Errorf("%w: backend %s is not available on this platform", ErrNoAdapter, name)
	}
	return []Source{{Name: name, Backend: b}}, nil
}

func variant(name string) (gputypes.Backend, bool) {
	switch name {
	case BackendVulkan:
		return gputypes.BackendVulkan, true
	case BackendMetal:
		return gputypes.BackendMetal, true
	case BackendDX12:
		return gputypes.BackendDX12, true
	case BackendGL:
		return gputypes.BackendGL, true
	case BackendSoftware:
		return gputypes.BackendEmpty, true
	}
	return 0, false
}

func registered(name string) (hal.Backend, bool) {
	v, ok := variant(name)
	if !ok {
		return nil, false
	}
	b, ok := hal.GetBackend(v)
	if !ok {
		return nil, false
	}
	// hal/noop shares the software variant and executes nothing.
	if _, isNoop := b.(noop.API); isNoop {
		return nil, false
	}
	return b, true
}

// Candidate is one enumerated adapter.
type Candidate struct {
	// Source names the backend that exposed the adapter.
	Source string
	// Exposed is the adapter as the backend reported it.
	Exposed hal.ExposedAdapter
	// Missing lists required features the adapter lacks.
	Missing []gputypes.Feature
}

// Info returns the HAL adapter description.
func (c Candidate) Info() gputypes.AdapterInfo { return c.Exposed.Info }

// Usable reports whether the adapter supports every required feature.
func (c Candidate) Usable() bool { return len(c.Missing) == 0 }

// Enumerate creates an instance per source and lists its adapters. Sources
// that fail to initialize are logged and skipped. The returned release
// function destroys the instances.
func Enumerate(sources []Source) (cands []Candidate, release func()) {
	var instances []hal.Instance
	release = func() {
		for i := len(instances) - 1; i >= 0; i-- {
			instances[i].Destroy()
		}
		instances = nil
	}
	for _, src := range sources {
		inst, err := src.Backend.CreateInstance(&hal.InstanceDescriptor{})
		if err != nil {
			slogger().Warn("adapter: backend unavailable", "backend", src.Name, "err", err)
			continue
		}
		instances = append(instances, inst)
		for _, ea := range inst.EnumerateAdapters(nil) {
			c := Candidate{Source: src.Name, Exposed: ea}
			for _, f := range Required {
				if !ea.Features.Contains(f) {
					c.Missing = append(c.Missing, f)
				}
			}
			slogger().Debug("adapter: found",
				"backend", src.Name, "name", ea.Info.Name,
				"vendor_id", fmt.Sprintf("%#04x", ea.Info.VendorID),
				"device_id", fmt.Sprintf("%#04x", ea.Info.DeviceID),
				"type", ea.Info.DeviceType)
			cands = append(cands, c)
		}
	}
	return cands, release
}

// rank orders device types; higher is preferred.
func rank(t gputypes.DeviceType) int {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return 4
	case gputypes.DeviceTypeIntegratedGPU:
		return 3
	case gputypes.DeviceTypeVirtualGPU:
		return 2
	case gputypes.DeviceTypeCPU:
		return 1
	default:
		return 0
	}
}

// Select returns the index of the preferred usable candidate.
func Select(cands []Candidate) (int, error) {
	if len(cands) == 0 {
		return -1, ErrNoAdapter
	}
	best := -1
	for i, c := range cands {
		if !c.Usable() {
			slogger().Warn("adapter: skipping adapter without required features",
				"name", c.Info().Name, "backend", c.Source, "missing", featureNames(c.Missing))
			continue
		}
		if best < 0 || rank(c.Info().DeviceType) > rank(cands[best].Info().DeviceType) {
			best = i
		}
	}
	if best < 0 {
		return -1, fmt.Errorf("%w: %d adapters, none with %s", ErrFeatureMissing, len(cands), featureNames(Required))
	}
	return best, nil
}

func featureNames(fs []gputypes.Feature) string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}

// Kind maps a HAL device type onto the gpucontext adapter type.
func Kind(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// Device is an opened benchmark device.
type Device struct {
	Device hal.Device
	Queue  hal.Queue

	// HAL is the full adapter description.
	HAL gputypes.AdapterInfo
	// Backend names the source the adapter came from.
	Backend string

	adapter hal.Adapter
	release func()
}

// AdapterInfo describes the adapter for consumers of gpucontext.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: d.HAL.Name, Type: Kind(d.HAL.DeviceType)}
}

// Close destroys the device, its adapter and the instances it was found on.
func (d *Device) Close() {
	if d.Device != nil {
		d.Device.Destroy()
		d.Device = nil
	}
	if d.adapter != nil {
		d.adapter.Destroy()
		d.adapter = nil
	}
	if d.release != nil {
		d.release()
		d.release = nil
	}
}

// Open resolves backend, selects an adapter and opens it with the required
// features enabled.
func Open(backend string, sim simgpu.Config) (*Device, error) {
	sources, err := Resolve(backend, sim)
	if err != nil {
		return nil, err
	}
	cands, release := Enumerate(sources)
	i, err := Select(cands)
	if err != nil {
		release()
		return nil, err
	}
	c := cands[i]

	var features gputypes.Features
	for _, f := range Required {
		features.Insert(f)
	}
	open, err := c.Exposed.Adapter.Open(features, c.Exposed.Capabilities.Limits)
	if err != nil {
		release()
		return nil, fmt.Errorf("adapter: open %q: %w", c.Info().Name, err)
	}
	slogger().Info("adapter: selected",
		"name", c.Info().Name, "backend", c.Source,
		"type", c.Info().DeviceType, "driver", c.Info().Driver)
	return &Device{
		Device:  open.Device,
		Queue:   open.Queue,
		HAL:     c.Info(),
		Backend: c.Source,
		adapter: c.Exposed.Adapter,
		release: release,
	}, nil
}

// List enumerates every adapter of backend without opening any device.
func List(backend string, sim simgpu.Config) ([]Candidate, error) {
	sources, err := Resolve(backend, sim)
	if err != nil {
		return nil, err
	}
	cands, release := Enumerate(sources)
	release()
	return cands, nil
}
