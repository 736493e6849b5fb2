package adapter

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/copybench/internal/simgpu"
)

func candidate(name string, typ gputypes.DeviceType, missing ...gputypes.Feature) Candidate {
	return Candidate{
		Source:  "fake",
		Exposed: hal.ExposedAdapter{Info: gputypes.AdapterInfo{Name: name, DeviceType: typ}},
		Missing: missing,
	}
}

func TestSelectRanksByDeviceType(t *testing.T) {
	tests := []struct {
		name  string
		cands []Candidate
		want  string
	}{
		{
			name: "discrete over integrated",
			cands: []Candidate{
				candidate("igpu", gputypes.DeviceTypeIntegratedGPU),
				candidate("dgpu", gputypes.DeviceTypeDiscreteGPU),
			},
			want: "dgpu",
		},
		{
			name: "first of equal rank",
			cands: []Candidate{
				candidate("a", gputypes.DeviceTypeIntegratedGPU),
				candidate("b", gputypes.DeviceTypeIntegratedGPU),
			},
			want: "a",
		},
		{
			name: "software last",
			cands: []Candidate{
				candidate("cpu", gputypes.DeviceTypeCPU),
				candidate("other", gputypes.DeviceTypeOther),
				candidate("virt", gputypes.DeviceTypeVirtualGPU),
			},
			want: "virt",
		},
		{
			name: "skips missing features",
			cands: []Candidate{
				candidate("dgpu", gputypes.DeviceTypeDiscreteGPU, gputypes.FeatureTimestampQuery),
				candidate("cpu", gputypes.DeviceTypeCPU),
			},
			want: "cpu",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i, err := Select(tt.cands)
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got := tt.cands[i].Info().Name; got != tt.want {
				t.Errorf("selected %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectErrors(t *testing.T) {
	if _, err := Select(nil); !errors.Is(err, ErrNoAdapter) {
		t.Errorf("Select(nil) = %v, want ErrNoAdapter", err)
	}
	cands := []Candidate{candidate("dgpu", gputypes.DeviceTypeDiscreteGPU, gputypes.FeatureBGRA8UnormStorage)}
	if _, err := Select(cands); !errors.Is(err, ErrFeatureMissing) {
		t.Errorf("Select = %v, want ErrFeatureMissing", err)
	}
}

func TestResolve(t *testing.T) {
	if _, err := Resolve("glide", simgpu.Config{}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Resolve(glide) = %v, want ErrUnknownBackend", err)
	}
	src, err := Resolve(" SIM ", simgpu.Config{})
	if err != nil {
		t.Fatalf("Resolve(sim): %v", err)
	}
	if len(src) != 1 || src[0].Name != BackendSim {
		t.Errorf("Resolve(sim) = %+v", src)
	}
}

func TestKind(t *testing.T) {
	tests := map[gputypes.DeviceType]gpucontext.AdapterType{
		gputypes.DeviceTypeDiscreteGPU:   gpucontext.AdapterTypeDiscrete,
		gputypes.DeviceTypeIntegratedGPU: gpucontext.AdapterTypeIntegrated,
		gputypes.DeviceTypeCPU:           gpucontext.AdapterTypeSoftware,
		gputypes.DeviceTypeVirtualGPU:    gpucontext.AdapterTypeUnknown,
		gputypes.DeviceTypeOther:         gpucontext.AdapterTypeUnknown,
	}
	for in, want := range tests {
		if got := Kind(in); got != want {
			t.Errorf("Kind(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestOpenSim(t *testing.T) {
	d, err := Open(BackendSim, simgpu.Config{ViewStride: 32})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()

	if d.Backend != BackendSim {
		t.Errorf("Backend = %q", d.Backend)
	}
	info := d.AdapterInfo()
	if info.Name != simgpu.AdapterName || info.Type != gpucontext.AdapterTypeDiscrete {
		t.Errorf("AdapterInfo = %+v", info)
	}
	sd, ok := d.Device.(*simgpu.Device)
	if !ok {
		t.Fatalf("Device is %T", d.Device)
	}
	if sd.ViewStride() != 32 {
		t.Errorf("ViewStride = %d", sd.ViewStride())
	}
	d.Close()
	if d.Device != nil {
		t.Error("Close left the device set")
	}
}

func TestListSim(t *testing.T) {
	cands, err := List(BackendSim, simgpu.Config{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cands) != 1 || !cands[0].Usable() {
		t.Fatalf("List = %+v", cands)
	}
	if cands[0].Info().Name != simgpu.AdapterName {
		t.Errorf("Name = %q", cands[0].Info().Name)
	}
}
