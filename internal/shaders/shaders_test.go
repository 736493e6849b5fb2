package shaders

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/spirv"
)

func TestVertexAndPixelCompile(t *testing.T) {
	tests := []struct {
		name    string
		compile func() (*Module, error)
		stage   gputypes.ShaderStage
		entry   string
	}{
		{"vertex", Vertex, gputypes.ShaderStageVertex, VertexEntry},
		{"pixel", Pixel, gputypes.ShaderStageFragment, PixelEntry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := tt.compile()
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			if m.Stage != tt.stage {
				t.Errorf("Stage = %v, want %v", m.Stage, tt.stage)
			}
			if m.EntryPoint != tt.entry {
				t.Errorf("EntryPoint = %q, want %q", m.EntryPoint, tt.entry)
			}
			if len(m.SPIRV) == 0 || m.SPIRV[0] != spirv.MagicNumber {
				t.Fatalf("module does not start with the SPIR-V magic number")
			}
			if m.Workgroup != [3]uint32{} {
				t.Errorf("Workgroup = %v for a non-compute stage", m.Workgroup)
			}
		})
	}
}

func TestComputeWorkgroupSizes(t *testing.T) {
	for _, g := range []int{1, 2, 4, 8, 16} {
		m, err := Compute(g)
		if err != nil {
			t.Fatalf("Compute(%d): %v", g, err)
		}
		want := [3]uint32{uint32(g), uint32(g), 1}
		if m.Workgroup != want {
			t.Errorf("Compute(%d).Workgroup = %v, want %v", g, m.Workgroup, want)
		}
		if m.EntryPoint != ComputeEntry {
			t.Errorf("Compute(%d).EntryPoint = %q", g, m.EntryPoint)
		}
	}
}

func TestComputeSourceSubstitutesGroupSize(t *testing.T) {
	src := ComputeSource(8)
	if !strings.Contains(src, "@workgroup_size(8, 8, 1)") {
		t.Fatalf("source lacks workgroup size:\n%s", src)
	}
	if strings.Contains(src, "{{G}}") {
		t.Fatalf("template placeholder left in source")
	}
}

func TestCompileRejectsBadSource(t *testing.T) {
	_, err := Compile("broken", gputypes.ShaderStageCompute, ComputeEntry, "fn cs_main( {")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, ErrCompile) {
		t.Errorf("error %v does not match ErrCompile", err)
	}
	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatalf("error %T is not *Error", err)
	}
	if ce.Diagnostic == "" {
		t.Error("empty diagnostic")
	}
	if ce.Label != "broken" {
		t.Errorf("Label = %q", ce.Label)
	}
}

func TestCompileRejectsWrongStage(t *testing.T) {
	_, err := Compile("vs_as_cs", gputypes.ShaderStageCompute, VertexEntry, VertexSource)
	if !errors.Is(err, ErrCompile) {
		t.Fatalf("err = %v, want ErrCompile", err)
	}
}

func TestComputeRejectsZeroGroup(t *testing.T) {
	if _, err := Compute(0); !errors.Is(err, ErrCompile) {
		t.Fatalf("err = %v, want ErrCompile", err)
	}
}

func TestEntryPointsHandBuilt(t *testing.T) {
	// "main" packed into one word plus a nul word.
	name := []uint32{0x6e69616d, 0}
	entry := append([]uint32{
		uint32(3+len(name))<<16 | uint32(spirv.OpEntryPoint),
		uint32(spirv.ExecutionModelGLCompute),
		7,
	}, name...)
	mode := []uint32{
		6<<16 | uint32(spirv.OpExecutionMode),
		7,
		uint32(spirv.ExecutionModeLocalSize),
		4, 2, 1,
	}
	words := append([]uint32{spirv.MagicNumber, 0x00010300, 0, 8, 0}, entry...)
	words = append(words, mode...)

	eps, err := EntryPoints(words)
	if err != nil {
		t.Fatalf("EntryPoints: %v", err)
	}
	if len(eps) != 1 {
		t.Fatalf("got %d entry points, want 1", len(eps))
	}
	ep := eps[0]
	if ep.Name != "main" || ep.Stage != gputypes.ShaderStageCompute {
		t.Errorf("entry = %+v", ep)
	}
	if ep.LocalSize != [3]uint32{4, 2, 1} {
		t.Errorf("LocalSize = %v", ep.LocalSize)
	}
}

func TestEntryPointsRejectsGarbage(t *testing.T) {
	if _, err := EntryPoints([]uint32{1, 2}); err == nil {
		t.Error("short module accepted")
	}
	if _, err := EntryPoints([]uint32{0xdeadbeef, 0, 0, 0, 0}); err == nil {
		t.Error("bad magic accepted")
	}
	// Instruction claims more words than remain.
	if _, err := EntryPoints([]uint32{spirv.MagicNumber, 0, 0, 0, 0, 9 << 16}); err == nil {
		t.Error("truncated instruction accepted")
	}
}

func TestCompileCachesModules(t *testing.T) {
	first, err := Compute(2)
	if err != nil {
		t.Fatal(err)
	}
	hits, _ := CacheStats()
	second, err := Compute(2)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second compile returned a new module")
	}
	if after, _ := CacheStats(); after != hits+1 {
		t.Errorf("hits %d -> %d, want one more", hits, after)
	}
}

func TestModuleCacheEvictsOldest(t *testing.T) {
	c := &moduleCache{entries: make(map[cacheKey]*Module)}
	for i := 0; i <= maxCached; i++ {
		c.set(cacheKey{label: string(rune('A' + i))}, &Module{})
	}
	if len(c.entries) != maxCached {
		t.Fatalf("len = %d", len(c.entries))
	}
	if _, ok := c.get(cacheKey{label: "A"}); ok {
		t.Error("oldest entry survived")
	}
	if _, ok := c.get(cacheKey{label: string(rune('A' + maxCached))}); !ok {
		t.Error("newest entry missing")
	}
}
