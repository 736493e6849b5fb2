package bench

import (
	"testing"

	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/copybench/internal/shaders"
	"github.com/gogpu/copybench/internal/simgpu"
)

// newSimContext opens a simulated device and closes the context at cleanup.
func newSimContext(t *testing.T, cfg simgpu.Config) (*Context, *simgpu.Device) {
	t.Helper()
	d, q := simgpu.New(cfg)
	c := NewContext(d, q)
	t.Cleanup(c.Close)
	return c, d
}

// newNoopContext wraps a hal/noop device, which has no timestamp queries.
func newNoopContext(t *testing.T) *Context {
	t.Helper()
	c := NewContext(&noop.Device{}, &noop.Queue{})
	t.Cleanup(c.Close)
	return c
}

func bytecode(t *testing.T, compile func() (*shaders.Module, error)) Bytecode {
	t.Helper()
	m, err := compile()
	if err != nil {
		t.Fatalf("compile shader: %v", err)
	}
	return Bytecode{Label: m.Label, Stage: m.Stage, EntryPoint: m.EntryPoint, SPIRV: m.SPIRV}
}

func pixelBlit(t *testing.T) *PixelBlit {
	t.Helper()
	return NewPixelBlit(bytecode(t, shaders.Vertex), bytecode(t, shaders.Pixel))
}

func computeShader(g int) func() (*shaders.Module, error) {
	return func() (*shaders.Module, error) { return shaders.Compute(g) }
}

func computeCopy(t *testing.T, g int) *ComputeCopy {
	t.Helper()
	return NewComputeCopy(g, bytecode(t, computeShader(g)))
}

func gradientParams(w, h uint32) SetupParams {
	return SetupParams{Width: w, Height: h, Fill: GradientFill(w, h)}
}
