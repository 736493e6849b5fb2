package bench

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Bytecode is one compiled shader stage as produced by the shader compiler.
type Bytecode struct {
	// Label names the shader in debug output.
	Label string
	// Stage is the single stage the bytecode implements.
	Stage gputypes.ShaderStage
	// EntryPoint is the entry function name.
	EntryPoint string
	// SPIRV holds the SPIR-V words.
	SPIRV []uint32
}

func stageName(s gputypes.ShaderStage) string {
	switch s {
	case gputypes.ShaderStageVertex:
		return "vertex"
	case gputypes.ShaderStageFragment:
		return "pixel"
	case gputypes.ShaderStageCompute:
		return "compute"
	default:
		return fmt.Sprintf("stage(%d)", uint32(s))
	}
}

// Layout family binding slots.
const (
	// SlotInput is the read-only texture, visible to every strategy that binds one.
	SlotInput = 0
	// SlotAux is the sampler in the graphics family and the read-write
	// texture in the compute family.
	SlotAux = 1
)

// QuadVertexStride is the byte size of one full-screen quad vertex (float4).
const QuadVertexStride = 16

// GraphicsPipeline is the compiled pixel-pipeline blit: one read-only
// texture plus one sampler visible to the pixel stage.
type GraphicsPipeline struct {
	BindLayout hal.BindGroupLayout
	Layout     hal.PipelineLayout
	Pipeline   hal.RenderPipeline
}

// ComputePipeline is the compiled dispatch copy: one read-only and one
// read-write texture, both visible to the compute stage.
type ComputePipeline struct {
	BindLayout hal.BindGroupLayout
	Layout     hal.PipelineLayout
	Pipeline   hal.ComputePipeline
}

// BuildGraphicsPipeline compiles vs and ps into a render pipeline writing
// target. Built once per strategy; the result is never mutated.
func (r *Resources) BuildGraphicsPipeline(label string, vs, ps Bytecode, target gputypes.TextureFormat) (*GraphicsPipeline, error) {
	vsMod, err := r.shaderModule(vs, gputypes.ShaderStageVertex)
	if err != nil {
		return nil, err
	}
	psMod, err := r.shaderModule(ps, gputypes.ShaderStageFragment)
	if err != nil {
		return nil, err
	}

	bgl, pl, err := r.layout(label, []gputypes.BindGroupLayoutEntry{
		{
			Binding:    SlotInput,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
		{
			Binding:    SlotAux,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeNonFiltering},
		},
	})
	if err != nil {
		return nil, err
	}

	d := r.ctx.device
	pipe, err := d.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: pl,
		Vertex: hal.VertexState{
			Module:     vsMod,
			EntryPoint: vs.EntryPoint,
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: QuadVertexStride,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{{
					Format:         gputypes.VertexFormatFloat32x4,
					ShaderLocation: 0,
				}},
			}},
		},
		Primitive:   gputypes.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleStrip},
		Multisample: gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     psMod,
			EntryPoint: ps.EntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    target,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return nil, &CompileError{Stage: "render pipeline " + label, Diagnostic: err.Error(), Err: err}
	}
	r.own(func() { d.DestroyRenderPipeline(pipe) })
	slogger().Debug("bench: render pipeline created", "label", label)

	return &GraphicsPipeline{BindLayout: bgl, Layout: pl, Pipeline: pipe}, nil
}

// BuildComputePipeline compiles cs into a compute pipeline whose read-write
// slot is a storage texture of format.
func (r *Resources) BuildComputePipeline(label string, cs Bytecode, format gputypes.TextureFormat) (*ComputePipeline, error) {
	csMod, err := r.shaderModule(cs, gputypes.ShaderStageCompute)
	if err != nil {
		return nil, err
	}

	bgl, pl, err := r.layout(label, []gputypes.BindGroupLayoutEntry{
		{
			Binding:    SlotInput,
			Visibility: gputypes.ShaderStageCompute,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
		{
			Binding:    SlotAux,
			Visibility: gputypes.ShaderStageCompute,
			StorageTexture: &gputypes.StorageTextureBindingLayout{
				Access:        gputypes.StorageTextureAccessWriteOnly,
				Format:        format,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	d := r.ctx.device
	pipe, err := d.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  label,
		Layout: pl,
		Compute: hal.ComputeState{
			Module:     csMod,
			EntryPoint: cs.EntryPoint,
		},
	})
	if err != nil {
		return nil, &CompileError{Stage: "compute pipeline " + label, Diagnostic: err.Error(), Err: err}
	}
	r.own(func() { d.DestroyComputePipeline(pipe) })
	slogger().Debug("bench: compute pipeline created", "label", label)

	return &ComputePipeline{BindLayout: bgl, Layout: pl, Pipeline: pipe}, nil
}

func (r *Resources) shaderModule(bc Bytecode, want gputypes.ShaderStage) (hal.ShaderModule, error) {
	if bc.Stage != want {
		return nil, &CompileError{
			Stage:      stageName(want),
			Diagnostic: fmt.Sprintf("%s bytecode %q supplied for %s stage", stageName(bc.Stage), bc.Label, stageName(want)),
		}
	}
	if len(bc.SPIRV) == 0 {
		return nil, &CompileError{Stage: stageName(want), Diagnostic: fmt.Sprintf("%q: empty bytecode", bc.Label)}
	}
	if bc.EntryPoint == "" {
		return nil, &CompileError{Stage: stageName(want), Diagnostic: fmt.Sprintf("%q: no entry point", bc.Label)}
	}
	d := r.ctx.device
	mod, err := d.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  bc.Label,
		Source: hal.ShaderSource{SPIRV: bc.SPIRV},
	})
	if err != nil {
		return nil, &CompileError{Stage: stageName(want), Diagnostic: err.Error(), Err: err}
	}
	r.own(func() { d.DestroyShaderModule(mod) })
	return mod, nil
}

func (r *Resources) layout(label string, entries []gputypes.BindGroupLayoutEntry) (hal.BindGroupLayout, hal.PipelineLayout, error) {
	d := r.ctx.device
	bgl, err := d.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return nil, nil, &CompileError{Stage: "binding layout " + label, Diagnostic: err.Error(), Err: err}
	}
	r.own(func() { d.DestroyBindGroupLayout(bgl) })

	pl, err := d.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, nil, &CompileError{Stage: "pipeline layout " + label, Diagnostic: err.Error(), Err: err}
	}
	r.own(func() { d.DestroyPipelineLayout(pl) })
	return bgl, pl, nil
}
