// Package shaders holds the WGSL sources of the copy benchmark and compiles
// them to SPIR-V with naga.
//
// Every shader implements the same contract: read one input texel and write
// the same value to the corresponding output texel of a BGRA8 surface.
package shaders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
)

// Entry point names.
const (
	VertexEntry  = "vs_main"
	PixelEntry   = "fs_main"
	ComputeEntry = "cs_main"
)

// VertexSource passes the quad position through unchanged.
const VertexSource = `@vertex
fn vs_main(@location(0) position: vec4<f32>) -> @builtin(position) vec4<f32> {
    return position;
}
`

// PixelSource samples the input texture at the pixel's normalized
// coordinate. With a nearest sampler and pixel-center coordinates this
// reads exactly the texel at the same position.
const PixelSource = `@group(0) @binding(0) var src_texture: texture_2d<f32>;
@group(0) @binding(1) var src_sampler: sampler;

@fragment
fn fs_main(@builtin(position) frag_coord: vec4<f32>) -> @location(0) vec4<f32> {
    let size = vec2<f32>(textureDimensions(src_texture));
    return textureSampleLevel(src_texture, src_sampler, frag_coord.xy / size, 0.0);
}
`

// computeTemplate is completed with the workgroup extent.
const computeTemplate = `@group(0) @binding(0) var src_texture: texture_2d<f32>;
@group(0) @binding(1) var dst_texture: texture_storage_2d<bgra8unorm, write>;

@compute @workgroup_size({{G}}, {{G}}, 1)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
    let coord = vec2<i32>(id.xy);
    textureStore(dst_texture, coord, textureLoad(src_texture, coord, 0));
}
`

// ComputeSource returns the compute copy with a groupSize x groupSize x 1
// workgroup.
func ComputeSource(groupSize int) string {
	return strings.ReplaceAll(computeTemplate, "{{G}}", fmt.Sprint(groupSize))
}

// ErrCompile is matched by every *Error.
var ErrCompile = errors.New("shaders: compile failed")

// Error carries the compiler diagnostic for a rejected shader.
type Error struct {
	Label      string
	Stage      gputypes.ShaderStage
	Diagnostic string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("shaders: %s (%s): %s", e.Label, StageName(e.Stage), e.Diagnostic)
}

// Unwrap lets errors.Is match ErrCompile and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCompile}
	}
	return []error{ErrCompile, e.Err}
}

// StageName returns a short name for a single shader stage.
func StageName(s gputypes.ShaderStage) string {
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

// Module is one compiled shader stage.
type Module struct {
	Label      string
	Stage      gputypes.ShaderStage
	EntryPoint string
	SPIRV      []uint32

	// Workgroup is the compute workgroup extent; zero for other stages.
	Workgroup [3]uint32
}

// Compile compiles source to SPIR-V and checks that it exports entry with
// the execution model of stage. Successful results are cached per process;
// the returned module is shared and must not be modified.
func Compile(label string, stage gputypes.ShaderStage, entry, source string) (*Module, error) {
	key := cacheKey{label: label, stage: stage, entry: entry, source: source}
	if m, ok := modules.get(key); ok {
		return m, nil
	}
	m, err := compile(label, stage, entry, source)
	if err != nil {
		return nil, err
	}
	modules.set(key, m)
	return m, nil
}

func compile(label string, stage gputypes.ShaderStage, entry, source string) (*Module, error) {
	code, err := naga.Compile(source)
	if err != nil {
		return nil, &Error{Label: label, Stage: stage, Diagnostic: err.Error(), Err: err}
	}
	if len(code)%4 != 0 {
		return nil, &Error{Label: label, Stage: stage, Diagnostic: fmt.Sprintf("SPIR-V length %d is not a whole number of words", len(code))}
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = uint32(code[i*4]) |
			uint32(code[i*4+1])<<8 |
			uint32(code[i*4+2])<<16 |
			uint32(code[i*4+3])<<24
	}

	eps, err := EntryPoints(words)
	if err != nil {
		return nil, &Error{Label: label, Stage: stage, Diagnostic: err.Error(), Err: err}
	}
	for _, ep := range eps {
		if ep.Name == entry && ep.Stage == stage {
			return &Module{
				Label:      label,
				Stage:      stage,
				EntryPoint: entry,
				SPIRV:      words,
				Workgroup:  ep.LocalSize,
			}, nil
		}
	}
	return nil, &Error{Label: label, Stage: stage, Diagnostic: fmt.Sprintf("no %s entry point %q", StageName(stage), entry)}
}

// Vertex compiles the full-screen quad vertex stage.
func Vertex() (*Module, error) {
	return Compile("copy_vs", gputypes.ShaderStageVertex, VertexEntry, VertexSource)
}

// Pixel compiles the sampling pixel stage.
func Pixel() (*Module, error) {
	return Compile("copy_fs", gputypes.ShaderStageFragment, PixelEntry, PixelSource)
}

// Compute compiles the dispatch copy for groupSize.
func Compute(groupSize int) (*Module, error) {
	if groupSize <= 0 {
		return nil, &Error{
			Label:      fmt.Sprintf("copy_cs_g%d", groupSize),
			Stage:      gputypes.ShaderStageCompute,
			Diagnostic: fmt.Sprintf("invalid group size %d", groupSize),
		}
	}
	return Compile(fmt.Sprintf("copy_cs_g%d", groupSize), gputypes.ShaderStageCompute, ComputeEntry, ComputeSource(groupSize))
}
