package bench

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// quadVertices covers clip space as a four-vertex triangle strip.
var quadVertices = [4][4]float32{
	{-1, -1, 0, 1},
	{-1, 1, 0, 1},
	{1, -1, 0, 1},
	{1, 1, 0, 1},
}

// QuadVertexData returns the full-screen quad as little-endian float4s.
func QuadVertexData() []byte {
	out := make([]byte, 0, len(quadVertices)*QuadVertexStride)
	for _, v := range quadVertices {
		for _, c := range v {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(c))
		}
	}
	return out
}

// PixelBlit draws a full-screen quad into the destination, sampling the
// source with nearest filtering at each pixel's normalized coordinate.
type PixelBlit struct {
	vertex Bytecode
	pixel  Bytecode
}

// NewPixelBlit returns the pixel-pipeline blit built from the given vertex
// and pixel stage bytecode.
func NewPixelBlit(vertex, pixel Bytecode) *PixelBlit {
	return &PixelBlit{vertex: vertex, pixel: pixel}
}

// Name implements Strategy.
func (*PixelBlit) Name() string { return "pixel-blit" }

// GroupSize implements Strategy.
func (*PixelBlit) GroupSize() int { return 0 }

// Description implements Strategy.
func (*PixelBlit) Description() string { return "pixel shader copy" }

// SteadyStateOf implements Strategy. The source is never written, so it is
// never transitioned.
func (*PixelBlit) SteadyStateOf(role Role) State {
	if role == RoleSource {
		return StateShaderRead
	}
	return StateRenderTarget
}

// Setup implements Strategy.
func (b *PixelBlit) Setup(res *Resources, p SetupParams) (*StrategyContext, error) {
	sc, err := setupSurfaces(res, b, p,
		gputypes.TextureUsageTextureBinding, gputypes.TextureUsageRenderAttachment)
	if err != nil {
		return nil, err
	}
	gp, err := res.BuildGraphicsPipeline(b.Name(), b.vertex, b.pixel, SurfaceFormat)
	if err != nil {
		return nil, err
	}
	sampler, err := res.CreatePointSampler(b.Name() + "_sampler")
	if err != nil {
		return nil, err
	}
	views, err := res.BuildViewTable(b.Name()+"_views", gp.BindLayout,
		ViewSlot{View: sc.Source.View()},
		ViewSlot{Sampler: sampler},
	)
	if err != nil {
		return nil, err
	}
	quad, err := res.AllocateVertexBuffer(b.Name()+"_quad", QuadVertexData())
	if err != nil {
		return nil, err
	}
	sc.Graphics = gp
	sc.Views = views
	sc.Quad = quad
	return sc, nil
}

// RecordCopy implements Strategy.
func (b *PixelBlit) RecordCopy(rec *Recorder, sc *StrategyContext, timer *Timer) error {
	if err := rec.Expect(sc.Source, StateShaderRead); err != nil {
		return err
	}
	if err := rec.Expect(sc.Dest, StateRenderTarget); err != nil {
		return err
	}
	if err := timer.StartTiming(rec); err != nil {
		return err
	}

	pass := rec.Encoder().BeginRenderPass(&hal.RenderPassDescriptor{
		Label: b.Name(),
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    sc.Dest.View(),
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	pass.SetPipeline(sc.Graphics.Pipeline)
	pass.SetBindGroup(0, sc.Views.Group(), nil)
	pass.SetVertexBuffer(0, sc.Quad.Raw(), 0)
	pass.SetViewport(0, 0, float32(sc.Width), float32(sc.Height), 0, 1)
	pass.SetScissorRect(0, 0, sc.Width, sc.Height)
	pass.Draw(uint32(len(quadVertices)), 1, 0, 0)
	pass.End()

	if err := timer.EndTiming(rec); err != nil {
		return err
	}
	return rec.TransitionOut(sc.Dest, sc.Readback, b.SteadyStateOf(RoleDest))
}
