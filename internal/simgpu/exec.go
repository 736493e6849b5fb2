package simgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyRows moves a region between a pitched buffer and a texture.
func copyRows(buf []byte, t *Texture, r hal.BufferTextureCopy, toTexture bool) error {
	o, sz := r.TextureBase.Origin, r.Size
	if o.X+sz.Width > t.width || o.Y+sz.Height > t.height {
		return fmt.Errorf("%w: region %dx%d at (%d,%d) outside %q", ErrInvalid,
			sz.Width, sz.Height, o.X, o.Y, t.label)
	}
	row := uint64(sz.Width) * texelBytes
	pitch := uint64(r.BufferLayout.BytesPerRow)
	if pitch == 0 {
		pitch = row
	}
	if pitch < row {
		return fmt.Errorf("%w: bytes per row %d below row size %d", ErrInvalid, pitch, row)
	}
	if sz.Height > 0 && r.BufferLayout.Offset+uint64(sz.Height-1)*pitch+row > uint64(len(buf)) {
		return fmt.Errorf("%w: buffer too small for %q copy", ErrInvalid, t.label)
	}
	for y := uint32(0); y < sz.Height; y++ {
		b := buf[r.BufferLayout.Offset+uint64(y)*pitch:][:row]
		toff := ((o.Y+y)*t.width + o.X) * texelBytes
		tex := t.data[toff : toff+uint32(row)]
		if toTexture {
			copy(tex, b)
		} else {
			copy(b, tex)
		}
	}
	return nil
}

// drawState is the render pass state captured by a draw.
type drawState struct {
	pipeline     *RenderPipeline
	group        *BindGroup
	vertices     *Buffer
	vertexOffset uint64
	viewport     [4]float32
	hasViewport  bool
	scissor      [4]uint32
	hasScissor   bool
}

// draw rasterizes the pixel-space bounding box of the vertices and fills it
// with texels sampled at each pixel center.
func (st drawState) draw(target *Texture, firstVertex, vertexCount uint32) error {
	if st.pipeline == nil || st.group == nil || st.vertices == nil {
		return fmt.Errorf("%w: draw without pipeline, bind group or vertex buffer", ErrInvalid)
	}
	if st.pipeline.format != target.format {
		return fmt.Errorf("%w: pipeline %q targets %v, attachment is %v",
			ErrInvalid, st.pipeline.label, st.pipeline.format, target.format)
	}
	if err := requireUsage(target, gputypes.TextureUsageRenderAttachment); err != nil {
		return err
	}
	view, samp := st.group.sampled()
	if view == nil || samp == nil {
		return fmt.Errorf("%w: draw needs a sampled texture and a sampler", ErrInvalid)
	}
	if !samp.nearest {
		return fmt.Errorf("%w: only nearest sampling is simulated", ErrUnsupported)
	}
	src := view.texture
	if err := requireUsage(src, gputypes.TextureUsageTextureBinding); err != nil {
		return err
	}
	if st.vertices.usage&gputypes.BufferUsageVertex == 0 {
		return fmt.Errorf("%w: %q is not a vertex buffer", ErrInvalid, st.vertices.label)
	}
	if vertexCount == 0 {
		return nil
	}

	vp := st.viewport
	if !st.hasViewport {
		vp = [4]float32{0, 0, float32(target.width), float32(target.height)}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := uint32(0); i < vertexCount; i++ {
		off := st.vertexOffset + uint64(firstVertex+i)*16
		if off+16 > uint64(len(st.vertices.data)) {
			return fmt.Errorf("%w: vertex %d outside %q", ErrInvalid, firstVertex+i, st.vertices.label)
		}
		v := st.vertices.data[off:]
		cx := float64(math.Float32frombits(binary.LittleEndian.Uint32(v[0:])))
		cy := float64(math.Float32frombits(binary.LittleEndian.Uint32(v[4:])))
		cw := float64(math.Float32frombits(binary.LittleEndian.Uint32(v[12:])))
		if cw == 0 {
			return fmt.Errorf("%w: vertex %d has w = 0", ErrInvalid, firstVertex+i)
		}
		cx, cy = cx/cw, cy/cw
		px := float64(vp[0]) + (cx*0.5+0.5)*float64(vp[2])
		py := float64(vp[1]) + (0.5-cy*0.5)*float64(vp[3])
		minX, maxX = math.Min(minX, px), math.Max(maxX, px)
		minY, maxY = math.Min(minY, py), math.Max(maxY, py)
	}

	x0, y0 := uint32(0), uint32(0)
	x1, y1 := target.width, target.height
	if st.hasScissor {
		s := st.scissor
		x0, y0 = max(x0, s[0]), max(y0, s[1])
		x1, y1 = min(x1, s[0]+s[2]), min(y1, s[1]+s[3])
	}
	for y := y0; y < y1; y++ {
		fy := float64(y) + 0.5
		if fy < minY || fy >= maxY {
			continue
		}
		for x := x0; x < x1; x++ {
			fx := float64(x) + 0.5
			if fx < minX || fx >= maxX {
				continue
			}
			// frag_coord / textureDimensions, nearest, repeat addressing.
			u := fx / float64(src.width)
			v := fy / float64(src.height)
			sx := wrap(int64(math.Floor(u*float64(src.width))), src.width)
			sy := wrap(int64(math.Floor(v*float64(src.height))), src.height)
			copy(target.texel(x, y), src.texel(sx, sy))
		}
	}
	return nil
}

func wrap(i int64, n uint32) uint32 {
	m := i % int64(n)
	if m < 0 {
		m += int64(n)
	}
	return uint32(m)
}

// dispatch runs every invocation of the grid, copying the sampled texel at
// the global id to the storage texture. Out-of-range invocations store
// nothing.
func dispatch(pipeline *ComputePipeline, group *BindGroup, groups [3]uint32) error {
	if pipeline == nil || group == nil {
		return fmt.Errorf("%w: dispatch without pipeline or bind group", ErrInvalid)
	}
	in, _ := group.sampled()
	out := group.storage()
	if in == nil || out == nil {
		return fmt.Errorf("%w: dispatch needs a sampled and a storage texture", ErrInvalid)
	}
	src, dst := in.texture, out.texture
	if err := requireUsage(src, gputypes.TextureUsageTextureBinding); err != nil {
		return err
	}
	if err := requireUsage(dst, gputypes.TextureUsageStorageBinding); err != nil {
		return err
	}
	ls := pipeline.localSize
	nx, ny := groups[0]*ls[0], groups[1]*ls[1]
	// Every z slice stores the same 2D texels, so one pass suffices.
	if groups[2]*ls[2] == 0 {
		return nil
	}
	for y := uint32(0); y < ny && y < dst.height; y++ {
		for x := uint32(0); x < nx && x < dst.width; x++ {
			if x >= src.width || y >= src.height {
				clear(dst.texel(x, y))
				continue
			}
			copy(dst.texel(x, y), src.texel(x, y))
		}
	}
	return nil
}
