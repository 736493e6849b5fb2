package simgpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// Queue executes command buffers synchronously.
type Queue struct {
	noop.Queue
	device    *Device
	submitted uint64
}

// Submit runs every command of every buffer in order. The returned index
// is already complete when Submit returns.
func (q *Queue) Submit(commandBuffers []hal.CommandBuffer) (uint64, error) {
	d := q.device
	if n := d.cfg.FailSubmitAfter; n > 0 && d.Stats().Submissions >= n {
		slogger().Warn("simgpu: injected submission failure", "after", n)
		return 0, fmt.Errorf("simgpu: submission %d: %w", n+1, hal.ErrDeviceLost)
	}
	for _, c := range commandBuffers {
		cb, ok := c.(*CommandBuffer)
		if !ok {
			return 0, fmt.Errorf("%w: foreign command buffer %T", ErrInvalid, c)
		}
		for _, cmd := range cb.cmds {
			if err := cmd.run(); err != nil {
				slogger().Warn("simgpu: command failed", "buffer", cb.label, "command", cmd.name, "err", err)
				return 0, fmt.Errorf("simgpu: %s: %s: %w", cb.label, cmd.name, err)
			}
		}
	}
	q.submitted++
	d.count(func(s *Stats) { s.Submissions++ })
	return q.submitted, nil
}

// PollCompleted returns the last submission index.
func (q *Queue) PollCompleted() uint64 { return q.submitted }

// WriteBuffer copies data into a buffer immediately.
func (q *Queue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) error {
	b, ok := buffer.(*Buffer)
	if !ok {
		return fmt.Errorf("%w: foreign buffer %T", ErrInvalid, buffer)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("%w: write of %d bytes at %d outside %q", ErrInvalid, len(data), offset, b.label)
	}
	copy(b.data[offset:], data)
	return nil
}

// WriteTexture copies pitched rows into a texture immediately. The texture
// usage state is not checked.
func (q *Queue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	if dst == nil || layout == nil || size == nil {
		return fmt.Errorf("%w: nil texture write argument", ErrInvalid)
	}
	t, ok := dst.Texture.(*Texture)
	if !ok {
		return fmt.Errorf("%w: foreign texture %T", ErrInvalid, dst.Texture)
	}
	return copyRows(data, t, hal.BufferTextureCopy{
		BufferLayout: *layout,
		TextureBase:  *dst,
		Size:         *size,
	}, true)
}

// GetTimestampPeriod returns nanoseconds per timestamp tick.
func (q *Queue) GetTimestampPeriod() float32 { return q.device.cfg.TimestampPeriod }

var _ hal.Queue = (*Queue)(nil)
