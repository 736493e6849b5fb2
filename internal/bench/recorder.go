package bench

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RecorderState is the lifecycle state of a Recorder.
type RecorderState int

const (
	// RecorderIdle means no commands are buffered.
	RecorderIdle RecorderState = iota

	// RecorderRecording means commands are being buffered.
	RecorderRecording

	// RecorderClosed means the command buffer is finished and may be submitted.
	RecorderClosed
)

// String returns the string representation of RecorderState.
func (s RecorderState) String() string {
	switch s {
	case RecorderIdle:
		return "Idle"
	case RecorderRecording:
		return "Recording"
	case RecorderClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// TransitionRecord is one residency transition recorded into a command stream.
type TransitionRecord struct {
	Texture string
	From    State
	To      State
}

// Recorder buffers the commands of one submission.
//
// Each Begin creates a fresh HAL command encoder; the finished command buffer
// is freed by Reset once the device has completed it. Texture residency
// states are tracked at record time: after the submission completes, a
// texture's State is the state its last recorded transition named.
type Recorder struct {
	ctx   *Context
	state RecorderState

	enc hal.CommandEncoder
	cmd hal.CommandBuffer

	label       string
	transitions []TransitionRecord
}

// NewRecorder returns an idle recorder.
func (c *Context) NewRecorder() *Recorder {
	return &Recorder{ctx: c}
}

// State returns the recorder's lifecycle state.
func (r *Recorder) State() RecorderState { return r.state }

// Transitions returns the transitions recorded since the last Begin.
func (r *Recorder) Transitions() []TransitionRecord { return r.transitions }

// Encoder returns the HAL encoder while recording, nil otherwise.
func (r *Recorder) Encoder() hal.CommandEncoder {
	if r.state != RecorderRecording {
		return nil
	}
	return r.enc
}

// Begin starts buffering a new command stream.
func (r *Recorder) Begin(label string) error {
	if r.state != RecorderIdle {
		return fmt.Errorf("%w: begin while %s", ErrRecorderState, r.state)
	}
	enc, err := r.ctx.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return submitFailure("create command encoder", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		enc.Destroy()
		return submitFailure("begin encoding", err)
	}
	r.enc = enc
	r.label = label
	r.transitions = r.transitions[:0]
	r.state = RecorderRecording
	return nil
}

// Close finishes the command stream.
func (r *Recorder) Close() error {
	if r.state != RecorderRecording {
		return fmt.Errorf("%w: close while %s", ErrRecorderState, r.state)
	}
	cmd, err := r.enc.EndEncoding()
	if err != nil {
		r.Abort()
		return submitFailure("end encoding", err)
	}
	r.cmd = cmd
	r.enc = nil
	r.state = RecorderClosed
	return nil
}

// Submit hands the closed command stream to the queue and returns the
// completion value that signals it.
func (r *Recorder) Submit() (uint64, error) {
	if r.state != RecorderClosed {
		return 0, fmt.Errorf("%w: submit while %s", ErrRecorderState, r.state)
	}
	return r.ctx.completion.submit(r.cmd)
}

// Reset frees the completed command buffer and returns the recorder to Idle.
// The device must have finished executing it.
func (r *Recorder) Reset() {
	if r.cmd != nil {
		r.ctx.device.FreeCommandBuffer(r.cmd)
		r.cmd = nil
	}
	if r.state == RecorderRecording {
		r.Abort()
		return
	}
	r.state = RecorderIdle
}

// Abort drops a stream that is still being recorded.
func (r *Recorder) Abort() {
	if r.enc != nil {
		r.enc.DiscardEncoding()
		r.enc.Destroy()
		r.enc = nil
	}
	r.state = RecorderIdle
}

func (r *Recorder) recording(op string) error {
	if r.state != RecorderRecording {
		return fmt.Errorf("%w: %s while %s", ErrRecorderState, op, r.state)
	}
	return nil
}

// Transition records a residency transition of tex from its current state
// to to. Transitioning into the current state records nothing.
func (r *Recorder) Transition(tex *Texture, to State) error {
	if err := r.recording("transition"); err != nil {
		return err
	}
	from := tex.state
	if from == to {
		return nil
	}
	if to == StateUndefined {
		return fmt.Errorf("%w: %q cannot return to %s", ErrTransitionImbalance, tex.label, to)
	}
	if want := to.Usage(); tex.usage&want != want {
		return fmt.Errorf("%w: %q was not created for %s", ErrTransitionImbalance, tex.label, to)
	}
	r.enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: tex.raw,
		Range:   hal.TextureRange{Aspect: gputypes.TextureAspectAll, MipLevelCount: 1, ArrayLayerCount: 1},
		Usage:   hal.TextureUsageTransition{OldUsage: from.Usage(), NewUsage: to.Usage()},
	}})
	tex.state = to
	r.transitions = append(r.transitions, TransitionRecord{Texture: tex.label, From: from, To: to})
	return nil
}

// Expect fails unless tex is currently in state s.
func (r *Recorder) Expect(tex *Texture, s State) error {
	if tex.state != s {
		return fmt.Errorf("%w: %q is %s, want %s", ErrTransitionImbalance, tex.label, tex.state, s)
	}
	return nil
}

// CopyBuffer records a copy of size bytes from the start of src to the start of dst.
func (r *Recorder) CopyBuffer(src, dst *Buffer, size uint64) error {
	if err := r.recording("copy buffer"); err != nil {
		return err
	}
	r.enc.CopyBufferToBuffer(src.raw, dst.raw, []hal.BufferCopy{{Size: size}})
	return nil
}

// UploadSurface records a full-surface copy from src into tex. tex must be
// in StateCopyDest.
func (r *Recorder) UploadSurface(src *Buffer, tex *Texture) error {
	if err := r.recording("upload"); err != nil {
		return err
	}
	if err := r.Expect(tex, StateCopyDest); err != nil {
		return err
	}
	r.enc.CopyBufferToTexture(src.raw, tex.raw, []hal.BufferTextureCopy{surfaceRegion(tex)})
	return nil
}

// ReadbackSurface records a full-surface copy from tex into dst using the
// aligned row pitch. tex must be in StateCopySource.
func (r *Recorder) ReadbackSurface(tex *Texture, dst *Buffer) error {
	if err := r.recording("readback"); err != nil {
		return err
	}
	if err := r.Expect(tex, StateCopySource); err != nil {
		return err
	}
	r.enc.CopyTextureToBuffer(tex.raw, dst.raw, []hal.BufferTextureCopy{surfaceRegion(tex)})
	return nil
}

// CopyTexture records a whole-resource copy. src must be in StateCopySource
// and dst in StateCopyDest.
func (r *Recorder) CopyTexture(src, dst *Texture) error {
	if err := r.recording("copy texture"); err != nil {
		return err
	}
	if err := r.Expect(src, StateCopySource); err != nil {
		return err
	}
	if err := r.Expect(dst, StateCopyDest); err != nil {
		return err
	}
	r.enc.CopyTextureToTexture(src.raw, dst.raw, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{Texture: src.raw, Aspect: gputypes.TextureAspectAll},
		DstBase: hal.ImageCopyTexture{Texture: dst.raw, Aspect: gputypes.TextureAspectAll},
		Size:    hal.Extent3D{Width: src.width, Height: src.height, DepthOrArrayLayers: 1},
	}})
	return nil
}

// TransitionOut records the shared tail of every iteration: dest moves to
// StateCopySource, its full surface is copied into readback, and dest
// returns to steady.
func (r *Recorder) TransitionOut(dest *Texture, readback *Buffer, steady State) error {
	if err := r.Transition(dest, StateCopySource); err != nil {
		return err
	}
	if err := r.ReadbackSurface(dest, readback); err != nil {
		return err
	}
	return r.Transition(dest, steady)
}

func surfaceRegion(tex *Texture) hal.BufferTextureCopy {
	return hal.BufferTextureCopy{
		BufferLayout: hal.ImageDataLayout{
			BytesPerRow:  RowPitch(tex.width),
			RowsPerImage: tex.height,
		},
		TextureBase: hal.ImageCopyTexture{Texture: tex.raw, Aspect: gputypes.TextureAspectAll},
		Size:        hal.Extent3D{Width: tex.width, Height: tex.height, DepthOrArrayLayers: 1},
	}
}

// Immediate records a command stream with record, submits it, and blocks
// until it completes. Used for untimed setup work.
func (c *Context) Immediate(label string, record func(rec *Recorder) error) error {
	rec := c.NewRecorder()
	if err := rec.Begin(label); err != nil {
		return err
	}
	if err := record(rec); err != nil {
		rec.Abort()
		return err
	}
	if err := rec.Close(); err != nil {
		return err
	}
	defer rec.Reset()
	value, err := rec.Submit()
	if err != nil {
		return err
	}
	return c.completion.wait(value)
}
