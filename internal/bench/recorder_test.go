package bench

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/copybench/internal/simgpu"
)

func TestRecorderLifecycle(t *testing.T) {
	c, _ := newSimContext(t, simgpu.Config{})
	rec := c.NewRecorder()

	if _, err := rec.Submit(); !errors.Is(err, ErrRecorderState) {
		t.Fatalf("Submit while idle: %v", err)
	}
	if err := rec.Close(); !errors.Is(err, ErrRecorderState) {
		t.Fatalf("Close while idle: %v", err)
	}
	if err := rec.Begin("a"); err != nil {
		t.Fatal(err)
	}
	if rec.Encoder() == nil {
		t.Error("Encoder is nil while recording")
	}
	if err := rec.Begin("b"); !errors.Is(err, ErrRecorderState) {
		t.Fatalf("Begin while recording: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	if rec.State() != RecorderClosed || rec.Encoder() != nil {
		t.Fatalf("after Close: state %s", rec.State())
	}
	first, err := rec.Submit()
	if err != nil {
		t.Fatal(err)
	}
	rec.Reset()

	if err := rec.Begin("c"); err != nil {
		t.Fatal(err)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	second, err := rec.Submit()
	if err != nil {
		t.Fatal(err)
	}
	rec.Reset()
	if second <= first {
		t.Errorf("completion values %d then %d", first, second)
	}
	if c.LastSignaled() != second {
		t.Errorf("LastSignaled = %d, want %d", c.LastSignaled(), second)
	}
}

func TestTransitionRules(t *testing.T) {
	c, _ := newSimContext(t, simgpu.Config{})
	tex, err := c.NewResources().AllocateDeviceTexture("t", 4, 4, SurfaceFormat,
		gputypes.TextureUsageCopyDst|gputypes.TextureUsageCopySrc, StateCopyDest)
	if err != nil {
		t.Fatal(err)
	}
	rec := c.NewRecorder()
	if err := rec.Transition(tex, StateCopySource); !errors.Is(err, ErrRecorderState) {
		t.Fatalf("Transition while idle: %v", err)
	}
	if err := rec.Begin("rules"); err != nil {
		t.Fatal(err)
	}
	defer rec.Abort()

	if err := rec.Transition(tex, StateCopyDest); err != nil {
		t.Errorf("same-state transition: %v", err)
	}
	if len(rec.Transitions()) != 0 {
		t.Errorf("same-state transition was recorded")
	}
	if err := rec.Transition(tex, StateReadWrite); !errors.Is(err, ErrTransitionImbalance) {
		t.Errorf("transition outside usage: %v", err)
	}
	if err := rec.Transition(tex, StateUndefined); !errors.Is(err, ErrTransitionImbalance) {
		t.Errorf("transition to undefined: %v", err)
	}
	if err := rec.Transition(tex, StateCopySource); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	want := TransitionRecord{Texture: "t", From: StateCopyDest, To: StateCopySource}
	if got := rec.Transitions(); len(got) != 1 || got[0] != want {
		t.Errorf("Transitions = %+v", got)
	}
	if err := rec.Expect(tex, StateCopyDest); !errors.Is(err, ErrTransitionImbalance) {
		t.Errorf("Expect stale state: %v", err)
	}
}

func TestStateUsageRoundTrip(t *testing.T) {
	for _, s := range []State{StateUndefined, StateRenderTarget, StateShaderRead, StateReadWrite, StateCopySource, StateCopyDest} {
		got, ok := StateFromUsage(s.Usage())
		if !ok || got != s {
			t.Errorf("StateFromUsage(%s.Usage()) = %s, %v", s, got, ok)
		}
	}
	if _, ok := StateFromUsage(gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst); ok {
		t.Error("combined usage mapped to a state")
	}
	if got := State(99).String(); got != "Unknown(99)" {
		t.Errorf("String = %q", got)
	}
}

func TestViewTableOffsets(t *testing.T) {
	c, _ := newSimContext(t, simgpu.Config{ViewStride: 64})
	if c.ViewStride() != 64 {
		t.Fatalf("ViewStride = %d", c.ViewStride())
	}
	r := c.NewResources()
	first, err := NewDirectCopy().Setup(r, gradientParams(4, 4))
	if err != nil {
		t.Fatal(err)
	}
	cp, err := r.BuildComputePipeline("vt", bytecode(t, computeShader(4)), SurfaceFormat)
	if err != nil {
		t.Fatalf("BuildComputePipeline: %v", err)
	}
	a, err := r.BuildViewTable("a", cp.BindLayout, ViewSlot{View: first.Source.View()}, ViewSlot{View: first.Dest.View()})
	if err != nil {
		t.Fatalf("BuildViewTable: %v", err)
	}
	b, err := r.BuildViewTable("b", cp.BindLayout, ViewSlot{View: first.Source.View()}, ViewSlot{View: first.Dest.View()})
	if err != nil {
		t.Fatalf("BuildViewTable: %v", err)
	}
	if a.Len() != 2 || a.Offset(1) != a.Base()+64 {
		t.Errorf("a: len %d, offset(1) %d, base %d", a.Len(), a.Offset(1), a.Base())
	}
	if b.Base() != a.Base()+2*64 {
		t.Errorf("b.Base = %d, want %d", b.Base(), a.Base()+128)
	}
	if _, err := r.BuildViewTable("empty", cp.BindLayout); !errors.Is(err, ErrAllocationFailure) {
		t.Errorf("empty table: %v", err)
	}
}
