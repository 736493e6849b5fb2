package bench

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Timestamp query slots.
const (
	queryStart uint32 = 0
	queryEnd   uint32 = 1

	timerQueryCount = 2
	timerBytes      = timerQueryCount * 8
)

// TimerSample is one resolved pair of device timestamps.
type TimerSample struct {
	Start     uint64
	End       uint64
	Frequency float64 // ticks per second
}

// Ticks returns End-Start.
func (s TimerSample) Ticks() uint64 { return s.End - s.Start }

// Microseconds returns the elapsed time between the two markers.
func (s TimerSample) Microseconds() float64 {
	return float64(s.End-s.Start) / s.Frequency * 1e6
}

// Validate reports ErrInvalidTimestamp if the sample runs backwards or its
// frequency cannot produce a finite time.
func (s TimerSample) Validate() error {
	if s.End < s.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrInvalidTimestamp, s.End, s.Start)
	}
	if s.Frequency <= 0 || math.IsInf(s.Frequency, 0) || math.IsNaN(s.Frequency) {
		return fmt.Errorf("%w: frequency %v", ErrInvalidTimestamp, s.Frequency)
	}
	return nil
}

// Timer brackets the operation under test with two timestamp markers and
// resolves them into a host-readable buffer.
//
// The same two query slots are reused every iteration, so at most one
// measurement may be open at a time: StartTiming while a measurement is open
// fails with ErrTimerInUse, EndTiming without StartTiming with
// ErrTimerNotStarted.
type Timer struct {
	ctx *Context

	queries  hal.QuerySet
	resolve  *Buffer
	readback *Buffer

	open bool
	raw  [timerBytes]byte
}

// NewTimer creates the query set and buffers of a timer.
func (r *Resources) NewTimer(label string) (*Timer, error) {
	d := r.ctx.device
	qs, err := d.CreateQuerySet(&hal.QuerySetDescriptor{
		Label: label + "_queries",
		Type:  hal.QueryTypeTimestamp,
		Count: timerQueryCount,
	})
	if err != nil {
		return nil, allocFailure(fmt.Sprintf("timestamp queries %q", label), err)
	}
	r.own(func() { d.DestroyQuerySet(qs) })

	resolve, err := r.allocateBuffer(label+"_resolve", timerBytes, BufferDevice,
		gputypes.BufferUsageQueryResolve|gputypes.BufferUsageCopySrc)
	if err != nil {
		return nil, err
	}
	readback, err := r.AllocateReadbackBuffer(label+"_readback", timerBytes)
	if err != nil {
		return nil, err
	}
	return &Timer{ctx: r.ctx, queries: qs, resolve: resolve, readback: readback}, nil
}

// StartTiming records the start marker. Everything recorded after it, up to
// EndTiming, is measured.
func (t *Timer) StartTiming(rec *Recorder) error {
	if err := rec.recording("start timing"); err != nil {
		return err
	}
	if t.open {
		return ErrTimerInUse
	}
	idx := queryStart
	pass := rec.enc.BeginComputePass(&hal.ComputePassDescriptor{
		Label: "timer_start",
		TimestampWrites: &hal.ComputePassTimestampWrites{
			QuerySet:            t.queries,
			EndOfPassWriteIndex: &idx,
		},
	})
	pass.End()
	t.open = true
	return nil
}

// EndTiming records the end marker and the resolve of both ticks into the
// timer's readback buffer.
func (t *Timer) EndTiming(rec *Recorder) error {
	if err := rec.recording("end timing"); err != nil {
		return err
	}
	if !t.open {
		return ErrTimerNotStarted
	}
	idx := queryEnd
	pass := rec.enc.BeginComputePass(&hal.ComputePassDescriptor{
		Label: "timer_end",
		TimestampWrites: &hal.ComputePassTimestampWrites{
			QuerySet:                  t.queries,
			BeginningOfPassWriteIndex: &idx,
		},
	})
	pass.End()
	rec.enc.ResolveQuerySet(t.queries, queryStart, timerQueryCount, t.resolve.raw, 0)
	rec.enc.CopyBufferToBuffer(t.resolve.raw, t.readback.raw, []hal.BufferCopy{{Size: timerBytes}})
	t.open = false
	return nil
}

// Measuring reports whether a measurement is open.
func (t *Timer) Measuring() bool { return t.open }

// GetTiming maps the readback buffer, reads both ticks, and unmaps it. The
// submission that recorded EndTiming must have completed.
func (t *Timer) GetTiming() (TimerSample, error) {
	if err := t.readback.ReadInto(t.raw[:]); err != nil {
		return TimerSample{}, err
	}
	s := TimerSample{
		Start:     binary.LittleEndian.Uint64(t.raw[0:8]),
		End:       binary.LittleEndian.Uint64(t.raw[8:16]),
		Frequency: t.ctx.frequency,
	}
	if err := s.Validate(); err != nil {
		return TimerSample{}, err
	}
	return s, nil
}
