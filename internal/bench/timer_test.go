package bench

import (
	"errors"
	"math"
	"testing"

	"github.com/gogpu/copybench/internal/simgpu"
)

func TestTimerNesting(t *testing.T) {
	c, _ := newSimContext(t, simgpu.Config{})
	timer, err := c.NewResources().NewTimer("nest")
	if err != nil {
		t.Fatalf("NewTimer: %v", err)
	}
	rec := c.NewRecorder()
	if err := rec.Begin("nest"); err != nil {
		t.Fatal(err)
	}
	defer rec.Abort()

	if err := timer.EndTiming(rec); !errors.Is(err, ErrTimerNotStarted) {
		t.Fatalf("EndTiming before start: %v, want ErrTimerNotStarted", err)
	}
	if err := timer.StartTiming(rec); err != nil {
		t.Fatalf("StartTiming: %v", err)
	}
	if !timer.Measuring() {
		t.Error("Measuring = false after StartTiming")
	}
	if err := timer.StartTiming(rec); !errors.Is(err, ErrTimerInUse) {
		t.Fatalf("nested StartTiming: %v, want ErrTimerInUse", err)
	}
	if err := timer.EndTiming(rec); err != nil {
		t.Fatalf("EndTiming: %v", err)
	}
	if timer.Measuring() {
		t.Error("Measuring = true after EndTiming")
	}
}

func TestTimerRequiresRecording(t *testing.T) {
	c, _ := newSimContext(t, simgpu.Config{})
	timer, err := c.NewResources().NewTimer("idle")
	if err != nil {
		t.Fatalf("NewTimer: %v", err)
	}
	if err := timer.StartTiming(c.NewRecorder()); !errors.Is(err, ErrRecorderState) {
		t.Fatalf("StartTiming on idle recorder: %v, want ErrRecorderState", err)
	}
}

func TestTimerMeasuresSubmission(t *testing.T) {
	c, _ := newSimContext(t, simgpu.Config{TimestampPeriod: 2})
	if got := c.Frequency(); got != 5e8 {
		t.Fatalf("Frequency = %v, want 5e8", got)
	}
	timer, err := c.NewResources().NewTimer("measure")
	if err != nil {
		t.Fatalf("NewTimer: %v", err)
	}
	err = c.Immediate("measure", func(rec *Recorder) error {
		if err := timer.StartTiming(rec); err != nil {
			return err
		}
		return timer.EndTiming(rec)
	})
	if err != nil {
		t.Fatalf("Immediate: %v", err)
	}
	s, err := timer.GetTiming()
	if err != nil {
		t.Fatalf("GetTiming: %v", err)
	}
	if s.End < s.Start {
		t.Errorf("end %d before start %d", s.End, s.Start)
	}
	if us := s.Microseconds(); math.IsNaN(us) || math.IsInf(us, 0) || us < 0 {
		t.Errorf("Microseconds = %v", us)
	}
}

func TestTimerSampleValidate(t *testing.T) {
	tests := []struct {
		name string
		s    TimerSample
		ok   bool
	}{
		{"forward", TimerSample{Start: 10, End: 30, Frequency: 1e9}, true},
		{"equal", TimerSample{Start: 10, End: 10, Frequency: 1e9}, true},
		{"backwards", TimerSample{Start: 30, End: 10, Frequency: 1e9}, false},
		{"zero frequency", TimerSample{Start: 1, End: 2}, false},
		{"infinite frequency", TimerSample{Start: 1, End: 2, Frequency: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidTimestamp) {
				t.Errorf("Validate = %v, want ErrInvalidTimestamp", err)
			}
		})
	}
}

func TestTimerSampleMicroseconds(t *testing.T) {
	s := TimerSample{Start: 1000, End: 3500, Frequency: 1e6}
	if got := s.Ticks(); got != 2500 {
		t.Errorf("Ticks = %d", got)
	}
	if got := s.Microseconds(); !near(got, 2500) {
		t.Errorf("Microseconds = %v, want 2500", got)
	}
}
