package bench

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultIterations is the number of iterations per strategy used for
// steady-state averages.
const DefaultIterations = 16384

// DriverState is the phase of the benchmark loop.
type DriverState int

const (
	// DriverIdle means no iteration is in progress.
	DriverIdle DriverState = iota

	// DriverRecording means the iteration's commands are being recorded.
	DriverRecording

	// DriverSubmitted means the commands were handed to the queue.
	DriverSubmitted

	// DriverWaitingOnCompletion means the CPU is blocked on the completion value.
	DriverWaitingOnCompletion
)

// String returns the string representation of DriverState.
func (s DriverState) String() string {
	switch s {
	case DriverIdle:
		return "Idle"
	case DriverRecording:
		return "Recording"
	case DriverSubmitted:
		return "Submitted"
	case DriverWaitingOnCompletion:
		return "WaitingOnCompletion"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// DumpFunc receives the destination surface read back after the loop.
// pixels holds height rows of pitch bytes in BGRA order.
type DumpFunc func(res Result, pixels []byte, width, height, pitch uint32) error

// DriverConfig configures a Driver.
type DriverConfig struct {
	// Iterations is the number of timed iterations. Zero means DefaultIterations.
	Iterations int

	// Verify compares the final readback with the source fill.
	Verify bool

	// Dump, if set, is called once after the loop, off the timed path.
	Dump DumpFunc
}

// Driver runs one strategy: set up once, then record, submit, wait and
// collect one iteration at a time. The next iteration is never recorded
// before the previous one has completed.
type Driver struct {
	ctx      *Context
	strategy Strategy
	cfg      DriverConfig

	state    DriverState
	readback []byte
}

// NewDriver returns a driver for s on c.
func NewDriver(c *Context, s Strategy, cfg DriverConfig) *Driver {
	if cfg.Iterations == 0 {
		cfg.Iterations = DefaultIterations
	}
	return &Driver{ctx: c, strategy: s, cfg: cfg}
}

// State returns the loop phase.
func (d *Driver) State() DriverState { return d.state }

// Readback returns the destination surface read back after the last Run,
// with RowPitch(width) bytes per row.
func (d *Driver) Readback() []byte { return d.readback }

// Run benchmarks the strategy. ctx is used for logging only: a run cannot be
// cancelled, and a device hang blocks it forever.
//
// Any failure aborts the run; no partial result is returned.
func (d *Driver) Run(ctx context.Context, p SetupParams) (Result, error) {
	if d.cfg.Iterations < 0 {
		return Result{}, fmt.Errorf("bench: %d iterations", d.cfg.Iterations)
	}
	s := d.strategy
	log := slogger().With("strategy", s.Name())
	if g := s.GroupSize(); g > 0 {
		log = log.With("group_size", g)
	}

	res := d.ctx.NewResources()
	defer res.Release()

	sc, err := s.Setup(res, p)
	if err != nil {
		return Result{}, fmt.Errorf("%s setup: %w", s.Description(), err)
	}
	timer, err := res.NewTimer(s.Name() + "_timer")
	if err != nil {
		return Result{}, err
	}
	if err := CheckSteady(s, sc); err != nil {
		return Result{}, err
	}

	debug := log.Enabled(ctx, slog.LevelDebug)
	rec := d.ctx.NewRecorder()
	var acc Accumulator
	for i := 0; i < d.cfg.Iterations; i++ {
		sample, err := d.iterate(rec, sc, timer)
		if err != nil {
			d.state = DriverIdle
			return Result{}, fmt.Errorf("%s iteration %d: %w", s.Description(), i, err)
		}
		acc.Add(sample.Ticks())
		if debug {
			log.DebugContext(ctx, fmt.Sprintf("took %5.1f usec (%d ticks) for %s (%4d x %4d)",
				sample.Microseconds(), sample.Ticks(), s.Description(), sc.Width, sc.Height))
		}
		if err := CheckSteady(s, sc); err != nil {
			return Result{}, fmt.Errorf("iteration %d: %w", i, err)
		}
	}

	result := Result{
		Strategy:  s.Name(),
		GroupSize: s.GroupSize(),
		Width:     sc.Width,
		Height:    sc.Height,
	}
	acc.Fill(&result, d.ctx.frequency)

	if d.readback, err = sc.Readback.Bytes(); err != nil {
		return Result{}, err
	}
	if d.cfg.Verify && acc.Count() > 0 {
		result.Verified = true
		result.Mismatches = CountMismatches(p.Fill, d.readback, sc.Width, sc.Height)
	}
	if d.cfg.Dump != nil && acc.Count() > 0 {
		if err := d.cfg.Dump(result, d.readback, sc.Width, sc.Height, RowPitch(sc.Width)); err != nil {
			return Result{}, fmt.Errorf("%s dump: %w", s.Description(), err)
		}
	}

	log.InfoContext(ctx, "bench: strategy finished",
		"width", result.Width, "height", result.Height,
		"iterations", result.Iterations, "avg_us", result.AvgMicroseconds)
	return result, nil
}

// iterate runs one full iteration and returns its timer sample.
func (d *Driver) iterate(rec *Recorder, sc *StrategyContext, timer *Timer) (TimerSample, error) {
	d.state = DriverRecording
	if err := rec.Begin(d.strategy.Name()); err != nil {
		return TimerSample{}, err
	}
	if err := d.strategy.RecordCopy(rec, sc, timer); err != nil {
		rec.Abort()
		timer.open = false
		return TimerSample{}, err
	}
	if err := rec.Close(); err != nil {
		return TimerSample{}, err
	}

	d.state = DriverSubmitted
	value, err := rec.Submit()
	if err != nil {
		rec.Reset()
		return TimerSample{}, err
	}

	d.state = DriverWaitingOnCompletion
	err = d.ctx.completion.wait(value)
	rec.Reset()
	if err != nil {
		return TimerSample{}, err
	}

	sample, err := timer.GetTiming()
	if err != nil {
		return TimerSample{}, err
	}
	d.state = DriverIdle
	return sample, nil
}
