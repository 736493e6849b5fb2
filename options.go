package copybench

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/copybench/internal/adapter"
	"github.com/gogpu/copybench/internal/bench"
	"github.com/gogpu/copybench/internal/hostthread"
	"github.com/gogpu/copybench/internal/imagedump"
)

// Strategy names a copy strategy.
type Strategy string

// Copy strategies, in the order Run benchmarks them by default.
const (
	PixelBlit   Strategy = "pixel-blit"
	ComputeCopy Strategy = "compute-copy"
	DirectCopy  Strategy = "direct-copy"
)

// Strategies lists every strategy in default order.
var Strategies = []Strategy{PixelBlit, ComputeCopy, DirectCopy}

// Fill names the source image pattern.
type Fill string

// Source fills.
const (
	// FillGradient sets every channel of texel (x, y) to (x+y) mod 256.
	FillGradient Fill = "gradient"
	// FillRandom uses seeded pseudo-random texels.
	FillRandom Fill = "random"
)

// Defaults.
const (
	DefaultWidth      = 1024
	DefaultHeight     = 1024
	DefaultIterations = bench.DefaultIterations
)

// DefaultGroupSizes returns the compute-copy group sizes used when
// WithGroupSizes is not given.
func DefaultGroupSizes() []int { return slices.Clone(bench.DefaultGroupSizes) }

// SimConfig tunes the simulated device selected with WithBackend("sim").
type SimConfig struct {
	// MemoryBudget caps live resource bytes; zero is unlimited.
	MemoryBudget uint64
	// FailSubmitAfter makes submissions after the first N fail; zero disables it.
	FailSubmitAfter int
	// ViewStride is the reported view-table stride; zero uses the default.
	ViewStride uint32
	// TimestampPeriod is nanoseconds per tick; zero means 1.
	TimestampPeriod float32
}

// Sink receives each result as soon as its strategy finishes.
type Sink interface {
	Emit(Result)
}

// Option configures Run.
//
// Example:
//
//	results, err := copybench.Run(ctx,
//	    copybench.WithSize(2048, 2048),
//	    copybench.WithStrategies(copybench.ComputeCopy),
//	    copybench.WithGroupSizes(8, 16),
//	)
type Option func(*options)

type options struct {
	width, height uint32
	iterations    int
	backend       string
	strategies    []Strategy
	groupSizes    []int
	fill          Fill
	seed          uint64
	dumpDir       string
	dumpFormat    string
	verify        bool
	pin           bool
	cpu           int
	sink          Sink
	sim           SimConfig
}

func defaultOptions() options {
	return options{
		width:      DefaultWidth,
		height:     DefaultHeight,
		iterations: bench.DefaultIterations,
		backend:    adapter.BackendAuto,
		strategies: slices.Clone(Strategies),
		groupSizes: slices.Clone(bench.DefaultGroupSizes),
		fill:       FillGradient,
		seed:       1,
		cpu:        hostthread.AnyCPU,
	}
}

// WithSize sets the surface dimensions. The default is 1024 x 1024.
func WithSize(width, height uint32) Option {
	return func(o *options) {
		o.width, o.height = width, height
	}
}

// WithIterations sets the timed iterations per strategy. The default is
// 16384.
func WithIterations(n int) Option {
	return func(o *options) {
		o.iterations = n
	}
}

// WithBackend selects the HAL backend: auto, vulkan, metal, dx12, gl,
// software or sim.
func WithBackend(name string) Option {
	return func(o *options) {
		o.backend = strings.ToLower(strings.TrimSpace(name))
	}
}

// WithStrategies restricts the run to the given strategies, benchmarked in
// the given order.
func WithStrategies(s ...Strategy) Option {
	return func(o *options) {
		o.strategies = slices.Clone(s)
	}
}

// WithGroupSizes sets the compute-copy variants. Each size must divide both
// surface dimensions.
func WithGroupSizes(sizes ...int) Option {
	return func(o *options) {
		o.groupSizes = slices.Clone(sizes)
	}
}

// WithFill selects the source pattern.
func WithFill(f Fill) Option {
	return func(o *options) {
		o.fill = f
	}
}

// WithSeed seeds FillRandom.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithDumpDir writes each strategy's final readback as an image under dir.
func WithDumpDir(dir string) Option {
	return func(o *options) {
		o.dumpDir = dir
	}
}

// WithDumpFormat sets the dump encoding: png (default), bmp or tiff.
func WithDumpFormat(format string) Option {
	return func(o *options) {
		o.dumpFormat = format
	}
}

// WithVerify compares each strategy's final readback with the source and
// records the mismatch count in the result.
func WithVerify(on bool) Option {
	return func(o *options) {
		o.verify = on
	}
}

// WithPinnedCPU locks the run to one OS thread and, unless cpu is negative,
// to that CPU.
func WithPinnedCPU(cpu int) Option {
	return func(o *options) {
		o.pin = true
		o.cpu = max(cpu, hostthread.AnyCPU)
	}
}

// WithSink sends every result to s as its strategy finishes.
func WithSink(s Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithSimConfig tunes the simulated device.
func WithSimConfig(c SimConfig) Option {
	return func(o *options) {
		o.sim = c
	}
}

// validate checks the options before any device work.
func (o *options) validate() error {
	if o.width == 0 || o.height == 0 {
		return invalid("size %dx%d", o.width, o.height)
	}
	if o.width > bench.MaxDimension || o.height > bench.MaxDimension {
		return invalid("size %dx%d exceeds %d", o.width, o.height, bench.MaxDimension)
	}
	if o.iterations <= 0 {
		return invalid("%d iterations", o.iterations)
	}
	if !slices.Contains(adapter.Names, o.backend) {
		return invalid("backend %q (want one of %s)", o.backend, strings.Join(adapter.Names, ", "))
	}
	if len(o.strategies) == 0 {
		return invalid("no strategies")
	}
	seen := make(map[Strategy]bool, len(o.strategies))
	for _, s := range o.strategies {
		if !slices.Contains(Strategies, s) {
			return invalid("unknown strategy %q", s)
		}
		if seen[s] {
			return invalid("strategy %q listed twice", s)
		}
		seen[s] = true
	}
	if seen[ComputeCopy] {
		if len(o.groupSizes) == 0 {
			return invalid("compute-copy without group sizes")
		}
		for _, g := range o.groupSizes {
			if g <= 0 || o.width%uint32(g) != 0 || o.height%uint32(g) != 0 {
				return invalid("group size %d does not divide %dx%d", g, o.width, o.height)
			}
		}
	}
	if o.fill != FillGradient && o.fill != FillRandom {
		return invalid("unknown fill %q", o.fill)
	}
	if _, err := imagedump.ParseFormat(o.dumpFormat); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOptions, fmt.Sprintf(format, args...))
}
