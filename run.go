package copybench

import (
	"context"
	"errors"
	"fmt"

	"github.com/gogpu/copybench/internal/adapter"
	"github.com/gogpu/copybench/internal/bench"
	"github.com/gogpu/copybench/internal/hostthread"
	"github.com/gogpu/copybench/internal/imagedump"
	"github.com/gogpu/copybench/internal/shaders"
	"github.com/gogpu/copybench/internal/simgpu"
)

// Result is the outcome of one strategy or group-size variant.
type Result = bench.Result

// Run opens a device, benchmarks every configured strategy on it one after
// another and returns the results in order.
//
// Run blocks the calling goroutine for the whole run. Each iteration is
// waited on without a timeout, so a device hang blocks Run forever; ctx is
// only used for logging. Any failure aborts the run and returns no results.
func Run(ctx context.Context, opts ...Option) ([]Result, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	log := Logger()

	if o.pin {
		release, err := hostthread.Pin(o.cpu)
		if err != nil {
			return nil, err
		}
		defer release()
		log.DebugContext(ctx, "copybench: thread pinned", "cpu", o.cpu, "features", hostthread.Features())
	}

	strategies, err := buildStrategies(o)
	if err != nil {
		return nil, err
	}

	dev, err := adapter.Open(o.backend, simgpu.Config(o.sim))
	if err != nil {
		return nil, err
	}
	defer dev.Close()
	info := dev.AdapterInfo()
	log.InfoContext(ctx, "copybench: device ready",
		"adapter", info.Name, "type", info.Type.String(), "backend", dev.Backend)

	c := bench.NewContext(dev.Device, dev.Queue)
	defer c.Close()

	params := bench.SetupParams{Width: o.width, Height: o.height}
	switch o.fill {
	case FillRandom:
		params.Fill = bench.RandomFill(o.width, o.height, o.seed)
	default:
		params.Fill = bench.GradientFill(o.width, o.height)
	}

	cfg := bench.DriverConfig{Iterations: o.iterations, Verify: o.verify}
	if o.dumpDir != "" {
		format, _ := imagedump.ParseFormat(o.dumpFormat)
		w := imagedump.Writer{Dir: o.dumpDir, Format: format}
		path, err := w.Save(imagedump.Source, 0, params.Fill, o.width, o.height, bench.RowPitch(o.width))
		if err != nil {
			return nil, err
		}
		log.InfoContext(ctx, "copybench: source saved", "path", path)
		cfg.Dump = func(res bench.Result, pixels []byte, width, height, pitch uint32) error {
			path, err := w.Save(res.Strategy, res.GroupSize, pixels, width, height, pitch)
			if err != nil {
				return err
			}
			log.InfoContext(ctx, "copybench: readback saved", "strategy", res.Strategy, "path", path)
			return nil
		}
	}

	results := make([]Result, 0, len(strategies))
	for _, s := range strategies {
		r, err := bench.NewDriver(c, s, cfg).Run(ctx, params)
		if err != nil {
			return nil, err
		}
		if o.sink != nil {
			o.sink.Emit(r)
		}
		results = append(results, r)
	}
	return results, nil
}

// buildStrategies compiles every shader the configured strategies need.
// Compilation happens before the device is opened.
func buildStrategies(o options) ([]bench.Strategy, error) {
	var out []bench.Strategy
	for _, name := range o.strategies {
		switch name {
		case PixelBlit:
			vs, err := compile(shaders.Vertex())
			if err != nil {
				return nil, err
			}
			ps, err := compile(shaders.Pixel())
			if err != nil {
				return nil, err
			}
			out = append(out, bench.NewPixelBlit(vs, ps))
		case ComputeCopy:
			for _, g := range o.groupSizes {
				cs, err := compile(shaders.Compute(g))
				if err != nil {
					return nil, err
				}
				out = append(out, bench.NewComputeCopy(g, cs))
			}
		case DirectCopy:
			out = append(out, bench.NewDirectCopy())
		default:
			return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidOptions, name)
		}
	}
	return out, nil
}

// compile converts a shader module into bytecode, or its failure into a
// CompileError.
func compile(m *shaders.Module, err error) (bench.Bytecode, error) {
	if err != nil {
		var se *shaders.Error
		if errors.As(err, &se) {
			return bench.Bytecode{}, &bench.CompileError{Stage: se.Label, Diagnostic: se.Diagnostic, Err: err}
		}
		return bench.Bytecode{}, &bench.CompileError{Stage: "unknown", Err: err}
	}
	return bench.Bytecode{Label: m.Label, Stage: m.Stage, EntryPoint: m.EntryPoint, SPIRV: m.SPIRV}, nil
}
