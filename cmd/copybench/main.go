// Package main provides the copybench CLI, which measures GPU texture copy
// latency for pixel-shader, compute-shader and direct copies.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gogpu/copybench"
	"github.com/gogpu/copybench/internal/adapter"
	"github.com/gogpu/copybench/internal/hostthread"
	"github.com/gogpu/copybench/internal/report"
	"github.com/gogpu/copybench/internal/simgpu"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	root := newRootCmd(logger, level)
	if err := root.Execute(); err != nil {
		logger.Error("copybench failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "copybench",
		Short: "Measure GPU texture copy latency",
		Long: `Copybench measures, with GPU timestamps, how long it takes to copy one
BGRA8 texture into another with a pixel-shader blit, a compute-shader
dispatch at several thread-group sizes, and a direct resource copy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			copybench.SetLogger(logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn, error")

	root.AddCommand(newRunCmd(logger), newAdaptersCmd())
	return root
}

type runConfig struct {
	width, height uint32
	iterations    int
	backend       string
	strategies    []string
	groupSizes    []int
	fill          string
	seed          uint64
	dumpDir       string
	dumpFormat    string
	verify        bool
	pin           bool
	cpu           int
	format        string
	lang          string
	sim           copybench.SimConfig
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark the copy strategies",
		Long: `Open a device, benchmark every selected strategy one after another and
print a table (on a terminal) or JSON (otherwise).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.pin = cmd.Flags().Changed("cpu") || cfg.pin
			return runBenchmark(cmd.Context(), logger, cmd.OutOrStdout(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.Uint32Var(&cfg.width, "width", copybench.DefaultWidth, "Surface width in pixels")
	flags.Uint32Var(&cfg.height, "height", copybench.DefaultHeight, "Surface height in pixels")
	flags.IntVarP(&cfg.iterations, "iterations", "n", copybench.DefaultIterations, "Timed iterations per strategy")
	flags.StringVarP(&cfg.backend, "backend", "b", adapter.BackendAuto,
		"Backend: "+strings.Join(adapter.Names, ", "))
	flags.StringSliceVarP(&cfg.strategies, "strategies", "s", nil,
		"Strategies to run (default pixel-blit,compute-copy,direct-copy)")
	flags.IntSliceVarP(&cfg.groupSizes, "group-sizes", "g", copybench.DefaultGroupSizes(),
		"Compute-copy thread-group sizes")
	flags.StringVar(&cfg.fill, "fill", string(copybench.FillGradient), "Source fill: gradient, random")
	flags.Uint64Var(&cfg.seed, "seed", 1, "Seed for --fill random")
	flags.StringVar(&cfg.dumpDir, "dump-dir", "", "Write each strategy's readback as an image to this directory")
	flags.StringVar(&cfg.dumpFormat, "dump-format", "png", "Dump format: png, bmp, tiff")
	flags.BoolVar(&cfg.verify, "verify", true, "Compare each readback with the source")
	flags.BoolVar(&cfg.pin, "pin", false, "Lock the benchmark to one OS thread")
	flags.IntVar(&cfg.cpu, "cpu", hostthread.AnyCPU, "Pin the benchmark thread to this CPU (implies --pin)")
	flags.StringVarP(&cfg.format, "format", "o", "", "Output: table, json (default table on a terminal, json otherwise)")
	flags.StringVar(&cfg.lang, "lang", "en", "Locale for table numbers")
	flags.Uint64Var(&cfg.sim.MemoryBudget, "sim-memory", 0, "Simulated device memory budget in bytes (0 = unlimited)")
	flags.IntVar(&cfg.sim.FailSubmitAfter, "sim-fail-after", 0, "Fail simulated submissions after this many (0 = never)")

	return cmd
}

func runBenchmark(ctx context.Context, logger *slog.Logger, out io.Writer, cfg runConfig) error {
	format, err := outputFormat(cfg.format, out)
	if err != nil {
		return err
	}

	opts := []copybench.Option{
		copybench.WithSize(cfg.width, cfg.height),
		copybench.WithIterations(cfg.iterations),
		copybench.WithBackend(cfg.backend),
		copybench.WithGroupSizes(cfg.groupSizes...),
		copybench.WithFill(copybench.Fill(cfg.fill)),
		copybench.WithSeed(cfg.seed),
		copybench.WithVerify(cfg.verify),
		copybench.WithSink(report.LogSink{Logger: logger}),
		copybench.WithSimConfig(cfg.sim),
	}
	if len(cfg.strategies) > 0 {
		s := make([]copybench.Strategy, len(cfg.strategies))
		for i, name := range cfg.strategies {
			s[i] = copybench.Strategy(strings.TrimSpace(name))
		}
		opts = append(opts, copybench.WithStrategies(s...))
	}
	if cfg.dumpDir != "" {
		opts = append(opts, copybench.WithDumpDir(cfg.dumpDir), copybench.WithDumpFormat(cfg.dumpFormat))
	}
	if cfg.pin {
		opts = append(opts, copybench.WithPinnedCPU(cfg.cpu))
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.String("backend", cfg.backend),
		slog.Uint64("width", uint64(cfg.width)),
		slog.Uint64("height", uint64(cfg.height)),
		slog.Int("iterations", cfg.iterations),
	)

	results, err := copybench.Run(ctx, opts...)
	if err != nil {
		return err
	}

	if format == "json" {
		if err := report.GenerateJSON(out, results); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
		return nil
	}
	if err := report.Generate(out, report.Printer(cfg.lang), results); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	return nil
}

// outputFormat resolves the report format. Without an explicit choice a
// terminal gets a table and anything else gets JSON.
func outputFormat(flag string, out io.Writer) (string, error) {
	switch flag {
	case "table", "json":
		return flag, nil
	case "":
		if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return "table", nil
		}
		return "json", nil
	}
	return "", fmt.Errorf("unknown --format %q (want table or json)", flag)
}

func newAdaptersCmd() *cobra.Command {
	var backend string

	cmd := &cobra.Command{
		Use:   "adapters",
		Short: "List the adapters every backend exposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cands, err := adapter.List(backend, simgpu.Config{})
			if err != nil {
				return err
			}
			return printAdapters(cmd.OutOrStdout(), cands)
		},
	}
	cmd.Flags().StringVarP(&backend, "backend", "b", adapter.BackendAuto,
		"Backend: "+strings.Join(adapter.Names, ", "))
	return cmd
}

func printAdapters(out io.Writer, cands []adapter.Candidate) error {
	if len(cands) == 0 {
		_, err := fmt.Fprintln(out, "no adapters found")
		return err
	}
	best, _ := adapter.Select(cands)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tBACKEND\tNAME\tTYPE\tVENDOR\tDEVICE\tDRIVER\tUSABLE")
	for i, c := range cands {
		info := c.Info()
		mark := ""
		if i == best {
			mark = "*"
		}
		usable := "yes"
		if !c.Usable() {
			usable = "missing " + featureList(c)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%#04x\t%#04x\t%s\t%s\n",
			mark, c.Source, info.Name, info.DeviceType, info.VendorID, info.DeviceID, info.Driver, usable)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if f := hostthread.Features(); len(f) > 0 {
		_, err := fmt.Fprintf(out, "\nhost CPU: %s\n", strings.Join(f, " "))
		return err
	}
	return nil
}

func featureList(c adapter.Candidate) string {
	names := make([]string, len(c.Missing))
	for i, f := range c.Missing {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}
