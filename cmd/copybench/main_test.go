package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/copybench"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { copybench.SetLogger(nil) })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := newRootCmd(logger, new(slog.LevelVar))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunJSON(t *testing.T) {
	out, err := execute(t, "run", "--backend", "sim", "--width", "16", "--height", "16",
		"-n", "2", "-s", "direct-copy,compute-copy", "-g", "4,8")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var results []copybench.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Strategy != "direct-copy" || results[2].GroupSize != 8 {
		t.Errorf("results = %+v", results)
	}
}

func TestRunTable(t *testing.T) {
	out, err := execute(t, "run", "-b", "sim", "--width", "16", "--height", "16",
		"-n", "1", "-s", "pixel-blit", "-o", "table")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "| pixel-blit | 16x16 | 1 |") {
		t.Errorf("table:\n%s", out)
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	tests := [][]string{
		{"run", "-b", "sim", "-o", "yaml"},
		{"run", "-b", "sim", "--width", "0"},
		{"--log-level", "loud", "run", "-b", "sim"},
	}
	for _, args := range tests {
		if _, err := execute(t, args...); err == nil {
			t.Errorf("%v: no error", args)
		}
	}
}

func TestAdapters(t *testing.T) {
	out, err := execute(t, "adapters", "-b", "sim")
	if err != nil {
		t.Fatalf("adapters: %v", err)
	}
	if !strings.Contains(out, "Simulated GPU") || !strings.Contains(out, "*") {
		t.Errorf("adapters output:\n%s", out)
	}
}

func TestRunFlagDefaults(t *testing.T) {
	flags := newRunCmd(slog.New(slog.NewTextHandler(io.Discard, nil))).Flags()
	if got, _ := flags.GetInt("iterations"); got != copybench.DefaultIterations {
		t.Errorf("iterations default = %d, want %d", got, copybench.DefaultIterations)
	}
	got, _ := flags.GetIntSlice("group-sizes")
	if !slices.Equal(got, copybench.DefaultGroupSizes()) {
		t.Errorf("group-sizes default = %v, want %v", got, copybench.DefaultGroupSizes())
	}
}
