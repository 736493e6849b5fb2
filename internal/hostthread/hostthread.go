// Package hostthread keeps the benchmark goroutine on one OS thread, and
// optionally on one CPU, for the duration of a run.
package hostthread

import (
	"errors"
	"runtime"

	"golang.org/x/sys/cpu"
)

// AnyCPU leaves the CPU affinity unchanged.
const AnyCPU = -1

// ErrUnsupported is returned when a CPU is requested on a platform without
// affinity control.
var ErrUnsupported = errors.New("hostthread: CPU affinity not supported on this platform")

// ErrInvalidCPU is returned for a CPU index the process may not run on.
var ErrInvalidCPU = errors.New("hostthread: invalid CPU")

// Pin locks the calling goroutine to its OS thread and, unless cpu is
// AnyCPU, restricts that thread to cpu. The returned function restores the
// previous affinity and unlocks the thread; it must be called on the same
// goroutine.
func Pin(cpu int) (release func(), err error) {
	runtime.LockOSThread()
	if cpu == AnyCPU {
		return runtime.UnlockOSThread, nil
	}
	restore, err := setAffinity(cpu)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return func() {
		restore()
		runtime.UnlockOSThread()
	}, nil
}

// Features lists the vector extensions of the host CPU, for run metadata.
func Features() []string {
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}
	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE41, "sse4.1")
		add(cpu.X86.HasAVX, "avx")
		add(cpu.X86.HasAVX2, "avx2")
		add(cpu.X86.HasFMA, "fma")
		add(cpu.X86.HasAVX512F, "avx512f")
	case "arm64":
		add(cpu.ARM64.HasASIMD, "asimd")
		add(cpu.ARM64.HasFPHP, "fphp")
		add(cpu.ARM64.HasSVE, "sve")
	}
	return out
}
