//go:build linux

package hostthread

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func setAffinity(cpu int) (restore func(), err error) {
	var old unix.CPUSet
	if err := unix.SchedGetaffinity(0, &old); err != nil {
		return nil, fmt.Errorf("hostthread: get affinity: %w", err)
	}
	if cpu < 0 || !old.IsSet(cpu) {
		return nil, fmt.Errorf("%w: %d (allowed: %d CPUs)", ErrInvalidCPU, cpu, old.Count())
	}
	var set unix.CPUSet
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("hostthread: set affinity: %w", err)
	}
	return func() { _ = unix.SchedSetaffinity(0, &old) }, nil
}
