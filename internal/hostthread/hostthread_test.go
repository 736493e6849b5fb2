package hostthread

import (
	"errors"
	"runtime"
	"testing"
)

func TestPinAnyCPU(t *testing.T) {
	release, err := Pin(AnyCPU)
	if err != nil {
		t.Fatalf("Pin: %v", err)
	}
	release()
}

func TestPinInvalidCPU(t *testing.T) {
	_, err := Pin(1 << 16)
	if runtime.GOOS == "linux" {
		if !errors.Is(err, ErrInvalidCPU) {
			t.Errorf("Pin = %v, want ErrInvalidCPU", err)
		}
		return
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Pin = %v, want ErrUnsupported", err)
	}
}

func TestPinFirstAllowedCPU(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("affinity is linux only")
	}
	for cpu := 0; cpu < runtime.NumCPU()*4; cpu++ {
		release, err := Pin(cpu)
		if errors.Is(err, ErrInvalidCPU) {
			continue
		}
		if err != nil {
			t.Fatalf("Pin(%d): %v", cpu, err)
		}
		release()
		return
	}
	t.Skip("no allowed CPU found")
}
