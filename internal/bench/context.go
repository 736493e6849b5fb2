package bench

import (
	"github.com/gogpu/wgpu/hal"
)

// viewStrider is implemented by devices that report the distance between
// consecutive slots of a shader-visible view table.
type viewStrider interface {
	ViewStride() uint32
}

// scope owns a set of device objects and releases them in reverse order of
// acquisition. It is how every created resource gets released on all exit
// paths, including early aborts during setup.
type scope struct {
	releases []func()
}

// own registers release to run when the scope is closed.
func (s *scope) own(release func()) {
	s.releases = append(s.releases, release)
}

// close runs all registered releases, newest first. Safe to call twice.
func (s *scope) close() {
	for i := len(s.releases) - 1; i >= 0; i-- {
		s.releases[i]()
	}
	s.releases = nil
}

// Context is the device, queue, and completion counter exclusively owned by
// one benchmark process. It is not safe for concurrent use: a single
// goroutine drives everything recorded against it.
type Context struct {
	device hal.Device
	queue  hal.Queue

	completion *completion

	// frequency is the timestamp tick rate in ticks per second.
	frequency float64

	// viewStride is the slot distance used by view tables.
	viewStride uint32

	// nextViewBase is where the next view table starts.
	nextViewBase uint64

	scope
}

// NewContext wraps an opened device and its queue. The caller keeps
// ownership of device and queue; Close releases only what the context and
// its allocators created.
func NewContext(device hal.Device, queue hal.Queue) *Context {
	period := float64(queue.GetTimestampPeriod())
	if period <= 0 {
		period = 1
	}
	stride := uint32(1)
	if vs, ok := device.(viewStrider); ok && vs.ViewStride() > 0 {
		stride = vs.ViewStride()
	}
	return &Context{
		device:     device,
		queue:      queue,
		completion: newCompletion(device, queue),
		frequency:  1e9 / period,
		viewStride: stride,
	}
}

// Device returns the HAL device.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the HAL queue.
func (c *Context) Queue() hal.Queue { return c.queue }

// Frequency returns the timestamp tick frequency in ticks per second.
func (c *Context) Frequency() float64 { return c.frequency }

// ViewStride returns the slot distance used by view tables.
func (c *Context) ViewStride() uint32 { return c.viewStride }

// LastSignaled returns the most recent completion value handed out.
func (c *Context) LastSignaled() uint64 { return c.completion.last }

// Close waits for the device to drain and releases every object the
// context owns, newest first.
func (c *Context) Close() {
	if err := c.device.WaitIdle(); err != nil {
		slogger().Warn("bench: wait idle before release", "err", err)
	}
	c.scope.close()
}
