package bench

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// completion submits command buffers and blocks until they finish.
//
// The completion value signaled for each submission is the queue's
// submission index, which must increase strictly. Waiting is unconditional:
// there is no timeout and no polling loop, so a device hang blocks forever.
type completion struct {
	device hal.Device
	queue  hal.Queue

	// last is the most recent value signaled.
	last uint64
}

func newCompletion(device hal.Device, queue hal.Queue) *completion {
	return &completion{device: device, queue: queue}
}

// submit hands cmd to the queue and returns the value that signals its
// completion.
func (c *completion) submit(cmd hal.CommandBuffer) (uint64, error) {
	value, err := c.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		return 0, submitFailure("queue submit", err)
	}
	if value <= c.last {
		return 0, submitFailure(fmt.Sprintf("completion value %d not above previous %d", value, c.last), nil)
	}
	c.last = value
	return value, nil
}

// wait blocks until value has been reached.
func (c *completion) wait(value uint64) error {
	if err := c.device.WaitIdle(); err != nil {
		return submitFailure("wait for completion", err)
	}
	if done := c.queue.PollCompleted(); done < value {
		return submitFailure(fmt.Sprintf("device idle at completion %d, want %d", done, value), nil)
	}
	return nil
}
