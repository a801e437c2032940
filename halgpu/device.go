package halgpu

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/wsi"
	"github.com/gogpu/wsi/swapchain"
)

// DefaultPollInterval is how often the worker polls PollCompleted while a
// batch is in flight.
const DefaultPollInterval = 100 * time.Microsecond

// Option configures a Device.
type Option func(*Device)

// WithPollInterval sets the completion poll interval.
// Non-positive values select DefaultPollInterval.
func WithPollInterval(d time.Duration) Option {
	return func(dev *Device) {
		if d > 0 {
			dev.poll = d
		}
	}
}

// Device is a swapchain.Device backed by a HAL device and queue.
type Device struct {
	hd    hal.Device
	poll  time.Duration
	queue *Queue
}

var _ swapchain.Device = (*Device)(nil)

// NewDevice wraps a HAL device and its queue. The Device does not take
// ownership of either; Close only stops the submission worker.
func NewDevice(hd hal.Device, hq hal.Queue, opts ...Option) *Device {
	d := &Device{hd: hd, poll: DefaultPollInterval}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = newQueue(hq, d.poll)
	wsi.Logger().Debug("halgpu device ready", "poll", d.poll)
	return d
}

// Queue returns the submission queue.
func (d *Device) Queue() swapchain.Queue {
	return d.queue
}

// HALQueue returns the submission queue with its concrete type.
func (d *Device) HALQueue() *Queue {
	return d.queue
}

// HAL returns the wrapped HAL device.
func (d *Device) HAL() hal.Device {
	return d.hd
}

// NewFence returns an unsignaled fence usable with this device's queue.
func (d *Device) NewFence() *Fence {
	return NewFence()
}

// NewSemaphore returns an unsignaled semaphore usable with this device's
// queue.
func (d *Device) NewSemaphore() *Semaphore {
	return NewSemaphore()
}

// CreateTexture creates a single-level 2D texture for a swapchain image.
func (d *Device) CreateTexture(label string, format gputypes.TextureFormat, extent gputypes.Extent3D, usage gputypes.TextureUsage) (hal.Texture, error) {
	if usage == 0 {
		usage = gputypes.TextureUsageRenderAttachment
	}
	tex, err := d.hd.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              extent.Width,
			Height:             extent.Height,
			DepthOrArrayLayers: max(extent.DepthOrArrayLayers, 1),
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("halgpu: create texture %q: %w", label, wsi.FromHAL(err))
	}
	return tex, nil
}

// Close stops the submission worker. Submissions still waiting for a
// semaphore fail with an error wrapping hal.ErrDeviceLost. Close is
// idempotent.
func (d *Device) Close() {
	d.queue.close()
}
