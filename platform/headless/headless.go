// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package headless is a display backend without a display. Every flip is
// recorded and can be observed through a frame hook, which makes it the
// backend for tests, offscreen rendering and CI.
package headless

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/wsi"
	"github.com/gogpu/wsi/alloc"
	"github.com/gogpu/wsi/halgpu"
	"github.com/gogpu/wsi/platform"
	"github.com/gogpu/wsi/swapchain"
)

// Errors returned by Init and CreateImage.
var (
	// ErrUnsupportedFormat is returned for formats without a known texel
	// size.
	ErrUnsupportedFormat = errors.New("headless: unsupported format")

	// ErrWrongDevice is returned when the swapchain device is not the
	// halgpu device the platform was created with.
	ErrWrongDevice = errors.New("headless: device mismatch")
)

// Frame describes one flip.
type Frame struct {
	// Seq counts flips, starting at 1.
	Seq uint64

	// Index is the swapchain image index that went on screen.
	Index int

	// Image is the image that went on screen.
	Image *Image

	// Time is when the flip happened.
	Time time.Time
}

// Image is the handle of a headless swapchain image.
type Image struct {
	// Texture is the GPU texture the client renders into.
	Texture hal.Texture

	// Buffer is the scanout memory behind the texture.
	Buffer *alloc.Buffer

	// Stride is the row pitch of Buffer in bytes.
	Stride int
}

// Option configures a Platform.
type Option func(*Platform)

// WithAllocator sets the allocator for image memory.
// The default is the best registered allocator.
func WithAllocator(a alloc.Allocator) Option {
	return func(p *Platform) {
		p.alloc = a
	}
}

// WithFrameHook sets a function called for every flip, on the flip
// goroutine, before the previous image is given back. A hook error fails
// the flip.
func WithFrameHook(hook func(Frame) error) Option {
	return func(p *Platform) {
		p.hook = hook
	}
}

// Platform is the headless backend. A Platform serves one swapchain.
type Platform struct {
	dev   *halgpu.Device
	alloc alloc.Allocator
	hook  func(Frame) error

	stride int
	size   int64
	label  string

	mu      sync.Mutex
	current int
	seq     uint64
	images  map[int]*Image
	created int
}

var _ swapchain.Platform = (*Platform)(nil)

// New returns a headless platform creating images on dev.
func New(dev *halgpu.Device, opts ...Option) *Platform {
	p := &Platform{
		dev:     dev,
		current: -1,
		images:  make(map[int]*Image),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func init() {
	platform.Register("headless", 10, func(opts platform.Options) (swapchain.Platform, error) {
		if opts.Device == nil {
			return nil, fmt.Errorf("headless: %w", ErrWrongDevice)
		}
		var o []Option
		if opts.Allocator != nil {
			o = append(o, WithAllocator(opts.Allocator))
		}
		return New(opts.Device, o...), nil
	}, nil)
}

// Init checks the device and sizes the image memory.
func (p *Platform) Init(dev swapchain.Device, info *swapchain.CreateInfo) error {
	if d, ok := dev.(*halgpu.Device); !ok || d != p.dev {
		return ErrWrongDevice
	}
	bpp, ok := bytesPerPixel(info.Format)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, info.Format)
	}
	if info.Extent.Width == 0 || info.Extent.Height == 0 {
		return fmt.Errorf("headless: extent %dx%d has zero area", info.Extent.Width, info.Extent.Height)
	}
	if p.alloc == nil {
		a, err := alloc.New("")
		if err != nil {
			return err
		}
		p.alloc = a
	}

	p.stride = int(info.Extent.Width) * bpp
	p.size = int64(p.stride) * int64(info.Extent.Height) * int64(max(info.Extent.DepthOrArrayLayers, 1))
	p.label = fmt.Sprintf("headless-%dx%d", info.Extent.Width, info.Extent.Height)
	wsi.Logger().Debug("headless platform ready",
		"allocator", p.alloc.Name(),
		"stride", p.stride,
		"size", p.size)
	return nil
}

// CreateImage creates the texture and its scanout buffer.
func (p *Platform) CreateImage(info *swapchain.CreateInfo, img *swapchain.Image) error {
	p.mu.Lock()
	n := p.created
	p.created++
	p.mu.Unlock()

	buf, err := p.alloc.Allocate(p.size, false)
	if err != nil {
		return fmt.Errorf("headless: allocate image %d: %w", n, err)
	}
	tex, err := p.dev.CreateTexture(fmt.Sprintf("%s-%d", p.label, n), info.Format, info.Extent, info.Usage)
	if err != nil {
		buf.Close()
		return err
	}

	// The swapchain creates its images in index order.
	handle := &Image{Texture: tex, Buffer: buf, Stride: p.stride}
	p.mu.Lock()
	p.images[n] = handle
	p.mu.Unlock()

	img.Handle = handle
	img.BackendData = n
	img.Fence = p.dev.NewFence()
	return nil
}

// DestroyImage releases the texture and the buffer.
func (p *Platform) DestroyImage(img *swapchain.Image) {
	handle, ok := img.Handle.(*Image)
	if !ok || handle == nil {
		return
	}
	if handle.Texture != nil {
		p.dev.HAL().DestroyTexture(handle.Texture)
		handle.Texture = nil
	}
	if err := handle.Buffer.Close(); err != nil {
		wsi.Logger().Warn("headless: release image buffer", "err", err)
	}
	if n, ok := img.BackendData.(int); ok {
		p.mu.Lock()
		delete(p.images, n)
		p.mu.Unlock()
	}
	img.Handle = nil
	img.Fence = nil
	img.BackendData = nil
}

// PresentImage records the flip, runs the frame hook and gives the
// previous image back.
func (p *Platform) PresentImage(sc swapchain.Unpresenter, index int) error {
	p.mu.Lock()
	p.seq++
	frame := Frame{Seq: p.seq, Index: index, Image: p.images[index], Time: time.Now()}
	p.mu.Unlock()

	if p.hook != nil {
		if err := p.hook(frame); err != nil {
			return fmt.Errorf("headless: frame hook: %w", err)
		}
	}

	p.mu.Lock()
	prev := p.current
	p.current = index
	p.mu.Unlock()

	if prev >= 0 && prev != index {
		sc.UnpresentImage(prev)
	}
	return nil
}

// Current returns the index on screen, or -1 before the first flip.
func (p *Platform) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Frames returns the number of flips so far.
func (p *Platform) Frames() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq
}

// bytesPerPixel returns the texel size of the color formats headless
// scanout supports.
func bytesPerPixel(f gputypes.TextureFormat) (int, bool) {
	switch f {
	case gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGB10A2Unorm:
		return 4, true
	case gputypes.TextureFormatRGBA16Float:
		return 8, true
	default:
		return 0, false
	}
}
