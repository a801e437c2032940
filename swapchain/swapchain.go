// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/wsi"
	"github.com/gogpu/wsi/internal/ring"
	"github.com/gogpu/wsi/internal/sema"
)

// CreateInfo describes a swapchain.
type CreateInfo struct {
	// Surface is the opaque surface the swapchain presents to.
	Surface any

	// Platform is the display backend. It must be a fresh value that no
	// other swapchain uses.
	Platform Platform

	// MinImageCount is the number of images to create.
	MinImageCount int

	// Format, Extent, Usage and AlphaMode describe the images.
	Format    gputypes.TextureFormat
	Extent    gputypes.Extent3D
	Usage     gputypes.TextureUsage
	AlphaMode gputypes.CompositeAlphaMode

	// PresentMode must be PresentModeFifo or PresentModeFifoRelaxed.
	PresentMode gputypes.PresentMode

	// OldSwapchain, if set, is the swapchain being replaced on the same
	// surface. The new swapchain becomes its descendant. The caller keeps
	// ownership of both.
	OldSwapchain *Swapchain
}

// supportedPresentModes lists the modes the flip goroutine can honor.
var supportedPresentModes = []gputypes.PresentMode{
	gputypes.PresentModeFifo,
	gputypes.PresentModeFifoRelaxed,
}

// nextID numbers swapchains for log output.
var nextID atomic.Uint64

// Swapchain is a ring of presentable images bound to one surface.
//
// Ancestor and descendant links are weak: a swapchain never owns its
// neighbours and never destroys them. The owner must destroy a swapchain
// only while no other replacement on the same surface is being created.
type Swapchain struct {
	id       uint64
	log      *slog.Logger
	info     CreateInfo
	platform Platform
	queue    Queue

	images  []Image
	pending *ring.Ring[int]

	// free counts images that are not handed out: FREE images plus those
	// an ancestor released early.
	free *sema.Counter
	// flip wakes the flip goroutine once per Present.
	flip *sema.Signal
	// started fires on the first flip.
	started *sema.Event
	// halted fires once the swapchain can no longer present: on a failed
	// flip and at the end of teardown.
	halted *sema.Event

	// life is canceled once teardown has drained the swapchain. It bounds
	// fence waits and a descendant's wait on this swapchain's images.
	life   context.Context
	cancel context.CancelFunc

	stop chan struct{}
	done chan struct{}

	valid      atomic.Bool
	drained    atomic.Bool // a descendant's first flip drained us
	ancestor   atomic.Pointer[Swapchain]
	descendant atomic.Pointer[Swapchain]

	destroyOnce sync.Once
}

// New creates a swapchain on dev.
//
// The present mode is checked before anything is allocated. If any later
// step fails, everything created so far is released before New returns, so
// there is nothing for the caller to destroy. When info.OldSwapchain is set
// the new swapchain links to it only after every other step succeeded.
func New(dev Device, info *CreateInfo) (*Swapchain, error) {
	if info == nil || info.Platform == nil {
		return nil, fmt.Errorf("%w: missing platform", wsi.ErrInitializationFailed)
	}
	if !presentModeSupported(info.PresentMode) {
		return nil, fmt.Errorf("%w: present mode %v not supported", wsi.ErrInitializationFailed, info.PresentMode)
	}
	if info.MinImageCount < 1 {
		return nil, fmt.Errorf("%w: cannot allocate %d images", wsi.ErrOutOfMemory, info.MinImageCount)
	}

	s := &Swapchain{
		id:       nextID.Add(1),
		info:     *info,
		platform: info.Platform,
		images:   make([]Image, info.MinImageCount),
		pending:  ring.New[int](info.MinImageCount),
		free:     sema.NewCounter(info.MinImageCount),
		flip:     sema.NewSignal(info.MinImageCount),
		started:  sema.NewEvent(),
		halted:   sema.NewEvent(),
	}
	s.info.OldSwapchain = nil
	s.life, s.cancel = context.WithCancel(context.Background())
	s.log = wsi.Logger().With("swapchain", s.id)

	if err := s.init(dev); err != nil {
		s.Destroy()
		return nil, err
	}

	if old := info.OldSwapchain; old != nil {
		s.ancestor.Store(old)
		old.deprecate(s)
		s.log.Info("swapchain linked to ancestor", "ancestor", old.id)
	}
	s.valid.Store(true)
	s.log.Info("swapchain created",
		"images", len(s.images),
		"format", s.info.Format,
		"present_mode", s.info.PresentMode)
	return s, nil
}

func presentModeSupported(m gputypes.PresentMode) bool {
	for _, sm := range supportedPresentModes {
		if m == sm {
			return true
		}
	}
	return false
}

// init creates the platform state and the images, then starts the flip
// goroutine.
func (s *Swapchain) init(dev Device) error {
	if err := s.platform.Init(dev, &s.info); err != nil {
		return fmt.Errorf("%w: platform init: %w", wsi.ErrInitializationFailed, err)
	}
	for i := range s.images {
		img := &s.images[i]
		if err := s.platform.CreateImage(&s.info, img); err != nil {
			return fmt.Errorf("%w: create image %d: %w", wsi.ErrOutOfMemory, i, err)
		}
		if img.Fence == nil {
			return fmt.Errorf("%w: image %d has no fence", wsi.ErrInitializationFailed, i)
		}
		img.setStatus(StatusFree)
	}
	s.queue = dev.Queue()

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.flipLoop()
	return nil
}

// Acquire hands a free image to the client and returns its index.
//
// It waits at most timeout for an image to become free; a zero timeout
// only polls and wsi.InfiniteTimeout waits forever. The wait also ends when
// ctx is done. If sem or fence is non-nil, an empty work item that signals
// them is submitted on the swapchain queue, so work that depends on them
// starts only after the image is really available.
//
// Acquire returns wsi.ErrSurfaceLost if the swapchain was invalidated and
// wsi.ErrTimeout (wsi.ErrNotReady for a zero timeout) if no image became
// free in time. Acquiring from a retired swapchain is not allowed: once a
// descendant exists Acquire fails with wsi.ErrOutOfDate without waiting,
// since deprecate has already destroyed the FREE images.
func (s *Swapchain) Acquire(ctx context.Context, timeout time.Duration, sem Semaphore, fence Fence) (int, error) {
	if !s.valid.Load() {
		return -1, wsi.ErrSurfaceLost
	}
	if s.Retired() {
		return -1, wsi.ErrOutOfDate
	}
	if err := s.waitForFreeBuffer(ctx, timeout); err != nil {
		return -1, err
	}
	if !s.valid.Load() {
		s.free.Post()
		return -1, wsi.ErrSurfaceLost
	}

	index := -1
	for i := range s.images {
		if s.images[i].swapStatus(StatusFree, StatusAcquired) {
			index = i
			break
		}
	}
	if index < 0 {
		// Only a concurrent deprecate can take the last FREE image away.
		s.free.Post()
		return -1, wsi.ErrOutOfDate
	}

	if sem != nil || fence != nil {
		var signals []Semaphore
		if sem != nil {
			signals = []Semaphore{sem}
		}
		if err := s.queue.Submit(nil, signals, fence); err != nil {
			s.images[index].setStatus(StatusFree)
			s.free.Post()
			return -1, fmt.Errorf("swapchain: signal acquire: %w", wsi.FromHAL(err))
		}
	}
	s.log.Debug("image acquired", "image", index)
	return index, nil
}

// waitForFreeBuffer takes one unit of the free counter.
func (s *Swapchain) waitForFreeBuffer(ctx context.Context, timeout time.Duration) error {
	if s.free.TryWait() {
		return nil
	}
	if fb, ok := s.platform.(FreeBufferWaiter); ok {
		start := time.Now()
		if err := fb.FreeBuffer(ctx, timeout); err != nil {
			return wsi.FromHAL(err)
		}
		if timeout > 0 {
			timeout -= time.Since(start)
			if timeout <= 0 {
				if s.free.TryWait() {
					return nil
				}
				return wsi.ErrTimeout
			}
		}
	}
	if timeout == 0 {
		if s.free.TryWait() {
			return nil
		}
		return wsi.ErrNotReady
	}

	err := s.free.WaitTimeout(ctx, timeout)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return wsi.ErrTimeout
	default:
		return err
	}
}

// Present queues image index for display.
//
// The image must have been acquired. queue is the client queue the
// rendering was submitted to; nil means the swapchain queue. The image is
// flipped once every semaphore in waits has signaled and all work submitted
// to queue before this call has completed.
//
// If the descendant swapchain has already started presenting, the image is
// released instead of displayed and Present returns wsi.ErrOutOfDate.
func (s *Swapchain) Present(queue Queue, waits []Semaphore, index int) error {
	if index < 0 || index >= len(s.images) {
		return fmt.Errorf("%w: index %d out of range [0, %d)", wsi.ErrImageNotAcquired, index, len(s.images))
	}
	img := &s.images[index]
	if st := img.Status(); st != StatusAcquired {
		return fmt.Errorf("%w: image %d is %v", wsi.ErrImageNotAcquired, index, st)
	}
	if !s.valid.Load() {
		s.UnpresentImage(index)
		return wsi.ErrSurfaceLost
	}
	if queue == nil {
		queue = s.queue
	}

	superseded := false
	if d := s.descendant.Load(); d != nil {
		superseded = d.presenting()
	}

	if err := img.Fence.Reset(); err != nil {
		return fmt.Errorf("swapchain: reset fence: %w", wsi.FromHAL(err))
	}
	if err := queue.Submit(waits, nil, img.Fence); err != nil {
		return fmt.Errorf("swapchain: arm fence: %w", wsi.FromHAL(err))
	}

	if superseded {
		// The flip goroutine releases it once the fence has signaled.
		img.setStatus(StatusFree)
		s.pending.Push(index)
		s.flip.Post()
		s.log.Debug("image released, descendant presenting", "image", index)
		return wsi.ErrOutOfDate
	}

	img.setStatus(StatusPending)
	s.pending.Push(index)
	s.flip.Post()
	s.log.Debug("image queued", "image", index)
	return nil
}

// Images copies the image handles into dst and returns how many were
// copied. With a nil dst it only returns the image count. If dst is shorter
// than the image count, the copied prefix is valid and wsi.ErrIncomplete is
// returned.
func (s *Swapchain) Images(dst []any) (int, error) {
	if dst == nil {
		return len(s.images), nil
	}
	n := min(len(dst), len(s.images))
	for i := 0; i < n; i++ {
		dst[i] = s.images[i].Handle
	}
	if n < len(s.images) {
		return n, wsi.ErrIncomplete
	}
	return n, nil
}

// ImageCount returns the number of images.
func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

// Status returns the status of image index.
func (s *Swapchain) Status(index int) Status {
	if index < 0 || index >= len(s.images) {
		return StatusInvalid
	}
	return s.images[index].Status()
}

// PresentMode returns the present mode the swapchain was created with.
func (s *Swapchain) PresentMode() gputypes.PresentMode {
	return s.info.PresentMode
}

// Valid reports whether the swapchain can still present. It turns false
// for good after a failed fence wait or platform flip, and after Destroy.
func (s *Swapchain) Valid() bool {
	return s.valid.Load()
}

// Retired reports whether a descendant has replaced the swapchain.
func (s *Swapchain) Retired() bool {
	return s.descendant.Load() != nil
}

// Ancestor returns the swapchain this one replaced, or nil.
func (s *Swapchain) Ancestor() *Swapchain {
	return s.ancestor.Load()
}

// Descendant returns the swapchain that replaced this one, or nil.
func (s *Swapchain) Descendant() *Swapchain {
	return s.descendant.Load()
}

// invalidate marks the swapchain as unable to present.
func (s *Swapchain) invalidate() {
	s.valid.Store(false)
	s.halted.Fire()
}

// presenting reports whether the swapchain has an image queued for or on
// the display.
func (s *Swapchain) presenting() bool {
	for i := range s.images {
		switch s.images[i].Status() {
		case StatusPending, StatusPresented:
			return true
		}
	}
	return false
}

// UnpresentImage gives image index back after it left the screen. Platform
// backends call it from PresentImage for the previously presented image.
func (s *Swapchain) UnpresentImage(index int) {
	img := &s.images[index]
	img.setStatus(StatusFree)
	if s.Retired() {
		s.releaseImage(img)
	}
	s.free.Post()
	s.log.Debug("image unpresented", "image", index)
}

// releaseImage destroys a FREE image ahead of teardown. An image is
// released at most once.
func (s *Swapchain) releaseImage(img *Image) {
	if img.swapStatus(StatusFree, StatusInvalid) {
		s.platform.DestroyImage(img)
	}
}

// deprecate is called by a new swapchain on the one it replaces. FREE
// images are destroyed right away to leave memory to the descendant.
func (s *Swapchain) deprecate(descendant *Swapchain) {
	released := 0
	for i := range s.images {
		img := &s.images[i]
		if img.Status() == StatusFree {
			s.releaseImage(img)
			released++
		}
	}
	s.descendant.Store(descendant)
	s.log.Info("swapchain deprecated", "descendant", descendant.id, "released", released)
}

// WaitForPendingBuffers blocks until every image that is neither acquired
// nor about to stay on screen has come back: it takes the free counter
// once for each image except the acquired ones and the one that ends up
// PRESENTED.
func (s *Swapchain) WaitForPendingBuffers() {
	// Background never ends, so the wait cannot fail.
	_ = s.waitForPendingBuffers(context.Background())
}

func (s *Swapchain) waitForPendingBuffers(ctx context.Context) error {
	acquired := 0
	for i := range s.images {
		if s.images[i].Status() == StatusAcquired {
			acquired++
		}
	}
	want := len(s.images) - acquired - 1
	for taken := 0; taken < want; taken++ {
		if err := s.free.Wait(ctx); err != nil {
			for ; taken > 0; taken-- {
				s.free.Post()
			}
			return err
		}
	}
	return nil
}

// Destroy tears the swapchain down. It blocks until in-flight images have
// been flipped or released and the flip goroutine has exited. Destroy is
// idempotent.
func (s *Swapchain) Destroy() {
	s.destroyOnce.Do(s.teardown)
}

func (s *Swapchain) teardown() {
	// The descendant owns the drain once it has started presenting: its
	// first flip already waited for our pending images. A descendant that
	// halts before its first flip never will, so we drain ourselves.
	drain := !s.drained.Load()
	if d := s.descendant.Load(); d != nil && d.presenting() {
		select {
		case <-d.started.Done():
			drain = false
		case <-d.halted.Done():
			drain = drain && !d.started.Fired()
			s.log.Debug("descendant halted before taking over", "descendant", d.id)
		}
	}
	if drain {
		s.WaitForPendingBuffers()
	}

	if s.queue != nil {
		if err := s.queue.WaitIdle(); err != nil {
			s.log.Warn("queue wait idle failed", "err", err)
		}
	}

	s.cancel()
	if s.stop != nil {
		close(s.stop)
		<-s.done
	}

	if d := s.descendant.Load(); d != nil {
		d.ancestor.CompareAndSwap(s, nil)
	}
	if a := s.ancestor.Load(); a != nil {
		a.descendant.CompareAndSwap(s, nil)
	}

	for i := range s.images {
		img := &s.images[i]
		s.platform.DestroyImage(img)
		img.setStatus(StatusInvalid)
	}
	s.valid.Store(false)
	s.halted.Fire()
	s.log.Info("swapchain destroyed")
}
