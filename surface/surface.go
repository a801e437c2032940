// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/gogpu/wsi"
	"github.com/gogpu/wsi/alloc"
	"github.com/gogpu/wsi/halgpu"
	"github.com/gogpu/wsi/platform"
	"github.com/gogpu/wsi/swapchain"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("surface: closed")

	// ErrReplacementInFlight is returned when a swapchain is created or
	// destroyed while another one is being created on the same surface.
	ErrReplacementInFlight = errors.New("surface: replacement in flight")

	// ErrNotOwned is returned for swapchains that belong to another
	// surface, and for an OldSwapchain that is not the current one.
	ErrNotOwned = errors.New("surface: swapchain not owned by this surface")
)

// Option configures a Surface.
type Option func(*Surface)

// WithPlatform selects the platform backend by registry name. The default
// is the best available backend.
func WithPlatform(name string) Option {
	return func(s *Surface) {
		s.platform = name
	}
}

// WithAllocator sets the allocator handed to platform backends.
func WithAllocator(a alloc.Allocator) Option {
	return func(s *Surface) {
		s.allocator = a
	}
}

// Surface owns the chain of swapchains created on one surface, oldest
// first. The last swapchain of the chain is the current one.
type Surface struct {
	dev       *halgpu.Device
	platform  string
	allocator alloc.Allocator
	log       *slog.Logger

	mu       sync.Mutex
	chain    []*swapchain.Swapchain
	creating bool
	closed   bool
}

// New returns a surface presenting through dev.
func New(dev *halgpu.Device, opts ...Option) *Surface {
	s := &Surface{dev: dev}
	for _, opt := range opts {
		opt(s)
	}
	s.log = wsi.Logger().With("surface", s.platform)
	return s
}

// CreateSwapchain creates a swapchain on the surface. A nil info.Platform
// is filled from the platform registry. The current swapchain, if any,
// becomes the ancestor of the new one; info.OldSwapchain must be nil or
// the current swapchain.
func (s *Surface) CreateSwapchain(info *swapchain.CreateInfo) (*swapchain.Swapchain, error) {
	if info == nil {
		return nil, fmt.Errorf("%w: missing create info", wsi.ErrInitializationFailed)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.creating {
		s.mu.Unlock()
		return nil, ErrReplacementInFlight
	}
	current := s.current()
	if info.OldSwapchain != nil && info.OldSwapchain != current {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: old swapchain is not current", ErrNotOwned)
	}
	s.creating = true
	s.mu.Unlock()

	sc, err := s.create(info, current)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creating = false
	if err != nil {
		return nil, err
	}
	s.chain = append(s.chain, sc)
	s.log.Info("swapchain added", "chain", len(s.chain))
	return sc, nil
}

func (s *Surface) create(info *swapchain.CreateInfo, current *swapchain.Swapchain) (*swapchain.Swapchain, error) {
	ci := *info
	ci.OldSwapchain = current
	if ci.Platform == nil {
		opts := platform.Options{Device: s.dev, Allocator: s.allocator}
		var (
			p   swapchain.Platform
			err error
		)
		if s.platform == "" {
			p, err = platform.New(opts)
		} else {
			p, err = platform.NewByName(s.platform, opts)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", wsi.ErrInitializationFailed, err)
		}
		ci.Platform = p
	}
	return swapchain.New(s.dev, &ci)
}

// Current returns the newest swapchain, or nil.
func (s *Surface) Current() *swapchain.Swapchain {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current()
}

func (s *Surface) current() *swapchain.Swapchain {
	if len(s.chain) == 0 {
		return nil
	}
	return s.chain[len(s.chain)-1]
}

// Swapchains returns the chain, oldest first.
func (s *Surface) Swapchains() []*swapchain.Swapchain {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.chain)
}

// DestroySwapchain destroys sc and removes it from the chain. It blocks
// like swapchain.Destroy.
func (s *Surface) DestroySwapchain(sc *swapchain.Swapchain) error {
	s.mu.Lock()
	if s.creating {
		s.mu.Unlock()
		return ErrReplacementInFlight
	}
	i := slices.Index(s.chain, sc)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotOwned
	}
	s.chain = slices.Delete(s.chain, i, i+1)
	s.mu.Unlock()

	sc.Destroy()
	s.log.Info("swapchain removed", "retired", sc.Retired())
	return nil
}

// DestroyRetired destroys every swapchain except the current one, oldest
// first, and returns how many were destroyed.
func (s *Surface) DestroyRetired() (int, error) {
	s.mu.Lock()
	if s.creating {
		s.mu.Unlock()
		return 0, ErrReplacementInFlight
	}
	if len(s.chain) < 2 {
		s.mu.Unlock()
		return 0, nil
	}
	retired := slices.Clone(s.chain[:len(s.chain)-1])
	s.chain = s.chain[len(s.chain)-1:]
	s.mu.Unlock()

	for _, sc := range retired {
		sc.Destroy()
	}
	return len(retired), nil
}

// Close destroys every swapchain, oldest first. Close is idempotent.
func (s *Surface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if s.creating {
		s.mu.Unlock()
		return ErrReplacementInFlight
	}
	s.closed = true
	chain := s.chain
	s.chain = nil
	s.mu.Unlock()

	for _, sc := range chain {
		sc.Destroy()
	}
	s.log.Info("surface closed", "swapchains", len(chain))
	return nil
}
