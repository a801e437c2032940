// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import (
	"context"
)

// flipLoop is the flip goroutine. It takes images off the pending ring in
// the order they were presented, waits for their fences and hands them to
// the platform. It exits when stop is closed.
func (s *Swapchain) flipLoop() {
	defer close(s.done)

	first := true
	for s.flip.Wait(s.stop) {
		index := s.pending.Pop()
		img := &s.images[index]

		if err := img.Fence.Wait(s.life); err != nil {
			// The device is gone or the swapchain is being torn down.
			// Keep the free counter moving so nobody blocks forever.
			s.invalidate()
			s.log.Warn("fence wait failed", "image", index, "err", err)
			s.UnpresentImage(index)
			continue
		}

		if img.Status() == StatusFree {
			// Present released it because the descendant took over.
			s.releaseImage(img)
			s.free.Post()
			continue
		}

		if first {
			first = false
			if a := s.ancestor.Load(); a != nil {
				s.waitForAncestor(a)
			}
			s.started.Fire()
		}
		s.presentImage(index)
	}
}

// waitForAncestor blocks until the ancestor has at most one image left
// that is not acquired. The wait ends early if either swapchain is torn
// down.
func (s *Swapchain) waitForAncestor(a *Swapchain) {
	ctx, cancel := context.WithCancel(a.life)
	defer cancel()
	unlink := context.AfterFunc(s.life, cancel)
	defer unlink()

	if err := a.waitForPendingBuffers(ctx); err != nil {
		s.log.Debug("ancestor drain interrupted", "ancestor", a.id, "err", err)
		return
	}
	a.drained.Store(true)
	s.log.Debug("ancestor drained", "ancestor", a.id)
}

// presentImage puts image index on screen through the platform.
func (s *Swapchain) presentImage(index int) {
	s.images[index].setStatus(StatusPresented)
	if err := s.platform.PresentImage(s, index); err != nil {
		s.invalidate()
		s.log.Warn("present failed", "image", index, "err", err)
		s.UnpresentImage(index)
		return
	}
	s.log.Debug("image flipped", "image", index)
}
