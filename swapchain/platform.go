// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import (
	"context"
	"time"
)

// Platform is a display backend. A Platform value serves exactly one
// swapchain.
type Platform interface {
	// Init prepares the backend for the swapchain described by info.
	Init(dev Device, info *CreateInfo) error

	// CreateImage creates one presentable image and fills img.Handle,
	// img.Fence and img.BackendData.
	CreateImage(info *CreateInfo, img *Image) error

	// DestroyImage releases everything CreateImage stored in img and
	// clears those fields. It must be idempotent and accept records that
	// were only partially created.
	DestroyImage(img *Image)

	// PresentImage puts image index on screen. On success it must call
	// sc.UnpresentImage with the index of the image that was on screen
	// before, if any.
	PresentImage(sc Unpresenter, index int) error
}

// Unpresenter is the callback a Platform uses to give an image that left
// the screen back to its swapchain.
type Unpresenter interface {
	UnpresentImage(index int)
}

// FreeBufferWaiter is implemented by platforms that can release buffers on
// demand, for example by dispatching compositor release events. Acquire
// calls FreeBuffer when no image is free before it starts waiting.
type FreeBufferWaiter interface {
	FreeBuffer(ctx context.Context, timeout time.Duration) error
}
