// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package swapchain implements the swapchain image state machine and the
// flip goroutine that moves presented images to the display.
//
// # Image lifecycle
//
// Every image cycles through
//
//	INVALID -> FREE -> ACQUIRED -> PENDING -> PRESENTED -> FREE -> ...
//
// Acquire moves a FREE image to ACQUIRED, Present moves it to PENDING and
// queues it, and the flip goroutine moves it to PRESENTED once its fence
// has signaled. The platform backend then calls UnpresentImage for the image
// that was on screen before, which makes it FREE again.
//
// # Replacement
//
// A swapchain created with CreateInfo.OldSwapchain becomes the descendant
// of that swapchain. The ancestor immediately releases its FREE images. Its
// remaining images drain through its own flip goroutine; the descendant's
// first flip waits for that drain, and the ancestor's Destroy waits for the
// descendant's first flip when the descendant is already presenting.
//
// # Concurrency
//
// Acquire, Present and Destroy follow the external synchronization rules of
// the graphics APIs: one client goroutine drives a swapchain at a time. The
// flip goroutine is the only other writer. Each field has a single writer at
// any time, so there is no swapchain-wide mutex.
package swapchain
