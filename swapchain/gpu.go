// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import "context"

// Semaphore is an opaque GPU semaphore. Only the Queue that created it
// knows how to wait on it or signal it.
type Semaphore any

// Fence is a GPU-to-host completion signal.
type Fence interface {
	// Reset returns the fence to the unsignaled state.
	// The fence must not be armed by a pending submission.
	Reset() error

	// Wait blocks until the fence is signaled or ctx is done.
	// It returns an error if the device was lost while waiting.
	Wait(ctx context.Context) error
}

// Queue submits work to the GPU.
type Queue interface {
	// Submit enqueues a work item that waits for waits, then signals
	// signals and fence once every earlier submission on the queue has
	// completed. Any argument may be empty or nil; an item with no work is
	// still ordered after everything submitted before it.
	Submit(waits, signals []Semaphore, fence Fence) error

	// WaitIdle blocks until every submission has completed.
	WaitIdle() error
}

// Device is the logical device a swapchain is created on.
type Device interface {
	// Queue returns the queue used for the swapchain's own submissions.
	Queue() Queue
}
