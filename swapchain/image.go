// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package swapchain

import "sync/atomic"

// Status is the lifecycle state of a swapchain image.
type Status int32

const (
	// StatusInvalid means the image has not been created or was destroyed.
	StatusInvalid Status = iota

	// StatusFree means the image can be acquired.
	StatusFree

	// StatusAcquired means the image belongs to the client.
	StatusAcquired

	// StatusPending means the image was presented and waits for its turn
	// and its fence.
	StatusPending

	// StatusPresented means the image is on screen.
	StatusPresented
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case StatusInvalid:
		return "Invalid"
	case StatusFree:
		return "Free"
	case StatusAcquired:
		return "Acquired"
	case StatusPending:
		return "Pending"
	case StatusPresented:
		return "Presented"
	default:
		return "Unknown"
	}
}

// Image is one record of the image table.
//
// Handle, Fence and BackendData are filled by Platform.CreateImage and
// cleared by Platform.DestroyImage. The status is owned by the swapchain.
type Image struct {
	// Handle is the GPU image handed to the client by Images.
	Handle any

	// Fence is signaled when the rendering submitted before Present is done.
	Fence Fence

	// BackendData is private to the platform backend.
	BackendData any

	status atomic.Int32
}

// Status returns the current image status.
func (img *Image) Status() Status {
	return Status(img.status.Load())
}

func (img *Image) setStatus(s Status) {
	img.status.Store(int32(s))
}

func (img *Image) swapStatus(old, s Status) bool {
	return img.status.CompareAndSwap(int32(old), int32(s))
}
