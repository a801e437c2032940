package wsi

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// Swapchain errors. They are returned wrapped; match them with errors.Is.
var (
	// ErrOutOfMemory is returned when the image table, the pending ring or a
	// single image could not be allocated. The partially built swapchain has
	// already been released when this error is returned.
	ErrOutOfMemory = errors.New("wsi: out of memory")

	// ErrInitializationFailed is returned when the requested present mode is
	// not supported or the platform could not be set up. The present mode
	// is checked before anything is allocated.
	ErrInitializationFailed = errors.New("wsi: initialization failed")

	// ErrTimeout is returned by Acquire when no image became free before the
	// timeout elapsed. The caller may retry.
	ErrTimeout = errors.New("wsi: timeout")

	// ErrNotReady is returned by Acquire with a zero timeout when no image is
	// free. It matches ErrTimeout as well.
	ErrNotReady = fmt.Errorf("%w: no image ready", ErrTimeout)

	// ErrOutOfDate is returned by Present when a descendant swapchain has
	// started presenting, and by Acquire on a retired swapchain. The
	// presentation request was consumed; the caller should move to the
	// descendant.
	ErrOutOfDate = errors.New("wsi: swapchain out of date")

	// ErrIncomplete is returned by Images when the destination slice is
	// smaller than the number of images.
	ErrIncomplete = errors.New("wsi: incomplete")

	// ErrSurfaceLost means the swapchain has been marked invalid, usually
	// because a fence wait failed with a lost device. All further Acquire
	// calls fail with this error.
	ErrSurfaceLost = errors.New("wsi: surface lost")

	// ErrImageNotAcquired is a programming error: Present was called with an
	// index that is out of range or whose image is not acquired.
	ErrImageNotAcquired = errors.New("wsi: image not acquired")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("wsi: invalid config")
)

// IsFatal reports whether err means the swapchain can no longer be used and
// must be destroyed and recreated.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSurfaceLost) || errors.Is(err, ErrOutOfDate)
}

// FromHAL maps a HAL error to the swapchain error vocabulary.
// A lost device or surface becomes ErrSurfaceLost, an exhausted device
// becomes ErrOutOfMemory and a HAL timeout becomes ErrTimeout. The original
// error stays in the chain. Unknown errors are returned unchanged.
func FromHAL(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hal.ErrDeviceLost), errors.Is(err, hal.ErrSurfaceLost):
		return fmt.Errorf("%w: %w", ErrSurfaceLost, err)
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	case errors.Is(err, hal.ErrSurfaceOutdated):
		return fmt.Errorf("%w: %w", ErrOutOfDate, err)
	case errors.Is(err, hal.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return err
	}
}
