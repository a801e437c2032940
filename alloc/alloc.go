// Package alloc provides buffer allocators that back swapchain images.
//
// An allocator hands out buffers that a display server or another process
// can import by file descriptor. The DMA-heap allocator uses the Linux
// dma-heap device, the memfd allocator anonymous shared memory and the host
// allocator plain Go memory for headless use.
package alloc

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrProtectedUnsupported is returned when protected memory is requested
	// from an allocator that cannot provide it.
	ErrProtectedUnsupported = errors.New("alloc: protected memory not supported")

	// ErrInvalidSize is returned for non-positive allocation sizes.
	ErrInvalidSize = errors.New("alloc: invalid size")

	// ErrUnavailable is returned when an allocator does not work on this
	// system.
	ErrUnavailable = errors.New("alloc: allocator unavailable")
)

// Allocator allocates image backing buffers.
type Allocator interface {
	// Name returns the registry name of the allocator.
	Name() string

	// Allocate returns a buffer of at least size bytes. If protected is
	// true, the memory must not be readable by the CPU.
	Allocate(size int64, protected bool) (*Buffer, error)
}

// Buffer is one allocation.
type Buffer struct {
	// FD is the shareable file descriptor, or -1 for host memory.
	FD int

	// Size is the allocation size in bytes.
	Size int64

	// Data maps the buffer into the process. It is nil for protected
	// buffers.
	Data []byte

	closeOnce sync.Once
	release   func() error
	err       error
}

// Close releases the buffer. It is safe to call Close more than once.
func (b *Buffer) Close() error {
	if b == nil {
		return nil
	}
	b.closeOnce.Do(func() {
		if b.release != nil {
			b.err = b.release()
		}
		b.Data = nil
		b.FD = -1
	})
	return b.err
}

func checkSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return nil
}
