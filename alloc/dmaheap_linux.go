//go:build linux

package alloc

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DefaultHeapDir is where the kernel exposes dma-heap devices.
const DefaultHeapDir = "/dev/dma_heap"

// dmaHeapIoctlAlloc is DMA_HEAP_IOCTL_ALLOC, _IOWR('H', 0, struct
// dma_heap_allocation_data).
const dmaHeapIoctlAlloc = 0xc0184800

// dmaHeapAllocationData mirrors struct dma_heap_allocation_data.
type dmaHeapAllocationData struct {
	Len       uint64
	FD        uint32
	FDFlags   uint32
	HeapFlags uint64
}

// DMAHeap allocates dma-buf file descriptors from a dma-heap.
type DMAHeap struct {
	// Heap is the heap used for normal buffers, "system" if empty.
	Heap string

	// ProtectedHeap is the heap used for protected buffers. Protected
	// allocations fail when it is empty.
	ProtectedHeap string

	// Dir is the heap directory, DefaultHeapDir if empty.
	Dir string
}

// Name returns "dma-heap".
func (DMAHeap) Name() string { return "dma-heap" }

// Allocate allocates size bytes from the heap and maps unprotected
// buffers.
func (h DMAHeap) Allocate(size int64, protected bool) (*Buffer, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	heap := h.Heap
	if heap == "" {
		heap = "system"
	}
	if protected {
		if h.ProtectedHeap == "" {
			return nil, ErrProtectedUnsupported
		}
		heap = h.ProtectedHeap
	}

	dev, err := os.OpenFile(h.heapPath(heap), os.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open heap %q: %w", ErrUnavailable, heap, err)
	}
	defer dev.Close()

	data := dmaHeapAllocationData{
		Len:     uint64(size),
		FDFlags: unix.O_RDWR | unix.O_CLOEXEC,
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, dev.Fd(), dmaHeapIoctlAlloc, uintptr(unsafe.Pointer(&data))); errno != 0 {
		return nil, fmt.Errorf("alloc: dma-heap %q alloc %d bytes: %w", heap, size, errno)
	}
	fd := int(data.FD)

	buf := &Buffer{FD: fd, Size: size}
	if protected {
		buf.release = func() error { return unix.Close(fd) }
		return buf, nil
	}

	mapped, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("alloc: mmap dma-buf: %w", err)
	}
	buf.Data = mapped
	buf.release = func() error {
		merr := unix.Munmap(mapped)
		cerr := unix.Close(fd)
		if merr != nil {
			return merr
		}
		return cerr
	}
	return buf, nil
}

func (h DMAHeap) heapPath(heap string) string {
	dir := h.Dir
	if dir == "" {
		dir = DefaultHeapDir
	}
	return filepath.Join(dir, heap)
}

func dmaHeapAvailable() bool {
	f, err := os.OpenFile(filepath.Join(DefaultHeapDir, "system"), os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func init() {
	if dmaHeapAvailable() {
		Register("dma-heap", func() Allocator { return DMAHeap{} })
	}
}
