//go:build linux

package alloc

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Memfd allocates sealed anonymous shared memory.
type Memfd struct{}

// Name returns "memfd".
func (Memfd) Name() string { return "memfd" }

// Allocate creates a memfd of size bytes, seals its size and maps it.
func (Memfd) Allocate(size int64, protected bool) (*Buffer, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	if protected {
		return nil, ErrProtectedUnsupported
	}

	fd, err := unix.MemfdCreate("wsi-image", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("alloc: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("alloc: ftruncate %d: %w", size, err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, unix.F_SEAL_SHRINK|unix.F_SEAL_GROW|unix.F_SEAL_SEAL); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("alloc: seal memfd: %w", err)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("alloc: mmap: %w", err)
	}

	return &Buffer{
		FD:   fd,
		Size: size,
		Data: data,
		release: func() error {
			merr := unix.Munmap(data)
			cerr := unix.Close(fd)
			if merr != nil {
				return merr
			}
			return cerr
		},
	}, nil
}

func memfdAvailable() bool {
	fd, err := unix.MemfdCreate("wsi-probe", unix.MFD_CLOEXEC)
	if err != nil {
		return false
	}
	unix.Close(fd)
	return true
}

func init() {
	if memfdAvailable() {
		Register("memfd", func() Allocator { return Memfd{} })
	}
}
