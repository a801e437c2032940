package alloc

// Host allocates buffers in Go memory. Host buffers have no file
// descriptor and cannot be protected.
type Host struct{}

// Name returns "host".
func (Host) Name() string { return "host" }

// Allocate returns a zeroed buffer of size bytes.
func (Host) Allocate(size int64, protected bool) (*Buffer, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}
	if protected {
		return nil, ErrProtectedUnsupported
	}
	return &Buffer{FD: -1, Size: size, Data: make([]byte, size)}, nil
}
