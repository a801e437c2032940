package alloc

import (
	"fmt"
	"sort"

	"github.com/gogpu/gpucontext"
)

// allocators holds the allocators usable on this system, best first.
var allocators = gpucontext.NewRegistry[Allocator](
	gpucontext.WithPriority("dma-heap", "memfd", "host"),
)

func init() {
	Register("host", func() Allocator { return Host{} })
}

// Register makes an allocator available under name. Registering a name
// again replaces the previous factory.
func Register(name string, factory func() Allocator) {
	allocators.Register(name, factory)
}

// New returns the allocator registered under name. An empty name selects
// the best available allocator.
func New(name string) (Allocator, error) {
	if name == "" {
		if a := allocators.Best(); a != nil {
			return a, nil
		}
		return nil, ErrUnavailable
	}
	if !allocators.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnavailable, name)
	}
	return allocators.Get(name), nil
}

// Best returns the name of the best available allocator.
func Best() string {
	return allocators.BestName()
}

// Available returns the names of the registered allocators, sorted.
func Available() []string {
	names := allocators.Available()
	sort.Strings(names)
	return names
}
