package halgpu

import (
	"context"
	"sync"
)

// Fence is a host fence signaled by the submission worker.
type Fence struct {
	mu  sync.Mutex
	ch  chan struct{}
	err error
}

// NewFence returns an unsignaled fence.
func NewFence() *Fence {
	return &Fence{ch: make(chan struct{})}
}

// Reset makes the fence unsignaled again.
func (f *Fence) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
		f.ch = make(chan struct{})
	default:
	}
	f.err = nil
	return nil
}

// Wait blocks until the fence is signaled or ctx is done. If the
// submission that signaled the fence failed, its error is returned.
func (f *Fence) Wait(ctx context.Context) error {
	f.mu.Lock()
	ch := f.ch
	f.mu.Unlock()

	select {
	case <-ch:
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Signaled reports whether the fence is signaled without blocking.
func (f *Fence) Signaled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
		return true
	default:
		return false
	}
}

func (f *Fence) signal(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
	default:
		f.err = err
		close(f.ch)
	}
}

// Semaphore is a binary semaphore between submissions. A wait consumes
// the signal.
type Semaphore struct {
	ch chan struct{}
}

// NewSemaphore returns an unsignaled semaphore.
func NewSemaphore() *Semaphore {
	return &Semaphore{ch: make(chan struct{}, 1)}
}

// Signal signals the semaphore. Signaling a signaled semaphore has no
// effect.
func (s *Semaphore) Signal() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait consumes the signal, blocking until there is one or ctx is done.
func (s *Semaphore) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
