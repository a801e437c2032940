package sema

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Counter is a counting semaphore bounded by its initial value.
//
// Every Post must give back a unit obtained by an earlier Wait or TryWait;
// posting more than was taken is a bug and panics.
type Counter struct {
	w *semaphore.Weighted
}

// NewCounter returns a counter whose value and bound are n.
func NewCounter(n int) *Counter {
	return &Counter{w: semaphore.NewWeighted(int64(n))}
}

// TryWait takes one unit if one is available without blocking.
func (c *Counter) TryWait() bool {
	return c.w.TryAcquire(1)
}

// Wait takes one unit, blocking until one is posted or ctx is done.
func (c *Counter) Wait(ctx context.Context) error {
	return c.w.Acquire(ctx, 1)
}

// WaitTimeout takes one unit, blocking at most timeout.
// A negative timeout waits until ctx is done. On expiry it returns
// context.DeadlineExceeded.
func (c *Counter) WaitTimeout(ctx context.Context, timeout time.Duration) error {
	if timeout < 0 {
		return c.Wait(ctx)
	}
	if c.TryWait() {
		return nil
	}
	if timeout == 0 {
		return context.DeadlineExceeded
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.w.Acquire(ctx, 1)
}

// Post gives one unit back.
func (c *Counter) Post() {
	c.w.Release(1)
}
