package halgpu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/wsi"
	"github.com/gogpu/wsi/swapchain"
)

// submission is one queued work item. idle is set only for the markers
// WaitIdle queues.
type submission struct {
	waits   []*Semaphore
	signals []*Semaphore
	fence   *Fence
	idle    chan error
}

// Queue serializes submissions onto a HAL queue.
type Queue struct {
	hq   hal.Queue
	poll time.Duration

	mu      sync.Mutex
	items   []*submission
	wake    chan struct{}
	closed  bool
	lastErr error

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newQueue(hq hal.Queue, poll time.Duration) *Queue {
	q := &Queue{
		hq:   hq,
		poll: poll,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	q.ctx, q.cancel = context.WithCancel(context.Background())
	go q.run()
	return q
}

// Submit queues a work item. waits and signals must hold *Semaphore
// values and fence, if not nil, a *Fence.
func (q *Queue) Submit(waits, signals []swapchain.Semaphore, fence swapchain.Fence) error {
	s := &submission{}
	var err error
	if s.waits, err = semaphores(waits); err != nil {
		return err
	}
	if s.signals, err = semaphores(signals); err != nil {
		return err
	}
	if fence != nil {
		f, ok := fence.(*Fence)
		if !ok {
			return fmt.Errorf("halgpu: fence %T was not created by halgpu", fence)
		}
		s.fence = f
	}
	return q.enqueue(s)
}

// WaitIdle blocks until every submission queued before it has completed.
func (q *Queue) WaitIdle() error {
	s := &submission{idle: make(chan error, 1)}
	if err := q.enqueue(s); err != nil {
		return err
	}
	return <-s.idle
}

func semaphores(in []swapchain.Semaphore) ([]*Semaphore, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]*Semaphore, len(in))
	for i, s := range in {
		hs, ok := s.(*Semaphore)
		if !ok {
			return nil, fmt.Errorf("halgpu: semaphore %T was not created by halgpu", s)
		}
		out[i] = hs
	}
	return out, nil
}

func (q *Queue) enqueue(s *submission) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("halgpu: queue closed: %w", hal.ErrDeviceLost)
	}
	q.items = append(q.items, s)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// next pops the oldest submission, blocking until there is one. It
// returns nil once the queue is closed and drained.
func (q *Queue) next() *submission {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			s := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return s
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil
		}
		<-q.wake
	}
}

func (q *Queue) run() {
	defer close(q.done)
	log := wsi.Logger().With("component", "halgpu")

	for s := q.next(); s != nil; s = q.next() {
		err := q.execute(s)
		if err != nil {
			log.Warn("submission failed", "err", err)
		}
		for _, sig := range s.signals {
			sig.Signal()
		}
		if s.fence != nil {
			s.fence.signal(err)
		}
		if s.idle != nil {
			s.idle <- err
		}
	}
}

// execute waits for the semaphores of s and retires an empty HAL batch
// behind everything submitted so far.
//
// hal.Queue.Submit takes no fence and reports no completion event, so the
// batch index is polled through PollCompleted every poll interval. Only
// this worker polls; the flip goroutine blocks on the fence channel.
func (q *Queue) execute(s *submission) error {
	for _, w := range s.waits {
		if err := w.Wait(q.ctx); err != nil {
			return fmt.Errorf("halgpu: wait semaphore: %w", hal.ErrDeviceLost)
		}
	}

	index, err := q.hq.Submit(nil)
	if err != nil {
		err = wsi.FromHAL(err)
		q.mu.Lock()
		q.lastErr = err
		q.mu.Unlock()
		return err
	}

	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()
	for q.hq.PollCompleted() < index {
		select {
		case <-ticker.C:
		case <-q.ctx.Done():
			return fmt.Errorf("halgpu: queue closed: %w", hal.ErrDeviceLost)
		}
	}
	return nil
}

// Err returns the last HAL submission error, or nil.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastErr
}

// close fails pending semaphore waits and polls, drains the queue and
// stops the worker.
func (q *Queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.cancel()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	<-q.done
}
