package sema

import (
	"context"
	"sync"
)

// Event is a one-shot signal. Once fired it stays fired: every Wait,
// including ones that start later, returns immediately.
type Event struct {
	once sync.Once
	ch   chan struct{}
}

// NewEvent returns an event that has not fired.
func NewEvent() *Event {
	return &Event{ch: make(chan struct{})}
}

// Fire fires the event. Calls after the first have no effect.
func (e *Event) Fire() {
	e.once.Do(func() { close(e.ch) })
}

// Fired reports whether Fire has been called.
func (e *Event) Fired() bool {
	select {
	case <-e.ch:
		return true
	default:
		return false
	}
}

// Wait blocks until the event fires or ctx is done.
func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed when the event fires.
func (e *Event) Done() <-chan struct{} {
	return e.ch
}
