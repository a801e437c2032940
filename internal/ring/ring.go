// Package ring provides the fixed-capacity FIFO used for images waiting to
// be flipped.
package ring

// Ring is a fixed-capacity circular queue.
//
// Ring is not safe for concurrent use by itself. It is meant for a single
// producer that calls Push and a single consumer that calls Pop, where the
// producer's Push happens-before the consumer's matching Pop through some
// other synchronization (a channel send, a semaphore post). Under that
// discipline the producer only writes tail and the consumer only writes head.
type Ring[T any] struct {
	buf  []T
	head int
	tail int
}

// New returns a ring holding at most capacity elements.
// It panics if capacity is not positive.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Push stores v at the tail and advances it.
// The caller guarantees the ring is not full; a full ring overwrites the
// oldest element that has not been popped yet.
func (r *Ring[T]) Push(v T) {
	r.buf[r.tail] = v
	r.tail = (r.tail + 1) % len(r.buf)
}

// Pop returns the element at the head and advances it.
// The caller guarantees the ring is not empty.
func (r *Ring[T]) Pop() T {
	v := r.buf[r.head]
	var zero T
	r.buf[r.head] = zero
	r.head = (r.head + 1) % len(r.buf)
	return v
}
