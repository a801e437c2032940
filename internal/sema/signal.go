package sema

// Signal is a counting wake-up signal with a fixed bound on outstanding
// posts. Post never blocks as long as the bound is respected.
type Signal struct {
	ch chan struct{}
}

// NewSignal returns a signal with value zero that can hold up to bound
// outstanding posts.
func NewSignal(bound int) *Signal {
	return &Signal{ch: make(chan struct{}, bound)}
}

// Post increments the signal, waking one waiter.
func (s *Signal) Post() {
	s.ch <- struct{}{}
}

// Wait blocks until the signal is posted or stop is closed. It reports
// whether a post was consumed. A pending post wins over a closed stop only
// if both are ready at the same time; callers that must drain should check
// stop themselves.
func (s *Signal) Wait(stop <-chan struct{}) bool {
	select {
	case <-s.ch:
		return true
	case <-stop:
		return false
	}
}

// Pending returns the number of posts not consumed yet.
func (s *Signal) Pending() int {
	return len(s.ch)
}
