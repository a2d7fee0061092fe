package handoff

import "sync"

// Semaphore is a counting semaphore. Acquire blocks until a permit is
// available; Release adds one and wakes at most one waiter.
type Semaphore struct {
	mu    sync.Mutex
	cond  sync.Cond
	avail int
}

// NewSemaphore creates a semaphore holding permits permits. Negative values are treated as zero.
func NewSemaphore(permits int) *Semaphore {
	s := &Semaphore{avail: max(permits, 0)}
	s.cond.L = &s.mu
	return s
}

// Acquire blocks until a permit is available and takes it. There is no timeout.
func (s *Semaphore) Acquire() {
	s.mu.Lock()
	for s.avail == 0 {
		s.cond.Wait()
	}
	s.avail--
	s.mu.Unlock()
}

// TryAcquire takes a permit if one is available without blocking
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.avail == 0 {
		return false
	}
	s.avail--
	return true
}

// Release returns one permit
func (s *Semaphore) Release() {
	s.mu.Lock()
	s.avail++
	s.mu.Unlock()
	s.cond.Signal()
}

// Available reports the current count. The value is stale as soon as it
// is returned and is meant for diagnostics only.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.avail
}
