package overlay

import (
	"sync"
	"time"
)

// FrameScheduler runs at most one pending task at a time. Requests that arrive
// while a task is pending replace it instead of queueing, so a burst of scroll
// or resize events collapses into a single reposition.
type FrameScheduler struct {
	mu       sync.Mutex
	interval time.Duration
	pending  func()
	timer    *time.Timer
}

// NewFrameScheduler creates a scheduler that runs tasks interval after the
// first request of a burst. An interval of zero runs tasks synchronously.
func NewFrameScheduler(interval time.Duration) *FrameScheduler {
	return &FrameScheduler{interval: interval}
}

// Request schedules fn. It returns false when a task was already pending and
// fn was coalesced into it.
func (s *FrameScheduler) Request(fn func()) bool {
	if s.interval <= 0 {
		fn()
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	coalesced := s.pending != nil
	s.pending = fn
	if !coalesced {
		s.timer = time.AfterFunc(s.interval, s.fire)
	}
	return !coalesced
}

// Pending reports whether a task is waiting to run.
func (s *FrameScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Flush runs the pending task now, if any.
func (s *FrameScheduler) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.fire()
}

// Cancel drops the pending task without running it.
func (s *FrameScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
}

func (s *FrameScheduler) fire() {
	s.mu.Lock()
	fn := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
