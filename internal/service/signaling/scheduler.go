package signaling

import (
	"sync"
	"time"
)

type timerEntry struct {
	timer *time.Timer
	gen   uint64
}

// Scheduler keeps one expiry timer per ringing call.
// It holds call IDs only; the expire callback decides what firing means.
type Scheduler struct {
	mu       sync.Mutex
	timeout  time.Duration
	timers   map[string]timerEntry
	gen      uint64
	stopped  bool
	onExpire func(callID string)
}

// NewScheduler creates a Scheduler that calls onExpire timeout after Arm
func NewScheduler(timeout time.Duration, onExpire func(callID string)) *Scheduler {
	return &Scheduler{
		timeout:  timeout,
		timers:   make(map[string]timerEntry),
		onExpire: onExpire,
	}
}

// Arm starts the countdown for callID, replacing any pending one
func (s *Scheduler) Arm(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if e, ok := s.timers[callID]; ok {
		e.timer.Stop()
	}

	s.gen++
	gen := s.gen
	s.timers[callID] = timerEntry{
		gen:   gen,
		timer: time.AfterFunc(s.timeout, func() { s.fire(callID, gen) }),
	}
}

// Cancel stops the countdown for callID. Reports whether one was pending.
func (s *Scheduler) Cancel(callID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.timers[callID]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.timers, callID)
	return true
}

// Pending returns the number of armed timers
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.timers)
}

// Stop cancels every timer. Later Arm calls are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) fire(callID string, gen uint64) {
	s.mu.Lock()
	e, ok := s.timers[callID]
	if !ok || e.gen != gen {
		// cancelled or re-armed after this timer was scheduled
		s.mu.Unlock()
		return
	}
	delete(s.timers, callID)
	s.mu.Unlock()

	s.onExpire(callID)
}
