package dispatch

import (
	"sync"
	"time"
)

// Scheduler runs a deferred function per ride, used for the search timeout.
// Scheduling the same id twice replaces the earlier timer.
type Scheduler interface {
	Schedule(id string, delay time.Duration, fn func())
	Cancel(id string)
}

// TimerScheduler backs the scheduler with in-process timers.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerScheduler creates an empty scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[string]*time.Timer)}
}

// Schedule arms a timer for id, replacing any existing one.
func (s *TimerScheduler) Schedule(id string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.timers[id]; ok {
		prev.Stop()
	}
	s.timers[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		fn()
	})
}

// Cancel stops and removes the timer for id if it has not fired yet.
func (s *TimerScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

var _ Scheduler = (*TimerScheduler)(nil)
