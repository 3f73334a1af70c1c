package sync

import "time"

// Scheduler decides how long the poll loop pauses between ticks. The base
// interval is fixed; consecutive failed ticks back off exponentially up to
// a cap so a broken collaborator is not hammered every period.
type Scheduler struct {
	interval time.Duration
	maxDelay time.Duration
	failures int
}

// NewScheduler creates a scheduler with the given base interval and backoff
// cap. A cap below the interval is raised to it.
func NewScheduler(interval, maxDelay time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxDelay < interval {
		maxDelay = interval
	}
	return &Scheduler{
		interval: interval,
		maxDelay: maxDelay,
	}
}

// Next returns the pause before the next tick given the current failure
// streak.
func (s *Scheduler) Next() time.Duration {
	if s.failures == 0 {
		return s.interval
	}
	if s.failures > 16 {
		return s.maxDelay
	}
	delay := s.interval << uint(s.failures)
	if delay <= 0 || delay > s.maxDelay {
		return s.maxDelay
	}
	return delay
}

// Success resets the failure streak.
func (s *Scheduler) Success() {
	s.failures = 0
}

// Failure records a failed tick.
func (s *Scheduler) Failure() {
	s.failures++
}
