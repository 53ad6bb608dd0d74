package importer

import "time"

// Scheduler bounds a batch by consumed lines and elapsed wall-clock time.
// It is only consulted between statements; see Engine.RunBatch.
type Scheduler struct {
	lineBudget int
	timeBudget time.Duration
	now        func() time.Time
	start      time.Time
	lines      int
}

// NewScheduler starts the budget clock. A zero budget disables that bound.
func NewScheduler(lineBudget int, timeBudget time.Duration, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		lineBudget: lineBudget,
		timeBudget: timeBudget,
		now:        now,
		start:      now(),
	}
}

// Consume records one consumed line
func (s *Scheduler) Consume() {
	s.lines++
}

// Lines returns the number of consumed lines
func (s *Scheduler) Lines() int {
	return s.lines
}

// Exhausted reports whether either budget is used up.
// The time budget is exceeded only once elapsed time goes past it.
func (s *Scheduler) Exhausted() bool {
	if s.lineBudget > 0 && s.lines >= s.lineBudget {
		return true
	}
	return s.timeBudget > 0 && s.now().Sub(s.start) > s.timeBudget
}
