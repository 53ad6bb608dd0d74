package importer

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestScheduler_LineBudget(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewScheduler(3, time.Minute, clock.Now)

	for i := 0; i < 2; i++ {
		s.Consume()
		if s.Exhausted() {
			t.Fatalf("exhausted after %d lines", s.Lines())
		}
	}
	s.Consume()
	if !s.Exhausted() {
		t.Error("expected exhaustion after 3 lines")
	}
}

func TestScheduler_TimeBudget(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewScheduler(1000, 25*time.Second, clock.Now)

	clock.Advance(24 * time.Second)
	if s.Exhausted() {
		t.Error("should not be exhausted before the time budget")
	}
	clock.Advance(time.Second)
	if s.Exhausted() {
		t.Error("should not be exhausted at exactly the time budget")
	}
	clock.Advance(time.Millisecond)
	if !s.Exhausted() {
		t.Error("expected exhaustion past the time budget")
	}
}

func TestScheduler_ZeroBudgetsDisabled(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewScheduler(0, 0, clock.Now)

	for i := 0; i < 10000; i++ {
		s.Consume()
	}
	clock.Advance(time.Hour)
	if s.Exhausted() {
		t.Error("zero budgets should never exhaust")
	}
}
