package scheduler

import (
	"testing"
	"time"
)

func TestEveryFiresPerInterval(t *testing.T) {
	s := New()
	count := 0
	tm := s.Every("tick", 100*time.Millisecond, func() { count++ })

	if ran := s.Advance(99 * time.Millisecond); ran != 0 || count != 0 {
		t.Fatalf("fired early: ran %d count %d", ran, count)
	}
	s.Advance(time.Millisecond)
	if count != 1 {
		t.Fatalf("expected one firing at 100ms, got %d", count)
	}
	s.Advance(350 * time.Millisecond)
	if count != 4 || tm.Fired() != 4 {
		t.Fatalf("expected catch-up to 4 firings, got %d", count)
	}
	if s.Now() != 450*time.Millisecond {
		t.Fatalf("clock = %v", s.Now())
	}
}

func TestAdvanceRunsInDueOrder(t *testing.T) {
	s := New()
	var order []string
	s.Every("slow", 300*time.Millisecond, func() { order = append(order, "slow") })
	s.Every("fast", 200*time.Millisecond, func() { order = append(order, "fast") })
	s.Every("tie", 200*time.Millisecond, func() { order = append(order, "tie") })

	s.Advance(600 * time.Millisecond)
	want := []string{"fast", "tie", "slow", "fast", "tie", "slow", "fast", "tie"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestStop(t *testing.T) {
	s := New()
	a, b := 0, 0
	ta := s.Every("a", 10*time.Millisecond, func() { a++ })
	s.Every("b", 10*time.Millisecond, func() { b++ })

	s.Advance(10 * time.Millisecond)
	s.Stop(ta)
	s.Stop(ta)
	s.Advance(50 * time.Millisecond)
	if a != 1 || b != 6 {
		t.Fatalf("a=%d b=%d", a, b)
	}
	if !ta.Stopped() || s.Len() != 1 {
		t.Fatalf("expected one live timer, got %d", s.Len())
	}
}

func TestStopFromCallback(t *testing.T) {
	s := New()
	count := 0
	var self *Timer
	self = s.Every("once", 5*time.Millisecond, func() {
		count++
		s.Stop(self)
	})
	s.Advance(time.Second)
	if count != 1 || s.Len() != 0 {
		t.Fatalf("count=%d live=%d", count, s.Len())
	}
}

func TestStopAllFromCallback(t *testing.T) {
	s := New()
	other := 0
	s.Every("reset", 10*time.Millisecond, func() { s.StopAll() })
	s.Every("other", 20*time.Millisecond, func() { other++ })
	s.Advance(time.Second)
	if other != 0 || s.Len() != 0 {
		t.Fatalf("other=%d live=%d", other, s.Len())
	}
}

func TestIntervalFloor(t *testing.T) {
	s := New()
	tm := s.Every("zero", 0, func() {})
	if tm.Interval() != MinInterval {
		t.Fatalf("interval = %v", tm.Interval())
	}
	if ran := s.Advance(5 * MinInterval); ran != 5 {
		t.Fatalf("ran %d, want 5", ran)
	}
}
