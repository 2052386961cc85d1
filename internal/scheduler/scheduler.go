// Package scheduler runs periodic callbacks against a clock that only moves
// when Advance is called. Everything happens on the caller's goroutine, so
// callbacks may freely touch state owned by that goroutine.
package scheduler

import (
	"container/heap"
	"time"
)

// MinInterval is the shortest period a timer may have.
const MinInterval = time.Millisecond

// Timer is a periodic callback registered with a Scheduler.
type Timer struct {
	name     string
	interval time.Duration
	fn       func()
	due      time.Duration
	seq      uint64
	slot     int
	stopped  bool
	fired    int
}

// Name identifies the timer in logs.
func (t *Timer) Name() string { return t.name }

// Interval returns the timer period.
func (t *Timer) Interval() time.Duration { return t.interval }

// Fired returns how many times the callback has run.
func (t *Timer) Fired() int { return t.fired }

// Stopped reports whether the timer was cancelled.
func (t *Timer) Stopped() bool { return t.stopped }

// Scheduler owns a set of timers and a virtual clock.
// Not safe for concurrent use.
type Scheduler struct {
	now     time.Duration
	seq     uint64
	timers  *timerHeap
	running *Timer
}

// New returns a scheduler with its clock at zero.
func New() *Scheduler {
	h := &timerHeap{}
	heap.Init(h)
	return &Scheduler{timers: h}
}

// Now returns the time elapsed on the virtual clock.
func (s *Scheduler) Now() time.Duration { return s.now }

// Len returns the number of live timers.
func (s *Scheduler) Len() int { return s.timers.Len() }

// Every schedules fn to run once per interval, first at one interval from now.
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) *Timer {
	if interval < MinInterval {
		interval = MinInterval
	}
	s.seq++
	t := &Timer{
		name:     name,
		interval: interval,
		fn:       fn,
		due:      s.now + interval,
		seq:      s.seq,
		slot:     -1,
	}
	heap.Push(s.timers, t)
	return t
}

// Stop cancels t. Stopping twice, or stopping a timer from its own callback,
// is fine.
func (s *Scheduler) Stop(t *Timer) {
	if t == nil || t.stopped {
		return
	}
	t.stopped = true
	s.timers.remove(t)
}

// StopAll cancels every timer, including one whose callback is running.
func (s *Scheduler) StopAll() {
	if s.running != nil {
		s.running.stopped = true
	}
	for s.timers.Len() > 0 {
		t := heap.Pop(s.timers).(*Timer)
		t.stopped = true
	}
}

// Advance moves the clock forward by dt and runs every callback that comes
// due, earliest first. A timer that fell several periods behind fires once
// per missed period. Returns the number of callbacks run.
func (s *Scheduler) Advance(dt time.Duration) int {
	if dt < 0 {
		dt = 0
	}
	target := s.now + dt
	ran := 0
	for {
		t := s.timers.peek()
		if t == nil || t.due > target {
			break
		}
		heap.Pop(s.timers)
		s.now = t.due
		t.fired++
		ran++
		s.running = t
		t.fn()
		s.running = nil
		if !t.stopped {
			t.due += t.interval
			s.seq++
			t.seq = s.seq
			heap.Push(s.timers, t)
		}
	}
	s.now = target
	return ran
}
