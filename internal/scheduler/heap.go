package scheduler

import "container/heap"

// timerHeap implements a min-heap of timers ordered by due time.
// Timers due at the same moment fire in the order they were scheduled.
type timerHeap []*Timer

func (h timerHeap) Len() int {
	return len(h)
}

func (h timerHeap) Less(i, j int) bool {
	if h[i].due != h[j].due {
		return h[i].due < h[j].due
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].slot = i
	h[j].slot = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.slot = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil // Avoid memory leak
	t.slot = -1
	*h = old[0 : n-1]
	return t
}

// peek returns the timer due soonest without removing it.
// Returns nil if heap is empty.
func (h *timerHeap) peek() *Timer {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// remove drops t from the heap. Returns true if it was queued.
func (h *timerHeap) remove(t *Timer) bool {
	if t.slot < 0 || t.slot >= len(*h) || (*h)[t.slot] != t {
		return false
	}
	heap.Remove(h, t.slot)
	return true
}
