package notify

import (
	"container/heap"
	"sync"
	"time"
)

// expiryKind distinguishes what fires when a deadline passes.
type expiryKind int

const (
	kindExpire expiryKind = iota // in-app display window elapsed
	kindClose                    // native auto-close deadline
)

type deadline struct {
	at   time.Time
	id   string
	kind expiryKind
}

type deadlineHeap []deadline

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x any)         { *h = append(*h, x.(deadline)) }
func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// scheduler drives all notification deadlines off a single timer: the
// earliest deadline arms the timer, firing pops every due entry and
// invokes the callback outside the lock.
type scheduler struct {
	mu      sync.Mutex
	heap    deadlineHeap
	timer   *time.Timer
	fire    func(id string, kind expiryKind)
	stopped bool
}

func newScheduler(fire func(id string, kind expiryKind)) *scheduler {
	return &scheduler{fire: fire}
}

func (s *scheduler) schedule(id string, kind expiryKind, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	heap.Push(&s.heap, deadline{at: at, id: id, kind: kind})
	s.rearmLocked()
}

// cancel drops every deadline for id.
func (s *scheduler) cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.heap[:0]
	for _, d := range s.heap {
		if d.id != id {
			kept = append(kept, d)
		}
	}
	s.heap = kept
	heap.Init(&s.heap)
	s.rearmLocked()
}

func (s *scheduler) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.heap = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *scheduler) rearmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if len(s.heap) == 0 || s.stopped {
		return
	}
	wait := time.Until(s.heap[0].at)
	if wait < 0 {
		wait = 0
	}
	s.timer = time.AfterFunc(wait, s.onTimer)
}

func (s *scheduler) onTimer() {
	s.mu.Lock()
	var due []deadline
	now := time.Now()
	for len(s.heap) > 0 && !s.heap[0].at.After(now) {
		due = append(due, heap.Pop(&s.heap).(deadline))
	}
	s.rearmLocked()
	fire := s.fire
	s.mu.Unlock()

	for _, d := range due {
		fire(d.id, d.kind)
	}
}
