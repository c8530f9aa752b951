package video

import (
	"errors"
	"sync"
)

// DefaultQueueSize matches the depth of the classic SDL event queue.
const DefaultQueueSize = 128

var ErrQueueFull = errors.New("event queue is full")

// Queue is a bounded FIFO of native events.
// Thread-Safety:
//   - Push: any goroutine (backends push from their poll goroutines)
//   - Poll, Peek: single consumer (the script event loop)
//
// Overflow: Push fails; queued events are never overwritten, so every
// UserEvent that was accepted is eventually polled or drained.
type Queue struct {
	mu     sync.Mutex
	events []Event
	head   int
	count  int
	notify func()
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{events: make([]Event, size)}
}

// SetNotify installs a callback run (outside the lock) after every
// successful Push. The event loop uses it to wake from a blocking wait.
func (q *Queue) SetNotify(fn func()) {
	q.mu.Lock()
	q.notify = fn
	q.mu.Unlock()
}

// Push appends ev to the tail.
func (q *Queue) Push(ev Event) error {
	q.mu.Lock()
	if q.count == len(q.events) {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.events[(q.head+q.count)%len(q.events)] = ev
	q.count++
	notify := q.notify
	q.mu.Unlock()

	if notify != nil {
		notify()
	}
	return nil
}

// Poll removes and returns the head event.
func (q *Queue) Poll() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil, false
	}
	ev := q.events[q.head]
	q.events[q.head] = nil
	q.head = (q.head + 1) % len(q.events)
	q.count--
	return ev, true
}

// Peek reports whether an event is pending without consuming it.
func (q *Queue) Peek() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count > 0
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Drain removes every pending event and returns them in FIFO order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	out := make([]Event, 0, q.count)
	for q.count > 0 {
		out = append(out, q.events[q.head])
		q.events[q.head] = nil
		q.head = (q.head + 1) % len(q.events)
		q.count--
	}
	return out
}
