package pawmedia

import (
	"container/heap"
	"context"
	"sort"
	"sync"
	"time"
)

// EventFlags select which kinds of events one loop iteration handles
type EventFlags int

const (
	WindowEvents EventFlags = 1 << iota
	TimerEvents
	DontWait

	AllEvents = WindowEvents | TimerEvents
)

// EventSource plugs a foreign event queue into the loop. Probe is asked
// before the loop would block and returns the longest the loop may sleep
// before asking again, or a negative duration for no limit. OnReady is
// called after the wait and reports whether it delivered anything.
// Neither may block.
type EventSource interface {
	Probe(flags EventFlags) time.Duration
	OnReady(flags EventFlags) bool
}

// A source that also implements activeSource only keeps the loop alive
// while Active returns true.
type activeSource interface {
	Active() bool
}

type timer struct {
	id    int
	when  time.Time
	fn    func()
	index int
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].id < h[j].id
	}
	return h[i].when.Before(h[j].when)
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x interface{}) {
	t := x.(*timer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *timerHeap) Pop() interface{} {
	old := *h
	t := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	t.index = -1
	return t
}

// EventLoop is the single cooperative scheduler. All script code runs on
// the goroutine that calls DoOneEvent; other goroutines may only Wake it.
type EventLoop struct {
	mu      sync.Mutex
	sources []EventSource
	timers  timerHeap
	byID    map[int]*timer
	nextID  int
	wake    chan struct{}
	logger  *Logger
}

// NewEventLoop creates an idle event loop
func NewEventLoop(logger *Logger) *EventLoop {
	return &EventLoop{
		byID:   make(map[int]*timer),
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// AddSource registers an event source
func (l *EventLoop) AddSource(src EventSource) {
	l.mu.Lock()
	l.sources = append(l.sources, src)
	l.mu.Unlock()
}

// RemoveSource unregisters an event source
func (l *EventLoop) RemoveSource(src EventSource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, s := range l.sources {
		if s == src {
			l.sources = append(l.sources[:i], l.sources[i+1:]...)
			return
		}
	}
}

// After schedules fn to run on the loop after d and returns its id
func (l *EventLoop) After(d time.Duration, fn func()) int {
	l.mu.Lock()
	l.nextID++
	t := &timer{id: l.nextID, when: time.Now().Add(d), fn: fn}
	heap.Push(&l.timers, t)
	l.byID[t.id] = t
	l.mu.Unlock()
	l.Wake()
	return t.id
}

// Cancel removes a pending timer
func (l *EventLoop) Cancel(id int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.byID[id]
	if !ok {
		return false
	}
	delete(l.byID, id)
	heap.Remove(&l.timers, t.index)
	return true
}

// PendingTimers returns the ids of timers not yet run, earliest first
func (l *EventLoop) PendingTimers() []int {
	l.mu.Lock()
	sorted := append(timerHeap(nil), l.timers...)
	l.mu.Unlock()
	sort.Slice(sorted, sorted.Less)
	ids := make([]int, len(sorted))
	for i, t := range sorted {
		ids[i] = t.id
	}
	return ids
}

// idle reports whether nothing could ever produce another event.
func (l *EventLoop) idle() bool {
	l.mu.Lock()
	pending := l.timers.Len()
	l.mu.Unlock()
	if pending > 0 {
		return false
	}
	for _, src := range l.snapshotSources() {
		if a, ok := src.(activeSource); !ok || a.Active() {
			return false
		}
	}
	return true
}

// Wake interrupts a blocking wait. Safe from any goroutine.
func (l *EventLoop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// runDueTimers runs every timer that was due when it was called.
func (l *EventLoop) runDueTimers() bool {
	now := time.Now()
	var due []*timer
	l.mu.Lock()
	for l.timers.Len() > 0 && !l.timers[0].when.After(now) {
		t := heap.Pop(&l.timers).(*timer)
		delete(l.byID, t.id)
		due = append(due, t)
	}
	l.mu.Unlock()
	for _, t := range due {
		l.logger.TraceCat(CatAsync, "timer %d fired", t.id)
		t.fn()
	}
	return len(due) > 0
}

func (l *EventLoop) snapshotSources() []EventSource {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]EventSource(nil), l.sources...)
}

// DoOneEvent runs due timers or, failing that, waits at most once for the
// sources and timers to become ready and delivers what they have. It
// returns whether anything was processed. With DontWait it never sleeps.
func (l *EventLoop) DoOneEvent(flags EventFlags) bool {
	if flags&TimerEvents != 0 && l.runDueTimers() {
		return true
	}

	sources := l.snapshotSources()
	wait := time.Duration(-1)
	if flags&WindowEvents != 0 {
		for _, src := range sources {
			if d := src.Probe(flags); d >= 0 && (wait < 0 || d < wait) {
				wait = d
			}
		}
	}
	if flags&TimerEvents != 0 {
		l.mu.Lock()
		if l.timers.Len() > 0 {
			d := time.Until(l.timers[0].when)
			if d < 0 {
				d = 0
			}
			if wait < 0 || d < wait {
				wait = d
			}
		}
		l.mu.Unlock()
	}
	if flags&DontWait != 0 {
		wait = 0
	}

	switch {
	case wait < 0:
		if flags&WindowEvents == 0 || len(sources) == 0 {
			return false
		}
		<-l.wake
	case wait > 0:
		t := time.NewTimer(wait)
		select {
		case <-l.wake:
		case <-t.C:
		}
		t.Stop()
	}

	processed := false
	if flags&WindowEvents != 0 {
		for _, src := range sources {
			if src.OnReady(flags) {
				processed = true
			}
		}
	}
	if flags&TimerEvents != 0 && l.runDueTimers() {
		processed = true
	}
	return processed
}

// Run processes events until ctx is done or stop returns true.
func (l *EventLoop) Run(ctx context.Context, stop func() bool) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			l.Wake()
		case <-done:
		}
	}()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if stop != nil && stop() {
			return nil
		}
		if !l.DoOneEvent(AllEvents) && l.idle() {
			l.logger.DebugCat(CatAsync, "event loop has nothing left to wait for")
			return nil
		}
	}
}
