package pawmedia

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newTestLoop() *EventLoop {
	logger := NewLogger(false)
	logger.SetOutput(&bytes.Buffer{}, &bytes.Buffer{})
	return NewEventLoop(logger)
}

// countingSource becomes ready when pending is positive
type countingSource struct {
	pending   atomic.Int32
	delivered int
	probes    int
	active    bool
}

func (s *countingSource) Probe(flags EventFlags) time.Duration {
	s.probes++
	if s.pending.Load() > 0 {
		return 0
	}
	return 5 * time.Millisecond
}

func (s *countingSource) OnReady(flags EventFlags) bool {
	n := s.pending.Swap(0)
	s.delivered += int(n)
	return n > 0
}

func (s *countingSource) Active() bool { return s.active || s.pending.Load() > 0 }

func TestTimersRunInOrder(t *testing.T) {
	l := newTestLoop()
	var order []int
	l.After(20*time.Millisecond, func() { order = append(order, 3) })
	l.After(0, func() { order = append(order, 1) })
	l.After(5*time.Millisecond, func() { order = append(order, 2) })

	if err := l.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("order = %v", order)
	}
}

func TestCancelTimer(t *testing.T) {
	l := newTestLoop()
	fired := false
	id := l.After(0, func() { fired = true })
	keep := l.After(time.Hour, func() {})
	if !l.Cancel(id) {
		t.Fatal("Cancel of a pending timer returned false")
	}
	if l.Cancel(id) {
		t.Error("second Cancel returned true")
	}
	if ids := l.PendingTimers(); len(ids) != 1 || ids[0] != keep {
		t.Errorf("PendingTimers = %v", ids)
	}
	l.DoOneEvent(AllEvents | DontWait)
	if fired {
		t.Error("cancelled timer fired")
	}
}

func TestDoOneEventDontWait(t *testing.T) {
	l := newTestLoop()
	src := &countingSource{}
	l.AddSource(src)

	start := time.Now()
	if l.DoOneEvent(AllEvents | DontWait) {
		t.Error("processed something with nothing pending")
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("DontWait blocked")
	}

	src.pending.Store(2)
	if !l.DoOneEvent(AllEvents | DontWait) {
		t.Error("pending events not delivered")
	}
	if src.delivered != 2 {
		t.Errorf("delivered = %d", src.delivered)
	}
}

func TestDoOneEventHonoursFlags(t *testing.T) {
	l := newTestLoop()
	src := &countingSource{}
	src.pending.Store(1)
	l.AddSource(src)
	fired := false
	l.After(0, func() { fired = true })

	if !l.DoOneEvent(TimerEvents | DontWait) {
		t.Error("due timer not run")
	}
	if !fired || src.probes != 0 || src.delivered != 0 {
		t.Errorf("timer-only pass touched the source: probes=%d delivered=%d", src.probes, src.delivered)
	}
	if !l.DoOneEvent(WindowEvents | DontWait) {
		t.Error("window pass did not deliver")
	}
}

func TestWakeFromAnotherGoroutine(t *testing.T) {
	l := newTestLoop()
	src := &countingSource{}
	l.AddSource(src)
	go func() {
		time.Sleep(2 * time.Millisecond)
		src.pending.Store(1)
		l.Wake()
	}()
	deadline := time.Now().Add(2 * time.Second)
	for src.delivered == 0 && time.Now().Before(deadline) {
		l.DoOneEvent(AllEvents)
	}
	if src.delivered != 1 {
		t.Error("event from another goroutine never delivered")
	}
}

func TestRunStops(t *testing.T) {
	t.Run("idle", func(t *testing.T) {
		l := newTestLoop()
		l.AddSource(&countingSource{})
		done := make(chan error, 1)
		go func() { done <- l.Run(context.Background(), nil) }()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return with only inactive sources")
		}
	})

	t.Run("context", func(t *testing.T) {
		l := newTestLoop()
		l.AddSource(&countingSource{active: true})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := l.Run(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Run = %v, want deadline exceeded", err)
		}
	})

	t.Run("stop function", func(t *testing.T) {
		l := newTestLoop()
		l.AddSource(&countingSource{active: true})
		var stop atomic.Bool
		l.After(5*time.Millisecond, func() { stop.Store(true) })
		done := make(chan error, 1)
		go func() { done <- l.Run(context.Background(), stop.Load) }()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run = %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Run ignored stop")
		}
	})
}
