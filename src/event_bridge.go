package pawmedia

import (
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/phroun/pawmedia/src/pkg/video"
)

// EventHandlerName is the script command every native event is delivered to
const EventHandlerName = "media::on_event"

// BridgeState is where the bridge is in its probe/deliver cycle
type BridgeState int32

const (
	BridgeIdle BridgeState = iota
	BridgeProbing
	BridgeDelivering
)

func (s BridgeState) String() string {
	switch s {
	case BridgeProbing:
		return "probing"
	case BridgeDelivering:
		return "delivering"
	}
	return "idle"
}

// EventInvoker re-enters the script runtime on behalf of the bridge.
// CallPreserving must leave the caller's result and error variables as it
// found them.
type EventInvoker interface {
	CallPreserving(args ...*Value) error
	BackgroundError(err error)
}

// EventBridge delivers native events from a video.Queue to the script
// handler as an EventSource of the event loop.
type EventBridge struct {
	queue        *video.Queue
	payloads     *PayloadRegistry
	invoker      EventInvoker
	logger       *Logger
	pollInterval time.Duration
	state        atomic.Int32
	keepAlive    func() bool
}

// NewEventBridge creates a bridge over queue. A zero pollInterval uses 10ms.
func NewEventBridge(queue *video.Queue, invoker EventInvoker, logger *Logger, pollInterval time.Duration) *EventBridge {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Millisecond
	}
	return &EventBridge{
		queue:        queue,
		payloads:     NewPayloadRegistry(),
		invoker:      invoker,
		logger:       logger,
		pollInterval: pollInterval,
	}
}

func (b *EventBridge) State() BridgeState { return BridgeState(b.state.Load()) }

// SetKeepAlive sets the condition under which the bridge keeps the event
// loop running with an empty queue, typically "a window is open".
func (b *EventBridge) SetKeepAlive(fn func() bool) { b.keepAlive = fn }

// Active reports whether the bridge has, or may soon have, events.
func (b *EventBridge) Active() bool {
	if b.queue.Peek() || b.payloads.Outstanding() > 0 {
		return true
	}
	return b.keepAlive != nil && b.keepAlive()
}

// Payloads exposes the registry holding undelivered user event payloads.
func (b *EventBridge) Payloads() *PayloadRegistry { return b.payloads }

// Probe looks at the queue without consuming it.
func (b *EventBridge) Probe(flags EventFlags) time.Duration {
	if flags&WindowEvents == 0 {
		return -1
	}
	b.state.Store(int32(BridgeProbing))
	if b.queue.Peek() {
		b.state.Store(int32(BridgeDelivering))
		return 0
	}
	return b.pollInterval
}

// OnReady drains the queue, making one handler call per event in FIFO
// order. Handler errors go to the background error channel and do not
// stop the drain.
func (b *EventBridge) OnReady(flags EventFlags) bool {
	if flags&WindowEvents == 0 {
		return false
	}
	defer b.state.Store(int32(BridgeIdle))
	processed := false
	for {
		ev, ok := b.queue.Poll()
		if !ok {
			return processed
		}
		b.state.Store(int32(BridgeDelivering))
		processed = true
		b.deliver(ev)
	}
}

// PushUserEvent queues a User event carrying a and b. Shared values are
// copied first so later changes by the script do not show through.
func (b *EventBridge) PushUserEvent(a, bv *Value) error {
	if a != nil && a.IsShared() {
		a = a.Dup()
	}
	if bv != nil && bv.IsShared() {
		bv = bv.Dup()
	}
	id := b.payloads.Register(a, bv)
	if err := b.queue.Push(video.UserEvent{ID: id}); err != nil {
		b.payloads.Discard(id)
		return err
	}
	b.logger.TraceCat(CatEvent, "queued user event %d", id)
	return nil
}

// Close releases payloads of user events that were never delivered.
func (b *EventBridge) Close() {
	b.queue.Drain()
	if n := b.payloads.Outstanding(); n > 0 {
		b.logger.DebugCat(CatEvent, "releasing %d undelivered user event payloads", n)
	}
	b.payloads.Close()
}

func (b *EventBridge) deliver(ev video.Event) {
	if ue, ok := ev.(video.UserEvent); ok {
		handle, err := b.payloads.Claim(ue.ID)
		if err != nil {
			b.logger.WarnCat(CatEvent, "user event %d: %v", ue.ID, err)
			return
		}
		defer handle.Release()
		b.call(NewValue("User"), handle.A, handle.B)
		return
	}
	for _, words := range translateEvent(ev) {
		b.call(words...)
	}
}

func (b *EventBridge) call(words ...*Value) {
	args := append([]*Value{NewValue(EventHandlerName)}, words...)
	err := b.invoker.CallPreserving(args...)
	if err == nil {
		return
	}
	var se *ScriptError
	if errors.As(err, &se) {
		se.ErrorInfo += "\n    (background event handler)"
	}
	b.invoker.BackgroundError(err)
}

func intValue(n int) *Value { return NewValue(strconv.Itoa(n)) }

func words(name string, nums ...int) []*Value {
	out := make([]*Value, 0, len(nums)+1)
	out = append(out, NewValue(name))
	for _, n := range nums {
		out = append(out, intValue(n))
	}
	return out
}

// translateEvent turns a native event into handler argument lists. Focus
// events produce one list per focus kind they change.
func translateEvent(ev video.Event) [][]*Value {
	switch e := ev.(type) {
	case video.QuitEvent:
		return [][]*Value{words("Quit")}
	case video.ActiveEvent:
		var out [][]*Value
		kinds := []struct {
			bit        video.ActiveState
			gain, lose string
		}{
			{video.AppActive, "Activate", "Deactivate"},
			{video.AppMouseFocus, "Enter", "Leave"},
			{video.AppInputFocus, "FocusIn", "FocusOut"},
		}
		for _, k := range kinds {
			if e.State&k.bit == 0 {
				continue
			}
			name := k.lose
			if e.Gain {
				name = k.gain
			}
			out = append(out, words(name))
		}
		return out
	case video.ResizeEvent:
		return [][]*Value{words("Configure", e.W, e.H)}
	case video.MouseButtonEvent:
		name := "ButtonRelease"
		if e.Pressed {
			name = "ButtonPress"
		}
		return [][]*Value{words(name, e.Button, e.X, e.Y)}
	case video.MouseMotionEvent:
		return [][]*Value{words("Motion", int(e.State), e.X, e.Y, e.XRel, e.YRel)}
	case video.KeyEvent:
		name := "KeyRelease"
		if e.Pressed {
			name = "KeyPress"
		}
		return [][]*Value{{NewValue(name), NewValue(e.Name)}}
	}
	return nil
}
