package video

import (
	"errors"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4)
	q.Push(QuitEvent{})
	q.Push(ResizeEvent{W: 1, H: 2})
	q.Push(UserEvent{ID: 9})

	if !q.Peek() {
		t.Fatal("Peek on non-empty queue returned false")
	}
	if q.Len() != 3 {
		t.Errorf("Len = %d, want 3", q.Len())
	}

	want := []Event{QuitEvent{}, ResizeEvent{W: 1, H: 2}, UserEvent{ID: 9}}
	for i, w := range want {
		ev, ok := q.Poll()
		if !ok || ev != w {
			t.Errorf("event %d = %#v, want %#v", i, ev, w)
		}
	}
	if _, ok := q.Poll(); ok {
		t.Error("Poll on empty queue returned an event")
	}
}

func TestQueueFullAndWrap(t *testing.T) {
	q := NewQueue(2)
	if err := q.Push(QuitEvent{}); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(QuitEvent{}); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(QuitEvent{}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("third push: got %v, want ErrQueueFull", err)
	}

	q.Poll()
	if err := q.Push(KeyEvent{Name: "a"}); err != nil {
		t.Fatalf("push after poll: %v", err)
	}
	got := q.Drain()
	if len(got) != 2 || got[1] != (KeyEvent{Name: "a"}) {
		t.Errorf("Drain = %#v", got)
	}
	if q.Peek() {
		t.Error("queue not empty after Drain")
	}
}

func TestQueueNotify(t *testing.T) {
	q := NewQueue(1)
	calls := 0
	q.SetNotify(func() { calls++ })
	q.Push(QuitEvent{})
	q.Push(QuitEvent{}) // full, no notification
	if calls != 1 {
		t.Errorf("notify called %d times, want 1", calls)
	}
}

func TestHeadlessWarpReportsMotion(t *testing.T) {
	q := NewQueue(4)
	b := NewHeadlessBackend(q)
	d := NewDisplay(b)
	if _, err := d.SetMode(10, 10, 32, 0); err != nil {
		t.Fatal(err)
	}

	d.Warp(3, 4)
	d.Warp(5, 4)
	ev1, _ := q.Poll()
	ev2, _ := q.Poll()
	if ev1 != (MouseMotionEvent{X: 3, Y: 4, XRel: 3, YRel: 4}) {
		t.Errorf("first warp = %#v", ev1)
	}
	if ev2 != (MouseMotionEvent{X: 5, Y: 4, XRel: 2, YRel: 0}) {
		t.Errorf("second warp = %#v", ev2)
	}

	if err := d.Flip(); err != nil {
		t.Fatal(err)
	}
	if b.Frames() != 1 || b.LastFrame() != d.Surface() {
		t.Errorf("Flip did not present the display surface")
	}
}

func TestFlipWithoutMode(t *testing.T) {
	d := NewDisplay(NewHeadlessBackend(nil))
	if err := d.Flip(); !errors.Is(err, ErrNoVideoMode) {
		t.Errorf("Flip before SetMode: got %v", err)
	}
}

func newTestTcell(t *testing.T, w, h int, flags Flags) (*TcellBackend, tcell.SimulationScreen, *Queue) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	q := NewQueue(32)
	b := NewTcellBackend(screen, q)
	if err := b.Open(w, h, flags); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	// Init sizes the simulation screen to 80x25, and SetSize posts no event.
	screen.SetSize(10, 5)
	b.translate(tcell.NewEventResize(10, 5))
	return b, screen, q
}

func TestTcellMouseTranslation(t *testing.T) {
	b, _, _ := newTestTcell(t, 20, 10, 0)

	evs := b.mouseEvents(5, 2, tcell.Button1)
	want := []Event{
		MouseMotionEvent{X: 10, Y: 4, XRel: 10, YRel: 4},
		MouseButtonEvent{Button: ButtonLeft, Pressed: true, X: 10, Y: 4},
	}
	if len(evs) != len(want) {
		t.Fatalf("got %#v, want %#v", evs, want)
	}
	for i := range want {
		if evs[i] != want[i] {
			t.Errorf("event %d = %#v, want %#v", i, evs[i], want[i])
		}
	}

	evs = b.mouseEvents(6, 2, tcell.Button1)
	if len(evs) != 1 || evs[0] != (MouseMotionEvent{State: ButtonBit(ButtonLeft), X: 12, Y: 4, XRel: 2}) {
		t.Errorf("drag = %#v", evs)
	}

	evs = b.mouseEvents(6, 2, tcell.ButtonNone)
	if len(evs) != 1 || evs[0] != (MouseButtonEvent{Button: ButtonLeft, X: 12, Y: 4}) {
		t.Errorf("release = %#v", evs)
	}

	evs = b.mouseEvents(6, 2, tcell.WheelUp)
	if len(evs) != 2 || evs[0] != (MouseButtonEvent{Button: ButtonWheelUp, Pressed: true, X: 12, Y: 4}) {
		t.Errorf("wheel = %#v", evs)
	}
}

func TestTcellKeyAndFocus(t *testing.T) {
	b, _, _ := newTestTcell(t, 20, 10, 0)

	got := b.translate(tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl))
	if len(got) != 1 || got[0] != (QuitEvent{}) {
		t.Errorf("ctrl-c = %#v", got)
	}
	got = b.translate(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	if len(got) != 1 || got[0] != (KeyEvent{Name: "q", Pressed: true}) {
		t.Errorf("rune key = %#v", got)
	}
	got = b.translate(tcell.NewEventFocus(false))
	if len(got) != 1 || got[0] != (ActiveEvent{Gain: false, State: AppInputFocus}) {
		t.Errorf("focus = %#v", got)
	}
}

func TestTcellResizeOnlyWhenResizable(t *testing.T) {
	fixed, _, _ := newTestTcell(t, 20, 10, 0)
	if got := fixed.translate(tcell.NewEventResize(40, 12)); len(got) != 0 {
		t.Errorf("fixed display reported resize: %#v", got)
	}

	resizable, _, _ := newTestTcell(t, 20, 10, Resizable)
	got := resizable.translate(tcell.NewEventResize(40, 12))
	if len(got) != 1 || got[0] != (ResizeEvent{W: 40, H: 24}) {
		t.Errorf("resize = %#v", got)
	}
}

func TestTcellPresent(t *testing.T) {
	b, screen, _ := newTestTcell(t, 10, 10, 0)
	s, _ := NewSurface(10, 10, 32, 0)
	s.Fill(nil, s.MapRGB(Color{R: 255}))
	if err := b.Present(s); err != nil {
		t.Fatal(err)
	}
	cells, w, h := screen.GetContents()
	if w != 10 || h != 5 || len(cells) != 50 {
		t.Fatalf("screen %dx%d with %d cells", w, h, len(cells))
	}
	if len(cells[0].Runes) == 0 || cells[0].Runes[0] != upperHalf {
		t.Errorf("cell 0 runes = %q", cells[0].Runes)
	}
}
