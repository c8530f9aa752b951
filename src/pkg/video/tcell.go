package video

import (
	"image"
	"sync"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/image/draw"
)

// upperHalf draws the top pixel in the foreground and the bottom pixel in
// the background, so every terminal cell shows two surface rows.
const upperHalf = '▀'

// TcellBackend presents the display surface in a terminal and turns
// terminal input into native events.
type TcellBackend struct {
	screen tcell.Screen
	queue  *Queue

	mu           sync.Mutex
	started      bool
	done         chan struct{}
	flags        Flags
	surfW, surfH int
	cols, rows   int
	buttons      tcell.ButtonMask
	mouseX       int
	mouseY       int
}

// NewTcellBackend wraps screen. The screen is initialised on the first Open.
func NewTcellBackend(screen tcell.Screen, q *Queue) *TcellBackend {
	return &TcellBackend{screen: screen, queue: q}
}

func (b *TcellBackend) Open(w, h int, flags Flags) error {
	b.mu.Lock()
	b.surfW, b.surfH = w, h
	b.flags = flags
	started := b.started
	b.mu.Unlock()
	if started {
		return nil
	}

	if err := b.screen.Init(); err != nil {
		return err
	}
	b.screen.EnableMouse()
	b.screen.EnableFocus()
	b.screen.HideCursor()
	b.screen.Clear()

	cols, rows := b.screen.Size()
	b.mu.Lock()
	b.cols, b.rows = cols, rows
	b.started = true
	b.done = make(chan struct{})
	b.mu.Unlock()

	go b.pollLoop(b.done)
	return nil
}

// pollLoop runs until the screen is finalised, at which point PollEvent
// returns nil.
func (b *TcellBackend) pollLoop(done chan struct{}) {
	defer close(done)
	for {
		ev := b.screen.PollEvent()
		if ev == nil {
			return
		}
		for _, out := range b.translate(ev) {
			if err := b.queue.Push(out); err != nil {
				Logger().Warn("dropping terminal event", "err", err)
			}
		}
	}
}

func (b *TcellBackend) translate(ev tcell.Event) []Event {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		cols, rows := ev.Size()
		b.mu.Lock()
		changed := cols != b.cols || rows != b.rows
		b.cols, b.rows = cols, rows
		resizable := b.flags&Resizable != 0
		b.mu.Unlock()
		b.screen.Sync()
		if changed && resizable {
			return []Event{ResizeEvent{W: cols, H: rows * 2}}
		}
	case *tcell.EventMouse:
		x, y := ev.Position()
		return b.mouseEvents(x, y, ev.Buttons())
	case *tcell.EventFocus:
		return []Event{ActiveEvent{Gain: ev.Focused, State: AppInputFocus}}
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			return []Event{QuitEvent{}}
		}
		return []Event{KeyEvent{Name: keyName(ev), Pressed: true}}
	}
	return nil
}

func keyName(ev *tcell.EventKey) string {
	if ev.Key() == tcell.KeyRune {
		return string(ev.Rune())
	}
	return ev.Name()
}

var buttonOrder = []struct {
	mask   tcell.ButtonMask
	button int
}{
	{tcell.Button1, ButtonLeft},
	{tcell.Button3, ButtonMiddle},
	{tcell.Button2, ButtonRight},
	{tcell.WheelUp, ButtonWheelUp},
	{tcell.WheelDown, ButtonWheelDown},
}

// mouseEvents diffs the new terminal mouse state against the previous one.
// Cell coordinates are scaled to surface pixels. Wheel steps arrive as a
// press immediately followed by a release.
func (b *TcellBackend) mouseEvents(cx, cy int, buttons tcell.ButtonMask) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	x, y := cx, cy*2
	if b.cols > 0 && b.rows > 0 && b.surfW > 0 && b.surfH > 0 {
		x = cx * b.surfW / b.cols
		y = cy * b.surfH / b.rows
	}

	var out []Event
	if x != b.mouseX || y != b.mouseY {
		out = append(out, MouseMotionEvent{
			State: b.heldMask(),
			X:     x, Y: y,
			XRel: x - b.mouseX, YRel: y - b.mouseY,
		})
		b.mouseX, b.mouseY = x, y
	}

	for _, bo := range buttonOrder {
		was := b.buttons&bo.mask != 0
		now := buttons&bo.mask != 0
		switch {
		case bo.button >= ButtonWheelUp && now:
			out = append(out,
				MouseButtonEvent{Button: bo.button, Pressed: true, X: x, Y: y},
				MouseButtonEvent{Button: bo.button, Pressed: false, X: x, Y: y})
		case now && !was:
			out = append(out, MouseButtonEvent{Button: bo.button, Pressed: true, X: x, Y: y})
		case was && !now:
			out = append(out, MouseButtonEvent{Button: bo.button, Pressed: false, X: x, Y: y})
		}
	}
	b.buttons = buttons &^ (tcell.WheelUp | tcell.WheelDown)
	return out
}

func (b *TcellBackend) heldMask() ButtonMask {
	var m ButtonMask
	for _, bo := range buttonOrder[:3] {
		if b.buttons&bo.mask != 0 {
			m |= ButtonBit(bo.button)
		}
	}
	return m
}

func (b *TcellBackend) Present(s *Surface) error {
	cols, rows := b.screen.Size()
	if cols <= 0 || rows <= 0 {
		return nil
	}
	src := s.Image()
	dst := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	for cy := 0; cy < rows; cy++ {
		for cx := 0; cx < cols; cx++ {
			top := dst.RGBAAt(cx, cy*2)
			bottom := dst.RGBAAt(cx, cy*2+1)
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bottom.R), int32(bottom.G), int32(bottom.B)))
			b.screen.SetContent(cx, cy, upperHalf, nil, style)
		}
	}
	b.screen.Show()
	return nil
}

// Warp can not move the terminal's pointer; it moves the tracked position
// and reports the motion.
func (b *TcellBackend) Warp(x, y int) {
	b.mu.Lock()
	ev := MouseMotionEvent{State: b.heldMask(), X: x, Y: y, XRel: x - b.mouseX, YRel: y - b.mouseY}
	b.mouseX, b.mouseY = x, y
	b.mu.Unlock()
	if err := b.queue.Push(ev); err != nil {
		Logger().Warn("dropping warp motion", "err", err)
	}
}

func (b *TcellBackend) Info() Info {
	return Info{WMAvailable: true, BlitSW: true}
}

func (b *TcellBackend) Close() error {
	b.mu.Lock()
	started := b.started
	done := b.done
	b.started = false
	b.mu.Unlock()
	if !started {
		return nil
	}
	b.screen.Fini()
	<-done
	return nil
}
