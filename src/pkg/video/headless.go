package video

import "sync"

// HeadlessBackend renders nowhere. It counts presented frames and keeps
// the last one, which makes it the backend of choice for tests and for
// scripts run without a terminal.
type HeadlessBackend struct {
	mu     sync.Mutex
	queue  *Queue
	frames int
	last   *Surface
	mouseX int
	mouseY int
}

func NewHeadlessBackend(q *Queue) *HeadlessBackend {
	return &HeadlessBackend{queue: q}
}

func (b *HeadlessBackend) Open(w, h int, flags Flags) error { return nil }

func (b *HeadlessBackend) Present(s *Surface) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames++
	b.last = s
	return nil
}

// Warp moves the virtual pointer and reports the move as motion, the way
// a real window system does.
func (b *HeadlessBackend) Warp(x, y int) {
	b.mu.Lock()
	dx, dy := x-b.mouseX, y-b.mouseY
	b.mouseX, b.mouseY = x, y
	b.mu.Unlock()
	if b.queue != nil {
		if err := b.queue.Push(MouseMotionEvent{X: x, Y: y, XRel: dx, YRel: dy}); err != nil {
			Logger().Warn("dropping warp motion", "err", err)
		}
	}
}

func (b *HeadlessBackend) Info() Info {
	return Info{BlitSW: true}
}

func (b *HeadlessBackend) Close() error { return nil }

// Frames returns how many times Present was called.
func (b *HeadlessBackend) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// LastFrame returns the most recently presented surface.
func (b *HeadlessBackend) LastFrame() *Surface {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
