package video

import (
	"errors"
	"sync"
)

// Info describes the capabilities of the active backend.
type Info struct {
	HWAvailable bool
	WMAvailable bool
	BlitHW      bool
	BlitSW      bool
	VideoMem    int // kilobytes
}

// Backend presents the display surface somewhere and feeds native events
// into the Queue it was created with.
type Backend interface {
	// Open prepares output for a w x h display. It may be called again
	// after a mode change.
	Open(w, h int, flags Flags) error
	Present(s *Surface) error
	Warp(x, y int)
	Info() Info
	Close() error
}

var ErrNoVideoMode = errors.New("no video mode has been set")

// Display owns the video-mode surface. There is at most one per process,
// just as there is one window.
type Display struct {
	mu      sync.Mutex
	backend Backend
	surface *Surface
	opened  bool
}

func NewDisplay(backend Backend) *Display {
	return &Display{backend: backend}
}

// SetMode (re)creates the display surface. The previous surface, if any,
// stops being the display surface but stays valid.
func (d *Display) SetMode(w, h, bpp int, flags Flags) (*Surface, error) {
	s, err := NewSurface(w, h, bpp, flags)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.backend.Open(w, h, flags); err != nil {
		return nil, err
	}
	d.opened = true
	d.surface = s
	Logger().Debug("video mode set", "width", w, "height", h, "bpp", bpp)
	return s, nil
}

// Surface returns the current display surface, or nil before SetMode.
func (d *Display) Surface() *Surface {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.surface
}

// IsDisplay reports whether s is the current display surface.
func (d *Display) IsDisplay(s *Surface) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return s != nil && s == d.surface
}

// Flip presents the display surface.
func (d *Display) Flip() error {
	d.mu.Lock()
	s := d.surface
	d.mu.Unlock()
	if s == nil {
		return ErrNoVideoMode
	}
	return d.backend.Present(s)
}

func (d *Display) Warp(x, y int) {
	d.backend.Warp(x, y)
}

func (d *Display) Info() Info {
	return d.backend.Info()
}

// Close shuts the backend down. The display can not be used afterwards.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.surface = nil
	if !d.opened {
		return nil
	}
	d.opened = false
	return d.backend.Close()
}
