package pawmedia

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("operation not supported for this surface format")
	ErrInvalidColorArity = errors.New("32 bit colors require a {r g b} list")
	ErrOutOfBounds       = errors.New("pixel coordinates out of range")
	ErrBufferTooSmall    = errors.New("rawbuffer not big enough for this surface")
)

// PixelBuffer is the pixel memory of a surface. video.Surface satisfies it.
type PixelBuffer interface {
	Pixels() []byte
	Pitch() int
	Width() int
	Height() int
	BitsPerPixel() int
}

// PixelAccessor reads and writes the pixels of one buffer. It must not be
// kept past the call that created it; the buffer may be reallocated by a
// mode change.
type PixelAccessor struct {
	buf    PixelBuffer
	size   int
	legacy bool
	get    func(p []byte) *Value
	set    func(p []byte, v *Value) error
}

// SelectAccessor picks the get/set strategy for buf's depth. Only 8 and
// 32 bit buffers are supported. In legacy mode the accessor reproduces
// the historical behaviour: 32 bit reads return 0/1 per channel, x and y
// are only checked against the buffer length and raw loads check and copy
// width*height bytes.
func SelectAccessor(buf PixelBuffer, legacy bool) (*PixelAccessor, error) {
	a := &PixelAccessor{buf: buf, legacy: legacy}
	switch buf.BitsPerPixel() {
	case 8:
		a.size = 1
		a.get = get8
		a.set = set8
	case 32:
		a.size = 4
		a.get = get32
		if legacy {
			a.get = get32Legacy
		}
		a.set = set32
	default:
		return nil, ErrUnsupportedFormat
	}
	return a, nil
}

func get8(p []byte) *Value { return NewIntValue(int64(p[0])) }

func set8(p []byte, v *Value) error {
	n, err := v.Int()
	if err != nil {
		return err
	}
	p[0] = byte(n)
	return nil
}

func get32(p []byte) *Value {
	pixel := uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
	return NewStringList(
		fmt.Sprint(pixel&0xff),
		fmt.Sprint((pixel>>8)&0xff),
		fmt.Sprint((pixel>>16)&0xff),
	)
}

func get32Legacy(p []byte) *Value {
	pixel := uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
	bit := func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	}
	return NewStringList(bit(pixel != 0), bit(pixel>>8 != 0), bit(pixel>>16 != 0))
}

// set32 stores b<<16 | g<<8 | r little endian.
func set32(p []byte, v *Value) error {
	c, n, err := colorFields(v)
	if err != nil || n != 3 {
		var pe *ParseError
		if errors.As(err, &pe) && pe.Err != nil {
			return pe
		}
		return ErrInvalidColorArity
	}
	p[0], p[1], p[2], p[3] = c.R, c.G, c.B, 0
	return nil
}

func (a *PixelAccessor) offset(x, y int) (int, error) {
	if !a.legacy && (x < 0 || y < 0 || x >= a.buf.Width() || y >= a.buf.Height()) {
		return 0, fmt.Errorf("%w: %d,%d", ErrOutOfBounds, x, y)
	}
	off := y*a.buf.Pitch() + x*a.size
	if off < 0 || off+a.size > a.buf.Pitch()*a.buf.Height() || off+a.size > len(a.buf.Pixels()) {
		return 0, fmt.Errorf("%w: %d,%d", ErrOutOfBounds, x, y)
	}
	return off, nil
}

// Get returns the pixel at x,y: an integer for 8 bit buffers, {r g b}
// for 32 bit ones.
func (a *PixelAccessor) Get(x, y int) (*Value, error) {
	off, err := a.offset(x, y)
	if err != nil {
		return nil, err
	}
	return a.get(a.buf.Pixels()[off:]), nil
}

// Set writes v at x,y. 8 bit values are cut to their low byte.
func (a *PixelAccessor) Set(x, y int, v *Value) error {
	off, err := a.offset(x, y)
	if err != nil {
		return err
	}
	return a.set(a.buf.Pixels()[off:], v)
}

// DumpRows returns the buffer as a list of rows.
func (a *PixelAccessor) DumpRows() *Value {
	pix, pitch := a.buf.Pixels(), a.buf.Pitch()
	rows := make([]*Value, a.buf.Height())
	row := make([]*Value, a.buf.Width())
	for y := range rows {
		for x := range row {
			row[x] = a.get(pix[y*pitch+x*a.size:])
		}
		rows[y] = NewListValue(row...)
	}
	return NewListValue(rows...)
}

// LoadRows writes a list of rows into the buffer. Rows and columns beyond
// the buffer are ignored and missing ones leave pixels unchanged.
func (a *PixelAccessor) LoadRows(v *Value) error {
	rows, err := v.List()
	if err != nil {
		return err
	}
	pix, pitch := a.buf.Pixels(), a.buf.Pitch()
	h := min(len(rows), a.buf.Height())
	for y := 0; y < h; y++ {
		cols, err := rows[y].List()
		if err != nil {
			return fmt.Errorf("row %d: %w", y, err)
		}
		w := min(len(cols), a.buf.Width())
		for x := 0; x < w; x++ {
			if err := a.set(pix[y*pitch+x*a.size:], cols[x]); err != nil {
				return fmt.Errorf("pixel %d,%d: %w", x, y, err)
			}
		}
	}
	return nil
}

// DumpRaw returns a copy of the pitch*height bytes of the buffer.
func (a *PixelAccessor) DumpRaw() *Value {
	n := a.buf.Pitch() * a.buf.Height()
	return NewBytesValue(a.buf.Pixels()[:n])
}

// LoadRaw copies raw bytes over the buffer.
func (a *PixelAccessor) LoadRaw(raw []byte) error {
	need := a.buf.Pitch() * a.buf.Height()
	if a.legacy {
		need = a.buf.Width() * a.buf.Height()
	}
	if len(raw) < need {
		return ErrBufferTooSmall
	}
	copy(a.buf.Pixels()[:need], raw)
	return nil
}
