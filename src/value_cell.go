package pawmedia

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/phroun/pawmedia/src/pkg/video"
)

type (
	Color = video.Color
	Rect  = video.Rect
)

// CellKind names the typed view cached on a value.
type CellKind int

const (
	CellNone CellKind = iota
	CellColor
	CellRect
)

func (k CellKind) String() string {
	switch k {
	case CellColor:
		return "color"
	case CellRect:
		return "rect"
	}
	return "none"
}

var (
	ErrInvalidColor = errors.New("invalid color specification")
	ErrInvalidRect  = errors.New("invalid rect specification")
)

// ParseError reports text that does not describe a colour or rectangle.
type ParseError struct {
	Kind CellKind
	Text string
	Err  error // underlying cause, if any
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("invalid %s specification \"%s\"", e.Kind, e.Text)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrInvalidColor:
		return e.Kind == CellColor
	case ErrInvalidRect:
		return e.Kind == CellRect
	}
	return false
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) ErrorCode() string {
	return "MEDIA " + e.Kind.String()
}

// cellSnapshot is never modified once built. It is valid while the
// owning value's version still equals version.
type cellSnapshot struct {
	version uint64
	kind    CellKind
	fields  int
	color   Color
	rect    Rect
}

// cellParses counts text parses; a cache hit does not increment it.
var cellParses atomic.Uint64

// AsColor returns the colour a value describes. One field is a packed
// 0xRRGGBB integer; three fields are red, green and blue, each cut to its
// low 8 bits.
func AsColor(v *Value) (Color, error) {
	c, _, err := colorFields(v)
	return c, err
}

// colorFields is AsColor that also reports which encoding the text used.
func colorFields(v *Value) (Color, int, error) {
	if c := v.cell; c != nil && c.kind == CellColor && c.version == v.version {
		return c.color, c.fields, nil
	}
	col, n, err := parseColor(v.text)
	if err != nil {
		return Color{}, 0, err
	}
	v.cell = &cellSnapshot{version: v.version, kind: CellColor, fields: n, color: col}
	return col, n, nil
}

// AsRect returns the rectangle a value describes: {x y} or {x y w h}.
func AsRect(v *Value) (Rect, error) {
	if c := v.cell; c != nil && c.kind == CellRect && c.version == v.version {
		return c.rect, nil
	}
	r, err := parseRect(v.text)
	if err != nil {
		return Rect{}, err
	}
	v.cell = &cellSnapshot{version: v.version, kind: CellRect, rect: r}
	return r, nil
}

// MapColor converts a colour value to the native pixel of format. The
// result depends on the format and so is never cached.
func MapColor(v *Value, format *video.PixelFormat) (uint32, error) {
	c, err := AsColor(v)
	if err != nil {
		return 0, err
	}
	return format.MapRGB(c), nil
}

func parseColor(text string) (Color, int, error) {
	cellParses.Add(1)
	fields, err := splitList(text)
	if err != nil {
		return Color{}, 0, &ParseError{Kind: CellColor, Text: text, Err: err}
	}
	switch len(fields) {
	case 1:
		n, err := parseInt(fields[0])
		if err != nil {
			return Color{}, 0, &ParseError{Kind: CellColor, Text: text, Err: err}
		}
		return Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, 1, nil
	case 3:
		var ch [3]uint8
		for i, f := range fields {
			n, err := parseInt(f)
			if err != nil {
				return Color{}, 0, &ParseError{Kind: CellColor, Text: text, Err: err}
			}
			ch[i] = uint8(n)
		}
		return Color{R: ch[0], G: ch[1], B: ch[2]}, 3, nil
	}
	return Color{}, 0, &ParseError{Kind: CellColor, Text: text}
}

func parseRect(text string) (Rect, error) {
	cellParses.Add(1)
	fields, err := splitList(text)
	if err != nil {
		return Rect{}, &ParseError{Kind: CellRect, Text: text, Err: err}
	}
	if len(fields) != 2 && len(fields) != 4 {
		return Rect{}, &ParseError{Kind: CellRect, Text: text}
	}
	var n [4]int32
	for i, f := range fields {
		v, err := parseInt(f)
		if err != nil {
			return Rect{}, &ParseError{Kind: CellRect, Text: text, Err: err}
		}
		n[i] = int32(v)
	}
	return Rect{X: n[0], Y: n[1], W: n[2], H: n[3]}, nil
}
