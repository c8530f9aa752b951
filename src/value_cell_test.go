package pawmedia

import (
	"errors"
	"testing"

	"github.com/phroun/pawmedia/src/pkg/video"
)

func TestAsColor(t *testing.T) {
	tests := []struct {
		text string
		want Color
	}{
		{"10 20 30", Color{R: 10, G: 20, B: 30}},
		{"0 0 0", Color{}},
		{"255 255 255", Color{R: 255, G: 255, B: 255}},
		{"300 -1 256", Color{R: 44, G: 255, B: 0}},
		{"0x10 0x20 0x30", Color{R: 0x10, G: 0x20, B: 0x30}},
		{"0x123456", Color{R: 0x12, G: 0x34, B: 0x56}},
		{"16777215", Color{R: 255, G: 255, B: 255}},
		{"0xAA123456", Color{R: 0x12, G: 0x34, B: 0x56}},
		{"{1} {2} {3}", Color{R: 1, G: 2, B: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := AsColor(NewValue(tt.text))
			if err != nil {
				t.Fatalf("AsColor(%q): %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("AsColor(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAsColorPackedDecomposition(t *testing.T) {
	for _, v := range []int64{0, 1, 0xff, 0x100, 0x10000, 0x7f7f7f, 0xabcdef, 0xffffff} {
		c, err := AsColor(NewIntValue(v))
		if err != nil {
			t.Fatalf("AsColor(%d): %v", v, err)
		}
		want := Color{R: uint8((v >> 16) & 0xff), G: uint8((v >> 8) & 0xff), B: uint8(v & 0xff)}
		if c != want {
			t.Errorf("AsColor(%#x) = %+v, want %+v", v, c, want)
		}
	}
}

func TestAsColorInvalid(t *testing.T) {
	for _, text := range []string{"", "1 2", "1 2 3 4", "red", "1 two 3", "{1 2"} {
		_, err := AsColor(NewValue(text))
		if !errors.Is(err, ErrInvalidColor) {
			t.Errorf("AsColor(%q) error = %v, want ErrInvalidColor", text, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) || pe.Text != text || pe.Kind != CellColor {
			t.Errorf("AsColor(%q) error = %#v, want *ParseError for the text", text, err)
		}
	}
}

func TestAsRect(t *testing.T) {
	tests := []struct {
		text string
		want Rect
		ok   bool
	}{
		{"1 2 10 10", Rect{X: 1, Y: 2, W: 10, H: 10}, true},
		{"5 6", Rect{X: 5, Y: 6}, true},
		{"-3 -4 0 0", Rect{X: -3, Y: -4}, true},
		{"0x1 0x2 10 10", Rect{X: 1, Y: 2, W: 10, H: 10}, true},
		{"", Rect{}, false},
		{"1", Rect{}, false},
		{"1 2 3", Rect{}, false},
		{"1 2 3 4 5", Rect{}, false},
		{"a b", Rect{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := AsRect(NewValue(tt.text))
			if !tt.ok {
				if !errors.Is(err, ErrInvalidRect) {
					t.Errorf("AsRect(%q) error = %v, want ErrInvalidRect", tt.text, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AsRect(%q): %v", tt.text, err)
			}
			if got != tt.want {
				t.Errorf("AsRect(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCellCache(t *testing.T) {
	v := NewValue("10 20 30")
	first, err := AsColor(v)
	if err != nil {
		t.Fatal(err)
	}
	before := cellParses.Load()
	for i := 0; i < 5; i++ {
		again, err := AsColor(v)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("cached colour changed: %+v != %+v", again, first)
		}
	}
	if n := cellParses.Load() - before; n != 0 {
		t.Errorf("unchanged text was parsed %d more times", n)
	}

	t.Run("rewrite invalidates", func(t *testing.T) {
		v.SetString("1 2 3")
		c, err := AsColor(v)
		if err != nil {
			t.Fatal(err)
		}
		if c != (Color{R: 1, G: 2, B: 3}) {
			t.Errorf("after rewrite got %+v, want stale value dropped", c)
		}
	})

	t.Run("rewrite to invalid text", func(t *testing.T) {
		v.SetString("nope")
		if _, err := AsColor(v); err == nil {
			t.Error("stale colour returned for invalid text")
		}
	})

	t.Run("kind switch reparses", func(t *testing.T) {
		r := NewValue("1 2 3 4")
		if _, err := AsRect(r); err != nil {
			t.Fatal(err)
		}
		// the same value read as a colour has four fields
		if _, err := AsColor(r); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("AsColor on rect text: %v, want ErrInvalidColor", err)
		}
		if _, err := AsRect(r); err != nil {
			t.Errorf("AsRect after failed colour read: %v", err)
		}
	})
}

func TestCellDupIsIndependent(t *testing.T) {
	src := NewValue("10 20 30")
	if _, err := AsColor(src); err != nil {
		t.Fatal(err)
	}
	cp := src.Dup()
	if cp.cell != nil {
		t.Fatal("Dup carried the cached form over")
	}
	cp.SetString("40 50 60")
	a, _ := AsColor(src)
	b, _ := AsColor(cp)
	if a != (Color{R: 10, G: 20, B: 30}) {
		t.Errorf("source changed through its copy: %+v", a)
	}
	if b != (Color{R: 40, G: 50, B: 60}) {
		t.Errorf("copy = %+v", b)
	}
}

func TestCellDiesWithValue(t *testing.T) {
	v := NewValue("1 2 3")
	v.Retain()
	if _, err := AsColor(v); err != nil {
		t.Fatal(err)
	}
	v.Release()
	if v.cell != nil {
		t.Error("cached form kept after the last release")
	}
}

func TestMapColor(t *testing.T) {
	f32, err := video.NewPixelFormat(32)
	if err != nil {
		t.Fatal(err)
	}
	v := NewValue("1 2 3")
	p, err := MapColor(v, f32)
	if err != nil {
		t.Fatal(err)
	}
	if p&0xffffff != 0x030201 {
		t.Errorf("MapColor 32 bit = %#x, want r,g,b in the low bytes", p)
	}

	f8, err := video.NewPixelFormat(8)
	if err != nil {
		t.Fatal(err)
	}
	white, err := MapColor(NewValue("255 255 255"), f8)
	if err != nil {
		t.Fatal(err)
	}
	black, err := MapColor(NewValue("0 0 0"), f8)
	if err != nil {
		t.Fatal(err)
	}
	if white == black || white > 255 {
		t.Errorf("8 bit mapping: white=%d black=%d", white, black)
	}

	if _, err := MapColor(NewValue("1 2"), f32); !errors.Is(err, ErrInvalidColor) {
		t.Errorf("MapColor with bad colour: %v", err)
	}
}

func TestParseErrorCode(t *testing.T) {
	_, err := AsRect(NewValue("1 2 3"))
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not a *ParseError", err)
	}
	if pe.ErrorCode() != "MEDIA rect" {
		t.Errorf("ErrorCode = %q", pe.ErrorCode())
	}
}
