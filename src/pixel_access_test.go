package pawmedia

import (
	"bytes"
	"errors"
	"testing"

	"github.com/phroun/pawmedia/src/pkg/video"
)

// testBuffer is a PixelBuffer with a pitch wider than its rows
type testBuffer struct {
	pix          []byte
	pitch, w, h  int
	bitsPerPixel int
}

func newTestBuffer(w, h, bpp, pad int) *testBuffer {
	pitch := w*bpp/8 + pad
	return &testBuffer{pix: make([]byte, pitch*h), pitch: pitch, w: w, h: h, bitsPerPixel: bpp}
}

func (b *testBuffer) Pixels() []byte    { return b.pix }
func (b *testBuffer) Pitch() int        { return b.pitch }
func (b *testBuffer) Width() int        { return b.w }
func (b *testBuffer) Height() int       { return b.h }
func (b *testBuffer) BitsPerPixel() int { return b.bitsPerPixel }

func mustAccessor(t *testing.T, buf PixelBuffer, legacy bool) *PixelAccessor {
	t.Helper()
	a, err := SelectAccessor(buf, legacy)
	if err != nil {
		t.Fatalf("SelectAccessor: %v", err)
	}
	return a
}

func TestSelectAccessorFormats(t *testing.T) {
	for _, bpp := range []int{8, 32} {
		if _, err := SelectAccessor(newTestBuffer(2, 2, bpp, 0), false); err != nil {
			t.Errorf("%d bit: %v", bpp, err)
		}
	}
	for _, bpp := range []int{16, 24} {
		if _, err := SelectAccessor(newTestBuffer(2, 2, bpp, 0), false); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("%d bit: got %v, want ErrUnsupportedFormat", bpp, err)
		}
	}
}

func TestPixel8Truncates(t *testing.T) {
	buf := newTestBuffer(4, 3, 8, 4)
	a := mustAccessor(t, buf, false)
	if err := a.Set(2, 1, NewIntValue(300)); err != nil {
		t.Fatal(err)
	}
	v, err := a.Get(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "44" {
		t.Errorf("get after set 300 = %s, want 44", v)
	}
	if buf.pix[1*buf.pitch+2] != 44 {
		t.Errorf("byte at row offset not written: %v", buf.pix)
	}
}

func TestPixel32(t *testing.T) {
	buf := newTestBuffer(3, 2, 32, 4)
	a := mustAccessor(t, buf, false)
	if err := a.Set(1, 1, NewValue("10 20 30")); err != nil {
		t.Fatal(err)
	}
	off := buf.pitch + 4
	if got := buf.pix[off : off+4]; !bytes.Equal(got, []byte{10, 20, 30, 0}) {
		t.Errorf("stored bytes = %v, want b<<16|g<<8|r little endian", got)
	}
	v, err := a.Get(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "10 20 30" {
		t.Errorf("get = %q", v)
	}

	t.Run("arity", func(t *testing.T) {
		for _, text := range []string{"0x102030", "1 2", "1 2 3 4"} {
			if err := a.Set(0, 0, NewValue(text)); !errors.Is(err, ErrInvalidColorArity) {
				t.Errorf("set %q: %v, want ErrInvalidColorArity", text, err)
			}
		}
	})

	t.Run("bad channel", func(t *testing.T) {
		err := a.Set(0, 0, NewValue("1 x 3"))
		if !errors.Is(err, ErrInvalidColor) {
			t.Errorf("set with non-integer channel: %v", err)
		}
	})
}

func TestPixelBounds(t *testing.T) {
	buf := newTestBuffer(4, 2, 8, 4)

	t.Run("checked", func(t *testing.T) {
		a := mustAccessor(t, buf, false)
		for _, xy := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 2}, {5, 0}} {
			if _, err := a.Get(xy[0], xy[1]); !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("Get(%d,%d): %v, want ErrOutOfBounds", xy[0], xy[1], err)
			}
		}
	})

	t.Run("legacy", func(t *testing.T) {
		a := mustAccessor(t, buf, true)
		// x past the width lands in the row padding, which is still inside
		// the buffer
		if err := a.Set(5, 0, NewIntValue(7)); err != nil {
			t.Errorf("legacy Set(5,0): %v", err)
		}
		if buf.pix[5] != 7 {
			t.Error("legacy write did not reach the padding byte")
		}
		if _, err := a.Get(0, 2); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("legacy Get past the buffer: %v", err)
		}
	})
}

func TestPixel32LegacyChannels(t *testing.T) {
	buf := newTestBuffer(1, 1, 32, 0)
	copy(buf.pix, []byte{200, 0, 0, 0})
	v, err := mustAccessor(t, buf, true).Get(0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "1 0 0" {
		t.Errorf("legacy get = %q, want 1 0 0", v)
	}
	v, _ = mustAccessor(t, buf, false).Get(0, 0)
	if v.String() != "200 0 0" {
		t.Errorf("get = %q, want 200 0 0", v)
	}
}

func TestDumpLoadRows(t *testing.T) {
	buf := newTestBuffer(3, 2, 8, 1)
	a := mustAccessor(t, buf, false)
	if err := a.LoadRows(NewValue("{1 2 3} {4 5 6}")); err != nil {
		t.Fatal(err)
	}
	if got := a.DumpRows().String(); got != "{1 2 3} {4 5 6}" {
		t.Errorf("DumpRows = %q", got)
	}

	t.Run("partial", func(t *testing.T) {
		if err := a.LoadRows(NewValue("{9 9 9 9 9}")); err != nil {
			t.Fatal(err)
		}
		if got := a.DumpRows().String(); got != "{9 9 9} {4 5 6}" {
			t.Errorf("after partial load = %q", got)
		}
		if buf.pix[3] != 0 {
			t.Error("extra column written into the row padding")
		}
	})

	t.Run("32 bit", func(t *testing.T) {
		a32 := mustAccessor(t, newTestBuffer(2, 1, 32, 0), false)
		if err := a32.LoadRows(NewValue("{{1 2 3} {4 5 6}}")); err != nil {
			t.Fatal(err)
		}
		if got := a32.DumpRows().String(); got != "{{1 2 3} {4 5 6}}" {
			t.Errorf("DumpRows = %q", got)
		}
	})
}

func TestRawBuffer(t *testing.T) {
	buf := newTestBuffer(3, 2, 8, 1) // pitch 4, 8 bytes
	a := mustAccessor(t, buf, false)
	raw := []byte{1, 2, 3, 0, 4, 5, 6, 0}
	if err := a.LoadRaw(raw); err != nil {
		t.Fatal(err)
	}
	if got := a.DumpRaw().Bytes(); !bytes.Equal(got, raw) {
		t.Errorf("DumpRaw = %v", got)
	}

	t.Run("too small", func(t *testing.T) {
		// width*height is enough for the legacy check only
		short := make([]byte, 6)
		if err := a.LoadRaw(short); !errors.Is(err, ErrBufferTooSmall) {
			t.Errorf("LoadRaw(6 bytes): %v, want ErrBufferTooSmall", err)
		}
		legacy := mustAccessor(t, buf, true)
		if err := legacy.LoadRaw(short); err != nil {
			t.Errorf("legacy LoadRaw(6 bytes): %v", err)
		}
	})
}

func TestAccessorOnSurface(t *testing.T) {
	s, err := video.NewSurface(5, 3, 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	a := mustAccessor(t, s, false)
	if err := a.Set(4, 2, NewIntValue(17)); err != nil {
		t.Fatal(err)
	}
	if got := s.Pixels()[2*s.Pitch()+4]; got != 17 {
		t.Errorf("surface byte = %d", got)
	}
}
