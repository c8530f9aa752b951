package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Flags describe how a surface was created.
type Flags uint32

const (
	Fullscreen Flags = 1 << iota
	Resizable
	SrcColorKey
)

var (
	ErrInvalidSize  = errors.New("invalid surface size")
	ErrNotPaletted  = errors.New("surface is not paletted (8 bit)")
	ErrNilSurface   = errors.New("nil surface")
	ErrPaletteRange = errors.New("palette index out of range")
)

// Surface is a software pixel buffer. Rows are Pitch bytes apart; the
// bytes between Width*BytesPerPixel and Pitch are padding.
type Surface struct {
	pix      []byte
	pitch    int
	w, h     int
	format   *PixelFormat
	flags    Flags
	colorKey uint32
}

// NewSurface allocates a zeroed surface. Supported depths are 8, 16, 24 and 32.
func NewSurface(w, h, bpp int, flags Flags) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, w, h)
	}
	format, err := NewPixelFormat(bpp)
	if err != nil {
		return nil, err
	}
	pitch := (w*format.BytesPerPixel + 3) &^ 3
	return &Surface{
		pix:    make([]byte, pitch*h),
		pitch:  pitch,
		w:      w,
		h:      h,
		format: format,
		flags:  flags &^ SrcColorKey,
	}, nil
}

func (s *Surface) Pixels() []byte       { return s.pix }
func (s *Surface) Pitch() int           { return s.pitch }
func (s *Surface) Width() int           { return s.w }
func (s *Surface) Height() int          { return s.h }
func (s *Surface) BitsPerPixel() int    { return s.format.BitsPerPixel }
func (s *Surface) Format() *PixelFormat { return s.format }
func (s *Surface) Flags() Flags         { return s.flags }

// MapRGB maps a colour through the surface's pixel format.
func (s *Surface) MapRGB(c Color) uint32 { return s.format.MapRGB(c) }

// MustLock reports whether the buffer has to be locked before direct
// access. Software surfaces never do.
func (s *Surface) MustLock() bool { return false }

// ColorKey returns the transparent pixel value and whether one is set.
func (s *Surface) ColorKey() (uint32, bool) {
	return s.colorKey, s.flags&SrcColorKey != 0
}

// SetColorKey marks pixel as transparent when this surface is blitted.
func (s *Surface) SetColorKey(pixel uint32) {
	s.colorKey = pixel
	s.flags |= SrcColorKey
}

// SetColors replaces palette entries starting at first.
func (s *Surface) SetColors(colors []Color, first int) error {
	if s.format.BitsPerPixel != 8 {
		return ErrNotPaletted
	}
	if first < 0 || first+len(colors) > len(s.format.Palette) {
		return fmt.Errorf("%w: %d+%d", ErrPaletteRange, first, len(colors))
	}
	copy(s.format.Palette[first:], colors)
	return nil
}

// PixelAt reads the native pixel value at x,y. Coordinates must be in range.
func (s *Surface) PixelAt(x, y int) uint32 {
	off := y*s.pitch + x*s.format.BytesPerPixel
	p := s.pix[off:]
	switch s.format.BytesPerPixel {
	case 1:
		return uint32(p[0])
	case 2:
		return uint32(p[0]) | uint32(p[1])<<8
	case 3:
		return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16
	default:
		return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
	}
}

// SetPixelAt writes a native pixel value at x,y. Coordinates must be in range.
func (s *Surface) SetPixelAt(x, y int, pixel uint32) {
	off := y*s.pitch + x*s.format.BytesPerPixel
	p := s.pix[off:]
	switch s.format.BytesPerPixel {
	case 1:
		p[0] = byte(pixel)
	case 2:
		p[0], p[1] = byte(pixel), byte(pixel>>8)
	case 3:
		p[0], p[1], p[2] = byte(pixel), byte(pixel>>8), byte(pixel>>16)
	default:
		p[0], p[1], p[2], p[3] = byte(pixel), byte(pixel>>8), byte(pixel>>16), byte(pixel>>24)
	}
}

// At returns the colour at x,y.
func (s *Surface) At(x, y int) Color {
	return s.format.GetRGB(s.PixelAt(x, y))
}

func (s *Surface) bounds() image.Rectangle {
	return image.Rect(0, 0, s.w, s.h)
}

func (s *Surface) rgba() *image.RGBA {
	return &image.RGBA{Pix: s.pix, Stride: s.pitch, Rect: s.bounds()}
}

// toRectangle keeps a negative width or height as an empty rectangle
// rather than letting image.Rect swap the corners.
func toRectangle(r Rect) image.Rectangle {
	p := image.Pt(int(r.X), int(r.Y))
	return image.Rectangle{Min: p, Max: p.Add(image.Pt(int(r.W), int(r.H)))}
}

// Fill sets every pixel inside r (or the whole surface when r is nil) to
// the native pixel value. A rectangle with zero width or height fills nothing.
func (s *Surface) Fill(r *Rect, pixel uint32) {
	area := s.bounds()
	if r != nil {
		area = toRectangle(*r).Intersect(area)
	}
	if area.Empty() {
		return
	}
	if s.format.BitsPerPixel == 32 {
		c := color.RGBA{R: uint8(pixel), G: uint8(pixel >> 8), B: uint8(pixel >> 16), A: uint8(pixel >> 24)}
		draw.Draw(s.rgba(), area, &image.Uniform{C: c}, image.Point{}, draw.Src)
		return
	}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			s.SetPixelAt(x, y, pixel)
		}
	}
}

// Blit copies srcRect of s (the whole of s when srcRect is nil) onto dst
// with its top-left corner at x,y, clipped to both surfaces. Pixels whose
// colour equals the source colour key are skipped; alpha is not compared.
func (s *Surface) Blit(srcRect *Rect, dst *Surface, x, y int) error {
	if dst == nil {
		return ErrNilSurface
	}
	from := s.bounds()
	if srcRect != nil {
		from = toRectangle(*srcRect).Intersect(from)
	}
	if from.Empty() {
		return nil
	}
	to := from.Sub(from.Min).Add(image.Pt(x, y))
	clipped := to.Intersect(dst.bounds())
	if clipped.Empty() {
		return nil
	}
	from.Min = from.Min.Add(clipped.Min.Sub(to.Min))
	to = clipped

	key, keyed := s.ColorKey()
	if !keyed && s.format.BitsPerPixel == 32 && dst.format.BitsPerPixel == 32 {
		// draw only handles overlap when both sides are the same image.
		out := dst.rgba()
		var in image.Image = s.rgba()
		if s == dst {
			in = out
		}
		draw.Draw(out, to, in, from.Min, draw.Src)
		return nil
	}
	src := s
	if s == dst {
		cp := *s
		cp.pix = bytes.Clone(s.pix)
		src = &cp
	}
	same := s.format.BitsPerPixel == dst.format.BitsPerPixel
	keyMask := ^s.format.Amask
	for dy := 0; dy < to.Dy(); dy++ {
		for dx := 0; dx < to.Dx(); dx++ {
			p := src.PixelAt(from.Min.X+dx, from.Min.Y+dy)
			if keyed && p&keyMask == key&keyMask {
				continue
			}
			if !same {
				p = dst.format.MapRGB(s.format.GetRGB(p))
			}
			dst.SetPixelAt(to.Min.X+dx, to.Min.Y+dy, p)
		}
	}
	return nil
}

// Image returns an RGBA copy of the surface for presentation or encoding.
func (s *Surface) Image() *image.RGBA {
	img := image.NewRGBA(s.bounds())
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			c := s.At(x, y)
			img.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return img
}

// ConvertTo returns a copy of s in the given depth.
func (s *Surface) ConvertTo(bpp int) (*Surface, error) {
	out, err := NewSurface(s.w, s.h, bpp, s.flags)
	if err != nil {
		return nil, err
	}
	if bpp == 8 && s.format.BitsPerPixel == 8 {
		copy(out.format.Palette, s.format.Palette)
	}
	if err := s.Blit(nil, out, 0, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadBMP decodes a Windows bitmap into a surface of the given depth.
// Paletted bitmaps loaded into an 8-bit surface keep their palette.
func LoadBMP(path string, bpp int) (*Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := bmp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	b := img.Bounds()
	s, err := NewSurface(b.Dx(), b.Dy(), bpp, 0)
	if err != nil {
		return nil, err
	}

	if pal, ok := img.(*image.Paletted); ok && bpp == 8 {
		for i, c := range pal.Palette {
			if i >= len(s.format.Palette) {
				break
			}
			r, g, bl, _ := c.RGBA()
			s.format.Palette[i] = Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}
		}
		for y := 0; y < s.h; y++ {
			for x := 0; x < s.w; x++ {
				s.SetPixelAt(x, y, uint32(pal.ColorIndexAt(b.Min.X+x, b.Min.Y+y)))
			}
		}
		return s, nil
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			c := rgba.RGBAAt(x, y)
			s.SetPixelAt(x, y, s.format.MapRGB(Color{R: c.R, G: c.G, B: c.B}))
		}
	}
	return s, nil
}
