package video

import (
	"fmt"
	"math/bits"
)

// Color is an 8-bit-per-channel RGB triple.
type Color struct {
	R, G, B uint8
}

// Rect is a rectangle in surface pixel coordinates.
type Rect struct {
	X, Y int32
	W, H int32
}

// PixelFormat describes how a surface stores one pixel.
type PixelFormat struct {
	BitsPerPixel  int
	BytesPerPixel int
	Rmask, Gmask  uint32
	Bmask, Amask  uint32
	// Palette is only set for 8-bit surfaces.
	Palette []Color
}

// NewPixelFormat returns the format used for surfaces of the given depth.
// 8-bit surfaces start with a 3-3-2 palette.
func NewPixelFormat(bpp int) (*PixelFormat, error) {
	switch bpp {
	case 8:
		return &PixelFormat{BitsPerPixel: 8, BytesPerPixel: 1, Palette: defaultPalette()}, nil
	case 16:
		return &PixelFormat{BitsPerPixel: 16, BytesPerPixel: 2,
			Rmask: 0xf800, Gmask: 0x07e0, Bmask: 0x001f}, nil
	case 24:
		return &PixelFormat{BitsPerPixel: 24, BytesPerPixel: 3,
			Rmask: 0x0000ff, Gmask: 0x00ff00, Bmask: 0xff0000}, nil
	case 32:
		return &PixelFormat{BitsPerPixel: 32, BytesPerPixel: 4,
			Rmask: 0x000000ff, Gmask: 0x0000ff00, Bmask: 0x00ff0000, Amask: 0xff000000}, nil
	}
	return nil, fmt.Errorf("unsupported depth %d", bpp)
}

func defaultPalette() []Color {
	pal := make([]Color, 256)
	for i := range pal {
		r := (i >> 5) & 0x07
		g := (i >> 2) & 0x07
		b := i & 0x03
		pal[i] = Color{R: uint8(r * 255 / 7), G: uint8(g * 255 / 7), B: uint8(b * 255 / 3)}
	}
	return pal
}

// MapRGB converts a colour to the native pixel value of the format. On
// paletted formats it returns the index of the nearest palette entry.
func (f *PixelFormat) MapRGB(c Color) uint32 {
	if f.BitsPerPixel == 8 {
		return uint32(f.nearest(c))
	}
	return pack(uint32(c.R), f.Rmask) | pack(uint32(c.G), f.Gmask) | pack(uint32(c.B), f.Bmask) | f.Amask
}

// GetRGB is the inverse of MapRGB.
func (f *PixelFormat) GetRGB(pixel uint32) Color {
	if f.BitsPerPixel == 8 {
		idx := int(pixel & 0xff)
		if idx < len(f.Palette) {
			return f.Palette[idx]
		}
		return Color{}
	}
	return Color{
		R: unpack(pixel, f.Rmask),
		G: unpack(pixel, f.Gmask),
		B: unpack(pixel, f.Bmask),
	}
}

func (f *PixelFormat) nearest(c Color) uint8 {
	best, bestDist := 0, int(^uint(0)>>1)
	for i, p := range f.Palette {
		dr := int(p.R) - int(c.R)
		dg := int(p.G) - int(c.G)
		db := int(p.B) - int(c.B)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return uint8(best)
}

func pack(v, mask uint32) uint32 {
	if mask == 0 {
		return 0
	}
	shift := bits.TrailingZeros32(mask)
	width := bits.OnesCount32(mask)
	return (v >> (8 - width) << shift) & mask
}

func unpack(pixel, mask uint32) uint8 {
	if mask == 0 {
		return 0
	}
	shift := bits.TrailingZeros32(mask)
	width := bits.OnesCount32(mask)
	v := (pixel & mask) >> shift
	// replicate high bits into the low ones so 0x1f maps to 0xff
	v <<= 8 - width
	v |= v >> width
	return uint8(v)
}
