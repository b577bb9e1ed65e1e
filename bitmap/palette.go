package bitmap

import "image/color"

// Color is a single pixel or palette entry. The fields are in the same order
// as a palette entry on disk. For palette entries A is the reserved byte and
// is usually zero, for 24 bit pixels it is always zero.
type Color struct {
	B, G, R, A uint8
}

// ErrorColor is returned for pixels of an image that holds no pixel data, or
// whose palette index is out of range.
var ErrorColor = Color{R: 0xff, G: 0x00, B: 0xff, A: 0x00}

// NRGBA returns c as an opaque color.NRGBA, ignoring A
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// RGB565 packs c into 16 bits, 5 bits red, 6 bits green and 5 bits blue
func (c Color) RGB565() uint16 {
	return uint16(c.R&0xf8)<<8 | uint16(c.G&0xfc)<<3 | uint16(c.B>>3)
}

// Palette is the ordered list of colors used by 1, 4 and 8 bit images
type Palette []Color

func (p Palette) lookup(i int) Color {
	if i < 0 || i >= len(p) {
		return ErrorColor
	}
	return p[i]
}

// ColorModel returns p as an opaque color.Palette
func (p Palette) ColorModel() color.Palette {
	cp := make(color.Palette, len(p))
	for i, c := range p {
		cp[i] = c.NRGBA()
	}
	return cp
}

func (p Palette) setEntry(i int, b []byte) {
	p[i] = Color{B: b[0], G: b[1], R: b[2], A: b[3]}
}
