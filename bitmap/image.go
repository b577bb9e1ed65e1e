package bitmap

import (
	"fmt"
	"image"
	"image/color"
)

type pixelFunc func(m *Image, row []byte, x int) Color

func indexedPixel(m *Image, row []byte, x int) Color {
	return m.palette.lookup(UnpackIndex(row, x, m.bitsPerPixel))
}

func directPixel(m *Image, row []byte, x int) Color {
	i := x * 3
	return Color{B: row[i], G: row[i+1], R: row[i+2]}
}

// Image is a decoded bitmap. The pixel data is held exactly as it was read
// from the file and each pixel is unpacked when asked for. An Image is never
// modified once created so it is safe for concurrent use.
//
// Image implements image.Image.
type Image struct {
	width        int
	height       int
	bitsPerPixel int
	flipped      bool
	dataOffset   int
	stride       int

	data    []byte
	palette Palette
	pixel   pixelFunc
}

func newImage(width, height, bpp int, flipped bool, dataOffset int, data []byte, palette Palette) (*Image, error) {
	stride := scanlineStride(width, bpp)
	if stride > maxDataLength || int64(len(data)) < stride*int64(height) {
		return nil, fmt.Errorf("%w: %d bytes of pixel data, need %d", ErrInvalidInfoHeader, len(data), stride*int64(height))
	}

	m := &Image{
		width:        width,
		height:       height,
		bitsPerPixel: bpp,
		flipped:      flipped,
		dataOffset:   dataOffset,
		stride:       int(stride),
		data:         data,
		palette:      palette,
	}
	if bpp == 24 {
		m.pixel = directPixel
	} else {
		m.pixel = indexedPixel
	}
	return m, nil
}

// Width returns the width in pixels
func (m *Image) Width() int { return m.width }

// Height returns the height in pixels
func (m *Image) Height() int { return m.height }

// BitsPerPixel returns 1, 4, 8 or 24
func (m *Image) BitsPerPixel() int { return m.bitsPerPixel }

// Flipped reports whether rows are stored top to bottom
func (m *Image) Flipped() bool { return m.flipped }

// DataOffset returns the offset of the pixel data within the original file
func (m *Image) DataOffset() int { return m.dataOffset }

// Stride returns the length of one row of pixel data, including padding
func (m *Image) Stride() int { return m.stride }

// Len returns the length of the raw pixel data
func (m *Image) Len() int { return len(m.data) }

// Palette returns a copy of the palette, which is empty for 24 bit images
func (m *Image) Palette() Palette {
	return append(Palette(nil), m.palette...)
}

// Pixel returns the color of the pixel at (x, y), with (0, 0) being the top
// left corner. Coordinates outside the image are clamped to the nearest edge.
// If the image has no pixel data ErrorColor is returned.
func (m *Image) Pixel(x, y int) Color {
	if len(m.data) == 0 || m.width <= 0 || m.height <= 0 {
		return ErrorColor
	}

	if x < 0 {
		x = 0
	} else if x > m.width-1 {
		x = m.width - 1
	}

	if y < 0 {
		y = 0
	} else if y > m.height-1 {
		y = m.height - 1
	}

	if !m.flipped {
		y = m.height - 1 - y
	}

	return m.pixel(m, m.data[m.stride*y:m.stride*(y+1)], x)
}

// RGB565 returns the pixel at (x, y) packed into 16 bits
func (m *Image) RGB565(x, y int) uint16 {
	return m.Pixel(x, y).RGB565()
}

// ColorModel returns the palette for 1, 4 and 8 bit images and
// color.NRGBAModel for 24 bit images
func (m *Image) ColorModel() color.Model {
	if m.bitsPerPixel == 24 {
		return color.NRGBAModel
	}
	return m.palette.ColorModel()
}

// Bounds returns the image bounds, always anchored at (0, 0)
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// At returns the color of the pixel at (x, y) as an opaque color.NRGBA
func (m *Image) At(x, y int) color.Color {
	return m.Pixel(x, y).NRGBA()
}
