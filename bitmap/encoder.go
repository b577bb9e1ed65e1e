package bitmap

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/ericpauley/go-quantize/quantize"
)

// Options are the encoding parameters
type Options struct {
	// BitsPerPixel is one of 1, 4, 8 or 24. If zero the smallest depth
	// able to hold the palette of a paletted image is chosen, otherwise
	// 24.
	BitsPerPixel int
}

type encoder struct {
	w *bufio.Writer
}

func (e *encoder) writeHeaders(width, height, bpp int, palette int, dataLen int) error {
	offset := headerLen + palette*paletteEntry
	fh := FileHeader{
		Magic:      magic,
		FileSize:   int32(offset + dataLen),
		DataOffset: uint32(offset),
	}
	ih := InfoHeader{
		HeaderSize:   infoHeaderLen,
		Width:        int32(width),
		Height:       int32(height),
		Planes:       1,
		BitsPerPixel: int16(bpp),
		Compression:  CompressionNone,
		DataSize:     int32(dataLen),
		HResolution:  2835, // 72 DPI
		VResolution:  2835,
		ColorsUsed:   int32(palette),
	}

	for _, h := range []interface {
		MarshalBinary() ([]byte, error)
	}{&fh, &ih} {
		b, err := h.MarshalBinary()
		if err != nil {
			return err
		}
		if _, err := e.w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) writePalette(p []color.Color) error {
	var tmp [paletteEntry]byte
	for _, c := range p {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		tmp[0], tmp[1], tmp[2] = n.B, n.G, n.R
		if _, err := e.w.Write(tmp[:]); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodePaletted(m *image.Paletted, bpp int) error {
	b := m.Bounds()
	stride := ScanlineStride(b.Dx(), bpp)

	if err := e.writeHeaders(b.Dx(), b.Dy(), bpp, len(m.Palette), stride*b.Dy()); err != nil {
		return err
	}
	if err := e.writePalette(m.Palette); err != nil {
		return err
	}

	row := make([]byte, stride)
	for y := b.Max.Y - 1; y >= b.Min.Y; y-- {
		for i := range row {
			row[i] = 0
		}
		for x := 0; x < b.Dx(); x++ {
			i := m.ColorIndexAt(b.Min.X+x, y)
			switch bpp {
			case 1:
				row[x>>3] |= (i & 0x01) << uint(7-x%8)
			case 4:
				if x%2 == 0 {
					row[x>>1] |= (i & 0x0f) << 4
				} else {
					row[x>>1] |= i & 0x0f
				}
			default:
				row[x] = i
			}
		}
		if _, err := e.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeRGB(m image.Image) error {
	b := m.Bounds()
	stride := ScanlineStride(b.Dx(), 24)

	if err := e.writeHeaders(b.Dx(), b.Dy(), 24, 0, stride*b.Dy()); err != nil {
		return err
	}

	row := make([]byte, stride)
	for y := b.Max.Y - 1; y >= b.Min.Y; y-- {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(m.At(b.Min.X+x, y)).(color.NRGBA)
			row[x*3+0], row[x*3+1], row[x*3+2] = c.B, c.G, c.R
		}
		if _, err := e.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Smallest supported depth able to index n colors
func depthFor(n int) int {
	switch {
	case n <= 2:
		return 1
	case n <= 16:
		return 4
	case n <= 256:
		return 8
	}
	return 24
}

// Encode writes the Image m to w as an uncompressed BMP. Images that are
// not paletted, or whose palette is too large for the requested depth, are
// reduced with a median cut quantizer. A nil o uses the defaults.
func Encode(w io.Writer, m image.Image, o *Options) error {
	var bpp int
	if o != nil {
		bpp = o.BitsPerPixel
	}
	if bpp != 0 && !supportedBitDepth(bpp) {
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bpp)
	}

	if bm, ok := m.(*Image); ok && (bpp == 0 || bpp == bm.bitsPerPixel) {
		b, err := bm.MarshalBinary()
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}

	b := m.Bounds()
	if scanlineStride(b.Dx(), 24)*int64(b.Dy()) > maxDataLength {
		return errors.New("bitmap: image is too large")
	}

	pm, _ := m.(*image.Paletted)
	if pm == nil {
		if cp, ok := m.ColorModel().(color.Palette); ok && len(cp) <= 256 {
			pm = image.NewPaletted(b, cp)
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					pm.Set(x, y, cp.Convert(m.At(x, y)))
				}
			}
		}
	}

	if bpp == 0 {
		bpp = 24
		if pm != nil {
			bpp = depthFor(len(pm.Palette))
		}
	}

	e := encoder{w: bufio.NewWriter(w)}

	if bpp == 24 {
		if err := e.encodeRGB(m); err != nil {
			return err
		}
		return e.w.Flush()
	}

	if max := 1 << uint(bpp); pm == nil || len(pm.Palette) > max {
		q := quantize.MedianCutQuantizer{}
		pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, max), m))
		draw.Draw(pm, b, m, b.Min, draw.Src)
	}

	if err := e.encodePaletted(pm, bpp); err != nil {
		return err
	}
	return e.w.Flush()
}

// MarshalBinary encodes m back into a BMP file. The pixel data and palette
// are written exactly as they were read.
func (m *Image) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	e := encoder{w: bufio.NewWriter(b)}

	height := m.height
	if m.flipped {
		height = -height
	}
	if err := e.writeHeaders(m.width, height, m.bitsPerPixel, len(m.palette), len(m.data)); err != nil {
		return nil, err
	}

	var tmp [paletteEntry]byte
	for _, c := range m.palette {
		tmp[0], tmp[1], tmp[2], tmp[3] = c.B, c.G, c.R, c.A
		if _, err := e.w.Write(tmp[:]); err != nil {
			return nil, err
		}
	}

	if _, err := e.w.Write(m.data); err != nil {
		return nil, err
	}
	if err := e.w.Flush(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
