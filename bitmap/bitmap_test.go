package bitmap

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	black = Color{}
	white = Color{B: 0xff, G: 0xff, R: 0xff}
)

type fixture struct {
	width, height int32
	bpp           int16
	colorsUsed    int32
	compression   int32
	dataSize      int32
	fileSize      int32 // overrides the computed size when non-zero
	extra         int   // bytes of vendor extension after the info header
	gap           int   // bytes between the palette and the pixel data
	palette       []Color
	data          []byte
}

func (f fixture) bytes(t *testing.T) []byte {
	t.Helper()

	offset := headerLen + f.extra + len(f.palette)*paletteEntry + f.gap
	fh := FileHeader{
		Magic:      magic,
		FileSize:   int32(offset + len(f.data)),
		DataOffset: uint32(offset),
	}
	if f.fileSize != 0 {
		fh.FileSize = f.fileSize
	}
	ih := InfoHeader{
		HeaderSize:   int32(infoHeaderLen + f.extra),
		Width:        f.width,
		Height:       f.height,
		Planes:       1,
		BitsPerPixel: f.bpp,
		Compression:  f.compression,
		DataSize:     f.dataSize,
		ColorsUsed:   f.colorsUsed,
	}

	b := new(bytes.Buffer)
	h, err := fh.MarshalBinary()
	require.NoError(t, err)
	b.Write(h)
	h, err = ih.MarshalBinary()
	require.NoError(t, err)
	b.Write(h)
	b.Write(bytes.Repeat([]byte{0xee}, f.extra))
	for _, c := range f.palette {
		b.Write([]byte{c.B, c.G, c.R, c.A})
	}
	b.Write(bytes.Repeat([]byte{0xdd}, f.gap))
	b.Write(f.data)

	return b.Bytes()
}

// 2x2, rows bottom to top: bottom row is white, black; top row is black,
// white
func oneBit() fixture {
	return fixture{
		width:   2,
		height:  2,
		bpp:     1,
		palette: []Color{black, white},
		data: []byte{
			0x80, 0x00, 0x00, 0x00,
			0x40, 0x00, 0x00, 0x00,
		},
	}
}

// 3x2, sixteen entry palette of greys
func fourBit() fixture {
	palette := make([]Color, 16)
	for i := range palette {
		v := uint8(i * 0x11)
		palette[i] = Color{B: v, G: v, R: v, A: uint8(i)}
	}
	return fixture{
		width:   3,
		height:  2,
		bpp:     4,
		palette: palette,
		data: []byte{
			0x12, 0x30, 0x00, 0x00,
			0xab, 0xc0, 0x00, 0x00,
		},
	}
}

// 5x1 with only four palette entries declared
func eightBit() fixture {
	return fixture{
		width:      5,
		height:     1,
		bpp:        8,
		colorsUsed: 4,
		palette: []Color{
			{R: 0xff},
			{G: 0xff},
			{B: 0xff},
			{R: 0x12, G: 0x34, B: 0x56},
		},
		data: []byte{
			0x00, 0x01, 0x02, 0x03, 0x09, 0x00, 0x00, 0x00,
		},
	}
}

// 1x2 top to bottom, each row is 3 bytes of BGR and 1 byte of padding
func twentyFourBit() fixture {
	return fixture{
		width:  1,
		height: -2,
		bpp:    24,
		data: []byte{
			0x01, 0x02, 0x03, 0x00,
			0x04, 0x05, 0x06, 0x00,
		},
	}
}
