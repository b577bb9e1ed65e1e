package bitmap

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	bmp "github.com/sergeymakinen/go-bmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPalette(n int) color.Palette {
	p := make(color.Palette, n)
	for i := range p {
		p[i] = color.NRGBA{uint8(i * 37), uint8(255 - i), uint8(i * 11), 0xff}
	}
	return p
}

func testPaletted(w, h, colors int) *image.Paletted {
	m := image.NewPaletted(image.Rect(0, 0, w, h), testPalette(colors))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetColorIndex(x, y, uint8((x*7+y*3)%colors))
		}
	}
	return m
}

func testRGB(w, h int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Set(x, y, color.NRGBA{uint8(x * 40), uint8(y * 60), uint8(x*y + 5), 0xff})
		}
	}
	return m
}

func rgbEqual(t *testing.T, want, got image.Image) {
	t.Helper()
	require.Equal(t, want.Bounds().Size(), got.Bounds().Size())
	for y := 0; y < want.Bounds().Dy(); y++ {
		for x := 0; x < want.Bounds().Dx(); x++ {
			wr, wg, wb, _ := want.At(want.Bounds().Min.X+x, want.Bounds().Min.Y+y).RGBA()
			gr, gg, gb, _ := got.At(got.Bounds().Min.X+x, got.Bounds().Min.Y+y).RGBA()
			require.Equal(t, [3]uint32{wr >> 8, wg >> 8, wb >> 8}, [3]uint32{gr >> 8, gg >> 8, gb >> 8}, "(%d, %d)", x, y)
		}
	}
}

// Decoded pixels must agree with an independent decoder
func TestAgainstReferenceDecoder(t *testing.T) {
	tables := map[string]struct {
		m   image.Image
		bpp int
	}{
		"1bpp":  {testPaletted(13, 5, 2), 1},
		"4bpp":  {testPaletted(7, 3, 16), 4},
		"8bpp":  {testPaletted(9, 4, 256), 8},
		"24bpp": {testRGB(5, 3), 24},
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			b := new(bytes.Buffer)
			require.NoError(t, Encode(b, table.m, nil))

			ref, err := bmp.Decode(bytes.NewReader(b.Bytes()))
			require.NoError(t, err)

			m, err := DecodeBytes(b.Bytes())
			require.NoError(t, err)
			assert.Equal(t, table.bpp, m.BitsPerPixel())

			rgbEqual(t, ref, m)
			rgbEqual(t, table.m, m)
		})
	}
}

func TestEncodeQuantize(t *testing.T) {
	src := testRGB(16, 16)

	for _, bpp := range []int{1, 4, 8} {
		b := new(bytes.Buffer)
		require.NoError(t, Encode(b, src, &Options{BitsPerPixel: bpp}))

		m, err := DecodeBytes(b.Bytes())
		require.NoError(t, err)
		assert.Equal(t, bpp, m.BitsPerPixel())
		assert.Equal(t, 16, m.Width())
		assert.Equal(t, 16, m.Height())
		assert.True(t, len(m.Palette()) <= 1<<uint(bpp))

		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				assert.NotEqual(t, ErrorColor, m.Pixel(x, y))
			}
		}
	}
}

func TestEncodeDepthSelection(t *testing.T) {
	tables := []struct {
		colors int
		bpp    int
	}{
		{2, 1},
		{3, 4},
		{16, 4},
		{17, 8},
		{256, 8},
	}

	for _, table := range tables {
		b := new(bytes.Buffer)
		require.NoError(t, Encode(b, testPaletted(4, 4, table.colors), nil))

		m, err := DecodeBytes(b.Bytes())
		require.NoError(t, err)
		assert.Equal(t, table.bpp, m.BitsPerPixel(), "%d colors", table.colors)
	}
}

func TestEncodeUnsupportedDepth(t *testing.T) {
	err := Encode(new(bytes.Buffer), testRGB(1, 1), &Options{BitsPerPixel: 16})
	assert.True(t, errors.Is(err, ErrUnsupportedBitDepth))
}

func TestMarshalBinary(t *testing.T) {
	for name, f := range fixtures() {
		m := decode(t, f)

		b, err := m.MarshalBinary()
		require.NoError(t, err, name)

		again, err := DecodeBytes(b)
		require.NoError(t, err, name)
		assert.Equal(t, m.data, again.data, name)
		assert.Equal(t, m.palette, again.palette, name)
		assert.Equal(t, m.flipped, again.flipped, name)

		out := new(bytes.Buffer)
		require.NoError(t, Encode(out, m, nil), name)
		assert.Equal(t, b, out.Bytes(), name)
	}
}
