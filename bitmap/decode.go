package bitmap

import (
	"context"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/bodgit/bmpstream/source"
)

// DecodeBytes decodes a bitmap held entirely in b.
func DecodeBytes(b []byte, options ...Option) (*Image, error) {
	if len(b) < headerLen {
		return nil, ErrTooShort
	}

	d := NewDecoder(append(append([]Option(nil), options...), WithLength(len(b)))...)
	m, err := d.Advance(source.NewBuffer(b, 0), 0)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, d.fail(d.truncated())
	}
	return m, nil
}

// Decode reads a bitmap from r, blocking as necessary.
func Decode(r io.Reader, options ...Option) (*Image, error) {
	d := NewDecoder(options...)
	src := source.NewReader(r)
	for {
		m, err := d.Advance(src, 0)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
	}
}

// DecodeConfig returns the color model and dimensions of a bitmap without
// reading the pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	d := NewDecoder()
	d.configOnly = true
	src := source.NewReader(r)
	for d.State() < StatePixelData {
		if _, err := d.Advance(src, 0); err != nil {
			return image.Config{}, err
		}
	}

	c := image.Config{
		ColorModel: color.NRGBAModel,
		Width:      d.width,
		Height:     d.height,
	}
	if d.palette != nil {
		c.ColorModel = d.palette.ColorModel()
	}
	return c, nil
}

// Stream drives a Decoder against src, polling until the image is complete,
// the decode fails, the timeout set with WithTimeout elapses or ctx is
// cancelled. src must never block.
func Stream(ctx context.Context, src Source, options ...Option) (*Image, error) {
	d := NewDecoder(options...)
	start := time.Now()

	if d.poll <= 0 {
		d.poll = time.Millisecond
	}
	t := time.NewTicker(d.poll)
	defer t.Stop()

	for {
		offset := d.Offset()
		m, err := d.Advance(src, time.Since(start))
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
		if d.Offset() != offset {
			continue
		}

		select {
		case <-ctx.Done():
			d.fail(ctx.Err())
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
