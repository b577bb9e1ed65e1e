package bitmap

import (
	"fmt"
	"io"
	"io/ioutil"
	"time"
)

// Source is a non-blocking supply of bytes.
//
// Available returns how many bytes can be read right now without blocking,
// which may be zero. Once the source has ended it returns the number of bytes
// left together with io.EOF. Reading no more than Available bytes must return
// exactly that many.
type Source interface {
	io.Reader
	Available() (int, error)
}

// Logger receives diagnostic messages, *log.Logger satisfies it
type Logger interface {
	Printf(format string, v ...interface{})
}

// State is the phase a Decoder is in, determined by how many bytes it has
// consumed so far.
type State int

// The decoder phases, in the order they are passed through
const (
	StateFileHeader State = iota
	StateInfoHeader
	StateExtraHeader
	StatePalette
	StateSkipping
	StatePixelData
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateFileHeader:  "file header",
	StateInfoHeader:  "info header",
	StateExtraHeader: "extra header",
	StatePalette:     "palette",
	StateSkipping:    "skipping",
	StatePixelData:   "pixel data",
	StateDone:        "done",
	StateFailed:      "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Option configures a Decoder
type Option func(*Decoder)

// WithLogger sends diagnostic messages to l
func WithLogger(l Logger) Option {
	return func(d *Decoder) {
		d.logger = l
	}
}

// WithLength sets the total number of bytes the source will deliver, if
// known. A negative length means unknown, which is the default.
func WithLength(n int) Option {
	return func(d *Decoder) {
		d.length = n
	}
}

// WithTimeout sets how long the decode may take overall. Zero means no limit.
func WithTimeout(t time.Duration) Option {
	return func(d *Decoder) {
		d.timeout = t
	}
}

// WithMemoryLimit caps how many bytes the decoder may allocate for the
// palette and pixel data. Zero means no limit.
func WithMemoryLimit(n int) Option {
	return func(d *Decoder) {
		d.memoryLimit = n
	}
}

// WithPollInterval sets how long Stream waits between polls when the source
// has nothing available.
func WithPollInterval(t time.Duration) Option {
	return func(d *Decoder) {
		d.poll = t
	}
}

// Decoder is an incremental BMP decoder. It is fed by repeatedly calling
// Advance as bytes become available and never blocks waiting for more. A
// Decoder must not be used concurrently.
type Decoder struct {
	logger      Logger
	length      int
	total       int
	timeout     time.Duration
	memoryLimit int
	poll        time.Duration
	configOnly  bool

	state  State
	offset int
	err    error

	header [headerLen]byte
	fh     FileHeader
	ih     InfoHeader

	width   int
	height  int
	flipped bool

	palette Palette
	loaded  int

	data     []byte
	dataLen  int
	dataRead int

	image *Image
}

// NewDecoder returns a Decoder waiting for the first byte of the file
func NewDecoder(options ...Option) *Decoder {
	d := &Decoder{
		length: -1,
		poll:   time.Millisecond,
	}
	for _, o := range options {
		o(d)
	}
	d.total = d.length
	return d
}

// State returns the current phase
func (d *Decoder) State() State {
	return d.state
}

// Offset returns the number of bytes consumed from the source
func (d *Decoder) Offset() int {
	return d.offset
}

func (d *Decoder) logf(format string, v ...interface{}) {
	if d.logger != nil {
		d.logger.Printf(format, v...)
	}
}

// Advance consumes whatever bytes src has available right now. It returns
// the decoded image once the last byte of pixel data has been read, an error
// if decoding has failed, or nil for both if more bytes are needed. elapsed
// is the time since decoding started; once it exceeds the timeout the decode
// fails with ErrFetchTimedOut.
//
// After a failure every allocated buffer is released and Advance keeps
// returning the same error.
func (d *Decoder) Advance(src Source, elapsed time.Duration) (*Image, error) {
	switch d.state {
	case StateDone:
		return d.image, nil
	case StateFailed:
		return nil, d.err
	}

	if d.timeout > 0 && elapsed > d.timeout {
		return nil, d.fail(ErrFetchTimedOut)
	}

	n, err := src.Available()
	if err != nil && err != io.EOF {
		return nil, d.fail(err)
	}
	ended := err == io.EOF
	if d.length >= 0 {
		if n >= d.length {
			n, ended = d.length, true
		}
	}

	for {
		if d.state == StatePixelData {
			if d.configOnly {
				return nil, nil
			}
			if d.dataRead == d.dataLen {
				return d.finish()
			}
		}
		if n == 0 {
			break
		}

		c, err := d.step(src, n)
		if err != nil {
			return nil, d.fail(err)
		}
		if c == 0 {
			break
		}
		n -= c
		d.offset += c
		if d.length > 0 {
			d.length -= c
		}
	}

	if ended {
		return nil, d.fail(d.truncated())
	}

	return nil, nil
}

func (d *Decoder) truncated() error {
	if d.offset < headerLen {
		return ErrTooShort
	}
	return fmt.Errorf("bitmap: %w in %s at offset %d", io.ErrUnexpectedEOF, d.state, d.offset)
}

func (d *Decoder) fail(err error) error {
	d.logf("decode failed in %s at offset %d: %v", d.state, d.offset, err)
	d.state = StateFailed
	d.err = err
	d.palette = nil
	d.data = nil
	return err
}

func (d *Decoder) finish() (*Image, error) {
	m, err := newImage(d.width, d.height, int(d.ih.BitsPerPixel), d.flipped, int(d.fh.DataOffset), d.data, d.palette)
	if err != nil {
		return nil, d.fail(err)
	}
	d.logf("decode complete, %d bytes consumed", d.offset)
	d.state = StateDone
	d.image = m
	d.data, d.palette = nil, nil
	return m, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// step consumes up to n bytes belonging to the current phase and returns how
// many were consumed
func (d *Decoder) step(src Source, n int) (int, error) {
	switch d.state {
	case StateFileHeader:
		c := min(n, fileHeaderLen-d.offset)
		if err := readFull(src, d.header[d.offset:d.offset+c]); err != nil {
			return 0, err
		}
		if d.offset+c == fileHeaderLen {
			if err := d.parseFileHeader(); err != nil {
				return 0, err
			}
		}
		return c, nil
	case StateInfoHeader:
		c := min(n, headerLen-d.offset)
		if err := readFull(src, d.header[d.offset:d.offset+c]); err != nil {
			return 0, err
		}
		if d.offset+c == headerLen {
			if err := d.parseInfoHeader(); err != nil {
				return 0, err
			}
			d.nextState(headerLen)
		}
		return c, nil
	case StateExtraHeader:
		return d.skip(src, n, fileHeaderLen+int(d.ih.HeaderSize))
	case StatePalette:
		var c int
		var tmp [paletteEntry]byte
		for n-c >= paletteEntry && d.loaded < len(d.palette) && d.offset+c+paletteEntry <= int(d.fh.DataOffset) {
			if err := readFull(src, tmp[:]); err != nil {
				return 0, err
			}
			d.palette.setEntry(d.loaded, tmp[:])
			d.loaded++
			c += paletteEntry
		}
		if c > 0 {
			d.nextState(d.offset + c)
		}
		return c, nil
	case StateSkipping:
		return d.skip(src, n, int(d.fh.DataOffset))
	case StatePixelData:
		c := min(n, d.dataLen-d.dataRead)
		if err := readFull(src, d.data[d.dataRead:d.dataRead+c]); err != nil {
			return 0, err
		}
		d.dataRead += c
		return c, nil
	}
	return 0, fmt.Errorf("bitmap: advance in state %s", d.state)
}

// skip discards bytes up to but not beyond the absolute offset end
func (d *Decoder) skip(src Source, n, end int) (int, error) {
	c := min(n, end-d.offset)
	if _, err := io.CopyN(ioutil.Discard, src, int64(c)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	d.nextState(d.offset + c)
	return c, nil
}

// nextState picks the phase for the byte at offset, once both headers have
// been read
func (d *Decoder) nextState(offset int) {
	prev := d.state
	switch {
	case offset < fileHeaderLen+int(d.ih.HeaderSize):
		d.state = StateExtraHeader
	case d.loaded < len(d.palette) && offset+paletteEntry <= int(d.fh.DataOffset):
		d.state = StatePalette
	case offset < int(d.fh.DataOffset):
		d.state = StateSkipping
	default:
		d.state = StatePixelData
	}
	if d.state != prev {
		d.logf("offset %d: %s -> %s", offset, prev, d.state)
	}
}

func (d *Decoder) parseFileHeader() error {
	if err := d.fh.UnmarshalBinary(d.header[:fileHeaderLen]); err != nil {
		return err
	}

	d.logf("file header: magic %#04x, file size %d, data offset %d", d.fh.Magic, d.fh.FileSize, d.fh.DataOffset)

	if !d.fh.Valid() {
		return ErrInvalidFileHeader
	}
	d.state = StateInfoHeader
	return nil
}

func (d *Decoder) parseInfoHeader() error {
	if err := d.ih.UnmarshalBinary(d.header[fileHeaderLen:]); err != nil {
		return err
	}

	d.logf("info header: size %d, %dx%d, planes %d, %d bpp, compression %d, data size %d, colors used %d, important colors %d",
		d.ih.HeaderSize, d.ih.Width, d.ih.Height, d.ih.Planes, d.ih.BitsPerPixel,
		d.ih.Compression, d.ih.DataSize, d.ih.ColorsUsed, d.ih.ImportantColors)

	if err := d.ih.validate(); err != nil {
		return err
	}

	d.width, d.height, d.flipped = d.ih.dimensions()
	bpp := int(d.ih.BitsPerPixel)

	offset := int64(d.fh.DataOffset)
	if offset < int64(fileHeaderLen)+int64(d.ih.HeaderSize) || offset > maxDataLength {
		return fmt.Errorf("%w: data offset %d overlaps headers", ErrInvalidInfoHeader, offset)
	}

	length := int64(d.ih.DataSize)
	if length == 0 {
		length = int64(d.fh.FileSize) - offset
	}
	stride := scanlineStride(d.width, bpp)
	if stride > maxDataLength {
		return fmt.Errorf("%w: width %d at %d bpp", ErrInvalidInfoHeader, d.width, bpp)
	}
	need := stride * int64(d.height)
	if length < 0 || length > maxDataLength || length < need {
		return fmt.Errorf("%w: pixel data length %d, need %d", ErrInvalidInfoHeader, length, need)
	}
	if d.total >= 0 && offset+length > int64(d.total) {
		return fmt.Errorf("%w: pixel data ends at %d, source has %d bytes", ErrInvalidInfoHeader, offset+length, d.total)
	}

	colors := PaletteSize(bpp, int(d.ih.ColorsUsed))
	if d.memoryLimit > 0 && int(length)+colors*paletteEntry > d.memoryLimit {
		return fmt.Errorf("%w: %d bytes needed, limit is %d", ErrOutOfMemory, int(length)+colors*paletteEntry, d.memoryLimit)
	}

	if colors > 0 {
		d.palette = make(Palette, colors)
	}
	d.dataLen = int(length)
	if !d.configOnly {
		d.data = make([]byte, d.dataLen)
	}

	return nil
}
