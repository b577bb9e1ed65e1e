/*
Package source provides byte sources for the bitmap decoder.

Each source reports how many bytes can be read immediately and returns
io.EOF from Available once it has ended. Buffer and Pump never block; Reader
blocks in Available until at least one byte has arrived and is intended for
sources where blocking is acceptable, such as files.
*/
package source

import (
	"bufio"
	"io"
)

// Buffer is an in-memory source. It can optionally release its contents a
// chunk at a time, as if they were arriving over a slow connection.
type Buffer struct {
	b        []byte
	chunk    int
	released int
	read     int
}

// NewBuffer returns a source delivering b. If chunk is greater than zero
// each call to Available releases at most chunk more bytes, otherwise all of
// b is available immediately.
func NewBuffer(b []byte, chunk int) *Buffer {
	return &Buffer{
		b:     b,
		chunk: chunk,
	}
}

// Available releases the next chunk and returns the number of bytes that
// may be read
func (s *Buffer) Available() (int, error) {
	if s.chunk > 0 && len(s.b)-s.released > s.chunk {
		s.released += s.chunk
		return s.released - s.read, nil
	}
	s.released = len(s.b)
	return s.released - s.read, io.EOF
}

func (s *Buffer) Read(p []byte) (int, error) {
	if s.read == len(s.b) && len(p) > 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b[s.read:s.released])
	s.read += n
	return n, nil
}

// Len returns the number of unread bytes
func (s *Buffer) Len() int {
	return len(s.b) - s.read
}

// Reader adapts an io.Reader into a source
type Reader struct {
	r *bufio.Reader
}

// NewReader returns a source reading from r
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r: bufio.NewReader(r),
	}
}

// Available blocks until at least one byte is buffered or r fails
func (s *Reader) Available() (int, error) {
	if s.r.Buffered() == 0 {
		if _, err := s.r.Peek(1); err != nil {
			return 0, err
		}
	}
	return s.r.Buffered(), nil
}

func (s *Reader) Read(p []byte) (int, error) {
	return s.r.Read(p)
}
