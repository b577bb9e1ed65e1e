package bitmap

import (
	"errors"
	"io"
)

// Every decode failure is terminal and is one of these errors, possibly
// wrapped with further context. Use errors.Is to test for them.
var (
	ErrTooShort               = errors.New("bitmap: not enough bytes supplied to be a bitmap")
	ErrInvalidFileHeader      = errors.New("bitmap: invalid file header")
	ErrInvalidInfoHeader      = errors.New("bitmap: invalid info header")
	ErrUnsupportedCompression = errors.New("bitmap: unsupported compression")
	ErrUnsupportedBitDepth    = errors.New("bitmap: unsupported bit depth, only 1, 4, 8 and 24 are supported")
	ErrOutOfMemory            = errors.New("bitmap: out of memory")
	ErrFetchTimedOut          = errors.New("bitmap: fetch timed out")
)

// Describe returns a one line human readable description of the result of a
// decode.
func Describe(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnsupportedCompression):
		return "unsupported compression type"
	case errors.Is(err, ErrTooShort):
		return "too short, not enough bytes supplied to be a bitmap"
	case errors.Is(err, ErrInvalidFileHeader):
		return "invalid file header (first 14 bytes)"
	case errors.Is(err, ErrInvalidInfoHeader):
		return "invalid bitmap info header (bytes 15 to 54)"
	case errors.Is(err, ErrUnsupportedBitDepth):
		return "unsupported bit depth, only 1, 4, 8, 24 supported"
	case errors.Is(err, ErrOutOfMemory):
		return "out of memory, failed allocation"
	case errors.Is(err, ErrFetchTimedOut):
		return "fetch timed out"
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "pixel data truncated"
	default:
		return "unknown: " + err.Error()
	}
}
