package bitmap

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// FileHeader is the fixed 14 byte header at the start of every BMP file. It
// implements the encoding.BinaryMarshaler and encoding.BinaryUnmarshaler
// interfaces.
type FileHeader struct {
	Magic      uint16
	FileSize   int32
	Reserved1  uint16
	Reserved2  uint16
	DataOffset uint32
}

// InfoHeader is the first 40 bytes of the info header. Any bytes beyond
// HeaderSize are vendor extensions and are not represented. It implements the
// encoding.BinaryMarshaler and encoding.BinaryUnmarshaler interfaces.
type InfoHeader struct {
	HeaderSize      int32
	Width           int32
	Height          int32
	Planes          int16
	BitsPerPixel    int16
	Compression     int32
	DataSize        int32
	HResolution     int32
	VResolution     int32
	ColorsUsed      int32
	ImportantColors int32
}

var errHeaderLength = errors.New("bitmap: incorrect header length")

// MarshalBinary encodes the header into its 14 byte on-disk form
func (h *FileHeader) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// UnmarshalBinary decodes the header from exactly 14 bytes
func (h *FileHeader) UnmarshalBinary(b []byte) error {
	if len(b) != fileHeaderLen {
		return errHeaderLength
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, h)
}

// Valid reports whether the header starts with "BM"
func (h *FileHeader) Valid() bool {
	return h.Magic == magic
}

// MarshalBinary encodes the header into its 40 byte on-disk form. HeaderSize
// is written as-is.
func (h *InfoHeader) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// UnmarshalBinary decodes the header from exactly 40 bytes
func (h *InfoHeader) UnmarshalBinary(b []byte) error {
	if len(b) != infoHeaderLen {
		return errHeaderLength
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, h)
}

// validate checks the header in the same order failures are reported
func (h *InfoHeader) validate() error {
	if h.HeaderSize < infoHeaderLen || h.Planes != 1 || h.Width < 0 {
		return ErrInvalidInfoHeader
	}
	if h.Compression != CompressionNone {
		return ErrUnsupportedCompression
	}
	if !supportedBitDepth(int(h.BitsPerPixel)) {
		return ErrUnsupportedBitDepth
	}
	return nil
}

// dimensions returns the positive height and whether the rows are stored top
// to bottom
func (h *InfoHeader) dimensions() (width, height int, flipped bool) {
	width, height = int(h.Width), int(h.Height)
	if height < 0 {
		return width, -height, true
	}
	return width, height, false
}
