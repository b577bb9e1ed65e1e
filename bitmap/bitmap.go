/*
Package bitmap implements a Windows BMP decoder for memory constrained
consumers.

Pixel data is kept exactly as it appears in the file, packed and padded, and
individual pixels are only unpacked when asked for. This keeps the memory
required proportional to the size of the file rather than to a fully expanded
RGB framebuffer.

Only uncompressed images with 1, 4, 8 or 24 bits per pixel are supported. The
file header is 14 bytes followed by an info header of at least 40 bytes, an
optional palette of 4 byte entries and finally the pixel rows, each padded to
a 4 byte boundary and normally stored bottom to top.
*/
package bitmap

const (
	fileHeaderLen = 14
	infoHeaderLen = 40
	headerLen     = fileHeaderLen + infoHeaderLen
	paletteEntry  = 4

	// "BM" read as a little-endian uint16
	magic = 0x4d42

	maxDataLength = 1 << 30
)

// Compression methods found in the info header. Only CompressionNone is
// supported, the others are recognised so they can be reported.
const (
	CompressionNone      = 0
	CompressionRLE8      = 1
	CompressionRLE4      = 2
	CompressionBitFields = 3
)
