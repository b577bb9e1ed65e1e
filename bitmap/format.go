package bitmap

func supportedBitDepth(bpp int) bool {
	switch bpp {
	case 1, 4, 8, 24:
		return true
	}
	return false
}

// ScanlineStride returns the number of bytes used by one row of pixels,
// including the padding to a 4 byte boundary.
func ScanlineStride(width, bitsPerPixel int) int {
	return int(scanlineStride(width, bitsPerPixel))
}

// width*bitsPerPixel overflows int on 32-bit targets for widths a header can
// carry
func scanlineStride(width, bitsPerPixel int) int64 {
	return ((int64(width)*int64(bitsPerPixel) + 31) / 32) * 4
}

// PaletteSize returns the number of palette entries an image with the given
// bit depth carries. A colorsUsed of zero, or one larger than the bit depth
// allows, means the maximum for that bit depth.
func PaletteSize(bitsPerPixel, colorsUsed int) int {
	var max int
	switch bitsPerPixel {
	case 1, 4, 8:
		max = 1 << uint(bitsPerPixel)
	default:
		return 0
	}
	if colorsUsed <= 0 || colorsUsed > max {
		return max
	}
	return colorsUsed
}

// UnpackIndex returns the palette index of pixel x within the packed row.
// The caller guarantees row is long enough to hold x.
func UnpackIndex(row []byte, x, bitsPerPixel int) int {
	switch bitsPerPixel {
	case 1:
		return int(row[x>>3]>>uint(7-x%8)) & 0x01
	case 4:
		if x%2 == 0 {
			return int(row[x>>1] >> 4)
		}
		return int(row[x>>1] & 0x0f)
	default:
		return int(row[x])
	}
}
