package emucore

// PixelFormat is a framebuffer layout. The first three values match
// RETRO_PIXEL_FORMAT_*.
type PixelFormat int

const (
	// PixelFormat0RGB1555 is the libretro default when nothing is negotiated.
	PixelFormat0RGB1555 PixelFormat = 0
	PixelFormatXRGB8888 PixelFormat = 1
	PixelFormatRGB565   PixelFormat = 2

	// PixelFormatRGBA8888 is byte-ordered R, G, B, A. Cores may emit it but
	// it is never sent to a frontend.
	PixelFormatRGBA8888 PixelFormat = 100
)

// DefaultPixelFormat is the format a frontend assumes when the core never
// negotiates one or every request is rejected.
const DefaultPixelFormat = PixelFormat0RGB1555

// BytesPerPixel returns the pixel size, or 0 for an unknown format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormat0RGB1555, PixelFormatRGB565:
		return 2
	case PixelFormatXRGB8888, PixelFormatRGBA8888:
		return 4
	default:
		return 0
	}
}

// Negotiable reports whether the format can be requested from a frontend.
func (f PixelFormat) Negotiable() bool {
	switch f {
	case PixelFormat0RGB1555, PixelFormatXRGB8888, PixelFormatRGB565:
		return true
	}
	return false
}

// Stride returns the packed row size in bytes for width pixels.
func (f PixelFormat) Stride(width int) int {
	return width * f.BytesPerPixel()
}

// String returns the display name of the format.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormat0RGB1555:
		return "0RGB1555"
	case PixelFormatXRGB8888:
		return "XRGB8888"
	case PixelFormatRGB565:
		return "RGB565"
	case PixelFormatRGBA8888:
		return "RGBA8888"
	default:
		return "Unknown"
	}
}
