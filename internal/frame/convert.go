package frame

import (
	"fmt"

	emucore "github.com/user-none/retrobackend/api"
)

// Converter re-encodes frames into the negotiated pixel format. Its buffer
// is reused between frames.
type Converter struct {
	buf []byte
}

// Convert returns frame in format target. A frame already in target is
// returned as is, so the result may alias the core's buffer.
func (c *Converter) Convert(frame emucore.VideoFrame, target emucore.PixelFormat) (emucore.VideoFrame, error) {
	if err := frame.Validate(); err != nil {
		return emucore.VideoFrame{}, err
	}
	if frame.Format == target {
		frame.Stride = frame.RowBytes()
		return frame, nil
	}
	if !target.Negotiable() {
		return emucore.VideoFrame{}, fmt.Errorf("cannot convert to %s", target)
	}

	dstStride := target.Stride(frame.Width)
	size := dstStride * frame.Height
	if cap(c.buf) < size {
		c.buf = make([]byte, size)
	}
	dst := c.buf[:size]

	srcStride := frame.RowBytes()
	srcRow := frame.Format.Stride(frame.Width)
	for y := 0; y < frame.Height; y++ {
		src := frame.Pixels[y*srcStride : y*srcStride+srcRow]
		row := dst[y*dstStride : (y+1)*dstStride]
		convertRow(src, frame.Format, row, target, frame.Width)
	}

	return emucore.VideoFrame{
		Width:  frame.Width,
		Height: frame.Height,
		Stride: dstStride,
		Format: target,
		Pixels: dst,
	}, nil
}

// convertRow converts one row of pixels.
func convertRow(src []byte, from emucore.PixelFormat, dst []byte, to emucore.PixelFormat, pixels int) {
	if from == emucore.PixelFormatRGBA8888 && to == emucore.PixelFormatXRGB8888 {
		convertRGBAToXRGB8888(src, dst, pixels)
		return
	}

	sbpp := from.BytesPerPixel()
	dbpp := to.BytesPerPixel()
	for i := 0; i < pixels; i++ {
		r, g, b := decodePixel(src[i*sbpp:], from)
		encodePixel(dst[i*dbpp:], to, r, g, b)
	}
}

// convertRGBAToXRGB8888 converts RGBA pixels to XRGB8888 format.
func convertRGBAToXRGB8888(src, dst []byte, pixels int) {
	for i := 0; i < pixels; i++ {
		srcIdx := i * 4
		dstIdx := i * 4
		dst[dstIdx+0] = src[srcIdx+2] // B
		dst[dstIdx+1] = src[srcIdx+1] // G
		dst[dstIdx+2] = src[srcIdx+0] // R
		dst[dstIdx+3] = 0xFF          // X
	}
}

// expand5 and expand6 widen 5 and 6 bit channels to 8 bits.
func expand5(v uint16) uint8 { return uint8(v<<3 | v>>2) }
func expand6(v uint16) uint8 { return uint8(v<<2 | v>>4) }

// decodePixel reads one pixel as 8-bit RGB. 16 and 32-bit formats are
// little-endian in memory.
func decodePixel(p []byte, f emucore.PixelFormat) (r, g, b uint8) {
	switch f {
	case emucore.PixelFormatRGBA8888:
		return p[0], p[1], p[2]
	case emucore.PixelFormatXRGB8888:
		return p[2], p[1], p[0]
	case emucore.PixelFormatRGB565:
		v := uint16(p[0]) | uint16(p[1])<<8
		return expand5(v >> 11), expand6((v >> 5) & 0x3F), expand5(v & 0x1F)
	case emucore.PixelFormat0RGB1555:
		v := uint16(p[0]) | uint16(p[1])<<8
		return expand5((v >> 10) & 0x1F), expand5((v >> 5) & 0x1F), expand5(v & 0x1F)
	}
	return 0, 0, 0
}

// encodePixel writes one 8-bit RGB pixel.
func encodePixel(p []byte, f emucore.PixelFormat, r, g, b uint8) {
	switch f {
	case emucore.PixelFormatRGBA8888:
		p[0], p[1], p[2], p[3] = r, g, b, 0xFF
	case emucore.PixelFormatXRGB8888:
		p[0], p[1], p[2], p[3] = b, g, r, 0xFF
	case emucore.PixelFormatRGB565:
		v := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
		p[0], p[1] = byte(v), byte(v>>8)
	case emucore.PixelFormat0RGB1555:
		v := uint16(r>>3)<<10 | uint16(g>>3)<<5 | uint16(b>>3)
		p[0], p[1] = byte(v), byte(v>>8)
	}
}
