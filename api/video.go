package emucore

import "fmt"

// VideoFrame is a borrowed view of a rendered frame. It is only valid until
// the frontend's video callback returns and must not be retained.
type VideoFrame struct {
	Width  int
	Height int
	// Stride is the row size in bytes. Zero means tightly packed.
	Stride int
	Format PixelFormat
	// Pixels nil asks the frontend to show the previous frame again.
	Pixels []byte
}

// IsDupe reports whether the frame repeats the previous one.
func (f VideoFrame) IsDupe() bool {
	return f.Pixels == nil
}

// RowBytes returns the stride, falling back to the packed row size.
func (f VideoFrame) RowBytes() int {
	if f.Stride > 0 {
		return f.Stride
	}
	return f.Format.Stride(f.Width)
}

// Validate checks that the pixel buffer covers the described image.
func (f VideoFrame) Validate() error {
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("unknown pixel format %d", f.Format)
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	stride := f.RowBytes()
	if stride < f.Width*bpp {
		return fmt.Errorf("stride %d too small for %d %s pixels", stride, f.Width, f.Format)
	}
	need := stride*(f.Height-1) + f.Width*bpp
	if len(f.Pixels) < need {
		return fmt.Errorf("pixel buffer has %d bytes, need %d", len(f.Pixels), need)
	}
	return nil
}
