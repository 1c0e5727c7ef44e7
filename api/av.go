package emucore

import "fmt"

// Geometry is the video geometry reported to the frontend.
type Geometry struct {
	BaseWidth  int
	BaseHeight int
	MaxWidth   int
	MaxHeight  int
	// AspectRatio of 0 lets the frontend assume BaseWidth/BaseHeight.
	AspectRatio float64
}

// Timing is the frame and sample rate reported to the frontend.
type Timing struct {
	FPS        float64
	SampleRate float64
}

// AVInfo is the agreed audio/video geometry and timing of a session.
type AVInfo struct {
	Geometry Geometry
	Timing   Timing
}

// NewAVInfo returns AVInfo whose maximum size equals its base size.
func NewAVInfo(width, height int, fps, sampleRate float64) AVInfo {
	return AVInfo{
		Geometry: Geometry{
			BaseWidth:  width,
			BaseHeight: height,
			MaxWidth:   width,
			MaxHeight:  height,
		},
		Timing: Timing{FPS: fps, SampleRate: sampleRate},
	}
}

// WithMaxSize raises the maximum size. It never shrinks below the base size.
func (a AVInfo) WithMaxSize(width, height int) AVInfo {
	a.Geometry.MaxWidth = max(a.Geometry.MaxWidth, a.Geometry.BaseWidth, width)
	a.Geometry.MaxHeight = max(a.Geometry.MaxHeight, a.Geometry.BaseHeight, height)
	return a
}

// WithAspectRatio sets the display aspect ratio.
func (a AVInfo) WithAspectRatio(ratio float64) AVInfo {
	a.Geometry.AspectRatio = ratio
	return a
}

// Validate reports whether the info can be sent to a frontend.
func (a AVInfo) Validate() error {
	g := a.Geometry
	if g.BaseWidth <= 0 || g.BaseHeight <= 0 {
		return fmt.Errorf("invalid base size %dx%d", g.BaseWidth, g.BaseHeight)
	}
	if g.MaxWidth < g.BaseWidth || g.MaxHeight < g.BaseHeight {
		return fmt.Errorf("max size %dx%d smaller than base size %dx%d",
			g.MaxWidth, g.MaxHeight, g.BaseWidth, g.BaseHeight)
	}
	if a.Timing.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %f", a.Timing.FPS)
	}
	if a.Timing.SampleRate < 0 {
		return fmt.Errorf("invalid sample rate %f", a.Timing.SampleRate)
	}
	return nil
}

// SamplesPerFrame returns the number of stereo sample frames expected per
// video frame.
func (t Timing) SamplesPerFrame() float64 {
	if t.FPS <= 0 {
		return 0
	}
	return t.SampleRate / t.FPS
}
