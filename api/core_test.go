package emucore

import (
	"errors"
	"fmt"
	"testing"
)

func TestLoadErrorIs(t *testing.T) {
	err := fmt.Errorf("load: %w", NewLoadError(LoadCorrupt, "bad header"))
	if !errors.Is(err, ErrCorruptContent) {
		t.Error("expected ErrCorruptContent")
	}
	if errors.Is(err, ErrUnsupportedContent) {
		t.Error("unexpected ErrUnsupportedContent")
	}

	var le *LoadError
	if !errors.As(err, &le) || le.Kind != LoadCorrupt {
		t.Errorf("errors.As = %v", le)
	}
}

func TestStateErrorIs(t *testing.T) {
	err := NewStateError(StateSizeMismatch, "got %d want %d", 10, 12)
	if !errors.Is(err, ErrStateSizeMismatch) {
		t.Error("expected ErrStateSizeMismatch")
	}
	if errors.Is(err, ErrStateCorrupt) {
		t.Error("unexpected ErrStateCorrupt")
	}
	if err.Error() != "save state size mismatch: got 10 want 12" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestGameDataVariants(t *testing.T) {
	p := PathGame("/roms/game.sms")
	if p.Kind() != GameKindPath {
		t.Errorf("Kind() = %v", p.Kind())
	}
	if _, ok := p.Data(); ok {
		t.Error("path variant returned data")
	}
	if path, ok := p.Path(); !ok || path != "/roms/game.sms" {
		t.Errorf("Path() = %q, %v", path, ok)
	}

	d := DataGame("game.sms", []byte{1, 2, 3})
	if d.Kind() != GameKindData {
		t.Errorf("Kind() = %v", d.Kind())
	}
	if _, ok := d.Path(); ok {
		t.Error("data variant returned path")
	}
	if data, ok := d.Data(); !ok || len(data) != 3 {
		t.Errorf("Data() = %v, %v", data, ok)
	}
	if d.IsEmpty() {
		t.Error("data variant reported empty")
	}
	if !DataGame("", nil).IsEmpty() {
		t.Error("nil data should be empty")
	}
}

func TestAVInfoValidate(t *testing.T) {
	good := NewAVInfo(256, 240, 60, 48000)
	if err := good.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if good.Geometry.MaxWidth != 256 || good.Geometry.MaxHeight != 240 {
		t.Errorf("max size = %dx%d", good.Geometry.MaxWidth, good.Geometry.MaxHeight)
	}

	grown := good.WithMaxSize(320, 100)
	if grown.Geometry.MaxWidth != 320 || grown.Geometry.MaxHeight != 240 {
		t.Errorf("WithMaxSize = %dx%d", grown.Geometry.MaxWidth, grown.Geometry.MaxHeight)
	}

	bad := []AVInfo{
		NewAVInfo(0, 240, 60, 48000),
		NewAVInfo(256, 240, 0, 48000),
		{Geometry: Geometry{BaseWidth: 256, BaseHeight: 240, MaxWidth: 100, MaxHeight: 240}, Timing: Timing{FPS: 60}},
	}
	for i, info := range bad {
		if err := info.Validate(); err == nil {
			t.Errorf("bad[%d] validated", i)
		}
	}
}

func TestVideoFrameValidate(t *testing.T) {
	frame := VideoFrame{Width: 4, Height: 2, Format: PixelFormatRGB565, Pixels: make([]byte, 16)}
	if err := frame.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	if frame.RowBytes() != 8 {
		t.Errorf("RowBytes() = %d, want 8", frame.RowBytes())
	}

	short := frame
	short.Pixels = make([]byte, 15)
	if err := short.Validate(); err == nil {
		t.Error("short buffer validated")
	}

	narrow := frame
	narrow.Stride = 6
	if err := narrow.Validate(); err == nil {
		t.Error("narrow stride validated")
	}

	if !(VideoFrame{}).IsDupe() {
		t.Error("nil pixels should be a dupe")
	}
}

func TestInputStatePressed(t *testing.T) {
	var s InputState
	s.Buttons[1] = 1<<ButtonUp | 1<<5
	if !s.Pressed(1, ButtonUp) || !s.Pressed(1, 5) {
		t.Error("expected buttons pressed")
	}
	if s.Pressed(0, ButtonUp) || s.Pressed(MaxPorts, 0) || s.Pressed(1, 40) {
		t.Error("unexpected press")
	}
}
