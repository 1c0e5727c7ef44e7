// Package frame runs one core frame and delivers its output to the
// frontend: input is polled first, then video, then audio.
package frame

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	emucore "github.com/user-none/retrobackend/api"
)

// Callbacks are the frontend functions registered through retro_set_*.
// Any of them may be nil.
type Callbacks struct {
	// Video receives nil pixels for a duplicated frame.
	Video func(pixels []byte, width, height, stride int)
	// AudioBatch returns the number of stereo frames it consumed.
	AudioBatch func(samples []int16) int
	Audio      func(left, right int16)
	InputPoll  func()
	InputState func(port, device, index, id uint) int16
}

// Session is the negotiated state a frame runs against.
type Session interface {
	PixelFormat() emucore.PixelFormat
	CanDupe() bool
	AVInfo() (emucore.AVInfo, bool)
	Variable(key string) (string, bool)
	ChangeAVInfo(info emucore.AVInfo) error
}

// ErrFrameDropped is returned when the core's video could not be delivered.
// Audio for the frame is still delivered.
var ErrFrameDropped = errors.New("video frame dropped")

// Executor runs frames. It is not safe for concurrent use.
type Executor struct {
	logger  *log.Logger
	mapping []emucore.RetropadMapping
	ports   int

	conv    Converter
	batch   AudioBatch
	capture *Capture

	frames       uint64
	audioBalance float64
	lastWidth    int
	lastHeight   int
}

// NewExecutor returns an executor that reads ports controllers and maps
// retropad buttons through mapping.
func NewExecutor(logger *log.Logger, mapping []emucore.RetropadMapping, ports int) *Executor {
	if logger == nil {
		logger = log.Default()
	}
	if ports <= 0 {
		ports = 1
	}
	ports = min(ports, emucore.MaxPorts)
	return &Executor{logger: logger, mapping: mapping, ports: ports}
}

// SetLogger replaces the logger.
func (e *Executor) SetLogger(logger *log.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// SetCapture records delivered audio to c. Pass nil to stop recording.
func (e *Executor) SetCapture(c *Capture) {
	e.capture = c
}

// Frames returns the number of frames run since the last Reset.
func (e *Executor) Frames() uint64 {
	return e.frames
}

// Reset clears per-session counters.
func (e *Executor) Reset() {
	e.frames = 0
	e.audioBalance = 0
	e.lastWidth, e.lastHeight = 0, 0
	e.batch.Reset()
}

// Run executes one frame of core.
func (e *Executor) Run(core emucore.Core, s Session, cb Callbacks) error {
	if cb.InputPoll != nil {
		cb.InputPoll()
	}
	input := e.readInput(cb.InputState)

	e.batch.Reset()
	host := &frameHost{batch: &e.batch, session: s}
	frame := core.RunFrame(input, host)
	e.frames++

	videoErr := e.deliverVideo(frame, s, cb)
	e.deliverAudio(s, cb)
	return videoErr
}

func (e *Executor) deliverVideo(frame emucore.VideoFrame, s Session, cb Callbacks) error {
	if cb.Video == nil {
		return nil
	}

	if frame.IsDupe() {
		if !s.CanDupe() {
			return fmt.Errorf("%w: frontend cannot duplicate frames", ErrFrameDropped)
		}
		w, h := frame.Width, frame.Height
		if w <= 0 || h <= 0 {
			w, h = e.lastWidth, e.lastHeight
		}
		cb.Video(nil, w, h, 0)
		return nil
	}

	if info, ok := s.AVInfo(); ok {
		g := info.Geometry
		if frame.Width > g.MaxWidth || frame.Height > g.MaxHeight {
			return fmt.Errorf("%w: %dx%d exceeds max geometry %dx%d",
				ErrFrameDropped, frame.Width, frame.Height, g.MaxWidth, g.MaxHeight)
		}
	}

	out, err := e.conv.Convert(frame, s.PixelFormat())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFrameDropped, err)
	}

	e.lastWidth, e.lastHeight = out.Width, out.Height
	cb.Video(out.Pixels, out.Width, out.Height, out.Stride)
	return nil
}

func (e *Executor) deliverAudio(s Session, cb Callbacks) {
	samples, dropped := e.batch.Stereo()
	if dropped > 0 {
		e.logger.Warn("odd audio sample count, dropping trailing sample",
			"frame", e.frames, "samples", e.batch.Len())
	}

	if e.capture != nil {
		if err := e.capture.Write(samples); err != nil {
			e.logger.Error("audio capture failed, disabling", "err", err)
			e.capture = nil
		}
	}

	delivered := deliverAudio(samples, cb)
	if delivered*2 < len(samples) {
		e.logger.Debug("frontend did not take all audio",
			"frame", e.frames, "offered", len(samples)/2, "taken", delivered)
	}

	info, ok := s.AVInfo()
	if !ok {
		return
	}
	expected := info.Timing.SamplesPerFrame()
	if expected <= 0 {
		return
	}
	e.audioBalance += float64(delivered) - expected
	if e.audioBalance < -expected {
		e.logger.Debug("audio underrun", "frame", e.frames, "short", -e.audioBalance)
		e.audioBalance = 0
	}
	e.audioBalance = min(e.audioBalance, expected)
}

// readInput polls the joypad and analog sticks of every port.
func (e *Executor) readInput(state func(port, device, index, id uint) int16) emucore.InputState {
	var input emucore.InputState
	if state == nil {
		return input
	}

	for port := 0; port < e.ports; port++ {
		p := uint(port)
		var buttons uint32

		// D-pad is always bits 0-3
		if state(p, emucore.DeviceJoypad, 0, emucore.JoypadUp) != 0 {
			buttons |= 1 << emucore.ButtonUp
		}
		if state(p, emucore.DeviceJoypad, 0, emucore.JoypadDown) != 0 {
			buttons |= 1 << emucore.ButtonDown
		}
		if state(p, emucore.DeviceJoypad, 0, emucore.JoypadLeft) != 0 {
			buttons |= 1 << emucore.ButtonLeft
		}
		if state(p, emucore.DeviceJoypad, 0, emucore.JoypadRight) != 0 {
			buttons |= 1 << emucore.ButtonRight
		}

		for _, m := range e.mapping {
			if m.BitID < 0 || m.BitID > 31 {
				continue
			}
			if state(p, emucore.DeviceJoypad, 0, uint(m.RetroID)) != 0 {
				buttons |= 1 << uint(m.BitID)
			}
		}
		input.Buttons[port] = buttons

		for stick := 0; stick < 2; stick++ {
			input.Analog[port][stick] = emucore.Axis{
				X: state(p, emucore.DeviceAnalog, uint(stick), emucore.AnalogX),
				Y: state(p, emucore.DeviceAnalog, uint(stick), emucore.AnalogY),
			}
		}
	}
	return input
}

// frameHost is the emucore.FrameHost handed to a core for one frame.
type frameHost struct {
	batch   *AudioBatch
	session Session
}

func (h *frameHost) WriteAudio(samples []int16) {
	h.batch.Write(samples)
}

func (h *frameHost) Variable(key string) (string, bool) {
	return h.session.Variable(key)
}

func (h *frameHost) ChangeAVInfo(info emucore.AVInfo) error {
	return h.session.ChangeAVInfo(info)
}
