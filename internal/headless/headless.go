// Package headless is an in-process frontend. It answers environment
// requests and records video, audio and messages, which is enough to drive
// a core from tests and command line tools.
package headless

import (
	"slices"
	"strings"

	emucore "github.com/user-none/retrobackend/api"
	"github.com/user-none/retrobackend/internal/env"
	"github.com/user-none/retrobackend/internal/frame"
)

// Frame is a copy of one delivered video frame.
type Frame struct {
	Width  int
	Height int
	Stride int
	Format emucore.PixelFormat
	Pixels []byte
}

// LogLine is one message sent through the log interface.
type LogLine struct {
	Level env.LogLevel
	Text  string
}

// Host is a minimal frontend. The exported configuration fields may be
// changed between calls.
type Host struct {
	// AcceptFormats lists the pixel formats SET_PIXEL_FORMAT accepts.
	// Nil accepts every format the frontend ABI defines.
	AcceptFormats []emucore.PixelFormat
	SystemDir     string
	SaveDir       string
	CanDupe       bool
	// RejectAVChanges refuses SET_GEOMETRY and SET_SYSTEM_AV_INFO.
	RejectAVChanges bool
	// AudioChunk limits how many stereo frames one batch call takes.
	// Zero takes everything offered.
	AudioChunk int
	// NoLogInterface hides GET_LOG_INTERFACE.
	NoLogInterface bool
	// Unhandled lists commands answered with "not handled".
	Unhandled []env.Command

	Format      emucore.PixelFormat
	AVInfo      emucore.AVInfo
	AVChanges   int
	Variables   []env.VariableDef
	Descriptors []emucore.InputDescriptor
	Quirks      uint64
	Performance uint
	NoGame      bool
	Messages    []string
	ShutdownReq bool
	Logs        []LogLine

	Frames    int
	Dupes     int
	LastFrame Frame
	Audio     []int16
	Polls     int

	values  map[string]string
	updated bool
	buttons [emucore.MaxPorts]map[uint]bool
	analog  [emucore.MaxPorts][2]emucore.Axis
}

// New returns a host with the ABI default pixel format.
func New() *Host {
	return &Host{
		Format: emucore.DefaultPixelFormat,
		values: make(map[string]string),
	}
}

// Environment answers one request.
func (h *Host) Environment(req env.Request) bool {
	if slices.Contains(h.Unhandled, req.Command()) {
		return false
	}

	switch r := req.(type) {
	case *env.SetPixelFormat:
		if h.AcceptFormats != nil && !slices.Contains(h.AcceptFormats, r.Format) {
			return false
		}
		h.Format = r.Format
	case *env.SetGeometry:
		if h.RejectAVChanges {
			return false
		}
		h.AVInfo.Geometry.BaseWidth = r.Geometry.BaseWidth
		h.AVInfo.Geometry.BaseHeight = r.Geometry.BaseHeight
		h.AVInfo.Geometry.AspectRatio = r.Geometry.AspectRatio
		h.AVChanges++
	case *env.SetSystemAVInfo:
		if h.RejectAVChanges {
			return false
		}
		h.AVInfo = r.AVInfo
		h.AVChanges++
	case *env.SetVariables:
		h.Variables = slices.Clone(r.Variables)
	case *env.GetVariable:
		v, ok := h.value(r.Key)
		if !ok {
			return false
		}
		r.Value = v
	case *env.GetVariableUpdate:
		r.Updated = h.updated
		h.updated = false
	case *env.SetInputDescriptors:
		h.Descriptors = slices.Clone(r.Descriptors)
	case *env.GetSystemDirectory:
		if h.SystemDir == "" {
			return false
		}
		r.Path = h.SystemDir
	case *env.GetSaveDirectory:
		if h.SaveDir == "" {
			return false
		}
		r.Path = h.SaveDir
	case *env.GetLogInterface:
		if h.NoLogInterface {
			return false
		}
		r.Log = func(level env.LogLevel, msg string) {
			h.Logs = append(h.Logs, LogLine{Level: level, Text: msg})
		}
	case *env.GetCanDupe:
		r.CanDupe = h.CanDupe
	case *env.SetSupportNoGame:
		h.NoGame = r.Supported
	case *env.SetSerializationQuirks:
		h.Quirks = r.Quirks
	case *env.SetMessage:
		h.Messages = append(h.Messages, r.Text)
	case *env.Shutdown:
		h.ShutdownReq = true
	case *env.SetPerformanceLevel:
		h.Performance = r.Level
	default:
		return false
	}
	return true
}

// value returns the option value the frontend would report: the one set
// with SetVariable, else the registered default.
func (h *Host) value(key string) (string, bool) {
	if v, ok := h.values[key]; ok {
		return v, true
	}
	for _, def := range h.Variables {
		if def.Key != key {
			continue
		}
		_, values, ok := strings.Cut(def.Value, "; ")
		if !ok {
			return "", false
		}
		first, _, _ := strings.Cut(values, "|")
		return first, true
	}
	return "", false
}

// SetVariable changes an option as a user would in the frontend's menu.
func (h *Host) SetVariable(key, value string) {
	h.values[key] = value
	h.updated = true
}

// Press sets the state of a joypad button.
func (h *Host) Press(port int, id uint, down bool) {
	if port < 0 || port >= emucore.MaxPorts {
		return
	}
	if h.buttons[port] == nil {
		h.buttons[port] = make(map[uint]bool)
	}
	h.buttons[port][id] = down
}

// Stick sets an analog stick position.
func (h *Host) Stick(port, stick int, axis emucore.Axis) {
	if port < 0 || port >= emucore.MaxPorts || stick < 0 || stick > 1 {
		return
	}
	h.analog[port][stick] = axis
}

// ClearAudio drops the recorded audio.
func (h *Host) ClearAudio() {
	h.Audio = h.Audio[:0]
}

// Callbacks returns the host's video, audio and input functions.
func (h *Host) Callbacks() frame.Callbacks {
	return frame.Callbacks{
		Video:      h.video,
		AudioBatch: h.audioBatch,
		Audio:      h.audioSample,
		InputPoll:  func() { h.Polls++ },
		InputState: h.inputState,
	}
}

func (h *Host) video(pixels []byte, width, height, stride int) {
	h.Frames++
	if pixels == nil {
		h.Dupes++
		return
	}
	h.LastFrame = Frame{
		Width:  width,
		Height: height,
		Stride: stride,
		Format: h.Format,
		Pixels: slices.Clone(pixels[:min(len(pixels), stride*height)]),
	}
}

func (h *Host) audioBatch(samples []int16) int {
	n := len(samples) / 2
	if h.AudioChunk > 0 {
		n = min(n, h.AudioChunk)
	}
	h.Audio = append(h.Audio, samples[:n*2]...)
	return n
}

func (h *Host) audioSample(left, right int16) {
	h.Audio = append(h.Audio, left, right)
}

func (h *Host) inputState(port, device, index, id uint) int16 {
	if port >= emucore.MaxPorts {
		return 0
	}
	switch device {
	case emucore.DeviceJoypad:
		if h.buttons[port][id] {
			return 1
		}
	case emucore.DeviceAnalog:
		if index > 1 {
			return 0
		}
		a := h.analog[port][index]
		if id == emucore.AnalogX {
			return a.X
		}
		return a.Y
	}
	return 0
}
