package env

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	emucore "github.com/user-none/retrobackend/api"
)

var (
	ErrPixelFormatLocked     = errors.New("pixel format already in use by a rendered frame")
	ErrAVInfoReported        = errors.New("av info already reported for this session")
	ErrAVInfoNotReported     = errors.New("av info not reported")
	ErrRenegotiationRejected = errors.New("frontend rejected av info change")
	ErrVariablesRegistered   = errors.New("variables already registered for this session")
	ErrDescriptorsSent       = errors.New("input descriptors already sent for this load")
)

// Negotiator turns environment commands into typed operations and holds
// everything negotiated for the current session.
type Negotiator struct {
	handler Handler
	logger  *log.Logger

	format       emucore.PixelFormat
	formatLocked bool

	av         emucore.AVInfo
	avReported bool

	vars       []Variable
	registered bool
	polled     bool
	snapshot   Snapshot

	descriptorsSent bool
}

// NewNegotiator returns a negotiator with no frontend attached.
func NewNegotiator(logger *log.Logger) *Negotiator {
	if logger == nil {
		logger = log.Default()
	}
	return &Negotiator{
		logger: logger,
		format: emucore.DefaultPixelFormat,
	}
}

// SetHandler attaches the frontend's environment callback.
func (n *Negotiator) SetHandler(h Handler) {
	n.handler = h
}

// SetLogger replaces the logger.
func (n *Negotiator) SetLogger(logger *log.Logger) {
	n.logger = logger
}

// call sends req, treating a missing frontend as "not handled".
func (n *Negotiator) call(req Request) bool {
	if n.handler == nil {
		return false
	}
	ok := n.handler.Environment(req)
	if !ok {
		n.logger.Debug("environment command not handled", "cmd", req.Command())
	}
	return ok
}

// NegotiatePixelFormat proposes each format in turn and keeps the first one
// the frontend accepts. If none is accepted the ABI default is used.
func (n *Negotiator) NegotiatePixelFormat(preferred ...emucore.PixelFormat) (emucore.PixelFormat, error) {
	if n.formatLocked {
		return n.format, ErrPixelFormatLocked
	}

	for _, f := range preferred {
		if !f.Negotiable() {
			n.logger.Warn("skipping pixel format the frontend cannot accept", "format", f)
			continue
		}
		if n.call(&SetPixelFormat{Format: f}) {
			n.format = f
			n.logger.Debug("pixel format accepted", "format", f)
			return f, nil
		}
		n.logger.Debug("pixel format rejected", "format", f)
	}

	n.format = emucore.DefaultPixelFormat
	if len(preferred) > 0 {
		n.logger.Warn("falling back to default pixel format", "format", n.format)
	}
	return n.format, nil
}

// PixelFormat returns the negotiated format.
func (n *Negotiator) PixelFormat() emucore.PixelFormat {
	return n.format
}

// LockPixelFormat freezes the format once a frame has been rendered.
func (n *Negotiator) LockPixelFormat() {
	n.formatLocked = true
}

// ReportAVInfo records the session's AV info. It may only happen once per
// session; the frontend reads it through retro_get_system_av_info.
func (n *Negotiator) ReportAVInfo(info emucore.AVInfo) error {
	if n.avReported {
		return ErrAVInfoReported
	}
	if err := info.Validate(); err != nil {
		return fmt.Errorf("report av info: %w", err)
	}
	n.av = info
	n.avReported = true
	return nil
}

// AVInfo returns the reported AV info.
func (n *Negotiator) AVInfo() (emucore.AVInfo, bool) {
	return n.av, n.avReported
}

// ChangeAVInfo renegotiates AV info mid-session. Geometry changes that fit
// the reported maximum use SET_GEOMETRY, anything else SET_SYSTEM_AV_INFO.
// On rejection the previous info stays in effect.
func (n *Negotiator) ChangeAVInfo(info emucore.AVInfo) error {
	if !n.avReported {
		return ErrAVInfoNotReported
	}
	if err := info.Validate(); err != nil {
		return fmt.Errorf("change av info: %w", err)
	}
	if info == n.av {
		return nil
	}

	old := n.av.Geometry
	geometryOnly := info.Timing == n.av.Timing &&
		info.Geometry.MaxWidth <= old.MaxWidth &&
		info.Geometry.MaxHeight <= old.MaxHeight

	var ok bool
	if geometryOnly {
		ok = n.call(&SetGeometry{Geometry: info.Geometry})
		// SET_GEOMETRY cannot change the maximum size.
		info.Geometry.MaxWidth = old.MaxWidth
		info.Geometry.MaxHeight = old.MaxHeight
	} else {
		ok = n.call(&SetSystemAVInfo{AVInfo: info})
	}
	if !ok {
		return ErrRenegotiationRejected
	}

	n.logger.Debug("av info changed",
		"width", info.Geometry.BaseWidth, "height", info.Geometry.BaseHeight,
		"fps", info.Timing.FPS, "sample_rate", info.Timing.SampleRate)
	n.av = info
	return nil
}

// RegisterVariables submits the option schema. The frontend is free to
// ignore it; defaults are used for anything it never answers.
func (n *Negotiator) RegisterVariables(vars []Variable) error {
	if n.registered {
		return ErrVariablesRegistered
	}

	n.vars = vars
	n.registered = true
	n.polled = false

	values := make(map[string]string, len(vars))
	for _, v := range vars {
		values[v.Option] = v.Default
	}
	n.snapshot = Snapshot{values: values}

	if len(vars) == 0 {
		return nil
	}

	defs := make([]VariableDef, len(vars))
	for i, v := range vars {
		defs[i] = v.Def()
	}
	if !n.call(&SetVariables{Variables: defs}) {
		n.logger.Info("frontend does not support variables, using defaults")
	}
	return nil
}

// PollVariables refreshes the snapshot if the frontend reports a change, or
// unconditionally on the first poll after registration. It is called once
// at the start of each frame and returns the option keys whose value changed.
func (n *Negotiator) PollVariables() []string {
	if !n.registered || len(n.vars) == 0 {
		return nil
	}
	if n.polled {
		upd := &GetVariableUpdate{}
		if !n.call(upd) || !upd.Updated {
			return nil
		}
	}
	n.polled = true

	next := make(map[string]string, len(n.vars))
	var changed []string
	for _, v := range n.vars {
		value := v.Default
		req := &GetVariable{Key: v.Key}
		if n.call(req) && req.Value != "" {
			if v.Allows(req.Value) {
				value = req.Value
			} else {
				n.logger.Warn("ignoring invalid option value", "key", v.Key, "value", req.Value)
			}
		}
		next[v.Option] = value
		if prev, _ := n.snapshot.Get(v.Option); prev != value {
			changed = append(changed, v.Option)
		}
	}
	n.snapshot = Snapshot{values: next}
	return changed
}

// Variables returns the current option snapshot.
func (n *Negotiator) Variables() Snapshot {
	return n.snapshot
}

// SetInputDescriptors sends the input descriptors. They are advisory and
// sent at most once per load.
func (n *Negotiator) SetInputDescriptors(descs []emucore.InputDescriptor) error {
	if n.descriptorsSent {
		return ErrDescriptorsSent
	}
	n.descriptorsSent = true
	if len(descs) == 0 {
		return nil
	}
	n.call(&SetInputDescriptors{Descriptors: descs})
	return nil
}

// SystemDirectory returns the frontend's system directory, if it has one.
func (n *Negotiator) SystemDirectory() (string, bool) {
	req := &GetSystemDirectory{}
	if !n.call(req) || req.Path == "" {
		return "", false
	}
	return req.Path, true
}

// SaveDirectory returns the frontend's save directory, if it has one.
func (n *Negotiator) SaveDirectory() (string, bool) {
	req := &GetSaveDirectory{}
	if !n.call(req) || req.Path == "" {
		return "", false
	}
	return req.Path, true
}

// LogInterface returns the frontend's log function, if it has one.
func (n *Negotiator) LogInterface() (LogFunc, bool) {
	req := &GetLogInterface{}
	if !n.call(req) || req.Log == nil {
		return nil, false
	}
	return req.Log, true
}

// CanDupe reports whether nil frames may be passed to the video callback.
func (n *Negotiator) CanDupe() bool {
	req := &GetCanDupe{}
	return n.call(req) && req.CanDupe
}

// SetSerializationQuirks announces save state quirks and returns the set
// the frontend acknowledged.
func (n *Negotiator) SetSerializationQuirks(quirks uint64) (uint64, bool) {
	req := &SetSerializationQuirks{Quirks: quirks}
	if !n.call(req) {
		return 0, false
	}
	return req.Quirks, true
}

// SetSupportNoGame announces whether the core runs without content.
func (n *Negotiator) SetSupportNoGame(supported bool) bool {
	return n.call(&SetSupportNoGame{Supported: supported})
}

// Message shows text on screen for a number of frames.
func (n *Negotiator) Message(text string, frames uint) bool {
	return n.call(&SetMessage{Text: text, Frames: frames})
}

// SetPerformanceLevel tells the frontend how demanding the core is.
func (n *Negotiator) SetPerformanceLevel(level uint) bool {
	return n.call(&SetPerformanceLevel{Level: level})
}

// Shutdown asks the frontend to exit.
func (n *Negotiator) Shutdown() bool {
	return n.call(&Shutdown{})
}

// EndSession forgets everything negotiated for the loaded content so the
// next load starts clean.
func (n *Negotiator) EndSession() {
	n.format = emucore.DefaultPixelFormat
	n.formatLocked = false
	n.av = emucore.AVInfo{}
	n.avReported = false
	n.vars = nil
	n.registered = false
	n.polled = false
	n.snapshot = Snapshot{}
	n.descriptorsSent = false
}
