// Package env wraps the libretro environment callback, a single multiplexed
// query channel, into typed requests and a negotiator that tracks what the
// frontend agreed to.
package env

import emucore "github.com/user-none/retrobackend/api"

// Command is a RETRO_ENVIRONMENT_* command number.
type Command uint

// Environment commands understood by the negotiator.
const (
	CmdGetCanDupe             Command = 3
	CmdSetMessage             Command = 6
	CmdShutdown               Command = 7
	CmdSetPerformanceLevel    Command = 8
	CmdGetSystemDirectory     Command = 9
	CmdSetPixelFormat         Command = 10
	CmdSetInputDescriptors    Command = 11
	CmdGetVariable            Command = 15
	CmdSetVariables           Command = 16
	CmdGetVariableUpdate      Command = 17
	CmdSetSupportNoGame       Command = 18
	CmdGetLogInterface        Command = 27
	CmdGetSaveDirectory       Command = 31
	CmdSetSystemAVInfo        Command = 32
	CmdSetGeometry            Command = 37
	CmdSetSerializationQuirks Command = 44
)

// LogLevel is a RETRO_LOG_* level.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// LogFunc writes one message through the frontend's log interface.
type LogFunc func(level LogLevel, msg string)

// Request is one environment call. The set of implementations is closed;
// responses are written into the request by the handler.
type Request interface {
	Command() Command
	request()
}

// Handler answers environment requests. Returning false means the frontend
// did not handle the command, which is never an error.
type Handler interface {
	Environment(req Request) bool
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req Request) bool

// Environment calls f(req).
func (f HandlerFunc) Environment(req Request) bool {
	return f(req)
}

// SetPixelFormat proposes the framebuffer format.
type SetPixelFormat struct {
	Format emucore.PixelFormat
}

// SetGeometry changes the base geometry without reinitialising the driver.
type SetGeometry struct {
	Geometry emucore.Geometry
}

// SetSystemAVInfo replaces the complete AV info.
type SetSystemAVInfo struct {
	AVInfo emucore.AVInfo
}

// VariableDef is one entry of SET_VARIABLES, already in wire form.
type VariableDef struct {
	Key   string
	Value string // "Description; default|other|..."
}

// SetVariables submits the option schema.
type SetVariables struct {
	Variables []VariableDef
}

// GetVariable reads the current value of one option.
type GetVariable struct {
	Key   string
	Value string
}

// GetVariableUpdate asks whether any option changed since the last read.
type GetVariableUpdate struct {
	Updated bool
}

// SetInputDescriptors declares the inputs the core understands.
type SetInputDescriptors struct {
	Descriptors []emucore.InputDescriptor
}

// GetSystemDirectory asks for the BIOS/system directory.
type GetSystemDirectory struct {
	Path string
}

// GetSaveDirectory asks for the save file directory.
type GetSaveDirectory struct {
	Path string
}

// GetLogInterface asks for the frontend's log function.
type GetLogInterface struct {
	Log LogFunc
}

// GetCanDupe asks whether a nil frame may be passed to repeat the last one.
type GetCanDupe struct {
	CanDupe bool
}

// SetSupportNoGame announces that the core runs without content.
type SetSupportNoGame struct {
	Supported bool
}

// SetSerializationQuirks announces save state quirks. The frontend may
// write back the subset it understands.
type SetSerializationQuirks struct {
	Quirks uint64
}

// SetMessage shows a message on screen for a number of frames.
type SetMessage struct {
	Text   string
	Frames uint
}

// Shutdown asks the frontend to exit.
type Shutdown struct{}

// SetPerformanceLevel hints how demanding the core is.
type SetPerformanceLevel struct {
	Level uint
}

func (*SetPixelFormat) Command() Command         { return CmdSetPixelFormat }
func (*SetGeometry) Command() Command            { return CmdSetGeometry }
func (*SetSystemAVInfo) Command() Command        { return CmdSetSystemAVInfo }
func (*SetVariables) Command() Command           { return CmdSetVariables }
func (*GetVariable) Command() Command            { return CmdGetVariable }
func (*GetVariableUpdate) Command() Command      { return CmdGetVariableUpdate }
func (*SetInputDescriptors) Command() Command    { return CmdSetInputDescriptors }
func (*GetSystemDirectory) Command() Command     { return CmdGetSystemDirectory }
func (*GetSaveDirectory) Command() Command       { return CmdGetSaveDirectory }
func (*GetLogInterface) Command() Command        { return CmdGetLogInterface }
func (*GetCanDupe) Command() Command             { return CmdGetCanDupe }
func (*SetSupportNoGame) Command() Command       { return CmdSetSupportNoGame }
func (*SetSerializationQuirks) Command() Command { return CmdSetSerializationQuirks }
func (*SetMessage) Command() Command             { return CmdSetMessage }
func (*Shutdown) Command() Command               { return CmdShutdown }
func (*SetPerformanceLevel) Command() Command    { return CmdSetPerformanceLevel }

func (*SetPixelFormat) request()         {}
func (*SetGeometry) request()            {}
func (*SetSystemAVInfo) request()        {}
func (*SetVariables) request()           {}
func (*GetVariable) request()            {}
func (*GetVariableUpdate) request()      {}
func (*SetInputDescriptors) request()    {}
func (*GetSystemDirectory) request()     {}
func (*GetSaveDirectory) request()       {}
func (*GetLogInterface) request()        {}
func (*GetCanDupe) request()             {}
func (*SetSupportNoGame) request()       {}
func (*SetSerializationQuirks) request() {}
func (*SetMessage) request()             {}
func (*Shutdown) request()               {}
func (*SetPerformanceLevel) request()    {}
